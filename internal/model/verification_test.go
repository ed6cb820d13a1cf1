package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/advocate-cli/internal/advocate"
)

func TestNewVerification(t *testing.T) {
	q := advocate.Query{SubmittedName: "Abdul Azeez", SubmittedEnrollment: "APS/653/2022"}
	v := advocate.Verdict{
		IsVerified:      true,
		Confidence:      0.97,
		MatchedRecord:   &advocate.Record{Name: "Abdul Azeez", EnrollmentNumber: "AP/653/2022"},
		Reason:          advocate.ReasonExact,
		TotalCandidates: 12,
	}

	got := NewVerification("profile-1", q, v)
	assert.Empty(t, got.ID)
	assert.True(t, got.CreatedAt.IsZero())
	assert.Equal(t, "profile-1", got.ProfileID)
	assert.Equal(t, "APS/653/2022", got.SubmittedEnrollment)
	assert.Equal(t, "AP/653/2022", got.MatchedEnrollment)
	assert.Equal(t, 12, got.TotalCandidates)
}

func TestNewVerification_NoMatch(t *testing.T) {
	got := NewVerification("p", advocate.Query{SubmittedName: "X"}, advocate.Verdict{Reason: advocate.ReasonNoMatch})
	assert.False(t, got.IsVerified)
	assert.Empty(t, got.MatchedName)
	assert.Empty(t, got.MatchedEnrollment)
}

func TestVerification_JSONFlattensProfileFields(t *testing.T) {
	v := Verification{
		ID:            "v-1",
		ProfileID:     "profile-1",
		SubmittedName: "Abdul Azeez",
		ProfileFields: advocate.ProfileFields{IsVerified: true, Confidence: 0.9, MatchedName: "Abdul Azeez"},
	}

	data, err := json.Marshal(v)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, true, m["isVerified"])
	assert.Equal(t, "Abdul Azeez", m["matchedName"])
	assert.NotContains(t, m, "ProfileFields")
}

func TestVerification_YAMLInlinesProfileFields(t *testing.T) {
	v := Verification{ID: "v-1", ProfileFields: advocate.ProfileFields{Reason: advocate.ReasonPartial}}

	data, err := yaml.Marshal(v)
	require.NoError(t, err)
	assert.Contains(t, string(data), "reason: "+advocate.ReasonPartial)
	assert.NotContains(t, string(data), "profilefields")
}
