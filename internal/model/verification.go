// Package model holds the persisted shapes shared by the store, the CLI and
// the HTTP API.
package model

import (
	"time"

	"github.com/sells-group/advocate-cli/internal/advocate"
)

// Verification is a stored verdict for a profile.
type Verification struct {
	ID                  string `json:"id" yaml:"id"`
	ProfileID           string `json:"profile_id" yaml:"profile_id"`
	SubmittedName       string `json:"submitted_name" yaml:"submitted_name"`
	SubmittedEnrollment string `json:"submitted_enrollment,omitempty" yaml:"submitted_enrollment,omitempty"`

	advocate.ProfileFields `yaml:",inline"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// NewVerification records verdict v for a profile. ID and CreatedAt are
// assigned by the store.
func NewVerification(profileID string, q advocate.Query, v advocate.Verdict) Verification {
	return Verification{
		ProfileID:           profileID,
		SubmittedName:       q.SubmittedName,
		SubmittedEnrollment: q.SubmittedEnrollment,
		ProfileFields:       v.Profile(),
	}
}

// VerificationFilter narrows ListVerifications.
type VerificationFilter struct {
	ProfileID    string `json:"profile_id,omitempty"`
	VerifiedOnly bool   `json:"verified_only,omitempty"`
	Limit        int    `json:"limit,omitempty"`
	Offset       int    `json:"offset,omitempty"`
}
