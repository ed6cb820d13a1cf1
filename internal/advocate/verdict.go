package advocate

// Verdict reasons.
const (
	ReasonEmptyRoster = "No advocates found in database"
	ReasonExact       = "Exact match found in database"
	ReasonVeryHigh    = "Very high confidence match found"
	ReasonHigh        = "High confidence match found"
	ReasonPartial     = "Partial match found, manual review recommended"
	ReasonNoMatch     = "No significant match found in database"
)

// Verdict is the outcome of verifying one query against the roster.
type Verdict struct {
	IsVerified      bool    `json:"is_verified" yaml:"is_verified"`
	Confidence      float64 `json:"confidence" yaml:"confidence"`
	MatchedRecord   *Record `json:"matched_record,omitempty" yaml:"matched_record,omitempty"`
	Reason          string  `json:"reason" yaml:"reason"`
	TotalCandidates int     `json:"total_candidates" yaml:"total_candidates"`
}

// ProfileFields is the verdict as written into a lawyer's profile document.
// The JSON keys are fixed by the profile schema.
type ProfileFields struct {
	IsVerified        bool    `json:"isVerified" yaml:"isVerified"`
	Confidence        float64 `json:"confidence" yaml:"confidence"`
	MatchedName       string  `json:"matchedName" yaml:"matchedName"`
	MatchedEnrollment string  `json:"matchedEnrollment" yaml:"matchedEnrollment"`
	Reason            string  `json:"reason" yaml:"reason"`
	TotalCandidates   int     `json:"totalCandidates" yaml:"totalCandidates"`
}

// Profile flattens the verdict for persistence.
func (v Verdict) Profile() ProfileFields {
	p := ProfileFields{
		IsVerified:      v.IsVerified,
		Confidence:      v.Confidence,
		Reason:          v.Reason,
		TotalCandidates: v.TotalCandidates,
	}
	if v.MatchedRecord != nil {
		p.MatchedName = v.MatchedRecord.Name
		p.MatchedEnrollment = v.MatchedRecord.EnrollmentNumber
	}
	return p
}

// Map returns the fields keyed as a document store expects them.
func (p ProfileFields) Map() map[string]any {
	return map[string]any{
		"isVerified":        p.IsVerified,
		"confidence":        p.Confidence,
		"matchedName":       p.MatchedName,
		"matchedEnrollment": p.MatchedEnrollment,
		"reason":            p.Reason,
		"totalCandidates":   p.TotalCandidates,
	}
}
