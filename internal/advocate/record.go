// Package advocate verifies submitted lawyer credentials against a roster of
// registered advocates.
package advocate

import "context"

// Record is a single registered advocate from the reference roster.
// Empty EnrollmentNumber or Jurisdiction means the roster had no value.
type Record struct {
	Name             string `json:"name" yaml:"name"`
	EnrollmentNumber string `json:"enrollment_number,omitempty" yaml:"enrollment_number,omitempty"`
	Jurisdiction     string `json:"jurisdiction,omitempty" yaml:"jurisdiction,omitempty"`
}

// HasEnrollment reports whether the record carries an enrollment number.
func (r Record) HasEnrollment() bool {
	return r.EnrollmentNumber != ""
}

// Query is a lawyer's submitted identity.
type Query struct {
	SubmittedName       string `json:"name" yaml:"name"`
	SubmittedEnrollment string `json:"enrollment,omitempty" yaml:"enrollment,omitempty"`
}

// Source supplies the reference roster.
type Source interface {
	// Name identifies the source in logs and cache status.
	Name() string
	// Load returns every record the source could parse.
	Load(ctx context.Context) ([]Record, error)
}
