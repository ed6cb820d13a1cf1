package advocate

// Thresholds tunes the verification policy. The defaults are hand-tuned and
// kept as-is; zero fields fall back to them.
type Thresholds struct {
	// Accept is the minimum confidence for a verified verdict. It also gates
	// the name-driven scan.
	Accept float64 `yaml:"accept" mapstructure:"accept"`

	// FastPathStrong and FastPathWeak are the confidences given to an exact
	// enrollment hit whose name similarity is at least FastPathNameCutoff, or
	// below it, respectively. FastPathWeak also applies to an exact name hit
	// when no enrollment was submitted.
	FastPathStrong     float64 `yaml:"fast_path_strong" mapstructure:"fast_path_strong"`
	FastPathWeak       float64 `yaml:"fast_path_weak" mapstructure:"fast_path_weak"`
	FastPathNameCutoff float64 `yaml:"fast_path_name_cutoff" mapstructure:"fast_path_name_cutoff"`

	// EnrollmentScanMin is the enrollment similarity a record needs before the
	// enrollment-driven scan considers it.
	EnrollmentScanMin float64 `yaml:"enrollment_scan_min" mapstructure:"enrollment_scan_min"`

	// Reason tiers.
	ExactTier    float64 `yaml:"exact_tier" mapstructure:"exact_tier"`
	VeryHighTier float64 `yaml:"very_high_tier" mapstructure:"very_high_tier"`
	PartialTier  float64 `yaml:"partial_tier" mapstructure:"partial_tier"`
}

// DefaultThresholds returns the production verification policy.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Accept:             0.70,
		FastPathStrong:     0.99,
		FastPathWeak:       0.95,
		FastPathNameCutoff: 0.8,
		EnrollmentScanMin:  0.95,
		ExactTier:          0.95,
		VeryHighTier:       0.85,
		PartialTier:        0.50,
	}
}

func (t Thresholds) withDefaults() Thresholds {
	d := DefaultThresholds()
	if t.Accept <= 0 {
		t.Accept = d.Accept
	}
	if t.FastPathStrong <= 0 {
		t.FastPathStrong = d.FastPathStrong
	}
	if t.FastPathWeak <= 0 {
		t.FastPathWeak = d.FastPathWeak
	}
	if t.FastPathNameCutoff <= 0 {
		t.FastPathNameCutoff = d.FastPathNameCutoff
	}
	if t.EnrollmentScanMin <= 0 {
		t.EnrollmentScanMin = d.EnrollmentScanMin
	}
	if t.ExactTier <= 0 {
		t.ExactTier = d.ExactTier
	}
	if t.VeryHighTier <= 0 {
		t.VeryHighTier = d.VeryHighTier
	}
	if t.PartialTier <= 0 {
		t.PartialTier = d.PartialTier
	}
	return t
}

// Reason labels a confidence with its tier.
func (t Thresholds) Reason(confidence float64) string {
	switch {
	case confidence >= t.ExactTier:
		return ReasonExact
	case confidence >= t.VeryHighTier:
		return ReasonVeryHigh
	case confidence >= t.Accept:
		return ReasonHigh
	case confidence >= t.PartialTier:
		return ReasonPartial
	default:
		return ReasonNoMatch
	}
}
