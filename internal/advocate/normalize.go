package advocate

import (
	"regexp"
	"strings"
)

// enrollmentAliases lists jurisdiction-code variants folded onto "AP".
// Order matters: each replacement sees the output of the previous one.
var enrollmentAliases = []string{"APS", "RAP", "APE"}

var (
	nonLowerAlphaRe   = regexp.MustCompile(`[^a-z]`)
	nonUpperAlnumRe   = regexp.MustCompile(`[^A-Z0-9]`)
	whitespaceRunRe   = regexp.MustCompile(`\s+`)
	enrollmentPartsRe = regexp.MustCompile(`^([A-Z]{1,4})?[^0-9]*([0-9]{1,6})[^0-9]*([0-9]{4})?`)
	nonDigitRe        = regexp.MustCompile(`[^0-9]`)
)

// NormalizeName lowercases a name, replaces everything outside a-z with a
// space and collapses whitespace. Digits and punctuation are discarded.
func NormalizeName(name string) string {
	n := strings.ToLower(name)
	n = nonLowerAlphaRe.ReplaceAllString(n, " ")
	n = whitespaceRunRe.ReplaceAllString(n, " ")
	return strings.TrimSpace(n)
}

// NormalizeEnrollment canonicalizes an enrollment number to uppercase
// alphanumerics with jurisdiction aliases folded, e.g. "aps 03207 2015" and
// "AP/03207/2015" both become "AP032072015".
func NormalizeEnrollment(enrollment string) string {
	e := aliasEnrollment(enrollment)
	return nonUpperAlnumRe.ReplaceAllString(e, "")
}

func aliasEnrollment(enrollment string) string {
	e := strings.TrimSpace(strings.ToUpper(enrollment))
	for _, alias := range enrollmentAliases {
		e = strings.ReplaceAll(e, alias, "AP")
	}
	return e
}

// EnrollmentParts is the structured form of an enrollment number.
// Prefix and Year are empty when absent.
type EnrollmentParts struct {
	Prefix string
	Serial string
	Year   string
}

// ParseEnrollmentParts splits an enrollment number into prefix, serial and
// year. Separators between the parts are ignored. Returns false when no
// serial can be found.
func ParseEnrollmentParts(enrollment string) (EnrollmentParts, bool) {
	m := enrollmentPartsRe.FindStringSubmatch(aliasEnrollment(enrollment))
	if m == nil || m[2] == "" {
		return EnrollmentParts{}, false
	}
	return EnrollmentParts{Prefix: m[1], Serial: m[2], Year: m[3]}, true
}

func digitsOnly(s string) string {
	return nonDigitRe.ReplaceAllString(s, "")
}
