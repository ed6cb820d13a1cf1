package advocate

import "strings"

// Scores assigned by the similarity functions.
const (
	scoreIdentical    = 1.0
	scoreNameContains = 0.95

	scoreSerialYear   = 0.98
	scoreSerialPrefix = 0.92
	scoreSerial       = 0.88
	scoreYearPrefix   = 0.82
	scoreYear         = 0.78

	// digitFallbackWeight discounts the unstructured digit comparison.
	digitFallbackWeight = 0.8
)

// NameSimilarity scores two names in [0,1]. Identical normalized names score
// 1.0, containment scores 0.95, otherwise the Jaccard index of their words.
func NameSimilarity(a, b string) float64 {
	na, nb := NormalizeName(a), NormalizeName(b)
	if na == nb {
		return scoreIdentical
	}
	if na == "" || nb == "" {
		return 0
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return scoreNameContains
	}

	wa, wb := wordSet(na), wordSet(nb)
	inter := 0
	for w := range wa {
		if _, ok := wb[w]; ok {
			inter++
		}
	}
	union := len(wa) + len(wb) - inter
	return float64(inter) / float64(union)
}

func wordSet(s string) map[string]struct{} {
	words := strings.Fields(s)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// EnrollmentSimilarity scores two enrollment numbers in [0,1].
//
// Equal normalized forms score 1.0. When both parse into prefix/serial/year
// parts the first matching rule wins:
//
//	serial + year    0.98
//	serial + prefix  0.92
//	serial           0.88
//	year + prefix    0.82
//	year             0.78
//
// Anything else falls back to the longest common run of digits relative to
// the longer digit string, weighted by 0.8.
func EnrollmentSimilarity(a, b string) float64 {
	na, nb := NormalizeEnrollment(a), NormalizeEnrollment(b)
	if na == nb {
		return scoreIdentical
	}

	pa, okA := ParseEnrollmentParts(a)
	pb, okB := ParseEnrollmentParts(b)
	if okA && okB {
		if score, ok := structuredScore(pa, pb); ok {
			return score
		}
	}

	return digitSequenceSimilarity(na, nb)
}

// structuredScore applies the ordered part-comparison rules. Parts compare
// by equality, so an absent year or prefix equals another absent one.
func structuredScore(a, b EnrollmentParts) (float64, bool) {
	serialEq := a.Serial == b.Serial
	yearEq := a.Year == b.Year
	prefixEq := a.Prefix == b.Prefix

	switch {
	case serialEq && yearEq:
		return scoreSerialYear, true
	case serialEq && prefixEq:
		return scoreSerialPrefix, true
	case serialEq:
		return scoreSerial, true
	case yearEq && prefixEq:
		return scoreYearPrefix, true
	case yearEq:
		return scoreYear, true
	}
	return 0, false
}

// digitSequenceSimilarity compares the digit content of two normalized
// enrollment strings by longest common substring.
func digitSequenceSimilarity(a, b string) float64 {
	da, db := digitsOnly(a), digitsOnly(b)
	longest := max(len(da), len(db), 1)
	return float64(longestCommonSubstring(da, db)) / float64(longest) * digitFallbackWeight
}

// longestCommonSubstring returns the length of the longest contiguous run
// shared by a and b. O(len(a)*len(b)) time, O(len(b)) space.
func longestCommonSubstring(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	best := 0
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > best {
					best = curr[j]
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}
	return best
}
