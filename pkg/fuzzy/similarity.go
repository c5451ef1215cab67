package fuzzy

import "github.com/agnivade/levenshtein"

// Distance is the Levenshtein edit distance between a and b, each insertion,
// deletion and substitution costing 1.
func Distance(a, b string) int {
	return levenshtein.ComputeDistance(a, b)
}

// Similarity is 1 - Distance(a, b) / max(len(a), len(b)), in [0, 1].
// Two empty strings are identical.
func Similarity(a, b string) float64 {
	maxLen := max(len([]rune(a)), len([]rune(b)))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(Distance(a, b))/float64(maxLen)
}
