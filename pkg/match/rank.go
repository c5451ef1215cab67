package match

import (
	"cmp"
	"slices"
)

// Rank returns matches ordered by confidence score descending, then by match
// type priority, then by profile completeness over the ranking checklist
// (scoring fields plus position and class year) descending. Equal keys keep
// their input order. The input slice is not modified.
func Rank(matches []ScoredMatch) []ScoredMatch {
	out := slices.Clone(matches)
	slices.SortStableFunc(out, func(a, b ScoredMatch) int {
		if c := cmp.Compare(b.ConfidenceScore, a.ConfidenceScore); c != 0 {
			return c
		}
		if c := cmp.Compare(a.MatchType.Priority(), b.MatchType.Priority()); c != 0 {
			return c
		}
		return cmp.Compare(filled(rankingChecklist(b.Candidate)), filled(rankingChecklist(a.Candidate)))
	})
	return out
}

// Completeness returns the filled ratio of the ranking checklist.
func Completeness(c Candidate) float64 {
	fields := rankingChecklist(c)
	return float64(filled(fields)) / float64(len(fields))
}
