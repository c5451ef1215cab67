package match

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/hazyhaar/recruitmatch/pkg/fuzzy"
)

// ScoredMatch is a candidate together with its confidence assessment.
// It marshals as the candidate's own fields plus the scoring fields.
type ScoredMatch struct {
	Candidate       Candidate
	ConfidenceScore int
	ConfidenceLevel ConfidenceLevel
	MatchType       MatchType
	MatchingFactors []string
	Penalties       []string
	MatchAnalysis   MatchAnalysis
}

// MatchAnalysis summarizes each comparison outcome.
type MatchAnalysis struct {
	NameMatch         string   `json:"nameMatch"`
	SchoolMatch       string   `json:"schoolMatch"`
	PhoneMatch        string   `json:"phoneMatch"`
	AdditionalFactors []string `json:"additionalFactors"`
}

// Comparison outcomes reported in MatchAnalysis.
const (
	OutcomeExact     = "exact"
	OutcomeStrong    = "strong"
	OutcomePartial   = "partial"
	OutcomeFirstOnly = "first_only"
	OutcomeLastOnly  = "last_only"
	OutcomeFuzzy     = "fuzzy"
	OutcomeWeak      = "weak"
	OutcomeNone      = "none"
	OutcomeMatch     = "match"
	OutcomeMismatch  = "mismatch"
	OutcomeMissing   = "missing"
)

type scoredFields struct {
	ConfidenceScore int             `json:"confidenceScore"`
	ConfidenceLevel ConfidenceLevel `json:"confidenceLevel"`
	MatchType       MatchType       `json:"matchType"`
	MatchingFactors []string        `json:"matchingFactors"`
	Penalties       []string        `json:"penalties"`
	MatchAnalysis   MatchAnalysis   `json:"matchAnalysis"`
}

var scoredKeys = map[string]bool{
	"confidenceScore": true, "confidenceLevel": true, "matchType": true,
	"matchingFactors": true, "penalties": true, "matchAnalysis": true,
}

// MarshalJSON flattens the candidate fields and the scoring fields.
func (m ScoredMatch) MarshalJSON() ([]byte, error) {
	out := m.Candidate.fields()
	out["confidenceScore"] = m.ConfidenceScore
	out["confidenceLevel"] = m.ConfidenceLevel
	out["matchType"] = m.MatchType
	out["matchingFactors"] = nonNil(m.MatchingFactors)
	out["penalties"] = nonNil(m.Penalties)
	m.MatchAnalysis.AdditionalFactors = nonNil(m.MatchAnalysis.AdditionalFactors)
	out["matchAnalysis"] = m.MatchAnalysis
	return json.Marshal(out)
}

// UnmarshalJSON reads a flat scored record back.
func (m *ScoredMatch) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var c candidateFields
	if err := json.Unmarshal(b, &c); err != nil {
		return err
	}
	// Mistyped scoring fields are skipped and read as zero values.
	var s scoredFields
	_ = json.Unmarshal(b, &s)
	if v, ok := raw["email"]; ok && !c.EmailAddress.Present() {
		_ = c.EmailAddress.UnmarshalJSON(v)
	}
	*m = ScoredMatch{
		Candidate:       Candidate(c),
		ConfidenceScore: s.ConfidenceScore,
		ConfidenceLevel: s.ConfidenceLevel,
		MatchType:       s.MatchType,
		MatchingFactors: s.MatchingFactors,
		Penalties:       s.Penalties,
		MatchAnalysis:   s.MatchAnalysis,
	}
	m.Candidate.Extra = extraFields(raw, candidateKeys, scoredKeys)
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Score computes the confidence that c is the record described by crit.
// mt is how c was found; now anchors the recency adjustment. Score never
// fails: absent or malformed fields only lose their factor.
func Score(c Candidate, crit Criteria, mt MatchType, now time.Time) ScoredMatch {
	s := &scoring{}

	score := max(mt.BaseScore(), s.name(c, crit))
	score += s.school(c.SchoolID, crit.SchoolID)
	score += s.phone(c.PhoneNumber, crit.PhoneNumber)
	score += s.email(c.EmailAddress, crit.Email)
	score += s.recency(c.UpdatedAt, now)
	score += s.completeness(c)
	score = min(max(score, MinScore), MaxScore)

	s.analysis.AdditionalFactors = nonNil(s.analysis.AdditionalFactors)
	return ScoredMatch{
		Candidate:       c,
		ConfidenceScore: score,
		ConfidenceLevel: Level(score),
		MatchType:       mt,
		MatchingFactors: nonNil(s.factors),
		Penalties:       nonNil(s.penalties),
		MatchAnalysis:   s.analysis,
	}
}

// scoring accumulates reasons in the order they are found.
type scoring struct {
	factors   []string
	penalties []string
	analysis  MatchAnalysis
}

func (s *scoring) factor(format string, args ...any) {
	s.factors = append(s.factors, fmt.Sprintf(format, args...))
}

func (s *scoring) penalty(format string, args ...any) {
	s.penalties = append(s.penalties, fmt.Sprintf(format, args...))
}

func norm(t Text) string {
	v, ok := t.Value()
	if !ok {
		return ""
	}
	return fuzzy.Normalize(v)
}

func fullName(full Text, first, last string) string {
	if n := norm(full); n != "" {
		return n
	}
	return strings.TrimSpace(first + " " + last)
}

func contains(s, sub string) bool {
	return s != "" && sub != "" && strings.Contains(s, sub)
}

// partialEither reports whether either name contains the other.
func partialEither(a, b string) bool {
	return contains(a, b) || contains(b, a)
}

func (s *scoring) name(c Candidate, crit Criteria) int {
	cf, cl := norm(c.FirstName), norm(c.LastName)
	sf, sl := norm(crit.FirstName), norm(crit.LastName)
	cFull, sFull := fullName(c.FullName, cf, cl), fullName(crit.FullName, sf, sl)

	firstExact := sf != "" && cf == sf
	lastExact := sl != "" && cl == sl
	// A full name built from a lone first name is not a full name.
	fullComparable := norm(c.FullName) != "" || norm(crit.FullName) != "" || (cl != "" && sl != "")

	switch {
	case firstExact && lastExact:
		s.factor("Exact first and last name match")
		s.analysis.NameMatch = OutcomeExact
		return NameExact
	case fullComparable && sFull != "" && cFull == sFull:
		s.factor("Exact full name match")
		s.analysis.NameMatch = OutcomeExact
		return NameExact
	case firstExact && partialEither(cl, sl):
		s.factor("Exact first name, partial last name match")
		s.analysis.NameMatch = OutcomeStrong
		return NameExactAndPartial
	case lastExact && partialEither(cf, sf):
		s.factor("Exact last name, partial first name match")
		s.analysis.NameMatch = OutcomeStrong
		return NameExactAndPartial
	case partialEither(cf, sf) && partialEither(cl, sl):
		s.factor("Partial first and last name match")
		s.analysis.NameMatch = OutcomePartial
		return NameBothPartial
	case firstExact:
		s.factor("Exact first name match")
		if cl == "" || sl == "" {
			s.penalty("Last name missing")
		}
		s.analysis.NameMatch = OutcomeFirstOnly
		return NameOneExact
	case lastExact:
		s.factor("Exact last name match")
		if cf == "" || sf == "" {
			s.penalty("First name missing")
		}
		s.analysis.NameMatch = OutcomeLastOnly
		return NameOneExact
	case cFull == "" || sFull == "":
		s.penalty("No name to compare")
		s.analysis.NameMatch = OutcomeNone
		return 0
	}

	sim := fuzzy.Similarity(cFull, sFull)
	ns := int(math.Round(sim * NameFuzzyScale))
	if ns > NameFuzzyFactorMin {
		s.factor("Name similarity %d%%", int(math.Round(sim*100)))
		s.analysis.NameMatch = OutcomeFuzzy
	} else {
		s.penalty("Low name similarity (%d%%)", int(math.Round(sim*100)))
		s.analysis.NameMatch = OutcomeWeak
	}
	return ns
}

func (s *scoring) school(cand, crit Text) int {
	a, okA := cand.Value()
	b, okB := crit.Value()
	switch {
	case !okA || !okB:
		s.penalty("School missing")
		s.analysis.SchoolMatch = OutcomeMissing
		return 0
	case strings.EqualFold(a, b):
		s.factor("Same school")
		s.analysis.SchoolMatch = OutcomeMatch
		return SameSchoolBonus
	default:
		s.penalty("Different schools")
		s.analysis.SchoolMatch = OutcomeMismatch
		return -DifferentSchoolPenalty
	}
}

func (s *scoring) phone(cand, crit Text) int {
	a, b := fuzzy.Digits(string(cand)), fuzzy.Digits(string(crit))
	switch {
	case a == "" || b == "":
		s.penalty("Phone number missing")
		s.analysis.PhoneMatch = OutcomeMissing
		return 0
	case a == b:
		s.factor("Same phone number")
		s.analysis.PhoneMatch = OutcomeMatch
		return SamePhoneBonus
	default:
		s.penalty("Different phone numbers")
		s.analysis.PhoneMatch = OutcomeMismatch
		return -DifferentPhonePenalty
	}
}

func (s *scoring) email(cand, crit Text) int {
	a, okA := cand.Value()
	b, okB := crit.Value()
	if !okA || !okB || !strings.EqualFold(a, b) {
		return 0
	}
	s.factor("Same email address")
	s.analysis.AdditionalFactors = append(s.analysis.AdditionalFactors, "email_match")
	return SameEmailBonus
}

func (s *scoring) recency(updated Timestamp, now time.Time) int {
	if updated.IsZero() {
		return 0
	}
	age := max(now.Sub(updated.Time), 0)
	switch {
	case age < RecentWindow:
		s.factor("Recently updated")
		s.analysis.AdditionalFactors = append(s.analysis.AdditionalFactors, "recent_update")
		return RecentUpdateBonus
	case age > StaleAfter:
		s.penalty("Not updated in over a year")
		s.analysis.AdditionalFactors = append(s.analysis.AdditionalFactors, "stale_profile")
		return -StaleProfilePenalty
	}
	return 0
}

func scoringChecklist(c Candidate) []Text {
	return []Text{c.FirstName, c.LastName, c.EmailAddress, c.PhoneNumber, c.SchoolID}
}

func rankingChecklist(c Candidate) []Text {
	return append(scoringChecklist(c), c.Position, c.ClassYear)
}

func filled(fields []Text) int {
	n := 0
	for _, f := range fields {
		if f.Present() {
			n++
		}
	}
	return n
}

func (s *scoring) completeness(c Candidate) int {
	fields := scoringChecklist(c)
	n := filled(fields)
	v := float64(n) / float64(len(fields)) * CompletenessScale
	switch {
	case v >= CompletenessBonusMin:
		s.factor("Complete profile (%d/%d fields)", n, len(fields))
		s.analysis.AdditionalFactors = append(s.analysis.AdditionalFactors, "complete_profile")
		return int(math.Round(v))
	case v < CompletenessPenaltyBelow:
		s.penalty("Incomplete profile (%d/%d fields)", n, len(fields))
		s.analysis.AdditionalFactors = append(s.analysis.AdditionalFactors, "incomplete_profile")
		return -IncompleteProfilePenalty
	}
	return 0
}
