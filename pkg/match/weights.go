package match

import "time"

// Base scores by match type.
const (
	BaseEmailMatch        = 98
	BaseNameSchool        = 95
	BaseNamePhone         = 90
	BasePartialNameSchool = 75
	BasePartialNamePhone  = 70
	BaseNamePartial       = 50
	BasePhoneOnly         = 30
	BaseUnknown           = 50
)

// BaseScores maps each known match type to its base score.
var BaseScores = map[MatchType]int{
	EmailMatch:        BaseEmailMatch,
	NameSchool:        BaseNameSchool,
	NamePhone:         BaseNamePhone,
	PartialNameSchool: BasePartialNameSchool,
	PartialNamePhone:  BasePartialNamePhone,
	NamePartial:       BaseNamePartial,
	PhoneOnly:         BasePhoneOnly,
}

// Name sub-scores.
const (
	NameExact           = 95
	NameExactAndPartial = 85
	NameBothPartial     = 70
	NameOneExact        = 60
	// NameFuzzyScale turns a [0,1] similarity into a sub-score.
	NameFuzzyScale = 50
	// NameFuzzyFactorMin is the fuzzy sub-score above which the similarity
	// counts as a matching factor rather than a penalty.
	NameFuzzyFactorMin = 20
)

// Adjustments applied after max(base, name sub-score). Penalty values are
// magnitudes and are subtracted.
const (
	SameSchoolBonus        = 10
	DifferentSchoolPenalty = 5
	SamePhoneBonus         = 15
	DifferentPhonePenalty  = 3
	SameEmailBonus         = 20
	RecentUpdateBonus      = 2
	StaleProfilePenalty    = 2

	RecentWindow = 30 * 24 * time.Hour
	StaleAfter   = 365 * 24 * time.Hour

	// CompletenessScale multiplies the filled-field ratio of the scoring
	// checklist.
	CompletenessScale = 5
	// CompletenessBonusMin is the scaled completeness at which it is added
	// to the score.
	CompletenessBonusMin = 4
	// CompletenessPenaltyBelow is the scaled completeness under which
	// IncompleteProfilePenalty applies.
	CompletenessPenaltyBelow = 2
	IncompleteProfilePenalty = 2

	MinScore = 0
	MaxScore = 100
)
