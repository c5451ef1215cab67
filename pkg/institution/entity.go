// Package institution resolves free-text institution names to canonical
// entries of a reference dataset (name, known aliases, logo URL).
package institution

import (
	"fmt"
	"slices"
)

// Entity is one canonical institution of a reference corpus.
type Entity struct {
	Name     string            `json:"name"`
	AltNames []string          `json:"alternativeNames,omitempty"`
	Payload  string            `json:"payload,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (e Entity) clone() Entity {
	e.AltNames = slices.Clone(e.AltNames)
	if e.Metadata != nil {
		m := make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			m[k] = v
		}
		e.Metadata = m
	}
	return e
}

// Stage identifies which step of the resolution cascade produced a match.
type Stage int

const (
	StageNone Stage = iota
	StageExactPrimary
	StageExactAlternative
	StagePartialPrimary
	StagePartialAlternative
	StageWordsPrimary
	StageWordsAlternative
	StageFuzzyPrimary
	StageFuzzyAlternative
)

var stageNames = [...]string{
	StageNone:               "none",
	StageExactPrimary:       "exact_primary",
	StageExactAlternative:   "exact_alternative",
	StagePartialPrimary:     "partial_primary",
	StagePartialAlternative: "partial_alternative",
	StageWordsPrimary:       "words_primary",
	StageWordsAlternative:   "words_alternative",
	StageFuzzyPrimary:       "fuzzy_primary",
	StageFuzzyAlternative:   "fuzzy_alternative",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// MarshalText renders the stage by name in JSON.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a stage name.
func (s *Stage) UnmarshalText(b []byte) error {
	for i, name := range stageNames {
		if name == string(b) {
			*s = Stage(i)
			return nil
		}
	}
	return fmt.Errorf("unknown stage %q", b)
}

// Match is a resolved entity together with how it was found.
type Match struct {
	Entity     Entity  `json:"entity"`
	Stage      Stage   `json:"stage"`
	Similarity float64 `json:"similarity"`
	// Index is the entity's position in its corpus.
	Index int `json:"-"`
}
