package institution

import (
	"strings"
	"testing"
)

func scenarioCorpus() []Entity {
	return []Entity{
		{Name: "Alabama", AltNames: []string{"Bama"}, Payload: "ala.png"},
		{Name: "Ohio State", AltNames: []string{"Ohio"}, Payload: "osu.png"},
	}
}

func TestResolve_ScenarioA(t *testing.T) {
	c := NewCorpus(nil, scenarioCorpus())

	tests := []struct {
		query string
		want  string
		ok    bool
	}{
		{"Bama", "ala.png", true},
		{"bama", "ala.png", true},
		{"Alabamma", "ala.png", true},
		{"Nonexistent University", "", false},
	}
	for _, tt := range tests {
		got, ok := c.Logo(tt.query)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Logo(%q) = %q, %v; want %q, %v", tt.query, got, ok, tt.want, tt.ok)
		}
	}

	m := c.Resolve("Alabamma")
	if m.Stage != StageFuzzyPrimary || m.Similarity != 0.875 {
		t.Errorf("Alabamma: stage %v sim %v, want fuzzy_primary 0.875", m.Stage, m.Similarity)
	}
}

func TestResolve_ScenarioD(t *testing.T) {
	var nilCorpus *Corpus
	if m := nilCorpus.Resolve("Bama"); m != nil {
		t.Errorf("nil corpus: %+v", m)
	}
	if m := NewCorpus(nil, nil).Resolve("Bama"); m != nil {
		t.Errorf("empty corpus: %+v", m)
	}
	if m := Resolve(nil, "Bama"); m != nil {
		t.Errorf("Resolve(nil): %+v", m)
	}

	c := NewCorpus(nil, scenarioCorpus())
	for _, q := range []string{"", "   ", "!!!", "\t\n"} {
		if m := c.Resolve(q); m != nil {
			t.Errorf("Resolve(%q) = %+v, want nil", q, m)
		}
	}
}

func stageCorpus() *Corpus {
	return NewCorpus(nil, []Entity{
		{Name: "University of Alabama", AltNames: []string{"Bama", "Crimson Tide Athletics"}},
		{Name: "Ohio State University", AltNames: []string{"The Ohio State"}},
		{Name: "Boise State", AltNames: []string{"Broncos"}},
	})
}

func TestResolve_Stages(t *testing.T) {
	c := stageCorpus()

	tests := []struct {
		query string
		name  string
		stage Stage
	}{
		{"University of Alabama", "University of Alabama", StageExactPrimary},
		{"BAMA", "University of Alabama", StageExactAlternative},
		{"of Alabama", "University of Alabama", StagePartialPrimary},
		{"crimson tide", "University of Alabama", StagePartialAlternative},
		{"Alabama State University", "University of Alabama", StageWordsPrimary},
		{"Tide Athletics Department", "University of Alabama", StageWordsAlternative},
		{"Boise Stat", "Boise State", StageFuzzyPrimary},
		{"Bronco", "Boise State", StageFuzzyAlternative},
		{"state", "Ohio State University", StagePartialPrimary},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			m := c.Resolve(tt.query)
			if m == nil {
				t.Fatalf("Resolve(%q) = nil", tt.query)
			}
			if m.Entity.Name != tt.name || m.Stage != tt.stage {
				t.Errorf("Resolve(%q) = %q/%v, want %q/%v", tt.query, m.Entity.Name, m.Stage, tt.name, tt.stage)
			}
		})
	}
}

func TestResolve_Guards(t *testing.T) {
	c := stageCorpus()

	// Too short for a partial match, nothing close enough for fuzzy.
	if m := c.Resolve("al"); m != nil {
		t.Errorf("short query matched %+v", m)
	}
	// One shared word is not enough for the word-overlap stage.
	if m := c.Resolve("state college"); m != nil {
		t.Errorf("single shared word matched %+v", m)
	}
}

func TestResolve_FuzzyTieKeepsFirst(t *testing.T) {
	c := NewCorpus(nil, []Entity{{Name: "abcde"}, {Name: "abcdf"}})
	m := c.Resolve("abcdx")
	if m == nil || m.Entity.Name != "abcde" || m.Similarity != 0.8 {
		t.Fatalf("tie: %+v, want abcde at 0.8", m)
	}
}

func TestResolve_FuzzyAlternativeOverride(t *testing.T) {
	entities := []Entity{
		{Name: "Kentucky"},
		{Name: "Elsewhere", AltNames: []string{"Kentuckey"}},
	}
	c := NewCorpus(nil, entities)

	// Equal similarity: the primary-name winner stays.
	m := c.Resolve("kentuckyy")
	if m == nil || m.Entity.Name != "Kentucky" || m.Stage != StageFuzzyPrimary {
		t.Errorf("equal similarity: %+v", m)
	}

	// Strictly higher on an alternative name overrides.
	m = c.Resolve("kentuckeyx")
	if m == nil || m.Entity.Name != "Elsewhere" || m.Stage != StageFuzzyAlternative {
		t.Errorf("higher alternative: %+v", m)
	}
}

func TestResolve_EveryEntityResolvesToItself(t *testing.T) {
	c := stageCorpus()
	for i, e := range c.Entities() {
		for _, q := range []string{e.Name, strings.ToUpper(e.Name)} {
			m := c.Resolve(q)
			if m == nil || m.Index != i || m.Stage != StageExactPrimary {
				t.Errorf("Resolve(%q) = %+v, want entity %d by exact primary", q, m, i)
			}
		}
	}
}

func TestResolve_Deterministic(t *testing.T) {
	c := stageCorpus()
	first := c.Resolve("Boise Stat")
	for i := 0; i < 20; i++ {
		m := c.Resolve("Boise Stat")
		if m.Index != first.Index || m.Stage != first.Stage || m.Similarity != first.Similarity {
			t.Fatalf("iteration %d: %+v differs from %+v", i, m, first)
		}
	}
}

func TestResolve_DoesNotMutateCorpus(t *testing.T) {
	c := stageCorpus()
	m := c.Resolve("Bama")
	m.Entity.Name = "mutated"
	m.Entity.AltNames[0] = "mutated"

	again := c.Resolve("Bama")
	if again == nil || again.Entity.Name != "University of Alabama" || again.Entity.AltNames[0] != "Bama" {
		t.Errorf("corpus mutated: %+v", again)
	}
}

func TestResolve_DuplicateNamesFirstWins(t *testing.T) {
	c := NewCorpus(nil, []Entity{
		{Name: "Saint Mary's College", Payload: "first.png"},
		{Name: "Saint Marys College", Payload: "second.png"},
	})
	if logo, _ := c.Logo("saint marys college"); logo != "first.png" {
		t.Errorf("logo = %q, want first.png", logo)
	}
}

func TestNameAndLogo(t *testing.T) {
	c := NewCorpus(nil, []Entity{{Name: "Boise State"}})

	name, ok := c.Name("boise state")
	if !ok || name != "Boise State" {
		t.Errorf("Name = %q, %v", name, ok)
	}
	if _, ok := c.Logo("boise state"); ok {
		t.Error("Logo should report false for an entity without payload")
	}
	if _, ok := c.Name("unknown place"); ok {
		t.Error("Name should report false on no match")
	}
}

func TestStageString(t *testing.T) {
	if StageWordsAlternative.String() != "words_alternative" {
		t.Errorf("String = %q", StageWordsAlternative.String())
	}
	if Stage(42).String() != "unknown" {
		t.Errorf("out of range = %q", Stage(42).String())
	}
	b, _ := StageFuzzyPrimary.MarshalText()
	if string(b) != "fuzzy_primary" {
		t.Errorf("MarshalText = %q", b)
	}
}

func TestStageUnmarshalText(t *testing.T) {
	for s := StageNone; s <= StageFuzzyAlternative; s++ {
		b, _ := s.MarshalText()
		var got Stage
		if err := got.UnmarshalText(b); err != nil || got != s {
			t.Errorf("UnmarshalText(%q) = %v, %v", b, got, err)
		}
	}
	var s Stage
	if err := s.UnmarshalText([]byte("sideways")); err == nil {
		t.Error("expected error for unknown stage")
	}
}
