package institution

import (
	"strings"

	"github.com/hazyhaar/recruitmatch/pkg/fuzzy"
)

// Cascade thresholds.
const (
	// MinPartialQueryLen is the shortest normalized query allowed to match
	// as a substring of a longer name.
	MinPartialQueryLen = 3
	// PartialLengthMargin is how much longer than the query a name must be
	// for a substring match to count.
	PartialLengthMargin = 2
	// MinSharedWords is the word-overlap threshold. One shared word is
	// never enough ("state", "university").
	MinSharedWords = 2
	// FuzzyThreshold is the minimum edit-distance similarity.
	FuzzyThreshold = 0.8
)

type query struct {
	text  string
	words map[string]struct{}
}

// strategy is one step of the cascade. The first step that matches wins.
type strategy struct {
	stage Stage
	run   func(c *Corpus, q query) (*Match, bool)
}

var cascade = []strategy{
	{StageExactPrimary, exactPrimary},
	{StageExactAlternative, exactAlternative},
	{StagePartialPrimary, partialPrimary},
	{StagePartialAlternative, partialAlternative},
	{StageWordsPrimary, wordsPrimary},
	{StageWordsAlternative, wordsAlternative},
	// Covers both fuzzy stages: the alternative-name pass may override the
	// primary-name winner, so they cannot short-circuit independently.
	{StageFuzzyPrimary, fuzzyBest},
}

// Resolve finds the canonical entity for query in entities, or nil.
// It is a convenience for callers holding a plain slice; long-lived callers
// should build a Corpus once and reuse it.
func Resolve(entities []Entity, query string) *Match {
	if len(entities) == 0 {
		return nil
	}
	return NewCorpus(nil, entities).Resolve(query)
}

// Resolve runs the cascade for query and returns the first match, or nil
// when the corpus is empty, the query is blank, or nothing clears the
// fuzzy threshold. It never mutates the corpus.
func (c *Corpus) Resolve(raw string) *Match {
	if c == nil || len(c.entities) == 0 {
		return nil
	}
	text := fuzzy.Normalize(raw)
	if text == "" {
		return nil
	}
	q := query{text: text, words: fuzzy.Words(text)}
	for _, s := range cascade {
		if m, ok := s.run(c, q); ok {
			m.Entity = c.entities[m.Index].clone()
			return m
		}
	}
	return nil
}

// Name returns the canonical name for raw.
func (c *Corpus) Name(raw string) (string, bool) {
	m := c.Resolve(raw)
	if m == nil {
		return "", false
	}
	return m.Entity.Name, true
}

// Logo returns the payload (logo URL) for raw. A matched entity without a
// payload reports false.
func (c *Corpus) Logo(raw string) (string, bool) {
	m := c.Resolve(raw)
	if m == nil || m.Entity.Payload == "" {
		return "", false
	}
	return m.Entity.Payload, true
}

func found(i int, stage Stage, sim float64) (*Match, bool) {
	return &Match{Index: i, Stage: stage, Similarity: sim}, true
}

func exactPrimary(c *Corpus, q query) (*Match, bool) {
	for i, n := range c.norm {
		if n.text == q.text {
			return found(i, StageExactPrimary, 1)
		}
	}
	return nil, false
}

func exactAlternative(c *Corpus, q query) (*Match, bool) {
	for i, n := range c.norm {
		for _, alt := range n.alts {
			if alt.text == q.text {
				return found(i, StageExactAlternative, 1)
			}
		}
	}
	return nil, false
}

// partial reports whether name contains q as a substring under the length guards.
func partial(name, q string) bool {
	return len(q) >= MinPartialQueryLen &&
		len(name) > len(q)+PartialLengthMargin &&
		strings.Contains(name, q)
}

func partialPrimary(c *Corpus, q query) (*Match, bool) {
	for i, n := range c.norm {
		if partial(n.text, q.text) {
			return found(i, StagePartialPrimary, fuzzy.Similarity(q.text, n.text))
		}
	}
	return nil, false
}

func partialAlternative(c *Corpus, q query) (*Match, bool) {
	for i, n := range c.norm {
		for _, alt := range n.alts {
			if partial(alt.text, q.text) {
				return found(i, StagePartialAlternative, fuzzy.Similarity(q.text, alt.text))
			}
		}
	}
	return nil, false
}

func wordsPrimary(c *Corpus, q query) (*Match, bool) {
	for i, n := range c.norm {
		if fuzzy.SharedWords(q.words, n.words) >= MinSharedWords {
			return found(i, StageWordsPrimary, fuzzy.Similarity(q.text, n.text))
		}
	}
	return nil, false
}

func wordsAlternative(c *Corpus, q query) (*Match, bool) {
	for i, n := range c.norm {
		for _, alt := range n.alts {
			if fuzzy.SharedWords(q.words, alt.words) >= MinSharedWords {
				return found(i, StageWordsAlternative, fuzzy.Similarity(q.text, alt.text))
			}
		}
	}
	return nil, false
}

// fuzzyBest scans every primary name, then every alternative name, keeping
// the highest similarity at or above FuzzyThreshold. Ties keep the entity
// seen first; an alternative name only wins when strictly better.
func fuzzyBest(c *Corpus, q query) (*Match, bool) {
	best, bestSim, stage := -1, 0.0, StageFuzzyPrimary
	for i, n := range c.norm {
		sim := fuzzy.Similarity(q.text, n.text)
		if sim >= FuzzyThreshold && sim > bestSim {
			best, bestSim = i, sim
		}
	}
	for i, n := range c.norm {
		for _, alt := range n.alts {
			sim := fuzzy.Similarity(q.text, alt.text)
			if sim >= FuzzyThreshold && sim > bestSim {
				best, bestSim, stage = i, sim, StageFuzzyAlternative
			}
		}
	}
	if best < 0 {
		return nil, false
	}
	return found(best, stage, bestSim)
}
