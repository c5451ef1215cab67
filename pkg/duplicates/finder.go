// Package duplicates looks up existing athletes that may be the same person
// as a submitted record and returns them scored and ranked.
package duplicates

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hazyhaar/recruitmatch/pkg/fuzzy"
	"github.com/hazyhaar/recruitmatch/pkg/match"
	"github.com/hazyhaar/recruitmatch/pkg/store"
)

// Defaults for a Finder.
const (
	DefaultLimit         = 10
	DefaultMinConfidence = 30
	DefaultPoolLimit     = 200
)

// Lookup is the record store surface the finder queries.
type Lookup interface {
	Filter(ctx context.Context, f store.Filter, limit int) ([]match.Candidate, error)
}

// Option configures a Finder.
type Option func(*Finder)

// WithLimit caps the number of returned matches.
func WithLimit(n int) Option {
	return func(f *Finder) {
		if n > 0 {
			f.limit = n
		}
	}
}

// WithMinConfidence drops matches scoring below score.
func WithMinConfidence(score int) Option {
	return func(f *Finder) {
		if score >= match.MinScore && score <= match.MaxScore {
			f.minConfidence = score
		}
	}
}

// WithPoolLimit caps how many records are scored per request.
func WithPoolLimit(n int) Option {
	return func(f *Finder) {
		if n > 0 {
			f.poolLimit = n
		}
	}
}

// WithLogger sets the logger. Nil keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(f *Finder) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithClock sets the time source passed to the scorer.
func WithClock(now func() time.Time) Option {
	return func(f *Finder) {
		if now != nil {
			f.now = now
		}
	}
}

// Finder runs the lookup cascade against a record store.
type Finder struct {
	store         Lookup
	limit         int
	minConfidence int
	poolLimit     int
	logger        *slog.Logger
	now           func() time.Time
}

// New creates a Finder over s.
func New(s Lookup, opts ...Option) *Finder {
	f := &Finder{
		store:         s,
		limit:         DefaultLimit,
		minConfidence: DefaultMinConfidence,
		poolLimit:     DefaultPoolLimit,
		logger:        slog.Default(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// query is one lookup of the cascade. It runs only when every field it
// needs is present in the submission.
type query struct {
	matchType match.MatchType
	fields    []string
}

var cascade = []query{
	{match.EmailMatch, []string{store.FieldEmail}},
	{match.NameSchool, []string{store.FieldFirstName, store.FieldLastName, store.FieldSchoolID}},
	{match.NamePhone, []string{store.FieldFirstName, store.FieldLastName, store.FieldPhone}},
	{match.PartialNameSchool, []string{store.FieldLastName, store.FieldSchoolID}},
	{match.PartialNamePhone, []string{store.FieldLastName, store.FieldPhone}},
	{match.NamePartial, []string{store.FieldFirstName, store.FieldLastName}},
	{match.PhoneOnly, []string{store.FieldPhone}},
}

// submission maps filter fields to the submitted values.
func submission(crit match.Criteria) map[string]string {
	first, last := string(crit.FirstName), string(crit.LastName)
	if !crit.FirstName.Present() && !crit.LastName.Present() {
		if words := strings.Fields(fuzzy.Normalize(string(crit.FullName))); len(words) >= 2 {
			first, last = words[0], words[len(words)-1]
		}
	}
	return map[string]string{
		store.FieldEmail:     string(crit.Email),
		store.FieldFirstName: first,
		store.FieldLastName:  last,
		store.FieldSchoolID:  string(crit.SchoolID),
		store.FieldPhone:     string(crit.PhoneNumber),
	}
}

type found struct {
	candidate match.Candidate
	matchType match.MatchType
}

// Find returns the ranked likely duplicates of crit. Each record keeps the
// match type of the first lookup that returned it. Records without an id are
// keyed by their position and never merged.
func (f *Finder) Find(ctx context.Context, crit match.Criteria) ([]match.ScoredMatch, error) {
	values := submission(crit)

	var pool []found
	seen := make(map[string]struct{})
	for _, q := range cascade {
		if len(pool) >= f.poolLimit {
			break
		}
		filter := make(store.Filter, len(q.fields))
		for _, field := range q.fields {
			if strings.TrimSpace(values[field]) == "" {
				filter = nil
				break
			}
			filter[field] = values[field]
		}
		if filter == nil {
			continue
		}

		cands, err := f.store.Filter(ctx, filter, f.poolLimit)
		if err != nil {
			return nil, fmt.Errorf("lookup %s: %w", q.matchType, err)
		}
		for _, c := range cands {
			if len(pool) >= f.poolLimit {
				break
			}
			if id, ok := c.ID.Value(); ok {
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
			}
			pool = append(pool, found{candidate: c, matchType: q.matchType})
		}
		f.logger.Debug("duplicate lookup", "match_type", q.matchType, "hits", len(cands))
	}

	now := f.now()
	scored := make([]match.ScoredMatch, 0, len(pool))
	for _, p := range pool {
		scored = append(scored, match.Score(p.candidate, crit, p.matchType, now))
	}

	ranked := match.Rank(scored)
	out := ranked[:0]
	for _, m := range ranked {
		if m.ConfidenceScore < f.minConfidence {
			continue
		}
		out = append(out, m)
		if len(out) == f.limit {
			break
		}
	}
	f.logger.Info("duplicates found", "pool", len(pool), "returned", len(out))
	return out, nil
}
