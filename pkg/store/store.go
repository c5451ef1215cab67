// Package store persists athlete records in SQLite and serves the
// field-equality lookups the duplicate finder runs.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hazyhaar/recruitmatch/pkg/fuzzy"
	"github.com/hazyhaar/recruitmatch/pkg/match"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when no athlete has the requested id.
	ErrNotFound = errors.New("athlete not found")
	// ErrUnknownField is returned for a filter on an unindexed field.
	ErrUnknownField = errors.New("unknown filter field")
)

// Filterable fields.
const (
	FieldEmail     = "email"
	FieldFirstName = "first_name"
	FieldLastName  = "last_name"
	FieldSchoolID  = "school_id"
	FieldPhone     = "phone"
)

// lookup maps a filter field to its key column and the normalization that
// produced the stored key.
var lookup = map[string]struct {
	column string
	key    func(string) string
}{
	FieldEmail:     {"email_key", foldKey},
	FieldFirstName: {"first_key", fuzzy.Normalize},
	FieldLastName:  {"last_key", fuzzy.Normalize},
	FieldSchoolID:  {"school_key", foldKey},
	FieldPhone:     {"phone_key", fuzzy.Digits},
}

func foldKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Filter selects athletes whose fields equal the given values after the
// same normalization used at write time. A blank value matches nothing.
type Filter map[string]string

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source used for updatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store manages the athletes SQLite table.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the SQLite database at path and ensures the
// athletes table exists.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open athlete db: %w", err)
	}

	ddl := []string{
		`CREATE TABLE IF NOT EXISTS athletes (
			id          TEXT PRIMARY KEY,
			data        TEXT NOT NULL,
			email_key   TEXT NOT NULL DEFAULT '',
			first_key   TEXT NOT NULL DEFAULT '',
			last_key    TEXT NOT NULL DEFAULT '',
			school_key  TEXT NOT NULL DEFAULT '',
			phone_key   TEXT NOT NULL DEFAULT '',
			created_at  INTEGER NOT NULL,
			updated_at  INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS athletes_email ON athletes(email_key)`,
		`CREATE INDEX IF NOT EXISTS athletes_name ON athletes(last_key, first_key)`,
		`CREATE INDEX IF NOT EXISTS athletes_school ON athletes(school_key)`,
		`CREATE INDEX IF NOT EXISTS athletes_phone ON athletes(phone_key)`,
	}
	for _, stmt := range ddl {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create athletes table: %w", err)
		}
	}

	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// stamp returns the current time at the precision records are stored with.
func (s *Store) stamp() time.Time {
	return s.now().UTC().Truncate(time.Second)
}

type keys struct {
	email, first, last, school, phone string
}

func keysOf(c match.Candidate) keys {
	first, last := string(c.FirstName), string(c.LastName)
	if !c.FirstName.Present() && !c.LastName.Present() {
		// Records that only carry a full name are indexed on its first and
		// last words.
		if words := strings.Fields(fuzzy.Normalize(string(c.FullName))); len(words) >= 2 {
			first, last = words[0], words[len(words)-1]
		}
	}
	return keys{
		email:  foldKey(string(c.EmailAddress)),
		first:  fuzzy.Normalize(first),
		last:   fuzzy.Normalize(last),
		school: foldKey(string(c.SchoolID)),
		phone:  fuzzy.Digits(string(c.PhoneNumber)),
	}
}

// Create stores a new athlete. A blank ID is replaced by a random UUID and a
// missing updatedAt by the current time. The stored record is returned.
func (s *Store) Create(ctx context.Context, c match.Candidate) (match.Candidate, error) {
	if !c.ID.Present() {
		c.ID = match.Text(uuid.NewString())
	}
	now := s.stamp()
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = match.At(now)
	}
	data, err := json.Marshal(c)
	if err != nil {
		return match.Candidate{}, fmt.Errorf("encode athlete: %w", err)
	}
	k := keysOf(c)
	_, err = s.db.ExecContext(ctx, `INSERT INTO athletes
		(id, data, email_key, first_key, last_key, school_key, phone_key, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(c.ID), string(data), k.email, k.first, k.last, k.school, k.phone,
		now.UnixMilli(), c.UpdatedAt.UnixMilli())
	if err != nil {
		return match.Candidate{}, fmt.Errorf("insert athlete %s: %w", c.ID, err)
	}
	return c, nil
}

// Get returns the athlete with the given id.
func (s *Store) Get(ctx context.Context, id string) (match.Candidate, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM athletes WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return match.Candidate{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return match.Candidate{}, fmt.Errorf("get athlete %s: %w", id, err)
	}
	return decode(data)
}

// Update replaces a stored athlete and stamps updatedAt with the current time.
func (s *Store) Update(ctx context.Context, c match.Candidate) (match.Candidate, error) {
	id, ok := c.ID.Value()
	if !ok {
		return match.Candidate{}, fmt.Errorf("%w: blank id", ErrNotFound)
	}
	c.ID = match.Text(id)
	c.UpdatedAt = match.At(s.stamp())
	data, err := json.Marshal(c)
	if err != nil {
		return match.Candidate{}, fmt.Errorf("encode athlete: %w", err)
	}
	k := keysOf(c)
	res, err := s.db.ExecContext(ctx, `UPDATE athletes SET data = ?, email_key = ?, first_key = ?,
		last_key = ?, school_key = ?, phone_key = ?, updated_at = ? WHERE id = ?`,
		string(data), k.email, k.first, k.last, k.school, k.phone, c.UpdatedAt.UnixMilli(), id)
	if err != nil {
		return match.Candidate{}, fmt.Errorf("update athlete %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return match.Candidate{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c, nil
}

// Delete removes the athlete with the given id.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM athletes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete athlete %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// List returns up to limit athletes in insertion order. limit <= 0 means no
// limit.
func (s *Store) List(ctx context.Context, limit int) ([]match.Candidate, error) {
	return s.Filter(ctx, nil, limit)
}

// Filter returns up to limit athletes matching every field of f, in
// insertion order. limit <= 0 means no limit.
func (s *Store) Filter(ctx context.Context, f Filter, limit int) ([]match.Candidate, error) {
	fields := make([]string, 0, len(f))
	for field := range f {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var (
		where []string
		args  []any
		blank bool
	)
	for _, field := range fields {
		l, ok := lookup[field]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownField, field)
		}
		key := l.key(f[field])
		if key == "" {
			blank = true
		}
		where = append(where, l.column+" = ?")
		args = append(args, key)
	}
	if blank {
		return nil, nil
	}

	q := `SELECT data FROM athletes`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY rowid LIMIT ?`
	if limit <= 0 {
		limit = -1
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("filter athletes: %w", err)
	}
	defer rows.Close()

	var out []match.Candidate
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan athlete: %w", err)
		}
		c, err := decode(data)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Count returns the number of stored athletes.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM athletes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count athletes: %w", err)
	}
	return n, nil
}

func decode(data string) (match.Candidate, error) {
	var c match.Candidate
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return match.Candidate{}, fmt.Errorf("decode athlete: %w", err)
	}
	return c, nil
}
