package importer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrUnknownSource is returned for an adapter id with no import_sources row.
var ErrUnknownSource = errors.New("unknown import source")

// Source is one row of the import_sources table.
type Source struct {
	AdapterID   string  `json:"adapter_id"`
	CorpusID    string  `json:"corpus_id"`
	Description string  `json:"description"`
	SourceURL   string  `json:"source_url"`
	DefaultURL  string  `json:"default_url"`
	License     string  `json:"license"`
	LastCheck   *int64  `json:"last_check,omitempty"`
	LastStatus  *int    `json:"last_status,omitempty"`
	LastError   *string `json:"last_error,omitempty"`
	LastImport  *int64  `json:"last_import,omitempty"`
	UpdatedAt   int64   `json:"updated_at"`
}

// Overridden reports whether the source URL was changed from the adapter's
// default.
func (s Source) Overridden() bool {
	return s.SourceURL != s.DefaultURL
}

// SourceDB manages the import_sources SQLite table.
type SourceDB struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSourceDB opens (or creates) the SQLite database at path and ensures the
// import_sources table exists.
func OpenSourceDB(path string) (*SourceDB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open source db: %w", err)
	}

	const ddl = `CREATE TABLE IF NOT EXISTS import_sources (
		adapter_id   TEXT PRIMARY KEY,
		corpus_id    TEXT NOT NULL,
		description  TEXT NOT NULL,
		source_url   TEXT NOT NULL,
		default_url  TEXT NOT NULL,
		license      TEXT NOT NULL DEFAULT '',
		last_check   INTEGER,
		last_status  INTEGER,
		last_error   TEXT,
		last_import  INTEGER,
		updated_at   INTEGER NOT NULL
	)`
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("create import_sources table: %w", err)
	}

	return &SourceDB{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *SourceDB) Close() error {
	return s.db.Close()
}

// Seed inserts a row for each adapter. Existing rows get the adapter's current
// description, license and default URL. A manually overridden source URL
// survives; one still on the old default follows the new default.
func (s *SourceDB) Seed(ctx context.Context, adapters []Adapter) error {
	const q = `INSERT INTO import_sources
		(adapter_id, corpus_id, description, source_url, default_url, license, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(adapter_id) DO UPDATE SET
			source_url = CASE WHEN import_sources.source_url = import_sources.default_url
				THEN excluded.default_url ELSE import_sources.source_url END,
			corpus_id = excluded.corpus_id,
			description = excluded.description,
			default_url = excluded.default_url,
			license = excluded.license`

	now := s.now().Unix()
	for _, a := range adapters {
		if _, err := s.db.ExecContext(ctx, q, a.ID(), a.CorpusID(), a.Description(), a.DefaultURL(), a.DefaultURL(), a.License(), now); err != nil {
			return fmt.Errorf("seed %s: %w", a.ID(), err)
		}
	}
	return nil
}

// GetURL returns the current source URL for a given adapter ID.
func (s *SourceDB) GetURL(ctx context.Context, adapterID string) (string, error) {
	var url string
	err := s.db.QueryRowContext(ctx, `SELECT source_url FROM import_sources WHERE adapter_id = ?`, adapterID).Scan(&url)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrUnknownSource, adapterID)
	}
	if err != nil {
		return "", fmt.Errorf("get url for %s: %w", adapterID, err)
	}
	return url, nil
}

// SetURL overrides the source URL for a given adapter. An empty url restores
// the adapter default.
func (s *SourceDB) SetURL(ctx context.Context, adapterID, url string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE import_sources SET source_url = COALESCE(NULLIF(?, ''), default_url), updated_at = ? WHERE adapter_id = ?`,
		url, s.now().Unix(), adapterID,
	)
	if err != nil {
		return fmt.Errorf("set url for %s: %w", adapterID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownSource, adapterID)
	}
	return nil
}

// UpdateCheck persists the result of an availability check.
func (s *SourceDB) UpdateCheck(ctx context.Context, adapterID string, status int, checkErr string) error {
	var errPtr *string
	if checkErr != "" {
		errPtr = &checkErr
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE import_sources SET last_check = ?, last_status = ?, last_error = ? WHERE adapter_id = ?`,
		s.now().Unix(), status, errPtr, adapterID,
	)
	if err != nil {
		return fmt.Errorf("update check for %s: %w", adapterID, err)
	}
	return nil
}

// MarkImported records a successful import of the adapter's corpus.
func (s *SourceDB) MarkImported(ctx context.Context, adapterID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE import_sources SET last_import = ? WHERE adapter_id = ?`, s.now().Unix(), adapterID)
	if err != nil {
		return fmt.Errorf("mark imported %s: %w", adapterID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownSource, adapterID)
	}
	return nil
}

// ListSources returns all rows from import_sources ordered by adapter_id.
func (s *SourceDB) ListSources(ctx context.Context) ([]Source, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT adapter_id, corpus_id, description, source_url,
		default_url, license, last_check, last_status, last_error, last_import, updated_at
		FROM import_sources ORDER BY adapter_id`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var src Source
		if err := rows.Scan(&src.AdapterID, &src.CorpusID, &src.Description, &src.SourceURL,
			&src.DefaultURL, &src.License, &src.LastCheck, &src.LastStatus, &src.LastError,
			&src.LastImport, &src.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}
