package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// createdAtLayout is fixed width so created_at sorts as text.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS generation_cache (
	cache_key          TEXT PRIMARY KEY,
	content_id         TEXT NOT NULL,
	text               TEXT NOT NULL,
	output_fingerprint TEXT NOT NULL,
	prompt             TEXT,
	prompt_fingerprint TEXT NOT NULL,
	created_at         TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_generation_cache_created ON generation_cache(created_at);
`

// #endregion schema

// #region sqlite-store
// SQLiteStore persists generations in SQLite.
type SQLiteStore struct {
	db    *sql.DB
	owned bool
}

// OpenSQLiteStore opens (or creates) a database file and migrates it.
func OpenSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	s, err := NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// NewSQLiteStore migrates an existing handle. The caller keeps ownership.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate cache: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database if this store opened it.
func (s *SQLiteStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT cache_key, content_id, text, output_fingerprint, prompt, prompt_fingerprint, created_at
		 FROM generation_cache WHERE cache_key = ?`, key)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("get %s: %w", key, err)
	}
	return e, true, nil
}

// Put implements Store. An existing key is overwritten.
func (s *SQLiteStore) Put(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO generation_cache (cache_key, content_id, text, output_fingerprint, prompt, prompt_fingerprint, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET
		   content_id = excluded.content_id,
		   text = excluded.text,
		   output_fingerprint = excluded.output_fingerprint,
		   prompt = excluded.prompt,
		   prompt_fingerprint = excluded.prompt_fingerprint,
		   created_at = excluded.created_at`,
		e.Key, e.ContentID, e.Text, e.OutputFingerprint, e.Prompt, e.PromptFingerprint,
		e.CreatedAt.UTC().Format(createdAtLayout),
	)
	if err != nil {
		return fmt.Errorf("put %s: %w", e.Key, err)
	}
	return nil
}

// List implements Store, newest first.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT cache_key, content_id, text, output_fingerprint, prompt, prompt_fingerprint, created_at
		 FROM generation_cache ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list cache: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (Entry, error) {
	var e Entry
	var prompt sql.NullString
	var created string
	if err := sc.Scan(&e.Key, &e.ContentID, &e.Text, &e.OutputFingerprint, &prompt, &e.PromptFingerprint, &created); err != nil {
		return Entry{}, err
	}
	if prompt.Valid {
		e.Prompt = prompt.String
	}
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return e, nil
}

// #endregion sqlite-store
