package content

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/quest-forensics/internal/geometry"
	"github.com/danielpatrickdp/quest-forensics/internal/rules"
)

// createdAtLayout is fixed width so created_at sorts as text.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS quests (
	quest_id     TEXT PRIMARY KEY,
	hexagram_id  TEXT NOT NULL,
	state        TEXT NOT NULL,
	inputs_json  TEXT NOT NULL,
	eligible     INTEGER NOT NULL DEFAULT 1,
	created_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_quests_eligible ON quests(eligible, created_at);
`

// #endregion schema

// #region store-struct
// Store manages quests in SQLite.
type Store struct {
	db    *sql.DB
	owned bool
	bias  geometry.CubeBiasProvider
	rules *rules.Registry
	now   func() time.Time
}

// Option customises a Store.
type Option func(*Store)

// WithBiasProvider sets the provider consulted when assigning geometry.
func WithBiasProvider(p geometry.CubeBiasProvider) Option {
	return func(s *Store) { s.bias = p }
}

// WithRules sets the registry used to validate quest inputs.
func WithRules(r *rules.Registry) Option {
	return func(s *Store) { s.rules = r }
}

// #endregion store-struct

// #region constructor
// OpenStore opens a SQLite database and runs migrations.
func OpenStore(dbPath string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	s, err := NewStore(db, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// NewStore migrates an existing handle. The caller keeps ownership.
func NewStore(db *sql.DB, opts ...Option) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate quests: %w", err)
	}
	s := &Store{
		db:    db,
		bias:  geometry.NoBias{},
		rules: rules.Default(),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database if this store opened it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying handle for packages sharing the file.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion constructor

// #region create
// Create assigns a geometry to a new quest, validates its inputs against the
// geometry's rule and stores it.
func (s *Store) Create(ctx context.Context, nq NewQuest) (Quest, error) {
	if nq.HexagramID == "" {
		return Quest{}, fmt.Errorf("create quest: empty hexagram id")
	}
	req := geometry.AssignRequest{ContentID: nq.HexagramID}
	if nq.Seed != "" {
		req.Seed = nq.Seed
	}
	g := geometry.AssignWithProvider(s.bias, req)

	rule, err := s.rules.Get(g.State)
	if err != nil {
		return Quest{}, fmt.Errorf("create quest: %w", err)
	}
	if err := rule.Validate(nq.Inputs); err != nil {
		return Quest{}, fmt.Errorf("create quest: %w", err)
	}

	q := Quest{
		ID:         uuid.New().String(),
		HexagramID: nq.HexagramID,
		Geometry:   g,
		Inputs:     nq.Inputs,
		Eligible:   true,
		CreatedAt:  s.now(),
	}
	if err := s.insert(ctx, q); err != nil {
		return Quest{}, err
	}
	return q, nil
}

// Import stores a quest whose geometry was assigned elsewhere.
func (s *Store) Import(ctx context.Context, q Quest) error {
	if _, err := geometry.ParseState(q.Geometry.State); err != nil {
		return fmt.Errorf("import quest %s: %w", q.ID, err)
	}
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = s.now()
	}
	return s.insert(ctx, q)
}

func (s *Store) insert(ctx context.Context, q Quest) error {
	inputs := q.Inputs
	if inputs == nil {
		inputs = map[string]any{}
	}
	inputsJSON, err := json.Marshal(inputs)
	if err != nil {
		return fmt.Errorf("marshal inputs: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO quests (quest_id, hexagram_id, state, inputs_json, eligible, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		q.ID, q.HexagramID, q.Geometry.State, string(inputsJSON), boolInt(q.Eligible),
		q.CreatedAt.UTC().Format(createdAtLayout),
	)
	if err != nil {
		return fmt.Errorf("insert quest: %w", err)
	}
	return nil
}

// #endregion create

// #region resolve
// Resolve implements Source.
func (s *Store) Resolve(ctx context.Context, id string) (Quest, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT quest_id, hexagram_id, state, inputs_json, eligible, created_at
		 FROM quests WHERE quest_id = ?`, id)
	q, err := scanQuest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Quest{}, fmt.Errorf("resolve %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Quest{}, fmt.Errorf("resolve %s: %w", id, err)
	}
	if !q.Eligible {
		return Quest{}, fmt.Errorf("resolve %s: %w", id, ErrNoEligibleContent)
	}
	return q, nil
}

// FirstEligible implements Source: the oldest eligible quest.
func (s *Store) FirstEligible(ctx context.Context) (Quest, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT quest_id, hexagram_id, state, inputs_json, eligible, created_at
		 FROM quests WHERE eligible = 1 ORDER BY created_at ASC LIMIT 1`)
	q, err := scanQuest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Quest{}, ErrNoEligibleContent
	}
	if err != nil {
		return Quest{}, fmt.Errorf("first eligible: %w", err)
	}
	return q, nil
}

// SetEligible toggles whether a quest may be picked by FirstEligible.
func (s *Store) SetEligible(ctx context.Context, id string, eligible bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE quests SET eligible = ? WHERE quest_id = ?`, boolInt(eligible), id)
	if err != nil {
		return fmt.Errorf("set eligible: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("set eligible %s: %w", id, ErrNotFound)
	}
	return nil
}

// List returns the most recent quests.
func (s *Store) List(ctx context.Context, limit int) ([]Quest, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT quest_id, hexagram_id, state, inputs_json, eligible, created_at
		 FROM quests ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list quests: %w", err)
	}
	defer rows.Close()

	var out []Quest
	for rows.Next() {
		q, err := scanQuest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// #endregion resolve

// #region helpers
type scanner interface {
	Scan(dest ...any) error
}

func scanQuest(sc scanner) (Quest, error) {
	var q Quest
	var state, inputsJSON, created string
	var eligible int
	if err := sc.Scan(&q.ID, &q.HexagramID, &state, &inputsJSON, &eligible, &created); err != nil {
		return Quest{}, err
	}
	g, err := geometry.ParseState(state)
	if err != nil {
		return Quest{}, err
	}
	q.Geometry = g
	if err := json.Unmarshal([]byte(inputsJSON), &q.Inputs); err != nil {
		return Quest{}, fmt.Errorf("unmarshal inputs: %w", err)
	}
	q.Eligible = eligible != 0
	q.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return q, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// #endregion helpers
