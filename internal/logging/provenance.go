package logging

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// createdAtLayout is fixed width so created_at sorts as text.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS forensics_runs (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id         TEXT NOT NULL UNIQUE,
	content_id     TEXT,
	mode           TEXT NOT NULL,
	n              INTEGER NOT NULL,
	summary_json   TEXT,
	diagnosis_json TEXT,
	samples_json   TEXT,
	error          TEXT,
	created_at     TEXT NOT NULL
);
`

// Migrate creates the forensics_runs table if needed.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrate runs: %w", err)
	}
	return nil
}

// #endregion schema

// #region record-run
// RecordRun writes a finished forensics run to the forensics_runs table.
func RecordRun(ctx context.Context, db *sql.DB, rec RunRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO forensics_runs (run_id, content_id, mode, n, summary_json, diagnosis_json, samples_json, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID,
		nullIfEmpty(rec.ContentID),
		rec.Mode,
		rec.N,
		nullIfEmpty(rec.SummaryJSON),
		nullIfEmpty(rec.DiagnosisJSON),
		nullIfEmpty(rec.SamplesJSON),
		nullIfEmpty(rec.Error),
		rec.CreatedAt.UTC().Format(createdAtLayout),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// #endregion record-run

// #region list-runs
// ListRuns returns the most recent recorded runs without their samples.
// A limit of zero or less returns every run.
func ListRuns(ctx context.Context, db *sql.DB, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.QueryContext(ctx,
		`SELECT run_id, content_id, mode, n, summary_json, diagnosis_json, error, created_at
		 FROM forensics_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		var contentID, summary, diagnosis, runErr sql.NullString
		var created string
		if err := rows.Scan(&rec.RunID, &contentID, &rec.Mode, &rec.N, &summary, &diagnosis, &runErr, &created); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rec.ContentID = contentID.String
		rec.SummaryJSON = summary.String
		rec.DiagnosisJSON = diagnosis.String
		rec.Error = runErr.String
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// #endregion list-runs

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
