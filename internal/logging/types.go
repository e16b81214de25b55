package logging

import "time"

// #region run-record
// RunRecord is a single row in the forensics_runs table.
type RunRecord struct {
	RunID         string
	ContentID     string
	Mode          string // "A" | "B" | "C"
	N             int
	SummaryJSON   string
	DiagnosisJSON string
	SamplesJSON   string
	Error         string
	CreatedAt     time.Time
}

// #endregion run-record
