package forensics

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/danielpatrickdp/quest-forensics/internal/generator"
)

// #region mode
// Mode selects which property of the generator a run measures.
type Mode string

const (
	// ModeVariability: n distinct seeds, same inputs; compares outputs.
	ModeVariability Mode = "A"
	// ModeSensitivity: one field perturbed per trial, seed fixed; compares prompts.
	ModeSensitivity Mode = "B"
	// ModeCache: n identical requests; measures cache hits.
	ModeCache Mode = "C"
)

// ParseMode accepts "A", "B" or "C".
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeVariability, ModeSensitivity, ModeCache:
		return Mode(s), nil
	}
	return "", fmt.Errorf("mode %q: %w", s, ErrInvalidMode)
}

// #endregion mode

// #region errors
var (
	ErrInvalidMode = errors.New("invalid forensics mode")
	ErrInvalidN    = errors.New("invalid trial count")
)

// #endregion errors

// #region config
// Thresholds are the floors used for diagnosis and strict checks, in percent.
type Thresholds struct {
	PromptDistinctPct       float64
	OutputDistinctPct       float64
	StylePassAfterRepairPct float64
}

// DefaultThresholds returns 40/25/90.
func DefaultThresholds() Thresholds {
	return Thresholds{
		PromptDistinctPct:       40,
		OutputDistinctPct:       25,
		StylePassAfterRepairPct: 90,
	}
}

// Config bounds a harness.
type Config struct {
	Workers     int
	RunDeadline time.Duration // zero means none
	MaxN        int
	Style       generator.StyleConfig
	Thresholds  Thresholds
}

// DefaultConfig returns a 4-worker pool with a 5 minute run deadline.
func DefaultConfig() Config {
	return Config{
		Workers:     4,
		RunDeadline: 5 * time.Minute,
		MaxN:        200,
		Style:       generator.DefaultStyleConfig(),
		Thresholds:  DefaultThresholds(),
	}
}

// #endregion config

// #region request
// Request is one harness invocation.
type Request struct {
	ContentID   string         `json:"questId,omitempty"`
	Mode        Mode           `json:"mode"`
	N           int            `json:"n"`
	BaseInputs  map[string]any `json:"baseInputs,omitempty"`
	ModelParams map[string]any `json:"modelParams,omitempty"`
	Debug       bool           `json:"debug,omitempty"`
	// Seed is the base seed. Empty means the run id, so repeated runs never
	// reuse each other's cache entries.
	Seed string `json:"seed,omitempty"`
	// PerturbField names the input varied in mode B.
	PerturbField string `json:"perturbField,omitempty"`
}

// #endregion request

// #region sample
// Sample is the raw record of one trial.
type Sample struct {
	Trial             int    `json:"trial"`
	SampleID          string `json:"sample_id"`
	Seed              string `json:"seed"`
	CacheKey          string `json:"cache_key,omitempty"`
	InputsFingerprint string `json:"inputs_fingerprint,omitempty"`
	OutputFingerprint string `json:"output_fingerprint,omitempty"`
	PromptFingerprint string `json:"prompt_fingerprint,omitempty"`
	CacheHit          bool   `json:"cache_hit"`
	SharedFlight      bool   `json:"shared_flight,omitempty"`

	PerturbedField string `json:"perturbed_field,omitempty"`
	PerturbedValue any    `json:"perturbed_value,omitempty"`

	StyleViolations       []string `json:"style_violations,omitempty"`
	StylePassBeforeRepair bool     `json:"style_pass_before_repair"`
	StylePassAfterRepair  bool     `json:"style_pass_after_repair"`

	GenerationFailed bool   `json:"generation_failed,omitempty"`
	Timeout          bool   `json:"timeout,omitempty"`
	Skipped          bool   `json:"skipped,omitempty"`
	Error            string `json:"error,omitempty"`
	ElapsedMS        int64  `json:"elapsed_ms"`

	// Populated only for debug runs.
	Text   string `json:"text,omitempty"`
	Prompt string `json:"prompt,omitempty"`
}

// #endregion sample

// #region summary
// Summary aggregates the samples of one run. Mode-specific fields are nil
// for other modes.
type Summary struct {
	N                        int     `json:"n"`
	Completed                int     `json:"completed"`
	GenerationFailures       int     `json:"generation_failures"`
	GenerationFailureRatePct float64 `json:"generation_failure_rate_pct"`
	Timeouts                 int     `json:"timeouts"`
	SkippedTrials            int     `json:"skipped_trials"`
	ElapsedMS                int64   `json:"elapsed_ms"`

	DistinctOutputFingerprints   *int     `json:"distinct_output_fingerprints,omitempty"`
	DistinctOutputFingerprintPct *float64 `json:"distinct_output_fingerprint_pct,omitempty"`
	StylePassRateBeforeRepairPct *float64 `json:"style_pass_rate_before_repair_pct,omitempty"`
	StylePassRateAfterRepairPct  *float64 `json:"style_pass_rate_after_repair_pct,omitempty"`
	DistinctPromptFingerprints   *int     `json:"distinct_prompt_fingerprints,omitempty"`
	DistinctPromptFingerprintPct *float64 `json:"distinct_prompt_fingerprint_pct,omitempty"`
	CacheHits                    *int     `json:"cache_hits,omitempty"`
	CacheMisses                  *int     `json:"cache_misses,omitempty"`
	SharedFlights                *int     `json:"shared_flights,omitempty"`
	CacheHitRatePct              *float64 `json:"cache_hit_rate_pct,omitempty"`
	ExpectedCacheHitRatePct      *float64 `json:"expected_cache_hit_rate_pct,omitempty"`
}

// #endregion summary

// #region run
// Run is the ephemeral result of one harness invocation. A run with Error
// set carries nothing else and serialises as {"error": "..."}.
type Run struct {
	RunID     string   `json:"run_id"`
	Mode      Mode     `json:"mode"`
	ContentID string   `json:"questId"`
	N         int      `json:"n"`
	Summary   *Summary `json:"summary"`
	Diagnosis []string `json:"diagnosis"`
	Samples   []Sample `json:"samples"`
	Error     string   `json:"error,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (r Run) MarshalJSON() ([]byte, error) {
	if r.Error != "" {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{r.Error})
	}
	type plain Run
	return json.Marshal(plain(r))
}

// Failed reports whether the run could not start.
func (r *Run) Failed() bool { return r.Error != "" }

// #endregion run
