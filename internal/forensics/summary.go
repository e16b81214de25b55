package forensics

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/danielpatrickdp/quest-forensics/internal/logging"
)

// #region summarize
// Summarize aggregates samples for mode.
//
// Distinct-fingerprint percentages measure novelty beyond the first
// completed trial: (distinct-1)/(completed-1). A generator that ignores its
// seed or inputs scores 0, one that never repeats scores 100.
func Summarize(mode Mode, samples []Sample) Summary {
	s := Summary{N: len(samples)}
	outputs := map[string]struct{}{}
	prompts := map[string]struct{}{}
	var styleBefore, styleAfter, hits, shared int

	for _, sm := range samples {
		if sm.GenerationFailed {
			s.GenerationFailures++
			if sm.Timeout {
				s.Timeouts++
			}
			if sm.Skipped {
				s.SkippedTrials++
			}
			continue
		}
		s.Completed++
		outputs[sm.OutputFingerprint] = struct{}{}
		prompts[sm.PromptFingerprint] = struct{}{}
		if sm.StylePassBeforeRepair {
			styleBefore++
		}
		if sm.StylePassAfterRepair {
			styleAfter++
		}
		if sm.CacheHit {
			hits++
		}
		if sm.SharedFlight {
			shared++
		}
	}
	s.GenerationFailureRatePct = pct(s.GenerationFailures, s.N)

	switch mode {
	case ModeVariability:
		s.DistinctOutputFingerprints = intPtr(len(outputs))
		s.DistinctOutputFingerprintPct = floatPtr(noveltyPct(len(outputs), s.Completed))
		s.StylePassRateBeforeRepairPct = floatPtr(pct(styleBefore, s.Completed))
		s.StylePassRateAfterRepairPct = floatPtr(pct(styleAfter, s.Completed))
	case ModeSensitivity:
		s.DistinctPromptFingerprints = intPtr(len(prompts))
		s.DistinctPromptFingerprintPct = floatPtr(noveltyPct(len(prompts), s.Completed))
	case ModeCache:
		s.CacheHits = intPtr(hits)
		s.CacheMisses = intPtr(s.N - hits)
		s.SharedFlights = intPtr(shared)
		s.CacheHitRatePct = floatPtr(pct(hits, s.N))
		s.ExpectedCacheHitRatePct = floatPtr(expectedHitRate(s.N))
	}
	return s
}

func pct(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return round2(100 * float64(part) / float64(whole))
}

func noveltyPct(distinct, completed int) float64 {
	if completed <= 1 || distinct <= 1 {
		return 0
	}
	return pct(distinct-1, completed-1)
}

// expectedHitRate is (n-1)/n: only the first identical request can miss.
func expectedHitRate(n int) float64 {
	if n <= 0 {
		return 0
	}
	return pct(n-1, n)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

// #endregion summarize

// #region diagnose
// Diagnose turns a summary into ordered findings.
func Diagnose(mode Mode, s Summary, th Thresholds) []string {
	var out []string
	if s.GenerationFailures > 0 {
		out = append(out, fmt.Sprintf("%d of %d generations failed (%.2f%%, %d timeouts, %d skipped at deadline)",
			s.GenerationFailures, s.N, s.GenerationFailureRatePct, s.Timeouts, s.SkippedTrials))
	}
	if s.Completed == 0 {
		return append(out, "no trial completed; nothing to measure")
	}

	switch mode {
	case ModeVariability:
		d := *s.DistinctOutputFingerprintPct
		if d < th.OutputDistinctPct {
			out = append(out, fmt.Sprintf("outputs barely vary across seeds: %.2f%% distinct (floor %.0f%%); check the seed reaches the generator", d, th.OutputDistinctPct))
		} else {
			out = append(out, fmt.Sprintf("output variability ok: %.2f%% distinct across %d seeds", d, s.Completed))
		}
		before, after := *s.StylePassRateBeforeRepairPct, *s.StylePassRateAfterRepairPct
		if after < th.StylePassAfterRepairPct {
			out = append(out, fmt.Sprintf("style pass rate after repair %.2f%% below floor %.0f%%", after, th.StylePassAfterRepairPct))
		}
		if after > before {
			out = append(out, fmt.Sprintf("repair pass lifted style pass rate from %.2f%% to %.2f%%", before, after))
		}
	case ModeSensitivity:
		d := *s.DistinctPromptFingerprintPct
		if d < th.PromptDistinctPct {
			out = append(out, fmt.Sprintf("prompt ignores input changes: %.2f%% distinct prompts (floor %.0f%%)", d, th.PromptDistinctPct))
		} else {
			out = append(out, fmt.Sprintf("prompt sensitivity ok: %.2f%% distinct prompts", d))
		}
	case ModeCache:
		hit, want := *s.CacheHitRatePct, *s.ExpectedCacheHitRatePct
		if hit < want {
			out = append(out, fmt.Sprintf("cache hit rate %.2f%% below expected %.2f%%; %d misses for identical requests", hit, want, *s.CacheMisses))
		} else {
			out = append(out, fmt.Sprintf("cache ok: %.2f%% hits (expected %.2f%%)", hit, want))
		}
		if *s.SharedFlights > 0 {
			out = append(out, fmt.Sprintf("%d requests joined an in-flight generation", *s.SharedFlights))
		}
	}
	return out
}

// #endregion diagnose

// #region strict
// CheckStrict lists threshold violations for the metrics run's mode reports.
func CheckStrict(run *Run, th Thresholds) []string {
	if run == nil || run.Failed() || run.Summary == nil {
		return nil
	}
	s := run.Summary
	var v []string
	if p := s.DistinctPromptFingerprintPct; p != nil && *p < th.PromptDistinctPct {
		v = append(v, fmt.Sprintf("distinct_prompt_fingerprint_pct %.2f < %.0f", *p, th.PromptDistinctPct))
	}
	if p := s.DistinctOutputFingerprintPct; p != nil && *p < th.OutputDistinctPct {
		v = append(v, fmt.Sprintf("distinct_output_fingerprint_pct %.2f < %.0f", *p, th.OutputDistinctPct))
	}
	if p := s.StylePassRateAfterRepairPct; p != nil && *p < th.StylePassAfterRepairPct {
		v = append(v, fmt.Sprintf("style_pass_rate_after_repair_pct %.2f < %.0f", *p, th.StylePassAfterRepairPct))
	}
	if p, want := s.CacheHitRatePct, s.ExpectedCacheHitRatePct; p != nil && want != nil && *p < *want {
		v = append(v, fmt.Sprintf("cache_hit_rate_pct %.2f < %.2f", *p, *want))
	}
	return v
}

// #endregion strict

// #region record
// Record converts run into a provenance row for callers that persist runs.
func (r *Run) Record() (logging.RunRecord, error) {
	rec := logging.RunRecord{
		RunID:     r.RunID,
		ContentID: r.ContentID,
		Mode:      string(r.Mode),
		N:         r.N,
		Error:     r.Error,
	}
	if r.Failed() {
		return rec, nil
	}
	for dst, v := range map[*string]any{
		&rec.SummaryJSON:   r.Summary,
		&rec.DiagnosisJSON: r.Diagnosis,
		&rec.SamplesJSON:   r.Samples,
	} {
		b, err := json.Marshal(v)
		if err != nil {
			return logging.RunRecord{}, fmt.Errorf("encode run %s: %w", r.RunID, err)
		}
		*dst = string(b)
	}
	return rec, nil
}

// #endregion record
