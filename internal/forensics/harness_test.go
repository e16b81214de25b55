package forensics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/danielpatrickdp/quest-forensics/internal/cache"
	"github.com/danielpatrickdp/quest-forensics/internal/content"
	"github.com/danielpatrickdp/quest-forensics/internal/generator"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func quests() *content.StaticSource {
	return content.NewStaticSource(
		content.Quest{ID: "draft", Inputs: map[string]any{"place": "attic"}},
		content.Quest{ID: "q1", Eligible: true, Inputs: map[string]any{"place": "park", "minutes": float64(10)}},
	)
}

func harness(gen generator.Generator, cfg Config) *Harness {
	p := cache.NewPipeline(cache.NewMemoryStore(), gen, cache.DefaultPipelineConfig(), nil)
	return NewHarness(p, quests(), cfg, nil)
}

func fixed(text, prompt string) generator.Generator {
	return generator.Func(func(context.Context, generator.Request) (generator.Result, error) {
		return generator.Result{Text: text, Prompt: prompt}, nil
	})
}

func counter() generator.Generator {
	var n atomic.Int64
	return generator.Func(func(context.Context, generator.Request) (generator.Result, error) {
		return generator.Result{Text: fmt.Sprintf("Output number %d.", n.Add(1)), Prompt: "p"}, nil
	})
}

func TestRun_ModeCacheHitRate(t *testing.T) {
	h := harness(counter(), DefaultConfig())

	run, err := h.Run(context.Background(), Request{ContentID: "q1", Mode: ModeCache, N: 5})
	require.NoError(t, err)
	require.NotNil(t, run.Summary)

	s := run.Summary
	assert.Equal(t, 80.0, *s.CacheHitRatePct)
	assert.Equal(t, 80.0, *s.ExpectedCacheHitRatePct)
	assert.Equal(t, 4, *s.CacheHits)
	assert.Equal(t, 1, *s.CacheMisses)
	assert.Nil(t, s.DistinctOutputFingerprintPct)
	assert.Empty(t, CheckStrict(run, h.Thresholds()))

	keys := map[string]bool{}
	for _, sm := range run.Samples {
		keys[sm.CacheKey] = true
	}
	assert.Len(t, keys, 1)
}

func TestRun_ModeVariability(t *testing.T) {
	cases := []struct {
		name string
		gen  generator.Generator
		want float64
	}{
		{"fixed output", fixed("Always the same.", "p"), 0},
		{"counter output", counter(), 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			run, err := harness(tc.gen, DefaultConfig()).Run(context.Background(),
				Request{ContentID: "q1", Mode: ModeVariability, N: 6, Seed: "base"})
			require.NoError(t, err)
			assert.Equal(t, tc.want, *run.Summary.DistinctOutputFingerprintPct)
			assert.Equal(t, 100.0, *run.Summary.StylePassRateAfterRepairPct)

			seeds := map[string]bool{}
			for _, sm := range run.Samples {
				seeds[sm.Seed] = true
			}
			assert.Len(t, seeds, 6)
			assert.True(t, seeds["base-0"])
		})
	}
}

func TestRun_ModeVariabilityDiagnosesConstantOutput(t *testing.T) {
	h := harness(fixed("Always the same.", "p"), DefaultConfig())
	run, err := h.Run(context.Background(), Request{ContentID: "q1", Mode: ModeVariability, N: 4})
	require.NoError(t, err)

	require.NotEmpty(t, run.Diagnosis)
	assert.Contains(t, run.Diagnosis[0], "barely vary")
	assert.Len(t, CheckStrict(run, h.Thresholds()), 1)
}

// Mode B holds the seed fixed, so only the perturbed input can move the prompt.
func TestRun_ModeSensitivity(t *testing.T) {
	t.Run("prompt ignores inputs", func(t *testing.T) {
		run, err := harness(fixed("Same.", "static prompt"), DefaultConfig()).Run(context.Background(),
			Request{ContentID: "q1", Mode: ModeSensitivity, N: 5})
		require.NoError(t, err)
		assert.Equal(t, 0.0, *run.Summary.DistinctPromptFingerprintPct)
		assert.Contains(t, strings.Join(run.Diagnosis, "\n"), "ignores input changes")
	})

	t.Run("template prompt", func(t *testing.T) {
		run, err := harness(generator.Template{}, DefaultConfig()).Run(context.Background(),
			Request{ContentID: "q1", Mode: ModeSensitivity, N: 5, Seed: "s"})
		require.NoError(t, err)
		assert.Equal(t, 100.0, *run.Summary.DistinctPromptFingerprintPct)
		assert.Equal(t, 5, *run.Summary.DistinctPromptFingerprints)

		for _, sm := range run.Samples {
			assert.Equal(t, "s", sm.Seed)
			assert.Equal(t, "minutes", sm.PerturbedField)
		}
	})
}

func TestRun_ModeSensitivityNamedField(t *testing.T) {
	run, err := harness(generator.Template{}, DefaultConfig()).Run(context.Background(),
		Request{ContentID: "q1", Mode: ModeSensitivity, N: 3, PerturbField: "place"})
	require.NoError(t, err)
	assert.Equal(t, "park", run.Samples[0].PerturbedValue)
	assert.Equal(t, "park (variant 2)", run.Samples[2].PerturbedValue)
}

func TestRun_UnresolvableContent(t *testing.T) {
	h := harness(counter(), DefaultConfig())

	run, err := h.Run(context.Background(), Request{ContentID: "missing", Mode: ModeCache, N: 2})
	require.NoError(t, err)
	require.True(t, run.Failed())
	b, err := json.Marshal(run)
	require.NoError(t, err)
	assert.JSONEq(t, fmt.Sprintf(`{"error":%q}`, run.Error), string(b))

	empty := cache.NewPipeline(cache.NewMemoryStore(), counter(), cache.DefaultPipelineConfig(), nil)
	run, err = NewHarness(empty, content.NewStaticSource(), DefaultConfig(), nil).
		Run(context.Background(), Request{Mode: ModeCache, N: 2})
	require.NoError(t, err)
	assert.Equal(t, content.ErrNoEligibleContent.Error(), run.Error)

	run, err = h.Run(context.Background(), Request{ContentID: "draft", Mode: ModeCache, N: 2})
	require.NoError(t, err)
	assert.Contains(t, run.Error, content.ErrNoEligibleContent.Error())
	assert.Empty(t, run.Samples)
}

func TestRun_FirstEligibleWhenIDOmitted(t *testing.T) {
	run, err := harness(counter(), DefaultConfig()).Run(context.Background(), Request{Mode: ModeCache, N: 1})
	require.NoError(t, err)
	assert.Equal(t, "q1", run.ContentID)
}

func TestRun_InvalidRequest(t *testing.T) {
	h := harness(counter(), DefaultConfig())

	_, err := h.Run(context.Background(), Request{ContentID: "q1", Mode: "D", N: 2})
	assert.ErrorIs(t, err, ErrInvalidMode)

	_, err = h.Run(context.Background(), Request{ContentID: "q1", Mode: ModeCache, N: 0})
	assert.ErrorIs(t, err, ErrInvalidN)

	_, err = h.Run(context.Background(), Request{ContentID: "q1", Mode: ModeCache, N: 201})
	assert.ErrorIs(t, err, ErrInvalidN)
}

func TestRun_GenerationFailureDoesNotAbort(t *testing.T) {
	gen := generator.Func(func(_ context.Context, req generator.Request) (generator.Result, error) {
		if strings.HasSuffix(req.Seed, "-2") {
			return generator.Result{}, errors.New("model unavailable")
		}
		return generator.Result{Text: "Seed " + req.Seed + ".", Prompt: "p"}, nil
	})
	run, err := harness(gen, DefaultConfig()).Run(context.Background(),
		Request{ContentID: "q1", Mode: ModeVariability, N: 5, Seed: "x"})
	require.NoError(t, err)

	s := run.Summary
	assert.Equal(t, 1, s.GenerationFailures)
	assert.Equal(t, 4, s.Completed)
	assert.Equal(t, 20.0, s.GenerationFailureRatePct)
	assert.True(t, run.Samples[2].GenerationFailed)
	assert.Contains(t, run.Samples[2].Error, "model unavailable")
	assert.Equal(t, 100.0, *s.DistinctOutputFingerprintPct)
}

func TestRun_DeadlineSkipsRemainingTrials(t *testing.T) {
	slow := generator.Func(func(ctx context.Context, _ generator.Request) (generator.Result, error) {
		select {
		case <-time.After(time.Second):
			return generator.Result{Text: "Late.", Prompt: "p"}, nil
		case <-ctx.Done():
			return generator.Result{}, ctx.Err()
		}
	})
	cfg := DefaultConfig()
	cfg.Workers = 1
	cfg.RunDeadline = 30 * time.Millisecond

	run, err := harness(slow, cfg).Run(context.Background(),
		Request{ContentID: "q1", Mode: ModeVariability, N: 3})
	require.NoError(t, err)

	s := run.Summary
	assert.Equal(t, 3, s.GenerationFailures)
	assert.Equal(t, 1, s.Timeouts)
	assert.Equal(t, 2, s.SkippedTrials)
	assert.True(t, run.Samples[0].Timeout)
	assert.Equal(t, "run deadline exceeded", run.Samples[2].Error)
	assert.Equal(t, []string{
		"3 of 3 generations failed (100.00%, 1 timeouts, 2 skipped at deadline)",
		"no trial completed; nothing to measure",
	}, run.Diagnosis)
}

func TestRun_DebugCarriesTextAndPrompt(t *testing.T) {
	run, err := harness(fixed("Hello there.", "the prompt"), DefaultConfig()).Run(context.Background(),
		Request{ContentID: "q1", Mode: ModeCache, N: 2, Debug: true})
	require.NoError(t, err)
	assert.Equal(t, "Hello there.", run.Samples[0].Text)
	assert.Equal(t, "the prompt", run.Samples[1].Prompt)
}

func TestRun_Record(t *testing.T) {
	run, err := harness(counter(), DefaultConfig()).Run(context.Background(),
		Request{ContentID: "q1", Mode: ModeCache, N: 3})
	require.NoError(t, err)

	rec, err := run.Record()
	require.NoError(t, err)
	assert.Equal(t, run.RunID, rec.RunID)
	assert.Equal(t, "C", rec.Mode)
	assert.Contains(t, rec.SummaryJSON, `"cache_hit_rate_pct":66.67`)
	assert.True(t, strings.HasPrefix(rec.SamplesJSON, "["))
}
