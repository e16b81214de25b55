package forensics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/quest-forensics/internal/cache"
	"github.com/danielpatrickdp/quest-forensics/internal/content"
	"github.com/danielpatrickdp/quest-forensics/internal/generator"
)

// #region harness
// Pipeline is the cache path a harness drives.
type Pipeline interface {
	Generate(ctx context.Context, req generator.Request) (cache.Outcome, error)
}

// Harness runs forensics trials against a generator behind a cache.
type Harness struct {
	pipeline Pipeline
	source   content.Source
	config   Config
	logger   *zap.Logger
	tracer   trace.Tracer
	newID    func() string
}

// NewHarness wires a harness. A nil logger is replaced by a no-op.
func NewHarness(p Pipeline, src content.Source, config Config, logger *zap.Logger) *Harness {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Workers < 1 {
		config.Workers = 1
	}
	return &Harness{
		pipeline: p,
		source:   src,
		config:   config,
		logger:   logger,
		tracer:   otel.Tracer("quest-forensics/forensics"),
		newID:    uuid.NewString,
	}
}

// Thresholds returns the floors the harness diagnoses against.
func (h *Harness) Thresholds() Thresholds { return h.config.Thresholds }

// #endregion harness

// #region run
// Run executes req. Invalid requests return an error; unresolvable content
// returns a Run whose Error is set.
func (h *Harness) Run(ctx context.Context, req Request) (*Run, error) {
	if _, err := ParseMode(string(req.Mode)); err != nil {
		return nil, err
	}
	if req.N < 1 || (h.config.MaxN > 0 && req.N > h.config.MaxN) {
		return nil, fmt.Errorf("n=%d (max %d): %w", req.N, h.config.MaxN, ErrInvalidN)
	}

	quest, err := h.resolve(ctx, req.ContentID)
	if err != nil {
		if errors.Is(err, content.ErrNotFound) || errors.Is(err, content.ErrNoEligibleContent) {
			h.logger.Info("forensics run has no content", zap.String("quest_id", req.ContentID), zap.Error(err))
			return &Run{Error: err.Error()}, nil
		}
		return nil, fmt.Errorf("resolve content: %w", err)
	}

	run := &Run{
		RunID:     h.newID(),
		Mode:      req.Mode,
		ContentID: quest.ID,
		N:         req.N,
	}
	ctx, span := h.tracer.Start(ctx, "forensics.Run", trace.WithAttributes(
		attribute.String("forensics.run_id", run.RunID),
		attribute.String("forensics.mode", string(req.Mode)),
		attribute.Int("forensics.n", req.N),
	))
	defer span.End()

	if h.config.RunDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.RunDeadline)
		defer cancel()
	}

	inputs := req.BaseInputs
	if inputs == nil {
		inputs = quest.Inputs
	}
	baseSeed := req.Seed
	if baseSeed == "" {
		baseSeed = run.RunID
	}
	trials := planTrials(req, quest.ID, baseSeed, inputs)

	h.logger.Info("forensics run started",
		zap.String("run_id", run.RunID),
		zap.String("mode", string(req.Mode)),
		zap.String("quest_id", quest.ID),
		zap.Int("n", req.N),
	)
	start := time.Now()

	samples := make([]Sample, len(trials))
	g := new(errgroup.Group)
	g.SetLimit(h.config.Workers)
	for i := range trials {
		g.Go(func() error {
			samples[i] = h.runTrial(ctx, req, trials[i])
			return nil
		})
	}
	_ = g.Wait()

	summary := Summarize(req.Mode, samples)
	summary.ElapsedMS = time.Since(start).Milliseconds()
	run.Summary = &summary
	run.Diagnosis = Diagnose(req.Mode, summary, h.config.Thresholds)
	run.Samples = samples

	h.logger.Info("forensics run finished",
		zap.String("run_id", run.RunID),
		zap.Int("failures", summary.GenerationFailures),
		zap.Int64("elapsed_ms", summary.ElapsedMS),
	)
	return run, nil
}

func (h *Harness) resolve(ctx context.Context, id string) (content.Quest, error) {
	if id == "" {
		return h.source.FirstEligible(ctx)
	}
	return h.source.Resolve(ctx, id)
}

// #endregion run

// #region trial
type trial struct {
	index   int
	request generator.Request
	field   string
	value   any
}

func (h *Harness) runTrial(ctx context.Context, req Request, t trial) Sample {
	s := Sample{
		Trial:          t.index,
		SampleID:       h.newID(),
		Seed:           t.request.Seed,
		PerturbedField: t.field,
		PerturbedValue: t.value,
	}
	if err := ctx.Err(); err != nil {
		s.GenerationFailed, s.Skipped = true, true
		s.Error = "run deadline exceeded"
		return s
	}

	ctx, span := h.tracer.Start(ctx, "forensics.Trial", trace.WithAttributes(attribute.Int("forensics.trial", t.index)))
	defer span.End()

	start := time.Now()
	out, err := h.pipeline.Generate(ctx, t.request)
	s.ElapsedMS = time.Since(start).Milliseconds()
	s.CacheKey = out.Key
	s.InputsFingerprint = out.InputsFingerprint
	if err != nil {
		s.GenerationFailed = true
		s.Timeout = errors.Is(err, generator.ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
		s.Error = err.Error()
		span.RecordError(err)
		h.logger.Warn("forensics trial failed",
			zap.Int("trial", t.index),
			zap.Bool("timeout", s.Timeout),
			zap.Error(err),
		)
		return s
	}

	s.CacheHit = out.Hit
	s.SharedFlight = out.Shared
	s.OutputFingerprint = out.Entry.OutputFingerprint
	s.PromptFingerprint = out.Entry.PromptFingerprint

	s.StyleViolations = generator.CheckStyle(out.Entry.Text, h.config.Style)
	s.StylePassBeforeRepair = len(s.StyleViolations) == 0
	repaired := generator.RepairStyle(out.Entry.Text, h.config.Style)
	s.StylePassAfterRepair = len(generator.CheckStyle(repaired, h.config.Style)) == 0

	if req.Debug {
		s.Text = out.Entry.Text
		s.Prompt = out.Entry.Prompt
		h.logger.Debug("forensics trial",
			zap.Int("trial", t.index),
			zap.String("key", out.Key),
			zap.Bool("hit", out.Hit),
			zap.Strings("style_violations", s.StyleViolations),
		)
	}
	return s
}

// #endregion trial
