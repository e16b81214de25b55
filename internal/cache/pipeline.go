package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/danielpatrickdp/quest-forensics/internal/fingerprint"
	"github.com/danielpatrickdp/quest-forensics/internal/generator"
)

// #region config
// PipelineConfig controls key versioning and generation time limits.
type PipelineConfig struct {
	Version string
	Timeout time.Duration // per generation; zero means none
}

// DefaultPipelineConfig returns the current schema version and a 30s timeout.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{Version: "1", Timeout: 30 * time.Second}
}

// #endregion config

// #region pipeline
// Pipeline serves generation requests through the cache: compose the key,
// look it up, and on a miss run at most one generation per key at a time.
type Pipeline struct {
	store  Store
	gen    generator.Generator
	config PipelineConfig
	logger *zap.Logger
	tracer trace.Tracer
	group  singleflight.Group
	now    func() time.Time
}

// NewPipeline wires a store and generator. A nil logger is replaced by a no-op.
func NewPipeline(store Store, gen generator.Generator, config PipelineConfig, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		store:  store,
		gen:    gen,
		config: config,
		logger: logger,
		tracer: otel.Tracer("quest-forensics/cache"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Key returns the cache key and inputs fingerprint for req.
func (p *Pipeline) Key(req generator.Request) (string, string, error) {
	inputsFP, err := fingerprint.Inputs(orEmpty(req.Inputs))
	if err != nil {
		return "", "", err
	}
	return ComposeKey(KeyParts{
		Version:           p.config.Version,
		ContentID:         req.ContentID,
		Seed:              req.Seed,
		InputsFingerprint: inputsFP,
	}), inputsFP, nil
}

type flightResult struct {
	entry     Entry
	fromStore bool
}

// Generate serves req from the cache or the generator.
func (p *Pipeline) Generate(ctx context.Context, req generator.Request) (Outcome, error) {
	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "cache.Generate", trace.WithAttributes(
		attribute.String("content.id", req.ContentID),
	))
	defer span.End()

	key, inputsFP, err := p.Key(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cache key")
		return Outcome{}, fmt.Errorf("cache key: %w", err)
	}
	out := Outcome{Key: key, InputsFingerprint: inputsFP}

	if e, ok, err := p.store.Get(ctx, key); err != nil {
		return Outcome{}, fmt.Errorf("cache lookup: %w", err)
	} else if ok {
		out.Entry, out.Hit = e, true
		out.Elapsed = time.Since(start)
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return out, nil
	}

	leader := false
	v, err, _ := p.group.Do(key, func() (any, error) {
		leader = true
		// A flight that finished between our lookup and Do has already stored the key.
		if e, ok, err := p.store.Get(ctx, key); err != nil {
			return nil, fmt.Errorf("cache lookup: %w", err)
		} else if ok {
			return flightResult{entry: e, fromStore: true}, nil
		}
		e, err := p.generate(ctx, key, req)
		if err != nil {
			return nil, err
		}
		return flightResult{entry: e}, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate")
		return Outcome{}, err
	}

	res := v.(flightResult)
	out.Entry = res.entry
	out.Hit = !leader || res.fromStore
	out.Shared = !leader
	out.Elapsed = time.Since(start)
	span.SetAttributes(attribute.Bool("cache.hit", out.Hit), attribute.Bool("cache.shared", out.Shared))
	return out, nil
}

func (p *Pipeline) generate(ctx context.Context, key string, req generator.Request) (Entry, error) {
	gctx := ctx
	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		gctx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	res, err := p.gen.Generate(gctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, generator.ErrTimeout) {
			err = fmt.Errorf("%w: %w", generator.ErrTimeout, err)
		}
		p.logger.Warn("generation failed", zap.String("key", key), zap.Error(err))
		return Entry{}, fmt.Errorf("generate %s: %w", req.ContentID, err)
	}

	e := Entry{
		Key:               key,
		ContentID:         req.ContentID,
		Text:              res.Text,
		OutputFingerprint: fingerprint.String(res.Text),
		Prompt:            res.Prompt,
		PromptFingerprint: fingerprint.String(res.Prompt),
		CreatedAt:         p.now(),
	}
	if err := p.store.Put(ctx, e); err != nil {
		return Entry{}, fmt.Errorf("cache store: %w", err)
	}
	p.logger.Debug("generation cached", zap.String("key", key))
	return e, nil
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// #endregion pipeline
