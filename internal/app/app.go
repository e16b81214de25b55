// Package app assembles the forensics stack from configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/quest-forensics/internal/cache"
	"github.com/danielpatrickdp/quest-forensics/internal/config"
	"github.com/danielpatrickdp/quest-forensics/internal/content"
	"github.com/danielpatrickdp/quest-forensics/internal/forensics"
	"github.com/danielpatrickdp/quest-forensics/internal/generator"
	"github.com/danielpatrickdp/quest-forensics/internal/geometry"
	"github.com/danielpatrickdp/quest-forensics/internal/logging"
	"github.com/danielpatrickdp/quest-forensics/internal/tracing"
)

// #region stack
// Stack is a wired set of stores, generator, pipeline and harness sharing
// one SQLite file.
type Stack struct {
	Config    config.Config
	Logger    *zap.Logger
	Bias      geometry.CubeBiasProvider
	Quests    *content.Store
	Cache     *cache.SQLiteStore
	Generator generator.Generator
	Pipeline  *cache.Pipeline
	Harness   *forensics.Harness

	closers []func() error
}

// Open wires a Stack. An empty codec address selects the offline template
// generator instead of the gRPC client.
func Open(cfg config.Config, logger *zap.Logger) (*Stack, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Stack{Config: cfg, Logger: logger}

	shutdown, err := tracing.Setup(context.Background(), "quest-forensics", cfg.Tracing.Endpoint)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, func() error { return shutdown(context.Background()) })

	var bias geometry.CubeBiasProvider = geometry.NoBias{}
	if cfg.BiasTable != "" {
		table, err := geometry.LoadBiasTable(cfg.BiasTable)
		if err != nil {
			s.Close()
			return nil, err
		}
		logger.Info("bias table loaded", zap.String("path", cfg.BiasTable), zap.Int("entries", table.Len()))
		bias = table
	}
	s.Bias = bias

	quests, err := content.OpenStore(cfg.DBPath, content.WithBiasProvider(bias))
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("open quest store: %w", err)
	}
	s.Quests = quests
	s.closers = append(s.closers, quests.Close)

	if s.Cache, err = cache.NewSQLiteStore(quests.DB()); err != nil {
		s.Close()
		return nil, fmt.Errorf("open cache store: %w", err)
	}
	if err := logging.Migrate(quests.DB()); err != nil {
		s.Close()
		return nil, err
	}

	if cfg.CodecAddr == "" {
		s.Generator = generator.Template{}
		logger.Info("using offline template generator")
	} else {
		client, err := generator.NewClient(cfg.CodecAddr)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("connect generator at %s: %w", cfg.CodecAddr, err)
		}
		s.Generator = client
		s.closers = append(s.closers, client.Close)
	}

	s.Pipeline = cache.NewPipeline(s.Cache, s.Generator, cache.PipelineConfig{
		Version: cfg.CacheVersion,
		Timeout: cfg.Forensics.TrialTimeout,
	}, logger)
	s.Harness = forensics.NewHarness(s.Pipeline, quests, HarnessConfig(cfg), logger)
	return s, nil
}

// Close releases everything Open acquired, newest first.
func (s *Stack) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}

// #endregion stack

// #region convert
// HarnessConfig maps file configuration onto harness bounds.
func HarnessConfig(cfg config.Config) forensics.Config {
	hc := forensics.DefaultConfig()
	hc.Workers = cfg.Forensics.Workers
	hc.RunDeadline = cfg.Forensics.RunDeadline
	hc.MaxN = cfg.Forensics.MaxN
	hc.Style = generator.StyleConfig{MaxChars: cfg.Forensics.StyleMaxChars}
	hc.Thresholds = forensics.Thresholds{
		PromptDistinctPct:       cfg.Thresholds.PromptDistinctPct,
		OutputDistinctPct:       cfg.Thresholds.OutputDistinctPct,
		StylePassAfterRepairPct: cfg.Thresholds.StylePassRepairPct,
	}
	return hc
}

// #endregion convert
