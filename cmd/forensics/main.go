// Command forensics runs the generation forensics harness from the shell.
//
//	forensics --mode C --n 5 --strict
//	forensics quest add --hexagram 27
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/quest-forensics/internal/app"
	"github.com/danielpatrickdp/quest-forensics/internal/config"
	"github.com/danielpatrickdp/quest-forensics/internal/forensics"
	"github.com/danielpatrickdp/quest-forensics/internal/logging"
)

// Exit codes.
const (
	exitStrict = 1
	exitError  = 2
)

// errStrict marks a run that completed but failed --strict.
var errStrict = errors.New("strict thresholds violated")

var (
	configPath string
	dbPath     string
	codecAddr  string
	offline    bool

	questID      string
	mode         string
	n            int
	strict       bool
	record       bool
	debug        bool
	seed         string
	perturbField string
)

// #region commands
var rootCmd = &cobra.Command{
	Use:           "forensics",
	Short:         "Measure variability, input sensitivity and caching of the quest generator",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runForensics,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "YAML config file")
	pf.StringVar(&dbPath, "db", "", "SQLite database (overrides config)")
	pf.StringVar(&codecAddr, "codec-addr", "", "generator gRPC address (overrides config)")
	pf.BoolVar(&offline, "offline", false, "use the built-in template generator")

	f := rootCmd.Flags()
	f.StringVar(&questID, "questId", "", "quest to test (default: oldest eligible)")
	f.StringVar(&mode, "mode", "A", "A (variability), B (input sensitivity) or C (cache)")
	f.IntVar(&n, "n", 0, "trial count (default from config)")
	f.BoolVar(&strict, "strict", false, "exit 1 when a threshold is not met")
	f.BoolVar(&record, "record", false, "persist the run to the forensics_runs table")
	f.BoolVar(&debug, "debug", false, "include generated text and prompts in samples")
	f.StringVar(&seed, "seed", "", "base seed (default: the run id)")
	f.StringVar(&perturbField, "perturb", "", "input field varied in mode B")

	rootCmd.AddCommand(questCmd)
}

// #endregion commands

// #region main
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	switch {
	case errors.Is(err, errStrict):
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitStrict)
	case err != nil:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitError)
	}
}

func openStack() (*app.Stack, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if codecAddr != "" {
		cfg.CodecAddr = codecAddr
	}
	if offline {
		cfg.CodecAddr = ""
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		return nil, err
	}
	return app.Open(cfg, logger)
}

// #endregion main

// #region run
func runForensics(cmd *cobra.Command, _ []string) error {
	m, err := forensics.ParseMode(mode)
	if err != nil {
		return err
	}
	stack, err := openStack()
	if err != nil {
		return err
	}
	defer stack.Close()
	defer stack.Logger.Sync() //nolint:errcheck

	if n == 0 {
		n = stack.Config.Forensics.DefaultN
	}
	ctx := cmd.Context()
	run, err := stack.Harness.Run(ctx, forensics.Request{
		ContentID:    questID,
		Mode:         m,
		N:            n,
		Debug:        debug,
		Seed:         seed,
		PerturbField: perturbField,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(run); err != nil {
		return err
	}
	if run.Failed() {
		return errors.New(run.Error)
	}

	if record {
		rec, err := run.Record()
		if err != nil {
			return err
		}
		if err := logging.RecordRun(ctx, stack.Quests.DB(), rec); err != nil {
			return err
		}
		stack.Logger.Info("run recorded", zap.String("run_id", run.RunID))
	}

	if strict {
		if violations := forensics.CheckStrict(run, stack.Harness.Thresholds()); len(violations) > 0 {
			for _, v := range violations {
				fmt.Fprintf(cmd.ErrOrStderr(), "strict: %s\n", v)
			}
			return fmt.Errorf("%d violations: %w", len(violations), errStrict)
		}
	}
	return nil
}

// #endregion run
