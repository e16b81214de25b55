// Command admin serves the operator HTTP endpoints.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/quest-forensics/internal/adminapi"
	"github.com/danielpatrickdp/quest-forensics/internal/app"
	"github.com/danielpatrickdp/quest-forensics/internal/config"
	"github.com/danielpatrickdp/quest-forensics/internal/logging"
)

var (
	configPath string
	addr       string

	subject string
	role    string
	ttl     time.Duration
)

// #region commands
var rootCmd = &cobra.Command{
	Use:           "admin",
	Short:         "Operator endpoints for the quest generator",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve POST " + adminapi.ForensicsPath,
	RunE:  runServe,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Sign an operator bearer token with the configured secret",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		tok, err := adminapi.IssueToken(cfg.Admin.JWTSecret, subject, adminapi.Role(role), ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")

	tf := tokenCmd.Flags()
	tf.StringVar(&subject, "sub", "", "token subject (required)")
	tf.StringVar(&role, "role", string(adminapi.RoleEngineer), "admin or engineer")
	tf.DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("sub")

	rootCmd.AddCommand(serveCmd, tokenCmd)
}

// #endregion commands

// #region main
func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(*cobra.Command, []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Admin.Addr = addr
	}
	if cfg.Admin.JWTSecret == "" {
		return errors.New("admin.jwt_secret (ADMIN_JWT_SECRET) is required")
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	stack, err := app.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer stack.Close()

	mux := http.NewServeMux()
	adminapi.NewHandler(stack.Harness, adminapi.NewJWTAuthenticator(cfg.Admin.JWTSecret), cfg.Forensics.DefaultN, logger).
		RegisterRoutes(mux)
	srv := &http.Server{
		Addr:              cfg.Admin.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 1)
	go func() {
		logger.Info("admin listening", zap.String("addr", cfg.Admin.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("admin shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// #endregion main
