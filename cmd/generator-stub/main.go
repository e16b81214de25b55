// Command generator-stub serves the deterministic template generator over
// gRPC so the harness can be exercised without a model.
package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/quest-forensics/internal/generator"
	"github.com/danielpatrickdp/quest-forensics/internal/logging"
	"github.com/danielpatrickdp/quest-forensics/internal/tracing"
)

func main() {
	addr := flag.String("addr", envOr("CODEC_ADDR", "localhost:50051"), "listen address")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger, err := logging.New(*level, false)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	lis, err := net.Listen("tcp", *addr)
	if err != nil {
		logger.Fatal("listen", zap.String("addr", *addr), zap.Error(err))
	}
	shutdown, err := tracing.Setup(context.Background(), "generator-stub", os.Getenv("OTEL_ENDPOINT"))
	if err != nil {
		logger.Fatal("tracing", zap.Error(err))
	}
	defer shutdown(context.Background()) //nolint:errcheck

	srv := generator.NewServer(generator.Template{})

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		logger.Info("generator stub stopping")
		srv.GracefulStop()
	}()

	logger.Info("generator stub listening", zap.String("addr", lis.Addr().String()))
	if err := srv.Serve(lis); err != nil {
		logger.Fatal("serve", zap.Error(err))
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
