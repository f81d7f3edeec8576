// Package main implements retrieval-engine, the long-lived tool-server
// process: a stdio JSON-RPC loop over the same toolserver.Registry that
// retrieval-cli drives one call at a time. Config loading, logger/metrics
// construction, and graceful shutdown mirror the teacher's cmd/conexus
// main.go; the difference is the serving loop itself, which speaks the
// tool-server's own line-delimited protocol instead of MCP.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/raildex/retrieval-engine/internal/config"
	"github.com/raildex/retrieval-engine/internal/engine"
	"github.com/raildex/retrieval-engine/internal/observability"
	"github.com/raildex/retrieval-engine/internal/toolserver"
)

func main() {
	ctx := context.Background()

	engine.ApplySpecEnv()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Logs must go to stderr: stdout carries only the tool-server's own
	// line-delimited JSON responses.
	logger := observability.NewLogger(observability.Config{
		Level:         cfg.Logging.Level,
		Format:        cfg.Logging.Format,
		Output:        os.Stderr,
		AddSource:     true,
		SentryEnabled: cfg.Observability.Sentry.Enabled,
	})

	if cfg.Observability.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Observability.Sentry.DSN,
			Environment: cfg.Observability.Sentry.Environment,
		}); err != nil {
			logger.Error("sentry init failed", "error", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	metrics := observability.NewMetricsCollector("retrieval_engine")

	if cfg.Observability.Metrics.Enabled {
		go startMetricsServer(cfg.Observability.Metrics, logger)
	}

	eng, err := engine.Build(ctx, cfg, logger, metrics)
	if err != nil {
		logger.Error("failed to build engine", "error", err)
		os.Exit(1)
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	server := toolserver.NewServer(eng.Registry, os.Stdin, os.Stdout)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("retrieval-engine serving stdio tool calls",
			"output_dir", cfg.Extraction.OutputDir,
			"embedding_provider", cfg.Embedding.Provider,
		)
		serveErr <- server.Serve(runCtx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutting down on signal")
		cancelRun()
	case err := <-serveErr:
		if err != nil {
			logger.Error("tool server stopped", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := eng.Close(shutdownCtx); err != nil {
		logger.Error("engine shutdown error", "error", err)
	}

	logger.Info("retrieval-engine stopped")
}

func startMetricsServer(cfg config.MetricsConfig, logger *observability.Logger) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"status":"healthy","component":"metrics"}`)
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	logger.Info("starting metrics server", "addr", addr, "path", cfg.Path)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server failed", "error", err)
	}
}
