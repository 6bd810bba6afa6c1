// Package main runs the scheduled ingest+analysis service.
//
// Endpoints:
//
//	GET  /healthz     store connectivity
//	GET  /status      scheduler state
//	GET  /runs        persisted runs, newest first
//	POST /runs        trigger a run now
//	GET  /runs/{id}   one run
//	GET  /metrics     Prometheus metrics
//	GET  /ws          run event stream
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"macro-risk-lab/internal/app"
	"macro-risk-lab/internal/config"
	"macro-risk-lab/internal/logging"
	"macro-risk-lab/internal/server"
)

func main() {
	configFile := flag.String("config", "", "YAML config file (overrides "+config.FileEnvVar+")")
	addr := flag.String("addr", "", "HTTP listen address (default from config)")
	runOnStart := flag.Bool("run-on-start", false, "Trigger a run immediately after startup")
	flag.Parse()

	if *configFile != "" {
		os.Setenv(config.FileEnvVar, *configFile)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *runOnStart {
		cfg.Server.RunOnStart = true
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer logger.Sync()

	logger.Info("starting server", zap.String("config", cfg.Redacted()))

	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, err := app.OpenStores(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	job, err := app.Cycle(cfg, stores, logger)
	if err != nil {
		return err
	}

	hub := server.NewHub(logger)
	sched, err := server.NewScheduler(server.SchedulerOptions{
		Job:      job,
		Hub:      hub,
		Schedule: cfg.Server.Schedule,
		Timeout:  cfg.Server.RunTimeout,
		BaseCtx:  ctx,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}

	health := make(map[string]server.HealthCheck, len(stores.Health))
	for name, check := range stores.Health {
		health[name] = check
	}

	srv, err := server.New(server.Options{
		Runs:         stores.Runs,
		Scheduler:    sched,
		Hub:          hub,
		Health:       health,
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ListenAndServe() }()

	sched.Start()
	if cfg.Server.RunOnStart {
		go func() {
			if _, err := sched.Trigger(ctx); err != nil && !errors.Is(err, server.ErrRunInProgress) {
				logger.Error("startup run failed", zap.Error(err))
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	// A second signal skips the graceful path.
	go func() {
		<-sigCh
		logger.Warn("received second signal, forcing exit")
		os.Exit(1)
	}()

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	sched.Stop()
	return nil
}

func shutdownTimeout(cfg *config.Config) time.Duration {
	if cfg.Server.ShutdownTimeout > 0 {
		return cfg.Server.ShutdownTimeout
	}
	return 30 * time.Second
}
