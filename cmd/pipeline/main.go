// Package main runs one tail-risk analysis end to end:
// load → align → label → split → select → fit → evaluate → report.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"macro-risk-lab/internal/app"
	"macro-risk-lab/internal/config"
	"macro-risk-lab/internal/domain"
	"macro-risk-lab/internal/logging"
	"macro-risk-lab/internal/pipeline"
)

// Exit codes.
const (
	exitOK           = 0
	exitFailed       = 1
	exitConfig       = 2
	exitInconclusive = 3
)

func main() {
	configFile := flag.String("config", "", "YAML config file (overrides "+config.FileEnvVar+")")
	csvDir := flag.String("csv-dir", "", "Load series from CSV files in this directory")
	fixtures := flag.Bool("fixtures", false, "Run on deterministic synthetic series")
	outputDir := flag.String("output-dir", "", "Artifact directory (default from config)")
	strict := flag.Bool("strict", false, "Exit with status 3 when the verdict is INCONCLUSIVE")
	flag.Parse()

	if *configFile != "" {
		os.Setenv(config.FileEnvVar, *configFile)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(exitConfig)
	}
	if *csvDir != "" {
		cfg.Sources.CSVDir = *csvDir
	}
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(exitConfig)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, cancelling pipeline", zap.String("signal", sig.String()))
		cancel()
	}()

	res, err := run(ctx, cfg, *fixtures, logger)
	if err != nil {
		logger.Error("pipeline failed", zap.Error(err))
		if errors.Is(err, domain.ErrInvalidParameter) {
			os.Exit(exitConfig)
		}
		os.Exit(exitFailed)
	}

	printSummary(res)
	if *strict && res.Record.Status != domain.RunConclusive {
		os.Exit(exitInconclusive)
	}
	os.Exit(exitOK)
}

func run(ctx context.Context, cfg *config.Config, fixtures bool, logger *zap.Logger) (*pipeline.Result, error) {
	stores, err := app.OpenStores(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	defer stores.Close()

	switch {
	case fixtures:
		logger.Info("loading synthetic series")
		if err := pipeline.LoadFixtures(ctx, stores.Series, pipeline.DefaultFixtureOptions()); err != nil {
			return nil, err
		}
	case cfg.Sources.CSVDir != "":
		logger.Info("loading series from csv", zap.String("dir", cfg.Sources.CSVDir))
		res, err := app.NewManager(cfg, stores.Series, logger).Ingest(ctx, cfg.SeriesSpecs())
		if err != nil {
			return nil, err
		}
		logger.Info("csv series loaded", zap.Int("series", len(res.Series)), zap.Int("missing", len(res.Failures)))
	case cfg.Storage.ClickHouseDSN != "":
		logger.Info("reading series from clickhouse")
	default:
		return nil, fmt.Errorf("%w: no data source, use -fixtures, -csv-dir or %s_STORAGE_CLICKHOUSE_DSN",
			domain.ErrInvalidParameter, config.EnvPrefix)
	}

	p, err := app.NewPipeline(cfg, stores, logger)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx)
}

func printSummary(res *pipeline.Result) {
	rec := res.Record
	fmt.Printf("Run %s (%s)\n", rec.ShortID, rec.RunID)
	fmt.Printf("  Verdict:  %s\n", rec.Status)
	fmt.Printf("  Rows:     %d (train %d, test %d)\n", rec.Rows, rec.TrainRows, rec.TestRows)
	fmt.Printf("  Features: %v\n", rec.Features)
	if rec.TrainAUC != nil {
		fmt.Printf("  Train AUC: %.4f\n", *rec.TrainAUC)
	}
	if rec.TestAUC != nil {
		fmt.Printf("  Test AUC:  %.4f\n", *rec.TestAUC)
	}
	for _, r := range rec.Reasons {
		fmt.Printf("  Reason:   %s\n", r)
	}
	for _, w := range rec.Warnings {
		fmt.Printf("  Warning:  %s\n", w)
	}
	if len(res.Artifacts) > 0 {
		fmt.Println("Artifacts:")
		for _, a := range res.Artifacts {
			fmt.Printf("  %s\n", a)
		}
	}
}
