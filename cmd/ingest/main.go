package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"macro-risk-lab/internal/app"
	"macro-risk-lab/internal/config"
	"macro-risk-lab/internal/ingestion"
	"macro-risk-lab/internal/logging"
	chstore "macro-risk-lab/internal/storage/clickhouse"
)

func main() {
	configFile := flag.String("config", "", "YAML config file (overrides "+config.FileEnvVar+")")
	csvDir := flag.String("csv-dir", "", "Read series from this directory instead of the network")
	dumpDir := flag.String("dump-dir", "", "Write fetched series as CSV to this directory")
	series := flag.String("series", "", "Comma-separated provider ids to fetch (default: all configured)")
	flag.Parse()

	if *configFile != "" {
		os.Setenv(config.FileEnvVar, *configFile)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	if *csvDir != "" {
		cfg.Sources.CSVDir = *csvDir
	}
	if *series != "" {
		cfg.Sources.Series = strings.Split(*series, ",")
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(2)
		}
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, cancelling ingestion", zap.String("signal", sig.String()))
		cancel()
		<-sigCh
		logger.Warn("received second signal, forcing exit")
		os.Exit(1)
	}()

	if err := run(ctx, cfg, *dumpDir, logger); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("ingestion cancelled")
			os.Exit(130)
		}
		logger.Error("ingestion failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, dumpDir string, logger *zap.Logger) error {
	stores, err := app.OpenStores(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	specs := cfg.SeriesSpecs()
	logger.Info("ingesting series", zap.Int("series", len(specs)), zap.String("start", cfg.Sources.Start))

	start := time.Now()
	res, err := app.NewManager(cfg, stores.Series, logger).Ingest(ctx, specs)
	if err != nil {
		return err
	}

	fmt.Printf("Ingested %d/%d series in %s\n", len(res.Series), len(specs), time.Since(start).Round(time.Millisecond))
	for _, name := range res.Names() {
		s := res.Series[name]
		fmt.Printf("  %-10s rows=%-6d valid=%-6d new=%d\n", name, s.Len(), s.ValidCount(), res.Stored[name])
	}
	for _, f := range res.Failures {
		fmt.Printf("  %-10s skipped: %v\n", f.Spec.Name, f.Err)
	}

	if ch, ok := stores.Series.(*chstore.SeriesStore); ok {
		coverage, err := ch.Coverage(ctx)
		if err != nil {
			return fmt.Errorf("coverage: %w", err)
		}
		fmt.Println("Stored coverage:")
		for _, c := range coverage {
			fmt.Printf("  %-10s %s .. %s  observations=%d valid=%d\n",
				c.Name, c.First.Format("2006-01-02"), c.Last.Format("2006-01-02"), c.Observations, c.Valid)
		}
	}

	if dumpDir != "" {
		paths, err := ingestion.DumpCSV(dumpDir, res.Series)
		if err != nil {
			return err
		}
		logger.Info("wrote series csv", zap.String("dir", dumpDir), zap.Int("files", len(paths)))
	}
	return nil
}
