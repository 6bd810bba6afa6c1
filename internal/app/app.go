// Package app assembles stores, providers and the pipeline from configuration.
// The binaries under cmd/ share it.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"macro-risk-lab/internal/config"
	"macro-risk-lab/internal/domain"
	"macro-risk-lab/internal/ingestion"
	"macro-risk-lab/internal/pipeline"
	"macro-risk-lab/internal/storage"
	chstore "macro-risk-lab/internal/storage/clickhouse"
	"macro-risk-lab/internal/storage/memory"
	"macro-risk-lab/internal/storage/migrations"
	"macro-risk-lab/internal/storage/postgres"
)

// ingestSource labels rows written to ClickHouse.
const ingestSource = "ingest"

// Stores holds the configured storage backends.
type Stores struct {
	Series storage.SeriesStore
	Runs   storage.RunStore

	// Health probes keyed by backend name. Empty for memory stores.
	Health map[string]func(ctx context.Context) error

	ch *chstore.Conn
	pg *postgres.Pool
}

// OpenStores connects the backends named in cfg and applies migrations.
// An empty DSN selects the in-memory implementation.
func OpenStores(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*Stores, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Stores{Health: make(map[string]func(ctx context.Context) error)}

	if cfg.ClickHouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
		if err != nil {
			return nil, fmt.Errorf("clickhouse: %w", err)
		}
		s.ch = conn
		s.Series = chstore.NewSeriesStore(conn, ingestSource)
		s.Health["clickhouse"] = conn.Ping
		logger.Info("series store: clickhouse")
	} else {
		s.Series = memory.NewSeriesStore()
		logger.Info("series store: memory")
	}

	if cfg.PostgresDSN != "" {
		pool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			s.Close()
			return nil, err
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			s.Close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		s.pg = pool
		s.Runs = postgres.NewRunStore(pool)
		s.Health["postgres"] = pool.Healthy
		logger.Info("run store: postgres")
	} else {
		s.Runs = memory.NewRunStore()
		logger.Info("run store: memory")
	}

	return s, nil
}

// Close releases database connections.
func (s *Stores) Close() {
	if s.ch != nil {
		_ = s.ch.Close()
	}
	if s.pg != nil {
		s.pg.Close()
	}
}

// Providers builds the upstream providers. With Sources.CSVDir set every
// source reads from that directory. FRED is left out without an API key,
// so its series are reported unavailable.
func Providers(cfg *config.Config, logger *zap.Logger) map[domain.Source]ingestion.Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	src := cfg.Sources

	if src.CSVDir != "" {
		csv := ingestion.NewCSVProvider(src.CSVDir)
		return map[domain.Source]ingestion.Provider{
			domain.SourceFRED:  csv,
			domain.SourceYahoo: csv,
			domain.SourceCSV:   csv,
		}
	}

	opts := []ingestion.ClientOption{
		ingestion.WithTimeout(src.Timeout),
		ingestion.WithMaxRetries(src.MaxRetries),
		ingestion.WithRateLimit(src.RateLimit),
		ingestion.WithStart(cfg.StartDate()),
	}

	providers := map[domain.Source]ingestion.Provider{
		domain.SourceYahoo: ingestion.NewYahooClient(src.YahooBaseURL, opts...),
	}
	if cfg.FREDAPIKey != "" {
		providers[domain.SourceFRED] = ingestion.NewFREDClient(src.FREDBaseURL, cfg.FREDAPIKey, opts...)
	} else {
		logger.Warn("FRED API key not set, FRED series will be skipped",
			zap.String("env", config.EnvPrefix+"_FRED_API_KEY"))
	}
	return providers
}

// NewManager creates an ingestion manager writing into store.
func NewManager(cfg *config.Config, store storage.SeriesStore, logger *zap.Logger) *ingestion.Manager {
	return ingestion.NewManager(ingestion.ManagerOptions{
		Providers: Providers(cfg, logger),
		Store:     store,
		Workers:   cfg.Sources.Workers,
		Logger:    logger,
	})
}

// RunParams converts the analysis config into run parameters.
func RunParams(cfg *config.Config) domain.RunParams {
	a := cfg.Analysis
	return domain.RunParams{
		Target:               a.Target,
		Horizon:              a.Horizon,
		DrawdownThreshold:    a.DrawdownThreshold,
		CorrelationThreshold: a.CorrelationThreshold,
		Cutoff:               cfg.CutoffDate(),
		BoundaryPolicy:       a.BoundaryPolicy,
		DecisionThreshold:    a.DecisionThreshold,
		MaxIterations:        a.MaxIterations,
		Candidates:           a.Candidates,
	}
}

// NewPipeline creates a pipeline over the given stores.
func NewPipeline(cfg *config.Config, stores *Stores, logger *zap.Logger) (*pipeline.Pipeline, error) {
	return pipeline.New(pipeline.Options{
		Store:          stores.Series,
		Runs:           stores.Runs,
		Params:         RunParams(cfg),
		L2:             cfg.Analysis.L2,
		IncludeRolling: cfg.Analysis.IncludeRolling,
		MinRows:        cfg.Analysis.MinRows,
		Workers:        cfg.Analysis.Workers,
		OutputDir:      cfg.Output.Dir,
		Logger:         logger,
	})
}

// Cycle returns a job that ingests the configured series and then runs the
// pipeline. Ingestion failures of single series are tolerated; the pipeline
// reports them as skipped.
func Cycle(cfg *config.Config, stores *Stores, logger *zap.Logger) (func(ctx context.Context) (*domain.RunRecord, error), error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	mgr := NewManager(cfg, stores.Series, logger)
	p, err := NewPipeline(cfg, stores, logger)
	if err != nil {
		return nil, err
	}
	specs := cfg.SeriesSpecs()

	return func(ctx context.Context) (*domain.RunRecord, error) {
		res, err := mgr.Ingest(ctx, specs)
		if err != nil {
			return nil, err
		}
		for _, f := range res.Failures {
			logger.Warn("series not refreshed", zap.String("series", f.Spec.Name), zap.Error(f.Err))
		}

		out, err := p.Run(ctx)
		if err != nil {
			return nil, err
		}
		return out.Record, nil
	}, nil
}
