package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macro-risk-lab/internal/config"
	"macro-risk-lab/internal/domain"
	"macro-risk-lab/internal/ingestion"
	"macro-risk-lab/internal/pipeline"
	"macro-risk-lab/internal/reporting"
	"macro-risk-lab/internal/storage/memory"
)

func TestProviders_CSVDir(t *testing.T) {
	cfg := config.Default()
	cfg.Sources.CSVDir = t.TempDir()

	providers := Providers(cfg, nil)
	require.Len(t, providers, 3)
	for _, src := range []domain.Source{domain.SourceFRED, domain.SourceYahoo, domain.SourceCSV} {
		_, ok := providers[src].(*ingestion.CSVProvider)
		assert.True(t, ok, src)
	}
}

func TestProviders_FREDRequiresKey(t *testing.T) {
	cfg := config.Default()

	providers := Providers(cfg, nil)
	assert.NotContains(t, providers, domain.SourceFRED)
	assert.Contains(t, providers, domain.SourceYahoo)

	cfg.FREDAPIKey = "k"
	providers = Providers(cfg, nil)
	assert.Contains(t, providers, domain.SourceFRED)
}

func TestRunParams(t *testing.T) {
	cfg := config.Default()
	p := RunParams(cfg)

	assert.Equal(t, "NASDAQ", p.Target)
	assert.Equal(t, 60, p.Horizon)
	assert.Equal(t, cfg.CutoffDate(), p.Cutoff)
	assert.Equal(t, cfg.Analysis.Candidates, p.Candidates)
}

func TestRunParams_ZeroCorrelationThreshold(t *testing.T) {
	cfg := config.Default()
	cfg.Analysis.CorrelationThreshold = 0
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 0.0, RunParams(cfg).CorrelationThreshold)

	_, err := NewPipeline(cfg, &Stores{Series: memory.NewSeriesStore(), Runs: memory.NewRunStore()}, nil)
	require.NoError(t, err)
}

func TestOpenStores_Memory(t *testing.T) {
	stores, err := OpenStores(context.Background(), config.StorageConfig{}, nil)
	require.NoError(t, err)
	defer stores.Close()

	assert.NotNil(t, stores.Series)
	assert.NotNil(t, stores.Runs)
	assert.Empty(t, stores.Health)
}

func TestCycle_FromCSVDir(t *testing.T) {
	csvDir := t.TempDir()
	_, err := ingestion.DumpCSV(csvDir, pipeline.GenerateFixtures(pipeline.DefaultFixtureOptions()))
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Sources.CSVDir = csvDir
	cfg.Analysis.Cutoff = "2016-06-01"
	cfg.Output.Dir = t.TempDir()

	stores, err := OpenStores(context.Background(), cfg.Storage, nil)
	require.NoError(t, err)
	defer stores.Close()

	job, err := Cycle(cfg, stores, nil)
	require.NoError(t, err)

	rec, err := job(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.RunConclusive, rec.Status, "reasons: %v", rec.Reasons)
	assert.Contains(t, rec.Features, "VIX")

	_, err = os.Stat(filepath.Join(cfg.Output.Dir, reporting.FileReport))
	assert.NoError(t, err)

	// A second cycle finds nothing new to ingest and reproduces the run.
	again, err := job(context.Background())
	require.NoError(t, err)
	assert.Equal(t, rec.RunID, again.RunID)

	all, err := stores.Runs.GetAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCycle_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Analysis.BoundaryPolicy = "wrap"

	stores, err := OpenStores(context.Background(), cfg.Storage, nil)
	require.NoError(t, err)

	_, err = Cycle(cfg, stores, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
}
