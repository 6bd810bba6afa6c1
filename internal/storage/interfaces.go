package storage

import (
	"context"
	"time"

	"macro-risk-lab/internal/domain"
)

// SeriesStore provides access to series_observations storage.
type SeriesStore interface {
	// InsertBulk adds observations for one series atomically.
	// Fails the entire batch if any (name, timestamp) already exists.
	InsertBulk(ctx context.Context, name string, obs []domain.Observation) error

	// GetByName retrieves the full series, ordered by timestamp ASC.
	// Returns ErrNotFound if the series has no observations.
	GetByName(ctx context.Context, name string) (*domain.TimeSeries, error)

	// GetByTimeRange retrieves observations of a series within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, name string, start, end time.Time) (*domain.TimeSeries, error)

	// ListNames returns the stored series names, sorted ASC.
	ListNames(ctx context.Context) ([]string, error)

	// LatestTimestamp returns the timestamp of the newest observation of a series.
	// Returns ErrNotFound if the series has no observations.
	LatestTimestamp(ctx context.Context, name string) (time.Time, error)
}

// RunStore provides access to pipeline run records.
type RunStore interface {
	// Insert adds a run record. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.RunRecord) error

	// GetByID retrieves a run by ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.RunRecord, error)

	// GetAll retrieves all runs ordered by started_at DESC.
	GetAll(ctx context.Context) ([]*domain.RunRecord, error)
}
