package alignment

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"macro-risk-lab/internal/domain"
	"macro-risk-lab/internal/storage"
)

// Runner loads stored series and aligns them.
type Runner struct {
	store   storage.SeriesStore
	aligner *Aligner
	logger  *zap.Logger
}

// NewRunner creates a runner over a series store.
func NewRunner(store storage.SeriesStore, aligner *Aligner, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{store: store, aligner: aligner, logger: logger}
}

// LoadResult holds aligned data plus the names that were not available.
type LoadResult struct {
	*Result
	Skipped []string
}

// Run loads the named series and aligns them. Names without stored
// observations are skipped and reported, not treated as failures.
// An empty names list loads every stored series.
func (r *Runner) Run(ctx context.Context, names []string) (*LoadResult, error) {
	if len(names) == 0 {
		all, err := r.store.ListNames(ctx)
		if err != nil {
			return nil, fmt.Errorf("list series: %w", err)
		}
		names = all
	}

	series := make(map[string]*domain.TimeSeries, len(names))
	var skipped []string
	for _, name := range names {
		s, err := r.store.GetByName(ctx, name)
		if errors.Is(err, storage.ErrNotFound) {
			r.logger.Warn("series not in store, skipping", zap.String("series", name))
			skipped = append(skipped, name)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load series %s: %w", name, err)
		}
		series[name] = s
	}

	res, err := r.aligner.Align(ctx, series)
	if err != nil {
		return nil, err
	}
	return &LoadResult{Result: res, Skipped: skipped}, nil
}
