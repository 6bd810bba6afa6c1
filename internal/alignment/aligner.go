// Package alignment fuses series sampled at different frequencies onto one
// common date axis.
package alignment

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"macro-risk-lab/internal/domain"
)

// Result is an aligned panel with per-column fill statistics.
type Result struct {
	Panel *domain.Panel
	Stats map[string]FillStats
}

// Aligner builds panels from independent series.
type Aligner struct {
	workers int
	logger  *zap.Logger
}

// Options configures an Aligner.
type Options struct {
	Workers int         // concurrent column fills, default 4
	Logger  *zap.Logger // optional
}

// New creates an Aligner.
func New(opts Options) *Aligner {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Aligner{workers: opts.Workers, logger: opts.Logger}
}

// Align builds a panel over the union of all timestamps. Each column is
// reindexed onto the axis, then forward filled, then backward filled.
// Columns never borrow values from each other.
func (a *Aligner) Align(ctx context.Context, series map[string]*domain.TimeSeries) (*Result, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("align: %w", domain.ErrEmptyInput)
	}

	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	sort.Strings(names)

	list := make([]*domain.TimeSeries, len(names))
	for i, name := range names {
		s := series[name]
		if s == nil {
			return nil, fmt.Errorf("align %s: %w: nil series", name, domain.ErrMalformedSeries)
		}
		sorted := &domain.TimeSeries{Name: name, Points: append([]domain.Observation(nil), s.Points...)}
		sorted.Sort()
		if err := sorted.Validate(); err != nil {
			return nil, fmt.Errorf("align: %w", err)
		}
		list[i] = sorted
	}

	axis := UnionAxis(list)
	columns := make([][]float64, len(list))
	stats := make([]FillStats, len(list))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i := range list {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			col := Reindex(list[i], axis)
			stats[i] = Fill(col)
			columns[i] = col
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("align: %w", err)
	}

	panel := domain.NewPanel(axis)
	out := &Result{Panel: panel, Stats: make(map[string]FillStats, len(list))}
	for i, name := range names {
		if err := panel.SetColumn(name, columns[i]); err != nil {
			return nil, fmt.Errorf("align: %w", err)
		}
		out.Stats[name] = stats[i]
		if stats[i].Empty > 0 {
			a.logger.Warn("series has no valid observations",
				zap.String("series", name))
		}
	}

	a.logger.Debug("aligned panel",
		zap.Int("rows", panel.Len()),
		zap.Int("columns", len(names)))

	return out, nil
}

// AlignPanel re-aligns the columns of an existing panel. Missing cells keep
// their dates, so applied to a panel produced by Align it returns an
// identical panel.
func (a *Aligner) AlignPanel(ctx context.Context, p *domain.Panel) (*Result, error) {
	series := make(map[string]*domain.TimeSeries, len(p.Order))
	for _, name := range p.Order {
		s, err := p.Series(name)
		if err != nil {
			return nil, err
		}
		series[name] = s
	}
	return a.Align(ctx, series)
}
