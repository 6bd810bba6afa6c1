// Package features ranks candidate indicators by their correlation with the
// drawdown target and keeps the strongly correlated ones.
package features

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"macro-risk-lab/internal/domain"
)

// DefaultThreshold is the usual minimum absolute correlation for acceptance.
// Callers pass it explicitly; a zero Threshold accepts any defined |r| > 0.
const DefaultThreshold = 0.5

// Selector filters candidate features by absolute Pearson correlation.
type Selector struct {
	threshold float64
	workers   int
	logger    *zap.Logger
}

// Options configures a Selector.
type Options struct {
	Threshold float64     // |r| must exceed this, in [0, 1)
	Workers   int         // concurrent correlations, default 4
	Logger    *zap.Logger // optional
}

// New creates a Selector.
func New(opts Options) (*Selector, error) {
	if math.IsNaN(opts.Threshold) || opts.Threshold < 0 || opts.Threshold >= 1 {
		return nil, fmt.Errorf("%w: correlation threshold %v outside [0, 1)",
			domain.ErrInvalidParameter, opts.Threshold)
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Selector{threshold: opts.Threshold, workers: opts.Workers, logger: opts.Logger}, nil
}

// Select computes the correlation of every candidate with target over the
// rows where both are present, and accepts candidates with |r| > threshold.
// The table and the accepted list follow candidate order.
func (s *Selector) Select(ctx context.Context, p *domain.Panel, target string, candidates []string) (*domain.FeatureSet, error) {
	y, err := p.Column(target)
	if err != nil {
		return nil, fmt.Errorf("select features: %w", err)
	}

	table := make([]domain.CorrelationEntry, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, name := range candidates {
		i, name := i, name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			x, ok := p.Columns[name]
			if !ok {
				table[i] = domain.CorrelationEntry{
					Feature:     name,
					Correlation: math.NaN(),
					Undefined:   true,
					Status:      domain.CorrelationMissing,
				}
				return nil
			}
			table[i] = s.entry(name, x, y)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("select features: %w", err)
	}

	fs := &domain.FeatureSet{Target: target, Threshold: s.threshold, Table: table}
	for _, e := range table {
		if e.Accepted {
			fs.Accepted = append(fs.Accepted, e.Feature)
		}
		if e.Undefined {
			s.logger.Warn("correlation undefined",
				zap.String("feature", e.Feature),
				zap.String("status", e.Status),
				zap.Int("rows", e.Observations))
		}
	}

	s.logger.Info("selected features",
		zap.String("target", target),
		zap.Int("candidates", len(candidates)),
		zap.Strings("accepted", fs.Accepted))

	return fs, nil
}

func (s *Selector) entry(name string, x, y []float64) domain.CorrelationEntry {
	e := domain.CorrelationEntry{Feature: name, Correlation: math.NaN()}

	xs, ys := PairwiseComplete(x, y)
	e.Observations = len(xs)

	r, err := Pearson(xs, ys)
	if err != nil {
		e.Undefined = true
		e.Status = domain.CorrelationUndefined
		return e
	}

	e.Correlation = r
	if math.Abs(r) > s.threshold {
		e.Accepted = true
		e.Status = domain.CorrelationAccepted
	} else {
		e.Status = domain.CorrelationRejected
	}
	return e
}

// PairwiseComplete returns the values of x and y at rows where both are
// present.
func PairwiseComplete(x, y []float64) (xs, ys []float64) {
	n := min(len(x), len(y))
	for i := 0; i < n; i++ {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	return xs, ys
}

// Pearson returns the Pearson correlation of x and y. It returns
// ErrUndefinedCorrelation with fewer than 2 rows or when either side has
// zero variance.
func Pearson(x, y []float64) (float64, error) {
	if len(x) != len(y) {
		return math.NaN(), fmt.Errorf("pearson: %w: %d vs %d", domain.ErrShapeMismatch, len(x), len(y))
	}
	if len(x) < 2 {
		return math.NaN(), fmt.Errorf("pearson: %w: %d rows", domain.ErrUndefinedCorrelation, len(x))
	}
	if stat.Variance(x, nil) == 0 || stat.Variance(y, nil) == 0 {
		return math.NaN(), fmt.Errorf("pearson: %w: zero variance", domain.ErrUndefinedCorrelation)
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) {
		return math.NaN(), fmt.Errorf("pearson: %w", domain.ErrUndefinedCorrelation)
	}
	return r, nil
}
