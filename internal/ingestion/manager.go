package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"macro-risk-lab/internal/domain"
	"macro-risk-lab/internal/observability"
	"macro-risk-lab/internal/storage"
)

// Failure records a series that could not be fetched.
type Failure struct {
	Spec domain.SeriesSpec
	Err  error
}

// FetchResult holds fetched series keyed by canonical name plus failures.
type FetchResult struct {
	Series   map[string]*domain.TimeSeries
	Failures []Failure
}

// Names returns the fetched canonical names, sorted.
func (r *FetchResult) Names() []string {
	names := make([]string, 0, len(r.Series))
	for name := range r.Series {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Manager fetches series from providers and optionally persists them.
// A series whose provider fails is logged and skipped.
type Manager struct {
	providers map[domain.Source]Provider
	store     storage.SeriesStore
	workers   int
	logger    *zap.Logger
}

// ManagerOptions contains configuration for creating a Manager.
type ManagerOptions struct {
	Providers map[domain.Source]Provider
	Store     storage.SeriesStore // optional, required by Ingest
	Workers   int                 // concurrent fetches, default 4
	Logger    *zap.Logger
}

// NewManager creates a new ingestion manager.
func NewManager(opts ManagerOptions) *Manager {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Manager{
		providers: opts.Providers,
		store:     opts.Store,
		workers:   opts.Workers,
		logger:    opts.Logger,
	}
}

// FetchAll fetches every series concurrently. Provider failures are collected
// in the result; only context cancellation aborts the call.
func (m *Manager) FetchAll(ctx context.Context, specs []domain.SeriesSpec) (*FetchResult, error) {
	result := &FetchResult{Series: make(map[string]*domain.TimeSeries, len(specs))}
	fetched := make([]*domain.TimeSeries, len(specs))
	errs := make([]error, len(specs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for i, spec := range specs {
		i, spec := i, spec
		g.Go(func() error {
			s, err := m.fetchOne(gctx, spec)
			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			fetched[i], errs[i] = s, err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch series: %w", err)
	}

	for i, spec := range specs {
		if errs[i] != nil {
			result.Failures = append(result.Failures, Failure{Spec: spec, Err: errs[i]})
			m.logger.Warn("series unavailable, skipping",
				zap.String("series", spec.Name),
				zap.String("id", spec.ID),
				zap.String("source", spec.Source.String()),
				zap.Error(errs[i]))
			continue
		}
		if _, dup := result.Series[spec.Name]; dup {
			return nil, fmt.Errorf("fetch series: %w: canonical name %s configured twice",
				domain.ErrInvalidParameter, spec.Name)
		}
		result.Series[spec.Name] = fetched[i]
	}

	return result, nil
}

func (m *Manager) fetchOne(ctx context.Context, spec domain.SeriesSpec) (*domain.TimeSeries, error) {
	p, ok := m.providers[spec.Source]
	if !ok || p == nil {
		return nil, fmt.Errorf("%w: no provider for source %s", domain.ErrProviderUnavailable, spec.Source)
	}

	start := time.Now()
	s, err := p.Fetch(ctx, spec.ID)
	status := "ok"
	if err != nil {
		status = "error"
	}
	observability.RecordSeriesFetch(spec.Source.String(), status, time.Since(start).Seconds())
	if err != nil {
		if !errors.Is(err, domain.ErrProviderUnavailable) && ctx.Err() == nil {
			err = fmt.Errorf("%w: %w", domain.ErrProviderUnavailable, err)
		}
		return nil, err
	}

	name := spec.Name
	if name == "" {
		name = domain.CanonicalName(spec.ID)
	}
	out := &domain.TimeSeries{Name: name, Points: s.Points}
	out.Sort()
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrProviderUnavailable, err)
	}

	m.logger.Debug("fetched series",
		zap.String("series", name),
		zap.Int("rows", out.Len()),
		zap.Int("valid", out.ValidCount()))
	return out, nil
}

// IngestResult reports what Ingest stored.
type IngestResult struct {
	*FetchResult
	Stored map[string]int // new observations stored per series
}

// Ingest fetches all specs and appends observations newer than what the
// store already holds. Series are persisted one at a time as they complete.
func (m *Manager) Ingest(ctx context.Context, specs []domain.SeriesSpec) (*IngestResult, error) {
	if m.store == nil {
		return nil, errors.New("ingest: no series store configured")
	}

	fr, err := m.FetchAll(ctx, specs)
	if err != nil {
		return nil, err
	}

	res := &IngestResult{FetchResult: fr, Stored: make(map[string]int, len(fr.Series))}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for _, name := range fr.Names() {
		name := name
		s := fr.Series[name]
		g.Go(func() error {
			n, err := m.persist(gctx, s)
			if err != nil {
				return fmt.Errorf("store %s: %w", name, err)
			}
			mu.Lock()
			res.Stored[name] = n
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}

	observability.RecordIngestionSuccess(time.Now().Unix())
	return res, nil
}

// persist appends the observations of s newer than the stored watermark.
func (m *Manager) persist(ctx context.Context, s *domain.TimeSeries) (int, error) {
	points := s.Points
	latest, err := m.store.LatestTimestamp(ctx, s.Name)
	switch {
	case err == nil:
		points = s.After(latest)
	case !errors.Is(err, storage.ErrNotFound):
		return 0, err
	}

	if len(points) == 0 {
		return 0, nil
	}
	if err := m.store.InsertBulk(ctx, s.Name, points); err != nil {
		return 0, err
	}

	observability.RecordObservationsStored(s.Name, len(points))
	m.logger.Info("stored observations",
		zap.String("series", s.Name),
		zap.Int("rows", len(points)))
	return len(points), nil
}
