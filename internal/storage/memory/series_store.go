package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"macro-risk-lab/internal/domain"
	"macro-risk-lab/internal/storage"
)

// SeriesStore is an in-memory implementation of storage.SeriesStore.
type SeriesStore struct {
	mu   sync.RWMutex
	data map[string]map[int64]domain.Observation // name -> unix nanos -> observation
}

// NewSeriesStore creates a new in-memory series store.
func NewSeriesStore() *SeriesStore {
	return &SeriesStore{
		data: make(map[string]map[int64]domain.Observation),
	}
}

// InsertBulk adds observations for one series. Fails entire batch on duplicate.
func (s *SeriesStore) InsertBulk(_ context.Context, name string, obs []domain.Observation) error {
	if name == "" {
		return storage.ErrInvalidInput
	}
	if len(obs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.data[name]

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[int64]struct{}, len(obs))

	// First pass: check for duplicates (existing + intra-batch)
	for _, o := range obs {
		if o.Timestamp.IsZero() {
			return storage.ErrInvalidInput
		}
		key := o.Timestamp.UnixNano()
		if _, exists := existing[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	if existing == nil {
		existing = make(map[int64]domain.Observation, len(obs))
		s.data[name] = existing
	}
	for _, o := range obs {
		o.Timestamp = o.Timestamp.UTC()
		existing[o.Timestamp.UnixNano()] = o
	}

	return nil
}

// GetByName retrieves the full series, ordered by timestamp ASC.
func (s *SeriesStore) GetByName(_ context.Context, name string) (*domain.TimeSeries, error) {
	return s.collect(name, func(domain.Observation) bool { return true })
}

// GetByTimeRange retrieves observations within [start, end] (inclusive).
func (s *SeriesStore) GetByTimeRange(_ context.Context, name string, start, end time.Time) (*domain.TimeSeries, error) {
	ts, err := s.collect(name, func(o domain.Observation) bool {
		return !o.Timestamp.Before(start) && !o.Timestamp.After(end)
	})
	if errors.Is(err, storage.ErrNotFound) {
		return &domain.TimeSeries{Name: name}, nil
	}
	return ts, err
}

func (s *SeriesStore) collect(name string, keep func(domain.Observation) bool) (*domain.TimeSeries, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	points, ok := s.data[name]
	if !ok || len(points) == 0 {
		return nil, storage.ErrNotFound
	}

	result := make([]domain.Observation, 0, len(points))
	for _, o := range points {
		if keep(o) {
			result = append(result, o)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})

	return &domain.TimeSeries{Name: name, Points: result}, nil
}

// ListNames returns the stored series names, sorted ASC.
func (s *SeriesStore) ListNames(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.data))
	for name, points := range s.data {
		if len(points) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// LatestTimestamp returns the newest observation timestamp of a series.
func (s *SeriesStore) LatestTimestamp(_ context.Context, name string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	points, ok := s.data[name]
	if !ok || len(points) == 0 {
		return time.Time{}, storage.ErrNotFound
	}

	var latest time.Time
	for _, o := range points {
		if o.Timestamp.After(latest) {
			latest = o.Timestamp
		}
	}
	return latest, nil
}

var _ storage.SeriesStore = (*SeriesStore)(nil)
