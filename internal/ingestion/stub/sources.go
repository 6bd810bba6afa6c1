package stub

import (
	"context"
	"fmt"
	"sync"

	"macro-risk-lab/internal/domain"
)

// StubProvider returns fixed in-memory series for testing.
// Implements ingestion.Provider interface.
type StubProvider struct {
	mu     sync.Mutex
	series map[string]*domain.TimeSeries
	calls  map[string]int
}

// NewStubProvider creates a stub provider serving the given series by id.
// Unknown ids fail with domain.ErrProviderUnavailable.
func NewStubProvider(series map[string]*domain.TimeSeries) *StubProvider {
	return &StubProvider{series: series, calls: make(map[string]int)}
}

// Fetch returns a copy of the series registered under id.
func (s *StubProvider) Fetch(ctx context.Context, id string) (*domain.TimeSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[id]++

	ts, ok := s.series[id]
	if !ok {
		return nil, fmt.Errorf("%w: stub has no series %s", domain.ErrProviderUnavailable, id)
	}
	points := make([]domain.Observation, len(ts.Points))
	copy(points, ts.Points)
	return &domain.TimeSeries{Name: id, Points: points}, nil
}

// Calls returns how often id was fetched.
func (s *StubProvider) Calls(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[id]
}
