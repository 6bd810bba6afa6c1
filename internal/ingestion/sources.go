// Package ingestion fetches upstream series and stores them.
package ingestion

import (
	"context"

	"macro-risk-lab/internal/domain"
)

// Provider fetches one series by provider identifier.
// Failures wrap domain.ErrProviderUnavailable.
type Provider interface {
	// Fetch returns the full history of the series. The returned series is
	// named by the provider id; Manager renames it to the canonical name.
	Fetch(ctx context.Context, id string) (*domain.TimeSeries, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, id string) (*domain.TimeSeries, error)

// Fetch implements Provider.
func (f ProviderFunc) Fetch(ctx context.Context, id string) (*domain.TimeSeries, error) {
	return f(ctx, id)
}
