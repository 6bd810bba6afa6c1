package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"macro-risk-lab/internal/domain"
)

// DefaultFREDBaseURL is the FRED API root.
const DefaultFREDBaseURL = "https://api.stlouisfed.org/fred"

// ErrMissingAPIKey is returned when the FRED client has no API key.
var ErrMissingAPIKey = errors.New("fred: api key not configured")

// FREDClient fetches series observations from the FRED API.
type FREDClient struct {
	httpGetter
	baseURL string
	apiKey  string
}

// NewFREDClient creates a FRED client. The API key is sent with every
// request and never logged.
func NewFREDClient(baseURL, apiKey string, opts ...ClientOption) *FREDClient {
	if baseURL == "" {
		baseURL = DefaultFREDBaseURL
	}
	c := &FREDClient{
		httpGetter: newHTTPGetter(),
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
	for _, opt := range opts {
		opt(&c.httpGetter)
	}
	return c
}

type fredResponse struct {
	Observations []fredObservation `json:"observations"`
}

type fredObservation struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}

// Fetch implements Provider.
func (c *FREDClient) Fetch(ctx context.Context, seriesID string) (*domain.TimeSeries, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: %w", domain.ErrProviderUnavailable, ErrMissingAPIKey)
	}

	q := url.Values{}
	q.Set("series_id", seriesID)
	q.Set("api_key", c.apiKey)
	q.Set("file_type", "json")
	if !c.start.IsZero() {
		q.Set("observation_start", c.start.Format(domain.DateLayout))
	}

	body, err := c.get(ctx, c.baseURL+"/series/observations?"+q.Encode())
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: fred %s: %w", domain.ErrProviderUnavailable, seriesID, err)
	}

	var resp fredResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: fred %s: unmarshal response: %w", domain.ErrProviderUnavailable, seriesID, err)
	}

	points, err := parseFREDObservations(resp.Observations)
	if err != nil {
		return nil, fmt.Errorf("%w: fred %s: %w", domain.ErrProviderUnavailable, seriesID, err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: fred %s: no observations", domain.ErrProviderUnavailable, seriesID)
	}

	return domain.NewTimeSeries(seriesID, points), nil
}

// parseFREDObservations converts raw observations. FRED reports missing
// values as ".".
func parseFREDObservations(raw []fredObservation) ([]domain.Observation, error) {
	points := make([]domain.Observation, 0, len(raw))
	for _, o := range raw {
		ts, err := time.Parse(domain.DateLayout, o.Date)
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", o.Date, err)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(o.Value), 64)
		if err != nil {
			points = append(points, domain.MissingObservation(ts))
			continue
		}
		points = append(points, domain.NewObservation(ts, v))
	}
	return points, nil
}

var _ Provider = (*FREDClient)(nil)
