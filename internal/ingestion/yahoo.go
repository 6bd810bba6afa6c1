package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"macro-risk-lab/internal/domain"
)

// DefaultYahooBaseURL is the Yahoo Finance chart API root.
const DefaultYahooBaseURL = "https://query1.finance.yahoo.com"

// YahooClient fetches daily closing prices from the Yahoo Finance chart API.
type YahooClient struct {
	httpGetter
	baseURL string
	now     func() time.Time
}

// NewYahooClient creates a Yahoo Finance client.
func NewYahooClient(baseURL string, opts ...ClientOption) *YahooClient {
	if baseURL == "" {
		baseURL = DefaultYahooBaseURL
	}
	c := &YahooClient{
		httpGetter: newHTTPGetter(),
		baseURL:    strings.TrimRight(baseURL, "/"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(&c.httpGetter)
	}
	return c
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol    string `json:"symbol"`
		GMTOffset int64  `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

// Fetch implements Provider. Prices are daily closes keyed by exchange-local date.
func (c *YahooClient) Fetch(ctx context.Context, symbol string) (*domain.TimeSeries, error) {
	q := url.Values{}
	q.Set("period1", strconv.FormatInt(c.start.Unix(), 10))
	q.Set("period2", strconv.FormatInt(c.now().Unix(), 10))
	q.Set("interval", "1d")

	u := c.baseURL + "/v8/finance/chart/" + url.PathEscape(symbol) + "?" + q.Encode()
	body, err := c.get(ctx, u)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: yahoo %s: %w", domain.ErrProviderUnavailable, symbol, err)
	}

	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: yahoo %s: unmarshal response: %w", domain.ErrProviderUnavailable, symbol, err)
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("%w: yahoo %s: %s: %s", domain.ErrProviderUnavailable, symbol,
			resp.Chart.Error.Code, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w: yahoo %s: empty chart", domain.ErrProviderUnavailable, symbol)
	}

	r := resp.Chart.Result[0]
	closes := r.Indicators.Quote[0].Close
	if len(closes) != len(r.Timestamp) {
		return nil, fmt.Errorf("%w: yahoo %s: %d timestamps, %d closes",
			domain.ErrProviderUnavailable, symbol, len(r.Timestamp), len(closes))
	}

	// Intraday updates can repeat the last date; keep the latest value.
	byDate := make(map[time.Time]int, len(r.Timestamp))
	points := make([]domain.Observation, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		local := time.Unix(ts+r.Meta.GMTOffset, 0).UTC()
		date := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)

		obs := domain.MissingObservation(date)
		if closes[i] != nil {
			obs = domain.NewObservation(date, *closes[i])
		}
		if j, ok := byDate[date]; ok {
			points[j] = obs
			continue
		}
		byDate[date] = len(points)
		points = append(points, obs)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: yahoo %s: no observations", domain.ErrProviderUnavailable, symbol)
	}

	return domain.NewTimeSeries(symbol, points), nil
}

var _ Provider = (*YahooClient)(nil)
