package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
	DefaultRateLimit   = 2.0 // requests per second
)

// DefaultStart is the first date requested from providers.
var DefaultStart = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// errPermanent marks responses that must not be retried.
var errPermanent = errors.New("permanent failure")

// httpGetter performs GET requests with rate limiting, retries and
// exponential backoff.
type httpGetter struct {
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	limiter     *rate.Limiter
	start       time.Time
	userAgent   string
}

func newHTTPGetter() httpGetter {
	return httpGetter{
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
		limiter:     rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		start:       DefaultStart,
		userAgent:   "macro-risk-lab/1.0",
	}
}

// ClientOption configures the HTTP providers.
type ClientOption func(*httpGetter)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(g *httpGetter) {
		g.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(g *httpGetter) {
		g.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(g *httpGetter) {
		g.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(g *httpGetter) {
		g.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(g *httpGetter) {
		g.client = client
	}
}

// WithRateLimit sets the request rate in requests per second.
// A non-positive value disables limiting.
func WithRateLimit(perSecond float64) ClientOption {
	return func(g *httpGetter) {
		if perSecond <= 0 {
			g.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		g.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithStart sets the first observation date requested.
func WithStart(t time.Time) ClientOption {
	return func(g *httpGetter) {
		g.start = t.UTC()
	}
}

// get fetches u and returns the body of a 200 response.
func (g *httpGetter) get(ctx context.Context, u string) ([]byte, error) {
	delay := g.retryDelay
	var lastErr error

	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * g.backoffMult)
			if delay > g.maxDelay {
				delay = g.maxDelay
			}
		}

		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", g.userAgent)

		resp, err := g.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("http request: %w", redact(err))
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		// Handle rate limiting
		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("unexpected status %d", resp.StatusCode)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			// Client errors are not retried
			return nil, fmt.Errorf("%w: status %d: %s", errPermanent, resp.StatusCode, truncate(body, 200))
		}

		return body, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// redact strips the request URL, which may carry credentials, from
// transport errors.
func redact(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Err
	}
	return err
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
