package ingestion

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"macro-risk-lab/internal/domain"
)

func TestYahooClient_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v8/finance/chart/^IXIC" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("interval") != "1d" {
			t.Errorf("expected daily interval")
		}
		// 2024-01-02 and 2024-01-03 14:30 UTC, New York offset -5h
		w.Write([]byte(`{"chart":{"result":[{
			"meta":{"symbol":"^IXIC","gmtoffset":-18000},
			"timestamp":[1704205800,1704292200,1704378600],
			"indicators":{"quote":[{"close":[14765.9,14592.2,null]}]}
		}],"error":null}}`))
	}))
	defer server.Close()

	client := NewYahooClient(server.URL, WithRateLimit(0))
	s, err := client.Fetch(context.Background(), "^IXIC")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if s.Len() != 3 {
		t.Fatalf("expected 3 points, got %d", s.Len())
	}
	want := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	if !s.Points[0].Timestamp.Equal(want) {
		t.Errorf("expected first date %v, got %v", want, s.Points[0].Timestamp)
	}
	if s.Points[1].Value != 14592.2 {
		t.Errorf("expected 14592.2, got %v", s.Points[1].Value)
	}
	if s.Points[2].Valid {
		t.Errorf("expected null close to be missing")
	}
}

func TestYahooClient_ChartError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
	}))
	defer server.Close()

	client := NewYahooClient(server.URL, WithRateLimit(0))
	_, err := client.Fetch(context.Background(), "^NOPE")
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got %v", err)
	}
}
