package ingestion

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"macro-risk-lab/internal/domain"
)

func TestFREDClient_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/series/observations" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("series_id") != "CPIAUCSL" {
			t.Errorf("expected series_id CPIAUCSL, got %s", q.Get("series_id"))
		}
		if q.Get("api_key") != "test-key" {
			t.Errorf("expected api key to be sent")
		}
		if q.Get("file_type") != "json" {
			t.Errorf("expected file_type json, got %s", q.Get("file_type"))
		}
		if q.Get("observation_start") != "2000-01-01" {
			t.Errorf("expected observation_start 2000-01-01, got %s", q.Get("observation_start"))
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"observations":[
			{"date":"2020-02-01","value":"259.0"},
			{"date":"2020-01-01","value":"258.7"},
			{"date":"2020-03-01","value":"."}
		]}`))
	}))
	defer server.Close()

	client := NewFREDClient(server.URL, "test-key", WithRateLimit(0))
	s, err := client.Fetch(context.Background(), "CPIAUCSL")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if s.Len() != 3 {
		t.Fatalf("expected 3 points, got %d", s.Len())
	}
	if !s.Points[0].Timestamp.Equal(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected sorted points, first is %v", s.Points[0].Timestamp)
	}
	if s.Points[0].Value != 258.7 {
		t.Errorf("expected 258.7, got %v", s.Points[0].Value)
	}
	if s.Points[2].Valid {
		t.Errorf("expected '.' to be a missing observation")
	}
	if s.ValidCount() != 2 {
		t.Errorf("expected 2 valid points, got %d", s.ValidCount())
	}
}

func TestFREDClient_MissingAPIKey(t *testing.T) {
	client := NewFREDClient("http://unused", "")
	_, err := client.Fetch(context.Background(), "GDP")
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestFREDClient_RetryOn429(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"observations":[{"date":"2020-01-01","value":"1"}]}`))
	}))
	defer server.Close()

	client := NewFREDClient(server.URL, "k",
		WithRateLimit(0),
		WithRetryDelay(time.Millisecond),
		WithMaxDelay(5*time.Millisecond))

	s, err := client.Fetch(context.Background(), "GDP")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 point, got %d", s.Len())
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
}

func TestFREDClient_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error_message":"Bad Request. The series does not exist."}`))
	}))
	defer server.Close()

	client := NewFREDClient(server.URL, "secret-key", WithRateLimit(0), WithRetryDelay(time.Millisecond))
	_, err := client.Fetch(context.Background(), "NOPE")
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
	if strings.Contains(err.Error(), "secret-key") {
		t.Errorf("error leaks api key: %v", err)
	}
}

func TestFREDClient_MaxRetriesExceeded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewFREDClient(server.URL, "k",
		WithRateLimit(0),
		WithMaxRetries(2),
		WithRetryDelay(time.Millisecond))

	_, err := client.Fetch(context.Background(), "GDP")
	if err == nil || !strings.Contains(err.Error(), "max retries exceeded") {
		t.Errorf("expected max retries error, got %v", err)
	}
}

func TestRedact_StripsURL(t *testing.T) {
	client := NewFREDClient("http://127.0.0.1:1", "secret-key",
		WithRateLimit(0), WithMaxRetries(0), WithTimeout(100*time.Millisecond))
	_, err := client.Fetch(context.Background(), "GDP")
	if err == nil {
		t.Fatal("expected connection error")
	}
	if strings.Contains(err.Error(), "secret-key") {
		t.Errorf("error leaks api key: %v", err)
	}
}
