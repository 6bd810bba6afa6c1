package ingestion

import (
	"context"
	"errors"
	"testing"
	"time"

	"macro-risk-lab/internal/domain"
	"macro-risk-lab/internal/ingestion/stub"
	"macro-risk-lab/internal/storage/memory"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func stubSeries(id string, days ...int) *domain.TimeSeries {
	points := make([]domain.Observation, len(days))
	for i, d := range days {
		points[i] = domain.NewObservation(day(d), float64(d))
	}
	return &domain.TimeSeries{Name: id, Points: points}
}

func TestManager_FetchAll_SkipsUnavailable(t *testing.T) {
	fred := stub.NewStubProvider(map[string]*domain.TimeSeries{
		"CPIAUCSL": stubSeries("CPIAUCSL", 3, 1, 2),
		"VIXCLS":   stubSeries("VIXCLS", 1),
	})

	mgr := NewManager(ManagerOptions{
		Providers: map[domain.Source]Provider{domain.SourceFRED: fred},
	})

	specs := []domain.SeriesSpec{
		{ID: "CPIAUCSL", Name: "CPI", Source: domain.SourceFRED},
		{ID: "GDP", Name: "GDP", Source: domain.SourceFRED},
		{ID: "VIXCLS", Name: "VIX", Source: domain.SourceFRED},
		{ID: "^IXIC", Name: "NASDAQ", Source: domain.SourceYahoo}, // no provider
	}

	res, err := mgr.FetchAll(context.Background(), specs)
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}

	names := res.Names()
	if len(names) != 2 || names[0] != "CPI" || names[1] != "VIX" {
		t.Errorf("Expected [CPI VIX], got %v", names)
	}
	if len(res.Failures) != 2 {
		t.Fatalf("Expected 2 failures, got %d", len(res.Failures))
	}
	if res.Failures[0].Spec.Name != "GDP" || res.Failures[1].Spec.Name != "NASDAQ" {
		t.Errorf("Failures not in input order: %+v", res.Failures)
	}
	for _, f := range res.Failures {
		if !errors.Is(f.Err, domain.ErrProviderUnavailable) {
			t.Errorf("Expected ErrProviderUnavailable for %s, got %v", f.Spec.Name, f.Err)
		}
	}

	cpi := res.Series["CPI"]
	if cpi.Name != "CPI" {
		t.Errorf("Expected canonical name CPI, got %s", cpi.Name)
	}
	if !cpi.Points[0].Timestamp.Equal(day(1)) {
		t.Errorf("Expected sorted series")
	}
}

func TestManager_FetchAll_ContextCancelled(t *testing.T) {
	fred := stub.NewStubProvider(map[string]*domain.TimeSeries{"GDP": stubSeries("GDP", 1)})
	mgr := NewManager(ManagerOptions{
		Providers: map[domain.Source]Provider{domain.SourceFRED: fred},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mgr.FetchAll(ctx, []domain.SeriesSpec{{ID: "GDP", Name: "GDP", Source: domain.SourceFRED}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestManager_FetchAll_MalformedSeries(t *testing.T) {
	dup := &domain.TimeSeries{Name: "GDP", Points: []domain.Observation{
		domain.NewObservation(day(1), 1),
		domain.NewObservation(day(1), 2),
	}}
	fred := stub.NewStubProvider(map[string]*domain.TimeSeries{"GDP": dup})
	mgr := NewManager(ManagerOptions{
		Providers: map[domain.Source]Provider{domain.SourceFRED: fred},
	})

	res, err := mgr.FetchAll(context.Background(), []domain.SeriesSpec{{ID: "GDP", Name: "GDP", Source: domain.SourceFRED}})
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if len(res.Failures) != 1 || !errors.Is(res.Failures[0].Err, domain.ErrMalformedSeries) {
		t.Errorf("Expected malformed series failure, got %+v", res.Failures)
	}
}

func TestManager_Ingest_Incremental(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSeriesStore()

	first := stub.NewStubProvider(map[string]*domain.TimeSeries{"VIXCLS": stubSeries("VIXCLS", 1, 2)})
	specs := []domain.SeriesSpec{{ID: "VIXCLS", Name: "VIX", Source: domain.SourceFRED}}

	mgr := NewManager(ManagerOptions{
		Providers: map[domain.Source]Provider{domain.SourceFRED: first},
		Store:     store,
	})
	res, err := mgr.Ingest(ctx, specs)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if res.Stored["VIX"] != 2 {
		t.Errorf("Expected 2 stored, got %d", res.Stored["VIX"])
	}

	// Provider now returns full history plus one new day; only the new day is stored
	second := stub.NewStubProvider(map[string]*domain.TimeSeries{"VIXCLS": stubSeries("VIXCLS", 1, 2, 3)})
	mgr = NewManager(ManagerOptions{
		Providers: map[domain.Source]Provider{domain.SourceFRED: second},
		Store:     store,
	})
	res, err = mgr.Ingest(ctx, specs)
	if err != nil {
		t.Fatalf("Second ingest failed: %v", err)
	}
	if res.Stored["VIX"] != 1 {
		t.Errorf("Expected 1 new observation, got %d", res.Stored["VIX"])
	}

	s, err := store.GetByName(ctx, "VIX")
	if err != nil {
		t.Fatalf("GetByName failed: %v", err)
	}
	if s.Len() != 3 {
		t.Errorf("Expected 3 stored observations, got %d", s.Len())
	}
}

func TestManager_Ingest_RequiresStore(t *testing.T) {
	mgr := NewManager(ManagerOptions{})
	if _, err := mgr.Ingest(context.Background(), nil); err == nil {
		t.Error("Expected error without store")
	}
}
