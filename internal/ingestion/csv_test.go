package ingestion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"macro-risk-lab/internal/domain"
)

func TestReadObservationsCSV_FREDLayout(t *testing.T) {
	in := "date,value\n2020-01-01,1.5\n2020-02-01,\n2020-03-01,2.5\n"

	points, err := ReadObservationsCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadObservationsCSV: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}
	if points[1].Valid {
		t.Errorf("expected empty value to be missing")
	}
	if points[2].Value != 2.5 {
		t.Errorf("expected 2.5, got %v", points[2].Value)
	}
}

func TestReadObservationsCSV_YahooLayout(t *testing.T) {
	in := "Date,Close\n2000-01-03 00:00:00-05:00,4131.15\n2000-01-04 00:00:00-05:00,3901.69\n"

	points, err := ReadObservationsCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadObservationsCSV: %v", err)
	}
	want := time.Date(2000, 1, 3, 0, 0, 0, 0, time.UTC)
	if !points[0].Timestamp.Equal(want) {
		t.Errorf("expected %v, got %v", want, points[0].Timestamp)
	}
	if points[1].Value != 3901.69 {
		t.Errorf("expected 3901.69, got %v", points[1].Value)
	}
}

func TestReadObservationsCSV_Errors(t *testing.T) {
	if _, err := ReadObservationsCSV(strings.NewReader("a,b\n1,2\n")); err == nil {
		t.Error("expected error without date column")
	}
	if _, err := ReadObservationsCSV(strings.NewReader("date,value\nnot-a-date,1\n")); err == nil {
		t.Error("expected error for bad date")
	}
}

func TestCSVProvider_FallbackToCanonicalName(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "CPI.csv"), []byte("date,value\n2020-01-01,1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := NewCSVProvider(dir)
	s, err := p.Fetch(context.Background(), "CPIAUCSL")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 point, got %d", s.Len())
	}

	_, err = p.Fetch(context.Background(), "GDP")
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable for missing file, got %v", err)
	}
}

func TestDumpCSV_ReadableByProvider(t *testing.T) {
	dir := t.TempDir()
	d := func(day int) time.Time { return time.Date(2021, 3, day, 0, 0, 0, 0, time.UTC) }
	series := map[string]*domain.TimeSeries{
		"VIX": domain.NewTimeSeries("VIX", []domain.Observation{
			domain.NewObservation(d(1), 21.5),
			domain.MissingObservation(d(2)),
			domain.NewObservation(d(3), 19.25),
		}),
	}

	paths, err := DumpCSV(dir, series)
	if err != nil {
		t.Fatalf("DumpCSV: %v", err)
	}
	if len(paths) != 1 || filepath.Base(paths[0]) != "VIX.csv" {
		t.Fatalf("unexpected paths %v", paths)
	}

	got, err := NewCSVProvider(dir).Fetch(context.Background(), "VIXCLS")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got.Len() != 3 {
		t.Fatalf("expected 3 points, got %d", got.Len())
	}
	if got.Points[1].Valid {
		t.Errorf("expected missing value to survive the dump")
	}
	if got.Points[2].Value != 19.25 {
		t.Errorf("expected 19.25, got %v", got.Points[2].Value)
	}
}
