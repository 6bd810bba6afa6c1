package idhash

import (
	"testing"
	"time"

	"macro-risk-lab/internal/domain"
)

func testParams() domain.RunParams {
	return domain.RunParams{
		Target:               "NASDAQ",
		Horizon:              60,
		DrawdownThreshold:    -0.02,
		CorrelationThreshold: 0.5,
		Cutoff:               time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		BoundaryPolicy:       "truncate",
		DecisionThreshold:    0.5,
		MaxIterations:        1000,
		Candidates:           []string{"VIX", "T10Y2Y", "FEDFUNDS"},
	}
}

func testRange() DataRange {
	return DataRange{
		Start: time.Date(2000, 1, 3, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC),
		Rows:  6200,
	}
}

func TestComputeRunID_Determinism(t *testing.T) {
	results := make([]string, 10)
	for i := 0; i < 10; i++ {
		results[i] = ComputeRunID(testParams(), testRange())
	}

	if len(results[0]) != 64 {
		t.Errorf("ComputeRunID() length = %d, want 64", len(results[0]))
	}
	for i := 1; i < len(results); i++ {
		if results[i] != results[0] {
			t.Errorf("Determinism failed: results[%d]=%s != results[0]=%s", i, results[i], results[0])
		}
	}
}

func TestComputeRunID_DifferentInputs(t *testing.T) {
	base := ComputeRunID(testParams(), testRange())

	tests := []struct {
		name   string
		params func(*domain.RunParams)
		rng    func(*DataRange)
	}{
		{"horizon", func(p *domain.RunParams) { p.Horizon = 20 }, nil},
		{"threshold", func(p *domain.RunParams) { p.DrawdownThreshold = -0.05 }, nil},
		{"cutoff", func(p *domain.RunParams) { p.Cutoff = p.Cutoff.AddDate(1, 0, 0) }, nil},
		{"candidate order", func(p *domain.RunParams) { p.Candidates = []string{"T10Y2Y", "VIX", "FEDFUNDS"} }, nil},
		{"policy", func(p *domain.RunParams) { p.BoundaryPolicy = "strict" }, nil},
		{"end date", nil, func(r *DataRange) { r.End = r.End.AddDate(0, 0, 1) }},
		{"rows", nil, func(r *DataRange) { r.Rows++ }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, r := testParams(), testRange()
			if tt.params != nil {
				tt.params(&p)
			}
			if tt.rng != nil {
				tt.rng(&r)
			}
			if got := ComputeRunID(p, r); got == base {
				t.Errorf("changing %s should change the run id", tt.name)
			}
		})
	}
}

func TestComputeRunID_IgnoresTimeOfDay(t *testing.T) {
	r := testRange()
	base := ComputeRunID(testParams(), r)

	r.End = r.End.Add(15 * time.Hour)
	if got := ComputeRunID(testParams(), r); got != base {
		t.Error("run id should depend on the calendar date only")
	}
}

func TestShortID(t *testing.T) {
	id := ComputeRunID(testParams(), testRange())

	short, err := ShortID(id)
	if err != nil {
		t.Fatalf("ShortID() error: %v", err)
	}
	if short == "" || len(short) > 11 {
		t.Errorf("ShortID() = %q, want 1..11 base58 chars", short)
	}

	again, _ := ShortID(id)
	if short != again {
		t.Errorf("ShortID() not deterministic: %s != %s", short, again)
	}

	if _, err := ShortID("not-hex"); err == nil {
		t.Error("expected error for non-hex id")
	}
	if _, err := ShortID("abcd"); err == nil {
		t.Error("expected error for short id")
	}
}
