package labeling

import (
	"errors"
	"math"
	"testing"
	"time"

	"macro-risk-lab/internal/domain"
)

const eps = 1e-12

func TestForwardDrawdown_Example(t *testing.T) {
	prices := []float64{100, 100, 90, 80, 95, 95}

	fwd := ForwardDrawdown(prices, 3, Truncate)
	labels := Labels(fwd, -0.02)

	// t=0: window [100,100,90] -> 90/100 - 1 = -0.10
	if math.Abs(fwd[0]-(-0.10)) > eps {
		t.Errorf("fwd[0]: expected -0.10, got %v", fwd[0])
	}
	if labels[0] != 1 {
		t.Errorf("label[0]: expected 1, got %v", labels[0])
	}

	// t=3: window [80,95,95] -> 80/80 - 1 = 0
	if math.Abs(fwd[3]) > eps {
		t.Errorf("fwd[3]: expected 0, got %v", fwd[3])
	}
	if labels[3] != 0 {
		t.Errorf("label[3]: expected 0, got %v", labels[3])
	}
}

func TestForwardDrawdown_NeverPositive(t *testing.T) {
	prices := []float64{10, 11, 12, 13, 9, 20, 21}
	for _, policy := range []BoundaryPolicy{Truncate, Strict} {
		for i, d := range ForwardDrawdown(prices, 3, policy) {
			if d > 0 {
				t.Errorf("%s: fwd[%d] = %v > 0", policy, i, d)
			}
		}
	}
}

func TestForwardDrawdown_BoundaryPolicies(t *testing.T) {
	prices := []float64{100, 100, 90, 80, 95, 95}

	truncated := ForwardDrawdown(prices, 3, Truncate)
	for i, d := range truncated {
		if math.IsNaN(d) {
			t.Errorf("truncate: fwd[%d] is NaN", i)
		}
	}
	// Last row window is [95] alone
	if truncated[5] != 0 {
		t.Errorf("truncate: fwd[5] expected 0, got %v", truncated[5])
	}

	strict := ForwardDrawdown(prices, 3, Strict)
	for i := 0; i <= 3; i++ {
		if math.IsNaN(strict[i]) {
			t.Errorf("strict: fwd[%d] should be defined", i)
		}
	}
	for i := 4; i < 6; i++ {
		if !math.IsNaN(strict[i]) {
			t.Errorf("strict: fwd[%d] expected NaN, got %v", i, strict[i])
		}
	}

	labels := Labels(strict, -0.02)
	if !math.IsNaN(labels[5]) {
		t.Errorf("strict: label[5] expected NaN, got %v", labels[5])
	}
}

func TestForwardDrawdown_NonPositivePrice(t *testing.T) {
	fwd := ForwardDrawdown([]float64{0, -1, 10, 5}, 2, Truncate)
	if !math.IsNaN(fwd[0]) || !math.IsNaN(fwd[1]) {
		t.Errorf("Expected NaN for non-positive prices, got %v", fwd[:2])
	}
	if math.Abs(fwd[2]-(-0.5)) > eps {
		t.Errorf("fwd[2]: expected -0.5, got %v", fwd[2])
	}
}

func TestForwardDrawdown_HorizonOneIsZero(t *testing.T) {
	for i, d := range ForwardDrawdown([]float64{3, 1, 2}, 1, Strict) {
		if d != 0 {
			t.Errorf("fwd[%d]: expected 0 for H=1, got %v", i, d)
		}
	}
}

func TestRollingDrawdown(t *testing.T) {
	prices := []float64{100, 110, 99, 120}

	rd := RollingDrawdown(prices, 2)

	if !math.IsNaN(rd[0]) {
		t.Errorf("rd[0]: expected NaN, got %v", rd[0])
	}
	if rd[1] != 0 {
		t.Errorf("rd[1]: expected 0, got %v", rd[1])
	}
	// (99 - 110) / 110
	if math.Abs(rd[2]-(-0.1)) > eps {
		t.Errorf("rd[2]: expected -0.1, got %v", rd[2])
	}
	if rd[3] != 0 {
		t.Errorf("rd[3]: expected 0, got %v", rd[3])
	}
}

func TestLabel_AddsColumns(t *testing.T) {
	dates := make([]time.Time, 6)
	for i := range dates {
		dates[i] = time.Date(2024, 1, i+1, 0, 0, 0, 0, time.UTC)
	}
	p := domain.NewPanel(dates)
	_ = p.SetColumn("NASDAQ", []float64{100, 100, 90, 80, 95, 95})

	sum, err := Label(p, Config{Target: "NASDAQ", Horizon: 3, Threshold: -0.02, IncludeRolling: true})
	if err != nil {
		t.Fatalf("Label failed: %v", err)
	}

	if sum.ForwardColumn != "NASDAQ_FwdDrawdown3" {
		t.Errorf("Unexpected forward column %q", sum.ForwardColumn)
	}
	if sum.RollingColumn != "NASDAQ_Drawdown3" {
		t.Errorf("Unexpected rolling column %q", sum.RollingColumn)
	}
	for _, col := range []string{sum.ForwardColumn, sum.RollingColumn, domain.ColumnRiskLabel} {
		if !p.HasColumn(col) {
			t.Errorf("Missing column %s", col)
		}
	}
	if sum.Positives+sum.Negatives+sum.Undefined != 6 {
		t.Errorf("Label counts do not cover all rows: %+v", sum)
	}
}

func TestLabel_Errors(t *testing.T) {
	p := domain.NewPanel([]time.Time{time.Now()})
	_ = p.SetColumn("NASDAQ", []float64{1})

	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"unknown target", Config{Target: "SPX", Horizon: 3, Threshold: -0.02}, domain.ErrMissingColumn},
		{"zero horizon", Config{Target: "NASDAQ", Horizon: 0, Threshold: -0.02}, domain.ErrInvalidParameter},
		{"zero threshold", Config{Target: "NASDAQ", Horizon: 3, Threshold: 0}, domain.ErrInvalidParameter},
		{"positive threshold", Config{Target: "NASDAQ", Horizon: 3, Threshold: 0.1}, domain.ErrInvalidParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Label(p, tt.cfg)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestParseBoundaryPolicy(t *testing.T) {
	if p, err := ParseBoundaryPolicy("STRICT"); err != nil || p != Strict {
		t.Errorf("Expected Strict, got %v %v", p, err)
	}
	if p, err := ParseBoundaryPolicy(""); err != nil || p != Truncate {
		t.Errorf("Expected Truncate default, got %v %v", p, err)
	}
	if _, err := ParseBoundaryPolicy("wrap"); err == nil {
		t.Errorf("Expected error for unknown policy")
	}
}
