// Package labeling derives the forward-looking tail-risk label from prices.
package labeling

import (
	"fmt"
	"math"
	"strings"

	"macro-risk-lab/internal/domain"
)

// BoundaryPolicy selects how the last H-1 rows are labeled, where the
// forward window runs past the end of the data.
type BoundaryPolicy int

const (
	// Truncate shrinks the window to the rows that exist.
	Truncate BoundaryPolicy = iota
	// Strict leaves rows without a full window undefined (NaN).
	Strict
)

// String returns the string representation of BoundaryPolicy.
func (p BoundaryPolicy) String() string {
	switch p {
	case Strict:
		return "strict"
	default:
		return "truncate"
	}
}

// ParseBoundaryPolicy parses "truncate" or "strict".
func ParseBoundaryPolicy(s string) (BoundaryPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "truncate":
		return Truncate, nil
	case "strict":
		return Strict, nil
	default:
		return Truncate, fmt.Errorf("%w: unknown boundary policy %q", domain.ErrInvalidParameter, s)
	}
}

// ForwardDrawdown computes min(price[t..t+h-1]) / price[t] - 1 for every t.
// The value is never positive since the window includes price[t].
// Rows with a non-positive or missing price[t] are NaN. Missing prices
// inside the window are ignored.
func ForwardDrawdown(prices []float64, h int, policy BoundaryPolicy) []float64 {
	n := len(prices)
	out := make([]float64, n)
	for t := 0; t < n; t++ {
		out[t] = math.NaN()

		end := t + h
		if end > n {
			if policy == Strict {
				continue
			}
			end = n
		}

		base := prices[t]
		if math.IsNaN(base) || base <= 0 {
			continue
		}

		low := base
		for _, p := range prices[t:end] {
			if !math.IsNaN(p) && p < low {
				low = p
			}
		}
		out[t] = low/base - 1
	}
	return out
}

// RollingDrawdown computes (price[t] - max(price[t-h+1..t])) / max(...),
// the drawdown from the trailing peak. The first h-1 rows are NaN.
// It looks backwards only and is suitable as a feature, never as the label.
func RollingDrawdown(prices []float64, h int) []float64 {
	n := len(prices)
	out := make([]float64, n)
	for t := 0; t < n; t++ {
		out[t] = math.NaN()
		if t < h-1 || math.IsNaN(prices[t]) {
			continue
		}

		peak := math.Inf(-1)
		for _, p := range prices[t-h+1 : t+1] {
			if !math.IsNaN(p) && p > peak {
				peak = p
			}
		}
		if peak <= 0 {
			continue
		}
		out[t] = (prices[t] - peak) / peak
	}
	return out
}

// Labels maps forward drawdowns to 1 where drawdown <= threshold, else 0.
// Undefined drawdowns produce undefined labels.
func Labels(drawdowns []float64, threshold float64) []float64 {
	out := make([]float64, len(drawdowns))
	for i, d := range drawdowns {
		switch {
		case math.IsNaN(d):
			out[i] = math.NaN()
		case d <= threshold:
			out[i] = 1
		default:
			out[i] = 0
		}
	}
	return out
}
