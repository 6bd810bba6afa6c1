package pipeline

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"macro-risk-lab/internal/domain"
	"macro-risk-lab/internal/labeling"
	"macro-risk-lab/internal/storage"
)

// FixtureOptions controls the synthetic data set.
type FixtureOptions struct {
	Start   time.Time
	Days    int // business days of daily data
	Horizon int // forward window the VIX proxy reacts to
	Seed    int64
}

// DefaultFixtureOptions returns six years of business days from 2012.
func DefaultFixtureOptions() FixtureOptions {
	return FixtureOptions{
		Start:   time.Date(2012, 1, 2, 0, 0, 0, 0, time.UTC),
		Days:    1560,
		Horizon: 60,
		Seed:    7,
	}
}

// regimeLength is the number of business days per volatility regime.
const regimeLength = 120

// GenerateFixtures builds deterministic series under canonical names.
// The index alternates calm and turbulent regimes; VIX and T10Y2Y track
// the regime, so they correlate with the forward drawdown. The remaining
// series follow slow trends on monthly or quarterly calendars.
func GenerateFixtures(opts FixtureOptions) map[string]*domain.TimeSeries {
	rng := rand.New(rand.NewSource(opts.Seed))

	days := businessDays(opts.Start, opts.Days)
	prices := make([]float64, len(days))
	vols := make([]float64, len(days))
	price := 1000.0
	for i := range days {
		drift, vol := 0.0015, 0.004
		if (i/regimeLength)%2 == 1 {
			drift, vol = -0.001, 0.015
		}
		price *= 1 + drift + vol*rng.NormFloat64()
		prices[i] = price
		vols[i] = vol
	}
	fwd := labeling.ForwardDrawdown(prices, opts.Horizon, labeling.Truncate)

	daily := func(name string, f func(i int) float64, missingEvery int) *domain.TimeSeries {
		s := &domain.TimeSeries{Name: name}
		for i, d := range days {
			if missingEvery > 0 && i%missingEvery == missingEvery-1 {
				s.Points = append(s.Points, domain.MissingObservation(d))
				continue
			}
			s.Points = append(s.Points, domain.NewObservation(d, f(i)))
		}
		return s
	}

	out := make(map[string]*domain.TimeSeries)
	out["NASDAQ"] = daily("NASDAQ", func(i int) float64 { return round2(prices[i]) }, 0)
	out["VIX"] = daily("VIX", func(i int) float64 {
		return round2(10 + 1500*vols[i] - 200*fwd[i] + rng.NormFloat64())
	}, 0)
	out["T10Y2Y"] = daily("T10Y2Y", func(i int) float64 {
		return round2(1.5 - 60*vols[i] + 0.1*rng.NormFloat64())
	}, 0)
	out["DGS10"] = daily("DGS10", func(i int) float64 {
		return round2(2.5 + 0.0005*float64(i) + 0.05*rng.NormFloat64())
	}, 50)
	out["DGS3MO"] = daily("DGS3MO", func(i int) float64 {
		return round2(0.5 + 0.001*float64(i) + 0.02*rng.NormFloat64())
	}, 50)

	end := days[len(days)-1]
	months := calendar(opts.Start, end, 1)
	quarters := calendar(opts.Start, end, 3)

	slow := func(name string, dates []time.Time, base, step, noise float64) {
		s := &domain.TimeSeries{Name: name}
		for i, d := range dates {
			s.Points = append(s.Points, domain.NewObservation(d, round2(base+step*float64(i)+noise*rng.NormFloat64())))
		}
		out[name] = s
	}
	slow("CPI", months, 230, 0.4, 0.2)
	slow("UNRATE", months, 8, -0.05, 0.1)
	slow("FEDFUNDS", months, 0.1, 0.02, 0.01)
	slow("INDPRO", months, 95, 0.1, 0.5)
	slow("RSAFS", months, 400000, 900, 1500)
	slow("HOUST", months, 700, 8, 30)
	slow("GDP", quarters, 16000, 150, 40)

	return out
}

// LoadFixtures stores the generated series.
func LoadFixtures(ctx context.Context, store storage.SeriesStore, opts FixtureOptions) error {
	series := GenerateFixtures(opts)

	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := store.InsertBulk(ctx, name, series[name].Points); err != nil {
			return fmt.Errorf("load fixture %s: %w", name, err)
		}
	}
	return nil
}

func businessDays(start time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	for d := start; len(out) < n; d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			out = append(out, d)
		}
	}
	return out
}

// calendar returns the first day of every stepMonths-th month in [start, end].
func calendar(start, end time.Time, stepMonths int) []time.Time {
	var out []time.Time
	for d := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC); !d.After(end); d = d.AddDate(0, stepMonths, 0) {
		out = append(out, d)
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
