package alignment

import (
	"math"
	"sort"
	"time"

	"macro-risk-lab/internal/domain"
)

// FillStats counts how the cells of one aligned column were obtained.
type FillStats struct {
	Native         int // cells carrying an observed value
	ForwardFilled  int // cells copied from the nearest earlier value
	BackwardFilled int // leading cells copied from the first value
	Empty          int // cells left NaN (series without any valid value)
}

// UnionAxis returns the sorted union of all timestamps of the given series.
// Timestamps of missing observations are included.
func UnionAxis(series []*domain.TimeSeries) []time.Time {
	seen := make(map[int64]time.Time)
	for _, s := range series {
		for _, p := range s.Points {
			seen[p.Timestamp.UnixNano()] = p.Timestamp
		}
	}
	axis := make([]time.Time, 0, len(seen))
	for _, ts := range seen {
		axis = append(axis, ts)
	}
	sort.Slice(axis, func(i, j int) bool { return axis[i].Before(axis[j]) })
	return axis
}

// Reindex places the valid observations of s onto axis. Dates without an
// observation, and missing observations, become NaN. s must be sorted.
func Reindex(s *domain.TimeSeries, axis []time.Time) []float64 {
	out := make([]float64, len(axis))
	j := 0
	for i, ts := range axis {
		out[i] = math.NaN()
		for j < len(s.Points) && s.Points[j].Timestamp.Before(ts) {
			j++
		}
		if j < len(s.Points) && s.Points[j].Timestamp.Equal(ts) && s.Points[j].Valid {
			out[i] = s.Points[j].Value
		}
	}
	return out
}

// Fill applies forward fill, then backward fill, in place.
// A column with no values is left untouched.
func Fill(values []float64) FillStats {
	var st FillStats

	last := math.NaN()
	firstValid := -1
	for i, v := range values {
		if !math.IsNaN(v) {
			st.Native++
			last = v
			if firstValid < 0 {
				firstValid = i
			}
			continue
		}
		if !math.IsNaN(last) {
			values[i] = last
			st.ForwardFilled++
		}
	}

	if firstValid < 0 {
		st.Empty = len(values)
		return st
	}

	// Only the leading gap is still NaN after forward fill.
	for i := 0; i < firstValid; i++ {
		values[i] = values[firstValid]
		st.BackwardFilled++
	}
	return st
}
