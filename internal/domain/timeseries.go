package domain

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Observation is a single (timestamp, value) pair of a series.
// Valid is false when the provider published the date without a value.
type Observation struct {
	Timestamp time.Time // observation date, UTC
	Value     float64   // observed value, meaningless when Valid is false
	Valid     bool      // false for missing values ("." in FRED, NaN in CSV)
}

// NewObservation builds an observation, treating NaN and Inf as missing.
func NewObservation(ts time.Time, value float64) Observation {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Observation{Timestamp: ts.UTC()}
	}
	return Observation{Timestamp: ts.UTC(), Value: value, Valid: true}
}

// MissingObservation builds an observation without a value.
func MissingObservation(ts time.Time) Observation {
	return Observation{Timestamp: ts.UTC()}
}

// TimeSeries is a named, ordered sequence of observations.
type TimeSeries struct {
	Name   string        // canonical series name (panel column)
	Points []Observation // ordered by Timestamp ASC after Sort
}

// NewTimeSeries creates a series and sorts its points.
func NewTimeSeries(name string, points []Observation) *TimeSeries {
	s := &TimeSeries{Name: name, Points: points}
	s.Sort()
	return s
}

// Sort orders points by timestamp. The sort is stable so duplicate
// timestamps keep their input order and can be reported by Validate.
func (s *TimeSeries) Sort() {
	sort.SliceStable(s.Points, func(i, j int) bool {
		return s.Points[i].Timestamp.Before(s.Points[j].Timestamp)
	})
}

// Validate checks that timestamps are strictly increasing.
// Callers must Sort first.
func (s *TimeSeries) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: series without name", ErrMalformedSeries)
	}
	for i := 1; i < len(s.Points); i++ {
		if !s.Points[i].Timestamp.After(s.Points[i-1].Timestamp) {
			return fmt.Errorf("%w: %s has duplicate timestamp %s",
				ErrMalformedSeries, s.Name, s.Points[i].Timestamp.Format(DateLayout))
		}
	}
	return nil
}

// Len returns the number of points, missing ones included.
func (s *TimeSeries) Len() int {
	return len(s.Points)
}

// ValidCount returns the number of points carrying a value.
func (s *TimeSeries) ValidCount() int {
	n := 0
	for _, p := range s.Points {
		if p.Valid {
			n++
		}
	}
	return n
}

// Range returns the first and last timestamps. ok is false for an empty series.
func (s *TimeSeries) Range() (first, last time.Time, ok bool) {
	if len(s.Points) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return s.Points[0].Timestamp, s.Points[len(s.Points)-1].Timestamp, true
}

// After returns the points strictly after ts, preserving order.
func (s *TimeSeries) After(ts time.Time) []Observation {
	idx := sort.Search(len(s.Points), func(i int) bool {
		return s.Points[i].Timestamp.After(ts)
	})
	out := make([]Observation, len(s.Points)-idx)
	copy(out, s.Points[idx:])
	return out
}

// DateLayout is the date format used in CSV files and logs.
const DateLayout = "2006-01-02"
