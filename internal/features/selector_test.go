package features

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macro-risk-lab/internal/domain"
)

func testPanel(t *testing.T, cols map[string][]float64, n int) *domain.Panel {
	t.Helper()
	dates := make([]time.Time, n)
	for i := range dates {
		dates[i] = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
	}
	p := domain.NewPanel(dates)
	for name, v := range cols {
		require.NoError(t, p.SetColumn(name, v))
	}
	return p
}

func TestSelect_AcceptsAboveThreshold(t *testing.T) {
	nan := math.NaN()
	p := testPanel(t, map[string][]float64{
		"target":  {1, 2, 3, 4, 5},
		"strong":  {2, 4, 6, 8, 10},
		"inverse": {5, 4, 3, 2, 1},
		"noise":   {1, -1, 1, -1, 1},
		"flat":    {3, 3, 3, 3, 3},
		"sparse":  {nan, 1, nan, nan, nan},
	}, 5)

	s, err := New(Options{Threshold: DefaultThreshold})
	require.NoError(t, err)

	fs, err := s.Select(context.Background(), p, "target",
		[]string{"noise", "strong", "flat", "inverse", "sparse", "absent"})
	require.NoError(t, err)

	assert.Equal(t, []string{"strong", "inverse"}, fs.Accepted)
	require.Len(t, fs.Table, 6)

	assert.Equal(t, "noise", fs.Table[0].Feature)
	assert.Equal(t, domain.CorrelationRejected, fs.Table[0].Status)

	assert.InDelta(t, 1.0, fs.Table[1].Correlation, 1e-12)
	assert.InDelta(t, -1.0, fs.Table[3].Correlation, 1e-12)

	assert.True(t, fs.Table[2].Undefined, "zero variance is undefined")
	assert.Equal(t, domain.CorrelationUndefined, fs.Table[2].Status)

	assert.True(t, fs.Table[4].Undefined, "single overlapping row is undefined")
	assert.Equal(t, 1, fs.Table[4].Observations)

	assert.Equal(t, domain.CorrelationMissing, fs.Table[5].Status)
	assert.Equal(t, []string{"flat", "sparse", "absent"}, fs.UndefinedFeatures())
}

func TestSelect_PairwiseComplete(t *testing.T) {
	nan := math.NaN()
	p := testPanel(t, map[string][]float64{
		"target": {1, 2, nan, 4, 5},
		"x":      {1, nan, 100, 4, 5},
	}, 5)

	s, err := New(Options{Threshold: DefaultThreshold})
	require.NoError(t, err)

	fs, err := s.Select(context.Background(), p, "target", []string{"x"})
	require.NoError(t, err)

	assert.Equal(t, 3, fs.Table[0].Observations)
	assert.InDelta(t, 1.0, fs.Table[0].Correlation, 1e-12)
}

func TestSelect_Deterministic(t *testing.T) {
	cols := map[string][]float64{"target": {1, 3, 2, 5, 4, 6}}
	var candidates []string
	for i := 0; i < 20; i++ {
		name := string(rune('a' + i))
		v := make([]float64, 6)
		for j := range v {
			v[j] = math.Sin(float64(i*7 + j*3))
		}
		cols[name] = v
		candidates = append(candidates, name)
	}
	p := testPanel(t, cols, 6)

	s, err := New(Options{Threshold: 0.3, Workers: 8})
	require.NoError(t, err)

	first, err := s.Select(context.Background(), p, "target", candidates)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := s.Select(context.Background(), p, "target", candidates)
		require.NoError(t, err)
		if !reflect.DeepEqual(first.Accepted, again.Accepted) {
			t.Fatalf("Accepted set changed between runs: %v vs %v", first.Accepted, again.Accepted)
		}
		for j := range first.Table {
			if first.Table[j].Feature != again.Table[j].Feature ||
				first.Table[j].Correlation != again.Table[j].Correlation {
				t.Fatalf("Table row %d changed between runs", j)
			}
		}
	}
}

func TestSelect_UnknownTarget(t *testing.T) {
	p := testPanel(t, map[string][]float64{"x": {1, 2}}, 2)
	s, err := New(Options{Threshold: DefaultThreshold})
	require.NoError(t, err)

	_, err = s.Select(context.Background(), p, "target", []string{"x"})
	assert.True(t, errors.Is(err, domain.ErrMissingColumn), "got %v", err)
}

func TestSelect_ZeroThresholdIsHonored(t *testing.T) {
	p := testPanel(t, map[string][]float64{
		"target": {1, 2, 3, 4, 5, 6},
		"weak":   {1, 3, -2, 2, 0, 1},
		"flat":   {2, 2, 2, 2, 2, 2},
	}, 6)

	s, err := New(Options{Threshold: 0})
	require.NoError(t, err)

	fs, err := s.Select(context.Background(), p, "target", []string{"weak", "flat"})
	require.NoError(t, err)

	assert.Equal(t, 0.0, fs.Threshold)
	r := fs.Table[0].Correlation
	require.False(t, math.IsNaN(r))
	assert.Less(t, math.Abs(r), DefaultThreshold)
	assert.Equal(t, []string{"weak"}, fs.Accepted)
	assert.Equal(t, domain.CorrelationUndefined, fs.Table[1].Status)
}

func TestNew_InvalidThreshold(t *testing.T) {
	_, err := New(Options{Threshold: 1.5})
	assert.True(t, errors.Is(err, domain.ErrInvalidParameter))

	_, err = New(Options{Threshold: -0.1})
	assert.True(t, errors.Is(err, domain.ErrInvalidParameter))
}

func TestPearson_Errors(t *testing.T) {
	_, err := Pearson([]float64{1}, []float64{2})
	assert.True(t, errors.Is(err, domain.ErrUndefinedCorrelation))
	assert.True(t, errors.Is(err, domain.ErrDataQuality))

	_, err = Pearson([]float64{1, 2}, []float64{2})
	assert.True(t, errors.Is(err, domain.ErrShapeMismatch))
}
