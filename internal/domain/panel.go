package domain

import (
	"fmt"
	"math"
	"time"
)

// Panel is a date-indexed table of float64 columns. Missing cells are NaN.
// Every column has exactly len(Dates) cells.
type Panel struct {
	Dates   []time.Time          // sorted ascending, unique
	Columns map[string][]float64 // column name -> values aligned with Dates
	Order   []string             // column output order
}

// NewPanel creates an empty panel over the given date axis.
func NewPanel(dates []time.Time) *Panel {
	return &Panel{
		Dates:   dates,
		Columns: make(map[string][]float64),
	}
}

// Len returns the number of rows.
func (p *Panel) Len() int {
	return len(p.Dates)
}

// SetColumn adds or replaces a column. New columns are appended to Order.
func (p *Panel) SetColumn(name string, values []float64) error {
	if len(values) != len(p.Dates) {
		return fmt.Errorf("%w: column %s has %d values, panel has %d rows",
			ErrShapeMismatch, name, len(values), len(p.Dates))
	}
	if _, ok := p.Columns[name]; !ok {
		p.Order = append(p.Order, name)
	}
	p.Columns[name] = values
	return nil
}

// Column returns the values of a column.
func (p *Panel) Column(name string) ([]float64, error) {
	v, ok := p.Columns[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
	}
	return v, nil
}

// HasColumn reports whether the column exists.
func (p *Panel) HasColumn(name string) bool {
	_, ok := p.Columns[name]
	return ok
}

// ColumnNames returns a copy of the column output order.
func (p *Panel) ColumnNames() []string {
	out := make([]string, len(p.Order))
	copy(out, p.Order)
	return out
}

// SelectRows returns a new panel holding the given rows in the given order.
// Values are copied.
func (p *Panel) SelectRows(rows []int) *Panel {
	dates := make([]time.Time, len(rows))
	for i, r := range rows {
		dates[i] = p.Dates[r]
	}
	out := NewPanel(dates)
	for _, name := range p.Order {
		src := p.Columns[name]
		dst := make([]float64, len(rows))
		for i, r := range rows {
			dst[i] = src[r]
		}
		out.Columns[name] = dst
		out.Order = append(out.Order, name)
	}
	return out
}

// Clone returns a deep copy.
func (p *Panel) Clone() *Panel {
	rows := make([]int, p.Len())
	for i := range rows {
		rows[i] = i
	}
	return p.SelectRows(rows)
}

// Matrix returns the rows of the given columns as a row-major matrix.
func (p *Panel) Matrix(columns []string) ([][]float64, error) {
	cols := make([][]float64, len(columns))
	for j, name := range columns {
		v, err := p.Column(name)
		if err != nil {
			return nil, err
		}
		cols[j] = v
	}
	out := make([][]float64, p.Len())
	for i := range out {
		row := make([]float64, len(columns))
		for j := range columns {
			row[j] = cols[j][i]
		}
		out[i] = row
	}
	return out, nil
}

// CompleteRows returns indices of rows where every listed column is not NaN.
func (p *Panel) CompleteRows(columns []string) ([]int, error) {
	cols := make([][]float64, len(columns))
	for j, name := range columns {
		v, err := p.Column(name)
		if err != nil {
			return nil, err
		}
		cols[j] = v
	}
	var rows []int
	for i := 0; i < p.Len(); i++ {
		complete := true
		for _, c := range cols {
			if math.IsNaN(c[i]) {
				complete = false
				break
			}
		}
		if complete {
			rows = append(rows, i)
		}
	}
	return rows, nil
}

// Series converts a panel column back into a TimeSeries. NaN cells become
// missing observations.
func (p *Panel) Series(name string) (*TimeSeries, error) {
	v, err := p.Column(name)
	if err != nil {
		return nil, err
	}
	points := make([]Observation, len(v))
	for i, x := range v {
		points[i] = NewObservation(p.Dates[i], x)
	}
	return &TimeSeries{Name: name, Points: points}, nil
}
