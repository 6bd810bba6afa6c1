// Package split partitions a panel by time without shuffling.
package split

import (
	"fmt"
	"math"
	"time"

	"macro-risk-lab/internal/domain"
)

// ByCutoff puts rows dated strictly before cutoff in the train panel and
// rows at or after cutoff in the test panel. Row order is preserved and
// every row lands in exactly one side. An empty side is ErrDegenerateSplit.
func ByCutoff(p *domain.Panel, cutoff time.Time) (*domain.Split, error) {
	train, test := Indices(p.Dates, cutoff)
	if len(train) == 0 || len(test) == 0 {
		return nil, fmt.Errorf("split at %s: %w: train=%d test=%d",
			cutoff.Format(domain.DateLayout), domain.ErrDegenerateSplit, len(train), len(test))
	}
	return &domain.Split{
		Train:  p.SelectRows(train),
		Test:   p.SelectRows(test),
		Cutoff: cutoff,
	}, nil
}

// Indices returns the row indices on each side of cutoff. dates must be
// sorted ascending.
func Indices(dates []time.Time, cutoff time.Time) (train, test []int) {
	for i, d := range dates {
		if d.Before(cutoff) {
			train = append(train, i)
		} else {
			test = append(test, i)
		}
	}
	return train, test
}

// DropUndefinedLabels returns a copy of p without the rows where column is NaN.
func DropUndefinedLabels(p *domain.Panel, column string) (*domain.Panel, int, error) {
	v, err := p.Column(column)
	if err != nil {
		return nil, 0, err
	}
	rows := make([]int, 0, len(v))
	for i, y := range v {
		if !math.IsNaN(y) {
			rows = append(rows, i)
		}
	}
	return p.SelectRows(rows), len(v) - len(rows), nil
}
