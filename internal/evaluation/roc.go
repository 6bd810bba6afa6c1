// Package evaluation scores predicted probabilities against realized labels.
package evaluation

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/integrate"

	"macro-risk-lab/internal/domain"
)

// DefaultDecisionThreshold is the probability above which a sample is
// predicted positive.
const DefaultDecisionThreshold = 0.5

// ROC computes the receiver operating characteristic curve. Each point's
// threshold t classifies p > t as positive. The curve starts at (0, 0)
// with threshold +Inf, adds one point per distinct probability in
// descending order and ends at (1, 1) with threshold -Inf.
// Labels containing a single class yield ErrUndefinedAUC.
func ROC(labels, probs []float64) ([]domain.ROCPoint, error) {
	pos, err := validate(labels, probs)
	if err != nil {
		return nil, fmt.Errorf("roc: %w", err)
	}
	neg := len(labels) - pos
	if pos == 0 || neg == 0 {
		return nil, fmt.Errorf("roc: %w: %d positive, %d negative", domain.ErrUndefinedAUC, pos, neg)
	}

	order := make([]int, len(probs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return probs[order[a]] > probs[order[b]] })

	points := []domain.ROCPoint{{FPR: 0, TPR: 0, Threshold: math.Inf(1)}}
	var tp, fp int
	for k := 0; k < len(order); {
		u := probs[order[k]]
		for k < len(order) && probs[order[k]] == u {
			if labels[order[k]] == 1 {
				tp++
			} else {
				fp++
			}
			k++
		}
		thr := math.Inf(-1)
		if k < len(order) {
			thr = probs[order[k]]
		}
		points = append(points, domain.ROCPoint{
			FPR:       float64(fp) / float64(neg),
			TPR:       float64(tp) / float64(pos),
			Threshold: thr,
		})
	}
	return points, nil
}

// AUC integrates TPR over FPR with the trapezoidal rule.
func AUC(points []domain.ROCPoint) (float64, error) {
	if len(points) < 2 {
		return math.NaN(), fmt.Errorf("auc: %w: %d points", domain.ErrUndefinedAUC, len(points))
	}
	x := make([]float64, len(points))
	y := make([]float64, len(points))
	for i, p := range points {
		x[i] = p.FPR
		y[i] = p.TPR
		if i > 0 && x[i] < x[i-1] {
			return math.NaN(), fmt.Errorf("auc: %w: FPR decreases at point %d", domain.ErrInvalidInput, i)
		}
	}
	return integrate.Trapezoidal(x, y), nil
}

// validate checks inputs shared by ROC and Confusion and returns the
// positive count.
func validate(labels, probs []float64) (int, error) {
	if len(labels) != len(probs) {
		return 0, fmt.Errorf("%w: %d labels, %d probabilities", domain.ErrShapeMismatch, len(labels), len(probs))
	}
	if len(labels) == 0 {
		return 0, domain.ErrEmptyInput
	}
	pos := 0
	for i, y := range labels {
		switch y {
		case 0:
		case 1:
			pos++
		default:
			return 0, fmt.Errorf("%w: label %v at %d is not 0 or 1", domain.ErrInvalidInput, y, i)
		}
		if p := probs[i]; math.IsNaN(p) || p < 0 || p > 1 {
			return 0, fmt.Errorf("%w: probability %v at %d outside [0, 1]", domain.ErrInvalidInput, p, i)
		}
	}
	return pos, nil
}
