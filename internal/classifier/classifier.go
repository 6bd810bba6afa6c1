// Package classifier fits binary risk classifiers on feature matrices.
package classifier

import (
	"fmt"
	"math"

	"macro-risk-lab/internal/domain"
)

// Classifier fits a model on rows X and 0/1 labels y.
type Classifier interface {
	Fit(X [][]float64, y []float64) (Model, error)
}

// Model predicts the probability of the positive class.
type Model interface {
	PredictProba(X [][]float64) ([]float64, error)
	// Warning returns a non-convergence warning, or nil when the fit converged.
	Warning() *domain.NonConvergenceWarning
}

// validateMatrix checks that X is non-empty, rectangular and finite.
// It returns the column count.
func validateMatrix(X [][]float64) (int, error) {
	if len(X) == 0 {
		return 0, fmt.Errorf("%w: no rows", domain.ErrInvalidInput)
	}
	d := len(X[0])
	if d == 0 {
		return 0, fmt.Errorf("%w: no feature columns", domain.ErrInvalidInput)
	}
	for i, row := range X {
		if len(row) != d {
			return 0, fmt.Errorf("%w: ragged row %d has %d columns, expected %d", domain.ErrInvalidInput, i, len(row), d)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return 0, fmt.Errorf("%w: non-finite value at row %d column %d", domain.ErrInvalidInput, i, j)
			}
		}
	}
	return d, nil
}

// validateLabels checks that y holds only 0 and 1 and returns the positive count.
func validateLabels(y []float64) (int, error) {
	pos := 0
	for i, v := range y {
		switch v {
		case 0:
		case 1:
			pos++
		default:
			return 0, fmt.Errorf("%w: label %v at row %d is not 0 or 1", domain.ErrInvalidInput, v, i)
		}
	}
	return pos, nil
}
