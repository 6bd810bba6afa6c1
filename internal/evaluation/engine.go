package evaluation

import (
	"errors"
	"fmt"
	"math"

	"macro-risk-lab/internal/domain"
)

// Confusion counts predictions against labels, predicting 1 iff p > threshold.
func Confusion(labels, probs []float64, threshold float64) (domain.ConfusionMatrix, error) {
	var cm domain.ConfusionMatrix
	if _, err := validate(labels, probs); err != nil {
		return cm, fmt.Errorf("confusion: %w", err)
	}
	for i, y := range labels {
		predicted := probs[i] > threshold
		switch {
		case y == 1 && predicted:
			cm.TP++
		case y == 1:
			cm.FN++
		case predicted:
			cm.FP++
		default:
			cm.TN++
		}
	}
	return cm, nil
}

// Evaluate computes the ROC curve, AUC and confusion matrix. Single-class
// labels do not fail: the result carries AUCDefined=false and a NaN AUC.
func Evaluate(labels, probs []float64, threshold float64) (*domain.EvaluationResult, error) {
	cm, err := Confusion(labels, probs, threshold)
	if err != nil {
		return nil, err
	}

	res := &domain.EvaluationResult{
		AUC:               math.NaN(),
		Confusion:         cm,
		DecisionThreshold: threshold,
		Samples:           len(labels),
		Positives:         cm.TP + cm.FN,
	}

	points, err := ROC(labels, probs)
	if errors.Is(err, domain.ErrUndefinedAUC) {
		return res, nil
	}
	if err != nil {
		return nil, err
	}

	auc, err := AUC(points)
	if err != nil {
		return nil, err
	}
	res.ROC = points
	res.AUC = auc
	res.AUCDefined = true
	return res, nil
}
