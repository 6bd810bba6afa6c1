package domain

import "time"

// Split is a temporal partition of a panel. Train rows are strictly before
// Cutoff, test rows are at or after it.
type Split struct {
	Train  *Panel
	Test   *Panel
	Cutoff time.Time
}

// ROCPoint is one point of a ROC curve.
type ROCPoint struct {
	FPR       float64 // false positive rate
	TPR       float64 // true positive rate
	Threshold float64 // score is positive when p > Threshold
}

// ConfusionMatrix counts predictions against actual labels.
type ConfusionMatrix struct {
	TN int // actual 0, predicted 0
	FP int // actual 0, predicted 1
	FN int // actual 1, predicted 0
	TP int // actual 1, predicted 1
}

// Total returns the number of counted samples.
func (c ConfusionMatrix) Total() int {
	return c.TN + c.FP + c.FN + c.TP
}

// Cell returns the count for (actual, predicted).
func (c ConfusionMatrix) Cell(actual, predicted int) int {
	switch {
	case actual == 0 && predicted == 0:
		return c.TN
	case actual == 0 && predicted == 1:
		return c.FP
	case actual == 1 && predicted == 0:
		return c.FN
	default:
		return c.TP
	}
}

// EvaluationResult is the evaluation of predicted probabilities against labels.
type EvaluationResult struct {
	ROC               []ROCPoint
	AUC               float64 // NaN when AUCDefined is false
	AUCDefined        bool    // false when labels contain a single class
	Confusion         ConfusionMatrix
	DecisionThreshold float64
	Samples           int
	Positives         int
}
