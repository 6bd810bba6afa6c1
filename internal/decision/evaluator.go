package decision

import (
	"fmt"
	"strings"

	"macro-risk-lab/internal/domain"
)

// DefaultMinRows is the smallest labeled panel a run accepts.
const DefaultMinRows = 30

// Evaluator evaluates run checks.
type Evaluator struct {
	minRows int
}

// NewEvaluator creates a new evaluator. minRows <= 0 uses DefaultMinRows.
func NewEvaluator(minRows int) *Evaluator {
	if minRows <= 0 {
		minRows = DefaultMinRows
	}
	return &Evaluator{minRows: minRows}
}

// Evaluate produces a Verdict from Inputs.
// CONCLUSIVE if ALL checks pass, INCONCLUSIVE otherwise.
// Warnings never change the status.
func (e *Evaluator) Evaluate(in Inputs) *Verdict {
	checks := []CriterionResult{
		{
			Name:      "Sufficient rows",
			Threshold: fmt.Sprintf(">= %d", e.minRows),
			Actual:    fmt.Sprintf("%d", in.Rows),
			Pass:      in.Rows >= e.minRows,
		},
		{
			Name:      "Correlations defined",
			Threshold: "at least one candidate",
			Actual:    fmt.Sprintf("all undefined=%t", in.AllUndefined),
			Pass:      !in.AllUndefined,
		},
		{
			Name:      "Features accepted",
			Threshold: "> 0",
			Actual:    fmt.Sprintf("%d/%d", in.Accepted, in.Candidates),
			Pass:      in.Accepted > 0,
		},
		{
			Name:      "Split non-degenerate",
			Threshold: "train and test non-empty",
			Actual:    fmt.Sprintf("degenerate=%t", in.SplitDegenerate),
			Pass:      !in.SplitDegenerate,
		},
		{
			Name:      "Training labels two-class",
			Threshold: "both classes present",
			Actual:    fmt.Sprintf("single class=%t", in.SingleClass),
			Pass:      !in.SingleClass,
		},
		{
			Name:      "Test AUC defined",
			Threshold: "both classes present",
			Actual:    fmt.Sprintf("defined=%t", in.TestAUCDefined),
			Pass:      in.TestAUCDefined,
		},
	}

	v := &Verdict{Status: domain.RunConclusive, Checks: checks}
	for _, c := range checks {
		if !c.Pass {
			v.Status = domain.RunInconclusive
			v.Reasons = append(v.Reasons, fmt.Sprintf("%s: %s (want %s)", c.Name, c.Actual, c.Threshold))
		}
	}

	if in.Warning != nil {
		v.Warnings = append(v.Warnings, in.Warning.String())
	}
	if len(in.Skipped) > 0 {
		v.Warnings = append(v.Warnings, "series skipped: "+strings.Join(in.Skipped, ", "))
	}

	return v
}
