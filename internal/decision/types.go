package decision

import "macro-risk-lab/internal/domain"

// Inputs are the data-quality facts a pipeline run collected.
type Inputs struct {
	// Rows with a defined label after alignment and labeling.
	Rows int

	// Candidates screened and features accepted by the selector.
	Candidates int
	Accepted   int

	// AllUndefined is set when no candidate had a defined correlation.
	AllUndefined bool

	// SplitDegenerate is set when either side of the temporal split is empty.
	SplitDegenerate bool

	// SingleClass is set when the training labels contain one class only.
	SingleClass bool

	// TestAUCDefined is false when the test labels contain one class only.
	TestAUCDefined bool

	// Warning is the optimizer's non-convergence warning, if any.
	Warning *domain.NonConvergenceWarning

	// Skipped lists series that could not be loaded.
	Skipped []string
}

// CriterionResult represents pass/fail for one check.
type CriterionResult struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// Verdict is the outcome of a run.
type Verdict struct {
	Status   string // domain.RunConclusive or domain.RunInconclusive
	Checks   []CriterionResult
	Reasons  []string
	Warnings []string
}

// Conclusive reports whether every check passed.
func (v *Verdict) Conclusive() bool {
	return v.Status == domain.RunConclusive
}
