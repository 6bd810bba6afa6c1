package domain

import "time"

// Run verdict statuses.
const (
	RunConclusive   = "CONCLUSIVE"
	RunInconclusive = "INCONCLUSIVE"
)

// CoefIntercept is the RunRecord.Coefs key of the model intercept.
const CoefIntercept = "(intercept)"

// RunParams are the analysis parameters a run was executed with.
type RunParams struct {
	Target               string    `json:"target"`
	Horizon              int       `json:"horizon"`
	DrawdownThreshold    float64   `json:"drawdown_threshold"`
	CorrelationThreshold float64   `json:"correlation_threshold"`
	Cutoff               time.Time `json:"cutoff"`
	BoundaryPolicy       string    `json:"boundary_policy"`
	DecisionThreshold    float64   `json:"decision_threshold"`
	MaxIterations        int       `json:"max_iterations"`
	Candidates           []string  `json:"candidates"`
}

// RunRecord is the persisted summary of one pipeline run.
type RunRecord struct {
	RunID      string             `json:"run_id"`      // deterministic hash of params and data range
	ShortID    string             `json:"short_id"`    // base58 prefix of RunID
	StartedAt  time.Time          `json:"started_at"`  // wall clock start
	FinishedAt time.Time          `json:"finished_at"` // wall clock end
	Params     RunParams          `json:"params"`
	Rows       int                `json:"rows"`       // panel rows after alignment
	TrainRows  int                `json:"train_rows"` // rows used for fitting
	TestRows   int                `json:"test_rows"`  // rows used for evaluation
	Features   []string           `json:"features"`   // accepted features
	Skipped    []string           `json:"skipped"`    // series that could not be loaded
	TrainAUC   *float64           `json:"train_auc"`  // nil when undefined
	TestAUC    *float64           `json:"test_auc"`   // nil when undefined
	Confusion  *ConfusionMatrix   `json:"confusion"`  // nil when no model was fitted
	Status     string             `json:"status"`     // CONCLUSIVE | INCONCLUSIVE
	Reasons    []string           `json:"reasons"`    // why the run is inconclusive
	Warnings   []string           `json:"warnings"`   // non-fatal issues such as non-convergence
	Coefs      map[string]float64 `json:"coefficients,omitempty"`
}
