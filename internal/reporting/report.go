package reporting

import (
	"time"

	"macro-risk-lab/internal/decision"
	"macro-risk-lab/internal/domain"
)

// Artifact file names.
const (
	FileMergedData       = "merged_data.csv"
	FileAnalysisDataset  = "analysis_dataset.csv"
	FileCorrelationTable = "correlation_table.csv"
	FileROCCurve         = "roc_curve.csv"
	FileConfusionMatrix  = "confusion_matrix.csv"
	FileWorkbook         = "correlation_table.xlsx"
	FileReport           = "REPORT.md"
)

// Report collects everything a run exports.
type Report struct {
	GeneratedAt time.Time
	Run         *domain.RunRecord

	// Data Summary
	Summary DataSummary

	// Merged is the aligned, filled panel.
	Merged *domain.Panel

	// Analysis holds the labeled rows with the accepted features and label.
	Analysis        *domain.Panel
	AnalysisColumns []string

	Features *domain.FeatureSet

	// Evaluation is nil when no model was fitted.
	Evaluation *domain.EvaluationResult

	Verdict *decision.Verdict
}

// DataSummary contains data description.
type DataSummary struct {
	Series    int
	Rows      int
	Start     time.Time
	End       time.Time
	Positives int
	Negatives int
	TrainRows int
	TestRows  int
}
