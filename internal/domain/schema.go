package domain

import "fmt"

// Canonical column names.
const (
	ColumnDate      = "Date"
	ColumnRiskLabel = "Risk_Label"
)

// Confusion matrix and ROC table headers.
const (
	ConfusionActual0 = "Actual_0"
	ConfusionActual1 = "Actual_1"
	ConfusionPred0   = "Pred_0"
	ConfusionPred1   = "Pred_1"

	ROCColumnFPR       = "fpr"
	ROCColumnTPR       = "tpr"
	ROCColumnThreshold = "threshold"
)

// Correlation table headers.
const (
	CorrColumnIndicator    = "Indicator"
	CorrColumnCorrelation  = "correlation"
	CorrColumnObservations = "observations"
	CorrColumnStatus       = "status"
)

// SeriesSpec describes one upstream series and its canonical name.
type SeriesSpec struct {
	ID     string // provider identifier, e.g. CPIAUCSL or ^IXIC
	Name   string // canonical column name
	Source Source // provider
}

// Schema maps provider identifiers to canonical column names.
// It is the single place where upstream naming is translated.
var Schema = []SeriesSpec{
	{ID: "GDP", Name: "GDP", Source: SourceFRED},
	{ID: "CPIAUCSL", Name: "CPI", Source: SourceFRED},
	{ID: "UNRATE", Name: "UNRATE", Source: SourceFRED},
	{ID: "FEDFUNDS", Name: "FEDFUNDS", Source: SourceFRED},
	{ID: "INDPRO", Name: "INDPRO", Source: SourceFRED},
	{ID: "RSAFS", Name: "RSAFS", Source: SourceFRED},
	{ID: "HOUST", Name: "HOUST", Source: SourceFRED},
	{ID: "DGS3MO", Name: "DGS3MO", Source: SourceFRED},
	{ID: "DGS10", Name: "DGS10", Source: SourceFRED},
	{ID: "T10Y2Y", Name: "T10Y2Y", Source: SourceFRED},
	{ID: "VIXCLS", Name: "VIX", Source: SourceFRED},
	{ID: "^IXIC", Name: "NASDAQ", Source: SourceYahoo},
}

// CanonicalName returns the canonical column name for a provider id.
// Unknown ids map to themselves.
func CanonicalName(id string) string {
	for _, s := range Schema {
		if s.ID == id {
			return s.Name
		}
	}
	return id
}

// LookupSpec returns the schema entry for a canonical name or provider id.
func LookupSpec(nameOrID string) (SeriesSpec, bool) {
	for _, s := range Schema {
		if s.Name == nameOrID || s.ID == nameOrID {
			return s, true
		}
	}
	return SeriesSpec{}, false
}

// ForwardDrawdownColumn returns the column name of the forward drawdown of target.
func ForwardDrawdownColumn(target string, horizon int) string {
	return fmt.Sprintf("%s_FwdDrawdown%d", target, horizon)
}

// RollingDrawdownColumn returns the column name of the trailing drawdown of target.
func RollingDrawdownColumn(target string, horizon int) string {
	return fmt.Sprintf("%s_Drawdown%d", target, horizon)
}
