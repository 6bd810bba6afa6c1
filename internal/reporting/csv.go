package reporting

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"macro-risk-lab/internal/domain"
)

// WritePanelCSV writes the Date column followed by columns in order.
// Missing values are written as empty cells.
func WritePanelCSV(w io.Writer, p *domain.Panel, columns []string) error {
	data := make([][]float64, len(columns))
	for i, name := range columns {
		col, err := p.Column(name)
		if err != nil {
			return fmt.Errorf("panel csv: %w", err)
		}
		data[i] = col
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{domain.ColumnDate}, columns...)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, len(columns)+1)
	for r, d := range p.Dates {
		record[0] = d.Format(domain.DateLayout)
		for i := range columns {
			record[i+1] = formatValue(data[i][r])
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", r, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCorrelationCSV writes one row per candidate in candidate order.
func WriteCorrelationCSV(w io.Writer, fs *domain.FeatureSet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		domain.CorrColumnIndicator,
		domain.CorrColumnCorrelation,
		domain.CorrColumnObservations,
		domain.CorrColumnStatus,
	}); err != nil {
		return err
	}
	for _, e := range fs.Table {
		if err := cw.Write([]string{
			e.Feature,
			formatValue(e.Correlation),
			strconv.Itoa(e.Observations),
			e.Status,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteROCCSV writes ROC points in curve order.
func WriteROCCSV(w io.Writer, roc []domain.ROCPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{domain.ROCColumnFPR, domain.ROCColumnTPR, domain.ROCColumnThreshold}); err != nil {
		return err
	}
	for _, pt := range roc {
		if err := cw.Write([]string{
			strconv.FormatFloat(pt.FPR, 'g', -1, 64),
			strconv.FormatFloat(pt.TPR, 'g', -1, 64),
			strconv.FormatFloat(pt.Threshold, 'g', -1, 64),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteConfusionCSV writes the 2x2 matrix with Actual_* rows and Pred_* columns.
func WriteConfusionCSV(w io.Writer, cm domain.ConfusionMatrix) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"", domain.ConfusionPred0, domain.ConfusionPred1}); err != nil {
		return err
	}
	for actual, label := range []string{domain.ConfusionActual0, domain.ConfusionActual1} {
		if err := cw.Write([]string{
			label,
			strconv.Itoa(cm.Cell(actual, 0)),
			strconv.Itoa(cm.Cell(actual, 1)),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
