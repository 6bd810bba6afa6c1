package reporting

import (
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"

	"macro-risk-lab/internal/domain"
)

// Workbook sheet names.
const (
	SheetCorrelation = "correlation"
	SheetROC         = "roc"
	SheetConfusion   = "confusion"
)

// BuildWorkbook renders the correlation table, ROC curve and confusion
// matrix into a workbook. The caller owns the returned file.
func BuildWorkbook(r *Report) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", SheetCorrelation); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	rows := [][]any{{
		domain.CorrColumnIndicator,
		domain.CorrColumnCorrelation,
		domain.CorrColumnObservations,
		domain.CorrColumnStatus,
	}}
	if r.Features != nil {
		for _, e := range r.Features.Table {
			var corr any = e.Correlation
			if math.IsNaN(e.Correlation) {
				corr = ""
			}
			rows = append(rows, []any{e.Feature, corr, e.Observations, e.Status})
		}
	}
	if err := writeRows(f, SheetCorrelation, rows); err != nil {
		f.Close()
		return nil, err
	}

	if _, err := f.NewSheet(SheetROC); err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet %s: %w", SheetROC, err)
	}
	rows = [][]any{{domain.ROCColumnFPR, domain.ROCColumnTPR, domain.ROCColumnThreshold}}
	if r.Evaluation != nil {
		for _, pt := range r.Evaluation.ROC {
			// Spreadsheet cells cannot hold infinities.
			var thr any = pt.Threshold
			if math.IsInf(pt.Threshold, 0) {
				thr = fmt.Sprint(pt.Threshold)
			}
			rows = append(rows, []any{pt.FPR, pt.TPR, thr})
		}
	}
	if err := writeRows(f, SheetROC, rows); err != nil {
		f.Close()
		return nil, err
	}

	if _, err := f.NewSheet(SheetConfusion); err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet %s: %w", SheetConfusion, err)
	}
	rows = [][]any{{"", domain.ConfusionPred0, domain.ConfusionPred1}}
	if r.Evaluation != nil {
		cm := r.Evaluation.Confusion
		rows = append(rows,
			[]any{domain.ConfusionActual0, cm.TN, cm.FP},
			[]any{domain.ConfusionActual1, cm.FN, cm.TP},
		)
	}
	if err := writeRows(f, SheetConfusion, rows); err != nil {
		f.Close()
		return nil, err
	}

	return f, nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
