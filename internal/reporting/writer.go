package reporting

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"macro-risk-lab/internal/observability"
)

// Writer exports a Report as files in one directory.
type Writer struct {
	dir    string
	logger *zap.Logger
}

// NewWriter creates a Writer for dir. A nil logger is replaced with a no-op.
func NewWriter(dir string, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{dir: dir, logger: logger}
}

// Write exports every artifact the report has data for and returns the
// written paths. Evaluation artifacts are skipped when no model was fitted.
func (w *Writer) Write(r *Report) ([]string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var written []string
	emit := func(name string, render func(io.Writer) error) error {
		path := filepath.Join(w.dir, name)
		if err := writeFile(path, render); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		written = append(written, path)
		return nil
	}

	if r.Merged != nil {
		if err := emit(FileMergedData, func(out io.Writer) error {
			return WritePanelCSV(out, r.Merged, r.Merged.ColumnNames())
		}); err != nil {
			return written, err
		}
	}

	if r.Analysis != nil {
		if err := emit(FileAnalysisDataset, func(out io.Writer) error {
			return WritePanelCSV(out, r.Analysis, r.AnalysisColumns)
		}); err != nil {
			return written, err
		}
	}

	if r.Features != nil {
		if err := emit(FileCorrelationTable, func(out io.Writer) error {
			return WriteCorrelationCSV(out, r.Features)
		}); err != nil {
			return written, err
		}
	}

	if r.Evaluation != nil {
		if err := emit(FileROCCurve, func(out io.Writer) error {
			return WriteROCCSV(out, r.Evaluation.ROC)
		}); err != nil {
			return written, err
		}
		if err := emit(FileConfusionMatrix, func(out io.Writer) error {
			return WriteConfusionCSV(out, r.Evaluation.Confusion)
		}); err != nil {
			return written, err
		}
	}

	wb, err := BuildWorkbook(r)
	if err != nil {
		return written, err
	}
	path := filepath.Join(w.dir, FileWorkbook)
	err = wb.SaveAs(path)
	wb.Close()
	if err != nil {
		return written, fmt.Errorf("write %s: %w", FileWorkbook, err)
	}
	written = append(written, path)

	if err := emit(FileReport, func(out io.Writer) error {
		_, err := io.WriteString(out, RenderMarkdown(r))
		return err
	}); err != nil {
		return written, err
	}

	observability.RecordReportGenerated()
	w.logger.Info("report written",
		zap.String("dir", w.dir),
		zap.Int("files", len(written)),
	)

	return written, nil
}

func writeFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
