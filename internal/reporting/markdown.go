package reporting

import (
	"fmt"
	"math"
	"strings"
	"time"

	"macro-risk-lab/internal/decision"
	"macro-risk-lab/internal/domain"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Macro Tail-Risk Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if r.Run != nil {
		sb.WriteString(fmt.Sprintf("Run: `%s` (%s)\n\n", r.Run.ShortID, r.Run.RunID))
		p := r.Run.Params
		sb.WriteString("## Parameters\n\n")
		sb.WriteString("| Parameter | Value |\n")
		sb.WriteString("|-----------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Target | %s |\n", p.Target))
		sb.WriteString(fmt.Sprintf("| Horizon | %d |\n", p.Horizon))
		sb.WriteString(fmt.Sprintf("| Drawdown threshold | %.4f |\n", p.DrawdownThreshold))
		sb.WriteString(fmt.Sprintf("| Correlation threshold | %.2f |\n", p.CorrelationThreshold))
		sb.WriteString(fmt.Sprintf("| Split cutoff | %s |\n", p.Cutoff.Format(domain.DateLayout)))
		sb.WriteString(fmt.Sprintf("| Boundary policy | %s |\n", p.BoundaryPolicy))
		sb.WriteString(fmt.Sprintf("| Decision threshold | %.2f |\n", p.DecisionThreshold))
		sb.WriteString("\n")
	}

	// Data Summary
	s := r.Summary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Series | %d |\n", s.Series))
	sb.WriteString(fmt.Sprintf("| Rows | %d |\n", s.Rows))
	if !s.Start.IsZero() {
		sb.WriteString(fmt.Sprintf("| Date range | %s to %s |\n", s.Start.Format(domain.DateLayout), s.End.Format(domain.DateLayout)))
	}
	sb.WriteString(fmt.Sprintf("| Risk events | %d |\n", s.Positives))
	sb.WriteString(fmt.Sprintf("| Non-events | %d |\n", s.Negatives))
	sb.WriteString(fmt.Sprintf("| Train rows | %d |\n", s.TrainRows))
	sb.WriteString(fmt.Sprintf("| Test rows | %d |\n", s.TestRows))
	sb.WriteString("\n")

	// Correlations
	sb.WriteString("## Feature Correlations\n\n")
	if r.Features != nil && len(r.Features.Table) > 0 {
		sb.WriteString(fmt.Sprintf("Target `%s`, threshold |r| > %.2f\n\n", r.Features.Target, r.Features.Threshold))
		sb.WriteString("| Indicator | Correlation | Observations | Status |\n")
		sb.WriteString("|-----------|-------------|--------------|--------|\n")
		for _, e := range r.Features.Table {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %s |\n",
				e.Feature, formatFixed(e.Correlation), e.Observations, e.Status))
		}
	} else {
		sb.WriteString("No candidates screened.\n")
	}
	sb.WriteString("\n")

	// Evaluation
	sb.WriteString("## Evaluation\n\n")
	if r.Evaluation != nil {
		ev := r.Evaluation
		if r.Run != nil && r.Run.TrainAUC != nil {
			sb.WriteString(fmt.Sprintf("Train AUC: %.4f\n\n", *r.Run.TrainAUC))
		}
		if ev.AUCDefined {
			sb.WriteString(fmt.Sprintf("Test AUC: %.4f\n\n", ev.AUC))
		} else {
			sb.WriteString("Test AUC: undefined (single class in test labels)\n\n")
		}
		sb.WriteString(fmt.Sprintf("Confusion matrix at threshold %.2f (%d samples, %d positive):\n\n",
			ev.DecisionThreshold, ev.Samples, ev.Positives))
		sb.WriteString(fmt.Sprintf("| | %s | %s |\n", domain.ConfusionPred0, domain.ConfusionPred1))
		sb.WriteString("|---|---|---|\n")
		sb.WriteString(fmt.Sprintf("| %s | %d | %d |\n", domain.ConfusionActual0, ev.Confusion.TN, ev.Confusion.FP))
		sb.WriteString(fmt.Sprintf("| %s | %d | %d |\n", domain.ConfusionActual1, ev.Confusion.FN, ev.Confusion.TP))
	} else {
		sb.WriteString("No model was fitted.\n")
	}
	sb.WriteString("\n")

	if r.Run != nil && len(r.Run.Coefs) > 0 {
		sb.WriteString("### Coefficients\n\n")
		sb.WriteString("| Term | Value |\n")
		sb.WriteString("|------|-------|\n")
		for _, name := range coefficientOrder(r.Run) {
			sb.WriteString(fmt.Sprintf("| %s | %.6f |\n", name, r.Run.Coefs[name]))
		}
		sb.WriteString("\n")
	}

	if r.Verdict != nil {
		sb.WriteString(decision.RenderMarkdown(r.Verdict))
		if len(r.Verdict.Reasons) > 0 {
			sb.WriteString("### Reasons\n\n")
			for _, reason := range r.Verdict.Reasons {
				sb.WriteString(fmt.Sprintf("- %s\n", reason))
			}
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// coefficientOrder lists the intercept first, then features in accepted order.
func coefficientOrder(run *domain.RunRecord) []string {
	var names []string
	if _, ok := run.Coefs[domain.CoefIntercept]; ok {
		names = append(names, domain.CoefIntercept)
	}
	for _, f := range run.Features {
		if _, ok := run.Coefs[f]; ok {
			names = append(names, f)
		}
	}
	return names
}

func formatFixed(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", v)
}
