package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics_IsolatedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.SeriesFetched.WithLabelValues("FRED", "ok").Inc()
	m.SeriesFetched.WithLabelValues("FRED", "ok").Inc()
	m.PanelRows.Set(42)

	if got := testutil.ToFloat64(m.SeriesFetched.WithLabelValues("FRED", "ok")); got != 2 {
		t.Errorf("expected 2 fetches, got %v", got)
	}
	if got := testutil.ToFloat64(m.PanelRows); got != 42 {
		t.Errorf("expected 42 rows, got %v", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Error("expected registered metric families")
	}
}

func TestRecordFunctions_UseDefaultMetrics(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.PipelineRunsTotal.WithLabelValues("CONCLUSIVE"))
	RecordPipelineRun("CONCLUSIVE", 1.5)
	after := testutil.ToFloat64(DefaultMetrics.PipelineRunsTotal.WithLabelValues("CONCLUSIVE"))

	if after-before != 1 {
		t.Errorf("expected counter to increase by 1, got %v", after-before)
	}

	RecordRunOutcome(100, 3, 0.7, 1700000000)
	if got := testutil.ToFloat64(DefaultMetrics.FeaturesAccepted); got != 3 {
		t.Errorf("expected 3 features, got %v", got)
	}
}
