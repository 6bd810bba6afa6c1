// Package pipeline runs one tail-risk analysis end to end:
// load → align → label → split → select → fit → evaluate → verdict → persist → export.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"macro-risk-lab/internal/alignment"
	"macro-risk-lab/internal/classifier"
	"macro-risk-lab/internal/decision"
	"macro-risk-lab/internal/domain"
	"macro-risk-lab/internal/evaluation"
	"macro-risk-lab/internal/features"
	"macro-risk-lab/internal/idhash"
	"macro-risk-lab/internal/labeling"
	"macro-risk-lab/internal/observability"
	"macro-risk-lab/internal/reporting"
	"macro-risk-lab/internal/split"
	"macro-risk-lab/internal/storage"
)

// Stage names used in logs and metrics.
const (
	StageLoad     = "load"
	StageLabel    = "label"
	StageSplit    = "split"
	StageSelect   = "select"
	StageFit      = "fit"
	StageEvaluate = "evaluate"
	StagePersist  = "persist"
	StageExport   = "export"
)

// Options configures a Pipeline.
type Options struct {
	// Required
	Store storage.SeriesStore

	// Optional run store; nil skips persistence.
	Runs storage.RunStore

	Params         domain.RunParams
	L2             float64 // classifier penalty, 0 means 1.0
	IncludeRolling bool    // add the trailing drawdown as a candidate feature
	MinRows        int     // verdict row minimum, 0 means decision.DefaultMinRows
	Workers        int

	// OutputDir receives the artifacts; empty disables export.
	OutputDir string

	Logger *zap.Logger
	Clock  func() time.Time // Injectable clock for deterministic output
}

// Pipeline coordinates the analysis stages.
type Pipeline struct {
	runner    *alignment.Runner
	labeler   *labeling.Labeler
	selector  *features.Selector
	clf       *classifier.LogisticRegression
	evaluator *decision.Evaluator
	runs      storage.RunStore
	params    domain.RunParams
	rolling   bool
	outputDir string
	logger    *zap.Logger
	clock     func() time.Time
}

// Result is the outcome of one run.
type Result struct {
	Record     *domain.RunRecord
	Verdict    *decision.Verdict
	Merged     *domain.Panel // aligned panel before labeling
	Analysis   *domain.Panel // labeled rows
	Features   *domain.FeatureSet
	Evaluation *domain.EvaluationResult // nil when no model was fitted
	Artifacts  []string
}

// New validates the options and builds a Pipeline.
func New(opts Options) (*Pipeline, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("pipeline: %w: series store is required", domain.ErrInvalidParameter)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return time.Now().UTC() }
	}
	if opts.L2 == 0 {
		opts.L2 = 1.0
	}
	p := opts.Params
	if p.DecisionThreshold < 0 || p.DecisionThreshold > 1 || math.IsNaN(p.DecisionThreshold) {
		return nil, fmt.Errorf("pipeline: %w: decision threshold %v", domain.ErrInvalidParameter, p.DecisionThreshold)
	}
	if p.Cutoff.IsZero() {
		return nil, fmt.Errorf("pipeline: %w: cutoff is required", domain.ErrInvalidParameter)
	}

	policy, err := labeling.ParseBoundaryPolicy(p.BoundaryPolicy)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	labeler, err := labeling.New(labeling.Config{
		Target:         p.Target,
		Horizon:        p.Horizon,
		Threshold:      p.DrawdownThreshold,
		Policy:         policy,
		IncludeRolling: opts.IncludeRolling,
	}, opts.Logger)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	selector, err := features.New(features.Options{
		Threshold: p.CorrelationThreshold,
		Workers:   opts.Workers,
		Logger:    opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	aligner := alignment.New(alignment.Options{Workers: opts.Workers, Logger: opts.Logger})

	return &Pipeline{
		runner:    alignment.NewRunner(opts.Store, aligner, opts.Logger),
		labeler:   labeler,
		selector:  selector,
		clf:       &classifier.LogisticRegression{MaxIterations: p.MaxIterations, L2: opts.L2},
		evaluator: decision.NewEvaluator(opts.MinRows),
		runs:      opts.Runs,
		params:    p,
		rolling:   opts.IncludeRolling,
		outputDir: opts.OutputDir,
		logger:    opts.Logger,
		clock:     opts.Clock,
	}, nil
}

// Run executes all stages. Data-quality problems produce an INCONCLUSIVE
// result; only input errors, storage failures and cancellation return an error.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	res, err := p.run(ctx)

	status := "error"
	if err == nil {
		status = strings.ToLower(res.Record.Status)
	}
	observability.RecordPipelineRun(status, time.Since(start).Seconds())

	if err != nil {
		p.logger.Error("pipeline failed", zap.Error(err))
		return nil, err
	}
	return res, nil
}

func (p *Pipeline) run(ctx context.Context) (*Result, error) {
	rec := &domain.RunRecord{
		StartedAt: p.clock(),
		Params:    p.params,
	}
	target := p.params.Target

	// 1. Load and align
	var load *alignment.LoadResult
	err := p.stage(StageLoad, func() error {
		var err error
		load, err = p.runner.Run(ctx, p.seriesNames())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	panel := load.Panel
	if !panel.HasColumn(target) {
		return nil, fmt.Errorf("load: target %s: %w", target, domain.ErrMissingColumn)
	}
	rec.Skipped = load.Skipped
	merged := panel.Clone()

	// 2. Label
	var summary *labeling.Summary
	if err := p.stage(StageLabel, func() error {
		var err error
		summary, err = p.labeler.Apply(panel)
		return err
	}); err != nil {
		return nil, fmt.Errorf("label: %w", err)
	}

	analysis, dropped, err := split.DropUndefinedLabels(panel, domain.ColumnRiskLabel)
	if err != nil {
		return nil, fmt.Errorf("label: %w", err)
	}
	if dropped > 0 {
		p.logger.Info("dropped rows without label", zap.Int("rows", dropped))
	}
	rec.Rows = analysis.Len()

	candidates := p.candidates(panel, summary)
	corrTarget := summary.ForwardColumn

	// 3. Split
	var sp *domain.Split
	degenerate := false
	err = p.stage(StageSplit, func() error {
		var err error
		sp, err = split.ByCutoff(analysis, p.params.Cutoff)
		return err
	})
	switch {
	case errors.Is(err, domain.ErrDegenerateSplit):
		p.logger.Warn("degenerate split", zap.Error(err))
		degenerate = true
	case err != nil:
		return nil, fmt.Errorf("split: %w", err)
	}

	// 4. Select on the training rows only. A degenerate split still gets a
	// correlation table for the report.
	selectOn := analysis
	if !degenerate {
		selectOn = sp.Train
	}
	var fs *domain.FeatureSet
	if err := p.stage(StageSelect, func() error {
		var err error
		fs, err = p.selector.Select(ctx, selectOn, corrTarget, candidates)
		return err
	}); err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	rec.Features = fs.Accepted

	in := decision.Inputs{
		Rows:            rec.Rows,
		Candidates:      len(candidates),
		Accepted:        len(fs.Accepted),
		AllUndefined:    fs.AllUndefined(),
		SplitDegenerate: degenerate,
		Skipped:         rec.Skipped,
	}

	// 5. Fit and evaluate
	var ev *domain.EvaluationResult
	if !degenerate && len(fs.Accepted) > 0 {
		fit, err := p.fitAndEvaluate(sp, fs.Accepted)
		if err != nil {
			return nil, err
		}
		rec.TrainRows, rec.TestRows = fit.trainRows, fit.testRows
		in.SplitDegenerate = fit.trainRows == 0 || fit.testRows == 0
		in.SingleClass = fit.singleClass
		if fit.model != nil {
			in.Warning = fit.model.Warning()
			rec.Coefs = coefficients(fit.model, fs.Accepted)
		}
		if fit.trainAUC != nil {
			rec.TrainAUC = fit.trainAUC
		}
		ev = fit.test
		if ev != nil {
			in.TestAUCDefined = ev.AUCDefined
			cm := ev.Confusion
			rec.Confusion = &cm
			if ev.AUCDefined {
				auc := ev.AUC
				rec.TestAUC = &auc
			}
		}
	} else if !degenerate {
		rec.TrainRows, rec.TestRows = sp.Train.Len(), sp.Test.Len()
	}

	// 6. Verdict
	verdict := p.evaluator.Evaluate(in)
	rec.Status = verdict.Status
	rec.Reasons = verdict.Reasons
	rec.Warnings = verdict.Warnings

	rng := idhash.DataRange{Rows: analysis.Len()}
	if analysis.Len() > 0 {
		rng.Start, rng.End = analysis.Dates[0], analysis.Dates[analysis.Len()-1]
	}
	rec.RunID = idhash.ComputeRunID(p.params, rng)
	rec.ShortID, err = idhash.ShortID(rec.RunID)
	if err != nil {
		return nil, fmt.Errorf("run id: %w", err)
	}
	rec.FinishedAt = p.clock()

	logger := p.logger.With(zap.String("run_id", rec.ShortID))
	logger.Info("run finished",
		zap.String("status", rec.Status),
		zap.Int("rows", rec.Rows),
		zap.Strings("features", rec.Features),
		zap.Strings("reasons", rec.Reasons))

	// 7. Persist
	if p.runs != nil {
		err := p.stage(StagePersist, func() error {
			return p.runs.Insert(ctx, rec)
		})
		switch {
		case errors.Is(err, storage.ErrDuplicateKey):
			logger.Info("identical run already recorded")
		case err != nil:
			return nil, fmt.Errorf("persist run: %w", err)
		}
	}

	result := &Result{
		Record:     rec,
		Verdict:    verdict,
		Merged:     merged,
		Analysis:   analysis,
		Features:   fs,
		Evaluation: ev,
	}

	// 8. Export
	if p.outputDir != "" {
		report := &reporting.Report{
			GeneratedAt: rec.FinishedAt,
			Run:         rec,
			Summary: reporting.DataSummary{
				Series:    len(merged.Order),
				Rows:      rec.Rows,
				Start:     rng.Start,
				End:       rng.End,
				Positives: summary.Positives,
				Negatives: summary.Negatives,
				TrainRows: rec.TrainRows,
				TestRows:  rec.TestRows,
			},
			Merged:          merged,
			Analysis:        analysis,
			AnalysisColumns: analysis.ColumnNames(),
			Features:        fs,
			Evaluation:      ev,
			Verdict:         verdict,
		}
		if err := p.stage(StageExport, func() error {
			var err error
			result.Artifacts, err = reporting.NewWriter(p.outputDir, logger).Write(report)
			return err
		}); err != nil {
			return nil, fmt.Errorf("export: %w", err)
		}
	}

	testAUC := math.NaN()
	if rec.TestAUC != nil {
		testAUC = *rec.TestAUC
	}
	observability.RecordRunOutcome(rec.Rows, len(rec.Features), testAUC, rec.FinishedAt.Unix())

	return result, nil
}

type fitResult struct {
	model       *classifier.LogisticModel
	singleClass bool
	trainRows   int
	testRows    int
	trainAUC    *float64
	test        *domain.EvaluationResult
}

// fitAndEvaluate fits on the complete training rows and scores the
// complete test rows.
func (p *Pipeline) fitAndEvaluate(sp *domain.Split, accepted []string) (*fitResult, error) {
	cols := append(slices.Clone(accepted), domain.ColumnRiskLabel)

	train, err := completeRows(sp.Train, cols)
	if err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}
	test, err := completeRows(sp.Test, cols)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	out := &fitResult{trainRows: train.Len(), testRows: test.Len()}
	if out.trainRows == 0 || out.testRows == 0 {
		p.logger.Warn("no complete rows on one side of the split",
			zap.Int("train", out.trainRows), zap.Int("test", out.testRows))
		return out, nil
	}

	Xtrain, _ := train.Matrix(accepted)
	ytrain, _ := train.Column(domain.ColumnRiskLabel)

	err = p.stage(StageFit, func() error {
		var err error
		out.model, err = p.clf.FitLogistic(Xtrain, ytrain)
		return err
	})
	if errors.Is(err, domain.ErrSingleClass) {
		p.logger.Warn("training labels contain one class", zap.Error(err))
		out.singleClass = true
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}
	if w := out.model.Warning(); w != nil {
		p.logger.Warn("classifier did not converge", zap.Stringer("warning", w))
	}

	err = p.stage(StageEvaluate, func() error {
		trainProbs, err := out.model.PredictProba(Xtrain)
		if err != nil {
			return err
		}
		trainEv, err := evaluation.Evaluate(ytrain, trainProbs, p.params.DecisionThreshold)
		if err != nil {
			return err
		}
		if trainEv.AUCDefined {
			auc := trainEv.AUC
			out.trainAUC = &auc
		}

		Xtest, _ := test.Matrix(accepted)
		ytest, _ := test.Column(domain.ColumnRiskLabel)
		testProbs, err := out.model.PredictProba(Xtest)
		if err != nil {
			return err
		}
		out.test, err = evaluation.Evaluate(ytest, testProbs, p.params.DecisionThreshold)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}

	if !out.test.AUCDefined {
		p.logger.Warn("test AUC undefined", zap.Int("samples", out.test.Samples), zap.Int("positives", out.test.Positives))
	}

	return out, nil
}

// stage runs fn and records its duration.
func (p *Pipeline) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	observability.RecordStage(name, elapsed.Seconds())
	p.logger.Debug("stage finished",
		zap.String("stage", name),
		zap.Duration("elapsed", elapsed),
		zap.Error(err))
	return err
}

// seriesNames lists the series to load: the target plus the configured
// candidates. No candidates loads every stored series.
func (p *Pipeline) seriesNames() []string {
	if len(p.params.Candidates) == 0 {
		return nil
	}
	names := []string{p.params.Target}
	for _, c := range p.params.Candidates {
		if !slices.Contains(names, c) {
			names = append(names, c)
		}
	}
	return names
}

// candidates returns the candidate features for selection. The target and
// every label-derived column are excluded so the label never leaks into
// the features.
func (p *Pipeline) candidates(panel *domain.Panel, sum *labeling.Summary) []string {
	excluded := map[string]bool{
		p.params.Target:        true,
		sum.ForwardColumn:      true,
		domain.ColumnRiskLabel: true,
	}

	list := p.params.Candidates
	if len(list) == 0 {
		for _, name := range panel.ColumnNames() {
			if name != sum.RollingColumn {
				list = append(list, name)
			}
		}
	}

	var out []string
	for _, name := range list {
		if excluded[name] {
			p.logger.Warn("candidate excluded", zap.String("feature", name))
			continue
		}
		if !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	if p.rolling && sum.RollingColumn != "" && !slices.Contains(out, sum.RollingColumn) {
		out = append(out, sum.RollingColumn)
	}
	return out
}

func completeRows(panel *domain.Panel, cols []string) (*domain.Panel, error) {
	rows, err := panel.CompleteRows(cols)
	if err != nil {
		return nil, err
	}
	return panel.SelectRows(rows), nil
}

// coefficients maps the model's original-scale coefficients by feature name.
func coefficients(m *classifier.LogisticModel, names []string) map[string]float64 {
	intercept, weights := m.Coefficients()
	out := make(map[string]float64, len(names)+1)
	out[domain.CoefIntercept] = intercept
	for i, name := range names {
		out[name] = weights[i]
	}
	return out
}
