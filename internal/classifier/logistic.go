package classifier

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"macro-risk-lab/internal/domain"
)

// DefaultMaxIterations bounds the optimizer.
const DefaultMaxIterations = 1000

// LogisticRegression is an L2-regularized logistic regression fit by BFGS
// on standardized features. The intercept is not penalized.
type LogisticRegression struct {
	MaxIterations int     // optimizer iteration cap, 0 means DefaultMaxIterations
	L2            float64 // penalty strength, the inverse of scikit-learn's C
}

// NewLogisticRegression returns a classifier with default settings.
func NewLogisticRegression() *LogisticRegression {
	return &LogisticRegression{MaxIterations: DefaultMaxIterations, L2: 1.0}
}

// LogisticModel is a fitted logistic regression.
type LogisticModel struct {
	Intercept  float64   // on the standardized scale
	Weights    []float64 // one per feature, standardized scale
	Means      []float64 // training feature means
	Scales     []float64 // training feature standard deviations (1 for constant columns)
	Iterations int
	warning    *domain.NonConvergenceWarning
}

// Fit implements Classifier.
func (lr *LogisticRegression) Fit(X [][]float64, y []float64) (Model, error) {
	m, err := lr.FitLogistic(X, y)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// FitLogistic fits the model and returns the concrete type.
func (lr *LogisticRegression) FitLogistic(X [][]float64, y []float64) (*LogisticModel, error) {
	d, err := validateMatrix(X)
	if err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}
	if len(y) != len(X) {
		return nil, fmt.Errorf("fit: %w: %d rows, %d labels", domain.ErrShapeMismatch, len(X), len(y))
	}
	pos, err := validateLabels(y)
	if err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}
	if pos == 0 || pos == len(y) {
		return nil, fmt.Errorf("fit: %w: %d of %d positive", domain.ErrSingleClass, pos, len(y))
	}

	maxIter := lr.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}
	l2 := lr.L2
	if l2 < 0 || math.IsNaN(l2) {
		return nil, fmt.Errorf("fit: %w: l2 %v", domain.ErrInvalidParameter, l2)
	}

	n := len(X)
	means, scales := standardization(X, d)

	// Design matrix with a leading column of ones for the intercept.
	design := mat.NewDense(n, d+1, nil)
	for i, row := range X {
		design.Set(i, 0, 1)
		for j, v := range row {
			design.Set(i, j+1, (v-means[j])/scales[j])
		}
	}
	labels := mat.NewVecDense(n, append([]float64(nil), y...))

	obj := &objective{x: design, y: labels, l2: l2, n: float64(n)}
	problem := optimize.Problem{Func: obj.value, Grad: obj.grad}
	settings := &optimize.Settings{
		MajorIterations:   maxIter,
		GradientThreshold: 1e-6,
	}

	init := make([]float64, d+1)
	result, err := optimize.Minimize(problem, init, settings, &optimize.BFGS{})

	var warning *domain.NonConvergenceWarning
	switch {
	case result == nil:
		return nil, fmt.Errorf("fit: optimizer: %w", err)
	case err != nil:
		if !finite(result.X) {
			return nil, fmt.Errorf("fit: optimizer: %w", err)
		}
		warning = &domain.NonConvergenceWarning{
			Iterations: result.Stats.MajorIterations,
			Cap:        maxIter,
			Reason:     err.Error(),
		}
	case result.Status == optimize.IterationLimit:
		warning = &domain.NonConvergenceWarning{
			Iterations: result.Stats.MajorIterations,
			Cap:        maxIter,
			Reason:     result.Status.String(),
		}
	}

	return &LogisticModel{
		Intercept:  result.X[0],
		Weights:    append([]float64(nil), result.X[1:]...),
		Means:      means,
		Scales:     scales,
		Iterations: result.Stats.MajorIterations,
		warning:    warning,
	}, nil
}

// PredictProba implements Model.
func (m *LogisticModel) PredictProba(X [][]float64) ([]float64, error) {
	if len(X) == 0 {
		return nil, nil
	}
	d, err := validateMatrix(X)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	if d != len(m.Weights) {
		return nil, fmt.Errorf("predict: %w: %d columns, model has %d", domain.ErrShapeMismatch, d, len(m.Weights))
	}

	out := make([]float64, len(X))
	for i, row := range X {
		out[i] = sigmoid(m.score(row))
	}
	return out, nil
}

// Warning implements Model.
func (m *LogisticModel) Warning() *domain.NonConvergenceWarning {
	return m.warning
}

// Coefficients returns the weights on the original feature scale, in
// column order, together with the matching intercept.
func (m *LogisticModel) Coefficients() (intercept float64, weights []float64) {
	intercept = m.Intercept
	weights = make([]float64, len(m.Weights))
	for j, w := range m.Weights {
		weights[j] = w / m.Scales[j]
		intercept -= w * m.Means[j] / m.Scales[j]
	}
	return intercept, weights
}

func (m *LogisticModel) score(row []float64) float64 {
	z := m.Intercept
	for j, v := range row {
		z += m.Weights[j] * (v - m.Means[j]) / m.Scales[j]
	}
	return z
}

func standardization(X [][]float64, d int) (means, scales []float64) {
	means = make([]float64, d)
	scales = make([]float64, d)
	col := make([]float64, len(X))
	for j := 0; j < d; j++ {
		for i, row := range X {
			col[i] = row[j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		means[j] = mean
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		scales[j] = std
	}
	return means, scales
}

// objective is the mean negative log-likelihood plus an L2 penalty on the
// non-intercept weights, scaled by 1/n.
type objective struct {
	x  *mat.Dense
	y  *mat.VecDense
	l2 float64
	n  float64
}

func (o *objective) value(params []float64) float64 {
	z := o.scores(params)
	var loss float64
	for i := 0; i < z.Len(); i++ {
		zi := z.AtVec(i)
		loss += softplus(zi) - o.y.AtVec(i)*zi
	}
	var penalty float64
	for _, w := range params[1:] {
		penalty += w * w
	}
	return loss/o.n + o.l2*penalty/(2*o.n)
}

func (o *objective) grad(grad, params []float64) {
	z := o.scores(params)
	resid := mat.NewVecDense(z.Len(), nil)
	for i := 0; i < z.Len(); i++ {
		resid.SetVec(i, sigmoid(z.AtVec(i))-o.y.AtVec(i))
	}
	g := mat.NewVecDense(len(grad), grad)
	g.MulVec(o.x.T(), resid)
	for j := range grad {
		grad[j] /= o.n
		if j > 0 {
			grad[j] += o.l2 * params[j] / o.n
		}
	}
}

func (o *objective) scores(params []float64) *mat.VecDense {
	r, _ := o.x.Dims()
	z := mat.NewVecDense(r, nil)
	z.MulVec(o.x, mat.NewVecDense(len(params), params))
	return z
}

// softplus computes log(1 + e^z) without overflow.
func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func finite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

var (
	_ Classifier = (*LogisticRegression)(nil)
	_ Model      = (*LogisticModel)(nil)
)
