package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	apperrors "countyvote/internal/errors"
)

const modelLogistic = "logistic regression"

const (
	// logisticRidge keeps the Newton system solvable under separation
	logisticRidge = 1e-6
	logisticTol   = 1e-8
	minVariance   = 1e-10
)

// LogisticResult summarizes a logistic regression fit on standardized
// predictors. Coefficients are per standard deviation of each predictor.
type LogisticResult struct {
	Coefficients []Coefficient `json:"coefficients"`
	Iterations   int           `json:"iterations"`
	Converged    bool          `json:"converged"`
	TrainRows    int           `json:"train_rows"`
	TestRows     int           `json:"test_rows"`

	Default Evaluation `json:"default"`
	Optimal Evaluation `json:"optimal"`
	AUC     float64    `json:"auc"`
	ROC     []ROCPoint `json:"roc"`

	// TestScores and TestLabels back the ROC curve
	TestScores []float64 `json:"-"`
	TestLabels []float64 `json:"-"`
}

// LogisticModel is a fitted logistic regression on scaled inputs
type LogisticModel struct {
	Scaler    *Scaler
	Intercept float64
	Beta      []float64
}

// Probability returns P(y = 1) for one unscaled row
func (m *LogisticModel) Probability(x []float64) float64 {
	eta := m.Intercept
	for j, b := range m.Beta {
		eta += b * (x[j] - m.Scaler.Mean[j]) / m.Scaler.Std[j]
	}
	return sigmoid(eta)
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// FitIRLS fits a logistic regression by iteratively reweighted least
// squares. Predictors are standardized first.
func FitIRLS(X [][]float64, y []float64, maxIter int) (*LogisticModel, int, bool, error) {
	scaled, scaler := Standardize(X)
	A := designMatrix(scaled)
	n, p := A.Dims()

	beta := make([]float64, p)
	eta := make([]float64, n)
	w := make([]float64, n)
	z := make([]float64, n)

	converged := false
	iter := 0
	for iter < maxIter {
		iter++
		for i := 0; i < n; i++ {
			eta[i] = floats.Dot(A.RawRowView(i), beta)
			mu := sigmoid(eta[i])
			w[i] = math.Max(mu*(1-mu), minVariance)
			z[i] = eta[i] + (y[i]-mu)/w[i]
		}

		// (A'WA + λI) β = A'Wz
		var xtwx mat.Dense
		wa := mat.NewDense(n, p, nil)
		for i := 0; i < n; i++ {
			for j := 0; j < p; j++ {
				wa.Set(i, j, A.At(i, j)*w[i])
			}
		}
		xtwx.Mul(A.T(), wa)
		for j := 1; j < p; j++ {
			xtwx.Set(j, j, xtwx.At(j, j)+logisticRidge)
		}
		var xtwz mat.VecDense
		xtwz.MulVec(wa.T(), mat.NewVecDense(n, z))

		var next mat.VecDense
		if err := next.SolveVec(&xtwx, &xtwz); err != nil {
			return nil, iter, false, fmt.Errorf("newton step: %w", err)
		}

		delta := 0.0
		for j := 0; j < p; j++ {
			delta = math.Max(delta, math.Abs(next.AtVec(j)-beta[j]))
			beta[j] = next.AtVec(j)
		}
		if math.IsNaN(delta) || math.IsInf(delta, 0) {
			return nil, iter, false, fmt.Errorf("coefficients diverged")
		}
		if delta < logisticTol {
			converged = true
			break
		}
	}

	return &LogisticModel{Scaler: scaler, Intercept: beta[0], Beta: beta[1:]}, iter, converged, nil
}

// FitLogistic fits on train, then evaluates the test split at threshold
// and at the Youden-optimal threshold of the test ROC curve.
func FitLogistic(ctx context.Context, train, test *Dataset, threshold float64, maxIter int) (*LogisticResult, error) {
	if err := checkDense(modelLogistic, train); err != nil {
		return nil, err
	}
	if err := checkDense(modelLogistic, test); err != nil {
		return nil, err
	}

	model, iters, converged, err := FitIRLS(train.X, train.Y, maxIter)
	if err != nil {
		return nil, apperrors.NewModelFitError(modelLogistic, err)
	}

	res := &LogisticResult{
		Iterations: iters,
		Converged:  converged,
		TrainRows:  train.Len(),
		TestRows:   test.Len(),
		TestLabels: test.Y,
	}
	res.Coefficients = append(res.Coefficients, Coefficient{Name: "(Intercept)", Estimate: model.Intercept})
	for j, name := range train.Names {
		res.Coefficients = append(res.Coefficients, Coefficient{Name: name, Estimate: model.Beta[j]})
	}

	res.TestScores = make([]float64, test.Len())
	for i, x := range test.X {
		res.TestScores[i] = model.Probability(x)
	}

	res.ROC = ROC(res.TestScores, test.Y)
	res.AUC = AUC(res.ROC)
	res.Default = Evaluate(res.TestScores, test.Y, threshold)
	res.Optimal = Evaluate(res.TestScores, test.Y, YoudenThreshold(res.ROC, res.TestScores, test.Y, threshold))

	if !converged {
		slog.WarnContext(ctx, "Logistic regression did not converge",
			slog.Int("iterations", iters))
	}
	slog.InfoContext(ctx, "Fitted logistic regression",
		slog.Int("iterations", iters),
		slog.Float64("auc", res.AUC),
		slog.Float64("accuracy", res.Default.Accuracy),
		slog.Float64("optimal_threshold", res.Optimal.Threshold))

	return res, nil
}
