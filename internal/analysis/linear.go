package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	apperrors "countyvote/internal/errors"
)

const modelLinear = "linear regression"

// Coefficient is one fitted model parameter
type Coefficient struct {
	Name     string  `json:"name"`
	Estimate float64 `json:"estimate"`
}

// LinearResult summarizes an OLS fit of the two-candidate share
type LinearResult struct {
	Coefficients []Coefficient `json:"coefficients"`
	TrainRows    int           `json:"train_rows"`
	TestRows     int           `json:"test_rows"`
	TrainR2      float64       `json:"train_r2"`
	TestRMSE     float64       `json:"test_rmse"`

	// WinThreshold is the share above which a county counts as won
	WinThreshold  float64 `json:"win_threshold"`
	ActualWins    int     `json:"actual_wins"`
	PredictedWins int     `json:"predicted_wins"`
	// Agreement is the share of test counties whose predicted and actual
	// outcome agree
	Agreement float64 `json:"agreement"`
}

// LinearModel is a fitted OLS model with intercept
type LinearModel struct {
	Intercept float64
	Beta      []float64
}

// Predict returns the fitted value for one row
func (m *LinearModel) Predict(x []float64) float64 {
	v := m.Intercept
	for j, b := range m.Beta {
		v += b * x[j]
	}
	return v
}

// FitOLS solves the least squares problem for y on X with an intercept
// using a QR factorization.
func FitOLS(X [][]float64, y []float64) (*LinearModel, error) {
	if len(X) == 0 {
		return nil, fmt.Errorf("no rows")
	}
	A := designMatrix(X)
	n, p := A.Dims()
	if n <= p {
		return nil, fmt.Errorf("%d rows cannot determine %d coefficients", n, p)
	}

	var qr mat.QR
	qr.Factorize(A)

	var beta mat.Dense
	if err := qr.SolveTo(&beta, false, mat.NewDense(n, 1, append([]float64(nil), y...))); err != nil {
		return nil, fmt.Errorf("solve least squares: %w", err)
	}

	m := &LinearModel{Intercept: beta.At(0, 0), Beta: make([]float64, p-1)}
	for j := 1; j < p; j++ {
		m.Beta[j-1] = beta.At(j, 0)
	}
	for _, b := range m.Beta {
		if math.IsNaN(b) || math.IsInf(b, 0) {
			return nil, fmt.Errorf("non-finite coefficient")
		}
	}
	return m, nil
}

// FitLinear fits OLS on train and evaluates RMSE and county win counts on
// test.
func FitLinear(ctx context.Context, train, test *Dataset, winThreshold float64) (*LinearResult, error) {
	if err := checkDense(modelLinear, train); err != nil {
		return nil, err
	}
	if test.Len() > 0 {
		if err := checkDense(modelLinear, test); err != nil {
			return nil, err
		}
	}

	model, err := FitOLS(train.X, train.Y)
	if err != nil {
		return nil, apperrors.NewModelFitError(modelLinear, err)
	}

	res := &LinearResult{
		TrainRows:    train.Len(),
		TestRows:     test.Len(),
		WinThreshold: winThreshold,
	}
	res.Coefficients = append(res.Coefficients, Coefficient{Name: "(Intercept)", Estimate: model.Intercept})
	for j, name := range train.Names {
		res.Coefficients = append(res.Coefficients, Coefficient{Name: name, Estimate: model.Beta[j]})
	}

	fitted := make([]float64, train.Len())
	for i, x := range train.X {
		fitted[i] = model.Predict(x)
	}
	res.TrainR2 = stat.RSquaredFrom(fitted, train.Y, nil)

	if test.Len() > 0 {
		var sse float64
		agree := 0
		for i, x := range test.X {
			pred := model.Predict(x)
			sse += (pred - test.Y[i]) * (pred - test.Y[i])
			actualWin := test.Y[i] > winThreshold
			predWin := pred > winThreshold
			if actualWin {
				res.ActualWins++
			}
			if predWin {
				res.PredictedWins++
			}
			if actualWin == predWin {
				agree++
			}
		}
		res.TestRMSE = math.Sqrt(sse / float64(test.Len()))
		res.Agreement = float64(agree) / float64(test.Len())
	}

	slog.InfoContext(ctx, "Fitted linear regression",
		slog.Int("train_rows", res.TrainRows),
		slog.Float64("train_r2", res.TrainR2),
		slog.Float64("test_rmse", res.TestRMSE),
		slog.Int("actual_wins", res.ActualWins),
		slog.Int("predicted_wins", res.PredictedWins))

	return res, nil
}
