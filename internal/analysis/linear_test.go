package analysis

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitOLS_RecoversCoefficients(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 5))
	var X [][]float64
	var y []float64
	for i := 0; i < 60; i++ {
		a, b := rng.Float64()*10, rng.NormFloat64()
		X = append(X, []float64{a, b})
		y = append(y, 2+3*a-b)
	}

	m, err := FitOLS(X, y)
	require.NoError(t, err)

	assert.InDelta(t, 2, m.Intercept, 1e-8)
	assert.InDelta(t, 3, m.Beta[0], 1e-8)
	assert.InDelta(t, -1, m.Beta[1], 1e-8)
	assert.InDelta(t, 2+3*1-4, m.Predict([]float64{1, 4}), 1e-8)
}

func TestFitOLS_Underdetermined(t *testing.T) {
	_, err := FitOLS([][]float64{{1, 2}, {3, 4}, {5, 7}}, []float64{1, 2, 3})
	assert.Error(t, err)

	_, err = FitOLS(nil, nil)
	assert.Error(t, err)
}

func TestFitLinear(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 9))
	ds := &Dataset{Names: []string{"White", "Income"}}
	for i := 0; i < 100; i++ {
		white, income := rng.Float64(), rng.Float64()
		ds.X = append(ds.X, []float64{white, income})
		ds.Y = append(ds.Y, 0.2+0.6*white+0.01*rng.NormFloat64())
	}
	train, test := Split(ds, 0.8, 1)

	res, err := FitLinear(t.Context(), train, test, 0.5)
	require.NoError(t, err)

	assert.Equal(t, 80, res.TrainRows)
	assert.Equal(t, 20, res.TestRows)
	require.Len(t, res.Coefficients, 3)
	assert.Equal(t, "(Intercept)", res.Coefficients[0].Name)
	assert.Equal(t, "White", res.Coefficients[1].Name)
	assert.InDelta(t, 0.6, res.Coefficients[1].Estimate, 0.02)
	assert.InDelta(t, 0, res.Coefficients[2].Estimate, 0.02)
	assert.Greater(t, res.TrainR2, 0.95)
	assert.Less(t, res.TestRMSE, 0.03)
	assert.GreaterOrEqual(t, res.Agreement, 0.8)

	actual := 0
	for _, v := range test.Y {
		if v > 0.5 {
			actual++
		}
	}
	assert.Equal(t, actual, res.ActualWins)
}
