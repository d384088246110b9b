package analysis

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"countyvote/internal/config"
	apperrors "countyvote/internal/errors"
	"countyvote/pkg/contracts/domain"
)

func kmeansConfig() config.KMeansConfig {
	return config.KMeansConfig{Enabled: true, K: 3, Restarts: 5, SweepMin: 2, SweepMax: 20, MaxIter: 100}
}

// blobs places size rows around each of three well separated centers.
// Rows around the first center are labelled 1.
func blobs(size int) *Dataset {
	rng := rand.New(rand.NewPCG(31, 1))
	centers := [][]float64{{0, 0}, {10, 10}, {-10, 10}}
	ds := &Dataset{Names: []string{"A", "B"}}
	for c, center := range centers {
		for i := 0; i < size; i++ {
			ds.X = append(ds.X, []float64{center[0] + rng.NormFloat64()*0.5, center[1] + rng.NormFloat64()*0.5})
			y := 0.0
			if c == 0 {
				y = 1
			}
			ds.Y = append(ds.Y, y)
			ds.Keys = append(ds.Keys, domain.CountyKey{State: "test", County: fmt.Sprintf("%d-%d", c, i)})
		}
	}
	return ds
}

func TestLloyd_NeverWorseThanStart(t *testing.T) {
	ds := signalSet(80, 3, 0)
	start := [][]float64{cloneRow(ds.X[0]), cloneRow(ds.X[1]), cloneRow(ds.X[2])}
	labels := make([]int, ds.Len())
	initial := assign(ds.X, start, labels)

	c := lloyd(ds.X, start, 100)
	assert.LessOrEqual(t, c.Inertia, initial)
	assert.Len(t, c.Labels, ds.Len())
}

func TestSweep_InertiaNonIncreasing(t *testing.T) {
	ds := signalSet(150, 17, 0)
	scaled, _ := Standardize(ds.X)

	points, err := Sweep(t.Context(), scaled, 2, 20, 3, 50, 5)
	require.NoError(t, err)
	require.Len(t, points, 19)

	assert.Equal(t, 2, points[0].K)
	assert.Equal(t, 20, points[18].K)
	for i := 1; i < len(points); i++ {
		assert.LessOrEqual(t, points[i].Inertia, points[i-1].Inertia, "k=%d", points[i].K)
	}
}

func TestSweep_CapsAtRowCount(t *testing.T) {
	ds := signalSet(6, 1, 0)
	points, err := Sweep(t.Context(), ds.X, 2, 20, 2, 20, 1)
	require.NoError(t, err)
	require.Len(t, points, 5)
	assert.InDelta(t, 0, points[4].Inertia, 1e-12)
}

func TestSweep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := Sweep(ctx, signalSet(20, 1, 0).X, 2, 5, 1, 10, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFitKMeans_SeparatedBlobs(t *testing.T) {
	ds := blobs(30)

	res, err := FitKMeans(t.Context(), ds, kmeansConfig(), 1)
	require.NoError(t, err)

	require.Len(t, res.Clusters, 3)
	won := 0
	for _, c := range res.Clusters {
		assert.Equal(t, 30, c.Size)
		assert.Len(t, c.Center, 2)
		won += c.Won
		assert.Contains(t, []float64{0, 1}, c.WonShare)
	}
	assert.Equal(t, 30, won)

	require.Len(t, res.Elbow, 19)
	assert.Equal(t, res.Elbow[1].K, 3)
	assert.InDelta(t, res.Elbow[1].Inertia, res.Inertia, 1e-9)

	require.Len(t, res.Scores, 90)
	require.Len(t, res.Explained, 2)
	assert.GreaterOrEqual(t, res.Explained[0], res.Explained[1])
	assert.InDelta(t, 1, res.Explained[0]+res.Explained[1], 1e-9)
}

func TestFitKMeans_TooManyClusters(t *testing.T) {
	cfg := kmeansConfig()
	cfg.K = 10

	_, err := FitKMeans(t.Context(), signalSet(5, 1, 0), cfg, 1)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeModelFit))
}

func TestPrincipalComponents(t *testing.T) {
	// points along a line carry all their variance in one component
	X := [][]float64{{1, 2}, {2, 4}, {3, 6}, {4, 8}}

	scores, explained, err := PrincipalComponents(X, 2)
	require.NoError(t, err)

	require.Len(t, scores, 4)
	assert.InDelta(t, 1, explained[0], 1e-9)
	assert.InDelta(t, 0, explained[1], 1e-9)
	for _, s := range scores {
		assert.InDelta(t, 0, s[1], 1e-9)
	}

	_, _, err = PrincipalComponents(nil, 2)
	assert.Error(t, err)
}
