package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"countyvote/internal/config"
	apperrors "countyvote/internal/errors"
	"countyvote/pkg/contracts/domain"
)

const modelKMeans = "k-means"

// Clustering is one k-means solution
type Clustering struct {
	K          int
	Centers    [][]float64
	Labels     []int
	Inertia    float64
	Iterations int
}

// ElbowPoint is the best inertia found for one cluster count
type ElbowPoint struct {
	K       int     `json:"k"`
	Inertia float64 `json:"inertia"`
}

// ClusterSummary describes one final cluster
type ClusterSummary struct {
	Cluster int `json:"cluster"`
	Size    int `json:"size"`
	Won     int `json:"won"`
	// WonShare is the fraction of member counties won by the candidate
	WonShare float64   `json:"won_share"`
	Center   []float64 `json:"center"`
}

// KMeansResult holds the elbow sweep and the final clustering
type KMeansResult struct {
	K        int              `json:"k"`
	Restarts int              `json:"restarts"`
	Inertia  float64          `json:"inertia"`
	Elbow    []ElbowPoint     `json:"elbow"`
	Clusters []ClusterSummary `json:"clusters"`
	Names    []string         `json:"names"`

	Labels []int              `json:"-"`
	Keys   []domain.CountyKey `json:"-"`
	// Scores are the first two principal component scores per county,
	// used for plotting only
	Scores    [][]float64 `json:"-"`
	Explained []float64   `json:"explained_variance"`
}

func sqDist(a, b []float64) float64 {
	var s float64
	for j := range a {
		d := a[j] - b[j]
		s += d * d
	}
	return s
}

// assign labels every row with its nearest center and returns the inertia
func assign(X, centers [][]float64, labels []int) float64 {
	var inertia float64
	for i, x := range X {
		best, bestD := 0, math.Inf(1)
		for c, center := range centers {
			if d := sqDist(x, center); d < bestD {
				best, bestD = c, d
			}
		}
		labels[i] = best
		inertia += bestD
	}
	return inertia
}

// means recomputes centers from labels; an empty cluster keeps its center
func means(X [][]float64, labels []int, prev [][]float64) [][]float64 {
	k, p := len(prev), len(prev[0])
	sums := make([][]float64, k)
	for c := range sums {
		sums[c] = make([]float64, p)
	}
	counts := make([]int, k)
	for i, x := range X {
		c := labels[i]
		counts[c]++
		for j, v := range x {
			sums[c][j] += v
		}
	}
	for c := range sums {
		if counts[c] == 0 {
			copy(sums[c], prev[c])
			continue
		}
		for j := range sums[c] {
			sums[c][j] /= float64(counts[c])
		}
	}
	return sums
}

// lloyd alternates assignment and update from the given centers and
// returns the lowest-inertia state it visited. The result never has a
// higher inertia than the starting centers.
func lloyd(X, centers [][]float64, maxIter int) *Clustering {
	labels := make([]int, len(X))
	best := &Clustering{
		K:       len(centers),
		Centers: centers,
		Labels:  labels,
		Inertia: assign(X, centers, labels),
	}
	for it := 1; it <= maxIter; it++ {
		next := means(X, best.Labels, best.Centers)
		nextLabels := make([]int, len(X))
		inertia := assign(X, next, nextLabels)
		if inertia >= best.Inertia {
			break
		}
		best = &Clustering{K: len(next), Centers: next, Labels: nextLabels, Inertia: inertia, Iterations: it}
	}
	return best
}

// seedCenters picks k starting centers by k-means++ sampling
func seedCenters(X [][]float64, k int, rng *rand.Rand) [][]float64 {
	centers := make([][]float64, 0, k)
	centers = append(centers, cloneRow(X[rng.IntN(len(X))]))

	dist := make([]float64, len(X))
	for len(centers) < k {
		var total float64
		for i, x := range X {
			d := math.Inf(1)
			for _, c := range centers {
				d = math.Min(d, sqDist(x, c))
			}
			dist[i] = d
			total += d
		}
		next := rng.IntN(len(X))
		if total > 0 {
			r := rng.Float64() * total
			for i, d := range dist {
				r -= d
				if r <= 0 {
					next = i
					break
				}
			}
		}
		centers = append(centers, cloneRow(X[next]))
	}
	return centers
}

func cloneRow(x []float64) []float64 {
	return append([]float64(nil), x...)
}

// KMeans runs Lloyd's algorithm from restarts k-means++ seedings and keeps
// the lowest inertia.
func KMeans(X [][]float64, k, restarts, maxIter int, rng *rand.Rand) *Clustering {
	var best *Clustering
	for r := 0; r < restarts; r++ {
		c := lloyd(X, seedCenters(X, k, rng), maxIter)
		if best == nil || c.Inertia < best.Inertia {
			best = c
		}
	}
	return best
}

// farthestPoint returns the row furthest from its assigned center
func farthestPoint(X [][]float64, c *Clustering) []float64 {
	best, bestD := 0, -1.0
	for i, x := range X {
		if d := sqDist(x, c.Centers[c.Labels[i]]); d > bestD {
			best, bestD = i, d
		}
	}
	return cloneRow(X[best])
}

// Sweep returns the best inertia for every k in [kMin, kMax], capped at
// the number of rows. Each k also tries the (k-1) solution plus the
// farthest point as a start, so inertia never increases with k.
func Sweep(ctx context.Context, X [][]float64, kMin, kMax, restarts, maxIter int, seed int64) ([]ElbowPoint, error) {
	if kMax > len(X) {
		kMax = len(X)
	}
	var points []ElbowPoint
	var prev *Clustering
	for k := kMin; k <= kMax; k++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		best := KMeans(X, k, restarts, maxIter, newRand(seed, uint64(100+k)))
		if prev != nil {
			start := make([][]float64, 0, k)
			for _, c := range prev.Centers {
				start = append(start, cloneRow(c))
			}
			start = append(start, farthestPoint(X, prev))
			if warm := lloyd(X, start, maxIter); warm.Inertia < best.Inertia {
				best = warm
			}
		}
		points = append(points, ElbowPoint{K: k, Inertia: best.Inertia})
		prev = best
	}
	return points, nil
}

// ElbowSweep standardizes the features of ds and runs Sweep over the
// configured range.
func ElbowSweep(ctx context.Context, ds *Dataset, cfg config.KMeansConfig, seed int64) ([]ElbowPoint, error) {
	if err := checkDense(modelKMeans, ds); err != nil {
		return nil, err
	}
	scaled, _ := Standardize(ds.X)
	points, err := Sweep(ctx, scaled, cfg.SweepMin, cfg.SweepMax, cfg.Restarts, cfg.MaxIter, seed)
	if err != nil {
		return nil, apperrors.NewModelFitError(modelKMeans, err)
	}
	return points, nil
}

// FitKMeans clusters the standardized features of ds into cfg.K groups,
// runs the elbow sweep and reports, per cluster, the share of counties
// won by the candidate (Y == 1).
func FitKMeans(ctx context.Context, ds *Dataset, cfg config.KMeansConfig, seed int64) (*KMeansResult, error) {
	if err := checkDense(modelKMeans, ds); err != nil {
		return nil, err
	}
	if cfg.K > ds.Len() {
		return nil, apperrors.NewModelFitError(modelKMeans, fmt.Errorf("%d clusters for %d rows", cfg.K, ds.Len()))
	}

	scaled, _ := Standardize(ds.X)

	elbow, err := Sweep(ctx, scaled, cfg.SweepMin, cfg.SweepMax, cfg.Restarts, cfg.MaxIter, seed)
	if err != nil {
		return nil, apperrors.NewModelFitError(modelKMeans, err)
	}

	final := KMeans(scaled, cfg.K, cfg.Restarts, cfg.MaxIter, newRand(seed, 99))

	res := &KMeansResult{
		K:        cfg.K,
		Restarts: cfg.Restarts,
		Inertia:  final.Inertia,
		Elbow:    elbow,
		Names:    ds.Names,
		Labels:   final.Labels,
		Keys:     ds.Keys,
	}

	res.Clusters = make([]ClusterSummary, cfg.K)
	for c := range res.Clusters {
		res.Clusters[c] = ClusterSummary{Cluster: c + 1, Center: final.Centers[c]}
	}
	for i, label := range final.Labels {
		res.Clusters[label].Size++
		if ds.Y[i] == 1 {
			res.Clusters[label].Won++
		}
	}
	for c := range res.Clusters {
		res.Clusters[c].WonShare = ratio(res.Clusters[c].Won, res.Clusters[c].Size)
	}

	scores, explained, err := PrincipalComponents(scaled, 2)
	if err != nil {
		return nil, apperrors.NewModelFitError(modelKMeans, err)
	}
	res.Scores, res.Explained = scores, explained

	slog.InfoContext(ctx, "Fitted k-means",
		slog.Int("k", res.K),
		slog.Float64("inertia", res.Inertia),
		slog.Int("sweep_points", len(elbow)))

	return res, nil
}
