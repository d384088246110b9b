package analysis

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"countyvote/internal/dataprocessing"
	apperrors "countyvote/internal/errors"
	"countyvote/pkg/contracts/domain"
)

// Dataset is a dense numeric table: one row per county, one column per
// demographic measure, plus a response.
type Dataset struct {
	Names []string
	X     [][]float64
	Y     []float64
	Keys  []domain.CountyKey
}

// Len returns the number of rows
func (d *Dataset) Len() int {
	return len(d.Y)
}

// Subset returns the rows at idx, sharing the underlying feature slices
func (d *Dataset) Subset(idx []int) *Dataset {
	out := &Dataset{
		Names: d.Names,
		X:     make([][]float64, len(idx)),
		Y:     make([]float64, len(idx)),
		Keys:  make([]domain.CountyKey, len(idx)),
	}
	for i, j := range idx {
		out.X[i] = d.X[j]
		out.Y[i] = d.Y[j]
		if j < len(d.Keys) {
			out.Keys[i] = d.Keys[j]
		}
	}
	return out
}

func (d *Dataset) rowLabel(i int) string {
	if i < len(d.Keys) {
		return d.Keys[i].String()
	}
	return "-"
}

// Positives counts rows with Y == 1
func (d *Dataset) Positives() int {
	n := 0
	for _, y := range d.Y {
		if y == 1 {
			n++
		}
	}
	return n
}

// BuildRegressionSet keeps the rows of candidate with its two-candidate
// share as the response. Counties where the candidate did not finish in
// the top two are excluded and counted.
func BuildRegressionSet(merged []domain.MergedRecord, candidate string) (*Dataset, dataprocessing.Diagnostics) {
	var diag dataprocessing.Diagnostics
	ds := &Dataset{Names: domain.DemographicColumns}

	present := make(map[domain.CountyKey]bool)
	for _, m := range merged {
		if m.Candidate == candidate {
			present[m.Key] = true
			ds.X = append(ds.X, m.Census.Values())
			ds.Y = append(ds.Y, m.Share)
			ds.Keys = append(ds.Keys, m.Key)
		}
	}
	for _, m := range merged {
		if m.IsWinner() && !present[m.Key] {
			diag.Record(dataprocessing.StageAnalysis, dataprocessing.ReasonCandidateNotTopTwo, m.Key.String())
		}
	}
	return ds, diag
}

// BuildClassificationSet keeps one row per county, labelled 1 when
// candidate won it.
func BuildClassificationSet(merged []domain.MergedRecord, candidate string) *Dataset {
	ds := &Dataset{Names: domain.DemographicColumns}
	for _, m := range merged {
		if !m.IsWinner() {
			continue
		}
		label := 0.0
		if m.Candidate == candidate {
			label = 1
		}
		ds.X = append(ds.X, m.Census.Values())
		ds.Y = append(ds.Y, label)
		ds.Keys = append(ds.Keys, m.Key)
	}
	return ds
}

// newRand returns the generator used for every seeded draw in the package
func newRand(seed int64, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), stream))
}

// Split permutes the rows with seed and cuts the first
// round(trainFraction*N) of them into the training set.
func Split(ds *Dataset, trainFraction float64, seed int64) (train, test *Dataset) {
	n := ds.Len()
	perm := newRand(seed, 0).Perm(n)

	nTrain := int(math.Round(trainFraction * float64(n)))
	if nTrain > n {
		nTrain = n
	}
	return ds.Subset(perm[:nTrain]), ds.Subset(perm[nTrain:])
}

// Scaler centers and scales columns to zero mean and unit variance
type Scaler struct {
	Mean []float64
	Std  []float64
}

// FitScaler estimates column means and standard deviations. Constant
// columns get a unit scale so they map to zero rather than NaN.
func FitScaler(X [][]float64) *Scaler {
	if len(X) == 0 {
		return &Scaler{}
	}
	p := len(X[0])
	s := &Scaler{Mean: make([]float64, p), Std: make([]float64, p)}
	col := make([]float64, len(X))
	for j := 0; j < p; j++ {
		for i, row := range X {
			col[i] = row[j]
		}
		mean, std := stat.MeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		s.Mean[j], s.Std[j] = mean, std
	}
	return s
}

// Transform returns a scaled copy of X
func (s *Scaler) Transform(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = (v - s.Mean[j]) / s.Std[j]
		}
		out[i] = scaled
	}
	return out
}

// Standardize fits a scaler on X and returns the scaled copy
func Standardize(X [][]float64) ([][]float64, *Scaler) {
	s := FitScaler(X)
	return s.Transform(X), s
}

// checkDense fails when the table is empty or holds a non-finite value
func checkDense(model string, ds *Dataset) error {
	if ds.Len() == 0 {
		return apperrors.NewModelFitError(model, fmt.Errorf("no rows"))
	}
	for i, row := range ds.X {
		if len(row) != len(ds.Names) {
			return apperrors.NewModelFitError(model, fmt.Errorf("row %d has %d columns, want %d", i, len(row), len(ds.Names)))
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return apperrors.NewModelFitError(model, fmt.Errorf("non-finite %s in row %d (%s)", ds.Names[j], i, ds.rowLabel(i)))
			}
		}
		if math.IsNaN(ds.Y[i]) || math.IsInf(ds.Y[i], 0) {
			return apperrors.NewModelFitError(model, fmt.Errorf("non-finite response in row %d (%s)", i, ds.rowLabel(i)))
		}
	}
	return nil
}

// designMatrix copies X into a dense matrix with a leading intercept column
func designMatrix(X [][]float64) *mat.Dense {
	n := len(X)
	p := len(X[0]) + 1
	m := mat.NewDense(n, p, nil)
	for i, row := range X {
		m.Set(i, 0, 1)
		for j, v := range row {
			m.Set(i, j+1, v)
		}
	}
	return m
}
