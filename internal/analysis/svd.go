package analysis

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// PrincipalComponents projects the centered rows of X onto their first
// dims right singular vectors. It returns the scores and the share of
// total variance each component explains.
func PrincipalComponents(X [][]float64, dims int) ([][]float64, []float64, error) {
	n := len(X)
	if n == 0 {
		return nil, nil, fmt.Errorf("no rows")
	}
	p := len(X[0])
	if dims > p {
		dims = p
	}
	if dims > n {
		dims = n
	}

	A := mat.NewDense(n, p, nil)
	for i, row := range X {
		A.SetRow(i, row)
	}
	// center columns
	for j := 0; j < p; j++ {
		var mean float64
		for i := 0; i < n; i++ {
			mean += A.At(i, j)
		}
		mean /= float64(n)
		for i := 0; i < n; i++ {
			A.Set(i, j, A.At(i, j)-mean)
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(A, mat.SVDThin); !ok {
		return nil, nil, fmt.Errorf("svd factorization failed")
	}
	var u mat.Dense
	svd.UTo(&u)
	values := svd.Values(nil)

	var total float64
	for _, s := range values {
		total += s * s
	}

	scores := make([][]float64, n)
	for i := range scores {
		scores[i] = make([]float64, dims)
		for c := 0; c < dims; c++ {
			scores[i][c] = u.At(i, c) * values[c]
		}
	}
	explained := make([]float64, dims)
	for c := range explained {
		if total > 0 {
			explained[c] = values[c] * values[c] / total
		}
	}
	return scores, explained, nil
}
