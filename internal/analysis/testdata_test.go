package analysis

import (
	"fmt"
	"math/rand/v2"

	"countyvote/pkg/contracts/domain"
)

// signalSet labels rows by whether the first column exceeds 0.5, with the
// label flipped at the given rate.
func signalSet(n int, seed uint64, flip float64) *Dataset {
	rng := rand.New(rand.NewPCG(seed, 7))
	ds := &Dataset{Names: []string{"Signal", "Uniform", "Gaussian"}}
	for i := 0; i < n; i++ {
		s := rng.Float64()
		ds.X = append(ds.X, []float64{s, rng.Float64(), rng.NormFloat64()})
		y := 0.0
		if s > 0.5 {
			y = 1
		}
		if rng.Float64() < flip {
			y = 1 - y
		}
		ds.Y = append(ds.Y, y)
		ds.Keys = append(ds.Keys, domain.CountyKey{State: "test", County: fmt.Sprintf("county %d", i)})
	}
	return ds
}
