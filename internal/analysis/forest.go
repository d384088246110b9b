package analysis

import (
	"context"
	"log/slog"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"countyvote/internal/config"
	apperrors "countyvote/internal/errors"
)

const modelForest = "random forest"

// Importance is a predictor's contribution to a tree ensemble
type Importance struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// ForestResult summarizes a random forest classifier
type ForestResult struct {
	Trees     int `json:"trees"`
	Mtry      int `json:"mtry"`
	TrainRows int `json:"train_rows"`
	TestRows  int `json:"test_rows"`

	OOBError  float64      `json:"oob_error"`
	TestError float64      `json:"test_error"`
	Test      Evaluation   `json:"test"`
	// Importance is the mean decrease in out-of-bag accuracy when a
	// predictor is permuted, highest first
	Importance []Importance `json:"importance"`
}

// forestTree is one fitted tree with its out-of-bag bookkeeping
type forestTree struct {
	root     *node
	oob      []int
	oobVotes []float64
	// decrease is the accuracy drop per permuted feature on oob rows
	decrease []float64
}

func vote(p float64) float64 {
	if p >= 0.5 {
		return 1
	}
	return 0
}

// Forest is a fitted random forest
type Forest struct {
	trees []*forestTree
}

// VoteShare returns the fraction of trees voting for the positive class
func (f *Forest) VoteShare(x []float64) float64 {
	var s float64
	for _, t := range f.trees {
		s += vote(t.root.predict(x))
	}
	return s / float64(len(f.trees))
}

// FitForest grows cfg.Trees Gini trees on bootstrap samples of train,
// drawing cfg.Mtry candidate predictors per split. Tree i is seeded from
// seed and i, so results do not depend on scheduling.
func FitForest(ctx context.Context, train, test *Dataset, cfg config.ForestConfig, seed int64) (*ForestResult, error) {
	if err := checkDense(modelForest, train); err != nil {
		return nil, err
	}
	if err := checkDense(modelForest, test); err != nil {
		return nil, err
	}

	n := train.Len()
	p := len(train.Names)
	forest := &Forest{trees: make([]*forestTree, cfg.Trees)}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for t := 0; t < cfg.Trees; t++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			forest.trees[t] = growForestTree(train, cfg, seed, t)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperrors.NewModelFitError(modelForest, err)
	}

	// out-of-bag aggregate
	votes := make([]float64, n)
	counts := make([]int, n)
	importance := make([]float64, p)
	withOOB := 0
	for _, t := range forest.trees {
		for k, i := range t.oob {
			votes[i] += t.oobVotes[k]
			counts[i]++
		}
		if len(t.oob) > 0 {
			withOOB++
			for j, d := range t.decrease {
				importance[j] += d
			}
		}
	}

	res := &ForestResult{
		Trees:     cfg.Trees,
		Mtry:      cfg.Mtry,
		TrainRows: n,
		TestRows:  test.Len(),
	}

	wrong, scored := 0, 0
	for i := range votes {
		if counts[i] == 0 {
			continue
		}
		scored++
		if vote(votes[i]/float64(counts[i])) != train.Y[i] {
			wrong++
		}
	}
	res.OOBError = ratio(wrong, scored)

	res.Importance = make([]Importance, p)
	for j, name := range train.Names {
		v := 0.0
		if withOOB > 0 {
			v = importance[j] / float64(withOOB)
		}
		res.Importance[j] = Importance{Name: name, Value: v}
	}
	sortImportance(res.Importance)

	shares := make([]float64, test.Len())
	for i, x := range test.X {
		shares[i] = forest.VoteShare(x)
	}
	res.Test = Evaluate(shares, test.Y, 0.5)
	res.TestError = res.Test.Confusion.ErrorRate()

	slog.InfoContext(ctx, "Fitted random forest",
		slog.Int("trees", res.Trees),
		slog.Float64("oob_error", res.OOBError),
		slog.Float64("test_error", res.TestError),
		slog.String("top_predictor", res.Importance[0].Name))

	return res, nil
}

func growForestTree(train *Dataset, cfg config.ForestConfig, seed int64, t int) *forestTree {
	n := train.Len()
	rng := newRand(seed, uint64(t)+1)

	inBag := make([]bool, n)
	bag := make([]int, n)
	for i := range bag {
		r := rng.IntN(n)
		bag[i] = r
		inBag[r] = true
	}

	b := newTreeBuilder(train.X, train.Y, giniImpurity)
	b.mtry = cfg.Mtry
	b.minLeaf = cfg.MinLeaf
	b.rng = rng
	ft := &forestTree{root: b.grow(bag)}

	for i := 0; i < n; i++ {
		if !inBag[i] {
			ft.oob = append(ft.oob, i)
		}
	}
	if len(ft.oob) == 0 {
		return ft
	}

	ft.oobVotes = make([]float64, len(ft.oob))
	correct := 0
	for k, i := range ft.oob {
		ft.oobVotes[k] = vote(ft.root.predict(train.X[i]))
		if ft.oobVotes[k] == train.Y[i] {
			correct++
		}
	}

	p := len(train.Names)
	ft.decrease = make([]float64, p)
	row := make([]float64, p)
	for j := 0; j < p; j++ {
		perm := rng.Perm(len(ft.oob))
		permCorrect := 0
		for k, i := range ft.oob {
			copy(row, train.X[i])
			row[j] = train.X[ft.oob[perm[k]]][j]
			if vote(ft.root.predict(row)) == train.Y[i] {
				permCorrect++
			}
		}
		ft.decrease[j] = float64(correct-permCorrect) / float64(len(ft.oob))
	}
	return ft
}

func sortImportance(imp []Importance) {
	sort.SliceStable(imp, func(i, j int) bool {
		if imp[i].Value != imp[j].Value {
			return imp[i].Value > imp[j].Value
		}
		return imp[i].Name < imp[j].Name
	})
}
