package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	"countyvote/internal/config"
	apperrors "countyvote/internal/errors"
)

const modelBoost = "boosted trees"

// BoostResult summarizes a gradient boosted classifier
type BoostResult struct {
	MaxTrees  int `json:"max_trees"`
	BestTrees int `json:"best_trees"`
	Depth     int `json:"depth"`
	Folds     int `json:"folds"`
	TrainRows int `json:"train_rows"`
	TestRows  int `json:"test_rows"`

	// CVDeviance[m] is the mean held-out Bernoulli deviance after m+1 trees
	CVDeviance []float64 `json:"cv_deviance"`
	Test       Evaluation `json:"test"`
	// Influence is each predictor's share of the total squared-error
	// improvement, in percent, highest first
	Influence []Importance `json:"influence"`
}

// Booster is a fitted Bernoulli gradient boosting ensemble
type Booster struct {
	init      float64
	shrinkage float64
	trees     []*node
	// treeGain[m][j] is the squared-error improvement of tree m on feature j
	treeGain [][]float64
}

// Score returns the log-odds after the first m trees
func (b *Booster) Score(x []float64, m int) float64 {
	s := b.init
	for _, t := range b.trees[:m] {
		s += b.shrinkage * t.predict(x)
	}
	return s
}

// influence is each feature's share of the improvement of the first m trees
func (b *Booster) influence(names []string, m int) []Importance {
	gain := make([]float64, len(names))
	var total float64
	for _, tg := range b.treeGain[:m] {
		for j, v := range tg {
			gain[j] += v
			total += v
		}
	}
	out := make([]Importance, len(names))
	for j, name := range names {
		v := 0.0
		if total > 0 {
			v = 100 * gain[j] / total
		}
		out[j] = Importance{Name: name, Value: v}
	}
	sortImportance(out)
	return out
}

// fitBooster grows cfg.Trees regression trees on the Bernoulli gradient,
// each with at most cfg.Depth splits (the interaction depth). each is called after every tree with the tree count
// so callers can track held-out loss without refitting.
func fitBooster(ctx context.Context, X [][]float64, y []float64, cfg config.BoostConfig, seed int64, stream uint64, each func(b *Booster, m int)) (*Booster, error) {
	n := len(X)
	if n == 0 {
		return nil, fmt.Errorf("no rows")
	}
	mean := 0.0
	for _, v := range y {
		mean += v
	}
	mean /= float64(n)
	mean = math.Min(math.Max(mean, 1e-6), 1-1e-6)

	b := &Booster{
		init:      math.Log(mean / (1 - mean)),
		shrinkage: cfg.Shrinkage,
	}
	rng := newRand(seed, stream)

	score := make([]float64, n)
	for i := range score {
		score[i] = b.init
	}
	prob := make([]float64, n)
	resid := make([]float64, n)

	bagSize := int(math.Round(cfg.BagFraction * float64(n)))
	if bagSize < 2*cfg.MinLeaf {
		bagSize = min(n, 2*cfg.MinLeaf)
	}

	for m := 0; m < cfg.Trees; m++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i := range score {
			prob[i] = sigmoid(score[i])
			resid[i] = y[i] - prob[i]
		}

		bag := rng.Perm(n)[:bagSize]
		tb := newTreeBuilder(X, resid, squaredError)
		tb.maxSplits = cfg.Depth
		tb.minLeaf = cfg.MinLeaf
		tb.leafValue = func(rows []int) float64 {
			var num, den float64
			for _, r := range rows {
				num += resid[r]
				den += prob[r] * (1 - prob[r])
			}
			if den < 1e-12 {
				return 0
			}
			return num / den
		}
		tree := tb.grow(bag)
		b.trees = append(b.trees, tree)
		b.treeGain = append(b.treeGain, tb.gain)

		for i, x := range X {
			score[i] += b.shrinkage * tree.predict(x)
		}
		if each != nil {
			each(b, m+1)
		}
	}
	return b, nil
}

// bernoulliDeviance is -2 times the mean log-likelihood at log-odds f
func bernoulliDeviance(y []float64, f func(i int) float64) float64 {
	var s float64
	for i, yi := range y {
		fi := f(i)
		// log(1 + e^f) without overflow
		s += yi*fi - (math.Max(fi, 0) + math.Log1p(math.Exp(-math.Abs(fi))))
	}
	return -2 * s / float64(len(y))
}

// FitBoost chooses the tree count by k-fold cross-validation on train,
// refits on all of train and evaluates test at threshold.
func FitBoost(ctx context.Context, train, test *Dataset, cfg config.BoostConfig, seed int64) (*BoostResult, error) {
	if err := checkDense(modelBoost, train); err != nil {
		return nil, err
	}
	if err := checkDense(modelBoost, test); err != nil {
		return nil, err
	}
	if train.Len() < cfg.Folds {
		return nil, apperrors.NewModelFitError(modelBoost, fmt.Errorf("%d rows cannot fill %d folds", train.Len(), cfg.Folds))
	}

	n := train.Len()
	fold := make([]int, n)
	for k, i := range newRand(seed, 1000).Perm(n) {
		fold[i] = k % cfg.Folds
	}

	perFold := make([][]float64, cfg.Folds)
	g, gctx := errgroup.WithContext(ctx)
	for f := 0; f < cfg.Folds; f++ {
		g.Go(func() error {
			var inIdx, outIdx []int
			for i := 0; i < n; i++ {
				if fold[i] == f {
					outIdx = append(outIdx, i)
				} else {
					inIdx = append(inIdx, i)
				}
			}
			in, out := train.Subset(inIdx), train.Subset(outIdx)

			// running held-out scores, updated tree by tree
			held := make([]float64, out.Len())
			dev := make([]float64, 0, cfg.Trees)
			initialized := false
			_, err := fitBooster(gctx, in.X, in.Y, cfg, seed, uint64(1001+f), func(b *Booster, m int) {
				if !initialized {
					for i := range held {
						held[i] = b.init
					}
					initialized = true
				}
				last := b.trees[m-1]
				for i, x := range out.X {
					held[i] += b.shrinkage * last.predict(x)
				}
				dev = append(dev, bernoulliDeviance(out.Y, func(i int) float64 { return held[i] }))
			})
			perFold[f] = dev
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperrors.NewModelFitError(modelBoost, err)
	}

	res := &BoostResult{
		MaxTrees:   cfg.Trees,
		Depth:      cfg.Depth,
		Folds:      cfg.Folds,
		TrainRows:  n,
		TestRows:   test.Len(),
		CVDeviance: make([]float64, cfg.Trees),
	}
	best := math.Inf(1)
	for m := 0; m < cfg.Trees; m++ {
		for f := range perFold {
			res.CVDeviance[m] += perFold[f][m]
		}
		res.CVDeviance[m] /= float64(cfg.Folds)
		if res.CVDeviance[m] < best {
			best = res.CVDeviance[m]
			res.BestTrees = m + 1
		}
	}

	booster, err := fitBooster(ctx, train.X, train.Y, cfg, seed, 2000, nil)
	if err != nil {
		return nil, apperrors.NewModelFitError(modelBoost, err)
	}

	probs := make([]float64, test.Len())
	for i, x := range test.X {
		probs[i] = sigmoid(booster.Score(x, res.BestTrees))
	}
	res.Test = Evaluate(probs, test.Y, cfg.Threshold)

	res.Influence = booster.influence(train.Names, res.BestTrees)

	slog.InfoContext(ctx, "Fitted boosted trees",
		slog.Int("best_trees", res.BestTrees),
		slog.Float64("cv_deviance", best),
		slog.Float64("test_accuracy", res.Test.Accuracy))

	return res, nil
}
