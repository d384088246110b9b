package analysis

import (
	"math/rand/v2"
	"sort"
)

// node is one split or leaf of a binary decision tree
type node struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *node
	right     *node
}

// predict walks x down to a leaf. Rows with x[feature] <= threshold go left.
func (n *node) predict(x []float64) float64 {
	for !n.leaf {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

// impurity returns the node impurity times its size from the count, sum
// and sum of squares of the response.
type impurity func(n, sum, sumSq float64) float64

// giniImpurity is n times the Gini index for a 0/1 response
func giniImpurity(n, sum, _ float64) float64 {
	if n == 0 {
		return 0
	}
	p := sum / n
	return n * 2 * p * (1 - p)
}

// squaredError is the residual sum of squares around the mean
func squaredError(n, sum, sumSq float64) float64 {
	if n == 0 {
		return 0
	}
	return sumSq - sum*sum/n
}

// treeBuilder grows CART trees over a shared feature table
type treeBuilder struct {
	x         [][]float64
	y         []float64
	impurity  impurity
	leafValue func(rows []int) float64

	maxDepth int // 0 grows until leaves are pure or minimal
	// maxSplits > 0 grows best-first and stops after that many splits
	maxSplits int
	minLeaf  int
	mtry     int // 0 considers every feature
	rng      *rand.Rand

	// gain accumulates the impurity decrease of each split per feature
	gain []float64
}

func newTreeBuilder(x [][]float64, y []float64, imp impurity) *treeBuilder {
	p := 0
	if len(x) > 0 {
		p = len(x[0])
	}
	return &treeBuilder{
		x:        x,
		y:        y,
		impurity: imp,
		minLeaf:  1,
		gain:     make([]float64, p),
	}
}

func (b *treeBuilder) mean(rows []int) float64 {
	if len(rows) == 0 {
		return 0
	}
	var s float64
	for _, r := range rows {
		s += b.y[r]
	}
	return s / float64(len(rows))
}

func (b *treeBuilder) grow(rows []int) *node {
	if b.maxSplits > 0 {
		return b.growBestFirst(rows)
	}
	return b.growAt(rows, 0)
}

func (b *treeBuilder) makeLeaf(rows []int) *node {
	if b.leafValue != nil {
		return &node{leaf: true, value: b.leafValue(rows)}
	}
	return &node{leaf: true, value: b.mean(rows)}
}

// splitCandidate is a leaf that may still be split
type splitCandidate struct {
	n         *node
	rows      []int
	feature   int
	threshold float64
	decrease  float64
	ok        bool
}

// evaluate finds the best split of rows, if any
func (b *treeBuilder) evaluate(rows []int) splitCandidate {
	c := splitCandidate{rows: rows}
	if len(rows) < 2*b.minLeaf {
		return c
	}
	var sum, sumSq float64
	for _, r := range rows {
		sum += b.y[r]
		sumSq += b.y[r] * b.y[r]
	}
	parent := b.impurity(float64(len(rows)), sum, sumSq)
	if parent <= 1e-12 {
		return c
	}
	c.feature, c.threshold, c.decrease, c.ok = b.bestSplit(rows, parent)
	return c
}

func (b *treeBuilder) partition(rows []int, feature int, threshold float64) (left, right []int) {
	for _, r := range rows {
		if b.x[r][feature] <= threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	return left, right
}

// growBestFirst repeatedly splits the leaf with the largest impurity
// decrease until maxSplits splits are made or no leaf can be split.
// Ties go to the leaf created first.
func (b *treeBuilder) growBestFirst(rows []int) *node {
	root := &node{}
	first := b.evaluate(rows)
	first.n = root
	leaves := []splitCandidate{first}

	for splits := 0; splits < b.maxSplits; splits++ {
		best := -1
		for i, c := range leaves {
			if c.ok && (best < 0 || c.decrease > leaves[best].decrease) {
				best = i
			}
		}
		if best < 0 {
			break
		}
		c := leaves[best]
		b.gain[c.feature] += c.decrease

		left, right := b.partition(c.rows, c.feature, c.threshold)
		c.n.feature, c.n.threshold = c.feature, c.threshold
		c.n.left, c.n.right = &node{}, &node{}

		l, r := b.evaluate(left), b.evaluate(right)
		l.n, r.n = c.n.left, c.n.right
		leaves[best] = l
		leaves = append(leaves, r)
	}

	for _, c := range leaves {
		*c.n = *b.makeLeaf(c.rows)
	}
	return root
}

func (b *treeBuilder) growAt(rows []int, depth int) *node {
	if b.maxDepth > 0 && depth >= b.maxDepth {
		return b.makeLeaf(rows)
	}

	c := b.evaluate(rows)
	if !c.ok {
		return b.makeLeaf(rows)
	}
	feature, threshold := c.feature, c.threshold
	b.gain[feature] += c.decrease

	left, right := b.partition(rows, feature, threshold)

	return &node{
		feature:   feature,
		threshold: threshold,
		left:      b.growAt(left, depth+1),
		right:     b.growAt(right, depth+1),
	}
}

// candidateFeatures draws mtry distinct features, or all of them
func (b *treeBuilder) candidateFeatures() []int {
	p := len(b.gain)
	if b.mtry <= 0 || b.mtry >= p || b.rng == nil {
		all := make([]int, p)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return b.rng.Perm(p)[:b.mtry]
}

func (b *treeBuilder) bestSplit(rows []int, parent float64) (feature int, threshold, decrease float64, ok bool) {
	sorted := make([]int, len(rows))
	n := len(rows)

	for _, f := range b.candidateFeatures() {
		copy(sorted, rows)
		sort.Slice(sorted, func(i, j int) bool { return b.x[sorted[i]][f] < b.x[sorted[j]][f] })

		var totalSum, totalSq float64
		for _, r := range sorted {
			totalSum += b.y[r]
			totalSq += b.y[r] * b.y[r]
		}

		var leftSum, leftSq float64
		for i := 0; i < n-1; i++ {
			yi := b.y[sorted[i]]
			leftSum += yi
			leftSq += yi * yi

			nl := i + 1
			if nl < b.minLeaf || n-nl < b.minLeaf {
				continue
			}
			lo, hi := b.x[sorted[i]][f], b.x[sorted[i+1]][f]
			if lo == hi {
				continue
			}
			child := b.impurity(float64(nl), leftSum, leftSq) +
				b.impurity(float64(n-nl), totalSum-leftSum, totalSq-leftSq)
			if d := parent - child; d > decrease+1e-12 {
				mid := lo + (hi-lo)/2
				if mid >= hi {
					mid = lo
				}
				feature, threshold, decrease, ok = f, mid, d, true
			}
		}
	}
	return feature, threshold, decrease, ok
}
