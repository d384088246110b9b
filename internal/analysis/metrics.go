package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// Confusion is a binary confusion matrix
type Confusion struct {
	TP int `json:"tp"`
	FP int `json:"fp"`
	TN int `json:"tn"`
	FN int `json:"fn"`
}

// Total returns the number of classified rows
func (c Confusion) Total() int { return c.TP + c.FP + c.TN + c.FN }

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

// TPR is the true positive rate (sensitivity)
func (c Confusion) TPR() float64 { return ratio(c.TP, c.TP+c.FN) }

// FPR is the false positive rate
func (c Confusion) FPR() float64 { return ratio(c.FP, c.FP+c.TN) }

// TNR is the true negative rate (specificity)
func (c Confusion) TNR() float64 { return ratio(c.TN, c.FP+c.TN) }

// FNR is the false negative rate
func (c Confusion) FNR() float64 { return ratio(c.FN, c.TP+c.FN) }

// Accuracy is the share of rows classified correctly
func (c Confusion) Accuracy() float64 { return ratio(c.TP+c.TN, c.Total()) }

// ErrorRate is the share of rows misclassified
func (c Confusion) ErrorRate() float64 { return ratio(c.FP+c.FN, c.Total()) }

// ConfusionAt classifies scores at or above threshold as positive
func ConfusionAt(scores, labels []float64, threshold float64) Confusion {
	var c Confusion
	for i, s := range scores {
		pred := s >= threshold
		actual := labels[i] == 1
		switch {
		case pred && actual:
			c.TP++
		case pred && !actual:
			c.FP++
		case !pred && actual:
			c.FN++
		default:
			c.TN++
		}
	}
	return c
}

// Evaluation is a confusion matrix and its rates at one threshold
type Evaluation struct {
	Threshold float64   `json:"threshold"`
	Confusion Confusion `json:"confusion"`
	TPR       float64   `json:"tpr"`
	FPR       float64   `json:"fpr"`
	TNR       float64   `json:"tnr"`
	FNR       float64   `json:"fnr"`
	Accuracy  float64   `json:"accuracy"`
}

// Evaluate scores labels at threshold
func Evaluate(scores, labels []float64, threshold float64) Evaluation {
	c := ConfusionAt(scores, labels, threshold)
	return Evaluation{
		Threshold: threshold,
		Confusion: c,
		TPR:       c.TPR(),
		FPR:       c.FPR(),
		TNR:       c.TNR(),
		FNR:       c.FNR(),
		Accuracy:  c.Accuracy(),
	}
}

// ROCPoint is one point of a receiver operating characteristic curve
type ROCPoint struct {
	Threshold float64 `json:"threshold"`
	FPR       float64 `json:"fpr"`
	TPR       float64 `json:"tpr"`
}

// ROC computes the curve of scores against labels with gonum's stat.ROC,
// ordered by increasing FPR.
func ROC(scores, labels []float64) []ROCPoint {
	y := append([]float64(nil), scores...)
	classes := make([]bool, len(labels))
	for i, l := range labels {
		classes[i] = l == 1
	}
	stat.SortWeightedLabeled(y, classes, nil)

	tpr, fpr, thresh := stat.ROC(nil, y, classes, nil)
	points := make([]ROCPoint, len(tpr))
	for i := range tpr {
		points[i] = ROCPoint{Threshold: thresh[i], FPR: fpr[i], TPR: tpr[i]}
	}
	sort.SliceStable(points, func(i, j int) bool {
		if points[i].FPR != points[j].FPR {
			return points[i].FPR < points[j].FPR
		}
		return points[i].TPR < points[j].TPR
	})
	return points
}

// AUC integrates the curve with the trapezoidal rule, anchored at (0,0)
// and (1,1).
func AUC(points []ROCPoint) float64 {
	x := []float64{0}
	f := []float64{0}
	for _, p := range points {
		if math.IsNaN(p.FPR) || math.IsNaN(p.TPR) {
			continue
		}
		x = append(x, p.FPR)
		f = append(f, p.TPR)
	}
	x = append(x, 1)
	f = append(f, 1)
	return integrate.Trapezoidal(x, f)
}

// YoudenThreshold returns the finite curve threshold maximizing TPR - FPR
// when rows scoring at or above it are called positive. Ties keep the
// higher threshold. fallback is returned when no finite threshold exists.
func YoudenThreshold(points []ROCPoint, scores, labels []float64, fallback float64) float64 {
	best, bestJ := fallback, math.Inf(-1)

	candidates := make([]float64, 0, len(points))
	for _, p := range points {
		if !math.IsInf(p.Threshold, 0) && !math.IsNaN(p.Threshold) {
			candidates = append(candidates, p.Threshold)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(candidates)))

	for _, t := range candidates {
		c := ConfusionAt(scores, labels, t)
		if j := c.TPR() - c.FPR(); j > bestJ {
			best, bestJ = t, j
		}
	}
	return best
}
