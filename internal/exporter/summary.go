package exporter

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"countyvote/internal/analysis"
)

// WriteSummary renders the console report: input counts, drops and one
// table per fitted model.
func WriteSummary(w io.Writer, r *Report) error {
	fmt.Fprintf(w, "countyvote report  run=%s  candidate=%q  seed=%d\n", r.RunID, r.Candidate, r.Seed)
	if r.Duration > 0 {
		fmt.Fprintf(w, "started %s, took %s\n", humanize.Time(r.StartedAt), r.Duration.Round(time.Millisecond))
	}
	fmt.Fprintln(w)

	section(w, "Inputs")
	t := newTable(w, "Item", "Count")
	t.Append([]string{"Census tracts", humanize.Comma(int64(r.CensusTracts))})
	t.Append([]string{"Election rows", humanize.Comma(int64(r.ElectionRows))})
	t.Append([]string{"Counties (census)", humanize.Comma(int64(len(r.Counties)))})
	t.Append([]string{"Counties (matched)", humanize.Comma(int64(r.MatchedCounties()))})
	t.Append([]string{"Regression rows", humanize.Comma(int64(r.RegressionRows))})
	t.Append([]string{"Classification rows", humanize.Comma(int64(r.ClassRows))})
	t.Render()

	if len(r.Federal) > 0 {
		section(w, "National totals")
		t = newTable(w, "Candidate", "Votes", "Share")
		for _, c := range r.Federal {
			t.Append([]string{c.Candidate, humanize.Comma(c.Votes), formatPercent(c.Share)})
		}
		t.Render()
	}

	if len(r.Diagnostics.Drops) > 0 {
		section(w, "Dropped rows")
		t = newTable(w, "Stage", "Reason", "Count", "Example")
		for _, d := range r.Diagnostics.Drops {
			example := ""
			if len(d.Examples) > 0 {
				example = d.Examples[0]
			}
			t.Append([]string{d.Stage, d.Reason, humanize.Comma(int64(d.Count)), example})
		}
		t.Render()
	}

	if r.Linear != nil {
		section(w, "Linear regression of two-candidate share")
		fmt.Fprintf(w, "train R² %s  test RMSE %s  wins actual %d predicted %d  agreement %s\n",
			formatFixed(r.Linear.TrainR2, 4), formatFixed(r.Linear.TestRMSE, 4),
			r.Linear.ActualWins, r.Linear.PredictedWins, formatPercent(r.Linear.Agreement))
		coefficientTable(w, r.Linear.Coefficients)
	}

	if r.Logistic != nil {
		section(w, "Logistic regression of county wins")
		fmt.Fprintf(w, "iterations %d  converged %s  AUC %s\n",
			r.Logistic.Iterations, formatBool(r.Logistic.Converged), formatFixed(r.Logistic.AUC, 4))
		evaluationTable(w, map[string]analysis.Evaluation{
			"default": r.Logistic.Default,
			"optimal": r.Logistic.Optimal,
		}, "default", "optimal")
		coefficientTable(w, r.Logistic.Coefficients)
	}

	if r.Forest != nil {
		section(w, "Random forest")
		fmt.Fprintf(w, "trees %d  mtry %d  OOB error %s  test error %s\n",
			r.Forest.Trees, r.Forest.Mtry, formatPercent(r.Forest.OOBError), formatPercent(r.Forest.TestError))
		evaluationTable(w, map[string]analysis.Evaluation{"test": r.Forest.Test}, "test")
		importanceTable(w, "Accuracy decrease", r.Forest.Importance, 10)
	}

	if r.Boost != nil {
		section(w, "Boosted trees")
		deviance := math.NaN()
		if r.Boost.BestTrees > 0 {
			deviance = r.Boost.CVDeviance[r.Boost.BestTrees-1]
		}
		fmt.Fprintf(w, "best trees %d of %d  depth %d  %d-fold CV deviance %s\n",
			r.Boost.BestTrees, r.Boost.MaxTrees, r.Boost.Depth, r.Boost.Folds, formatFixed(deviance, 4))
		evaluationTable(w, map[string]analysis.Evaluation{"test": r.Boost.Test}, "test")
		importanceTable(w, "Influence (%)", r.Boost.Influence, 10)
	}

	if len(r.Elbow) > 0 {
		section(w, "K-means elbow")
		t = newTable(w, "k", "Inertia")
		for _, p := range r.Elbow {
			t.Append([]string{fmt.Sprint(p.K), humanize.Commaf(roundTo(p.Inertia, 2))})
		}
		t.Render()
	}

	if r.KMeans != nil {
		section(w, fmt.Sprintf("K-means clusters (k=%d)", r.KMeans.K))
		t = newTable(w, "Cluster", "Counties", "Won", "Won share")
		for _, c := range r.KMeans.Clusters {
			t.Append([]string{fmt.Sprint(c.Cluster), humanize.Comma(int64(c.Size)), humanize.Comma(int64(c.Won)), formatPercent(c.WonShare)})
		}
		t.Render()
	}

	return nil
}

// WriteSummaryFile writes the summary to path
func WriteSummaryFile(path string, r *Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create summary: %w", err)
	}
	if err := WriteSummary(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n== %s ==\n", title)
}

func newTable(w io.Writer, headers ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(headers)
	t.SetAutoFormatHeaders(false)
	t.SetAlignment(tablewriter.ALIGN_RIGHT)
	return t
}

func coefficientTable(w io.Writer, coefs []analysis.Coefficient) {
	t := newTable(w, "Term", "Estimate")
	for _, c := range coefs {
		t.Append([]string{c.Name, formatFixed(c.Estimate, 6)})
	}
	t.Render()
}

func evaluationTable(w io.Writer, evals map[string]analysis.Evaluation, order ...string) {
	t := newTable(w, "", "Threshold", "TP", "FP", "TN", "FN", "TPR", "FPR", "Accuracy")
	for _, name := range order {
		e := evals[name]
		c := e.Confusion
		t.Append([]string{
			name, formatFixed(e.Threshold, 4),
			fmt.Sprint(c.TP), fmt.Sprint(c.FP), fmt.Sprint(c.TN), fmt.Sprint(c.FN),
			formatPercent(e.TPR), formatPercent(e.FPR), formatPercent(e.Accuracy),
		})
	}
	t.Render()
}

func importanceTable(w io.Writer, label string, imp []analysis.Importance, limit int) {
	t := newTable(w, "Rank", "Predictor", label)
	for i, v := range imp {
		if i == limit {
			break
		}
		t.Append([]string{fmt.Sprint(i + 1), v.Name, formatFixed(v.Value, 4)})
	}
	t.Render()
}

func roundTo(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}
