package exporter

import (
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"countyvote/internal/analysis"
	"countyvote/internal/config"
)

const (
	plotWidth  = 6 * vg.Inch
	plotHeight = 4 * vg.Inch
)

// WritePlots renders every figure the report has data for and returns
// the written paths.
func WritePlots(paths *config.Paths, r *Report) ([]string, error) {
	if err := os.MkdirAll(paths.PlotsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	var written []string
	render := func(path string, p *plot.Plot, err error) error {
		if err != nil {
			return fmt.Errorf("plot %s: %w", filepath.Base(path), err)
		}
		if err := p.Save(plotWidth, plotHeight, path); err != nil {
			return fmt.Errorf("save %s: %w", filepath.Base(path), err)
		}
		written = append(written, path)
		return nil
	}

	if len(r.Elbow) > 0 {
		p, err := ElbowPlot(r.Elbow)
		if err := render(paths.ElbowPlot, p, err); err != nil {
			return written, err
		}
	}
	if r.Logistic != nil {
		p, err := ROCPlot(r.Logistic)
		if err := render(paths.ROCPlot, p, err); err != nil {
			return written, err
		}
	}
	if r.KMeans != nil {
		p, err := ClusterPlot(r.KMeans)
		if err := render(paths.ClusterPlot, p, err); err != nil {
			return written, err
		}
	}
	if r.Forest != nil {
		p, err := ImportancePlot("Random forest importance", "Mean decrease in accuracy", r.Forest.Importance)
		if err := render(paths.ImportancePlot, p, err); err != nil {
			return written, err
		}
	}

	slog.Info("Rendered plots", slog.Int("files", len(written)))
	return written, nil
}

// ElbowPlot draws inertia against the number of clusters
func ElbowPlot(points []analysis.ElbowPoint) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "K-means elbow"
	p.X.Label.Text = "Clusters (k)"
	p.Y.Label.Text = "Within-cluster sum of squares"

	xys := make(plotter.XYs, len(points))
	for i, pt := range points {
		xys[i].X = float64(pt.K)
		xys[i].Y = pt.Inertia
	}
	if err := plotutil.AddLinePoints(p, "inertia", xys); err != nil {
		return nil, err
	}
	p.Legend.Top = true
	return p, nil
}

// ROCPlot draws the logistic test-set curve with the chance diagonal
func ROCPlot(res *analysis.LogisticResult) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Logistic regression ROC (AUC %.3f)", res.AUC)
	p.X.Label.Text = "False positive rate"
	p.Y.Label.Text = "True positive rate"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1

	xys := plotter.XYs{{X: 0, Y: 0}}
	for _, pt := range res.ROC {
		xys = append(xys, plotter.XY{X: pt.FPR, Y: pt.TPR})
	}
	xys = append(xys, plotter.XY{X: 1, Y: 1})

	curve, err := plotter.NewLine(xys)
	if err != nil {
		return nil, err
	}
	curve.Color = plotutil.Color(0)
	curve.Width = vg.Points(1.5)

	chance := plotter.NewFunction(func(x float64) float64 { return x })
	chance.Color = color.Gray{Y: 128}
	chance.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}

	optimal, err := plotter.NewScatter(plotter.XYs{{X: res.Optimal.FPR, Y: res.Optimal.TPR}})
	if err != nil {
		return nil, err
	}
	optimal.GlyphStyle.Color = plotutil.Color(1)
	optimal.GlyphStyle.Radius = vg.Points(4)

	p.Add(plotter.NewGrid(), chance, curve, optimal)
	p.Legend.Add("test ROC", curve)
	p.Legend.Add(fmt.Sprintf("threshold %.3f", res.Optimal.Threshold), optimal)
	p.Legend.Left = false
	p.Legend.Top = false
	return p, nil
}

// ClusterPlot scatters counties on their first two principal components,
// one glyph style per cluster
func ClusterPlot(res *analysis.KMeansResult) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("K-means clusters (k=%d)", res.K)
	p.X.Label.Text = "PC1"
	p.Y.Label.Text = "PC2"
	if len(res.Explained) == 2 {
		p.X.Label.Text = fmt.Sprintf("PC1 (%.1f%%)", 100*res.Explained[0])
		p.Y.Label.Text = fmt.Sprintf("PC2 (%.1f%%)", 100*res.Explained[1])
	}

	groups := make([]plotter.XYs, res.K)
	for i, label := range res.Labels {
		pt := plotter.XY{X: res.Scores[i][0]}
		if len(res.Scores[i]) > 1 {
			pt.Y = res.Scores[i][1]
		}
		groups[label] = append(groups[label], pt)
	}

	p.Add(plotter.NewGrid())
	for c, xys := range groups {
		if len(xys) == 0 {
			continue
		}
		s, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, err
		}
		s.GlyphStyle.Color = plotutil.Color(c)
		s.GlyphStyle.Shape = plotutil.Shape(c)
		s.GlyphStyle.Radius = vg.Points(2)
		p.Add(s)
		p.Legend.Add(fmt.Sprintf("cluster %d", c+1), s)
	}
	return p, nil
}

// ImportancePlot draws a horizontal bar per predictor, largest on top
func ImportancePlot(title, label string, imp []analysis.Importance) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = label

	n := len(imp)
	values := make(plotter.Values, n)
	names := make([]string, n)
	for i, v := range imp {
		// bars are drawn bottom up
		values[n-1-i] = v.Value
		names[n-1-i] = v.Name
	}

	bars, err := plotter.NewBarChart(values, vg.Points(8))
	if err != nil {
		return nil, err
	}
	bars.Horizontal = true
	bars.Color = plotutil.Color(2)
	bars.LineStyle.Width = vg.Length(0)

	p.Add(bars)
	p.NominalY(names...)
	return p, nil
}
