package exporter

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"countyvote/internal/analysis"
	"countyvote/internal/dataprocessing"
	"countyvote/pkg/contracts/domain"
)

// TableExporter writes the report tables as CSV files
type TableExporter struct {
	writer *CSVWriter
}

// NewTableExporter creates a table exporter on top of w
func NewTableExporter(w *CSVWriter) *TableExporter {
	return &TableExporter{writer: w}
}

// ExportAll writes every table the report has data for and returns the
// written file names.
func (e *TableExporter) ExportAll(r *Report) ([]string, error) {
	var written []string
	write := func(name string, fn func() error) error {
		if err := fn(); err != nil {
			return fmt.Errorf("export %s: %w", name, err)
		}
		written = append(written, name)
		return nil
	}

	steps := []struct {
		name string
		ok   bool
		fn   func() error
	}{
		{e.writer.paths.MergedCSV, r.Merged != nil, func() error { return e.ExportMerged(r.Merged) }},
		{e.writer.paths.CountiesCSV, r.Counties != nil, func() error { return e.ExportCounties(r.Counties) }},
		{e.writer.paths.DiagnosticsCSV, true, func() error { return e.ExportDiagnostics(r.Diagnostics) }},
		{"federal_totals.csv", r.Federal != nil, func() error { return e.ExportFederal(r.Federal) }},
		{"linear_coefficients.csv", r.Linear != nil, func() error {
			return e.ExportCoefficients("linear_coefficients.csv", r.Linear.Coefficients)
		}},
		{"logistic_coefficients.csv", r.Logistic != nil, func() error {
			return e.ExportCoefficients("logistic_coefficients.csv", r.Logistic.Coefficients)
		}},
		{"logistic_roc.csv", r.Logistic != nil, func() error { return e.ExportROC(r.Logistic.ROC) }},
		{"forest_importance.csv", r.Forest != nil, func() error {
			return e.ExportImportance("forest_importance.csv", r.Forest.Importance)
		}},
		{"boost_influence.csv", r.Boost != nil, func() error {
			return e.ExportImportance("boost_influence.csv", r.Boost.Influence)
		}},
		{"boost_cv_deviance.csv", r.Boost != nil, func() error { return e.ExportDeviance(r.Boost.CVDeviance) }},
		{"kmeans_elbow.csv", r.Elbow != nil, func() error { return e.ExportElbow(r.Elbow) }},
		{"kmeans_clusters.csv", r.KMeans != nil, func() error { return e.ExportClusters(r.KMeans) }},
		{"kmeans_assignments.csv", r.KMeans != nil, func() error { return e.ExportAssignments(r.KMeans) }},
	}
	for _, s := range steps {
		if !s.ok {
			continue
		}
		if err := write(s.name, s.fn); err != nil {
			return written, err
		}
	}

	slog.Info("Exported report tables", slog.Int("files", len(written)))
	return written, nil
}

// MergedHeaders is the column layout of the merged table
func MergedHeaders() []string {
	headers := []string{"state", "county", "fips", "candidate", "votes", "rank", "share", "total_pop", "tracts"}
	return append(headers, domain.DemographicColumns...)
}

// ExportMerged streams the merged county table, two rows per county
func (e *TableExporter) ExportMerged(records []domain.MergedRecord) error {
	sw, err := e.writer.CreateStreamWriter(e.writer.paths.MergedCSV, MergedHeaders())
	if err != nil {
		return err
	}
	for _, m := range records {
		row := []string{
			m.Key.State,
			m.Key.County,
			m.FIPS,
			m.Candidate,
			formatInt(m.Votes),
			strconv.Itoa(m.Rank),
			formatFloat(m.Share),
			formatFloat(m.Census.TotalPop),
			strconv.Itoa(m.Census.Tracts),
		}
		for _, v := range m.Census.Values() {
			row = append(row, formatFloat(v))
		}
		if err := sw.WriteRecord(row); err != nil {
			sw.Close()
			return fmt.Errorf("failed to write record %d: %w", sw.Rows(), err)
		}
	}
	return sw.Close()
}

// ExportCounties writes the population-weighted county demographics
func (e *TableExporter) ExportCounties(counties []domain.CountyDemographics) error {
	headers := append([]string{"state", "county", "total_pop", "tracts", "weight_sum"}, domain.DemographicColumns...)
	records := make([][]string, 0, len(counties))
	for _, c := range counties {
		row := []string{c.State, c.County, formatFloat(c.TotalPop), strconv.Itoa(c.Tracts), formatFloat(c.WeightSum)}
		for _, v := range c.Values() {
			row = append(row, formatFloat(v))
		}
		records = append(records, row)
	}
	return e.writer.WriteSimpleCSV(e.writer.paths.CountiesCSV, headers, records)
}

// ExportDiagnostics writes one row per (stage, reason) drop count
func (e *TableExporter) ExportDiagnostics(diag dataprocessing.Diagnostics) error {
	records := make([][]string, 0, len(diag.Drops))
	for _, d := range diag.Drops {
		records = append(records, []string{d.Stage, d.Reason, strconv.Itoa(d.Count), strings.Join(d.Examples, "; ")})
	}
	return e.writer.WriteSimpleCSV(e.writer.paths.DiagnosticsCSV, []string{"stage", "reason", "count", "examples"}, records)
}

// ExportFederal writes the nationwide candidate totals
func (e *TableExporter) ExportFederal(totals []domain.CandidateTotal) error {
	records := make([][]string, 0, len(totals))
	for _, t := range totals {
		records = append(records, []string{t.Candidate, formatInt(t.Votes), formatFloat(t.Share)})
	}
	return e.writer.WriteSimpleCSV("federal_totals.csv", []string{"candidate", "votes", "share"}, records)
}

// ExportCoefficients writes a model's fitted parameters
func (e *TableExporter) ExportCoefficients(name string, coefs []analysis.Coefficient) error {
	records := make([][]string, 0, len(coefs))
	for _, c := range coefs {
		records = append(records, []string{c.Name, formatFloat(c.Estimate)})
	}
	return e.writer.WriteSimpleCSV(name, []string{"term", "estimate"}, records)
}

// ExportImportance writes ranked predictor importances
func (e *TableExporter) ExportImportance(name string, imp []analysis.Importance) error {
	records := make([][]string, 0, len(imp))
	for i, v := range imp {
		records = append(records, []string{strconv.Itoa(i + 1), v.Name, formatFloat(v.Value)})
	}
	return e.writer.WriteSimpleCSV(name, []string{"rank", "predictor", "value"}, records)
}

// ExportROC writes the logistic test-set curve
func (e *TableExporter) ExportROC(points []analysis.ROCPoint) error {
	records := make([][]string, 0, len(points))
	for _, p := range points {
		records = append(records, []string{formatFloat(p.Threshold), formatFloat(p.FPR), formatFloat(p.TPR)})
	}
	return e.writer.WriteSimpleCSV("logistic_roc.csv", []string{"threshold", "fpr", "tpr"}, records)
}

// ExportDeviance writes the cross-validated deviance per tree count
func (e *TableExporter) ExportDeviance(deviance []float64) error {
	records := make([][]string, 0, len(deviance))
	for m, d := range deviance {
		records = append(records, []string{strconv.Itoa(m + 1), formatFloat(d)})
	}
	return e.writer.WriteSimpleCSV("boost_cv_deviance.csv", []string{"trees", "deviance"}, records)
}

// ExportElbow writes the inertia sweep
func (e *TableExporter) ExportElbow(points []analysis.ElbowPoint) error {
	records := make([][]string, 0, len(points))
	for _, p := range points {
		records = append(records, []string{strconv.Itoa(p.K), formatFloat(p.Inertia)})
	}
	return e.writer.WriteSimpleCSV("kmeans_elbow.csv", []string{"k", "inertia"}, records)
}

// ExportClusters writes one row per final cluster with its center in
// standardized units
func (e *TableExporter) ExportClusters(res *analysis.KMeansResult) error {
	headers := append([]string{"cluster", "size", "won", "won_share"}, res.Names...)
	records := make([][]string, 0, len(res.Clusters))
	for _, c := range res.Clusters {
		row := []string{strconv.Itoa(c.Cluster), strconv.Itoa(c.Size), strconv.Itoa(c.Won), formatFloat(c.WonShare)}
		for _, v := range c.Center {
			row = append(row, formatFloat(v))
		}
		records = append(records, row)
	}
	return e.writer.WriteSimpleCSV("kmeans_clusters.csv", headers, records)
}

// ExportAssignments writes each county's cluster and PCA coordinates
func (e *TableExporter) ExportAssignments(res *analysis.KMeansResult) error {
	records := make([][]string, 0, len(res.Labels))
	for i, label := range res.Labels {
		row := []string{res.Keys[i].State, res.Keys[i].County, strconv.Itoa(label + 1)}
		for _, s := range res.Scores[i] {
			row = append(row, formatFloat(s))
		}
		records = append(records, row)
	}
	return e.writer.WriteSimpleCSV("kmeans_assignments.csv", []string{"state", "county", "cluster", "pc1", "pc2"}, records)
}
