package exporter

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"countyvote/internal/analysis"
)

// sheet appends rows to one worksheet
type sheet struct {
	f    *excelize.File
	name string
	row  int
}

func (s *sheet) add(values ...interface{}) error {
	s.row++
	cell, err := excelize.CoordinatesToCellName(1, s.row)
	if err != nil {
		return err
	}
	return s.f.SetSheetRow(s.name, cell, &values)
}

// header writes a bold row
func (s *sheet) header(style int, values ...interface{}) error {
	if err := s.add(values...); err != nil {
		return err
	}
	first, err := excelize.CoordinatesToCellName(1, s.row)
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(values), s.row)
	if err != nil {
		return err
	}
	return s.f.SetCellStyle(s.name, first, last, style)
}

func (s *sheet) blank() {
	s.row++
}

func strs(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// WriteWorkbook saves the report as one spreadsheet with a sheet per model
func WriteWorkbook(path string, r *Report) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	newSheet := func(name string) (*sheet, error) {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
		return &sheet{f: f, name: name}, nil
	}

	if err := f.SetSheetName("Sheet1", "Summary"); err != nil {
		return err
	}
	summary := &sheet{f: f, name: "Summary"}
	if err := writeSummarySheet(summary, bold, r); err != nil {
		return fmt.Errorf("summary sheet: %w", err)
	}

	diag, err := newSheet("Diagnostics")
	if err != nil {
		return err
	}
	if err := diag.header(bold, "Stage", "Reason", "Count", "Examples"); err != nil {
		return err
	}
	for _, d := range r.Diagnostics.Drops {
		if err := diag.add(d.Stage, d.Reason, d.Count, strings.Join(d.Examples, "; ")); err != nil {
			return err
		}
	}

	if r.Linear != nil {
		s, err := newSheet("Linear")
		if err != nil {
			return err
		}
		if err := writeLinearSheet(s, bold, r.Linear); err != nil {
			return fmt.Errorf("linear sheet: %w", err)
		}
	}
	if r.Logistic != nil {
		s, err := newSheet("Logistic")
		if err != nil {
			return err
		}
		if err := writeLogisticSheet(s, bold, r.Logistic); err != nil {
			return fmt.Errorf("logistic sheet: %w", err)
		}
	}
	if r.Forest != nil {
		s, err := newSheet("Forest")
		if err != nil {
			return err
		}
		if err := writeForestSheet(s, bold, r.Forest); err != nil {
			return fmt.Errorf("forest sheet: %w", err)
		}
	}
	if r.Boost != nil {
		s, err := newSheet("Boost")
		if err != nil {
			return err
		}
		if err := writeBoostSheet(s, bold, r.Boost); err != nil {
			return fmt.Errorf("boost sheet: %w", err)
		}
	}
	if r.KMeans != nil || r.Elbow != nil {
		s, err := newSheet("KMeans")
		if err != nil {
			return err
		}
		if err := writeKMeansSheet(s, bold, r.KMeans, r.Elbow); err != nil {
			return fmt.Errorf("k-means sheet: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}

	slog.Info("Wrote workbook", slog.String("path", path), slog.Int("sheets", f.SheetCount))
	return nil
}

func writeSummarySheet(s *sheet, bold int, r *Report) error {
	rows := [][]interface{}{
		{"Run", r.RunID},
		{"Candidate", r.Candidate},
		{"Seed", r.Seed},
		{"Census tracts", r.CensusTracts},
		{"Election rows", r.ElectionRows},
		{"Counties", len(r.Counties)},
		{"Matched counties", r.MatchedCounties()},
		{"Rows dropped", r.Diagnostics.Total()},
	}
	if err := s.header(bold, "Field", "Value"); err != nil {
		return err
	}
	for _, row := range rows {
		if err := s.add(row...); err != nil {
			return err
		}
	}
	if len(r.Federal) == 0 {
		return nil
	}
	s.blank()
	if err := s.header(bold, "Candidate", "Votes", "Share"); err != nil {
		return err
	}
	for _, t := range r.Federal {
		if err := s.add(t.Candidate, t.Votes, t.Share); err != nil {
			return err
		}
	}
	return nil
}

func writeCoefficients(s *sheet, bold int, coefs []analysis.Coefficient) error {
	if err := s.header(bold, "Term", "Estimate"); err != nil {
		return err
	}
	for _, c := range coefs {
		if err := s.add(c.Name, c.Estimate); err != nil {
			return err
		}
	}
	return nil
}

func writeEvaluation(s *sheet, bold int, label string, e analysis.Evaluation) error {
	if err := s.header(bold, label, "Threshold", "TP", "FP", "TN", "FN", "TPR", "FPR", "TNR", "FNR", "Accuracy"); err != nil {
		return err
	}
	c := e.Confusion
	return s.add("", e.Threshold, c.TP, c.FP, c.TN, c.FN, e.TPR, e.FPR, e.TNR, e.FNR, e.Accuracy)
}

func writeImportance(s *sheet, bold int, label string, imp []analysis.Importance) error {
	if err := s.header(bold, "Rank", "Predictor", label); err != nil {
		return err
	}
	for i, v := range imp {
		if err := s.add(i+1, v.Name, v.Value); err != nil {
			return err
		}
	}
	return nil
}

func writeLinearSheet(s *sheet, bold int, res *analysis.LinearResult) error {
	for _, row := range [][]interface{}{
		{"Train rows", res.TrainRows},
		{"Test rows", res.TestRows},
		{"Train R²", res.TrainR2},
		{"Test RMSE", res.TestRMSE},
		{"Win threshold", res.WinThreshold},
		{"Actual wins", res.ActualWins},
		{"Predicted wins", res.PredictedWins},
		{"Agreement", res.Agreement},
	} {
		if err := s.add(row...); err != nil {
			return err
		}
	}
	s.blank()
	return writeCoefficients(s, bold, res.Coefficients)
}

func writeLogisticSheet(s *sheet, bold int, res *analysis.LogisticResult) error {
	for _, row := range [][]interface{}{
		{"Train rows", res.TrainRows},
		{"Test rows", res.TestRows},
		{"Iterations", res.Iterations},
		{"Converged", formatBool(res.Converged)},
		{"AUC", res.AUC},
	} {
		if err := s.add(row...); err != nil {
			return err
		}
	}
	s.blank()
	if err := writeEvaluation(s, bold, "Default", res.Default); err != nil {
		return err
	}
	if err := writeEvaluation(s, bold, "Optimal", res.Optimal); err != nil {
		return err
	}
	s.blank()
	if err := writeCoefficients(s, bold, res.Coefficients); err != nil {
		return err
	}
	s.blank()
	if err := s.header(bold, "Threshold", "FPR", "TPR"); err != nil {
		return err
	}
	for _, p := range res.ROC {
		// excelize rejects infinite values
		th := interface{}(p.Threshold)
		if math.IsInf(p.Threshold, 0) {
			th = "Inf"
		}
		if err := s.add(th, p.FPR, p.TPR); err != nil {
			return err
		}
	}
	return nil
}

func writeForestSheet(s *sheet, bold int, res *analysis.ForestResult) error {
	for _, row := range [][]interface{}{
		{"Trees", res.Trees},
		{"Mtry", res.Mtry},
		{"Train rows", res.TrainRows},
		{"Test rows", res.TestRows},
		{"OOB error", res.OOBError},
		{"Test error", res.TestError},
	} {
		if err := s.add(row...); err != nil {
			return err
		}
	}
	s.blank()
	if err := writeEvaluation(s, bold, "Test", res.Test); err != nil {
		return err
	}
	s.blank()
	return writeImportance(s, bold, "Accuracy decrease", res.Importance)
}

func writeBoostSheet(s *sheet, bold int, res *analysis.BoostResult) error {
	for _, row := range [][]interface{}{
		{"Max trees", res.MaxTrees},
		{"Best trees", res.BestTrees},
		{"Depth", res.Depth},
		{"Folds", res.Folds},
		{"Train rows", res.TrainRows},
		{"Test rows", res.TestRows},
	} {
		if err := s.add(row...); err != nil {
			return err
		}
	}
	s.blank()
	if err := writeEvaluation(s, bold, "Test", res.Test); err != nil {
		return err
	}
	s.blank()
	if err := writeImportance(s, bold, "Relative influence (%)", res.Influence); err != nil {
		return err
	}
	s.blank()
	if err := s.header(bold, "Trees", "CV deviance"); err != nil {
		return err
	}
	for m, d := range res.CVDeviance {
		if err := s.add(m+1, d); err != nil {
			return err
		}
	}
	return nil
}

func writeKMeansSheet(s *sheet, bold int, res *analysis.KMeansResult, elbow []analysis.ElbowPoint) error {
	if res != nil {
		if err := s.add("K", res.K); err != nil {
			return err
		}
		if err := s.add("Inertia", res.Inertia); err != nil {
			return err
		}
		s.blank()
		if err := s.header(bold, append([]interface{}{"Cluster", "Size", "Won", "Won share"}, strs(res.Names)...)...); err != nil {
			return err
		}
		for _, c := range res.Clusters {
			row := []interface{}{c.Cluster, c.Size, c.Won, c.WonShare}
			for _, v := range c.Center {
				row = append(row, v)
			}
			if err := s.add(row...); err != nil {
				return err
			}
		}
		s.blank()
	}
	if err := s.header(bold, "k", "Inertia"); err != nil {
		return err
	}
	for _, p := range elbow {
		if err := s.add(p.K, p.Inertia); err != nil {
			return err
		}
	}
	return nil
}
