package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains all report output locations for one run.
// This is the single source of truth for report file paths.
type Paths struct {
	ReportsDir string
	TablesDir  string
	PlotsDir   string

	// Well-known report files
	MergedCSV      string
	CountiesCSV    string
	DiagnosticsCSV string
	SummaryText    string
	WorkbookFile   string
	ElbowPlot      string
	ROCPlot        string
	ClusterPlot    string
	ImportancePlot string
}

// NewPaths lays out the report directory tree under reportsDir.
//
//	reports/
//	  ├── summary.txt
//	  ├── countyvote.xlsx
//	  ├── tables/   (CSV exports)
//	  └── plots/    (PNG figures)
func NewPaths(reportsDir string) *Paths {
	tablesDir := filepath.Join(reportsDir, "tables")
	plotsDir := filepath.Join(reportsDir, "plots")

	return &Paths{
		ReportsDir: reportsDir,
		TablesDir:  tablesDir,
		PlotsDir:   plotsDir,

		MergedCSV:      filepath.Join(tablesDir, "merged.csv"),
		CountiesCSV:    filepath.Join(tablesDir, "county_demographics.csv"),
		DiagnosticsCSV: filepath.Join(tablesDir, "diagnostics.csv"),
		SummaryText:    filepath.Join(reportsDir, "summary.txt"),
		WorkbookFile:   filepath.Join(reportsDir, "countyvote.xlsx"),
		ElbowPlot:      filepath.Join(plotsDir, "kmeans_elbow.png"),
		ROCPlot:        filepath.Join(plotsDir, "logistic_roc.png"),
		ClusterPlot:    filepath.Join(plotsDir, "kmeans_pca.png"),
		ImportancePlot: filepath.Join(plotsDir, "forest_importance.png"),
	}
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.ReportsDir,
		p.TablesDir,
		p.PlotsDir,
	}

	logger := slog.Default()

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		logger.Debug("Ensured directory exists", slog.String("directory", dir))
	}

	return nil
}

// GetReportPath returns the path for a report file
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}

// GetTablePath returns the path for a CSV table
func (p *Paths) GetTablePath(filename string) string {
	return filepath.Join(p.TablesDir, filename)
}

// GetPlotPath returns the path for a figure
func (p *Paths) GetPlotPath(filename string) string {
	return filepath.Join(p.PlotsDir, filename)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
