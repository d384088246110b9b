package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathHelperMethods(t *testing.T) {
	paths := NewPaths("/srv/reports")

	tests := []struct {
		name     string
		method   func(string) string
		input    string
		expected string
	}{
		{
			name:     "GetReportPath",
			method:   paths.GetReportPath,
			input:    "summary.txt",
			expected: "/srv/reports/summary.txt",
		},
		{
			name:     "GetTablePath",
			method:   paths.GetTablePath,
			input:    "logistic_roc.csv",
			expected: "/srv/reports/tables/logistic_roc.csv",
		},
		{
			name:     "GetPlotPath",
			method:   paths.GetPlotPath,
			input:    "kmeans_pca.png",
			expected: "/srv/reports/plots/kmeans_pca.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, filepath.ToSlash(tt.method(tt.input)))
		})
	}
}

func TestNewPaths_WellKnownFiles(t *testing.T) {
	paths := NewPaths("out")

	files := map[string]string{
		"MergedCSV":      paths.MergedCSV,
		"CountiesCSV":    paths.CountiesCSV,
		"DiagnosticsCSV": paths.DiagnosticsCSV,
		"SummaryText":    paths.SummaryText,
		"WorkbookFile":   paths.WorkbookFile,
		"ElbowPlot":      paths.ElbowPlot,
		"ROCPlot":        paths.ROCPlot,
		"ClusterPlot":    paths.ClusterPlot,
		"ImportancePlot": paths.ImportancePlot,
	}
	seen := make(map[string]string)
	for name, path := range files {
		rel, err := filepath.Rel("out", path)
		require.NoError(t, err, name)
		assert.NotContains(t, rel, "..", name)
		if other, dup := seen[path]; dup {
			t.Errorf("%s and %s share %s", name, other, path)
		}
		seen[path] = name
	}
}

func TestEnsureDirectories_Idempotent(t *testing.T) {
	paths := NewPaths(filepath.Join(t.TempDir(), "a", "b"))

	require.NoError(t, paths.EnsureDirectories())
	require.NoError(t, paths.EnsureDirectories())
	for _, dir := range []string{paths.ReportsDir, paths.TablesDir, paths.PlotsDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestEnsureDirectories_BlockedByFile(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "reports")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	err := NewPaths(blocker).EnsureDirectories()
	assert.Error(t, err)
}
