package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "countyvote/internal/errors"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "countyvote.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "Donald Trump", cfg.Analysis.Candidate)
	assert.Equal(t, int64(1), cfg.Analysis.Seed)
	assert.Equal(t, 0.8, cfg.Analysis.TrainFraction)
	assert.Equal(t, 100, cfg.Analysis.Forest.Trees)
	assert.Equal(t, 5, cfg.Analysis.Forest.Mtry)
	assert.Equal(t, 100, cfg.Analysis.Boost.Trees)
	assert.Equal(t, 3, cfg.Analysis.Boost.Depth)
	assert.Equal(t, 5, cfg.Analysis.Boost.Folds)
	assert.Equal(t, 3, cfg.Analysis.KMeans.K)
	assert.Equal(t, 5, cfg.Analysis.KMeans.Restarts)
	assert.Equal(t, 2, cfg.Analysis.KMeans.SweepMin)
	assert.Equal(t, 20, cfg.Analysis.KMeans.SweepMax)
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		env         map[string]string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "file overrides defaults and keeps absent keys",
			file: `
data:
  census_path: in/census.xlsx
  election_path: in/election.csv
analysis:
  candidate: Hillary Clinton
  forest:
    trees: 25
output:
  dir: out
  plots: false
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "in/census.xlsx", cfg.Data.CensusPath)
				assert.Equal(t, "Hillary Clinton", cfg.Analysis.Candidate)
				assert.Equal(t, 25, cfg.Analysis.Forest.Trees)
				assert.Equal(t, 5, cfg.Analysis.Forest.Mtry)
				assert.True(t, cfg.Analysis.Forest.Enabled)
				assert.Equal(t, "out", cfg.Output.Dir)
				assert.False(t, cfg.Output.Plots)
				assert.True(t, cfg.Output.Workbook)
			},
		},
		{
			name: "environment wins over file",
			file: `
analysis:
  seed: 7
`,
			env: map[string]string{
				"COUNTYVOTE_ANALYSIS_SEED":          "42",
				"COUNTYVOTE_ANALYSIS_KMEANS_K":      "4",
				"COUNTYVOTE_OUTPUT_SQLITE_PATH":     "out/countyvote.db",
				"COUNTYVOTE_LOGGING_LEVEL":          "DEBUG",
				"COUNTYVOTE_TELEMETRY_METRICS_FILE": "out/metrics.prom",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, int64(42), cfg.Analysis.Seed)
				assert.Equal(t, 4, cfg.Analysis.KMeans.K)
				assert.Equal(t, "out/countyvote.db", cfg.Output.SQLitePath)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "out/metrics.prom", cfg.Telemetry.MetricsFile)
			},
		},
		{
			name: "invalid train fraction",
			file: `
analysis:
  train_fraction: 1.5
`,
			wantErr: true,
		},
		{
			name: "sweep bounds inverted",
			file: `
analysis:
  kmeans:
    sweep_min: 10
    sweep_max: 4
`,
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			file:    "analysis: [unclosed",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := writeConfigFile(t, tt.file)

			cfg, err := Load(path)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestValidate_LoggingNormalization(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = ""
	cfg.Logging.Output = "BOTH"
	cfg.Logging.FilePath = ""

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "both", cfg.Logging.Output)
	assert.Equal(t, "logs/countyvote.log", cfg.Logging.FilePath)
}

func TestValidate_RejectsUnknownTraceExporter(t *testing.T) {
	cfg := Default()
	cfg.Telemetry.TraceExporter = "jaeger"
	assert.Error(t, cfg.Validate())
}

func TestNewPaths(t *testing.T) {
	dir := t.TempDir()
	paths := NewPaths(dir)

	assert.Equal(t, filepath.Join(dir, "tables", "merged.csv"), paths.MergedCSV)
	assert.Equal(t, filepath.Join(dir, "plots", "kmeans_elbow.png"), paths.ElbowPlot)
	assert.Equal(t, filepath.Join(dir, "countyvote.xlsx"), paths.WorkbookFile)
	assert.Equal(t, filepath.Join(dir, "tables", "x.csv"), paths.GetTablePath("x.csv"))

	require.NoError(t, paths.EnsureDirectories())
	assert.True(t, FileExists(paths.TablesDir))
	assert.True(t, FileExists(paths.PlotsDir))
	assert.False(t, FileExists(filepath.Join(dir, "nope")))
}
