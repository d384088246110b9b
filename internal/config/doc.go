// Package config loads and validates the countyvote configuration.
//
// # Configuration Sources
//
// Load layers, from lowest to highest precedence:
//
//	1. Default() values
//	2. a YAML file (--config, or countyvote.yaml / config.yaml / configs/config.yaml)
//	3. a .env file in the working directory
//	4. COUNTYVOTE_* environment variables
//
// # Environment Variables
//
// Variable names follow the struct layout:
//
//	COUNTYVOTE_DATA_CENSUS_PATH=data/census.csv
//	COUNTYVOTE_ANALYSIS_CANDIDATE="Hillary Clinton"
//	COUNTYVOTE_ANALYSIS_FOREST_TREES=500
//	COUNTYVOTE_OUTPUT_SQLITE_PATH=reports/countyvote.db
//	COUNTYVOTE_LOGGING_LEVEL=debug
//
// # Path Management
//
// NewPaths lays out every report file under the output directory so that
// exporters never build paths themselves:
//
//	paths := config.NewPaths(cfg.Output.Dir)
//	paths.MergedCSV              // reports/tables/merged.csv
//	paths.GetPlotPath("x.png")   // reports/plots/x.png
//
// # Validation
//
// Validate applies the validator tags on every section and normalizes the
// logging settings. Any failure is returned as a CONFIG AppError.
package config
