package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "countyvote/internal/errors"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "COUNTYVOTE"

// Config represents the complete application configuration
type Config struct {
	Data      DataConfig      `yaml:"data" envconfig:"DATA"`
	Analysis  AnalysisConfig  `yaml:"analysis" envconfig:"ANALYSIS"`
	Output    OutputConfig    `yaml:"output" envconfig:"OUTPUT"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// DataConfig locates the two input datasets
type DataConfig struct {
	CensusPath   string `yaml:"census_path" envconfig:"CENSUS_PATH" validate:"required"`
	ElectionPath string `yaml:"election_path" envconfig:"ELECTION_PATH" validate:"required"`
}

// AnalysisConfig controls the model fitters
type AnalysisConfig struct {
	Candidate     string  `yaml:"candidate" envconfig:"CANDIDATE" validate:"required"`
	Seed          int64   `yaml:"seed" envconfig:"SEED"`
	TrainFraction float64 `yaml:"train_fraction" envconfig:"TRAIN_FRACTION" validate:"gt=0,lt=1"`

	Linear   LinearConfig   `yaml:"linear" envconfig:"LINEAR"`
	Logistic LogisticConfig `yaml:"logistic" envconfig:"LOGISTIC"`
	Forest   ForestConfig   `yaml:"forest" envconfig:"FOREST"`
	Boost    BoostConfig    `yaml:"boost" envconfig:"BOOST"`
	KMeans   KMeansConfig   `yaml:"kmeans" envconfig:"KMEANS"`
}

// LinearConfig configures the OLS fitter
type LinearConfig struct {
	Enabled      bool    `yaml:"enabled" envconfig:"ENABLED"`
	WinThreshold float64 `yaml:"win_threshold" envconfig:"WIN_THRESHOLD" validate:"gt=0,lt=1"`
}

// LogisticConfig configures the logistic regression fitter
type LogisticConfig struct {
	Enabled   bool    `yaml:"enabled" envconfig:"ENABLED"`
	Threshold float64 `yaml:"threshold" envconfig:"THRESHOLD" validate:"gt=0,lt=1"`
	MaxIter   int     `yaml:"max_iter" envconfig:"MAX_ITER" validate:"min=1"`
}

// ForestConfig configures the random forest classifier
type ForestConfig struct {
	Enabled bool `yaml:"enabled" envconfig:"ENABLED"`
	Trees   int  `yaml:"trees" envconfig:"TREES" validate:"min=1"`
	Mtry    int  `yaml:"mtry" envconfig:"MTRY" validate:"min=1"`
	MinLeaf int  `yaml:"min_leaf" envconfig:"MIN_LEAF" validate:"min=1"`
}

// BoostConfig configures the boosted trees classifier
type BoostConfig struct {
	Enabled     bool    `yaml:"enabled" envconfig:"ENABLED"`
	Trees       int     `yaml:"trees" envconfig:"TREES" validate:"min=1"`
	// Depth is the interaction depth: the number of splits per tree
	Depth       int     `yaml:"depth" envconfig:"DEPTH" validate:"min=1"`
	Folds       int     `yaml:"folds" envconfig:"FOLDS" validate:"min=2"`
	Shrinkage   float64 `yaml:"shrinkage" envconfig:"SHRINKAGE" validate:"gt=0,lte=1"`
	BagFraction float64 `yaml:"bag_fraction" envconfig:"BAG_FRACTION" validate:"gt=0,lte=1"`
	MinLeaf     int     `yaml:"min_leaf" envconfig:"MIN_LEAF" validate:"min=1"`
	Threshold   float64 `yaml:"threshold" envconfig:"THRESHOLD" validate:"gt=0,lt=1"`
}

// KMeansConfig configures the clustering run and the elbow sweep
type KMeansConfig struct {
	Enabled  bool `yaml:"enabled" envconfig:"ENABLED"`
	K        int  `yaml:"k" envconfig:"K" validate:"min=1"`
	Restarts int  `yaml:"restarts" envconfig:"RESTARTS" validate:"min=1"`
	SweepMin int  `yaml:"sweep_min" envconfig:"SWEEP_MIN" validate:"min=1"`
	SweepMax int  `yaml:"sweep_max" envconfig:"SWEEP_MAX" validate:"gtefield=SweepMin"`
	MaxIter  int  `yaml:"max_iter" envconfig:"MAX_ITER" validate:"min=1"`
}

// OutputConfig controls where and how the report is written
type OutputConfig struct {
	Dir        string `yaml:"dir" envconfig:"DIR" validate:"required"`
	Console    bool   `yaml:"console" envconfig:"CONSOLE"`
	Workbook   bool   `yaml:"workbook" envconfig:"WORKBOOK"`
	Plots      bool   `yaml:"plots" envconfig:"PLOTS"`
	SQLitePath string `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"omitempty,oneof=debug info warn warning error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"omitempty,oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// TelemetryConfig controls tracing and the metrics textfile
type TelemetryConfig struct {
	TraceExporter string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=none stdout"`
	TraceFile     string `yaml:"trace_file" envconfig:"TRACE_FILE"`
	MetricsFile   string `yaml:"metrics_file" envconfig:"METRICS_FILE"`
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Data: DataConfig{
			CensusPath:   "data/census.csv",
			ElectionPath: "data/election.csv",
		},
		Analysis: AnalysisConfig{
			Candidate:     "Donald Trump",
			Seed:          1,
			TrainFraction: 0.8,
			Linear:        LinearConfig{Enabled: true, WinThreshold: 0.5},
			Logistic:      LogisticConfig{Enabled: true, Threshold: 0.5, MaxIter: 25},
			Forest:        ForestConfig{Enabled: true, Trees: 100, Mtry: 5, MinLeaf: 1},
			Boost: BoostConfig{
				Enabled:     true,
				Trees:       100,
				Depth:       3,
				Folds:       5,
				Shrinkage:   0.1,
				BagFraction: 0.5,
				MinLeaf:     10,
				Threshold:   0.5,
			},
			KMeans: KMeansConfig{
				Enabled:  true,
				K:        3,
				Restarts: 5,
				SweepMin: 2,
				SweepMax: 20,
				MaxIter:  100,
			},
		},
		Output: OutputConfig{
			Dir:      "reports",
			Console:  true,
			Workbook: true,
			Plots:    true,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: "logs/countyvote.log",
		},
		Telemetry: TelemetryConfig{
			TraceExporter: "none",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, an
// optional .env file and COUNTYVOTE_* environment variables, in increasing
// order of precedence. An empty path searches the usual locations.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, apperrors.NewConfigError("failed to load .env", err)
		}
	}

	cfg := Default()

	if path == "" {
		path = getConfigFilePath()
	}
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, apperrors.NewConfigError(fmt.Sprintf("failed to load config file %s", path), err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg; absent keys keep their value
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks field constraints and normalizes logging settings
func (c *Config) Validate() error {
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	c.Logging.Output = strings.ToLower(c.Logging.Output)
	if c.Logging.Output == "" {
		c.Logging.Output = "console"
	}

	if err := validator.New().Struct(c); err != nil {
		return apperrors.NewConfigError("config validation failed", err)
	}

	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/countyvote.log"
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"countyvote.yaml",
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}
