package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"countyvote/internal/config"
	"countyvote/internal/exporter"
	"countyvote/internal/infrastructure"
	"countyvote/internal/operations"
	"countyvote/pkg/contracts"
)

// options holds the command-line overrides shared by every subcommand
type options struct {
	configPath string
	census     string
	election   string
	out        string
	candidate  string
	seed       int64
	sqlite     string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "countyvote",
		Short:         "Merge county census and election data and model the vote",
		Version:       contracts.GetFullVersionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	flags.StringVar(&opts.census, "census", "", "census tract file (.csv or .xlsx)")
	flags.StringVar(&opts.election, "election", "", "election tally file (.csv or .xlsx)")
	flags.StringVar(&opts.out, "out", "", "report output directory")
	flags.StringVar(&opts.candidate, "candidate", "", "candidate whose share is modelled")
	flags.Int64Var(&opts.seed, "seed", 0, "random seed for splits and ensembles")
	flags.StringVar(&opts.sqlite, "sqlite", "", "also write the run to this SQLite database")

	root.AddCommand(
		newModeCmd(opts, operations.ModeReport, "Run the whole pipeline and write the report"),
		newModeCmd(opts, operations.ModeMerge, "Merge census and election data and write the merged table"),
		newModeCmd(opts, operations.ModeElbow, "Run the k-means inertia sweep"),
	)
	return root
}

func newModeCmd(opts *options, mode operations.Mode, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(mode),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
				return err
			}
			if err := run(cmd, cfg, mode); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
				return err
			}
			return nil
		},
	}
}

// loadConfig loads the configuration and applies the flags that were set
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if opts.census != "" {
		cfg.Data.CensusPath = opts.census
	}
	if opts.election != "" {
		cfg.Data.ElectionPath = opts.election
	}
	if opts.out != "" {
		cfg.Output.Dir = opts.out
	}
	if opts.candidate != "" {
		cfg.Analysis.Candidate = opts.candidate
	}
	if flags.Changed("seed") {
		cfg.Analysis.Seed = opts.seed
	}
	if opts.sqlite != "" {
		cfg.Output.SQLitePath = opts.sqlite
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(cmd *cobra.Command, cfg *config.Config, mode operations.Mode) error {
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer infrastructure.CloseLogFile()

	telemetry, err := infrastructure.InitializeTelemetry(cfg.Telemetry, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(ctx); err != nil {
			logger.Error("Telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	ctx := infrastructure.WithRunID(cmd.Context(), infrastructure.GenerateRunID())
	logger.InfoContext(ctx, "Starting run",
		slog.String("mode", string(mode)),
		slog.String("census", cfg.Data.CensusPath),
		slog.String("election", cfg.Data.ElectionPath),
		slog.String("candidate", cfg.Analysis.Candidate))

	report, err := operations.Run(ctx, cfg, mode, telemetry, logger)
	if err != nil {
		return err
	}

	if cfg.Output.Console {
		if err := exporter.WriteSummary(cmd.OutOrStdout(), report); err != nil {
			return fmt.Errorf("failed to print summary: %w", err)
		}
	}
	return nil
}
