package operations

import (
	"context"
	"fmt"
	"log/slog"

	"countyvote/internal/config"
	"countyvote/internal/exporter"
	"countyvote/internal/infrastructure"
)

// StepsFor returns the step sequence of a mode
func StepsFor(mode Mode) ([]Step, error) {
	prefix := []Step{NewLoadStep(), NewNormalizeStep(), NewMergeStep()}
	switch mode {
	case ModeReport:
		return append(prefix,
			NewDatasetsStep(),
			NewLinearStep(),
			NewLogisticStep(),
			NewForestStep(),
			NewBoostStep(),
			NewKMeansStep(),
			NewExportStep(),
			NewStoreStep(),
		), nil
	case ModeMerge:
		return append(prefix, NewExportStep(), NewStoreStep()), nil
	case ModeElbow:
		return append(prefix, NewDatasetsStep(), NewElbowStep(), NewExportStep()), nil
	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
}

// Run executes one pipeline run of the given mode and returns its report.
// The report is returned with whatever was produced even when a step fails.
func Run(ctx context.Context, cfg *config.Config, mode Mode, telemetry *infrastructure.Telemetry, logger *slog.Logger) (*exporter.Report, error) {
	steps, err := StepsFor(mode)
	if err != nil {
		return nil, err
	}

	runID := infrastructure.GetRunID(ctx)
	if runID == "" {
		runID = infrastructure.GenerateRunID()
	}
	state := NewRunState(runID, mode, cfg)

	if err := NewManager(telemetry, logger, steps...).Run(ctx, state); err != nil {
		return state.Report, err
	}
	return state.Report, nil
}
