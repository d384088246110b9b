package operations_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"countyvote/internal/config"
	"countyvote/internal/dataprocessing"
	"countyvote/internal/infrastructure"
	"countyvote/internal/operations"
	"countyvote/internal/shared/testutil"
)

// fakeStep records its calls and returns err
type fakeStep struct {
	operations.BaseStage
	calls *[]string
	err   error
	skip  string
	runID string
}

func newFakeStep(id string, calls *[]string) *fakeStep {
	return &fakeStep{BaseStage: operations.NewBaseStage(id, id), calls: calls}
}

func (s *fakeStep) Execute(ctx context.Context, state *operations.RunState) error {
	*s.calls = append(*s.calls, s.ID())
	s.runID = infrastructure.GetRunID(ctx)
	return s.err
}

// skippableStep is a fakeStep that implements Skipper
type skippableStep struct {
	*fakeStep
}

func (s skippableStep) SkipReason(*operations.RunState) string {
	return s.skip
}

func TestManager_RunsStepsInOrder(t *testing.T) {
	var calls []string
	a, b, c := newFakeStep("a", &calls), newFakeStep("b", &calls), newFakeStep("c", &calls)
	state := operations.NewRunState("run-order", operations.ModeReport, config.Default())

	m := operations.NewManager(nil, discardLogger(), a, b, c)
	require.NoError(t, m.Run(context.Background(), state))

	assert.Equal(t, []string{"a", "b", "c"}, calls)
	assert.Equal(t, operations.RunStatusCompleted, state.Status)
	assert.Equal(t, "run-order", a.runID)
	for _, s := range state.Steps() {
		assert.Equal(t, operations.StepStatusCompleted, s.GetStatus(), s.ID)
	}
}

func TestManager_FailureSkipsRemaining(t *testing.T) {
	var calls []string
	a, b, c := newFakeStep("a", &calls), newFakeStep("b", &calls), newFakeStep("c", &calls)
	b.err = errors.New("fit exploded")
	state := operations.NewRunState("run-fail", operations.ModeReport, config.Default())

	err := operations.NewManager(nil, discardLogger(), a, b, c).Run(context.Background(), state)
	require.Error(t, err)
	assert.ErrorIs(t, err, b.err)
	assert.Contains(t, err.Error(), "b:")

	assert.Equal(t, []string{"a", "b"}, calls)
	assert.Equal(t, operations.RunStatusFailed, state.Status)
	assert.Equal(t, operations.StepStatusCompleted, state.GetStep("a").GetStatus())
	assert.Equal(t, operations.StepStatusFailed, state.GetStep("b").GetStatus())
	assert.Equal(t, operations.StepStatusSkipped, state.GetStep("c").GetStatus())
	assert.Equal(t, "step b failed", state.GetStep("c").GetMessage())
}

func TestManager_SkipperSkips(t *testing.T) {
	var calls []string
	off := skippableStep{newFakeStep("off", &calls)}
	off.skip = "disabled in configuration"
	on := skippableStep{newFakeStep("on", &calls)}
	state := operations.NewRunState("run-skip", operations.ModeReport, config.Default())

	require.NoError(t, operations.NewManager(nil, discardLogger(), off, on).Run(context.Background(), state))

	assert.Equal(t, []string{"on"}, calls)
	assert.Equal(t, operations.StepStatusSkipped, state.GetStep("off").GetStatus())
	assert.Equal(t, "disabled in configuration", state.GetStep("off").GetMessage())
	assert.Equal(t, operations.StepStatusCompleted, state.GetStep("on").GetStatus())
}

func TestManager_CancelledContext(t *testing.T) {
	var calls []string
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	state := operations.NewRunState("run-cancel", operations.ModeReport, config.Default())

	err := operations.NewManager(nil, discardLogger(), newFakeStep("a", &calls)).Run(ctx, state)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, calls)
	assert.Equal(t, operations.StepStatusSkipped, state.GetStep("a").GetStatus())
	assert.Equal(t, operations.RunStatusFailed, state.Status)
}

func TestManager_RecordsTelemetry(t *testing.T) {
	dir := t.TempDir()
	tel, err := infrastructure.InitializeTelemetry(config.TelemetryConfig{
		TraceExporter: "stdout",
		TraceFile:     filepath.Join(dir, "trace.json"),
		MetricsFile:   filepath.Join(dir, "countyvote.prom"),
	}, discardLogger())
	require.NoError(t, err)

	var calls []string
	state := operations.NewRunState("run-tel", operations.ModeReport, config.Default())
	state.Report.Diagnostics.RecordN(dataprocessing.StageMerge, dataprocessing.ReasonUnmatchedCensus, 3, "Autauga")

	require.NoError(t, operations.NewManager(tel, discardLogger(), newFakeStep("merge", &calls)).Run(context.Background(), state))
	require.NoError(t, tel.Shutdown(context.Background()))

	metrics, err := os.ReadFile(filepath.Join(dir, "countyvote.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `reason="unmatched_census"`)
	assert.Contains(t, string(metrics), "countyvote_step_duration_seconds_count{")
	assert.Contains(t, string(metrics), "countyvote_rows_dropped_total{")

	trace, err := os.ReadFile(filepath.Join(dir, "trace.json"))
	require.NoError(t, err)
	assert.Contains(t, string(trace), `"Name":"pipeline.report"`)
	assert.Contains(t, string(trace), `"Name":"merge"`)
}

func TestManager_LogsSkipsAndDrops(t *testing.T) {
	logger, logs := testutil.NewTestLogger()
	var calls []string
	off := skippableStep{newFakeStep("forest", &calls)}
	off.skip = "disabled in configuration"
	state := operations.NewRunState("run-logs", operations.ModeReport, config.Default())
	state.Report.Diagnostics.RecordN(dataprocessing.StageElection, dataprocessing.ReasonZeroVotes, 2, "1001")

	require.NoError(t, operations.NewManager(nil, logger, newFakeStep("load", &calls), off).Run(context.Background(), state))

	testutil.AssertLogged(t, logs, slog.LevelInfo, "Step skipped", map[string]any{
		"component": "pipeline",
		"step":      "forest",
		"reason":    "disabled in configuration",
	})
	testutil.AssertLogged(t, logs, slog.LevelWarn, "Rows dropped", map[string]any{
		"stage":  dataprocessing.StageElection,
		"reason": dataprocessing.ReasonZeroVotes,
		"count":  int64(2),
	})
	testutil.AssertLogged(t, logs, slog.LevelInfo, "Pipeline finished", map[string]any{
		"status":       string(operations.RunStatusCompleted),
		"rows_dropped": int64(2),
	})
}
