package operations

import (
	"context"
	"fmt"
	"log/slog"

	"countyvote/internal/infrastructure"
)

// Manager runs a fixed sequence of steps against a RunState
type Manager struct {
	steps  []Step
	tracer *StepTracer
	logger *slog.Logger
}

// NewManager creates a manager for steps. telemetry may be nil.
func NewManager(telemetry *infrastructure.Telemetry, logger *slog.Logger, steps ...Step) *Manager {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Manager{
		steps:  steps,
		tracer: NewStepTracer(telemetry),
		logger: infrastructure.WithComponent(logger, "pipeline"),
	}
}

// Steps returns the configured steps in order
func (m *Manager) Steps() []Step {
	return m.steps
}

// Run executes the steps in order. The first failing step fails the run
// and the remaining steps are marked skipped.
func (m *Manager) Run(ctx context.Context, state *RunState) error {
	ctx = infrastructure.WithRunID(ctx, state.ID)
	for _, step := range m.steps {
		state.AddStep(NewStepState(step.ID(), step.Name()))
	}

	ctx, span := m.tracer.TraceRun(ctx, state.ID, state.Mode)
	defer span.End()

	state.Start()
	m.logger.InfoContext(ctx, "Pipeline started",
		slog.String("mode", string(state.Mode)),
		slog.Int("step_count", len(m.steps)))

	for i, step := range m.steps {
		if err := ctx.Err(); err != nil {
			m.skipRemaining(state, i, "run cancelled")
			state.Fail(err)
			return err
		}
		if err := m.executeStep(ctx, state, step); err != nil {
			m.skipRemaining(state, i+1, fmt.Sprintf("step %s failed", step.ID()))
			state.Fail(err)
			m.finish(ctx, state)
			return fmt.Errorf("%s: %w", step.ID(), err)
		}
	}

	state.Complete()
	m.finish(ctx, state)
	return nil
}

func (m *Manager) executeStep(ctx context.Context, state *RunState, step Step) error {
	ss := state.GetStep(step.ID())
	ctx, span := m.tracer.TraceStep(ctx, state.ID, step.ID())

	if sk, ok := step.(Skipper); ok {
		if reason := sk.SkipReason(state); reason != "" {
			ss.Skip(reason)
			m.tracer.RecordStepCompletion(ctx, span, step.ID(), 0, StepStatusSkipped, nil)
			m.logger.InfoContext(ctx, "Step skipped",
				slog.String("step", step.ID()),
				slog.String("reason", reason))
			return nil
		}
	}

	ss.Start()
	m.logger.InfoContext(ctx, "Step started", slog.String("step", step.ID()))

	err := step.Execute(ctx, state)
	if err != nil {
		ss.Fail(err)
		m.tracer.RecordStepCompletion(ctx, span, step.ID(), ss.Duration(), StepStatusFailed, err)
		m.logger.ErrorContext(ctx, "Step failed",
			slog.String("step", step.ID()),
			slog.Duration("duration", ss.Duration()),
			slog.String("error", err.Error()))
		return err
	}

	ss.Complete(ss.GetMessage())
	m.tracer.RecordStepCompletion(ctx, span, step.ID(), ss.Duration(), StepStatusCompleted, nil)
	m.logger.InfoContext(ctx, "Step completed",
		slog.String("step", step.ID()),
		slog.String("message", ss.GetMessage()),
		slog.Duration("duration", ss.Duration()))
	return nil
}

func (m *Manager) skipRemaining(state *RunState, from int, reason string) {
	for _, step := range m.steps[from:] {
		if ss := state.GetStep(step.ID()); ss != nil && ss.GetStatus() == StepStatusPending {
			ss.Skip(reason)
		}
	}
}

// finish records row counts and the drops collected by all steps
func (m *Manager) finish(ctx context.Context, state *RunState) {
	if state.Inputs != nil {
		m.tracer.RecordLoaded(ctx, "census", state.Report.CensusTracts)
		m.tracer.RecordLoaded(ctx, "election", state.Report.ElectionRows)
	}

	diag := state.Report.Diagnostics
	diag.Log(ctx, m.logger)
	m.tracer.RecordDiagnostics(ctx, diag)

	m.logger.InfoContext(ctx, "Pipeline finished",
		slog.String("status", string(state.Status)),
		slog.Int("rows_dropped", diag.Total()),
		slog.Duration("duration", state.Duration()))
}
