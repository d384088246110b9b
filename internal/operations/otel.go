package operations

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"countyvote/internal/dataprocessing"
	"countyvote/internal/infrastructure"
)

const (
	TracerName = "countyvote.pipeline"
)

// StepTracer provides OpenTelemetry instrumentation for pipeline steps
type StepTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.PipelineMetrics
}

// NewStepTracer instruments steps with the given telemetry. Without
// telemetry spans go to the global provider and metrics are discarded.
func NewStepTracer(t *infrastructure.Telemetry) *StepTracer {
	if t == nil || t.Tracer == nil {
		return &StepTracer{tracer: otel.Tracer(TracerName)}
	}
	return &StepTracer{tracer: t.Tracer, metrics: t.Metrics}
}

// TraceRun creates the root span of a run
func (st *StepTracer) TraceRun(ctx context.Context, runID string, mode Mode) (context.Context, trace.Span) {
	return st.tracer.Start(ctx, "pipeline."+string(mode),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("run.mode", string(mode)),
		),
	)
}

// TraceStep creates a span for one step
func (st *StepTracer) TraceStep(ctx context.Context, runID, stepID string) (context.Context, trace.Span) {
	return st.tracer.Start(ctx, stepID,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("step.id", stepID),
		),
	)
}

// RecordStepCompletion closes a step span and records its duration
func (st *StepTracer) RecordStepCompletion(ctx context.Context, span trace.Span, stepID string, d time.Duration, status StepStatus, err error) {
	span.SetAttributes(
		attribute.String("step.status", string(status)),
		attribute.Float64("step.duration_seconds", d.Seconds()),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()

	if status != StepStatusSkipped {
		st.metrics.RecordStep(ctx, stepID, d, err)
	}
}

// RecordLoaded counts accepted input rows
func (st *StepTracer) RecordLoaded(ctx context.Context, source string, n int) {
	st.metrics.RecordLoaded(ctx, source, n)
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("rows."+source, n))
}

// RecordDiagnostics counts every dropped row by stage and reason
func (st *StepTracer) RecordDiagnostics(ctx context.Context, diag dataprocessing.Diagnostics) {
	for _, d := range diag.Drops {
		st.metrics.RecordDropped(ctx, d.Stage, d.Reason, d.Count)
	}
}
