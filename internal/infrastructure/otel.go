package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"countyvote/internal/config"
	"countyvote/pkg/contracts"
)

const (
	ServiceName    = "countyvote"
	ServiceVersion = contracts.Version
	MeterName      = "countyvote"
)

// Telemetry holds the tracer and meter providers for one process.
// Metrics are collected into a private Prometheus registry and written
// to a textfile at shutdown instead of being served over HTTP.
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	Registry       *promclient.Registry
	Metrics        *PipelineMetrics

	metricsFile string
	traceOut    io.Closer
	logger      *slog.Logger
}

// PipelineMetrics are the instruments recorded by the report pipeline
type PipelineMetrics struct {
	RowsLoaded   metric.Int64Counter
	RowsDropped  metric.Int64Counter
	StepDuration metric.Float64Histogram
	StepErrors   metric.Int64Counter
}

// InitializeTelemetry sets up tracing and metrics from configuration
func InitializeTelemetry(cfg config.TelemetryConfig, logger *slog.Logger) (*Telemetry, error) {
	if logger == nil {
		logger = GetLogger()
	}
	ctx := context.Background()

	res, err := createResource()
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	t := &Telemetry{
		metricsFile: cfg.MetricsFile,
		logger:      logger,
	}

	if err := t.initializeTracing(cfg, res); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if err := t.initializeMetrics(res); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	logger.DebugContext(ctx, "Telemetry initialized",
		slog.String("trace_exporter", cfg.TraceExporter),
		slog.String("metrics_file", cfg.MetricsFile))

	return t, nil
}

func createResource() (*resource.Resource, error) {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(ServiceVersion),
	), nil
}

func (t *Telemetry) initializeTracing(cfg config.TelemetryConfig, res *resource.Resource) error {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}

	switch cfg.TraceExporter {
	case "stdout":
		var out io.Writer = os.Stdout
		if cfg.TraceFile != "" {
			f, err := openTraceFile(cfg.TraceFile)
			if err != nil {
				return err
			}
			t.traceOut = f
			out = f
		}
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(out))
		if err != nil {
			return fmt.Errorf("failed to create trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	case "none", "":
		// spans are still created so step timing is available, just not exported
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	tp := sdktrace.NewTracerProvider(opts...)
	t.TracerProvider = tp
	t.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(ServiceVersion))
	otel.SetTracerProvider(tp)
	return nil
}

func (t *Telemetry) initializeMetrics(res *resource.Resource) error {
	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	t.Registry = registry
	t.MeterProvider = mp
	t.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(ServiceVersion))
	otel.SetMeterProvider(mp)

	t.Metrics, err = CreatePipelineMetrics(t.Meter)
	return err
}

// StepDurationBuckets are the histogram bounds, in seconds, for step
// durations. Loading and merging take milliseconds; model fits take seconds
// to minutes.
var StepDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300}

// CreatePipelineMetrics creates the pipeline instruments on meter
func CreatePipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	rowsLoaded, err := meter.Int64Counter(
		"countyvote_rows_loaded",
		metric.WithDescription("Input rows accepted by the loaders"),
	)
	if err != nil {
		return nil, err
	}

	rowsDropped, err := meter.Int64Counter(
		"countyvote_rows_dropped",
		metric.WithDescription("Rows removed by a pipeline stage, by reason"),
	)
	if err != nil {
		return nil, err
	}

	stepDuration, err := meter.Float64Histogram(
		"countyvote_step_duration_seconds",
		metric.WithDescription("Pipeline step duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(StepDurationBuckets...),
	)
	if err != nil {
		return nil, err
	}

	stepErrors, err := meter.Int64Counter(
		"countyvote_step_errors",
		metric.WithDescription("Pipeline steps that failed"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		RowsLoaded:   rowsLoaded,
		RowsDropped:  rowsDropped,
		StepDuration: stepDuration,
		StepErrors:   stepErrors,
	}, nil
}

// RecordLoaded counts rows read from one input source
func (m *PipelineMetrics) RecordLoaded(ctx context.Context, source string, n int) {
	if m == nil {
		return
	}
	m.RowsLoaded.Add(ctx, int64(n), metric.WithAttributes(attribute.String("source", source)))
}

// RecordDropped counts rows removed by stage for reason
func (m *PipelineMetrics) RecordDropped(ctx context.Context, stage, reason string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.RowsDropped.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("reason", reason),
	))
}

// RecordStep records the duration and outcome of a pipeline step
func (m *PipelineMetrics) RecordStep(ctx context.Context, step string, d time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("step", step))
	m.StepDuration.Record(ctx, d.Seconds(), attrs)
	if err != nil {
		m.StepErrors.Add(ctx, 1, attrs)
	}
}

// WriteMetrics writes the current registry contents in the Prometheus
// text format to the configured metrics file. No file means no-op.
func (t *Telemetry) WriteMetrics() error {
	if t.metricsFile == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(t.metricsFile), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := promclient.WriteToTextfile(t.metricsFile, t.Registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}

// Shutdown flushes spans, writes the metrics file and releases providers
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error

	if t.TracerProvider != nil {
		if err := t.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if err := t.WriteMetrics(); err != nil {
		errs = append(errs, err)
	}
	if t.MeterProvider != nil {
		if err := t.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}
	if t.traceOut != nil {
		if err := t.traceOut.Close(); err != nil {
			errs = append(errs, err)
		}
		t.traceOut = nil
	}

	if len(errs) > 0 {
		t.logger.ErrorContext(ctx, "Telemetry shutdown failed", slog.Any("error", errors.Join(errs...)))
	}
	return errors.Join(errs...)
}

func openTraceFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create trace directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file %s: %w", path, err)
	}
	return f, nil
}
