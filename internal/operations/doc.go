// Package operations runs the county vote pipeline as a fixed sequence of
// steps over a shared RunState.
//
// A run is one of three modes:
//
//	report  load → normalize → merge → datasets → models → export → store
//	merge   load → normalize → merge → export → store
//	elbow   load → normalize → merge → datasets → elbow sweep → export
//
// Each step is tracked by a StepState and wrapped in an OpenTelemetry span.
// Model steps and the store step implement Skipper and are skipped when
// switched off in configuration. The first failing step fails the run and
// the remaining steps are marked skipped; nothing is retried.
//
// Rows dropped by any step are collected in the report's Diagnostics and
// logged and counted once when the run finishes.
package operations
