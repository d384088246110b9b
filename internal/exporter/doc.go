// Package exporter writes a run's Report to disk and to the console.
//
// This package contains four main components:
//
// CSVWriter and TableExporter: one CSV file per table (merged counties,
// county demographics, diagnostics, coefficients, importances, ROC points,
// the k-means elbow and cluster assignments) under the tables directory.
//
// WriteWorkbook: the same results as an Excel workbook with a sheet per
// model.
//
// WriteSummary: a plain text report of tables for the terminal.
//
// WritePlots: PNG figures for the elbow sweep, ROC curve, PCA cluster
// scatter and forest importance.
//
// Example usage:
//
//	paths := config.NewPaths("reports")
//	tables := exporter.NewTableExporter(exporter.NewCSVWriter(paths))
//	if _, err := tables.ExportAll(report); err != nil {
//	    return err
//	}
//	err = exporter.WriteSummary(os.Stdout, report)
package exporter
