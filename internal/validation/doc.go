// Package validation checks input datasets and report directories before
// the pipeline reads or writes them.
package validation
