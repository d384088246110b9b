package exporter

import (
	"fmt"
	"strconv"
)

// formatFloat formats a float64 for CSV output with full precision
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// formatFixed rounds f to the given number of decimals for display
func formatFixed(f float64, decimals int) string {
	return strconv.FormatFloat(f, 'f', decimals, 64)
}

// formatPercent renders a fraction as a percentage
func formatPercent(f float64) string {
	return fmt.Sprintf("%.1f%%", 100*f)
}

// formatInt formats an int64 value for CSV output
func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}

// formatBool formats a boolean value for CSV output
func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
