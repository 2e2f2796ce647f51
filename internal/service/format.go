package service

import (
	"fmt"
	"math"
)

// formatHours renders fractional hours as "{h}h {m}m".
func formatHours(hours float64) string {
	whole := int(math.Floor(hours))
	minutes := int(math.Round((hours - math.Floor(hours)) * 60))
	if minutes == 60 {
		whole++
		minutes = 0
	}
	return fmt.Sprintf("%dh %dm", whole, minutes)
}

// formatMinutes renders a minute total as "{h}h {m}m".
func formatMinutes(minutes int) string {
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

// progressPercent is the rounded completion ratio. Zero totals yield zero,
// not a division error.
func progressPercent(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}
