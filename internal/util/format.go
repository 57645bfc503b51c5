package util

import (
	"fmt"
	"math"
)

// FormatDistance renders meters for display: "850 m", "1.2 km", "12 km".
// Non-positive or non-finite input renders as "-".
func FormatDistance(meters float64) string {
	if math.IsNaN(meters) || math.IsInf(meters, 0) || meters <= 0 {
		return "-"
	}

	if meters < 1000 {
		return fmt.Sprintf("%d m", int64(math.Round(meters)))
	}

	km := meters / 1000
	if km < 10 {
		return fmt.Sprintf("%.1f km", km)
	}
	return fmt.Sprintf("%.0f km", km)
}

// FormatDuration renders seconds for display: "12 min", "1 hr", "1 hr 5 min".
func FormatDuration(seconds int64) string {
	if seconds <= 0 {
		return "-"
	}

	totalMinutes := int64(math.Round(float64(seconds) / 60))
	if totalMinutes < 60 {
		return fmt.Sprintf("%d min", totalMinutes)
	}

	hours := totalMinutes / 60
	minutes := totalMinutes % 60
	if minutes == 0 {
		return fmt.Sprintf("%d hr", hours)
	}
	return fmt.Sprintf("%d hr %d min", hours, minutes)
}
