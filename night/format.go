package night

import "fmt"

// FormatDuration renders whole seconds as "2h 0m" / "45m".
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

// FormatDistance renders meters as "2.5 km" above one kilometer,
// otherwise "850 m".
func FormatDistance(meters float64) string {
	if meters < 0 {
		meters = 0
	}
	if meters >= 1000 {
		return fmt.Sprintf("%.1f km", meters/1000)
	}
	return fmt.Sprintf("%.0f m", meters)
}
