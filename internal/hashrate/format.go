package hashrate

import (
	"fmt"
	"strings"
	"time"
)

// Scale converts a value with a unit suffix into H/s.
func Scale(value float64, unit string) float64 {
	switch strings.ToLower(unit) {
	case "kh/s":
		return value * 1e3
	case "mh/s":
		return value * 1e6
	case "gh/s":
		return value * 1e9
	case "th/s":
		return value * 1e12
	default:
		return value
	}
}

// Format renders a H/s value with the largest readable unit.
func Format(valueHS float64) string {
	if valueHS > 1e6 {
		return fmt.Sprintf("%.1f MH/s", valueHS/1e6)
	}
	if valueHS > 1e3 {
		return fmt.Sprintf("%.1f kH/s", valueHS/1e3)
	}
	return fmt.Sprintf("%.0f H/s", valueHS)
}

// FormatDateTime renders a timestamp the way alert messages show it,
// in the server's local time zone.
func FormatDateTime(t time.Time) string {
	return t.Local().Format("02.01.06, 15:04")
}
