package utils

import (
	"math"
	"time"
)

// Timestamps beyond year 9999 render as "Invalid time" rather than a
// nonsense date.
const maxEpochSeconds = 253402300800

// Round2 rounds to two decimal places; all persisted durations use it.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatTimestamp converts epoch seconds to "YYYY-MM-DD HH:MM:SS" in local
// time. Zero or absent timestamps render as "N/A", unrepresentable ones as
// "Invalid time". Never fails.
func FormatTimestamp(ts float64) string {
	if ts == 0 {
		return "N/A"
	}
	if ts < 0 || ts > maxEpochSeconds || math.IsNaN(ts) || math.IsInf(ts, 0) {
		return "Invalid time"
	}
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).Format("2006-01-02 15:04:05")
}
