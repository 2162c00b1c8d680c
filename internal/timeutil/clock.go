// Package timeutil provides conversions between "HH:MM" clock strings and
// minutes since local midnight, the unit all slot arithmetic works in.
package timeutil

import (
	"fmt"
	"strconv"
	"strings"
)

// MinutesPerDay is the number of minutes in a civil day.
const MinutesPerDay = 24 * 60

// ParseClock converts "HH:MM" (or "HH:MM:SS", seconds ignored) to minutes
// since midnight. The second return value is false for malformed input,
// hours outside 0-23, or minutes outside 0-59.
func ParseClock(s string) (int, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, false
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}

// FormatClock renders minutes since midnight as "HH:MM". Values outside
// [0, 1439] are presentation errors, not data errors: anything negative
// renders as "00:00" and anything past midnight wraps, so the output is
// always a valid clock string.
func FormatClock(minutes int) string {
	if minutes < 0 {
		return "00:00"
	}
	m := minutes % MinutesPerDay
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
