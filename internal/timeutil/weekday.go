package timeutil

import "time"

// ISOWeekday maps Go's Sunday-based weekday to ISO-8601 numbering
// (Monday=1 .. Sunday=7), which is how working hours are stored.
func ISOWeekday(d time.Weekday) int {
	if d == time.Sunday {
		return 7
	}
	return int(d)
}
