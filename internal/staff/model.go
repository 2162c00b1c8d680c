// Package staff exposes read access to staff profiles and their configured
// working hours. Rows are owned by the schedule-management side of the
// application; this package only reads them.
package staff

import "github.com/google/uuid"

// Profile is the per-staff state the availability pipeline needs. It is
// loaded once per request and passed to every stage.
type Profile struct {
	ID          uuid.UUID
	DisplayName string
	Active      bool
	// CalendarID is the staff member's linked Google Calendar, empty when
	// no calendar is linked.
	CalendarID string
}

// CalendarLinked reports whether the profile has an external calendar to
// check against. Not linked means the external stage is skipped, not that
// the staff member is busy.
func (p *Profile) CalendarLinked() bool {
	return p != nil && p.CalendarID != ""
}

// WorkingHours is the configured working window for one staff member on one
// ISO weekday (Monday=1 .. Sunday=7). At most one row exists per staff per
// weekday; no row means the staff member does not work that day.
type WorkingHours struct {
	StaffID     uuid.UUID
	Weekday     int
	StartMinute int
	EndMinute   int
}
