// Package availability implements the staged decision pipeline that answers
// whether a staff member can be booked for a given UTC interval. The pipeline
// consults working hours, confirmed bookings, and the staff member's linked
// Google Calendar, and accumulates human-readable reasons for every "no".
package availability

import (
	"time"

	"github.com/google/uuid"
)

// Reason strings surfaced to clients. The exact wording is part of the API:
// the booking UI renders these verbatim.
const (
	ReasonStaffUnavailable     = "Staff member not found or inactive."
	ReasonDayOff               = "Staff member does not work on the selected day."
	ReasonBookingConflict      = "Conflicts with another booking in the schedule."
	ReasonCalendarUnverifiable = "Could not verify Google Calendar availability."
	ReasonCalendarConflict     = "Conflicts with an event in the staff's Google Calendar."
	ReasonTimezoneInvalid      = "Scheduling timezone is missing or invalid."
)

// Interval is a half-open [Start, End) busy window in UTC.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two half-open intervals share any instant.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

// Request describes one availability question. Timezone is the business's
// operating timezone used for weekday and working-hours math; it is never the
// requesting client's display timezone. ExcludeBookingID carves an existing
// booking out of the conflict check so reschedules do not collide with
// themselves; uuid.Nil means no exclusion.
type Request struct {
	StaffID          uuid.UUID
	Start            time.Time
	End              time.Time
	Timezone         string
	ExcludeBookingID uuid.UUID
}

// Decision is the pipeline outcome. Reasons is empty exactly when Available
// is true, and lists at most the first failing stage's reasons otherwise.
type Decision struct {
	Available bool     `json:"available"`
	Reasons   []string `json:"reasons"`
}

func decide(reasons []string) Decision {
	if len(reasons) == 0 {
		return Decision{Available: true, Reasons: []string{}}
	}
	return Decision{Available: false, Reasons: reasons}
}
