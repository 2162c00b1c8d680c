package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bookably/booking-engine/internal/observability/metrics"
	"github.com/bookably/booking-engine/internal/staff"
	"github.com/bookably/booking-engine/internal/timeutil"
	"github.com/bookably/booking-engine/pkg/logging"
)

var availabilityTracer = otel.Tracer("bookably.internal.availability")

// HoursDirectory resolves a staff member's configured working window for an
// ISO weekday. A nil result means the staff member does not work that day.
type HoursDirectory interface {
	GetWorkingHours(ctx context.Context, staffID uuid.UUID, weekday int) (*staff.WorkingHours, error)
}

// BusySource yields the stored busy intervals for a staff member overlapping
// a UTC range. Implementations must only report confirmed bookings and must
// omit the excluded booking when exclude is non-nil.
type BusySource interface {
	BusyIntervals(ctx context.Context, staffID uuid.UUID, from, to time.Time, exclude uuid.UUID) ([]Interval, error)
}

// CalendarSource yields busy intervals from an external calendar. Any error
// means the calendar could not be verified; callers treat that as busy, not
// as free.
type CalendarSource interface {
	BusyIntervals(ctx context.Context, calendarID string, from, to time.Time) ([]Interval, error)
}

// Checker runs the availability pipeline. Stages execute in a fixed order and
// the first failing stage terminates the run, so a decision never mixes
// reasons from multiple stages.
type Checker struct {
	hours    HoursDirectory
	bookings BusySource
	calendar CalendarSource
	logger   *logging.Logger
	metrics  *metrics.SchedulingMetrics
}

func NewChecker(hours HoursDirectory, bookings BusySource, calendar CalendarSource, logger *logging.Logger, m *metrics.SchedulingMetrics) *Checker {
	if hours == nil || bookings == nil {
		panic("availability: hours directory and busy source required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Checker{hours: hours, bookings: bookings, calendar: calendar, logger: logger, metrics: m}
}

// stageResult is what each pipeline stage returns: reasons to surface and
// whether later stages may still run. A stage that fails sets halt.
type stageResult struct {
	reasons []string
	halt    bool
}

var stageOK = stageResult{}

func failStage(reasons ...string) stageResult {
	return stageResult{reasons: reasons, halt: true}
}

// Check decides whether the requested UTC interval can be booked for the
// staff member described by profile. Rejections come back as data in the
// Decision; only infrastructure failures (lost connections, cancelled
// contexts) are returned as errors. A nil profile fails the first stage.
func (c *Checker) Check(ctx context.Context, profile *staff.Profile, req Request) (Decision, error) {
	ctx, span := availabilityTracer.Start(ctx, "availability.check")
	defer span.End()
	span.SetAttributes(
		attribute.String("bookably.staff_id", req.StaffID.String()),
		attribute.String("bookably.request_start", req.Start.UTC().Format(time.RFC3339)),
	)

	type namedStage struct {
		name string
		run  func(context.Context, *staff.Profile, Request) (stageResult, error)
	}
	stages := []namedStage{
		{"staff", c.stageStaffActive},
		{"hours", c.stageWorkingHours},
		{"bookings", c.stageStoredBookings},
		{"calendar", c.stageExternalCalendar},
	}

	for _, s := range stages {
		res, err := s.run(ctx, profile, req)
		if err != nil {
			span.RecordError(err)
			c.metrics.ObserveCheck("error", s.name)
			return Decision{}, fmt.Errorf("availability: %s stage: %w", s.name, err)
		}
		if res.halt {
			c.metrics.ObserveCheck("unavailable", s.name)
			span.SetAttributes(attribute.String("bookably.failed_stage", s.name))
			return decide(res.reasons), nil
		}
	}

	c.metrics.ObserveCheck("available", "none")
	return decide(nil), nil
}

func (c *Checker) stageStaffActive(_ context.Context, profile *staff.Profile, _ Request) (stageResult, error) {
	if profile == nil || !profile.Active {
		return failStage(ReasonStaffUnavailable), nil
	}
	return stageOK, nil
}

func (c *Checker) stageWorkingHours(ctx context.Context, _ *staff.Profile, req Request) (stageResult, error) {
	if req.Timezone == "" {
		return failStage(ReasonTimezoneInvalid), nil
	}
	loc, err := time.LoadLocation(req.Timezone)
	if err != nil {
		// Fail closed rather than guess at a timezone.
		c.logger.Warn("unrecognized evaluation timezone", "timezone", req.Timezone)
		return failStage(ReasonTimezoneInvalid), nil
	}

	local := req.Start.In(loc)
	weekday := timeutil.ISOWeekday(local.Weekday())

	hours, err := c.hours.GetWorkingHours(ctx, req.StaffID, weekday)
	if err != nil {
		return stageResult{}, err
	}
	if hours == nil {
		return failStage(ReasonDayOff), nil
	}

	startMinute := local.Hour()*60 + local.Minute()
	endMinute := startMinute + int(req.End.Sub(req.Start).Minutes())

	if startMinute < hours.StartMinute || endMinute > hours.EndMinute {
		return failStage(fmt.Sprintf("Time slot falls outside staff working hours (%s - %s %s).",
			timeutil.FormatClock(hours.StartMinute),
			timeutil.FormatClock(hours.EndMinute),
			req.Timezone)), nil
	}
	return stageOK, nil
}

func (c *Checker) stageStoredBookings(ctx context.Context, _ *staff.Profile, req Request) (stageResult, error) {
	busy, err := c.bookings.BusyIntervals(ctx, req.StaffID, req.Start, req.End, req.ExcludeBookingID)
	if err != nil {
		return stageResult{}, err
	}
	requested := Interval{Start: req.Start, End: req.End}
	for _, b := range busy {
		if b.Overlaps(requested) {
			return failStage(ReasonBookingConflict), nil
		}
	}
	return stageOK, nil
}

func (c *Checker) stageExternalCalendar(ctx context.Context, profile *staff.Profile, req Request) (stageResult, error) {
	if !profile.CalendarLinked() || c.calendar == nil {
		// No linked calendar is not a conflict.
		return stageOK, nil
	}
	busy, err := c.calendar.BusyIntervals(ctx, profile.CalendarID, req.Start, req.End)
	if err != nil {
		// Fail closed: an unverifiable calendar never yields a bookable slot.
		c.logger.Warn("google calendar busy lookup failed",
			"staff_id", req.StaffID, "error", err)
		return failStage(ReasonCalendarUnverifiable), nil
	}
	requested := Interval{Start: req.Start, End: req.End}
	for _, b := range busy {
		if b.Overlaps(requested) {
			return failStage(ReasonCalendarConflict), nil
		}
	}
	return stageOK, nil
}
