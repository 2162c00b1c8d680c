package bookings

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bookably/booking-engine/internal/availability"
	"github.com/bookably/booking-engine/internal/calendar"
	"github.com/bookably/booking-engine/internal/observability/metrics"
	"github.com/bookably/booking-engine/pkg/logging"
)

var bookingsTracer = otel.Tracer("bookably.internal.bookings")

// DB is the pool-level access the coordinator needs: plain queries plus the
// ability to open the locked transaction every write runs in.
type DB interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Mirror is the best-effort calendar side of a booking write. Failures are
// reported, never fatal: the database is the source of truth and the external
// calendar is a convenience copy.
type Mirror interface {
	CreateEvent(ctx context.Context, calendarID string, ev calendar.Event) (string, error)
	PatchEvent(ctx context.Context, calendarID, eventID string, start, end time.Time) error
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}

// SlotCache invalidates cached slot listings after a committed write.
type SlotCache interface {
	Invalidate(ctx context.Context, serviceID uuid.UUID, localDate string) error
}

// Mirror-sync warnings attached to otherwise-successful writes.
const (
	WarningMirrorCreate = "Booking confirmed, but the Google Calendar event could not be created."
	WarningMirrorPatch  = "Booking rescheduled, but the Google Calendar event could not be updated."
	WarningMirrorDelete = "Booking cancelled, but the Google Calendar event could not be removed."
)

// WriteResult is the two-phase outcome of a booking write: the committed
// booking plus an optional non-fatal warning about the calendar mirror.
type WriteResult struct {
	Booking *Booking
	Warning string
}

// CreateParams describes a booking creation request. Start is the UTC start
// instant; the end is derived from the service duration under the lock.
type CreateParams struct {
	StaffID    uuid.UUID
	ServiceID  uuid.UUID
	ClientName string
	Start      time.Time
}

// Coordinator serializes booking writes per staff member. Each write opens a
// transaction, locks the service row then the staff row (always in that
// order), re-runs the availability check inside the lock, and only then
// mutates the booking table. The calendar mirror runs after commit, outside
// any lock.
type Coordinator struct {
	db       DB
	hours    availability.HoursDirectory
	calendar availability.CalendarSource
	mirror   Mirror
	cache    SlotCache
	timezone string
	logger   *logging.Logger
	metrics  *metrics.SchedulingMetrics
}

func NewCoordinator(db DB, hours availability.HoursDirectory, calSource availability.CalendarSource, mirror Mirror, cache SlotCache, timezone string, logger *logging.Logger, m *metrics.SchedulingMetrics) *Coordinator {
	if db == nil {
		panic("bookings: db required")
	}
	if hours == nil {
		panic("bookings: hours directory required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Coordinator{
		db:       db,
		hours:    hours,
		calendar: calSource,
		mirror:   mirror,
		cache:    cache,
		timezone: timezone,
		logger:   logger,
		metrics:  m,
	}
}

// Create books the staff member for the service starting at p.Start. The
// availability re-check runs on the transaction that holds the row locks, so
// a competing writer's committed booking is always visible to it.
func (c *Coordinator) Create(ctx context.Context, p CreateParams) (*WriteResult, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.create")
	defer span.End()
	span.SetAttributes(
		attribute.String("bookably.staff_id", p.StaffID.String()),
		attribute.String("bookably.service_id", p.ServiceID.String()),
	)

	tx, err := c.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("bookings: begin create: %w", err)
	}
	defer tx.Rollback(ctx)

	repo := NewRepository(tx)
	duration, err := repo.LockService(ctx, p.ServiceID)
	if err != nil {
		return nil, err
	}
	profile, err := repo.LockStaff(ctx, p.StaffID)
	if err != nil {
		return nil, err
	}

	start := p.Start.UTC()
	end := start.Add(time.Duration(duration) * time.Minute)

	checker := availability.NewChecker(c.hours, repo, c.calendar, c.logger, c.metrics)
	decision, err := checker.Check(ctx, profile, availability.Request{
		StaffID:  p.StaffID,
		Start:    start,
		End:      end,
		Timezone: c.timezone,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !decision.Available {
		c.metrics.ObserveWrite("create", "rejected")
		return nil, &ConflictError{Reasons: decision.Reasons}
	}

	now := time.Now().UTC()
	booking := &Booking{
		ID:         uuid.New(),
		StaffID:    p.StaffID,
		ServiceID:  p.ServiceID,
		ClientName: p.ClientName,
		StartsAt:   start,
		EndsAt:     end,
		Status:     StatusConfirmed,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := repo.Insert(ctx, booking); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("bookings: commit create: %w", err)
	}

	c.metrics.ObserveWrite("create", "confirmed")
	c.logger.Info("booking created",
		"booking_id", booking.ID, "staff_id", p.StaffID, "service_id", p.ServiceID,
		"starts_at", start)
	c.invalidateSlots(ctx, p.ServiceID, start)

	warning := c.mirrorCreate(ctx, profile.CalendarID, booking)
	return &WriteResult{Booking: booking, Warning: warning}, nil
}

// Cancel marks a booking cancelled. A booking already in a terminal state is
// a conflict, not a silent no-op.
func (c *Coordinator) Cancel(ctx context.Context, bookingID uuid.UUID) (*WriteResult, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("bookably.booking_id", bookingID.String()))

	tx, err := c.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("bookings: begin cancel: %w", err)
	}
	defer tx.Rollback(ctx)

	repo := NewRepository(tx)
	booking, err := repo.GetForUpdate(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status.Terminal() {
		return nil, ErrTerminalState
	}

	calendarID, err := repo.StaffCalendarID(ctx, booking.StaffID)
	if err != nil {
		return nil, err
	}
	if err := repo.UpdateStatus(ctx, bookingID, StatusCancelled); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("bookings: commit cancel: %w", err)
	}

	booking.Status = StatusCancelled
	c.metrics.ObserveWrite("cancel", "cancelled")
	c.logger.Info("booking cancelled", "booking_id", bookingID, "staff_id", booking.StaffID)
	c.invalidateSlots(ctx, booking.ServiceID, booking.StartsAt)

	var warning string
	if c.mirror != nil && calendarID != "" && booking.GoogleEventID != "" {
		if err := c.mirror.DeleteEvent(ctx, calendarID, booking.GoogleEventID); err != nil {
			c.metrics.ObserveMirrorFailure("cancel")
			c.logger.Warn("calendar mirror delete failed",
				"booking_id", bookingID, "error", err)
			warning = WarningMirrorDelete
		}
	}
	return &WriteResult{Booking: booking, Warning: warning}, nil
}

// Reschedule moves a booking to a new start time. The booking's own interval
// is excluded from the conflict check so it cannot collide with itself.
func (c *Coordinator) Reschedule(ctx context.Context, bookingID uuid.UUID, newStart time.Time) (*WriteResult, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.reschedule")
	defer span.End()
	span.SetAttributes(attribute.String("bookably.booking_id", bookingID.String()))

	tx, err := c.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("bookings: begin reschedule: %w", err)
	}
	defer tx.Rollback(ctx)

	repo := NewRepository(tx)
	booking, err := repo.GetForUpdate(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status.Terminal() {
		return nil, ErrTerminalState
	}

	duration, err := repo.LockService(ctx, booking.ServiceID)
	if err != nil {
		return nil, err
	}
	profile, err := repo.LockStaff(ctx, booking.StaffID)
	if err != nil {
		return nil, err
	}

	start := newStart.UTC()
	end := start.Add(time.Duration(duration) * time.Minute)

	checker := availability.NewChecker(c.hours, repo, c.calendar, c.logger, c.metrics)
	decision, err := checker.Check(ctx, profile, availability.Request{
		StaffID:          booking.StaffID,
		Start:            start,
		End:              end,
		Timezone:         c.timezone,
		ExcludeBookingID: booking.ID,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !decision.Available {
		c.metrics.ObserveWrite("reschedule", "rejected")
		return nil, &ConflictError{Reasons: decision.Reasons}
	}

	oldStart := booking.StartsAt
	if err := repo.UpdateInterval(ctx, bookingID, start, end); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("bookings: commit reschedule: %w", err)
	}

	booking.StartsAt = start
	booking.EndsAt = end
	c.metrics.ObserveWrite("reschedule", "confirmed")
	c.logger.Info("booking rescheduled",
		"booking_id", bookingID, "staff_id", booking.StaffID, "starts_at", start)
	c.invalidateSlots(ctx, booking.ServiceID, oldStart)
	c.invalidateSlots(ctx, booking.ServiceID, start)

	var warning string
	if c.mirror != nil && profile.CalendarLinked() && booking.GoogleEventID != "" {
		if err := c.mirror.PatchEvent(ctx, profile.CalendarID, booking.GoogleEventID, start, end); err != nil {
			c.metrics.ObserveMirrorFailure("reschedule")
			c.logger.Warn("calendar mirror patch failed",
				"booking_id", bookingID, "error", err)
			warning = WarningMirrorPatch
		}
	}
	return &WriteResult{Booking: booking, Warning: warning}, nil
}

// mirrorCreate inserts the calendar event for a freshly committed booking and
// stores the event id. Both steps are best-effort.
func (c *Coordinator) mirrorCreate(ctx context.Context, calendarID string, booking *Booking) string {
	if c.mirror == nil || calendarID == "" {
		return ""
	}
	eventID, err := c.mirror.CreateEvent(ctx, calendarID, calendar.Event{
		Summary: fmt.Sprintf("Booking: %s", booking.ClientName),
		Start:   booking.StartsAt,
		End:     booking.EndsAt,
	})
	if err != nil {
		c.metrics.ObserveMirrorFailure("create")
		c.logger.Warn("calendar mirror create failed",
			"booking_id", booking.ID, "error", err)
		return WarningMirrorCreate
	}
	if err := NewRepository(c.db).SetGoogleEventID(ctx, booking.ID, eventID); err != nil {
		c.metrics.ObserveMirrorFailure("create")
		c.logger.Warn("storing mirrored event id failed",
			"booking_id", booking.ID, "error", err)
		return WarningMirrorCreate
	}
	booking.GoogleEventID = eventID
	return ""
}

func (c *Coordinator) invalidateSlots(ctx context.Context, serviceID uuid.UUID, start time.Time) {
	if c.cache == nil {
		return
	}
	loc, err := time.LoadLocation(c.timezone)
	if err != nil {
		loc = time.UTC
	}
	date := start.In(loc).Format("2006-01-02")
	if err := c.cache.Invalidate(ctx, serviceID, date); err != nil {
		c.logger.Warn("slot cache invalidation failed",
			"service_id", serviceID, "date", date, "error", err)
	}
}
