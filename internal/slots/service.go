// Package slots computes the public list of bookable start times for a
// service on a date, merged across every staff member who can perform it.
package slots

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bookably/booking-engine/internal/availability"
	"github.com/bookably/booking-engine/internal/catalog"
	"github.com/bookably/booking-engine/internal/observability/metrics"
	"github.com/bookably/booking-engine/internal/schedule"
	"github.com/bookably/booking-engine/internal/staff"
	"github.com/bookably/booking-engine/internal/timeutil"
	"github.com/bookably/booking-engine/pkg/logging"
)

var slotsTracer = otel.Tracer("bookably.internal.slots")

// DefaultStepMinutes is the generation step between candidate slot starts.
// It is fixed for listing and independent of any per-staff granularity.
const DefaultStepMinutes = 15

var (
	// ErrInvalidDate means the requested date did not parse as YYYY-MM-DD.
	ErrInvalidDate = errors.New("slots: invalid date")
	// ErrServiceNotFound means the service does not exist or is inactive.
	ErrServiceNotFound = errors.New("slots: service not found")
)

// PublicSlot is one bookable start time offered to clients. Time is the
// local clock time in the business timezone.
type PublicSlot struct {
	Time      string    `json:"time"`
	StaffID   uuid.UUID `json:"staffId"`
	StaffName string    `json:"staffName"`
}

// ServiceCatalog resolves service definitions.
type ServiceCatalog interface {
	GetService(ctx context.Context, serviceID uuid.UUID) (*catalog.Service, error)
}

// StaffDirectory resolves the staff eligible for a service and their hours.
type StaffDirectory interface {
	ListForService(ctx context.Context, serviceID uuid.UUID, filter *uuid.UUID) ([]staff.Profile, error)
	GetWorkingHours(ctx context.Context, staffID uuid.UUID, weekday int) (*staff.WorkingHours, error)
}

// Service enumerates bookable slots. Listings are advisory: they are not
// computed under any lock, and the booking write path re-checks availability
// before committing.
type Service struct {
	services ServiceCatalog
	staff    StaffDirectory
	bookings availability.BusySource
	calendar availability.CalendarSource
	cache    *Cache
	timezone string
	step     int
	logger   *logging.Logger
	metrics  *metrics.SchedulingMetrics
}

func NewService(services ServiceCatalog, staffDir StaffDirectory, bookings availability.BusySource, calSource availability.CalendarSource, cache *Cache, timezone string, stepMinutes int, logger *logging.Logger, m *metrics.SchedulingMetrics) *Service {
	if services == nil || staffDir == nil || bookings == nil {
		panic("slots: catalog, staff directory, and busy source required")
	}
	if stepMinutes < 1 {
		stepMinutes = DefaultStepMinutes
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		services: services,
		staff:    staffDir,
		bookings: bookings,
		calendar: calSource,
		cache:    cache,
		timezone: timezone,
		step:     stepMinutes,
		logger:   logger,
		metrics:  m,
	}
}

// ListSlots returns the bookable start times for the service on localDate
// (YYYY-MM-DD in the business timezone), one slot per distinct time. With no
// staff filter the first eligible staff member offering a time wins; with a
// filter only that staff member's candidates are returned.
func (s *Service) ListSlots(ctx context.Context, serviceID uuid.UUID, localDate string, staffFilter *uuid.UUID) ([]PublicSlot, error) {
	ctx, span := slotsTracer.Start(ctx, "slots.list")
	defer span.End()
	span.SetAttributes(
		attribute.String("bookably.service_id", serviceID.String()),
		attribute.String("bookably.date", localDate),
	)
	began := time.Now()

	loc, err := time.LoadLocation(s.timezone)
	if err != nil {
		return nil, fmt.Errorf("slots: load timezone %q: %w", s.timezone, err)
	}
	dayStart, err := time.ParseInLocation("2006-01-02", localDate, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, localDate)
	}
	dayEnd := dayStart.AddDate(0, 0, 1)

	cacheable := staffFilter == nil
	if cacheable {
		if listing, ok := s.cache.Get(ctx, serviceID, localDate); ok {
			s.metrics.ObserveSlotListing(true, time.Since(began).Seconds())
			return listing, nil
		}
	}

	svc, err := s.services.GetService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if svc == nil || !svc.Active {
		return nil, ErrServiceNotFound
	}

	eligible, err := s.staff.ListForService(ctx, serviceID, staffFilter)
	if err != nil {
		return nil, err
	}

	weekday := timeutil.ISOWeekday(dayStart.Weekday())
	byMinute := map[int]PublicSlot{}
	for _, profile := range eligible {
		starts, err := s.staffSlotStarts(ctx, profile, svc.DurationMinutes, weekday, dayStart, dayEnd)
		if err != nil {
			return nil, err
		}
		for _, m := range starts {
			if _, taken := byMinute[m]; taken {
				continue
			}
			byMinute[m] = PublicSlot{
				Time:      timeutil.FormatClock(m),
				StaffID:   profile.ID,
				StaffName: profile.DisplayName,
			}
		}
	}

	minutes := make([]int, 0, len(byMinute))
	for m := range byMinute {
		minutes = append(minutes, m)
	}
	sort.Ints(minutes)

	listing := make([]PublicSlot, 0, len(minutes))
	for _, m := range minutes {
		listing = append(listing, byMinute[m])
	}

	if cacheable {
		s.cache.Set(ctx, serviceID, localDate, listing)
	}
	s.metrics.ObserveSlotListing(false, time.Since(began).Seconds())
	return listing, nil
}

// staffSlotStarts computes one staff member's candidate start minutes for the
// day. A staff member whose external calendar cannot be verified contributes
// no slots at all; the outage must not hide other staff's availability, so it
// is not an error.
func (s *Service) staffSlotStarts(ctx context.Context, profile staff.Profile, durationMinutes, weekday int, dayStart, dayEnd time.Time) ([]int, error) {
	hours, err := s.staff.GetWorkingHours(ctx, profile.ID, weekday)
	if err != nil {
		return nil, err
	}
	if hours == nil {
		return nil, nil
	}

	stored, err := s.bookings.BusyIntervals(ctx, profile.ID, dayStart.UTC(), dayEnd.UTC(), uuid.Nil)
	if err != nil {
		return nil, err
	}

	busy := make([]schedule.Range, 0, len(stored))
	for _, iv := range stored {
		busy = append(busy, localDayRange(iv, dayStart, dayEnd))
	}

	if profile.CalendarLinked() && s.calendar != nil {
		external, err := s.calendar.BusyIntervals(ctx, profile.CalendarID, dayStart.UTC(), dayEnd.UTC())
		if err != nil {
			s.logger.Warn("excluding staff from listing, calendar unverifiable",
				"staff_id", profile.ID, "error", err)
			return nil, nil
		}
		for _, iv := range external {
			busy = append(busy, localDayRange(iv, dayStart, dayEnd))
		}
	}

	working := []schedule.Range{{Start: hours.StartMinute, End: hours.EndMinute}}
	free := schedule.FreeIntervals(working, busy)
	return schedule.SlotStarts(free, durationMinutes, s.step), nil
}

// localDayRange projects a UTC busy interval onto the local day as a
// wall-clock minute range, clipped to the day boundaries. Intervals spilling
// in from adjacent days are clipped, not dropped. The end ceils so a partial
// minute still blocks its slot. Wall-clock minutes keep the projection
// consistent with working hours on DST transition days.
func localDayRange(iv availability.Interval, dayStart, dayEnd time.Time) schedule.Range {
	loc := dayStart.Location()

	start := 0
	if iv.Start.After(dayStart) {
		l := iv.Start.In(loc)
		start = l.Hour()*60 + l.Minute()
	}

	end := timeutil.MinutesPerDay
	if iv.End.Before(dayEnd) {
		l := iv.End.In(loc)
		end = l.Hour()*60 + l.Minute()
		if l.Second() > 0 || l.Nanosecond() > 0 {
			end++
		}
	}
	if !iv.End.After(dayStart) || !iv.Start.Before(dayEnd) {
		return schedule.Range{}
	}
	return schedule.Clip(schedule.Range{Start: start, End: end}, 0, timeutil.MinutesPerDay)
}
