// Package calendar integrates a staff member's Google Calendar as an extra
// busy-time source and mirrors confirmed bookings into it.
//
// The calendar is advisory but authoritative when reachable: a lookup that
// cannot be completed yields ErrUnverifiable, which callers on read paths
// treat as "busy" (fail closed). Mirroring is best-effort and never blocks a
// committed booking.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/bookably/booking-engine/internal/availability"
	"github.com/bookably/booking-engine/pkg/logging"
)

const defaultTimeout = 10 * time.Second

// ErrUnverifiable marks a busy lookup that could not be completed. It is
// distinct from "no busy intervals": callers must not treat it as free time.
var ErrUnverifiable = errors.New("calendar: busy state could not be verified")

// Event is the mirror payload for a confirmed booking.
type Event struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
}

// GoogleAdapter talks to the Google Calendar API.
type GoogleAdapter struct {
	svc     *gcal.Service
	timeout time.Duration
	logger  *logging.Logger
}

// NewGoogleAdapter builds an adapter from service-account credentials JSON.
func NewGoogleAdapter(ctx context.Context, credentialsJSON []byte, timeout time.Duration, logger *logging.Logger) (*GoogleAdapter, error) {
	svc, err := gcal.NewService(ctx,
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(gcal.CalendarScope),
	)
	if err != nil {
		return nil, fmt.Errorf("calendar: create service: %w", err)
	}
	return newGoogleAdapter(svc, timeout, logger), nil
}

// NewGoogleAdapterWithService injects a prebuilt service, used by tests.
func NewGoogleAdapterWithService(svc *gcal.Service, timeout time.Duration, logger *logging.Logger) *GoogleAdapter {
	return newGoogleAdapter(svc, timeout, logger)
}

func newGoogleAdapter(svc *gcal.Service, timeout time.Duration, logger *logging.Logger) *GoogleAdapter {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &GoogleAdapter{svc: svc, timeout: timeout, logger: logger}
}

// BusyIntervals queries free/busy for the calendar over [from, to). Every
// failure mode (transport, per-calendar error, unparseable period) comes back
// wrapped in ErrUnverifiable.
func (a *GoogleAdapter) BusyIntervals(ctx context.Context, calendarID string, from, to time.Time) ([]availability.Interval, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	res, err := a.svc.Freebusy.Query(&gcal.FreeBusyRequest{
		TimeMin: from.UTC().Format(time.RFC3339),
		TimeMax: to.UTC().Format(time.RFC3339),
		Items:   []*gcal.FreeBusyRequestItem{{Id: calendarID}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: freebusy query: %v", ErrUnverifiable, err)
	}

	cal, ok := res.Calendars[calendarID]
	if !ok {
		return nil, fmt.Errorf("%w: calendar %q missing from response", ErrUnverifiable, calendarID)
	}
	if len(cal.Errors) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnverifiable, cal.Errors[0].Reason)
	}

	intervals := make([]availability.Interval, 0, len(cal.Busy))
	for _, period := range cal.Busy {
		start, err := time.Parse(time.RFC3339, period.Start)
		if err != nil {
			return nil, fmt.Errorf("%w: bad period start %q", ErrUnverifiable, period.Start)
		}
		end, err := time.Parse(time.RFC3339, period.End)
		if err != nil {
			return nil, fmt.Errorf("%w: bad period end %q", ErrUnverifiable, period.End)
		}
		intervals = append(intervals, availability.Interval{Start: start, End: end})
	}
	return intervals, nil
}

// CreateEvent inserts a mirror event and returns its id.
func (a *GoogleAdapter) CreateEvent(ctx context.Context, calendarID string, ev Event) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	created, err := a.svc.Events.Insert(calendarID, &gcal.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start:       &gcal.EventDateTime{DateTime: ev.Start.UTC().Format(time.RFC3339)},
		End:         &gcal.EventDateTime{DateTime: ev.End.UTC().Format(time.RFC3339)},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("calendar: insert event: %w", err)
	}
	return created.Id, nil
}

// PatchEvent moves an existing mirror event to a new interval.
func (a *GoogleAdapter) PatchEvent(ctx context.Context, calendarID, eventID string, start, end time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	_, err := a.svc.Events.Patch(calendarID, eventID, &gcal.Event{
		Start: &gcal.EventDateTime{DateTime: start.UTC().Format(time.RFC3339)},
		End:   &gcal.EventDateTime{DateTime: end.UTC().Format(time.RFC3339)},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("calendar: patch event: %w", err)
	}
	return nil
}

// DeleteEvent removes a mirror event. A calendar that no longer has the
// event already matches the desired end state, so "not found" is success.
func (a *GoogleAdapter) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	err := a.svc.Events.Delete(calendarID, eventID).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && (gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone) {
			return nil
		}
		return fmt.Errorf("calendar: delete event: %w", err)
	}
	return nil
}
