package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bookably/booking-engine/internal/availability"
	"github.com/bookably/booking-engine/internal/staff"
)

// Querier is the subset of pgx both *pgxpool.Pool and pgx.Tx satisfy, so the
// same repository works on the pool and inside a locked transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides persistence for bookings plus the row locks the write
// path serializes on.
type Repository struct {
	q Querier
}

func NewRepository(q Querier) *Repository {
	if q == nil {
		panic("bookings: querier required")
	}
	return &Repository{q: q}
}

// BusyIntervals returns the confirmed bookings for the staff member that
// overlap the half-open UTC range [from, to), optionally excluding one
// booking id (uuid.Nil excludes nothing). Implements the availability
// pipeline's stored-bookings source.
func (r *Repository) BusyIntervals(ctx context.Context, staffID uuid.UUID, from, to time.Time, exclude uuid.UUID) ([]availability.Interval, error) {
	query := `
		SELECT starts_at, ends_at FROM bookings
		WHERE staff_id = $1 AND status = 'confirmed'
		  AND starts_at < $3 AND ends_at > $2`
	args := []any{staffID, from, to}
	if exclude != uuid.Nil {
		query += ` AND id <> $4`
		args = append(args, exclude)
	}
	query += ` ORDER BY starts_at`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("bookings: load busy intervals: %w", err)
	}
	defer rows.Close()

	var out []availability.Interval
	for rows.Next() {
		var iv availability.Interval
		if err := rows.Scan(&iv.Start, &iv.End); err != nil {
			return nil, fmt.Errorf("bookings: scan busy interval: %w", err)
		}
		out = append(out, iv)
	}
	return out, rows.Err()
}

// Get returns a booking, or ErrNotFound.
func (r *Repository) Get(ctx context.Context, bookingID uuid.UUID) (*Booking, error) {
	return r.get(ctx, bookingID, false)
}

// GetForUpdate loads a booking under FOR UPDATE so concurrent cancel and
// reschedule attempts on the same booking serialize.
func (r *Repository) GetForUpdate(ctx context.Context, bookingID uuid.UUID) (*Booking, error) {
	return r.get(ctx, bookingID, true)
}

func (r *Repository) get(ctx context.Context, bookingID uuid.UUID, lock bool) (*Booking, error) {
	query := `
		SELECT id, staff_id, service_id, client_name, starts_at, ends_at,
		       status, COALESCE(google_event_id, ''), created_at, updated_at
		FROM bookings WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	var b Booking
	var status string
	err := r.q.QueryRow(ctx, query, bookingID).Scan(
		&b.ID, &b.StaffID, &b.ServiceID, &b.ClientName, &b.StartsAt, &b.EndsAt,
		&status, &b.GoogleEventID, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("bookings: load booking: %w", err)
	}
	b.Status = Status(status)
	return &b, nil
}

// ListForStaff returns a staff member's confirmed bookings in a UTC range,
// ordered by start time.
func (r *Repository) ListForStaff(ctx context.Context, staffID uuid.UUID, from, to time.Time) ([]Booking, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, staff_id, service_id, client_name, starts_at, ends_at,
		       status, COALESCE(google_event_id, ''), created_at, updated_at
		FROM bookings
		WHERE staff_id = $1 AND status = 'confirmed'
		  AND starts_at < $3 AND ends_at > $2
		ORDER BY starts_at`, staffID, from, to)
	if err != nil {
		return nil, fmt.Errorf("bookings: list for staff: %w", err)
	}
	defer rows.Close()

	var out []Booking
	for rows.Next() {
		var b Booking
		var status string
		if err := rows.Scan(&b.ID, &b.StaffID, &b.ServiceID, &b.ClientName,
			&b.StartsAt, &b.EndsAt, &status, &b.GoogleEventID,
			&b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("bookings: scan booking: %w", err)
		}
		b.Status = Status(status)
		out = append(out, b)
	}
	if out == nil {
		out = []Booking{}
	}
	return out, rows.Err()
}

// Insert writes a new booking row.
func (r *Repository) Insert(ctx context.Context, b *Booking) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO bookings (id, staff_id, service_id, client_name, starts_at, ends_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		b.ID, b.StaffID, b.ServiceID, b.ClientName, b.StartsAt, b.EndsAt, string(b.Status), b.CreatedAt)
	if err != nil {
		return fmt.Errorf("bookings: insert: %w", err)
	}
	return nil
}

// UpdateStatus transitions a booking's lifecycle state.
func (r *Repository) UpdateStatus(ctx context.Context, bookingID uuid.UUID, status Status) error {
	_, err := r.q.Exec(ctx, `
		UPDATE bookings SET status = $2, updated_at = $3 WHERE id = $1`,
		bookingID, string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("bookings: update status: %w", err)
	}
	return nil
}

// UpdateInterval moves a booking to a new UTC interval.
func (r *Repository) UpdateInterval(ctx context.Context, bookingID uuid.UUID, startsAt, endsAt time.Time) error {
	_, err := r.q.Exec(ctx, `
		UPDATE bookings SET starts_at = $2, ends_at = $3, updated_at = $4 WHERE id = $1`,
		bookingID, startsAt, endsAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("bookings: update interval: %w", err)
	}
	return nil
}

// SetGoogleEventID records the mirrored calendar event for a booking.
func (r *Repository) SetGoogleEventID(ctx context.Context, bookingID uuid.UUID, eventID string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE bookings SET google_event_id = $2, updated_at = $3 WHERE id = $1`,
		bookingID, eventID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("bookings: set google event id: %w", err)
	}
	return nil
}

// LockService locks the service row and returns its duration, serializing
// concurrent writers that book the same service. Returns ErrNotFound when the
// service does not exist or is inactive.
func (r *Repository) LockService(ctx context.Context, serviceID uuid.UUID) (durationMinutes int, err error) {
	err = r.q.QueryRow(ctx, `
		SELECT duration_minutes FROM services
		WHERE id = $1 AND is_active FOR UPDATE`, serviceID).Scan(&durationMinutes)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("bookings: lock service: %w", err)
	}
	return durationMinutes, nil
}

// StaffCalendarID returns the staff member's linked calendar id, empty when
// none is linked or the staff member is missing.
func (r *Repository) StaffCalendarID(ctx context.Context, staffID uuid.UUID) (string, error) {
	var calendarID *string
	err := r.q.QueryRow(ctx, `
		SELECT google_calendar_id FROM staff WHERE id = $1`, staffID).Scan(&calendarID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("bookings: load staff calendar id: %w", err)
	}
	if calendarID == nil {
		return "", nil
	}
	return *calendarID, nil
}

// LockStaff locks the staff row and returns the profile used by the in-lock
// availability re-check. A missing staff member returns (nil, nil): the
// pipeline's first stage turns that into the client-facing reason.
func (r *Repository) LockStaff(ctx context.Context, staffID uuid.UUID) (*staff.Profile, error) {
	var p staff.Profile
	var calendarID *string
	err := r.q.QueryRow(ctx, `
		SELECT id, display_name, is_active, google_calendar_id
		FROM staff WHERE id = $1 FOR UPDATE`, staffID).Scan(
		&p.ID, &p.DisplayName, &p.Active, &calendarID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("bookings: lock staff: %w", err)
	}
	if calendarID != nil {
		p.CalendarID = *calendarID
	}
	return &p, nil
}
