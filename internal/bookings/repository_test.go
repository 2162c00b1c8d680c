package bookings

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusyIntervalsNoExclusion(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	staffID := uuid.New()
	from := time.Date(2026, 3, 9, 5, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	busyStart := from.Add(5 * time.Hour)

	mock.ExpectQuery(`SELECT starts_at, ends_at FROM bookings`).
		WithArgs(staffID, from, to).
		WillReturnRows(pgxmock.NewRows([]string{"starts_at", "ends_at"}).
			AddRow(busyStart, busyStart.Add(30*time.Minute)))

	got, err := NewRepository(mock).BusyIntervals(context.Background(), staffID, from, to, uuid.Nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Start.Equal(busyStart))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBusyIntervalsWithExclusion(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	staffID := uuid.New()
	excluded := uuid.New()
	from := time.Date(2026, 3, 9, 5, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	// The excluded booking id becomes a fourth bind parameter.
	mock.ExpectQuery(`SELECT starts_at, ends_at FROM bookings`).
		WithArgs(staffID, from, to, excluded).
		WillReturnRows(pgxmock.NewRows([]string{"starts_at", "ends_at"}))

	got, err := NewRepository(mock).BusyIntervals(context.Background(), staffID, from, to, excluded)
	require.NoError(t, err)
	assert.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	bookingID := uuid.New()
	mock.ExpectQuery(`FROM bookings WHERE id = (.+)`).
		WithArgs(bookingID).
		WillReturnError(pgx.ErrNoRows)

	_, err = NewRepository(mock).Get(context.Background(), bookingID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLockServiceMissingOrInactive(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	serviceID := uuid.New()
	mock.ExpectQuery(`SELECT duration_minutes FROM services`).
		WithArgs(serviceID).
		WillReturnError(pgx.ErrNoRows)

	_, err = NewRepository(mock).LockService(context.Background(), serviceID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLockStaffMissingReturnsNil(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	staffID := uuid.New()
	mock.ExpectQuery(`FROM staff WHERE id = (.+) FOR UPDATE`).
		WithArgs(staffID).
		WillReturnError(pgx.ErrNoRows)

	profile, err := NewRepository(mock).LockStaff(context.Background(), staffID)
	require.NoError(t, err)
	assert.Nil(t, profile)
}

func TestStaffCalendarIDNull(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	staffID := uuid.New()
	mock.ExpectQuery(`SELECT google_calendar_id FROM staff`).
		WithArgs(staffID).
		WillReturnRows(pgxmock.NewRows([]string{"google_calendar_id"}).AddRow(nil))

	calendarID, err := NewRepository(mock).StaffCalendarID(context.Background(), staffID)
	require.NoError(t, err)
	assert.Empty(t, calendarID)
}

func TestListForStaffEmptyIsNonNil(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	staffID := uuid.New()
	from := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM bookings`).
		WithArgs(staffID, from, from.Add(48*time.Hour)).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "staff_id", "service_id", "client_name", "starts_at", "ends_at",
			"status", "google_event_id", "created_at", "updated_at"}))

	got, err := NewRepository(mock).ListForStaff(context.Background(), staffID, from, from.Add(48*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, got)
}
