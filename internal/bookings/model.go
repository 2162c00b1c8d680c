// Package bookings owns the persisted booking records and the transactional
// write path that keeps them free of double-bookings.
package bookings

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusNoShow    Status = "no_show"
)

// Terminal reports whether the booking can no longer be cancelled or
// rescheduled.
func (s Status) Terminal() bool {
	switch s {
	case StatusCancelled, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

// Booking is one confirmed (or formerly confirmed) reservation of staff time.
// StartsAt/EndsAt are UTC instants forming a half-open interval.
type Booking struct {
	ID            uuid.UUID `json:"id"`
	StaffID       uuid.UUID `json:"staffId"`
	ServiceID     uuid.UUID `json:"serviceId"`
	ClientName    string    `json:"clientName"`
	StartsAt      time.Time `json:"startsAt"`
	EndsAt        time.Time `json:"endsAt"`
	Status        Status    `json:"status"`
	GoogleEventID string    `json:"-"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
