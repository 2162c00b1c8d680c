package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bookably/booking-engine/internal/availability"
	"github.com/bookably/booking-engine/internal/bookings"
	"github.com/bookably/booking-engine/internal/catalog"
	"github.com/bookably/booking-engine/internal/slots"
	"github.com/bookably/booking-engine/internal/staff"
	"github.com/bookably/booking-engine/pkg/logging"
)

// SlotLister produces the public slot listing for a service and date.
type SlotLister interface {
	ListSlots(ctx context.Context, serviceID uuid.UUID, localDate string, staffFilter *uuid.UUID) ([]slots.PublicSlot, error)
}

// StaffReader resolves staff profiles for the availability endpoint.
type StaffReader interface {
	GetProfile(ctx context.Context, staffID uuid.UUID) (*staff.Profile, error)
}

// ServiceReader resolves service definitions.
type ServiceReader interface {
	GetService(ctx context.Context, serviceID uuid.UUID) (*catalog.Service, error)
}

// AvailabilityChecker runs the advisory availability pipeline.
type AvailabilityChecker interface {
	Check(ctx context.Context, profile *staff.Profile, req availability.Request) (availability.Decision, error)
}

// BookingWriter is the transactional write path for bookings.
type BookingWriter interface {
	Create(ctx context.Context, p bookings.CreateParams) (*bookings.WriteResult, error)
	Cancel(ctx context.Context, bookingID uuid.UUID) (*bookings.WriteResult, error)
	Reschedule(ctx context.Context, bookingID uuid.UUID, newStart time.Time) (*bookings.WriteResult, error)
}

// BookingReader reads committed bookings.
type BookingReader interface {
	Get(ctx context.Context, bookingID uuid.UUID) (*bookings.Booking, error)
	ListForStaff(ctx context.Context, staffID uuid.UUID, from, to time.Time) ([]bookings.Booking, error)
}

type SchedulingConfig struct {
	Slots    SlotLister
	Staff    StaffReader
	Services ServiceReader
	Checker  AvailabilityChecker
	Writer   BookingWriter
	Reader   BookingReader
	Timezone string
	Logger   *logging.Logger
}

// SchedulingHandler serves the public scheduling API: slot listings, advisory
// availability checks, and booking writes.
type SchedulingHandler struct {
	slots    SlotLister
	staff    StaffReader
	services ServiceReader
	checker  AvailabilityChecker
	writer   BookingWriter
	reader   BookingReader
	timezone string
	logger   *logging.Logger
}

func NewSchedulingHandler(cfg SchedulingConfig) *SchedulingHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &SchedulingHandler{
		slots:    cfg.Slots,
		staff:    cfg.Staff,
		services: cfg.Services,
		checker:  cfg.Checker,
		writer:   cfg.Writer,
		reader:   cfg.Reader,
		timezone: cfg.Timezone,
		logger:   cfg.Logger,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

type bookingResponse struct {
	Booking *bookings.Booking `json:"booking"`
	Warning string            `json:"warning,omitempty"`
}

// conflictResponse mirrors the availability decision shape so rejected writes
// and advisory checks read the same to clients.
type conflictResponse struct {
	Available bool     `json:"available"`
	Reasons   []string `json:"reasons"`
}

func (h *SchedulingHandler) writeBookingError(w http.ResponseWriter, op string, err error) {
	var conflict *bookings.ConflictError
	switch {
	case errors.Is(err, bookings.ErrNotFound):
		writeError(w, http.StatusNotFound, "booking or service not found")
	case errors.Is(err, bookings.ErrTerminalState):
		writeError(w, http.StatusConflict, "booking is already cancelled or completed")
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, conflictResponse{Available: false, Reasons: conflict.Reasons})
	default:
		h.logger.Error("booking write failed", "op", op, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// ListSlots handles GET /services/{serviceID}/slots?date=YYYY-MM-DD&staffId=...
func (h *SchedulingHandler) ListSlots(w http.ResponseWriter, r *http.Request) {
	serviceID, err := uuid.Parse(chi.URLParam(r, "serviceID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "serviceID must be a UUID")
		return
	}
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		writeError(w, http.StatusBadRequest, "date query parameter is required")
		return
	}

	var staffFilter *uuid.UUID
	if raw := strings.TrimSpace(r.URL.Query().Get("staffId")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "staffId must be a UUID")
			return
		}
		staffFilter = &id
	}

	listing, err := h.slots.ListSlots(r.Context(), serviceID, date, staffFilter)
	switch {
	case errors.Is(err, slots.ErrInvalidDate):
		writeError(w, http.StatusBadRequest, "date must be formatted YYYY-MM-DD")
		return
	case errors.Is(err, slots.ErrServiceNotFound):
		writeError(w, http.StatusNotFound, "service not found")
		return
	case err != nil:
		h.logger.Error("slot listing failed", "service_id", serviceID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"serviceId": serviceID,
		"date":      date,
		"slots":     listing,
	})
}

type checkAvailabilityRequest struct {
	StaffID   uuid.UUID `json:"staffId"`
	ServiceID uuid.UUID `json:"serviceId"`
	Start     time.Time `json:"start"`
}

// CheckAvailability handles POST /availability/check. The decision is
// advisory: the booking write path re-checks under row locks.
func (h *SchedulingHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	var req checkAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.StaffID == uuid.Nil || req.ServiceID == uuid.Nil || req.Start.IsZero() {
		writeError(w, http.StatusBadRequest, "staffId, serviceId, and start are required")
		return
	}

	ctx := r.Context()
	svc, err := h.services.GetService(ctx, req.ServiceID)
	if err != nil {
		h.logger.Error("availability check: load service failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if svc == nil || !svc.Active {
		writeError(w, http.StatusNotFound, "service not found")
		return
	}

	profile, err := h.staff.GetProfile(ctx, req.StaffID)
	if err != nil {
		h.logger.Error("availability check: load staff failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	start := req.Start.UTC()
	decision, err := h.checker.Check(ctx, profile, availability.Request{
		StaffID:  req.StaffID,
		Start:    start,
		End:      start.Add(time.Duration(svc.DurationMinutes) * time.Minute),
		Timezone: h.timezone,
	})
	if err != nil {
		h.logger.Error("availability check failed", "staff_id", req.StaffID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

type createBookingRequest struct {
	StaffID    uuid.UUID `json:"staffId"`
	ServiceID  uuid.UUID `json:"serviceId"`
	ClientName string    `json:"clientName"`
	Start      time.Time `json:"start"`
}

// CreateBooking handles POST /bookings.
func (h *SchedulingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.ClientName = strings.TrimSpace(req.ClientName)
	if req.StaffID == uuid.Nil || req.ServiceID == uuid.Nil || req.ClientName == "" || req.Start.IsZero() {
		writeError(w, http.StatusBadRequest, "staffId, serviceId, clientName, and start are required")
		return
	}

	result, err := h.writer.Create(r.Context(), bookings.CreateParams{
		StaffID:    req.StaffID,
		ServiceID:  req.ServiceID,
		ClientName: req.ClientName,
		Start:      req.Start,
	})
	if err != nil {
		h.writeBookingError(w, "create", err)
		return
	}
	writeJSON(w, http.StatusCreated, bookingResponse{Booking: result.Booking, Warning: result.Warning})
}

// GetBooking handles GET /bookings/{bookingID}.
func (h *SchedulingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, err := uuid.Parse(chi.URLParam(r, "bookingID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bookingID must be a UUID")
		return
	}
	booking, err := h.reader.Get(r.Context(), bookingID)
	if errors.Is(err, bookings.ErrNotFound) {
		writeError(w, http.StatusNotFound, "booking not found")
		return
	}
	if err != nil {
		h.logger.Error("load booking failed", "booking_id", bookingID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// ListStaffBookings handles GET /staff/{staffID}/bookings?from=...&to=...
// with RFC 3339 bounds.
func (h *SchedulingHandler) ListStaffBookings(w http.ResponseWriter, r *http.Request) {
	staffID, err := uuid.Parse(chi.URLParam(r, "staffID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "staffID must be a UUID")
		return
	}
	from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "from must be an RFC 3339 timestamp")
		return
	}
	to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "to must be an RFC 3339 timestamp")
		return
	}

	listing, err := h.reader.ListForStaff(r.Context(), staffID, from.UTC(), to.UTC())
	if err != nil {
		h.logger.Error("list staff bookings failed", "staff_id", staffID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": listing})
}

// CancelBooking handles POST /bookings/{bookingID}/cancel.
func (h *SchedulingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, err := uuid.Parse(chi.URLParam(r, "bookingID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bookingID must be a UUID")
		return
	}
	result, err := h.writer.Cancel(r.Context(), bookingID)
	if err != nil {
		h.writeBookingError(w, "cancel", err)
		return
	}
	writeJSON(w, http.StatusOK, bookingResponse{Booking: result.Booking, Warning: result.Warning})
}

type rescheduleBookingRequest struct {
	Start time.Time `json:"start"`
}

// RescheduleBooking handles POST /bookings/{bookingID}/reschedule.
func (h *SchedulingHandler) RescheduleBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, err := uuid.Parse(chi.URLParam(r, "bookingID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bookingID must be a UUID")
		return
	}
	var req rescheduleBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Start.IsZero() {
		writeError(w, http.StatusBadRequest, "start is required")
		return
	}
	result, err := h.writer.Reschedule(r.Context(), bookingID, req.Start)
	if err != nil {
		h.writeBookingError(w, "reschedule", err)
		return
	}
	writeJSON(w, http.StatusOK, bookingResponse{Booking: result.Booking, Warning: result.Warning})
}
