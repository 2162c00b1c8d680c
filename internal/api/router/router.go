// Package router assembles the HTTP surface of the booking engine.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bookably/booking-engine/internal/http/handlers"
	httpmiddleware "github.com/bookably/booking-engine/internal/http/middleware"
	"github.com/bookably/booking-engine/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	Scheduling         *handlers.SchedulingHandler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// RateLimitPerSecond caps request throughput per client IP; zero
	// disables limiting.
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if cfg.RateLimitPerSecond > 0 {
		r.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.Scheduling != nil {
		r.Route("/api/v1", func(api chi.Router) {
			api.Get("/services/{serviceID}/slots", cfg.Scheduling.ListSlots)
			api.Post("/availability/check", cfg.Scheduling.CheckAvailability)
			api.Route("/bookings", func(b chi.Router) {
				b.Post("/", cfg.Scheduling.CreateBooking)
				b.Get("/{bookingID}", cfg.Scheduling.GetBooking)
				b.Post("/{bookingID}/cancel", cfg.Scheduling.CancelBooking)
				b.Post("/{bookingID}/reschedule", cfg.Scheduling.RescheduleBooking)
			})
			api.Get("/staff/{staffID}/bookings", cfg.Scheduling.ListStaffBookings)
		})
	}

	return r
}
