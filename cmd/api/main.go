package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/bookably/booking-engine/internal/api/router"
	"github.com/bookably/booking-engine/internal/availability"
	"github.com/bookably/booking-engine/internal/bookings"
	"github.com/bookably/booking-engine/internal/calendar"
	"github.com/bookably/booking-engine/internal/catalog"
	appconfig "github.com/bookably/booking-engine/internal/config"
	"github.com/bookably/booking-engine/internal/http/handlers"
	"github.com/bookably/booking-engine/internal/observability/metrics"
	"github.com/bookably/booking-engine/internal/slots"
	"github.com/bookably/booking-engine/internal/staff"
	"github.com/bookably/booking-engine/pkg/logging"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting booking-engine API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"timezone", cfg.BusinessTimezone,
	)

	ctx := context.Background()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	// pgx pool drives the transactional booking writes; the database/sql
	// handle serves the read-side staff and catalog repositories.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pgx pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	sqlDB, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open sql db", "error", err)
		os.Exit(1)
	}
	defer func() { _ = sqlDB.Close() }()
	if err := sqlDB.PingContext(ctx); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	schedulingMetrics := metrics.NewSchedulingMetrics(prometheus.DefaultRegisterer)

	var slotCache *slots.Cache
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient := redis.NewClient(opts)
		defer func() { _ = redisClient.Close() }()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, slot listings will not be cached", "error", err)
		} else {
			slotCache = slots.NewCache(redisClient, cfg.SlotCacheTTL)
		}
	}

	var calendarAdapter *calendar.GoogleAdapter
	if cfg.GoogleCalendarCredentialsJSON != "" {
		calendarAdapter, err = calendar.NewGoogleAdapter(ctx,
			[]byte(cfg.GoogleCalendarCredentialsJSON), cfg.GoogleCalendarTimeout, logger)
		if err != nil {
			logger.Error("failed to init google calendar adapter", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("google calendar credentials not configured, mirror and calendar checks disabled")
	}

	staffRepo := staff.NewRepository(sqlDB)
	catalogRepo := catalog.NewRepository(sqlDB)
	bookingRepo := bookings.NewRepository(pool)

	// An adapter with no credentials stays nil so interface checks see a
	// true nil and skip the calendar stages.
	var calSource availability.CalendarSource
	var mirror bookings.Mirror
	if calendarAdapter != nil {
		calSource = calendarAdapter
		mirror = calendarAdapter
	}

	checker := availability.NewChecker(staffRepo, bookingRepo, calSource, logger, schedulingMetrics)

	slotService := slots.NewService(catalogRepo, staffRepo, bookingRepo, calSource,
		slotCache, cfg.BusinessTimezone, cfg.SlotStepMinutes, logger, schedulingMetrics)

	var cacheInvalidator bookings.SlotCache
	if slotCache != nil {
		cacheInvalidator = slotCache
	}
	coordinator := bookings.NewCoordinator(pool, staffRepo, calSource, mirror,
		cacheInvalidator, cfg.BusinessTimezone, logger, schedulingMetrics)

	schedulingHandler := handlers.NewSchedulingHandler(handlers.SchedulingConfig{
		Slots:    slotService,
		Staff:    staffRepo,
		Services: catalogRepo,
		Checker:  checker,
		Writer:   coordinator,
		Reader:   bookingRepo,
		Timezone: cfg.BusinessTimezone,
		Logger:   logger,
	})

	r := router.New(&router.Config{
		Logger:             logger,
		Scheduling:         schedulingHandler,
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
