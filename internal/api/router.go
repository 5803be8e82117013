// Package api provides the HTTP API for WaveCast.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/wavecast/wavecast/internal/api/handler"
	"github.com/wavecast/wavecast/internal/api/middleware"
	"github.com/wavecast/wavecast/internal/area"
	"github.com/wavecast/wavecast/internal/auth"
	"github.com/wavecast/wavecast/internal/event"
	"github.com/wavecast/wavecast/internal/featureflags"
	"github.com/wavecast/wavecast/internal/observe"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version            string
	BuildTime          string
	Logger             zerolog.Logger
	ServiceName        string
	Metrics            *middleware.Metrics
	AuthService        *auth.Service
	EventService       *event.Service
	AreaService        *area.Service
	Manager            *observe.Manager
	Dispatcher         observe.Dispatcher
	FeatureFlagService *featureflags.Service
	Ops                handler.OpsConfig
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "wavecast-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS)           // TLS enforcement (enabled via REQUIRE_TLS=true)
	r.Use(middleware.ContentTypeJSON)      // JSON content type

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(cfg.Ops)
	authHandler := handler.NewAuthHandler(cfg.AuthService)
	eventHandler := handler.NewEventHandler(cfg.EventService, cfg.Manager)
	observationHandler := handler.NewObservationHandler(handler.ObservationHandlerConfig{
		Events:     cfg.EventService,
		Areas:      cfg.AreaService,
		Manager:    cfg.Manager,
		Dispatcher: cfg.Dispatcher,
		Flags:      cfg.FeatureFlagService,
		Logger:     cfg.Logger,
	})
	featureFlagsHandler := handler.NewFeatureFlagsHandler(cfg.FeatureFlagService)

	// Create auth middleware
	authMiddleware := middleware.Auth(cfg.AuthService)

	// Create rate limit middleware for different endpoint categories
	authRateLimit := middleware.RateLimitByIP(middleware.AuthRateLimit)         // 10 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit) // 100 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Auth endpoints (public) - strict rate limiting
		r.Route("/auth", func(r chi.Router) {
			r.Use(authRateLimit) // 10 requests per minute per IP
			r.Post("/device", authHandler.DeviceAuth)
		})

		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			// Status endpoint requires authentication
			r.With(authMiddleware).Get("/status", opsHandler.SystemStatus)
		})

		// Event endpoints - reads are public, writes are authenticated
		r.Route("/events", func(r chi.Router) {
			r.With(standardRateLimit).Get("/", eventHandler.ListEvents)
			r.With(standardRateLimit).Get("/{eventId}", eventHandler.GetEvent)
			r.With(authMiddleware).Post("/", eventHandler.CreateEvent)
			r.With(authMiddleware).Post("/{eventId}/cancel", eventHandler.CancelEvent)
		})

		// Observation endpoints (authenticated) - device-based rate limiting
		r.Route("/observations/{eventId}", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RateLimitByDevice(middleware.ObservationRateLimit))
			r.Post("/start", observationHandler.StartObservation)
			r.Post("/stop", observationHandler.StopObservation)
			r.Get("/state", observationHandler.GetState)
			r.Post("/recheck", observationHandler.ForceRecheck)
			r.Put("/position", observationHandler.ReportPosition)
		})

		// Admin endpoints (authenticated) - for internal operations
		r.Route("/admin", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(standardRateLimit)

			// Feature flags management
			r.Route("/feature-flags", func(r chi.Router) {
				r.Get("/", featureFlagsHandler.ListFeatureFlags)
				r.Put("/", featureFlagsHandler.UpsertFeatureFlags)
				r.Post("/invalidate", featureFlagsHandler.InvalidateCache)
			})
		})
	})

	return r
}
