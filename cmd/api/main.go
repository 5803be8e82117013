// Package main provides the entrypoint for the WaveCast API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/wavecast/wavecast/internal/api"
	"github.com/wavecast/wavecast/internal/api/handler"
	"github.com/wavecast/wavecast/internal/api/middleware"
	"github.com/wavecast/wavecast/internal/area"
	"github.com/wavecast/wavecast/internal/auth"
	"github.com/wavecast/wavecast/internal/database"
	"github.com/wavecast/wavecast/internal/device"
	"github.com/wavecast/wavecast/internal/event"
	"github.com/wavecast/wavecast/internal/featureflags"
	"github.com/wavecast/wavecast/internal/notify"
	"github.com/wavecast/wavecast/internal/observe"
	"github.com/wavecast/wavecast/internal/provider/resilience"
	"github.com/wavecast/wavecast/internal/telemetry"
	"github.com/wavecast/wavecast/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "wavecast-api"

	// Load .env if present (local development)
	_ = godotenv.Load()

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting WaveCast API")

	// Get configuration from environment
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        telemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryEnabled {
		log.Info().
			Str("otlp_endpoint", otlpEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Int("port", dbConfig.Port).
		Str("database", dbConfig.Database).
		Msg("database connected")

	// Connect to Redis for the shared area document cache (optional)
	var redisClient *redis.Client
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		if pingErr := redisClient.Ping(ctx).Err(); pingErr != nil {
			log.Fatal().Err(pingErr).Str("addr", redisAddr).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		log.Info().Str("addr", redisAddr).Msg("redis connected")
	} else {
		log.Warn().Msg("REDIS_ADDR not set - area documents cached in memory only")
	}

	// Initialize device and auth services
	deviceService := device.NewService(device.ServiceConfig{
		Repository: device.NewPostgresRepository(pool),
		Logger:     log,
	})

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		jwtSigningKey = "local-dev-signing-key-change-in-production"
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}

	jwtService := auth.NewJWTService(auth.JWTConfig{
		SigningKey: jwtSigningKey,
		Issuer:     "https://api.wavecast.app",
		Audience:   "wavecast-api",
	})

	authService := auth.NewService(auth.ServiceConfig{
		JWT:     jwtService,
		Devices: deviceService,
		Logger:  log,
	})
	log.Info().Msg("auth service initialized")

	// Initialize event service
	eventService := event.NewService(event.ServiceConfig{
		Repository: event.NewPostgresRepository(pool),
		Logger:     log,
	})
	log.Info().Msg("event service initialized")

	// Initialize area document client and service
	registry := resilience.NewRegistry()
	areaClient := area.NewClient(area.ClientConfig{Logger: log})
	registry.Register("area-documents", areaClient.Resilient())

	areaMetrics, err := middleware.NewProviderMetrics("area-documents")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize provider metrics")
	}

	var areaCache *area.RedisCache
	if redisClient != nil {
		areaCache = area.NewRedisCache(redisClient, time.Hour)
	}
	// Initialize feature flags repository and service
	ffService := featureflags.NewService(featureflags.ServiceConfig{
		Repository: featureflags.NewPostgresRepository(pool),
		Logger:     log,
		CacheTTL:   1 * time.Minute,
	})
	log.Info().Msg("feature flags service initialized")

	areaService := area.NewService(area.ServiceConfig{
		Client:  areaClient,
		Logger:  log,
		Cache:   areaCache,
		Metrics: areaMetrics,
		Flags:   ffService,
	})
	log.Info().Msg("area service initialized")

	// Initialize hit trigger dispatcher
	var dispatcher observe.Dispatcher
	pubsubProject := os.Getenv("PUBSUB_PROJECT_ID")
	hitTopic := os.Getenv("PUBSUB_HIT_TOPIC")
	if pubsubProject != "" && hitTopic != "" {
		psDispatcher, dErr := notify.NewPubSubDispatcher(ctx, notify.PubSubConfig{
			ProjectID: pubsubProject,
			TopicName: hitTopic,
			Logger:    log,
		})
		if dErr != nil {
			log.Fatal().Err(dErr).Msg("failed to initialize hit dispatcher")
		}
		defer psDispatcher.Close()
		dispatcher = psDispatcher
		log.Info().Str("topic", hitTopic).Msg("hit dispatcher initialized")
	} else {
		dispatcher = notify.NewLogDispatcher(log)
		log.Warn().Msg("Pub/Sub not configured - hit triggers logged only")
	}
	dispatcher = notify.NewGatedDispatcher(dispatcher, ffService, log)

	// Initialize the observation pipeline manager
	manager := observe.NewManager(observe.ManagerConfig{Logger: log})

	// Readiness probes for downstream dependencies
	checks := map[string]handler.DependencyCheck{
		"postgres": func(ctx context.Context) error {
			return pool.Ping(ctx)
		},
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}

	// Align local pipelines with the event store. Control messages handle
	// the common case; the reconcile job catches missed deliveries.
	backgroundCtx, backgroundCancel := context.WithCancel(ctx)
	defer backgroundCancel()

	reconcileJob := worker.NewReconcileJob(worker.ReconcileJobConfig{
		Events:  eventService,
		Manager: manager,
		Logger:  log,
	})
	go reconcileJob.Run(backgroundCtx)

	controlSub := os.Getenv("PUBSUB_CONTROL_SUBSCRIPTION")
	if pubsubProject != "" && controlSub != "" {
		controlHandler, cErr := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        pubsubProject,
			SubscriptionName: controlSub,
			Events:           eventService,
			Areas:            areaService,
			Manager:          manager,
			Logger:           log,
		})
		if cErr != nil {
			log.Fatal().Err(cErr).Msg("failed to initialize control subscription")
		}
		defer controlHandler.Close()
		go func() {
			if rErr := controlHandler.Start(backgroundCtx); rErr != nil && backgroundCtx.Err() == nil {
				log.Error().Err(rErr).Msg("control subscription stopped")
			}
		}()
		log.Info().Str("subscription", controlSub).Msg("control subscription started")
	} else {
		log.Warn().Msg("control subscription not configured - relying on reconcile job")
	}

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:            Version,
		BuildTime:          BuildTime,
		Logger:             log,
		ServiceName:        serviceName,
		Metrics:            metrics,
		AuthService:        authService,
		EventService:       eventService,
		AreaService:        areaService,
		Manager:            manager,
		Dispatcher:         dispatcher,
		FeatureFlagService: ffService,
		Ops: handler.OpsConfig{
			Version:   Version,
			BuildTime: BuildTime,
			Checks:    checks,
			Registry:  registry,
		},
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	// Stop observation pipelines after the listener so in-flight requests
	// finish first.
	manager.StopAll(shutdownCtx)

	log.Info().Msg("server stopped")
}
