// Package main provides the entrypoint for the WaveCast observer daemon. It
// keeps the shared caches warm: Pub/Sub control messages invalidate and
// re-warm area documents, and a periodic prefetch run loads the areas of
// upcoming events before the first observation asks for them.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/wavecast/wavecast/internal/area"
	"github.com/wavecast/wavecast/internal/database"
	"github.com/wavecast/wavecast/internal/event"
	"github.com/wavecast/wavecast/internal/featureflags"
	"github.com/wavecast/wavecast/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "wavecast-observer"

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
		Msg("starting WaveCast observer")

	// Observer also exposes a health endpoint for Cloud Run
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	prefetchInterval := 15 * time.Minute
	if raw := os.Getenv("PREFETCH_INTERVAL"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			log.Fatal().Err(err).Str("value", raw).Msg("invalid PREFETCH_INTERVAL")
		}
		prefetchInterval = parsed
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Str("database", dbConfig.Database).
		Msg("database connected")

	// Connect to Redis for the shared area document cache (optional)
	var areaCache *area.RedisCache
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		if pingErr := redisClient.Ping(ctx).Err(); pingErr != nil {
			log.Fatal().Err(pingErr).Str("addr", redisAddr).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		areaCache = area.NewRedisCache(redisClient, time.Hour)
		log.Info().Str("addr", redisAddr).Msg("redis connected")
	} else {
		log.Warn().Msg("REDIS_ADDR not set - prefetched documents cached in memory only")
	}

	// Initialize event and area services
	eventService := event.NewService(event.ServiceConfig{
		Repository: event.NewPostgresRepository(pool),
		Logger:     log,
	})

	ffService := featureflags.NewService(featureflags.ServiceConfig{
		Repository: featureflags.NewPostgresRepository(pool),
		Logger:     log,
		CacheTTL:   1 * time.Minute,
	})

	areaService := area.NewService(area.ServiceConfig{
		Client: area.NewClient(area.ClientConfig{Logger: log}),
		Logger: log,
		Cache:  areaCache,
		Flags:  ffService,
	})

	// Initialize the prefetch job
	prefetchJob := worker.NewPrefetchJob(worker.PrefetchJobConfig{
		Config: worker.DefaultPrefetchConfig(),
		Logger: log,
		Events: eventService,
		Areas:  areaService,
	})

	// Start Pub/Sub control message handler (optional)
	pubsubProject := os.Getenv("PUBSUB_PROJECT_ID")
	controlSub := os.Getenv("PUBSUB_CONTROL_SUBSCRIPTION")
	if pubsubProject != "" && controlSub != "" {
		controlHandler, cErr := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        pubsubProject,
			SubscriptionName: controlSub,
			Events:           eventService,
			Areas:            areaService,
			PrefetchJob:      prefetchJob,
			Logger:           log,
		})
		if cErr != nil {
			log.Fatal().Err(cErr).Msg("failed to initialize control subscription")
		}
		defer controlHandler.Close()
		go func() {
			if rErr := controlHandler.Start(ctx); rErr != nil && ctx.Err() == nil {
				log.Error().Err(rErr).Msg("control subscription stopped")
			}
		}()
		log.Info().Str("subscription", controlSub).Msg("control subscription started")
	} else {
		log.Warn().Msg("control subscription not configured - running prefetch loop only")
	}

	// Start periodic prefetch loop. One run at startup, then on the ticker.
	go func() {
		prefetchJob.Run(ctx)

		ticker := time.NewTicker(prefetchInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				prefetchJob.Run(ctx)
			}
		}
	}()

	// Create HTTP server for health checks
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","version":"%s"}`, Version)
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("health server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down observer")
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("observer stopped")
}
