package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/wavecast/wavecast/internal/area"
	"github.com/wavecast/wavecast/internal/event"
)

// PrefetchJob warms the area document caches for upcoming events so the
// first observation of an event never waits on the origin.
type PrefetchJob struct {
	config PrefetchConfig
	logger zerolog.Logger

	events *event.Service
	areas  *area.Service

	// Metrics
	metrics *PrefetchMetrics
}

// PrefetchMetrics tracks prefetch job statistics.
type PrefetchMetrics struct {
	mu sync.RWMutex

	// Counters
	TotalRuns        int64
	SuccessfulLoads  int64
	FailedLoads      int64
	EventsConsidered int64

	// Timings
	LastRunAt       time.Time
	LastRunDuration time.Duration
	TotalDuration   time.Duration
}

// PrefetchJobConfig holds configuration for creating a PrefetchJob.
type PrefetchJobConfig struct {
	Config PrefetchConfig
	Logger zerolog.Logger
	Events *event.Service
	Areas  *area.Service
}

// NewPrefetchJob creates a new prefetch job processor.
func NewPrefetchJob(cfg PrefetchJobConfig) *PrefetchJob {
	return &PrefetchJob{
		config:  cfg.Config.withDefaults(),
		logger:  cfg.Logger,
		events:  cfg.Events,
		areas:   cfg.Areas,
		metrics: &PrefetchMetrics{},
	}
}

// PrefetchResult contains the result of one prefetch run.
type PrefetchResult struct {
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	Events     int
	URLs       int
	Successful int
	Failed     int
	Errors     []PrefetchError
}

// PrefetchError represents a failed document load.
type PrefetchError struct {
	URL   string
	Error string
}

// Run loads the area document of every event starting within the horizon.
// Duplicate URLs across events are fetched once.
func (j *PrefetchJob) Run(ctx context.Context) *PrefetchResult {
	startTime := time.Now()
	result := &PrefetchResult{StartTime: startTime}

	now := time.Now()
	list, err := j.events.List(ctx, event.ListOptions{
		Limit: j.config.MaxEvents,
		From:  &now,
	})
	if err != nil {
		j.logger.Error().Err(err).Msg("prefetch could not list events")
		result.EndTime = time.Now()
		result.Duration = result.EndTime.Sub(startTime)
		return result
	}

	deadline := now.Add(j.config.Horizon)
	seen := make(map[string]struct{})
	var urls []string
	for _, e := range list.Items {
		if e.StartsAt.After(deadline) {
			continue
		}
		result.Events++
		if _, ok := seen[e.AreaURL]; ok {
			continue
		}
		seen[e.AreaURL] = struct{}{}
		urls = append(urls, e.AreaURL)
	}
	result.URLs = len(urls)

	j.logger.Info().
		Int("events", result.Events).
		Int("urls", result.URLs).
		Int("concurrency", j.config.Concurrency).
		Msg("starting area prefetch run")

	// Create work channels
	urlsChan := make(chan string, len(urls))
	resultsChan := make(chan loadResult, len(urls))

	// Start workers
	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.prefetchWorker(ctx, urlsChan, resultsChan)
		}()
	}

	// Send URLs to workers
	for _, u := range urls {
		urlsChan <- u
	}
	close(urlsChan)

	// Wait for workers to complete
	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	// Collect results
	for lr := range resultsChan {
		if lr.err == nil {
			result.Successful++
		} else {
			result.Failed++
			result.Errors = append(result.Errors, PrefetchError{URL: lr.url, Error: lr.err.Error()})
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	// Update metrics
	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Msg("area prefetch run completed")

	return result
}

type loadResult struct {
	url string
	err error
}

func (j *PrefetchJob) prefetchWorker(ctx context.Context, urls <-chan string, results chan<- loadResult) {
	for url := range urls {
		select {
		case <-ctx.Done():
			return
		default:
			loadCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
			_, err := j.areas.Load(loadCtx, url)
			cancel()
			results <- loadResult{url: url, err: err}
		}
	}
}

func (j *PrefetchJob) updateMetrics(result *PrefetchResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.SuccessfulLoads += int64(result.Successful)
	j.metrics.FailedLoads += int64(result.Failed)
	j.metrics.EventsConsidered += int64(result.Events)
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *PrefetchJob) GetMetrics() PrefetchMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return PrefetchMetrics{
		TotalRuns:        j.metrics.TotalRuns,
		SuccessfulLoads:  j.metrics.SuccessfulLoads,
		FailedLoads:      j.metrics.FailedLoads,
		EventsConsidered: j.metrics.EventsConsidered,
		LastRunAt:        j.metrics.LastRunAt,
		LastRunDuration:  j.metrics.LastRunDuration,
		TotalDuration:    j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *PrefetchJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_runs":        m.TotalRuns,
		"successful_loads":  m.SuccessfulLoads,
		"failed_loads":      m.FailedLoads,
		"events_considered": m.EventsConsidered,
		"last_run_at":       m.LastRunAt,
		"last_run_duration": m.LastRunDuration.String(),
		"total_duration":    m.TotalDuration.String(),
	}
}
