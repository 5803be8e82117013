package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/wavecast/wavecast/internal/event"
	"github.com/wavecast/wavecast/internal/observe"
)

// ReconcileJob periodically aligns running pipelines with the event store:
// pipelines for events that were cancelled or deleted behind this instance's
// back get cancelled locally. Pub/Sub control messages usually arrive first;
// reconciliation is the safety net for missed deliveries.
type ReconcileJob struct {
	interval time.Duration
	events   *event.Service
	manager  *observe.Manager
	logger   zerolog.Logger
}

// ReconcileJobConfig holds configuration for the reconcile job.
type ReconcileJobConfig struct {
	// Interval between reconcile passes. Default: 1 minute.
	Interval time.Duration
	Events   *event.Service
	Manager  *observe.Manager
	Logger   zerolog.Logger
}

// NewReconcileJob creates a new reconcile job.
func NewReconcileJob(cfg ReconcileJobConfig) *ReconcileJob {
	interval := cfg.Interval
	if interval == 0 {
		interval = time.Minute
	}
	return &ReconcileJob{
		interval: interval,
		events:   cfg.Events,
		manager:  cfg.Manager,
		logger:   cfg.Logger,
	}
}

// Run blocks, reconciling every interval until the context is cancelled.
func (j *ReconcileJob) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single reconcile pass and returns the number of
// cancelled pipelines.
func (j *ReconcileJob) RunOnce(ctx context.Context) int {
	cancelled := 0
	for _, eventID := range j.manager.EventIDs() {
		e, err := j.events.Get(ctx, eventID)
		switch {
		case errors.Is(err, event.ErrEventNotFound):
			n := j.manager.CancelEvent(eventID)
			cancelled += n
			j.logger.Warn().
				Str("event_id", eventID).
				Int("pipelines", n).
				Msg("event vanished from store; pipelines cancelled")
		case err != nil:
			// Store unavailable; keep pipelines running and retry next pass.
			j.logger.Warn().Err(err).Str("event_id", eventID).Msg("reconcile lookup failed")
		case e.Cancelled():
			n := j.manager.CancelEvent(eventID)
			cancelled += n
			j.logger.Info().
				Str("event_id", eventID).
				Int("pipelines", n).
				Msg("event cancelled in store; pipelines cancelled")
		}
	}
	return cancelled
}
