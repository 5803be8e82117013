package observe

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/wavecast/wavecast/internal/clock"
)

// Phase names the cadence rule that selected the current interval.
type Phase string

const (
	// PhaseHitImminent covers the last second before the wavefront arrives.
	PhaseHitImminent Phase = "HIT_IMMINENT"
	// PhaseHitClose covers the last five seconds before the hit.
	PhaseHitClose Phase = "HIT_CLOSE"
	// PhaseDormant is a distant event, more than an hour out.
	PhaseDormant Phase = "DORMANT"
	// PhaseDistant is an event several minutes out.
	PhaseDistant Phase = "DISTANT"
	// PhaseApproaching is the last minutes before start.
	PhaseApproaching Phase = "APPROACHING"
	// PhaseCountdown is the final seconds before start, or a running event.
	PhaseCountdown Phase = "COUNTDOWN"
	// PhaseIdle is a finished event kept under low-frequency watch.
	PhaseIdle Phase = "IDLE"
)

// Timings are the inputs to interval selection for one evaluation. Nil
// durations mean the corresponding instant is unknown or has passed.
type Timings struct {
	TimeBeforeHit   *time.Duration
	TimeBeforeStart *time.Duration
	Active          bool
	Done            bool
}

// Schedule describes the next observation step: which rule fired, how long
// to sleep, and a human-readable reason for diagnostics.
type Schedule struct {
	Phase    Phase
	Interval time.Duration
	NextAt   *time.Time
	Reason   string
}

// SchedulerConfig holds configuration for the observation scheduler.
type SchedulerConfig struct {
	// Clock drives sleeps and tick timestamps.
	Clock clock.Clock

	// Logger for cadence decisions.
	Logger zerolog.Logger

	// IdleInterval is the post-event cadence (default: 30s).
	IdleInterval time.Duration

	// NearWindow bounds how far before start continuous observation begins
	// (default: 2h).
	NearWindow time.Duration
}

// Scheduler decides tick cadence and emits a cancellable tick sequence until
// observation is no longer useful.
type Scheduler struct {
	clock  clock.Clock
	logger zerolog.Logger
	idle   time.Duration
	near   time.Duration
}

// NewScheduler creates a scheduler with defaults applied.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	idle := cfg.IdleInterval
	if idle == 0 {
		idle = 30 * time.Second
	}
	near := cfg.NearWindow
	if near == 0 {
		near = 2 * time.Hour
	}
	c := cfg.Clock
	if c == nil {
		c = clock.System{}
	}
	return &Scheduler{
		clock:  c,
		logger: cfg.Logger,
		idle:   idle,
		near:   near,
	}
}

// CalculateInterval selects the next evaluation interval. Rules are evaluated
// in priority order; hit timing beats event-countdown timing because effect
// synchronization near the hit instant needs the most precision, and the
// steps form a roughly exponential wake-frequency ramp as relevance grows.
func (s *Scheduler) CalculateInterval(t Timings) Schedule {
	sched := s.selectInterval(t)
	if sched.Interval > 0 {
		at := s.clock.Now().Add(sched.Interval)
		sched.NextAt = &at
	}
	return sched
}

func (s *Scheduler) selectInterval(t Timings) Schedule {
	if t.TimeBeforeHit != nil {
		h := *t.TimeBeforeHit
		switch {
		case h >= 0 && h < time.Second:
			return Schedule{Phase: PhaseHitImminent, Interval: 50 * time.Millisecond, Reason: "hit in under 1s"}
		case h >= 0 && h < 5*time.Second:
			return Schedule{Phase: PhaseHitClose, Interval: 200 * time.Millisecond, Reason: "hit in under 5s"}
		}
	}

	if t.TimeBeforeStart != nil {
		st := *t.TimeBeforeStart
		switch {
		case st > time.Hour+5*time.Minute:
			return Schedule{Phase: PhaseDormant, Interval: time.Hour, Reason: "event more than 1h05m away"}
		case st > 5*time.Minute+30*time.Second:
			return Schedule{Phase: PhaseDistant, Interval: 5 * time.Minute, Reason: "event more than 5m30s away"}
		case st > 35*time.Second:
			return Schedule{Phase: PhaseApproaching, Interval: time.Second, Reason: "event more than 35s away"}
		case st > 0:
			return Schedule{Phase: PhaseCountdown, Interval: 500 * time.Millisecond, Reason: "event about to start"}
		}
	}

	if t.Active {
		return Schedule{Phase: PhaseCountdown, Interval: 500 * time.Millisecond, Reason: "event active"}
	}

	return Schedule{Phase: PhaseIdle, Interval: s.idle, Reason: "event over"}
}

// ShouldObserveContinuously reports whether the tick sequence keeps running
// after the first tick: true for an active event, or one starting inside the
// near window.
func (s *Scheduler) ShouldObserveContinuously(t Timings) bool {
	if t.Done {
		return false
	}
	if t.Active {
		return true
	}
	return t.TimeBeforeStart != nil && *t.TimeBeforeStart > 0 && *t.TimeBeforeStart <= s.near
}

// Run drives evaluation ticks until the context is cancelled or observation
// is no longer useful. Each tick calls evaluate with the tick instant; the
// timings it returns describe the state that very evaluation produced, so the
// next interval is never computed from stale data. When the event reaches a
// terminal state that evaluation is the final tick. The returned channel
// closes when the sequence ends.
func (s *Scheduler) Run(ctx context.Context, evaluate func(now time.Time) Timings) <-chan struct{} {
	done := make(chan struct{})

	go func() {
		defer close(done)

		for {
			if ctx.Err() != nil {
				return
			}

			t := evaluate(s.clock.Now())
			if t.Done {
				return
			}
			if !s.ShouldObserveContinuously(t) {
				return
			}

			sched := s.CalculateInterval(t)
			if sched.Interval <= 0 {
				return
			}

			s.logger.Trace().
				Str("phase", string(sched.Phase)).
				Dur("interval", sched.Interval).
				Str("reason", sched.Reason).
				Msg("next observation tick scheduled")

			if err := s.clock.Sleep(ctx, sched.Interval); err != nil {
				return
			}
		}
	}()

	return done
}
