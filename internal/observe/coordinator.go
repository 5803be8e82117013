package observe

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/wavecast/wavecast/internal/clock"
	"github.com/wavecast/wavecast/internal/geo"
	"github.com/wavecast/wavecast/internal/position"
	"github.com/wavecast/wavecast/internal/wave"
)

// Sentinel errors for coordinator lifecycle misuse.
var (
	// ErrAlreadyRunning indicates Start was called on a running coordinator.
	ErrAlreadyRunning = errors.New("coordinator already running")
	// ErrStillRunning indicates Reset was called before StopAndWait completed.
	ErrStillRunning = errors.New("coordinator still running; StopAndWait before Reset")
)

// HitTrigger is the one-shot notification raised when the wavefront reaches
// the observed participant.
type HitTrigger struct {
	EventID  string
	DeviceID string
	HitAt    time.Time
}

// Dispatcher receives one-shot hit triggers. Filtering and delivery policy
// live behind this interface.
type Dispatcher interface {
	DispatchHit(ctx context.Context, trig HitTrigger) error
}

// CoordinatorConfig wires one observation pipeline together.
type CoordinatorConfig struct {
	EventID  string
	DeviceID string

	// Engine computes wave geometry for this event. Exclusively owned by
	// this pipeline.
	Engine *wave.Engine

	// Timing is the event start and fallback duration.
	Timing wave.EventTiming

	// Geometry supplies area polygons and the loaded flag.
	Geometry AreaGeometry

	// Tracker maintains the debounced membership signal.
	Tracker *Tracker

	// Scheduler decides the evaluation cadence.
	Scheduler *Scheduler

	// Source streams position fixes. Optional.
	Source position.Source

	// Clock supplies evaluation timestamps.
	Clock clock.Clock

	// Dispatcher receives the one-shot hit trigger. Optional.
	Dispatcher Dispatcher

	// Logger for pipeline events.
	Logger zerolog.Logger

	// WarmupWindow is how long before start the event moves from UPCOMING to
	// WARMING (default: 10m).
	WarmupWindow time.Duration

	// OnState is invoked with every republished state. Optional.
	OnState func(State)
}

// Coordinator is the single authority merging scheduler ticks, tracker
// output and geometry results into one validated, throttled event state per
// evaluation. It owns the per-event observation lifecycle.
type Coordinator struct {
	eventID    string
	deviceID   string
	engine     *wave.Engine
	timing     wave.EventTiming
	geom       AreaGeometry
	tracker    *Tracker
	scheduler  *Scheduler
	source     position.Source
	clock      clock.Clock
	dispatcher Dispatcher
	logger     zerolog.Logger
	warmup     time.Duration
	onState    func(State)

	mu   stateMu
	kick chan struct{}
}

// stateMu bundles everything the coordinator mutates under one lock.
type stateMu struct {
	lock      sync.Mutex
	state     State
	published State
	diags     []Diagnostic
	hitFired  bool
	cancelled bool
	running   bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewCoordinator creates a coordinator in its initial state.
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	warmup := cfg.WarmupWindow
	if warmup == 0 {
		warmup = 10 * time.Minute
	}
	ck := cfg.Clock
	if ck == nil {
		ck = clock.System{}
	}

	c := &Coordinator{
		eventID:    cfg.EventID,
		deviceID:   cfg.DeviceID,
		engine:     cfg.Engine,
		timing:     cfg.Timing,
		geom:       cfg.Geometry,
		tracker:    cfg.Tracker,
		scheduler:  cfg.Scheduler,
		source:     cfg.Source,
		clock:      ck,
		dispatcher: cfg.Dispatcher,
		logger: cfg.Logger.With().
			Str("event_id", cfg.EventID).
			Str("device_id", cfg.DeviceID).
			Logger(),
		warmup:  warmup,
		onState: cfg.OnState,
		kick:    make(chan struct{}, 1),
	}
	c.mu.state = initialState()
	c.mu.published = initialState()
	return c
}

// Start performs one synchronous evaluation, so consumers never see an
// unknown initial state, and then begins consuming scheduler ticks and
// position updates.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.lock.Lock()
	if c.mu.running {
		c.mu.lock.Unlock()
		return ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.mu.running = true
	c.mu.cancel = cancel
	c.mu.done = make(chan struct{})
	done := c.mu.done
	c.mu.lock.Unlock()

	// Seed the tracker from the source's current fix so the first evaluation
	// already sees a position when one is available.
	if c.source != nil {
		if pos, err := c.source.Current(ctx); err == nil {
			c.tracker.Observe(pos)
		}
	}

	c.safeEvaluate(c.clock.Now())

	go c.run(runCtx, done)
	return nil
}

// Stop cancels the tick sequence and the position subscription without
// waiting for the pipeline goroutine to unwind.
func (c *Coordinator) Stop() {
	c.mu.lock.Lock()
	cancel := c.mu.cancel
	c.mu.lock.Unlock()
	if cancel != nil {
		cancel()
	}
}

// StopAndWait stops the pipeline and blocks until cancellation has fully
// propagated. Required before Reset so a tick already in flight cannot
// re-apply stale data afterwards.
func (c *Coordinator) StopAndWait(ctx context.Context) error {
	c.mu.lock.Lock()
	cancel := c.mu.cancel
	done := c.mu.done
	c.mu.lock.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reset reinitializes the coordinator to legal initial values. The pipeline
// must be fully stopped first.
func (c *Coordinator) Reset() error {
	c.mu.lock.Lock()
	defer c.mu.lock.Unlock()

	if c.mu.running {
		return ErrStillRunning
	}

	c.mu.state = initialState()
	c.mu.published = initialState()
	c.mu.diags = nil
	c.mu.hitFired = false
	c.mu.cancelled = false
	c.mu.cancel = nil
	c.mu.done = nil

	c.engine.ResetCaches()
	c.tracker.Reset()

	c.logger.Debug().Msg("coordinator reset")
	return nil
}

// ForceRecheck triggers one out-of-band evaluation immediately, without
// waiting for the next scheduled tick, and returns the resulting state.
func (c *Coordinator) ForceRecheck() State {
	c.tracker.ForceRecheck()
	c.safeEvaluate(c.clock.Now())
	return c.State()
}

// Cancel marks the observed event as called off. The next evaluation moves
// the state to CANCELLED and the tick sequence winds down.
func (c *Coordinator) Cancel() {
	c.mu.lock.Lock()
	c.mu.cancelled = true
	c.mu.lock.Unlock()

	select {
	case c.kick <- struct{}{}:
	default:
	}
}

// State returns the last published state.
func (c *Coordinator) State() State {
	c.mu.lock.Lock()
	defer c.mu.lock.Unlock()
	return c.mu.published
}

// Diagnostics returns a copy of the validation diagnostics collected so far.
func (c *Coordinator) Diagnostics() []Diagnostic {
	c.mu.lock.Lock()
	defer c.mu.lock.Unlock()
	out := make([]Diagnostic, len(c.mu.diags))
	copy(out, c.mu.diags)
	return out
}

// run is the pipeline loop: one evaluation per scheduler tick, with tracker
// emissions coalesced into at most one pending out-of-band evaluation.
func (c *Coordinator) run(ctx context.Context, done chan struct{}) {
	defer func() {
		c.mu.lock.Lock()
		c.mu.running = false
		c.mu.lock.Unlock()
		close(done)
	}()

	var updates <-chan *geo.Position
	if c.source != nil {
		updates = c.source.Updates()
	}

	// The scheduler drives tick evaluations directly: the timings feeding the
	// next interval come from the evaluation the tick itself produced.
	ticks := c.scheduler.Run(ctx, func(now time.Time) Timings {
		c.safeEvaluate(now)
		return c.timings()
	})

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticks:
			c.logger.Debug().Msg("tick sequence ended")
			return

		case fix, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			if _, emit := c.tracker.Observe(fix); emit {
				// Coalesce: at most one pending fresh evaluation, never a
				// queue of stale ones.
				select {
				case c.kick <- struct{}{}:
				default:
				}
			}

		case <-c.kick:
			c.safeEvaluate(c.clock.Now())
		}
	}
}

// timings derives the scheduler inputs from the latest validated state.
func (c *Coordinator) timings() Timings {
	c.mu.lock.Lock()
	defer c.mu.lock.Unlock()

	st := c.mu.state
	t := Timings{
		Active: st.Status == StatusActive,
		Done:   st.Status.Terminal(),
	}
	if st.TimeBeforeHit != nil {
		d := *st.TimeBeforeHit
		t.TimeBeforeHit = &d
	}
	if st.TimeBeforeStart != nil {
		d := *st.TimeBeforeStart
		t.TimeBeforeStart = &d
	}
	return t
}

// safeEvaluate runs one evaluation, catching collaborator panics so a single
// bad tick never terminates the pipeline.
func (c *Coordinator) safeEvaluate(now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().
				Interface("panic", r).
				Msg("evaluation failed, skipping tick")
		}
	}()
	c.evaluate(now)
}

// evaluate produces exactly one state from the latest tracker and geometry
// inputs, validates the transition, applies throttling and publishes.
func (c *Coordinator) evaluate(now time.Time) {
	tr := c.tracker.Latest()

	var (
		area   geo.Area
		box    geo.BoundingBox
		loaded bool
	)
	if c.geom != nil && c.geom.Loaded() {
		loaded = true
		area = c.geom.Area()
		box = c.geom.BoundingBox()
	}

	total := c.engine.TotalDuration(box)

	c.mu.lock.Lock()

	prev := c.mu.state
	next := State{
		Status:        c.computeStatus(now, total),
		Progression:   c.engine.Progress(box, now),
		InArea:        tr.InArea,
		HasBeenHit:    prev.HasBeenHit,
		PositionRatio: prev.PositionRatio,
	}

	if d := c.timing.StartsAt.Sub(now); d > 0 {
		next.TimeBeforeStart = &d
	}

	if tr.Position != nil && loaded {
		next.PositionRatio = c.engine.PositionRatio(box, *tr.Position)

		if tr.InArea {
			if hitAt, ok := c.engine.HitInstant(area, *tr.Position); ok {
				if now.Before(hitAt) {
					d := hitAt.Sub(now)
					next.TimeBeforeHit = &d
				} else if !c.mu.cancelled {
					next.HasBeenHit = true
				}
			}
		}
	}

	validated, diags := validate(prev, next, now)
	c.mu.state = validated
	if len(diags) > 0 {
		c.mu.diags = append(c.mu.diags, diags...)
		for _, d := range diags {
			c.logger.Warn().
				Str("field", d.Field).
				Str("detail", d.Detail).
				Msg("state validation rejected computed value")
		}
	}

	published := applyThrottle(c.mu.published, validated)
	changed := !equalStates(published, c.mu.published)
	c.mu.published = published

	fireHit := validated.HasBeenHit && !c.mu.hitFired
	if fireHit {
		c.mu.hitFired = true
	}

	c.mu.lock.Unlock()

	if changed && c.onState != nil {
		c.onState(published)
	}

	if fireHit {
		c.fireHitTrigger(now)
	}
}

// computeStatus derives the lifecycle status from wall time. Caller holds the
// state lock.
func (c *Coordinator) computeStatus(now time.Time, total time.Duration) Status {
	if c.mu.cancelled {
		return StatusCancelled
	}
	start := c.timing.StartsAt
	switch {
	case now.Before(start.Add(-c.warmup)):
		return StatusUpcoming
	case now.Before(start):
		return StatusWarming
	case total > 0 && now.Before(start.Add(total)):
		return StatusActive
	default:
		return StatusCompleted
	}
}

// fireHitTrigger raises the one-shot hit notification.
func (c *Coordinator) fireHitTrigger(at time.Time) {
	c.logger.Info().Time("hit_at", at).Msg("wavefront reached participant")

	if c.dispatcher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	trig := HitTrigger{EventID: c.eventID, DeviceID: c.deviceID, HitAt: at}
	if err := c.dispatcher.DispatchHit(ctx, trig); err != nil {
		c.logger.Error().Err(err).Msg("failed to dispatch hit trigger")
	}
}
