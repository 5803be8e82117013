package observe_test

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavecast/wavecast/internal/clock"
	"github.com/wavecast/wavecast/internal/geo"
	"github.com/wavecast/wavecast/internal/observe"
	"github.com/wavecast/wavecast/internal/position"
	"github.com/wavecast/wavecast/internal/wave"
)

// mockDispatcher records hit triggers.
type mockDispatcher struct {
	mu    sync.Mutex
	trigs []observe.HitTrigger
}

func (m *mockDispatcher) DispatchHit(_ context.Context, trig observe.HitTrigger) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trigs = append(m.trigs, trig)
	return nil
}

func (m *mockDispatcher) triggers() []observe.HitTrigger {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]observe.HitTrigger, len(m.trigs))
	copy(out, m.trigs)
	return out
}

// equatorGeometry is a loaded rectangular area on the equator spanning
// widthMeters east-west from longitude 0.
func equatorGeometry(widthMeters float64) *fakeGeometry {
	widthDeg := widthMeters / geo.MetersPerDegreeLon(0)
	return &fakeGeometry{
		loaded: true,
		area: geo.Area{Rings: []geo.Ring{{
			{Lat: -0.01, Lon: 0},
			{Lat: -0.01, Lon: widthDeg},
			{Lat: 0.01, Lon: widthDeg},
			{Lat: 0.01, Lon: 0},
		}}},
	}
}

type pipelineFixture struct {
	coord      *observe.Coordinator
	tracker    *observe.Tracker
	clock      *clock.Fake
	dispatcher *mockDispatcher
	geometry   *fakeGeometry
	source     *position.ChannelSource
}

// newPipeline builds an unstarted coordinator around a fake clock. The wave
// starts at t0, sweeping east at 10 m/s over a box widthMeters wide.
func newPipeline(t0 time.Time, widthMeters float64) *pipelineFixture {
	fake := clock.NewFake(t0)
	geom := equatorGeometry(widthMeters)
	logger := zerolog.New(io.Discard)

	tracker := observe.NewTracker(observe.TrackerConfig{Geometry: geom, Logger: logger})
	dispatcher := &mockDispatcher{}
	source := position.NewChannelSource()

	coord := observe.NewCoordinator(observe.CoordinatorConfig{
		EventID:  "evt-1",
		DeviceID: "dev-1",
		Engine: wave.NewEngine(
			wave.Model{Speed: 10, Direction: wave.East, StartsAt: t0},
			wave.EventTiming{StartsAt: t0, ApproxDuration: 5 * time.Minute},
		),
		Timing:     wave.EventTiming{StartsAt: t0, ApproxDuration: 5 * time.Minute},
		Geometry:   geom,
		Tracker:    tracker,
		Scheduler:  newTestScheduler(fake),
		Source:     source,
		Clock:      fake,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	return &pipelineFixture{
		coord:      coord,
		tracker:    tracker,
		clock:      fake,
		dispatcher: dispatcher,
		geometry:   geom,
		source:     source,
	}
}

func TestCoordinator_StartEvaluatesSynchronously(t *testing.T) {
	t0 := time.Date(2026, 6, 21, 12, 0, 0, 0, time.UTC)
	fx := newPipeline(t0.Add(5*time.Hour), 1000) // event far in the future
	fx.clock.Set(t0)

	require.NoError(t, fx.coord.Start(context.Background()))
	defer func() { _ = fx.coord.StopAndWait(testCtx(t)) }()

	// Consumers see a concrete state immediately, never an unknown one.
	st := fx.coord.State()
	assert.Equal(t, observe.StatusUpcoming, st.Status)
	require.NotNil(t, st.TimeBeforeStart)
	assert.Equal(t, 5*time.Hour, *st.TimeBeforeStart)
}

func TestCoordinator_StartTwiceFails(t *testing.T) {
	t0 := time.Now()
	fx := newPipeline(t0.Add(5*time.Hour), 1000)

	require.NoError(t, fx.coord.Start(context.Background()))
	defer func() { _ = fx.coord.StopAndWait(testCtx(t)) }()

	assert.ErrorIs(t, fx.coord.Start(context.Background()), observe.ErrAlreadyRunning)
}

func TestCoordinator_HitTransition(t *testing.T) {
	t0 := time.Date(2026, 6, 21, 12, 0, 0, 0, time.UTC)
	fx := newPipeline(t0, 1000)

	// User just inside the far (east) edge: hit expected at ~t0+100s.
	box := fx.geometry.area.BoundingBox()
	user := geo.Position{Lat: 0, Lon: box.NorthEast.Lon - 1e-7}
	fx.tracker.Observe(&user)

	// Before the hit: flag down, time-before-hit strictly decreasing.
	var lastRemaining time.Duration
	for i, elapsed := range []time.Duration{10 * time.Second, 40 * time.Second, 90 * time.Second} {
		fx.clock.Set(t0.Add(elapsed))
		st := fx.coord.ForceRecheck()

		assert.False(t, st.HasBeenHit, "elapsed %v", elapsed)
		require.NotNil(t, st.TimeBeforeHit, "elapsed %v", elapsed)
		if i > 0 {
			assert.Less(t, *st.TimeBeforeHit, lastRemaining)
		}
		lastRemaining = *st.TimeBeforeHit
	}

	// At/after the hit instant the flag flips and stays up.
	fx.clock.Set(t0.Add(101 * time.Second))
	st := fx.coord.ForceRecheck()
	assert.True(t, st.HasBeenHit)
	assert.Nil(t, st.TimeBeforeHit)

	fx.clock.Set(t0.Add(200 * time.Second))
	st = fx.coord.ForceRecheck()
	assert.True(t, st.HasBeenHit)

	// Exactly one trigger, carrying the event identity.
	trigs := fx.dispatcher.triggers()
	require.Len(t, trigs, 1)
	assert.Equal(t, "evt-1", trigs[0].EventID)
	assert.Equal(t, "dev-1", trigs[0].DeviceID)
}

func TestCoordinator_ProgressionNonDecreasing(t *testing.T) {
	t0 := time.Date(2026, 6, 21, 12, 0, 0, 0, time.UTC)
	fx := newPipeline(t0, 1000)

	fx.clock.Set(t0.Add(60 * time.Second))
	first := fx.coord.ForceRecheck()
	assert.InDelta(t, 0.6, first.Progression, 0.01)

	// A clock hiccup backwards must not regress progression; it is recorded
	// as a diagnostic instead.
	fx.clock.Set(t0.Add(30 * time.Second))
	second := fx.coord.ForceRecheck()
	assert.GreaterOrEqual(t, second.Progression, first.Progression)

	found := false
	for _, d := range fx.coord.Diagnostics() {
		if d.Field == "progression" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCoordinator_CancelMovesToCancelled(t *testing.T) {
	t0 := time.Date(2026, 6, 21, 12, 0, 0, 0, time.UTC)
	fx := newPipeline(t0, 1000)

	fx.clock.Set(t0.Add(10 * time.Second))
	st := fx.coord.ForceRecheck()
	require.Equal(t, observe.StatusActive, st.Status)

	fx.coord.Cancel()
	st = fx.coord.ForceRecheck()
	assert.Equal(t, observe.StatusCancelled, st.Status)

	// Terminal: a later evaluation cannot leave CANCELLED.
	fx.clock.Set(t0.Add(500 * time.Second))
	st = fx.coord.ForceRecheck()
	assert.Equal(t, observe.StatusCancelled, st.Status)
}

func TestCoordinator_MissingInputsDegrade(t *testing.T) {
	t0 := time.Date(2026, 6, 21, 12, 0, 0, 0, time.UTC)
	fx := newPipeline(t0, 1000)
	fx.geometry.loaded = false

	fx.clock.Set(t0.Add(10 * time.Second))
	st := fx.coord.ForceRecheck()

	// No fix and no polygons: neutral values, no error state.
	assert.False(t, st.InArea)
	assert.False(t, st.HasBeenHit)
	assert.Nil(t, st.TimeBeforeHit)
	// Duration falls back to the approximate event duration, so the event
	// still reads as active.
	assert.Equal(t, observe.StatusActive, st.Status)
}

func TestCoordinator_ResetLifecycle(t *testing.T) {
	t0 := time.Date(2026, 6, 21, 12, 0, 0, 0, time.UTC)
	fx := newPipeline(t0, 1000)

	require.NoError(t, fx.coord.Start(context.Background()))

	// Reset while running is refused.
	assert.ErrorIs(t, fx.coord.Reset(), observe.ErrStillRunning)

	require.NoError(t, fx.coord.StopAndWait(testCtx(t)))
	require.NoError(t, fx.coord.Reset())

	st := fx.coord.State()
	assert.Equal(t, observe.StatusUpcoming, st.Status)
	assert.Equal(t, 0.0, st.Progression)
	assert.False(t, st.HasBeenHit)
	assert.Empty(t, fx.coord.Diagnostics())

	// The coordinator can start again after reset.
	require.NoError(t, fx.coord.Start(context.Background()))
	require.NoError(t, fx.coord.StopAndWait(testCtx(t)))
}

func TestCoordinator_PositionUpdatesCoalesce(t *testing.T) {
	t0 := time.Date(2026, 6, 21, 12, 0, 0, 0, time.UTC)
	fx := newPipeline(t0, 1000)

	// Event active so the pipeline keeps running.
	fx.clock.Set(t0.Add(time.Second))
	require.NoError(t, fx.coord.Start(context.Background()))
	defer func() { _ = fx.coord.StopAndWait(testCtx(t)) }()

	// Initially no fix.
	assert.False(t, fx.coord.State().InArea)

	// A reported fix inside the area reaches the published state without
	// waiting for the next scheduled tick.
	fx.source.Report(&geo.Position{Lat: 0, Lon: 0.001})

	require.Eventually(t, func() bool {
		return fx.coord.State().InArea
	}, 2*time.Second, 5*time.Millisecond)
}

func TestCoordinator_PipelineRunsToCompletion(t *testing.T) {
	t0 := time.Date(2026, 6, 21, 12, 0, 0, 0, time.UTC)
	fx := newPipeline(t0, 100) // 10s sweep at 10 m/s

	box := fx.geometry.area.BoundingBox()
	user := geo.Position{Lat: 0, Lon: box.NorthEast.Lon - 1e-7}
	fx.tracker.Observe(&user)

	fx.clock.Set(t0.Add(500 * time.Millisecond))
	require.NoError(t, fx.coord.Start(context.Background()))

	// Drive the fake clock until the pipeline winds itself down: each
	// iteration waits for the scheduler to sleep, then advances past it.
	deadline := time.After(5 * time.Second)
	for i := 0; i < 300; i++ {
		st := fx.coord.State()
		if st.Status == observe.StatusCompleted {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("pipeline did not complete, state %+v", st)
		default:
		}
		if err := fx.clock.BlockUntilSleepers(testCtx(t), 1); err != nil {
			break
		}
		fx.clock.Advance(500 * time.Millisecond)
	}

	require.NoError(t, fx.coord.StopAndWait(testCtx(t)))

	st := fx.coord.State()
	assert.Equal(t, observe.StatusCompleted, st.Status)
	assert.True(t, st.HasBeenHit)
	assert.Equal(t, 1.0, st.Progression)
	assert.Len(t, fx.dispatcher.triggers(), 1)
}

func TestManager_Lifecycle(t *testing.T) {
	t0 := time.Date(2026, 6, 21, 12, 0, 0, 0, time.UTC)
	logger := zerolog.New(io.Discard)
	mgr := observe.NewManager(observe.ManagerConfig{Logger: logger})

	fake := clock.NewFake(t0)
	geom := equatorGeometry(1000)
	cfg := observe.CoordinatorConfig{
		EventID:   "evt-1",
		DeviceID:  "dev-1",
		Engine:    wave.NewEngine(wave.Model{Speed: 10, Direction: wave.East, StartsAt: t0}, wave.EventTiming{StartsAt: t0}),
		Timing:    wave.EventTiming{StartsAt: t0, ApproxDuration: time.Minute},
		Geometry:  geom,
		Tracker:   observe.NewTracker(observe.TrackerConfig{Geometry: geom, Logger: logger}),
		Scheduler: newTestScheduler(fake),
		Source:    position.NewChannelSource(),
		Clock:     fake,
		Logger:    logger,
	}

	_, err := mgr.Start(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, mgr.Count())

	// Duplicate pair refused.
	_, err = mgr.Start(context.Background(), cfg)
	assert.ErrorIs(t, err, observe.ErrObservationExists)

	st, err := mgr.State("evt-1", "dev-1")
	require.NoError(t, err)
	assert.Equal(t, observe.StatusActive, st.Status)

	assert.Equal(t, []string{"evt-1"}, mgr.EventIDs())
	assert.Equal(t, 1, mgr.CancelEvent("evt-1"))

	require.NoError(t, mgr.StopAndWait(testCtx(t), "evt-1", "dev-1"))
	assert.Equal(t, 0, mgr.Count())

	_, err = mgr.State("evt-1", "dev-1")
	assert.ErrorIs(t, err, observe.ErrObservationNotFound)
}
