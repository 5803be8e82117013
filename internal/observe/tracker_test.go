package observe_test

import (
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavecast/wavecast/internal/geo"
	"github.com/wavecast/wavecast/internal/observe"
)

// fakeGeometry is a controllable AreaGeometry for tests.
type fakeGeometry struct {
	loaded bool
	area   geo.Area
}

func (g *fakeGeometry) Loaded() bool                 { return g.loaded }
func (g *fakeGeometry) Area() geo.Area               { return g.area }
func (g *fakeGeometry) BoundingBox() geo.BoundingBox { return g.area.BoundingBox() }

func testGeometry() *fakeGeometry {
	return &fakeGeometry{
		loaded: true,
		area: geo.Area{Rings: []geo.Ring{{
			{Lat: 51, Lon: 3},
			{Lat: 51, Lon: 5},
			{Lat: 53, Lon: 5},
			{Lat: 53, Lon: 3},
		}}},
	}
}

func newTestTracker(g observe.AreaGeometry) *observe.Tracker {
	return observe.NewTracker(observe.TrackerConfig{
		Geometry: g,
		Logger:   zerolog.New(io.Discard),
	})
}

func TestTracker_FirstObservationEmits(t *testing.T) {
	tr := newTestTracker(testGeometry())

	upd, emit := tr.Observe(&geo.Position{Lat: 52, Lon: 4})
	assert.True(t, emit)
	assert.True(t, upd.InArea)
}

func TestTracker_SmallMoveSuppressed(t *testing.T) {
	tr := newTestTracker(testGeometry())

	_, emit := tr.Observe(&geo.Position{Lat: 52, Lon: 4})
	require.True(t, emit)

	// ~0.3m move with unchanged membership: suppressed.
	_, emit = tr.Observe(&geo.Position{Lat: 52.000003, Lon: 4})
	assert.False(t, emit)
}

func TestTracker_TwoMeterMoveEmits(t *testing.T) {
	tr := newTestTracker(testGeometry())

	_, emit := tr.Observe(&geo.Position{Lat: 52, Lon: 4})
	require.True(t, emit)

	// ~2m move: re-emitted even though membership is unchanged.
	upd, emit := tr.Observe(&geo.Position{Lat: 52.000018, Lon: 4})
	assert.True(t, emit)
	assert.True(t, upd.InArea)
}

func TestTracker_MembershipFlipAlwaysEmits(t *testing.T) {
	tr := newTestTracker(testGeometry())

	_, emit := tr.Observe(&geo.Position{Lat: 52, Lon: 4})
	require.True(t, emit)

	upd, emit := tr.Observe(&geo.Position{Lat: 40, Lon: 4})
	assert.True(t, emit)
	assert.False(t, upd.InArea)

	upd, emit = tr.Observe(&geo.Position{Lat: 52, Lon: 4})
	assert.True(t, emit)
	assert.True(t, upd.InArea)
}

func TestTracker_FixLostAndRegained(t *testing.T) {
	tr := newTestTracker(testGeometry())

	_, emit := tr.Observe(&geo.Position{Lat: 52, Lon: 4})
	require.True(t, emit)

	// Fix lost: emits, no position, not in area.
	upd, emit := tr.Observe(nil)
	assert.True(t, emit)
	assert.Nil(t, upd.Position)
	assert.False(t, upd.InArea)

	// Still no fix: suppressed.
	_, emit = tr.Observe(nil)
	assert.False(t, emit)

	// Fix regained: emits.
	upd, emit = tr.Observe(&geo.Position{Lat: 52, Lon: 4})
	assert.True(t, emit)
	assert.True(t, upd.InArea)
}

func TestTracker_NotLoadedMeansNotInArea(t *testing.T) {
	g := testGeometry()
	g.loaded = false
	tr := newTestTracker(g)

	upd, _ := tr.Observe(&geo.Position{Lat: 52, Lon: 4})
	assert.False(t, upd.InArea)

	// ForceRecheck does not bypass the loaded gate.
	upd = tr.ForceRecheck()
	assert.False(t, upd.InArea)

	// Once polygons load, a recheck reflects real membership.
	g.loaded = true
	upd = tr.ForceRecheck()
	assert.True(t, upd.InArea)
}

func TestTracker_Reset(t *testing.T) {
	tr := newTestTracker(testGeometry())

	_, emit := tr.Observe(&geo.Position{Lat: 52, Lon: 4})
	require.True(t, emit)

	tr.Reset()
	latest := tr.Latest()
	assert.Nil(t, latest.Position)
	assert.False(t, latest.InArea)

	// After reset the next observation emits again.
	_, emit = tr.Observe(&geo.Position{Lat: 52, Lon: 4})
	assert.True(t, emit)
}
