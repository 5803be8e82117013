package wave_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavecast/wavecast/internal/geo"
	"github.com/wavecast/wavecast/internal/wave"
)

var t0 = time.Date(2026, 6, 21, 12, 0, 0, 0, time.UTC)

// equatorArea returns a rectangular area on the equator spanning widthMeters
// east-west, starting at longitude 0.
func equatorArea(widthMeters float64) geo.Area {
	widthDeg := widthMeters / geo.MetersPerDegreeLon(0)
	return geo.Area{Rings: []geo.Ring{{
		{Lat: -0.01, Lon: 0},
		{Lat: -0.01, Lon: widthDeg},
		{Lat: 0.01, Lon: widthDeg},
		{Lat: 0.01, Lon: 0},
	}}}
}

func newEngine(speed float64, dir wave.Direction) *wave.Engine {
	return wave.NewEngine(
		wave.Model{Speed: speed, Direction: dir, StartsAt: t0},
		wave.EventTiming{StartsAt: t0, ApproxDuration: 10 * time.Minute},
	)
}

func TestModel_Validate(t *testing.T) {
	valid := wave.Model{Speed: 10, Direction: wave.East, StartsAt: t0}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name     string
		mutate   func(*wave.Model)
		expected error
	}{
		{"zero speed", func(m *wave.Model) { m.Speed = 0 }, wave.ErrInvalidSpeed},
		{"negative speed", func(m *wave.Model) { m.Speed = -1 }, wave.ErrInvalidSpeed},
		{"bad direction", func(m *wave.Model) { m.Direction = "NORTH" }, wave.ErrInvalidDirection},
		{"missing start", func(m *wave.Model) { m.StartsAt = time.Time{} }, wave.ErrMissingStart},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := valid
			tt.mutate(&m)
			assert.ErrorIs(t, m.Validate(), tt.expected)
		})
	}
}

func TestEngine_TotalDuration(t *testing.T) {
	// speed=10 m/s, box 1000m wide at latitude 0: 100s to cross.
	engine := newEngine(10, wave.East)
	area := equatorArea(1000)

	total := engine.TotalDuration(area.BoundingBox())
	assert.InDelta(t, 100, total.Seconds(), 0.001)
}

func TestEngine_TotalDuration_FallbackWhenBoxDegenerate(t *testing.T) {
	engine := newEngine(10, wave.East)

	assert.Equal(t, 10*time.Minute, engine.TotalDuration(geo.BoundingBox{}))
}

func TestEngine_SplitAt_NotYetVisible(t *testing.T) {
	engine := newEngine(10, wave.East)
	area := equatorArea(1000)

	assert.Nil(t, engine.SplitAt(area, t0))
	assert.Nil(t, engine.SplitAt(area, t0.Add(-time.Minute)))
}

func TestEngine_SplitAt_EmptyArea(t *testing.T) {
	engine := newEngine(10, wave.East)
	assert.Nil(t, engine.SplitAt(geo.Area{}, t0.Add(time.Minute)))
}

func TestEngine_SplitAt_Midway(t *testing.T) {
	engine := newEngine(10, wave.East)
	area := equatorArea(1000)

	split := engine.SplitAt(area, t0.Add(50*time.Second))
	require.NotNil(t, split)
	require.Len(t, split.Traversed, 1)
	require.Len(t, split.Remaining, 1)

	// The front sits halfway across the box.
	halfDeg := 500 / geo.MetersPerDegreeLon(0)
	assert.InDelta(t, halfDeg, split.FrontLon, 1e-9)
}

func TestEngine_SplitAt_FullyTraversed(t *testing.T) {
	engine := newEngine(10, wave.East)
	area := equatorArea(1000)

	split := engine.SplitAt(area, t0.Add(200*time.Second))
	require.NotNil(t, split)
	assert.Len(t, split.Traversed, 1)
	assert.Empty(t, split.Remaining)
}

func TestEngine_SplitAt_CachesSameRings(t *testing.T) {
	engine := newEngine(10, wave.East)
	area := equatorArea(1000)
	at := t0.Add(50 * time.Second)

	first := engine.SplitAt(area, at)
	cached := engine.SplitAt(area, at)
	assert.Same(t, first, cached)
}

func TestEngine_SplitAt_RefreshedGeometryMissesCache(t *testing.T) {
	engine := newEngine(10, wave.East)
	at := t0.Add(50 * time.Second)

	first := engine.SplitAt(equatorArea(1000), at)
	require.NotNil(t, first)

	// A refresh decodes new rings with the same ring count; the cached split
	// must not be served for them.
	refreshed := engine.SplitAt(equatorArea(2000), at)
	require.NotNil(t, refreshed)
	assert.NotSame(t, first, refreshed)

	// The remaining portion reaches the refreshed area's east edge.
	require.Len(t, refreshed.Remaining, 1)
	eastDeg := 2000 / geo.MetersPerDegreeLon(0)
	var maxLon float64
	for _, p := range refreshed.Remaining[0] {
		if p.Lon > maxLon {
			maxLon = p.Lon
		}
	}
	assert.InDelta(t, eastDeg, maxLon, 1e-9)
}

func TestEngine_SplitAt_WestDirection(t *testing.T) {
	engine := newEngine(10, wave.West)
	area := equatorArea(1000)

	// Shortly after start the traversed portion hugs the east edge.
	split := engine.SplitAt(area, t0.Add(10*time.Second))
	require.NotNil(t, split)
	require.Len(t, split.Traversed, 1)
	require.Len(t, split.Remaining, 1)

	box := area.BoundingBox()
	for _, p := range split.Traversed[0] {
		off := geo.LonDelta(box.SouthWest.Lon, p.Lon)
		// Traversed vertices sit in the eastern tenth of the box.
		assert.GreaterOrEqual(t, off, box.WidthDegrees()*0.9-1e-9)
	}
}

func TestEngine_HitInstant_FarEdge(t *testing.T) {
	engine := newEngine(10, wave.East)
	area := equatorArea(1000)

	// User just inside the far (east) edge: hit at ~T0 + width/speed.
	box := area.BoundingBox()
	user := geo.Position{Lat: 0, Lon: box.NorthEast.Lon - 1e-7}

	hit, ok := engine.HitInstant(area, user)
	require.True(t, ok)
	assert.InDelta(t, 100, hit.Sub(t0).Seconds(), 0.1)
}

func TestEngine_HitInstant_OutsideArea(t *testing.T) {
	engine := newEngine(10, wave.East)
	area := equatorArea(1000)

	_, ok := engine.HitInstant(area, geo.Position{Lat: 10, Lon: 0})
	assert.False(t, ok)
}

func TestEngine_HitInstant_CacheEpsilon(t *testing.T) {
	engine := newEngine(10, wave.East)
	area := equatorArea(1000)
	user := geo.Position{Lat: 0, Lon: 0.004}

	first, ok := engine.HitInstant(area, user)
	require.True(t, ok)

	// ~0.3m move: cached instant returned unchanged.
	nudged := geo.Position{Lat: user.Lat + 0.000003, Lon: user.Lon}
	cached, ok := engine.HitInstant(area, nudged)
	require.True(t, ok)
	assert.Equal(t, first, cached)

	// ~20m move east: cache invalidated, hit instant shifts later.
	moved := geo.Position{Lat: user.Lat, Lon: user.Lon + 0.00018}
	recomputed, ok := engine.HitInstant(area, moved)
	require.True(t, ok)
	assert.True(t, recomputed.After(first))
}

func TestEngine_PositionRatio(t *testing.T) {
	engine := newEngine(10, wave.East)
	area := equatorArea(1000)
	box := area.BoundingBox()

	midLon := box.SouthWest.Lon + box.WidthDegrees()/2

	assert.InDelta(t, 0.5, engine.PositionRatio(box, geo.Position{Lat: 0, Lon: midLon}), 1e-6)
	assert.InDelta(t, 0, engine.PositionRatio(box, geo.Position{Lat: 0, Lon: box.SouthWest.Lon}), 1e-9)
	assert.InDelta(t, 1, engine.PositionRatio(box, geo.Position{Lat: 0, Lon: box.NorthEast.Lon}), 1e-9)

	// Negative offsets clamp to 0, past the far edge clamps to 1.
	assert.Equal(t, 0.0, engine.PositionRatio(box, geo.Position{Lat: 0, Lon: box.SouthWest.Lon - 1}))
	assert.Equal(t, 1.0, engine.PositionRatio(box, geo.Position{Lat: 0, Lon: box.NorthEast.Lon + 1}))

	// West direction measures from the east edge.
	westEngine := newEngine(10, wave.West)
	assert.InDelta(t, 1, westEngine.PositionRatio(box, geo.Position{Lat: 0, Lon: box.SouthWest.Lon}), 1e-9)
}

func TestEngine_Progress(t *testing.T) {
	engine := newEngine(10, wave.East)
	box := equatorArea(1000).BoundingBox()

	assert.Equal(t, 0.0, engine.Progress(box, t0.Add(-time.Second)))
	assert.Equal(t, 0.0, engine.Progress(box, t0))
	assert.InDelta(t, 0.5, engine.Progress(box, t0.Add(50*time.Second)), 0.001)
	assert.Equal(t, 1.0, engine.Progress(box, t0.Add(500*time.Second)))
}

func TestEngine_SplitAt_AreaConserved(t *testing.T) {
	engine := newEngine(10, wave.East)
	area := equatorArea(1000)
	box := area.BoundingBox()

	for _, elapsed := range []time.Duration{
		time.Second, 25 * time.Second, 50 * time.Second, 99 * time.Second, 150 * time.Second,
	} {
		split := engine.SplitAt(area, t0.Add(elapsed))
		require.NotNil(t, split, "elapsed %v", elapsed)

		full := areaDeg2(area.Rings, box.SouthWest.Lon)
		got := areaDeg2(split.Traversed, box.SouthWest.Lon) + areaDeg2(split.Remaining, box.SouthWest.Lon)
		assert.InDelta(t, full, got, full*1e-9, "elapsed %v", elapsed)
	}
}

// areaDeg2 sums shoelace areas with longitudes unwrapped against refLon.
func areaDeg2(rings []geo.Ring, refLon float64) float64 {
	var sum float64
	for _, r := range rings {
		if len(r) < 3 {
			continue
		}
		var s float64
		n := len(r)
		for i := 0; i < n; i++ {
			j := (i + 1) % n
			xi := geo.LonDelta(refLon, r[i].Lon)
			if xi < 0 {
				xi += 360
			}
			xj := geo.LonDelta(refLon, r[j].Lon)
			if xj < 0 {
				xj += 360
			}
			s += xi*r[j].Lat - xj*r[i].Lat
		}
		if s < 0 {
			s = -s
		}
		sum += s / 2
	}
	return sum
}
