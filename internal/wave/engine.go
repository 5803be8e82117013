package wave

import (
	"sync"
	"time"

	"github.com/wavecast/wavecast/internal/geo"
)

// Engine computes the wavefront's effect on an area for one event. Each
// observation pipeline owns exactly one Engine; its caches are never shared
// across events.
//
// The wavefront is modelled as a meridian moving at constant ground speed.
// The angular speed is fixed at the bounding box's widest-traversal latitude
// so the front appears to move at uniform visual speed everywhere in the box.
type Engine struct {
	model  Model
	timing EventTiming

	mu sync.Mutex

	// split cache: cut offset and source rings the cached split was built for
	splitCut float64
	splitSrc []geo.Ring
	splitVal *Split

	// hit cache: invalidated only when the user moves beyond epsilon
	hitPos *geo.Position
	hitAt  time.Time
	hitIn  bool

	// duration cache keyed by the box it was computed for
	durBox geo.BoundingBox
	dur    time.Duration
	durSet bool
}

// NewEngine creates an engine for one event's wave model and timing.
func NewEngine(model Model, timing EventTiming) *Engine {
	return &Engine{model: model, timing: timing}
}

// Model returns the immutable wave model.
func (e *Engine) Model() Model { return e.model }

// ResetCaches drops every cached computation. Called on pipeline reset.
func (e *Engine) ResetCaches() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.splitVal = nil
	e.splitSrc = nil
	e.hitPos = nil
	e.durSet = false
}

// traversedDegrees returns how many degrees of longitude the front has
// covered after elapsed, using the box's widest-traversal latitude for the
// angular conversion.
func (e *Engine) traversedDegrees(box geo.BoundingBox, elapsed time.Duration) float64 {
	perDeg := geo.MetersPerDegreeLon(box.WidestTraversalLat())
	if perDeg <= 0 {
		return 0
	}
	return e.model.Speed * elapsed.Seconds() / perDeg
}

// SplitAt splits the area into traversed and remaining portions at the given
// instant. Returns nil when the wave is not yet visible (elapsed <= 0) or
// the area carries no geometry.
func (e *Engine) SplitAt(area geo.Area, at time.Time) *Split {
	elapsed := at.Sub(e.model.StartsAt)
	if elapsed <= 0 || area.Empty() {
		return nil
	}

	box := area.BoundingBox()
	width := box.WidthDegrees()
	if width <= 0 {
		return nil
	}

	// cut is the front's eastward offset from the box west edge.
	traversed := e.traversedDegrees(box, elapsed)
	var cut float64
	if e.model.Direction == East {
		cut = traversed
	} else {
		cut = width - traversed
	}
	if cut < 0 {
		cut = 0
	}
	if cut > width {
		cut = width
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.splitVal != nil && ringsIdentical(e.splitSrc, area.Rings) &&
		cut-e.splitCut < geo.EpsilonDegrees && e.splitCut-cut < geo.EpsilonDegrees {
		return e.splitVal
	}

	split := &Split{FrontLon: geo.NormalizeLon(box.SouthWest.Lon + cut)}
	for _, ring := range area.Rings {
		west, east := splitRing(ring, box.SouthWest.Lon, cut)
		if e.model.Direction == East {
			split.Traversed = appendRing(split.Traversed, west)
			split.Remaining = appendRing(split.Remaining, east)
		} else {
			split.Traversed = appendRing(split.Traversed, east)
			split.Remaining = appendRing(split.Remaining, west)
		}
	}

	e.splitCut = cut
	e.splitSrc = area.Rings
	e.splitVal = split
	return split
}

// ringsIdentical reports whether both slices are the same decoded rings.
// Rings are compared by identity, not value: a geometry refresh decodes new
// slices, so a refreshed area never matches the cache even when the ring
// count is unchanged.
func ringsIdentical(a, b []geo.Ring) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
		if len(a[i]) > 0 && &a[i][0] != &b[i][0] {
			return false
		}
	}
	return true
}

func appendRing(rings []geo.Ring, r geo.Ring) []geo.Ring {
	if r == nil {
		return rings
	}
	return append(rings, r)
}

// HitInstant returns the instant the wavefront reaches the user, and whether
// the user is inside the area at all. The result is cached and recomputed
// only when the user moves beyond epsilon from the cached position.
func (e *Engine) HitInstant(area geo.Area, user geo.Position) (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.hitPos != nil && !e.hitPos.MovedBeyond(user, geo.EpsilonDegrees) {
		return e.hitAt, e.hitIn
	}

	pos := user
	e.hitPos = &pos

	if !area.Contains(user) {
		e.hitAt = time.Time{}
		e.hitIn = false
		return e.hitAt, e.hitIn
	}

	box := area.BoundingBox()

	// Ground distance from the origin edge (the edge opposite the sweep
	// direction) to the user's longitude, at the user's latitude.
	var meters float64
	if e.model.Direction == East {
		meters = geo.EastWestDistance(user.Lat, box.SouthWest.Lon, user.Lon)
	} else {
		meters = geo.EastWestDistance(user.Lat, user.Lon, box.NorthEast.Lon)
	}
	if meters < 0 {
		meters = 0
	}

	e.hitAt = e.model.StartsAt.Add(time.Duration(meters / e.model.Speed * float64(time.Second)))
	e.hitIn = true
	return e.hitAt, e.hitIn
}

// TotalDuration returns the time the wavefront needs to cross the whole
// bounding box. A degenerate box (area not yet loaded) yields the event's
// approximate-duration fallback.
func (e *Engine) TotalDuration(box geo.BoundingBox) time.Duration {
	if box.IsZero() || box.WidthDegrees() <= 0 {
		return e.timing.ApproxDuration
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.durSet && box == e.durBox {
		return e.dur
	}

	e.durBox = box
	e.dur = time.Duration(box.WidthMeters() / e.model.Speed * float64(time.Second))
	e.durSet = true
	return e.dur
}

// PositionRatio returns the user's normalized [0,1] distance along the sweep
// direction from the wave's origin edge. Offsets behind the origin edge
// clamp to 0, offsets past the far edge clamp to 1.
func (e *Engine) PositionRatio(box geo.BoundingBox, user geo.Position) float64 {
	width := box.WidthDegrees()
	if box.IsZero() || width <= 0 {
		return 0
	}

	off := geo.LonDelta(box.SouthWest.Lon, user.Lon)

	var ratio float64
	if e.model.Direction == East {
		ratio = off / width
	} else {
		ratio = (width - off) / width
	}

	if ratio < 0 {
		return 0
	}
	if ratio > 1 {
		return 1
	}
	return ratio
}

// Progress returns the normalized [0,1] share of the wave's total duration
// elapsed at the given instant.
func (e *Engine) Progress(box geo.BoundingBox, at time.Time) float64 {
	total := e.TotalDuration(box)
	elapsed := at.Sub(e.model.StartsAt)
	if elapsed <= 0 {
		return 0
	}
	if total <= 0 || elapsed >= total {
		return 1
	}
	return float64(elapsed) / float64(total)
}
