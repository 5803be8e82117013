package observe

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/wavecast/wavecast/internal/geo"
)

// AreaGeometry is the pipeline's view of the event-area geometry: the loaded
// flag gates containment tests until the polygons are actually available.
type AreaGeometry interface {
	// Loaded reports whether the area polygons are available.
	Loaded() bool
	// Area returns the polygon rings. Only meaningful once Loaded.
	Area() geo.Area
	// BoundingBox returns the area's bounding box, zero until Loaded.
	BoundingBox() geo.BoundingBox
}

// PositionUpdate is the tracker's debounced output: the latest fix (nil when
// there is none) and whether it falls inside the event area.
type PositionUpdate struct {
	Position *geo.Position
	InArea   bool
}

// TrackerConfig holds configuration for the position tracker.
type TrackerConfig struct {
	// Geometry supplies the area polygons and their readiness flag.
	Geometry AreaGeometry

	// Logger for membership changes.
	Logger zerolog.Logger

	// MinMovement is the distance in meters below which a position change is
	// not considered movement (default: 1).
	MinMovement float64
}

// Tracker maintains a debounced in/out-of-area signal from raw position
// updates, suppressing changes too small to matter.
type Tracker struct {
	geom    AreaGeometry
	logger  zerolog.Logger
	minMove float64

	mu     sync.Mutex
	last   PositionUpdate
	primed bool
}

// NewTracker creates a tracker with defaults applied.
func NewTracker(cfg TrackerConfig) *Tracker {
	minMove := cfg.MinMovement
	if minMove == 0 {
		minMove = 1
	}
	return &Tracker{
		geom:    cfg.Geometry,
		logger:  cfg.Logger,
		minMove: minMove,
	}
}

// Observe ingests a raw fix (nil when the fix is lost) and reports whether
// the resulting update is significant enough to re-emit. Re-emission happens
// when the membership boolean flips, when the fix appears or disappears, or
// when both old and new positions exist and differ by more than MinMovement.
func (t *Tracker) Observe(pos *geo.Position) (PositionUpdate, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := t.evaluate(pos)
	emit := t.significant(next)

	if emit && next.InArea != t.last.InArea {
		t.logger.Debug().
			Bool("in_area", next.InArea).
			Msg("area membership changed")
	}

	t.last = next
	t.primed = true
	return next, emit
}

// ForceRecheck re-evaluates membership with the last known fix and always
// emits. The polygons-loaded gate still applies: until the area is loaded
// the result is "not in area".
func (t *Tracker) ForceRecheck() PositionUpdate {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.last = t.evaluate(t.last.Position)
	t.primed = true
	return t.last
}

// Latest returns the most recent update without re-evaluating.
func (t *Tracker) Latest() PositionUpdate {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// Reset clears tracker state back to "no fix, not in area".
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = PositionUpdate{}
	t.primed = false
}

// evaluate computes the membership for a fix. Caller holds t.mu.
func (t *Tracker) evaluate(pos *geo.Position) PositionUpdate {
	next := PositionUpdate{}
	if pos != nil {
		p := *pos
		next.Position = &p
		if t.geom != nil && t.geom.Loaded() {
			next.InArea = t.geom.Area().Contains(p)
		}
	}
	return next
}

// significant applies the re-emission suppression rule. Caller holds t.mu.
func (t *Tracker) significant(next PositionUpdate) bool {
	if !t.primed {
		return true
	}
	if next.InArea != t.last.InArea {
		return true
	}
	// Fix gained or lost.
	if (next.Position == nil) != (t.last.Position == nil) {
		return true
	}
	if next.Position != nil && t.last.Position != nil {
		return t.last.Position.DistanceTo(*next.Position) > t.minMove
	}
	return false
}
