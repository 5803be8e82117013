package wave

import (
	"github.com/wavecast/wavecast/internal/geo"
)

// Split is the partition of an area into the portion the wavefront has
// already passed and the portion it has not yet reached. The union of the
// two sides always equals the full area.
type Split struct {
	// FrontLon is the current wavefront longitude, normalized.
	FrontLon float64

	// Traversed holds the rings (or ring fragments) behind the wavefront.
	Traversed []geo.Ring

	// Remaining holds the rings ahead of the wavefront.
	Remaining []geo.Ring
}

// ringOffsets maps every vertex longitude to its eastward offset in degrees
// from the reference longitude, wrap-aware so rings straddling the
// antimeridian come out contiguous.
func ringOffsets(ring geo.Ring, refLon float64) []float64 {
	offs := make([]float64, len(ring))
	for i, p := range ring {
		off := geo.LonDelta(refLon, p.Lon)
		if off < 0 {
			off += 360
		}
		offs[i] = off
	}
	return offs
}

// splitRing cuts a ring by the meridian at the given eastward offset from
// refLon, returning the part west of the cut and the part east of it.
//
// A ring whose vertices all lie on one side of the cut (vertices exactly on
// the cut included) is assigned whole to that side, so a cut falling on a
// vertex never produces a zero-area fragment.
func splitRing(ring geo.Ring, refLon, cut float64) (west, east geo.Ring) {
	if len(ring) < 3 {
		return nil, nil
	}

	offs := ringOffsets(ring, refLon)
	minOff, maxOff := offs[0], offs[0]
	for _, o := range offs[1:] {
		if o < minOff {
			minOff = o
		}
		if o > maxOff {
			maxOff = o
		}
	}

	if maxOff <= cut {
		return ring, nil
	}
	if minOff >= cut {
		return nil, ring
	}

	return clipRing(ring, offs, refLon, cut, true), clipRing(ring, offs, refLon, cut, false)
}

// clipRing keeps the part of the ring on one side of the cut meridian,
// inserting intersection vertices on the cut. Sutherland-Hodgman against a
// single vertical boundary.
func clipRing(ring geo.Ring, offs []float64, refLon, cut float64, keepWest bool) geo.Ring {
	inside := func(off float64) bool {
		if keepWest {
			return off <= cut
		}
		return off >= cut
	}

	cutLon := geo.NormalizeLon(refLon + cut)

	var out geo.Ring
	n := len(ring)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		curIn := inside(offs[i])
		nextIn := inside(offs[j])

		if curIn {
			out = append(out, ring[i])
		}
		if curIn != nextIn {
			t := (cut - offs[i]) / (offs[j] - offs[i])
			out = append(out, geo.Position{
				Lat: ring[i].Lat + t*(ring[j].Lat-ring[i].Lat),
				Lon: cutLon,
			})
		}
	}

	if len(out) < 3 {
		return nil
	}
	return out
}
