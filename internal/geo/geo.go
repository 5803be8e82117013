// Package geo provides the geographic primitives shared by the wave engine
// and the observation pipeline: positions, bounding boxes, polygon rings and
// the distance math they need.
package geo

import "math"

const (
	// EarthRadiusMeters is the mean Earth radius used by all distance math.
	EarthRadiusMeters = 6371000.0

	// EpsilonDegrees is the smallest coordinate change treated as actual
	// movement (roughly one meter). Changes below this threshold do not
	// invalidate cached geometry and do not count as movement for the
	// position tracker.
	EpsilonDegrees = 0.000009
)

// Position is an immutable geographic point in degrees.
type Position struct {
	Lat float64
	Lon float64
}

// NewPosition returns a Position with the longitude normalized into [-180, 180).
func NewPosition(lat, lon float64) Position {
	return Position{Lat: lat, Lon: NormalizeLon(lon)}
}

// DistanceTo returns the haversine ground distance to other in meters.
func (p Position) DistanceTo(other Position) float64 {
	lat1 := p.Lat * math.Pi / 180
	lat2 := other.Lat * math.Pi / 180
	dLat := (other.Lat - p.Lat) * math.Pi / 180
	dLon := LonDelta(p.Lon, other.Lon) * math.Pi / 180

	sinDLat := math.Sin(dLat / 2)
	sinDLon := math.Sin(dLon / 2)

	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLon*sinDLon
	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}

// MovedBeyond reports whether other differs from p by more than epsilon
// degrees in latitude or longitude. The longitude comparison is wrap-aware.
func (p Position) MovedBeyond(other Position, epsilon float64) bool {
	return math.Abs(p.Lat-other.Lat) > epsilon ||
		math.Abs(LonDelta(p.Lon, other.Lon)) > epsilon
}

// NormalizeLon maps a longitude into [-180, 180).
func NormalizeLon(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

// LonDelta returns the signed smallest angular difference in degrees going
// from one longitude to another, in (-180, 180]. Positive means eastward.
// This is the wrap-aware comparison used everywhere the antimeridian matters.
func LonDelta(from, to float64) float64 {
	d := math.Mod(to-from, 360)
	if d > 180 {
		d -= 360
	} else if d <= -180 {
		d += 360
	}
	return d
}

// MetersPerDegreeLon returns the ground length in meters of one degree of
// longitude at the given latitude.
func MetersPerDegreeLon(lat float64) float64 {
	return EarthRadiusMeters * math.Cos(lat*math.Pi/180) * math.Pi / 180
}

// EastWestDistance returns the signed ground distance in meters along the
// parallel at lat, measured eastward from one longitude to the other.
func EastWestDistance(lat, fromLon, toLon float64) float64 {
	return LonDelta(fromLon, toLon) * MetersPerDegreeLon(lat)
}

// BoundingBox is a southwest/northeast pair. A box whose northeast longitude
// is west of its southwest longitude wraps across the antimeridian.
type BoundingBox struct {
	SouthWest Position
	NorthEast Position
}

// IsZero reports whether the box carries no geometry.
func (b BoundingBox) IsZero() bool {
	return b.SouthWest == (Position{}) && b.NorthEast == (Position{})
}

// WidthDegrees returns the east-west extent of the box in degrees, wrap-aware.
func (b BoundingBox) WidthDegrees() float64 {
	d := LonDelta(b.SouthWest.Lon, b.NorthEast.Lon)
	if d < 0 {
		d += 360
	}
	return d
}

// WidestTraversalLat returns the box latitude closest to the equator, where
// the angular-to-linear longitude conversion is largest. A wavefront crossing
// the box at constant ground speed covers it slowest at this latitude.
func (b BoundingBox) WidestTraversalLat() float64 {
	if b.SouthWest.Lat <= 0 && b.NorthEast.Lat >= 0 {
		return 0
	}
	if math.Abs(b.SouthWest.Lat) < math.Abs(b.NorthEast.Lat) {
		return b.SouthWest.Lat
	}
	return b.NorthEast.Lat
}

// WidthMeters returns the east-west ground distance across the box at its
// widest-traversal latitude.
func (b BoundingBox) WidthMeters() float64 {
	return b.WidthDegrees() * MetersPerDegreeLon(b.WidestTraversalLat())
}

// Contains reports whether the position lies inside the box, wrap-aware in
// longitude.
func (b BoundingBox) Contains(p Position) bool {
	if p.Lat < b.SouthWest.Lat || p.Lat > b.NorthEast.Lat {
		return false
	}
	off := LonDelta(b.SouthWest.Lon, p.Lon)
	if off < 0 {
		off += 360
	}
	return off <= b.WidthDegrees()
}

// Extend grows the box to include the position. Extending a zero box yields a
// degenerate box at the position.
func (b BoundingBox) Extend(p Position) BoundingBox {
	if b.IsZero() {
		return BoundingBox{SouthWest: p, NorthEast: p}
	}
	if p.Lat < b.SouthWest.Lat {
		b.SouthWest.Lat = p.Lat
	}
	if p.Lat > b.NorthEast.Lat {
		b.NorthEast.Lat = p.Lat
	}
	// Longitude extension picks the smaller resulting width so boxes built
	// from antimeridian-straddling rings stay tight.
	if off := LonDelta(b.SouthWest.Lon, p.Lon); off < 0 {
		b.SouthWest.Lon = p.Lon
	} else if off > b.WidthDegrees() {
		b.NorthEast.Lon = p.Lon
	}
	return b
}
