package geo

// Ring is an ordered, implicitly closed polygon ring. Rings are assumed valid
// on input: closed and non-self-intersecting.
type Ring []Position

// BoundingBox returns the tight bounding box of the ring.
func (r Ring) BoundingBox() BoundingBox {
	var box BoundingBox
	for _, p := range r {
		box = box.Extend(p)
	}
	return box
}

// Contains reports whether the point lies inside the ring using even-odd ray
// casting. Longitudes are unwrapped relative to the ring's first vertex so
// rings straddling the antimeridian test correctly.
func (r Ring) Contains(p Position) bool {
	if len(r) < 3 {
		return false
	}

	ref := r[0].Lon
	px := LonDelta(ref, p.Lon)
	py := p.Lat

	inside := false
	j := len(r) - 1
	for i := 0; i < len(r); i++ {
		xi := LonDelta(ref, r[i].Lon)
		yi := r[i].Lat
		xj := LonDelta(ref, r[j].Lon)
		yj := r[j].Lat

		if (yi > py) != (yj > py) &&
			px < (xj-xi)*(py-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}
	return inside
}

// Area is an ordered set of rings, possibly disjoint for multi-part areas.
type Area struct {
	Rings []Ring
}

// Empty reports whether the area holds no usable geometry.
func (a Area) Empty() bool {
	for _, r := range a.Rings {
		if len(r) >= 3 {
			return false
		}
	}
	return true
}

// Contains reports whether the point lies inside any ring of the area. This
// is a full point-in-polygon test, never a bounding-box shortcut.
func (a Area) Contains(p Position) bool {
	for _, r := range a.Rings {
		if r.Contains(p) {
			return true
		}
	}
	return false
}

// BoundingBox returns the bounding box covering every ring of the area.
func (a Area) BoundingBox() BoundingBox {
	var box BoundingBox
	for _, r := range a.Rings {
		for _, p := range r {
			box = box.Extend(p)
		}
	}
	return box
}
