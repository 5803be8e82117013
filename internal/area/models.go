// Package area fetches and caches the geographic areas wave events sweep
// across.
package area

import (
	"errors"
	"time"

	"github.com/wavecast/wavecast/internal/geo"
	"github.com/wavecast/wavecast/pkg/polyline"
)

// Area errors.
var (
	// ErrAreaUnavailable indicates the document could not be fetched and no
	// stale copy exists.
	ErrAreaUnavailable = errors.New("area document unavailable")

	// ErrMalformedDocument indicates the fetched document could not be
	// decoded into usable polygons.
	ErrMalformedDocument = errors.New("malformed area document")
)

// Document is the wire form of an area: a bounding box plus one or more
// polyline-encoded polygon rings. Rings may be disjoint (islands).
type Document struct {
	ID          string     `json:"id"`
	BoundingBox WireBox    `json:"boundingBox"`
	Rings       []string   `json:"rings"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// WireBox is the wire form of a bounding box.
type WireBox struct {
	SouthWest WirePoint `json:"southWest"`
	NorthEast WirePoint `json:"northEast"`
}

// WirePoint is the wire form of a coordinate.
type WirePoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Decoded holds a decoded area together with its bounding box.
type Decoded struct {
	Area        geo.Area
	BoundingBox geo.BoundingBox
}

// DecodeDocument decodes every ring of a document into polygons. A document
// with no decodable ring is malformed.
func DecodeDocument(doc *Document) (*Decoded, error) {
	if doc == nil || len(doc.Rings) == 0 {
		return nil, ErrMalformedDocument
	}

	rings := make([]geo.Ring, 0, len(doc.Rings))
	for _, encoded := range doc.Rings {
		coords := polyline.DecodeRing(encoded)
		if len(coords) < 3 {
			return nil, ErrMalformedDocument
		}
		ring := make(geo.Ring, 0, len(coords))
		for _, c := range coords {
			ring = append(ring, geo.Position{Lat: c.Lat, Lon: c.Lon})
		}
		rings = append(rings, ring)
	}

	area := geo.Area{Rings: rings}
	box := geo.BoundingBox{
		SouthWest: geo.Position{Lat: doc.BoundingBox.SouthWest.Lat, Lon: doc.BoundingBox.SouthWest.Lon},
		NorthEast: geo.Position{Lat: doc.BoundingBox.NorthEast.Lat, Lon: doc.BoundingBox.NorthEast.Lon},
	}
	if box.IsZero() {
		box = area.BoundingBox()
	}

	return &Decoded{Area: area, BoundingBox: box}, nil
}
