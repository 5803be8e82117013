package geo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wavecast/wavecast/internal/geo"
)

func TestNormalizeLon(t *testing.T) {
	tests := []struct {
		name     string
		lon      float64
		expected float64
	}{
		{"already normalized", 4.9, 4.9},
		{"exactly 180 wraps", 180, -180},
		{"negative 180 stays", -180, -180},
		{"beyond 180", 190, -170},
		{"below -180", -190, 170},
		{"full wrap", 365, 5},
		{"zero", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, geo.NormalizeLon(tt.lon), 1e-9)
		})
	}
}

func TestLonDelta(t *testing.T) {
	tests := []struct {
		name     string
		from     float64
		to       float64
		expected float64
	}{
		{"simple eastward", 10, 20, 10},
		{"simple westward", 20, 10, -10},
		{"across antimeridian eastward", 175, -175, 10},
		{"across antimeridian westward", -175, 175, -10},
		{"half world", 0, 180, 180},
		{"same longitude", 42, 42, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, geo.LonDelta(tt.from, tt.to), 1e-9)
		})
	}
}

func TestPosition_DistanceTo(t *testing.T) {
	amsterdam := geo.Position{Lat: 52.370216, Lon: 4.895168}
	rotterdam := geo.Position{Lat: 51.9225, Lon: 4.47917}

	// Roughly 57 km between the two city centres.
	d := amsterdam.DistanceTo(rotterdam)
	assert.InDelta(t, 57000, d, 2000)

	// Distance to self is zero.
	assert.InDelta(t, 0, amsterdam.DistanceTo(amsterdam), 1e-6)
}

func TestPosition_MovedBeyond(t *testing.T) {
	p := geo.Position{Lat: 52.0, Lon: 4.0}

	// ~0.3 meter move stays within epsilon.
	assert.False(t, p.MovedBeyond(geo.Position{Lat: 52.000003, Lon: 4.0}, geo.EpsilonDegrees))

	// ~2 meter move breaches epsilon.
	assert.True(t, p.MovedBeyond(geo.Position{Lat: 52.000018, Lon: 4.0}, geo.EpsilonDegrees))

	// Longitude comparison is wrap-aware.
	a := geo.Position{Lat: 0, Lon: 179.999999}
	b := geo.Position{Lat: 0, Lon: -179.999999}
	assert.False(t, a.MovedBeyond(b, geo.EpsilonDegrees))
}

func TestBoundingBox_WidthMeters(t *testing.T) {
	// A box 1000m wide at the equator: 1000 / MetersPerDegreeLon(0) degrees.
	widthDeg := 1000 / geo.MetersPerDegreeLon(0)
	box := geo.BoundingBox{
		SouthWest: geo.Position{Lat: -0.001, Lon: 0},
		NorthEast: geo.Position{Lat: 0.001, Lon: widthDeg},
	}

	assert.InDelta(t, 1000, box.WidthMeters(), 0.001)
}

func TestBoundingBox_WidestTraversalLat(t *testing.T) {
	tests := []struct {
		name     string
		box      geo.BoundingBox
		expected float64
	}{
		{
			"northern hemisphere box",
			geo.BoundingBox{SouthWest: geo.Position{Lat: 50, Lon: 4}, NorthEast: geo.Position{Lat: 53, Lon: 6}},
			50,
		},
		{
			"southern hemisphere box",
			geo.BoundingBox{SouthWest: geo.Position{Lat: -40, Lon: 4}, NorthEast: geo.Position{Lat: -35, Lon: 6}},
			-35,
		},
		{
			"box spanning the equator",
			geo.BoundingBox{SouthWest: geo.Position{Lat: -10, Lon: 4}, NorthEast: geo.Position{Lat: 10, Lon: 6}},
			0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.box.WidestTraversalLat())
		})
	}
}

func TestBoundingBox_Contains_AcrossAntimeridian(t *testing.T) {
	box := geo.BoundingBox{
		SouthWest: geo.Position{Lat: -5, Lon: 175},
		NorthEast: geo.Position{Lat: 5, Lon: -175},
	}

	assert.True(t, box.Contains(geo.Position{Lat: 0, Lon: 179}))
	assert.True(t, box.Contains(geo.Position{Lat: 0, Lon: -179}))
	assert.False(t, box.Contains(geo.Position{Lat: 0, Lon: 0}))
	assert.False(t, box.Contains(geo.Position{Lat: 10, Lon: 179}))
}

func TestBoundingBox_Extend(t *testing.T) {
	var box geo.BoundingBox
	box = box.Extend(geo.Position{Lat: 52, Lon: 4})
	box = box.Extend(geo.Position{Lat: 53, Lon: 5})
	box = box.Extend(geo.Position{Lat: 51, Lon: 3})

	assert.Equal(t, geo.Position{Lat: 51, Lon: 3}, box.SouthWest)
	assert.Equal(t, geo.Position{Lat: 53, Lon: 5}, box.NorthEast)
}
