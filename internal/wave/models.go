// Package wave implements the wavefront geometry engine: splitting an area
// into traversed and remaining portions at a given elapsed time, and
// computing the exact instant the wavefront reaches a participant.
package wave

import (
	"errors"
	"time"
)

// Sentinel errors for wave model validation.
var (
	// ErrInvalidSpeed indicates a non-positive wave speed.
	ErrInvalidSpeed = errors.New("wave speed must be positive")
	// ErrInvalidDirection indicates an unknown sweep direction.
	ErrInvalidDirection = errors.New("invalid wave direction")
	// ErrMissingStart indicates the wave has no start instant.
	ErrMissingStart = errors.New("wave start instant is required")
)

// Direction is the compass direction the wavefront sweeps toward.
type Direction string

const (
	// East sweeps from the west edge of the area toward the east edge.
	East Direction = "EAST"
	// West sweeps from the east edge of the area toward the west edge.
	West Direction = "WEST"
)

// Valid reports whether the direction is one of the supported values.
func (d Direction) Valid() bool {
	return d == East || d == West
}

// Model describes one wave: ground speed, sweep direction and start instant.
// Models are immutable per event.
type Model struct {
	// Speed is the constant ground speed of the wavefront in meters per second.
	Speed float64

	// Direction is the sweep direction.
	Direction Direction

	// StartsAt is the instant the wavefront leaves its origin edge.
	StartsAt time.Time
}

// Validate checks the model for usable values.
func (m Model) Validate() error {
	if m.Speed <= 0 {
		return ErrInvalidSpeed
	}
	if !m.Direction.Valid() {
		return ErrInvalidDirection
	}
	if m.StartsAt.IsZero() {
		return ErrMissingStart
	}
	return nil
}

// EventTiming carries the event start and an approximate duration used as a
// fallback when the area geometry is not yet available.
type EventTiming struct {
	StartsAt       time.Time
	ApproxDuration time.Duration
}
