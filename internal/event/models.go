// Package event provides wave event management and persistence.
package event

import (
	"errors"
	"time"

	"github.com/wavecast/wavecast/internal/wave"
)

// Repository errors.
var (
	ErrEventNotFound = errors.New("event not found")
	ErrSlugTaken     = errors.New("event slug already in use")
	ErrInvalidEvent  = errors.New("invalid event")
)

// Status represents the lifecycle of an event in the store. Per-participant
// observation statuses are derived at runtime and never persisted here.
type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusCancelled Status = "CANCELLED"
)

// Event represents a scheduled wave event.
type Event struct {
	ID             string
	Slug           string
	Name           string
	AreaURL        string
	Speed          float64
	Direction      wave.Direction
	StartsAt       time.Time
	ApproxDuration time.Duration
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// WaveModel returns the wave parameters of the event.
func (e *Event) WaveModel() wave.Model {
	return wave.Model{
		Speed:     e.Speed,
		Direction: e.Direction,
		StartsAt:  e.StartsAt,
	}
}

// Timing returns the event timing used for duration fallbacks.
func (e *Event) Timing() wave.EventTiming {
	return wave.EventTiming{
		StartsAt:       e.StartsAt,
		ApproxDuration: e.ApproxDuration,
	}
}

// Cancelled reports whether the event has been called off.
func (e *Event) Cancelled() bool {
	return e.Status == StatusCancelled
}

// Validate checks the event fields.
func (e *Event) Validate() error {
	if e.Name == "" || e.Slug == "" {
		return ErrInvalidEvent
	}
	if e.AreaURL == "" {
		return ErrInvalidEvent
	}
	if e.StartsAt.IsZero() {
		return ErrInvalidEvent
	}
	return e.WaveModel().Validate()
}

// ListOptions contains options for listing events.
type ListOptions struct {
	Limit int

	// IncludeCancelled also returns cancelled events.
	IncludeCancelled bool

	// From filters out events that ended before this instant, when set.
	From *time.Time
}

// ListResult contains the result of listing events.
type ListResult struct {
	Items      []*Event
	NextCursor string
}
