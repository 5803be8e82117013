// Package observe contains the observation pipeline for one event: the
// adaptive scheduler that decides evaluation cadence, the position tracker
// that maintains a debounced area-membership signal, and the coordinator
// that merges both with the wave geometry engine into one validated,
// throttled event state per evaluation.
package observe

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of an observed event.
type Status string

const (
	// StatusUpcoming is an event still far from its start.
	StatusUpcoming Status = "UPCOMING"
	// StatusWarming is an event inside the warm-up window before start.
	StatusWarming Status = "WARMING"
	// StatusActive is an event whose wave is currently sweeping.
	StatusActive Status = "ACTIVE"
	// StatusCompleted is a finished event. Terminal.
	StatusCompleted Status = "COMPLETED"
	// StatusCancelled is a called-off event. Terminal.
	StatusCancelled Status = "CANCELLED"
)

var legalTransitions = map[Status][]Status{
	StatusUpcoming:  {StatusWarming, StatusActive, StatusCancelled},
	StatusWarming:   {StatusActive, StatusCancelled},
	StatusActive:    {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

// Terminal reports whether the status has no outgoing transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo reports whether moving to next is legal. Staying on the
// same status is always legal.
func (s Status) CanTransitionTo(next Status) bool {
	if s == next {
		return true
	}
	for _, allowed := range legalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// State is one published evaluation result for an observed event.
type State struct {
	Status          Status
	Progression     float64
	PositionRatio   float64
	InArea          bool
	HasBeenHit      bool
	TimeBeforeHit   *time.Duration
	TimeBeforeStart *time.Duration
}

func initialState() State {
	return State{Status: StatusUpcoming}
}

// Diagnostic records an illegal transition or field regression detected
// during validation. Diagnostics are collected for inspection, never raised.
type Diagnostic struct {
	At     time.Time
	Field  string
	Detail string
}

// validate merges the computed state into the previous one, keeping the
// previous legal value wherever the computed result would be illegal, and
// reporting each rejected value as a diagnostic.
func validate(prev, next State, at time.Time) (State, []Diagnostic) {
	var diags []Diagnostic

	if !prev.Status.CanTransitionTo(next.Status) {
		diags = append(diags, Diagnostic{
			At:     at,
			Field:  "status",
			Detail: fmt.Sprintf("illegal transition %s -> %s", prev.Status, next.Status),
		})
		next.Status = prev.Status
	}

	if prev.HasBeenHit && !next.HasBeenHit {
		diags = append(diags, Diagnostic{
			At:     at,
			Field:  "hasBeenHit",
			Detail: "hit flag may not revert to false",
		})
		next.HasBeenHit = true
	}

	if next.Progression < prev.Progression {
		diags = append(diags, Diagnostic{
			At:     at,
			Field:  "progression",
			Detail: fmt.Sprintf("progression regressed %.4f -> %.4f", prev.Progression, next.Progression),
		})
		next.Progression = prev.Progression
	}

	return next, diags
}

// Publication thresholds. Boolean fields and area membership always
// republish; the numeric fields only when their change is significant enough
// to matter to consumers.
const (
	progressionDelta = 0.001 // 0.1%
	ratioDelta       = 0.01  // 1%

	// Near the hit instant timing precision matters, so the republish delta
	// tightens from a second to 50ms.
	hitTightWindow = 2 * time.Second
	hitTightDelta  = 50 * time.Millisecond
	hitLooseDelta  = time.Second
)

// applyThrottle folds the validated state into the last published one,
// carrying forward previously published values for fields whose change is
// below the significance threshold.
func applyThrottle(published, next State) State {
	out := next

	if delta := next.Progression - published.Progression; delta < progressionDelta && delta > -progressionDelta {
		out.Progression = published.Progression
	}
	if delta := next.PositionRatio - published.PositionRatio; delta < ratioDelta && delta > -ratioDelta {
		out.PositionRatio = published.PositionRatio
	}
	out.TimeBeforeHit = throttleDuration(published.TimeBeforeHit, next.TimeBeforeHit, hitThreshold(next.TimeBeforeHit))
	out.TimeBeforeStart = throttleDuration(published.TimeBeforeStart, next.TimeBeforeStart, hitLooseDelta)

	return out
}

func hitThreshold(d *time.Duration) time.Duration {
	if d != nil && *d < hitTightWindow {
		return hitTightDelta
	}
	return hitLooseDelta
}

// throttleDuration keeps the published duration unless the new value appears,
// disappears, or moves by more than the threshold.
func throttleDuration(published, next *time.Duration, threshold time.Duration) *time.Duration {
	if published == nil || next == nil {
		return next
	}
	delta := *next - *published
	if delta < 0 {
		delta = -delta
	}
	if delta <= threshold {
		return published
	}
	return next
}

// equalStates reports whether two states are identical from a consumer's
// point of view, duration pointers compared by value.
func equalStates(a, b State) bool {
	return a.Status == b.Status &&
		a.Progression == b.Progression &&
		a.PositionRatio == b.PositionRatio &&
		a.InArea == b.InArea &&
		a.HasBeenHit == b.HasBeenHit &&
		equalDurations(a.TimeBeforeHit, b.TimeBeforeHit) &&
		equalDurations(a.TimeBeforeStart, b.TimeBeforeStart)
}

func equalDurations(a, b *time.Duration) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
