// Package clock abstracts time for the observation pipeline so the scheduler
// and coordinator can be driven deterministically in tests.
package clock

import (
	"context"
	"time"
)

// Clock provides the current instant and a cancellable delay primitive.
type Clock interface {
	// Now returns the current instant.
	Now() time.Time

	// After returns a channel that receives the current instant once d has
	// elapsed.
	After(d time.Duration) <-chan time.Time

	// Sleep blocks for d or until ctx is cancelled, in which case it returns
	// ctx.Err() immediately.
	Sleep(ctx context.Context, d time.Duration) error
}

// System is the wall-clock implementation of Clock.
type System struct{}

// Now returns the wall-clock time.
func (System) Now() time.Time { return time.Now() }

// After defers to time.After.
func (System) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Sleep blocks for d, returning early with ctx.Err() on cancellation.
func (System) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ensure System implements Clock.
var _ Clock = System{}
