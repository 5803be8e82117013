package clock

import (
	"context"
	"sync"
	"time"
)

// Fake is a manually advanced Clock for deterministic tests. Time only moves
// when Advance or Set is called; sleepers blocked on After or Sleep are
// released when the fake time passes their deadline.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	waiters []*fakeWaiter
}

type fakeWaiter struct {
	at time.Time
	ch chan time.Time
}

// NewFake creates a Fake clock starting at the given instant.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the current fake instant.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// After returns a channel that fires once the fake time has advanced past d
// from now. A non-positive d fires immediately.
func (f *Fake) After(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- f.now
		return ch
	}
	f.waiters = append(f.waiters, &fakeWaiter{at: f.now.Add(d), ch: ch})
	return ch
}

// Sleep blocks until the fake time advances past d or ctx is cancelled.
func (f *Fake) Sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-f.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Advance moves the fake time forward by d and releases every waiter whose
// deadline has passed.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.release()
	f.mu.Unlock()
}

// Set jumps the fake time to the given instant.
func (f *Fake) Set(at time.Time) {
	f.mu.Lock()
	f.now = at
	f.release()
	f.mu.Unlock()
}

// Sleepers returns the number of waiters currently blocked. Tests use this to
// wait for a goroutine to reach its sleep before advancing time.
func (f *Fake) Sleepers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.waiters)
}

// BlockUntilSleepers polls until at least n waiters are blocked or the
// context is cancelled.
func (f *Fake) BlockUntilSleepers(ctx context.Context, n int) error {
	for {
		if f.Sleepers() >= n {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
}

// release fires expired waiters. Caller holds f.mu.
func (f *Fake) release() {
	remaining := f.waiters[:0]
	for _, w := range f.waiters {
		if !w.at.After(f.now) {
			w.ch <- f.now
		} else {
			remaining = append(remaining, w)
		}
	}
	f.waiters = remaining
}

// Ensure Fake implements Clock.
var _ Clock = (*Fake)(nil)
