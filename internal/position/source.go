// Package position abstracts the stream of participant position fixes the
// observation pipeline consumes.
package position

import (
	"context"
	"errors"
	"sync"

	"github.com/wavecast/wavecast/internal/geo"
)

// ErrNoFix indicates no current position is available.
var ErrNoFix = errors.New("no position fix available")

// Source delivers position updates. A nil update means the fix was lost.
type Source interface {
	// Updates returns the stream of fixes. The channel closes when the
	// source is closed.
	Updates() <-chan *geo.Position

	// Current returns the latest known fix on demand.
	Current(ctx context.Context) (*geo.Position, error)

	// Close releases the source. Updates channels close afterwards.
	Close()
}

// ChannelSource is a Source fed by explicit Report calls, typically from
// device position reports arriving over the API. Consumers always see the
// latest value; intermediate fixes a slow consumer missed are dropped, never
// queued.
type ChannelSource struct {
	mu      sync.Mutex
	updates chan *geo.Position
	latest  *geo.Position
	hasFix  bool
	closed  bool
}

// NewChannelSource creates an open ChannelSource.
func NewChannelSource() *ChannelSource {
	return &ChannelSource{
		updates: make(chan *geo.Position, 1),
	}
}

// Report feeds a fix into the source. A nil fix reports signal loss.
func (s *ChannelSource) Report(pos *geo.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.latest = pos
	s.hasFix = pos != nil

	// Latest-wins: drop the undelivered previous value if the consumer has
	// not picked it up yet.
	select {
	case <-s.updates:
	default:
	}
	s.updates <- pos
}

// Updates returns the stream of fixes.
func (s *ChannelSource) Updates() <-chan *geo.Position {
	return s.updates
}

// Current returns the latest reported fix.
func (s *ChannelSource) Current(_ context.Context) (*geo.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasFix {
		return nil, ErrNoFix
	}
	return s.latest, nil
}

// Close closes the source and its update stream.
func (s *ChannelSource) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.updates)
}

// StaticSource is a Source pinned to one position. Used by simulations and
// tests.
type StaticSource struct {
	pos     geo.Position
	updates chan *geo.Position
	once    sync.Once
}

// NewStaticSource creates a source that reports the given position once and
// then stays silent.
func NewStaticSource(pos geo.Position) *StaticSource {
	s := &StaticSource{
		pos:     pos,
		updates: make(chan *geo.Position, 1),
	}
	p := pos
	s.updates <- &p
	return s
}

// Updates returns a stream carrying the single fix.
func (s *StaticSource) Updates() <-chan *geo.Position {
	return s.updates
}

// Current returns the pinned position.
func (s *StaticSource) Current(_ context.Context) (*geo.Position, error) {
	p := s.pos
	return &p, nil
}

// Close closes the update stream.
func (s *StaticSource) Close() {
	s.once.Do(func() { close(s.updates) })
}

// Ensure implementations satisfy Source.
var (
	_ Source = (*ChannelSource)(nil)
	_ Source = (*StaticSource)(nil)
)
