package event

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository for tests
// and local development.
type InMemoryRepository struct {
	mu     sync.RWMutex
	events map[string]*Event
}

// NewInMemoryRepository creates a new in-memory event repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		events: make(map[string]*Event),
	}
}

// Get retrieves an event by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	event, ok := r.events[id]
	if !ok {
		return nil, ErrEventNotFound
	}
	copied := *event
	return &copied, nil
}

// GetBySlug retrieves an event by its slug.
func (r *InMemoryRepository) GetBySlug(_ context.Context, slug string) (*Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, event := range r.events {
		if event.Slug == slug {
			copied := *event
			return &copied, nil
		}
	}
	return nil, ErrEventNotFound
}

// List retrieves events, newest start first.
func (r *InMemoryRepository) List(_ context.Context, opts ListOptions) (*ListResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	var events []*Event
	for _, event := range r.events {
		if !opts.IncludeCancelled && event.Status == StatusCancelled {
			continue
		}
		if opts.From != nil && event.StartsAt.Add(event.ApproxDuration).Before(*opts.From) {
			continue
		}
		copied := *event
		events = append(events, &copied)
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].StartsAt.After(events[j].StartsAt)
	})

	result := &ListResult{Items: events}
	if len(events) > limit {
		result.Items = events[:limit]
		result.NextCursor = events[limit-1].ID
	}
	return result, nil
}

// Create creates a new event.
func (r *InMemoryRepository) Create(_ context.Context, event *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.events {
		if existing.Slug == event.Slug {
			return ErrSlugTaken
		}
	}

	copied := *event
	r.events[event.ID] = &copied
	return nil
}

// UpdateStatus transitions the event's stored lifecycle status.
func (r *InMemoryRepository) UpdateStatus(_ context.Context, id string, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[id]
	if !ok {
		return ErrEventNotFound
	}
	event.Status = status
	return nil
}

// Delete deletes an event.
func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.events[id]; !ok {
		return ErrEventNotFound
	}
	delete(r.events, id)
	return nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
