package event

import "context"

// Repository defines the interface for event persistence.
type Repository interface {
	// Get retrieves an event by ID.
	Get(ctx context.Context, id string) (*Event, error)

	// GetBySlug retrieves an event by its slug.
	GetBySlug(ctx context.Context, slug string) (*Event, error)

	// List retrieves events, newest start first.
	List(ctx context.Context, opts ListOptions) (*ListResult, error)

	// Create creates a new event.
	Create(ctx context.Context, event *Event) error

	// UpdateStatus transitions the event's stored lifecycle status.
	UpdateStatus(ctx context.Context, id string, status Status) error

	// Delete deletes an event.
	Delete(ctx context.Context, id string) error
}
