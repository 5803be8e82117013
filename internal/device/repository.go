package device

import "context"

// Repository defines the interface for device persistence.
type Repository interface {
	// Get retrieves a device by ID.
	Get(ctx context.Context, id string) (*Device, error)

	// List retrieves registered devices, most recently seen first.
	List(ctx context.Context, opts ListOptions) (*ListResult, error)

	// Upsert creates or refreshes a device registration.
	// Returns true if a new device was created, false if refreshed.
	Upsert(ctx context.Context, device *Device) (created bool, err error)

	// Delete deletes a device.
	Delete(ctx context.Context, id string) error
}
