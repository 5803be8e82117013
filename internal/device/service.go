package device

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// ServiceConfig holds configuration for the device service.
type ServiceConfig struct {
	Repository Repository
	Logger     zerolog.Logger
}

// Service provides device registry operations.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

// NewService creates a new device service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{repo: cfg.Repository, logger: cfg.Logger}
}

// RegisterInput describes a device registration.
type RegisterInput struct {
	DeviceID   string
	Platform   string
	Model      *string
	OSVersion  *string
	AppVersion *string
}

// Register registers or refreshes a device.
// Returns the device and whether it was newly created.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*Device, bool, error) {
	now := time.Now()

	device := &Device{
		ID:         input.DeviceID,
		Platform:   Platform(input.Platform),
		Model:      input.Model,
		OSVersion:  input.OSVersion,
		AppVersion: input.AppVersion,
		LastSeenAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	created, err := s.repo.Upsert(ctx, device)
	if err != nil {
		return nil, false, err
	}

	if created {
		s.logger.Info().
			Str("device_id", device.ID).
			Str("platform", string(device.Platform)).
			Msg("device registered")
	}
	return device, created, nil
}

// Get retrieves a device by ID.
func (s *Service) Get(ctx context.Context, id string) (*Device, error) {
	return s.repo.Get(ctx, id)
}

// Unregister removes a device registration.
func (s *Service) Unregister(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
