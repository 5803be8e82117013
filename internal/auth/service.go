package auth

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/wavecast/wavecast/internal/device"
)

// ServiceConfig holds configuration for the auth service.
type ServiceConfig struct {
	JWT     *JWTService
	Devices *device.Service
	Logger  zerolog.Logger
}

// Service provides device authentication: register the device, hand back a
// bearer token for the rest of the API.
type Service struct {
	jwt     *JWTService
	devices *device.Service
	logger  zerolog.Logger
}

// NewService creates a new auth service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		jwt:     cfg.JWT,
		devices: cfg.Devices,
		logger:  cfg.Logger,
	}
}

// Authenticate registers the device and issues an access token.
func (s *Service) Authenticate(ctx context.Context, req *DeviceTokenRequest) (*TokenResponse, error) {
	_, _, err := s.devices.Register(ctx, device.RegisterInput{
		DeviceID:   req.DeviceID,
		Platform:   req.Platform,
		Model:      req.Model,
		OSVersion:  req.OSVersion,
		AppVersion: req.AppVersion,
	})
	if err != nil {
		return nil, err
	}

	token, _, err := s.jwt.GenerateDeviceToken(req.DeviceID)
	if err != nil {
		return nil, err
	}

	return &TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(AccessTokenExpiry.Seconds()),
	}, nil
}

// ValidateAccessToken validates a bearer token and returns the device ID.
func (s *Service) ValidateAccessToken(token string) (string, error) {
	claims, err := s.jwt.ValidateDeviceToken(token)
	if err != nil {
		return "", err
	}
	return claims.DeviceID, nil
}
