// Package auth provides device authentication for WaveCast.
package auth

// DeviceTokenRequest represents the request body for device authentication.
// Devices are anonymous; possession of the device ID is the only credential,
// which is enough for rate limiting and per-device observation state.
type DeviceTokenRequest struct {
	// DeviceID is the caller-generated stable device identifier (UUID).
	DeviceID string `json:"deviceId"`

	// Platform identifies the client platform (IOS, ANDROID, WEB).
	Platform string `json:"platform"`

	// Model is the optional device model for diagnostics.
	Model *string `json:"model,omitempty"`

	// OSVersion is the optional OS version for diagnostics.
	OSVersion *string `json:"osVersion,omitempty"`

	// AppVersion is the optional app version for diagnostics.
	AppVersion *string `json:"appVersion,omitempty"`
}

// Validate validates the device token request.
func (r *DeviceTokenRequest) Validate() []FieldError {
	var errors []FieldError

	if r.DeviceID == "" {
		errors = append(errors, FieldError{
			Field:   "deviceId",
			Message: "device id is required",
			Code:    "REQUIRED",
		})
	}
	if r.Platform == "" {
		errors = append(errors, FieldError{
			Field:   "platform",
			Message: "platform is required",
			Code:    "REQUIRED",
		})
	}

	return errors
}

// FieldError represents a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// TokenResponse represents the response after successful authentication.
type TokenResponse struct {
	// AccessToken is the JWT access token for API authentication.
	AccessToken string `json:"accessToken"`

	// TokenType is always "Bearer".
	TokenType string `json:"tokenType"`

	// ExpiresIn is the number of seconds until the access token expires.
	ExpiresIn int64 `json:"expiresIn"`
}
