package models

// DeviceAuthRequest is the body for POST /v1/auth/device.
type DeviceAuthRequest struct {
	DeviceID   string  `json:"deviceId"`
	Platform   string  `json:"platform"`
	Model      *string `json:"model,omitempty"`
	OSVersion  *string `json:"osVersion,omitempty"`
	AppVersion *string `json:"appVersion,omitempty"`
}

// Validate checks the device auth request for required fields.
func (r *DeviceAuthRequest) Validate() []FieldError {
	var errs []FieldError
	if r.DeviceID == "" {
		errs = append(errs, FieldError{Field: "deviceId", Message: "required", Code: "REQUIRED"})
	}
	if r.Platform == "" {
		errs = append(errs, FieldError{Field: "platform", Message: "required", Code: "REQUIRED"})
	}
	return errs
}

// DeviceAuthResponse carries the issued access token.
type DeviceAuthResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int64  `json:"expiresIn"`
}
