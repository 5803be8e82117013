package handler

import (
	"encoding/json"
	"net/http"

	"github.com/wavecast/wavecast/internal/api/models"
	"github.com/wavecast/wavecast/internal/api/response"
	"github.com/wavecast/wavecast/internal/auth"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	service *auth.Service
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(service *auth.Service) *AuthHandler {
	return &AuthHandler{service: service}
}

// DeviceAuth handles POST /v1/auth/device - anonymous device authentication.
// Registers the device and issues a bearer token. Re-authentication is
// identical to first authentication.
func (h *AuthHandler) DeviceAuth(w http.ResponseWriter, r *http.Request) {
	var req models.DeviceAuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		response.BadRequest(w, r, "invalid device auth request", errs)
		return
	}

	token, err := h.service.Authenticate(r.Context(), &auth.DeviceTokenRequest{
		DeviceID:   req.DeviceID,
		Platform:   req.Platform,
		Model:      req.Model,
		OSVersion:  req.OSVersion,
		AppVersion: req.AppVersion,
	})
	if err != nil {
		response.InternalError(w, r, "failed to authenticate device")
		return
	}

	response.JSON(w, r, http.StatusOK, models.DeviceAuthResponse{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresIn:   token.ExpiresIn,
	})
}
