package models

import (
	"strings"
	"time"
)

// EventResponse is the public representation of a wave event.
type EventResponse struct {
	ID                    string    `json:"id"`
	Slug                  string    `json:"slug"`
	Name                  string    `json:"name"`
	AreaURL               string    `json:"areaUrl"`
	SpeedMetersPerSecond  float64   `json:"speedMetersPerSecond"`
	Direction             string    `json:"direction"`
	StartsAt              Timestamp `json:"startsAt"`
	ApproxDurationSeconds int64     `json:"approxDurationSeconds,omitempty"`
	Status                string    `json:"status"`
	CreatedAt             Timestamp `json:"createdAt"`
	UpdatedAt             Timestamp `json:"updatedAt"`
}

// EventListResponse is a paginated list of events.
type EventListResponse struct {
	Items []EventResponse   `json:"items"`
	Meta  PagedResponseMeta `json:"meta"`
}

// CreateEventRequest is the body for POST /v1/events.
type CreateEventRequest struct {
	Slug                  string    `json:"slug"`
	Name                  string    `json:"name"`
	AreaURL               string    `json:"areaUrl"`
	SpeedMetersPerSecond  float64   `json:"speedMetersPerSecond"`
	Direction             string    `json:"direction"`
	StartsAt              time.Time `json:"startsAt"`
	ApproxDurationSeconds int64     `json:"approxDurationSeconds,omitempty"`
}

// Validate checks the create event request for required fields and ranges.
func (r *CreateEventRequest) Validate() []FieldError {
	var errs []FieldError
	if strings.TrimSpace(r.Slug) == "" {
		errs = append(errs, FieldError{Field: "slug", Message: "required", Code: "REQUIRED"})
	}
	if strings.TrimSpace(r.Name) == "" {
		errs = append(errs, FieldError{Field: "name", Message: "required", Code: "REQUIRED"})
	}
	if strings.TrimSpace(r.AreaURL) == "" {
		errs = append(errs, FieldError{Field: "areaUrl", Message: "required", Code: "REQUIRED"})
	}
	if r.SpeedMetersPerSecond <= 0 {
		errs = append(errs, FieldError{Field: "speedMetersPerSecond", Message: "must be greater than zero", Code: "OUT_OF_RANGE"})
	}
	switch strings.ToUpper(strings.TrimSpace(r.Direction)) {
	case "EAST", "WEST":
	default:
		errs = append(errs, FieldError{Field: "direction", Message: "must be EAST or WEST", Code: "INVALID_VALUE"})
	}
	if r.StartsAt.IsZero() {
		errs = append(errs, FieldError{Field: "startsAt", Message: "required", Code: "REQUIRED"})
	}
	if r.ApproxDurationSeconds < 0 {
		errs = append(errs, FieldError{Field: "approxDurationSeconds", Message: "must not be negative", Code: "OUT_OF_RANGE"})
	}
	return errs
}
