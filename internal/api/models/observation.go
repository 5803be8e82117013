package models

// ObservationStateResponse is the current pipeline state for one observed
// event, as seen by the requesting device.
type ObservationStateResponse struct {
	EventID               string  `json:"eventId"`
	Status                string  `json:"status"`
	Progression           float64 `json:"progression"`
	PositionRatio         float64 `json:"positionRatio"`
	InArea                bool    `json:"inArea"`
	HasBeenHit            bool    `json:"hasBeenHit"`
	TimeBeforeHitMillis   *int64  `json:"timeBeforeHitMillis,omitempty"`
	TimeBeforeStartMillis *int64  `json:"timeBeforeStartMillis,omitempty"`
}

// ObservationStartedResponse acknowledges a started observation pipeline.
type ObservationStartedResponse struct {
	EventID string `json:"eventId"`
	Started bool   `json:"started"`
}

// PositionReportRequest is the body for PUT /v1/observations/{eventId}/position.
// A null position signals loss of fix.
type PositionReportRequest struct {
	Position *Point `json:"position"`
}

// Validate checks the position report for coordinate ranges. A nil position
// is valid and means signal loss.
func (r *PositionReportRequest) Validate() []FieldError {
	if r.Position == nil {
		return nil
	}
	var errs []FieldError
	if r.Position.Lat < -90 || r.Position.Lat > 90 {
		errs = append(errs, FieldError{Field: "position.lat", Message: "must be between -90 and 90", Code: "OUT_OF_RANGE"})
	}
	if r.Position.Lon < -180 || r.Position.Lon > 180 {
		errs = append(errs, FieldError{Field: "position.lon", Message: "must be between -180 and 180", Code: "OUT_OF_RANGE"})
	}
	return errs
}
