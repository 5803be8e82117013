package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wavecast/wavecast/internal/api/models"
	"github.com/wavecast/wavecast/internal/api/response"
	"github.com/wavecast/wavecast/internal/event"
	"github.com/wavecast/wavecast/internal/observe"
)

// EventHandler handles wave event endpoints.
type EventHandler struct {
	events  *event.Service
	manager *observe.Manager
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(events *event.Service, manager *observe.Manager) *EventHandler {
	return &EventHandler{events: events, manager: manager}
}

// ListEvents handles GET /v1/events - list scheduled events.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	opts := event.ListOptions{Limit: 50}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 200 {
			response.BadRequest(w, r, "limit must be between 1 and 200", nil)
			return
		}
		opts.Limit = limit
	}
	if r.URL.Query().Get("includeCancelled") == "true" {
		opts.IncludeCancelled = true
	}
	if raw := r.URL.Query().Get("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.BadRequest(w, r, "from must be an RFC3339 timestamp", nil)
			return
		}
		opts.From = &from
	}

	result, err := h.events.List(r.Context(), opts)
	if err != nil {
		response.InternalError(w, r, "failed to list events")
		return
	}

	items := make([]models.EventResponse, 0, len(result.Items))
	for _, e := range result.Items {
		items = append(items, eventResponse(e))
	}

	meta := models.PagedResponseMeta{Limit: opts.Limit}
	if result.NextCursor != "" {
		meta.NextCursor = &result.NextCursor
	}

	response.JSON(w, r, http.StatusOK, models.EventListResponse{
		Items: items,
		Meta:  meta,
	})
}

// GetEvent handles GET /v1/events/{eventId}.
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")

	e, err := h.events.Get(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, event.ErrEventNotFound) {
			response.NotFound(w, r, "event not found")
			return
		}
		response.InternalError(w, r, "failed to get event")
		return
	}

	response.JSON(w, r, http.StatusOK, eventResponse(e))
}

// CreateEvent handles POST /v1/events.
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req models.CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		response.BadRequest(w, r, "invalid event", errs)
		return
	}

	e, err := h.events.Create(r.Context(), event.CreateInput{
		Slug:           req.Slug,
		Name:           req.Name,
		AreaURL:        req.AreaURL,
		Speed:          req.SpeedMetersPerSecond,
		Direction:      req.Direction,
		StartsAt:       req.StartsAt,
		ApproxDuration: time.Duration(req.ApproxDurationSeconds) * time.Second,
	})
	if err != nil {
		switch {
		case errors.Is(err, event.ErrSlugTaken):
			response.Conflict(w, r, "event slug already in use")
		case errors.Is(err, event.ErrInvalidEvent):
			response.BadRequest(w, r, "invalid event", nil)
		default:
			response.InternalError(w, r, "failed to create event")
		}
		return
	}

	response.Created(w, r, "/v1/events/"+e.ID, eventResponse(e))
}

// CancelEvent handles POST /v1/events/{eventId}/cancel. Cancelling an event
// also cancels every running observation pipeline for it.
func (h *EventHandler) CancelEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")

	if err := h.events.Cancel(r.Context(), eventID); err != nil {
		if errors.Is(err, event.ErrEventNotFound) {
			response.NotFound(w, r, "event not found")
			return
		}
		response.InternalError(w, r, "failed to cancel event")
		return
	}

	if h.manager != nil {
		h.manager.CancelEvent(eventID)
	}

	response.NoContent(w, r)
}

func eventResponse(e *event.Event) models.EventResponse {
	return models.EventResponse{
		ID:                    e.ID,
		Slug:                  e.Slug,
		Name:                  e.Name,
		AreaURL:               e.AreaURL,
		SpeedMetersPerSecond:  e.Speed,
		Direction:             string(e.Direction),
		StartsAt:              models.Timestamp(e.StartsAt),
		ApproxDurationSeconds: int64(e.ApproxDuration.Seconds()),
		Status:                string(e.Status),
		CreatedAt:             models.Timestamp(e.CreatedAt),
		UpdatedAt:             models.Timestamp(e.UpdatedAt),
	}
}
