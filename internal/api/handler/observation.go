package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/wavecast/wavecast/internal/api/models"
	"github.com/wavecast/wavecast/internal/api/response"
	"github.com/wavecast/wavecast/internal/area"
	"github.com/wavecast/wavecast/internal/clock"
	"github.com/wavecast/wavecast/internal/event"
	"github.com/wavecast/wavecast/internal/featureflags"
	"github.com/wavecast/wavecast/internal/geo"
	"github.com/wavecast/wavecast/internal/observe"
	"github.com/wavecast/wavecast/internal/position"
	"github.com/wavecast/wavecast/internal/wave"
)

// geometryLoadTimeout bounds the background area document fetch.
const geometryLoadTimeout = 30 * time.Second

// ObservationHandler handles observation pipeline endpoints. Each start
// assembles a full pipeline for the (event, device) pair: engine, tracker,
// scheduler, position source and coordinator.
type ObservationHandler struct {
	events     *event.Service
	areas      *area.Service
	manager    *observe.Manager
	dispatcher observe.Dispatcher
	flags      *featureflags.Service
	logger     zerolog.Logger
}

// ObservationHandlerConfig holds dependencies for the observation handler.
type ObservationHandlerConfig struct {
	Events     *event.Service
	Areas      *area.Service
	Manager    *observe.Manager
	Dispatcher observe.Dispatcher
	Flags      *featureflags.Service
	Logger     zerolog.Logger
}

// NewObservationHandler creates a new ObservationHandler.
func NewObservationHandler(cfg ObservationHandlerConfig) *ObservationHandler {
	return &ObservationHandler{
		events:     cfg.Events,
		areas:      cfg.Areas,
		manager:    cfg.Manager,
		dispatcher: cfg.Dispatcher,
		flags:      cfg.Flags,
		logger:     cfg.Logger,
	}
}

// StartObservation handles POST /v1/observations/{eventId}/start.
func (h *ObservationHandler) StartObservation(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	deviceID := GetDeviceID(r.Context())

	if h.flags != nil && h.flags.IsObservationAdmissionDisabled(r.Context()) {
		response.ServiceUnavailable(w, r, "observation admission is temporarily disabled")
		return
	}

	e, err := h.events.Get(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, event.ErrEventNotFound) {
			response.NotFound(w, r, "event not found")
			return
		}
		response.InternalError(w, r, "failed to get event")
		return
	}
	if e.Cancelled() {
		response.Conflict(w, r, "event has been cancelled")
		return
	}

	if h.flags != nil {
		if limit := h.flags.MaxObservationsPerEvent(r.Context()); limit > 0 && h.manager.CountForEvent(eventID) >= limit {
			response.ServiceUnavailable(w, r, "event observation capacity reached")
			return
		}
	}

	geometry := h.areas.Geometry(e.AreaURL)
	source := position.NewChannelSource()

	sysClock := clock.System{}
	tracker := observe.NewTracker(observe.TrackerConfig{
		Geometry: geometry,
		Logger:   h.logger,
	})
	scheduler := observe.NewScheduler(observe.SchedulerConfig{
		Clock:  sysClock,
		Logger: h.logger,
	})

	// The pipeline outlives the request; detach from its cancellation while
	// keeping request-scoped values for logging.
	_, err = h.manager.Start(context.WithoutCancel(r.Context()), observe.CoordinatorConfig{
		EventID:    eventID,
		DeviceID:   deviceID,
		Engine:     wave.NewEngine(e.WaveModel(), e.Timing()),
		Timing:     e.Timing(),
		Geometry:   geometry,
		Tracker:    tracker,
		Scheduler:  scheduler,
		Source:     source,
		Clock:      sysClock,
		Dispatcher: h.dispatcher,
		Logger:     h.logger,
	})
	if err != nil {
		source.Close()
		if errors.Is(err, observe.ErrObservationExists) {
			response.Conflict(w, r, "observation already running for this event")
			return
		}
		response.InternalError(w, r, "failed to start observation")
		return
	}

	// The pipeline degrades gracefully until the area document arrives, so
	// the fetch happens off the request path.
	go h.loadGeometry(geometry, eventID)

	response.JSON(w, r, http.StatusOK, models.ObservationStartedResponse{
		EventID: eventID,
		Started: true,
	})
}

// StopObservation handles POST /v1/observations/{eventId}/stop.
func (h *ObservationHandler) StopObservation(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	deviceID := GetDeviceID(r.Context())

	if err := h.manager.Stop(eventID, deviceID); err != nil {
		if errors.Is(err, observe.ErrObservationNotFound) {
			response.NotFound(w, r, "no running observation for this event")
			return
		}
		response.InternalError(w, r, "failed to stop observation")
		return
	}

	response.NoContent(w, r)
}

// GetState handles GET /v1/observations/{eventId}/state.
func (h *ObservationHandler) GetState(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	deviceID := GetDeviceID(r.Context())

	state, err := h.manager.State(eventID, deviceID)
	if err != nil {
		if errors.Is(err, observe.ErrObservationNotFound) {
			response.NotFound(w, r, "no running observation for this event")
			return
		}
		response.InternalError(w, r, "failed to get observation state")
		return
	}

	response.JSON(w, r, http.StatusOK, stateResponse(eventID, state))
}

// ForceRecheck handles POST /v1/observations/{eventId}/recheck - one
// out-of-band evaluation, bypassing the scheduler cadence.
func (h *ObservationHandler) ForceRecheck(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	deviceID := GetDeviceID(r.Context())

	state, err := h.manager.ForceRecheck(eventID, deviceID)
	if err != nil {
		if errors.Is(err, observe.ErrObservationNotFound) {
			response.NotFound(w, r, "no running observation for this event")
			return
		}
		response.InternalError(w, r, "failed to recheck observation")
		return
	}

	response.JSON(w, r, http.StatusOK, stateResponse(eventID, state))
}

// ReportPosition handles PUT /v1/observations/{eventId}/position. A null
// position reports loss of fix.
func (h *ObservationHandler) ReportPosition(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	deviceID := GetDeviceID(r.Context())

	var req models.PositionReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		response.BadRequest(w, r, "invalid position report", errs)
		return
	}

	var fix *geo.Position
	if req.Position != nil {
		fix = &geo.Position{Lat: req.Position.Lat, Lon: req.Position.Lon}
	}

	if err := h.manager.ReportPosition(eventID, deviceID, fix); err != nil {
		if errors.Is(err, observe.ErrObservationNotFound) {
			response.NotFound(w, r, "no running observation for this event")
			return
		}
		response.InternalError(w, r, "failed to report position")
		return
	}

	response.NoContent(w, r)
}

func (h *ObservationHandler) loadGeometry(geometry *area.Geometry, eventID string) {
	ctx, cancel := context.WithTimeout(context.Background(), geometryLoadTimeout)
	defer cancel()

	if err := geometry.Load(ctx); err != nil {
		h.logger.Warn().
			Err(err).
			Str("event_id", eventID).
			Msg("area geometry load failed; pipeline continues degraded")
	}
}

func stateResponse(eventID string, state observe.State) models.ObservationStateResponse {
	resp := models.ObservationStateResponse{
		EventID:       eventID,
		Status:        string(state.Status),
		Progression:   state.Progression,
		PositionRatio: state.PositionRatio,
		InArea:        state.InArea,
		HasBeenHit:    state.HasBeenHit,
	}
	if state.TimeBeforeHit != nil {
		ms := state.TimeBeforeHit.Milliseconds()
		resp.TimeBeforeHitMillis = &ms
	}
	if state.TimeBeforeStart != nil {
		ms := state.TimeBeforeStart.Milliseconds()
		resp.TimeBeforeStartMillis = &ms
	}
	return resp
}
