package observe

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/wavecast/wavecast/internal/geo"
	"github.com/wavecast/wavecast/internal/position"
)

// Sentinel errors for observation management.
var (
	// ErrObservationExists indicates a pipeline for the pair already runs.
	ErrObservationExists = errors.New("observation already running")
	// ErrObservationNotFound indicates no pipeline exists for the pair.
	ErrObservationNotFound = errors.New("observation not found")
)

// observationKey identifies one pipeline.
type observationKey struct {
	eventID  string
	deviceID string
}

// observation bundles a coordinator with its position source so both stop
// together.
type observation struct {
	coordinator *Coordinator
	source      position.Source
}

// ManagerConfig holds configuration for the observation manager.
type ManagerConfig struct {
	Logger zerolog.Logger
}

// Manager owns the observation pipelines: one coordinator per
// (event, device) pair, started and stopped as participants come and go.
// Pipelines share nothing but read-only inputs.
type Manager struct {
	logger zerolog.Logger

	mu           sync.Mutex
	observations map[observationKey]*observation
}

// NewManager creates an empty manager.
func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{
		logger:       cfg.Logger,
		observations: make(map[observationKey]*observation),
	}
}

// Start builds a coordinator from the config and starts its pipeline. The
// config's EventID and DeviceID key the observation.
func (m *Manager) Start(ctx context.Context, cfg CoordinatorConfig) (*Coordinator, error) {
	key := observationKey{eventID: cfg.EventID, deviceID: cfg.DeviceID}

	m.mu.Lock()
	if _, ok := m.observations[key]; ok {
		m.mu.Unlock()
		return nil, ErrObservationExists
	}
	coord := NewCoordinator(cfg)
	m.observations[key] = &observation{coordinator: coord, source: cfg.Source}
	m.mu.Unlock()

	if err := coord.Start(ctx); err != nil {
		m.mu.Lock()
		delete(m.observations, key)
		m.mu.Unlock()
		return nil, err
	}

	m.logger.Info().
		Str("event_id", cfg.EventID).
		Str("device_id", cfg.DeviceID).
		Msg("observation started")
	return coord, nil
}

// Stop cancels the pipeline for the pair and closes its position source.
func (m *Manager) Stop(eventID, deviceID string) error {
	obs, err := m.remove(eventID, deviceID)
	if err != nil {
		return err
	}

	obs.coordinator.Stop()
	if obs.source != nil {
		obs.source.Close()
	}

	m.logger.Info().
		Str("event_id", eventID).
		Str("device_id", deviceID).
		Msg("observation stopped")
	return nil
}

// StopAndWait stops the pipeline and blocks until its cancellation has fully
// propagated.
func (m *Manager) StopAndWait(ctx context.Context, eventID, deviceID string) error {
	obs, err := m.remove(eventID, deviceID)
	if err != nil {
		return err
	}

	err = obs.coordinator.StopAndWait(ctx)
	if obs.source != nil {
		obs.source.Close()
	}
	return err
}

// Restart switches the pipeline to a new position source: stop, wait for the
// in-flight tick to drain, reset to initial values, then start again. The
// wait-then-reset ordering prevents a late tick from re-applying stale data.
func (m *Manager) Restart(ctx context.Context, cfg CoordinatorConfig) (*Coordinator, error) {
	key := observationKey{eventID: cfg.EventID, deviceID: cfg.DeviceID}

	m.mu.Lock()
	obs, ok := m.observations[key]
	m.mu.Unlock()

	if ok {
		if err := obs.coordinator.StopAndWait(ctx); err != nil {
			return nil, err
		}
		if obs.source != nil {
			obs.source.Close()
		}
		if err := obs.coordinator.Reset(); err != nil {
			return nil, err
		}
		m.mu.Lock()
		delete(m.observations, key)
		m.mu.Unlock()
	}

	return m.Start(ctx, cfg)
}

// State returns the latest published state for the pair.
func (m *Manager) State(eventID, deviceID string) (State, error) {
	obs, err := m.get(eventID, deviceID)
	if err != nil {
		return State{}, err
	}
	return obs.coordinator.State(), nil
}

// ForceRecheck runs one out-of-band evaluation for the pair.
func (m *Manager) ForceRecheck(eventID, deviceID string) (State, error) {
	obs, err := m.get(eventID, deviceID)
	if err != nil {
		return State{}, err
	}
	return obs.coordinator.ForceRecheck(), nil
}

// ReportPosition feeds a fix into the pair's position source, when that
// source accepts reports. A nil fix reports signal loss.
func (m *Manager) ReportPosition(eventID, deviceID string, fix *geo.Position) error {
	obs, err := m.get(eventID, deviceID)
	if err != nil {
		return err
	}
	src, ok := obs.source.(*position.ChannelSource)
	if !ok {
		return ErrObservationNotFound
	}
	src.Report(fix)
	return nil
}

// CancelEvent marks every pipeline observing the event as cancelled.
func (m *Manager) CancelEvent(eventID string) int {
	m.mu.Lock()
	var cancelled []*observation
	for key, obs := range m.observations {
		if key.eventID == eventID {
			cancelled = append(cancelled, obs)
		}
	}
	m.mu.Unlock()

	for _, obs := range cancelled {
		obs.coordinator.Cancel()
	}
	return len(cancelled)
}

// StopAll winds down every pipeline, waiting up to the context deadline.
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.Lock()
	all := make([]*observation, 0, len(m.observations))
	for _, obs := range m.observations {
		all = append(all, obs)
	}
	m.observations = make(map[observationKey]*observation)
	m.mu.Unlock()

	for _, obs := range all {
		_ = obs.coordinator.StopAndWait(ctx)
		if obs.source != nil {
			obs.source.Close()
		}
	}
}

// Count returns the number of running pipelines.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.observations)
}

// CountForEvent returns the number of running pipelines observing the event.
func (m *Manager) CountForEvent(eventID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for key := range m.observations {
		if key.eventID == eventID {
			n++
		}
	}
	return n
}

// EventIDs returns the distinct event ids with at least one running pipeline.
func (m *Manager) EventIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]struct{})
	var ids []string
	for key := range m.observations {
		if _, ok := seen[key.eventID]; !ok {
			seen[key.eventID] = struct{}{}
			ids = append(ids, key.eventID)
		}
	}
	return ids
}

func (m *Manager) get(eventID, deviceID string) (*observation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obs, ok := m.observations[observationKey{eventID: eventID, deviceID: deviceID}]
	if !ok {
		return nil, ErrObservationNotFound
	}
	return obs, nil
}

func (m *Manager) remove(eventID, deviceID string) (*observation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := observationKey{eventID: eventID, deviceID: deviceID}
	obs, ok := m.observations[key]
	if !ok {
		return nil, ErrObservationNotFound
	}
	delete(m.observations, key)
	return obs, nil
}
