package event

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wavecast/wavecast/internal/wave"
)

// waveDirection maps a wire value onto a wave direction. Unknown values pass
// through and fail validation.
func waveDirection(s string) wave.Direction {
	return wave.Direction(strings.ToUpper(strings.TrimSpace(s)))
}

// ServiceConfig holds configuration for the event service.
type ServiceConfig struct {
	Repository Repository
	Logger     zerolog.Logger

	// CacheTTL is how long read results stay cached. Default: 30 seconds.
	CacheTTL time.Duration
}

// Service provides event operations with short-lived read caching. Events
// change rarely but are read on every observation admission, so reads are
// served from cache between invalidations.
type Service struct {
	repo     Repository
	logger   zerolog.Logger
	cacheTTL time.Duration

	mu          sync.RWMutex
	cache       map[string]*Event
	cacheExpiry time.Time
}

// NewService creates a new event service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 30 * time.Second
	}

	return &Service{
		repo:     cfg.Repository,
		logger:   cfg.Logger,
		cacheTTL: cacheTTL,
		cache:    make(map[string]*Event),
	}
}

// CreateInput describes a new event.
type CreateInput struct {
	Slug           string
	Name           string
	AreaURL        string
	Speed          float64
	Direction      string
	StartsAt       time.Time
	ApproxDuration time.Duration
}

// Create validates and stores a new event.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Event, error) {
	now := time.Now()

	event := &Event{
		ID:             uuid.NewString(),
		Slug:           strings.ToLower(strings.TrimSpace(input.Slug)),
		Name:           strings.TrimSpace(input.Name),
		AreaURL:        input.AreaURL,
		Speed:          input.Speed,
		Direction:      waveDirection(input.Direction),
		StartsAt:       input.StartsAt.UTC(),
		ApproxDuration: input.ApproxDuration,
		Status:         StatusScheduled,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := event.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return nil, err
	}

	s.invalidate()
	s.logger.Info().
		Str("event_id", event.ID).
		Str("slug", event.Slug).
		Time("starts_at", event.StartsAt).
		Msg("event created")
	return event, nil
}

// Get retrieves an event by ID, served from cache when fresh.
func (s *Service) Get(ctx context.Context, id string) (*Event, error) {
	if event := s.getCached(id); event != nil {
		return event, nil
	}

	event, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.setCached(event)
	return event, nil
}

// GetBySlug retrieves an event by slug. Slug lookups skip the cache; they are
// rare compared to ID lookups from running pipelines.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*Event, error) {
	return s.repo.GetBySlug(ctx, strings.ToLower(slug))
}

// List retrieves events.
func (s *Service) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	return s.repo.List(ctx, opts)
}

// Cancel marks the event cancelled.
func (s *Service) Cancel(ctx context.Context, id string) error {
	if err := s.repo.UpdateStatus(ctx, id, StatusCancelled); err != nil {
		return err
	}

	s.invalidate()
	s.logger.Info().Str("event_id", id).Msg("event cancelled")
	return nil
}

// InvalidateCache clears the in-memory event cache, forcing repository reads
// on the next lookup. Used when another instance changed the store.
func (s *Service) InvalidateCache() {
	s.invalidate()
}

func (s *Service) getCached(id string) *Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if time.Now().After(s.cacheExpiry) {
		return nil
	}
	event, ok := s.cache[id]
	if !ok {
		return nil
	}
	copied := *event
	return &copied
}

func (s *Service) setCached(event *Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *event
	s.cache[event.ID] = &copied
	if s.cacheExpiry.Before(time.Now()) {
		s.cacheExpiry = time.Now().Add(s.cacheTTL)
	}
}

func (s *Service) invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*Event)
	s.cacheExpiry = time.Time{}
}
