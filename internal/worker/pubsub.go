package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/wavecast/wavecast/internal/area"
	"github.com/wavecast/wavecast/internal/event"
	"github.com/wavecast/wavecast/internal/observe"
)

// PubSubHandler processes event control messages so every instance converges
// on the same view of the event store.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	events           *event.Service
	areas            *area.Service
	manager          *observe.Manager
	prefetchJob      *PrefetchJob
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string

	// Events is used to invalidate the local event cache.
	Events *event.Service

	// Areas is used to invalidate and re-warm area documents. Optional.
	Areas *area.Service

	// Manager cancels local pipelines on event cancellation. Optional.
	Manager *observe.Manager

	// PrefetchJob runs on demand when a prefetch is requested. Optional.
	PrefetchJob *PrefetchJob

	Logger zerolog.Logger
}

// ControlMessage represents an event control message.
type ControlMessage struct {
	Type    string `json:"type"`
	EventID string `json:"event_id,omitempty"`
	AreaURL string `json:"area_url,omitempty"`
}

// Control message types.
const (
	MessageEventCreated   = "event_created"
	MessageEventCancelled = "event_cancelled"
	MessageAreaUpdated    = "area_updated"
	MessagePrefetch       = "prefetch"
)

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// Configure receive settings.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 10
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		events:           cfg.Events,
		areas:            cfg.Areas,
		manager:          cfg.Manager,
		prefetchJob:      cfg.PrefetchJob,
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing Pub/Sub messages.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	startTime := time.Now()

	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received pubsub message")

	// Parse message.
	var control ControlMessage
	if err := json.Unmarshal(msg.Data, &control); err != nil {
		logger.Error().Err(err).Msg("failed to parse message")
		msg.Nack()
		return
	}

	// Handle based on message type.
	var err error
	switch control.Type {
	case MessageEventCreated:
		err = h.handleEventCreated(ctx, control)
	case MessageEventCancelled:
		err = h.handleEventCancelled(control)
	case MessageAreaUpdated:
		err = h.handleAreaUpdated(ctx, control)
	case MessagePrefetch:
		err = h.handlePrefetch(ctx)
	default:
		logger.Warn().Str("type", control.Type).Msg("unknown message type")
		msg.Ack() // Ack unknown messages to prevent redelivery
		return
	}

	if err != nil {
		logger.Error().Err(err).Msg("control message failed")
		msg.Nack()
		return
	}

	duration := time.Since(startTime)
	logger.Info().
		Str("type", control.Type).
		Dur("duration", duration).
		Msg("control message handled")

	msg.Ack()
}

// handleEventCreated invalidates the local event cache and warms the new
// event's area document.
func (h *PubSubHandler) handleEventCreated(ctx context.Context, control ControlMessage) error {
	if h.events != nil {
		h.events.InvalidateCache()
	}

	if h.areas != nil && control.AreaURL != "" {
		if _, err := h.areas.Load(ctx, control.AreaURL); err != nil {
			// The first observation will retry; warming is best effort.
			h.logger.Warn().
				Err(err).
				Str("area_url", control.AreaURL).
				Msg("area warm-up failed")
		}
	}
	return nil
}

// handleEventCancelled cancels every local pipeline observing the event.
func (h *PubSubHandler) handleEventCancelled(control ControlMessage) error {
	if control.EventID == "" {
		return fmt.Errorf("event_cancelled without event_id")
	}

	if h.events != nil {
		h.events.InvalidateCache()
	}

	if h.manager != nil {
		n := h.manager.CancelEvent(control.EventID)
		h.logger.Info().
			Str("event_id", control.EventID).
			Int("pipelines", n).
			Msg("cancelled local pipelines")
	}
	return nil
}

// handleAreaUpdated drops the cached document and fetches the new version.
func (h *PubSubHandler) handleAreaUpdated(ctx context.Context, control ControlMessage) error {
	if control.AreaURL == "" {
		return fmt.Errorf("area_updated without area_url")
	}
	if h.areas == nil {
		return nil
	}

	h.areas.Invalidate(control.AreaURL)
	if _, err := h.areas.Load(ctx, control.AreaURL); err != nil {
		return fmt.Errorf("reloading area document: %w", err)
	}
	return nil
}

// handlePrefetch runs one on-demand prefetch pass.
func (h *PubSubHandler) handlePrefetch(ctx context.Context) error {
	if h.prefetchJob == nil {
		return nil
	}

	result := h.prefetchJob.Run(ctx)
	if result.Failed > result.Successful {
		return fmt.Errorf("too many prefetch failures: %d/%d", result.Failed, result.URLs)
	}
	return nil
}
