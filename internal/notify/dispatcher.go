// Package notify delivers one-shot hit triggers to downstream systems.
// Filtering and delivery to end devices happen outside this service.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/wavecast/wavecast/internal/observe"
)

// HitMessage is the wire form of a hit trigger.
type HitMessage struct {
	EventID  string    `json:"event_id"`
	DeviceID string    `json:"device_id"`
	HitAt    time.Time `json:"hit_at"`
}

// PubSubDispatcher publishes hit triggers to a Pub/Sub topic.
type PubSubDispatcher struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	topicName string
	logger    zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub dispatcher.
type PubSubConfig struct {
	ProjectID string
	TopicName string
	Logger    zerolog.Logger
}

// NewPubSubDispatcher creates a dispatcher publishing to the configured topic.
func NewPubSubDispatcher(ctx context.Context, cfg PubSubConfig) (*PubSubDispatcher, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	return &PubSubDispatcher{
		client:    client,
		publisher: client.Publisher(cfg.TopicName),
		topicName: cfg.TopicName,
		logger:    cfg.Logger,
	}, nil
}

// DispatchHit publishes the trigger and waits for the server ack. The
// coordinator already bounds the call with a timeout.
func (d *PubSubDispatcher) DispatchHit(ctx context.Context, trig observe.HitTrigger) error {
	data, err := json.Marshal(HitMessage{
		EventID:  trig.EventID,
		DeviceID: trig.DeviceID,
		HitAt:    trig.HitAt,
	})
	if err != nil {
		return fmt.Errorf("encoding hit trigger: %w", err)
	}

	result := d.publisher.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event_id": trig.EventID,
		},
	})

	id, err := result.Get(ctx)
	if err != nil {
		return fmt.Errorf("publishing hit trigger: %w", err)
	}

	d.logger.Info().
		Str("event_id", trig.EventID).
		Str("device_id", trig.DeviceID).
		Str("message_id", id).
		Time("hit_at", trig.HitAt).
		Msg("hit trigger published")
	return nil
}

// Close stops the publisher and releases the client.
func (d *PubSubDispatcher) Close() error {
	d.publisher.Stop()
	return d.client.Close()
}

// LogDispatcher logs hit triggers instead of delivering them. Used in
// development and when dispatch is disabled by feature flag.
type LogDispatcher struct {
	logger zerolog.Logger
}

// NewLogDispatcher creates a log-only dispatcher.
func NewLogDispatcher(logger zerolog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

// DispatchHit logs the trigger.
func (d *LogDispatcher) DispatchHit(_ context.Context, trig observe.HitTrigger) error {
	d.logger.Info().
		Str("event_id", trig.EventID).
		Str("device_id", trig.DeviceID).
		Time("hit_at", trig.HitAt).
		Msg("hit trigger (log only)")
	return nil
}

// dispatchGate reports whether hit dispatch is currently suppressed.
// Satisfied by featureflags.Service.
type dispatchGate interface {
	IsHitDispatchDisabled(ctx context.Context) bool
}

// GatedDispatcher wraps a dispatcher behind a runtime flag so operators can
// suppress downstream delivery without stopping running pipelines.
type GatedDispatcher struct {
	inner  observe.Dispatcher
	gate   dispatchGate
	logger zerolog.Logger
}

// NewGatedDispatcher creates a dispatcher that consults the gate before every
// delivery. A nil gate passes everything through.
func NewGatedDispatcher(inner observe.Dispatcher, gate dispatchGate, logger zerolog.Logger) *GatedDispatcher {
	return &GatedDispatcher{inner: inner, gate: gate, logger: logger}
}

// DispatchHit delivers the trigger unless dispatch is disabled.
func (d *GatedDispatcher) DispatchHit(ctx context.Context, trig observe.HitTrigger) error {
	if d.gate != nil && d.gate.IsHitDispatchDisabled(ctx) {
		d.logger.Info().
			Str("event_id", trig.EventID).
			Str("device_id", trig.DeviceID).
			Msg("hit dispatch disabled, trigger dropped")
		return nil
	}
	return d.inner.DispatchHit(ctx, trig)
}

// Ensure implementations satisfy the coordinator's dispatcher contract.
var (
	_ observe.Dispatcher = (*PubSubDispatcher)(nil)
	_ observe.Dispatcher = (*LogDispatcher)(nil)
	_ observe.Dispatcher = (*GatedDispatcher)(nil)
)
