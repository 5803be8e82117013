package notify_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavecast/wavecast/internal/notify"
	"github.com/wavecast/wavecast/internal/observe"
)

func TestLogDispatcher(t *testing.T) {
	var buf bytes.Buffer
	d := notify.NewLogDispatcher(zerolog.New(&buf))

	err := d.DispatchHit(context.Background(), observe.HitTrigger{
		EventID:  "evt-1",
		DeviceID: "dev-1",
		HitAt:    time.Date(2026, 6, 21, 12, 1, 40, 0, time.UTC),
	})
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "evt-1", entry["event_id"])
	assert.Equal(t, "dev-1", entry["device_id"])
}

// recordingDispatcher captures delivered triggers.
type recordingDispatcher struct {
	triggers []observe.HitTrigger
}

func (d *recordingDispatcher) DispatchHit(_ context.Context, trig observe.HitTrigger) error {
	d.triggers = append(d.triggers, trig)
	return nil
}

// staticGate answers the dispatch-disabled question with a fixed value.
type staticGate struct {
	disabled bool
}

func (g *staticGate) IsHitDispatchDisabled(context.Context) bool {
	return g.disabled
}

func TestGatedDispatcher_PassesThroughWhenEnabled(t *testing.T) {
	inner := &recordingDispatcher{}
	gate := &staticGate{}
	d := notify.NewGatedDispatcher(inner, gate, zerolog.Nop())

	trig := observe.HitTrigger{EventID: "evt-1", DeviceID: "dev-1"}
	require.NoError(t, d.DispatchHit(context.Background(), trig))

	require.Len(t, inner.triggers, 1)
	assert.Equal(t, "evt-1", inner.triggers[0].EventID)
}

func TestGatedDispatcher_DropsWhenDisabled(t *testing.T) {
	inner := &recordingDispatcher{}
	gate := &staticGate{disabled: true}
	d := notify.NewGatedDispatcher(inner, gate, zerolog.Nop())

	require.NoError(t, d.DispatchHit(context.Background(), observe.HitTrigger{EventID: "evt-1"}))
	assert.Empty(t, inner.triggers)

	// Re-enabling takes effect on the next trigger.
	gate.disabled = false
	require.NoError(t, d.DispatchHit(context.Background(), observe.HitTrigger{EventID: "evt-2"}))
	require.Len(t, inner.triggers, 1)
	assert.Equal(t, "evt-2", inner.triggers[0].EventID)
}

func TestGatedDispatcher_NilGatePassesThrough(t *testing.T) {
	inner := &recordingDispatcher{}
	d := notify.NewGatedDispatcher(inner, nil, zerolog.Nop())

	require.NoError(t, d.DispatchHit(context.Background(), observe.HitTrigger{EventID: "evt-1"}))
	assert.Len(t, inner.triggers, 1)
}

func TestHitMessage_Wire(t *testing.T) {
	msg := notify.HitMessage{
		EventID:  "evt-1",
		DeviceID: "dev-1",
		HitAt:    time.Date(2026, 6, 21, 12, 1, 40, 0, time.UTC),
	}

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"event_id": "evt-1",
		"device_id": "dev-1",
		"hit_at": "2026-06-21T12:01:40Z"
	}`, string(data))
}
