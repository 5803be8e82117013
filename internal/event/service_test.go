package event_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavecast/wavecast/internal/event"
	"github.com/wavecast/wavecast/internal/wave"
)

func newTestService() *event.Service {
	return event.NewService(event.ServiceConfig{
		Repository: event.NewInMemoryRepository(),
		Logger:     zerolog.New(io.Discard),
	})
}

func validInput() event.CreateInput {
	return event.CreateInput{
		Slug:           "Summer-Wave",
		Name:           "Summer Wave",
		AreaURL:        "https://areas.example.com/summer-wave.json",
		Speed:          12.5,
		Direction:      "east",
		StartsAt:       time.Date(2026, 6, 21, 12, 0, 0, 0, time.UTC),
		ApproxDuration: 10 * time.Minute,
	}
}

func TestService_CreateAndGet(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "summer-wave", created.Slug)
	assert.Equal(t, wave.East, created.Direction)
	assert.Equal(t, event.StatusScheduled, created.Status)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	bySlug, err := svc.GetBySlug(ctx, "SUMMER-WAVE")
	require.NoError(t, err)
	assert.Equal(t, created.ID, bySlug.ID)
}

func TestService_CreateValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	tests := []struct {
		name     string
		mutate   func(*event.CreateInput)
		expected error
	}{
		{"zero speed", func(in *event.CreateInput) { in.Speed = 0 }, wave.ErrInvalidSpeed},
		{"negative speed", func(in *event.CreateInput) { in.Speed = -3 }, wave.ErrInvalidSpeed},
		{"bad direction", func(in *event.CreateInput) { in.Direction = "NORTH" }, wave.ErrInvalidDirection},
		{"missing start", func(in *event.CreateInput) { in.StartsAt = time.Time{} }, event.ErrInvalidEvent},
		{"missing name", func(in *event.CreateInput) { in.Name = "" }, event.ErrInvalidEvent},
		{"missing area", func(in *event.CreateInput) { in.AreaURL = "" }, event.ErrInvalidEvent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(&input)
			_, err := svc.Create(ctx, input)
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestService_DuplicateSlug(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	_, err = svc.Create(ctx, validInput())
	assert.ErrorIs(t, err, event.ErrSlugTaken)
}

func TestService_Cancel(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(ctx, created.ID))

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.Cancelled())

	assert.ErrorIs(t, svc.Cancel(ctx, "missing"), event.ErrEventNotFound)
}

func TestService_ListExcludesCancelled(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	first, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	second := validInput()
	second.Slug = "autumn-wave"
	second.StartsAt = second.StartsAt.Add(24 * time.Hour)
	_, err = svc.Create(ctx, second)
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(ctx, first.ID))

	result, err := svc.List(ctx, event.ListOptions{})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "autumn-wave", result.Items[0].Slug)

	all, err := svc.List(ctx, event.ListOptions{IncludeCancelled: true})
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)
}
