// Package worker provides background jobs for WaveCast: area document
// prefetching ahead of event starts and reconciliation of running pipelines
// against the event store.
package worker

import (
	"time"
)

// PrefetchConfig holds configuration for the area prefetch job.
type PrefetchConfig struct {
	// Horizon is how far ahead of now events qualify for prefetching.
	// Default: 24 hours
	Horizon time.Duration

	// Concurrency is the number of concurrent document fetches.
	// Default: 3
	Concurrency int

	// Timeout is the timeout for each document fetch.
	// Default: 30 seconds
	Timeout time.Duration

	// MaxEvents caps how many upcoming events one run considers.
	// Default: 200
	MaxEvents int
}

// DefaultPrefetchConfig returns the default prefetch configuration.
func DefaultPrefetchConfig() PrefetchConfig {
	return PrefetchConfig{
		Horizon:     24 * time.Hour,
		Concurrency: 3,
		Timeout:     30 * time.Second,
		MaxEvents:   200,
	}
}

func (c PrefetchConfig) withDefaults() PrefetchConfig {
	out := c
	if out.Horizon == 0 {
		out.Horizon = 24 * time.Hour
	}
	if out.Concurrency == 0 {
		out.Concurrency = 3
	}
	if out.Timeout == 0 {
		out.Timeout = 30 * time.Second
	}
	if out.MaxEvents == 0 {
		out.MaxEvents = 200
	}
	return out
}
