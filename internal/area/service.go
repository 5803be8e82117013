package area

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// fetcher retrieves area documents. Implemented by Client; a narrower
// interface keeps tests free of HTTP.
type fetcher interface {
	FetchDocument(ctx context.Context, url string) (*Document, error)
}

// documentCache is the optional shared cache between instances.
type documentCache interface {
	Get(ctx context.Context, url string) (*Document, error)
	Set(ctx context.Context, url string, doc *Document) error
}

// providerMetrics records fetch timings and cache effectiveness. Satisfied by
// middleware.ProviderMetrics.
type providerMetrics interface {
	RecordRequest(provider, operation string, duration time.Duration, err error)
	RecordCacheHit(provider, operation string)
	RecordCacheMiss(provider, operation string)
}

// cacheGate controls whether the shared cache is consulted. Satisfied by
// featureflags.Service.
type cacheGate interface {
	IsAreaSharedCacheEnabled(ctx context.Context) bool
}

// metricsProvider is the provider name reported to the metrics instruments.
const metricsProvider = "area-documents"

// ServiceConfig holds configuration for the area service.
type ServiceConfig struct {
	Client fetcher
	Logger zerolog.Logger

	// Cache is the optional shared document cache.
	Cache documentCache

	// Metrics records fetch and cache metrics. Optional.
	Metrics providerMetrics

	// Flags gates the shared cache at runtime. Optional; a nil gate leaves
	// the cache always on.
	Flags cacheGate

	// TTL is how long a decoded area stays fresh in memory.
	// Default: 15 minutes.
	TTL time.Duration
}

// Service loads and decodes areas with an in-memory snapshot per URL. A fresh
// snapshot is served directly; an expired one is refetched, and kept as a
// stale fallback when the refetch fails. Areas change rarely, so serving a
// stale polygon beats failing an active pipeline.
type Service struct {
	client  fetcher
	cache   documentCache
	logger  zerolog.Logger
	metrics providerMetrics
	flags   cacheGate
	ttl     time.Duration

	mu        sync.Mutex
	snapshots map[string]*snapshot
}

type snapshot struct {
	decoded   *Decoded
	fetchedAt time.Time
}

// NewService creates a new area service.
func NewService(cfg ServiceConfig) *Service {
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = 15 * time.Minute
	}

	return &Service{
		client:    cfg.Client,
		cache:     cfg.Cache,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		flags:     cfg.Flags,
		ttl:       ttl,
		snapshots: make(map[string]*snapshot),
	}
}

// Load returns the decoded area behind the URL.
func (s *Service) Load(ctx context.Context, url string) (*Decoded, error) {
	now := time.Now()

	s.mu.Lock()
	snap, ok := s.snapshots[url]
	s.mu.Unlock()

	if ok && now.Sub(snap.fetchedAt) < s.ttl {
		return snap.decoded, nil
	}

	decoded, err := s.fetchAndDecode(ctx, url)
	if err != nil {
		if ok {
			s.logger.Warn().Err(err).Str("url", url).Msg("area refresh failed, serving stale")
			return snap.decoded, nil
		}
		return nil, err
	}

	s.mu.Lock()
	s.snapshots[url] = &snapshot{decoded: decoded, fetchedAt: now}
	s.mu.Unlock()

	return decoded, nil
}

// Invalidate drops the in-memory snapshot for the URL.
func (s *Service) Invalidate(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, url)
}

func (s *Service) fetchAndDecode(ctx context.Context, url string) (*Decoded, error) {
	cache := s.cache
	if cache != nil && s.flags != nil && !s.flags.IsAreaSharedCacheEnabled(ctx) {
		cache = nil
	}

	if cache != nil {
		if doc, err := cache.Get(ctx, url); err == nil {
			if decoded, derr := DecodeDocument(doc); derr == nil {
				if s.metrics != nil {
					s.metrics.RecordCacheHit(metricsProvider, "load-document")
				}
				return decoded, nil
			}
			// Undecodable cache entry: fall through to the origin.
		}
		if s.metrics != nil {
			s.metrics.RecordCacheMiss(metricsProvider, "load-document")
		}
	}

	start := time.Now()
	doc, err := s.client.FetchDocument(ctx, url)
	if s.metrics != nil {
		s.metrics.RecordRequest(metricsProvider, "load-document", time.Since(start), err)
	}
	if err != nil {
		return nil, err
	}

	decoded, err := DecodeDocument(doc)
	if err != nil {
		return nil, err
	}

	if cache != nil {
		if cerr := cache.Set(ctx, url, doc); cerr != nil {
			s.logger.Warn().Err(cerr).Str("url", url).Msg("area cache write failed")
		}
	}

	return decoded, nil
}
