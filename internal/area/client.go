package area

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/wavecast/wavecast/internal/provider/resilience"
)

// maxDocumentBytes caps area document size. Even dense city areas encode to
// well under a megabyte.
const maxDocumentBytes = 4 << 20

// ClientConfig holds configuration for the area document client.
type ClientConfig struct {
	Logger zerolog.Logger

	// Resilience overrides the HTTP client configuration. If nil, defaults
	// are used.
	Resilience *resilience.ClientConfig
}

// Client fetches area documents from geometry endpoints. Calls go through the
// resilient client so a flapping geometry host trips the breaker instead of
// stalling observation pipelines.
type Client struct {
	http   *resilience.Client
	logger zerolog.Logger
}

// NewClient creates a new area document client.
func NewClient(cfg ClientConfig) *Client {
	rcfg := resilience.DefaultClientConfig("area-documents")
	if cfg.Resilience != nil {
		rcfg = *cfg.Resilience
	}

	return &Client{
		http:   resilience.NewClient(rcfg),
		logger: cfg.Logger,
	}
}

// FetchDocument retrieves and parses the area document at the given URL.
func (c *Client) FetchDocument(ctx context.Context, url string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building area request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrAreaUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrAreaUnavailable, resp.StatusCode)
	}

	var doc Document
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxDocumentBytes)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedDocument, err.Error())
	}

	c.logger.Debug().
		Str("url", url).
		Int("rings", len(doc.Rings)).
		Msg("area document fetched")
	return &doc, nil
}

// CircuitState exposes the breaker state for ops reporting.
func (c *Client) CircuitState() string {
	return c.http.CircuitBreakerState().String()
}

// Resilient returns the underlying resilient HTTP client for registration in
// a provider registry.
func (c *Client) Resilient() *resilience.Client {
	return c.http
}
