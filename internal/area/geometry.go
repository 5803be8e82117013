package area

import (
	"context"
	"sync"

	"github.com/wavecast/wavecast/internal/geo"
)

// Geometry is a per-event handle onto an area that may still be loading.
// Pipelines start observing before polygons arrive; until Load succeeds the
// handle reports not loaded and consumers degrade to neutral membership.
type Geometry struct {
	service *Service
	url     string

	mu     sync.RWMutex
	loaded bool
	area   geo.Area
	box    geo.BoundingBox
}

// Geometry returns a handle for the area behind the URL.
func (s *Service) Geometry(url string) *Geometry {
	return &Geometry{service: s, url: url}
}

// Load fetches and decodes the area. Safe to call again to refresh; the
// previous polygons stay visible until the new ones replace them.
func (g *Geometry) Load(ctx context.Context) error {
	decoded, err := g.service.Load(ctx, g.url)
	if err != nil {
		return err
	}

	g.mu.Lock()
	g.loaded = true
	g.area = decoded.Area
	g.box = decoded.BoundingBox
	g.mu.Unlock()
	return nil
}

// Loaded reports whether polygons are available.
func (g *Geometry) Loaded() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.loaded
}

// Area returns the decoded polygons.
func (g *Geometry) Area() geo.Area {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.area
}

// BoundingBox returns the area's bounding box.
func (g *Geometry) BoundingBox() geo.BoundingBox {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.box
}
