// Package window tracks the square of tiles around the observer and keeps the
// raster buffer in sync with it.
package window

import (
	"log"
	"sort"
	"sync"
	"sync/atomic"

	"dashmap.ai/internal/sim/raster"
	"dashmap.ai/internal/sim/surface"
	"dashmap.ai/internal/sim/tile"
	"dashmap.ai/internal/sim/tilecache"
)

type TileSampler interface {
	SampleTile(c tile.Coord, dst *surface.TileColors)
}

type Config struct {
	Radius int
	// MaxTilesPerRebuild caps the tiles resampled by one Rebuild call. Zero
	// means no cap; the rest stay dirty for the next call.
	MaxTilesPerRebuild int
}

type Stats struct {
	Center         tile.Coord
	Ready          bool
	Dirty          int
	Cached         int
	RecentersTotal uint64
	RebuildsTotal  uint64
	TilesWritten   uint64
	StaleSkipped   uint64
	CarriedForward uint64
	RemovedTotal   uint64
}

type Manager struct {
	radius   int
	maxTiles int
	sampler  TileSampler
	cache    *tilecache.Cache
	dirty    *DirtySet
	buf      *raster.Buffer
	logger   *log.Logger

	mu        sync.RWMutex
	center    tile.Coord
	hasCenter bool

	// work serializes one tile's sample-store-patch step against
	// RemoveChunkData so a removed tile is never written back.
	work sync.Mutex

	recentersTotal atomic.Uint64
	rebuildsTotal  atomic.Uint64
	tilesWritten   atomic.Uint64
	staleSkipped   atomic.Uint64
	carriedForward atomic.Uint64
	removedTotal   atomic.Uint64
}

func New(cfg Config, sampler TileSampler, logger *log.Logger) *Manager {
	if cfg.Radius < 0 {
		cfg.Radius = 0
	}
	if cfg.MaxTilesPerRebuild < 0 {
		cfg.MaxTilesPerRebuild = 0
	}
	return &Manager{
		radius:   cfg.Radius,
		maxTiles: cfg.MaxTilesPerRebuild,
		sampler:  sampler,
		cache:    tilecache.New(),
		dirty:    NewDirtySet(),
		buf:      raster.New(tile.Size * (2*cfg.Radius + 1)),
		logger:   logger,
	}
}

func (m *Manager) Radius() int { return m.radius }

// Span is the window edge length in tiles.
func (m *Manager) Span() int { return 2*m.radius + 1 }

func (m *Manager) Raster() *raster.Buffer { return m.buf }

func (m *Manager) Cache() *tilecache.Cache { return m.cache }

func (m *Manager) Center() (tile.Coord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.center, m.hasCenter
}

// Origin is the lowest-coordinate tile of the window. It is unset until the
// first Recenter.
func (m *Manager) Origin() (tile.Coord, bool) {
	c, ok := m.Center()
	if !ok {
		return tile.Coord{}, false
	}
	return c.Offset(-m.radius, -m.radius), true
}

// Ready reports whether a window exists; frames must not be drawn before.
func (m *Manager) Ready() bool {
	_, ok := m.Center()
	return ok
}

// Recenter moves the window to c and marks every tile of the new window
// dirty. It reports false when c is already the center.
func (m *Manager) Recenter(c tile.Coord) bool {
	m.mu.Lock()
	if m.hasCenter && m.center == c {
		m.mu.Unlock()
		return false
	}
	m.center, m.hasCenter = c, true
	m.mu.Unlock()

	m.dirty.AddAll(tile.Square(c, m.radius))
	m.recentersTotal.Add(1)
	m.printf("minimap recenter center=%s dirty=%d", c, m.dirty.Len())
	return true
}

func (m *Manager) MarkDirty(c tile.Coord) {
	m.dirty.Add(c)
}

// MarkBlockDirty marks the tile holding world block (wx, wz) when the block
// lies inside the window's pixel extent.
func (m *Manager) MarkBlockDirty(wx, wz int) bool {
	origin, ok := m.Origin()
	if !ok {
		return false
	}
	span := m.Span() * tile.Size
	px := wx - origin.MinBlockX()
	pz := wz - origin.MinBlockZ()
	if px < 0 || pz < 0 || px >= span || pz >= span {
		return false
	}
	m.dirty.Add(tile.Containing(wx, wz))
	return true
}

func (m *Manager) DirtyTiles() []tile.Coord {
	return m.dirty.Snapshot()
}

// Rebuild resamples dirty tiles into the cache and the raster and returns the
// number of tiles written. Tiles that fell outside the window are dropped.
func (m *Manager) Rebuild() int {
	center, ok := m.Center()
	if !ok {
		return 0
	}
	pending := m.dirty.Snapshot()
	if len(pending) == 0 {
		return 0
	}
	m.rebuildsTotal.Add(1)

	origin := center.Offset(-m.radius, -m.radius)
	live := pending[:0]
	for _, c := range pending {
		if m.inWindow(origin, c) {
			live = append(live, c)
			continue
		}
		if m.dirty.Take(c) {
			m.staleSkipped.Add(1)
		}
	}
	sort.SliceStable(live, func(i, j int) bool {
		return live[i].Chebyshev(center) < live[j].Chebyshev(center)
	})
	if m.maxTiles > 0 && len(live) > m.maxTiles {
		m.carriedForward.Add(uint64(len(live) - m.maxTiles))
		live = live[:m.maxTiles]
	}

	written := 0
	for _, c := range live {
		if m.rebuildTile(origin, c) {
			written++
		}
	}
	if written > 0 {
		m.tilesWritten.Add(uint64(written))
		m.buf.MarkChanged()
	}
	return written
}

func (m *Manager) rebuildTile(origin, c tile.Coord) bool {
	m.work.Lock()
	defer m.work.Unlock()
	if !m.dirty.Take(c) {
		return false
	}
	colors, ok := m.cache.Get(c)
	if !ok {
		colors = new(tilecache.Colors)
	}
	m.sampler.SampleTile(c, colors)
	m.cache.Put(c, colors)
	return m.buf.PatchTile(c.MinBlockX()-origin.MinBlockX(), c.MinBlockZ()-origin.MinBlockZ(), colors)
}

func (m *Manager) inWindow(origin, c tile.Coord) bool {
	dx, dz := c.X-origin.X, c.Z-origin.Z
	last := 2 * m.radius
	return dx >= 0 && dz >= 0 && dx <= last && dz <= last
}

// RemoveChunkData forgets everything known about tile c.
func (m *Manager) RemoveChunkData(c tile.Coord) {
	m.work.Lock()
	m.dirty.Remove(c)
	m.cache.Remove(c)
	m.work.Unlock()
	m.removedTotal.Add(1)
}

// ClearAll drops cached colors and pending work. The center is kept so the
// next Recenter to a different tile repopulates the window.
func (m *Manager) ClearAll() {
	m.work.Lock()
	m.dirty.Clear()
	m.cache.Clear()
	m.work.Unlock()
	m.printf("minimap clear")
}

func (m *Manager) Stats() Stats {
	c, ok := m.Center()
	return Stats{
		Center:         c,
		Ready:          ok,
		Dirty:          m.dirty.Len(),
		Cached:         m.cache.Len(),
		RecentersTotal: m.recentersTotal.Load(),
		RebuildsTotal:  m.rebuildsTotal.Load(),
		TilesWritten:   m.tilesWritten.Load(),
		StaleSkipped:   m.staleSkipped.Load(),
		CarriedForward: m.carriedForward.Load(),
		RemovedTotal:   m.removedTotal.Load(),
	}
}

func (m *Manager) printf(format string, args ...any) {
	if m.logger != nil {
		m.logger.Printf(format, args...)
	}
}
