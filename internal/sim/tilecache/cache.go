// Package tilecache keeps the sampled colors of each tile in the window.
package tilecache

import (
	"sync"

	"dashmap.ai/internal/sim/surface"
	"dashmap.ai/internal/sim/tile"
)

type Colors = surface.TileColors

// Cache is keyed by tile identity and never evicts on its own; entries live
// until Remove or Clear. Safe for concurrent use because unload callbacks may
// arrive off the tick goroutine.
type Cache struct {
	mu     sync.RWMutex
	colors map[tile.Coord]*Colors
}

func New() *Cache {
	return &Cache{colors: map[tile.Coord]*Colors{}}
}

func (c *Cache) Get(k tile.Coord) (*Colors, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.colors[k]
	return v, ok
}

func (c *Cache) Put(k tile.Coord, v *Colors) {
	c.mu.Lock()
	c.colors[k] = v
	c.mu.Unlock()
}

func (c *Cache) Remove(k tile.Coord) {
	c.mu.Lock()
	delete(c.colors, k)
	c.mu.Unlock()
}

func (c *Cache) Clear() {
	c.mu.Lock()
	c.colors = map[tile.Coord]*Colors{}
	c.mu.Unlock()
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.colors)
}

// Keys returns the cached tiles sorted by X then Z.
func (c *Cache) Keys() []tile.Coord {
	c.mu.RLock()
	keys := make([]tile.Coord, 0, len(c.colors))
	for k := range c.colors {
		keys = append(keys, k)
	}
	c.mu.RUnlock()
	tile.Sort(keys)
	return keys
}
