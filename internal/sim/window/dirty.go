package window

import (
	"sync"

	"dashmap.ai/internal/sim/tile"
)

// DirtySet holds tiles waiting to be resampled. Removal may come from an
// unload callback on another goroutine while the tick pass drains the set.
type DirtySet struct {
	mu    sync.Mutex
	tiles map[tile.Coord]struct{}
}

func NewDirtySet() *DirtySet {
	return &DirtySet{tiles: map[tile.Coord]struct{}{}}
}

func (d *DirtySet) Add(c tile.Coord) {
	d.mu.Lock()
	d.tiles[c] = struct{}{}
	d.mu.Unlock()
}

func (d *DirtySet) AddAll(cs []tile.Coord) {
	d.mu.Lock()
	for _, c := range cs {
		d.tiles[c] = struct{}{}
	}
	d.mu.Unlock()
}

func (d *DirtySet) Remove(c tile.Coord) {
	d.mu.Lock()
	delete(d.tiles, c)
	d.mu.Unlock()
}

// Take removes c and reports whether it was present.
func (d *DirtySet) Take(c tile.Coord) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.tiles[c]; !ok {
		return false
	}
	delete(d.tiles, c)
	return true
}

func (d *DirtySet) Has(c tile.Coord) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.tiles[c]
	return ok
}

func (d *DirtySet) Clear() {
	d.mu.Lock()
	d.tiles = map[tile.Coord]struct{}{}
	d.mu.Unlock()
}

func (d *DirtySet) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tiles)
}

// Snapshot copies the current members, sorted by X then Z.
func (d *DirtySet) Snapshot() []tile.Coord {
	d.mu.Lock()
	out := make([]tile.Coord, 0, len(d.tiles))
	for c := range d.tiles {
		out = append(out, c)
	}
	d.mu.Unlock()
	tile.Sort(out)
	return out
}
