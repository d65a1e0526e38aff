// Package raster holds the window's pixel buffer shared with presentation.
package raster

import (
	"image"
	"sync"
	"sync/atomic"

	"dashmap.ai/internal/sim/surface"
	"dashmap.ai/internal/sim/tile"
)

// Buffer is a fixed-size square image addressed by pixel offset from the
// window origin. A tile patch is written under the write lock, so readers
// going through View never observe a half-written tile.
type Buffer struct {
	mu  sync.RWMutex
	img *image.RGBA

	changed atomic.Bool
	patches atomic.Uint64
}

func New(sizePx int) *Buffer {
	return &Buffer{img: image.NewRGBA(image.Rect(0, 0, sizePx, sizePx))}
}

func (b *Buffer) Size() int {
	return b.img.Rect.Dx()
}

func (b *Buffer) Bounds() image.Rectangle {
	return b.img.Rect
}

// SetPixel writes a single pixel; out-of-range writes are dropped.
func (b *Buffer) SetPixel(px, pz int, c surface.Packed) bool {
	if !(image.Point{X: px, Y: pz}).In(b.img.Rect) {
		return false
	}
	b.mu.Lock()
	b.img.SetRGBA(px, pz, c.RGBA())
	b.mu.Unlock()
	return true
}

// PatchTile copies colors into the square starting at (px0, pz0). Patches that
// would not fit entirely inside the buffer are refused.
func (b *Buffer) PatchTile(px0, pz0 int, colors *surface.TileColors) bool {
	size := b.Size()
	if px0 < 0 || pz0 < 0 || px0+tile.Size > size || pz0+tile.Size > size {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for lx := 0; lx < tile.Size; lx++ {
		for lz := 0; lz < tile.Size; lz++ {
			b.img.SetRGBA(px0+lx, pz0+lz, colors[lx][lz].RGBA())
		}
	}
	b.patches.Add(1)
	return true
}

// Pixel reads one pixel back as a packed color.
func (b *Buffer) Pixel(px, pz int) surface.Packed {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !(image.Point{X: px, Y: pz}).In(b.img.Rect) {
		return 0
	}
	c := b.img.RGBAAt(px, pz)
	return surface.Packed(uint32(c.R)<<24 | uint32(c.G)<<16 | uint32(c.B)<<8 | uint32(c.A))
}

// View runs fn with a read lock held. fn must not retain img.
func (b *Buffer) View(fn func(img *image.RGBA)) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	fn(b.img)
}

func (b *Buffer) MarkChanged() {
	b.changed.Store(true)
}

func (b *Buffer) Changed() bool {
	return b.changed.Load()
}

// TakeChanged reports and clears the changed flag; the uploader calls it once
// per frame.
func (b *Buffer) TakeChanged() bool {
	return b.changed.Swap(false)
}

// Patches counts tile patches written since creation.
func (b *Buffer) Patches() uint64 {
	return b.patches.Load()
}
