package worldgen

import (
	"crypto/sha256"
	"encoding/binary"

	"dashmap.ai/internal/sim/tile"
)

// Chunk is one generated tile: tile.Size x tile.Size columns of Height blocks
// starting at MinY.
type Chunk struct {
	Tile   tile.Coord
	MinY   int
	Height int
	Blocks []uint16 // len = Size*Size*Height, column-major

	surface [tile.Size * tile.Size]int
	dirty   bool
	hash    [32]byte
}

func newChunk(c tile.Coord, minY, height int) *Chunk {
	return &Chunk{
		Tile:   c,
		MinY:   minY,
		Height: height,
		Blocks: make([]uint16, tile.Size*tile.Size*height),
	}
}

func (c *Chunk) base(lx, lz int) int {
	return (lx + lz*tile.Size) * c.Height
}

func (c *Chunk) Get(lx, y, lz int) uint16 {
	i := y - c.MinY
	if i < 0 || i >= c.Height {
		return 0
	}
	return c.Blocks[c.base(lx, lz)+i]
}

func (c *Chunk) Set(lx, y, lz int, b uint16) bool {
	i := y - c.MinY
	if i < 0 || i >= c.Height {
		return false
	}
	at := c.base(lx, lz) + i
	if c.Blocks[at] == b {
		return false
	}
	c.Blocks[at] = b
	c.dirty = true
	c.refreshSurface(lx, lz)
	return true
}

// Column returns the raw blocks of one column, bottom first. The slice
// aliases the chunk.
func (c *Chunk) Column(lx, lz int) []uint16 {
	b := c.base(lx, lz)
	return c.Blocks[b : b+c.Height]
}

// SurfaceY is one above the highest non-air block of the column, or MinY
// for an empty column.
func (c *Chunk) SurfaceY(lx, lz int) int {
	return c.surface[lx+lz*tile.Size]
}

func (c *Chunk) refreshSurface(lx, lz int) {
	col := c.Column(lx, lz)
	top := c.MinY
	for i := len(col) - 1; i >= 0; i-- {
		if col[i] != 0 {
			top = c.MinY + i + 1
			break
		}
	}
	c.surface[lx+lz*tile.Size] = top
}

func (c *Chunk) refreshAll() {
	for lz := 0; lz < tile.Size; lz++ {
		for lx := 0; lx < tile.Size; lx++ {
			c.refreshSurface(lx, lz)
		}
	}
}

func (c *Chunk) Digest() [32]byte {
	if c.dirty || c.hash == ([32]byte{}) {
		h := sha256.New()
		var tmp [2]byte
		for _, v := range c.Blocks {
			binary.LittleEndian.PutUint16(tmp[:], v)
			h.Write(tmp[:])
		}
		copy(c.hash[:], h.Sum(nil))
		c.dirty = false
	}
	return c.hash
}
