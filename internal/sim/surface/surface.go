// Package surface finds the visible top block of a terrain column and turns it
// into a shaded map color.
package surface

import (
	"fmt"
	"image/color"

	"dashmap.ai/internal/sim/catalogs"
	"dashmap.ai/internal/sim/mathx"
	"dashmap.ai/internal/sim/tile"
)

// Column is a read-only vertical slice of terrain at one (x, z).
type Column interface {
	// Block returns the palette id at height y; heights outside the build
	// range report air.
	Block(y int) uint16
	// SurfaceY is the height-map value: one above the highest non-air block.
	SurfaceY() int
}

// StaticColumn is a column held in memory, bottom block first.
type StaticColumn struct {
	MinY   int
	Blocks []uint16
	Top    int
}

func (c *StaticColumn) Block(y int) uint16 {
	i := y - c.MinY
	if i < 0 || i >= len(c.Blocks) {
		return 0
	}
	return c.Blocks[i]
}

func (c *StaticColumn) SurfaceY() int { return c.Top }

type World interface {
	// Column returns nil when the column is not loaded.
	Column(x, z int) Column
	HasCeiling() bool
	MinBuildHeight() int
	MaxBuildHeight() int
}

type Blocks interface {
	Props(id uint16) catalogs.BlockProps
}

type Observer interface {
	EyeY() float64
}

type Shade uint8

const (
	Low Shade = iota
	Normal
	High
)

func (s Shade) String() string {
	switch s {
	case Low:
		return "LOW"
	case High:
		return "HIGH"
	default:
		return "NORMAL"
	}
}

// Modifier is the per-channel brightness factor out of 255.
func (s Shade) Modifier() uint32 {
	switch s {
	case Low:
		return 180
	case High:
		return 255
	default:
		return 220
	}
}

// Packed is 0xRRGGBBAA. Zero is fully transparent.
type Packed uint32

func Pack(c catalogs.MapColor, s Shade) Packed {
	if c == 0 {
		return 0
	}
	r, g, b := c.RGB()
	m := s.Modifier()
	r = uint8(uint32(r) * m / 255)
	g = uint8(uint32(g) * m / 255)
	b = uint8(uint32(b) * m / 255)
	return Packed(uint32(r)<<24 | uint32(g)<<16 | uint32(b)<<8 | 0xFF)
}

func (p Packed) RGBA() color.RGBA {
	return color.RGBA{R: uint8(p >> 24), G: uint8(p >> 16), B: uint8(p >> 8), A: uint8(p)}
}

// TileColors holds one packed color per cell, indexed [localX][localZ].
type TileColors [tile.Size][tile.Size]Packed

type Config struct {
	CeilingProbeOffset int
}

type Sampler struct {
	world    World
	blocks   Blocks
	observer Observer
	probe    int
}

func NewSampler(w World, b Blocks, obs Observer, cfg Config) *Sampler {
	return &Sampler{world: w, blocks: b, observer: obs, probe: cfg.CeilingProbeOffset}
}

// TopY returns the elevation of the visible surface of col.
func (s *Sampler) TopY(col Column) int {
	y, _ := s.top(col)
	return y
}

// top scans down from the initial guess. Colorless blocks, fluid sources and
// ground cover are passed over. When fluid was passed the elevation is one
// above the lowest fluid cell and the color comes from that cell.
func (s *Sampler) top(col Column) (elevation, colorY int) {
	min := s.world.MinBuildHeight()
	y := s.initialY(col)
	var last int
	fluids := 0
	lowestFluid := 0
	for {
		last = y
		p := s.blocks.Props(col.Block(y))
		var keep bool
		switch {
		case p.MapColor == 0:
			keep = true
		case p.FluidSource:
			keep = true
			fluids++
			lowestFluid = y
		default:
			keep = p.GroundCover
		}
		y--
		if !keep || y < min {
			break
		}
	}
	if fluids > 0 {
		return lowestFluid + 1, lowestFluid
	}
	return last, last
}

func (s *Sampler) initialY(col Column) int {
	if !s.world.HasCeiling() {
		return col.SurfaceY()
	}
	eye := 0.0
	if s.observer != nil {
		eye = s.observer.EyeY()
	}
	min := s.world.MinBuildHeight()
	for y := mathx.RoundHalfUp(eye) + s.probe; y >= min; y-- {
		if !s.blocks.Props(col.Block(y)).Air {
			return y
		}
	}
	return s.world.MaxBuildHeight()
}

func Classify(this, neighbor int) Shade {
	switch {
	case this == neighbor:
		return Normal
	case this > neighbor:
		return High
	default:
		return Low
	}
}

// SampleCell returns the shaded color of world column (x, z), using (x, z-1)
// as the shading neighbor. The column itself must be loaded; an unloaded
// neighbor shades as Normal.
func (s *Sampler) SampleCell(x, z int) Packed {
	col := s.mustColumn(x, z)
	elev, colorY := s.top(col)
	shade := Normal
	if north := s.world.Column(x, z-1); north != nil {
		shade = Classify(elev, s.TopY(north))
	}
	return Pack(s.blocks.Props(col.Block(colorY)).MapColor, shade)
}

// SampleTile fills dst with every cell of tile c. Within a row of constant x
// the previous cell's elevation doubles as the next cell's neighbor.
func (s *Sampler) SampleTile(c tile.Coord, dst *TileColors) {
	for lx := 0; lx < tile.Size; lx++ {
		wx, wz0 := c.Block(lx, 0)
		prev, havePrev := 0, false
		if north := s.world.Column(wx, wz0-1); north != nil {
			prev, havePrev = s.TopY(north), true
		}
		for lz := 0; lz < tile.Size; lz++ {
			wz := wz0 + lz
			col := s.mustColumn(wx, wz)
			elev, colorY := s.top(col)
			shade := Normal
			if havePrev {
				shade = Classify(elev, prev)
			}
			dst[lx][lz] = Pack(s.blocks.Props(col.Block(colorY)).MapColor, shade)
			prev, havePrev = elev, true
		}
	}
}

// mustColumn treats an unloaded column as a caller bug: in-window tiles are
// always loaded by the host.
func (s *Sampler) mustColumn(x, z int) Column {
	col := s.world.Column(x, z)
	if col == nil {
		panic(fmt.Sprintf("surface: column (%d, %d) is not loaded", x, z))
	}
	return col
}
