package tile

import (
	"fmt"
	"sort"

	"dashmap.ai/internal/sim/mathx"
)

// Size is the edge length of a tile in blocks.
const Size = 16

// Coord identifies a Size x Size column of the world-aligned grid.
type Coord struct {
	X int
	Z int
}

func Containing(wx, wz int) Coord {
	return Coord{X: mathx.FloorDiv(wx, Size), Z: mathx.FloorDiv(wz, Size)}
}

// Local returns the in-tile offset of a world block.
func Local(wx, wz int) (lx, lz int) {
	return mathx.Mod(wx, Size), mathx.Mod(wz, Size)
}

func (c Coord) MinBlockX() int { return c.X * Size }
func (c Coord) MinBlockZ() int { return c.Z * Size }

// Block returns the world coordinates of the in-tile offset (lx, lz).
func (c Coord) Block(lx, lz int) (wx, wz int) {
	return c.X*Size + lx, c.Z*Size + lz
}

func (c Coord) Offset(dx, dz int) Coord {
	return Coord{X: c.X + dx, Z: c.Z + dz}
}

// Chebyshev is the ring distance between two tiles.
func (c Coord) Chebyshev(o Coord) int {
	dx := mathx.AbsInt(c.X - o.X)
	dz := mathx.AbsInt(c.Z - o.Z)
	if dx > dz {
		return dx
	}
	return dz
}

func (c Coord) String() string {
	return fmt.Sprintf("[%d, %d]", c.X, c.Z)
}

// Sort orders coords by X then Z.
func Sort(keys []Coord) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].X != keys[j].X {
			return keys[i].X < keys[j].X
		}
		return keys[i].Z < keys[j].Z
	})
}

// Square lists the (2*radius+1)^2 tiles around center, x fastest.
func Square(center Coord, radius int) []Coord {
	if radius < 0 {
		return nil
	}
	dim := 2*radius + 1
	out := make([]Coord, 0, dim*dim)
	for dz := -radius; dz <= radius; dz++ {
		for dx := -radius; dx <= radius; dx++ {
			out = append(out, center.Offset(dx, dz))
		}
	}
	return out
}
