package worldgen

import "dashmap.ai/internal/sim/mathx"

const (
	BiomePlains = "PLAINS"
	BiomeForest = "FOREST"
	BiomeDesert = "DESERT"
)

func BiomeFrom(noise uint64) string {
	switch noise % 3 {
	case 0:
		return BiomePlains
	case 1:
		return BiomeForest
	default:
		return BiomeDesert
	}
}

func BiomeAt(seed int64, x, z, regionSize int) string {
	if regionSize <= 0 {
		regionSize = 1
	}
	rx := mathx.FloorDiv(x, regionSize)
	rz := mathx.FloorDiv(z, regionSize)
	return BiomeFrom(mathx.Hash2(seed, rx, rz))
}

func WithinSpawnClear(x, z, radius int) bool {
	if radius <= 0 {
		return false
	}
	r := int64(radius)
	dx := int64(x)
	dz := int64(z)
	return dx*dx+dz*dz <= r*r
}

// ClusterCenter reports the center of the cluster covering (x, z), if any.
// Each grid cell holds at most one cluster with probability probPermille.
func ClusterCenter(seed int64, x, z, grid, radius int, probPermille uint64) (cx, cz int, ok bool) {
	if grid <= 0 || radius < 0 || probPermille == 0 {
		return 0, 0, false
	}
	gx := mathx.FloorDiv(x, grid)
	gz := mathx.FloorDiv(z, grid)
	r2 := radius * radius

	for dz := -1; dz <= 1; dz++ {
		for dx := -1; dx <= 1; dx++ {
			cgx := gx + dx
			cgz := gz + dz
			h := mathx.Hash2(seed, cgx, cgz)
			if h%1000 >= probPermille {
				continue
			}

			ox := int((h >> 10) % uint64(grid))
			oz := int((h >> 20) % uint64(grid))
			cx := cgx*grid + ox
			cz := cgz*grid + oz

			ddx := x - cx
			ddz := z - cz
			if ddx*ddx+ddz*ddz <= r2 {
				return cx, cz, true
			}
		}
	}
	return 0, 0, false
}

func InCluster(seed int64, x, z, grid, radius int, probPermille uint64) bool {
	_, _, ok := ClusterCenter(seed, x, z, grid, radius, probPermille)
	return ok
}

// ValueNoise is smoothed lattice noise in [0, 1) with lattice spacing cell.
func ValueNoise(seed int64, x, z, cell int) float64 {
	if cell <= 1 {
		return mathx.Unit2(seed, x, z)
	}
	gx := mathx.FloorDiv(x, cell)
	gz := mathx.FloorDiv(z, cell)
	fx := smooth(float64(mathx.Mod(x, cell)) / float64(cell))
	fz := smooth(float64(mathx.Mod(z, cell)) / float64(cell))

	a := mathx.Unit2(seed, gx, gz)
	b := mathx.Unit2(seed, gx+1, gz)
	c := mathx.Unit2(seed, gx, gz+1)
	d := mathx.Unit2(seed, gx+1, gz+1)
	return lerp(lerp(a, b, fx), lerp(c, d, fx), fz)
}

func smooth(t float64) float64 { return t * t * (3 - 2*t) }

func lerp(a, b, t float64) float64 { return a + (b-a)*t }
