// Package worldgen generates a deterministic block world on demand. It stands
// in for a host engine's loaded terrain.
package worldgen

import (
	"fmt"
	"sync"

	"dashmap.ai/internal/sim/catalogs"
	"dashmap.ai/internal/sim/mathx"
	"dashmap.ai/internal/sim/surface"
	"dashmap.ai/internal/sim/tile"
)

type Config struct {
	Seed    int64
	Ceiling bool
	MinY    int
	MaxY    int // exclusive
	// SeaLevel is the water surface, or the lava surface in a ceiling world.
	SeaLevel         int
	BiomeRegionSize  int
	SpawnClearRadius int
}

func DefaultConfig(seed int64, ceiling bool) Config {
	if ceiling {
		return Config{Seed: seed, Ceiling: true, MinY: 0, MaxY: 128, SeaLevel: 31, BiomeRegionSize: 64}
	}
	return Config{Seed: seed, MinY: -16, MaxY: 112, SeaLevel: 48, BiomeRegionSize: 96, SpawnClearRadius: 24}
}

// Palette holds the block ids the generator places.
type Palette struct {
	Air        uint16
	Bedrock    uint16
	Stone      uint16
	Dirt       uint16
	Grass      uint16
	Sand       uint16
	Gravel     uint16
	Snow       uint16
	Log        uint16
	Leaves     uint16
	ShortGrass uint16
	TallGrass  uint16
	Water      uint16
	Lava       uint16
	Netherrack uint16
	SoulSand   uint16
	Glowstone  uint16
}

func PaletteFrom(bc *catalogs.BlockCatalog) (Palette, error) {
	var p Palette
	fields := []struct {
		name string
		dst  *uint16
	}{
		{"AIR", &p.Air},
		{"BEDROCK", &p.Bedrock},
		{"STONE", &p.Stone},
		{"DIRT", &p.Dirt},
		{"GRASS_BLOCK", &p.Grass},
		{"SAND", &p.Sand},
		{"GRAVEL", &p.Gravel},
		{"SNOW", &p.Snow},
		{"OAK_LOG", &p.Log},
		{"OAK_LEAVES", &p.Leaves},
		{"SHORT_GRASS", &p.ShortGrass},
		{"TALL_GRASS", &p.TallGrass},
		{"WATER", &p.Water},
		{"LAVA", &p.Lava},
		{"NETHERRACK", &p.Netherrack},
		{"SOUL_SAND", &p.SoulSand},
		{"GLOWSTONE", &p.Glowstone},
	}
	for _, f := range fields {
		id, ok := bc.ID(f.name)
		if !ok {
			return Palette{}, fmt.Errorf("worldgen: block catalog has no %s", f.name)
		}
		*f.dst = id
	}
	return p, nil
}

// World generates chunks lazily and keeps them until Unload. Edits made with
// SetBlock live in the chunk and are lost when it is unloaded.
type World struct {
	cfg Config
	pal Palette

	mu     sync.RWMutex
	chunks map[tile.Coord]*Chunk
}

func New(cfg Config, pal Palette) (*World, error) {
	if cfg.MaxY <= cfg.MinY {
		return nil, fmt.Errorf("worldgen: empty build range [%d, %d)", cfg.MinY, cfg.MaxY)
	}
	return &World{cfg: cfg, pal: pal, chunks: map[tile.Coord]*Chunk{}}, nil
}

func (w *World) Config() Config { return w.cfg }

func (w *World) HasCeiling() bool { return w.cfg.Ceiling }

func (w *World) MinBuildHeight() int { return w.cfg.MinY }

func (w *World) MaxBuildHeight() int { return w.cfg.MaxY }

// Column copies the column at (x, z), generating its chunk if needed.
func (w *World) Column(x, z int) surface.Column {
	lx, lz := tile.Local(x, z)
	w.mu.Lock()
	defer w.mu.Unlock()
	ch := w.chunkLocked(tile.Containing(x, z))
	blocks := make([]uint16, ch.Height)
	copy(blocks, ch.Column(lx, lz))
	return &surface.StaticColumn{MinY: ch.MinY, Blocks: blocks, Top: ch.SurfaceY(lx, lz)}
}

func (w *World) Block(x, y, z int) uint16 {
	lx, lz := tile.Local(x, z)
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.chunkLocked(tile.Containing(x, z)).Get(lx, y, lz)
}

// SetBlock reports whether the stored block changed.
func (w *World) SetBlock(x, y, z int, b uint16) bool {
	lx, lz := tile.Local(x, z)
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.chunkLocked(tile.Containing(x, z)).Set(lx, y, lz, b)
}

// Chunk returns a copy of tile c's chunk.
func (w *World) Chunk(c tile.Coord) *Chunk {
	w.mu.Lock()
	defer w.mu.Unlock()
	ch := w.chunkLocked(c)
	cp := *ch
	cp.Blocks = append([]uint16(nil), ch.Blocks...)
	return &cp
}

func (w *World) Unload(c tile.Coord) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.chunks[c]; !ok {
		return false
	}
	delete(w.chunks, c)
	return true
}

func (w *World) LoadedTiles() []tile.Coord {
	w.mu.RLock()
	keys := make([]tile.Coord, 0, len(w.chunks))
	for k := range w.chunks {
		keys = append(keys, k)
	}
	w.mu.RUnlock()
	tile.Sort(keys)
	return keys
}

func (w *World) chunkLocked(c tile.Coord) *Chunk {
	if ch, ok := w.chunks[c]; ok {
		return ch
	}
	ch := newChunk(c, w.cfg.MinY, w.cfg.MaxY-w.cfg.MinY)
	w.generate(ch)
	w.chunks[c] = ch
	return ch
}

func (w *World) generate(ch *Chunk) {
	for lz := 0; lz < tile.Size; lz++ {
		for lx := 0; lx < tile.Size; lx++ {
			wx, wz := ch.Tile.Block(lx, lz)
			col := ch.Column(lx, lz)
			if w.cfg.Ceiling {
				w.fillCavern(col, wx, wz)
			} else {
				w.fillOverworld(col, wx, wz)
			}
		}
	}
	ch.refreshAll()
	_ = ch.Digest()
}

// Height is the natural ground height at (x, z) of a ceiling-less world.
func (w *World) Height(x, z int) int {
	if WithinSpawnClear(x, z, w.cfg.SpawnClearRadius) {
		return w.cfg.SeaLevel + 2
	}
	broad := ValueNoise(w.cfg.Seed, x, z, 32)
	detail := ValueNoise(w.cfg.Seed+7, x, z, 8)
	h := w.cfg.SeaLevel - 6 + int(broad*22) + int(detail*4)
	return clampY(h, w.cfg.MinY+1, w.cfg.MaxY-8)
}

func (w *World) fillOverworld(col []uint16, x, z int) {
	cfg, p := w.cfg, w.pal
	put := func(y int, b uint16) {
		if i := y - cfg.MinY; i >= 0 && i < len(col) {
			col[i] = b
		}
	}
	h := w.Height(x, z)
	biome := BiomeAt(cfg.Seed, x, z, cfg.BiomeRegionSize)
	spawn := WithinSpawnClear(x, z, cfg.SpawnClearRadius)

	sub := p.Dirt
	if biome == BiomeDesert {
		sub = p.Sand
	}
	for y := cfg.MinY; y < h; y++ {
		switch {
		case y == cfg.MinY:
			put(y, p.Bedrock)
		case y <= h-4:
			put(y, p.Stone)
		default:
			put(y, sub)
		}
	}

	var top uint16
	switch {
	case spawn:
		top = p.Grass
	case h < cfg.SeaLevel:
		top = p.Sand
		if InCluster(cfg.Seed+204, x, z, 24, 5, 500) {
			top = p.Gravel
		}
	case h <= cfg.SeaLevel+1 || biome == BiomeDesert:
		top = p.Sand
	case h >= cfg.SeaLevel+14:
		top = p.Snow
	default:
		top = p.Grass
	}
	put(h, top)
	for y := h + 1; y <= cfg.SeaLevel; y++ {
		put(y, p.Water)
	}
	if top != p.Grass {
		return
	}
	if biome == BiomeForest && !spawn {
		if tx, tz, ok := ClusterCenter(cfg.Seed+201, x, z, 7, 1, 450); ok && !WithinSpawnClear(tx, tz, cfg.SpawnClearRadius) {
			th := w.Height(tx, tz)
			if tx == x && tz == z {
				for y := h + 1; y <= h+4; y++ {
					put(y, p.Log)
				}
				put(h+5, p.Leaves)
				return
			}
			if th+4 > h {
				put(th+4, p.Leaves)
				return
			}
		}
	}
	roll := mathx.Hash2(cfg.Seed+999, x, z) % 1000
	switch {
	case roll < 150:
		put(h+1, p.ShortGrass)
	case roll < 190:
		put(h+1, p.TallGrass)
		put(h+2, p.TallGrass)
	}
}

func (w *World) fillCavern(col []uint16, x, z int) {
	cfg, p := w.cfg, w.pal
	put := func(y int, b uint16) {
		if i := y - cfg.MinY; i >= 0 && i < len(col) {
			col[i] = b
		}
	}
	floor := cfg.SeaLevel - 6 + int(ValueNoise(cfg.Seed, x, z, 16)*14)
	roof := cfg.MaxY - 28 - int(ValueNoise(cfg.Seed+31, x, z, 12)*14)
	if roof <= floor+4 {
		roof = floor + 5
	}

	for y := cfg.MinY; y < cfg.MaxY; y++ {
		switch {
		case y == cfg.MinY || y == cfg.MaxY-1:
			put(y, p.Bedrock)
		case y <= floor || y >= roof:
			put(y, p.Netherrack)
		case y <= cfg.SeaLevel:
			put(y, p.Lava)
		}
	}
	if floor > cfg.SeaLevel && InCluster(cfg.Seed+301, x, z, 32, 5, 400) {
		put(floor, p.SoulSand)
	}
	if mathx.Hash2(cfg.Seed+302, x, z)%1000 < 40 {
		put(roof-1, p.Glowstone)
	}
}

func clampY(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
