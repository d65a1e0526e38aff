package worldgen

import (
	"path/filepath"
	"testing"

	"dashmap.ai/internal/sim/catalogs"
	"dashmap.ai/internal/sim/surface"
	"dashmap.ai/internal/sim/tile"
)

func loadCatalog(t *testing.T) *catalogs.BlockCatalog {
	t.Helper()
	cats, err := catalogs.Load(filepath.Join("..", "..", "..", "configs"))
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	return &cats.Blocks
}

func newWorld(t *testing.T, cfg Config) (*World, *catalogs.BlockCatalog) {
	t.Helper()
	bc := loadCatalog(t)
	pal, err := PaletteFrom(bc)
	if err != nil {
		t.Fatalf("palette: %v", err)
	}
	w, err := New(cfg, pal)
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	return w, bc
}

func TestDeterministic(t *testing.T) {
	a, _ := newWorld(t, DefaultConfig(42, false))
	b, _ := newWorld(t, DefaultConfig(42, false))
	for _, c := range []tile.Coord{{X: 0, Z: 0}, {X: 9, Z: -4}, {X: -30, Z: 17}} {
		if a.Chunk(c).Digest() != b.Chunk(c).Digest() {
			t.Fatalf("chunk %v differs between worlds with the same seed", c)
		}
	}
	other, _ := newWorld(t, DefaultConfig(43, false))
	if a.Chunk(tile.Coord{X: 9, Z: -4}).Digest() == other.Chunk(tile.Coord{X: 9, Z: -4}).Digest() {
		t.Fatalf("different seeds produced the same chunk")
	}
}

func TestSurfaceMatchesBlocks(t *testing.T) {
	w, _ := newWorld(t, DefaultConfig(7, false))
	for x := 40; x < 56; x++ {
		col := w.Column(x, 200)
		top := col.SurfaceY()
		if col.Block(top-1) == 0 {
			t.Fatalf("x=%d: block under SurfaceY %d is air", x, top)
		}
		for y := top; y < w.MaxBuildHeight(); y++ {
			if col.Block(y) != 0 {
				t.Fatalf("x=%d: non-air block at %d above SurfaceY %d", x, y, top)
			}
		}
	}
}

func TestSpawnClearIsFlatGrass(t *testing.T) {
	cfg := DefaultConfig(99, false)
	w, bc := newWorld(t, cfg)
	s := surface.NewSampler(w, bc, nil, surface.Config{})

	var colors surface.TileColors
	s.SampleTile(tile.Coord{}, &colors)
	want := surface.Pack(bc.Props(bc.MustID("GRASS_BLOCK")).MapColor, surface.Normal)
	for lx := 0; lx < tile.Size; lx++ {
		for lz := 0; lz < tile.Size; lz++ {
			if colors[lx][lz] != want {
				t.Fatalf("cell (%d,%d)=%08x want %08x", lx, lz, uint32(colors[lx][lz]), uint32(want))
			}
			if y := s.TopY(w.Column(lx, lz)); y != cfg.SeaLevel+2 {
				t.Fatalf("cell (%d,%d) top=%d want %d", lx, lz, y, cfg.SeaLevel+2)
			}
		}
	}
}

func TestSetBlockUpdatesSurfaceAndDigest(t *testing.T) {
	cfg := DefaultConfig(5, false)
	w, bc := newWorld(t, cfg)
	before := w.Chunk(tile.Coord{}).Digest()

	marker := bc.MustID("MARKER")
	y := cfg.SeaLevel + 10
	if !w.SetBlock(3, y, 4, marker) {
		t.Fatalf("SetBlock reported no change")
	}
	if w.SetBlock(3, y, 4, marker) {
		t.Fatalf("second identical SetBlock reported a change")
	}
	if got := w.Column(3, 4).SurfaceY(); got != y+1 {
		t.Fatalf("SurfaceY=%d want %d", got, y+1)
	}
	if w.Block(3, y, 4) != marker {
		t.Fatalf("Block did not return the marker")
	}
	if w.Chunk(tile.Coord{}).Digest() == before {
		t.Fatalf("digest unchanged after edit")
	}
	if w.SetBlock(3, cfg.MaxY, 4, marker) {
		t.Fatalf("SetBlock above the build range should be refused")
	}
}

func TestUnloadDropsEdits(t *testing.T) {
	w, bc := newWorld(t, DefaultConfig(5, false))
	w.SetBlock(1, 100, 1, bc.MustID("MARKER"))
	if got := w.LoadedTiles(); len(got) != 1 || got[0] != (tile.Coord{}) {
		t.Fatalf("loaded=%v", got)
	}
	if !w.Unload(tile.Coord{}) || w.Unload(tile.Coord{}) {
		t.Fatalf("Unload should succeed exactly once")
	}
	if w.Block(1, 100, 1) != 0 {
		t.Fatalf("edit survived unload")
	}
}

func TestCavernHasCeiling(t *testing.T) {
	cfg := DefaultConfig(3, true)
	w, bc := newWorld(t, cfg)
	if !w.HasCeiling() {
		t.Fatalf("cavern world should report a ceiling")
	}
	col := w.Column(10, -20)
	if col.Block(cfg.MaxY-1) != bc.MustID("BEDROCK") || col.Block(cfg.MinY) != bc.MustID("BEDROCK") {
		t.Fatalf("cavern should be sealed with bedrock")
	}
	if col.SurfaceY() != cfg.MaxY {
		t.Fatalf("SurfaceY=%d want %d", col.SurfaceY(), cfg.MaxY)
	}

	// Probing from inside the open cavern must land below the roof.
	s := surface.NewSampler(w, bc, eye(float64(cfg.SeaLevel+8)), surface.Config{CeilingProbeOffset: 3})
	if y := s.TopY(col); y >= cfg.MaxY-28-14 {
		t.Fatalf("TopY=%d reached the roof", y)
	}
}

func TestNewRejectsEmptyRange(t *testing.T) {
	if _, err := New(Config{MinY: 10, MaxY: 10}, Palette{}); err == nil {
		t.Fatalf("expected error for empty build range")
	}
}

func TestClusterAndBiome(t *testing.T) {
	if !WithinSpawnClear(3, 4, 5) || WithinSpawnClear(4, 4, 5) {
		t.Fatalf("spawn clear radius check")
	}
	if WithinSpawnClear(0, 0, 0) {
		t.Fatalf("zero radius should never clear")
	}
	switch b := BiomeAt(1, 10, 10, 0); b {
	case BiomePlains, BiomeForest, BiomeDesert:
	default:
		t.Fatalf("unexpected biome %q", b)
	}
	if InCluster(1, 0, 0, 16, 3, 0) {
		t.Fatalf("zero probability should never cluster")
	}
	if v := ValueNoise(11, -5, 9, 8); v < 0 || v >= 1 {
		t.Fatalf("noise out of range: %v", v)
	}
}

type eye float64

func (e eye) EyeY() float64 { return float64(e) }
