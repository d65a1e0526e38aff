package terrainstore

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"dashmap.ai/internal/sim/tile"
)

func testTile(c tile.Coord, minY, height int) Tile {
	t := Tile{Coord: c, MinY: minY, Height: height, Blocks: make([]uint16, tile.Size*tile.Size*height)}
	for lz := 0; lz < tile.Size; lz++ {
		for lx := 0; lx < tile.Size; lx++ {
			base := (lx + lz*tile.Size) * height
			top := 4 + (lx+lz)%5
			for i := 0; i <= top; i++ {
				t.Blocks[base+i] = 3
			}
			t.Blocks[base+top] = uint16(5 + lx%3)
		}
	}
	return t
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "terrain.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	meta := Meta{Seed: 42, MinY: -8, MaxY: 24, PaletteDigest: "abc"}
	if err := s.SetMeta(ctx, meta); err != nil {
		t.Fatalf("SetMeta: %v", err)
	}
	in := testTile(tile.Coord{X: -2, Z: 3}, -8, 32)
	if err := s.PutTile(ctx, in); err != nil {
		t.Fatalf("PutTile: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if s.Meta() != meta {
		t.Fatalf("meta=%+v want %+v", s.Meta(), meta)
	}
	out, err := s.GetTile(ctx, in.Coord)
	if err != nil {
		t.Fatalf("GetTile: %v", err)
	}
	if out.MinY != in.MinY || out.Height != in.Height || len(out.Blocks) != len(in.Blocks) {
		t.Fatalf("shape mismatch: %+v", out.Coord)
	}
	for i := range in.Blocks {
		if out.Blocks[i] != in.Blocks[i] {
			t.Fatalf("block %d: got %d want %d", i, out.Blocks[i], in.Blocks[i])
		}
	}
	stored, err := s.StoredTiles(ctx)
	if err != nil || len(stored) != 1 || stored[0] != in.Coord {
		t.Fatalf("StoredTiles=%v err=%v", stored, err)
	}
}

func TestStore_LoadServesColumns(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "terrain.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	if err := s.SetMeta(ctx, Meta{MinY: 0, MaxY: 16}); err != nil {
		t.Fatalf("SetMeta: %v", err)
	}
	c := tile.Coord{X: 1, Z: 0}
	if err := s.PutTile(ctx, testTile(c, 0, 16)); err != nil {
		t.Fatalf("PutTile: %v", err)
	}

	if s.Column(20, 3) != nil {
		t.Fatalf("column of an unloaded tile should be nil")
	}
	if err := s.Load(ctx, c); err != nil {
		t.Fatalf("Load: %v", err)
	}
	// (20, 3) is local (4, 3): top = 4 + 7%5 = 6, block 5 + 4%3 = 6.
	col := s.Column(20, 3)
	if col == nil {
		t.Fatalf("column of a loaded tile is nil")
	}
	if col.SurfaceY() != 7 || col.Block(6) != 6 || col.Block(0) != 3 || col.Block(7) != 0 {
		t.Fatalf("unexpected column: surface=%d top=%d", col.SurfaceY(), col.Block(6))
	}
	if col.Block(-1) != 0 || col.Block(99) != 0 {
		t.Fatalf("out-of-range heights should read as air")
	}
	if s.HasCeiling() || s.MinBuildHeight() != 0 || s.MaxBuildHeight() != 16 {
		t.Fatalf("meta not served through the world interface")
	}
	if got := s.Loaded(); len(got) != 1 || got[0] != c {
		t.Fatalf("Loaded=%v", got)
	}
	if !s.Unload(c) || s.Unload(c) || s.IsLoaded(c) {
		t.Fatalf("Unload should succeed exactly once")
	}
	if s.Column(20, 3) != nil {
		t.Fatalf("column still served after Unload")
	}
}

func TestStore_Errors(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "terrain.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if err := s.Load(ctx, tile.Coord{X: 9, Z: 9}); !errors.Is(err, ErrTileNotStored) {
		t.Fatalf("Load of missing tile: %v", err)
	}
	if err := s.SetMeta(ctx, Meta{MinY: 4, MaxY: 4}); err == nil {
		t.Fatalf("expected error for empty build range")
	}
	bad := testTile(tile.Coord{}, 0, 8)
	bad.Blocks = bad.Blocks[:10]
	if err := s.PutTile(ctx, bad); err == nil {
		t.Fatalf("expected error for short block slice")
	}

	if err := s.PutTile(ctx, testTile(tile.Coord{}, 0, 8)); err != nil {
		t.Fatalf("PutTile: %v", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec(`UPDATE tiles SET digest='x' WHERE tx=0 AND tz=0`); err != nil {
		t.Fatalf("corrupt digest: %v", err)
	}
	if _, err := s.GetTile(ctx, tile.Coord{}); err == nil {
		t.Fatalf("expected digest mismatch")
	}
	if _, err := Open(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
