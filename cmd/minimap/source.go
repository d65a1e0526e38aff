package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"time"

	"dashmap.ai/internal/persistence/terrainstore"
	"dashmap.ai/internal/sim/catalogs"
	"dashmap.ai/internal/sim/lifecycle"
	"dashmap.ai/internal/sim/mathx"
	"dashmap.ai/internal/sim/surface"
	"dashmap.ai/internal/sim/tile"
	"dashmap.ai/internal/sim/worldgen"
)

// source plays the host engine: it owns terrain loading and emits unload and
// block change events.
type source interface {
	World() surface.World
	// Ensure loads every tile the window around center can sample.
	Ensure(ctx context.Context, center tile.Coord, radius int) error
	// Stream unloads tiles that drifted far from the observer until ctx ends.
	Stream(ctx context.Context, h *lifecycle.Handler, tr *lifecycle.Tracker, radius int) error
	PlaceMarkers(ctx context.Context, h *lifecycle.Handler, tr *lifecycle.Tracker, every time.Duration) error
	Close() error
}

const (
	unloadInterval = 500 * time.Millisecond
	// Tiles further than radius+unloadSlack from the observer are unloaded.
	unloadSlack = 2
)

func openSource(terrainPath string, seed int64, ceiling bool, cats *catalogs.Catalogs) (source, error) {
	if terrainPath != "" {
		st, err := terrainstore.Open(terrainPath)
		if err != nil {
			return nil, err
		}
		meta := st.Meta()
		if meta.MaxY <= meta.MinY {
			_ = st.Close()
			return nil, fmt.Errorf("%s has no terrain meta; bake it with terrainbake", terrainPath)
		}
		if meta.PaletteDigest != "" && meta.PaletteDigest != cats.Blocks.PaletteDigest {
			_ = st.Close()
			return nil, fmt.Errorf("%s was baked with a different block palette", terrainPath)
		}
		return &storeSource{store: st}, nil
	}

	pal, err := worldgen.PaletteFrom(&cats.Blocks)
	if err != nil {
		return nil, err
	}
	w, err := worldgen.New(worldgen.DefaultConfig(seed, ceiling), pal)
	if err != nil {
		return nil, err
	}
	return &genSource{world: w, marker: cats.Blocks.MustID("MARKER")}, nil
}

type genSource struct {
	world  *worldgen.World
	marker uint16
}

func (s *genSource) World() surface.World { return s.world }

// Ensure is a no-op: generated chunks appear on first access.
func (s *genSource) Ensure(context.Context, tile.Coord, int) error { return nil }

func (s *genSource) Stream(ctx context.Context, h *lifecycle.Handler, tr *lifecycle.Tracker, radius int) error {
	return repeat(ctx, unloadInterval, func() {
		center := tr.Current().Tile()
		for _, c := range s.world.LoadedTiles() {
			if c.Chebyshev(center) > radius+unloadSlack && s.world.Unload(c) {
				h.OnChunkUnload(c)
			}
		}
	})
}

// PlaceMarkers drops a marker block on the surface near the observer on
// every interval.
func (s *genSource) PlaceMarkers(ctx context.Context, h *lifecycle.Handler, tr *lifecycle.Tracker, interval time.Duration) error {
	n := 0
	return repeat(ctx, interval, func() {
		obs := tr.Current()
		r := mathx.Hash2(s.world.Config().Seed, n, n*7)
		n++
		x := mathx.FloorInt(obs.X) + int(r%33) - 16
		z := mathx.FloorInt(obs.Z) + int((r>>8)%33) - 16
		y := s.world.Column(x, z).SurfaceY()
		if s.world.SetBlock(x, y, z, s.marker) {
			h.OnBlockChange(x, y, z)
		}
	})
}

func (s *genSource) Close() error { return nil }

type storeSource struct {
	store *terrainstore.Store
}

func (s *storeSource) World() surface.World { return s.store }

func (s *storeSource) Ensure(ctx context.Context, center tile.Coord, radius int) error {
	for _, c := range tile.Square(center, radius+1) {
		if s.store.IsLoaded(c) {
			continue
		}
		if err := s.store.Load(ctx, c); err != nil {
			if errors.Is(err, terrainstore.ErrTileNotStored) {
				return fmt.Errorf("observer walked off the baked area: %w", err)
			}
			return err
		}
	}
	return nil
}

func (s *storeSource) Stream(ctx context.Context, h *lifecycle.Handler, tr *lifecycle.Tracker, radius int) error {
	return repeat(ctx, unloadInterval, func() {
		center := tr.Current().Tile()
		for _, c := range s.store.Loaded() {
			if c.Chebyshev(center) > radius+unloadSlack && s.store.Unload(c) {
				h.OnChunkUnload(c)
			}
		}
	})
}

// PlaceMarkers does nothing: baked terrain is read-only.
func (s *storeSource) PlaceMarkers(context.Context, *lifecycle.Handler, *lifecycle.Tracker, time.Duration) error {
	return nil
}

func (s *storeSource) Close() error { return s.store.Close() }

func repeat(ctx context.Context, d time.Duration, fn func()) error {
	t := time.NewTicker(d)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			fn()
		}
	}
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
