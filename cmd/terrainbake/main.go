package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"dashmap.ai/internal/persistence/terrainstore"
	"dashmap.ai/internal/sim/catalogs"
	"dashmap.ai/internal/sim/tile"
	"dashmap.ai/internal/sim/worldgen"
)

func main() {
	var (
		configDir = flag.String("configs", "./configs", "config directory")
		outPath   = flag.String("out", "./data/terrain.db", "terrain sqlite to write")
		seed      = flag.Int64("seed", 1337, "world seed")
		ceiling   = flag.Bool("ceiling", false, "bake a cavern world with a ceiling")
		radius    = flag.Int("radius", 12, "tiles to bake around the center in each direction")
		centerX   = flag.Int("tx", 0, "center tile x")
		centerZ   = flag.Int("tz", 0, "center tile z")
		workers   = flag.Int("workers", 4, "concurrent tile writers")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[terrainbake] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}
	pal, err := worldgen.PaletteFrom(&cats.Blocks)
	if err != nil {
		logger.Fatalf("palette: %v", err)
	}
	cfg := worldgen.DefaultConfig(*seed, *ceiling)
	w, err := worldgen.New(cfg, pal)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}

	st, err := terrainstore.Open(*outPath)
	if err != nil {
		logger.Fatalf("open %s: %v", *outPath, err)
	}
	defer st.Close()

	ctx := context.Background()
	if err := st.SetMeta(ctx, terrainstore.Meta{
		Seed:          cfg.Seed,
		HasCeiling:    cfg.Ceiling,
		MinY:          cfg.MinY,
		MaxY:          cfg.MaxY,
		PaletteDigest: cats.Blocks.PaletteDigest,
	}); err != nil {
		logger.Fatalf("meta: %v", err)
	}

	start := time.Now()
	tiles := tile.Square(tile.Coord{X: *centerX, Z: *centerZ}, *radius)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(*workers, 1))
	for _, c := range tiles {
		g.Go(func() error {
			ch := w.Chunk(c)
			// Baked tiles are independent; drop the generated chunk right away.
			w.Unload(c)
			return st.PutTile(gctx, terrainstore.Tile{
				Coord:  ch.Tile,
				MinY:   ch.MinY,
				Height: ch.Height,
				Blocks: ch.Blocks,
			})
		})
	}
	if err := g.Wait(); err != nil {
		logger.Fatalf("bake: %v", err)
	}
	logger.Printf("baked tiles=%d seed=%d ceiling=%v path=%s took=%s", len(tiles), cfg.Seed, cfg.Ceiling, *outPath, time.Since(start).Round(time.Millisecond))
}
