package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"log"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gogpu/gg"
	"golang.org/x/sync/errgroup"

	"dashmap.ai/internal/render/compositor"
	"dashmap.ai/internal/sim/catalogs"
	"dashmap.ai/internal/sim/lifecycle"
	"dashmap.ai/internal/sim/mathx"
	"dashmap.ai/internal/sim/raster"
	"dashmap.ai/internal/sim/surface"
	"dashmap.ai/internal/sim/tuning"
	"dashmap.ai/internal/sim/window"
)

func main() {
	var (
		configDir   = flag.String("configs", "./configs", "config directory")
		tuningPath  = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		terrainPath = flag.String("terrain", "", "baked terrain sqlite (empty: generate terrain on the fly)")
		seed        = flag.Int64("seed", 1337, "world seed for generated terrain")
		ceiling     = flag.Bool("ceiling", false, "generate a cavern world with a ceiling")
		ticks       = flag.Int("ticks", 200, "ticks to simulate before exiting")
		outDir      = flag.String("out", "./data/frames", "directory for rendered PNG frames (empty to disable)")
		every       = flag.Int("every", 10, "save every Nth frame")
		markers     = flag.Duration("markers", 2*time.Second, "interval between marker block edits (0 to disable; generated terrain only)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[minimap] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}
	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	src, err := openSource(*terrainPath, *seed, *ceiling, cats)
	if err != nil {
		logger.Fatalf("terrain: %v", err)
	}
	defer src.Close()

	tracker := &lifecycle.Tracker{}
	sampler := surface.NewSampler(src.World(), &cats.Blocks, tracker, surface.Config{
		CeilingProbeOffset: tune.Map.CeilingProbeOffset,
	})
	mgr := window.New(window.Config{
		Radius:             tune.Map.RadiusTiles,
		MaxTilesPerRebuild: tune.Map.MaxTilesPerRebuild,
	}, sampler, logger)
	comp, err := compositor.New(compositor.StyleFrom(tune.Render))
	if err != nil {
		logger.Fatalf("compositor: %v", err)
	}
	defer comp.Close()
	h := lifecycle.New(mgr, tracker, comp, logger)

	if *outDir != "" {
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			logger.Fatalf("out dir: %v", err)
		}
		h.SetUploader(func(buf *raster.Buffer) {
			// Stand-in for a GPU texture upload: keep the latest raster on disk.
			buf.View(func(img *image.RGBA) {
				if err := savePNG(filepath.Join(*outDir, "raster.png"), img); err != nil {
					logger.Printf("upload: %v", err)
				}
			})
		})
	}

	ctx, cancel := signalContext()
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return runTicks(ctx, h, src, sampler, tune.Demo, *ticks)
	})
	g.Go(func() error {
		return runFrames(ctx, h, comp, tune.Demo, *outDir, *every, logger)
	})
	g.Go(func() error {
		return src.Stream(ctx, h, tracker, tune.Map.RadiusTiles)
	})
	if *markers > 0 {
		g.Go(func() error {
			return src.PlaceMarkers(ctx, h, tracker, *markers)
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("run: %v", err)
	}

	h.OnDisconnect()
	st := mgr.Stats()
	uploads, frames := h.Counters()
	logger.Printf("minimap done recenters=%d rebuilds=%d tiles=%d stale=%d carried=%d removed=%d uploads=%d frames=%d",
		st.RecentersTotal, st.RebuildsTotal, st.TilesWritten, st.StaleSkipped, st.CarriedForward, st.RemovedTotal, uploads, frames)
}

// runTicks walks the observer along a slowly turning path at the demo tick
// rate.
func runTicks(ctx context.Context, h *lifecycle.Handler, src source, sampler *surface.Sampler, demo tuning.DemoTuning, n int) error {
	w := src.World()
	obs := lifecycle.ObserverState{
		X:    0.5,
		Z:    0.5,
		EyeY: float64(w.MinBuildHeight()+w.MaxBuildHeight()) / 2,
	}
	t := time.NewTicker(time.Second / time.Duration(demo.TickRateHz))
	defer t.Stop()

	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
		if err := src.Ensure(ctx, obs.Tile(), h.Manager().Radius()); err != nil {
			return err
		}
		if col := w.Column(mathx.FloorInt(obs.X), mathx.FloorInt(obs.Z)); col != nil {
			obs.Y = float64(sampler.TopY(col) + 1)
			obs.EyeY = obs.Y + 1.62
		}
		h.OnTick(obs)

		obs.Heading = math.Mod(obs.Heading+0.4, 360)
		rad := obs.Heading * math.Pi / 180
		obs.X -= math.Sin(rad) * demo.Speed
		obs.Z += math.Cos(rad) * demo.Speed
	}
	return nil
}

func runFrames(ctx context.Context, h *lifecycle.Handler, comp *compositor.Compositor, demo tuning.DemoTuning, outDir string, every int, logger *log.Logger) error {
	dc := gg.NewContext(demo.CanvasSize, demo.CanvasSize)
	defer dc.Close()
	bg := gg.Hex("#1E1F22")
	cx, cy := comp.Placement(dc.Width())

	t := time.NewTicker(time.Second / time.Duration(demo.FrameRateHz))
	defer t.Stop()
	frame := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
		dc.ClearWithColor(bg)
		if err := h.OnFrame(dc, cx, cy); err != nil {
			return fmt.Errorf("frame %d: %w", frame, err)
		}
		if outDir != "" && every > 0 && frame%every == 0 {
			path := filepath.Join(outDir, fmt.Sprintf("frame_%05d.png", frame))
			if err := dc.SavePNG(path); err != nil {
				logger.Printf("save %s: %v", path, err)
			}
		}
		frame++
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
