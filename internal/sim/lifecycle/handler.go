// Package lifecycle maps host events onto the map window and the compositor.
package lifecycle

import (
	"log"
	"sync/atomic"

	"github.com/gogpu/gg"

	"dashmap.ai/internal/render/compositor"
	"dashmap.ai/internal/sim/raster"
	"dashmap.ai/internal/sim/tile"
	"dashmap.ai/internal/sim/window"
)

type Renderer interface {
	Render(dc *gg.Context, f compositor.Frame, cx, cy float64) error
}

type Handler struct {
	mgr      *window.Manager
	tracker  *Tracker
	renderer Renderer
	logger   *log.Logger

	// upload receives the raster when it changed since the last frame.
	upload func(*raster.Buffer)

	uploads atomic.Uint64
	frames  atomic.Uint64
}

func New(mgr *window.Manager, tracker *Tracker, renderer Renderer, logger *log.Logger) *Handler {
	return &Handler{mgr: mgr, tracker: tracker, renderer: renderer, logger: logger}
}

func (h *Handler) SetUploader(fn func(*raster.Buffer)) {
	h.upload = fn
}

func (h *Handler) Manager() *window.Manager { return h.mgr }

// OnTick runs once per client tick: follow the observer, then resample
// whatever is dirty. Returns the tiles written.
func (h *Handler) OnTick(obs ObserverState) int {
	h.tracker.Update(obs)
	h.mgr.Recenter(obs.Tile())
	return h.mgr.Rebuild()
}

func (h *Handler) OnChunkUnload(c tile.Coord) {
	h.mgr.RemoveChunkData(c)
}

// OnBlockChange dirties the tile holding the block. Changes before the first
// tick or outside the window are ignored.
func (h *Handler) OnBlockChange(wx, wy, wz int) bool {
	if !h.mgr.Ready() {
		return false
	}
	return h.mgr.MarkBlockDirty(wx, wz)
}

func (h *Handler) OnDisconnect() {
	h.mgr.ClearAll()
	h.printf("minimap disconnect uploads=%d frames=%d", h.uploads.Load(), h.frames.Load())
}

// OnFrame draws the map centered at (cx, cy). It draws nothing until the
// window exists.
func (h *Handler) OnFrame(dc *gg.Context, cx, cy float64) error {
	origin, ok := h.mgr.Origin()
	if !ok {
		return nil
	}
	buf := h.mgr.Raster()
	if buf.TakeChanged() {
		h.uploads.Add(1)
		if h.upload != nil {
			h.upload(buf)
		}
	}
	obs := h.tracker.Current()
	h.frames.Add(1)
	return h.renderer.Render(dc, compositor.Frame{
		Raster:  buf,
		Origin:  origin,
		X:       obs.X,
		Z:       obs.Z,
		Heading: obs.Heading,
	}, cx, cy)
}

// Counters returns uploads and drawn frames so far.
func (h *Handler) Counters() (uploads, frames uint64) {
	return h.uploads.Load(), h.frames.Load()
}

func (h *Handler) printf(format string, args ...any) {
	if h.logger != nil {
		h.logger.Printf(format, args...)
	}
}
