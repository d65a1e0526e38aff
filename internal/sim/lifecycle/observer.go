package lifecycle

import (
	"sync"

	"dashmap.ai/internal/sim/mathx"
	"dashmap.ai/internal/sim/tile"
)

// ObserverState is the observer as of the latest tick. Heading is in degrees.
type ObserverState struct {
	X, Y, Z float64
	EyeY    float64
	Heading float64
}

func (o ObserverState) Tile() tile.Coord {
	return tile.Containing(mathx.FloorInt(o.X), mathx.FloorInt(o.Z))
}

// Tracker shares the latest observer state between the tick and render
// goroutines. It also serves as the sampler's eye height source.
type Tracker struct {
	mu  sync.RWMutex
	cur ObserverState
}

func (t *Tracker) Update(o ObserverState) {
	t.mu.Lock()
	t.cur = o
	t.mu.Unlock()
}

func (t *Tracker) Current() ObserverState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cur
}

func (t *Tracker) EyeY() float64 {
	return t.Current().EyeY
}
