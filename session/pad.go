// Package session ties a drawing surface to a model: the Pad exposes the
// drawing operations, and State/Reduce keep what the playground shows.
package session

import (
	"sync"
	"time"

	"github.com/bbernhard/mnist-playground/preprocess"
	"github.com/bbernhard/mnist-playground/sketch"
)

// AutoRunDelay is how long drawing has to pause before the model runs.
const AutoRunDelay = 500 * time.Millisecond

// Pad is the whole drawing surface as plain calls. It is safe to use from
// event handlers and the auto-run timer at the same time.
type Pad struct {
	mu         sync.Mutex
	renderer   *sketch.Renderer
	generation uint64
	auto       *Debouncer
	run        RunFunc
}

// RunFunc gets a normalized snapshot together with the generation of the
// drawing it was taken from.
type RunFunc func(v preprocess.Vector, generation uint64)

// NewPad creates a pad for a viewport of the given width. When run is not nil
// it gets the normalized vector every time drawing pauses for delay.
func NewPad(viewportWidth int, delay time.Duration, run RunFunc) *Pad {
	p := &Pad{
		renderer: sketch.NewRenderer(sketch.NewSurface(), sketch.BrushWidthFor(viewportWidth)),
		run:      run,
	}
	if run != nil && delay > 0 {
		p.auto = NewDebouncer(delay)
		p.renderer.OnStrokeEnd(func() {
			p.auto.Arm(p.autoRun)
		})
	}
	return p
}

// BeginStroke starts a stroke and returns the generation of the drawing it
// belongs to. Every stroke starts a new generation.
func (p *Pad) BeginStroke(pt sketch.Point) uint64 {
	p.cancelAuto()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.generation++
	p.renderer.BeginStroke(pt)
	return p.generation
}

func (p *Pad) ExtendStroke(pt sketch.Point) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.renderer.ExtendStroke(pt)
}

func (p *Pad) EndStroke() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.renderer.EndStroke()
}

// Clear wipes the surface and returns the new generation.
func (p *Pad) Clear() uint64 {
	p.cancelAuto()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.generation++
	p.renderer.Clear()
	return p.generation
}

// Normalize snapshots the current drawing as a model input.
func (p *Pad) Normalize() preprocess.Vector {
	v, _ := p.Snapshot()
	return v
}

// Snapshot is Normalize plus the generation the vector belongs to, taken
// atomically.
func (p *Pad) Snapshot() (preprocess.Vector, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return preprocess.Normalize(p.renderer.Surface()), p.generation
}

func (p *Pad) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generation
}

// RunNow runs the model immediately, replacing any pending auto-run.
func (p *Pad) RunNow() {
	p.cancelAuto()
	if p.run != nil {
		p.run(p.Snapshot())
	}
}

// AutoRunPending reports whether an auto-run is scheduled.
func (p *Pad) AutoRunPending() bool {
	return p.auto != nil && p.auto.Pending()
}

// Renderer exposes the underlying renderer; callers must not use it
// concurrently with the pad.
func (p *Pad) Renderer() *sketch.Renderer {
	return p.renderer
}

func (p *Pad) autoRun() {
	p.run(p.Snapshot())
}

func (p *Pad) cancelAuto() {
	if p.auto != nil {
		p.auto.Cancel()
	}
}
