package lab

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/packing.report/internal/config"
	"github.com/banshee-data/packing.report/internal/physics"
)

// restingWorld drops every particle straight onto the container floor on
// Advance, nudged inward so nothing is ever eliminated.
type restingWorld struct {
	mu       sync.Mutex
	size     float64
	reg      *physics.Registry[physics.Body]
	gravity  r3.Vec
	advanced time.Duration
	// onAdvance, when set, runs after every Advance without the lock held.
	onAdvance func()
}

func newRestingWorld(size float64) *restingWorld {
	return &restingWorld{size: size, reg: physics.NewRegistry[physics.Body]()}
}

func (w *restingWorld) Spawn(b physics.Body) physics.Handle {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reg.Insert(b.Tag, b)
}

func (w *restingWorld) Remove(h physics.Handle) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reg.Remove(h)
}

func (w *restingWorld) ApplyImpulse(physics.Handle, r3.Vec) {}

func (w *restingWorld) Position(h physics.Handle) (r3.Vec, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.reg.Get(h)
	if !ok {
		return r3.Vec{}, false
	}
	return b.Position, true
}

func (w *restingWorld) Enumerate(tag physics.Tag) []physics.Handle {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reg.Tagged(tag)
}

func (w *restingWorld) SetGravity(g r3.Vec) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.gravity = g
}

func (w *restingWorld) Advance(d time.Duration) {
	w.mu.Lock()
	w.advanced += d
	half := w.size / 2
	w.reg.Each(func(_ physics.Handle, tag physics.Tag, b *physics.Body) {
		if tag == physics.TagSlide {
			return
		}
		lim := half - b.Radius
		b.Position.X = min(max(b.Position.X, -lim), lim)
		b.Position.Z = min(max(b.Position.Z, -lim), lim)
		b.Position.Y = b.Radius
	})
	hook := w.onAdvance
	w.mu.Unlock()

	if hook != nil {
		hook()
	}
}

var _ physics.World = (*restingWorld)(nil)

// worlds hands out resting worlds and remembers the last one.
type worlds struct {
	mu        sync.Mutex
	last      *restingWorld
	made      int
	onAdvance func()
}

func (f *worlds) factory(e config.ExperimentConfig) physics.World {
	f.mu.Lock()
	defer f.mu.Unlock()
	w := newRestingWorld(e.ContainerSize)
	w.onAdvance = f.onAdvance
	f.last = w
	f.made++
	return w
}
