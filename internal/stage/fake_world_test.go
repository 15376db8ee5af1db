package stage

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/packing.report/internal/physics"
)

type fakeBody struct {
	body     physics.Body
	impulses []r3.Vec
}

// fakeWorld keeps bodies where they were spawned and records every call.
type fakeWorld struct {
	mu       sync.Mutex
	reg      *physics.Registry[fakeBody]
	gravity  r3.Vec
	advanced []time.Duration
	spawned  int
	removed  int
	// settle, when set, moves every particle on Advance
	settle func(b *physics.Body)
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{reg: physics.NewRegistry[fakeBody]()}
}

func (w *fakeWorld) Spawn(b physics.Body) physics.Handle {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.spawned++
	return w.reg.Insert(b.Tag, fakeBody{body: b})
}

func (w *fakeWorld) Remove(h physics.Handle) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.reg.Remove(h) {
		w.removed++
	}
}

func (w *fakeWorld) ApplyImpulse(h physics.Handle, impulse r3.Vec) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if b, ok := w.reg.Get(h); ok {
		b.impulses = append(b.impulses, impulse)
	}
}

func (w *fakeWorld) Position(h physics.Handle) (r3.Vec, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.reg.Get(h)
	if !ok {
		return r3.Vec{}, false
	}
	return b.body.Position, true
}

func (w *fakeWorld) Enumerate(tag physics.Tag) []physics.Handle {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reg.Tagged(tag)
}

func (w *fakeWorld) SetGravity(g r3.Vec) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.gravity = g
}

func (w *fakeWorld) Advance(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.advanced = append(w.advanced, d)
	if w.settle == nil {
		return
	}
	w.reg.Each(func(_ physics.Handle, tag physics.Tag, b *fakeBody) {
		if tag != physics.TagSlide {
			w.settle(&b.body)
		}
	})
}

func (w *fakeWorld) impulses(h physics.Handle) []r3.Vec {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.reg.Get(h)
	if !ok {
		return nil
	}
	return b.impulses
}

var _ physics.World = (*fakeWorld)(nil)
