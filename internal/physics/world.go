// Package physics defines the world the experiment drives and ships a
// small impulse-based sphere solver that implements it.
package physics

import (
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

// Tag labels bodies so they can be enumerated by role.
type Tag string

const (
	TagBig   Tag = "big"
	TagSmall Tag = "small"
	TagSlide Tag = "slide"
)

// Panel is a static rectangle in 3D. U and V are unit vectors spanning the
// plane, HalfU and HalfV its half extents along them.
type Panel struct {
	Center r3.Vec
	Normal r3.Vec
	U, V   r3.Vec
	HalfU  float64
	HalfV  float64
}

// Body describes something to place in the world. A body with a Panel is
// static and ignores Radius and Mass.
type Body struct {
	Tag         Tag
	Radius      float64
	Mass        float64
	Restitution float64
	Friction    float64
	Position    r3.Vec
	Panel       *Panel
}

// World is the physics surface the experiment needs. Calls reflect the
// state of the world at the time of the call.
type World interface {
	// Spawn adds b and returns its handle.
	Spawn(b Body) Handle
	// Remove deletes the body. Unknown or stale handles are ignored.
	Remove(h Handle)
	// ApplyImpulse adds an instantaneous impulse to a dynamic body.
	ApplyImpulse(h Handle, impulse r3.Vec)
	// Position reports where h currently is.
	Position(h Handle) (r3.Vec, bool)
	// Enumerate lists the live bodies carrying tag.
	Enumerate(tag Tag) []Handle
	SetGravity(g r3.Vec)
	// Advance steps the simulation forward by d.
	Advance(d time.Duration)
}
