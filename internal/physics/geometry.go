package physics

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// slideAngle is the tilt of each slide panel above the horizontal.
const slideAngle = math.Pi / 3

// Container is the open-top square box the particles are dropped into. The
// inner floor sits at y=0 and the inner walls at x,z = ±Size/2.
type Container struct {
	Size      float64
	Thickness float64
}

// Box is an axis-aligned bounding box.
type Box struct {
	Min, Max r3.Vec
}

// ContainsSphere reports whether the sphere's bounding box lies inside b.
func (b Box) ContainsSphere(center r3.Vec, radius float64) bool {
	return center.X-radius >= b.Min.X && center.X+radius <= b.Max.X &&
		center.Y-radius >= b.Min.Y && center.Y+radius <= b.Max.Y &&
		center.Z-radius >= b.Min.Z && center.Z+radius <= b.Max.Z
}

// EliminationBox returns the region a particle must stay inside to survive
// an elimination pass, grown by tolerance (0.02 for 2%).
func (c Container) EliminationBox(tolerance float64) Box {
	e := 1 + tolerance
	half := c.Size * e / 2
	return Box{
		Min: r3.Vec{X: -half, Y: -c.Thickness * e, Z: -half},
		Max: r3.Vec{X: half, Y: c.Size * e, Z: half},
	}
}

// SlidePanels returns the four funnel panels that rest on the wall tops and
// lean outward so spawned particles roll into the container.
func (c Container) SlidePanels() []Panel {
	s := c.Size
	sin, cos := math.Sin(slideAngle), math.Cos(slideAngle)
	offset := s/2*(1+cos) + c.Thickness
	height := s + sin*s/2

	// outward direction of each side, and the horizontal axis along it
	sides := []struct{ out, along r3.Vec }{
		{r3.Vec{X: 1}, r3.Vec{Z: 1}},
		{r3.Vec{X: -1}, r3.Vec{Z: 1}},
		{r3.Vec{Z: 1}, r3.Vec{X: 1}},
		{r3.Vec{Z: -1}, r3.Vec{X: 1}},
	}

	up := r3.Vec{Y: 1}
	panels := make([]Panel, 0, len(sides))
	for _, side := range sides {
		slope := r3.Add(r3.Scale(cos, side.out), r3.Scale(sin, up))
		normal := r3.Add(r3.Scale(-sin, side.out), r3.Scale(cos, up))
		panels = append(panels, Panel{
			Center: r3.Add(r3.Scale(offset, side.out), r3.Scale(height, up)),
			Normal: normal,
			U:      slope,
			V:      side.along,
			HalfU:  s / 2,
			HalfV:  s / 2,
		})
	}
	return panels
}

// closestPoint returns the point of p nearest to q.
func (p Panel) closestPoint(q r3.Vec) r3.Vec {
	d := r3.Sub(q, p.Center)
	u := clamp(r3.Dot(d, p.U), -p.HalfU, p.HalfU)
	v := clamp(r3.Dot(d, p.V), -p.HalfV, p.HalfV)
	return r3.Add(p.Center, r3.Add(r3.Scale(u, p.U), r3.Scale(v, p.V)))
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(x, hi))
}
