package physics

import (
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	defaultTimeStep   = 10 * time.Millisecond
	defaultIterations = 4

	correctionPercent = 0.6
	correctionSlop    = 0.001
	linearDamping     = 0.999
)

// SimConfig configures a Sim.
type SimConfig struct {
	Container Container
	Gravity   r3.Vec
	// TimeStep is the fixed solver step. Zero uses 10ms.
	TimeStep time.Duration
	// Iterations is the number of contact passes per step. Zero uses 4.
	Iterations int
	// WallRestitution and WallFriction apply to the container surfaces.
	WallRestitution float64
	WallFriction    float64
}

type simBody struct {
	Body
	vel     r3.Vec
	invMass float64
}

// Sim is a fixed-step, impulse-based sphere solver inside a Container.
// Spheres collide with each other, the container floor and walls, and any
// spawned panels. It is safe for concurrent use.
type Sim struct {
	mu      sync.Mutex
	cfg     SimConfig
	gravity r3.Vec
	bodies  *Registry[simBody]
	elapsed time.Duration

	// scratch reused across steps
	dynamic []*simBody
	panels  []*simBody
	grid    map[cellKey][]int
}

type cellKey struct{ x, y, z int }

var _ World = (*Sim)(nil)

// NewSim returns an empty world.
func NewSim(cfg SimConfig) *Sim {
	if cfg.TimeStep <= 0 {
		cfg.TimeStep = defaultTimeStep
	}
	if cfg.Iterations <= 0 {
		cfg.Iterations = defaultIterations
	}
	return &Sim{
		cfg:     cfg,
		gravity: cfg.Gravity,
		bodies:  NewRegistry[simBody](),
		grid:    make(map[cellKey][]int),
	}
}

// Spawn implements World.
func (s *Sim) Spawn(b Body) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	sb := simBody{Body: b}
	if b.Panel == nil && b.Mass > 0 {
		sb.invMass = 1 / b.Mass
	}
	return s.bodies.Insert(b.Tag, sb)
}

// Remove implements World.
func (s *Sim) Remove(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bodies.Remove(h)
}

// ApplyImpulse implements World.
func (s *Sim) ApplyImpulse(h Handle, impulse r3.Vec) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.bodies.Get(h); ok && b.invMass > 0 {
		b.vel = r3.Add(b.vel, r3.Scale(b.invMass, impulse))
	}
}

// Position implements World.
func (s *Sim) Position(h Handle) (r3.Vec, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bodies.Get(h)
	if !ok {
		return r3.Vec{}, false
	}
	if b.Panel != nil {
		return b.Panel.Center, true
	}
	return b.Position, true
}

// Velocity reports the current velocity of h.
func (s *Sim) Velocity(h Handle) (r3.Vec, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bodies.Get(h)
	if !ok {
		return r3.Vec{}, false
	}
	return b.vel, true
}

// Enumerate implements World.
func (s *Sim) Enumerate(tag Tag) []Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bodies.Tagged(tag)
}

// SetGravity implements World.
func (s *Sim) SetGravity(g r3.Vec) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gravity = g
}

// Elapsed returns the total simulated time.
func (s *Sim) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed
}

// Len returns the number of live bodies.
func (s *Sim) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bodies.Len()
}

// Reset removes every body and zeroes the clock.
func (s *Sim) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bodies.Reset()
	s.elapsed = 0
}

// Advance implements World. The duration is rounded up to whole steps.
func (s *Sim) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	step := s.cfg.TimeStep
	n := int((d + step - 1) / step)
	dt := step.Seconds()
	for i := 0; i < n; i++ {
		s.step(dt)
	}
	s.elapsed += time.Duration(n) * step
}

func (s *Sim) step(dt float64) {
	s.dynamic = s.dynamic[:0]
	s.panels = s.panels[:0]
	maxRadius := 0.0
	s.bodies.Each(func(_ Handle, _ Tag, b *simBody) {
		if b.Panel != nil {
			s.panels = append(s.panels, b)
			return
		}
		if b.invMass == 0 {
			return
		}
		s.dynamic = append(s.dynamic, b)
		maxRadius = math.Max(maxRadius, b.Radius)
	})
	if len(s.dynamic) == 0 {
		return
	}

	for _, b := range s.dynamic {
		b.vel = r3.Scale(linearDamping, r3.Add(b.vel, r3.Scale(dt, s.gravity)))
		b.Position = r3.Add(b.Position, r3.Scale(dt, b.vel))
	}

	cell := 2 * maxRadius
	s.buildGrid(cell)
	for it := 0; it < s.cfg.Iterations; it++ {
		s.collideSpheres(cell)
		for _, b := range s.dynamic {
			s.collideContainer(b)
			for _, p := range s.panels {
				s.collidePanel(b, p)
			}
		}
	}
}

func (s *Sim) cellOf(p r3.Vec, size float64) cellKey {
	return cellKey{
		x: int(math.Floor(p.X / size)),
		y: int(math.Floor(p.Y / size)),
		z: int(math.Floor(p.Z / size)),
	}
}

func (s *Sim) buildGrid(size float64) {
	for k, v := range s.grid {
		if len(v) == 0 {
			delete(s.grid, k)
			continue
		}
		s.grid[k] = v[:0]
	}
	for i, b := range s.dynamic {
		k := s.cellOf(b.Position, size)
		s.grid[k] = append(s.grid[k], i)
	}
}

// collideSpheres checks each sphere against its own and neighbouring cells.
// Cells are assigned once per step, so pairs are resolved against slightly
// stale bins during later iterations.
func (s *Sim) collideSpheres(size float64) {
	for i, a := range s.dynamic {
		k := s.cellOf(a.Position, size)
		for dx := -1; dx <= 1; dx++ {
			for dy := -1; dy <= 1; dy++ {
				for dz := -1; dz <= 1; dz++ {
					for _, j := range s.grid[cellKey{k.x + dx, k.y + dy, k.z + dz}] {
						if j <= i {
							continue
						}
						s.resolveSpheres(a, s.dynamic[j])
					}
				}
			}
		}
	}
}

func (s *Sim) resolveSpheres(a, b *simBody) {
	delta := r3.Sub(b.Position, a.Position)
	dist2 := r3.Norm2(delta)
	rsum := a.Radius + b.Radius
	if dist2 >= rsum*rsum {
		return
	}

	dist := math.Sqrt(dist2)
	normal := r3.Vec{Y: 1}
	if dist > 0 {
		normal = r3.Scale(1/dist, delta)
	}
	restitution := math.Min(a.Restitution, b.Restitution)
	friction := math.Sqrt(a.Friction * b.Friction)
	applyContact(a, b, normal, rsum-dist, restitution, friction)
}

// collideContainer pushes b back inside the floor and the four walls. Walls
// only act below their top edge.
func (s *Sim) collideContainer(b *simBody) {
	half := s.cfg.Container.Size / 2
	top := s.cfg.Container.Size

	type plane struct {
		normal r3.Vec
		depth  float64
	}
	planes := [...]plane{
		{r3.Vec{Y: 1}, b.Radius - b.Position.Y},
		{r3.Vec{X: -1}, b.Position.X + b.Radius - half},
		{r3.Vec{X: 1}, -half - (b.Position.X - b.Radius)},
		{r3.Vec{Z: -1}, b.Position.Z + b.Radius - half},
		{r3.Vec{Z: 1}, -half - (b.Position.Z - b.Radius)},
	}
	for i, p := range planes {
		if p.depth <= 0 {
			continue
		}
		if i > 0 && b.Position.Y > top {
			continue
		}
		s.resolveStatic(b, p.normal, p.depth, s.cfg.WallRestitution, s.cfg.WallFriction)
	}
}

func (s *Sim) collidePanel(b, p *simBody) {
	closest := p.Panel.closestPoint(b.Position)
	delta := r3.Sub(b.Position, closest)
	dist2 := r3.Norm2(delta)
	if dist2 >= b.Radius*b.Radius {
		return
	}
	dist := math.Sqrt(dist2)
	normal := p.Panel.Normal
	if dist > 0 {
		normal = r3.Scale(1/dist, delta)
	}
	restitution := math.Min(b.Restitution, p.Restitution)
	friction := math.Sqrt(b.Friction * p.Friction)
	s.resolveStatic(b, normal, b.Radius-dist, restitution, friction)
}

// resolveStatic resolves b against an immovable surface whose normal points
// toward b.
func (s *Sim) resolveStatic(b *simBody, normal r3.Vec, depth, restitution, friction float64) {
	var surface simBody
	applyContact(&surface, b, normal, depth, restitution, friction)
}

// applyContact resolves one contact between a and b. normal points from a
// to b and depth is the overlap along it. Static bodies have zero inverse
// mass and are left untouched.
func applyContact(a, b *simBody, normal r3.Vec, depth, restitution, friction float64) {
	invSum := a.invMass + b.invMass
	if invSum == 0 {
		return
	}

	if depth > correctionSlop {
		corr := r3.Scale((depth-correctionSlop)/invSum*correctionPercent, normal)
		a.Position = r3.Sub(a.Position, r3.Scale(a.invMass, corr))
		b.Position = r3.Add(b.Position, r3.Scale(b.invMass, corr))
	}

	rel := r3.Sub(b.vel, a.vel)
	vn := r3.Dot(rel, normal)
	if vn > 0 {
		return
	}

	j := -(1 + restitution) * vn / invSum
	impulse := r3.Scale(j, normal)

	tangent := r3.Sub(rel, r3.Scale(vn, normal))
	if t2 := r3.Norm2(tangent); t2 > 1e-12 {
		tangent = r3.Scale(1/math.Sqrt(t2), tangent)
		jt := -r3.Dot(rel, tangent) / invSum
		limit := friction * j
		impulse = r3.Add(impulse, r3.Scale(clamp(jt, -limit, limit), tangent))
	}

	a.vel = r3.Sub(a.vel, r3.Scale(a.invMass, impulse))
	b.vel = r3.Add(b.vel, r3.Scale(b.invMass, impulse))
}
