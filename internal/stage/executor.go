package stage

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/packing.report/internal/metrics"
	"github.com/banshee-data/packing.report/internal/monitoring"
	"github.com/banshee-data/packing.report/internal/particle"
	"github.com/banshee-data/packing.report/internal/physics"
	"github.com/banshee-data/packing.report/internal/timeutil"
)

// vibrationAcceleration turns a particle mass into its upward kick.
const vibrationAcceleration = 7.0

// Progress is reported after every stage. Done never exceeds Total.
type Progress struct {
	Done   int
	Total  int
	Status string
	Stage  Stage
}

// Fraction returns Done/Total, or 0 for an empty program.
func (p Progress) Fraction() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Done) / float64(p.Total)
}

// Executor interprets a Program one stage at a time.
type Executor struct {
	World     physics.World
	Clock     timeutil.Clock
	Container physics.Container
	// RemovalError widens the elimination box, 0.02 for 2%.
	RemovalError float64
	Calculator   metrics.Calculator
	// SlideFriction is applied to the slide panels.
	SlideFriction float64
	Rand          *rand.Rand
	// OnProgress, when set, is called after each stage.
	OnProgress func(Progress)
}

// Run executes prog in order. Wait stages advance the world and then hold
// the clock for the same duration. A cancelled context stops the run before
// the next stage and no measurement is returned.
func (e *Executor) Run(ctx context.Context, prog Program, plan particle.Plan) (metrics.Measurement, error) {
	if e.World == nil || e.Clock == nil {
		return metrics.Measurement{}, errors.New("executor requires a world and a clock")
	}
	rng := e.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}

	var (
		result   metrics.Measurement
		measured bool
		status   string
	)
	for i, st := range prog {
		if err := ctx.Err(); err != nil {
			return metrics.Measurement{}, err
		}
		monitoring.Debugf("stage %d/%d: %s", i+1, len(prog), st)

		switch st.Kind {
		case KindNote:
			status = st.Text
		case KindPlaceSlides:
			e.placeSlides()
		case KindRemoveSlides:
			for _, h := range e.World.Enumerate(physics.TagSlide) {
				e.World.Remove(h)
			}
		case KindSpawnBatch:
			e.spawn(rng, specFor(plan, st.Species), st.Count)
		case KindWait:
			e.World.Advance(st.Duration)
			if err := e.Clock.SleepContext(ctx, st.Duration); err != nil {
				return metrics.Measurement{}, err
			}
		case KindVibrate:
			e.vibrate(plan, st.YMin, st.YMax)
		case KindEliminate:
			removed := e.eliminate(plan)
			monitoring.Debugf("eliminated %d particles", removed)
		case KindMeasure:
			m, err := e.Calculator.Measure(e.World, plan)
			if err != nil {
				return metrics.Measurement{}, fmt.Errorf("measure: %w", err)
			}
			result, measured = m, true
		default:
			return metrics.Measurement{}, fmt.Errorf("unknown stage kind %v", st.Kind)
		}

		if e.OnProgress != nil {
			e.OnProgress(Progress{Done: i + 1, Total: len(prog), Status: status, Stage: st})
		}
	}

	if !measured {
		return metrics.Measurement{}, errors.New("program has no measure stage")
	}
	return result, nil
}

func specFor(plan particle.Plan, s particle.Species) particle.Spec {
	if s == particle.Small {
		return plan.Small
	}
	return plan.Big
}

func tagFor(s particle.Species) physics.Tag {
	if s == particle.Small {
		return physics.TagSmall
	}
	return physics.TagBig
}

func (e *Executor) placeSlides() {
	panels := e.Container.SlidePanels()
	for i := range panels {
		e.World.Spawn(physics.Body{
			Tag:      physics.TagSlide,
			Friction: e.SlideFriction,
			Position: panels[i].Center,
			Panel:    &panels[i],
		})
	}
}

// spawn drops count spheres at random x,z just above the container rim.
func (e *Executor) spawn(rng *rand.Rand, spec particle.Spec, count int) {
	size := e.Container.Size
	for i := 0; i < count; i++ {
		e.World.Spawn(physics.Body{
			Tag:         tagFor(spec.Species),
			Radius:      spec.Radius,
			Mass:        spec.Mass,
			Restitution: spec.Restitution,
			Friction:    spec.Friction,
			Position: r3.Vec{
				X: rng.Float64()*size - size/2,
				Y: size + spec.Radius,
				Z: rng.Float64()*size - size/2,
			},
		})
	}
}

// vibrate kicks every particle whose centre lies in [yMin, yMax] upward.
func (e *Executor) vibrate(plan particle.Plan, yMin, yMax float64) {
	for _, spec := range []particle.Spec{plan.Big, plan.Small} {
		kick := r3.Vec{Y: spec.Mass * vibrationAcceleration}
		for _, h := range e.World.Enumerate(tagFor(spec.Species)) {
			p, ok := e.World.Position(h)
			if !ok || p.Y < yMin || p.Y > yMax {
				continue
			}
			e.World.ApplyImpulse(h, kick)
		}
	}
}

// eliminate removes particles whose bounding box leaves the widened
// container and returns how many were removed.
func (e *Executor) eliminate(plan particle.Plan) int {
	box := e.Container.EliminationBox(e.RemovalError)
	removed := 0
	for _, spec := range []particle.Spec{plan.Big, plan.Small} {
		for _, h := range e.World.Enumerate(tagFor(spec.Species)) {
			p, ok := e.World.Position(h)
			if !ok || box.ContainsSphere(p, spec.Radius) {
				continue
			}
			e.World.Remove(h)
			removed++
		}
	}
	return removed
}
