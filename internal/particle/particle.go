// Package particle derives particle sizes, masses and population counts
// from the experiment ratios and the target small volume fraction.
package particle

import (
	"fmt"
	"math"

	"github.com/banshee-data/packing.report/internal/config"
)

// Species identifies one of the two particle populations.
type Species int

const (
	Big Species = iota
	Small
)

// String returns the species tag used by the physics world.
func (s Species) String() string {
	switch s {
	case Big:
		return "big"
	case Small:
		return "small"
	default:
		return fmt.Sprintf("species(%d)", int(s))
	}
}

// Threshold on the expected small volume fraction above which the big
// population is reduced to leave room for the small particles.
const bigDominatedThreshold = 0.31

// countScale is applied to every big particle count.
const countScale = 0.96

// Spec describes one particle species for a run.
type Spec struct {
	Species     Species
	Radius      float64
	Mass        float64
	Restitution float64
	Friction    float64
}

// Volume returns the volume of a single sphere of this spec.
func (s Spec) Volume() float64 {
	return SphereVolume(s.Radius)
}

// Counts holds the population totals and per-burst spawn sizes.
type Counts struct {
	NumBig     int
	NumSmall   int
	BatchBig   int
	BatchSmall int
}

// BigLoops is the number of big spawn bursts, ceil(NumBig/BatchBig).
func (c Counts) BigLoops() int {
	return ceilDiv(c.NumBig, c.BatchBig)
}

// SmallLoops is the number of small spawn bursts, ceil(NumSmall/BatchSmall).
func (c Counts) SmallLoops() int {
	return ceilDiv(c.NumSmall, c.BatchSmall)
}

// Plan is everything derived from an ExperimentConfig before a run.
type Plan struct {
	Big    Spec
	Small  Spec
	Counts Counts
}

// Derive validates e and computes the particle plan for a run.
func Derive(e config.ExperimentConfig) (Plan, error) {
	if err := e.Validate(); err != nil {
		return Plan{}, err
	}

	bigR := BigRadius(e.ContainerSize, e.ContainerBigRatio)
	smallR := SmallRadius(bigR, e.BigSmallRatio)
	numBig, numSmall := TotalCounts(e.ContainerBigRatio, e.BigSmallRatio, e.ExpectedSmallVolumeFraction, e.CalibrationFactor)

	return Plan{
		Big: Spec{
			Species:     Big,
			Radius:      bigR,
			Mass:        e.BigParticleMass,
			Restitution: e.Restitution,
			Friction:    e.Friction,
		},
		Small: Spec{
			Species:     Small,
			Radius:      smallR,
			Mass:        SmallMass(bigR, smallR, e.BigParticleMass),
			Restitution: e.Restitution,
			Friction:    e.Friction,
		},
		Counts: Counts{
			NumBig:     numBig,
			NumSmall:   numSmall,
			BatchBig:   BatchSize(e.ContainerBigRatio),
			BatchSmall: BatchSize(e.ContainerBigRatio * e.BigSmallRatio),
		},
	}, nil
}

// BigRadius is containerSize/(2*containerBigRatio).
func BigRadius(containerSize float64, containerBigRatio int) float64 {
	return containerSize / (2 * float64(containerBigRatio))
}

// SmallRadius is bigRadius/bigSmallRatio.
func SmallRadius(bigRadius float64, bigSmallRatio int) float64 {
	return bigRadius / float64(bigSmallRatio)
}

// SmallMass scales bigMass by the volume ratio of the two spheres.
func SmallMass(bigRadius, smallRadius, bigMass float64) float64 {
	return math.Pow(smallRadius/bigRadius, 3) * bigMass
}

// BatchSize returns ceil(ratio^2 * 0.4), the number of spheres spawned per
// burst when the container is ratio sphere diameters wide. It is computed
// in integers so exact multiples do not round up.
func BatchSize(ratio int) int {
	return (ratio*ratio*4 + 9) / 10
}

// TotalCounts returns the big and small population totals. A zero fraction
// yields no small particles.
func TotalCounts(containerBigRatio, bigSmallRatio int, fraction, calibration float64) (numBig, numSmall int) {
	r1Cubed := math.Pow(float64(containerBigRatio), 3)
	r2Cubed := math.Pow(float64(bigSmallRatio), 3)

	if fraction >= bigDominatedThreshold {
		numBig = int(countScale * calibration * r1Cubed * (1 - fraction) / 0.5)
	} else {
		numBig = int(countScale * r1Cubed)
	}
	if fraction <= 0 {
		return numBig, 0
	}
	numSmall = int(float64(numBig) * r2Cubed / (1/fraction - 1))
	return numBig, numSmall
}

// SphereVolume returns 4/3*pi*r^3.
func SphereVolume(r float64) float64 {
	return 4.0 / 3.0 * math.Pi * r * r * r
}

func ceilDiv(n, d int) int {
	if d <= 0 || n <= 0 {
		return 0
	}
	return (n + d - 1) / d
}
