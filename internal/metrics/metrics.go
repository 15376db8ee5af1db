// Package metrics computes packing density and species volume shares.
package metrics

import (
	"errors"
	"math"

	"github.com/banshee-data/packing.report/internal/particle"
	"github.com/banshee-data/packing.report/internal/physics"
)

// ErrNoParticles is returned when both populations are empty, leaving the
// volume shares undefined.
var ErrNoParticles = errors.New("no particles to measure")

// Measurement is the outcome of one run. Percentages are in [0, 100].
type Measurement struct {
	BigCount        int
	SmallCount      int
	PackingDensity  float64
	BigPercentage   float64
	SmallPercentage float64
}

// Calculator turns live particle counts into a Measurement.
type Calculator struct {
	ContainerSize float64
	// Calibration scales the raw density. Provisional.
	Calibration float64
}

// Compute measures bigCount spheres of bigRadius and smallCount spheres of
// smallRadius. Density is rounded to 4 decimals and the percentages to 2.
func (c Calculator) Compute(bigCount, smallCount int, bigRadius, smallRadius float64) (Measurement, error) {
	if bigCount == 0 && smallCount == 0 {
		return Measurement{}, ErrNoParticles
	}

	bigVolume := float64(bigCount) * particle.SphereVolume(bigRadius)
	smallVolume := float64(smallCount) * particle.SphereVolume(smallRadius)
	total := bigVolume + smallVolume
	container := c.ContainerSize * c.ContainerSize * c.ContainerSize

	bigShare := bigVolume / total
	return Measurement{
		BigCount:        bigCount,
		SmallCount:      smallCount,
		PackingDensity:  Round(total/container*c.Calibration, 4),
		BigPercentage:   Round(bigShare*100, 2),
		SmallPercentage: Round((1-bigShare)*100, 2),
	}, nil
}

// Measure counts the live big and small bodies in w.
func (c Calculator) Measure(w physics.World, plan particle.Plan) (Measurement, error) {
	big := len(w.Enumerate(physics.TagBig))
	small := len(w.Enumerate(physics.TagSmall))
	return c.Compute(big, small, plan.Big.Radius, plan.Small.Radius)
}

// Round rounds x half away from zero to the given number of decimals.
func Round(x float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(x*p) / p
}
