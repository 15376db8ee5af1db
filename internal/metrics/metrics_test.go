package metrics

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/packing.report/internal/particle"
	"github.com/banshee-data/packing.report/internal/physics"
)

func TestCompute_BigOnly(t *testing.T) {
	c := Calculator{ContainerSize: 10, Calibration: 0.92}
	m, err := c.Compute(100, 0, 1, 0.2)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	// 100 * 4/3*pi / 1000 * 0.92 = 0.38536...
	want := Round(100*4.0/3.0*math.Pi/1000*0.92, 4)
	if m.PackingDensity != want {
		t.Errorf("PackingDensity = %v, want %v", m.PackingDensity, want)
	}
	if m.BigPercentage != 100 || m.SmallPercentage != 0 {
		t.Errorf("percentages = %v/%v, want 100/0", m.BigPercentage, m.SmallPercentage)
	}
}

func TestCompute_Mixed(t *testing.T) {
	c := Calculator{ContainerSize: 10, Calibration: 1}
	// equal total volumes: 1 big of r=1 against 125 small of r=0.2
	m, err := c.Compute(1, 125, 1, 0.2)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if m.BigPercentage != 50 || m.SmallPercentage != 50 {
		t.Errorf("percentages = %v/%v, want 50/50", m.BigPercentage, m.SmallPercentage)
	}
	if m.BigCount != 1 || m.SmallCount != 125 {
		t.Errorf("counts = %d/%d", m.BigCount, m.SmallCount)
	}
}

func TestCompute_NoParticles(t *testing.T) {
	c := Calculator{ContainerSize: 10, Calibration: 0.92}
	if _, err := c.Compute(0, 0, 1, 0.2); !errors.Is(err, ErrNoParticles) {
		t.Errorf("err = %v, want ErrNoParticles", err)
	}
}

func TestMeasure_CountsTaggedBodies(t *testing.T) {
	w := physics.NewSim(physics.SimConfig{Container: physics.Container{Size: 10}})
	for i := 0; i < 3; i++ {
		w.Spawn(physics.Body{Tag: physics.TagBig, Radius: 1, Mass: 1, Position: r3.Vec{X: float64(i) * 3, Y: 1}})
	}
	w.Spawn(physics.Body{Tag: physics.TagSmall, Radius: 0.2, Mass: 0.008, Position: r3.Vec{Y: 4}})
	w.Spawn(physics.Body{Tag: physics.TagSlide, Panel: &physics.Panel{}})

	plan := particle.Plan{Big: particle.Spec{Radius: 1}, Small: particle.Spec{Radius: 0.2}}
	m, err := Calculator{ContainerSize: 10, Calibration: 1}.Measure(w, plan)
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}
	if m.BigCount != 3 || m.SmallCount != 1 {
		t.Errorf("counts = %d/%d, want 3/1", m.BigCount, m.SmallCount)
	}
}

func TestRound(t *testing.T) {
	tests := []struct {
		x    float64
		d    int
		want float64
	}{
		{0.123456, 4, 0.1235},
		{12.345, 1, 12.3},
		{99.995, 0, 100},
		{-1.25, 1, -1.3},
	}
	for _, tt := range tests {
		if got := Round(tt.x, tt.d); got != tt.want {
			t.Errorf("Round(%v, %d) = %v, want %v", tt.x, tt.d, got, tt.want)
		}
	}
}
