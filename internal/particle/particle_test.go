package particle

import (
	"math"
	"testing"

	"github.com/banshee-data/packing.report/internal/config"
)

func TestBatchSize(t *testing.T) {
	tests := []struct {
		ratio int
		want  int
	}{
		{1, 1},
		{2, 2},
		{3, 4},
		{5, 10},
		{25, 250},
		{4, 7},
	}
	for _, tt := range tests {
		if got := BatchSize(tt.ratio); got != tt.want {
			t.Errorf("BatchSize(%d) = %d, want %d", tt.ratio, got, tt.want)
		}
	}
}

func TestDerive_Defaults(t *testing.T) {
	plan, err := Derive(config.Default().Experiment)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}

	if plan.Big.Radius != 1.0 {
		t.Errorf("big radius = %v, want 1.0", plan.Big.Radius)
	}
	if math.Abs(plan.Small.Radius-0.2) > 1e-12 {
		t.Errorf("small radius = %v, want 0.2", plan.Small.Radius)
	}
	if math.Abs(plan.Small.Mass-0.008) > 1e-12 {
		t.Errorf("small mass = %v, want 0.008", plan.Small.Mass)
	}
	c := plan.Counts
	if c.BatchBig != 10 || c.BatchSmall != 250 {
		t.Errorf("batches = %d/%d, want 10/250", c.BatchBig, c.BatchSmall)
	}
	// 0.96*0.68*125*0.69/0.5 = 112.608
	if c.NumBig != 112 {
		t.Errorf("NumBig = %d, want 112", c.NumBig)
	}
	// 112*125/(1/0.31-1) = 6289.85...
	if c.NumSmall != 6289 {
		t.Errorf("NumSmall = %d, want 6289", c.NumSmall)
	}
	if c.BigLoops() != 12 || c.SmallLoops() != 26 {
		t.Errorf("loops = %d/%d, want 12/26", c.BigLoops(), c.SmallLoops())
	}
}

func TestTotalCounts_BelowThreshold(t *testing.T) {
	numBig, numSmall := TotalCounts(5, 2, 0.1, 0.68)
	// floor(0.96*125)
	if numBig != 120 {
		t.Errorf("numBig = %d, want 120", numBig)
	}
	// 120*8/(10-1) = 106.67
	if numSmall != 106 {
		t.Errorf("numSmall = %d, want 106", numSmall)
	}
}

func TestTotalCounts_ZeroFraction(t *testing.T) {
	numBig, numSmall := TotalCounts(5, 5, 0, 0.68)
	if numBig != 120 || numSmall != 0 {
		t.Errorf("TotalCounts = %d/%d, want 120/0", numBig, numSmall)
	}
}

func TestDerive_RadiiOrdering(t *testing.T) {
	for r1 := 1; r1 <= 6; r1++ {
		for r2 := 1; r2 <= 6; r2++ {
			for _, f := range []float64{0, 0.1, 0.31, 0.55} {
				e := config.Default().Experiment
				e.ContainerBigRatio, e.BigSmallRatio, e.ExpectedSmallVolumeFraction = r1, r2, f
				plan, err := Derive(e)
				if err != nil {
					t.Fatalf("Derive(%d,%d,%v): %v", r1, r2, f, err)
				}
				if plan.Big.Radius <= 0 || plan.Small.Radius <= 0 {
					t.Errorf("non-positive radius for %d,%d", r1, r2)
				}
				if r2 > 1 && !(plan.Big.Radius > plan.Small.Radius) {
					t.Errorf("big radius %v not greater than small %v for r2=%d", plan.Big.Radius, plan.Small.Radius, r2)
				}
				if plan.Counts.NumBig < 0 || plan.Counts.NumSmall < 0 {
					t.Errorf("negative counts %+v", plan.Counts)
				}
			}
		}
	}
}

func TestDerive_RejectsInvalid(t *testing.T) {
	e := config.Default().Experiment
	e.ContainerBigRatio = 0
	if _, err := Derive(e); err == nil {
		t.Error("expected error for zero ratio")
	}
}

func TestSpeciesString(t *testing.T) {
	if Big.String() != "big" || Small.String() != "small" {
		t.Errorf("unexpected species names %q %q", Big, Small)
	}
}
