package stage

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/packing.report/internal/particle"
)

func indexOf(p Program, want Stage) int {
	for i, s := range p {
		if s == want {
			return i
		}
	}
	return -1
}

func TestBuild_SingleBurstProgram(t *testing.T) {
	c := particle.Counts{NumBig: 1, BatchBig: 1, NumSmall: 1, BatchSmall: 1}
	got := Build(c, 10)

	want := Program{
		Note(StatusCreatingSlides), PlaceSlides(), Wait(500 * time.Millisecond),
		Note(StatusGeneratingBig), Spawn(particle.Big, 1), Wait(time.Second),
		Note(StatusSettling), Wait(3 * time.Second),
		Note(StatusEliminatingBig), Eliminate(),
		Note(StatusSettling), Wait(time.Second),
		Note(StatusGeneratingSmall), Spawn(particle.Small, 1), Wait(500 * time.Millisecond),
		Note(StatusSettling), Wait(time.Second),
		Note(StatusEliminatingSmall), Eliminate(),
		Note(StatusSettling), Wait(time.Second),
		Note(StatusRemovingSlides), RemoveSlides(),
		Note(StatusDisplaying), Measure(), Note(StatusFinished),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Build() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_DefaultCounts(t *testing.T) {
	c := particle.Counts{NumBig: 112, NumSmall: 6289, BatchBig: 10, BatchSmall: 250}
	p := Build(c, 10)

	// 26 small loops: rounds of 7, 9 and 10 bursts plus a fill of 4
	if got := p.Spawned(particle.Small); got != 30*250 {
		t.Errorf("small spawned = %d, want %d", got, 30*250)
	}
	if got := p.Spawned(particle.Big); got != 12*10 {
		t.Errorf("big spawned = %d, want 120", got)
	}
	if got := p.Count(KindVibrate); got != 9 {
		t.Errorf("vibrate stages = %d, want 9", got)
	}
	if got := p.Count(KindEliminate); got != 3 {
		t.Errorf("eliminate stages = %d, want 3", got)
	}
	if got := p.Count(KindMeasure); got != 1 {
		t.Errorf("measure stages = %d, want 1", got)
	}
	if p[len(p)-1] != Note(StatusFinished) {
		t.Errorf("last stage = %v, want finished note", p[len(p)-1])
	}

	elim := indexOf(p, Note(statusEliminatingSmallN(1)))
	vib := indexOf(p, Note(statusVibratingN(3)))
	if elim < 0 || vib < 0 || elim > vib {
		t.Errorf("round 3 elimination at %d should precede vibration #3 at %d", elim, vib)
	}
	if indexOf(p, Note(StatusFillingSmall)) < 0 {
		t.Error("expected a fill phase for 26 loops")
	}
}

func TestBuild_RoundSplit(t *testing.T) {
	tests := []struct {
		loops      int
		wantBursts int
		wantFill   bool
	}{
		// 0 + 1 + 2
		{3, 3, false},
		// 0 + 1 + 3
		{4, 4, false},
		// 1 + 2 + 3 + fill 1
		{6, 7, true},
		// 2 + 3 + 5 + fill 1
		{10, 11, true},
	}
	for _, tt := range tests {
		c := particle.Counts{NumBig: 10, BatchBig: 10, NumSmall: tt.loops, BatchSmall: 1}
		p := Build(c, 10)
		if got := p.Count(KindSpawnBatch) - 1; got != tt.wantBursts {
			t.Errorf("loops=%d: small bursts = %d, want %d", tt.loops, got, tt.wantBursts)
		}
		if got := indexOf(p, Note(StatusFillingSmall)) >= 0; got != tt.wantFill {
			t.Errorf("loops=%d: fill = %v, want %v", tt.loops, got, tt.wantFill)
		}
		if got := p.Count(KindVibrate); got != 9 {
			t.Errorf("loops=%d: vibrate stages = %d, want 9", tt.loops, got)
		}
	}
}

func TestBuild_NoSmallParticlesUsesBigFill(t *testing.T) {
	c := particle.Counts{NumBig: 120, NumSmall: 0, BatchBig: 10, BatchSmall: 250}
	p := Build(c, 10)

	if got := p.Spawned(particle.Small); got != 0 {
		t.Errorf("small spawned = %d, want 0", got)
	}
	if got := p.Count(KindVibrate); got != 0 {
		t.Errorf("vibrate stages = %d, want 0", got)
	}
	// 12 bursts plus ceil(12*0.15) = 2 fill bursts
	if got := p.Spawned(particle.Big); got != 14*10 {
		t.Errorf("big spawned = %d, want 140", got)
	}
	if got := p.Count(KindEliminate); got != 2 {
		t.Errorf("eliminate stages = %d, want 2", got)
	}
}

func TestBuild_TwoLoopsHasNoVibration(t *testing.T) {
	c := particle.Counts{NumBig: 10, BatchBig: 10, NumSmall: 500, BatchSmall: 250}
	p := Build(c, 10)

	if got := p.Count(KindVibrate); got != 0 {
		t.Errorf("vibrate stages = %d, want 0", got)
	}
	if got := p.Spawned(particle.Small); got != 500 {
		t.Errorf("small spawned = %d, want 500", got)
	}
	if indexOf(p, Note(StatusGeneratingSmall)) < 0 {
		t.Error("expected the single small phase")
	}
}

func TestBuild_VibrationBands(t *testing.T) {
	c := particle.Counts{NumBig: 10, BatchBig: 10, NumSmall: 3, BatchSmall: 1}
	size := 9.0
	p := Build(c, size)

	var bands []Stage
	for i, s := range p {
		if s.Kind == KindVibrate {
			bands = append(bands, s)
			if next := p[i+1]; next != Wait(150*time.Millisecond) {
				t.Errorf("vibrate at %d followed by %v", i, next)
			}
		}
	}
	want := []Stage{Vibrate(size*2/3, size*1.1), Vibrate(size/3, size*2/3), Vibrate(0, size/3)}
	for round := 0; round < 3; round++ {
		if diff := cmp.Diff(want, bands[round*3:round*3+3]); diff != "" {
			t.Errorf("round %d bands mismatch (-want +got):\n%s", round+1, diff)
		}
	}
}

func TestProgram_TotalWait(t *testing.T) {
	p := Program{Wait(time.Second), Note("x"), Wait(500 * time.Millisecond)}
	if got := p.TotalWait(); got != 1500*time.Millisecond {
		t.Errorf("TotalWait() = %v, want 1.5s", got)
	}
}
