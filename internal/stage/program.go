package stage

import (
	"fmt"
	"time"

	"github.com/banshee-data/packing.report/internal/particle"
)

// Status texts shown while a run progresses.
const (
	StatusCreatingSlides   = "Creating the wall slides..."
	StatusGeneratingBig    = "Generating big particles..."
	StatusSettling         = "Waiting particles to settle down..."
	StatusEliminatingBig   = "Eliminating big particles outside container..."
	StatusGeneratingSmall  = "Generating small particles..."
	StatusEliminatingSmall = "Eliminating small particles outside container..."
	StatusFillingSmall     = "Generating small particles for fill..."
	StatusRemovingSlides   = "Removing the wall slides..."
	StatusDisplaying       = "Displaying results..."
	StatusFinished         = "Finished experiment"
)

func statusGeneratingSmallN(n int) string {
	return fmt.Sprintf("Generating small particles #%d...", n)
}

func statusVibratingN(n int) string {
	return fmt.Sprintf("Applying vibration #%d...", n)
}

func statusEliminatingSmallN(n int) string {
	return fmt.Sprintf("Eliminating small particles outside container #%d...", n)
}

const (
	bigBurstSettle   = time.Second
	smallBurstSettle = 500 * time.Millisecond
	vibrationSettle  = 150 * time.Millisecond
)

// Program is an ordered, immutable list of stages.
type Program []Stage

// Count returns the number of stages of kind k.
func (p Program) Count(k Kind) int {
	n := 0
	for _, s := range p {
		if s.Kind == k {
			n++
		}
	}
	return n
}

// Spawned returns the number of particles of species sp the program spawns.
func (p Program) Spawned(sp particle.Species) int {
	n := 0
	for _, s := range p {
		if s.Kind == KindSpawnBatch && s.Species == sp {
			n += s.Count
		}
	}
	return n
}

// TotalWait sums every Wait stage.
func (p Program) TotalWait() time.Duration {
	var d time.Duration
	for _, s := range p {
		if s.Kind == KindWait {
			d += s.Duration
		}
	}
	return d
}

type builder struct {
	stages Program
	c      particle.Counts
	size   float64
}

func (b *builder) add(s ...Stage) {
	b.stages = append(b.stages, s...)
}

func (b *builder) settle(d time.Duration) {
	b.add(Note(StatusSettling), Wait(d))
}

func (b *builder) bursts(sp particle.Species, count, n int, settle time.Duration) {
	for i := 0; i < n; i++ {
		b.add(Spawn(sp, count), Wait(settle))
	}
}

// vibration applies three upward kicks from the top band down.
func (b *builder) vibration(round int) {
	s := b.size
	b.add(Note(statusVibratingN(round)))
	for _, band := range [][2]float64{{s * 2 / 3, s * 1.1}, {s / 3, s * 2 / 3}, {0, s / 3}} {
		b.add(Vibrate(band[0], band[1]), Wait(vibrationSettle))
	}
}

// Build returns the stage program for a run with the given counts inside a
// container of side containerSize.
func Build(c particle.Counts, containerSize float64) Program {
	b := &builder{c: c, size: containerSize}

	b.add(Note(StatusCreatingSlides), PlaceSlides(), Wait(500*time.Millisecond))

	bigLoops := c.BigLoops()
	b.add(Note(StatusGeneratingBig))
	b.bursts(particle.Big, c.BatchBig, bigLoops, bigBurstSettle)
	b.settle(3 * time.Second)
	b.add(Note(StatusEliminatingBig), Eliminate())
	b.settle(time.Second)

	loops := c.SmallLoops()
	switch {
	case loops == 0:
		b.bigFill(bigLoops)
	case loops/3 == 0:
		b.smallSingle(loops)
	default:
		b.smallRounds(loops)
	}

	b.add(Note(StatusRemovingSlides), RemoveSlides())
	b.add(Note(StatusDisplaying), Measure(), Note(StatusFinished))
	return b.stages
}

// bigFill tops up with ceil(0.15*bigLoops) extra big bursts when there is
// no small population.
func (b *builder) bigFill(bigLoops int) {
	extra := (bigLoops*15 + 99) / 100
	b.add(Note(StatusGeneratingBig))
	b.bursts(particle.Big, b.c.BatchBig, extra, bigBurstSettle)
	b.settle(3 * time.Second)
	b.add(Note(StatusEliminatingBig), Eliminate())
	b.settle(2 * time.Second)
}

// smallSingle drops every small burst back to back with no vibration.
func (b *builder) smallSingle(loops int) {
	b.add(Note(StatusGeneratingSmall))
	b.bursts(particle.Small, b.c.BatchSmall, loops, smallBurstSettle)
	b.settle(time.Second)
	b.add(Note(StatusEliminatingSmall), Eliminate())
	b.settle(time.Second)
}

// smallRounds splits the small bursts over three generation and vibration
// rounds at [1, loops/3), [loops/3, 2*loops/3) and [2*loops/3, loops]. The
// integer division remainder lands in the last round.
func (b *builder) smallRounds(loops int) {
	third, twoThirds := loops/3, loops*2/3
	batch := b.c.BatchSmall

	b.add(Note(statusGeneratingSmallN(1)))
	b.bursts(particle.Small, batch, third-1, smallBurstSettle)
	b.settle(time.Second)
	b.vibration(1)
	b.settle(10 * time.Second)

	b.add(Note(statusGeneratingSmallN(2)))
	b.bursts(particle.Small, batch, twoThirds-third, smallBurstSettle)
	b.vibration(2)
	b.settle(10 * time.Second)

	b.add(Note(statusGeneratingSmallN(3)))
	b.bursts(particle.Small, batch, loops-twoThirds+1, smallBurstSettle)
	b.settle(2 * time.Second)
	b.add(Note(statusEliminatingSmallN(1)), Eliminate())
	b.vibration(3)
	b.settle(15 * time.Second)

	if fill := loops / 6; fill > 0 {
		b.add(Note(StatusFillingSmall))
		b.bursts(particle.Small, batch, fill, smallBurstSettle)
		b.settle(10 * time.Second)
		b.add(Note(statusEliminatingSmallN(2)), Eliminate())
		b.settle(5 * time.Second)
	}
}
