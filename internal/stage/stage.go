// Package stage builds the ordered stage program for a packing run and
// executes it against a physics world.
package stage

import (
	"fmt"
	"time"

	"github.com/banshee-data/packing.report/internal/particle"
)

// Kind identifies a stage variant.
type Kind int

const (
	KindNote Kind = iota
	KindPlaceSlides
	KindSpawnBatch
	KindWait
	KindVibrate
	KindEliminate
	KindRemoveSlides
	KindMeasure
)

var kindNames = map[Kind]string{
	KindNote:         "note",
	KindPlaceSlides:  "place-slides",
	KindSpawnBatch:   "spawn",
	KindWait:         "wait",
	KindVibrate:      "vibrate",
	KindEliminate:    "eliminate",
	KindRemoveSlides: "remove-slides",
	KindMeasure:      "measure",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Stage is one step of a run. Only the fields relevant to Kind are set.
type Stage struct {
	Kind Kind

	// KindSpawnBatch
	Species particle.Species
	Count   int

	// KindWait
	Duration time.Duration

	// KindVibrate, inclusive band of y positions
	YMin, YMax float64

	// KindNote
	Text string
}

func Note(text string) Stage { return Stage{Kind: KindNote, Text: text} }

func PlaceSlides() Stage { return Stage{Kind: KindPlaceSlides} }

func RemoveSlides() Stage { return Stage{Kind: KindRemoveSlides} }

func Spawn(s particle.Species, count int) Stage {
	return Stage{Kind: KindSpawnBatch, Species: s, Count: count}
}

func Wait(d time.Duration) Stage { return Stage{Kind: KindWait, Duration: d} }

func Vibrate(yMin, yMax float64) Stage {
	return Stage{Kind: KindVibrate, YMin: yMin, YMax: yMax}
}

func Eliminate() Stage { return Stage{Kind: KindEliminate} }

func Measure() Stage { return Stage{Kind: KindMeasure} }

func (s Stage) String() string {
	switch s.Kind {
	case KindNote:
		return fmt.Sprintf("note %q", s.Text)
	case KindSpawnBatch:
		return fmt.Sprintf("spawn %d %s", s.Count, s.Species)
	case KindWait:
		return fmt.Sprintf("wait %s", s.Duration)
	case KindVibrate:
		return fmt.Sprintf("vibrate y=[%.3g, %.3g]", s.YMin, s.YMax)
	default:
		return s.Kind.String()
	}
}
