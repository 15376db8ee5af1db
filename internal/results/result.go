// Package results records completed runs, groups them by ratio pair and
// moves them in and out of CSV.
package results

import (
	"fmt"
	"time"
)

// Result is one completed run. Only the five measured fields and the ratio
// pair travel through CSV.
type Result struct {
	RunID   string    `json:"run_id,omitempty"`
	SweepID string    `json:"sweep_id,omitempty"`
	Index   int       `json:"index"`
	Created time.Time `json:"created_at,omitempty"`

	PackingDensity  float64 `json:"packing_density"`
	BigPercentage   float64 `json:"big_percentage"`
	SmallPercentage float64 `json:"small_percentage"`

	ContainerBigRatio int `json:"container_big_ratio"`
	BigSmallRatio     int `json:"big_small_ratio"`

	ExpectedSmallFraction float64 `json:"expected_small_fraction"`
	BigCount              int     `json:"big_count"`
	SmallCount            int     `json:"small_count"`
}

// Key identifies a classification group.
type Key struct {
	ContainerBigRatio int `json:"container_big_ratio"`
	BigSmallRatio     int `json:"big_small_ratio"`
}

// Key returns the ratio pair r belongs to.
func (r Result) Key() Key {
	return Key{ContainerBigRatio: r.ContainerBigRatio, BigSmallRatio: r.BigSmallRatio}
}

// Label is the chart series name for the group.
func (k Key) Label() string {
	return fmt.Sprintf("C:B=1:%d&B:S=1:%d", k.ContainerBigRatio, k.BigSmallRatio)
}

// Detail renders r the way a selected chart point is described.
func (r Result) Detail() string {
	return fmt.Sprintf("Packing Density = %.4f\nSmall Particles = %.2f%%\n@ C:B = 1:%d & B:S = 1:%d",
		r.PackingDensity, r.SmallPercentage, r.ContainerBigRatio, r.BigSmallRatio)
}

// String renders r as a short result block.
func (r Result) String() string {
	return fmt.Sprintf("Experiment Result #%d { Packing Density: %.4f, Big Particle: %v %%, Small Particle: %v %%, @ C:B = 1:%d & B:S = 1:%d }",
		r.Index, r.PackingDensity, r.BigPercentage, r.SmallPercentage, r.ContainerBigRatio, r.BigSmallRatio)
}
