// Package sweep walks the expected small volume fraction upward across
// repeated runs.
package sweep

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/packing.report/internal/config"
	"github.com/banshee-data/packing.report/internal/monitoring"
	"github.com/banshee-data/packing.report/internal/timeutil"
)

// ErrAlreadyRunning is returned by Start while a sweep is in progress.
var ErrAlreadyRunning = errors.New("sweep already running")

// fractionEpsilon absorbs float error when comparing against the ceiling.
const fractionEpsilon = 1e-9

// Status represents the current state of a sweep.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusRunning  Status = "running"
	StatusFinished Status = "finished"
)

// State is a snapshot of the controller.
type State struct {
	Status    Status `json:"status"`
	SweepID   string `json:"sweep_id,omitempty"`
	Step      int    `json:"step"`
	Repeat    int    `json:"repeat"`
	Repeats   int    `json:"repeats_per_step"`
	// Fraction is the expected small volume fraction for the next run.
	Fraction    float64    `json:"fraction"`
	Completed   int        `json:"completed_runs"`
	Terminating bool       `json:"terminating"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Controller is the auto-sweep state machine. It only changes state at run
// boundaries: Start before the first run and Complete after each one.
type Controller struct {
	mu          sync.Mutex
	clock       timeutil.Clock
	repeats     int
	stepPercent float64
	state       State
}

// NewController returns an idle controller.
func NewController(cfg config.SweepConfig, clock timeutil.Clock) *Controller {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Controller{
		clock:       clock,
		repeats:     cfg.RepeatsPerStep,
		stepPercent: cfg.StepPercent,
		state:       State{Status: StatusIdle, Repeats: cfg.RepeatsPerStep},
	}
}

// Start begins a sweep at fraction 0 and returns that fraction.
func (c *Controller) Start() (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Status == StatusRunning {
		return 0, ErrAlreadyRunning
	}
	now := c.clock.Now()
	c.state = State{
		Status:    StatusRunning,
		SweepID:   uuid.NewString(),
		Step:      1,
		Repeat:    1,
		Repeats:   c.repeats,
		Fraction:  0,
		StartedAt: &now,
	}
	monitoring.Logf("sweep %s started: %d runs per step, step %.2f%%", c.state.SweepID, c.repeats, c.stepPercent)
	return 0, nil
}

// Complete records a finished run and decides what comes next. It returns
// the fraction for the next run and whether the sweep continues. Outside a
// running sweep it reports false.
func (c *Controller) Complete() (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Status != StatusRunning {
		return c.state.Fraction, false
	}
	c.state.Completed++

	if c.state.Terminating {
		c.finish("terminated")
		return c.state.Fraction, false
	}

	c.state.Repeat++
	if c.state.Repeat > c.repeats {
		c.state.Repeat = 1
		c.state.Step++
	}

	// derived from the step index so error does not accumulate
	next := float64(c.state.Step-1) * c.stepPercent / 100
	if next > config.MaxSmallVolumeFraction+fractionEpsilon {
		c.state.Fraction = config.MaxSmallVolumeFraction
		c.finish("reached the fraction ceiling")
		return c.state.Fraction, false
	}
	c.state.Fraction = next
	monitoring.Debugf("sweep %s: step %d repeat %d/%d at fraction %.4f", c.state.SweepID, c.state.Step, c.state.Repeat, c.repeats, next)
	return next, true
}

func (c *Controller) finish(reason string) {
	now := c.clock.Now()
	c.state.Status = StatusFinished
	c.state.CompletedAt = &now
	monitoring.Logf("sweep %s finished after %d runs: %s", c.state.SweepID, c.state.Completed, reason)
}

// RequestTerminate asks the sweep to stop at the next run boundary. An
// in-flight run is never interrupted.
func (c *Controller) RequestTerminate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Status == StatusRunning {
		c.state.Terminating = true
	}
}

// Reset returns the controller to idle.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = State{Status: StatusIdle, Repeats: c.repeats}
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Running reports whether a sweep is in progress.
func (c *Controller) Running() bool {
	return c.State().Status == StatusRunning
}
