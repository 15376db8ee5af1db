// Package lab runs packing experiments end to end. It owns the current
// configuration, the physics world of the run in flight, the result log
// with its classification and cursor, and the auto-sweep controller.
package lab

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/packing.report/internal/config"
	"github.com/banshee-data/packing.report/internal/metrics"
	"github.com/banshee-data/packing.report/internal/monitoring"
	"github.com/banshee-data/packing.report/internal/particle"
	"github.com/banshee-data/packing.report/internal/physics"
	"github.com/banshee-data/packing.report/internal/results"
	"github.com/banshee-data/packing.report/internal/stage"
	"github.com/banshee-data/packing.report/internal/sweep"
	"github.com/banshee-data/packing.report/internal/timeutil"
)

// ErrBusy is returned when an operation needs the lab idle but a run is in
// flight.
var ErrBusy = errors.New("an experiment is already running")

// retryDelay is the pause between tearing down and restarting a run.
const retryDelay = time.Second

// Recorder persists completed runs. *db.DB satisfies it.
type Recorder interface {
	Record(r *results.Result) error
}

// WorldFactory builds an empty physics world for one run.
type WorldFactory func(e config.ExperimentConfig) physics.World

// SimWorlds returns a WorldFactory backed by the built-in solver.
func SimWorlds(timeStep time.Duration) WorldFactory {
	return func(e config.ExperimentConfig) physics.World {
		return physics.NewSim(physics.SimConfig{
			Container: physics.Container{Size: e.ContainerSize, Thickness: e.ContainerThickness},
			TimeStep:  timeStep,
			// container surfaces share the particle material
			WallRestitution: e.Restitution,
			WallFriction:    e.Friction,
		})
	}
}

// Options configures a Lab.
type Options struct {
	Config   *config.Config
	Clock    timeutil.Clock
	NewWorld WorldFactory
	// Recorder is optional.
	Recorder Recorder
}

// Status is a snapshot of the lab for progress displays.
type Status struct {
	Running  bool           `json:"running"`
	Done     int            `json:"done"`
	Total    int            `json:"total"`
	Fraction float64        `json:"fraction"`
	Text     string         `json:"status"`
	Runs     int            `json:"runs"`
	Sweep    sweep.State    `json:"sweep"`
	Cursor   results.Cursor `json:"cursor"`
}

// Lab is safe for concurrent use. Only one run is in flight at a time.
type Lab struct {
	mu       sync.Mutex
	defaults config.Config
	cfg      config.Config
	clock    timeutil.Clock
	newWorld WorldFactory
	recorder Recorder
	rng      *rand.Rand

	world    physics.World
	running  bool
	progress stage.Progress

	log   *results.Log
	nav   *results.Navigator
	sweep *sweep.Controller
}

// New returns an idle lab. A nil Config uses config.Default, a nil Clock
// the wall clock and a nil NewWorld the built-in solver.
func New(opts Options) *Lab {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	newWorld := opts.NewWorld
	if newWorld == nil {
		newWorld = SimWorlds(cfg.Runtime.TimeStep)
	}

	seed := uint64(cfg.Runtime.Seed)
	if seed == 0 {
		seed = uint64(clock.Now().UnixNano())
	}

	return &Lab{
		defaults: *cfg,
		cfg:      *cfg,
		clock:    clock,
		newWorld: newWorld,
		recorder: opts.Recorder,
		rng:      rand.New(rand.NewPCG(seed, seed>>1|1)),
		log:      results.NewLog(),
		nav:      results.NewNavigator(nil),
		sweep:    sweep.NewController(cfg.Sweep, clock),
	}
}

// Config returns a copy of the current configuration.
func (l *Lab) Config() config.Config {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cfg
}

// SetExperiment replaces the experiment parameters used by the next run.
func (l *Lab) SetExperiment(e config.ExperimentConfig) error {
	if err := e.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return ErrBusy
	}
	l.cfg.Experiment = e
	return nil
}

// begin claims the lab for one run and returns the experiment to run with.
func (l *Lab) begin() (config.ExperimentConfig, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return config.ExperimentConfig{}, ErrBusy
	}
	l.running = true
	l.progress = stage.Progress{}
	return l.cfg.Experiment, nil
}

func (l *Lab) end() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.running = false
}

// Start runs one experiment with the current configuration and records its
// result. Cancelling ctx abandons the run without recording anything.
func (l *Lab) Start(ctx context.Context) (results.Result, error) {
	e, err := l.begin()
	if err != nil {
		return results.Result{}, err
	}
	defer l.end()
	return l.run(ctx, e)
}

// Retry tears down the environment, waits a moment and starts again.
func (l *Lab) Retry(ctx context.Context) (results.Result, error) {
	e, err := l.begin()
	if err != nil {
		return results.Result{}, err
	}
	defer l.end()

	l.resetWorld()
	if err := l.clock.SleepContext(ctx, retryDelay); err != nil {
		return results.Result{}, err
	}
	return l.run(ctx, e)
}

func (l *Lab) run(ctx context.Context, e config.ExperimentConfig) (results.Result, error) {
	plan, err := particle.Derive(e)
	if err != nil {
		return results.Result{}, err
	}
	prog := stage.Build(plan.Counts, e.ContainerSize)

	world := l.newWorld(e)
	world.SetGravity(r3.Vec{Y: -e.Gravity})
	l.mu.Lock()
	l.world = world
	l.progress = stage.Progress{Total: len(prog)}
	sweepState := l.sweep.State()
	l.mu.Unlock()

	exec := &stage.Executor{
		World:         world,
		Clock:         l.clock,
		Container:     physics.Container{Size: e.ContainerSize, Thickness: e.ContainerThickness},
		RemovalError:  e.RemovalErrorPercentage,
		Calculator:    metrics.Calculator{ContainerSize: e.ContainerSize, Calibration: e.PackingCalibration},
		SlideFriction: e.Friction,
		Rand:          l.rng,
		OnProgress:    l.setProgress,
	}

	monitoring.Logf("experiment started: C:B=1:%d B:S=1:%d fraction=%.4f big=%d small=%d stages=%d",
		e.ContainerBigRatio, e.BigSmallRatio, e.ExpectedSmallVolumeFraction,
		plan.Counts.NumBig, plan.Counts.NumSmall, len(prog))

	m, err := exec.Run(ctx, prog, plan)
	if err != nil {
		monitoring.Logf("experiment aborted: %v", err)
		return results.Result{}, err
	}

	var sweepID string
	if sweepState.Status == sweep.StatusRunning {
		sweepID = sweepState.SweepID
	}
	r := l.log.Append(results.Result{
		RunID:                 uuid.NewString(),
		SweepID:               sweepID,
		Created:               l.clock.Now(),
		PackingDensity:        m.PackingDensity,
		BigPercentage:         m.BigPercentage,
		SmallPercentage:       m.SmallPercentage,
		ContainerBigRatio:     e.ContainerBigRatio,
		BigSmallRatio:         e.BigSmallRatio,
		ExpectedSmallFraction: e.ExpectedSmallVolumeFraction,
		BigCount:              m.BigCount,
		SmallCount:            m.SmallCount,
	})
	l.refreshCursor()

	if l.recorder != nil {
		if err := l.recorder.Record(&r); err != nil {
			monitoring.Logf("warning: failed to record run %s: %v", r.RunID, err)
		}
	}
	monitoring.Logf("experiment finished: %s", r)
	return r, nil
}

func (l *Lab) setProgress(p stage.Progress) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.progress = p
}

func (l *Lab) refreshCursor() {
	groups := l.log.Groups()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nav.Update(groups)
}

func (l *Lab) resetWorld() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.world = nil
	l.progress = stage.Progress{}
}

// Reset clears the environment, restores the default configuration and
// returns the sweep to idle. Recorded results are kept.
func (l *Lab) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return ErrBusy
	}
	l.world = nil
	l.progress = stage.Progress{}
	l.cfg = l.defaults
	l.sweep.Reset()
	return nil
}

// ClearResults empties the result log, its groups and the cursor. The next
// run is numbered 1 again.
func (l *Lab) ClearResults() {
	l.log.Clear()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nav.Update(nil)
	l.nav.Reset()
}

// Import decodes a CSV export from r and adds its rows to the log. Nothing
// is added when any row fails to decode.
func (l *Lab) Import(r io.Reader) (int, error) {
	rs, err := results.Decode(r)
	if err != nil {
		monitoring.Logf("warning: import failed: %v", err)
		return 0, err
	}
	l.log.Import(rs)
	l.refreshCursor()
	monitoring.Logf("imported %d results", len(rs))
	return len(rs), nil
}

// Export writes every result as CSV in insertion order.
func (l *Lab) Export(w io.Writer) error {
	if err := results.Encode(w, l.log.Results()); err != nil {
		monitoring.Logf("warning: export failed: %v", err)
		return err
	}
	return nil
}

// Results returns the result log in insertion order.
func (l *Lab) Results() []results.Result {
	return l.log.Results()
}

// Groups returns the classified results.
func (l *Lab) Groups() []results.Group {
	return l.log.Groups()
}

// World returns the world of the current or most recent run, if any.
func (l *Lab) World() physics.World {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.world
}

// Status returns a progress snapshot.
func (l *Lab) Status() Status {
	runs := l.log.Len()
	l.mu.Lock()
	defer l.mu.Unlock()
	return Status{
		Running:  l.running,
		Done:     l.progress.Done,
		Total:    l.progress.Total,
		Fraction: l.progress.Fraction(),
		Text:     l.progress.Status,
		Runs:     runs,
		Sweep:    l.sweep.State(),
		Cursor:   l.nav.Cursor(),
	}
}

// Next, Prev and NextGroup move the result cursor.
func (l *Lab) Next() { l.move((*results.Navigator).Next) }

func (l *Lab) Prev() { l.move((*results.Navigator).Prev) }

func (l *Lab) NextGroup() { l.move((*results.Navigator).NextGroup) }

func (l *Lab) move(fn func(*results.Navigator)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.nav)
}

// Selected returns the result under the cursor.
func (l *Lab) Selected() (results.Result, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nav.Selected()
}

// Run starts a sweep when sweeps are enabled and a single experiment
// otherwise.
func (l *Lab) Run(ctx context.Context) error {
	if l.Config().Sweep.Enabled {
		return l.RunSweep(ctx)
	}
	_, err := l.Start(ctx)
	return err
}

// TerminateSweep asks a running sweep to stop after the current run.
func (l *Lab) TerminateSweep() {
	l.sweep.RequestTerminate()
}

// SweepState returns the sweep controller state.
func (l *Lab) SweepState() sweep.State {
	return l.sweep.State()
}

// RunSweep walks the small volume fraction from 0 up to the ceiling,
// running each step the configured number of times. Completion is polled
// on the heartbeat and each follow-up run starts after the restart delay.
func (l *Lab) RunSweep(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return ErrBusy
	}
	heartbeat, restart := l.cfg.Sweep.Heartbeat, l.cfg.Sweep.RestartDelay
	l.mu.Unlock()

	fraction, err := l.sweep.Start()
	if err != nil {
		return err
	}

	for {
		e := l.Config().Experiment
		e.ExpectedSmallVolumeFraction = fraction
		if err := l.SetExperiment(e); err != nil {
			l.sweep.Reset()
			return fmt.Errorf("sweep step at fraction %.4f: %w", fraction, err)
		}

		if _, err := l.Start(ctx); err != nil {
			l.sweep.Reset()
			return err
		}
		if err := l.clock.SleepContext(ctx, heartbeat); err != nil {
			l.sweep.Reset()
			return err
		}

		next, more := l.sweep.Complete()
		if !more {
			return nil
		}
		fraction = next

		l.resetWorld()
		if err := l.clock.SleepContext(ctx, restart); err != nil {
			l.sweep.Reset()
			return err
		}
	}
}
