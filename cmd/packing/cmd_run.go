package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/banshee-data/packing.report/internal/config"
	"github.com/banshee-data/packing.report/internal/lab"
	"github.com/banshee-data/packing.report/internal/monitor"
	"github.com/banshee-data/packing.report/internal/monitoring"
	"github.com/banshee-data/packing.report/internal/security"
)

// addExperimentFlags registers the per-run overrides shared by run and sweep.
func addExperimentFlags(cmd *cobra.Command) {
	cmd.Flags().Int("container-big-ratio", 0, "Container size : big particle diameter (1:N)")
	cmd.Flags().Int("big-small-ratio", 0, "Big : small particle diameter (1:N)")
	cmd.Flags().Int64("seed", 0, "Spawn RNG seed (0 = time based)")
	cmd.Flags().Bool("realtime", false, "Hold every wait stage on the wall clock")
	cmd.Flags().String("listen", "", "Serve the monitor on this address (e.g. :8090)")
	cmd.Flags().String("import", "", "Load earlier results from a CSV export before running")
	cmd.Flags().StringP("output", "o", "", "Write all results as CSV when done")
}

// applyExperimentFlags copies the flags the user set onto cfg.
func applyExperimentFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("container-big-ratio") {
		cfg.Experiment.ContainerBigRatio, _ = flags.GetInt("container-big-ratio")
	}
	if flags.Changed("big-small-ratio") {
		cfg.Experiment.BigSmallRatio, _ = flags.GetInt("big-small-ratio")
	}
	if flags.Changed("fraction") {
		cfg.Experiment.ExpectedSmallVolumeFraction, _ = flags.GetFloat64("fraction")
	}
	if flags.Changed("seed") {
		cfg.Runtime.Seed, _ = flags.GetInt64("seed")
	}
	if flags.Changed("realtime") {
		cfg.Runtime.Realtime, _ = flags.GetBool("realtime")
	}
	if flags.Changed("listen") {
		cfg.Runtime.Listen, _ = flags.GetString("listen")
	}
	if flags.Changed("repeats") {
		cfg.Sweep.RepeatsPerStep, _ = flags.GetInt("repeats")
	}
	if flags.Changed("step") {
		cfg.Sweep.StepPercent, _ = flags.GetFloat64("step")
	}
	return cfg.Validate()
}

// session is one CLI invocation's lab plus the resources around it.
type session struct {
	lab     *lab.Lab
	cfg     *config.Config
	cleanup []func()
}

func (s *session) close() {
	for i := len(s.cleanup) - 1; i >= 0; i-- {
		s.cleanup[i]()
	}
}

func newSession(ctx context.Context, cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := applyExperimentFlags(cmd, cfg); err != nil {
		return nil, err
	}

	s := &session{cfg: cfg}
	opts := lab.Options{Config: cfg, Clock: newClock(cfg)}

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	if store != nil {
		opts.Recorder = store
		s.cleanup = append(s.cleanup, func() { store.Close() })
	}
	s.lab = lab.New(opts)

	if path, _ := cmd.Flags().GetString("import"); path != "" {
		if err := importFile(s.lab, path); err != nil {
			s.close()
			return nil, err
		}
	}

	if cfg.Runtime.Listen != "" {
		srvCtx, cancel := context.WithCancel(ctx)
		ws := monitor.NewWebServer(monitor.WebServerConfig{Address: cfg.Runtime.Listen, Lab: s.lab})
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ws.Start(srvCtx); err != nil {
				monitoring.Logf("monitor: %v", err)
			}
		}()
		s.cleanup = append(s.cleanup, func() {
			cancel()
			wg.Wait()
		})
	}
	return s, nil
}

func importFile(l *lab.Lab, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := l.Import(f); err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	return nil
}

func exportFile(l *lab.Lab, path string) error {
	if err := security.ValidateOutputPath(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := l.Export(f); err != nil {
		f.Close()
		return fmt.Errorf("export %s: %w", path, err)
	}
	return f.Close()
}

// finish prints the results and writes the export, if requested.
func (s *session) finish(cmd *cobra.Command) error {
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		if err := exportFile(s.lab, path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d results to %s\n", len(s.lab.Results()), path)
	}
	return printGroups(cmd, s.lab.Groups())
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one or more experiments with the configured ratios",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			stop := watchSignals(func() {
				monitoring.Logf("interrupt: abandoning the current run")
				cancel()
			}, cancel)
			defer stop()

			s, err := newSession(ctx, cmd)
			if err != nil {
				return err
			}
			defer s.close()

			count, _ := cmd.Flags().GetInt("count")
			retry, _ := cmd.Flags().GetBool("retry")
			for i := 0; i < count; i++ {
				start := s.lab.Start
				if retry && i > 0 {
					start = s.lab.Retry
				}
				r, err := start(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), r)
			}
			return s.finish(cmd)
		},
	}
	addExperimentFlags(cmd)
	cmd.Flags().Float64("fraction", 0, "Expected small volume fraction [0, 0.55]")
	cmd.Flags().IntP("count", "n", 1, "Number of experiments to run")
	cmd.Flags().Bool("retry", false, "Tear down and pause between experiments")
	return cmd
}

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Sweep the small volume fraction from 0 to 0.55",
		Long: `sweep repeats the experiment while stepping the expected small volume
fraction up from 0 until it would pass 0.55.

The first interrupt asks the sweep to stop after the run in flight; a second
interrupt abandons that run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			var l *lab.Lab
			var mu sync.Mutex
			stop := watchSignals(func() {
				mu.Lock()
				defer mu.Unlock()
				monitoring.Logf("interrupt: finishing the current run, interrupt again to abort")
				if l != nil {
					l.TerminateSweep()
				}
			}, cancel)
			defer stop()

			s, err := newSession(ctx, cmd)
			if err != nil {
				return err
			}
			defer s.close()
			mu.Lock()
			l = s.lab
			mu.Unlock()

			if err := s.lab.RunSweep(ctx); err != nil {
				return err
			}
			st := s.lab.SweepState()
			fmt.Fprintf(cmd.OutOrStdout(), "sweep %s %s after %d runs at fraction %.4f\n",
				st.SweepID, st.Status, st.Completed, st.Fraction)
			return s.finish(cmd)
		},
	}
	addExperimentFlags(cmd)
	cmd.Flags().Int("repeats", 0, "Runs per fraction step")
	cmd.Flags().Float64("step", 0, "Fraction step in percent")
	return cmd
}
