package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/banshee-data/packing.report/internal/chart"
	"github.com/banshee-data/packing.report/internal/particle"
	"github.com/banshee-data/packing.report/internal/results"
	"github.com/banshee-data/packing.report/internal/security"
	"github.com/banshee-data/packing.report/internal/stage"
)

// printGroups writes per-group summaries as a table, or JSON with --json.
func printGroups(cmd *cobra.Command, groups []results.Group) error {
	sums := results.Summarize(groups)
	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(sums)
	}
	if len(sums) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no results")
		return nil
	}
	return results.WriteSummaries(cmd.OutOrStdout(), sums)
}

// readCSVFiles decodes every file in paths into one log. Any failure
// rejects the whole set.
func readCSVFiles(paths []string) (*results.Log, error) {
	log := results.NewLog()
	var all []results.Result
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		rs, err := results.Decode(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		all = append(all, rs...)
	}
	log.Import(all)
	return log, nil
}

// loadResults reads CSV files when paths are given and the configured
// database otherwise.
func loadResults(cmd *cobra.Command, paths []string) (*results.Log, error) {
	if len(paths) > 0 {
		return readCSVFiles(paths)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("no input: pass CSV files or set --db")
	}
	defer store.Close()

	rs, err := store.ListResults()
	if err != nil {
		return nil, err
	}
	log := results.NewLog()
	log.Import(rs)
	return log, nil
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE...",
		Short: "Store the rows of CSV exports in the database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			if store == nil {
				return errors.New("import needs a database: set --db or runtime.database_path")
			}
			defer store.Close()

			log, err := readCSVFiles(args)
			if err != nil {
				return err
			}
			rs := log.Results()
			for i := range rs {
				if err := store.Record(&rs[i]); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d results into %s\n", len(rs), cfg.Runtime.DatabasePath)
			return printGroups(cmd, log.Groups())
		},
	}
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write stored runs as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := loadResults(cmd, nil)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			out, _ := cmd.Flags().GetString("output")
			if out != "" && out != "-" {
				if err := security.ValidateOutputPath(out); err != nil {
					return err
				}
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return results.Encode(w, log.Results())
		},
	}
	cmd.Flags().StringP("output", "o", "-", "Output file, - for stdout")
	return cmd
}

func newChartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chart [FILE...]",
		Short: "Plot packing density against small particle percentage",
		Long: `chart renders one scatter series per ratio pair from CSV exports, or from
the database when no files are given. The output format follows the
extension: .png or .html.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := loadResults(cmd, args)
			if err != nil {
				return err
			}
			out, _ := cmd.Flags().GetString("output")
			if err := security.ValidateOutputPath(out); err != nil {
				return err
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}

			switch strings.ToLower(filepath.Ext(out)) {
			case ".html", ".htm":
				err = chart.WriteHTML(f, log.Groups(), fmt.Sprintf("runs=%d", log.Len()))
			default:
				width, _ := cmd.Flags().GetFloat64("width")
				height, _ := cmd.Flags().GetFloat64("height")
				err = chart.WritePNG(f, log.Groups(), width, height)
			}
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "packing-density.png", "Output file (.png or .html)")
	cmd.Flags().Float64("width", 8, "PNG width in inches")
	cmd.Flags().Float64("height", 6, "PNG height in inches")
	return cmd
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [FILE...]",
		Short: "Summarise CSV exports, or show the plan for the current config",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				log, err := readCSVFiles(args)
				if err != nil {
					return err
				}
				return printGroups(cmd, log.Groups())
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			plan, err := particle.Derive(cfg.Experiment)
			if err != nil {
				return err
			}
			prog := stage.Build(plan.Counts, cfg.Experiment.ContainerSize)

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(struct {
					Plan       particle.Plan `json:"plan"`
					Stages     int           `json:"stages"`
					WaitTotal  string        `json:"wait_total"`
					SpawnBig   int           `json:"spawn_big"`
					SpawnSmall int           `json:"spawn_small"`
				}{plan, len(prog), prog.TotalWait().String(), prog.Spawned(particle.Big), prog.Spawned(particle.Small)})
			}

			w := cmd.OutOrStdout()
			c := plan.Counts
			fmt.Fprintf(w, "big:   radius %.4f mass %.4f count %d in %d bursts of %d\n",
				plan.Big.Radius, plan.Big.Mass, c.NumBig, c.BigLoops(), c.BatchBig)
			fmt.Fprintf(w, "small: radius %.4f mass %.6f count %d in %d bursts of %d\n",
				plan.Small.Radius, plan.Small.Mass, c.NumSmall, c.SmallLoops(), c.BatchSmall)
			fmt.Fprintf(w, "program: %d stages, %s of waits\n", len(prog), prog.TotalWait())
			for i, st := range prog {
				fmt.Fprintf(w, "%4d  %s\n", i+1, st)
			}
			return nil
		},
	}
}
