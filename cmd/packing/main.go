package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/packing.report/internal/config"
	"github.com/banshee-data/packing.report/internal/db"
	"github.com/banshee-data/packing.report/internal/monitoring"
	"github.com/banshee-data/packing.report/internal/timeutil"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "packing",
		Short: "Packing density experiments for binary sphere mixtures",
		Long: `packing drops big and small spheres into a square container, shakes them,
removes whatever spills over the rim and measures the packing density.

Results are classified by the container:big and big:small size ratios and
can be exported as CSV, stored in sqlite and plotted.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", "", "Config file (yaml, json or toml); PACKING_* env vars override it")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().Bool("dev-log", false, "Human-readable console logging")
	rootCmd.PersistentFlags().String("db", "", "sqlite database for completed runs (overrides config)")
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON where supported")

	rootCmd.AddCommand(
		newRunCmd(),
		newSweepCmd(),
		newImportCmd(),
		newExportCmd(),
		newChartCmd(),
		newInspectCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// loadConfig reads the config file named by --config and applies the
// global flag overrides. It also installs the logger.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Runtime.LogLevel = lvl
	}
	if dbPath, _ := cmd.Flags().GetString("db"); dbPath != "" {
		cfg.Runtime.DatabasePath = dbPath
	}

	dev, _ := cmd.Flags().GetBool("dev-log")
	logger, err := monitoring.NewLogger(cfg.Runtime.LogLevel, dev)
	if err != nil {
		return nil, err
	}
	monitoring.Use(logger)
	return cfg, nil
}

// openStore opens the configured database, or returns nil when none is set.
func openStore(cfg *config.Config) (*db.DB, error) {
	if cfg.Runtime.DatabasePath == "" {
		return nil, nil
	}
	store, err := db.NewDB(cfg.Runtime.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.Runtime.DatabasePath, err)
	}
	return store, nil
}

// newClock picks the wall clock for realtime runs and a simulated clock
// otherwise.
func newClock(cfg *config.Config) timeutil.Clock {
	if cfg.Runtime.Realtime {
		return timeutil.RealClock{}
	}
	return timeutil.NewSimClock(time.Now())
}
