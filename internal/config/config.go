// Package config defines the experiment configuration surface and loads it
// from an optional file plus PACKING_ environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// MaxSmallVolumeFraction is the upper bound of the expected small-particle
// volume fraction.
const MaxSmallVolumeFraction = 0.55

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "PACKING"

var (
	ErrInvalidRatio    = errors.New("ratio must be at least 1")
	ErrInvalidFraction = fmt.Errorf("expected small volume fraction must be in [0, %.2f]", MaxSmallVolumeFraction)
	ErrInvalidSweep    = errors.New("invalid sweep settings")
	ErrInvalidGeometry = errors.New("invalid container geometry")
)

// ExperimentConfig holds the parameters of a single packing run. It is
// treated as immutable once a run starts.
type ExperimentConfig struct {
	ContainerSize               float64 `mapstructure:"container_size" yaml:"container_size"`
	ContainerThickness          float64 `mapstructure:"container_thickness" yaml:"container_thickness"`
	Gravity                     float64 `mapstructure:"gravity" yaml:"gravity"`
	ContainerBigRatio           int     `mapstructure:"container_big_ratio" yaml:"container_big_ratio"`
	BigSmallRatio               int     `mapstructure:"big_small_ratio" yaml:"big_small_ratio"`
	ExpectedSmallVolumeFraction float64 `mapstructure:"expected_small_volume_fraction" yaml:"expected_small_volume_fraction"`
	CalibrationFactor           float64 `mapstructure:"calibration_factor" yaml:"calibration_factor"`
	Restitution                 float64 `mapstructure:"restitution" yaml:"restitution"`
	Friction                    float64 `mapstructure:"friction" yaml:"friction"`
	BigParticleMass             float64 `mapstructure:"big_particle_mass" yaml:"big_particle_mass"`
	RemovalErrorPercentage      float64 `mapstructure:"removal_error_percentage" yaml:"removal_error_percentage"`
	// PackingCalibration scales the raw packing density. Provisional.
	PackingCalibration float64 `mapstructure:"packing_calibration" yaml:"packing_calibration"`
}

// SweepConfig controls the auto-sweep over the small volume fraction.
type SweepConfig struct {
	Enabled        bool          `mapstructure:"enabled" yaml:"enabled"`
	RepeatsPerStep int           `mapstructure:"repeats_per_step" yaml:"repeats_per_step"`
	StepPercent    float64       `mapstructure:"step_percent" yaml:"step_percent"`
	Heartbeat      time.Duration `mapstructure:"heartbeat" yaml:"heartbeat"`
	RestartDelay   time.Duration `mapstructure:"restart_delay" yaml:"restart_delay"`
}

// RuntimeConfig holds process-level settings.
type RuntimeConfig struct {
	// Seed for the spawn RNG. Zero picks a time-based seed.
	Seed int64 `mapstructure:"seed" yaml:"seed"`
	// Realtime makes Wait stages block on the wall clock.
	Realtime     bool          `mapstructure:"realtime" yaml:"realtime"`
	TimeStep     time.Duration `mapstructure:"time_step" yaml:"time_step"`
	LogLevel     string        `mapstructure:"log_level" yaml:"log_level"`
	DatabasePath string        `mapstructure:"database_path" yaml:"database_path"`
	Listen       string        `mapstructure:"listen" yaml:"listen"`
}

// Config is the root configuration.
type Config struct {
	Experiment ExperimentConfig `mapstructure:"experiment" yaml:"experiment"`
	Sweep      SweepConfig      `mapstructure:"sweep" yaml:"sweep"`
	Runtime    RuntimeConfig    `mapstructure:"runtime" yaml:"runtime"`
}

// defaults maps every config key to its default value. Keys listed here are
// also bound to PACKING_<SECTION>_<KEY> environment variables.
var defaults = map[string]any{
	"experiment.container_size":                 10.0,
	"experiment.container_thickness":            0.5,
	"experiment.gravity":                        9.81,
	"experiment.container_big_ratio":            5,
	"experiment.big_small_ratio":                5,
	"experiment.expected_small_volume_fraction": 0.31,
	"experiment.calibration_factor":             0.68,
	"experiment.restitution":                    0.0,
	"experiment.friction":                       0.5,
	"experiment.big_particle_mass":              1.0,
	"experiment.removal_error_percentage":       0.02,
	"experiment.packing_calibration":            0.92,
	"sweep.enabled":                             false,
	"sweep.repeats_per_step":                    2,
	"sweep.step_percent":                        1.0,
	"sweep.heartbeat":                           time.Second,
	"sweep.restart_delay":                       time.Second,
	"runtime.seed":                              int64(0),
	"runtime.realtime":                          false,
	"runtime.time_step":                         10 * time.Millisecond,
	"runtime.log_level":                         "info",
	"runtime.database_path":                     "",
	"runtime.listen":                            "",
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	cfg, err := unmarshal(newViper())
	if err != nil {
		// defaults are static; a decode failure is a programming error
		panic(fmt.Sprintf("config: decoding defaults: %v", err))
	}
	return cfg
}

// Load reads the config file at filePath, if it exists, and applies
// environment overrides on top. An empty path loads defaults plus env.
// The result is validated.
func Load(filePath string) (*Config, error) {
	v := newViper()
	if err := bindEnvs(v); err != nil {
		return nil, err
	}

	if filePath != "" {
		v.SetConfigFile(filePath)
		if _, err := os.Stat(filePath); !errors.Is(err, fs.ErrNotExist) {
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config %s: %w", filePath, err)
			}
		}
	}

	cfg, err := unmarshal(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// bindEnvs binds every known key to its PACKING_ environment variable.
func bindEnvs(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key := range defaults {
		if err := v.BindEnv(key); err != nil {
			return err
		}
	}
	return nil
}

// EnvName returns the environment variable that overrides key.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	if err := c.Experiment.Validate(); err != nil {
		return err
	}
	return c.Sweep.Validate()
}

// Validate checks the experiment parameters. It is called before any
// particle counts are derived.
func (e *ExperimentConfig) Validate() error {
	if e.ContainerBigRatio < 1 {
		return fmt.Errorf("container_big_ratio %d: %w", e.ContainerBigRatio, ErrInvalidRatio)
	}
	if e.BigSmallRatio < 1 {
		return fmt.Errorf("big_small_ratio %d: %w", e.BigSmallRatio, ErrInvalidRatio)
	}
	f := e.ExpectedSmallVolumeFraction
	if f < 0 || f > MaxSmallVolumeFraction || f != f {
		return fmt.Errorf("expected_small_volume_fraction %v: %w", f, ErrInvalidFraction)
	}
	if e.ContainerSize <= 0 {
		return fmt.Errorf("container_size %v must be positive: %w", e.ContainerSize, ErrInvalidGeometry)
	}
	if e.ContainerThickness < 0 {
		return fmt.Errorf("container_thickness %v must be non-negative: %w", e.ContainerThickness, ErrInvalidGeometry)
	}
	if e.RemovalErrorPercentage < 0 {
		return fmt.Errorf("removal_error_percentage %v must be non-negative: %w", e.RemovalErrorPercentage, ErrInvalidGeometry)
	}
	if e.BigParticleMass <= 0 {
		return fmt.Errorf("big_particle_mass %v must be positive: %w", e.BigParticleMass, ErrInvalidGeometry)
	}
	return nil
}

// Validate checks the sweep settings.
func (s *SweepConfig) Validate() error {
	if s.RepeatsPerStep < 1 {
		return fmt.Errorf("repeats_per_step %d must be at least 1: %w", s.RepeatsPerStep, ErrInvalidSweep)
	}
	if s.StepPercent <= 0 {
		return fmt.Errorf("step_percent %v must be positive: %w", s.StepPercent, ErrInvalidSweep)
	}
	if s.Heartbeat < 0 || s.RestartDelay < 0 {
		return fmt.Errorf("heartbeat and restart_delay must be non-negative: %w", ErrInvalidSweep)
	}
	return nil
}
