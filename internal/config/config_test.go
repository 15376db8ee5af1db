package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	e := cfg.Experiment
	assert.Equal(t, 10.0, e.ContainerSize)
	assert.Equal(t, 0.5, e.ContainerThickness)
	assert.Equal(t, 9.81, e.Gravity)
	assert.Equal(t, 5, e.ContainerBigRatio)
	assert.Equal(t, 5, e.BigSmallRatio)
	assert.Equal(t, 0.31, e.ExpectedSmallVolumeFraction)
	assert.Equal(t, 0.68, e.CalibrationFactor)
	assert.Equal(t, 0.0, e.Restitution)
	assert.Equal(t, 0.5, e.Friction)
	assert.Equal(t, 1.0, e.BigParticleMass)
	assert.Equal(t, 0.02, e.RemovalErrorPercentage)
	assert.Equal(t, 0.92, e.PackingCalibration)

	assert.Equal(t, 2, cfg.Sweep.RepeatsPerStep)
	assert.Equal(t, 1.0, cfg.Sweep.StepPercent)
	assert.Equal(t, time.Second, cfg.Sweep.Heartbeat)
	assert.Equal(t, time.Second, cfg.Sweep.RestartDelay)
	assert.Equal(t, "info", cfg.Runtime.LogLevel)

	require.NoError(t, cfg.Validate())
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "packing.yaml")
	content := `
experiment:
  container_big_ratio: 4
  big_small_ratio: 3
  expected_small_volume_fraction: 0.2
sweep:
  repeats_per_step: 3
  heartbeat: 250ms
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv(EnvName("experiment.big_small_ratio"), "6")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Experiment.ContainerBigRatio)
	assert.Equal(t, 6, cfg.Experiment.BigSmallRatio, "env should override file")
	assert.Equal(t, 0.2, cfg.Experiment.ExpectedSmallVolumeFraction)
	assert.Equal(t, 3, cfg.Sweep.RepeatsPerStep)
	assert.Equal(t, 250*time.Millisecond, cfg.Sweep.Heartbeat)
	// untouched keys keep their defaults
	assert.Equal(t, 10.0, cfg.Experiment.ContainerSize)
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Experiment.ContainerBigRatio)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	t.Setenv(EnvName("experiment.expected_small_volume_fraction"), "0.7")

	_, err := Load("")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidFraction))
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "PACKING_EXPERIMENT_CONTAINER_BIG_RATIO", EnvName("experiment.container_big_ratio"))
}

func TestExperimentConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ExperimentConfig)
		wantErr error
	}{
		{"defaults", func(*ExperimentConfig) {}, nil},
		{"zero fraction", func(e *ExperimentConfig) { e.ExpectedSmallVolumeFraction = 0 }, nil},
		{"max fraction", func(e *ExperimentConfig) { e.ExpectedSmallVolumeFraction = 0.55 }, nil},
		{"container ratio zero", func(e *ExperimentConfig) { e.ContainerBigRatio = 0 }, ErrInvalidRatio},
		{"big small ratio negative", func(e *ExperimentConfig) { e.BigSmallRatio = -1 }, ErrInvalidRatio},
		{"fraction negative", func(e *ExperimentConfig) { e.ExpectedSmallVolumeFraction = -0.01 }, ErrInvalidFraction},
		{"fraction too large", func(e *ExperimentConfig) { e.ExpectedSmallVolumeFraction = 0.56 }, ErrInvalidFraction},
		{"container size zero", func(e *ExperimentConfig) { e.ContainerSize = 0 }, ErrInvalidGeometry},
		{"removal error negative", func(e *ExperimentConfig) { e.RemovalErrorPercentage = -1 }, ErrInvalidGeometry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Default().Experiment
			tt.mutate(&e)
			err := e.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSweepConfig_Validate(t *testing.T) {
	s := Default().Sweep
	require.NoError(t, s.Validate())

	s.RepeatsPerStep = 0
	assert.ErrorIs(t, s.Validate(), ErrInvalidSweep)

	s = Default().Sweep
	s.StepPercent = 0
	assert.ErrorIs(t, s.Validate(), ErrInvalidSweep)
}
