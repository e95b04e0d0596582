package config

import (
	"testing"

	"mrforecast/internal/errors"
	"mrforecast/internal/forecast"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"HYPER_SOURCE", "HYPER_FILE", "HYPER_DATASET", "N_POP", "DATABASE_URL", "PORT",
	"MASS_MIN", "MASS_MAX", "RADIUS_MAX", "GRID_SIZE", "MIN_GRID_SIZE", "GRID_POLICY",
	"GRID_LOG_MIN", "GRID_LOG_MAX", "SAMPLE_SIZE", "WORKERS", "CHUNK_SIZE", "SEED",
	"PPROF_PORT", "PPROF_ENABLED", "MAX_SAMPLE_SIZE", "MAX_GRID_SIZE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, SourceFile, cfg.Hyper.Source)
	assert.Equal(t, "h4_thin_hyper.out", cfg.Hyper.File)
	assert.Equal(t, "h4_thin", cfg.Hyper.Dataset)
	assert.Equal(t, 4, cfg.Hyper.NPop)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 1e-4, cfg.Model.MassMin)
	assert.Equal(t, 1e6, cfg.Model.MassMax)
	assert.Equal(t, 0.0, cfg.Model.RadiusMax)
	assert.Equal(t, 1000, cfg.Sampling.GridSize)
	assert.Equal(t, 5, cfg.Sampling.MinGridSize)
	assert.Equal(t, forecast.GridClamp, cfg.Sampling.GridPolicy)
	assert.Equal(t, -4.0, cfg.Sampling.GridLogMin)
	assert.Equal(t, 5.5, cfg.Sampling.GridLogMax)
	assert.Equal(t, 100, cfg.Sampling.SampleSize)
	assert.Equal(t, DefaultMaxSampleSize, cfg.Sampling.MaxSampleSize)
	assert.Equal(t, DefaultMaxGridSize, cfg.Sampling.MaxGridSize)
	assert.Positive(t, cfg.Sampling.Workers)
	assert.Equal(t, uint64(0), cfg.Sampling.Seed)
	assert.True(t, cfg.Profiling.Enabled)
	assert.Equal(t, "6060", cfg.Profiling.Port)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HYPER_SOURCE", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/mr")
	t.Setenv("GRID_POLICY", "reject")
	t.Setenv("GRID_SIZE", "250")
	t.Setenv("SEED", "1234")
	t.Setenv("WORKERS", "3")
	t.Setenv("MASS_MAX", "1e5")
	t.Setenv("PPROF_ENABLED", "false")
	t.Setenv("MAX_SAMPLE_SIZE", "5000")
	t.Setenv("MAX_GRID_SIZE", "2000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, SourcePostgres, cfg.Hyper.Source)
	assert.Equal(t, forecast.GridReject, cfg.Sampling.GridPolicy)
	assert.Equal(t, 250, cfg.Sampling.GridSize)
	assert.Equal(t, uint64(1234), cfg.Sampling.Seed)
	assert.Equal(t, 3, cfg.Sampling.Workers)
	assert.Equal(t, 1e5, cfg.Model.MassMax)
	assert.False(t, cfg.Profiling.Enabled)
	assert.Equal(t, 5000, cfg.Sampling.MaxSampleSize)
	assert.Equal(t, 2000, cfg.Sampling.MaxGridSize)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown source", map[string]string{"HYPER_SOURCE": "s3"}},
		{"postgres without url", map[string]string{"HYPER_SOURCE": "postgres"}},
		{"bad policy", map[string]string{"GRID_POLICY": "ignore"}},
		{"tiny min grid", map[string]string{"MIN_GRID_SIZE": "1"}},
		{"inverted mass range", map[string]string{"MASS_MIN": "10", "MASS_MAX": "1"}},
		{"inverted grid range", map[string]string{"GRID_LOG_MIN": "3", "GRID_LOG_MAX": "1"}},
		{"zero sample size", map[string]string{"SAMPLE_SIZE": "0"}},
		{"negative radius max", map[string]string{"RADIUS_MAX": "-1"}},
		{"sample cap below default size", map[string]string{"MAX_SAMPLE_SIZE": "10"}},
		{"grid cap below grid size", map[string]string{"GRID_SIZE": "500", "MAX_GRID_SIZE": "100"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.True(t, errors.IsAppError(err))
		})
	}
}
