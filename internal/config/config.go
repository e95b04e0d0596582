package config

import (
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"

	"mrforecast/internal/errors"
	"mrforecast/internal/forecast"
)

// Config represents the complete application configuration
type Config struct {
	Hyper     HyperConfig
	Database  DatabaseConfig
	Server    ServerConfig
	Model     ModelConfig
	Sampling  SamplingConfig
	Profiling ProfilingConfig
}

// Request size limits, matching app.DefaultMaxSampleSize and
// app.DefaultMaxGridSize
const (
	DefaultMaxSampleSize = 1_000_000
	DefaultMaxGridSize   = 100_000
)

// Hyperparameter sources
const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

// HyperConfig selects where the posterior table comes from
type HyperConfig struct {
	Source  string
	File    string
	Dataset string
	NPop    int
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string
}

// ProfilingConfig holds the ops listener settings (health and pprof)
type ProfilingConfig struct {
	Port    string
	Enabled bool
}

// ModelConfig holds the supported domain of the model, in Earth units
type ModelConfig struct {
	MassMin   float64
	MassMax   float64
	RadiusMax float64 // 0 means unbounded
}

// SamplingConfig holds sampler tuning. GridSize trades accuracy of the
// inverse draw against cost; grids coarser than MinGridSize are handled by
// GridPolicy. MaxSampleSize and MaxGridSize cap what a single request may
// ask for.
type SamplingConfig struct {
	GridSize      int
	MinGridSize   int
	MaxGridSize   int
	GridPolicy    forecast.GridPolicy
	GridLogMin    float64
	GridLogMax    float64
	SampleSize    int
	MaxSampleSize int
	Workers       int
	ChunkSize     int
	Seed          uint64 // 0 means seed from the clock
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{}

	hyperConfig, err := loadHyperConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load hyperparameter configuration")
	}
	config.Hyper = *hyperConfig

	config.Database = *loadDatabaseConfig()
	config.Server = *loadServerConfig()
	config.Model = *loadModelConfig()

	samplingConfig, err := loadSamplingConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load sampling configuration")
	}
	config.Sampling = *samplingConfig

	config.Profiling = *loadProfilingConfig()

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadHyperConfig() (*HyperConfig, error) {
	source := strings.ToLower(getEnvOrDefault("HYPER_SOURCE", SourceFile))
	if source != SourceFile && source != SourcePostgres {
		return nil, errors.ConfigInvalid("HYPER_SOURCE must be file or postgres, got " + source)
	}

	return &HyperConfig{
		Source:  source,
		File:    getEnvOrDefault("HYPER_FILE", "h4_thin_hyper.out"),
		Dataset: getEnvOrDefault("HYPER_DATASET", "h4_thin"),
		NPop:    getEnvIntOrDefault("N_POP", 4),
	}, nil
}

func loadDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		URL: os.Getenv("DATABASE_URL"),
	}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port: getEnvOrDefault("PORT", "8080"),
	}
}

func loadProfilingConfig() *ProfilingConfig {
	return &ProfilingConfig{
		Port:    getEnvOrDefault("PPROF_PORT", "6060"),
		Enabled: getEnvBoolOrDefault("PPROF_ENABLED", true),
	}
}

func loadModelConfig() *ModelConfig {
	return &ModelConfig{
		MassMin:   getEnvFloatOrDefault("MASS_MIN", 1e-4),
		MassMax:   getEnvFloatOrDefault("MASS_MAX", 1e6),
		RadiusMax: getEnvFloatOrDefault("RADIUS_MAX", 0),
	}
}

func loadSamplingConfig() (*SamplingConfig, error) {
	policy, err := forecast.ParseGridPolicy(getEnvOrDefault("GRID_POLICY", string(forecast.GridClamp)))
	if err != nil {
		return nil, errors.Wrap(err, "GRID_POLICY")
	}

	return &SamplingConfig{
		GridSize:      getEnvIntOrDefault("GRID_SIZE", 1000),
		MinGridSize:   getEnvIntOrDefault("MIN_GRID_SIZE", forecast.DefaultMinGridSize),
		MaxGridSize:   getEnvIntOrDefault("MAX_GRID_SIZE", DefaultMaxGridSize),
		GridPolicy:    policy,
		GridLogMin:    getEnvFloatOrDefault("GRID_LOG_MIN", forecast.DefaultGridLogMin),
		GridLogMax:    getEnvFloatOrDefault("GRID_LOG_MAX", forecast.DefaultGridLogMax),
		SampleSize:    getEnvIntOrDefault("SAMPLE_SIZE", 100),
		MaxSampleSize: getEnvIntOrDefault("MAX_SAMPLE_SIZE", DefaultMaxSampleSize),
		Workers:       getEnvIntOrDefault("WORKERS", runtime.NumCPU()),
		ChunkSize:     getEnvIntOrDefault("CHUNK_SIZE", forecast.DefaultChunkSize),
		Seed:          getEnvUintOrDefault("SEED", 0),
	}, nil
}

func validateConfig(config *Config) error {
	if config.Hyper.Source == SourcePostgres && config.Database.URL == "" {
		return errors.ConfigInvalid("DATABASE_URL is required when HYPER_SOURCE=postgres")
	}
	if config.Hyper.Source == SourceFile && config.Hyper.File == "" {
		return errors.ConfigInvalid("HYPER_FILE is required when HYPER_SOURCE=file")
	}
	if config.Hyper.NPop < 1 {
		return errors.ConfigInvalid("N_POP must be positive")
	}
	if !(config.Model.MassMin > 0) || !(config.Model.MassMax > config.Model.MassMin) || math.IsInf(config.Model.MassMax, 0) {
		return errors.ConfigInvalid("MASS_MIN and MASS_MAX must satisfy 0 < MASS_MIN < MASS_MAX < Inf")
	}
	if config.Model.RadiusMax < 0 {
		return errors.ConfigInvalid("RADIUS_MAX must be non-negative")
	}
	if config.Sampling.MinGridSize < 2 {
		return errors.ConfigInvalid("MIN_GRID_SIZE must be at least 2")
	}
	if !(config.Sampling.GridLogMax > config.Sampling.GridLogMin) {
		return errors.ConfigInvalid("GRID_LOG_MAX must exceed GRID_LOG_MIN")
	}
	if config.Sampling.SampleSize < 1 {
		return errors.ConfigInvalid("SAMPLE_SIZE must be positive")
	}
	if config.Sampling.MaxSampleSize < config.Sampling.SampleSize {
		return errors.ConfigInvalid("MAX_SAMPLE_SIZE must be at least SAMPLE_SIZE")
	}
	if config.Sampling.MaxGridSize < config.Sampling.GridSize || config.Sampling.MaxGridSize < config.Sampling.MinGridSize {
		return errors.ConfigInvalid("MAX_GRID_SIZE must be at least GRID_SIZE and MIN_GRID_SIZE")
	}
	if config.Sampling.Workers < 1 || config.Sampling.ChunkSize < 1 {
		return errors.ConfigInvalid("WORKERS and CHUNK_SIZE must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvUintOrDefault(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if uintValue, err := strconv.ParseUint(value, 10, 64); err == nil {
			return uintValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
