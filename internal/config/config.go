package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the skylens API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds telemetry store connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// TelemetryConfig holds telemetry index and pagination settings.
type TelemetryConfig struct {
	IndexName string `yaml:"index_name"`
	KeyPrefix string `yaml:"key_prefix"`
	PageSize  int    `yaml:"page_size"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey            string  `yaml:"api_key"`
	BaseURL           string  `yaml:"base_url"`
	Provider          string  `yaml:"provider"`
	Model             string  `yaml:"model"`
	Dimensions        int     `yaml:"dimensions"`
	BatchSize         int     `yaml:"batch_size"`
	RequestsPerSecond float64 `yaml:"requests_per_second"` // 0 = unlimited
	Burst             int     `yaml:"burst"`
	CacheTTLSec       int     `yaml:"cache_ttl_sec"` // 0 = cache disabled
}

// AnalysisConfig holds default analysis parameters, overridable per request.
type AnalysisConfig struct {
	ClusterCount     int     `yaml:"cluster_count"`
	MinClusterSize   int     `yaml:"min_cluster_size"`
	SamplingPercent  float64 `yaml:"sampling_percent"`
	MaxDocsToProcess int     `yaml:"max_docs_to_process"`
	ZScoreThreshold  float64 `yaml:"zscore_threshold"`
}

// Load reads config/<env>.yaml, expands environment variable references,
// fills defaults, and validates the result.
func Load(env string) (Config, error) {
	path := findConfigPath(env)

	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	// Expansion happens on the raw bytes so ${VAR} works anywhere in the file.
	var cfg Config
	if err := yaml.Unmarshal(expandEnvVars(raw), &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Analysis runs make several provider round-trips; give them room.
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Telemetry.IndexName == "" {
		c.Telemetry.IndexName = "telemetry"
	}
	if c.Telemetry.KeyPrefix == "" {
		c.Telemetry.KeyPrefix = "skylens:"
	}
	if c.Telemetry.PageSize <= 0 {
		c.Telemetry.PageSize = 100
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = 5
	}
	if c.Embedding.Burst <= 0 {
		c.Embedding.Burst = 1
	}
	if c.Analysis.ClusterCount <= 0 {
		c.Analysis.ClusterCount = 5
	}
	if c.Analysis.MinClusterSize <= 0 {
		c.Analysis.MinClusterSize = 3
	}
	if c.Analysis.SamplingPercent <= 0 {
		c.Analysis.SamplingPercent = 10
	}
	if c.Analysis.MaxDocsToProcess <= 0 {
		c.Analysis.MaxDocsToProcess = 10000
	}
	if c.Analysis.ZScoreThreshold <= 0 {
		c.Analysis.ZScoreThreshold = 3
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Analysis.SamplingPercent > 100 {
		return fmt.Errorf("analysis.sampling_percent must be at most 100, got %g", c.Analysis.SamplingPercent)
	}
	return nil
}

// findConfigPath tries ./config/<env>.yaml first, then the config directory
// at the project root (useful when tests run from a package directory). Falls
// back to the cwd-relative path so the read error names a sensible location.
func findConfigPath(env string) string {
	filename := env + ".yaml"
	local := filepath.Join("config", filename)

	candidates := []string{local}
	if _, src, _, ok := runtime.Caller(0); ok {
		root := filepath.Dir(filepath.Dir(filepath.Dir(src)))
		candidates = append(candidates, filepath.Join(root, "config", filename))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return local
}

var envRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars substitutes ${VAR} and ${VAR:-default} references. An unset
// variable without a default expands to the empty string.
func expandEnvVars(data []byte) []byte {
	return envRef.ReplaceAllFunc(data, func(ref []byte) []byte {
		name, fallback, hasFallback := strings.Cut(string(ref[2:len(ref)-1]), ":-")
		if val := os.Getenv(name); val != "" {
			return []byte(val)
		}
		if hasFallback {
			return []byte(fallback)
		}
		return nil
	})
}
