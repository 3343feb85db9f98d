package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	return Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
		Embedding: EmbeddingConfig{
			Model: "text-embedding-3-small",
		},
	}
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	for _, port := range []int{0, -1, 70000} {
		cfg := validConfig()
		cfg.HTTP.Port = port
		if err := cfg.Validate(); err == nil {
			t.Errorf("expected error for port %d", port)
		}
	}
}

func TestValidate_MissingAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing database addrs")
	}
}

func TestValidate_MissingModel(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Model = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing embedding model")
	}
}

func TestValidate_SamplingPercentOver100(t *testing.T) {
	cfg := validConfig()
	cfg.Analysis.SamplingPercent = 150
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for sampling percent over 100")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.ApplyDefaults()

	if cfg.HTTP.WriteTimeoutSec != 120 {
		t.Errorf("expected 120s write timeout default, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Telemetry.IndexName != "telemetry" {
		t.Errorf("unexpected index name default %q", cfg.Telemetry.IndexName)
	}
	if cfg.Telemetry.KeyPrefix != "skylens:" {
		t.Errorf("unexpected key prefix default %q", cfg.Telemetry.KeyPrefix)
	}
	if cfg.Analysis.ClusterCount != 5 || cfg.Analysis.MinClusterSize != 3 {
		t.Errorf("unexpected clustering defaults: %+v", cfg.Analysis)
	}
	if cfg.Analysis.SamplingPercent != 10 || cfg.Analysis.MaxDocsToProcess != 10000 {
		t.Errorf("unexpected sampling defaults: %+v", cfg.Analysis)
	}
	if cfg.Analysis.ZScoreThreshold != 3 {
		t.Errorf("unexpected z-score default %g", cfg.Analysis.ZScoreThreshold)
	}
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := validConfig()
	cfg.Telemetry.PageSize = 250
	cfg.Analysis.ClusterCount = 8
	cfg.ApplyDefaults()

	if cfg.Telemetry.PageSize != 250 {
		t.Errorf("explicit page size overwritten: %d", cfg.Telemetry.PageSize)
	}
	if cfg.Analysis.ClusterCount != 8 {
		t.Errorf("explicit cluster count overwritten: %d", cfg.Analysis.ClusterCount)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("SKYLENS_TEST_ADDR", "redis.internal:6379")

	in := []byte("addrs:\n  - \"${SKYLENS_TEST_ADDR}\"\nprefix: \"${SKYLENS_TEST_MISSING:-skylens:}\"\nempty: \"${SKYLENS_TEST_MISSING}\"")
	out := string(expandEnvVars(in))

	if want := "redis.internal:6379"; !strings.Contains(out, want) {
		t.Errorf("expected %q in %q", want, out)
	}
	if want := "prefix: \"skylens:\""; !strings.Contains(out, want) {
		t.Errorf("expected default substitution in %q", out)
	}
	if want := "empty: \"\""; !strings.Contains(out, want) {
		t.Errorf("expected empty substitution for unset var in %q", out)
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatal(err)
	}
	content := `
http:
  port: 9090
database:
  addrs: ["localhost:6379"]
embedding:
  model: test-model
  api_key: "${SKYLENS_TEST_KEY:-fallback-key}"
`
	if err := os.WriteFile(filepath.Join(dir, "config", "testenv.yaml"), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	cfg, err := Load("testenv")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("unexpected port %d", cfg.HTTP.Port)
	}
	if cfg.Embedding.APIKey != "fallback-key" {
		t.Errorf("env default not applied: %q", cfg.Embedding.APIKey)
	}
	// Defaults must be filled in for unspecified fields.
	if cfg.Telemetry.PageSize != 100 {
		t.Errorf("defaults not applied: page_size=%d", cfg.Telemetry.PageSize)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	if _, err := Load("nonexistent"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("ENV", "")
	if got := GetEnv(); got != "local" {
		t.Errorf("expected local default, got %q", got)
	}
	t.Setenv("ENV", "prod")
	if got := GetEnv(); got != "prod" {
		t.Errorf("expected prod, got %q", got)
	}
}
