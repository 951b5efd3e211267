package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	if cfg.Server.Port != 8080 {
		t.Errorf("expected Server.Port default 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 9090 {
		t.Errorf("expected Server.MetricsPort default 9090, got %d", cfg.Server.MetricsPort)
	}
	if cfg.Database.MaxConnections != 10 {
		t.Errorf("expected Database.MaxConnections default 10, got %d", cfg.Database.MaxConnections)
	}
	if cfg.Model.MaxInputSize != 8192 {
		t.Errorf("expected Model.MaxInputSize default 8192, got %d", cfg.Model.MaxInputSize)
	}
	if cfg.Suggest.ScoreFloor != 0.75 {
		t.Errorf("expected Suggest.ScoreFloor default 0.75, got %v", cfg.Suggest.ScoreFloor)
	}
	if cfg.Suggest.MinResults != 3 || cfg.Suggest.MaxResults != 5 {
		t.Errorf("expected Suggest result bounds 3-5, got %d-%d", cfg.Suggest.MinResults, cfg.Suggest.MaxResults)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("TEST_DB_DSN", "postgres://test")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "database:\n  connection_string: \"${TEST_DB_DSN}\"\nmodel:\n  embeddings_size: 2560\ngithub_api:\n  webhook_secret: s3cr3t\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Database.ConnectionString != "postgres://test" {
		t.Errorf("expected expanded connection string, got %q", cfg.Database.ConnectionString)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestValidateMissingSecret(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{ConnectionString: "postgres://x"},
		Model:    ModelConfig{EmbeddingsSize: 2560},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected Validate() to require a webhook secret")
	}
}
