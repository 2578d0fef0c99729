package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if cfg.API.BaseURL != "https://api.reliefweb.int/v1/reports" {
		t.Errorf("unexpected base_url %q", cfg.API.BaseURL)
	}

	if cfg.Filter.Country != "Sudan" {
		t.Errorf("expected country 'Sudan', got %q", cfg.Filter.Country)
	}

	if cfg.Filter.Policy != "primary" {
		t.Errorf("expected policy 'primary', got %q", cfg.Filter.Policy)
	}

	if cfg.Extraction.MaxChunkSize != 1000 {
		t.Errorf("expected max_chunk_size 1000, got %d", cfg.Extraction.MaxChunkSize)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("expected port 8000, got %d", cfg.Server.Port)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
filter:
  country: Chad
  policy: all
server:
  port: 9000
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.Filter.Country != "Chad" {
		t.Errorf("expected country 'Chad', got %q", cfg.Filter.Country)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	// Defaults should still be set for unspecified fields
	if cfg.Embedding.OllamaURL != "http://localhost:11434" {
		t.Errorf("expected default ollama_url, got %q", cfg.Embedding.OllamaURL)
	}
	if cfg.Extraction.ChunkMethod != "semantic" {
		t.Errorf("expected default chunk_method, got %q", cfg.Extraction.ChunkMethod)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.API.AppName != "reliefdocs" {
		t.Errorf("expected appname from file, got %q", cfg.API.AppName)
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	defaultDir := cfg.GetDataDir()
	if defaultDir == "" {
		t.Error("expected non-empty default data dir")
	}

	cfg.Output.DataDir = "/custom/path"
	if cfg.GetDataDir() != "/custom/path" {
		t.Errorf("expected '/custom/path', got %q", cfg.GetDataDir())
	}
	if cfg.DocumentsDir() != "/custom/path/documents" {
		t.Errorf("unexpected documents dir %q", cfg.DocumentsDir())
	}
}
