package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaultsAndValidates(t *testing.T) {
	dir := t.TempDir()
	path := writeTempConfig(t, dir, "config.yaml", `
backend:
  base_url: "https://bitable.example.com"
llm:
  provider: anthropic
  anthropic:
    api_key: sk-ant-test
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.HTTPPort != 8080 {
		t.Errorf("expected default HTTP port 8080, got %d", cfg.Server.HTTPPort)
	}
	if cfg.Session.Backend != "memory" {
		t.Errorf("expected default session backend 'memory', got %q", cfg.Session.Backend)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected default log format 'json', got %q", cfg.Logging.Format)
	}
}

func TestLoadRejectsMissingBackendURL(t *testing.T) {
	dir := t.TempDir()
	path := writeTempConfig(t, dir, "config.yaml", `
llm:
  provider: anthropic
  anthropic:
    api_key: sk-ant-test
`)

	if _, err := Load(path); err == nil {
		t.Error("expected error for missing backend.base_url")
	}
}

func TestLoadRejectsRedisBackendWithoutAddr(t *testing.T) {
	dir := t.TempDir()
	path := writeTempConfig(t, dir, "config.yaml", `
backend:
  base_url: "https://bitable.example.com"
llm:
  provider: anthropic
  anthropic:
    api_key: sk-ant-test
session:
  backend: redis
`)

	if _, err := Load(path); err == nil {
		t.Error("expected error for redis backend without redis_addr")
	}
}

func TestLoadResolvesIncludes(t *testing.T) {
	dir := t.TempDir()
	writeTempConfig(t, dir, "base.yaml", `
llm:
  provider: anthropic
  anthropic:
    api_key: sk-ant-test
`)
	path := writeTempConfig(t, dir, "config.yaml", `
$include: base.yaml
backend:
  base_url: "https://bitable.example.com"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.LLM.Anthropic.APIKey != "sk-ant-test" {
		t.Errorf("expected included llm config to merge in, got %+v", cfg.LLM)
	}
}

func TestLoadDetectsIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeTempConfig(t, dir, "a.yaml", `$include: b.yaml`)
	writeTempConfig(t, dir, "b.yaml", `$include: a.yaml`)

	if _, err := Load(filepath.Join(dir, "a.yaml")); err == nil {
		t.Error("expected include cycle to be detected")
	}
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_BACKEND_URL", "https://env.example.com")

	dir := t.TempDir()
	path := writeTempConfig(t, dir, "config.yaml", `
backend:
  base_url: "${TEST_BACKEND_URL}"
llm:
  provider: anthropic
  anthropic:
    api_key: sk-ant-test
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Backend.BaseURL != "https://env.example.com" {
		t.Errorf("expected env var expansion, got %q", cfg.Backend.BaseURL)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := writeTempConfig(t, dir, "config.yaml", `
backend:
  base_url: "https://bitable.example.com"
  totally_unknown_field: true
llm:
  provider: anthropic
  anthropic:
    api_key: sk-ant-test
`)

	if _, err := Load(path); err == nil {
		t.Error("expected strict decoding to reject an unknown field")
	}
}
