package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Defaults.Provider != "openai" {
		t.Errorf("Provider = %q, want openai", cfg.Defaults.Provider)
	}
	if cfg.Defaults.MaxTokens != 1024 {
		t.Errorf("MaxTokens = %d, want 1024", cfg.Defaults.MaxTokens)
	}
}

func TestFromFileTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[defaults]
provider = "anthropic"
max_tokens = 2048

[providers.openai]
api_key = "sk-test"
timeout_secs = 60
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := FromFile(path)
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}
	if cfg.Defaults.Provider != "anthropic" {
		t.Errorf("Provider = %q, want anthropic", cfg.Defaults.Provider)
	}
	if cfg.Defaults.MaxTokens != 2048 {
		t.Errorf("MaxTokens = %d, want 2048", cfg.Defaults.MaxTokens)
	}
	pc, ok := cfg.GetProvider("openai")
	if !ok {
		t.Fatal("expected openai provider to be configured")
	}
	if pc.APIKey != "sk-test" {
		t.Errorf("APIKey = %q, want sk-test", pc.APIKey)
	}
	if pc.TimeoutSecs != 60 {
		t.Errorf("TimeoutSecs = %d, want 60", pc.TimeoutSecs)
	}
}

func TestFromFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "defaults:\n  provider: anthropic\n  max_tokens: 2048\nproviders:\n  openai:\n    api_key: sk-test\n    timeout_secs: 60\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := FromFile(path)
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}
	if cfg.Defaults.Provider != "anthropic" {
		t.Errorf("Provider = %q, want anthropic", cfg.Defaults.Provider)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	t.Setenv("OPENAI_ORGANIZATION", "org-123")

	cfg := Default()
	applyEnvOverrides(&cfg)

	pc, ok := cfg.GetProvider("openai")
	if !ok {
		t.Fatal("expected openai provider created from env")
	}
	if pc.APIKey != "sk-from-env" {
		t.Errorf("APIKey = %q, want sk-from-env", pc.APIKey)
	}
	if pc.Organization != "org-123" {
		t.Errorf("Organization = %q, want org-123", pc.Organization)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for no providers configured")
	}

	cfg.Providers["openai"] = ProviderConfig{APIKey: "sk-test", TimeoutSecs: 120}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	badTemp := float32(3.0)
	cfg.Defaults.Temperature = &badTemp
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for out-of-range temperature")
	}
}

func TestLoadSearchPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "llm-latency-lens.toml")
	content := "[defaults]\nprovider = \"anthropic\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Defaults.Provider != "anthropic" {
		t.Errorf("Provider = %q, want anthropic", cfg.Defaults.Provider)
	}
}
