package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Agent.MaxIterations != 50 {
		t.Errorf("MaxIterations = %d, want 50", cfg.Agent.MaxIterations)
	}
	if cfg.LLM.Temperature != 0.7 {
		t.Errorf("Temperature = %v", cfg.LLM.Temperature)
	}
	if cfg.Tools.Shell.DefaultTimeoutSeconds != 30 || cfg.Tools.Shell.MaxTimeoutSeconds != 600 {
		t.Errorf("shell timeouts = %d/%d", cfg.Tools.Shell.DefaultTimeoutSeconds, cfg.Tools.Shell.MaxTimeoutSeconds)
	}
	if !filepath.IsAbs(cfg.Workspace.Root) {
		t.Errorf("workspace root %q is not absolute", cfg.Workspace.Root)
	}
}

func TestLoadParsesAndKeepsExplicitValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
llm:
  model: my-model
  temperature: 0.2
agent:
  max_tool_iterations: 7
tools:
  shell:
    default_timeout_seconds: 10
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.LLM.Model != "my-model" {
		t.Errorf("model = %q", cfg.LLM.Model)
	}
	if cfg.LLM.Temperature != 0.2 {
		t.Errorf("temperature = %v", cfg.LLM.Temperature)
	}
	if cfg.Agent.MaxIterations != 7 {
		t.Errorf("MaxIterations = %d", cfg.Agent.MaxIterations)
	}
	if cfg.Tools.Shell.DefaultTimeoutSeconds != 10 {
		t.Errorf("default timeout = %d", cfg.Tools.Shell.DefaultTimeoutSeconds)
	}
	// Unset fields still get defaults.
	if cfg.LLM.MaxTokens != 8192 {
		t.Errorf("MaxTokens = %d", cfg.LLM.MaxTokens)
	}
}

func TestAPIKeyFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
llm:
  api_key_env: TERMITE_TEST_KEY
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TERMITE_TEST_KEY", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.LLM.APIKey != "from-env" {
		t.Errorf("api key = %q, want value from env", cfg.LLM.APIKey)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	s, err := loadSettingsFrom(path)
	if err != nil {
		t.Fatalf("load empty settings: %v", err)
	}
	if err := s.SetAPIKey("k-123"); err != nil {
		t.Fatalf("SetAPIKey: %v", err)
	}
	if err := s.SetDefaultModel("m-1"); err != nil {
		t.Fatalf("SetDefaultModel: %v", err)
	}

	reloaded, err := loadSettingsFrom(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.APIKey != "k-123" || reloaded.DefaultModel != "m-1" {
		t.Errorf("reloaded = %+v", reloaded)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("settings file mode = %v, want 0600", info.Mode().Perm())
	}
}
