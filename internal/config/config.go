package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM struct {
		BaseURL      string  `yaml:"base_url"`
		APIKey       string  `yaml:"api_key"`
		APIKeyEnv    string  `yaml:"api_key_env"`
		Model        string  `yaml:"model"`
		Temperature  float32 `yaml:"temperature"`
		MaxTokens    int     `yaml:"max_output_tokens"`
		Proxy        string  `yaml:"proxy"`
		LocalCommand string  `yaml:"local_command"` // run a local inference process instead of the HTTP API
	} `yaml:"llm"`

	Workspace struct {
		Root string `yaml:"root"`
	} `yaml:"workspace"`

	Agent struct {
		MaxIterations int    `yaml:"max_tool_iterations"`
		LogFile       string `yaml:"log_file"`
	} `yaml:"agent"`

	Tools ToolsConfig `yaml:"tools"`

	Context struct {
		MaxChars int `yaml:"max_chars"` // ceiling for the injected project-context message
	} `yaml:"context"`
}

// ToolsConfig holds per-tool limits.
type ToolsConfig struct {
	Read struct {
		MaxFileSizeMB int `yaml:"max_file_size_mb"`
	} `yaml:"read"`

	Search struct {
		MaxResults   int `yaml:"max_results"`
		ContextLines int `yaml:"context_lines"`
	} `yaml:"search"`

	Shell struct {
		DefaultTimeoutSeconds int `yaml:"default_timeout_seconds"`
		MaxTimeoutSeconds     int `yaml:"max_timeout_seconds"`
	} `yaml:"shell"`
}

// Load reads a YAML config file and applies defaults. A missing file yields
// the defaults with the current directory as workspace root.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	// Apply environment overrides
	if cfg.LLM.APIKeyEnv != "" {
		if key := os.Getenv(cfg.LLM.APIKeyEnv); key != "" {
			cfg.LLM.APIKey = key
		}
	}

	if cfg.Workspace.Root == "" {
		cfg.Workspace.Root = "."
	}
	absRoot, err := filepath.Abs(cfg.Workspace.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	cfg.Workspace.Root = absRoot

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.7
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 8192
	}
	if cfg.Agent.MaxIterations == 0 {
		cfg.Agent.MaxIterations = 50
	}
	if cfg.Tools.Read.MaxFileSizeMB == 0 {
		cfg.Tools.Read.MaxFileSizeMB = 50
	}
	if cfg.Tools.Search.MaxResults == 0 {
		cfg.Tools.Search.MaxResults = 100
	}
	if cfg.Tools.Shell.DefaultTimeoutSeconds == 0 {
		cfg.Tools.Shell.DefaultTimeoutSeconds = 30
	}
	if cfg.Tools.Shell.MaxTimeoutSeconds == 0 {
		cfg.Tools.Shell.MaxTimeoutSeconds = 600
	}
	if cfg.Context.MaxChars == 0 {
		cfg.Context.MaxChars = 24000
	}
}
