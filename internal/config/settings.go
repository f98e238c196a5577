package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Settings is the small persisted key-value store for credentials, the
// default model, and the proxy override. It lives in ~/.termite/settings.yaml
// and survives across sessions, unlike the per-project config file.
type Settings struct {
	APIKey       string `yaml:"api_key,omitempty"`
	DefaultModel string `yaml:"default_model,omitempty"`
	Proxy        string `yaml:"proxy,omitempty"`

	path string
}

// LoadSettings reads the settings file, creating its directory if needed.
// A missing file yields empty settings.
func LoadSettings() (*Settings, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home directory: %w", err)
	}
	dir := filepath.Join(homeDir, ".termite")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create settings directory: %w", err)
	}
	return loadSettingsFrom(filepath.Join(dir, "settings.yaml"))
}

func loadSettingsFrom(path string) (*Settings, error) {
	s := &Settings{path: path}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	return s, nil
}

func (s *Settings) GetAPIKey() string       { return s.APIKey }
func (s *Settings) GetDefaultModel() string { return s.DefaultModel }
func (s *Settings) GetProxy() string        { return s.Proxy }

func (s *Settings) SetAPIKey(key string) error {
	s.APIKey = key
	return s.save()
}

func (s *Settings) SetDefaultModel(model string) error {
	s.DefaultModel = model
	return s.save()
}

func (s *Settings) SetProxy(proxy string) error {
	s.Proxy = proxy
	return s.save()
}

// save writes the settings atomically: temp file then rename.
func (s *Settings) save() error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(s.path), ".settings-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()
	defer os.Remove(tempPath)

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tempPath, 0600); err != nil {
		return fmt.Errorf("chmod settings: %w", err)
	}
	return os.Rename(tempPath, s.path)
}
