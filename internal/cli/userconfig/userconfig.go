// Package userconfig stores per-user CLI state that does not belong in a
// project's biocom.yaml.
package userconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	configDirName  = "biocom"
	configFileName = "config.json"
)

// UserConfig is ~/.config/biocom/config.json. The selected server is kept per
// project, keyed by the absolute path of the project's biocom.yaml, so that
// switching projects does not change another project's selection.
type UserConfig struct {
	SelectedServers map[string]string `json:"selected_servers,omitempty"`
}

// GetConfigPath returns the path to the user config file
func GetConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", configDirName, configFileName), nil
}

// Load reads the user configuration. A missing file is an empty config.
func Load() (*UserConfig, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	cfg := &UserConfig{}

	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user config file: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse user config file: %w", err)
	}
	return cfg, nil
}

// Save writes the user configuration
func Save(cfg *UserConfig) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write user config file: %w", err)
	}
	return nil
}

// GetSelectedServer returns the server URL selected for the project whose
// config lives at projectConfig, or "" if none was selected.
func GetSelectedServer(projectConfig string) (string, error) {
	key, err := projectKey(projectConfig)
	if err != nil {
		return "", err
	}

	cfg, err := Load()
	if err != nil {
		return "", err
	}
	return cfg.SelectedServers[key], nil
}

// SetSelectedServer remembers serverURL for the project. An empty URL
// forgets the selection.
func SetSelectedServer(projectConfig, serverURL string) error {
	key, err := projectKey(projectConfig)
	if err != nil {
		return err
	}

	cfg, err := Load()
	if err != nil {
		return err
	}

	if serverURL == "" {
		if _, ok := cfg.SelectedServers[key]; !ok {
			return nil
		}
		delete(cfg.SelectedServers, key)
	} else {
		if cfg.SelectedServers == nil {
			cfg.SelectedServers = make(map[string]string)
		}
		cfg.SelectedServers[key] = serverURL
	}

	return Save(cfg)
}

func projectKey(projectConfig string) (string, error) {
	if projectConfig == "" {
		return "", errors.New("project config path is required")
	}
	abs, err := filepath.Abs(projectConfig)
	if err != nil {
		return "", fmt.Errorf("failed to resolve project path: %w", err)
	}
	return abs, nil
}
