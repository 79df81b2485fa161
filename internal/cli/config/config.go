package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const ConfigFileName = "biocom.yaml"

// Server represents a Biocom API server
type Server struct {
	Alias      string `yaml:"alias"`
	URL        string `yaml:"url"`
	AuthPrefix string `yaml:"auth_prefix,omitempty"` // e.g. "/auth" when the login endpoints are mounted there
}

// Validate checks that the server has an alias and an absolute http(s) URL
func (s *Server) Validate() error {
	if strings.TrimSpace(s.Alias) == "" {
		return fmt.Errorf("server alias is required")
	}
	u, err := url.Parse(s.URL)
	if err != nil {
		return fmt.Errorf("server '%s': invalid url: %w", s.Alias, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server '%s': url must start with http:// or https://", s.Alias)
	}
	if u.Host == "" {
		return fmt.Errorf("server '%s': url has no host", s.Alias)
	}
	return nil
}

// Config represents the project configuration file
type Config struct {
	Servers []Server `yaml:"servers"`

	// Path is the absolute location the config was loaded from
	Path string `yaml:"-"`
}

// DefaultConfig returns a configuration with a single server
func DefaultConfig(serverURL string) *Config {
	return &Config{
		Servers: []Server{
			{
				Alias: "default",
				URL:   strings.TrimRight(serverURL, "/"),
			},
		},
	}
}

// Validate checks every server and rejects duplicate aliases
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Servers))
	for i := range c.Servers {
		server := &c.Servers[i]
		if err := server.Validate(); err != nil {
			return err
		}
		if seen[server.Alias] {
			return fmt.Errorf("duplicate server alias '%s'", server.Alias)
		}
		seen[server.Alias] = true
	}
	return nil
}

// FindConfigFile searches for biocom.yaml in current directory and parent directories
func FindConfigFile() (string, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	// Search upwards until we find biocom.yaml or reach root
	dir := currentDir
	for {
		configPath := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("%s not found in %s or any parent directory", ConfigFileName, currentDir)
}

// Load reads and validates the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	cfg.Path, err = filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	return &cfg, nil
}

// LoadFromCurrentDir loads config from current directory or parent directories
func LoadFromCurrentDir() (*Config, error) {
	configPath, err := FindConfigFile()
	if err != nil {
		return nil, err
	}

	return Load(configPath)
}

// Save writes the configuration to a file
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetServerByAlias returns a server by its alias
func (c *Config) GetServerByAlias(alias string) (*Server, error) {
	for i := range c.Servers {
		if c.Servers[i].Alias == alias {
			return &c.Servers[i], nil
		}
	}
	return nil, fmt.Errorf("server with alias '%s' not found", alias)
}

// GetServerByURL returns a server by its URL, ignoring a trailing slash
func (c *Config) GetServerByURL(serverURL string) (*Server, error) {
	want := strings.TrimRight(serverURL, "/")
	for i := range c.Servers {
		if strings.TrimRight(c.Servers[i].URL, "/") == want {
			return &c.Servers[i], nil
		}
	}
	return nil, fmt.Errorf("server with URL '%s' not found in project config", serverURL)
}
