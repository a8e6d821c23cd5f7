// Package config loads and validates the nbtoc YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/nbtoc/internal/foundation/errors"
)

// CurrentVersion is the configuration schema version written by Init.
const CurrentVersion = "1"

// Config represents the application configuration.
type Config struct {
	Version  string         `yaml:"version"`
	Document DocumentConfig `yaml:"document"`
	TOC      TOCConfig      `yaml:"toc"`
	Refresh  RefreshConfig  `yaml:"refresh"`
	Server   ServerConfig   `yaml:"server"`
	History  HistoryConfig  `yaml:"history"`
	NATS     NATSConfig     `yaml:"nats"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DocumentConfig selects the heading source and the output container.
type DocumentConfig struct {
	Path string `yaml:"path"`
	// Kind is html, markdown or notebook; empty means detect from extension.
	Kind        string `yaml:"kind,omitempty"`
	TitleID     string `yaml:"title_id"`
	ContainerID string `yaml:"container_id"`
	// Output writes the rendered fragment to a separate file.
	Output      string `yaml:"output,omitempty"`
	IgnoreClass string `yaml:"ignore_class"`
	// TrackRevision stamps each tick with the git commit of the document.
	TrackRevision bool `yaml:"track_revision"`
}

// TOCConfig controls list construction and rendering.
type TOCConfig struct {
	ListKeyPrefix string `yaml:"list_key_prefix"`
	ListClass     string `yaml:"list_class"`
	Orphans       string `yaml:"orphans"`
}

// RefreshConfig controls the tick schedule.
type RefreshConfig struct {
	Interval time.Duration `yaml:"interval"`
	Watch    bool          `yaml:"watch"`
	Debounce time.Duration `yaml:"debounce"`
}

// ServerConfig controls the HTTP surface.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Metrics bool   `yaml:"metrics"`
}

// HistoryConfig controls the SQLite tick log.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Retain  int    `yaml:"retain"`
}

// NATSConfig controls update publishing.
type NATSConfig struct {
	Enabled  bool          `yaml:"enabled"`
	URL      string        `yaml:"url"`
	Subject  string        `yaml:"subject"`
	Stream   string        `yaml:"stream,omitempty"`
	KVBucket string        `yaml:"kv_bucket"`
	Timeout  time.Duration `yaml:"timeout"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the configuration file, expands ${VAR} references from the
// environment (after loading .env files), applies defaults and validates.
func Load(configPath string) (*Config, error) {
	cfg, err := Read(configPath)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read is Load without validation, for callers that override fields first.
func Read(configPath string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigError("configuration file not found").
				WithContext("path", configPath).
				Build()
		}
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to read config file").
			WithContext("path", configPath).
			Build()
	}
	return decode(data)
}

// Parse decodes, defaults and validates raw YAML.
func Parse(data []byte) (*Config, error) {
	cfg, err := decode(data)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to unmarshal config").Build()
	}
	if err := ApplyDefaults(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", configPath).
			Build()
	}

	example := Example()
	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("failed to marshal example config: %w", err)
	}

	header := "# nbtoc configuration\n# Values may reference environment variables as ${VAR}; .env files are loaded first.\n"
	if err := os.WriteFile(configPath, append([]byte(header), data...), 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write config file").
			WithContext("path", configPath).
			Build()
	}
	return nil
}

// Example returns the configuration written by Init.
func Example() Config {
	cfg := Config{
		Document: DocumentConfig{
			Path:        "notebook.html",
			TitleID:     "title",
			ContainerID: "toc",
		},
		Refresh: RefreshConfig{Watch: true},
	}
	// Defaults never fail on this input.
	_ = ApplyDefaults(&cfg)
	return cfg
}
