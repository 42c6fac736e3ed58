// Package config handles configuration loading and validation for lobby.
package config

import (
	"errors"
	"fmt"
	"maps"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/hay-kot/criterio"
	"gopkg.in/yaml.v3"

	"github.com/hay-kot/lobby/internal/core/hash"
	"github.com/hay-kot/lobby/internal/core/message"
)

// Config holds the application configuration.
type Config struct {
	Conductor ConductorConfig `yaml:"conductor"`
	Fetch     FetchConfig     `yaml:"fetch"`
	// Aliases maps short names to conversation ids for use on the command line.
	Aliases map[string]string `yaml:"aliases"`
	DataDir string            `yaml:"-"` // set by caller, not from config file
}

// ConductorConfig describes how to reach the conductor.
type ConductorConfig struct {
	URL         string        `yaml:"url"`
	CallTimeout time.Duration `yaml:"call_timeout"`
}

// FetchConfig holds pagination defaults.
type FetchConfig struct {
	BatchSize       int    `yaml:"batch_size"`
	LatestBatchSize int    `yaml:"latest_batch_size"`
	PayloadType     string `yaml:"payload_type"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Conductor: ConductorConfig{
			URL:         "ws://127.0.0.1:8888",
			CallTimeout: 30 * time.Second,
		},
		Fetch: FetchConfig{
			BatchSize:       20,
			LatestBatchSize: 10,
			PayloadType:     string(message.PayloadAll),
		},
		Aliases: map[string]string{},
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Conductor.URL == "" {
		c.Conductor.URL = defaults.Conductor.URL
	}
	if c.Conductor.CallTimeout == 0 {
		c.Conductor.CallTimeout = defaults.Conductor.CallTimeout
	}
	if c.Fetch.BatchSize == 0 {
		c.Fetch.BatchSize = defaults.Fetch.BatchSize
	}
	if c.Fetch.LatestBatchSize == 0 {
		c.Fetch.LatestBatchSize = defaults.Fetch.LatestBatchSize
	}
	if c.Fetch.PayloadType == "" {
		c.Fetch.PayloadType = defaults.Fetch.PayloadType
	}
	if c.Aliases == nil {
		c.Aliases = map[string]string{}
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	var errs criterio.FieldErrorsBuilder

	if c.DataDir == "" {
		errs = errs.Append("data_dir", errors.New("cannot be empty"))
	}
	if err := validateURL(c.Conductor.URL); err != nil {
		errs = errs.Append("conductor.url", err)
	}
	if c.Conductor.CallTimeout < 0 {
		errs = errs.Append("conductor.call_timeout", fmt.Errorf("must not be negative, got %s", c.Conductor.CallTimeout))
	}
	if c.Fetch.BatchSize < 1 {
		errs = errs.Append("fetch.batch_size", fmt.Errorf("must be at least 1, got %d", c.Fetch.BatchSize))
	}
	if c.Fetch.LatestBatchSize < 1 {
		errs = errs.Append("fetch.latest_batch_size", fmt.Errorf("must be at least 1, got %d", c.Fetch.LatestBatchSize))
	}
	if _, err := message.ParsePayloadType(c.Fetch.PayloadType); err != nil {
		errs = errs.Append("fetch.payload_type", err)
	}
	for _, name := range slices.Sorted(maps.Keys(c.Aliases)) {
		if _, err := hash.Deserialize(c.Aliases[name]); err != nil {
			errs = errs.Append("aliases."+name, err)
		}
	}

	return errs.ToError()
}

// PayloadType returns the configured default payload filter.
func (c *Config) PayloadType() message.PayloadType {
	pt, _ := message.ParsePayloadType(c.Fetch.PayloadType)
	return pt
}

// Resolve returns the conversation id for an alias, or name unchanged.
func (c *Config) Resolve(name string) string {
	if id, ok := c.Aliases[name]; ok {
		return id
	}
	return name
}

// StateFile returns the path to the conversation state JSON file.
func (c *Config) StateFile() string {
	return filepath.Join(c.DataDir, "state.json")
}

// LogFile returns the default path for the debug log.
func (c *Config) LogFile() string {
	return filepath.Join(c.DataDir, "lobby.log")
}

func validateURL(raw string) error {
	if raw == "" {
		return errors.New("cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	default:
		return fmt.Errorf("scheme must be ws or wss, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("host is required")
	}
	return nil
}
