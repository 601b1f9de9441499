package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config represents the dirlock CLI configuration
type Config struct {
	// JSONOutput makes all commands emit JSON instead of text (default: false)
	JSONOutput bool `json:"json_output,omitempty"`

	// LogLevel is the minimum log level: debug, info, warn, error (default: info)
	LogLevel string `json:"log_level,omitempty"`

	// StartTimeToleranceSecs is the allowed skew, in seconds, between a
	// recorded process start time and the live one before a lock counts
	// as recycled (default: 3)
	StartTimeToleranceSecs int `json:"start_time_tolerance_secs,omitempty"`
}

// Default returns a config with default values
func Default() *Config {
	return &Config{
		JSONOutput:             false,
		LogLevel:               "info",
		StartTimeToleranceSecs: 3,
	}
}

// StartTimeTolerance returns the configured tolerance as a duration.
func (c *Config) StartTimeTolerance() time.Duration {
	return time.Duration(c.StartTimeToleranceSecs) * time.Second
}

// Loader loads configuration from multiple sources
type Loader struct {
	systemPath string
	userPath   string
}

// NewLoader creates a new config loader
func NewLoader() *Loader {
	homeDir, _ := os.UserHomeDir()

	return &Loader{
		systemPath: "/etc/dirlock/config.json",
		userPath:   filepath.Join(homeDir, ".config", "dirlock", "config.json"),
	}
}

// Load loads and merges configuration from all sources
// Precedence: env > user > system > defaults
func (l *Loader) Load() (*Config, error) {
	config := Default()

	if err := l.loadFromFile(l.systemPath, config); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load system config: %w", err)
	}

	if err := l.loadFromFile(l.userPath, config); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}

	l.loadFromEnv(config)

	return config, nil
}

// loadFromFile loads config from a JSON file, merging non-zero values
func (l *Loader) loadFromFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var partial Config
	if err := json.Unmarshal(data, &partial); err != nil {
		return fmt.Errorf("invalid JSON in %s: %w", path, err)
	}

	if partial.LogLevel != "" {
		config.LogLevel = partial.LogLevel
	}
	if partial.StartTimeToleranceSecs > 0 {
		config.StartTimeToleranceSecs = partial.StartTimeToleranceSecs
	}

	// Booleans need presence detection, since false is the zero value
	if strings.Contains(string(data), "\"json_output\"") {
		config.JSONOutput = partial.JSONOutput
	}

	return nil
}

// loadFromEnv loads config from environment variables
func (l *Loader) loadFromEnv(config *Config) {
	if val := os.Getenv("DIRLOCK_LOG_LEVEL"); val != "" {
		config.LogLevel = val
	}
	if val := os.Getenv("DIRLOCK_START_TIME_TOLERANCE_SECS"); val != "" {
		if secs, err := strconv.Atoi(val); err == nil && secs > 0 {
			config.StartTimeToleranceSecs = secs
		}
	}
	if val := os.Getenv("DIRLOCK_JSON_OUTPUT"); val != "" {
		config.JSONOutput = parseBool(val)
	}
}

// parseBool parses a boolean from a string (supports 1/0, true/false, yes/no)
func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
