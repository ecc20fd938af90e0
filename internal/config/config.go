// Package config loads project settings from .execscan.yaml, an optional
// .env file and EXECSCAN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

// FileName is the project config file looked up at the repository root.
const FileName = ".execscan.yaml"

// EnvFileName is the optional dotenv file loaded before reading overrides.
const EnvFileName = ".env"

// Environment variables that override the config file.
const (
	EnvDB             = "EXECSCAN_DB"
	EnvWorkers        = "EXECSCAN_WORKERS"
	EnvMatchingQuotes = "EXECSCAN_MATCHING_QUOTES"
	EnvRemarkScript   = "EXECSCAN_REMARK_SCRIPT"
	EnvHigh           = "EXECSCAN_HIGH"
	EnvLow            = "EXECSCAN_LOW"
)

type ThresholdsConfig struct {
	High float64 `yaml:"high"`
	Low  float64 `yaml:"low"`
}

type Config struct {
	Thresholds     ThresholdsConfig `yaml:"thresholds"`
	MatchingQuotes bool             `yaml:"matching_quotes"`
	Extensions     []string         `yaml:"extensions,omitempty"`
	DB             string           `yaml:"db,omitempty"`
	Workers        int              `yaml:"workers,omitempty"`
	RemarkScript   string           `yaml:"remark_script,omitempty"`
	ScriptsDir     string           `yaml:"scripts_dir,omitempty"`
}

// Default returns the settings used when no config file exists.
func Default() *Config {
	return &Config{
		Thresholds: ThresholdsConfig{High: 75, Low: 25},
	}
}

// Load reads FileName from dir. Fields the file omits keep their defaults.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile reads a config file at an explicit path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault is Load, falling back to Default when dir has no config file.
func LoadOrDefault(dir string) (*Config, error) {
	cfg, err := Load(dir)
	if errors.Is(err, ErrConfigNotFound) {
		return Default(), nil
	}
	return cfg, err
}

// LoadDotEnv loads dir/.env into the process environment if it exists.
// Variables already set are not overwritten.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, EnvFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from environment variables found through lookup,
// normally os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvDB); ok && v != "" {
		c.DB = v
	}
	if v, ok := lookup(EnvRemarkScript); ok && v != "" {
		c.RemarkScript = v
	}
	if v, ok := lookup(EnvWorkers); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvWorkers, err)
		}
		c.Workers = n
	}
	if v, ok := lookup(EnvMatchingQuotes); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvMatchingQuotes, err)
		}
		c.MatchingQuotes = b
	}
	if v, ok := lookup(EnvHigh); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvHigh, err)
		}
		c.Thresholds.High = f
	}
	if v, ok := lookup(EnvLow); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvLow, err)
		}
		c.Thresholds.Low = f
	}
	return nil
}

// Validate checks that the thresholds form a band within [0, 100] and that
// the worker count is not negative.
func (c *Config) Validate() error {
	t := c.Thresholds
	if t.Low < 0 || t.High > 100 || t.Low > t.High {
		return fmt.Errorf("config: thresholds must satisfy 0 <= low <= high <= 100, got low=%g high=%g", t.Low, t.High)
	}
	if c.Workers < 0 {
		return fmt.Errorf("config: workers must be >= 0, got %d", c.Workers)
	}
	return nil
}
