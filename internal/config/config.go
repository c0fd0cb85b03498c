// Package config loads MaaMCP server configuration from a YAML file with
// sensible defaults when no file is present.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all server configuration.
type Config struct {
	// Adb configures the ADB transport.
	Adb AdbConfig `yaml:"adb"`

	// Recognizer configures the external OCR helper.
	Recognizer RecognizerConfig `yaml:"recognizer"`

	// ScratchDir is where screen captures are written. Defaults to a
	// "screenshots" directory under DataDir.
	ScratchDir string `yaml:"scratch_dir"`

	// DataDir is the root for persisted artifacts such as saved pipelines.
	DataDir string `yaml:"data_dir"`

	// Logging controls diagnostic output.
	Logging LoggingConfig `yaml:"logging"`
}

// AdbConfig configures the ADB transport.
type AdbConfig struct {
	// Path to the adb binary. Empty uses "adb" from PATH.
	Path string `yaml:"path"`
}

// RecognizerConfig configures the external recognition helper. The helper
// receives a PNG path as its last argument and prints a JSON array of
// {"text", "box", "score"} objects.
type RecognizerConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// LoggingConfig controls diagnostic output.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Default returns the configuration used when no file is provided.
func Default() Config {
	cfg, _ := Load("")
	return cfg
}

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".maamcp")
	}
	return ".maamcp"
}

// Load reads the config at path and backfills defaults afterwards, so an
// overridden data_dir also moves the derived scratch directory. A missing
// file is not an error; an unreadable or malformed one is.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// fall through to defaults
		default:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir()
	}
	if cfg.ScratchDir == "" {
		cfg.ScratchDir = filepath.Join(cfg.DataDir, "screenshots")
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	return cfg, nil
}
