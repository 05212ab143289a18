// Package config reads the optional ~/.loglens/config.json file.
// Settings layer lowest to highest: built-in defaults, this file,
// environment variables, then command-line flags; the file only
// needs the keys the user wants to pin.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/loglens/loglens/internal/transcript"
)

const (
	dirName  = ".loglens"
	fileName = "config.json"
)

// Config holds the persisted settings.
type Config struct {
	// Roots overrides the discovery root per source. For opencode
	// the value is the database file path.
	Roots map[transcript.Source]string `json:"roots,omitempty"`

	// PricingPath points at a model rate table JSON file, used when
	// a command does not pass --pricing.
	PricingPath string `json:"pricing_path,omitempty"`

	// Limit is the default result cap for discovery commands.
	Limit int `json:"limit,omitempty"`
}

// Path returns the config file location.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}
	return filepath.Join(home, dirName, fileName), nil
}

// Load reads the config file. A missing file yields the zero
// config; a malformed one is an error so typos are not silently
// ignored.
func Load() (Config, error) {
	path, err := Path()
	if err != nil {
		return Config{}, nil
	}
	return LoadFrom(path)
}

// LoadFrom reads a config file from an explicit path.
func LoadFrom(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	for source := range cfg.Roots {
		if !source.Valid() {
			return Config{}, fmt.Errorf(
				"%s: unknown source %q in roots", path, source,
			)
		}
	}
	return cfg, nil
}

// Root returns the configured root for a source, or "".
func (c Config) Root(source transcript.Source) string {
	return c.Roots[source]
}
