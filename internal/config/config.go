// Package config loads the .cxxbind.toml project configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// FileName is the configuration file looked up at a repository root.
const FileName = ".cxxbind.toml"

// Config holds every setting the engine and CLI read from disk.
type Config struct {
	// Database is the SQLite database path. Relative paths are resolved
	// against the directory holding the config file.
	Database string `toml:"database"`

	ExpandTemplates bool `toml:"expand_templates"`

	// DocumentScope is "snapshot" or "translation-unit".
	DocumentScope string `toml:"document_scope"`

	// InlineNamespaces is "show" or "hide" and controls printed names.
	InlineNamespaces string `toml:"inline_namespaces"`

	ScriptsDir string `toml:"scripts_dir"`

	// Workers bounds concurrent graph builds. Zero means one per CPU.
	Workers int `toml:"workers"`

	Verbose bool `toml:"verbose"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Database:         filepath.Join(".cxxbind", "index.db"),
		ExpandTemplates:  true,
		DocumentScope:    "snapshot",
		InlineNamespaces: "hide",
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := Decode(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	if cfg.Database != "" && !filepath.IsAbs(cfg.Database) {
		cfg.Database = filepath.Join(filepath.Dir(path), cfg.Database)
	}
	if cfg.ScriptsDir != "" && !filepath.IsAbs(cfg.ScriptsDir) {
		cfg.ScriptsDir = filepath.Join(filepath.Dir(path), cfg.ScriptsDir)
	}
	return cfg, nil
}

// Decode decodes TOML data into cfg, rejecting unknown keys, and validates
// the result. Keys absent from data keep their current value.
func Decode(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("unknown keys:\n%s", strict.String())
		}
		return err
	}
	return cfg.Validate()
}

// Validate reports the first invalid setting by key.
func (c Config) Validate() error {
	switch c.DocumentScope {
	case "snapshot", "translation-unit":
	default:
		return fmt.Errorf("document_scope: must be snapshot or translation-unit, got %q", c.DocumentScope)
	}
	switch c.InlineNamespaces {
	case "show", "hide":
	default:
		return fmt.Errorf("inline_namespaces: must be show or hide, got %q", c.InlineNamespaces)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers: must not be negative, got %d", c.Workers)
	}
	if c.Database == "" {
		return errors.New("database: must not be empty")
	}
	return nil
}
