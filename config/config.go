// Package config handles TOML run configuration files for the intcode command.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config describes a single program run.
type Config struct {
	Program  string  `toml:"program"`  // Comma separated program image file.
	Assemble string  `toml:"assemble"` // Assembly source file, instead of Program.
	Input    string  `toml:"input"`    // Input tape file, or "-" for stdin.
	Output   string  `toml:"output"`   // Output tape file, or "-" for stdout.
	Inputs   []int64 `toml:"inputs"`   // Values sent before the input tape.
	Verbose  bool    `toml:"verbose"`  // Trace to stderr.
	Trace    string  `toml:"trace"`    // JSON trace file.
	Script   string  `toml:"script"`   // Starlark script to run instead.
	Dump     bool    `toml:"dump"`     // Print final memory.

	// Dir is the directory containing the configuration file (set at load time).
	Dir string `toml:"-"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Input:  "-",
		Output: "-",
	}
}

// Load parses a run configuration file.
// Relative file names are resolved against the directory of the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	cfg := Default()
	meta, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key in %s: %v", path, undecoded[0])
	}

	cfg.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}

	for _, name := range []*string{&cfg.Program, &cfg.Assemble, &cfg.Input, &cfg.Output, &cfg.Trace, &cfg.Script} {
		*name = cfg.Resolve(*name)
	}

	return cfg, nil
}

// Resolve returns a file name relative to the configuration directory.
// Empty names, "-", and absolute paths are returned unchanged.
func (cfg *Config) Resolve(name string) string {
	if name == "" || name == "-" || filepath.IsAbs(name) || cfg.Dir == "" {
		return name
	}
	return filepath.Join(cfg.Dir, name)
}
