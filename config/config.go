// Package config loads the core's runtime configuration — cache sizes,
// memory size, PAL base, boot image path and log level — from a YAML
// file using gopkg.in/yaml.v3, the same config-file format and library
// the teacher's go.mod already carries as an indirect dependency (the
// config package is, in this design, the thing that actually exercises
// it directly).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"axp21264/cpu"
	"axp21264/trace"
)

// File is the on-disk shape of an axpsim configuration file.
type File struct {
	BcacheLines int    `yaml:"bcache_lines"`
	DcacheLines int    `yaml:"dcache_lines"`
	DTBEntries  int    `yaml:"dtb_entries"`
	MemorySize  string `yaml:"memory_size"` // e.g. "64MiB", parsed by ParseSize
	PALBase     uint64 `yaml:"pal_base"`
	Image       string `yaml:"image"`
	LogLevel    string `yaml:"log_level"`
}

// Load reads and parses a YAML config file at path.
func Load(path string) (File, error) {
	var f File
	data, err := os.ReadFile(path)
	if err != nil {
		return f, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return f, nil
}

// ToCoreConfig converts a parsed File into a cpu.Config, falling back to
// cpu.DefaultConfig for any zero-valued field.
func (f File) ToCoreConfig() (cpu.Config, error) {
	cfg := cpu.DefaultConfig()
	if f.BcacheLines != 0 {
		cfg.BcacheLines = f.BcacheLines
	}
	if f.DcacheLines != 0 {
		cfg.DcacheLines = f.DcacheLines
	}
	if f.DTBEntries != 0 {
		cfg.DTBEntries = f.DTBEntries
	}
	if f.MemorySize != "" {
		size, err := ParseSize(f.MemorySize)
		if err != nil {
			return cfg, err
		}
		cfg.MemorySize = size
	}
	if f.PALBase != 0 {
		cfg.PALBase = f.PALBase
	}
	return cfg, nil
}

// LogLevelOrDefault maps the config file's log_level string to a
// trace.Level, defaulting to trace.LevelInfo.
func (f File) LogLevelOrDefault() trace.Level {
	switch f.LogLevel {
	case "debug":
		return trace.LevelDebug
	case "warn":
		return trace.LevelWarn
	case "error":
		return trace.LevelError
	default:
		return trace.LevelInfo
	}
}

// ParseSize parses a human memory size like "64MiB" or "512KiB" into
// bytes.
func ParseSize(s string) (uint64, error) {
	var n uint64
	var unit string
	if _, err := fmt.Sscanf(s, "%d%s", &n, &unit); err != nil {
		return 0, fmt.Errorf("config: invalid memory_size %q: %w", s, err)
	}
	switch unit {
	case "KiB":
		return n << 10, nil
	case "MiB":
		return n << 20, nil
	case "GiB":
		return n << 30, nil
	case "B", "":
		return n, nil
	default:
		return 0, fmt.Errorf("config: unknown size unit %q in %q", unit, s)
	}
}
