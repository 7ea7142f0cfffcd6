// Package ctfconfig loads the small TOML document describing one decode
// session (which metadata file to load, which packet file to read, how
// to render the resulting element stream), mirroring the teacher's
// internal/config.LoadGhostConfig / LoadSeedConfig pattern: parse into a
// struct, apply defaults for empty fields, run Validate, wrap load/parse
// errors with the file path.
package ctfconfig

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// OutputFormat selects how cmd/yactfrdump renders decoded elements.
type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
)

// SessionConfig describes one decode session: the metadata describing
// the trace's types, the binary packet sequence to decode against it,
// and how to render the resulting elements.
type SessionConfig struct {
	MetadataPath string `toml:"metadata_path"`
	PacketPath   string `toml:"packet_path"`
	Output       string `toml:"output"`
	ExpectMagic  bool   `toml:"expect_magic"`
	MetricsAddr  string `toml:"metrics_addr"`
}

// LoadSessionConfig reads and validates a SessionConfig from path.
func LoadSessionConfig(path string) (SessionConfig, error) {
	var cfg SessionConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return SessionConfig{}, fmt.Errorf("ctfconfig: load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return SessionConfig{}, fmt.Errorf("ctfconfig: parse failed (%s): %w", path, err)
	}
	if cfg.Output == "" {
		cfg.Output = string(OutputText)
	}
	if err := Validate(cfg); err != nil {
		return SessionConfig{}, err
	}
	return cfg, nil
}

// Validate checks a SessionConfig's required fields and enumerations.
func Validate(cfg SessionConfig) error {
	if strings.TrimSpace(cfg.MetadataPath) == "" {
		return fmt.Errorf("ctfconfig: missing metadata_path")
	}
	if strings.TrimSpace(cfg.PacketPath) == "" {
		return fmt.Errorf("ctfconfig: missing packet_path")
	}
	switch OutputFormat(cfg.Output) {
	case OutputText, OutputJSON:
	default:
		return fmt.Errorf("ctfconfig: unknown output format %q", cfg.Output)
	}
	return nil
}
