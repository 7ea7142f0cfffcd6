package ctfconfig

import (
	"bytes"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// DefaultSessionConfig returns the config WriteTemplate encodes,
// pointing at a pair of sample files a new user is expected to
// supply or replace.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		MetadataPath: "trace/metadata.json",
		PacketPath:   "trace/stream_0",
		Output:       string(OutputText),
		ExpectMagic:  true,
	}
}

// WriteTemplate encodes the default SessionConfig as TOML to path,
// refusing to clobber an existing file unless overwrite is set.
// Encoding (rather than embedding a literal string, as the teacher's
// own internal/config/templates.go does) exercises BurntSushi/toml's
// encoder side, the half of that dependency the teacher's own template
// writer never reaches.
func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("ctfconfig: config already exists: %s", path)
		}
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(DefaultSessionConfig()); err != nil {
		return fmt.Errorf("ctfconfig: encode template: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o600)
}
