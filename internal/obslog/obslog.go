// Package obslog configures the module's one process-wide zerolog
// logger, the way the teacher's internal/logging and
// internal/observability packages do between them: env-driven level
// and color, a sync.Once-guarded Configure, and a TTY-aware console
// writer for interactive runs.
package obslog

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// EnvLogLevel selects the minimum level logged: trace, debug, info
	// (default), warn, error, or disabled.
	EnvLogLevel = "YACTFR_LOG_LEVEL"
	// EnvLogNoColor disables ANSI color in the console writer even when
	// stdout is a TTY.
	EnvLogNoColor = "YACTFR_LOG_NOCOLOR"
)

var configureOnce sync.Once

// Configure sets up the package-level zerolog.Logger (log.Logger) from
// environment variables. Safe to call more than once; only the first
// call has any effect.
func Configure(app string) {
	configureOnce.Do(func() {
		level := parseLevel(os.Getenv(EnvLogLevel))

		out := os.Stdout
		var writer zerolog.ConsoleWriter
		if noColorEnv() || !isatty.IsTerminal(out.Fd()) {
			writer = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: true}
		} else {
			writer = zerolog.ConsoleWriter{Out: colorable.NewColorable(out), TimeFormat: time.RFC3339}
		}

		logger := zerolog.New(writer).Level(level).With().Timestamp().Str("app", app).Logger()
		log.Logger = logger
	})
}

func noColorEnv() bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(EnvLogNoColor)))
	return err == nil && v
}

func parseLevel(raw string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off", "none":
		return zerolog.Disabled
	case "", "info":
		return zerolog.InfoLevel
	default:
		return zerolog.InfoLevel
	}
}
