// Package logger configures zerolog for the CLI and hands out component
// loggers.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options controls logger construction.
type Options struct {
	// Level is one of debug, info, warn, error, disabled. Unknown values
	// fall back to info.
	Level string
	// Format is "console" for humans or "json".
	Format string
	// Out defaults to os.Stderr.
	Out io.Writer
}

// New builds a root logger from opts.
func New(opts Options) zerolog.Logger {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	if strings.EqualFold(opts.Format, "json") {
		zerolog.TimeFieldFormat = time.RFC3339
	} else {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	level, known := ParseLevel(opts.Level)
	l := zerolog.New(out).Level(level).With().Timestamp().Logger()
	if !known {
		l.Warn().Msgf("Unknown log level '%s', defaulting to info.", opts.Level)
	}
	return l
}

// ParseLevel maps a level name to a zerolog level. The second result is
// false when the name was not recognised.
func ParseLevel(s string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel, true
	case "", "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

// Component returns a child logger tagged with the component name.
func Component(root zerolog.Logger, name string) zerolog.Logger {
	return root.With().Str("component", name).Logger()
}
