// Package logger builds the zerolog loggers shared by the server components.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger writing to stderr at the given level ("debug", "info", ...).
// An unknown level falls back to info. Pretty selects human-readable console output.
func New(level string, pretty bool) zerolog.Logger {
	var w io.Writer = os.Stderr
	if pretty {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	}
	return NewWithWriter(w, level)
}

// NewWithWriter is New with an explicit destination
func NewWithWriter(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// Component tags a logger with the component name
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
