// Package logger builds the zerolog logger shared by the service.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger writing to stderr. Format "console" is human readable,
// anything else is JSON. Unknown levels fall back to info.
func New(level, format string) zerolog.Logger {
	var out io.Writer = os.Stderr
	if strings.EqualFold(format, "console") {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	return NewWithWriter(out, level)
}

func NewWithWriter(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("service", "points-ledger").Logger()
}
