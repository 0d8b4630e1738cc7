// Package logging builds the slog logger used across conform.
package logging

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
)

// DefaultLevel is used when no level is configured.
const DefaultLevel = "warn"

// Levels lists the accepted level names.
var Levels = []string{"debug", "info", "warn", "error"}

// ParseLevel validates a level name.
func ParseLevel(name string) (log.Level, error) {
	if name == "" {
		name = DefaultLevel
	}
	for _, l := range Levels {
		if l == name {
			return log.ParseLevel(name)
		}
	}
	return 0, fmt.Errorf("invalid log level %q (want one of debug, info, warn, error)", name)
}

// New returns a slog.Logger writing to w through a charmbracelet/log handler.
func New(w io.Writer, level string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	handler := log.NewWithOptions(w, log.Options{
		Prefix: "conform",
		Level:  lvl,
	})
	return slog.New(handler), nil
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
