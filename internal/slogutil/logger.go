package slogutil

import (
	"io"
	"log/slog"
	"strings"
)

// Silent is above every standard level; a handler at Silent emits nothing.
const Silent = slog.Level(100)

// NewLogger returns a line-format logger at level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(NewLineHandler(w, Options{Level: level}))
}

// New builds the logger for a logging.format setting: "json" uses slog's JSON
// handler, "timestamped" the line format with times, anything else plain lines.
func New(w io.Writer, format string, level slog.Level) *slog.Logger {
	switch strings.ToLower(format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	case "timestamped":
		return slog.New(NewLineHandler(w, Options{Level: level, Timestamps: true}))
	default:
		return NewLogger(w, level)
	}
}

// NewDiscardLogger is the default for library code with no logger configured.
func NewDiscardLogger() *slog.Logger { return slog.New(discardHandler{}) }

// LevelFromString parses a logging.level setting. Unknown values give info.
func LevelFromString(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "silent", "quiet", "off":
		return Silent
	}
	return slog.LevelInfo
}

// LevelFromVerbosity maps the CLI's -v count: warn by default, info for -v,
// debug for -vv and more. quiet wins over any count.
func LevelFromVerbosity(verbosity int, quiet bool) slog.Level {
	switch {
	case quiet:
		return Silent
	case verbosity <= 0:
		return slog.LevelWarn
	case verbosity == 1:
		return slog.LevelInfo
	}
	return slog.LevelDebug
}
