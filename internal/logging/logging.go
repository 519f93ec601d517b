package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// New creates a console slog.Logger with provided level string. When file is
// set, records are also appended to it as JSON. The returned cleanup closes
// the file.
func New(level, file string) (*slog.Logger, func() error, error) {
	if strings.TrimSpace(file) == "" {
		return NewWithWriters(os.Stdout, nil, level), func() error { return nil }, nil
	}

	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return NewWithWriters(os.Stdout, f, level), f.Close, nil
}

// NewWithWriters writes text to console and, when jsonOut is non-nil, JSON to jsonOut.
func NewWithWriters(console, jsonOut io.Writer, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: levelFromString(level)}
	text := slog.NewTextHandler(console, opts)
	if jsonOut == nil {
		return slog.New(text)
	}
	return slog.New(slogmulti.Fanout(text, slog.NewJSONHandler(jsonOut, opts)))
}

func levelFromString(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "error":
		return slog.LevelError
	case "warn", "warning":
		return slog.LevelWarn
	case "info", "":
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
