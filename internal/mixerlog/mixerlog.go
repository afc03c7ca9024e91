// Package mixerlog configures the process-wide slog logger the mixer
// and its adapters use, grounded on the teacher's
// ConfigureDefaultLogger: text to stdout by default, JSON to a file
// when one is requested.
package mixerlog

import (
	"errors"
	"io"
	"log/slog"
	"os"
)

// Configure sets slog's default logger from a level name ("none",
// "error", "warn", "info", "debug") and an optional log file path. If
// logFile is empty, output goes to stdout as text; otherwise it goes
// to the named file as JSON. The returned *os.File (nil if logging to
// stdout or disabled) should be closed by the caller at shutdown.
func Configure(logLevel string, logFile string, opts slog.HandlerOptions) (*os.File, error) {
	switch logLevel {
	case "none":
		slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
		return nil, nil
	case "error":
		opts.Level = slog.LevelError
	case "warn":
		opts.Level = slog.LevelWarn
	case "info":
		opts.Level = slog.LevelInfo
	case "debug":
		opts.Level = slog.LevelDebug
	default:
		return nil, errors.New("mixerlog: unexpected log level " + logLevel)
	}

	if logFile == "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &opts)))
		return nil, nil
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(f, &opts)))
	return f, nil
}
