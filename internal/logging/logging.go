package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/natefinch/lumberjack"
)

// Options selects the handler, level and optional rotating file sink.
type Options struct {
	Format string
	Level  string
	File   string
}

// New initializes a new slog logger and sets it as the default.
// Format "json" is meant for production; anything else gives text output
// with source locations for development.
func New(opts Options) *slog.Logger {
	var out io.Writer = os.Stdout
	if opts.File != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		})
	}

	logger := slog.New(NewHandler(out, opts))
	slog.SetDefault(logger)
	return logger
}

// NewHandler builds the handler New would install, writing to w.
func NewHandler(w io.Writer, opts Options) slog.Handler {
	level := ParseLevel(opts.Level)
	switch opts.Format {
	case "json":
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	default:
		return slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:     level,
			AddSource: true,
		})
	}
}

// ParseLevel maps LOG_LEVEL values to slog levels, defaulting to debug.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}
