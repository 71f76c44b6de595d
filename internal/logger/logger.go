package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/altafino/upload-storage/internal/types"
	"github.com/golang-cz/devslog"
)

// Setup creates a new logger based on configuration. Logs go to stderr so
// command output on stdout stays clean.
func Setup(cfg *types.Config) *slog.Logger {
	return New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.IncludeCaller)
}

// New creates a logger writing to w
func New(w io.Writer, levelName, format string, includeCaller bool) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(levelName),
		AddSource: includeCaller,
	}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "dev":
		handler = devslog.NewHandler(w, &devslog.Options{
			HandlerOptions:    opts,
			MaxSlicePrintSize: 10,
			SortKeys:          true,
		})
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// ParseLevel maps a level name onto a slog.Level, defaulting to info
func ParseLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
