package logger

import (
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
)

// Setup installs the default slog handler: colorized tint output in dev,
// JSON everywhere else.
func Setup(levelStr, env string) {
	level := parseLevel(levelStr)
	var handler slog.Handler
	switch env {
	case "dev", "development":
		handler = tint.NewHandler(os.Stdout, &tint.Options{Level: level})
	default:
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
