package config

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// SetupLogger creates a logger writing JSON to logFile and, when console is
// non-nil, human-readable text to console. The interactive chat passes a nil
// console so log lines never land on the screen.
// Returns the logger and a cleanup function to close the file.
func SetupLogger(logFile string, level slog.Level, console io.Writer) (*slog.Logger, func() error) {
	var handlers []slog.Handler
	if console != nil {
		handlers = append(handlers, slog.NewTextHandler(console, &slog.HandlerOptions{
			Level: level,
		}))
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		if console == nil {
			return slog.New(slog.NewTextHandler(io.Discard, nil)), func() error { return nil }
		}
		logger := slog.New(slogmulti.Fanout(handlers...))
		logger.Error("failed to open log file, using console only", "error", err, "file", logFile)
		return logger, func() error { return nil }
	}

	handlers = append(handlers, slog.NewJSONHandler(file, &slog.HandlerOptions{
		Level: level,
	}))

	logger := slog.New(slogmulti.Fanout(handlers...))

	cleanup := func() error {
		return file.Close()
	}

	return logger, cleanup
}

// SetupLoggerWithWriters creates a logger with custom writers (for testing).
func SetupLoggerWithWriters(console, file io.Writer, level slog.Level) *slog.Logger {
	consoleHandler := slog.NewTextHandler(console, &slog.HandlerOptions{Level: level})
	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level})
	return slog.New(slogmulti.Fanout(consoleHandler, fileHandler))
}
