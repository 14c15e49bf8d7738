package config

import (
	"io"
	"log/slog"
	"os"
)

// SetupLogging configures the global slog logger based on args
// Returns the log file handle (caller must close it) or nil if no file
func SetupLogging(args Args) (*os.File, error) {
	output, logFile, err := logWriter(args)
	if err != nil {
		return nil, err
	}

	// Parse log level
	logLevel := parseLogLevel(args.LogLevel)

	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: logLevel,
	}
	if opts.Level == slog.LevelDebug {
		opts.AddSource = true
	}

	if args.Json || args.JsonFile != "" {
		// JSON output gets JSON-formatted logs
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	// Set as default logger
	slog.SetDefault(slog.New(handler))

	return logFile, nil
}

// logWriter picks where logs go: the log file when one is given, stderr
// otherwise. Results always go to stdout, so logs never mix with them.
func logWriter(args Args) (io.Writer, *os.File, error) {
	if args.Log == "" {
		return os.Stderr, nil, nil
	}
	f, err := os.OpenFile(args.Log, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, err
	}
	return f, f, nil
}

// parseLogLevel converts string to slog.Level
func parseLogLevel(level string) slog.Level {
	switch level {
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
