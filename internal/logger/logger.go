package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// TODO: Consider log rotation

// LevelCritical sits above slog.LevelError so "critical" silences ordinary errors.
const LevelCritical = slog.LevelError + 4

var (
	mu            sync.RWMutex
	defaultLogger *slog.Logger
)

// Options configures InitLogger.
type Options struct {
	// Level is one of the --log-level names (debug, info, warning, error, critical).
	Level string

	// Stderr mirrors log records to stderr. Disabled while the dashboard owns the terminal.
	Stderr bool

	// File disables the state-directory log file when false.
	File bool
}

// ParseLevel maps a --log-level name onto a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warning", "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case "critical":
		return LevelCritical, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
}

// LogFilePath determines the path for the application log file based on XDG spec.
func LogFilePath() (string, error) {
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not get user home directory: %w", err)
		}
		stateDir = filepath.Join(homeDir, ".local", "state")
	}

	return filepath.Join(stateDir, "fmu-settings", "app.log"), nil
}

// openLogFile creates the log directory (0750) and opens the file for appending (0640).
func openLogFile() (*os.File, error) {
	logFilePath, err := LogFilePath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(logFilePath), 0750); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	file, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", logFilePath, err)
	}
	return file, nil
}

// InitLogger configures the default logger. The file always records at least
// info level so a crash report is available even when the terminal is quiet.
func InitLogger(opts Options) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v, defaulting to info.\n", err)
	}

	var handlers []slog.Handler
	if opts.File {
		file, err := openLogFile()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v. File logging disabled.\n", err)
		} else {
			fileLevel := min(level, slog.LevelInfo)
			handlers = append(handlers, slog.NewJSONHandler(file, &slog.HandlerOptions{Level: fileLevel}))
		}
	}
	if opts.Stderr {
		handlers = append(handlers, slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}

	var handler slog.Handler
	switch len(handlers) {
	case 0:
		handler = slog.NewJSONHandler(io.Discard, nil)
	case 1:
		handler = handlers[0]
	default:
		handler = fanout(handlers)
	}
	SetLogger(slog.New(handler))
}

// SetLogger allows replacing the default logger instance, mainly for tests.
func SetLogger(l *slog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = l
}

// Logger returns the current logger, falling back to a discard logger when
// InitLogger has not run yet.
func Logger() *slog.Logger {
	mu.RLock()
	l := defaultLogger
	mu.RUnlock()
	if l == nil {
		return slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return l
}

// Info logs an informational message.
func Info(msg string, args ...any) {
	Logger().Info(msg, args...)
}

// Infof logs a formatted informational message.
func Infof(format string, v ...interface{}) {
	Logger().Info(fmt.Sprintf(format, v...))
}

// Error logs an error message.
func Error(msg string, args ...any) {
	Logger().Error(msg, args...)
}

// Errorf logs a formatted error message.
func Errorf(format string, v ...interface{}) {
	Logger().Error(fmt.Sprintf(format, v...))
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	Logger().Debug(msg, args...)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	Logger().Warn(msg, args...)
}
