package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// Logger defines the common logging interface used throughout the application.
// It separates internal log records (Info, Warning, Error) from messages meant
// for the person running the daemon (InfoToUser, WarningToUser, Success,
// StatusMessage).
type Logger interface {
	// Info logs an informational message to the log file only.
	Info(format string, args ...interface{})

	// Warning logs a warning. It is echoed to stdout in verbose mode.
	Warning(format string, args ...interface{})

	// Error logs an error. It is always echoed to stderr.
	Error(format string, args ...interface{})

	// InfoToUser logs an informational message and prints it to stdout.
	InfoToUser(format string, args ...interface{})

	// WarningToUser logs a warning and prints it to stdout.
	WarningToUser(format string, args ...interface{})

	// Success logs a success message and prints it to stdout.
	Success(format string, args ...interface{})

	// StatusMessage prints a status line to stdout without logging it.
	StatusMessage(format string, args ...interface{})

	// Close flushes and closes the log file, if any.
	Close() error
}

// DefaultLogger implements Logger with a zerolog file logger for records
// and plain writers for user-facing output.
type DefaultLogger struct {
	mu      sync.Mutex
	log     zerolog.Logger
	enabled bool
	logFile string
	verbose bool
	stdout  io.Writer
	stderr  io.Writer
	file    *os.File
}

// New creates a new Logger instance
func New(enabled bool, logFile string, verbose bool) *DefaultLogger {
	return NewWithOutput(enabled, logFile, verbose, os.Stdout, os.Stderr)
}

// NewWithOutput creates a DefaultLogger with custom output writers.
// When enabled, records are written as JSON lines to logFile; if the file
// cannot be opened the logger falls back to a console writer on stderr.
func NewWithOutput(enabled bool, logFile string, verbose bool, stdout, stderr io.Writer) *DefaultLogger {
	var (
		zl   zerolog.Logger
		file *os.File
	)

	if enabled && logFile != "" {
		logDir := filepath.Dir(logFile)
		if logDir != "." {
			if err := os.MkdirAll(logDir, 0o755); err != nil {
				_, _ = fmt.Fprintf(stderr, "⚠️ Failed to create log directory: %v\n", err)
			}
		}

		f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err == nil {
			file = f
			zl = zerolog.New(f).With().Timestamp().Logger()
			_, _ = fmt.Fprintf(stdout, "🔍 Debug logging enabled. Logs will be written to: %s\n", logFile)
			zl.Info().Msg("vaultgit debug logging started")
		} else {
			zl = consoleLogger(stderr)
			_, _ = fmt.Fprintf(stderr, "⚠️ Failed to open log file: %v, using stderr instead\n", err)
		}
	} else {
		zl = consoleLogger(stderr).Level(zerolog.WarnLevel)
	}

	return &DefaultLogger{
		log:     zl,
		enabled: enabled,
		logFile: logFile,
		verbose: verbose,
		stdout:  stdout,
		stderr:  stderr,
		file:    file,
	}
}

func consoleLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true}).With().Timestamp().Logger()
}

// With returns a child logger whose records carry the given field.
// User-facing output is shared with the parent.
func (l *DefaultLogger) With(key, value string) *DefaultLogger {
	l.mu.Lock()
	defer l.mu.Unlock()

	return &DefaultLogger{
		log:     l.log.With().Str(key, value).Logger(),
		enabled: l.enabled,
		logFile: l.logFile,
		verbose: l.verbose,
		stdout:  l.stdout,
		stderr:  l.stderr,
	}
}

// Info logs an informational message (file only)
func (l *DefaultLogger) Info(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.enabled {
		return
	}

	l.log.Info().Msgf(format, args...)
}

// InfoToUser logs an informational message to both file and stdout
func (l *DefaultLogger) InfoToUser(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)

	if l.enabled {
		l.log.Info().Msg(msg)
	}

	_, _ = fmt.Fprintf(l.stdout, "ℹ️  %s\n", msg)
}

// Success logs a success message to both file and stdout
func (l *DefaultLogger) Success(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)

	if l.enabled {
		l.log.Info().Bool("success", true).Msg(msg)
	}

	_, _ = fmt.Fprintf(l.stdout, "✅ %s\n", msg)
}

// Warning logs a warning message
func (l *DefaultLogger) Warning(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)

	if l.enabled {
		l.log.Warn().Msg(msg)
	}

	if l.verbose {
		_, _ = fmt.Fprintf(l.stdout, "⚠️  %s\n", msg)
	}
}

// WarningToUser logs a warning message to both file and stdout
func (l *DefaultLogger) WarningToUser(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)

	if l.enabled {
		l.log.Warn().Msg(msg)
	}

	_, _ = fmt.Fprintf(l.stdout, "⚠️  %s\n", msg)
}

// Error logs an error message
func (l *DefaultLogger) Error(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)

	if l.enabled {
		l.log.Error().Msg(msg)
	}

	// Always show errors to the user regardless of debug status
	_, _ = fmt.Fprintf(l.stderr, "❌ %s\n", msg)
}

// StatusMessage prints a status message to stdout only (no logging)
func (l *DefaultLogger) StatusMessage(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, _ = fmt.Fprintf(l.stdout, format+"\n", args...)
}

// Close ensures any buffered data is written and closes open log file handles
func (l *DefaultLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		if err := l.file.Sync(); err != nil {
			return err
		}
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// SetStdout sets a custom writer for user-facing stdout messages only.
// NOTE: This does not affect where zerolog records are directed.
func (l *DefaultLogger) SetStdout(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stdout = w
}

// SetStderr sets a custom writer for user-facing stderr messages only.
// NOTE: This does not affect where zerolog records are directed.
func (l *DefaultLogger) SetStderr(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stderr = w
}

// Nop returns a Logger that discards everything. Useful in tests.
func Nop() *DefaultLogger {
	return NewWithOutput(false, "", false, io.Discard, io.Discard)
}
