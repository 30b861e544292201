// Package logger provides the structured zerolog logger used across dtu-env.
// The terminal belongs to the TUI, so output only goes to a file the user
// opted into; otherwise every call is a no-op.
package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger writes structured lines to an optional log file.
type Logger struct {
	zl   zerolog.Logger
	file *os.File
}

// New opens (or appends to) path and logs at the given level.
// An empty path returns a discard logger.
func New(path, level string) (*Logger, error) {
	if path == "" {
		return NewDiscard(), nil
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	return &Logger{
		zl:   zerolog.New(f).Level(lvl).With().Timestamp().Logger(),
		file: f,
	}, nil
}

// NewWriter returns a logger that writes JSON lines to w. Used by tests.
func NewWriter(w io.Writer) *Logger {
	return &Logger{zl: zerolog.New(w).With().Timestamp().Logger()}
}

// NewDiscard returns a logger that drops everything.
func NewDiscard() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With returns a child logger with an extra string field on every line.
func (l *Logger) With(key, value string) *Logger {
	return &Logger{zl: l.zl.With().Str(key, value).Logger()}
}

// LogPath returns the path of the current log file, or empty string if discarded.
func (l *Logger) LogPath() string {
	if l.file == nil {
		return ""
	}
	return l.file.Name()
}

// Write implements io.Writer. Each chunk becomes one debug line so raw
// package-manager output can be teed into the log.
func (l *Logger) Write(p []byte) (n int, err error) {
	l.zl.Debug().Str("stream", "pm").Msg(string(p))
	return len(p), nil
}

// Printf writes a formatted info line to the log.
func (l *Logger) Printf(format string, args ...any) {
	l.zl.Info().Msgf(format, args...)
}

func (l *Logger) Debug() *zerolog.Event { return l.zl.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.zl.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.zl.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.zl.Error() }

// Close closes the log file.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
