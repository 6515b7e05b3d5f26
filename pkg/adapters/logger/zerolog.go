package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/user/framecast/pkg/ports"
)

// ZerologLogger adapts a zerolog.Logger to the ports.Logger interface.
// Server mode uses it so job logs share the structured request log stream.
type ZerologLogger struct {
	zl zerolog.Logger
}

// NewZerolog wraps an existing zerolog.Logger.
func NewZerolog(zl zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{zl: zl}
}

// NewZerologConsole constructs a zerolog logger with sane service defaults:
// JSON to stdout, or a console writer in development.
func NewZerologConsole(level ports.LogLevel, pretty bool) *ZerologLogger {
	zl := zerolog.New(os.Stdout).
		Level(zerologLevel(level)).
		With().
		Timestamp().
		Logger()

	if pretty {
		zl = zl.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	return &ZerologLogger{zl: zl}
}

// Debug logs a debug message.
func (l *ZerologLogger) Debug(msg string, args ...interface{}) {
	l.zl.Debug().Msgf(msg, args...)
}

// Info logs an informational message.
func (l *ZerologLogger) Info(msg string, args ...interface{}) {
	l.zl.Info().Msgf(msg, args...)
}

// Warn logs a warning message.
func (l *ZerologLogger) Warn(msg string, args ...interface{}) {
	l.zl.Warn().Msgf(msg, args...)
}

// Error logs an error message.
func (l *ZerologLogger) Error(msg string, args ...interface{}) {
	l.zl.Error().Msgf(msg, args...)
}

// WithComponent returns a logger that adds a component field to every entry.
func (l *ZerologLogger) WithComponent(component string) ports.Logger {
	return &ZerologLogger{zl: l.zl.With().Str("component", component).Logger()}
}

// Raw exposes the underlying zerolog.Logger for callers that need the
// structured API directly, such as HTTP middleware.
func (l *ZerologLogger) Raw() zerolog.Logger {
	return l.zl
}

func zerologLevel(level ports.LogLevel) zerolog.Level {
	switch level {
	case ports.LevelDebug:
		return zerolog.DebugLevel
	case ports.LevelInfo:
		return zerolog.InfoLevel
	case ports.LevelWarn:
		return zerolog.WarnLevel
	case ports.LevelError:
		return zerolog.ErrorLevel
	case ports.LevelQuiet:
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Ensure ZerologLogger implements ports.Logger
var _ ports.Logger = (*ZerologLogger)(nil)
