// Package logger wraps zerolog behind the small interface the rest of the server logs through.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Interface -.
type Interface interface {
	Debug(message interface{}, args ...interface{})
	Info(message string, args ...interface{})
	Warn(message string, args ...interface{})
	Error(message interface{}, args ...interface{})
	Fatal(message interface{}, args ...interface{})
}

// Logger -.
type Logger struct {
	logger *zerolog.Logger
}

var _ Interface = (*Logger)(nil)

const callerSkip = 3

// New returns a JSON logger writing to stdout at the given level.
func New(level string) *Logger {
	return NewWithWriter(level, os.Stdout)
}

// NewWithWriter returns a JSON logger writing to w.
func NewWithWriter(level string, w io.Writer) *Logger {
	zl := zerolog.New(w).
		Level(parseLevel(level)).
		With().
		Timestamp().
		CallerWithSkipFrameCount(zerolog.CallerSkipFrameCount + callerSkip).
		Logger()

	return &Logger{logger: &zl}
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Debug -.
func (l *Logger) Debug(message interface{}, args ...interface{}) {
	l.msg(l.logger.Debug(), "debug", message, args...)
}

// Info -.
func (l *Logger) Info(message string, args ...interface{}) {
	l.emit(l.logger.Info(), message, args...)
}

// Warn -.
func (l *Logger) Warn(message string, args ...interface{}) {
	l.emit(l.logger.Warn(), message, args...)
}

// Error -.
func (l *Logger) Error(message interface{}, args ...interface{}) {
	l.msg(l.logger.Error(), "error", message, args...)
}

// Fatal logs at fatal level and exits the process.
func (l *Logger) Fatal(message interface{}, args ...interface{}) {
	l.msg(l.logger.Error(), "fatal", message, args...)

	os.Exit(1)
}

func (l *Logger) emit(e *zerolog.Event, message string, args ...interface{}) {
	if len(args) == 0 {
		e.Msg(message)

		return
	}

	e.Msgf(message, args...)
}

func (l *Logger) msg(e *zerolog.Event, level string, message interface{}, args ...interface{}) {
	switch m := message.(type) {
	case error:
		// an error followed by a single context string reads as "context: error"
		if len(args) == 1 {
			if where, ok := args[0].(string); ok {
				e.Err(m).Msg(where)

				return
			}
		}

		l.emit(e, m.Error(), args...)
	case string:
		l.emit(e, m, args...)
	default:
		l.emit(e, fmt.Sprintf("%s message %v has unknown type %T", level, message, m), args...)
	}
}
