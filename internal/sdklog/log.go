// Package sdklog wraps zerolog with the bracketed-component tagging the
// teacher's log.Printf call sites used (e.g. "[snapshot] updated: ..."),
// giving every package a structured logger without losing that texture.
package sdklog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger is a component-scoped wrapper around a zerolog.Logger.
type Logger struct {
	zl zerolog.Logger
}

// New builds a root logger writing to w at the given minimum level.
// Passing a nil w defaults to os.Stderr.
func New(w io.Writer, level zerolog.Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	zl := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return &Logger{zl: zl}
}

// Component returns a child logger tagged with component, mirroring the
// "[component] message" convention used throughout the rest of this
// codebase's log lines.
func (l *Logger) Component(component string) *Logger {
	return &Logger{zl: l.zl.With().Str("component", component).Logger()}
}

// Field returns a child logger carrying one extra string field, for
// tagging a run of related log lines with a correlation ID (e.g. a
// streaming connection attempt) the way the teacher's webhook dispatcher
// tagged delivery attempts with a UUID.
func (l *Logger) Field(key, value string) *Logger {
	return &Logger{zl: l.zl.With().Str(key, value).Logger()}
}

func (l *Logger) Debug(msg string) { l.zl.Debug().Msg(msg) }
func (l *Logger) Info(msg string)  { l.zl.Info().Msg(msg) }
func (l *Logger) Warn(msg string)  { l.zl.Warn().Msg(msg) }
func (l *Logger) Error(msg string) { l.zl.Error().Msg(msg) }

// ErrorErr logs msg with err attached as a structured field, for the sites
// that need to preserve the original error alongside a human message.
func (l *Logger) ErrorErr(msg string, err error) {
	l.zl.Error().Err(err).Msg(msg)
}
