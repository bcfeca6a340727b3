// Package stdlogger exposes the global zerolog logger through the printf style
// interfaces of gorm and the go-ldap package logger.
package stdlogger

import (
	"fmt"
	stdlog "log"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger writes printf style messages to the global zerolog logger at one level.
type Logger struct {
	level zerolog.Level
}

// New returns a logger writing at level.
func New(level zerolog.Level) *Logger {
	return &Logger{level: level}
}

// Printf implements gorm's logger.Writer.
func (l *Logger) Printf(format string, args ...any) {
	log.WithLevel(l.level).Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// Write implements io.Writer, one call is one log line.
func (l *Logger) Write(p []byte) (int, error) {
	log.WithLevel(l.level).Msg(strings.TrimSpace(string(p)))

	return len(p), nil
}

// Std returns a standard library logger writing through l.
func (l *Logger) Std() *stdlog.Logger {
	return stdlog.New(l, "", 0)
}
