// Package logging is the structured logger used across caselink: zerolog
// underneath, with child loggers scoped by subsystem and by request or
// session.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Console styles accepted by NewStyled.
const (
	StylePretty = "pretty"
	StyleJSON   = "json"
)

// Logger is a zerolog logger plus the subsystem chain it was derived from.
type Logger struct {
	zl        zerolog.Logger
	subsystem string
}

// New creates a root logger at level writing to w. A nil w selects the
// human-readable console writer on stderr. At debug and trace the caller's
// file and line are attached.
func New(w io.Writer, level string) *Logger {
	if w == nil {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}
	}
	lvl, _ := ParseLevel(level)
	ctx := zerolog.New(w).Level(lvl).With().Timestamp()
	if lvl <= zerolog.DebugLevel {
		ctx = ctx.Caller()
	}
	return &Logger{zl: ctx.Logger()}
}

// NewStyled creates a stderr logger in the configured console style. JSON
// is for hosted deployments where a collector parses the stream.
func NewStyled(level, style string) *Logger {
	if strings.EqualFold(style, StyleJSON) {
		return New(os.Stderr, level)
	}
	return New(nil, level)
}

// Sub returns a child logger for a subsystem. Nested subsystems are joined
// with dots, so the orchestrator's context builder logs as
// "agent.context".
func (l *Logger) Sub(subsystem string) *Logger {
	name := subsystem
	if l.subsystem != "" {
		name = l.subsystem + "." + subsystem
	}
	return &Logger{zl: l.zl.With().Str("subsystem", name).Logger(), subsystem: name}
}

// With returns a child logger carrying one extra field, typically a
// session, connection or request id.
func (l *Logger) With(key, value string) *Logger {
	return &Logger{zl: l.zl.With().Str(key, value).Logger(), subsystem: l.subsystem}
}

// Subsystem is the dotted subsystem name, empty for a root logger.
func (l *Logger) Subsystem() string { return l.subsystem }

// Level reports the minimum level that is written.
func (l *Logger) Level() zerolog.Level { return l.zl.GetLevel() }

func (l *Logger) Trace() *zerolog.Event { return l.zl.Trace() }
func (l *Logger) Debug() *zerolog.Event { return l.zl.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.zl.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.zl.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.zl.Error() }

// Fatal logs and exits the process.
func (l *Logger) Fatal() *zerolog.Event { return l.zl.Fatal() }

// Zerolog exposes the underlying logger for libraries that take one.
func (l *Logger) Zerolog() zerolog.Logger { return l.zl }

// ParseLevel maps a config level name to a zerolog level, ignoring case.
// Unknown names map to info and report false.
func ParseLevel(s string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "fatal":
		return zerolog.FatalLevel, true
	case "silent", "off":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}
