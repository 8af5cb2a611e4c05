package config

import (
	"io"
	"log"
	"os"
)

// LogLevel controls how much of the analysis's progress and diagnostics get
// printed.
type LogLevel int

const (
	// ErrLevel is the minimum level: only fatal-adjacent errors.
	ErrLevel LogLevel = iota + 1
	// WarnLevel additionally prints points-to/def-use diagnostics
	// (pta.Reporter.Warnf is routed here).
	WarnLevel
	// InfoLevel additionally prints per-phase progress and slice statistics.
	InfoLevel
	// DebugLevel additionally prints per-node engine activity.
	DebugLevel
	// TraceLevel prints everything, including the worklist fixpoint's
	// per-iteration schedule. Not usable on large programs.
	TraceLevel
)

// LogGroup is a set of level-gated loggers, one per level, all configured
// together so the caller doesn't juggle five *log.Logger values by hand.
type LogGroup struct {
	level LogLevel
	trace *log.Logger
	debug *log.Logger
	info  *log.Logger
	warn  *log.Logger
	err   *log.Logger
}

// NewLogGroup builds a LogGroup gated at the level config specifies.
func NewLogGroup(cfg *Config) *LogGroup {
	return &LogGroup{
		level: LogLevel(cfg.LogLevel),
		trace: log.New(os.Stderr, "[TRACE] ", log.LstdFlags),
		debug: log.New(os.Stderr, "[DEBUG] ", log.LstdFlags),
		info:  log.New(os.Stderr, "[INFO] ", log.LstdFlags),
		warn:  log.New(os.Stderr, "[WARN] ", log.LstdFlags),
		err:   log.New(os.Stderr, "[ERROR] ", log.LstdFlags),
	}
}

// SetAllOutput redirects every level's logger to w.
func (l *LogGroup) SetAllOutput(w io.Writer) {
	l.trace.SetOutput(w)
	l.debug.SetOutput(w)
	l.info.SetOutput(w)
	l.warn.SetOutput(w)
	l.err.SetOutput(w)
}

// SetAllFlags sets the log.Logger flags of every level's logger.
func (l *LogGroup) SetAllFlags(x int) {
	l.trace.SetFlags(x)
	l.debug.SetFlags(x)
	l.info.SetFlags(x)
	l.warn.SetFlags(x)
	l.err.SetFlags(x)
}

// Tracef prints at TraceLevel if the group's level allows it.
func (l *LogGroup) Tracef(format string, v ...any) {
	if l.level >= TraceLevel {
		l.trace.Printf(format, v...)
	}
}

// Debugf prints at DebugLevel if the group's level allows it.
func (l *LogGroup) Debugf(format string, v ...any) {
	if l.level >= DebugLevel {
		l.debug.Printf(format, v...)
	}
}

// Infof prints at InfoLevel if the group's level allows it.
func (l *LogGroup) Infof(format string, v ...any) {
	if l.level >= InfoLevel {
		l.info.Printf(format, v...)
	}
}

// Warnf prints at WarnLevel if the group's level allows it. It also
// implements pta.Reporter, so an Engine can log straight through a
// LogGroup instead of a bespoke sink.
func (l *LogGroup) Warnf(format string, v ...any) {
	if l.level >= WarnLevel {
		l.warn.Printf(format, v...)
	}
}

// Errorf prints at ErrLevel if the group's level allows it.
func (l *LogGroup) Errorf(format string, v ...any) {
	if l.level >= ErrLevel {
		l.err.Printf(format, v...)
	}
}
