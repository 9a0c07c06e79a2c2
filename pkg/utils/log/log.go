// Package log implements a small leveled logger used across the relay. Each
// level is a value with an F (printf-style), Ln (space-joined), and C (lazy,
// only evaluated when the level is enabled) method, so call sites can write
//
//	log.T.F("session %s rehydrated", id)
//	log.D.C(func() string { return fmt.Sprintf("expensive: %v", thing) })
//
// without paying for the expensive case unless trace/debug logging is on.
package log

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
)

// Level identifies a logging severity, ordered after Off (which disables
// output) from most to least severe.
type Level int32

const (
	Off Level = iota
	Fatal
	Error
	Warn
	Info
	Debug
	Trace
)

var names = map[Level]string{
	Fatal: "fatal", Error: "error", Warn: "warn",
	Info: "info", Debug: "debug", Trace: "trace",
}

var colors = map[Level]*color.Color{
	Fatal: color.New(color.FgHiRed, color.Bold),
	Error: color.New(color.FgRed),
	Warn:  color.New(color.FgYellow),
	Info:  color.New(color.FgGreen),
	Debug: color.New(color.FgCyan),
	Trace: color.New(color.FgWhite),
}

// current is the currently enabled level; anything at or below it is
// printed. Stored atomically since every connection goroutine reads it.
var current atomic.Int32

func init() { current.Store(int32(Info)) }

// SetLevel changes the global logging level.
func SetLevel(l Level) { current.Store(int32(l)) }

// GetLevel returns the global logging level.
func GetLevel() Level { return Level(current.Load()) }

// ParseLevel maps a level name (as found in the MESH_LOG_LEVEL and
// MESH_DB_LOG_LEVEL config fields) to a Level, defaulting to Info for an
// unrecognized name.
func ParseLevel(name string) Level {
	for l, n := range names {
		if n == name {
			return l
		}
	}
	return Info
}

// SetLevelByName parses name and installs it as the global level.
func SetLevelByName(name string) { SetLevel(ParseLevel(name)) }

// Writer is where log lines are written; swappable for tests.
var Writer io.Writer = os.Stderr

// Logger is a single severity's logging surface.
type Logger struct {
	level Level
}

func (l Logger) enabled() bool { return l.level <= GetLevel() }

// F writes a printf-style formatted line at this logger's level.
func (l Logger) F(format string, a ...any) {
	if !l.enabled() {
		return
	}
	l.write(fmt.Sprintf(format, a...))
}

// Ln writes its arguments space-joined at this logger's level.
func (l Logger) Ln(a ...any) {
	if !l.enabled() {
		return
	}
	l.write(fmt.Sprintln(a...))
}

// C writes the result of a lazily-evaluated closure at this logger's level.
// Use this when the message is expensive to build (serializing an event,
// walking a map) so the cost is only paid when the level is actually on.
func (l Logger) C(fn func() string) {
	if !l.enabled() {
		return
	}
	l.write(fn())
}

func (l Logger) write(msg string) {
	c := colors[l.level]
	ts := time.Now().Format("15:04:05.000")
	_, _ = c.Fprintf(Writer, "%s %-5s %s\n", ts, names[l.level], msg)
}

var (
	// F is the fatal-level logger; logging at this level does not itself
	// exit the process, callers decide whether to os.Exit.
	F = Logger{Fatal}
	// E is the error-level logger.
	E = Logger{Error}
	// W is the warn-level logger.
	W = Logger{Warn}
	// I is the info-level logger.
	I = Logger{Info}
	// D is the debug-level logger.
	D = Logger{Debug}
	// T is the trace-level logger.
	T = Logger{Trace}
)
