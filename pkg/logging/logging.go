// Package logging provides the small leveled wrapper every package logs
// through, grounded on the teacher's log.Printf("[Transaction %s] ...")
// call sites (pkg/storage/transaction.go, pkg/storage/badger_transaction.go):
// a bracketed component tag in front of a plain message, backed by the
// standard library's log.Logger rather than a structured-logging
// dependency, gated by a minimum level set once at startup from
// config.LoggingConfig.
package logging

import (
	"log"
	"os"
	"sync/atomic"
)

// Level is a logging verbosity threshold.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a config string to a Level, defaulting to LevelInfo for
// anything unrecognized.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

var (
	std      = log.New(os.Stderr, "", log.LstdFlags)
	minLevel atomic.Int32
)

func init() {
	minLevel.Store(int32(LevelInfo))
}

// SetLevel sets the process-wide minimum level below which log lines are
// dropped. Called once by graphstore.Open from the loaded Config.
func SetLevel(level string) {
	minLevel.Store(int32(ParseLevel(level)))
}

func enabled(level Level) bool {
	return level >= Level(minLevel.Load())
}

func logAt(level Level, component, format string, args ...interface{}) {
	if !enabled(level) {
		return
	}
	std.Printf("[%s] "+format, prepend(component, args)...)
}

func prepend(component string, args []interface{}) []interface{} {
	out := make([]interface{}, 0, len(args)+1)
	out = append(out, component)
	out = append(out, args...)
	return out
}

func Debugf(component, format string, args ...interface{}) { logAt(LevelDebug, component, format, args...) }
func Infof(component, format string, args ...interface{})  { logAt(LevelInfo, component, format, args...) }
func Warnf(component, format string, args ...interface{})  { logAt(LevelWarn, component, format, args...) }
func Errorf(component, format string, args ...interface{}) { logAt(LevelError, component, format, args...) }
