// Package logger provides the leveled logging utility used across the
// batch assessment engine. It wraps the standard `log` package and filters
// messages against a globally configured level.
package logger

import (
	"log"
	"strings"
	"sync/atomic"
)

// LogLevel is a type representing the logging level.
type LogLevel int32

const (
	// LevelDebug emits detailed diagnostic output, including per-page and
	// per-conversation progress messages.
	LevelDebug LogLevel = iota
	// LevelInfo emits general informational messages.
	LevelInfo
	// LevelWarn emits messages about recoverable or suspicious conditions.
	LevelWarn
	// LevelError emits error messages.
	LevelError
	// LevelFatal emits a message and terminates the process.
	LevelFatal
)

// currentLevel is the active global log level. Messages below this level
// are suppressed.
var currentLevel atomic.Int32

func init() {
	currentLevel.Store(int32(LevelInfo))
}

// SetLogLevel sets the global log level from its string representation.
// Valid values are "DEBUG", "INFO", "WARN", "ERROR" and "FATAL"
// (case-insensitive). Unknown values fall back to INFO with a warning.
func SetLogLevel(level string) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		currentLevel.Store(int32(LevelDebug))
	case "INFO":
		currentLevel.Store(int32(LevelInfo))
	case "WARN":
		currentLevel.Store(int32(LevelWarn))
	case "ERROR":
		currentLevel.Store(int32(LevelError))
	case "FATAL":
		currentLevel.Store(int32(LevelFatal))
	default:
		log.Printf("[WARN] Unknown log level '%s' specified. Defaulting to INFO.", level)
		currentLevel.Store(int32(LevelInfo))
	}
}

// Level returns the currently active log level.
func Level() LogLevel {
	return LogLevel(currentLevel.Load())
}

// Debugf formats and outputs a DEBUG level log message.
func Debugf(format string, v ...interface{}) {
	if Level() <= LevelDebug {
		log.Printf("[DEBUG] "+format, v...)
	}
}

// Infof formats and outputs an INFO level log message.
func Infof(format string, v ...interface{}) {
	if Level() <= LevelInfo {
		log.Printf("[INFO] "+format, v...)
	}
}

// Warnf formats and outputs a WARN level log message.
func Warnf(format string, v ...interface{}) {
	if Level() <= LevelWarn {
		log.Printf("[WARN] "+format, v...)
	}
}

// Errorf formats and outputs an ERROR level log message.
func Errorf(format string, v ...interface{}) {
	if Level() <= LevelError {
		log.Printf("[ERROR] "+format, v...)
	}
}

// Fatalf formats and outputs a FATAL level log message, then terminates
// the process via log.Fatalf.
func Fatalf(format string, v ...interface{}) {
	log.Fatalf("[FATAL] "+format, v...)
}
