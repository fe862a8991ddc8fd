package internal

import (
	"fmt"
	"io"
	"log"
	"os"
)

// LogLevel orders log messages by severity
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarning
	LevelError
	// LevelNone silences everything but Fatal
	LevelNone
)

var levelNames = [...]string{
	LevelDebug:   "DEBUG",
	LevelInfo:    "INFO",
	LevelWarning: "WARN",
	LevelError:   "ERROR",
	LevelNone:    "NONE",
}

func (l LogLevel) String() string {
	if l < LevelDebug || l > LevelNone {
		return fmt.Sprintf("LogLevel(%d)", int(l))
	}
	return levelNames[l]
}

var (
	// Messages below currentLevel are dropped
	currentLevel = LevelError

	logger = log.New(os.Stderr, "", log.LstdFlags)
)

// InitLogger sets the lowest level that is logged. With callers set, as
// --log does, each line also carries the file and line that logged it.
func InitLogger(level LogLevel, callers bool) {
	currentLevel = level

	flags := log.LstdFlags
	if callers {
		flags |= log.Lshortfile
	}
	logger.SetFlags(flags)
}

// SetLogOutput sends log lines to w instead of stderr
func SetLogOutput(w io.Writer) {
	logger.SetOutput(w)
}

// logf writes one line at level. The caller of Debug, Info, Warn or Error is
// three frames up.
func logf(level LogLevel, format string, args ...interface{}) {
	if level < currentLevel {
		return
	}
	logger.Output(3, level.String()+": "+message(format, args))
}

// message leaves format untouched when there is nothing to substitute, so a
// stray % in a plain message survives
func message(format string, args []interface{}) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

func Debug(format string, args ...interface{}) {
	logf(LevelDebug, format, args...)
}

func Info(format string, args ...interface{}) {
	logf(LevelInfo, format, args...)
}

func Warn(format string, args ...interface{}) {
	logf(LevelWarning, format, args...)
}

func Error(format string, args ...interface{}) {
	logf(LevelError, format, args...)
}

// Fatal logs regardless of level and exits. Only main calls it; everything
// below returns errors.
func Fatal(format string, args ...interface{}) {
	logger.Output(2, "FATAL: "+message(format, args))
	os.Exit(1)
}
