package internal

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"
)

// captureLog sends log output to a buffer for the rest of the test
func captureLog(t *testing.T, level LogLevel, callers bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	saved := currentLevel
	InitLogger(level, callers)
	SetLogOutput(&buf)
	t.Cleanup(func() {
		currentLevel = saved
		logger.SetFlags(log.LstdFlags)
		SetLogOutput(os.Stderr)
	})
	return &buf
}

func TestLogLevelFiltering(t *testing.T) {
	buf := captureLog(t, LevelWarning, false)

	Debug("debug %d", 1)
	Info("info %d", 2)
	Warn("warn %d", 3)
	Error("error %d", 4)

	out := buf.String()
	for _, dropped := range []string{"debug 1", "info 2"} {
		if strings.Contains(out, dropped) {
			t.Errorf("expected %q to be filtered, got %q", dropped, out)
		}
	}
	for _, kept := range []string{"WARN: warn 3", "ERROR: error 4"} {
		if !strings.Contains(out, kept) {
			t.Errorf("expected %q in output, got %q", kept, out)
		}
	}
}

func TestLogCallerInfo(t *testing.T) {
	buf := captureLog(t, LevelDebug, true)
	Debug("where am I")
	if out := buf.String(); !strings.Contains(out, "logger_test.go:") || !strings.Contains(out, "DEBUG: where am I") {
		t.Errorf("expected caller file and message, got %q", out)
	}

	buf.Reset()
	InitLogger(LevelDebug, false)
	Info("plain")
	if out := buf.String(); strings.Contains(out, ".go:") {
		t.Errorf("expected no caller info, got %q", out)
	}
}

func TestMessage(t *testing.T) {
	if got := message("100% plain", nil); got != "100% plain" {
		t.Errorf("expected message untouched, got %q", got)
	}
	if got := message("%d dots", []interface{}{3}); got != "3 dots" {
		t.Errorf("expected formatted message, got %q", got)
	}
}

func TestLogLevelString(t *testing.T) {
	if LevelWarning.String() != "WARN" || LogLevel(42).String() != "LogLevel(42)" {
		t.Errorf("unexpected level names %s %s", LevelWarning, LogLevel(42))
	}
}
