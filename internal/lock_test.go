package internal

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestEnsureSingleInstance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dotlock.lock")

	first := &LockHelper{}
	if err := first.ensureSingleInstance(path); err != nil {
		t.Fatalf("expected first instance to get the lock, got %v", err)
	}

	second := &LockHelper{}
	if err := second.ensureSingleInstance(path); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}

	first.Close()
	if err := second.ensureSingleInstance(path); err != nil {
		t.Fatalf("expected lock free after close, got %v", err)
	}
	second.Close()
}

func TestLockFilePath(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	if got := lockFilePath(); got != "/run/user/1000/dotlock.lock" {
		t.Errorf("unexpected lock file %q", got)
	}

	t.Setenv("XDG_RUNTIME_DIR", "")
	if got := lockFilePath(); got != filepath.Join(os.TempDir(), "dotlock.lock") {
		t.Errorf("unexpected fallback lock file %q", got)
	}
}

func TestLockedCommand(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		configured string
		want       []string
	}{
		{name: "nothing to run", want: nil},
		{name: "command line wins", args: []string{"systemctl", "suspend"}, configured: "echo hi", want: []string{"systemctl", "suspend"}},
		{name: "configured runs through the shell", configured: " echo hi ", want: []string{"sh", "-c", "echo hi"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := lockedCommand(tt.args, tt.configured)
			if tt.want == nil {
				if cmd != nil {
					t.Errorf("expected no command, got %v", cmd.Args)
				}
				return
			}
			if cmd == nil || !reflect.DeepEqual(cmd.Args, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, cmd)
			}
		})
	}
}

func TestRunCommands(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "ran")

	h := &LockHelper{config: Configuration{
		PreLockCommand:    "touch " + marker,
		PostUnlockCommand: "exit 3",
	}}

	if err := h.RunPreLockCommand(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Errorf("expected pre-lock command to run: %v", err)
	}
	if err := h.RunPostUnlockCommand(); err == nil {
		t.Error("expected failing post-unlock command to report an error")
	}

	empty := &LockHelper{}
	if err := empty.RunPreLockCommand(); err != nil {
		t.Errorf("expected no-op without a command, got %v", err)
	}
}

func TestMediaDisabled(t *testing.T) {
	h := &LockHelper{}
	if err := h.PauseMediaIfEnabled(); err != nil {
		t.Errorf("expected no-op, got %v", err)
	}
	if err := h.ResumeMediaIfEnabled(); err != nil {
		t.Errorf("expected no-op, got %v", err)
	}

	h.config.PauseMedia = true
	if err := h.PauseMediaIfEnabled(); err == nil {
		t.Error("expected error without a media controller")
	}
}
