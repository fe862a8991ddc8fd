package internal

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// ErrAlreadyRunning is returned when another instance holds the lock file
var ErrAlreadyRunning = errors.New("another instance of dotlock is already running")

// LockHelper handles everything around a lock that is not the lock itself:
// the single-instance file, user commands and media players
type LockHelper struct {
	config    Configuration
	mediaCtrl *MediaController
	lockFile  *os.File
}

// NewLockHelper creates a new helper instance with the given configuration
func NewLockHelper(config Configuration) *LockHelper {
	var mediaCtrl *MediaController
	if config.PauseMedia || config.ResumeMedia {
		Debug("Media control is enabled, initializing media controller")
		var err error
		mediaCtrl, err = NewMediaController()
		if err != nil {
			// Continue without media control
			Warn("Failed to initialize media controller: %v", err)
		}
	}

	return &LockHelper{
		config:    config,
		mediaCtrl: mediaCtrl,
	}
}

// lockFilePath returns the per-user lock file location
func lockFilePath() string {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "dotlock.lock")
}

// EnsureSingleInstance takes an exclusive lock on the lock file and keeps
// it until Close
func (h *LockHelper) EnsureSingleInstance() error {
	return h.ensureSingleInstance(lockFilePath())
}

func (h *LockHelper) ensureSingleInstance(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		file.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return ErrAlreadyRunning
		}
		return fmt.Errorf("failed to lock %s: %w", path, err)
	}

	h.lockFile = file
	Debug("Holding lock file %s", path)
	return nil
}

// RunPreLockCommand runs the configured pre-lock command (if any)
func (h *LockHelper) RunPreLockCommand() error {
	if h.config.PreLockCommand == "" {
		return nil
	}
	Debug("Running pre-lock command: %s", h.config.PreLockCommand)
	return runShellCommand(h.config.PreLockCommand)
}

// RunPostUnlockCommand runs the configured post-unlock command (if any)
func (h *LockHelper) RunPostUnlockCommand() error {
	if h.config.PostUnlockCommand == "" {
		return nil
	}
	Debug("Running post-unlock command: %s", h.config.PostUnlockCommand)
	return runShellCommand(h.config.PostUnlockCommand)
}

// StartLockedCommand starts the while-locked command in its own session
// without waiting for it. args take precedence over locked_command.
func (h *LockHelper) StartLockedCommand(args []string) error {
	cmd := lockedCommand(args, h.config.LockedCommand)
	if cmd == nil {
		return nil
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("execvp %s: %w", cmd.Path, err)
	}
	Debug("Started while-locked command %s (pid %d)", cmd.Path, cmd.Process.Pid)

	go func() {
		if err := cmd.Wait(); err != nil {
			Warn("While-locked command exited: %v", err)
		}
	}()
	return nil
}

func lockedCommand(args []string, configured string) *exec.Cmd {
	switch {
	case len(args) > 0:
		return exec.Command(args[0], args[1:]...)
	case strings.TrimSpace(configured) != "":
		return exec.Command("sh", "-c", strings.TrimSpace(configured))
	}
	return nil
}

// runShellCommand executes a shell command string
func runShellCommand(cmd string) error {
	output, err := exec.Command("sh", "-c", strings.TrimSpace(cmd)).CombinedOutput()
	if err != nil {
		return fmt.Errorf("command failed: %w - %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// PauseMediaIfEnabled pauses all media if enabled in config
func (h *LockHelper) PauseMediaIfEnabled() error {
	if !h.config.PauseMedia {
		return nil
	}
	if h.mediaCtrl == nil {
		return errors.New("pause_media is enabled but media controller is not initialized")
	}

	Debug("Pausing all media players")
	return h.mediaCtrl.PauseAllMedia()
}

// ResumeMediaIfEnabled resumes the paused players if enabled in config
func (h *LockHelper) ResumeMediaIfEnabled() error {
	if !h.config.ResumeMedia {
		return nil
	}
	if h.mediaCtrl == nil {
		return errors.New("resume_media is enabled but media controller is not initialized")
	}

	Debug("Resuming media players")
	return h.mediaCtrl.ResumeMedia()
}

// Close releases the lock file and the media controller
func (h *LockHelper) Close() {
	if h.mediaCtrl != nil {
		h.mediaCtrl.Close()
	}
	if h.lockFile != nil {
		h.lockFile.Close()
		h.lockFile = nil
	}
}
