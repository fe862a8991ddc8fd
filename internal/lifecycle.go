package internal

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
)

// Options are the settings that come from the command line only
type Options struct {
	// Wait for inactivity before locking, and again after every unlock
	Idle bool

	// Command started once every screen is locked
	LockedCommand []string
}

// DetectDisplayServer detects whether X11 or Wayland is being used
func DetectDisplayServer() string {
	if strings.EqualFold(os.Getenv("XDG_SESSION_TYPE"), "wayland") {
		return "wayland"
	}
	if os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") != "" {
		return "wayland"
	}

	// Default to X11 if can't determine
	return "x11"
}

// Run locks the display until the user authenticates. In idle mode it
// keeps locking whenever the user goes idle, until interrupted.
func Run(config Configuration, opts Options) error {
	helper := NewLockHelper(config)
	defer helper.Close()

	if err := helper.EnsureSingleInstance(); err != nil {
		return fatalf("single instance", err)
	}

	// Resolved while the user and group databases are still readable
	target, err := resolveDropTarget(config.User, config.Group)
	if err != nil {
		return err
	}

	if err := dontKillMe(oomScoreAdjPath, os.Geteuid() == 0); err != nil {
		return err
	}

	verifier, err := NewVerifier(config)
	if err != nil {
		return err
	}

	if !opts.Idle {
		return lockOnce(config, helper, verifier, target, opts.LockedCommand)
	}

	for {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		err := waitForLockTrigger(ctx, config)
		stop()

		if errors.Is(err, context.Canceled) {
			Info("Idle monitor stopped")
			return nil
		}
		if err != nil {
			return err
		}

		if err := lockOnce(config, helper, verifier, target, opts.LockedCommand); err != nil {
			return err
		}
	}
}

// waitForLockTrigger returns once the user has been idle for the configured
// timeout or logind asks the session to lock
func waitForLockTrigger(ctx context.Context, config Configuration) error {
	display, err := OpenX11Display(config)
	if err != nil {
		return err
	}
	defer display.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var requests <-chan struct{}
	if hint := openSessionHint(config); hint != nil {
		defer hint.Close()
		if requests, err = hint.LockRequests(); err != nil {
			Warn("Not listening for logind lock requests: %v", err)
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- NewIdleWatcher(display, config).Wait(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-requests:
		Info("Lock requested by logind")
		return nil
	}
}

// lockOnce runs one complete lock: acquire every screen, wait for the
// password, and undo everything around the lock afterwards
func lockOnce(config Configuration, helper *LockHelper, verifier Verifier, target dropTarget, lockedCmd []string) error {
	display, err := OpenX11Display(config)
	if err != nil {
		return err
	}
	defer display.Close()

	if err := dropPrivileges(target); err != nil {
		return err
	}

	if err := helper.RunPreLockCommand(); err != nil {
		Warn("Pre-lock command failed: %v", err)
	}
	if err := helper.PauseMediaIfEnabled(); err != nil {
		Warn("Failed to pause media: %v", err)
	}

	surfaces, err := AcquireAll(display)
	if err != nil {
		return err
	}

	if err := helper.StartLockedCommand(lockedCmd); err != nil {
		Warn("Failed to start while-locked command: %v", err)
	}

	if config.Detach {
		if err := detach(); err != nil {
			Warn("Failed to detach: %v", err)
		}
	}

	hint := openSessionHint(config)
	if hint != nil {
		defer hint.Close()
		if err := hint.SetLocked(true); err != nil {
			Warn("%v", err)
		}
	}

	if err := display.ApplyPowerSaving(); err != nil {
		Warn("Failed to apply DPMS timeouts: %v", err)
	}

	machine := NewLockStateMachine(config, display, verifier, surfaces)
	runErr := machine.Run()

	display.RestorePowerSaving()
	if hint != nil {
		if err := hint.SetLocked(false); err != nil {
			Warn("%v", err)
		}
	}
	if err := helper.ResumeMediaIfEnabled(); err != nil {
		Warn("Failed to resume media: %v", err)
	}

	if runErr != nil {
		return runErr
	}

	if err := helper.RunPostUnlockCommand(); err != nil {
		Warn("Post-unlock command failed: %v", err)
	}
	return nil
}

// openSessionHint connects to logind if the locked hint is enabled. It
// returns nil when that is disabled or not possible.
func openSessionHint(config Configuration) *SessionHint {
	if !config.LockedHint {
		return nil
	}
	hint, err := NewSessionHint(os.Getenv("XDG_SESSION_ID"))
	if err != nil {
		Debug("logind session unavailable: %v", err)
		return nil
	}
	return hint
}
