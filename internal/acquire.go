package internal

import (
	"errors"
	"time"
)

// GrabStatus is the result of one grab request
type GrabStatus int

const (
	GrabSuccess GrabStatus = iota
	// GrabAlreadyGrabbed means another client holds the device; worth retrying
	GrabAlreadyGrabbed
	// GrabFailed covers every other status and request errors
	GrabFailed
)

// inputGrabber requests exclusive input for one screen
type inputGrabber interface {
	GrabPointer() (GrabStatus, error)
	GrabKeyboard() (GrabStatus, error)
}

// RetryPolicy bounds how long acquisition waits for contended grabs
type RetryPolicy struct {
	Attempts int
	Interval time.Duration
	Sleep    func(time.Duration)
}

// DefaultRetryPolicy tries for about 600ms
var DefaultRetryPolicy = RetryPolicy{
	Attempts: 6,
	Interval: 100 * time.Millisecond,
	Sleep:    time.Sleep,
}

// grabInput grabs pointer and keyboard, retrying while either is only
// temporarily held by someone else. The returned state says which were
// granted; both must be for the screen to count as locked.
func grabInput(g inputGrabber, policy RetryPolicy) (GrabState, error) {
	var state GrabState
	var lastErr error

	for attempt := 0; attempt < policy.Attempts; attempt++ {
		pointer, keyboard := GrabSuccess, GrabSuccess

		if !state.Pointer {
			status, err := g.GrabPointer()
			if err != nil {
				status, lastErr = GrabFailed, err
			}
			pointer = status
			state.Pointer = status == GrabSuccess
		}
		if !state.Keyboard {
			status, err := g.GrabKeyboard()
			if err != nil {
				status, lastErr = GrabFailed, err
			}
			keyboard = status
			state.Keyboard = status == GrabSuccess
		}

		if state.Complete() {
			return state, nil
		}

		// Retry on AlreadyGrabbed but fail on other errors
		if pointer == GrabFailed || keyboard == GrabFailed {
			break
		}

		if attempt < policy.Attempts-1 {
			Debug("Input already grabbed (pointer: %v, keyboard: %v), retrying", state.Pointer, state.Keyboard)
			policy.Sleep(policy.Interval)
		}
	}

	return state, lastErr
}

// screenLocker acquires and releases per-screen locks
type screenLocker interface {
	ScreenCount() int
	Acquire(screen int) (*LockSurface, error)
	Release(s *LockSurface)
}

// AcquireAll locks every screen in order. If any screen fails, every surface
// acquired so far is released and the error is returned: a subset of locked
// screens is never handed out.
func AcquireAll(l screenLocker) ([]*LockSurface, error) {
	n := l.ScreenCount()
	if n == 0 {
		return nil, errors.New("display has no screens")
	}

	surfaces := make([]*LockSurface, 0, n)
	for screen := 0; screen < n; screen++ {
		s, err := l.Acquire(screen)
		if err != nil {
			Error("Failed to lock screen %d: %v", screen, err)
			for _, acquired := range surfaces {
				l.Release(acquired)
			}
			return nil, err
		}
		Info("Screen %d locked with %d monitors", screen, len(s.Monitors))
		surfaces = append(surfaces, s)
	}

	return surfaces, nil
}
