package internal

import (
	"time"
)

const maxLockout = 10 * time.Minute

// LockoutManager refuses password submits for a while after too many
// consecutive failures. A zero maxAttempts disables it.
type LockoutManager struct {
	maxAttempts    int
	baseDuration   time.Duration
	failedAttempts int       // Consecutive failures since the last lockout
	rounds         int       // Lockouts imposed so far
	lockoutUntil   time.Time // Time until which submits are refused
	now            func() time.Time
}

// NewLockoutManager creates a new lockout manager with the given configuration
func NewLockoutManager(config Configuration) *LockoutManager {
	return &LockoutManager{
		maxAttempts:  config.MaxAttempts,
		baseDuration: time.Duration(config.LockoutSeconds) * time.Second,
		now:          time.Now,
	}
}

// HandleFailedAttempt records a failed verification and reports whether it
// started a lockout, and for how long
func (lm *LockoutManager) HandleFailedAttempt() (bool, time.Duration) {
	if lm.maxAttempts == 0 {
		return false, 0
	}

	lm.failedAttempts++
	Info("Authentication failed (%d/%d attempts)", lm.failedAttempts, lm.maxAttempts)

	if lm.failedAttempts < lm.maxAttempts {
		return false, 0
	}

	// Each further round adds the base duration, capped at 10 minutes
	lm.rounds++
	duration := lm.baseDuration * time.Duration(lm.rounds)
	if duration > maxLockout {
		duration = maxLockout
	}

	lm.lockoutUntil = lm.now().Add(duration)
	lm.failedAttempts = 0

	return true, duration
}

// IsLockedOut checks if submits are currently refused
func (lm *LockoutManager) IsLockedOut() bool {
	return lm.now().Before(lm.lockoutUntil)
}

// GetRemainingTime returns how much time is left in the lockout
func (lm *LockoutManager) GetRemainingTime() time.Duration {
	remaining := lm.lockoutUntil.Sub(lm.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ResetLockout resets the lockout state after successful authentication
func (lm *LockoutManager) ResetLockout() {
	lm.failedAttempts = 0
	lm.rounds = 0
	lm.lockoutUntil = time.Time{}
}
