package internal

import (
	"context"
	"time"
)

// idleSource reports the time since the last user input
type idleSource interface {
	IdleTime() (time.Duration, error)
}

// IdleWatcher waits for the user to be inactive for a given time
type IdleWatcher struct {
	source   idleSource
	timeout  time.Duration
	interval time.Duration
}

// NewIdleWatcher creates a watcher polling source once a second
func NewIdleWatcher(source idleSource, config Configuration) *IdleWatcher {
	return &IdleWatcher{
		source:   source,
		timeout:  time.Duration(config.IdleTimeout) * time.Second,
		interval: time.Second,
	}
}

// Wait blocks until the idle time reaches the timeout or ctx is done.
// Query errors are logged and polling continues.
func (w *IdleWatcher) Wait(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	Info("Idle monitor started (timeout: %v)", w.timeout)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			idle, err := w.source.IdleTime()
			if err != nil {
				Warn("Error querying idle time: %v", err)
				continue
			}
			if idle >= w.timeout {
				Info("Idle timeout reached (%v), locking screen", idle.Round(time.Second))
				return nil
			}
		}
	}
}
