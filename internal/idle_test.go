package internal

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeIdleSource struct {
	idle  []time.Duration
	err   error
	calls int
}

func (s *fakeIdleSource) IdleTime() (time.Duration, error) {
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	return scriptedIdle(s.idle, s.calls-1), nil
}

func scriptedIdle(idle []time.Duration, call int) time.Duration {
	if call < len(idle) {
		return idle[call]
	}
	return idle[len(idle)-1]
}

func testIdleWatcher(source idleSource) *IdleWatcher {
	w := NewIdleWatcher(source, Configuration{IdleTimeout: 60})
	w.interval = time.Millisecond
	return w
}

func TestIdleWatcherFiresAtTimeout(t *testing.T) {
	source := &fakeIdleSource{idle: []time.Duration{time.Second, 30 * time.Second, 61 * time.Second}}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := testIdleWatcher(source).Wait(ctx); err != nil {
		t.Fatalf("expected timeout reached, got %v", err)
	}
	if source.calls != 3 {
		t.Errorf("expected 3 polls, got %d", source.calls)
	}
}

func TestIdleWatcherCancelled(t *testing.T) {
	source := &fakeIdleSource{err: errors.New("no extension")}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := testIdleWatcher(source).Wait(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context error, got %v", err)
	}
	if source.calls == 0 {
		t.Error("expected polling to continue through query errors")
	}
}

func TestNewIdleWatcherTimeout(t *testing.T) {
	w := NewIdleWatcher(&fakeIdleSource{}, Configuration{IdleTimeout: 300})
	if w.timeout != 5*time.Minute || w.interval != time.Second {
		t.Errorf("unexpected timeout %v interval %v", w.timeout, w.interval)
	}
}
