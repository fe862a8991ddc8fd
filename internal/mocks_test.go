package internal

import (
	"errors"
	"fmt"
)

// recordingCanvas records every drawing call as a readable op
type recordingCanvas struct {
	ops     []string
	rects   []Rect
	clears  []Rect
	circles []Circle
	filled  []Circle
	lines   []Segment
}

func (c *recordingCanvas) SetLineWidth(width int) {
	c.ops = append(c.ops, fmt.Sprintf("width %d", width))
}

func (c *recordingCanvas) DrawRectangle(r Rect) {
	c.rects = append(c.rects, r)
	c.ops = append(c.ops, fmt.Sprintf("rect %v", r))
}

func (c *recordingCanvas) ClearArea(r Rect) {
	c.clears = append(c.clears, r)
	c.ops = append(c.ops, fmt.Sprintf("clear %v", r))
}

func (c *recordingCanvas) DrawSegments(segments []Segment) {
	c.lines = append(c.lines, segments...)
	c.ops = append(c.ops, fmt.Sprintf("segments %v", segments))
}

func (c *recordingCanvas) DrawCircle(circle Circle) {
	c.circles = append(c.circles, circle)
	c.ops = append(c.ops, fmt.Sprintf("circle %v", circle))
}

func (c *recordingCanvas) FillCircles(circles []Circle) {
	c.filled = append(c.filled, circles...)
	c.ops = append(c.ops, fmt.Sprintf("fill %d", len(circles)))
}

func (c *recordingCanvas) reset() {
	*c = recordingCanvas{}
}

// fakeDisplay replays a fixed list of events and records requests
type fakeDisplay struct {
	events      []Event
	raised      []uint32
	resized     []string
	backgrounds []ColorRole
	cleared     []uint32
	bells       []int
	flushes     int
	monitors    []Monitor
	monitorsErr error
}

func (d *fakeDisplay) NextEvent() (Event, error) {
	if len(d.events) == 0 {
		return nil, ErrDisplayClosed
	}
	ev := d.events[0]
	d.events = d.events[1:]
	return ev, nil
}

func (d *fakeDisplay) Raise(s *LockSurface) {
	d.raised = append(d.raised, s.Window)
}

func (d *fakeDisplay) Resize(s *LockSurface, width, height uint16) {
	d.resized = append(d.resized, fmt.Sprintf("%d:%dx%d", s.Window, width, height))
}

func (d *fakeDisplay) QueryMonitors(s *LockSurface) ([]Monitor, error) {
	return d.monitors, d.monitorsErr
}

func (d *fakeDisplay) SetBackground(s *LockSurface, role ColorRole) {
	d.backgrounds = append(d.backgrounds, role)
}

func (d *fakeDisplay) Clear(s *LockSurface) {
	d.cleared = append(d.cleared, s.Window)
}

func (d *fakeDisplay) Bell(percent int) {
	d.bells = append(d.bells, percent)
}

func (d *fakeDisplay) Flush() {
	d.flushes++
}

// fakeVerifier accepts one password and records every candidate
type fakeVerifier struct {
	password   string
	err        error
	candidates []string
}

func (v *fakeVerifier) Verify(candidate []byte) (Decision, error) {
	v.candidates = append(v.candidates, string(candidate))
	if v.err != nil {
		return VerifierError, v.err
	}
	if string(candidate) == v.password {
		return Match, nil
	}
	return Mismatch, nil
}

var errCryptBroken = errors.New("crypt failed")

// fakeGrabber returns scripted statuses; the last one repeats
type fakeGrabber struct {
	pointer      []GrabStatus
	keyboard     []GrabStatus
	keyboardErr  error
	pointerCalls int
	keyCalls     int
}

func scripted(statuses []GrabStatus, call int) GrabStatus {
	if call < len(statuses) {
		return statuses[call]
	}
	return statuses[len(statuses)-1]
}

func (g *fakeGrabber) GrabPointer() (GrabStatus, error) {
	status := scripted(g.pointer, g.pointerCalls)
	g.pointerCalls++
	return status, nil
}

func (g *fakeGrabber) GrabKeyboard() (GrabStatus, error) {
	g.keyCalls++
	if g.keyboardErr != nil {
		return GrabFailed, g.keyboardErr
	}
	return scripted(g.keyboard, g.keyCalls-1), nil
}

// fakeLocker hands out surfaces and fails on chosen screens
type fakeLocker struct {
	screens  int
	failOn   map[int]error
	acquired []int
	released []int
}

func (l *fakeLocker) ScreenCount() int {
	return l.screens
}

func (l *fakeLocker) Acquire(screen int) (*LockSurface, error) {
	if err, ok := l.failOn[screen]; ok {
		return nil, err
	}
	l.acquired = append(l.acquired, screen)
	return &LockSurface{
		Screen:   screen,
		Window:   uint32(100 + screen),
		Width:    1920,
		Height:   1080,
		Monitors: []Monitor{{Width: 1920, Height: 1080}},
		Canvas:   &recordingCanvas{},
	}, nil
}

func (l *fakeLocker) Release(s *LockSurface) {
	l.released = append(l.released, s.Screen)
}
