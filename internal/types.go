package internal

import (
	"fmt"
	"strings"
)

// Monitor represents a physical output's rectangle in screen coordinates.
// A zero Width marks an inactive or disconnected output.
type Monitor struct {
	X      int
	Y      int
	Width  int
	Height int
}

// LockSurface is the per-screen lock: a full-screen override-redirect window
// with an invisible cursor, its rendering context and the monitor layout used
// for drawing feedback.
type LockSurface struct {
	Screen   int
	Root     uint32
	Window   uint32
	Width    uint16
	Height   uint16
	Monitors []Monitor
	Canvas   Canvas
}

// GrabState records which input devices were grabbed during acquisition
type GrabState struct {
	Pointer  bool
	Keyboard bool
}

// Complete reports whether both pointer and keyboard are held
func (g GrabState) Complete() bool {
	return g.Pointer && g.Keyboard
}

// Decision is the outcome of one verification attempt
type Decision int

const (
	// Match means the candidate hashes to the reference
	Match Decision = iota
	// Mismatch means the candidate is wrong
	Mismatch
	// VerifierError means the hashing primitive could not decide
	VerifierError
)

func (d Decision) String() string {
	switch d {
	case Match:
		return "match"
	case Mismatch:
		return "mismatch"
	case VerifierError:
		return "verifier error"
	}
	return fmt.Sprintf("Decision(%d)", int(d))
}

// State is the lock state machine's current state
type State int

const (
	StateIdle State = iota
	StateAccumulating
	StateVerifying
	StateUnlocked
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAccumulating:
		return "accumulating"
	case StateVerifying:
		return "verifying"
	case StateUnlocked:
		return "unlocked"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ColorRole selects one of the configured colors
type ColorRole int

const (
	ColorIdle ColorRole = iota
	ColorInput
	ColorFailed
	ColorForeground
)

// Event is a display event decoded once at the loop boundary.
// It is one of RedrawEvent, KeyEvent, TopologyEvent or OtherEvent.
type Event interface {
	isEvent()
}

// RedrawEvent asks for every surface to be drawn again
type RedrawEvent struct{}

// KeyEvent is a key press translated through the current keymap.
// Text is the UTF-8 text the key produces, possibly empty.
type KeyEvent struct {
	Keysym uint32
	Text   []byte
}

// TopologyEvent reports a screen size or rotation change for one surface
type TopologyEvent struct {
	Window  uint32
	Width   uint16
	Height  uint16
	Rotated bool
}

// OtherEvent is anything the lock does not interpret itself
type OtherEvent struct {
	Kind string
}

func (RedrawEvent) isEvent()   {}
func (KeyEvent) isEvent()      {}
func (TopologyEvent) isEvent() {}
func (OtherEvent) isEvent()    {}

// Display is the display-server side of the lock loop
type Display interface {
	// NextEvent blocks until the next event arrives
	NextEvent() (Event, error)

	// Raise maps the surface's window and puts it on top of the stack
	Raise(s *LockSurface)

	// Resize changes the size of the surface's window
	Resize(s *LockSurface, width, height uint16)

	// QueryMonitors returns the current monitor layout of the surface's screen
	QueryMonitors(s *LockSurface) ([]Monitor, error)

	// SetBackground changes the window background and clears the window
	SetBackground(s *LockSurface, role ColorRole)

	// Clear clears the whole window to its background
	Clear(s *LockSurface)

	// Bell sounds the audible failure signal
	Bell(percent int)

	// Flush pushes pending requests to the server
	Flush()
}

// Verifier decides whether a candidate password is the session owner's
type Verifier interface {
	Verify(candidate []byte) (Decision, error)
}

// AcquisitionError reports a screen that could not be locked. Grabbing is
// set when the failure was the input grab itself; Pointer and Keyboard then
// tell which grabs were granted.
type AcquisitionError struct {
	Screen   int
	Grabbing bool
	Pointer  bool
	Keyboard bool
	Err      error
}

func (e *AcquisitionError) Error() string {
	var missing []string
	if e.Grabbing && !e.Pointer {
		missing = append(missing, "mouse pointer")
	}
	if e.Grabbing && !e.Keyboard {
		missing = append(missing, "keyboard")
	}
	msg := fmt.Sprintf("unable to lock screen %d", e.Screen)
	if len(missing) > 0 {
		msg = fmt.Sprintf("unable to grab %s for screen %d", strings.Join(missing, " and "), e.Screen)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}

// FatalError is a startup failure that must abort before anything is locked
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

func fatalf(op string, err error) error {
	return &FatalError{Op: op, Err: err}
}
