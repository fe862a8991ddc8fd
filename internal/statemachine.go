package internal

import (
	"errors"
	"fmt"
	"time"
)

// ErrDisplayClosed is returned by Run when the display connection goes away
var ErrDisplayClosed = errors.New("display connection closed")

// LockStateMachine owns every locked surface and the password buffer and
// runs the event loop until the correct password is entered
type LockStateMachine struct {
	config   Configuration
	display  Display
	verifier Verifier
	renderer Renderer
	topology *TopologyWatcher
	lockout  *LockoutManager
	surfaces []*LockSurface
	password *PasswordBuffer
	state    State
	failed   bool      // a failure cue is showing
	color    ColorRole // background currently set on the surfaces
}

// NewLockStateMachine creates the state machine for a complete set of
// surfaces, one per screen
func NewLockStateMachine(config Configuration, display Display, verifier Verifier, surfaces []*LockSurface) *LockStateMachine {
	return &LockStateMachine{
		config:   config,
		display:  display,
		verifier: verifier,
		renderer: NewRenderer(config),
		topology: NewTopologyWatcher(display),
		lockout:  NewLockoutManager(config),
		surfaces: surfaces,
		password: NewPasswordBuffer(),
		state:    StateIdle,
		color:    ColorIdle,
	}
}

// State returns the current state
func (m *LockStateMachine) State() State {
	return m.state
}

// Run handles events one at a time until the session is unlocked. There is
// no other way out except losing the display connection.
func (m *LockStateMachine) Run() error {
	defer m.password.Close()

	Info("Entering main event loop")
	for m.state != StateUnlocked {
		ev, err := m.display.NextEvent()
		if err != nil {
			return fmt.Errorf("waiting for event: %w", err)
		}
		m.Handle(ev)
		m.display.Flush()
	}
	Info("Lock deactivated")
	return nil
}

// Handle processes one event to completion
func (m *LockStateMachine) Handle(ev Event) {
	switch e := ev.(type) {
	case RedrawEvent:
		m.renderAll()
		m.raiseAll()

	case KeyEvent:
		m.handleKey(e)

	case TopologyEvent:
		if s := m.topology.Apply(m.surfaces, e); s != nil {
			m.renderer.Render(s.Canvas, s.Monitors, m.password.Len())
		}

	default:
		m.raiseAll()
	}
}

func (m *LockStateMachine) handleKey(e KeyEvent) {
	sym, text := e.Keysym, e.Text
	defer clear(e.Text)

	if isKeypadKey(sym) {
		switch {
		case sym == keysymKPEnter:
			sym = keysymReturn
		case sym >= keysymKP0 && sym <= keysymKP9:
			sym = sym - keysymKP0 + keysym0
			text = []byte{byte(sym)}
		}
	}

	if isFunctionKey(sym) || isKeypadKey(sym) || isMiscFunctionKey(sym) ||
		isPFKey(sym) || isPrivateKeypadKey(sym) {
		return
	}

	switch sym {
	case keysymReturn:
		m.submit()
	case keysymEscape:
		m.cancel()
	case keysymBackSpace:
		m.backspace()
	default:
		m.appendText(text)
	}

	if m.state != StateUnlocked {
		m.repaint()
	}
}

func (m *LockStateMachine) submit() {
	if m.lockout.IsLockedOut() {
		Info("Authentication locked out for another %v", m.lockout.GetRemainingTime().Round(time.Second))
		m.password.Wipe()
		m.fail()
		return
	}

	m.state = StateVerifying
	Debug("Attempting authentication with password of length: %d", m.password.Len())
	decision, err := m.verifier.Verify(m.password.Candidate())
	m.password.Wipe()

	switch decision {
	case Match:
		Info("Authentication successful, unlocking screen")
		m.lockout.ResetLockout()
		m.state = StateUnlocked
		return
	case VerifierError:
		Error("Password verification error: %v", err)
	default:
		Info("Authentication failed")
	}

	if started, d := m.lockout.HandleFailedAttempt(); started {
		Warn("Too many failed attempts, refusing submits for %v", d)
	}
	m.fail()
}

// fail shows the failure cue for a rejected submit
func (m *LockStateMachine) fail() {
	m.display.Bell(m.config.BellPercent)
	m.failed = true
	m.state = StateIdle
}

func (m *LockStateMachine) cancel() {
	m.password.Wipe()
	m.state = StateIdle
	if m.config.FailOnClear {
		m.failed = true
	}
}

func (m *LockStateMachine) backspace() {
	m.password.Backspace()
	if m.password.Len() == 0 {
		m.state = StateIdle
	}
}

func (m *LockStateMachine) appendText(text []byte) {
	if len(text) == 0 || isControlByte(text[0]) {
		return
	}
	if m.password.Append(text) {
		m.state = StateAccumulating
		m.failed = false
	}
}

func (m *LockStateMachine) colorRole() ColorRole {
	switch {
	case m.password.Len() > 0:
		return ColorInput
	case m.failed:
		return ColorFailed
	}
	return ColorIdle
}

// repaint switches the background if the color role changed, then redraws
func (m *LockStateMachine) repaint() {
	if role := m.colorRole(); role != m.color {
		m.color = role
		for _, s := range m.surfaces {
			m.display.SetBackground(s, role)
		}
	}
	m.renderAll()
}

func (m *LockStateMachine) renderAll() {
	for _, s := range m.surfaces {
		m.renderer.Render(s.Canvas, s.Monitors, m.password.Len())
	}
}

func (m *LockStateMachine) raiseAll() {
	for _, s := range m.surfaces {
		m.display.Raise(s)
	}
}
