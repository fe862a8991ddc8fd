package internal

import (
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	login1Dest       = "org.freedesktop.login1"
	login1Path       = dbus.ObjectPath("/org/freedesktop/login1")
	login1Session    = "org.freedesktop.login1.Session"
	login1GetSession = "org.freedesktop.login1.Manager.GetSession"
)

// SessionHint tells logind whether the session is locked, and relays its
// requests to lock the session.
//
// The session is looked up by sessionId, usually XDG_SESSION_ID.
type SessionHint struct {
	conn    *dbus.Conn
	session dbus.BusObject
	signals chan *dbus.Signal
}

// NewSessionHint connects to the system bus and resolves the session object
func NewSessionHint(sessionId string) (*SessionHint, error) {
	if sessionId == "" {
		return nil, errors.New("sessionId is empty")
	}

	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %w", err)
	}

	var path dbus.ObjectPath
	err = conn.Object(login1Dest, login1Path).
		Call(login1GetSession, 0, sessionId).
		Store(&path)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to find session %s: %w", sessionId, err)
	}
	Debug("logind session %s is %s", sessionId, path)

	return &SessionHint{
		conn:    conn,
		session: conn.Object(login1Dest, path),
	}, nil
}

// SetLocked sets the session's LockedHint
func (h *SessionHint) SetLocked(locked bool) error {
	err := h.session.Call(login1Session+".SetLockedHint", 0, locked).Err
	if err != nil {
		return fmt.Errorf("could not set locked hint: %w", err)
	}
	return nil
}

// LockRequests returns a channel receiving a value whenever logind asks
// the session to lock, e.g. from loginctl lock-session
func (h *SessionHint) LockRequests() (<-chan struct{}, error) {
	if err := h.conn.AddMatchSignal(
		dbus.WithMatchObjectPath(h.session.Path()),
		dbus.WithMatchInterface(login1Session),
		dbus.WithMatchSender(login1Dest),
		dbus.WithMatchMember("Lock"),
	); err != nil {
		return nil, fmt.Errorf("failed to register Dbus Lock signal: %w", err)
	}

	h.signals = make(chan *dbus.Signal, 4)
	h.conn.Signal(h.signals)

	requests := make(chan struct{}, 1)
	go func() {
		for s := range h.signals {
			if s == nil || s.Path != h.session.Path() || s.Name != login1Session+".Lock" {
				continue
			}
			select {
			case requests <- struct{}{}:
			default:
			}
		}
	}()

	return requests, nil
}

// Close disconnects from the system bus
func (h *SessionHint) Close() {
	if h.signals != nil {
		h.conn.RemoveSignal(h.signals)
		close(h.signals)
	}
	h.conn.Close()
}
