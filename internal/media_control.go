package internal

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

const (
	mprisPrefix = "org.mpris.MediaPlayer2."
	mprisPath   = dbus.ObjectPath("/org/mpris/MediaPlayer2")
	mprisPlayer = "org.mpris.MediaPlayer2.Player"
)

// MediaController pauses MPRIS media players on the session bus while the
// screen is locked and resumes the ones it paused afterwards
type MediaController struct {
	conn   *dbus.Conn
	paused []string
}

// NewMediaController creates a new MediaController instance
func NewMediaController() (*MediaController, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &MediaController{conn: conn}, nil
}

// Close closes the D-Bus connection
func (mc *MediaController) Close() {
	if mc.conn != nil {
		mc.conn.Close()
	}
}

// PauseAllMedia pauses every player that is currently playing
func (mc *MediaController) PauseAllMedia() error {
	players, err := mc.players()
	if err != nil {
		return err
	}

	mc.paused = mc.paused[:0]
	for _, name := range players {
		if mc.switchPlayer(name, "Playing", "Pause") {
			mc.paused = append(mc.paused, name)
		}
	}

	if len(mc.paused) == 0 {
		Debug("No media players found to pause")
	} else {
		Debug("Successfully paused %d media players", len(mc.paused))
	}
	return nil
}

// ResumeMedia plays again every player paused by PauseAllMedia that is
// still paused
func (mc *MediaController) ResumeMedia() error {
	resumed := 0
	for _, name := range mc.paused {
		if mc.switchPlayer(name, "Paused", "Play") {
			resumed++
		}
	}
	mc.paused = mc.paused[:0]

	Debug("Resumed %d media players", resumed)
	return nil
}

// players lists the bus names of all MPRIS players
func (mc *MediaController) players() ([]string, error) {
	var names []string
	err := mc.conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names)
	if err != nil {
		return nil, fmt.Errorf("failed to list D-Bus names: %w", err)
	}
	return filterPlayers(names), nil
}

func filterPlayers(names []string) []string {
	var players []string
	for _, name := range names {
		if strings.HasPrefix(name, mprisPrefix) {
			players = append(players, name)
		}
	}
	return players
}

// switchPlayer calls method on the player if its playback status is from,
// and reports whether it did so successfully
func (mc *MediaController) switchPlayer(name, from, method string) bool {
	obj := mc.conn.Object(name, mprisPath)

	variant, err := obj.GetProperty(mprisPlayer + ".PlaybackStatus")
	if err != nil {
		Debug("Failed to get playback status for %s: %v", name, err)
		return false
	}
	status, _ := variant.Value().(string)
	if status != from {
		Debug("Player %s is %s, skipping %s", name, status, method)
		return false
	}

	if err := obj.Call(mprisPlayer+"."+method, 0).Err; err != nil {
		Warn("Failed to %s %s: %v", strings.ToLower(method), name, err)
		return false
	}
	Debug("Player %s: %s", name, method)
	return true
}
