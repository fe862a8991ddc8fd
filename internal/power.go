package internal

import (
	"fmt"
	"time"

	"github.com/BurntSushi/xgb/dpms"
	"github.com/BurntSushi/xgb/screensaver"
	"github.com/BurntSushi/xgb/xproto"
)

// dpmsTimeouts is the server's DPMS state from before the lock
type dpmsTimeouts struct {
	standby, suspend, off uint16
	enabled               bool
}

// initExtensions initializes the optional extensions. Missing ones only
// disable the features that use them.
func (d *X11Display) initExtensions() {
	if err := dpms.Init(d.conn); err != nil {
		Debug("DPMS extension unavailable: %v", err)
	} else {
		d.dpms = true
	}
	if err := screensaver.Init(d.conn); err != nil {
		Debug("MIT-SCREEN-SAVER extension unavailable: %v", err)
	} else {
		d.saver = true
	}
}

// ApplyPowerSaving sets all DPMS timeouts to the configured value while
// the screen is locked. The previous state is restored by
// RestorePowerSaving.
func (d *X11Display) ApplyPowerSaving() error {
	if d.config.DPMSTimeout == 0 {
		return nil
	}
	if !d.dpms {
		return fmt.Errorf("DPMS extension not available")
	}

	capable, err := dpms.Capable(d.conn).Reply()
	if err != nil {
		return fmt.Errorf("failed to query DPMS capability: %w", err)
	}
	if !capable.Capable {
		return fmt.Errorf("display is not DPMS capable")
	}

	timeouts, err := dpms.GetTimeouts(d.conn).Reply()
	if err != nil {
		return fmt.Errorf("failed to get DPMS timeouts: %w", err)
	}
	info, err := dpms.Info(d.conn).Reply()
	if err != nil {
		return fmt.Errorf("failed to get DPMS state: %w", err)
	}
	d.savedTimeouts = &dpmsTimeouts{
		standby: timeouts.StandbyTimeout,
		suspend: timeouts.SuspendTimeout,
		off:     timeouts.OffTimeout,
		enabled: info.State,
	}

	t := uint16(d.config.DPMSTimeout)
	if err := dpms.SetTimeoutsChecked(d.conn, t, t, t).Check(); err != nil {
		d.savedTimeouts = nil
		return fmt.Errorf("failed to set DPMS timeouts: %w", err)
	}
	if !info.State {
		dpms.Enable(d.conn)
	}
	Debug("DPMS timeouts set to %ds", t)
	return nil
}

// RestorePowerSaving puts back the DPMS state saved by ApplyPowerSaving
func (d *X11Display) RestorePowerSaving() {
	saved := d.savedTimeouts
	if saved == nil || d.closed {
		return
	}
	d.savedTimeouts = nil

	dpms.SetTimeouts(d.conn, saved.standby, saved.suspend, saved.off)
	if !saved.enabled {
		dpms.Disable(d.conn)
	}
	Debug("DPMS timeouts restored")
}

// IdleTime returns how long the user has not touched any input device
func (d *X11Display) IdleTime() (time.Duration, error) {
	if !d.saver {
		return 0, fmt.Errorf("MIT-SCREEN-SAVER extension not available")
	}
	root := d.setup.DefaultScreen(d.conn).Root
	info, err := screensaver.QueryInfo(d.conn, xproto.Drawable(root)).Reply()
	if err != nil {
		return 0, fmt.Errorf("failed to query idle time: %w", err)
	}
	return time.Duration(info.MsSinceUserInput) * time.Millisecond, nil
}
