package internal

// TopologyWatcher keeps surface geometry in step with screen change
// notifications. Subscription happens when a surface is acquired.
type TopologyWatcher struct {
	display Display
}

// NewTopologyWatcher creates a watcher updating surfaces through display
func NewTopologyWatcher(display Display) *TopologyWatcher {
	return &TopologyWatcher{display: display}
}

// Apply updates the surface the event targets and returns it, or nil if the
// event is for none of them. The surface is resized, its monitors are
// replaced and the window is cleared; redrawing is up to the caller.
func (w *TopologyWatcher) Apply(surfaces []*LockSurface, ev TopologyEvent) *LockSurface {
	for _, s := range surfaces {
		if s.Window != ev.Window {
			continue
		}

		width, height := ev.Width, ev.Height
		if ev.Rotated {
			width, height = height, width
		}
		Info("Screen %d changed to %dx%d (rotated: %v)", s.Screen, width, height, ev.Rotated)

		s.Width, s.Height = width, height
		w.display.Resize(s, width, height)

		monitors, err := w.display.QueryMonitors(s)
		if err != nil || len(monitors) == 0 {
			Warn("Failed to query monitors for screen %d, using whole screen: %v", s.Screen, err)
			monitors = []Monitor{{Width: int(width), Height: int(height)}}
		}
		s.Monitors = monitors

		w.display.Clear(s)
		return s
	}

	Debug("Topology event for unknown window %d", ev.Window)
	return nil
}
