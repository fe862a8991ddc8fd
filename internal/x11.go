package internal

import (
	"fmt"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
)

const windowName = "dotlock"

// X11Display implements Display on an X11 connection. It locks every screen
// of the display, one LockSurface each.
type X11Display struct {
	config  Configuration
	conn    *xgb.Conn
	setup   *xproto.SetupInfo
	randr   bool
	dpms    bool
	saver   bool
	keymap  *Keymap
	screens []*x11Screen
	retry   RetryPolicy
	closed  bool

	// Resources backing acquired surfaces, keyed by window
	cursors map[xproto.Window]xproto.Cursor
	gcs     map[xproto.Window]xproto.Gcontext

	savedTimeouts *dpmsTimeouts
}

type x11Screen struct {
	info   *xproto.ScreenInfo
	pixels map[ColorRole]uint32
}

// OpenX11Display connects to the X server named by $DISPLAY, allocates the
// configured colors on every screen and loads the keyboard mapping
func OpenX11Display(config Configuration) (*X11Display, error) {
	Info("Attempting to connect to X server")
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fatalf("cannot open display", err)
	}

	d := &X11Display{
		config:  config,
		conn:    conn,
		setup:   xproto.Setup(conn),
		retry:   DefaultRetryPolicy,
		cursors: make(map[xproto.Window]xproto.Cursor),
		gcs:     make(map[xproto.Window]xproto.Gcontext),
	}

	if err := randr.Init(conn); err != nil {
		Warn("RandR extension unavailable, treating each screen as one monitor: %v", err)
	} else {
		d.randr = true
	}
	d.initExtensions()

	for i := range d.setup.Roots {
		info := &d.setup.Roots[i]
		pixels, err := d.allocColors(info)
		if err != nil {
			conn.Close()
			return nil, fatalf(fmt.Sprintf("allocating colors on screen %d", i), err)
		}
		d.screens = append(d.screens, &x11Screen{info: info, pixels: pixels})
	}
	Info("Display has %d screens", len(d.screens))

	if err := d.loadKeymap(); err != nil {
		conn.Close()
		return nil, fatalf("loading keyboard mapping", err)
	}

	return d, nil
}

func (d *X11Display) allocColors(info *xproto.ScreenInfo) (map[ColorRole]uint32, error) {
	pixels := make(map[ColorRole]uint32)
	for _, role := range []ColorRole{ColorIdle, ColorInput, ColorFailed, ColorForeground} {
		r, g, b, err := parseColor(d.config.Color(role))
		if err != nil {
			return nil, err
		}
		reply, err := xproto.AllocColor(d.conn, info.DefaultColormap,
			uint16(r)*257, uint16(g)*257, uint16(b)*257).Reply()
		if err != nil {
			return nil, fmt.Errorf("failed to allocate color %s: %w", d.config.Color(role), err)
		}
		pixels[role] = reply.Pixel
	}
	return pixels, nil
}

func (d *X11Display) loadKeymap() error {
	minCode, maxCode := d.setup.MinKeycode, d.setup.MaxKeycode
	km, err := xproto.GetKeyboardMapping(d.conn, minCode, byte(maxCode-minCode+1)).Reply()
	if err != nil {
		return fmt.Errorf("failed to get keyboard mapping: %w", err)
	}
	mm, err := xproto.GetModifierMapping(d.conn).Reply()
	if err != nil {
		return fmt.Errorf("failed to get modifier mapping: %w", err)
	}

	syms := make([]uint32, len(km.Keysyms))
	for i, k := range km.Keysyms {
		syms[i] = uint32(k)
	}
	mods := make([]uint8, len(mm.Keycodes))
	for i, k := range mm.Keycodes {
		mods[i] = uint8(k)
	}

	d.keymap = NewKeymap(int(minCode), int(km.KeysymsPerKeycode), syms, mods, int(mm.KeycodesPerModifier))
	Debug("Keyboard mapping loaded: %d keysyms per keycode", km.KeysymsPerKeycode)
	return nil
}

// ScreenCount returns the number of screens on the display
func (d *X11Display) ScreenCount() int {
	return len(d.screens)
}

// Acquire blanks one screen and grabs pointer and keyboard for it
func (d *X11Display) Acquire(screen int) (*LockSurface, error) {
	scr := d.screens[screen]
	info := scr.info

	win, err := xproto.NewWindowId(d.conn)
	if err != nil {
		return nil, &AcquisitionError{Screen: screen, Err: fmt.Errorf("failed to allocate window ID: %w", err)}
	}

	err = xproto.CreateWindowChecked(
		d.conn,
		info.RootDepth,
		win,
		info.Root,
		0, 0, info.WidthInPixels, info.HeightInPixels,
		0,
		xproto.WindowClassInputOutput,
		info.RootVisual,
		xproto.CwBackPixel|xproto.CwOverrideRedirect|xproto.CwEventMask,
		[]uint32{
			scr.pixels[ColorIdle],
			1, // Override redirect
			uint32(xproto.EventMaskExposure),
		},
	).Check()
	if err != nil {
		return nil, &AcquisitionError{Screen: screen, Err: fmt.Errorf("failed to create window: %w", err)}
	}

	xproto.ChangeProperty(d.conn, xproto.PropModeReplace, win,
		xproto.AtomWmName, xproto.AtomString, 8, uint32(len(windowName)), []byte(windowName))

	cursor, err := d.invisibleCursor(info.Root)
	if err != nil {
		xproto.DestroyWindow(d.conn, win)
		return nil, &AcquisitionError{Screen: screen, Err: err}
	}
	xproto.ChangeWindowAttributes(d.conn, win, xproto.CwCursor, []uint32{uint32(cursor)})

	// Try to grab mouse pointer *and* keyboard, else fail the lock
	grabber := &x11Grabber{conn: d.conn, root: info.Root, cursor: cursor}
	state, err := grabInput(grabber, d.retry)
	if !state.Complete() {
		if !state.Pointer {
			Error("Unable to grab mouse pointer for screen %d", screen)
		} else {
			xproto.UngrabPointer(d.conn, xproto.TimeCurrentTime)
		}
		if !state.Keyboard {
			Error("Unable to grab keyboard for screen %d", screen)
		} else {
			xproto.UngrabKeyboard(d.conn, xproto.TimeCurrentTime)
		}
		xproto.DestroyWindow(d.conn, win)
		xproto.FreeCursor(d.conn, cursor)
		return nil, &AcquisitionError{Screen: screen, Grabbing: true,
			Pointer: state.Pointer, Keyboard: state.Keyboard, Err: err}
	}

	// Input is grabbed: we can lock the screen
	xproto.MapWindow(d.conn, win)
	xproto.ConfigureWindow(d.conn, win, xproto.ConfigWindowStackMode, []uint32{xproto.StackModeAbove})
	if d.randr {
		randr.SelectInput(d.conn, win, randr.NotifyMaskScreenChange)
	}
	xproto.ChangeWindowAttributes(d.conn, info.Root, xproto.CwEventMask,
		[]uint32{uint32(xproto.EventMaskSubstructureNotify)})

	gc, err := xproto.NewGcontextId(d.conn)
	if err != nil {
		d.destroy(win, cursor, 0)
		return nil, &AcquisitionError{Screen: screen,
			Err: fmt.Errorf("failed to allocate graphics context ID: %w", err)}
	}
	err = xproto.CreateGCChecked(d.conn, gc, xproto.Drawable(win),
		xproto.GcForeground|xproto.GcLineWidth,
		[]uint32{scr.pixels[ColorForeground], 1},
	).Check()
	if err != nil {
		d.destroy(win, cursor, 0)
		return nil, &AcquisitionError{Screen: screen,
			Err: fmt.Errorf("failed to create graphics context: %w", err)}
	}

	monitors, err := d.queryMonitors(info.Root, info.WidthInPixels, info.HeightInPixels)
	if err != nil {
		d.destroy(win, cursor, gc)
		return nil, &AcquisitionError{Screen: screen, Err: err}
	}

	d.cursors[win] = cursor
	d.gcs[win] = gc

	return &LockSurface{
		Screen:   screen,
		Root:     uint32(info.Root),
		Window:   uint32(win),
		Width:    info.WidthInPixels,
		Height:   info.HeightInPixels,
		Monitors: monitors,
		Canvas:   &x11Canvas{conn: d.conn, window: win, gc: gc},
	}, nil
}

// Release destroys a surface's window and resources. The surface no longer
// locks anything afterwards.
func (d *X11Display) Release(s *LockSurface) {
	win := xproto.Window(s.Window)
	d.destroy(win, d.cursors[win], d.gcs[win])
	delete(d.cursors, win)
	delete(d.gcs, win)
}

func (d *X11Display) destroy(win xproto.Window, cursor xproto.Cursor, gc xproto.Gcontext) {
	if gc != 0 {
		xproto.FreeGC(d.conn, gc)
	}
	xproto.DestroyWindow(d.conn, win)
	if cursor != 0 {
		xproto.FreeCursor(d.conn, cursor)
	}
}

// invisibleCursor creates a cursor from an all-zero 8x8 bitmap
func (d *X11Display) invisibleCursor(root xproto.Window) (xproto.Cursor, error) {
	cursor, err := xproto.NewCursorId(d.conn)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate cursor ID: %w", err)
	}
	pixmap, err := xproto.NewPixmapId(d.conn)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate pixmap ID: %w", err)
	}

	err = xproto.CreatePixmapChecked(d.conn, 1, pixmap, xproto.Drawable(root), 8, 8).Check()
	if err != nil {
		return 0, fmt.Errorf("failed to create pixmap: %w", err)
	}
	defer xproto.FreePixmap(d.conn, pixmap)

	// Pixmap contents are undefined until drawn, so clear them
	gc, err := xproto.NewGcontextId(d.conn)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate graphics context ID: %w", err)
	}
	xproto.CreateGC(d.conn, gc, xproto.Drawable(pixmap), xproto.GcForeground, []uint32{0})
	xproto.PolyFillRectangle(d.conn, xproto.Drawable(pixmap), gc, []xproto.Rectangle{{X: 0, Y: 0, Width: 8, Height: 8}})
	xproto.FreeGC(d.conn, gc)

	err = xproto.CreateCursorChecked(
		d.conn,
		cursor,
		pixmap,
		pixmap,
		0, 0, 0, // Black foreground
		0, 0, 0, // Black background
		0, 0, // Hotspot at 0,0
	).Check()
	if err != nil {
		return 0, fmt.Errorf("failed to create cursor: %w", err)
	}

	return cursor, nil
}

// queryMonitors lists every CRTC of the screen in server order
func (d *X11Display) queryMonitors(root xproto.Window, width, height uint16) ([]Monitor, error) {
	whole := []Monitor{{Width: int(width), Height: int(height)}}
	if !d.randr {
		return whole, nil
	}

	resources, err := randr.GetScreenResources(d.conn, root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	monitors := make([]Monitor, 0, len(resources.Crtcs))
	for _, crtc := range resources.Crtcs {
		info, err := randr.GetCrtcInfo(d.conn, crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			return nil, fmt.Errorf("failed to get CRTC info: %w", err)
		}
		monitors = append(monitors, Monitor{
			X:      int(info.X),
			Y:      int(info.Y),
			Width:  int(info.Width),
			Height: int(info.Height),
		})
		Debug("CRTC %d: x=%d, y=%d, width=%d, height=%d", crtc, info.X, info.Y, info.Width, info.Height)
	}

	if len(monitors) == 0 {
		return whole, nil
	}
	return monitors, nil
}

// QueryMonitors implements Display
func (d *X11Display) QueryMonitors(s *LockSurface) ([]Monitor, error) {
	return d.queryMonitors(xproto.Window(s.Root), s.Width, s.Height)
}

// NextEvent implements Display. X errors from unchecked requests are logged
// and skipped.
func (d *X11Display) NextEvent() (Event, error) {
	for {
		ev, xerr := d.conn.WaitForEvent()
		if ev == nil && xerr == nil {
			d.closed = true
			return nil, ErrDisplayClosed
		}
		if xerr != nil {
			Debug("Ignoring X error: %v", xerr)
			continue
		}

		if e, ok := ev.(xproto.MappingNotifyEvent); ok && e.Request != xproto.MappingPointer {
			Info("Keyboard mapping changed")
			if err := d.loadKeymap(); err != nil {
				Warn("Keeping old keyboard mapping: %v", err)
			}
		}

		if out, ok := translateEvent(d.keymap, ev); ok {
			return out, nil
		}
	}
}

// translateEvent turns an X event into an Event. Expose events other than
// the last of a series are dropped.
func translateEvent(km *Keymap, ev xgb.Event) (Event, bool) {
	switch e := ev.(type) {
	case xproto.ExposeEvent:
		if e.Count > 0 {
			return nil, false
		}
		return RedrawEvent{}, true

	case xproto.KeyPressEvent:
		sym := km.Lookup(uint8(e.Detail), e.State)
		return KeyEvent{Keysym: sym, Text: KeysymText(sym, e.State)}, true

	case xproto.MappingNotifyEvent:
		return OtherEvent{Kind: "MappingNotify"}, true

	case randr.ScreenChangeNotifyEvent:
		// Reflections leave the axes alone
		rotated := uint16(e.Rotation)&(randr.RotationRotate90|randr.RotationRotate270) != 0
		return TopologyEvent{
			Window:  uint32(e.RequestWindow),
			Width:   e.Width,
			Height:  e.Height,
			Rotated: rotated,
		}, true

	default:
		return OtherEvent{Kind: fmt.Sprintf("%T", ev)}, true
	}
}

// Raise implements Display
func (d *X11Display) Raise(s *LockSurface) {
	win := xproto.Window(s.Window)
	xproto.MapWindow(d.conn, win)
	xproto.ConfigureWindow(d.conn, win, xproto.ConfigWindowStackMode, []uint32{xproto.StackModeAbove})
}

// Resize implements Display
func (d *X11Display) Resize(s *LockSurface, width, height uint16) {
	xproto.ConfigureWindow(d.conn, xproto.Window(s.Window),
		xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
		[]uint32{uint32(width), uint32(height)})
}

// SetBackground implements Display
func (d *X11Display) SetBackground(s *LockSurface, role ColorRole) {
	win := xproto.Window(s.Window)
	pixel := d.screens[s.Screen].pixels[role]
	xproto.ChangeWindowAttributes(d.conn, win, xproto.CwBackPixel, []uint32{pixel})
	xproto.ClearArea(d.conn, false, win, 0, 0, 0, 0)
}

// Clear implements Display
func (d *X11Display) Clear(s *LockSurface) {
	xproto.ClearArea(d.conn, false, xproto.Window(s.Window), 0, 0, 0, 0)
}

// Bell implements Display
func (d *X11Display) Bell(percent int) {
	xproto.Bell(d.conn, int8(percent))
}

// Flush implements Display
func (d *X11Display) Flush() {
	d.conn.Sync()
}

// Close releases the grabs and every surface and closes the connection
func (d *X11Display) Close() {
	if d.closed {
		return
	}
	d.closed = true

	Debug("Ungrabbing keyboard and pointer")
	xproto.UngrabKeyboard(d.conn, xproto.TimeCurrentTime)
	xproto.UngrabPointer(d.conn, xproto.TimeCurrentTime)

	for win := range d.cursors {
		d.destroy(win, d.cursors[win], d.gcs[win])
	}
	d.cursors = map[xproto.Window]xproto.Cursor{}
	d.gcs = map[xproto.Window]xproto.Gcontext{}

	d.conn.Sync()
	d.conn.Close()
}

// x11Grabber issues the grab requests for one screen
type x11Grabber struct {
	conn   *xgb.Conn
	root   xproto.Window
	cursor xproto.Cursor
}

func (g *x11Grabber) GrabPointer() (GrabStatus, error) {
	reply, err := xproto.GrabPointer(
		g.conn,
		false,
		g.root,
		uint16(xproto.EventMaskButtonPress|xproto.EventMaskButtonRelease|xproto.EventMaskPointerMotion),
		xproto.GrabModeAsync,
		xproto.GrabModeAsync,
		xproto.WindowNone,
		g.cursor,
		xproto.TimeCurrentTime,
	).Reply()
	if err != nil {
		return GrabFailed, fmt.Errorf("failed to grab pointer: %w", err)
	}
	return grabStatus(reply.Status), nil
}

func (g *x11Grabber) GrabKeyboard() (GrabStatus, error) {
	reply, err := xproto.GrabKeyboard(
		g.conn,
		true,
		g.root,
		xproto.TimeCurrentTime,
		xproto.GrabModeAsync,
		xproto.GrabModeAsync,
	).Reply()
	if err != nil {
		return GrabFailed, fmt.Errorf("failed to grab keyboard: %w", err)
	}
	return grabStatus(reply.Status), nil
}

func grabStatus(status byte) GrabStatus {
	switch status {
	case xproto.GrabStatusSuccess:
		return GrabSuccess
	case xproto.GrabStatusAlreadyGrabbed:
		return GrabAlreadyGrabbed
	}
	return GrabFailed
}

// x11Canvas draws on one lock window with its GC
type x11Canvas struct {
	conn   *xgb.Conn
	window xproto.Window
	gc     xproto.Gcontext
}

func (c *x11Canvas) SetLineWidth(width int) {
	xproto.ChangeGC(c.conn, c.gc, xproto.GcLineWidth, []uint32{uint32(width)})
}

func (c *x11Canvas) DrawRectangle(r Rect) {
	xproto.PolyRectangle(c.conn, xproto.Drawable(c.window), c.gc, []xproto.Rectangle{xRect(r)})
}

func (c *x11Canvas) ClearArea(r Rect) {
	// A zero size would clear to the window edge
	if r.Width <= 0 || r.Height <= 0 {
		return
	}
	xproto.ClearArea(c.conn, false, c.window, int16(r.X), int16(r.Y), uint16(r.Width), uint16(r.Height))
}

func (c *x11Canvas) DrawSegments(segments []Segment) {
	xs := make([]xproto.Segment, len(segments))
	for i, s := range segments {
		xs[i] = xproto.Segment{X1: int16(s.X1), Y1: int16(s.Y1), X2: int16(s.X2), Y2: int16(s.Y2)}
	}
	xproto.PolySegment(c.conn, xproto.Drawable(c.window), c.gc, xs)
}

func (c *x11Canvas) DrawCircle(circle Circle) {
	xproto.PolyArc(c.conn, xproto.Drawable(c.window), c.gc, []xproto.Arc{xArc(circle)})
}

func (c *x11Canvas) FillCircles(circles []Circle) {
	arcs := make([]xproto.Arc, len(circles))
	for i, circle := range circles {
		arcs[i] = xArc(circle)
	}
	xproto.PolyFillArc(c.conn, xproto.Drawable(c.window), c.gc, arcs)
}

func xRect(r Rect) xproto.Rectangle {
	return xproto.Rectangle{X: int16(r.X), Y: int16(r.Y), Width: uint16(max(r.Width, 0)), Height: uint16(max(r.Height, 0))}
}

func xArc(c Circle) xproto.Arc {
	d := uint16(max(c.Diameter, 0))
	return xproto.Arc{X: int16(c.X), Y: int16(c.Y), Width: d, Height: d, Angle1: 0, Angle2: 360 * 64}
}
