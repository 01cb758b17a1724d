package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
)

// BarWindow is a solid-colored top-level window used as a bar.
type BarWindow struct {
	conn   *Connection
	ID     xproto.Window
	Bounds Rect
	dock   bool
}

// BarOptions describe a new bar window.
type BarOptions struct {
	Name   string
	Bounds Rect
	Color  uint32
	// Dock marks the window _NET_WM_WINDOW_TYPE_DOCK so a window manager
	// keeps it above clients and honours its struts. Without it the window
	// is override-redirect and positions itself.
	Dock bool
}

// CreateBarWindow creates (but does not map) a bar window.
func (c *Connection) CreateBarWindow(opts BarOptions) (*BarWindow, error) {
	conn := c.XUtil.Conn()
	screen := c.XUtil.Screen()

	wid, err := xproto.NewWindowId(conn)
	if err != nil {
		return nil, err
	}

	width := max(opts.Bounds.Width, 1)
	height := max(opts.Bounds.Height, 1)
	overrideRedirect := uint32(1)
	if opts.Dock {
		overrideRedirect = 0
	}

	eventMask := uint32(xproto.EventMaskStructureNotify | xproto.EventMaskFocusChange | xproto.EventMaskPropertyChange)

	err = xproto.CreateWindowChecked(
		conn,
		screen.RootDepth,
		wid,
		c.Root,
		int16(opts.Bounds.X), int16(opts.Bounds.Y),
		uint16(width), uint16(height),
		0, // border_width
		xproto.WindowClassInputOutput,
		screen.RootVisual,
		xproto.CwBackPixel|xproto.CwOverrideRedirect|xproto.CwEventMask,
		// Value list order follows the bit positions of the mask (low to high).
		[]uint32{opts.Color, overrideRedirect, eventMask},
	).Check()
	if err != nil {
		return nil, fmt.Errorf("failed to create bar window: %w", err)
	}

	w := &BarWindow{conn: c, ID: wid, Bounds: opts.Bounds, dock: opts.Dock}

	if err := ewmh.WmNameSet(c.XUtil, wid, opts.Name); err != nil {
		return nil, fmt.Errorf("failed to name bar window: %w", err)
	}
	_ = icccm.WmClassSet(c.XUtil, wid, &icccm.WmClass{Instance: opts.Name, Class: "edgebar"})
	_ = ewmh.WmWindowTypeSet(c.XUtil, wid, []string{"_NET_WM_WINDOW_TYPE_DOCK"})
	_ = ewmh.WmStateSet(c.XUtil, wid, []string{"_NET_WM_STATE_ABOVE", "_NET_WM_STATE_STICKY", "_NET_WM_STATE_SKIP_TASKBAR", "_NET_WM_STATE_SKIP_PAGER"})
	_ = ewmh.WmDesktopSet(c.XUtil, wid, 0xFFFFFFFF)

	return w, nil
}

// MoveResize applies physical geometry.
func (w *BarWindow) MoveResize(r Rect) error {
	r.Width = max(r.Width, 1)
	r.Height = max(r.Height, 1)
	err := xproto.ConfigureWindowChecked(
		w.conn.XUtil.Conn(),
		w.ID,
		xproto.ConfigWindowX|xproto.ConfigWindowY|xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
		[]uint32{uint32(int32(r.X)), uint32(int32(r.Y)), uint32(r.Width), uint32(r.Height)},
	).Check()
	if err != nil {
		return fmt.Errorf("failed to move bar window: %w", err)
	}
	w.Bounds = r
	return nil
}

// Map shows the window.
func (w *BarWindow) Map() error {
	return xproto.MapWindowChecked(w.conn.XUtil.Conn(), w.ID).Check()
}

// Unmap hides the window.
func (w *BarWindow) Unmap() error {
	return xproto.UnmapWindowChecked(w.conn.XUtil.Conn(), w.ID).Check()
}

// Restack raises the window to the top of the stack, or lowers it to the
// bottom, and updates _NET_WM_STATE to match.
func (w *BarWindow) Restack(top bool) error {
	mode := uint32(xproto.StackModeBelow)
	add, remove := "_NET_WM_STATE_BELOW", "_NET_WM_STATE_ABOVE"
	if top {
		mode = xproto.StackModeAbove
		add, remove = remove, add
	}

	if w.dock {
		// Managed windows change layer through the window manager.
		_ = ewmh.WmStateReq(w.conn.XUtil, w.ID, ewmh.StateRemove, remove)
		_ = ewmh.WmStateReq(w.conn.XUtil, w.ID, ewmh.StateAdd, add)
	}

	return xproto.ConfigureWindowChecked(
		w.conn.XUtil.Conn(),
		w.ID,
		xproto.ConfigWindowStackMode,
		[]uint32{mode},
	).Check()
}

// Destroy destroys the window.
func (w *BarWindow) Destroy() error {
	return xproto.DestroyWindowChecked(w.conn.XUtil.Conn(), w.ID).Check()
}

// IsNormalWindow checks if a window is a normal application window
func (c *Connection) IsNormalWindow(windowID xproto.Window) bool {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, windowID)
	if err != nil {
		// If we can't determine type, assume it's normal
		return true
	}

	for _, t := range types {
		if t == "_NET_WM_WINDOW_TYPE_NORMAL" {
			return true
		}
		if t == "_NET_WM_WINDOW_TYPE_DESKTOP" ||
			t == "_NET_WM_WINDOW_TYPE_DOCK" ||
			t == "_NET_WM_WINDOW_TYPE_SPLASH" ||
			t == "_NET_WM_WINDOW_TYPE_NOTIFICATION" {
			return false
		}
	}

	return len(types) == 0
}
