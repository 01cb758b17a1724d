package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xfixes"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
)

// Connection manages the X11 connection and core X resources
type Connection struct {
	XUtil *xgbutil.XUtil
	Root  xproto.Window

	hasXFixes bool
}

// NewConnection establishes a connection to the X11 server and initializes
// the RandR and XFixes extensions.
func NewConnection() (*Connection, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, err
	}

	// Initialize keybind module (required for global hotkeys)
	keybind.Initialize(xu)

	if err := randr.Init(xu.Conn()); err != nil {
		xu.Conn().Close()
		return nil, fmt.Errorf("randr init failed: %w", err)
	}

	c := &Connection{
		XUtil: xu,
		Root:  xu.RootWin(),
	}

	// XFixes is only needed to watch the compositor selection.
	if err := xfixes.Init(xu.Conn()); err == nil {
		if _, err := xfixes.QueryVersion(xu.Conn(), 5, 0).Reply(); err == nil {
			c.hasXFixes = true
		}
	}

	return c, nil
}

// EventLoop starts the main X11 event loop (blocking)
func (c *Connection) EventLoop() {
	xevent.Main(c.XUtil)
}

// Quit stops EventLoop.
func (c *Connection) Quit() {
	xevent.Quit(c.XUtil)
}

// Close cleanly disconnects from the X11 server
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}

// WindowManagerName returns the name of the running EWMH window manager, or
// an error if none is running.
func (c *Connection) WindowManagerName() (string, error) {
	return ewmh.GetEwmhWM(c.XUtil)
}

// OtherShellPresent reports whether an EWMH-compliant window manager already
// owns the desktop.
func (c *Connection) OtherShellPresent() bool {
	name, err := c.WindowManagerName()
	return err == nil && name != ""
}
