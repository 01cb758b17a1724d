// Package shell holds process-wide shell state: whether edgebar is acting as
// the desktop shell and whether it is shutting down.
package shell

import (
	"fmt"
	"sync/atomic"
)

// Mode selects how shell ownership is decided at startup.
type Mode string

const (
	ModeAuto Mode = "auto"
	ModeOn   Mode = "on"
	ModeOff  Mode = "off"
)

// ParseMode validates a config value.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAuto, ModeOn, ModeOff:
		return Mode(s), nil
	case "":
		return ModeAuto, nil
	}
	return "", fmt.Errorf("unknown shell mode %q", s)
}

// Context is built once at startup. The only transition afterwards is
// BeginShutdown.
type Context struct {
	runningAsShell bool
	shuttingDown   atomic.Bool
}

// NewContext decides shell ownership. In auto mode edgebar becomes the shell
// only when no other window manager owns the desktop.
func NewContext(mode Mode, otherShellPresent bool) *Context {
	asShell := false
	switch mode {
	case ModeOn:
		asShell = true
	case ModeOff:
		asShell = false
	default:
		asShell = !otherShellPresent
	}
	return &Context{runningAsShell: asShell}
}

// IsShell reports whether edgebar positions its windows directly and owns the
// desktop work area. When false, bars reserve edges through dock registration.
func (c *Context) IsShell() bool {
	return c != nil && c.runningAsShell
}

// ShuttingDown reports whether BeginShutdown has been called.
func (c *Context) ShuttingDown() bool {
	return c != nil && c.shuttingDown.Load()
}

// BeginShutdown marks the process as shutting down. It returns false if it
// was already called.
func (c *Context) BeginShutdown() bool {
	return c.shuttingDown.CompareAndSwap(false, true)
}
