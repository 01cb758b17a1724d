package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/xprop"
)

// StrutEdge is the root window edge a strut reserves.
type StrutEdge int

const (
	StrutTop StrutEdge = iota
	StrutBottom
	StrutLeft
	StrutRight
)

// DockAtom interns the per-window atom used as the type of dock client
// messages delivered to win.
func (c *Connection) DockAtom(win xproto.Window) (xproto.Atom, error) {
	name := fmt.Sprintf("_EDGEBAR_DOCK_%08X", uint32(win))
	atom, err := xprop.Atm(c.XUtil, name)
	if err != nil {
		return 0, fmt.Errorf("failed to intern %s: %w", name, err)
	}
	return atom, nil
}

// SendDockMessage delivers a dock notification to win as a client message.
func (c *Connection) SendDockMessage(win xproto.Window, atom xproto.Atom, notification uint32, before bool) error {
	flag := uint32(0)
	if before {
		flag = 1
	}
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: win,
		Type:   atom,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{notification, flag, 0, 0, 0}),
	}
	return xproto.SendEventChecked(
		c.XUtil.Conn(),
		false,
		win,
		xproto.EventMaskNoEvent,
		string(ev.Bytes()),
	).Check()
}

// SetStrut reserves thickness pixels along edge of monitor for win.
func (c *Connection) SetStrut(win xproto.Window, edge StrutEdge, monitor Rect, thickness int) error {
	root, err := c.VirtualScreen()
	if err != nil {
		return err
	}

	sp := &ewmh.WmStrutPartial{}
	s := &ewmh.WmStrut{}
	switch edge {
	case StrutTop:
		sp.Top = uint(monitor.Y + thickness)
		sp.TopStartX = uint(monitor.X)
		sp.TopEndX = uint(monitor.X + monitor.Width - 1)
		s.Top = sp.Top
	case StrutBottom:
		sp.Bottom = uint(root.Height - (monitor.Y + monitor.Height) + thickness)
		sp.BottomStartX = uint(monitor.X)
		sp.BottomEndX = uint(monitor.X + monitor.Width - 1)
		s.Bottom = sp.Bottom
	case StrutLeft:
		sp.Left = uint(monitor.X + thickness)
		sp.LeftStartY = uint(monitor.Y)
		sp.LeftEndY = uint(monitor.Y + monitor.Height - 1)
		s.Left = sp.Left
	case StrutRight:
		sp.Right = uint(root.Width - (monitor.X + monitor.Width) + thickness)
		sp.RightStartY = uint(monitor.Y)
		sp.RightEndY = uint(monitor.Y + monitor.Height - 1)
		s.Right = sp.Right
	}

	if err := ewmh.WmStrutPartialSet(c.XUtil, win, sp); err != nil {
		return fmt.Errorf("failed to set strut partial: %w", err)
	}
	if err := ewmh.WmStrutSet(c.XUtil, win, s); err != nil {
		return fmt.Errorf("failed to set strut: %w", err)
	}
	return nil
}

// ClearStrut removes win's struts.
func (c *Connection) ClearStrut(win xproto.Window) error {
	for _, name := range []string{"_NET_WM_STRUT_PARTIAL", "_NET_WM_STRUT"} {
		atom, err := xprop.Atm(c.XUtil, name)
		if err != nil {
			return err
		}
		if err := xproto.DeletePropertyChecked(c.XUtil.Conn(), win, atom).Check(); err != nil {
			return fmt.Errorf("failed to delete %s: %w", name, err)
		}
	}
	return nil
}

// QueryDockPos proposes a width x height strip along edge of monitor and
// moves it inwards past struts already held by other docks on that edge.
func (c *Connection) QueryDockPos(edge StrutEdge, monitor Rect, width, height int, exclude map[xproto.Window]bool) Rect {
	r := Rect{X: monitor.X, Y: monitor.Y, Width: width, Height: height}
	switch edge {
	case StrutBottom:
		r.Y = monitor.Y + monitor.Height - height
	case StrutRight:
		r.X = monitor.X + monitor.Width - width
	}

	root, err := c.VirtualScreen()
	if err != nil {
		return r
	}
	taken := reservedInsets(monitor, root, c.dockStruts(root, exclude))

	switch edge {
	case StrutTop:
		r.Y += taken.top
	case StrutBottom:
		r.Y -= taken.bottom
	case StrutLeft:
		r.X += taken.left
	case StrutRight:
		r.X -= taken.right
	}
	return r
}

// HideForeignDocks unmaps dock windows not in ours.
func (c *Connection) HideForeignDocks(ours map[xproto.Window]bool) error {
	var firstErr error
	for _, win := range c.dockWindows() {
		if ours[win] {
			continue
		}
		if err := xproto.UnmapWindowChecked(c.XUtil.Conn(), win).Check(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
