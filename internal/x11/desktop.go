package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/xprop"
)

// workAreasProp holds one x,y,width,height quad per output, in RandR order,
// for clients that understand per-monitor work areas.
const workAreasProp = "_EDGEBAR_WORKAREAS"

// VirtualScreen returns the root window geometry.
func (c *Connection) VirtualScreen() (Rect, error) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(c.Root)).Reply()
	if err != nil {
		return Rect{}, fmt.Errorf("failed to get root geometry: %w", err)
	}
	return Rect{X: int(geom.X), Y: int(geom.Y), Width: int(geom.Width), Height: int(geom.Height)}, nil
}

// GetDesktopCount returns the number of virtual desktops, or 1 if no window
// manager publishes it.
func (c *Connection) GetDesktopCount() int {
	count, err := ewmh.NumberOfDesktopsGet(c.XUtil)
	if err != nil || count == 0 {
		return 1
	}
	return int(count)
}

// SetWorkArea publishes area as _NET_WORKAREA for every desktop.
func (c *Connection) SetWorkArea(area Rect) error {
	n := c.GetDesktopCount()
	areas := make([]ewmh.Workarea, n)
	for i := range areas {
		areas[i] = ewmh.Workarea{
			X:      area.X,
			Y:      area.Y,
			Width:  uint(max(area.Width, 0)),
			Height: uint(max(area.Height, 0)),
		}
	}
	if err := ewmh.WorkareaSet(c.XUtil, areas); err != nil {
		return fmt.Errorf("failed to set _NET_WORKAREA: %w", err)
	}
	return nil
}

// SetMonitorWorkAreas publishes per-output work areas and the union of their
// bounding box as the desktop work area.
func (c *Connection) SetMonitorWorkAreas(areas []Rect) error {
	if len(areas) == 0 {
		return nil
	}
	data := make([]uint, 0, len(areas)*4)
	union := areas[0]
	for _, a := range areas {
		data = append(data, uint(a.X), uint(a.Y), uint(max(a.Width, 0)), uint(max(a.Height, 0)))
		union = unionRect(union, a)
	}
	if err := xprop.ChangeProp32(c.XUtil, c.Root, workAreasProp, "CARDINAL", data...); err != nil {
		return fmt.Errorf("failed to set %s: %w", workAreasProp, err)
	}
	return c.SetWorkArea(union)
}

// ClearMonitorWorkAreas removes the per-output work area property.
func (c *Connection) ClearMonitorWorkAreas() error {
	atom, err := xprop.Atm(c.XUtil, workAreasProp)
	if err != nil {
		return err
	}
	return xproto.DeletePropertyChecked(c.XUtil.Conn(), c.Root, atom).Check()
}

// MonitorWorkAreas reads back the per-output work areas.
func (c *Connection) MonitorWorkAreas() ([]Rect, error) {
	reply, err := xprop.GetProperty(c.XUtil, c.Root, workAreasProp)
	if err != nil {
		return nil, err
	}
	vals, err := xprop.PropValNums(reply, nil)
	if err != nil {
		return nil, err
	}
	var out []Rect
	for i := 0; i+3 < len(vals); i += 4 {
		out = append(out, Rect{X: int(vals[i]), Y: int(vals[i+1]), Width: int(vals[i+2]), Height: int(vals[i+3])})
	}
	return out, nil
}

func unionRect(a, b Rect) Rect {
	x1 := min(a.X, b.X)
	y1 := min(a.Y, b.Y)
	x2 := max(a.X+a.Width, b.X+b.Width)
	y2 := max(a.Y+a.Height, b.Y+b.Height)
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// FullScreenClient is a client window in the fullscreen state.
type FullScreenClient struct {
	Window xproto.Window
	Title  string
	Bounds Rect
}

// FullScreenClients lists mapped clients with _NET_WM_STATE_FULLSCREEN set,
// skipping the windows in exclude.
func (c *Connection) FullScreenClients(exclude func(xproto.Window) bool) []FullScreenClient {
	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return nil
	}

	var out []FullScreenClient
	for _, windowID := range clients {
		if exclude != nil && exclude(windowID) {
			continue
		}
		states, err := ewmh.WmStateGet(c.XUtil, windowID)
		if err != nil {
			continue
		}
		fullscreen, hidden := false, false
		for _, s := range states {
			switch s {
			case "_NET_WM_STATE_FULLSCREEN":
				fullscreen = true
			case "_NET_WM_STATE_HIDDEN":
				hidden = true
			}
		}
		if !fullscreen || hidden {
			continue
		}
		rect, ok := c.windowRect(windowID)
		if !ok {
			continue
		}
		title, _ := ewmh.WmNameGet(c.XUtil, windowID)
		out = append(out, FullScreenClient{Window: windowID, Title: title, Bounds: rect})
	}
	return out
}

func (c *Connection) windowRect(windowID xproto.Window) (Rect, bool) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(windowID)).Reply()
	if err != nil {
		return Rect{}, false
	}

	translate, err := xproto.TranslateCoordinates(
		c.XUtil.Conn(),
		windowID,
		c.Root,
		0, 0,
	).Reply()
	if err != nil {
		return Rect{}, false
	}

	return Rect{
		X:      int(translate.DstX),
		Y:      int(translate.DstY),
		Width:  int(geom.Width),
		Height: int(geom.Height),
	}, true
}
