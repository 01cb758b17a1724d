package x11

import (
	"slices"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
)

// insets are the pixels reserved along each side of a monitor.
type insets struct {
	left, right, top, bottom int
}

// apply shrinks r by the insets, never below 1x1.
func (in insets) apply(r Rect) Rect {
	r.X += in.left
	r.Y += in.top
	r.Width = max(r.Width-in.left-in.right, 1)
	r.Height = max(r.Height-in.top-in.bottom, 1)
	return r
}

// intersect returns the overlap of a and b, or the zero Rect.
func (a Rect) intersect(b Rect) Rect {
	x1, y1 := max(a.X, b.X), max(a.Y, b.Y)
	x2, y2 := min(a.X+a.Width, b.X+b.Width), min(a.Y+a.Height, b.Y+b.Height)
	if x2 <= x1 || y2 <= y1 {
		return Rect{}
	}
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// reservedInsets sums, per side, the deepest strut overlapping monitor.
func reservedInsets(monitor, root Rect, struts []*ewmh.WmStrutPartial) insets {
	var in insets
	for _, sp := range struts {
		if sp.Top > 0 {
			band := Rect{X: int(sp.TopStartX), Y: root.Y, Width: int(sp.TopEndX) - int(sp.TopStartX) + 1, Height: int(sp.Top)}
			in.top = max(in.top, monitor.intersect(band).Height)
		}
		if sp.Bottom > 0 {
			band := Rect{X: int(sp.BottomStartX), Y: root.Y + root.Height - int(sp.Bottom), Width: int(sp.BottomEndX) - int(sp.BottomStartX) + 1, Height: int(sp.Bottom)}
			in.bottom = max(in.bottom, monitor.intersect(band).Height)
		}
		if sp.Left > 0 {
			band := Rect{X: root.X, Y: int(sp.LeftStartY), Width: int(sp.Left), Height: int(sp.LeftEndY) - int(sp.LeftStartY) + 1}
			in.left = max(in.left, monitor.intersect(band).Width)
		}
		if sp.Right > 0 {
			band := Rect{X: root.X + root.Width - int(sp.Right), Y: int(sp.RightStartY), Width: int(sp.Right), Height: int(sp.RightEndY) - int(sp.RightStartY) + 1}
			in.right = max(in.right, monitor.intersect(band).Width)
		}
	}
	return in
}

// dockStruts collects the struts of mapped docks, skipping exclude. Docks
// that only set _NET_WM_STRUT reserve the full length of their edge.
func (c *Connection) dockStruts(root Rect, exclude map[xproto.Window]bool) []*ewmh.WmStrutPartial {
	var out []*ewmh.WmStrutPartial
	for _, win := range c.dockWindows() {
		if exclude[win] {
			continue
		}
		if sp, err := ewmh.WmStrutPartialGet(c.XUtil, win); err == nil {
			out = append(out, sp)
			continue
		}
		s, err := ewmh.WmStrutGet(c.XUtil, win)
		if err != nil {
			continue
		}
		w, h := uint(root.Width-1), uint(root.Height-1)
		out = append(out, &ewmh.WmStrutPartial{
			Left: s.Left, Right: s.Right, Top: s.Top, Bottom: s.Bottom,
			LeftEndY: h, RightEndY: h, TopEndX: w, BottomEndX: w,
		})
	}
	return out
}

// dockWindows lists clients typed _NET_WM_WINDOW_TYPE_DOCK.
func (c *Connection) dockWindows() []xproto.Window {
	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return nil
	}
	var docks []xproto.Window
	for _, win := range clients {
		types, err := ewmh.WmWindowTypeGet(c.XUtil, win)
		if err == nil && slices.Contains(types, "_NET_WM_WINDOW_TYPE_DOCK") {
			docks = append(docks, win)
		}
	}
	return docks
}
