package x11

import (
	"bufio"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/xprop"
)

// Monitor represents a physical display
type Monitor struct {
	ID       int
	Name     string
	X        int
	Y        int
	Width    int
	Height   int
	Primary  bool
	WorkArea Rect
	Scale    float64
}

// Rect is a rectangle in root window coordinates.
type Rect struct {
	X, Y, Width, Height int
}

// GetMonitors queries RandR for every lit, connected output. Nothing is
// cached; each call reflects the server's current configuration.
func (c *Connection) GetMonitors() ([]Monitor, error) {
	conn := c.XUtil.Conn()
	res, err := randr.GetScreenResourcesCurrent(conn, c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("randr screen resources: %w", err)
	}

	var primary randr.Output
	if reply, err := randr.GetOutputPrimary(conn, c.Root).Reply(); err == nil {
		primary = reply.Output
	}

	scale := c.Scale()
	monitors := make([]Monitor, 0, len(res.Crtcs))
	for i, crtc := range res.Crtcs {
		m, ok := c.crtcMonitor(i, crtc, res.ConfigTimestamp, primary)
		if !ok {
			continue
		}
		m.Scale = scale
		monitors = append(monitors, m)
	}
	if len(monitors) > 0 {
		c.applyWorkAreas(monitors)
	}
	return monitors, nil
}

// crtcMonitor describes the output driven by crtc. Disabled CRTCs and
// disconnected outputs report false.
func (c *Connection) crtcMonitor(id int, crtc randr.Crtc, ts xproto.Timestamp, primary randr.Output) (Monitor, bool) {
	conn := c.XUtil.Conn()
	info, err := randr.GetCrtcInfo(conn, crtc, ts).Reply()
	if err != nil || info.Width == 0 || info.Height == 0 || len(info.Outputs) == 0 {
		return Monitor{}, false
	}

	bounds := Rect{X: int(info.X), Y: int(info.Y), Width: int(info.Width), Height: int(info.Height)}
	m := Monitor{
		ID:       id,
		Name:     fmt.Sprintf("Monitor%d", id),
		X:        bounds.X,
		Y:        bounds.Y,
		Width:    bounds.Width,
		Height:   bounds.Height,
		Primary:  slices.Contains(info.Outputs, primary),
		WorkArea: bounds,
	}
	if out, err := randr.GetOutputInfo(conn, info.Outputs[0], ts).Reply(); err == nil {
		if out.Connection != randr.ConnectionConnected {
			return Monitor{}, false
		}
		m.Name = string(out.Name)
	}
	return m, true
}

// Scale returns the desktop scale factor from Xft.dpi, or 1 when unset.
func (c *Connection) Scale() float64 {
	dpi, ok := c.XftDPI()
	if !ok || dpi <= 0 {
		return 1
	}
	return dpi / 96
}

// XftDPI reads Xft.dpi from the RESOURCE_MANAGER property on the root window.
func (c *Connection) XftDPI() (float64, bool) {
	reply, err := xprop.GetProperty(c.XUtil, c.Root, "RESOURCE_MANAGER")
	if err != nil || reply == nil {
		return 0, false
	}
	return parseXftDPI(string(reply.Value))
}

func parseXftDPI(resources string) (float64, bool) {
	scanner := bufio.NewScanner(strings.NewReader(resources))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok || strings.TrimSpace(key) != "Xft.dpi" {
			continue
		}
		dpi, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return 0, false
		}
		return dpi, true
	}
	return 0, false
}

// applyWorkAreas shrinks each monitor's work area by the dock struts that
// overlap it.
func (c *Connection) applyWorkAreas(monitors []Monitor) {
	root, err := c.VirtualScreen()
	if err != nil {
		return
	}
	struts := c.dockStruts(root, nil)
	for i := range monitors {
		monitors[i].WorkArea = reservedInsets(monitors[i].WorkArea, root, struts).apply(monitors[i].WorkArea)
	}
}

// MonitorForRect returns the monitor containing the center of r.
func MonitorForRect(monitors []Monitor, r Rect) (Monitor, bool) {
	cx := r.X + r.Width/2
	cy := r.Y + r.Height/2
	for _, m := range monitors {
		if cx >= m.X && cx < m.X+m.Width && cy >= m.Y && cy < m.Y+m.Height {
			return m, true
		}
	}
	return Monitor{}, false
}
