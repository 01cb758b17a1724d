package windowmanager

import (
	"github.com/1broseidon/edgebar/internal/platform"
)

// WorkArea computes the usable rectangle of display after reserving the
// heights of its top and bottom bars. edgeBarsOnly restricts the sum to
// windows that require the screen edge; enabledBarsOnly restricts it to
// dock-enabled windows. It also returns the scale used, taken from a window on
// the display when one exists.
func (m *Manager) WorkArea(display platform.Display, edgeBarsOnly, enabledBarsOnly bool) (platform.Rect, float64) {
	scale := display.Scale
	if scale <= 0 {
		scale = 1
	}

	var top, bottom float64
	for _, svc := range m.registry.Services() {
		w, ok := ScreenWindow(svc.Windows(), display.Name)
		if !ok {
			continue
		}
		if (w.DockEnabled() || !enabledBarsOnly) && (w.RequiresScreenEdge() || !edgeBarsOnly) {
			switch w.Edge() {
			case platform.EdgeTop:
				top += w.Height()
			case platform.EdgeBottom:
				bottom += w.Height()
			}
		}
		if s := w.Scale(); s > 0 {
			scale = s
		}
	}

	topPx := int(top * scale)
	bottomPx := int(bottom * scale)
	return platform.Rect{
		X:      display.Bounds.X,
		Y:      display.Bounds.Y + topPx,
		Width:  display.Bounds.Width,
		Height: max(display.Bounds.Height-topPx-bottomPx, 0),
	}, scale
}

// SetWorkArea publishes the work area of display. It does nothing unless
// running as shell.
func (m *Manager) SetWorkArea(display platform.Display) {
	if !m.shell.IsShell() || m.workAreas == nil {
		return
	}
	area, _ := m.WorkArea(display, false, true)
	if err := m.workAreas.SetWorkArea(display, area); err != nil {
		m.logger.Warn("failed to set work area", "display", display.Name, "error", err)
	}
}

// ResetWorkArea restores the desktop work area to the full virtual screen.
// The daemon calls it on exit.
func (m *Manager) ResetWorkArea() {
	if !m.shell.IsShell() || m.workAreas == nil {
		return
	}
	screen, err := m.workAreas.VirtualScreen()
	if err != nil {
		m.logger.Warn("failed to read virtual screen", "error", err)
		return
	}
	if err := m.workAreas.ResetWorkArea(screen); err != nil {
		m.logger.Warn("failed to reset work area", "error", err)
	}
}

func (m *Manager) setDisplayWorkAreas() {
	if !m.shell.IsShell() {
		return
	}
	for _, d := range m.Displays() {
		m.SetWorkArea(d)
	}
}

// PrimaryMonitorSize returns the size of the primary display in the last
// snapshot, or false if there is none.
func (m *Manager) PrimaryMonitorSize() (width, height int, ok bool) {
	d, ok := platform.PrimaryDisplay(m.Displays())
	if !ok {
		return 0, 0, false
	}
	return d.Bounds.Width, d.Bounds.Height, true
}

// PrimaryMonitorWorkArea returns the computed work area of the primary display.
func (m *Manager) PrimaryMonitorWorkArea() (platform.Rect, bool) {
	d, ok := platform.PrimaryDisplay(m.Displays())
	if !ok {
		return platform.Rect{}, false
	}
	area, _ := m.WorkArea(d, false, true)
	return area, true
}
