package platform

// SameTopology reports whether two snapshots describe the same topology:
// equal length and, slot by slot in enumeration order, equal bounds, name,
// primary flag and work area. DPI scale is deliberately not compared.
func SameTopology(prev, next []Display) bool {
	if len(prev) != len(next) {
		return false
	}
	for i := range prev {
		a, b := prev[i], next[i]
		if a.Bounds != b.Bounds || a.Name != b.Name || a.Primary != b.Primary || a.WorkArea != b.WorkArea {
			return false
		}
	}
	return true
}

// Names returns the display names in enumeration order.
func Names(displays []Display) []string {
	names := make([]string, 0, len(displays))
	for _, d := range displays {
		names = append(names, d.Name)
	}
	return names
}

// FindDisplay returns the display with the given name.
func FindDisplay(displays []Display, name string) (Display, bool) {
	for _, d := range displays {
		if d.Name == name {
			return d, true
		}
	}
	return Display{}, false
}

// PrimaryDisplay returns the primary display, falling back to the first one.
func PrimaryDisplay(displays []Display) (Display, bool) {
	for _, d := range displays {
		if d.Primary {
			return d, true
		}
	}
	if len(displays) > 0 {
		return displays[0], true
	}
	return Display{}, false
}

// NormalizePrimary marks exactly one display primary: the first one already
// flagged, else the first in enumeration order. X servers without a RandR
// primary output report none.
func NormalizePrimary(displays []Display) []Display {
	found := false
	for i := range displays {
		if displays[i].Primary {
			displays[i].Primary = !found
			found = true
		}
	}
	if !found && len(displays) > 0 {
		displays[0].Primary = true
	}
	return displays
}

// ContainsPoint reports whether (x, y) lies inside r.
func ContainsPoint(r Rect, x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// DisplayForRect returns the display containing the center of r.
func DisplayForRect(displays []Display, r Rect) (Display, bool) {
	cx := r.X + r.Width/2
	cy := r.Y + r.Height/2
	for _, d := range displays {
		if ContainsPoint(d.Bounds, cx, cy) {
			return d, true
		}
	}
	return Display{}, false
}

// VirtualBounds returns the union of all display bounds.
func VirtualBounds(displays []Display) Rect {
	if len(displays) == 0 {
		return Rect{}
	}
	x1, y1 := displays[0].Bounds.X, displays[0].Bounds.Y
	x2, y2 := displays[0].Bounds.Right(), displays[0].Bounds.Bottom()
	for _, d := range displays[1:] {
		x1 = min(x1, d.Bounds.X)
		y1 = min(y1, d.Bounds.Y)
		x2 = max(x2, d.Bounds.Right())
		y2 = max(y2, d.Bounds.Bottom())
	}
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}
