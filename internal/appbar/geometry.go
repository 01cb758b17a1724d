package appbar

import (
	"math"

	"github.com/1broseidon/edgebar/internal/platform"
)

// LogicalRect is a rectangle in DPI-independent units.
type LogicalRect struct {
	X, Y, Width, Height float64
}

// ToLogical divides a physical rectangle by scale.
func ToLogical(r platform.Rect, scale float64) LogicalRect {
	scale = normalizeScale(scale)
	return LogicalRect{
		X:      float64(r.X) / scale,
		Y:      float64(r.Y) / scale,
		Width:  float64(r.Width) / scale,
		Height: float64(r.Height) / scale,
	}
}

// ToPhysical multiplies a logical rectangle by scale, rounding to pixels.
func (l LogicalRect) ToPhysical(scale float64) platform.Rect {
	scale = normalizeScale(scale)
	return platform.Rect{
		X:      int(math.Round(l.X * scale)),
		Y:      int(math.Round(l.Y * scale)),
		Width:  int(math.Round(l.Width * scale)),
		Height: int(math.Round(l.Height * scale)),
	}
}

// Physical converts a logical length to pixels.
func Physical(v, scale float64) int {
	return int(math.Round(v * normalizeScale(scale)))
}

// EdgeRect places a width x height strip along edge of screen.
func EdgeRect(screen platform.Rect, edge platform.Edge, width, height int) platform.Rect {
	switch edge {
	case platform.EdgeBottom:
		return platform.Rect{X: screen.X, Y: screen.Bottom() - height, Width: width, Height: height}
	case platform.EdgeLeft:
		return platform.Rect{X: screen.X, Y: screen.Y, Width: width, Height: height}
	case platform.EdgeRight:
		return platform.Rect{X: screen.Right() - width, Y: screen.Y, Width: width, Height: height}
	default:
		return platform.Rect{X: screen.X, Y: screen.Y, Width: width, Height: height}
	}
}

func normalizeScale(scale float64) float64 {
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return 1
	}
	return scale
}
