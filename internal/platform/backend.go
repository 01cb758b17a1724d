package platform

// WindowID is a platform-neutral window identifier.
type WindowID uint32

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Right returns the exclusive right edge.
func (r Rect) Right() int { return r.X + r.Width }

// Bottom returns the exclusive bottom edge.
func (r Rect) Bottom() int { return r.Y + r.Height }

// Edge is the screen edge a window is anchored to.
type Edge int

const (
	EdgeNone Edge = iota
	EdgeTop
	EdgeBottom
	EdgeLeft
	EdgeRight
)

func (e Edge) String() string {
	switch e {
	case EdgeTop:
		return "top"
	case EdgeBottom:
		return "bottom"
	case EdgeLeft:
		return "left"
	case EdgeRight:
		return "right"
	default:
		return "none"
	}
}

// ParseEdge converts a config string into an Edge.
func ParseEdge(s string) (Edge, bool) {
	switch s {
	case "top":
		return EdgeTop, true
	case "bottom":
		return EdgeBottom, true
	case "left":
		return EdgeLeft, true
	case "right":
		return EdgeRight, true
	case "none", "":
		return EdgeNone, true
	}
	return EdgeNone, false
}

// Display describes a physical display at the time it was queried.
type Display struct {
	ID       int
	Name     string
	Bounds   Rect
	WorkArea Rect
	Primary  bool
	Scale    float64
}

// DisplaySource enumerates the displays currently attached.
// Implementations must query the display server on every call.
type DisplaySource interface {
	Displays() ([]Display, error)
}

// WorkAreaPublisher pushes the desktop work area to the display server.
type WorkAreaPublisher interface {
	SetWorkArea(display Display, area Rect) error
	// ResetWorkArea drops per-display reservations and publishes area for
	// the whole desktop.
	ResetWorkArea(area Rect) error
	VirtualScreen() (Rect, error)
}

// Surface is a top-level window owned by this process. Coordinates are
// physical pixels.
type Surface interface {
	ID() WindowID
	SetBounds(bounds Rect) error
	Show() error
	Hide() error
	SetTopmost(topmost bool) error
	Destroy() error
}

// SurfaceOptions describe a new bar surface.
type SurfaceOptions struct {
	Name   string
	Bounds Rect
	Color  uint32
	Dock   bool
}

// SurfaceFactory creates bar surfaces.
type SurfaceFactory interface {
	CreateSurface(opts SurfaceOptions) (Surface, error)
}

// Backend is everything the daemon needs from the window system.
type Backend interface {
	DisplaySource
	WorkAreaPublisher
	SurfaceFactory
}
