//go:build linux

package platform

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/1broseidon/edgebar/internal/x11"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
)

// LinuxBackend wraps an X11 connection behind the platform Backend interface.
// It also acts as the dock host for bar windows it created: registration
// reserves struts and dock notifications arrive as client messages.
type LinuxBackend struct {
	conn *x11.Connection

	mu        sync.Mutex
	surfaces  map[xproto.Window]*linuxSurface
	docks     map[xproto.Window]xproto.Atom
	workAreas map[string]Rect
	watcher   *x11.Watcher
	handler   func(Event)
	areaSig   string
}

var _ Backend = (*LinuxBackend)(nil)

// NewLinuxBackend creates a Linux platform backend from an existing X11 connection.
func NewLinuxBackend(conn *x11.Connection) *LinuxBackend {
	return &LinuxBackend{
		conn:      conn,
		surfaces:  make(map[xproto.Window]*linuxSurface),
		docks:     make(map[xproto.Window]xproto.Atom),
		workAreas: make(map[string]Rect),
	}
}

// NewLinuxBackendFromDisplay creates a new Linux backend by opening a fresh X11 connection.
func NewLinuxBackendFromDisplay() (*LinuxBackend, error) {
	conn, err := x11.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return NewLinuxBackend(conn), nil
}

// Disconnect closes the underlying X11 connection.
func (b *LinuxBackend) Disconnect() {
	if b != nil && b.conn != nil {
		b.conn.Close()
	}
}

// EventLoop runs the X11 event loop until Quit is called.
func (b *LinuxBackend) EventLoop() {
	if b != nil && b.conn != nil {
		b.conn.EventLoop()
	}
}

// Quit stops EventLoop.
func (b *LinuxBackend) Quit() {
	if b != nil && b.conn != nil {
		b.conn.Quit()
	}
}

// XUtil returns the underlying xgbutil connection for X11-specific operations.
func (b *LinuxBackend) XUtil() *xgbutil.XUtil {
	if b == nil || b.conn == nil {
		return nil
	}
	return b.conn.XUtil
}

// RootWindow returns the X11 root window ID.
func (b *LinuxBackend) RootWindow() xproto.Window {
	if b == nil || b.conn == nil {
		return 0
	}
	return b.conn.Root
}

// WindowManagerName reports the running EWMH window manager, if any.
func (b *LinuxBackend) WindowManagerName() string {
	name, err := b.conn.WindowManagerName()
	if err != nil {
		return ""
	}
	return name
}

// OtherShellPresent reports whether another window manager owns the desktop.
func (b *LinuxBackend) OtherShellPresent() bool {
	return b.conn.OtherShellPresent()
}

// Displays returns all active displays, ordered by RandR CRTC index.
func (b *LinuxBackend) Displays() ([]Display, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}

	monitors, err := conn.GetMonitors()
	if err != nil {
		return nil, err
	}

	displays := make([]Display, 0, len(monitors))
	for _, m := range monitors {
		displays = append(displays, displayFromMonitor(m))
	}

	sort.Slice(displays, func(i, j int) bool {
		return displays[i].ID < displays[j].ID
	})

	return NormalizePrimary(displays), nil
}

// SetWorkArea records area for display and republishes every known display's
// work area.
func (b *LinuxBackend) SetWorkArea(display Display, area Rect) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.workAreas[display.Name] = area
	b.mu.Unlock()

	monitors, err := conn.GetMonitors()
	if err != nil {
		return err
	}

	b.mu.Lock()
	areas := make([]x11.Rect, 0, len(monitors))
	for _, m := range monitors {
		a, ok := b.workAreas[m.Name]
		if !ok {
			a = Rect{X: m.X, Y: m.Y, Width: m.Width, Height: m.Height}
		}
		areas = append(areas, toX11Rect(a))
	}
	b.mu.Unlock()

	return conn.SetMonitorWorkAreas(areas)
}

// ResetWorkArea forgets per-display work areas and publishes area.
func (b *LinuxBackend) ResetWorkArea(area Rect) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}

	b.mu.Lock()
	clear(b.workAreas)
	b.mu.Unlock()

	if err := conn.ClearMonitorWorkAreas(); err != nil {
		return err
	}
	return conn.SetWorkArea(toX11Rect(area))
}

// VirtualScreen returns the root window bounds.
func (b *LinuxBackend) VirtualScreen() (Rect, error) {
	conn, err := b.connection()
	if err != nil {
		return Rect{}, err
	}
	r, err := conn.VirtualScreen()
	if err != nil {
		return Rect{}, err
	}
	return fromX11Rect(r), nil
}

// CreateSurface creates an unmapped bar window.
func (b *LinuxBackend) CreateSurface(opts SurfaceOptions) (Surface, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}

	win, err := conn.CreateBarWindow(x11.BarOptions{
		Name:   opts.Name,
		Bounds: toX11Rect(opts.Bounds),
		Color:  opts.Color,
		Dock:   opts.Dock,
	})
	if err != nil {
		return nil, err
	}

	s := &linuxSurface{backend: b, win: win}

	b.mu.Lock()
	b.surfaces[win.ID] = s
	watcher := b.watcher
	b.mu.Unlock()

	if watcher != nil {
		watcher.AddBar(win.ID)
	}
	return s, nil
}

func (b *LinuxBackend) dropSurface(id xproto.Window) {
	b.mu.Lock()
	delete(b.surfaces, id)
	delete(b.docks, id)
	watcher := b.watcher
	b.mu.Unlock()

	if watcher != nil {
		watcher.RemoveBar(id)
	}
}

func (b *LinuxBackend) surface(id WindowID) (*linuxSurface, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.surfaces[xproto.Window(id)]
	return s, ok
}

// ownWindows returns the set of bar windows created by this backend.
func (b *LinuxBackend) ownWindows() map[xproto.Window]bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[xproto.Window]bool, len(b.surfaces))
	for id := range b.surfaces {
		out[id] = true
	}
	return out
}

// FullScreenWindow is a foreign client covering a display.
type FullScreenWindow struct {
	Window  WindowID
	Title   string
	Display string
}

// FullScreenWindows lists fullscreen clients, excluding bar windows, with
// the display each one covers.
func (b *LinuxBackend) FullScreenWindows() ([]FullScreenWindow, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}
	monitors, err := conn.GetMonitors()
	if err != nil {
		return nil, err
	}

	own := b.ownWindows()
	clients := conn.FullScreenClients(func(w xproto.Window) bool { return own[w] })

	out := make([]FullScreenWindow, 0, len(clients))
	for _, c := range clients {
		m, ok := x11.MonitorForRect(monitors, c.Bounds)
		if !ok {
			continue
		}
		out = append(out, FullScreenWindow{Window: WindowID(c.Window), Title: c.Title, Display: m.Name})
	}
	return out, nil
}

func (b *LinuxBackend) connection() (*x11.Connection, error) {
	if b == nil || b.conn == nil {
		return nil, fmt.Errorf("x11 backend connection is nil")
	}
	return b.conn, nil
}

func displayFromMonitor(m x11.Monitor) Display {
	return Display{
		ID:       m.ID,
		Name:     m.Name,
		Bounds:   Rect{X: m.X, Y: m.Y, Width: m.Width, Height: m.Height},
		WorkArea: fromX11Rect(m.WorkArea),
		Primary:  m.Primary,
		Scale:    m.Scale,
	}
}

func toX11Rect(r Rect) x11.Rect {
	return x11.Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

func fromX11Rect(r x11.Rect) Rect {
	return Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

func strutEdge(e Edge) x11.StrutEdge {
	switch e {
	case EdgeBottom:
		return x11.StrutBottom
	case EdgeLeft:
		return x11.StrutLeft
	case EdgeRight:
		return x11.StrutRight
	default:
		return x11.StrutTop
	}
}

// sortedWindows returns the keys of m in ascending order.
func sortedWindows[V any](m map[xproto.Window]V) []xproto.Window {
	ids := make([]xproto.Window, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// linuxSurface is a bar window created by LinuxBackend.
type linuxSurface struct {
	backend *LinuxBackend
	win     *x11.BarWindow
}

func (s *linuxSurface) ID() WindowID { return WindowID(s.win.ID) }

func (s *linuxSurface) SetBounds(bounds Rect) error {
	return s.win.MoveResize(toX11Rect(bounds))
}

func (s *linuxSurface) Show() error { return s.win.Map() }

func (s *linuxSurface) Hide() error { return s.win.Unmap() }

func (s *linuxSurface) SetTopmost(topmost bool) error {
	return s.win.Restack(topmost)
}

func (s *linuxSurface) Destroy() error {
	s.backend.dropSurface(s.win.ID)
	return s.win.Destroy()
}
