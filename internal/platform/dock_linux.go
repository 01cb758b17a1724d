//go:build linux

package platform

import (
	"fmt"
	"strings"

	"github.com/1broseidon/edgebar/internal/x11"
	"github.com/BurntSushi/xgb/xproto"
)

// RegisterBar interns a dock message atom for id. The returned value is the
// Message carried by EventDock events addressed to id.
func (b *LinuxBackend) RegisterBar(id WindowID, edge Edge) (uint32, error) {
	conn, err := b.connection()
	if err != nil {
		return 0, err
	}
	if _, ok := b.surface(id); !ok {
		return 0, fmt.Errorf("window %d is not a bar", id)
	}

	atom, err := conn.DockAtom(xproto.Window(id))
	if err != nil {
		return 0, err
	}

	b.mu.Lock()
	b.docks[xproto.Window(id)] = atom
	b.mu.Unlock()
	return uint32(atom), nil
}

// UnregisterBar releases id's struts.
func (b *LinuxBackend) UnregisterBar(id WindowID) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}

	b.mu.Lock()
	_, ok := b.docks[xproto.Window(id)]
	delete(b.docks, xproto.Window(id))
	b.mu.Unlock()
	if !ok {
		return nil
	}
	return conn.ClearStrut(xproto.Window(id))
}

// SetPos proposes a width x height strip on edge of screen, moves it past
// other docks' struts and reserves it for id. The granted rect is returned.
func (b *LinuxBackend) SetPos(id WindowID, edge Edge, screen Rect, width, height int) (Rect, error) {
	conn, err := b.connection()
	if err != nil {
		return Rect{}, err
	}
	if !b.isDock(id) {
		return Rect{}, fmt.Errorf("window %d is not a registered dock", id)
	}

	se := strutEdge(edge)
	granted := conn.QueryDockPos(se, toX11Rect(screen), width, height, b.ownWindows())

	thickness := height
	if edge == EdgeLeft || edge == EdgeRight {
		thickness = width
	}
	offset := 0
	switch edge {
	case EdgeTop:
		offset = granted.Y - screen.Y
	case EdgeBottom:
		offset = screen.Bottom() - (granted.Y + granted.Height)
	case EdgeLeft:
		offset = granted.X - screen.X
	case EdgeRight:
		offset = screen.Right() - (granted.X + granted.Width)
	}

	if err := conn.SetStrut(xproto.Window(id), se, toX11Rect(screen), offset+thickness); err != nil {
		return Rect{}, err
	}
	return fromX11Rect(granted), nil
}

// Activate raises id above other windows.
func (b *LinuxBackend) Activate(id WindowID) error {
	s, ok := b.surface(id)
	if !ok {
		return fmt.Errorf("window %d is not a bar", id)
	}
	return s.win.Restack(true)
}

// WindowPosChanged tells other docks that id moved.
func (b *LinuxBackend) WindowPosChanged(id WindowID) error {
	return b.notifyDocks(DockPosChanged, false, xproto.Window(id))
}

// HideNativeDocks unmaps dock windows not owned by this process.
func (b *LinuxBackend) HideNativeDocks() error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.HideForeignDocks(b.ownWindows())
}

func (b *LinuxBackend) isDock(id WindowID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.docks[xproto.Window(id)]
	return ok
}

// notifyDocks sends a dock notification to every registered bar except skip.
func (b *LinuxBackend) notifyDocks(n DockNotification, before bool, skip xproto.Window) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}

	b.mu.Lock()
	targets := make(map[xproto.Window]xproto.Atom, len(b.docks))
	for w, atom := range b.docks {
		if w != skip {
			targets[w] = atom
		}
	}
	b.mu.Unlock()

	var firstErr error
	for _, w := range sortedWindows(targets) {
		if err := conn.SendDockMessage(w, targets[w], uint32(n), before); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("dock message to %d: %w", w, err)
		}
	}
	return firstErr
}

// NotifyFullScreen tells registered bars that a fullscreen application
// opened or closed.
func (b *LinuxBackend) NotifyFullScreen(opened bool) error {
	return b.notifyDocks(DockFullScreenApp, opened, 0)
}

// Watch starts translating X events into Events for handler. Handler runs on
// the EventLoop goroutine.
func (b *LinuxBackend) Watch(handler func(Event)) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.handler = handler
	b.mu.Unlock()

	w, err := conn.Watch(b.translate)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.watcher = w
	existing := sortedWindows(b.surfaces)
	b.areaSig = b.workAreaSignature(conn)
	b.mu.Unlock()

	for _, id := range existing {
		w.AddBar(id)
	}
	return nil
}

func (b *LinuxBackend) emit(ev Event) {
	b.mu.Lock()
	h := b.handler
	b.mu.Unlock()
	if h != nil {
		h(ev)
	}
}

func (b *LinuxBackend) translate(ev x11.Event) {
	switch ev.Kind {
	case x11.EventScreenChange:
		b.emit(Event{Type: EventDisplayChange})
	case x11.EventOutputChange:
		b.emit(Event{Type: EventDeviceChange, Code: DeviceNodesChanged})
	case x11.EventResourcesChange:
		b.emit(Event{Type: EventDPIChanged, DPI: int(ev.DPI)})
	case x11.EventCompositorChange:
		b.emit(Event{Type: EventCompositorChange})
	case x11.EventClientsChange:
		b.clientsChanged()
	case x11.EventShowingDesktop:
		_ = b.notifyDocks(DockWindowArrange, ev.Showing, 0)
	case x11.EventBarConfigure:
		id := WindowID(ev.Window)
		b.emit(Event{Type: EventPosChanging, Window: id, ZOrderChanging: ev.StackChanged})
		b.emit(Event{Type: EventPosChanged, Window: id, Bounds: fromX11Rect(ev.Bounds)})
	case x11.EventBarFocus:
		b.emit(Event{Type: EventActivate, Window: WindowID(ev.Window)})
	case x11.EventBarMessage:
		b.mu.Lock()
		atom, ok := b.docks[ev.Window]
		b.mu.Unlock()
		if !ok || atom != ev.Atom || len(ev.Data) < 2 {
			return
		}
		b.emit(Event{
			Type:         EventDock,
			Window:       WindowID(ev.Window),
			Message:      uint32(atom),
			Notification: DockNotification(ev.Data[0]),
			Before:       ev.Data[1] != 0,
		})
	}
}

// clientsChanged tells bars when dock struts moved the work areas, then reports
// the client list change so fullscreen state can be rescanned.
func (b *LinuxBackend) clientsChanged() {
	conn, err := b.connection()
	if err != nil {
		return
	}
	sig := b.workAreaSignature(conn)

	b.mu.Lock()
	changed := sig != b.areaSig
	b.areaSig = sig
	b.mu.Unlock()

	if changed {
		_ = b.notifyDocks(DockPosChanged, false, 0)
	}
	b.emit(Event{Type: EventClientList})
}

func (b *LinuxBackend) workAreaSignature(conn *x11.Connection) string {
	monitors, err := conn.GetMonitors()
	if err != nil {
		return ""
	}
	var sb strings.Builder
	for _, m := range monitors {
		fmt.Fprintf(&sb, "%s:%d,%d,%d,%d;", m.Name, m.WorkArea.X, m.WorkArea.Y, m.WorkArea.Width, m.WorkArea.Height)
	}
	return sb.String()
}
