package x11

import (
	"fmt"
	"sync"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xfixes"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// compositorSelection is owned by the running compositing manager on screen 0.
const compositorSelection = "_NET_WM_CM_S0"

// EventKind classifies events surfaced by Watcher.
type EventKind int

const (
	EventScreenChange EventKind = iota + 1
	EventOutputChange
	EventResourcesChange
	EventCompositorChange
	EventClientsChange
	EventShowingDesktop
	EventBarConfigure
	EventBarFocus
	EventBarMessage
)

// Event is a decoded X event relevant to bars.
type Event struct {
	Kind   EventKind
	Window xproto.Window

	// EventResourcesChange
	DPI float64

	// EventShowingDesktop
	Showing bool

	// EventBarConfigure
	StackChanged bool
	Bounds       Rect

	// EventBarMessage
	Atom xproto.Atom
	Data []uint32
}

// Watcher turns root and bar window events into Events.
type Watcher struct {
	conn    *Connection
	handler func(Event)

	mu      sync.Mutex
	above   map[xproto.Window]xproto.Window
	lastDPI float64
}

// Watch selects the root window, RandR and XFixes events and routes them to
// handler. Events are delivered on the EventLoop goroutine.
func (c *Connection) Watch(handler func(Event)) (*Watcher, error) {
	w := &Watcher{
		conn:    c,
		handler: handler,
		above:   make(map[xproto.Window]xproto.Window),
	}
	w.lastDPI, _ = c.XftDPI()

	xu := c.XUtil
	root := xwindow.New(xu, c.Root)
	if err := root.Listen(xproto.EventMaskPropertyChange, xproto.EventMaskStructureNotify); err != nil {
		return nil, fmt.Errorf("failed to select root events: %w", err)
	}

	mask := uint16(randr.NotifyMaskScreenChange | randr.NotifyMaskOutputChange | randr.NotifyMaskCrtcChange)
	if err := randr.SelectInputChecked(xu.Conn(), c.Root, mask).Check(); err != nil {
		return nil, fmt.Errorf("failed to select randr events: %w", err)
	}

	if c.hasXFixes {
		if atom, err := xprop.Atm(xu, compositorSelection); err == nil {
			selMask := uint32(xfixes.SelectionEventMaskSetSelectionOwner |
				xfixes.SelectionEventMaskSelectionWindowDestroy |
				xfixes.SelectionEventMaskSelectionClientClose)
			xfixes.SelectSelectionInput(xu.Conn(), c.Root, atom, selMask)
		}
	}

	xevent.HookFun(func(xu *xgbutil.XUtil, ev interface{}) bool {
		switch e := ev.(type) {
		case randr.ScreenChangeNotifyEvent:
			w.emit(Event{Kind: EventScreenChange})
		case randr.NotifyEvent:
			if e.SubCode == randr.NotifyOutputChange {
				w.emit(Event{Kind: EventOutputChange})
			}
		case xfixes.SelectionNotifyEvent:
			w.emit(Event{Kind: EventCompositorChange})
		}
		return true
	}).Connect(xu)

	xevent.PropertyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
		name, err := xprop.AtomName(xu, ev.Atom)
		if err != nil {
			return
		}
		switch name {
		case "RESOURCE_MANAGER":
			dpi, ok := c.XftDPI()
			if !ok {
				return
			}
			w.mu.Lock()
			changed := dpi != w.lastDPI
			w.lastDPI = dpi
			w.mu.Unlock()
			if changed {
				w.emit(Event{Kind: EventResourcesChange, DPI: dpi})
			}
		case "_NET_CLIENT_LIST", "_NET_CLIENT_LIST_STACKING", "_NET_ACTIVE_WINDOW":
			w.emit(Event{Kind: EventClientsChange})
		case "_NET_SHOWING_DESKTOP":
			showing, err := ewmh.ShowingDesktopGet(xu)
			if err != nil {
				return
			}
			w.emit(Event{Kind: EventShowingDesktop, Showing: showing})
		}
	}).Connect(xu, c.Root)

	return w, nil
}

// AddBar subscribes to a bar window's configure, focus and message events.
func (w *Watcher) AddBar(win xproto.Window) {
	xu := w.conn.XUtil

	xevent.ConfigureNotifyFun(func(xu *xgbutil.XUtil, ev xevent.ConfigureNotifyEvent) {
		w.mu.Lock()
		prev, seen := w.above[win]
		w.above[win] = ev.AboveSibling
		w.mu.Unlock()
		w.emit(Event{
			Kind:         EventBarConfigure,
			Window:       win,
			StackChanged: !seen || prev != ev.AboveSibling,
			Bounds:       Rect{X: int(ev.X), Y: int(ev.Y), Width: int(ev.Width), Height: int(ev.Height)},
		})
	}).Connect(xu, win)

	xevent.FocusInFun(func(xu *xgbutil.XUtil, ev xevent.FocusInEvent) {
		w.emit(Event{Kind: EventBarFocus, Window: win})
	}).Connect(xu, win)

	xevent.ClientMessageFun(func(xu *xgbutil.XUtil, ev xevent.ClientMessageEvent) {
		if ev.Format != 32 {
			return
		}
		w.emit(Event{Kind: EventBarMessage, Window: win, Atom: ev.Type, Data: ev.Data.Data32})
	}).Connect(xu, win)
}

// RemoveBar detaches a bar window's callbacks.
func (w *Watcher) RemoveBar(win xproto.Window) {
	xevent.Detach(w.conn.XUtil, win)
	w.mu.Lock()
	delete(w.above, win)
	w.mu.Unlock()
}

func (w *Watcher) emit(ev Event) {
	if w.handler != nil {
		w.handler(ev)
	}
}
