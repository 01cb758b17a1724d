package bars

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/1broseidon/edgebar/internal/appbar"
	"github.com/1broseidon/edgebar/internal/fullscreen"
	"github.com/1broseidon/edgebar/internal/platform"
	"github.com/1broseidon/edgebar/internal/shell"
	"github.com/1broseidon/edgebar/internal/windowmanager"
)

// Reconciler is the part of the display manager a window talks to.
type Reconciler interface {
	NotifyDisplayChange(reason windowmanager.Reason)
	IsSettingDisplays() bool
}

// Window is one bar on one display.
type Window struct {
	spec       Spec
	surface    platform.Surface
	proto      *appbar.Protocol
	reconciler Reconciler
	shell      *shell.Context
	logger     *slog.Logger

	unsubscribe func()

	mu      sync.Mutex
	screen  platform.Display
	scale   float64
	topmost bool
	raising bool
	closing bool
	closed  bool
}

type windowConfig struct {
	spec       Spec
	screen     platform.Display
	factory    platform.SurfaceFactory
	dock       DockConfig
	reconciler Reconciler
	shell      *shell.Context
	observer   *fullscreen.Observer
	logger     *slog.Logger
}

func newWindow(cfg windowConfig) (*Window, error) {
	w := &Window{
		spec:       cfg.spec,
		reconciler: cfg.reconciler,
		shell:      cfg.shell,
		screen:     cfg.screen,
		scale:      cfg.screen.Scale,
		topmost:    true,
		logger:     cfg.logger.With("bar", cfg.spec.Name, "display", cfg.screen.Name),
	}

	height := appbar.Physical(cfg.spec.Height, w.Scale())
	surface, err := cfg.factory.CreateSurface(platform.SurfaceOptions{
		Name:   fmt.Sprintf("edgebar-%s-%s", cfg.spec.Name, cfg.screen.Name),
		Bounds: appbar.EdgeRect(cfg.screen.Bounds, cfg.spec.Edge, cfg.screen.Bounds.Width, height),
		Color:  cfg.spec.Color,
		Dock:   cfg.spec.EnableDock && !cfg.shell.IsShell(),
	})
	if err != nil {
		return nil, fmt.Errorf("create %s surface on %s: %w", cfg.spec.Name, cfg.screen.Name, err)
	}
	w.surface = surface

	w.proto = appbar.New(appbar.Config{
		Bar:             w,
		Host:            cfg.dock.Host,
		Registry:        cfg.dock.Registry,
		Shell:           cfg.shell,
		Scheduler:       cfg.dock.Scheduler,
		Delay:           cfg.dock.Delay,
		HideNativeDocks: cfg.dock.HideNativeDocks,
		Logger:          w.logger,
	})

	w.proto.SetPosition()
	if cfg.shell.IsShell() {
		// The first placement can be overridden when displays differ in DPI.
		w.proto.DelaySetPosition()
	}
	if err := w.proto.Register(); err != nil {
		w.logger.Debug("continuing without dock registration", "error", err)
	}
	if err := surface.Show(); err != nil {
		w.logger.Warn("failed to show bar", "error", err)
	}

	if cfg.observer != nil {
		w.unsubscribe = cfg.observer.Subscribe(w.fullScreenAppsChanged)
		w.fullScreenAppsChanged(cfg.observer.Apps())
	}

	w.logger.Debug("bar opened", "window", surface.ID())
	return w, nil
}

func (w *Window) ID() platform.WindowID { return w.surface.ID() }

func (w *Window) Name() string { return w.spec.Name }

func (w *Window) DisplayName() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.screen.Name
}

func (w *Window) Screen() platform.Display {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.screen
}

func (w *Window) Edge() platform.Edge { return w.spec.Edge }

func (w *Window) DockEnabled() bool { return w.spec.EnableDock }

func (w *Window) RequiresScreenEdge() bool { return w.spec.RequiresScreenEdge }

func (w *Window) Height() float64 { return w.spec.Height }

func (w *Window) Scale() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.scale <= 0 {
		return 1
	}
	return w.scale
}

func (w *Window) Closing() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closing
}

// Topmost reports whether the bar is currently above other windows.
func (w *Window) Topmost() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.topmost
}

// DockState returns the dock registration state.
func (w *Window) DockState() appbar.State { return w.proto.State() }

// Position returns the bar's logical position.
func (w *Window) Position() appbar.LogicalRect { return w.proto.Position() }

func (w *Window) Place(r platform.Rect) error { return w.surface.SetBounds(r) }

func (w *Window) Show() error { return w.surface.Show() }

func (w *Window) Hide() error { return w.surface.Hide() }

// Close destroys the bar. It is refused, returning false, unless displays are
// being set up or the process is shutting down.
func (w *Window) Close() bool {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return true
	}
	w.closing = true
	w.mu.Unlock()

	if !w.reconciler.IsSettingDisplays() && !w.shell.ShuttingDown() {
		w.mu.Lock()
		w.closing = false
		w.mu.Unlock()
		w.logger.Debug("bar close cancelled")
		return false
	}

	if err := w.proto.Unregister(); err != nil {
		w.logger.Debug("unregister during close failed", "error", err)
	}
	if w.unsubscribe != nil {
		w.unsubscribe()
	}
	if err := w.surface.Destroy(); err != nil {
		w.logger.Warn("failed to destroy bar surface", "error", err)
	}

	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.logger.Debug("bar closed")
	return true
}

// SetScreen refreshes the bar's display properties and repositions it.
func (w *Window) SetScreen(d platform.Display) {
	w.mu.Lock()
	w.screen = d
	if d.Scale > 0 {
		w.scale = d.Scale
	}
	w.mu.Unlock()
	w.proto.ScreenPosition()
}

// HandleEvent processes one window-system notification addressed to this bar
// or broadcast to all bars. It reports whether the bar passed it on to the
// reconciler.
func (w *Window) HandleEvent(ev platform.Event) bool {
	return w.handle(ev, true)
}

// handle is HandleEvent with forwarding of DPI changes optionally withheld,
// so a broadcast reaches the reconciler once.
func (w *Window) handle(ev platform.Event, forwardDPI bool) bool {
	switch ev.Type {
	case platform.EventDock:
		w.proto.HandleMessage(ev.Message, ev.Notification, ev.Before)
	case platform.EventActivate:
		w.proto.HandleActivate()
	case platform.EventPosChanging:
		w.mu.Lock()
		raising := w.raising
		if raising && ev.ZOrderChanging {
			w.raising = false
		}
		w.mu.Unlock()
		if raising && ev.ZOrderChanging {
			if err := w.surface.SetTopmost(true); err != nil {
				w.logger.Debug("failed to force topmost", "error", err)
			}
		}
	case platform.EventPosChanged:
		w.proto.HandlePosChanged(ev.Bounds)
	case platform.EventDPIChanged:
		if ev.DPI > 0 {
			w.mu.Lock()
			w.scale = float64(ev.DPI) / 96
			w.mu.Unlock()
		}
		if forwardDPI {
			return w.forwardScreenChange(windowmanager.ReasonDpiChange)
		}
	case platform.EventDisplayChange:
		return w.forwardScreenChange(windowmanager.ReasonDisplayChange)
	case platform.EventDeviceChange:
		if ev.Code == platform.DeviceNodesChanged {
			return w.forwardScreenChange(windowmanager.ReasonDeviceChange)
		}
	case platform.EventCompositorChange:
		return w.forwardScreenChange(windowmanager.ReasonDwmChange)
	}
	return false
}

// forwardScreenChange reports a notification to the reconciler if this is
// the designated window on the primary display. Any window forwards DPI
// changes.
func (w *Window) forwardScreenChange(reason windowmanager.Reason) bool {
	if w.shell.ShuttingDown() {
		return false
	}
	primary := w.Screen().Primary
	if (primary && w.spec.ProcessScreenChanges) || reason == windowmanager.ReasonDpiChange {
		w.reconciler.NotifyDisplayChange(reason)
		return true
	}
	return false
}

func (w *Window) fullScreenAppsChanged(apps []fullscreen.App) {
	found := fullscreen.OnDisplay(apps, w.DisplayName())
	topmost := w.Topmost()

	switch {
	case found && topmost:
		w.setFullScreenMode(true)
	case !found && !topmost:
		w.setFullScreenMode(false)
	}
}

func (w *Window) setFullScreenMode(entering bool) {
	if entering {
		w.logger.Debug("conceding to full-screen app")
		w.mu.Lock()
		w.topmost = false
		w.mu.Unlock()
		if err := w.surface.SetTopmost(false); err != nil {
			w.logger.Debug("failed to lower bar", "error", err)
		}
	} else {
		w.logger.Debug("returning to normal state")
		// raising stays set until the restack shows up as a position change.
		w.mu.Lock()
		w.raising = true
		w.topmost = true
		w.mu.Unlock()
		if err := w.surface.SetTopmost(true); err != nil {
			w.logger.Debug("failed to raise bar", "error", err)
		}
	}
	w.proto.DelaySetPosition()
}

// Raising reports whether the bar is in the middle of reclaiming topmost.
func (w *Window) Raising() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.raising
}
