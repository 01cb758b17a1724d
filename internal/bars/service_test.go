package bars

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/edgebar/internal/appbar"
	"github.com/1broseidon/edgebar/internal/fullscreen"
	"github.com/1broseidon/edgebar/internal/platform"
	"github.com/1broseidon/edgebar/internal/shell"
	"github.com/1broseidon/edgebar/internal/windowmanager"
)

type fakeSurface struct {
	id           platform.WindowID
	bounds       platform.Rect
	visible      bool
	topmost      bool
	destroyed    bool
	topmostCalls []bool
}

func (s *fakeSurface) ID() platform.WindowID { return s.id }
func (s *fakeSurface) SetBounds(r platform.Rect) error {
	s.bounds = r
	return nil
}
func (s *fakeSurface) Show() error { s.visible = true; return nil }
func (s *fakeSurface) Hide() error { s.visible = false; return nil }
func (s *fakeSurface) SetTopmost(v bool) error {
	s.topmost = v
	s.topmostCalls = append(s.topmostCalls, v)
	return nil
}
func (s *fakeSurface) Destroy() error { s.destroyed = true; return nil }

type fakeFactory struct {
	mu       sync.Mutex
	next     platform.WindowID
	surfaces []*fakeSurface
}

func (f *fakeFactory) CreateSurface(opts platform.SurfaceOptions) (platform.Surface, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	s := &fakeSurface{id: 0x200000 + f.next, bounds: opts.Bounds, topmost: true}
	f.surfaces = append(f.surfaces, s)
	return s, nil
}

func (f *fakeFactory) created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.surfaces)
}

type fakeSource struct {
	mu       sync.Mutex
	displays []platform.Display
}

func (s *fakeSource) set(displays ...platform.Display) {
	s.mu.Lock()
	s.displays = displays
	s.mu.Unlock()
}

func (s *fakeSource) Displays() ([]platform.Display, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]platform.Display, len(s.displays))
	copy(out, s.displays)
	return out, nil
}

type noopHost struct{}

func (noopHost) RegisterBar(platform.WindowID, platform.Edge) (uint32, error) { return 1, nil }
func (noopHost) UnregisterBar(platform.WindowID) error                         { return nil }
func (noopHost) SetPos(_ platform.WindowID, edge platform.Edge, screen platform.Rect, w, h int) (platform.Rect, error) {
	return appbar.EdgeRect(screen, edge, w, h), nil
}
func (noopHost) Activate(platform.WindowID) error         { return nil }
func (noopHost) WindowPosChanged(platform.WindowID) error { return nil }
func (noopHost) HideNativeDocks() error                   { return nil }

type nopScheduler struct{}

func (nopScheduler) AfterFunc(time.Duration, func()) *time.Timer { return time.NewTimer(time.Hour) }

type fakeReconciler struct {
	setting bool
	reasons []windowmanager.Reason
}

func (r *fakeReconciler) NotifyDisplayChange(reason windowmanager.Reason) {
	r.reasons = append(r.reasons, reason)
}
func (r *fakeReconciler) IsSettingDisplays() bool { return r.setting }

func testDisplay(name string, x int, primary bool) platform.Display {
	b := platform.Rect{X: x, Width: 1920, Height: 1080}
	return platform.Display{Name: name, Bounds: b, WorkArea: b, Primary: primary, Scale: 1}
}

type harness struct {
	src      *fakeSource
	factory  *fakeFactory
	observer *fullscreen.Observer
	router   *Router
	shell    *shell.Context
	manager  *windowmanager.Manager
	services []*Service
}

func newHarness(t *testing.T, specs ...Spec) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &harness{
		src:      &fakeSource{},
		factory:  &fakeFactory{},
		observer: fullscreen.NewObserver(),
		router:   NewRouter(),
		shell:    shell.NewContext(shell.ModeOff, true),
	}
	registry := windowmanager.NewRegistry()
	dock := DockConfig{Host: noopHost{}, Registry: appbar.NewRegistry(), Scheduler: nopScheduler{}}
	for _, spec := range specs {
		svc, err := NewService(ServiceConfig{
			Spec:     spec,
			Factory:  h.factory,
			Dock:     dock,
			Shell:    h.shell,
			Observer: h.observer,
			Router:   h.router,
			Logger:   logger,
		})
		if err != nil {
			t.Fatalf("NewService: %v", err)
		}
		if err := registry.Register(svc); err != nil {
			t.Fatalf("Register: %v", err)
		}
		h.services = append(h.services, svc)
	}
	m, err := windowmanager.New(windowmanager.Config{
		Displays: h.src,
		Shell:    h.shell,
		Registry: registry,
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("windowmanager.New: %v", err)
	}
	h.manager = m
	return h
}

var (
	menubar = Spec{Name: "menubar", Edge: platform.EdgeTop, Height: 24, Placement: PlacementAll, EnableDock: true, ProcessScreenChanges: true}
	taskbar = Spec{Name: "taskbar", Edge: platform.EdgeBottom, Height: 32, Placement: PlacementAll, EnableDock: true}
)

func TestSecondDisplayAdded_OneWindowPerServiceAndRefresh(t *testing.T) {
	h := newHarness(t, menubar, taskbar)
	h.src.set(testDisplay("DP-1", 0, true))
	h.manager.Initialize()

	before := make(map[string]*Window)
	for _, svc := range h.services {
		bars := svc.Bars()
		if len(bars) != 1 {
			t.Fatalf("%s: expected 1 bar, got %d", svc.Name(), len(bars))
		}
		before[svc.Name()] = bars[0]
	}

	h.src.set(testDisplay("DP-1", 0, true), testDisplay("DP-2", 1920, false))
	h.manager.NotifyDisplayChange(windowmanager.ReasonDisplayChange)

	for _, svc := range h.services {
		bars := svc.Bars()
		if len(bars) != 2 {
			t.Fatalf("%s: expected 2 bars, got %d", svc.Name(), len(bars))
		}
		w, ok := windowmanager.ScreenWindow(bars, "DP-1")
		if !ok || w != before[svc.Name()] {
			t.Fatalf("%s: DP-1 bar was recreated", svc.Name())
		}
		if _, ok := windowmanager.ScreenWindow(bars, "DP-2"); !ok {
			t.Fatalf("%s: expected DP-2 bar", svc.Name())
		}
	}
	if got := h.factory.created(); got != 4 {
		t.Fatalf("expected 4 surfaces total, got %d", got)
	}
}

func TestDisplayRemoved_DestroysBars(t *testing.T) {
	h := newHarness(t, menubar)
	h.src.set(testDisplay("DP-1", 0, true), testDisplay("DP-2", 1920, false))
	h.manager.Initialize()

	h.src.set(testDisplay("DP-1", 0, true))
	h.manager.NotifyDisplayChange(windowmanager.ReasonDeviceChange)

	bars := h.services[0].Bars()
	if len(bars) != 1 || bars[0].DisplayName() != "DP-1" {
		t.Fatalf("expected only DP-1 bar, got %d", len(bars))
	}
	destroyed := 0
	for _, s := range h.factory.surfaces {
		if s.destroyed {
			destroyed++
		}
	}
	if destroyed != 1 {
		t.Fatalf("expected one destroyed surface, got %d", destroyed)
	}
	if h.router.Owns(h.factory.surfaces[1].id) {
		t.Fatalf("expected destroyed bar removed from router")
	}
}

func TestPrimaryPlacement_FollowsPrimaryDisplay(t *testing.T) {
	primaryOnly := taskbar
	primaryOnly.Placement = PlacementPrimary
	h := newHarness(t, menubar, primaryOnly)
	h.src.set(testDisplay("DP-1", 0, true), testDisplay("DP-2", 1920, false))
	h.manager.Initialize()

	task := h.services[1]
	if bars := task.Bars(); len(bars) != 1 || bars[0].DisplayName() != "DP-1" {
		t.Fatalf("expected taskbar only on DP-1")
	}

	h.src.set(testDisplay("DP-1", 0, false), testDisplay("DP-2", 1920, true))
	h.manager.NotifyDisplayChange(windowmanager.ReasonDisplayChange)

	bars := task.Bars()
	if len(bars) != 1 || bars[0].DisplayName() != "DP-2" {
		t.Fatalf("expected taskbar moved to DP-2, got %d bars", len(bars))
	}
	if got := len(h.services[0].Bars()); got != 2 {
		t.Fatalf("expected menubar untouched on both displays, got %d", got)
	}
}

func TestFullScreen_ConcedeAndReclaim(t *testing.T) {
	h := newHarness(t, menubar)
	h.src.set(testDisplay("DP-1", 0, true), testDisplay("DP-2", 1920, false))
	h.manager.Initialize()

	bars := h.services[0].Bars()
	dp1, _ := windowmanager.ScreenWindow(bars, "DP-1")
	dp2, _ := windowmanager.ScreenWindow(bars, "DP-2")

	h.observer.Set([]fullscreen.App{{Window: 0x900001, Display: "DP-1"}})
	if dp1.Topmost() {
		t.Fatalf("expected DP-1 bar to concede")
	}
	if !dp2.Topmost() {
		t.Fatalf("expected DP-2 bar to stay topmost")
	}
	surface := h.factory.surfaces[0]
	if surface.topmost {
		t.Fatalf("expected DP-1 surface lowered")
	}

	h.observer.Set(nil)
	if !dp1.Topmost() || !surface.topmost {
		t.Fatalf("expected DP-1 bar to reclaim topmost")
	}
	if !dp1.Raising() {
		t.Fatalf("expected raising flag until restack")
	}

	calls := len(surface.topmostCalls)
	h.router.Dispatch(platform.Event{Type: platform.EventPosChanging, Window: dp1.ID(), ZOrderChanging: true})
	if dp1.Raising() {
		t.Fatalf("expected raising cleared by restack")
	}
	if len(surface.topmostCalls) != calls+1 || !surface.topmostCalls[calls] {
		t.Fatalf("expected restack to force topmost")
	}
}

func TestClose_CancelledOutsideSetupAndShutdown(t *testing.T) {
	h := newHarness(t, menubar)
	h.src.set(testDisplay("DP-1", 0, true))
	h.manager.Initialize()

	w := h.services[0].Bars()[0]
	if w.Close() {
		t.Fatalf("expected close to be refused")
	}
	if w.Closing() {
		t.Fatalf("expected closing flag reset after refusal")
	}

	h.shell.BeginShutdown()
	if !w.Close() {
		t.Fatalf("expected close during shutdown")
	}
	if !h.factory.surfaces[0].destroyed {
		t.Fatalf("expected surface destroyed")
	}
}

func TestForwardScreenChange_DesignatedPrimaryWindow(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sh := shell.NewContext(shell.ModeOff, true)
	router := NewRouter()
	factory := &fakeFactory{}
	rec := &fakeReconciler{}
	dock := DockConfig{Host: noopHost{}, Registry: appbar.NewRegistry(), Scheduler: nopScheduler{}}

	var services []*Service
	for _, spec := range []Spec{menubar, taskbar} {
		svc, err := NewService(ServiceConfig{Spec: spec, Factory: factory, Dock: dock, Shell: sh, Router: router, Logger: logger})
		if err != nil {
			t.Fatalf("NewService: %v", err)
		}
		svc.bind(rec, func() []platform.Display { return nil })
		svc.HandleScreenAdded(testDisplay("DP-1", 0, true))
		svc.HandleScreenAdded(testDisplay("DP-2", 1920, false))
		services = append(services, svc)
	}

	if !router.Dispatch(platform.Event{Type: platform.EventDisplayChange}) {
		t.Fatalf("expected display change reported as forwarded")
	}
	if len(rec.reasons) != 1 || rec.reasons[0] != windowmanager.ReasonDisplayChange {
		t.Fatalf("expected one display change from designated window, got %v", rec.reasons)
	}

	rec.reasons = nil
	router.Dispatch(platform.Event{Type: platform.EventDeviceChange, Code: 0x0003})
	if len(rec.reasons) != 0 {
		t.Fatalf("expected other device change codes ignored")
	}

	router.Dispatch(platform.Event{Type: platform.EventDPIChanged, DPI: 192})
	if len(rec.reasons) != 1 || rec.reasons[0] != windowmanager.ReasonDpiChange {
		t.Fatalf("expected one dpi change per broadcast, got %v", rec.reasons)
	}
	for _, svc := range services {
		for _, w := range svc.Bars() {
			if got := w.Scale(); got != 2 {
				t.Fatalf("expected scale 2 on every bar after dpi change, got %v", got)
			}
		}
	}

	rec.reasons = nil
	sh.BeginShutdown()
	router.Dispatch(platform.Event{Type: platform.EventDisplayChange})
	if len(rec.reasons) != 0 {
		t.Fatalf("expected no forwarding during shutdown")
	}
}

func TestDockRegistration_OnlyWhenNotShell(t *testing.T) {
	h := newHarness(t, menubar)
	h.src.set(testDisplay("DP-1", 0, true))
	h.manager.Initialize()

	w := h.services[0].Bars()[0]
	if w.DockState() != appbar.StateRegistered {
		t.Fatalf("expected dock registration when another shell is present, got %v", w.DockState())
	}
}

func newRoutedServices(t *testing.T, rec *fakeReconciler, specs []Spec, displays ...platform.Display) *Router {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sh := shell.NewContext(shell.ModeOff, true)
	router := NewRouter()
	factory := &fakeFactory{}
	dock := DockConfig{Host: noopHost{}, Registry: appbar.NewRegistry(), Scheduler: nopScheduler{}}
	for _, spec := range specs {
		svc, err := NewService(ServiceConfig{Spec: spec, Factory: factory, Dock: dock, Shell: sh, Router: router, Logger: logger})
		if err != nil {
			t.Fatalf("NewService: %v", err)
		}
		svc.bind(rec, func() []platform.Display { return displays })
		for _, d := range displays {
			svc.HandleScreenAdded(d)
		}
	}
	return router
}

func TestDispatch_UnforwardedTopologyEvents(t *testing.T) {
	tests := []struct {
		name     string
		specs    []Spec
		displays []platform.Display
	}{
		{"no primary display", []Spec{menubar, taskbar}, []platform.Display{testDisplay("DP-1", 0, false), testDisplay("DP-2", 1920, false)}},
		{"no designated bar", []Spec{taskbar}, []platform.Display{testDisplay("DP-1", 0, true)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeReconciler{}
			router := newRoutedServices(t, rec, tt.specs, tt.displays...)

			for _, ev := range []platform.Event{
				{Type: platform.EventDisplayChange},
				{Type: platform.EventDeviceChange, Code: platform.DeviceNodesChanged},
				{Type: platform.EventCompositorChange},
			} {
				if router.Dispatch(ev) {
					t.Fatalf("%v: expected no bar to forward", ev.Type)
				}
			}
			if len(rec.reasons) != 0 {
				t.Fatalf("expected nothing forwarded, got %v", rec.reasons)
			}

			if !router.Dispatch(platform.Event{Type: platform.EventDPIChanged, DPI: 144}) {
				t.Fatalf("expected dpi change forwarded by some bar")
			}
		})
	}
}
