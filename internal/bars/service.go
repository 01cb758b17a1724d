// Package bars provides the bar window services the display manager drives:
// one Service per configured bar kind, holding at most one Window per display.
package bars

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/1broseidon/edgebar/internal/appbar"
	"github.com/1broseidon/edgebar/internal/fullscreen"
	"github.com/1broseidon/edgebar/internal/platform"
	"github.com/1broseidon/edgebar/internal/shell"
	"github.com/1broseidon/edgebar/internal/windowmanager"
)

// Placement selects which displays get a bar.
type Placement string

const (
	PlacementAll       Placement = "all"
	PlacementPrimary   Placement = "primary"
	PlacementSecondary Placement = "secondary"
)

// Allows reports whether a bar with this placement belongs on d.
func (p Placement) Allows(d platform.Display) bool {
	switch p {
	case PlacementPrimary:
		return d.Primary
	case PlacementSecondary:
		return !d.Primary
	default:
		return true
	}
}

// Spec describes one bar kind.
type Spec struct {
	Name                 string
	Edge                 platform.Edge
	Height               float64
	Placement            Placement
	EnableDock           bool
	RequiresScreenEdge   bool
	ProcessScreenChanges bool
	Color                uint32
}

// DockConfig is shared by every bar's dock protocol.
type DockConfig struct {
	Host            appbar.Host
	Registry        *appbar.Registry
	Scheduler       appbar.Scheduler
	Delay           time.Duration
	HideNativeDocks bool
}

// ServiceConfig wires a Service.
type ServiceConfig struct {
	Spec     Spec
	Factory  platform.SurfaceFactory
	Dock     DockConfig
	Shell    *shell.Context
	Observer *fullscreen.Observer
	Router   *Router
	Logger   *slog.Logger
}

// Service owns the bars of one kind.
type Service struct {
	cfg    ServiceConfig
	logger *slog.Logger

	mu         sync.Mutex
	reconciler Reconciler
	displays   func() []platform.Display
	windows    []*Window
}

// NewService creates a service. It opens no windows until the manager adds
// displays.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Spec.Name == "" {
		return nil, fmt.Errorf("bar service requires a name")
	}
	if cfg.Factory == nil {
		return nil, fmt.Errorf("bar service %q requires a surface factory", cfg.Spec.Name)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Dock.Registry == nil {
		cfg.Dock.Registry = appbar.NewRegistry()
	}
	if cfg.Spec.Placement == "" {
		cfg.Spec.Placement = PlacementAll
	}
	return &Service{cfg: cfg, logger: cfg.Logger.With("service", cfg.Spec.Name)}, nil
}

func (s *Service) Name() string { return s.cfg.Spec.Name }

// Initialize binds the service to its manager.
func (s *Service) Initialize(m *windowmanager.Manager) {
	s.bind(m, m.Displays)
}

func (s *Service) bind(r Reconciler, displays func() []platform.Display) {
	s.mu.Lock()
	s.reconciler = r
	s.displays = displays
	s.mu.Unlock()
}

func (s *Service) Windows() []windowmanager.ManagedWindow {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]windowmanager.ManagedWindow, 0, len(s.windows))
	for _, w := range s.windows {
		out = append(out, w)
	}
	return out
}

// Bars returns the service's windows.
func (s *Service) Bars() []*Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Window, len(s.windows))
	copy(out, s.windows)
	return out
}

func (s *Service) HandleScreenAdded(d platform.Display) {
	if !s.cfg.Spec.Placement.Allows(d) {
		return
	}
	s.open(d)
}

func (s *Service) HandleScreenRemoved(name string) {
	s.mu.Lock()
	w, ok := windowmanager.ScreenWindow(s.windows, name)
	s.mu.Unlock()
	if !ok {
		return
	}
	s.close(w)
}

// RefreshWindows pushes fresh display properties into every bar. When the
// topology changed, bars whose display no longer matches the placement are
// destroyed and recreated where they now belong.
func (s *Service) RefreshWindows(args windowmanager.EventArgs) {
	s.mu.Lock()
	displays := s.displays
	s.mu.Unlock()
	if displays == nil {
		return
	}
	snapshot := displays()

	for _, w := range s.Bars() {
		d, ok := platform.FindDisplay(snapshot, w.DisplayName())
		if !ok {
			continue
		}
		if args.DisplaysChanged && !s.cfg.Spec.Placement.Allows(d) {
			s.close(w)
			continue
		}
		w.SetScreen(d)
	}

	if !args.DisplaysChanged || s.cfg.Spec.Placement == PlacementAll {
		return
	}
	for _, d := range snapshot {
		if s.cfg.Spec.Placement.Allows(d) {
			s.open(d)
		}
	}
}

func (s *Service) open(d platform.Display) {
	s.mu.Lock()
	if _, ok := windowmanager.ScreenWindow(s.windows, d.Name); ok {
		s.mu.Unlock()
		return
	}
	reconciler := s.reconciler
	s.mu.Unlock()

	w, err := newWindow(windowConfig{
		spec:       s.cfg.Spec,
		screen:     d,
		factory:    s.cfg.Factory,
		dock:       s.cfg.Dock,
		reconciler: reconciler,
		shell:      s.cfg.Shell,
		observer:   s.cfg.Observer,
		logger:     s.logger,
	})
	if err != nil {
		s.logger.Error("failed to open bar", "display", d.Name, "error", err)
		return
	}

	s.mu.Lock()
	s.windows = append(s.windows, w)
	s.mu.Unlock()
	if s.cfg.Router != nil {
		s.cfg.Router.add(w)
	}
	s.logger.Info("opened bar", "display", d.Name)
}

func (s *Service) close(w *Window) {
	if !w.Close() {
		return
	}
	if s.cfg.Router != nil {
		s.cfg.Router.remove(w)
	}
	s.mu.Lock()
	for i, cur := range s.windows {
		if cur == w {
			s.windows = append(s.windows[:i], s.windows[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	s.logger.Info("closed bar", "display", w.DisplayName())
}

// CloseAll closes every bar. Used at shutdown.
func (s *Service) CloseAll() {
	for _, w := range s.Bars() {
		s.close(w)
	}
}
