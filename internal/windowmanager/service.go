package windowmanager

import (
	"fmt"
	"sync"

	"github.com/1broseidon/edgebar/internal/platform"
)

// ManagedWindow is the view of a bar window the manager needs for topology
// diffs and work-area computation.
type ManagedWindow interface {
	DisplayName() string
	Edge() platform.Edge
	DockEnabled() bool
	RequiresScreenEdge() bool
	Closing() bool
	Scale() float64
	// Height is the logical (unscaled) height of the window.
	Height() float64
}

// WindowService owns the windows of one bar kind, at most one per display.
type WindowService interface {
	Name() string
	Initialize(m *Manager)
	Windows() []ManagedWindow
	HandleScreenAdded(display platform.Display)
	HandleScreenRemoved(displayName string)
	RefreshWindows(args EventArgs)
}

// Registry is the ordered set of window services driven by the manager. It
// is populated at startup and read-only once the manager initializes.
type Registry struct {
	mu       sync.RWMutex
	services []WindowService
	sealed   bool
}

// NewRegistry creates a registry holding services in the given order.
func NewRegistry(services ...WindowService) *Registry {
	r := &Registry{}
	for _, s := range services {
		// Registration errors only happen on duplicates, which a literal list
		// of distinct services cannot produce.
		_ = r.Register(s)
	}
	return r
}

// Register appends a service. Names must be unique.
func (r *Registry) Register(s WindowService) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return fmt.Errorf("registry sealed: cannot register %q after initialization", s.Name())
	}
	for _, existing := range r.services {
		if existing.Name() == s.Name() {
			return fmt.Errorf("window service %q already registered", s.Name())
		}
	}
	r.services = append(r.services, s)
	return nil
}

// Services returns the services in registration order.
func (r *Registry) Services() []WindowService {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]WindowService, len(r.services))
	copy(out, r.services)
	return out
}

// Lookup finds a service by name.
func (r *Registry) Lookup(name string) (WindowService, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.services {
		if s.Name() == name {
			return s, true
		}
	}
	return nil, false
}

func (r *Registry) seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// ScreenWindow returns the window in windows that lives on displayName.
func ScreenWindow[T ManagedWindow](windows []T, displayName string) (T, bool) {
	for _, w := range windows {
		if w.DisplayName() == displayName {
			return w, true
		}
	}
	var zero T
	return zero, false
}
