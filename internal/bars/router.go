package bars

import (
	"sync"

	"github.com/1broseidon/edgebar/internal/platform"
)

// Router delivers window-system events to bars.
type Router struct {
	mu      sync.Mutex
	windows map[platform.WindowID]*Window
	order   []platform.WindowID
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{windows: make(map[platform.WindowID]*Window)}
}

func (r *Router) add(w *Window) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := w.ID()
	if _, ok := r.windows[id]; !ok {
		r.order = append(r.order, id)
	}
	r.windows[id] = w
}

func (r *Router) remove(w *Window) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := w.ID()
	delete(r.windows, id)
	for i, cur := range r.order {
		if cur == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Owns reports whether id is one of our bars.
func (r *Router) Owns(id platform.WindowID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.windows[id]
	return ok
}

// Dispatch sends ev to its target bar, or to every bar when ev.Window is
// zero. It reports whether any bar forwarded ev to the reconciler. A
// broadcast DPI change is forwarded by the first bar only.
func (r *Router) Dispatch(ev platform.Event) (forwarded bool) {
	r.mu.Lock()
	var targets []*Window
	if ev.Window != 0 {
		if w, ok := r.windows[ev.Window]; ok {
			targets = append(targets, w)
		}
	} else {
		for _, id := range r.order {
			targets = append(targets, r.windows[id])
		}
	}
	r.mu.Unlock()

	for _, w := range targets {
		forwardDPI := ev.Type != platform.EventDPIChanged || !forwarded
		if w.handle(ev, forwardDPI) {
			forwarded = true
		}
	}
	return forwarded
}
