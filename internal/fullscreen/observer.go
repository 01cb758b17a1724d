// Package fullscreen tracks applications that cover a whole display so bars
// on that display can step out of the way.
package fullscreen

import (
	"slices"
	"sync"

	"github.com/1broseidon/edgebar/internal/platform"
)

// App is a full-screen client window and the display it occupies.
type App struct {
	Window  platform.WindowID
	Title   string
	Display string
}

// Observer holds the current set of full-screen apps.
type Observer struct {
	mu     sync.Mutex
	apps   []App
	nextID int
	subs   map[int]func([]App)
}

// NewObserver creates an empty observer.
func NewObserver() *Observer {
	return &Observer{subs: make(map[int]func([]App))}
}

// Apps returns a copy of the current set.
func (o *Observer) Apps() []App {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.apps)
}

// OnDisplay reports whether any full-screen app occupies display.
func (o *Observer) OnDisplay(display string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return onDisplay(o.apps, display)
}

// Set replaces the set. Subscribers are notified synchronously, in
// subscription order, only if the set changed. It returns whether it changed.
func (o *Observer) Set(apps []App) bool {
	next := slices.Clone(apps)
	slices.SortFunc(next, func(a, b App) int {
		switch {
		case a.Window < b.Window:
			return -1
		case a.Window > b.Window:
			return 1
		}
		return 0
	})

	o.mu.Lock()
	if slices.Equal(o.apps, next) {
		o.mu.Unlock()
		return false
	}
	o.apps = next
	ids := make([]int, 0, len(o.subs))
	for id := range o.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	subs := make([]func([]App), 0, len(ids))
	for _, id := range ids {
		subs = append(subs, o.subs[id])
	}
	o.mu.Unlock()

	for _, fn := range subs {
		fn(slices.Clone(next))
	}
	return true
}

// Subscribe registers fn for change notifications.
func (o *Observer) Subscribe(fn func([]App)) (unsubscribe func()) {
	o.mu.Lock()
	id := o.nextID
	o.nextID++
	o.subs[id] = fn
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		delete(o.subs, id)
		o.mu.Unlock()
	}
}

// OnDisplay reports whether apps contains one on display.
func OnDisplay(apps []App, display string) bool {
	return onDisplay(apps, display)
}

func onDisplay(apps []App, display string) bool {
	for _, a := range apps {
		if a.Display == display {
			return true
		}
	}
	return false
}
