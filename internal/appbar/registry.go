// Package appbar implements the dock registration protocol that lets a bar
// reserve a strip along a screen edge.
package appbar

import (
	"sync"

	"github.com/1broseidon/edgebar/internal/platform"
)

// Registry maps registered bar windows to the callback message id the host
// assigned them. An entry exists only while the window reserves edge space.
type Registry struct {
	mu   sync.Mutex
	bars map[platform.WindowID]uint32
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{bars: make(map[platform.WindowID]uint32)}
}

func (r *Registry) add(id platform.WindowID, msg uint32) {
	r.mu.Lock()
	r.bars[id] = msg
	r.mu.Unlock()
}

func (r *Registry) remove(id platform.WindowID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bars[id]; !ok {
		return false
	}
	delete(r.bars, id)
	return true
}

// Message returns the callback message id of a registered window.
func (r *Registry) Message(id platform.WindowID) (uint32, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.bars[id]
	return msg, ok
}

// Contains reports whether id is registered.
func (r *Registry) Contains(id platform.WindowID) bool {
	_, ok := r.Message(id)
	return ok
}

// Len returns the number of registered windows.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bars)
}
