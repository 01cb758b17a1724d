// Package loop provides the single logical UI goroutine that owns every bar
// window. Event sources post work onto it instead of touching windows directly.
package loop

import (
	"context"
	"log/slog"
	"time"
)

// Loop runs posted functions one at a time on a single goroutine.
type Loop struct {
	queue  chan func()
	done   chan struct{}
	logger *slog.Logger
}

// New creates a loop with the given queue depth.
func New(depth int, logger *slog.Logger) *Loop {
	if depth <= 0 {
		depth = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		queue:  make(chan func(), depth),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Post queues fn. It returns false if the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.queue <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Call runs fn on the loop and waits for it to finish.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return context.Canceled
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AfterFunc posts fn onto the loop once d has elapsed. The returned timer can
// be stopped before it fires.
func (l *Loop) AfterFunc(d time.Duration, fn func()) *time.Timer {
	return time.AfterFunc(d, func() {
		l.Post(fn)
	})
}

// Serve drains the queue until ctx is cancelled.
func (l *Loop) Serve(ctx context.Context) error {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.queue:
			l.run(fn)
		}
	}
}

func (l *Loop) run(fn func()) {
	defer func() {
		if err := recover(); err != nil {
			l.logger.Error("ui loop task panic recovered", "error", err)
		}
	}()
	fn()
}

func (l *Loop) String() string { return "ui-loop" }
