// Package dbusnotify turns desktop D-Bus signals into display notifications.
//
// Some compositors reconfigure outputs without a RandR event reaching X
// clients promptly, and outputs can change while the machine sleeps. Mutter's
// MonitorsChanged (session bus) and logind's PrepareForSleep(false) (system
// bus) cover those cases.
package dbusnotify

import (
	"context"
	"log/slog"

	"github.com/godbus/dbus/v5"
)

const (
	mutterDisplayConfigInterface = "org.gnome.Mutter.DisplayConfig"
	mutterMonitorsChanged        = "MonitorsChanged"
	logindManagerInterface       = "org.freedesktop.login1.Manager"
	logindPrepareForSleep        = "PrepareForSleep"
)

// Kind classifies a received signal.
type Kind int

const (
	KindNone Kind = iota
	// KindMonitorsChanged: the compositor changed the output layout.
	KindMonitorsChanged
	// KindResumed: the system woke from sleep.
	KindResumed
)

func (k Kind) String() string {
	switch k {
	case KindMonitorsChanged:
		return "monitors-changed"
	case KindResumed:
		return "resumed"
	default:
		return "none"
	}
}

// Classify maps a D-Bus signal to a Kind.
func Classify(sig *dbus.Signal) Kind {
	if sig == nil {
		return KindNone
	}
	switch sig.Name {
	case mutterDisplayConfigInterface + "." + mutterMonitorsChanged:
		return KindMonitorsChanged
	case logindManagerInterface + "." + logindPrepareForSleep:
		if len(sig.Body) == 0 {
			return KindNone
		}
		// true = about to sleep, false = resumed.
		if sleeping, ok := sig.Body[0].(bool); ok && !sleeping {
			return KindResumed
		}
	}
	return KindNone
}

// Watcher listens on the session and system buses.
type Watcher struct {
	handler func(Kind)
	logger  *slog.Logger

	// Overridable for tests.
	connectSession func() (*dbus.Conn, error)
	connectSystem  func() (*dbus.Conn, error)
}

// NewWatcher creates a watcher that calls handler for every classified
// signal. Handler runs on the Serve goroutine.
func NewWatcher(handler func(Kind), logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		handler:        handler,
		logger:         logger,
		connectSession: func() (*dbus.Conn, error) { return dbus.ConnectSessionBus() },
		connectSystem:  func() (*dbus.Conn, error) { return dbus.ConnectSystemBus() },
	}
}

// Serve subscribes and dispatches signals until ctx is done. A bus that is
// unavailable is skipped; with neither bus, Serve just waits for ctx.
func (w *Watcher) Serve(ctx context.Context) error {
	signals := make(chan *dbus.Signal, 16)

	var conns []*dbus.Conn
	defer func() {
		for _, c := range conns {
			c.RemoveSignal(signals)
			c.Close()
		}
	}()

	if c := w.subscribe("session", w.connectSession, signals,
		dbus.WithMatchInterface(mutterDisplayConfigInterface),
		dbus.WithMatchMember(mutterMonitorsChanged),
	); c != nil {
		conns = append(conns, c)
	}
	if c := w.subscribe("system", w.connectSystem, signals,
		dbus.WithMatchInterface(logindManagerInterface),
		dbus.WithMatchMember(logindPrepareForSleep),
	); c != nil {
		conns = append(conns, c)
	}

	if len(conns) == 0 {
		w.logger.Warn("no D-Bus connection; compositor and resume notifications disabled")
		<-ctx.Done()
		return ctx.Err()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig, ok := <-signals:
			if !ok {
				return nil
			}
			kind := Classify(sig)
			if kind == KindNone {
				continue
			}
			w.logger.Debug("D-Bus notification", "kind", kind, "signal", sig.Name)
			if w.handler != nil {
				w.handler(kind)
			}
		}
	}
}

func (w *Watcher) String() string { return "dbus-notify" }

func (w *Watcher) subscribe(bus string, connect func() (*dbus.Conn, error), signals chan *dbus.Signal, opts ...dbus.MatchOption) *dbus.Conn {
	if connect == nil {
		return nil
	}
	conn, err := connect()
	if err != nil {
		w.logger.Info("D-Bus bus unavailable", "bus", bus, "error", err)
		return nil
	}
	if err := conn.AddMatchSignal(opts...); err != nil {
		w.logger.Warn("D-Bus match failed", "bus", bus, "error", err)
		conn.Close()
		return nil
	}
	conn.Signal(signals)
	return conn
}
