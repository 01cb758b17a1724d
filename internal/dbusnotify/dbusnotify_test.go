package dbusnotify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		sig  *dbus.Signal
		want Kind
	}{
		{name: "nil", sig: nil, want: KindNone},
		{name: "monitors changed", sig: &dbus.Signal{Name: "org.gnome.Mutter.DisplayConfig.MonitorsChanged"}, want: KindMonitorsChanged},
		{name: "going to sleep", sig: &dbus.Signal{Name: "org.freedesktop.login1.Manager.PrepareForSleep", Body: []interface{}{true}}, want: KindNone},
		{name: "resumed", sig: &dbus.Signal{Name: "org.freedesktop.login1.Manager.PrepareForSleep", Body: []interface{}{false}}, want: KindResumed},
		{name: "empty body", sig: &dbus.Signal{Name: "org.freedesktop.login1.Manager.PrepareForSleep"}, want: KindNone},
		{name: "unrelated", sig: &dbus.Signal{Name: "org.freedesktop.DBus.NameOwnerChanged"}, want: KindNone},
	}
	for _, tc := range cases {
		if got := Classify(tc.sig); got != tc.want {
			t.Fatalf("%s: Classify = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestServe_NoBusWaitsForContext(t *testing.T) {
	w := NewWatcher(func(Kind) { t.Fatalf("handler must not run") }, slog.New(slog.NewTextHandler(io.Discard, nil)))
	unavailable := func() (*dbus.Conn, error) { return nil, errors.New("no bus") }
	w.connectSession = unavailable
	w.connectSystem = unavailable

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := w.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
