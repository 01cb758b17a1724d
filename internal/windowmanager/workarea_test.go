package windowmanager

import (
	"testing"

	"github.com/1broseidon/edgebar/internal/platform"
)

func TestWorkArea_TopAndBottomBars(t *testing.T) {
	src := &fakeSource{}
	d := display("DP-1", 0, true)
	src.set(d)
	m, _ := newTestManager(t, src, true,
		newFakeService("menubar", platform.EdgeTop, 40),
		newFakeService("taskbar", platform.EdgeBottom, 30),
	)
	m.Initialize()

	got, scale := m.WorkArea(d, false, false)
	want := platform.Rect{X: 0, Y: 40, Width: 1920, Height: 1080 - 40 - 30}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	if scale != 1 {
		t.Fatalf("expected scale 1, got %v", scale)
	}
}

func TestWorkArea_ScalesByWindowDPI(t *testing.T) {
	src := &fakeSource{}
	d := display("DP-1", 0, true)
	d.Scale = 1.5
	src.set(d)
	m, _ := newTestManager(t, src, true, newFakeService("menubar", platform.EdgeTop, 24))
	m.Initialize()

	got, scale := m.WorkArea(d, false, false)
	if scale != 1.5 {
		t.Fatalf("expected scale 1.5, got %v", scale)
	}
	if got.Y != 36 || got.Height != 1080-36 {
		t.Fatalf("unexpected scaled work area %+v", got)
	}
}

func TestWorkArea_Filters(t *testing.T) {
	src := &fakeSource{}
	d := display("DP-1", 0, true)
	src.set(d)
	menubar := newFakeService("menubar", platform.EdgeTop, 24)
	taskbar := newFakeService("taskbar", platform.EdgeBottom, 32)
	m, _ := newTestManager(t, src, true, menubar, taskbar)
	m.Initialize()

	menubar.windows[0].dock = false
	taskbar.windows[0].edgeOnly = false

	cases := []struct {
		name            string
		edgeOnly        bool
		enabledOnly     bool
		wantTop, wantBt int
	}{
		{name: "no filters", wantTop: 24, wantBt: 32},
		{name: "enabled only", enabledOnly: true, wantTop: 0, wantBt: 32},
		{name: "edge only", edgeOnly: true, wantTop: 24, wantBt: 0},
		{name: "both", edgeOnly: true, enabledOnly: true, wantTop: 0, wantBt: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, _ := m.WorkArea(d, tc.edgeOnly, tc.enabledOnly)
			if got.Y != tc.wantTop || got.Height != 1080-tc.wantTop-tc.wantBt {
				t.Fatalf("expected top %d bottom %d, got %+v", tc.wantTop, tc.wantBt, got)
			}
		})
	}
}

func TestSetWorkArea_PublishedOnlyAsShell(t *testing.T) {
	for _, isShell := range []bool{true, false} {
		src := &fakeSource{}
		src.set(display("DP-1", 0, true), display("DP-2", 1920, false))
		m, pub := newTestManager(t, src, isShell, newFakeService("menubar", platform.EdgeTop, 24))
		m.Initialize()

		if isShell && len(pub.areas) != 2 {
			t.Fatalf("expected work areas for both displays, got %+v", pub.areas)
		}
		if !isShell && len(pub.areas) != 0 {
			t.Fatalf("expected no work areas when not shell, got %+v", pub.areas)
		}
		if isShell {
			if got := pub.areas["DP-2"]; got.X != 1920 || got.Y != 24 {
				t.Fatalf("unexpected DP-2 work area %+v", got)
			}
		}
	}
}

func TestResetWorkArea(t *testing.T) {
	src := &fakeSource{}
	src.set(display("DP-1", 0, true))
	m, pub := newTestManager(t, src, true)
	pub.virtual = platform.Rect{Width: 3840, Height: 1080}

	m.ResetWorkArea()
	if len(pub.reset) != 1 || pub.reset[0] != pub.virtual {
		t.Fatalf("expected reset to virtual screen, got %+v", pub.reset)
	}

	m2, pub2 := newTestManager(t, src, false)
	m2.ResetWorkArea()
	if len(pub2.reset) != 0 {
		t.Fatalf("expected no reset when not shell")
	}
}

func TestPrimaryMonitorSize(t *testing.T) {
	src := &fakeSource{}
	src.set(display("DP-2", 0, false), display("DP-1", 1920, true))
	m, _ := newTestManager(t, src, false)
	m.Initialize()

	w, h, ok := m.PrimaryMonitorSize()
	if !ok || w != 1920 || h != 1080 {
		t.Fatalf("unexpected primary size %dx%d ok=%v", w, h, ok)
	}
}
