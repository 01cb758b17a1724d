package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/1broseidon/edgebar/internal/ipc"
)

type fakeDaemon struct {
	status   *ipc.StatusData
	displays *ipc.DisplaysData
	history  *ipc.HistoryData
	ran      bool
	err      error

	refreshes    int
	historyLimit int
}

func (f *fakeDaemon) GetStatus() (*ipc.StatusData, error) { return f.status, f.err }

func (f *fakeDaemon) GetDisplays() (*ipc.DisplaysData, error) { return f.displays, f.err }

func (f *fakeDaemon) Refresh() (bool, error) {
	f.refreshes++
	return f.ran, f.err
}

func (f *fakeDaemon) GetHistory(limit int) (*ipc.HistoryData, error) {
	f.historyLimit = limit
	return f.history, f.err
}

func TestGetStatus(t *testing.T) {
	last := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	d := &fakeDaemon{status: &ipc.StatusData{
		Version:       "1.2.3",
		UptimeSeconds: 90,
		IsShell:       true,
		SetupComplete: true,
		Passes:        4,
		LastPass:      last,
		DisplayCount:  2,
		Bars: []ipc.BarInfo{
			{Service: "menubar", Display: "eDP-1", Window: 0x400001, Dock: "registered", Topmost: true},
		},
	}}
	s := NewServer(d, nil)

	_, out, err := s.handleGetStatus(context.Background(), nil, GetStatusInput{})
	if err != nil {
		t.Fatalf("handleGetStatus: %v", err)
	}
	if out.Version != "1.2.3" || !out.IsShell || out.Passes != 4 || out.DisplayCount != 2 {
		t.Fatalf("unexpected status: %+v", out)
	}
	if out.Uptime != "1m30s" {
		t.Fatalf("expected uptime 1m30s, got %q", out.Uptime)
	}
	if out.LastPass != "2026-05-04T10:00:00Z" {
		t.Fatalf("unexpected last pass: %v", out.LastPass)
	}
	if len(out.Bars) != 1 || out.Bars[0].Service != "menubar" || out.Bars[0].Window != 0x400001 {
		t.Fatalf("unexpected bars: %+v", out.Bars)
	}
}

func TestGetStatus_NoLastPass(t *testing.T) {
	s := NewServer(&fakeDaemon{status: &ipc.StatusData{}}, nil)
	_, out, err := s.handleGetStatus(context.Background(), nil, GetStatusInput{})
	if err != nil {
		t.Fatalf("handleGetStatus: %v", err)
	}
	if out.LastPass != "" {
		t.Fatalf("expected no last pass, got %v", out.LastPass)
	}
	if out.Bars == nil {
		t.Fatalf("bars should be an empty list, not nil")
	}
}

func TestListDisplays(t *testing.T) {
	d := &fakeDaemon{displays: &ipc.DisplaysData{Displays: []ipc.DisplayInfo{
		{Name: "eDP-1", Primary: true, Width: 1920, Height: 1080, WorkArea: [4]int{0, 24, 1920, 1024}, Scale: 1},
		{Name: "HDMI-1", X: 1920, Width: 2560, Height: 1440, WorkArea: [4]int{1920, 24, 2560, 1416}, Scale: 1.5},
	}}}
	s := NewServer(d, nil)

	_, out, err := s.handleListDisplays(context.Background(), nil, ListDisplaysInput{})
	if err != nil {
		t.Fatalf("handleListDisplays: %v", err)
	}
	if len(out.Displays) != 2 {
		t.Fatalf("expected 2 displays, got %d", len(out.Displays))
	}
	if out.Displays[1].Bounds != "2560x1440+1920+0" {
		t.Fatalf("unexpected bounds: %q", out.Displays[1].Bounds)
	}
	if out.Displays[0].WorkArea != "1920x1024+0+24" {
		t.Fatalf("unexpected work area: %q", out.Displays[0].WorkArea)
	}

	_, out, err = s.handleListDisplays(context.Background(), nil, ListDisplaysInput{PrimaryOnly: true})
	if err != nil {
		t.Fatalf("handleListDisplays primary: %v", err)
	}
	if len(out.Displays) != 1 || out.Displays[0].Name != "eDP-1" {
		t.Fatalf("expected only eDP-1, got %+v", out.Displays)
	}
}

func TestRefreshDisplays(t *testing.T) {
	tests := []struct {
		name string
		ran  bool
		want string
	}{
		{"ran", true, "display pass completed"},
		{"queued", false, "a display pass was already running; refresh queued"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDaemon{ran: tt.ran}
			s := NewServer(d, nil)
			_, out, err := s.handleRefreshDisplays(context.Background(), nil, RefreshDisplaysInput{})
			if err != nil {
				t.Fatalf("handleRefreshDisplays: %v", err)
			}
			if out.Ran != tt.ran || out.Message != tt.want {
				t.Fatalf("unexpected output: %+v", out)
			}
			if d.refreshes != 1 {
				t.Fatalf("expected one refresh, got %d", d.refreshes)
			}
		})
	}
}

func TestGetHistory(t *testing.T) {
	started := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	d := &fakeDaemon{history: &ipc.HistoryData{Passes: []ipc.PassInfo{
		{Reason: "display-change", Outcome: "applied", Started: started, Duration: "2ms", Added: []string{"HDMI-1"}},
	}}}
	s := NewServer(d, nil)

	_, out, err := s.handleGetHistory(context.Background(), nil, GetHistoryInput{})
	if err != nil {
		t.Fatalf("handleGetHistory: %v", err)
	}
	if d.historyLimit != defaultHistoryLimit {
		t.Fatalf("expected default limit, got %d", d.historyLimit)
	}
	if len(out.Passes) != 1 || out.Passes[0].Started != "2026-05-04T10:00:00Z" {
		t.Fatalf("unexpected passes: %+v", out.Passes)
	}

	if _, _, err := s.handleGetHistory(context.Background(), nil, GetHistoryInput{Limit: 5000}); err != nil {
		t.Fatalf("handleGetHistory: %v", err)
	}
	if d.historyLimit != maxHistoryLimit {
		t.Fatalf("expected clamped limit %d, got %d", maxHistoryLimit, d.historyLimit)
	}
}

func TestDaemonErrors(t *testing.T) {
	d := &fakeDaemon{err: errors.New("daemon not running")}
	s := NewServer(d, nil)
	ctx := context.Background()

	if _, _, err := s.handleGetStatus(ctx, nil, GetStatusInput{}); err == nil {
		t.Fatalf("expected status error")
	}
	if _, _, err := s.handleListDisplays(ctx, nil, ListDisplaysInput{}); err == nil {
		t.Fatalf("expected displays error")
	}
	if _, _, err := s.handleRefreshDisplays(ctx, nil, RefreshDisplaysInput{}); err == nil {
		t.Fatalf("expected refresh error")
	}
	if _, _, err := s.handleGetHistory(ctx, nil, GetHistoryInput{}); err == nil {
		t.Fatalf("expected history error")
	}
}
