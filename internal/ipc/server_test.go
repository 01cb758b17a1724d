package ipc

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

type fakeDaemon struct {
	mu        sync.Mutex
	refreshes int
	reloads   int
	limit     int
	reloadErr error
}

func (d *fakeDaemon) Status() StatusData {
	return StatusData{Version: "test", SetupComplete: true, Passes: 3, DisplayCount: 2}
}

func (d *fakeDaemon) Displays() ([]DisplayInfo, error) {
	return []DisplayInfo{
		{ID: 0, Name: "DP-1", Primary: true, Width: 1920, Height: 1080, WorkArea: [4]int{0, 24, 1920, 1024}, Scale: 1},
		{ID: 1, Name: "HDMI-1", X: 1920, Width: 1280, Height: 1024, Scale: 1},
	}, nil
}

func (d *fakeDaemon) Refresh() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.refreshes++
	return true, nil
}

func (d *fakeDaemon) Reload() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reloads++
	return d.reloadErr
}

func (d *fakeDaemon) History(limit int) ([]PassInfo, error) {
	d.mu.Lock()
	d.limit = limit
	d.mu.Unlock()
	return []PassInfo{{ID: "a", Reason: "display-change", Outcome: "applied", Added: []string{"HDMI-1"}}}, nil
}

func startServer(t *testing.T, d Daemon) (*Server, *Client) {
	t.Helper()
	// Unix socket paths are length-limited; keep the directory short.
	dir, err := os.MkdirTemp("", "ebipc")
	if err != nil {
		t.Fatalf("mkdtemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	path := filepath.Join(dir, "s.sock")
	srv := NewServerAt(path, d, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := srv.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(srv.Stop)
	return srv, NewClientAt(path)
}

func TestServer_StatusAndDisplays(t *testing.T) {
	_, client := startServer(t, &fakeDaemon{})

	status, err := client.GetStatus()
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Version != "test" || !status.SetupComplete || status.Passes != 3 || status.DisplayCount != 2 {
		t.Fatalf("unexpected status: %+v", status)
	}

	displays, err := client.GetDisplays()
	if err != nil {
		t.Fatalf("displays: %v", err)
	}
	if len(displays.Displays) != 2 || displays.Displays[1].Name != "HDMI-1" {
		t.Fatalf("unexpected displays: %+v", displays.Displays)
	}
	if displays.Displays[0].WorkArea != [4]int{0, 24, 1920, 1024} {
		t.Fatalf("unexpected work area: %v", displays.Displays[0].WorkArea)
	}
}

func TestServer_RefreshReloadAndHistory(t *testing.T) {
	d := &fakeDaemon{}
	_, client := startServer(t, d)

	ran, err := client.Refresh()
	if err != nil || !ran {
		t.Fatalf("refresh: ran=%v err=%v", ran, err)
	}
	if err := client.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}

	history, err := client.GetHistory(0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history.Passes) != 1 || history.Passes[0].Added[0] != "HDMI-1" {
		t.Fatalf("unexpected history: %+v", history.Passes)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.refreshes != 1 || d.reloads != 1 {
		t.Fatalf("expected one refresh and one reload, got %d/%d", d.refreshes, d.reloads)
	}
	if d.limit != DefaultHistoryLimit {
		t.Fatalf("expected default history limit, got %d", d.limit)
	}
}

func TestServer_ErrorsAreReported(t *testing.T) {
	d := &fakeDaemon{reloadErr: errors.New("bars.0.edge: bad")}
	srv, client := startServer(t, d)

	err := client.Reload()
	if err == nil || !strings.Contains(err.Error(), "bars.0.edge") {
		t.Fatalf("expected reload error to surface, got %v", err)
	}

	conn, err := net.Dial("unix", srv.socketPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if _, err := conn.Write([]byte("{\"command\":\"DANCE\"}\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	buf, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(buf), "unknown command: DANCE") {
		t.Fatalf("expected unknown command error, got %s", buf)
	}
}

func TestClient_NoDaemon(t *testing.T) {
	client := NewClientAt(filepath.Join(t.TempDir(), "missing.sock"))
	if err := client.Ping(); err == nil || !strings.Contains(err.Error(), "is the daemon running") {
		t.Fatalf("expected connection error, got %v", err)
	}
}
