package appbar

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/1broseidon/edgebar/internal/platform"
	"github.com/1broseidon/edgebar/internal/shell"
)

type fakeHost struct {
	nextMsg       uint32
	registerErr   error
	registered    int
	unregistered  int
	setPos        int
	activated     int
	posChanged    int
	hiddenDocks   int
	grantedOffset int
}

func (h *fakeHost) RegisterBar(id platform.WindowID, edge platform.Edge) (uint32, error) {
	if h.registerErr != nil {
		return 0, h.registerErr
	}
	h.registered++
	h.nextMsg++
	return 0xC000 + h.nextMsg, nil
}

func (h *fakeHost) UnregisterBar(platform.WindowID) error {
	h.unregistered++
	return nil
}

func (h *fakeHost) SetPos(_ platform.WindowID, edge platform.Edge, screen platform.Rect, width, height int) (platform.Rect, error) {
	h.setPos++
	r := EdgeRect(screen, edge, width, height)
	r.Y += h.grantedOffset
	return r, nil
}

func (h *fakeHost) Activate(platform.WindowID) error         { h.activated++; return nil }
func (h *fakeHost) WindowPosChanged(platform.WindowID) error { h.posChanged++; return nil }
func (h *fakeHost) HideNativeDocks() error                   { h.hiddenDocks++; return nil }

type fakeBar struct {
	id      platform.WindowID
	edge    platform.Edge
	dock    bool
	scale   float64
	height  float64
	screen  platform.Display
	placed  []platform.Rect
	visible bool
	onPlace func(platform.Rect)
}

func (b *fakeBar) ID() platform.WindowID    { return b.id }
func (b *fakeBar) Edge() platform.Edge      { return b.edge }
func (b *fakeBar) DockEnabled() bool        { return b.dock }
func (b *fakeBar) Scale() float64           { return b.scale }
func (b *fakeBar) Height() float64          { return b.height }
func (b *fakeBar) Screen() platform.Display { return b.screen }
func (b *fakeBar) Place(r platform.Rect) error {
	b.placed = append(b.placed, r)
	if b.onPlace != nil {
		b.onPlace(r)
	}
	return nil
}
func (b *fakeBar) Show() error { b.visible = true; return nil }
func (b *fakeBar) Hide() error { b.visible = false; return nil }

type fakeScheduler struct {
	fns []func()
}

func (s *fakeScheduler) AfterFunc(_ time.Duration, fn func()) *time.Timer {
	s.fns = append(s.fns, fn)
	return time.NewTimer(time.Hour)
}

func (s *fakeScheduler) runAll() {
	fns := s.fns
	s.fns = nil
	for _, fn := range fns {
		fn()
	}
}

func newTestProtocol(isShell bool) (*Protocol, *fakeBar, *fakeHost, *fakeScheduler, *shell.Context) {
	mode := shell.ModeOff
	if isShell {
		mode = shell.ModeOn
	}
	ctx := shell.NewContext(mode, true)
	bar := &fakeBar{
		id:     0x400001,
		edge:   platform.EdgeTop,
		dock:   true,
		scale:  1,
		height: 24,
		screen: platform.Display{Name: "DP-1", Bounds: platform.Rect{Width: 1920, Height: 1080}},
	}
	host := &fakeHost{}
	sched := &fakeScheduler{}
	p := New(Config{
		Bar:       bar,
		Host:      host,
		Registry:  NewRegistry(),
		Shell:     ctx,
		Scheduler: sched,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return p, bar, host, sched, ctx
}

func TestRegister_ReservesEdgeAndSchedulesReapply(t *testing.T) {
	p, bar, host, sched, _ := newTestProtocol(false)

	if err := p.Register(); err != nil {
		t.Fatalf("register: %v", err)
	}
	if p.State() != StateRegistered {
		t.Fatalf("expected registered, got %v", p.State())
	}
	if !p.registry.Contains(bar.id) {
		t.Fatalf("expected registry entry")
	}
	if host.setPos != 1 {
		t.Fatalf("expected one host position request, got %d", host.setPos)
	}
	want := platform.Rect{Width: 1920, Height: 24}
	if len(bar.placed) != 1 || bar.placed[0] != want {
		t.Fatalf("expected placement %+v, got %+v", want, bar.placed)
	}
	if len(sched.fns) == 0 {
		t.Fatalf("expected deferred re-apply after registration")
	}

	sched.runAll()
	if host.setPos != 2 {
		t.Fatalf("expected deferred re-apply to request position again, got %d", host.setPos)
	}
}

func TestRegister_SkippedWhenShellOrDisabled(t *testing.T) {
	p, _, host, _, _ := newTestProtocol(true)
	if err := p.Register(); err != nil {
		t.Fatalf("register: %v", err)
	}
	if host.registered != 0 || p.State() != StateUnregistered {
		t.Fatalf("expected no registration as shell")
	}

	p2, bar2, host2, _, _ := newTestProtocol(false)
	bar2.dock = false
	if err := p2.Register(); err != nil {
		t.Fatalf("register: %v", err)
	}
	if host2.registered != 0 {
		t.Fatalf("expected no registration with docking disabled")
	}
}

func TestRegister_Once(t *testing.T) {
	p, _, host, _, _ := newTestProtocol(false)
	for i := 0; i < 3; i++ {
		if err := p.Register(); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	if host.registered != 1 {
		t.Fatalf("expected one host registration, got %d", host.registered)
	}
}

func TestRegister_FailureFallsBackToUnregistered(t *testing.T) {
	p, bar, host, _, _ := newTestProtocol(false)
	host.registerErr = errors.New("no window manager")

	if err := p.Register(); err == nil {
		t.Fatalf("expected error")
	}
	if p.State() != StateUnregistered || p.registry.Len() != 0 {
		t.Fatalf("expected unregistered state after failure")
	}

	p.SetPosition()
	if len(bar.placed) != 1 || bar.placed[0].Height != 24 {
		t.Fatalf("expected self positioning, got %+v", bar.placed)
	}
	if host.setPos != 0 {
		t.Fatalf("expected no host position request when unregistered")
	}
}

func TestUnregister_Idempotent(t *testing.T) {
	p, bar, host, _, _ := newTestProtocol(false)
	if err := p.Register(); err != nil {
		t.Fatalf("register: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := p.Unregister(); err != nil {
			t.Fatalf("unregister %d: %v", i, err)
		}
	}
	if host.unregistered != 1 {
		t.Fatalf("expected one host unregistration, got %d", host.unregistered)
	}
	if p.registry.Contains(bar.id) || p.State() != StateUnregistered {
		t.Fatalf("expected registration removed")
	}
	if _, ok := p.Message(); ok {
		t.Fatalf("expected no message id after unregister")
	}

	p2, _, host2, _, _ := newTestProtocol(false)
	if err := p2.Unregister(); err != nil {
		t.Fatalf("unregister of never-registered bar: %v", err)
	}
	if host2.unregistered != 0 {
		t.Fatalf("expected no host call for never-registered bar")
	}
}

func TestHandleMessage(t *testing.T) {
	p, bar, host, _, _ := newTestProtocol(false)
	if err := p.Register(); err != nil {
		t.Fatalf("register: %v", err)
	}
	msg, _ := p.Message()

	if p.HandleMessage(msg+1, platform.DockPosChanged, false) {
		t.Fatalf("expected foreign message to be ignored")
	}

	before := host.setPos
	if !p.HandleMessage(msg, platform.DockPosChanged, false) {
		t.Fatalf("expected message handled")
	}
	if host.setPos != before+1 {
		t.Fatalf("expected position re-applied on pos-changed")
	}

	bar.visible = true
	p.HandleMessage(msg, platform.DockWindowArrange, true)
	if bar.visible {
		t.Fatalf("expected bar hidden before arrange")
	}
	p.HandleMessage(msg, platform.DockWindowArrange, false)
	if !bar.visible {
		t.Fatalf("expected bar shown after arrange")
	}

	p.HandleMessage(msg, platform.DockFullScreenApp, false)
	if host.hiddenDocks != 1 {
		t.Fatalf("expected native docks hidden, got %d", host.hiddenDocks)
	}
}

func TestSetPosition_ScalesByDPI(t *testing.T) {
	p, bar, _, _, _ := newTestProtocol(true)
	bar.scale = 2
	bar.edge = platform.EdgeBottom
	bar.screen.Bounds = platform.Rect{Width: 3840, Height: 2160}

	p.SetPosition()

	want := platform.Rect{X: 0, Y: 2160 - 48, Width: 3840, Height: 48}
	if got := bar.placed[len(bar.placed)-1]; got != want {
		t.Fatalf("expected physical %+v, got %+v", want, got)
	}
	pos := p.Position()
	if pos.Height != 24 || pos.Width != 1920 || pos.Y != float64(2160-48)/2 {
		t.Fatalf("unexpected logical position %+v", pos)
	}
}

func TestSetPosition_HostAdjustedRectIsReapplied(t *testing.T) {
	p, bar, host, sched, _ := newTestProtocol(false)
	if err := p.Register(); err != nil {
		t.Fatalf("register: %v", err)
	}
	sched.fns = nil
	host.grantedOffset = 30

	p.SetPosition()
	if len(sched.fns) != 1 {
		t.Fatalf("expected one deferred re-apply, got %d", len(sched.fns))
	}
	placed := len(bar.placed)
	sched.runAll()
	if len(bar.placed) != placed+1 || bar.placed[len(bar.placed)-1].Y != 30 {
		t.Fatalf("expected granted rect re-applied, got %+v", bar.placed)
	}

	// Same rectangle again: nothing deferred.
	p.SetPosition()
	if len(sched.fns) != 0 {
		t.Fatalf("expected no deferred re-apply when unchanged, got %d", len(sched.fns))
	}
}

func TestHandleActivate(t *testing.T) {
	p, _, host, _, ctx := newTestProtocol(false)
	p.HandleActivate()
	p.HandlePosChanged(platform.Rect{Width: 1920, Height: 24})
	if host.activated != 1 || host.posChanged != 1 {
		t.Fatalf("expected activate and pos-changed forwarded, got %d %d", host.activated, host.posChanged)
	}

	ctx.BeginShutdown()
	p.HandleActivate()
	if host.activated != 1 {
		t.Fatalf("expected activate suppressed during shutdown")
	}

	shellProto, _, shellHost, _, _ := newTestProtocol(true)
	shellProto.HandleActivate()
	if shellHost.activated != 0 {
		t.Fatalf("expected activate suppressed as shell")
	}
}

func TestEdgeRect(t *testing.T) {
	screen := platform.Rect{X: 1920, Y: 0, Width: 1280, Height: 1024}
	cases := []struct {
		edge platform.Edge
		want platform.Rect
	}{
		{platform.EdgeTop, platform.Rect{X: 1920, Y: 0, Width: 1280, Height: 30}},
		{platform.EdgeBottom, platform.Rect{X: 1920, Y: 994, Width: 1280, Height: 30}},
		{platform.EdgeLeft, platform.Rect{X: 1920, Y: 0, Width: 1280, Height: 30}},
		{platform.EdgeRight, platform.Rect{X: 1920, Y: 0, Width: 1280, Height: 30}},
	}
	for _, tc := range cases {
		if got := EdgeRect(screen, tc.edge, 1280, 30); got != tc.want {
			t.Fatalf("%v: expected %+v, got %+v", tc.edge, tc.want, got)
		}
	}
}

// relayHost forwards every position change to the other registered bars as
// a dock pos-changed message.
type relayHost struct {
	*fakeHost
	peers  map[platform.WindowID]*Protocol
	relays int
}

func (h *relayHost) WindowPosChanged(id platform.WindowID) error {
	h.relays++
	if h.relays > 50 {
		return nil
	}
	for peerID, peer := range h.peers {
		if peerID == id {
			continue
		}
		if msg, ok := peer.Message(); ok {
			peer.HandleMessage(msg, platform.DockPosChanged, false)
		}
	}
	return nil
}

func TestPosChangedRelay_SettlesBetweenPeers(t *testing.T) {
	ctx := shell.NewContext(shell.ModeOff, true)
	host := &relayHost{fakeHost: &fakeHost{}, peers: make(map[platform.WindowID]*Protocol)}
	registry := NewRegistry()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	screen := platform.Display{Name: "DP-1", Bounds: platform.Rect{Width: 1920, Height: 1080}}

	newBar := func(id platform.WindowID, edge platform.Edge) (*Protocol, *fakeBar) {
		bar := &fakeBar{id: id, edge: edge, dock: true, scale: 1, height: 24, screen: screen}
		p := New(Config{Bar: bar, Host: host, Registry: registry, Shell: ctx, Scheduler: &fakeScheduler{}, Logger: logger})
		// Every configure, even a no-op one, comes back as a position change.
		bar.onPlace = func(r platform.Rect) { p.HandlePosChanged(r) }
		host.peers[id] = p
		return p, bar
	}
	top, topBar := newBar(0x400001, platform.EdgeTop)
	bottom, bottomBar := newBar(0x400002, platform.EdgeBottom)

	for _, p := range []*Protocol{top, bottom} {
		if err := p.Register(); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	top.SetPosition()
	bottom.SetPosition()

	if len(topBar.placed) != 1 || len(bottomBar.placed) != 1 {
		t.Fatalf("expected one placement per bar, got top=%d bottom=%d", len(topBar.placed), len(bottomBar.placed))
	}
	if host.relays != 2 {
		t.Fatalf("expected one relay per bar, got %d", host.relays)
	}

	// A synthetic configure repeating the current geometry is not relayed.
	top.HandlePosChanged(topBar.placed[0])
	if host.relays != 2 {
		t.Fatalf("expected repeated geometry to be dropped, got %d relays", host.relays)
	}
}

func TestPosChanged_ExternalMoveIsCorrected(t *testing.T) {
	p, bar, _, _, _ := newTestProtocol(true)
	p.SetPosition()
	p.SetPosition()
	if len(bar.placed) != 1 {
		t.Fatalf("expected unchanged rectangle placed once, got %d", len(bar.placed))
	}

	p.HandlePosChanged(platform.Rect{Y: 200, Width: 1920, Height: 24})
	p.SetPosition()
	if len(bar.placed) != 2 || bar.placed[1].Y != 0 {
		t.Fatalf("expected bar moved back after external move, got %+v", bar.placed)
	}
}

func TestUnregister_DropsCallbacksAlreadyScheduled(t *testing.T) {
	p, bar, host, sched, _ := newTestProtocol(false)
	if err := p.Register(); err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(sched.fns) == 0 {
		t.Fatalf("expected a deferred re-apply after registration")
	}
	if err := p.Unregister(); err != nil {
		t.Fatalf("unregister: %v", err)
	}

	placed, setPos := len(bar.placed), host.setPos
	// The scheduler already handed the callbacks to the loop.
	sched.runAll()
	if len(bar.placed) != placed || host.setPos != setPos {
		t.Fatalf("expected stale callbacks to do nothing, placed %d->%d setPos %d->%d",
			placed, len(bar.placed), setPos, host.setPos)
	}
}
