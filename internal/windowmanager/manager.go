// Package windowmanager reconciles bar windows against the display topology.
//
// The Manager keeps the last known snapshot of displays, diffs it against the
// windows each WindowService has open, and drives services through removal,
// refresh and creation in that order. Notifications may arrive from any
// goroutine and faster than passes complete; they are counted and drained by
// at most one pass at a time.
package windowmanager

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/1broseidon/edgebar/internal/platform"
	"github.com/1broseidon/edgebar/internal/shell"
)

// DefaultInterval is the backstop period for draining orphaned notifications.
const DefaultInterval = 100 * time.Millisecond

// Config wires a Manager to its collaborators.
type Config struct {
	Displays  platform.DisplaySource
	WorkAreas platform.WorkAreaPublisher
	Shell     *shell.Context
	Registry  *Registry
	Recorder  PassRecorder
	Logger    *slog.Logger

	// Interval is the backstop tick period. Zero means DefaultInterval.
	Interval time.Duration

	// Dispatch runs backstop work; the daemon routes it onto the UI loop.
	// Nil runs work on the ticker goroutine.
	Dispatch func(func())
}

// Manager is the display reconciler.
type Manager struct {
	displays  platform.DisplaySource
	workAreas platform.WorkAreaPublisher
	shell     *shell.Context
	registry  *Registry
	recorder  PassRecorder
	logger    *slog.Logger
	interval  time.Duration
	dispatch  func(func())

	// mu is the coordination lock for the fields below.
	mu                sync.Mutex
	settingDisplays   bool
	pending           int
	hasCompletedSetup bool
	screenState       []platform.Display
	passes            int
	lastPass          time.Time

	// dispatchMu serializes compositor change handlers. ScreensChanged is
	// raised without it; a DwmChanged handler may start a pass.
	dispatchMu sync.Mutex

	handlersMu      sync.Mutex
	nextHandlerID   int
	dwmHandlers     map[int]func(EventArgs)
	screensHandlers map[int]func(EventArgs)
}

// New creates a Manager. Services must already be registered.
func New(cfg Config) (*Manager, error) {
	if cfg.Displays == nil {
		return nil, fmt.Errorf("windowmanager: display source is required")
	}
	if cfg.Registry == nil {
		cfg.Registry = NewRegistry()
	}
	if cfg.Shell == nil {
		cfg.Shell = shell.NewContext(shell.ModeOff, true)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Dispatch == nil {
		cfg.Dispatch = func(fn func()) { fn() }
	}

	return &Manager{
		displays:        cfg.Displays,
		workAreas:       cfg.WorkAreas,
		shell:           cfg.Shell,
		registry:        cfg.Registry,
		recorder:        cfg.Recorder,
		logger:          cfg.Logger,
		interval:        cfg.Interval,
		dispatch:        cfg.Dispatch,
		dwmHandlers:     make(map[int]func(EventArgs)),
		screensHandlers: make(map[int]func(EventArgs)),
	}, nil
}

// Shell returns the process context shared with windows.
func (m *Manager) Shell() *shell.Context { return m.shell }

// Logger returns the manager's logger for services that want a child logger.
func (m *Manager) Logger() *slog.Logger { return m.logger }

// IsSettingDisplays reports whether initialization or a pass is in progress.
// Windows may only close while this is true or while shutting down.
func (m *Manager) IsSettingDisplays() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settingDisplays
}

// Pending returns the number of notifications not yet processed.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

// Displays returns a copy of the last authoritative topology snapshot.
func (m *Manager) Displays() []platform.Display {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]platform.Display, len(m.screenState))
	copy(out, m.screenState)
	return out
}

// Services returns the registered window services.
func (m *Manager) Services() []WindowService {
	return m.registry.Services()
}

// Status is a point-in-time view of reconciliation state.
type Status struct {
	SettingDisplays bool
	SetupComplete   bool
	Pending         int
	Passes          int
	LastPass        time.Time
	IsShell         bool
	ShuttingDown    bool
	Displays        []platform.Display
}

// Status returns the current reconciliation state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	displays := make([]platform.Display, len(m.screenState))
	copy(displays, m.screenState)
	return Status{
		SettingDisplays: m.settingDisplays,
		SetupComplete:   m.hasCompletedSetup,
		Pending:         m.pending,
		Passes:          m.passes,
		LastPass:        m.lastPass,
		IsShell:         m.shell.IsShell(),
		ShuttingDown:    m.shell.ShuttingDown(),
		Displays:        displays,
	}
}

// Initialize runs the first display setup. It must complete before any
// notification is processed; notifications that arrive meanwhile are counted
// and drained by the backstop.
func (m *Manager) Initialize() {
	m.mu.Lock()
	m.settingDisplays = true
	m.mu.Unlock()

	m.registry.seal()
	for _, svc := range m.registry.Services() {
		svc.Initialize(m)
	}

	rec := newPassRecord(ReasonFirstRun)
	displays, err := m.displays.Displays()
	if err != nil {
		m.logger.Warn("initial display query failed", "error", err)
		rec.Outcome = OutcomeReadFailed
		rec.Error = err.Error()
	} else {
		m.displaySetup(ReasonFirstRun, displays, &rec)
	}
	m.record(rec)

	m.mu.Lock()
	m.hasCompletedSetup = true
	m.settingDisplays = false
	m.mu.Unlock()
}

// NotifyDisplayChange reports a window-system notification. It may be called
// from any goroutine, including from inside a pass.
func (m *Manager) NotifyDisplayChange(reason Reason) {
	m.logger.Debug("received display notification", "reason", reason)

	if reason == ReasonDwmChange {
		m.dispatchMu.Lock()
		m.raise(m.dwmHandlers, EventArgs{Reason: reason})
		m.dispatchMu.Unlock()
		return
	}

	m.mu.Lock()
	m.pending++
	if m.settingDisplays {
		m.mu.Unlock()
		return
	}
	m.settingDisplays = true
	m.mu.Unlock()

	m.processDisplayChanges(reason)
}

// ReconcilePending drains orphaned notifications if no pass is running. It
// returns true if it ran a pass.
func (m *Manager) ReconcilePending() bool {
	m.mu.Lock()
	if m.settingDisplays || m.pending <= 0 {
		m.mu.Unlock()
		return false
	}
	m.settingDisplays = true
	m.mu.Unlock()

	m.logger.Debug("processing additional display events")
	m.processDisplayChanges(ReasonReconciliation)
	return true
}

// Serve runs the backstop ticker until ctx is cancelled.
func (m *Manager) Serve(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("display reconciler started", "interval", m.interval)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("display reconciler stopped")
			return ctx.Err()
		case <-ticker.C:
			if m.shell.ShuttingDown() || m.Pending() == 0 {
				continue
			}
			m.dispatch(func() { m.ReconcilePending() })
		}
	}
}

func (m *Manager) String() string { return "display-reconciler" }

// processDisplayChanges drains pending. The caller must have set
// settingDisplays under mu.
func (m *Manager) processDisplayChanges(reason Reason) {
	for {
		m.mu.Lock()
		if m.pending <= 0 {
			m.pending = 0
			m.settingDisplays = false
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()

		m.runIteration(reason)

		m.mu.Lock()
		m.pending--
		m.passes++
		m.lastPass = time.Now()
		m.mu.Unlock()
	}
}

func (m *Manager) runIteration(reason Reason) {
	rec := newPassRecord(reason)
	defer func() {
		if err := recover(); err != nil {
			m.logger.Error("display reconciliation panic recovered", "reason", reason, "error", err)
			rec.Outcome = OutcomePanicked
			rec.Error = fmt.Sprint(err)
		}
		m.record(rec)
	}()

	if m.shell.ShuttingDown() {
		rec.Outcome = OutcomeSkipped
		return
	}

	displays, err := m.displays.Displays()
	if err != nil {
		// Keep the previous snapshot authoritative and treat this as a
		// non-structural change.
		m.logger.Warn("display query failed, keeping previous topology", "reason", reason, "error", err)
		rec.Outcome = OutcomeReadFailed
		rec.Error = err.Error()
		m.refreshWindows(reason, false)
		m.setDisplayWorkAreas()
		return
	}

	if !m.haveDisplaysChanged(displays) {
		m.logger.Debug("no display changes", "reason", reason)
		// Same topology, but DPI may differ.
		m.setScreenState(displays)
		rec.Outcome = OutcomeUnchanged
		rec.Displays = platform.Names(displays)
		m.refreshWindows(reason, false)
		m.setDisplayWorkAreas()
		return
	}

	m.displaySetup(reason, displays, &rec)
}

func (m *Manager) haveDisplaysChanged(displays []platform.Display) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !platform.SameTopology(m.screenState, displays)
}

// displaySetup compares the system display list with the displays that have
// open windows, then closes and opens windows as needed.
func (m *Manager) displaySetup(reason Reason, displays []platform.Display, rec *PassRecord) {
	m.mu.Lock()
	setupDone := m.hasCompletedSetup
	m.mu.Unlock()

	if reason != ReasonFirstRun && !setupDone {
		m.logger.Debug("display setup ran before startup completed, aborting", "reason", reason)
		rec.Outcome = OutcomeSkipped
		return
	}

	m.logger.Debug("beginning display setup", "reason", reason)

	sysNames := platform.Names(displays)
	for _, d := range displays {
		m.logger.Debug("display found",
			"display", d.Name,
			"bounds", d.Bounds,
			"work_area", d.WorkArea,
			"primary", d.Primary,
			"scale", d.Scale)
	}
	openNames := m.openDisplayNames()
	added := difference(sysNames, openNames)
	rec.Displays = sysNames
	rec.Added = added

	if reason != ReasonFirstRun {
		removed := difference(openNames, sysNames)
		rec.Removed = removed

		// Conservative guard against spurious "everything disconnected"
		// notifications. This can also suppress a genuine loss of every
		// display that has windows when nothing replaces it.
		if len(sysNames) == 0 || (len(removed) >= len(openNames) && len(added) == 0) {
			m.logger.Debug("display setup aborted due to no displays present",
				"reason", reason,
				"open", len(openNames),
				"removed", len(removed))
			rec.Outcome = OutcomeAborted
			return
		}

		m.setScreenState(displays)
		m.processRemovedScreens(removed)
		m.refreshWindows(reason, true)
	} else {
		m.setScreenState(displays)
	}

	m.processAddedScreens(displays, added)
	m.setDisplayWorkAreas()

	rec.Outcome = OutcomeApplied
	m.logger.Debug("completed display setup", "reason", reason, "added", len(added), "removed", len(rec.Removed))
}

func (m *Manager) setScreenState(displays []platform.Display) {
	m.mu.Lock()
	m.screenState = displays
	m.mu.Unlock()
}

func (m *Manager) openDisplayNames() []string {
	var names []string
	seen := make(map[string]struct{})
	for _, svc := range m.registry.Services() {
		for _, w := range svc.Windows() {
			name := w.DisplayName()
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	return names
}

func (m *Manager) processRemovedScreens(removed []string) {
	for _, name := range removed {
		m.logger.Info("removing windows associated with display", "display", name)
		for _, svc := range m.registry.Services() {
			svc.HandleScreenRemoved(name)
		}
	}
}

func (m *Manager) refreshWindows(reason Reason, displaysChanged bool) {
	m.logger.Debug("refreshing display information for existing windows", "reason", reason, "displays_changed", displaysChanged)

	args := EventArgs{DisplaysChanged: displaysChanged, Reason: reason}
	for _, svc := range m.registry.Services() {
		svc.RefreshWindows(args)
	}
	m.raise(m.screensHandlers, args)
}

func (m *Manager) processAddedScreens(displays []platform.Display, added []string) {
	want := make(map[string]struct{}, len(added))
	for _, name := range added {
		want[name] = struct{}{}
	}
	for _, d := range displays {
		if _, ok := want[d.Name]; !ok {
			continue
		}
		m.logger.Info("opening windows on display", "display", d.Name)
		for _, svc := range m.registry.Services() {
			svc.HandleScreenAdded(d)
		}
	}
}

// OnDwmChanged subscribes to compositor change notifications.
func (m *Manager) OnDwmChanged(fn func(EventArgs)) (unsubscribe func()) {
	return m.subscribe(m.dwmHandlers, fn)
}

// OnScreensChanged subscribes to the event raised after every refresh.
func (m *Manager) OnScreensChanged(fn func(EventArgs)) (unsubscribe func()) {
	return m.subscribe(m.screensHandlers, fn)
}

func (m *Manager) subscribe(set map[int]func(EventArgs), fn func(EventArgs)) func() {
	m.handlersMu.Lock()
	id := m.nextHandlerID
	m.nextHandlerID++
	set[id] = fn
	m.handlersMu.Unlock()

	return func() {
		m.handlersMu.Lock()
		delete(set, id)
		m.handlersMu.Unlock()
	}
}

func (m *Manager) raise(set map[int]func(EventArgs), args EventArgs) {
	m.handlersMu.Lock()
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	handlers := make([]func(EventArgs), 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		handlers = append(handlers, set[id])
	}
	m.handlersMu.Unlock()

	for _, h := range handlers {
		h(args)
	}
}

func (m *Manager) record(rec PassRecord) {
	rec.Duration = time.Since(rec.StartedAt)
	if m.recorder != nil {
		m.recorder.Record(rec)
	}
}

// difference returns the elements of a not in b, preserving a's order.
func difference(a, b []string) []string {
	in := make(map[string]struct{}, len(b))
	for _, s := range b {
		in[s] = struct{}{}
	}
	var out []string
	for _, s := range a {
		if _, ok := in[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}
