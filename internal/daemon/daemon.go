//go:build linux

// Package daemon assembles the edgebar process: the X backend, the UI loop,
// the bar services and the display reconciler, plus the surfaces that observe
// them (IPC, journal, D-Bus, hotkeys).
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/1broseidon/edgebar/internal/appbar"
	"github.com/1broseidon/edgebar/internal/bars"
	"github.com/1broseidon/edgebar/internal/config"
	"github.com/1broseidon/edgebar/internal/dbusnotify"
	"github.com/1broseidon/edgebar/internal/fullscreen"
	"github.com/1broseidon/edgebar/internal/hotkeys"
	"github.com/1broseidon/edgebar/internal/ipc"
	"github.com/1broseidon/edgebar/internal/journal"
	"github.com/1broseidon/edgebar/internal/loop"
	"github.com/1broseidon/edgebar/internal/platform"
	"github.com/1broseidon/edgebar/internal/runtimepath"
	"github.com/1broseidon/edgebar/internal/shell"
	"github.com/1broseidon/edgebar/internal/windowmanager"
	"github.com/thejerf/suture/v4"
)

const (
	loopDepth       = 512
	callTimeout     = 5 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Options configure a Daemon.
type Options struct {
	ConfigPath string
	SocketPath string // empty = runtime dir default
	Version    string
	Logger     *slog.Logger
	// Level is adjusted when log_level changes on reload.
	Level *slog.LevelVar
}

// Daemon owns every long-lived component of the process.
type Daemon struct {
	opts    Options
	logger  *slog.Logger
	started time.Time

	cfgMu sync.Mutex
	cfg   *config.Config

	backend  *platform.LinuxBackend
	shell    *shell.Context
	loop     *loop.Loop
	observer *fullscreen.Observer
	router   *bars.Router
	services []*bars.Service
	manager  *windowmanager.Manager
	store    *journal.Store
	recorder *journal.Recorder
	hotkeys  *hotkeys.Handler

	// fullScreenOpen is only touched on the loop.
	fullScreenOpen bool
}

var _ ipc.Daemon = (*Daemon)(nil)

// New loads configuration, connects to the X server and builds the component
// graph. Nothing runs until Run.
func New(opts Options) (*Daemon, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ConfigPath == "" {
		path, err := config.DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		opts.ConfigPath = path
	}

	res, err := config.LoadFromPath(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg := res.Config
	if opts.Level != nil {
		opts.Level.Set(cfg.SlogLevel())
	}
	for _, w := range cfg.Warnings() {
		opts.Logger.Warn("config warning", "warning", w)
	}

	backend, err := platform.NewLinuxBackendFromDisplay()
	if err != nil {
		return nil, err
	}

	d := &Daemon{
		opts:     opts,
		logger:   opts.Logger,
		started:  time.Now(),
		cfg:      cfg,
		backend:  backend,
		observer: fullscreen.NewObserver(),
		router:   bars.NewRouter(),
	}
	if err := d.build(cfg); err != nil {
		backend.Disconnect()
		if d.store != nil {
			_ = d.store.Close()
		}
		return nil, err
	}
	return d, nil
}

func (d *Daemon) build(cfg *config.Config) error {
	mode, err := shell.ParseMode(string(cfg.ShellMode))
	if err != nil {
		return err
	}
	d.shell = shell.NewContext(mode, d.backend.OtherShellPresent())
	d.loop = loop.New(loopDepth, d.logger.With("component", "loop"))

	if cfg.Journal.Enabled {
		path := cfg.Journal.Path
		if path == "" {
			if path, err = runtimepath.JournalPath(); err != nil {
				return err
			}
		}
		store, err := journal.Open(path)
		if err != nil {
			return err
		}
		d.store = store
		retain := time.Duration(cfg.Journal.RetainDays) * 24 * time.Hour
		d.recorder = journal.NewRecorder(store, retain, d.logger.With("component", "journal"))
	}

	registry := windowmanager.NewRegistry()
	docks := appbar.NewRegistry()
	for _, bc := range cfg.Bars {
		spec, err := barSpec(bc)
		if err != nil {
			return err
		}
		svc, err := bars.NewService(bars.ServiceConfig{
			Spec:    spec,
			Factory: d.backend,
			Dock: bars.DockConfig{
				Host:            d.backend,
				Registry:        docks,
				Scheduler:       d.loop,
				Delay:           cfg.RepositionDelay(),
				HideNativeDocks: cfg.HideNativeDocks,
			},
			Shell:    d.shell,
			Observer: d.observer,
			Router:   d.router,
			Logger:   d.logger,
		})
		if err != nil {
			return err
		}
		if err := registry.Register(svc); err != nil {
			return err
		}
		d.services = append(d.services, svc)
	}

	mcfg := windowmanager.Config{
		Displays:  d.backend,
		WorkAreas: d.backend,
		Shell:     d.shell,
		Registry:  registry,
		Logger:    d.logger.With("component", "reconciler"),
		Interval:  cfg.ReconcileInterval(),
		Dispatch:  func(fn func()) { d.loop.Post(fn) },
	}
	if d.recorder != nil {
		mcfg.Recorder = d.recorder
	}
	d.manager, err = windowmanager.New(mcfg)
	return err
}

// Run starts every component and blocks until ctx is cancelled or a fatal
// service fails. Bars are closed and the work area restored before return.
func (d *Daemon) Run(ctx context.Context) error {
	defer d.close()

	sup := suture.New("edgebar", suture.Spec{
		EventHook: func(ev suture.Event) {
			d.logger.Warn("supervisor event", "event", ev.String())
		},
	})
	// The supervisor outlives ctx so teardown can still use the loop.
	supCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sup.Add(d.loop)
	if d.recorder != nil {
		sup.Add(d.recorder)
	}
	errCh := sup.ServeBackground(supCtx)

	startCtx, startCancel := context.WithTimeout(ctx, callTimeout*6)
	var startErr error
	err := d.loop.Call(startCtx, func() { startErr = d.start() })
	startCancel()
	if err == nil {
		err = startErr
	}
	if err != nil {
		cancel()
		<-errCh
		return err
	}

	sup.Add(d.manager)
	sup.Add(&eventLoop{backend: d.backend})
	sup.Add(dbusnotify.NewWatcher(d.busSignal, d.logger.With("component", "dbus")))
	if _, err := os.Stat(filepath.Dir(d.opts.ConfigPath)); err == nil {
		sup.Add(config.NewWatcher(d.opts.ConfigPath, config.WatchOptions{
			OnReload: d.applyConfig,
			Logger:   d.logger.With("component", "config"),
		}))
	}

	server, err := d.newServer()
	if err == nil {
		err = server.Start()
	}
	if err != nil {
		d.logger.Warn("ipc server unavailable", "error", err)
		server = nil
	}

	d.banner()

	var runErr error
	select {
	case <-ctx.Done():
		d.logger.Info("shutting down edgebar daemon")
	case runErr = <-errCh:
		d.logger.Error("supervisor stopped", "error", runErr)
	}

	if server != nil {
		server.Stop()
	}
	d.shutdown()
	cancel()
	if runErr == nil {
		<-errCh
	}
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}
	return runErr
}

// start runs on the loop: it subscribes to window-system events, builds the
// initial bars and registers the hotkey.
func (d *Daemon) start() error {
	if err := d.backend.Watch(d.handleEvent); err != nil {
		return fmt.Errorf("failed to watch display events: %w", err)
	}

	d.manager.Initialize()
	d.scanFullScreen()

	d.cfgMu.Lock()
	hotkey := d.cfg.RefreshHotkey
	d.cfgMu.Unlock()
	if hotkey != "" {
		d.hotkeys = hotkeys.NewHandler(d.backend, func(fn func()) { d.loop.Post(fn) }, d.logger)
		if err := d.hotkeys.RegisterRefresh(hotkey, func() { d.refresh() }); err != nil {
			d.logger.Warn("hotkey unavailable", "error", err)
		} else {
			d.logger.Info("refresh hotkey registered", "hotkey", hotkey)
		}
	}
	return nil
}

// shutdown marks the process as exiting and tears bars down on the loop.
func (d *Daemon) shutdown() {
	if !d.shell.BeginShutdown() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	teardown := func() {
		if d.hotkeys != nil {
			d.hotkeys.UnregisterAll()
		}
		for _, svc := range d.services {
			svc.CloseAll()
		}
		if d.shell.IsShell() {
			d.manager.ResetWorkArea()
		}
	}
	err := d.loop.Call(ctx, teardown)
	switch {
	case errors.Is(err, context.Canceled):
		// The loop already stopped; nothing else owns the bars now.
		teardown()
	case err != nil:
		d.logger.Warn("teardown did not complete", "error", err)
	}
}

func (d *Daemon) close() {
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.logger.Warn("failed to close journal", "error", err)
		}
	}
	d.backend.Disconnect()
}

// handleEvent runs on the X event goroutine and hands every event to the loop.
func (d *Daemon) handleEvent(ev platform.Event) {
	d.loop.Post(func() { d.dispatch(ev) })
}

func (d *Daemon) dispatch(ev platform.Event) {
	if ev.Type == platform.EventClientList {
		d.scanFullScreen()
		return
	}
	if d.router.Dispatch(ev) || ev.Window != 0 {
		return
	}
	// No bar forwarded it: none are open, none is designated, or the
	// designated one is not on the primary display.
	if reason, ok := orphanReason(ev); ok && !d.shell.ShuttingDown() {
		d.manager.NotifyDisplayChange(reason)
	}
}

func (d *Daemon) scanFullScreen() {
	wins, err := d.backend.FullScreenWindows()
	if err != nil {
		d.logger.Debug("fullscreen scan failed", "error", err)
		return
	}
	apps := fullScreenApps(wins)
	if !d.observer.Set(apps) {
		return
	}
	open := len(apps) > 0
	if open == d.fullScreenOpen {
		return
	}
	d.fullScreenOpen = open
	if err := d.backend.NotifyFullScreen(open); err != nil {
		d.logger.Debug("fullscreen notification failed", "error", err)
	}
}

// busSignal runs on the D-Bus goroutine.
func (d *Daemon) busSignal(kind dbusnotify.Kind) {
	reason, ok := busReason(kind)
	if !ok {
		return
	}
	d.logger.Debug("bus notification", "kind", kind, "reason", reason)
	d.loop.Post(func() {
		if !d.shell.ShuttingDown() {
			d.manager.NotifyDisplayChange(reason)
		}
	})
}

// refresh forces a display pass. It must run on the loop and reports whether
// the pass ran now rather than being queued behind one in progress.
func (d *Daemon) refresh() bool {
	if d.shell.ShuttingDown() {
		return false
	}
	busy := d.manager.IsSettingDisplays()
	d.manager.NotifyDisplayChange(windowmanager.ReasonDisplayChange)
	return !busy
}

func (d *Daemon) applyConfig(res *config.LoadResult) {
	d.cfgMu.Lock()
	prev := d.cfg
	d.cfg = res.Config
	d.cfgMu.Unlock()

	if d.opts.Level != nil {
		d.opts.Level.Set(res.Config.SlogLevel())
	}
	for _, w := range res.Config.Warnings() {
		d.logger.Warn("config warning", "warning", w)
	}
	if changes := restartRequired(prev, res.Config); len(changes) > 0 {
		d.logger.Warn("config changes take effect after restart", "fields", changes)
	}
}

func (d *Daemon) newServer() (*ipc.Server, error) {
	logger := d.logger.With("component", "ipc")
	if d.opts.SocketPath != "" {
		return ipc.NewServerAt(d.opts.SocketPath, d, logger), nil
	}
	return ipc.NewServer(d, logger)
}

func (d *Daemon) banner() {
	d.cfgMu.Lock()
	cfg := d.cfg
	d.cfgMu.Unlock()

	wm := d.backend.WindowManagerName()
	if wm == "" {
		wm = "none"
	}
	names := make([]string, 0, len(cfg.Bars))
	for _, b := range cfg.Bars {
		names = append(names, b.Name)
	}
	d.logger.Info("edgebar daemon started",
		"version", d.opts.Version,
		"shell_mode", cfg.ShellMode,
		"is_shell", d.shell.IsShell(),
		"window_manager", wm,
		"displays", len(d.manager.Displays()),
		"bars", names,
		"journal", d.store != nil,
		"config", d.opts.ConfigPath,
	)
}

// eventLoop runs the X event loop as a supervised service.
type eventLoop struct {
	backend *platform.LinuxBackend
}

func (e *eventLoop) Serve(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		e.backend.EventLoop()
	}()

	select {
	case <-ctx.Done():
		e.backend.Quit()
		<-done
		return ctx.Err()
	case <-done:
		// The connection is gone; nothing left to drive.
		return suture.ErrTerminateSupervisorTree
	}
}

func (e *eventLoop) String() string { return "x-event-loop" }
