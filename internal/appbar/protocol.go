package appbar

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/1broseidon/edgebar/internal/platform"
	"github.com/1broseidon/edgebar/internal/shell"
)

// DefaultRepositionDelay is how long to wait before re-applying a position the
// window system may have overridden.
const DefaultRepositionDelay = 100 * time.Millisecond

// State is the registration state of one bar.
type State int

const (
	StateUnregistered State = iota
	StateRegistering
	StateRegistered
	StateUnregistering
)

func (s State) String() string {
	switch s {
	case StateUnregistered:
		return "unregistered"
	case StateRegistering:
		return "registering"
	case StateRegistered:
		return "registered"
	case StateUnregistering:
		return "unregistering"
	default:
		return "unknown"
	}
}

// Host is the window-system side of dock registration. All rectangles are
// physical pixels.
type Host interface {
	// RegisterBar reserves edge space for id and returns the message id used
	// to deliver dock notifications to it.
	RegisterBar(id platform.WindowID, edge platform.Edge) (uint32, error)
	UnregisterBar(id platform.WindowID) error
	// SetPos proposes a width x height strip along edge of screen and returns
	// the rectangle the host granted.
	SetPos(id platform.WindowID, edge platform.Edge, screen platform.Rect, width, height int) (platform.Rect, error)
	Activate(id platform.WindowID) error
	WindowPosChanged(id platform.WindowID) error
	// HideNativeDocks hides competing docks not owned by this process.
	HideNativeDocks() error
}

// Scheduler runs one-shot deferred callbacks on the UI loop.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) *time.Timer
}

// Bar is the window a Protocol positions.
type Bar interface {
	ID() platform.WindowID
	Edge() platform.Edge
	DockEnabled() bool
	Scale() float64
	// Height is the desired logical height.
	Height() float64
	Screen() platform.Display
	// Place moves the window to a physical rectangle.
	Place(r platform.Rect) error
	Show() error
	Hide() error
}

// Config wires a Protocol.
type Config struct {
	Bar       Bar
	Host      Host
	Registry  *Registry
	Shell     *shell.Context
	Scheduler Scheduler
	Delay     time.Duration
	// HideNativeDocks hides foreign docks after every host positioning.
	HideNativeDocks bool
	Logger          *slog.Logger
}

// Protocol drives one bar through registration, positioning and
// unregistration.
type Protocol struct {
	bar       Bar
	host      Host
	registry  *Registry
	shell     *shell.Context
	scheduler Scheduler
	delay     time.Duration
	hideDocks bool
	logger    *slog.Logger

	mu      sync.Mutex
	state   State
	message uint32
	logical LogicalRect
	pending []*time.Timer
	// gen invalidates callbacks scheduled before the last cancel.
	gen int

	// placed is the last rectangle handed to Place; reported is the last
	// geometry relayed to the host.
	placed     platform.Rect
	placedOK   bool
	reported   platform.Rect
	reportedOK bool
}

// New creates an unregistered Protocol.
func New(cfg Config) *Protocol {
	if cfg.Registry == nil {
		cfg.Registry = NewRegistry()
	}
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultRepositionDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Protocol{
		bar:       cfg.Bar,
		host:      cfg.Host,
		registry:  cfg.Registry,
		shell:     cfg.Shell,
		scheduler: cfg.Scheduler,
		delay:     cfg.Delay,
		hideDocks: cfg.HideNativeDocks,
		logger:    cfg.Logger,
	}
}

// State returns the current registration state.
func (p *Protocol) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Message returns the callback message id, or false if not registered.
func (p *Protocol) Message() (uint32, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.message, p.state == StateRegistered
}

// Position returns the bar's last applied logical position.
func (p *Protocol) Position() LogicalRect {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.logical
}

// Register reserves edge space for the bar. It does nothing when acting as
// shell, when the bar has docking disabled, or when already registered. A
// failed registration leaves the bar unregistered and self-positioned.
func (p *Protocol) Register() error {
	id := p.bar.ID()
	if p.shell.IsShell() || !p.bar.DockEnabled() || p.registry.Contains(id) {
		return nil
	}

	p.mu.Lock()
	if p.state != StateUnregistered {
		p.mu.Unlock()
		return nil
	}
	p.state = StateRegistering
	p.mu.Unlock()

	msg, err := p.host.RegisterBar(id, p.bar.Edge())
	if err != nil {
		p.mu.Lock()
		p.state = StateUnregistered
		p.mu.Unlock()
		p.logger.Warn("dock registration failed, positioning directly", "window", id, "error", err)
		return fmt.Errorf("register bar %d: %w", id, err)
	}

	p.registry.add(id, msg)
	p.mu.Lock()
	p.state = StateRegistered
	p.message = msg
	p.mu.Unlock()
	p.logger.Debug("dock registered", "window", id, "edge", p.bar.Edge(), "message", msg)

	p.SetPosition()
	p.DelaySetPosition()
	return nil
}

// Unregister releases the bar's edge reservation. It is safe to call on an
// unregistered bar.
func (p *Protocol) Unregister() error {
	id := p.bar.ID()

	p.mu.Lock()
	p.cancelPendingLocked()
	if p.state != StateRegistered {
		p.mu.Unlock()
		p.registry.remove(id)
		return nil
	}
	p.state = StateUnregistering
	p.mu.Unlock()

	err := p.host.UnregisterBar(id)
	p.registry.remove(id)

	p.mu.Lock()
	p.state = StateUnregistered
	p.message = 0
	p.mu.Unlock()

	if err != nil {
		p.logger.Warn("dock unregistration failed", "window", id, "error", err)
		return fmt.Errorf("unregister bar %d: %w", id, err)
	}
	p.logger.Debug("dock unregistered", "window", id)
	return nil
}

// SetPosition computes the bar's strip along its edge and applies it. When
// registered the host may adjust the rectangle; otherwise the bar positions
// itself.
func (p *Protocol) SetPosition() {
	scale := normalizeScale(p.bar.Scale())
	screen := p.bar.Screen().Bounds
	edge := p.bar.Edge()

	width := screen.Width
	height := Physical(p.bar.Height(), scale)
	if edge == platform.EdgeLeft || edge == platform.EdgeRight {
		width, height = height, screen.Height
	}
	want := EdgeRect(screen, edge, width, height)

	if p.State() != StateRegistered {
		p.apply(want, scale, false)
		return
	}

	granted, err := p.host.SetPos(p.bar.ID(), edge, screen, width, height)
	if err != nil {
		p.logger.Warn("dock position request failed, positioning directly", "window", p.bar.ID(), "error", err)
		p.apply(want, scale, false)
		return
	}
	p.afterHostPos(granted, scale)
}

// afterHostPos applies a host-granted rectangle. If the bar was elsewhere it
// re-applies the same rectangle after the delay, since the first placement
// can be overridden asynchronously.
func (p *Protocol) afterHostPos(granted platform.Rect, scale float64) {
	if p.hideDocks && !p.shell.ShuttingDown() {
		if err := p.host.HideNativeDocks(); err != nil {
			p.logger.Debug("failed to hide native docks", "error", err)
		}
	}

	p.mu.Lock()
	same := p.logical.ToPhysical(scale) == granted
	p.mu.Unlock()

	p.apply(granted, scale, false)
	if !same {
		p.schedule(func() { p.apply(granted, scale, true) })
	}
}

// DelaySetPosition re-runs SetPosition after the reposition delay.
func (p *Protocol) DelaySetPosition() {
	p.schedule(p.SetPosition)
}

// ScreenPosition repositions after a screen change: through the host when
// registered, otherwise directly after the delay.
func (p *Protocol) ScreenPosition() {
	if p.shell.IsShell() || !p.bar.DockEnabled() || p.State() != StateRegistered {
		p.DelaySetPosition()
		return
	}
	p.SetPosition()
}

// apply places the bar at r. Unless forced, a rectangle equal to the last
// placement is not re-issued: every configure comes back as a position change
// that peers react to.
func (p *Protocol) apply(r platform.Rect, scale float64, force bool) {
	p.mu.Lock()
	p.logical = ToLogical(r, scale)
	if !force && p.placedOK && p.placed == r {
		p.mu.Unlock()
		return
	}
	p.placed, p.placedOK = r, true
	p.mu.Unlock()

	if err := p.bar.Place(r); err != nil {
		p.mu.Lock()
		p.placedOK = false
		p.mu.Unlock()
		p.logger.Warn("failed to place bar", "window", p.bar.ID(), "rect", r, "error", err)
	}
}

func (p *Protocol) schedule(fn func()) {
	if p.scheduler == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	gen := p.gen
	var t *time.Timer
	t = p.scheduler.AfterFunc(p.delay, func() {
		p.mu.Lock()
		p.dropTimerLocked(t)
		stale := gen != p.gen
		p.mu.Unlock()
		// A callback already posted to the loop outlives Timer.Stop.
		if stale || p.shell.ShuttingDown() {
			return
		}
		fn()
	})
	p.pending = append(p.pending, t)
}

func (p *Protocol) dropTimerLocked(t *time.Timer) {
	for i, pt := range p.pending {
		if pt == t {
			p.pending = append(p.pending[:i], p.pending[i+1:]...)
			return
		}
	}
}

func (p *Protocol) cancelPendingLocked() {
	for _, t := range p.pending {
		if t != nil {
			t.Stop()
		}
	}
	p.pending = nil
	p.gen++
}

// HandleMessage processes a dock notification. It returns false if msg is
// not this bar's callback message.
func (p *Protocol) HandleMessage(msg uint32, n platform.DockNotification, before bool) bool {
	registered, ok := p.Message()
	if !ok || registered != msg {
		return false
	}

	switch n {
	case platform.DockPosChanged:
		p.SetPosition()
	case platform.DockWindowArrange:
		var err error
		if before {
			err = p.bar.Hide()
		} else {
			err = p.bar.Show()
		}
		if err != nil {
			p.logger.Debug("window arrange visibility change failed", "window", p.bar.ID(), "error", err)
		}
	case platform.DockFullScreenApp:
		if err := p.host.HideNativeDocks(); err != nil {
			p.logger.Debug("failed to hide native docks", "error", err)
		}
	}
	return true
}

// HandleActivate re-asserts the reservation when the bar is activated while
// another shell owns the desktop.
func (p *Protocol) HandleActivate() {
	if !p.active() {
		return
	}
	if err := p.host.Activate(p.bar.ID()); err != nil {
		p.logger.Debug("dock activate failed", "window", p.bar.ID(), "error", err)
	}
}

// HandlePosChanged tells the host the bar now occupies bounds. Repeats of
// the last reported geometry, such as synthetic configures for no-op moves,
// are not relayed. A geometry other than the last placement means someone
// else moved the bar, so the next SetPosition places it again.
func (p *Protocol) HandlePosChanged(bounds platform.Rect) {
	p.mu.Lock()
	if p.placedOK && p.placed != bounds {
		p.placedOK = false
	}
	repeat := p.reportedOK && p.reported == bounds
	p.reported, p.reportedOK = bounds, true
	p.mu.Unlock()

	if repeat || !p.active() {
		return
	}
	if err := p.host.WindowPosChanged(p.bar.ID()); err != nil {
		p.logger.Debug("dock position notify failed", "window", p.bar.ID(), "error", err)
	}
}

func (p *Protocol) active() bool {
	return p.bar.DockEnabled() && !p.shell.IsShell() && !p.shell.ShuttingDown()
}
