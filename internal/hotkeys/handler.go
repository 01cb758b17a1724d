package hotkeys

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
)

// X11 is implemented by backends that expose X11 internals.
type X11 interface {
	XUtil() *xgbutil.XUtil
	RootWindow() xproto.Window
}

// Handler owns the global key grabs on the root window. Callbacks are posted
// so they run on the UI loop, not the X event goroutine.
type Handler struct {
	xu     *xgbutil.XUtil
	root   xproto.Window
	logger *slog.Logger
	post   func(func())

	mu       sync.Mutex
	bindings []string
}

var lockModsOnce sync.Once

func NewHandler(x X11, post func(func()), logger *slog.Logger) *Handler {
	xu := x.XUtil()
	lockModsOnce.Do(func() {
		xevent.IgnoreMods = lockModCombinations(lockMasks(xu))
	})
	if post == nil {
		post = func(fn func()) { fn() }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{xu: xu, root: x.RootWindow(), logger: logger, post: post}
}

// RegisterRefresh binds seq to a forced display refresh. An empty seq
// registers nothing.
func (h *Handler) RegisterRefresh(seq string, refresh func()) error {
	seq = strings.TrimSpace(seq)
	if seq == "" {
		return nil
	}
	err := h.Bind(seq, func() {
		h.logger.Info("refresh hotkey pressed", "keys", seq)
		refresh()
	})
	if err != nil {
		return fmt.Errorf("refresh hotkey %q: %w", seq, err)
	}
	return nil
}

// Bind grabs seq and posts fn on every press.
func (h *Handler) Bind(seq string, fn func()) error {
	onPress := keybind.KeyPressFun(func(_ *xgbutil.XUtil, _ xevent.KeyPressEvent) {
		h.post(fn)
	})
	if err := onPress.Connect(h.xu, h.root, seq, true); err != nil {
		return err
	}
	h.mu.Lock()
	h.bindings = append(h.bindings, seq)
	h.mu.Unlock()
	return nil
}

// UnregisterAll releases every grab made through this handler.
func (h *Handler) UnregisterAll() {
	h.mu.Lock()
	bindings := h.bindings
	h.bindings = nil
	h.mu.Unlock()

	for _, seq := range bindings {
		mods, codes, err := keybind.ParseString(h.xu, seq)
		if err != nil {
			h.logger.Debug("skipping ungrab", "keys", seq, "error", err)
			continue
		}
		for _, code := range codes {
			keybind.Ungrab(h.xu, h.root, mods, code)
		}
	}
	keybind.Detach(h.xu, h.root)
}

// lockMasks returns the distinct lock modifiers: CapsLock plus whatever
// NumLock and ScrollLock are mapped to.
func lockMasks(xu *xgbutil.XUtil) []uint16 {
	masks := []uint16{uint16(xproto.ModMaskLock)}
	for _, sym := range []string{"Num_Lock", "Scroll_Lock"} {
		m := keysymMask(xu, sym)
		if m != 0 && !slices.Contains(masks, m) {
			masks = append(masks, m)
		}
	}
	return masks
}

// lockModCombinations expands masks into every OR-combination, including 0,
// so grabs fire regardless of which locks are on.
func lockModCombinations(masks []uint16) []uint16 {
	combos := []uint16{0}
	for _, m := range masks {
		for _, c := range combos {
			combos = append(combos, c|m)
		}
	}
	slices.Sort(combos)
	return slices.Compact(combos)
}

func keysymMask(xu *xgbutil.XUtil, sym string) uint16 {
	for _, code := range keybind.StrToKeycodes(xu, sym) {
		if m := keybind.ModGet(xu, code); m != 0 {
			return m
		}
	}
	return 0
}
