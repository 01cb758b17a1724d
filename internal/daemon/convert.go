//go:build linux

package daemon

import (
	"fmt"
	"slices"

	"github.com/1broseidon/edgebar/internal/bars"
	"github.com/1broseidon/edgebar/internal/config"
	"github.com/1broseidon/edgebar/internal/dbusnotify"
	"github.com/1broseidon/edgebar/internal/fullscreen"
	"github.com/1broseidon/edgebar/internal/ipc"
	"github.com/1broseidon/edgebar/internal/journal"
	"github.com/1broseidon/edgebar/internal/platform"
	"github.com/1broseidon/edgebar/internal/windowmanager"
)

func barSpec(bc config.BarConfig) (bars.Spec, error) {
	edge, ok := platform.ParseEdge(bc.Edge)
	if !ok || edge == platform.EdgeNone {
		return bars.Spec{}, fmt.Errorf("bar %q: invalid edge %q", bc.Name, bc.Edge)
	}
	color, err := config.ParseColor(bc.Color)
	if err != nil {
		return bars.Spec{}, fmt.Errorf("bar %q: %w", bc.Name, err)
	}
	return bars.Spec{
		Name:                 bc.Name,
		Edge:                 edge,
		Height:               float64(bc.Height),
		Placement:            bars.Placement(bc.Placement),
		EnableDock:           bc.EnableDock,
		RequiresScreenEdge:   bc.RequiresScreenEdge,
		ProcessScreenChanges: bc.ProcessScreenChanges,
		Color:                color,
	}, nil
}

func displayInfo(d platform.Display) ipc.DisplayInfo {
	return ipc.DisplayInfo{
		ID:       d.ID,
		Name:     d.Name,
		Primary:  d.Primary,
		X:        d.Bounds.X,
		Y:        d.Bounds.Y,
		Width:    d.Bounds.Width,
		Height:   d.Bounds.Height,
		WorkArea: [4]int{d.WorkArea.X, d.WorkArea.Y, d.WorkArea.Width, d.WorkArea.Height},
		Scale:    d.Scale,
	}
}

func passInfo(p *journal.Pass) ipc.PassInfo {
	return ipc.PassInfo{
		ID:       p.ID,
		Reason:   p.Reason,
		Outcome:  p.Outcome,
		Added:    p.AddedNames(),
		Removed:  p.RemovedNames(),
		Displays: len(p.DisplayNames()),
		Started:  p.StartedAt,
		Duration: p.Duration().String(),
		Error:    p.Error,
	}
}

func fullScreenApps(wins []platform.FullScreenWindow) []fullscreen.App {
	if len(wins) == 0 {
		return nil
	}
	apps := make([]fullscreen.App, 0, len(wins))
	for _, w := range wins {
		apps = append(apps, fullscreen.App{Window: w.Window, Title: w.Title, Display: w.Display})
	}
	return apps
}

func busReason(kind dbusnotify.Kind) (windowmanager.Reason, bool) {
	switch kind {
	case dbusnotify.KindMonitorsChanged:
		return windowmanager.ReasonDisplayChange, true
	case dbusnotify.KindResumed:
		// Outputs often re-enumerate after resume without a RandR event.
		return windowmanager.ReasonDeviceChange, true
	}
	return 0, false
}

// orphanReason maps a broadcast topology event to the reason the manager
// would have received from the designated bar.
func orphanReason(ev platform.Event) (windowmanager.Reason, bool) {
	switch ev.Type {
	case platform.EventDisplayChange:
		return windowmanager.ReasonDisplayChange, true
	case platform.EventDeviceChange:
		if ev.Code == platform.DeviceNodesChanged {
			return windowmanager.ReasonDeviceChange, true
		}
	case platform.EventDPIChanged:
		return windowmanager.ReasonDpiChange, true
	case platform.EventCompositorChange:
		return windowmanager.ReasonDwmChange, true
	}
	return 0, false
}

// restartRequired lists the config fields that differ between prev and next
// and are only read at startup.
func restartRequired(prev, next *config.Config) []string {
	if prev == nil || next == nil {
		return nil
	}
	var fields []string
	if prev.ShellMode != next.ShellMode {
		fields = append(fields, "shell_mode")
	}
	if prev.ReconcileIntervalMS != next.ReconcileIntervalMS {
		fields = append(fields, "reconcile_interval_ms")
	}
	if prev.RepositionDelayMS != next.RepositionDelayMS {
		fields = append(fields, "reposition_delay_ms")
	}
	if prev.HideNativeDocks != next.HideNativeDocks {
		fields = append(fields, "hide_native_docks")
	}
	if prev.RefreshHotkey != next.RefreshHotkey {
		fields = append(fields, "refresh_hotkey")
	}
	if prev.Journal != next.Journal {
		fields = append(fields, "journal")
	}
	if !slices.Equal(prev.Bars, next.Bars) {
		fields = append(fields, "bars")
	}
	return fields
}
