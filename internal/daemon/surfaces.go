//go:build linux

package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/1broseidon/edgebar/internal/config"
	"github.com/1broseidon/edgebar/internal/ipc"
)

// Status implements ipc.Daemon.
func (d *Daemon) Status() ipc.StatusData {
	st := d.manager.Status()
	out := ipc.StatusData{
		Version:         d.opts.Version,
		UptimeSeconds:   int64(time.Since(d.started).Seconds()),
		IsShell:         st.IsShell,
		ShuttingDown:    st.ShuttingDown,
		SettingDisplays: st.SettingDisplays,
		SetupComplete:   st.SetupComplete,
		Pending:         st.Pending,
		Passes:          uint64(st.Passes),
		LastPass:        st.LastPass,
		DisplayCount:    len(st.Displays),
	}
	for _, svc := range d.services {
		for _, w := range svc.Bars() {
			out.Bars = append(out.Bars, ipc.BarInfo{
				Service: svc.Name(),
				Display: w.DisplayName(),
				Window:  uint32(w.ID()),
				Dock:    w.DockState().String(),
				Topmost: w.Topmost(),
			})
		}
	}
	return out
}

// Displays implements ipc.Daemon. It reports the last committed snapshot.
func (d *Daemon) Displays() ([]ipc.DisplayInfo, error) {
	displays := d.manager.Displays()
	out := make([]ipc.DisplayInfo, 0, len(displays))
	for _, disp := range displays {
		out = append(out, displayInfo(disp))
	}
	return out, nil
}

// Refresh implements ipc.Daemon.
func (d *Daemon) Refresh() (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	var ran bool
	if err := d.loop.Call(ctx, func() { ran = d.refresh() }); err != nil {
		return false, fmt.Errorf("refresh did not run: %w", err)
	}
	return ran, nil
}

// Reload implements ipc.Daemon.
func (d *Daemon) Reload() error {
	res, err := config.LoadFromPath(d.opts.ConfigPath)
	if err != nil {
		return err
	}
	d.applyConfig(res)
	return nil
}

// History implements ipc.Daemon.
func (d *Daemon) History(limit int) ([]ipc.PassInfo, error) {
	if d.store == nil {
		return nil, fmt.Errorf("pass journal is disabled")
	}
	passes, err := d.store.Recent(limit)
	if err != nil {
		return nil, err
	}
	out := make([]ipc.PassInfo, 0, len(passes))
	for _, p := range passes {
		out = append(out, passInfo(p))
	}
	return out, nil
}
