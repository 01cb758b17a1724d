package mcp

import (
	"context"
	"fmt"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/edgebar/internal/ipc"
)

func (s *Server) handleGetStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ GetStatusInput) (*mcpsdk.CallToolResult, GetStatusOutput, error) {
	st, err := s.daemon.GetStatus()
	if err != nil {
		return nil, GetStatusOutput{}, fmt.Errorf("edgebar daemon unavailable: %w", err)
	}

	out := GetStatusOutput{
		Version:         st.Version,
		Uptime:          (time.Duration(st.UptimeSeconds) * time.Second).String(),
		IsShell:         st.IsShell,
		SettingDisplays: st.SettingDisplays,
		SetupComplete:   st.SetupComplete,
		Pending:         st.Pending,
		Passes:          st.Passes,
		DisplayCount:    st.DisplayCount,
		Bars:            make([]BarStatus, 0, len(st.Bars)),
	}
	if !st.LastPass.IsZero() {
		out.LastPass = st.LastPass.Format(time.RFC3339)
	}
	for _, b := range st.Bars {
		out.Bars = append(out.Bars, BarStatus{
			Service: b.Service,
			Display: b.Display,
			Window:  b.Window,
			Dock:    b.Dock,
			Topmost: b.Topmost,
		})
	}
	s.logger.Debug("get_status", "displays", out.DisplayCount, "bars", len(out.Bars))
	return nil, out, nil
}

func (s *Server) handleListDisplays(_ context.Context, _ *mcpsdk.CallToolRequest, args ListDisplaysInput) (*mcpsdk.CallToolResult, ListDisplaysOutput, error) {
	data, err := s.daemon.GetDisplays()
	if err != nil {
		return nil, ListDisplaysOutput{}, fmt.Errorf("edgebar daemon unavailable: %w", err)
	}

	out := ListDisplaysOutput{Displays: make([]DisplayStatus, 0, len(data.Displays))}
	for _, d := range data.Displays {
		if args.PrimaryOnly && !d.Primary {
			continue
		}
		out.Displays = append(out.Displays, displayStatus(d))
	}
	return nil, out, nil
}

func (s *Server) handleRefreshDisplays(_ context.Context, _ *mcpsdk.CallToolRequest, _ RefreshDisplaysInput) (*mcpsdk.CallToolResult, RefreshDisplaysOutput, error) {
	ran, err := s.daemon.Refresh()
	if err != nil {
		return nil, RefreshDisplaysOutput{}, fmt.Errorf("refresh failed: %w", err)
	}
	out := RefreshDisplaysOutput{Ran: ran, Message: "display pass completed"}
	if !ran {
		out.Message = "a display pass was already running; refresh queued"
	}
	s.logger.Info("refresh_displays", "ran", ran)
	return nil, out, nil
}

func (s *Server) handleGetHistory(_ context.Context, _ *mcpsdk.CallToolRequest, args GetHistoryInput) (*mcpsdk.CallToolResult, GetHistoryOutput, error) {
	data, err := s.daemon.GetHistory(clampHistoryLimit(args.Limit))
	if err != nil {
		return nil, GetHistoryOutput{}, fmt.Errorf("history unavailable: %w", err)
	}

	out := GetHistoryOutput{Passes: make([]PassSummary, 0, len(data.Passes))}
	for _, p := range data.Passes {
		out.Passes = append(out.Passes, PassSummary{
			Reason:   p.Reason,
			Outcome:  p.Outcome,
			Started:  p.Started.Format(time.RFC3339),
			Duration: p.Duration,
			Added:    p.Added,
			Removed:  p.Removed,
			Error:    p.Error,
		})
	}
	return nil, out, nil
}

func clampHistoryLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultHistoryLimit
	case limit > maxHistoryLimit:
		return maxHistoryLimit
	}
	return limit
}

func displayStatus(d ipc.DisplayInfo) DisplayStatus {
	return DisplayStatus{
		Name:     d.Name,
		Primary:  d.Primary,
		Bounds:   geometry(d.X, d.Y, d.Width, d.Height),
		WorkArea: geometry(d.WorkArea[0], d.WorkArea[1], d.WorkArea[2], d.WorkArea[3]),
		Scale:    d.Scale,
	}
}

// geometry formats a rectangle X11-style.
func geometry(x, y, w, h int) string {
	return fmt.Sprintf("%dx%d%+d%+d", w, h, x, y)
}
