package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Explain returns the effective value at the given YAML-like path and its source.
//
// Supported paths include:
//
//	shell_mode
//	log_level
//	reconcile_interval_ms
//	reposition_delay_ms
//	hide_native_docks
//	refresh_hotkey
//	journal.enabled
//	journal.path
//	journal.retain_days
//	bars
//	bars.<index>.<field>
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}

	// Exact-path file source wins.
	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}

	if strings.HasPrefix(path, "bars.") {
		parts := strings.Split(path, ".")
		idx, _ := strconv.Atoi(parts[1])
		if idx < len(res.Config.Bars) {
			if base := res.BarBases[res.Config.Bars[idx].Name]; base != "" {
				return value, Source{Kind: SourceBuiltin, Name: base}, nil
			}
		}
	}

	return value, Source{Kind: SourceDefault, Name: "defaults"}, nil
}

func lookupValue(cfg *Config, path string) (any, error) {
	parts := strings.Split(path, ".")
	single := func(v any) (any, error) {
		if len(parts) != 1 {
			return nil, fmt.Errorf("unknown path: %s", path)
		}
		return v, nil
	}

	switch parts[0] {
	case "shell_mode":
		return single(cfg.ShellMode)
	case "log_level":
		return single(cfg.LogLevel)
	case "reconcile_interval_ms":
		return single(cfg.ReconcileIntervalMS)
	case "reposition_delay_ms":
		return single(cfg.RepositionDelayMS)
	case "hide_native_docks":
		return single(cfg.HideNativeDocks)
	case "refresh_hotkey":
		return single(cfg.RefreshHotkey)
	case "journal":
		if len(parts) == 1 {
			return cfg.Journal, nil
		}
		if len(parts) != 2 {
			return nil, fmt.Errorf("unknown path: %s", path)
		}
		switch parts[1] {
		case "enabled":
			return cfg.Journal.Enabled, nil
		case "path":
			return cfg.Journal.Path, nil
		case "retain_days":
			return cfg.Journal.RetainDays, nil
		}
	case "bars":
		if len(parts) == 1 {
			return cfg.Bars, nil
		}
		idx, err := strconv.Atoi(parts[1])
		if err != nil || idx < 0 || idx >= len(cfg.Bars) {
			return nil, fmt.Errorf("unknown bar index: %s", parts[1])
		}
		bar := cfg.Bars[idx]
		if len(parts) == 2 {
			return bar, nil
		}
		if len(parts) != 3 {
			return nil, fmt.Errorf("unknown path: %s", path)
		}
		return barField(bar, parts[2], path)
	}
	return nil, fmt.Errorf("unknown path: %s", path)
}

func barField(bar BarConfig, field, path string) (any, error) {
	switch field {
	case "name":
		return bar.Name, nil
	case "edge":
		return bar.Edge, nil
	case "height":
		return bar.Height, nil
	case "placement":
		return bar.Placement, nil
	case "enable_dock":
		return bar.EnableDock, nil
	case "requires_screen_edge":
		return bar.RequiresScreenEdge, nil
	case "process_screen_changes":
		return bar.ProcessScreenChanges, nil
	case "color":
		return bar.Color, nil
	}
	return nil, fmt.Errorf("unknown path: %s", path)
}
