package config

import (
	"fmt"
	"strings"
)

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// BuildEffectiveConfig applies raw on top of DefaultConfig. The returned map
// names, for each bar, the built-in bar it inherited from ("" if none).
func BuildEffectiveConfig(raw RawConfig) (*Config, map[string]string, error) {
	cfg := DefaultConfig()

	if raw.ShellMode != nil {
		cfg.ShellMode = ShellMode(strings.ToLower(strings.TrimSpace(string(*raw.ShellMode))))
	}
	if raw.LogLevel != nil {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(*raw.LogLevel))
		if cfg.LogLevel == "warning" {
			cfg.LogLevel = "warn"
		}
	}
	if raw.ReconcileIntervalMS != nil {
		cfg.ReconcileIntervalMS = *raw.ReconcileIntervalMS
	}
	if raw.RepositionDelayMS != nil {
		cfg.RepositionDelayMS = *raw.RepositionDelayMS
	}
	if raw.HideNativeDocks != nil {
		cfg.HideNativeDocks = *raw.HideNativeDocks
	}
	if raw.RefreshHotkey != nil {
		cfg.RefreshHotkey = strings.TrimSpace(*raw.RefreshHotkey)
	}
	if raw.Journal != nil {
		if raw.Journal.Enabled != nil {
			cfg.Journal.Enabled = *raw.Journal.Enabled
		}
		if raw.Journal.Path != nil {
			cfg.Journal.Path = *raw.Journal.Path
		}
		if raw.Journal.RetainDays != nil {
			cfg.Journal.RetainDays = *raw.Journal.RetainDays
		}
	}

	bases := make(map[string]string)
	if raw.Bars != nil {
		bars, err := applyBars(raw.Bars, bases)
		if err != nil {
			return nil, nil, err
		}
		cfg.Bars = bars
	} else {
		for _, b := range cfg.Bars {
			bases[b.Name] = b.Name
		}
	}

	return cfg, bases, nil
}

func applyBars(raw []RawBar, bases map[string]string) ([]BarConfig, error) {
	builtin := DefaultBars()
	out := make([]BarConfig, 0, len(raw))
	for i, patch := range raw {
		if patch.Name == nil {
			return nil, &ValidationError{Path: fmt.Sprintf("bars.%d.name", i), Err: fmt.Errorf("name is required")}
		}
		name := strings.TrimSpace(*patch.Name)

		bar, base := genericBar(name), ""
		for _, b := range builtin {
			if b.Name == name {
				bar, base = b, b.Name
				break
			}
		}
		bases[name] = base

		if patch.Edge != nil {
			bar.Edge = strings.ToLower(strings.TrimSpace(*patch.Edge))
		}
		if patch.Height != nil {
			bar.Height = *patch.Height
		}
		if patch.Placement != nil {
			bar.Placement = strings.ToLower(strings.TrimSpace(*patch.Placement))
		}
		if patch.EnableDock != nil {
			bar.EnableDock = *patch.EnableDock
		}
		if patch.RequiresScreenEdge != nil {
			bar.RequiresScreenEdge = *patch.RequiresScreenEdge
		}
		if patch.ProcessScreenChanges != nil {
			bar.ProcessScreenChanges = *patch.ProcessScreenChanges
		}
		if patch.Color != nil {
			bar.Color = strings.TrimSpace(*patch.Color)
		}
		out = append(out, bar)
	}
	return out, nil
}

func genericBar(name string) BarConfig {
	return BarConfig{
		Name:       name,
		Edge:       "top",
		Height:     24,
		Placement:  PlacementAll,
		EnableDock: true,
		Color:      "#1e1e2e",
	}
}
