package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		// Not present.
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

// RawBar is a bar entry as written. Unset fields inherit from the built-in
// bar of the same name, or from generic bar defaults.
type RawBar struct {
	Name                 *string `yaml:"name"`
	Edge                 *string `yaml:"edge"`
	Height               *int    `yaml:"height"`
	Placement            *string `yaml:"placement"`
	EnableDock           *bool   `yaml:"enable_dock"`
	RequiresScreenEdge   *bool   `yaml:"requires_screen_edge"`
	ProcessScreenChanges *bool   `yaml:"process_screen_changes"`
	Color                *string `yaml:"color"`
}

type RawJournal struct {
	Enabled    *bool   `yaml:"enabled"`
	Path       *string `yaml:"path"`
	RetainDays *int    `yaml:"retain_days"`
}

type RawConfig struct {
	Include             IncludeList `yaml:"include"`
	ShellMode           *ShellMode  `yaml:"shell_mode"`
	LogLevel            *string     `yaml:"log_level"`
	ReconcileIntervalMS *int        `yaml:"reconcile_interval_ms"`
	RepositionDelayMS   *int        `yaml:"reposition_delay_ms"`
	HideNativeDocks     *bool       `yaml:"hide_native_docks"`
	RefreshHotkey       *string     `yaml:"refresh_hotkey"`
	Journal             *RawJournal `yaml:"journal"`
	Bars                []RawBar    `yaml:"bars"`
}

// merge layers overlay on top of r. A bars list in overlay replaces r's.
func (r RawConfig) merge(overlay RawConfig) RawConfig {
	out := r
	if overlay.ShellMode != nil {
		out.ShellMode = overlay.ShellMode
	}
	if overlay.LogLevel != nil {
		out.LogLevel = overlay.LogLevel
	}
	if overlay.ReconcileIntervalMS != nil {
		out.ReconcileIntervalMS = overlay.ReconcileIntervalMS
	}
	if overlay.RepositionDelayMS != nil {
		out.RepositionDelayMS = overlay.RepositionDelayMS
	}
	if overlay.HideNativeDocks != nil {
		out.HideNativeDocks = overlay.HideNativeDocks
	}
	if overlay.RefreshHotkey != nil {
		out.RefreshHotkey = overlay.RefreshHotkey
	}
	if overlay.Journal != nil {
		merged := RawJournal{}
		if out.Journal != nil {
			merged = *out.Journal
		}
		if overlay.Journal.Enabled != nil {
			merged.Enabled = overlay.Journal.Enabled
		}
		if overlay.Journal.Path != nil {
			merged.Path = overlay.Journal.Path
		}
		if overlay.Journal.RetainDays != nil {
			merged.RetainDays = overlay.Journal.RetainDays
		}
		out.Journal = &merged
	}
	if overlay.Bars != nil {
		out.Bars = append([]RawBar(nil), overlay.Bars...)
	}
	return out
}
