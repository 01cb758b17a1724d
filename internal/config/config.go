package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ShellMode selects whether edgebar acts as the desktop shell.
type ShellMode string

const (
	ShellModeAuto ShellMode = "auto" // Shell only when no EWMH window manager is running.
	ShellModeOn   ShellMode = "on"
	ShellModeOff  ShellMode = "off"
)

// Placement values for BarConfig.Placement.
const (
	PlacementAll       = "all"
	PlacementPrimary   = "primary"
	PlacementSecondary = "secondary"
)

// BarConfig describes one bar service.
type BarConfig struct {
	Name      string `yaml:"name"`
	Edge      string `yaml:"edge"`      // top, bottom, left, right
	Height    int    `yaml:"height"`    // logical pixels
	Placement string `yaml:"placement"` // all, primary, secondary
	// EnableDock reserves screen space through the window manager.
	EnableDock         bool `yaml:"enable_dock"`
	RequiresScreenEdge bool `yaml:"requires_screen_edge"`
	// ProcessScreenChanges makes this bar's primary-display window forward
	// display, device and compositor changes to the reconciler.
	ProcessScreenChanges bool   `yaml:"process_screen_changes"`
	Color                string `yaml:"color"` // #RRGGBB
}

// JournalConfig configures the pass journal.
type JournalConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Path       string `yaml:"path"` // empty = runtime data dir
	RetainDays int    `yaml:"retain_days"`
}

// Config is the effective daemon configuration.
type Config struct {
	ShellMode           ShellMode     `yaml:"shell_mode"`
	LogLevel            string        `yaml:"log_level"`
	ReconcileIntervalMS int           `yaml:"reconcile_interval_ms"`
	RepositionDelayMS   int           `yaml:"reposition_delay_ms"`
	HideNativeDocks     bool          `yaml:"hide_native_docks"`
	RefreshHotkey       string        `yaml:"refresh_hotkey"`
	Journal             JournalConfig `yaml:"journal"`
	Bars                []BarConfig   `yaml:"bars"`
}

// DefaultBars returns the bars used when the config file names none.
func DefaultBars() []BarConfig {
	return []BarConfig{
		{
			Name:                 "menubar",
			Edge:                 "top",
			Height:               24,
			Placement:            PlacementAll,
			EnableDock:           true,
			RequiresScreenEdge:   true,
			ProcessScreenChanges: true,
			Color:                "#1e1e2e",
		},
		{
			Name:               "taskbar",
			Edge:               "bottom",
			Height:             32,
			Placement:          PlacementPrimary,
			EnableDock:         true,
			RequiresScreenEdge: true,
			Color:              "#181825",
		},
	}
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		ShellMode:           ShellModeAuto,
		LogLevel:            "info",
		ReconcileIntervalMS: 100,
		RepositionDelayMS:   100,
		HideNativeDocks:     false,
		RefreshHotkey:       "",
		Journal: JournalConfig{
			Enabled:    true,
			RetainDays: 7,
		},
		Bars: DefaultBars(),
	}
}

// ReconcileInterval returns the backstop tick interval.
func (c *Config) ReconcileInterval() time.Duration {
	return time.Duration(c.ReconcileIntervalMS) * time.Millisecond
}

// RepositionDelay returns the deferred re-apply delay used by docked bars.
func (c *Config) RepositionDelay() time.Duration {
	return time.Duration(c.RepositionDelayMS) * time.Millisecond
}

// SlogLevel maps LogLevel to a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Bar returns the bar with the given name.
func (c *Config) Bar(name string) (BarConfig, bool) {
	for _, b := range c.Bars {
		if b.Name == name {
			return b, true
		}
	}
	return BarConfig{}, false
}

// ParseColor parses a #RRGGBB string into a 24-bit pixel value.
func ParseColor(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	if len(s) != 7 || s[0] != '#' {
		return 0, fmt.Errorf("color must be #RRGGBB, got %q", s)
	}
	var v uint32
	for _, ch := range s[1:] {
		v <<= 4
		switch {
		case ch >= '0' && ch <= '9':
			v |= uint32(ch - '0')
		case ch >= 'a' && ch <= 'f':
			v |= uint32(ch-'a') + 10
		case ch >= 'A' && ch <= 'F':
			v |= uint32(ch-'A') + 10
		default:
			return 0, fmt.Errorf("color must be #RRGGBB, got %q", s)
		}
	}
	return v, nil
}

// Save writes the config to the default path.
func (c *Config) Save() error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.SaveToPath(path)
}

// SaveToPath validates and writes the config to path.
func (c *Config) SaveToPath(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks the effective configuration.
func (c *Config) Validate() error {
	switch c.ShellMode {
	case ShellModeAuto, ShellModeOn, ShellModeOff:
	default:
		return &ValidationError{Path: "shell_mode", Err: fmt.Errorf("shell_mode must be one of: auto, on, off")}
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warn, error")}
	}
	if c.ReconcileIntervalMS < 10 {
		return &ValidationError{Path: "reconcile_interval_ms", Err: fmt.Errorf("reconcile_interval_ms must be >= 10")}
	}
	if c.RepositionDelayMS < 0 {
		return &ValidationError{Path: "reposition_delay_ms", Err: fmt.Errorf("reposition_delay_ms must be >= 0")}
	}
	if c.Journal.RetainDays < 0 {
		return &ValidationError{Path: "journal.retain_days", Err: fmt.Errorf("retain_days must be >= 0")}
	}
	if len(c.Bars) == 0 {
		return &ValidationError{Path: "bars", Err: fmt.Errorf("bars must not be empty")}
	}

	seen := make(map[string]struct{}, len(c.Bars))
	designated := 0
	for i, b := range c.Bars {
		path := fmt.Sprintf("bars.%d", i)
		if strings.TrimSpace(b.Name) == "" {
			return &ValidationError{Path: path + ".name", Err: fmt.Errorf("name is required")}
		}
		if _, dup := seen[b.Name]; dup {
			return &ValidationError{Path: path + ".name", Err: fmt.Errorf("duplicate bar name %q", b.Name)}
		}
		seen[b.Name] = struct{}{}

		switch b.Edge {
		case "top", "bottom", "left", "right":
		default:
			return &ValidationError{Path: path + ".edge", Err: fmt.Errorf("edge must be one of: top, bottom, left, right")}
		}
		if b.Height <= 0 {
			return &ValidationError{Path: path + ".height", Err: fmt.Errorf("height must be > 0")}
		}
		switch b.Placement {
		case PlacementAll, PlacementPrimary, PlacementSecondary:
		default:
			return &ValidationError{Path: path + ".placement", Err: fmt.Errorf("placement must be one of: all, primary, secondary")}
		}
		if _, err := ParseColor(b.Color); err != nil {
			return &ValidationError{Path: path + ".color", Err: err}
		}
		if b.ProcessScreenChanges {
			designated++
		}
	}
	if designated > 1 {
		return &ValidationError{Path: "bars", Err: fmt.Errorf("at most one bar may set process_screen_changes")}
	}
	return nil
}

// validationWarnings reports settings that load but probably do nothing.
func (c *Config) validationWarnings() []string {
	var warnings []string
	designated := false
	for _, b := range c.Bars {
		if b.ProcessScreenChanges {
			designated = true
			if b.Placement == PlacementSecondary {
				warnings = append(warnings, fmt.Sprintf("bar %q processes screen changes but never runs on the primary display", b.Name))
			}
		}
		if !b.EnableDock && b.RequiresScreenEdge {
			warnings = append(warnings, fmt.Sprintf("bar %q requires a screen edge but does not reserve space", b.Name))
		}
	}
	if !designated {
		warnings = append(warnings, "no bar sets process_screen_changes; topology changes are handed to the reconciler by the daemon")
	}
	if !c.Journal.Enabled && c.Journal.Path != "" {
		warnings = append(warnings, "journal.path is set but the journal is disabled")
	}
	return warnings
}

// Warnings returns non-fatal configuration issues.
func (c *Config) Warnings() []string {
	return c.validationWarnings()
}
