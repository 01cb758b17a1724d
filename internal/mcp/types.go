package mcp

// GetStatusInput is the input for the get_status tool.
type GetStatusInput struct{}

// BarStatus describes one open bar window.
type BarStatus struct {
	Service string `json:"service"`
	Display string `json:"display"`
	Window  uint32 `json:"window"`
	Dock    string `json:"dock"`
	Topmost bool   `json:"topmost"`
}

// GetStatusOutput is the output for the get_status tool.
type GetStatusOutput struct {
	Version         string      `json:"version"`
	Uptime          string      `json:"uptime"`
	IsShell         bool        `json:"is_shell"`
	SettingDisplays bool        `json:"setting_displays"`
	SetupComplete   bool        `json:"setup_complete"`
	Pending         int         `json:"pending"`
	Passes          uint64      `json:"passes"`
	LastPass        string      `json:"last_pass,omitempty"` // RFC 3339
	DisplayCount    int         `json:"display_count"`
	Bars            []BarStatus `json:"bars"`
}

// ListDisplaysInput is the input for the list_displays tool.
type ListDisplaysInput struct {
	PrimaryOnly bool `json:"primary_only,omitempty" jsonschema:"When true, return only the primary display"`
}

// DisplayStatus describes one display from the last committed snapshot.
type DisplayStatus struct {
	Name     string  `json:"name"`
	Primary  bool    `json:"primary"`
	Bounds   string  `json:"bounds"`    // WxH+X+Y
	WorkArea string  `json:"work_area"` // WxH+X+Y
	Scale    float64 `json:"scale"`
}

// ListDisplaysOutput is the output for the list_displays tool.
type ListDisplaysOutput struct {
	Displays []DisplayStatus `json:"displays"`
}

// RefreshDisplaysInput is the input for the refresh_displays tool.
type RefreshDisplaysInput struct{}

// RefreshDisplaysOutput is the output for the refresh_displays tool.
type RefreshDisplaysOutput struct {
	Ran     bool   `json:"ran"`
	Message string `json:"message"`
}

// GetHistoryInput is the input for the get_history tool.
type GetHistoryInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Number of passes to return, newest first (default: 20, max: 200)"`
}

// PassSummary is one journaled reconciliation pass.
type PassSummary struct {
	Reason   string   `json:"reason"`
	Outcome  string   `json:"outcome"`
	Started  string   `json:"started"`
	Duration string   `json:"duration"`
	Added    []string `json:"added,omitempty"`
	Removed  []string `json:"removed,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// GetHistoryOutput is the output for the get_history tool.
type GetHistoryOutput struct {
	Passes []PassSummary `json:"passes"`
}
