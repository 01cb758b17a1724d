package ipc

import (
	"encoding/json"
	"fmt"
	"time"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandReload      CommandType = "RELOAD"
	CommandGetStatus   CommandType = "GET_STATUS"
	CommandGetDisplays CommandType = "GET_DISPLAYS"
	CommandRefresh     CommandType = "REFRESH"
	CommandGetHistory  CommandType = "GET_HISTORY"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	Version         string    `json:"version"`
	UptimeSeconds   int64     `json:"uptime_seconds"`
	IsShell         bool      `json:"is_shell"`
	ShuttingDown    bool      `json:"shutting_down"`
	SettingDisplays bool      `json:"setting_displays"`
	SetupComplete   bool      `json:"setup_complete"`
	Pending         int       `json:"pending"`
	Passes          uint64    `json:"passes"`
	LastPass        time.Time `json:"last_pass,omitempty"`
	DisplayCount    int       `json:"display_count"`
	Bars            []BarInfo `json:"bars"`
}

// BarInfo describes one open bar window.
type BarInfo struct {
	Service string `json:"service"`
	Display string `json:"display"`
	Window  uint32 `json:"window"`
	Dock    string `json:"dock"`
	Topmost bool   `json:"topmost"`
}

// DisplayInfo represents information about a single display
type DisplayInfo struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Primary  bool    `json:"primary"`
	X        int     `json:"x"`
	Y        int     `json:"y"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	WorkArea [4]int  `json:"work_area"` // x, y, width, height
	Scale    float64 `json:"scale"`
}

// DisplaysData represents the data returned by GET_DISPLAYS
type DisplaysData struct {
	Displays []DisplayInfo `json:"displays"`
}

// PassInfo is one reconciliation pass from the journal.
type PassInfo struct {
	ID       string    `json:"id"`
	Reason   string    `json:"reason"`
	Outcome  string    `json:"outcome"`
	Added    []string  `json:"added,omitempty"`
	Removed  []string  `json:"removed,omitempty"`
	Displays int       `json:"displays"`
	Started  time.Time `json:"started"`
	Duration string    `json:"duration"`
	Error    string    `json:"error,omitempty"`
}

// HistoryPayload is the payload for GET_HISTORY.
type HistoryPayload struct {
	Limit int `json:"limit"`
}

// HistoryData represents the data returned by GET_HISTORY
type HistoryData struct {
	Passes []PassInfo `json:"passes"`
}

// RefreshData reports whether a refresh ran a pass immediately.
type RefreshData struct {
	Ran bool `json:"ran"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
