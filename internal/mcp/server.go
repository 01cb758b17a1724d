// Package mcp exposes the running edgebar daemon to MCP clients over stdio.
package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/edgebar/internal/ipc"
)

const (
	ServerName    = "edgebar"
	ServerVersion = "0.1.0"

	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// Daemon is the subset of the IPC client the tools use.
type Daemon interface {
	GetStatus() (*ipc.StatusData, error)
	GetDisplays() (*ipc.DisplaysData, error)
	Refresh() (bool, error)
	GetHistory(limit int) (*ipc.HistoryData, error)
}

var _ Daemon = (*ipc.Client)(nil)

// Server is the MCP server for edgebar status and refresh.
type Server struct {
	mcpServer *mcpsdk.Server
	daemon    Daemon
	logger    *slog.Logger
}

// NewServer creates a server that talks to the daemon through d.
func NewServer(d Daemon, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{daemon: d, logger: logger}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_status",
		Description: "Report edgebar daemon state: whether it runs as the shell, whether a display pass is in progress, pending notifications, pass count and the bars currently open on each display.",
	}, s.handleGetStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_displays",
		Description: "List the displays edgebar last reconciled, with bounds, work area and scale. Geometry is formatted as WxH+X+Y.",
	}, s.handleListDisplays)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "refresh_displays",
		Description: "Force a display reconciliation pass, as if the display topology had changed. If a pass is already running the request is queued behind it.",
	}, s.handleRefreshDisplays)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_history",
		Description: "Return recent reconciliation passes from the pass journal, newest first, with reason, outcome and the displays added or removed.",
	}, s.handleGetHistory)
}
