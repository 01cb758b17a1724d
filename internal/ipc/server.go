package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/1broseidon/edgebar/internal/runtimepath"
)

// DefaultHistoryLimit caps GET_HISTORY when the client asks for nothing.
const DefaultHistoryLimit = 20

// Daemon is what the server needs from the running daemon.
type Daemon interface {
	Status() StatusData
	Displays() ([]DisplayInfo, error)
	// Refresh requests a reconciliation pass and reports whether one ran.
	Refresh() (bool, error)
	Reload() error
	History(limit int) ([]PassInfo, error)
}

// Server handles IPC requests from clients
type Server struct {
	socketPath string
	listener   net.Listener
	daemon     Daemon
	logger     *slog.Logger
	startTime  time.Time

	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a server on the default socket path.
func NewServer(daemon Daemon, logger *slog.Logger) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}
	return NewServerAt(socketPath, daemon, logger), nil
}

// NewServerAt creates a server listening on socketPath.
func NewServerAt(socketPath string, daemon Daemon, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		socketPath: socketPath,
		daemon:     daemon,
		logger:     logger,
		startTime:  time.Now(),
	}
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	// Remove a stale socket left by a crashed daemon.
	os.Remove(s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("IPC server listening", "socket", s.socketPath)

	go s.acceptLoop()

	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			s.logger.Warn("IPC accept error", "error", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

type handlerFunc func(s *Server, payload json.RawMessage) (any, error)

var handlers = map[CommandType]handlerFunc{
	CommandReload:      (*Server).reload,
	CommandGetStatus:   (*Server).status,
	CommandGetDisplays: (*Server).displays,
	CommandRefresh:     (*Server).refresh,
	CommandGetHistory:  (*Server).history,
}

// handleConnection serves one request line and closes the connection.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Warn("IPC read error", "error", err)
		return
	}

	var resp *Response
	if req, err := ParseRequest(line); err != nil {
		resp = NewErrorResponse(fmt.Sprintf("invalid request: %v", err))
	} else {
		resp = s.handleCommand(req)
	}

	out, err := resp.Marshal()
	if err != nil {
		s.logger.Warn("failed to marshal IPC response", "error", err)
		return
	}
	if _, err := conn.Write(append(out, '\n')); err != nil {
		s.logger.Warn("failed to send IPC response", "error", err)
	}
}

func (s *Server) handleCommand(req *Request) *Response {
	s.logger.Debug("IPC command", "command", req.Command)
	handle, ok := handlers[req.Command]
	if !ok {
		return NewErrorResponse(fmt.Sprintf("unknown command: %s", req.Command))
	}
	data, err := handle(s, req.Payload)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	resp, err := NewOKResponse(data)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

func (s *Server) reload(json.RawMessage) (any, error) {
	if err := s.daemon.Reload(); err != nil {
		return nil, fmt.Errorf("reload config: %w", err)
	}
	s.logger.Info("config reloaded via IPC")
	return nil, nil
}

func (s *Server) status(json.RawMessage) (any, error) {
	status := s.daemon.Status()
	status.UptimeSeconds = int64(time.Since(s.startTime).Seconds())
	return status, nil
}

func (s *Server) displays(json.RawMessage) (any, error) {
	displays, err := s.daemon.Displays()
	if err != nil {
		return nil, fmt.Errorf("query displays: %w", err)
	}
	return DisplaysData{Displays: displays}, nil
}

func (s *Server) refresh(json.RawMessage) (any, error) {
	ran, err := s.daemon.Refresh()
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	return RefreshData{Ran: ran}, nil
}

func (s *Server) history(payload json.RawMessage) (any, error) {
	var req HistoryPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("invalid history payload: %w", err)
		}
	}
	if req.Limit <= 0 {
		req.Limit = DefaultHistoryLimit
	}
	passes, err := s.daemon.History(req.Limit)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return HistoryData{Passes: passes}, nil
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
}
