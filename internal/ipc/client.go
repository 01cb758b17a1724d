package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/edgebar/internal/runtimepath"
)

const defaultClientTimeout = 5 * time.Second

// Client talks to a running daemon. Each call opens its own connection.
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a client for the default socket path.
func NewClient() *Client {
	// An unresolvable path surfaces as a dial error on first use.
	socketPath, _ := runtimepath.SocketPath()
	return NewClientAt(socketPath)
}

// NewClientAt creates a client for socketPath.
func NewClientAt(socketPath string) *Client {
	return &Client{socketPath: socketPath, timeout: defaultClientTimeout}
}

// roundTrip writes one request line and reads one response line.
func (c *Client) roundTrip(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(c.timeout))

	line, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	if _, err := conn.Write(append(line, '\n')); err != nil {
		return nil, fmt.Errorf("failed to send %s: %w", req.Command, err)
	}

	reply, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", req.Command, err)
	}
	var resp Response
	if err := json.Unmarshal(reply, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}
	return &resp, nil
}

// call sends cmd with an optional payload and decodes the response data.
func call[T any](c *Client, cmd CommandType, payload any) (*T, error) {
	req := &Request{Command: cmd}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", cmd, err)
		}
		req.Payload = raw
	}

	resp, err := c.roundTrip(req)
	if err != nil {
		return nil, err
	}
	out := new(T)
	if len(resp.Data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return nil, fmt.Errorf("failed to parse %s data: %w", cmd, err)
	}
	return out, nil
}

// Reload asks the daemon to re-read its config file.
func (c *Client) Reload() error {
	_, err := c.roundTrip(&Request{Command: CommandReload})
	return err
}

// Refresh asks the daemon to reconcile bars against the current displays.
// It reports whether a pass ran immediately.
func (c *Client) Refresh() (bool, error) {
	data, err := call[RefreshData](c, CommandRefresh, nil)
	if err != nil {
		return false, err
	}
	return data.Ran, nil
}

func (c *Client) GetStatus() (*StatusData, error) {
	return call[StatusData](c, CommandGetStatus, nil)
}

func (c *Client) GetDisplays() (*DisplaysData, error) {
	return call[DisplaysData](c, CommandGetDisplays, nil)
}

// GetHistory returns up to limit passes, newest first.
func (c *Client) GetHistory(limit int) (*HistoryData, error) {
	return call[HistoryData](c, CommandGetHistory, HistoryPayload{Limit: limit})
}

// Ping checks that the daemon answers.
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}
