package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/tagwm/internal/runtimepath"
	"github.com/1broseidon/tagwm/internal/wm"
)

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a new IPC client
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}
	return NewClientWithSocket(socketPath)
}

// NewClientWithSocket creates a client for an explicit socket path.
func NewClientWithSocket(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// Send sends a raw request and returns the daemon's OK response.
func (c *Client) Send(req *Request) (*Response, error) {
	return c.sendRequest(req)
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Status == StatusError {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}

	return &resp, nil
}

// call sends cmd with payload and decodes the response data into out when
// out is non-nil.
func (c *Client) call(cmd CommandType, payload any, out any) error {
	req, err := NewRequest(cmd, payload)
	if err != nil {
		return err
	}
	resp, err := c.sendRequest(req)
	if err != nil {
		return err
	}
	if out == nil || len(resp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to parse %s data: %w", cmd, err)
	}
	return nil
}

// Ping checks that the daemon answers.
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}

// GetStatus retrieves the daemon status
func (c *Client) GetStatus() (*StatusData, error) {
	var status StatusData
	if err := c.call(CommandGetStatus, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ListClients returns every managed client in registry order.
func (c *Client) ListClients() ([]wm.ClientInfo, error) {
	var data ClientsData
	if err := c.call(CommandListClients, nil, &data); err != nil {
		return nil, err
	}
	return data.Clients, nil
}

// ListTags returns every tag on every monitor.
func (c *Client) ListTags() ([]wm.TagInfo, error) {
	var data TagsData
	if err := c.call(CommandListTags, nil, &data); err != nil {
		return nil, err
	}
	return data.Tags, nil
}

// GetMonitors retrieves the attached monitors
func (c *Client) GetMonitors() ([]wm.MonitorInfo, error) {
	var data MonitorsData
	if err := c.call(CommandGetMonitors, nil, &data); err != nil {
		return nil, err
	}
	return data.Monitors, nil
}

// ViewTag shows only tag on monitor. An empty monitor means the selected one.
func (c *Client) ViewTag(monitor, tag string) error {
	return c.call(CommandViewTag, TagPayload{Monitor: monitor, Tag: tag}, nil)
}

// ToggleTag adds tag to or removes it from the monitor's view.
func (c *Client) ToggleTag(monitor, tag string) error {
	return c.call(CommandToggleTag, TagPayload{Monitor: monitor, Tag: tag}, nil)
}

// ViewPrevious restores the previously viewed tags.
func (c *Client) ViewPrevious(monitor string) error {
	return c.call(CommandViewPrevious, MonitorPayload{Monitor: monitor}, nil)
}

// MoveClientToTag retags a client. An empty client means the focused one.
func (c *Client) MoveClientToTag(client, tag string) error {
	return c.call(CommandMoveClientToTag, ClientTagPayload{Client: client, Tag: tag}, nil)
}

func (c *Client) ToggleClientTag(client, tag string) error {
	return c.call(CommandToggleClientTag, ClientTagPayload{Client: client, Tag: tag}, nil)
}

func (c *Client) MoveClientToMonitor(client, monitor string) error {
	return c.call(CommandMoveClientToMonitor, ClientMonitorPayload{Client: client, Monitor: monitor}, nil)
}

func (c *Client) FocusClient(client string) error {
	return c.call(CommandFocusClient, ClientPayload{Client: client}, nil)
}

// FocusDirection moves focus to the "next" or "prev" visible client.
func (c *Client) FocusDirection(direction string) error {
	return c.call(CommandFocusDirection, DirectionPayload{Direction: direction}, nil)
}

func (c *Client) CloseClient(client string) error {
	return c.call(CommandCloseClient, ClientPayload{Client: client}, nil)
}

// SetLayout sets the layout of the monitor's selected tags. Layout may be a
// name, "next" or "prev".
func (c *Client) SetLayout(monitor, layout string) error {
	return c.call(CommandSetLayout, LayoutPayload{Monitor: monitor, Layout: layout}, nil)
}

func (c *Client) SetMaster(monitor string, factorDelta float64, countDelta int) error {
	return c.call(CommandSetMaster, MasterPayload{Monitor: monitor, FactorDelta: factorDelta, CountDelta: countDelta}, nil)
}

// SetProperty sets a boolean client property to "on", "off" or "toggle".
func (c *Client) SetProperty(client, property, value string) error {
	return c.call(CommandSetProperty, PropertyPayload{Client: client, Property: property, Value: value}, nil)
}

// Reload sends a RELOAD command to the daemon
func (c *Client) Reload() error {
	return c.call(CommandReload, nil, nil)
}
