package ipc

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/1broseidon/tagwm/internal/wm"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandGetStatus           CommandType = "GET_STATUS"
	CommandListClients         CommandType = "LIST_CLIENTS"
	CommandListTags            CommandType = "LIST_TAGS"
	CommandGetMonitors         CommandType = "GET_MONITORS"
	CommandViewTag             CommandType = "VIEW_TAG"
	CommandToggleTag           CommandType = "TOGGLE_TAG"
	CommandViewPrevious        CommandType = "VIEW_PREVIOUS"
	CommandMoveClientToTag     CommandType = "MOVE_CLIENT_TO_TAG"
	CommandToggleClientTag     CommandType = "TOGGLE_CLIENT_TAG"
	CommandMoveClientToMonitor CommandType = "MOVE_CLIENT_TO_MONITOR"
	CommandFocusClient         CommandType = "FOCUS_CLIENT"
	CommandFocusDirection      CommandType = "FOCUS_DIRECTION"
	CommandCloseClient         CommandType = "CLOSE_CLIENT"
	CommandSetLayout           CommandType = "SET_LAYOUT"
	CommandSetMaster           CommandType = "SET_MASTER"
	CommandSetProperty         CommandType = "SET_PROPERTY"
	CommandReload              CommandType = "RELOAD"
)

// Response statuses.
const (
	StatusOK    = "OK"
	StatusError = "ERROR"
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
	wm.Status
	Instance      string `json:"instance"`
	ConfigPath    string `json:"config_path,omitempty"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	DaemonRunning bool   `json:"daemon_running"`
}

// ClientsData represents the data returned by LIST_CLIENTS
type ClientsData struct {
	Clients []wm.ClientInfo `json:"clients"`
}

// TagsData represents the data returned by LIST_TAGS
type TagsData struct {
	Tags []wm.TagInfo `json:"tags"`
}

// MonitorsData represents the data returned by GET_MONITORS
type MonitorsData struct {
	Monitors []wm.MonitorInfo `json:"monitors"`
}

// TagPayload selects a tag by name on a monitor. An empty monitor means the
// selected monitor.
type TagPayload struct {
	Monitor string `json:"monitor,omitempty"`
	Tag     string `json:"tag"`
}

type MonitorPayload struct {
	Monitor string `json:"monitor,omitempty"`
}

// ClientTagPayload names a tag on the client's own monitor. An empty client
// means the focused client.
type ClientTagPayload struct {
	Client string `json:"client,omitempty"`
	Tag    string `json:"tag"`
}

type ClientMonitorPayload struct {
	Client  string `json:"client,omitempty"`
	Monitor string `json:"monitor"`
}

type ClientPayload struct {
	Client string `json:"client,omitempty"`
}

type DirectionPayload struct {
	Direction string `json:"direction"` // "next" or "prev"
}

// LayoutPayload sets a layout by name, or cycles it with "next" and "prev".
type LayoutPayload struct {
	Monitor string `json:"monitor,omitempty"`
	Layout  string `json:"layout"`
}

type MasterPayload struct {
	Monitor     string  `json:"monitor,omitempty"`
	FactorDelta float64 `json:"factor_delta,omitempty"`
	CountDelta  int     `json:"count_delta,omitempty"`
}

// PropertyPayload sets a boolean client property. Value is "on", "off" or
// "toggle".
type PropertyPayload struct {
	Client   string `json:"client,omitempty"`
	Property string `json:"property"`
	Value    string `json:"value"`
}

// NewRequest builds a request with a marshaled payload. A nil payload is
// omitted.
func NewRequest(cmd CommandType, payload any) (*Request, error) {
	req := &Request{Command: cmd}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		req.Payload = data
	}
	return req, nil
}

// DecodePayload unmarshals the request payload into v. An absent payload
// leaves v untouched.
func (r *Request) DecodePayload(v any) error {
	if len(r.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Payload, v); err != nil {
		return fmt.Errorf("invalid %s payload: %w", r.Command, err)
	}
	return nil
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data any) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: StatusOK,
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: StatusError,
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	if req.Command == "" {
		return nil, fmt.Errorf("failed to parse request: missing command")
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// ParseAction turns a key binding action string such as "view 3",
// "set fullscreen toggle" or "layout next" into a request.
func ParseAction(action string) (*Request, error) {
	fields := strings.Fields(action)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty action")
	}
	verb, args := fields[0], fields[1:]
	need := func(n int) error {
		if len(args) != n {
			return fmt.Errorf("action %q: %s takes %d argument(s)", action, verb, n)
		}
		return nil
	}

	switch verb {
	case "view":
		if err := need(1); err != nil {
			return nil, err
		}
		if args[0] == "previous" {
			return NewRequest(CommandViewPrevious, nil)
		}
		return NewRequest(CommandViewTag, TagPayload{Tag: args[0]})
	case "toggle":
		if err := need(1); err != nil {
			return nil, err
		}
		return NewRequest(CommandToggleTag, TagPayload{Tag: args[0]})
	case "tag":
		if err := need(1); err != nil {
			return nil, err
		}
		return NewRequest(CommandMoveClientToTag, ClientTagPayload{Tag: args[0]})
	case "toggletag":
		if err := need(1); err != nil {
			return nil, err
		}
		return NewRequest(CommandToggleClientTag, ClientTagPayload{Tag: args[0]})
	case "send":
		if err := need(1); err != nil {
			return nil, err
		}
		return NewRequest(CommandMoveClientToMonitor, ClientMonitorPayload{Monitor: args[0]})
	case "focus":
		if err := need(1); err != nil {
			return nil, err
		}
		switch args[0] {
		case "next", "prev":
			return NewRequest(CommandFocusDirection, DirectionPayload{Direction: args[0]})
		}
		return NewRequest(CommandFocusClient, ClientPayload{Client: args[0]})
	case "close":
		if err := need(0); err != nil {
			return nil, err
		}
		return NewRequest(CommandCloseClient, nil)
	case "layout":
		if err := need(1); err != nil {
			return nil, err
		}
		return NewRequest(CommandSetLayout, LayoutPayload{Layout: args[0]})
	case "master":
		// master factor +0.05 | master count -1
		if err := need(2); err != nil {
			return nil, err
		}
		switch args[0] {
		case "factor":
			d, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return nil, fmt.Errorf("action %q: %w", action, err)
			}
			return NewRequest(CommandSetMaster, MasterPayload{FactorDelta: d})
		case "count":
			d, err := strconv.Atoi(args[1])
			if err != nil {
				return nil, fmt.Errorf("action %q: %w", action, err)
			}
			return NewRequest(CommandSetMaster, MasterPayload{CountDelta: d})
		}
		return nil, fmt.Errorf("action %q: expected factor or count", action)
	case "set":
		if err := need(2); err != nil {
			return nil, err
		}
		return NewRequest(CommandSetProperty, PropertyPayload{Property: args[0], Value: args[1]})
	case "reload":
		if err := need(0); err != nil {
			return nil, err
		}
		return NewRequest(CommandReload, nil)
	default:
		return nil, fmt.Errorf("unknown action %q", verb)
	}
}
