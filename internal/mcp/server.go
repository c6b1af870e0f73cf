package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/tagwm/internal/ipc"
	"github.com/1broseidon/tagwm/internal/wm"
)

const (
	ServerName    = "tagwm"
	ServerVersion = "0.1.0"
)

// WM is the part of the daemon's control socket the tools drive.
// *ipc.Client satisfies it.
type WM interface {
	GetStatus() (*ipc.StatusData, error)
	ListClients() ([]wm.ClientInfo, error)
	ListTags() ([]wm.TagInfo, error)
	GetMonitors() ([]wm.MonitorInfo, error)
	ViewTag(monitor, tag string) error
	ToggleTag(monitor, tag string) error
	MoveClientToTag(client, tag string) error
	MoveClientToMonitor(client, monitor string) error
	FocusClient(client string) error
	CloseClient(client string) error
	SetLayout(monitor, layout string) error
	SetProperty(client, property, value string) error
}

// Server is the MCP server exposing window management to agents.
type Server struct {
	mcpServer *mcpsdk.Server
	wm        WM
	logger    *slog.Logger
}

// NewServer creates a new MCP server talking to a running daemon.
func NewServer(w WM, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		wm:     w,
		logger: logger,
	}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		&mcpsdk.ServerOptions{Logger: logger},
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// Connect serves a single session over t.
func (s *Server) Connect(ctx context.Context, t mcpsdk.Transport) (*mcpsdk.ServerSession, error) {
	return s.mcpServer.Connect(ctx, t, nil)
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_status",
		Description: "Report whether the tagwm daemon is running and summarize it: number of clients, tags and monitors, the focused client and the selected monitor.",
	}, s.handleGetStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_clients",
		Description: "List managed windows with their id, app id, title, monitor, tags and state. Filter by app id, tag, monitor or visibility. Client ids are used by the other tools.",
	}, s.handleListClients)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_tags",
		Description: "List tags per monitor with their layout, master settings, client count and whether they are currently viewed.",
	}, s.handleListTags)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_monitors",
		Description: "List monitors with their geometry, usable work area, viewed tags and layout.",
	}, s.handleListMonitors)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "view_tag",
		Description: "Show the windows of a tag on a monitor. With toggle, the tag is added to or removed from the current view instead.",
	}, s.handleViewTag)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "move_client",
		Description: "Move a window to another tag on its monitor, to another monitor, or both. Defaults to the focused window.",
	}, s.handleMoveClient)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "focus_client",
		Description: "Focus and raise a window by id or app id. If the window is on a tag that is not viewed, that tag is viewed first.",
	}, s.handleFocusClient)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "close_client",
		Description: "Ask a window to close. Defaults to the focused window. The application may prompt before closing.",
	}, s.handleCloseClient)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_layout",
		Description: "Set the layout of the viewed tags on a monitor, or cycle it with next/prev.",
	}, s.handleSetLayout)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_property",
		Description: "Turn a window property on, off or toggle it: fullscreen, floating, sticky, minimized, hidden, above, below, ontop, urgent, maximized_horizontal, maximized_vertical.",
	}, s.handleSetProperty)
}
