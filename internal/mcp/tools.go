package mcp

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/tagwm/internal/wm"
)

func (s *Server) handleGetStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ StatusInput) (*mcpsdk.CallToolResult, StatusOutput, error) {
	st, err := s.wm.GetStatus()
	if err != nil {
		return nil, StatusOutput{}, fmt.Errorf("tagwm daemon not reachable: %w", err)
	}
	out := StatusOutput{
		Clients:        st.Clients,
		Tags:           st.Tags,
		Monitors:       st.Monitors,
		ExclusiveFocus: st.ExclusiveFocus,
		Instance:       st.Instance,
		UptimeSeconds:  st.UptimeSeconds,
	}
	if !st.Focused.IsZero() {
		out.Focused = st.Focused.String()
	}
	if !st.SelectedMonitor.IsZero() {
		out.SelectedMonitor = st.SelectedMonitor.String()
	}
	return nil, out, nil
}

func (s *Server) handleListClients(_ context.Context, _ *mcpsdk.CallToolRequest, args ListClientsInput) (*mcpsdk.CallToolResult, ListClientsOutput, error) {
	clients, err := s.wm.ListClients()
	if err != nil {
		return nil, ListClientsOutput{}, err
	}
	out := ListClientsOutput{Clients: []ClientSummary{}}
	for _, c := range filterClients(clients, args) {
		out.Clients = append(out.Clients, summarizeClient(c))
	}
	s.logger.Debug("mcp list_clients", "total", len(clients), "matched", len(out.Clients))
	return nil, out, nil
}

func filterClients(clients []wm.ClientInfo, args ListClientsInput) []wm.ClientInfo {
	appID := strings.ToLower(strings.TrimSpace(args.AppID))
	var out []wm.ClientInfo
	for _, c := range clients {
		if appID != "" && !strings.Contains(strings.ToLower(c.AppID), appID) {
			continue
		}
		if args.Tag != "" && !slices.Contains(c.TagNames, args.Tag) {
			continue
		}
		if args.Monitor != "" && c.MonitorName != args.Monitor {
			continue
		}
		if args.Visible && !clientVisible(c) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func clientVisible(c wm.ClientInfo) bool {
	return c.State == wm.StateMapped.String() && !c.Banned
}

func summarizeClient(c wm.ClientInfo) ClientSummary {
	tags := c.TagNames
	if tags == nil {
		tags = []string{}
	}
	return ClientSummary{
		ID:         c.ID.String(),
		AppID:      c.AppID,
		Title:      c.Title,
		Monitor:    c.MonitorName,
		Tags:       tags,
		Layer:      c.Layer,
		Geometry:   c.Geometry,
		Focused:    c.Focused,
		Visible:    clientVisible(c),
		Floating:   c.Floating,
		Fullscreen: c.Fullscreen,
		Urgent:     c.Urgent,
	}
}

func (s *Server) handleListTags(_ context.Context, _ *mcpsdk.CallToolRequest, args ListTagsInput) (*mcpsdk.CallToolResult, ListTagsOutput, error) {
	tags, err := s.wm.ListTags()
	if err != nil {
		return nil, ListTagsOutput{}, err
	}
	out := ListTagsOutput{Tags: []TagSummary{}}
	for _, t := range tags {
		if args.Monitor != "" && t.MonitorName != args.Monitor {
			continue
		}
		out.Tags = append(out.Tags, TagSummary{
			Name:         t.Name,
			Monitor:      t.MonitorName,
			Selected:     t.Selected,
			Layout:       t.Layout,
			MasterFactor: t.MasterFactor,
			MasterCount:  t.MasterCount,
			Clients:      t.Clients,
			Urgent:       t.Urgent,
		})
	}
	return nil, out, nil
}

func (s *Server) handleListMonitors(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListMonitorsInput) (*mcpsdk.CallToolResult, ListMonitorsOutput, error) {
	mons, err := s.wm.GetMonitors()
	if err != nil {
		return nil, ListMonitorsOutput{}, err
	}
	out := ListMonitorsOutput{Monitors: []MonitorSummary{}}
	for _, m := range mons {
		selected := m.SelectedTags
		if selected == nil {
			selected = []string{}
		}
		out.Monitors = append(out.Monitors, MonitorSummary{
			Name:         m.Name,
			Geometry:     m.Geometry,
			WorkArea:     m.WorkArea,
			Scale:        m.Scale,
			Selected:     m.Selected,
			SelectedTags: selected,
			Layout:       m.Layout,
			Clients:      m.Clients,
		})
	}
	return nil, out, nil
}

func (s *Server) handleViewTag(_ context.Context, _ *mcpsdk.CallToolRequest, args ViewTagInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	tag := strings.TrimSpace(args.Tag)
	if tag == "" {
		return nil, ActionOutput{}, errors.New("tag is required")
	}
	var err error
	if args.Toggle {
		err = s.wm.ToggleTag(args.Monitor, tag)
	} else {
		err = s.wm.ViewTag(args.Monitor, tag)
	}
	if err != nil {
		return nil, ActionOutput{}, err
	}
	s.logger.Info("mcp view_tag", "tag", tag, "monitor", args.Monitor, "toggle", args.Toggle)
	return nil, ActionOutput{OK: true, Message: fmt.Sprintf("viewing tag %s", tag)}, nil
}

func (s *Server) handleMoveClient(_ context.Context, _ *mcpsdk.CallToolRequest, args MoveClientInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	if args.Tag == "" && args.Monitor == "" {
		return nil, ActionOutput{}, errors.New("tag or monitor is required")
	}
	// Send to the monitor first so the tag resolves on the destination.
	if args.Monitor != "" {
		if err := s.wm.MoveClientToMonitor(args.Client, args.Monitor); err != nil {
			return nil, ActionOutput{}, err
		}
	}
	if args.Tag != "" {
		if err := s.wm.MoveClientToTag(args.Client, args.Tag); err != nil {
			return nil, ActionOutput{}, err
		}
	}
	s.logger.Info("mcp move_client", "client", args.Client, "tag", args.Tag, "monitor", args.Monitor)
	return nil, ActionOutput{OK: true, Client: args.Client}, nil
}

func (s *Server) handleFocusClient(_ context.Context, _ *mcpsdk.CallToolRequest, args FocusClientInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	id := strings.TrimSpace(args.Client)
	if id == "" {
		if strings.TrimSpace(args.AppID) == "" {
			return nil, ActionOutput{}, errors.New("client or app_id is required")
		}
		clients, err := s.wm.ListClients()
		if err != nil {
			return nil, ActionOutput{}, err
		}
		matches := filterClients(clients, ListClientsInput{AppID: args.AppID})
		if len(matches) == 0 {
			return nil, ActionOutput{}, fmt.Errorf("no client with app id matching %q", args.AppID)
		}
		id = matches[0].ID.String()
	}
	if err := s.wm.FocusClient(id); err != nil {
		return nil, ActionOutput{}, err
	}
	s.logger.Info("mcp focus_client", "client", id)
	return nil, ActionOutput{OK: true, Client: id}, nil
}

func (s *Server) handleCloseClient(_ context.Context, _ *mcpsdk.CallToolRequest, args ClientInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	if err := s.wm.CloseClient(args.Client); err != nil {
		return nil, ActionOutput{}, err
	}
	s.logger.Info("mcp close_client", "client", args.Client)
	return nil, ActionOutput{OK: true, Client: args.Client, Message: "close requested"}, nil
}

func (s *Server) handleSetLayout(_ context.Context, _ *mcpsdk.CallToolRequest, args SetLayoutInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	if strings.TrimSpace(args.Layout) == "" {
		return nil, ActionOutput{}, errors.New("layout is required")
	}
	if err := s.wm.SetLayout(args.Monitor, args.Layout); err != nil {
		return nil, ActionOutput{}, err
	}
	return nil, ActionOutput{OK: true, Message: "layout " + args.Layout}, nil
}

func (s *Server) handleSetProperty(_ context.Context, _ *mcpsdk.CallToolRequest, args SetPropertyInput) (*mcpsdk.CallToolResult, ActionOutput, error) {
	prop := wm.Property(strings.TrimSpace(args.Property))
	if !slices.Contains(wm.BoolProperties, prop) {
		return nil, ActionOutput{}, fmt.Errorf("unknown property %q", args.Property)
	}
	value := args.Value
	if value == "" {
		value = "toggle"
	}
	if err := s.wm.SetProperty(args.Client, string(prop), value); err != nil {
		return nil, ActionOutput{}, err
	}
	return nil, ActionOutput{OK: true, Client: args.Client, Message: fmt.Sprintf("%s %s", prop, value)}, nil
}
