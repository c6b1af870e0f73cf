package mcp

import "github.com/1broseidon/tagwm/internal/geom"

// StatusInput is the input for the get_status tool.
type StatusInput struct{}

// StatusOutput is the output for the get_status tool.
type StatusOutput struct {
	Clients         int    `json:"clients"`
	Tags            int    `json:"tags"`
	Monitors        int    `json:"monitors"`
	Focused         string `json:"focused,omitempty"`
	SelectedMonitor string `json:"selected_monitor,omitempty"`
	ExclusiveFocus  bool   `json:"exclusive_focus"`
	Instance        string `json:"instance"`
	UptimeSeconds   int64  `json:"uptime_seconds"`
}

// ListClientsInput is the input for the list_clients tool.
type ListClientsInput struct {
	AppID   string `json:"app_id,omitempty" jsonschema:"Only return clients whose app id contains this text (case-insensitive)"`
	Tag     string `json:"tag,omitempty" jsonschema:"Only return clients carrying this tag name"`
	Monitor string `json:"monitor,omitempty" jsonschema:"Only return clients on this monitor (output name)"`
	Visible bool   `json:"visible,omitempty" jsonschema:"When true, skip clients hidden by the current tag selection"`
}

// ClientSummary describes a single managed client.
type ClientSummary struct {
	ID         string    `json:"id"`
	AppID      string    `json:"app_id"`
	Title      string    `json:"title"`
	Monitor    string    `json:"monitor,omitempty"`
	Tags       []string  `json:"tags"`
	Layer      string    `json:"layer"`
	Geometry   geom.Rect `json:"geometry"`
	Focused    bool      `json:"focused"`
	Visible    bool      `json:"visible"`
	Floating   bool      `json:"floating"`
	Fullscreen bool      `json:"fullscreen"`
	Urgent     bool      `json:"urgent"`
}

// ListClientsOutput is the output for the list_clients tool.
type ListClientsOutput struct {
	Clients []ClientSummary `json:"clients"`
}

// ListTagsInput is the input for the list_tags tool.
type ListTagsInput struct {
	Monitor string `json:"monitor,omitempty" jsonschema:"Only return tags of this monitor (output name)"`
}

// TagSummary describes a single tag.
type TagSummary struct {
	Name         string  `json:"name"`
	Monitor      string  `json:"monitor,omitempty"`
	Selected     bool    `json:"selected"`
	Layout       string  `json:"layout"`
	MasterFactor float64 `json:"master_factor"`
	MasterCount  int     `json:"master_count"`
	Clients      int     `json:"clients"`
	Urgent       bool    `json:"urgent"`
}

// ListTagsOutput is the output for the list_tags tool.
type ListTagsOutput struct {
	Tags []TagSummary `json:"tags"`
}

// ListMonitorsInput is the input for the list_monitors tool.
type ListMonitorsInput struct{}

// MonitorSummary describes a single monitor.
type MonitorSummary struct {
	Name         string    `json:"name"`
	Geometry     geom.Rect `json:"geometry"`
	WorkArea     geom.Rect `json:"workarea"`
	Scale        float64   `json:"scale"`
	Selected     bool      `json:"selected"`
	SelectedTags []string  `json:"selected_tags"`
	Layout       string    `json:"layout"`
	Clients      int       `json:"clients"`
}

// ListMonitorsOutput is the output for the list_monitors tool.
type ListMonitorsOutput struct {
	Monitors []MonitorSummary `json:"monitors"`
}

// ViewTagInput is the input for the view_tag tool.
type ViewTagInput struct {
	Tag     string `json:"tag" jsonschema:"Tag name to view"`
	Monitor string `json:"monitor,omitempty" jsonschema:"Monitor (output name); defaults to the selected monitor"`
	Toggle  bool   `json:"toggle,omitempty" jsonschema:"When true, add or remove the tag from the current view instead of replacing it"`
}

// MoveClientInput is the input for the move_client tool.
type MoveClientInput struct {
	Client  string `json:"client,omitempty" jsonschema:"Client id from list_clients; defaults to the focused client"`
	Tag     string `json:"tag,omitempty" jsonschema:"Tag name on the client's monitor to move the client to"`
	Monitor string `json:"monitor,omitempty" jsonschema:"Monitor (output name) to send the client to"`
}

// ClientInput selects a client by id.
type ClientInput struct {
	Client string `json:"client,omitempty" jsonschema:"Client id from list_clients; defaults to the focused client"`
}

// FocusClientInput is the input for the focus_client tool.
type FocusClientInput struct {
	Client string `json:"client,omitempty" jsonschema:"Client id from list_clients"`
	AppID  string `json:"app_id,omitempty" jsonschema:"Focus the first client whose app id contains this text, when no id is given"`
}

// SetLayoutInput is the input for the set_layout tool.
type SetLayoutInput struct {
	Layout  string `json:"layout" jsonschema:"Layout name (tile, monocle, grid, floating) or next/prev to cycle"`
	Monitor string `json:"monitor,omitempty" jsonschema:"Monitor (output name); defaults to the selected monitor"`
}

// SetPropertyInput is the input for the set_property tool.
type SetPropertyInput struct {
	Client   string `json:"client,omitempty" jsonschema:"Client id from list_clients; defaults to the focused client"`
	Property string `json:"property" jsonschema:"Property name such as fullscreen, floating, sticky, minimized, above or below"`
	Value    string `json:"value,omitempty" jsonschema:"on, off or toggle (default: toggle)"`
}

// ActionOutput is returned by tools that change window manager state.
type ActionOutput struct {
	OK      bool   `json:"ok"`
	Client  string `json:"client,omitempty"`
	Message string `json:"message,omitempty"`
}
