package wm

import (
	"slices"

	"github.com/1broseidon/tagwm/internal/geom"
	"github.com/1broseidon/tagwm/internal/platform"
)

// ClientInfo is a read-only view of a client.
type ClientInfo struct {
	ID           ClientID           `json:"id"`
	Surface      platform.SurfaceID `json:"surface"`
	AppID        string             `json:"app_id"`
	Title        string             `json:"title"`
	Type         string             `json:"type"`
	State        string             `json:"state"`
	Geometry     geom.Rect          `json:"geometry"`
	Monitor      MonitorID          `json:"monitor,omitzero"`
	MonitorName  string             `json:"monitor_name,omitempty"`
	Tags         []TagID            `json:"tags"`
	TagNames     []string           `json:"tag_names"`
	TransientFor ClientID           `json:"transient_for,omitzero"`
	Layer        string             `json:"layer"`
	Focused      bool               `json:"focused"`
	Banned       bool               `json:"banned"`
	Floating     bool               `json:"floating"`
	Hidden       bool               `json:"hidden"`
	Minimized    bool               `json:"minimized"`
	Fullscreen   bool               `json:"fullscreen"`
	MaximizedH   bool               `json:"maximized_horizontal"`
	MaximizedV   bool               `json:"maximized_vertical"`
	Sticky       bool               `json:"sticky"`
	Urgent       bool               `json:"urgent"`
	Above        bool               `json:"above"`
	Below        bool               `json:"below"`
	OnTop        bool               `json:"ontop"`
	Modal        bool               `json:"modal"`
	SkipTaskbar  bool               `json:"skip_taskbar"`
	PendingSize  bool               `json:"pending_resize"`
}

// TagInfo is a read-only view of a tag.
type TagInfo struct {
	ID           TagID     `json:"id"`
	Name         string    `json:"name"`
	Monitor      MonitorID `json:"monitor,omitzero"`
	MonitorName  string    `json:"monitor_name,omitempty"`
	Selected     bool      `json:"selected"`
	Activated    bool      `json:"activated"`
	Layout       string    `json:"layout"`
	MasterFactor float64   `json:"master_factor"`
	MasterCount  int       `json:"master_count"`
	Clients      int       `json:"clients"`
	Urgent       bool      `json:"urgent"`
}

// MonitorInfo is a read-only view of a monitor.
type MonitorInfo struct {
	ID           MonitorID `json:"id"`
	Name         string    `json:"name"`
	Geometry     geom.Rect `json:"geometry"`
	WorkArea     geom.Rect `json:"workarea"`
	Scale        float64   `json:"scale"`
	Selected     bool      `json:"selected"`
	Asleep       bool      `json:"asleep"`
	SelectedTags []string  `json:"selected_tags"`
	Layout       string    `json:"layout"`
	Clients      int       `json:"clients"`
}

// Status summarizes the core.
type Status struct {
	Clients         int       `json:"clients"`
	Tags            int       `json:"tags"`
	Monitors        int       `json:"monitors"`
	Focused         ClientID  `json:"focused,omitzero"`
	SelectedMonitor MonitorID `json:"selected_monitor,omitzero"`
	ExclusiveFocus  bool      `json:"exclusive_focus"`
}

func (m *Manager) clientInfo(c *Client) ClientInfo {
	info := ClientInfo{
		ID:           c.id,
		Surface:      c.surface.ID(),
		AppID:        c.appID,
		Title:        c.title,
		Type:         c.wtype.String(),
		State:        c.state.String(),
		Geometry:     c.geometry,
		Monitor:      c.mon,
		TransientFor: c.transientFor,
		Layer:        m.layerOf(c).String(),
		Focused:      m.focused == c.id,
		Banned:       c.banned,
		Floating:     c.floating,
		Hidden:       c.hidden,
		Minimized:    c.minimized,
		Fullscreen:   c.fullscreen,
		MaximizedH:   c.maxH,
		MaximizedV:   c.maxV,
		Sticky:       c.sticky,
		Urgent:       c.urgent,
		Above:        c.above,
		Below:        c.below,
		OnTop:        c.ontop,
		Modal:        c.modal,
		SkipTaskbar:  c.skipTaskbar,
		PendingSize:  c.pendingToken != 0,
		Tags:         []TagID{},
		TagNames:     []string{},
	}
	if mo := m.monitor(c.mon); mo != nil {
		info.MonitorName = mo.name
	}
	for _, t := range m.tagOrder {
		if c.hasTag(t) {
			info.Tags = append(info.Tags, t)
			info.TagNames = append(info.TagNames, m.tag(t).name)
		}
	}
	return info
}

// Client returns a snapshot of client id.
func (m *Manager) Client(id ClientID) (ClientInfo, error) {
	c := m.client(id)
	if c == nil || c.state == StateDestroyed {
		return ClientInfo{}, ErrNoSuchClient
	}
	return m.clientInfo(c), nil
}

// Clients returns snapshots of mapped clients in registry order.
func (m *Manager) Clients() []ClientInfo {
	out := make([]ClientInfo, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.clientInfo(m.client(id)))
	}
	return out
}

// ClientIDs returns mapped clients in registry order.
func (m *Manager) ClientIDs() []ClientID {
	return slices.Clone(m.order)
}

// FocusHistory returns managed clients, most recently focused first.
func (m *Manager) FocusHistory() []ClientID {
	return slices.Clone(m.history)
}

// Tags returns snapshots of every tag in creation order.
func (m *Manager) Tags() []TagInfo {
	out := make([]TagInfo, 0, len(m.tagOrder))
	for _, id := range m.tagOrder {
		t := m.tag(id)
		info := TagInfo{
			ID:           id,
			Name:         t.name,
			Monitor:      t.mon,
			Selected:     t.selected,
			Activated:    t.activated,
			Layout:       t.layout,
			MasterFactor: t.masterFactor,
			MasterCount:  t.masterCount,
			Clients:      len(t.clients),
		}
		if mo := m.monitor(t.mon); mo != nil {
			info.MonitorName = mo.name
		}
		for cid := range t.clients {
			if c := m.client(cid); c != nil && c.urgent {
				info.Urgent = true
				break
			}
		}
		out = append(out, info)
	}
	return out
}

// Monitors returns snapshots of attached monitors in attach order.
func (m *Manager) Monitors() []MonitorInfo {
	out := make([]MonitorInfo, 0, len(m.monOrder))
	for _, id := range m.monOrder {
		mo := m.monitor(id)
		info := MonitorInfo{
			ID:           id,
			Name:         mo.name,
			Geometry:     mo.geometry,
			WorkArea:     mo.workarea,
			Scale:        mo.scale,
			Selected:     id == m.selmon,
			Asleep:       mo.asleep,
			SelectedTags: []string{},
		}
		for _, t := range m.selectedTags(id) {
			info.SelectedTags = append(info.SelectedTags, m.tag(t).name)
		}
		strategy, _ := m.layoutFor(id)
		info.Layout = strategy.Name()
		for _, cid := range m.order {
			if m.client(cid).mon == id {
				info.Clients++
			}
		}
		out = append(out, info)
	}
	return out
}

// Monitor returns a snapshot of monitor id.
func (m *Manager) Monitor(id MonitorID) (MonitorInfo, error) {
	for _, info := range m.Monitors() {
		if info.ID == id {
			return info, nil
		}
	}
	return MonitorInfo{}, ErrNoSuchMonitor
}

// Status returns counters and the current focus.
func (m *Manager) Status() Status {
	return Status{
		Clients:         len(m.order),
		Tags:            len(m.tagOrder),
		Monitors:        len(m.monOrder),
		Focused:         m.focused,
		SelectedMonitor: m.selmon,
		ExclusiveFocus:  m.exclusive != nil,
	}
}
