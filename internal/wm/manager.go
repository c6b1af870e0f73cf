// Package wm is the window management core: it owns clients, tags and
// monitors, and decides which clients are visible, where they go and in
// which order they are stacked. All methods must be called from a single
// goroutine; the daemon loop serializes every caller.
package wm

import (
	"log/slog"
	"slices"

	"github.com/1broseidon/tagwm/internal/layout"
	"github.com/1broseidon/tagwm/internal/platform"
)

// Placement pins an output to an explicit position in the global layout.
type Placement struct {
	X, Y  int
	Scale float64
}

// Settings are the user-tunable parameters of the core.
type Settings struct {
	BorderWidth        int
	BorderColorFocused string
	BorderColorNormal  string
	BorderColorUrgent  string

	DefaultLayout string
	MasterFactor  float64
	MasterCount   int
	Gap           int

	FocusNewWindows bool
	// DefaultMonitor is the output name used for new clients when the
	// pointer position is unknown.
	DefaultMonitor string
	Placements     map[string]Placement
}

// DefaultSettings returns the settings used when no configuration exists.
func DefaultSettings() Settings {
	return Settings{
		BorderWidth:        2,
		BorderColorFocused: "#5e81ac",
		BorderColorNormal:  "#3b4252",
		BorderColorUrgent:  "#bf616a",
		DefaultLayout:      layout.NameTile,
		MasterFactor:       0.55,
		MasterCount:        1,
		FocusNewWindows:    true,
	}
}

// Config holds Manager dependencies.
type Config struct {
	Scene    platform.Scene
	Hooks    Hooks
	Logger   *slog.Logger
	Settings Settings
}

// Manager is the window management core.
type Manager struct {
	scene    platform.Scene
	hooks    Hooks
	logger   *slog.Logger
	settings Settings

	clients   arena[Client]
	bySurface map[platform.SurfaceID]ClientID
	// order is the registry order of mapped clients; layouts fill slots in
	// this order.
	order []ClientID
	// stack is bottom to top; the last element was interacted with most
	// recently.
	stack []ClientID
	// history is most recent first and only holds managed clients.
	history  []ClientID
	stacking []ClientID

	tags     arena[Tag]
	tagOrder []TagID

	monitors arena[Monitor]
	monOrder []MonitorID
	selmon   MonitorID

	overlays  []*overlay
	exclusive platform.Surface

	focused       ClientID
	pendingFocus  ClientID
	focusFallback bool

	needVisibility bool
	needStacking   bool
	destroyQueue   []ClientID
	refreshing     bool
}

func New(cfg Config) *Manager {
	hooks := cfg.Hooks
	if hooks == nil {
		hooks = NopHooks{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		scene:     cfg.Scene,
		hooks:     hooks,
		logger:    logger,
		settings:  cfg.Settings,
		bySurface: make(map[platform.SurfaceID]ClientID),
	}
}

// Settings returns the current settings.
func (m *Manager) Settings() Settings {
	return m.settings
}

// UpdateSettings replaces the settings and schedules every monitor for
// re-arrangement and every client for a border update.
func (m *Manager) UpdateSettings(s Settings) {
	m.settings = s
	m.clients.each(func(_ ref, c *Client) {
		c.borderWidth = s.BorderWidth
		c.borderDirty = true
	})
	for _, id := range m.monOrder {
		m.monitors.get(id.ref).needArrange = true
	}
}

func (m *Manager) client(id ClientID) *Client {
	return m.clients.get(id.ref)
}

// mustClient resolves id for an operation that requires a live client.
func (m *Manager) mustClient(op string, id ClientID) *Client {
	c := m.client(id)
	if c == nil {
		invariantf(op, "stale or unknown client %q", id)
	}
	if c.state == StateDestroyed {
		invariantf(op, "client %q is destroyed", id)
	}
	return c
}

// LookupClient reports whether id names a live client.
func (m *Manager) LookupClient(id ClientID) error {
	c := m.client(id)
	if c == nil || c.state == StateDestroyed {
		return ErrNoSuchClient
	}
	return nil
}

// ClientBySurface returns the client wrapping a backend surface.
func (m *Manager) ClientBySurface(sid platform.SurfaceID) (ClientID, bool) {
	id, ok := m.bySurface[sid]
	return id, ok
}

// Focused returns the client holding focus, or the zero ClientID.
func (m *Manager) Focused() ClientID {
	return m.focused
}

func removeID[T comparable](s []T, id T) []T {
	if i := slices.Index(s, id); i >= 0 {
		return slices.Delete(s, i, i+1)
	}
	return s
}
