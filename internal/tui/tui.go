// Package tui is a live terminal dashboard for a running tagwm daemon: the
// tags and windows of each monitor, with keys to view tags and act on
// windows.
package tui

import (
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/1broseidon/tagwm/internal/wm"
)

const pollInterval = time.Second

// Daemon is the part of the control client the dashboard uses.
type Daemon interface {
	GetMonitors() ([]wm.MonitorInfo, error)
	ListTags() ([]wm.TagInfo, error)
	ListClients() ([]wm.ClientInfo, error)
	ViewTag(monitor, tag string) error
	FocusClient(client string) error
	CloseClient(client string) error
	SetLayout(monitor, layout string) error
	SetProperty(client, property, value string) error
}

// Run starts the dashboard and blocks until the user quits.
func Run(d Daemon) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("tui requires an interactive terminal (stdin/stdout must be TTYs)")
	}
	p := tea.NewProgram(newModel(d), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

type snapshotMsg struct {
	monitors []wm.MonitorInfo
	tags     []wm.TagInfo
	clients  []wm.ClientInfo
	err      error
}

type tickMsg time.Time

// model is the root bubbletea model.
type model struct {
	daemon Daemon

	monitors []wm.MonitorInfo
	tags     []wm.TagInfo
	clients  []wm.ClientInfo

	connected  bool
	lastError  string
	monitorIdx int
	clientIdx  int

	width  int
	height int
}

func newModel(d Daemon) model {
	return model{daemon: d}
}

func (m model) fetch() tea.Cmd {
	d := m.daemon
	return func() tea.Msg {
		return snapshot(d, nil)
	}
}

func snapshot(d Daemon, actionErr error) snapshotMsg {
	var msg snapshotMsg
	msg.monitors, msg.err = d.GetMonitors()
	if msg.err == nil {
		msg.tags, msg.err = d.ListTags()
	}
	if msg.err == nil {
		msg.clients, msg.err = d.ListClients()
	}
	if actionErr != nil {
		msg.err = actionErr
	}
	return msg
}

// act runs fn against the daemon and then refreshes the snapshot so the
// result of the action is visible immediately.
func (m model) act(fn func(Daemon) error) tea.Cmd {
	d := m.daemon
	return func() tea.Msg {
		return snapshot(d, fn(d))
	}
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return tea.Batch(m.fetch(), tick())
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		m.apply(msg)
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.fetch(), tick())

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *model) apply(msg snapshotMsg) {
	if msg.err != nil {
		m.lastError = msg.err.Error()
		// Keep the previous snapshot when only an action failed.
		if msg.monitors == nil {
			m.connected = false
		}
		if msg.clients == nil {
			return
		}
	} else {
		m.lastError = ""
	}
	m.connected = true
	m.monitors = msg.monitors
	m.tags = msg.tags
	m.clients = msg.clients
	m.monitorIdx = clamp(m.monitorIdx, len(m.monitors))
	m.clientIdx = clamp(m.clientIdx, len(m.monitorClients()))
}

func clamp(i, n int) int {
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "ctrl+c", "q", "esc":
		return m, tea.Quit

	case "tab":
		if n := len(m.monitors); n > 0 {
			m.monitorIdx = (m.monitorIdx + 1) % n
			m.clientIdx = 0
		}
		return m, nil

	case "shift+tab":
		if n := len(m.monitors); n > 0 {
			m.monitorIdx = (m.monitorIdx - 1 + n) % n
			m.clientIdx = 0
		}
		return m, nil

	case "j", "down":
		m.clientIdx = clamp(m.clientIdx+1, len(m.monitorClients()))
		return m, nil

	case "k", "up":
		m.clientIdx = clamp(m.clientIdx-1, len(m.monitorClients()))
		return m, nil

	case "r":
		return m, m.fetch()

	case " ", "space":
		mon, ok := m.currentMonitor()
		if !ok {
			return m, nil
		}
		return m, m.act(func(d Daemon) error { return d.SetLayout(mon.Name, "next") })

	case "enter", "f", "x":
		c, ok := m.selectedClient()
		if !ok {
			return m, nil
		}
		id := c.ID.String()
		switch key {
		case "enter":
			return m, m.act(func(d Daemon) error { return d.FocusClient(id) })
		case "f":
			return m, m.act(func(d Daemon) error { return d.SetProperty(id, "floating", "toggle") })
		default:
			return m, m.act(func(d Daemon) error { return d.CloseClient(id) })
		}
	}

	if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
		mon, ok := m.currentMonitor()
		tags := m.monitorTags()
		i := int(key[0] - '1')
		if !ok || i >= len(tags) {
			return m, nil
		}
		name := tags[i].Name
		return m, m.act(func(d Daemon) error { return d.ViewTag(mon.Name, name) })
	}
	return m, nil
}

func (m model) currentMonitor() (wm.MonitorInfo, bool) {
	if m.monitorIdx < 0 || m.monitorIdx >= len(m.monitors) {
		return wm.MonitorInfo{}, false
	}
	return m.monitors[m.monitorIdx], true
}

func (m model) monitorTags() []wm.TagInfo {
	mon, ok := m.currentMonitor()
	if !ok {
		return nil
	}
	var out []wm.TagInfo
	for _, t := range m.tags {
		if t.Monitor == mon.ID {
			out = append(out, t)
		}
	}
	return out
}

// monitorClients lists the managed windows of the current monitor, visible
// ones first.
func (m model) monitorClients() []wm.ClientInfo {
	mon, ok := m.currentMonitor()
	if !ok {
		return nil
	}
	var shown, banned []wm.ClientInfo
	for _, c := range m.clients {
		if c.Monitor != mon.ID {
			continue
		}
		if c.Banned {
			banned = append(banned, c)
		} else {
			shown = append(shown, c)
		}
	}
	return append(shown, banned...)
}

func (m model) selectedClient() (wm.ClientInfo, bool) {
	clients := m.monitorClients()
	if m.clientIdx < 0 || m.clientIdx >= len(clients) {
		return wm.ClientInfo{}, false
	}
	return clients[m.clientIdx], true
}

// View implements tea.Model.
func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	focused := ""
	for _, c := range m.clients {
		if c.Focused {
			focused = c.AppID
			break
		}
	}
	statusBar := renderStatusBar(m.connected, len(m.clients), focused, m.width)
	monitorBar := renderMonitorBar(m.monitors, m.monitorIdx, m.width)
	helpBar := renderHelpBar(m.width)

	var layout string
	if mon, ok := m.currentMonitor(); ok {
		layout = mon.Layout
	}
	tagBar := renderTagBar(m.monitorTags(), layout)

	usedHeight := lipgloss.Height(statusBar) + lipgloss.Height(monitorBar) +
		lipgloss.Height(tagBar) + lipgloss.Height(helpBar) + 1
	contentHeight := m.height - usedHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	content := lipgloss.NewStyle().
		Width(m.width).
		Height(contentHeight).
		Padding(0, 1).
		Render(m.renderClients(contentHeight))

	errLine := ""
	if m.lastError != "" {
		errLine = errorStyle.Padding(0, 1).Render(m.lastError)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		statusBar,
		monitorBar,
		tagBar,
		content,
		errLine,
		helpBar,
	)
}

func (m model) renderClients(height int) string {
	clients := m.monitorClients()
	if len(clients) == 0 {
		return bannedStyle.Render("no windows")
	}

	// Keep the cursor on screen.
	start := 0
	if m.clientIdx >= height {
		start = m.clientIdx - height + 1
	}

	var b strings.Builder
	for i := start; i < len(clients) && i < start+height; i++ {
		c := clients[i]
		line := fmt.Sprintf("%-8s %-20s %-12s %s", c.ID, truncate(c.AppID, 20), strings.Join(c.TagNames, ","), truncate(c.Title, 50))
		if c.Floating {
			line += " [float]"
		}
		if c.Fullscreen {
			line += " [full]"
		}
		switch {
		case i == m.clientIdx:
			line = cursorStyle.Render("> " + line)
		case c.Banned:
			line = bannedStyle.Render("  " + line)
		default:
			line = "  " + line
		}
		if i > start {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
