package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/1broseidon/tagwm/internal/wm"
)

type fakeDaemon struct {
	monitors []wm.MonitorInfo
	tags     []wm.TagInfo
	clients  []wm.ClientInfo
	down     bool
	failAct  error
	calls    []string
}

var errDown = errors.New("daemon not running")

func (f *fakeDaemon) GetMonitors() ([]wm.MonitorInfo, error) {
	if f.down {
		return nil, errDown
	}
	return f.monitors, nil
}

func (f *fakeDaemon) ListTags() ([]wm.TagInfo, error) { return f.tags, nil }

func (f *fakeDaemon) ListClients() ([]wm.ClientInfo, error) { return f.clients, nil }

func (f *fakeDaemon) record(call string) error {
	f.calls = append(f.calls, call)
	return f.failAct
}

func (f *fakeDaemon) ViewTag(monitor, tag string) error {
	return f.record("view " + monitor + " " + tag)
}

func (f *fakeDaemon) FocusClient(client string) error { return f.record("focus " + client) }

func (f *fakeDaemon) CloseClient(client string) error { return f.record("close " + client) }

func (f *fakeDaemon) SetLayout(monitor, layout string) error {
	return f.record("layout " + monitor + " " + layout)
}

func (f *fakeDaemon) SetProperty(client, property, value string) error {
	return f.record("set " + client + " " + property + " " + value)
}

func mustClientID(t *testing.T, s string) wm.ClientID {
	t.Helper()
	id, err := wm.ParseClientID(s)
	if err != nil {
		t.Fatalf("ParseClientID(%q): %v", s, err)
	}
	return id
}

func mustMonitorID(t *testing.T, s string) wm.MonitorID {
	t.Helper()
	id, err := wm.ParseMonitorID(s)
	if err != nil {
		t.Fatalf("ParseMonitorID(%q): %v", s, err)
	}
	return id
}

func newFake(t *testing.T) *fakeDaemon {
	left := mustMonitorID(t, "1:1")
	right := mustMonitorID(t, "2:1")
	return &fakeDaemon{
		monitors: []wm.MonitorInfo{
			{ID: left, Name: "DP-1", Layout: "tile", Selected: true},
			{ID: right, Name: "DP-2", Layout: "monocle"},
		},
		tags: []wm.TagInfo{
			{Name: "1", Monitor: left, Selected: true, Clients: 1},
			{Name: "2", Monitor: left},
			{Name: "web", Monitor: right, Selected: true, Clients: 1},
		},
		clients: []wm.ClientInfo{
			{ID: mustClientID(t, "1:1"), AppID: "hidden", Monitor: left, Banned: true},
			{ID: mustClientID(t, "2:1"), AppID: "term", Monitor: left, Focused: true},
			{ID: mustClientID(t, "3:1"), AppID: "firefox", Monitor: right},
		},
	}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press feeds a key and runs the resulting command, if any, back through
// Update.
func press(t *testing.T, m model, key tea.KeyMsg) model {
	t.Helper()
	next, cmd := m.Update(key)
	m = next.(model)
	if cmd == nil {
		return m
	}
	msg := cmd()
	if snap, ok := msg.(snapshotMsg); ok {
		next, _ = m.Update(snap)
		m = next.(model)
	}
	return m
}

func loaded(t *testing.T, f *fakeDaemon) model {
	t.Helper()
	m := newModel(f)
	next, _ := m.Update(m.fetch()())
	return next.(model)
}

func TestSnapshotOrdersVisibleClientsFirst(t *testing.T) {
	m := loaded(t, newFake(t))
	if !m.connected {
		t.Fatalf("expected connected after snapshot")
	}
	clients := m.monitorClients()
	if len(clients) != 2 {
		t.Fatalf("expected 2 clients on DP-1, got %d", len(clients))
	}
	if clients[0].AppID != "term" || clients[1].AppID != "hidden" {
		t.Fatalf("unexpected order: %s, %s", clients[0].AppID, clients[1].AppID)
	}
}

func TestDaemonDown(t *testing.T) {
	f := newFake(t)
	f.down = true
	m := loaded(t, f)
	if m.connected {
		t.Fatalf("expected disconnected")
	}
	if m.lastError == "" {
		t.Fatalf("expected error to be shown")
	}
}

func TestNumberKeysViewTagsOfCurrentMonitor(t *testing.T) {
	f := newFake(t)
	m := loaded(t, f)

	m = press(t, m, runes("2"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = press(t, m, runes("1"))
	// DP-2 only has one tag.
	m = press(t, m, runes("2"))

	want := []string{"view DP-1 2", "view DP-2 web"}
	if strings.Join(f.calls, "|") != strings.Join(want, "|") {
		t.Fatalf("calls = %q, want %q", f.calls, want)
	}
	if m.monitorIdx != 1 {
		t.Fatalf("monitorIdx = %d, want 1", m.monitorIdx)
	}
}

func TestClientActionsUseSelection(t *testing.T) {
	f := newFake(t)
	m := loaded(t, f)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = press(t, m, runes("j"))
	m = press(t, m, runes("j")) // clamped at the last client
	m = press(t, m, runes("f"))
	m = press(t, m, runes("x"))
	m = press(t, m, runes(" "))

	want := []string{
		"focus 2:1",
		"set 1:1 floating toggle",
		"close 1:1",
		"layout DP-1 next",
	}
	if strings.Join(f.calls, "|") != strings.Join(want, "|") {
		t.Fatalf("calls = %q, want %q", f.calls, want)
	}
	if m.clientIdx != 1 {
		t.Fatalf("clientIdx = %d, want 1", m.clientIdx)
	}
}

func TestActionErrorKeepsSnapshot(t *testing.T) {
	f := newFake(t)
	m := loaded(t, f)
	f.failAct = errors.New("no such tag")

	m = press(t, m, runes("1"))
	if m.lastError != "no such tag" {
		t.Fatalf("lastError = %q", m.lastError)
	}
	if !m.connected || len(m.clients) != 3 {
		t.Fatalf("snapshot lost after failed action")
	}
}

func TestQuit(t *testing.T) {
	m := loaded(t, newFake(t))
	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}

func TestViewRendersTagsAndClients(t *testing.T) {
	m := loaded(t, newFake(t))
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 20})
	m = next.(model)

	out := m.View()
	for _, want := range []string{"daemon connected", "DP-1", "DP-2", "[tile]", "term", "hidden"} {
		if !strings.Contains(out, want) {
			t.Fatalf("view missing %q:\n%s", want, out)
		}
	}
}
