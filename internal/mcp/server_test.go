package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/tagwm/internal/geom"
	"github.com/1broseidon/tagwm/internal/ipc"
	"github.com/1broseidon/tagwm/internal/wm"
)

type fakeWM struct {
	mu      sync.Mutex
	clients []wm.ClientInfo
	calls   []string
	fail    error
}

func (f *fakeWM) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.fail
}

func (f *fakeWM) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

func (f *fakeWM) GetStatus() (*ipc.StatusData, error) {
	focused, _ := wm.ParseClientID("2:1")
	return &ipc.StatusData{
		Status:        wm.Status{Clients: len(f.clients), Tags: 9, Monitors: 1, Focused: focused},
		Instance:      "abc",
		DaemonRunning: true,
	}, nil
}

func (f *fakeWM) ListClients() ([]wm.ClientInfo, error) { return f.clients, nil }

func (f *fakeWM) ListTags() ([]wm.TagInfo, error) {
	return []wm.TagInfo{
		{Name: "1", MonitorName: "DP-1", Selected: true, Layout: "tile", Clients: 2},
		{Name: "1", MonitorName: "HDMI-1", Layout: "monocle"},
	}, nil
}

func (f *fakeWM) GetMonitors() ([]wm.MonitorInfo, error) {
	return []wm.MonitorInfo{{Name: "DP-1", Geometry: geom.Rect{Width: 1920, Height: 1080}, Scale: 1, Selected: true}}, nil
}

func (f *fakeWM) ViewTag(monitor, tag string) error   { return f.record("view " + monitor + " " + tag) }
func (f *fakeWM) ToggleTag(monitor, tag string) error { return f.record("toggle " + monitor + " " + tag) }
func (f *fakeWM) MoveClientToTag(client, tag string) error {
	return f.record("tag " + client + " " + tag)
}
func (f *fakeWM) MoveClientToMonitor(client, monitor string) error {
	return f.record("send " + client + " " + monitor)
}
func (f *fakeWM) FocusClient(client string) error { return f.record("focus " + client) }
func (f *fakeWM) CloseClient(client string) error { return f.record("close " + client) }
func (f *fakeWM) SetLayout(monitor, layout string) error {
	return f.record("layout " + monitor + " " + layout)
}
func (f *fakeWM) SetProperty(client, property, value string) error {
	return f.record("set " + client + " " + property + " " + value)
}

func testClients() []wm.ClientInfo {
	id1, _ := wm.ParseClientID("1:1")
	id2, _ := wm.ParseClientID("2:1")
	return []wm.ClientInfo{
		{ID: id1, AppID: "Firefox", Title: "docs", State: "mapped", MonitorName: "DP-1", TagNames: []string{"2"}, Banned: true},
		{ID: id2, AppID: "foot", Title: "shell", State: "mapped", MonitorName: "DP-1", TagNames: []string{"1"}, Focused: true},
	}
}

func connect(t *testing.T, f *fakeWM) *mcpsdk.ClientSession {
	t.Helper()
	ctx := context.Background()
	srv := NewServer(f, slog.New(slog.DiscardHandler))
	serverT, clientT := mcpsdk.NewInMemoryTransports()
	ss, err := srv.Connect(ctx, serverT)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test", Version: "0"}, nil)
	cs, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() {
		cs.Close()
		ss.Wait()
	})
	return cs
}

// call invokes a tool and decodes its structured output into out. It
// returns the error text of a failed call.
func call(t *testing.T, cs *mcpsdk.ClientSession, name string, args map[string]any, out any) string {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcpsdk.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if res.IsError {
		var msgs []string
		for _, c := range res.Content {
			if tc, ok := c.(*mcpsdk.TextContent); ok {
				msgs = append(msgs, tc.Text)
			}
		}
		return strings.Join(msgs, "\n")
	}
	if out != nil {
		b, err := json.Marshal(res.StructuredContent)
		if err != nil {
			t.Fatalf("marshal structured content: %v", err)
		}
		if err := json.Unmarshal(b, out); err != nil {
			t.Fatalf("decode %s output: %v", name, err)
		}
	}
	return ""
}

func TestToolsAreRegistered(t *testing.T) {
	cs := connect(t, &fakeWM{})
	res, err := cs.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	for _, want := range []string{"get_status", "list_clients", "list_tags", "list_monitors", "view_tag", "move_client", "focus_client", "close_client", "set_layout", "set_property"} {
		if !slices.Contains(names, want) {
			t.Errorf("tool %s not registered (have %v)", want, names)
		}
	}
}

func TestGetStatus(t *testing.T) {
	cs := connect(t, &fakeWM{clients: testClients()})
	var out StatusOutput
	if msg := call(t, cs, "get_status", nil, &out); msg != "" {
		t.Fatalf("get_status failed: %s", msg)
	}
	if out.Clients != 2 || out.Focused != "2:1" || out.Instance != "abc" {
		t.Fatalf("unexpected status %+v", out)
	}
}

func TestListClientsFilters(t *testing.T) {
	cs := connect(t, &fakeWM{clients: testClients()})

	tests := []struct {
		name string
		args map[string]any
		want []string
	}{
		{"all", nil, []string{"1:1", "2:1"}},
		{"app id is case-insensitive", map[string]any{"app_id": "fire"}, []string{"1:1"}},
		{"tag", map[string]any{"tag": "1"}, []string{"2:1"}},
		{"visible only", map[string]any{"visible": true}, []string{"2:1"}},
		{"other monitor", map[string]any{"monitor": "HDMI-1"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out ListClientsOutput
			if msg := call(t, cs, "list_clients", tt.args, &out); msg != "" {
				t.Fatalf("list_clients failed: %s", msg)
			}
			var ids []string
			for _, c := range out.Clients {
				ids = append(ids, c.ID)
			}
			if !slices.Equal(ids, tt.want) {
				t.Fatalf("ids = %v, want %v", ids, tt.want)
			}
		})
	}
}

func TestListTagsByMonitor(t *testing.T) {
	cs := connect(t, &fakeWM{})
	var out ListTagsOutput
	if msg := call(t, cs, "list_tags", map[string]any{"monitor": "HDMI-1"}, &out); msg != "" {
		t.Fatalf("list_tags failed: %s", msg)
	}
	if len(out.Tags) != 1 || out.Tags[0].Layout != "monocle" {
		t.Fatalf("unexpected tags %+v", out.Tags)
	}
}

func TestActionsReachTheDaemon(t *testing.T) {
	f := &fakeWM{clients: testClients()}
	cs := connect(t, f)

	steps := []struct {
		tool string
		args map[string]any
	}{
		{"view_tag", map[string]any{"tag": "3"}},
		{"view_tag", map[string]any{"tag": "4", "monitor": "DP-1", "toggle": true}},
		{"move_client", map[string]any{"client": "1:1", "tag": "5", "monitor": "HDMI-1"}},
		{"focus_client", map[string]any{"app_id": "FOOT"}},
		{"close_client", nil},
		{"set_layout", map[string]any{"layout": "next"}},
		{"set_property", map[string]any{"property": "fullscreen"}},
	}
	for _, st := range steps {
		if msg := call(t, cs, st.tool, st.args, nil); msg != "" {
			t.Fatalf("%s failed: %s", st.tool, msg)
		}
	}

	want := []string{
		"view  3",
		"toggle DP-1 4",
		"send 1:1 HDMI-1",
		"tag 1:1 5",
		"focus 2:1",
		"close ",
		"layout  next",
		"set  fullscreen toggle",
	}
	if got := f.recorded(); !slices.Equal(got, want) {
		t.Fatalf("calls = %q, want %q", got, want)
	}
}

func TestToolErrorsAreReported(t *testing.T) {
	f := &fakeWM{clients: testClients()}
	cs := connect(t, f)

	if msg := call(t, cs, "set_property", map[string]any{"property": "wobbly"}, nil); !strings.Contains(msg, "unknown property") {
		t.Fatalf("set_property error = %q", msg)
	}
	if msg := call(t, cs, "move_client", map[string]any{}, nil); !strings.Contains(msg, "tag or monitor is required") {
		t.Fatalf("move_client error = %q", msg)
	}
	if msg := call(t, cs, "focus_client", map[string]any{"app_id": "nothing"}, nil); !strings.Contains(msg, "no client") {
		t.Fatalf("focus_client error = %q", msg)
	}

	f.mu.Lock()
	f.fail = errors.New("tag not found: 9")
	f.mu.Unlock()
	if msg := call(t, cs, "view_tag", map[string]any{"tag": "9"}, nil); !strings.Contains(msg, "tag not found") {
		t.Fatalf("view_tag error = %q", msg)
	}
	if len(f.recorded()) != 1 {
		t.Fatalf("invalid requests reached the daemon: %v", f.recorded())
	}
}
