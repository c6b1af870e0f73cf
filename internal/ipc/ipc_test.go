package ipc

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/tagwm/internal/wm"
)

type fakeHandler struct {
	mu  sync.Mutex
	got []*Request
}

func (h *fakeHandler) requests() []*Request {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*Request(nil), h.got...)
}

func (h *fakeHandler) HandleRequest(_ context.Context, req *Request) (any, error) {
	h.mu.Lock()
	h.got = append(h.got, req)
	h.mu.Unlock()
	switch req.Command {
	case CommandGetStatus:
		return StatusData{Status: wm.Status{Clients: 2, Monitors: 1}, Instance: "test", DaemonRunning: true}, nil
	case CommandViewTag:
		var p TagPayload
		if err := req.DecodePayload(&p); err != nil {
			return nil, err
		}
		if p.Tag != "3" {
			return nil, errors.New("tag not found")
		}
		return nil, nil
	case CommandListTags:
		return TagsData{Tags: []wm.TagInfo{{Name: "1", Selected: true}}}, nil
	default:
		return nil, errors.New("unknown command: " + string(req.Command))
	}
}

func startServer(t *testing.T, h Handler) *Client {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", dir)
	t.Setenv("TAGWM_RUNTIME_DIR", "")
	t.Setenv("TAGWM_SOCKET", "")

	srv, err := NewServer(ServerConfig{Handler: h, Logger: slog.New(slog.DiscardHandler)})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if want := filepath.Join(dir, "tagwm.sock"); srv.SocketPath() != want {
		t.Fatalf("socket path = %q, want %q", srv.SocketPath(), want)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Errorf("server did not stop")
		}
	})

	select {
	case <-srv.Ready():
	case err := <-done:
		t.Fatalf("Serve exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server not ready")
	}
	return NewClient()
}

func TestRoundTripOverUnixSocket(t *testing.T) {
	h := &fakeHandler{}
	c := startServer(t, h)

	status, err := c.GetStatus()
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status.Clients != 2 || status.Instance != "test" || !status.DaemonRunning {
		t.Fatalf("unexpected status %+v", status)
	}

	if err := c.ViewTag("", "3"); err != nil {
		t.Fatalf("ViewTag: %v", err)
	}
	tags, err := c.ListTags()
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}
	if len(tags) != 1 || tags[0].Name != "1" || !tags[0].Selected {
		t.Fatalf("unexpected tags %+v", tags)
	}

	if got := h.requests(); len(got) != 3 || got[1].Command != CommandViewTag {
		t.Fatalf("unexpected requests %+v", got)
	}
}

func TestHandlerErrorBecomesDaemonError(t *testing.T) {
	c := startServer(t, &fakeHandler{})

	err := c.ViewTag("", "99")
	if err == nil || !strings.Contains(err.Error(), "daemon error: tag not found") {
		t.Fatalf("expected daemon error, got %v", err)
	}
}

func TestUnknownCommandReturnsError(t *testing.T) {
	c := startServer(t, &fakeHandler{})

	_, err := c.Send(&Request{Command: "NOPE"})
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}

func TestClientWithoutDaemon(t *testing.T) {
	c := NewClientWithSocket(filepath.Join(t.TempDir(), "missing.sock"))
	if err := c.Ping(); err == nil || !strings.Contains(err.Error(), "is the daemon running") {
		t.Fatalf("expected connection error, got %v", err)
	}
}

func TestParseRequestRequiresCommand(t *testing.T) {
	if _, err := ParseRequest([]byte(`{"payload":{}}`)); err == nil {
		t.Fatal("expected error for missing command")
	}
	if _, err := ParseRequest([]byte(`not json`)); err == nil {
		t.Fatal("expected error for invalid json")
	}
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		action  string
		command CommandType
		payload string
	}{
		{"view 3", CommandViewTag, `{"tag":"3"}`},
		{"view previous", CommandViewPrevious, ``},
		{"toggle 2", CommandToggleTag, `{"tag":"2"}`},
		{"tag 4", CommandMoveClientToTag, `{"tag":"4"}`},
		{"toggletag 5", CommandToggleClientTag, `{"tag":"5"}`},
		{"send HDMI-1", CommandMoveClientToMonitor, `{"monitor":"HDMI-1"}`},
		{"focus next", CommandFocusDirection, `{"direction":"next"}`},
		{"focus 3:1", CommandFocusClient, `{"client":"3:1"}`},
		{"close", CommandCloseClient, ``},
		{"layout monocle", CommandSetLayout, `{"layout":"monocle"}`},
		{"master factor +0.05", CommandSetMaster, `{"factor_delta":0.05}`},
		{"master count -1", CommandSetMaster, `{"count_delta":-1}`},
		{"set fullscreen toggle", CommandSetProperty, `{"property":"fullscreen","value":"toggle"}`},
		{"reload", CommandReload, ``},
	}
	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			req, err := ParseAction(tt.action)
			if err != nil {
				t.Fatalf("ParseAction: %v", err)
			}
			if req.Command != tt.command {
				t.Fatalf("command = %s, want %s", req.Command, tt.command)
			}
			if string(req.Payload) != tt.payload {
				t.Fatalf("payload = %s, want %s", req.Payload, tt.payload)
			}
		})
	}
}

func TestParseActionErrors(t *testing.T) {
	for _, action := range []string{"", "view", "close now", "master speed 1", "master factor x", "dance"} {
		if _, err := ParseAction(action); err == nil {
			t.Errorf("ParseAction(%q) expected error", action)
		}
	}
}
