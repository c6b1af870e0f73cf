package daemon

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/1broseidon/tagwm/internal/config"
	"github.com/1broseidon/tagwm/internal/geom"
	"github.com/1broseidon/tagwm/internal/ipc"
	"github.com/1broseidon/tagwm/internal/layout"
	"github.com/1broseidon/tagwm/internal/platform"
	"github.com/1broseidon/tagwm/internal/rules"
	"github.com/1broseidon/tagwm/internal/wm"
)

type harness struct {
	t       *testing.T
	backend *platform.Headless
	out     *platform.HeadlessOutput
	loop    *Loop
	manager *wm.Manager
	disp    *Dispatcher
	ctrl    *Controller
	next    platform.SurfaceID
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	cfg := config.DefaultConfig()
	h := &harness{
		t:   t,
		out: platform.NewHeadlessOutput("HEADLESS-1", 1920, 1080),
	}
	h.backend = platform.NewHeadless(h.out)
	h.manager = wm.New(wm.Config{
		Scene:    h.backend,
		Hooks:    rules.New(cfg, logger),
		Logger:   logger,
		Settings: cfg.Settings(),
	})
	h.loop = startLoop(t, h.manager.Refresh)
	h.disp = &Dispatcher{Manager: h.manager, Logger: logger}
	h.ctrl = NewController(ControllerConfig{
		Loop:     h.loop,
		Manager:  h.manager,
		Layouts:  func() []string { return cfg.Layouts },
		Instance: "test",
		Logger:   logger,
	})
	h.emit(platform.OutputAdded{Output: h.out})
	return h
}

// on runs fn on the loop.
func (h *harness) on(fn func(m *wm.Manager)) {
	h.t.Helper()
	if err := h.loop.Do(context.Background(), func() error {
		fn(h.manager)
		return nil
	}); err != nil {
		h.t.Fatalf("loop: %v", err)
	}
}

func (h *harness) emit(ev platform.Event) {
	h.t.Helper()
	if err := h.loop.Do(context.Background(), func() error { return h.disp.Handle(ev) }); err != nil {
		h.t.Fatalf("handle %T: %v", ev, err)
	}
}

func (h *harness) spawn(appID string) (*platform.HeadlessSurface, wm.ClientID) {
	h.t.Helper()
	h.next++
	s := platform.NewHeadlessSurface(h.next)
	h.emit(platform.SurfaceCommitted{Surface: s, Info: platform.SurfaceInfo{AppID: appID}})
	h.emit(platform.SurfaceMapped{Surface: s})
	var id wm.ClientID
	var ok bool
	h.on(func(m *wm.Manager) { id, ok = m.ClientBySurface(s.ID()) })
	if !ok {
		h.t.Fatalf("surface %d was not managed", s.ID())
	}
	return s, id
}

func (h *harness) client(id wm.ClientID) wm.ClientInfo {
	h.t.Helper()
	var info wm.ClientInfo
	var err error
	h.on(func(m *wm.Manager) { info, err = m.Client(id) })
	if err != nil {
		h.t.Fatalf("client %s: %v", id, err)
	}
	return info
}

func (h *harness) request(cmd ipc.CommandType, payload any) (any, error) {
	h.t.Helper()
	req, err := ipc.NewRequest(cmd, payload)
	if err != nil {
		h.t.Fatalf("NewRequest: %v", err)
	}
	return h.ctrl.HandleRequest(context.Background(), req)
}

func TestDispatcherSurfaceLifecycle(t *testing.T) {
	h := newHarness(t)
	s, id := h.spawn("term")

	info := h.client(id)
	if info.State != wm.StateMapped.String() || info.MonitorName != "HEADLESS-1" {
		t.Fatalf("unexpected client after map: %+v", info)
	}
	if len(info.TagNames) != 1 || info.TagNames[0] != "1" {
		t.Fatalf("tags = %v, want [1]", info.TagNames)
	}
	if !h.backend.Enabled(s.ID()) {
		t.Fatal("mapped client not enabled in the scene")
	}

	h.emit(platform.TitleChanged{Surface: s, Title: "vim"})
	if got := h.client(id).Title; got != "vim" {
		t.Fatalf("title = %q, want vim", got)
	}

	h.emit(platform.SurfaceUnmapped{Surface: s})
	if info := h.client(id); info.State != wm.StateUnmapped.String() || h.backend.Enabled(s.ID()) {
		t.Fatalf("client still shown after unmap: %+v", info)
	}

	// Mapping again reuses the same client.
	h.emit(platform.SurfaceMapped{Surface: s})
	if info := h.client(id); info.State != wm.StateMapped.String() {
		t.Fatalf("client not remapped: %+v", info)
	}

	h.emit(platform.SurfaceDestroyed{Surface: s})
	h.on(func(m *wm.Manager) {
		if _, ok := m.ClientBySurface(s.ID()); ok {
			t.Fatal("destroyed surface still managed")
		}
	})
}

func TestDispatcherIgnoresUnmanagedCommits(t *testing.T) {
	h := newHarness(t)
	s := platform.NewHeadlessSurface(99)
	h.emit(platform.SurfaceCommitted{Surface: s, Info: platform.SurfaceInfo{Unmanaged: true}})
	h.on(func(m *wm.Manager) {
		if _, ok := m.ClientBySurface(s.ID()); ok {
			t.Fatal("unmanaged surface became a client")
		}
	})
}

func TestDispatcherFullscreenAndActivate(t *testing.T) {
	h := newHarness(t)
	s1, id1 := h.spawn("a")
	_, id2 := h.spawn("b")

	h.emit(platform.FullscreenRequested{Surface: s1, Fullscreen: true})
	if !h.client(id1).Fullscreen {
		t.Fatal("fullscreen request not applied")
	}

	h.emit(platform.ActivateRequested{Surface: s1})
	if !h.client(id1).Focused || h.client(id2).Focused {
		t.Fatal("activate request did not move focus")
	}
	if h.backend.Focus() != s1.ID() {
		t.Fatalf("keyboard focus = %d, want %d", h.backend.Focus(), s1.ID())
	}
}

func TestDispatcherUrgencyIgnoredForFocusedClient(t *testing.T) {
	h := newHarness(t)
	s1, id1 := h.spawn("a")
	s2, id2 := h.spawn("b")
	h.emit(platform.ActivateRequested{Surface: s2})

	h.emit(platform.UrgencyChanged{Surface: s1, Urgent: true})
	h.emit(platform.UrgencyChanged{Surface: s2, Urgent: true})
	if !h.client(id1).Urgent {
		t.Fatal("unfocused client should become urgent")
	}
	if h.client(id2).Urgent {
		t.Fatal("focused client should not become urgent")
	}
}

func TestDispatcherSloppyFocus(t *testing.T) {
	h := newHarness(t)
	s1, id1 := h.spawn("a")
	h.spawn("b")

	h.emit(platform.PointerEntered{Surface: s1})
	if h.client(id1).Focused {
		t.Fatal("pointer focus applied while sloppy focus is off")
	}

	h.on(func(*wm.Manager) { h.disp.SloppyFocus = true })
	h.emit(platform.PointerEntered{Surface: s1})
	if !h.client(id1).Focused {
		t.Fatal("pointer focus not applied with sloppy focus on")
	}
}

func TestDispatcherOverlayReservesWorkArea(t *testing.T) {
	h := newHarness(t)
	bar := platform.NewHeadlessSurface(50)
	h.emit(platform.OverlayMapped{
		Surface: bar,
		Output:  h.out,
		Info:    platform.OverlayInfo{Edge: platform.EdgeTop, Size: 30, ExclusiveZone: 30, Geometry: geom.Rect{Width: 1920, Height: 30}},
	})

	workArea := func() geom.Rect {
		var area geom.Rect
		h.on(func(m *wm.Manager) { area = m.Monitors()[0].WorkArea })
		return area
	}
	if got := workArea(); got.Y != 30 || got.Height != 1050 {
		t.Fatalf("work area with bar = %+v", got)
	}

	h.emit(platform.OverlayUnmapped{Surface: bar})
	if got := workArea(); got.Y != 0 || got.Height != 1080 {
		t.Fatalf("work area after hiding bar = %+v", got)
	}
}

func TestDispatcherOutputHotplug(t *testing.T) {
	h := newHarness(t)
	second := platform.NewHeadlessOutput("HEADLESS-2", 1280, 1024)

	h.emit(platform.OutputAdded{Output: second})
	// Duplicate notifications are harmless.
	h.emit(platform.OutputAdded{Output: second})
	h.on(func(m *wm.Manager) {
		if n := len(m.Monitors()); n != 2 {
			t.Fatalf("monitors = %d, want 2", n)
		}
	})

	h.emit(platform.OutputModeChanged{Output: second, Mode: platform.Mode{Width: 1920, Height: 1200}})
	h.on(func(m *wm.Manager) {
		mon, _ := m.MonitorByOutput(second)
		info, _ := m.Monitor(mon)
		if info.Geometry.Width != 1920 || info.Geometry.Height != 1200 {
			t.Fatalf("geometry after mode change = %+v", info.Geometry)
		}
	})

	h.emit(platform.OutputRemoved{Output: second})
	h.on(func(m *wm.Manager) {
		if n := len(m.Monitors()); n != 1 {
			t.Fatalf("monitors after removal = %d, want 1", n)
		}
	})
}

func TestReconcilerAttachesAndDetaches(t *testing.T) {
	h := newHarness(t)
	second := platform.NewHeadlessOutput("HEADLESS-2", 1280, 1024)
	r := NewReconciler(ReconcilerConfig{Logger: slog.New(slog.DiscardHandler)}, h.loop, h.manager, h.backend.Outputs)

	names := func() []string {
		var out []string
		h.on(func(m *wm.Manager) {
			for _, mon := range m.Monitors() {
				out = append(out, mon.Name)
			}
		})
		return out
	}

	h.on(func(*wm.Manager) { r.Apply([]platform.Output{h.out, second}) })
	if got := names(); len(got) != 2 {
		t.Fatalf("monitors = %v, want two", got)
	}

	h.on(func(*wm.Manager) { r.Apply([]platform.Output{second}) })
	if got := names(); len(got) != 1 || got[0] != "HEADLESS-2" {
		t.Fatalf("monitors = %v, want [HEADLESS-2]", got)
	}
}

func TestReconcilerServeRunsInitialPass(t *testing.T) {
	h := newHarness(t)
	second := platform.NewHeadlessOutput("HEADLESS-2", 1280, 1024)
	h.backend.SetOutputs(h.out, second)

	r := NewReconciler(ReconcilerConfig{Logger: slog.New(slog.DiscardHandler)}, h.loop, h.manager, h.backend.Outputs)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Serve(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	deadline := time.Now().Add(5 * time.Second)
	for {
		var n int
		h.on(func(m *wm.Manager) { n = len(m.Monitors()) })
		if n == 2 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("reconciler did not attach the second output, monitors = %d", n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestControllerViewTagBansOtherClients(t *testing.T) {
	h := newHarness(t)
	_, id := h.spawn("term")

	if _, err := h.request(ipc.CommandViewTag, ipc.TagPayload{Tag: "2"}); err != nil {
		t.Fatalf("view 2: %v", err)
	}
	if !h.client(id).Banned {
		t.Fatal("client on tag 1 should be banned while viewing tag 2")
	}

	if _, err := h.request(ipc.CommandViewPrevious, ipc.MonitorPayload{}); err != nil {
		t.Fatalf("view previous: %v", err)
	}
	if h.client(id).Banned {
		t.Fatal("client should be shown again after viewing the previous tag")
	}

	if _, err := h.request(ipc.CommandViewTag, ipc.TagPayload{Tag: "nope"}); err == nil {
		t.Fatal("expected error for unknown tag")
	}
}

func TestControllerMoveToTagAndFocusJump(t *testing.T) {
	h := newHarness(t)
	_, id := h.spawn("term")

	if _, err := h.request(ipc.CommandMoveClientToTag, ipc.ClientTagPayload{Client: id.String(), Tag: "3"}); err != nil {
		t.Fatalf("move to tag: %v", err)
	}
	info := h.client(id)
	if len(info.TagNames) != 1 || info.TagNames[0] != "3" || !info.Banned {
		t.Fatalf("client after move: tags=%v banned=%v", info.TagNames, info.Banned)
	}

	// Focusing a hidden client views its tag first.
	if _, err := h.request(ipc.CommandFocusClient, ipc.ClientPayload{Client: id.String()}); err != nil {
		t.Fatalf("focus: %v", err)
	}
	info = h.client(id)
	if info.Banned || !info.Focused {
		t.Fatalf("client after focus: banned=%v focused=%v", info.Banned, info.Focused)
	}
}

func TestControllerSetProperty(t *testing.T) {
	h := newHarness(t)
	_, id := h.spawn("term")

	set := func(value string) {
		t.Helper()
		if _, err := h.request(ipc.CommandSetProperty, ipc.PropertyPayload{Client: id.String(), Property: "floating", Value: value}); err != nil {
			t.Fatalf("set floating %s: %v", value, err)
		}
	}
	set("on")
	if !h.client(id).Floating {
		t.Fatal("floating not set")
	}
	set("toggle")
	if h.client(id).Floating {
		t.Fatal("floating not toggled off")
	}

	if _, err := h.request(ipc.CommandSetProperty, ipc.PropertyPayload{Client: id.String(), Property: "wobbly", Value: "on"}); err == nil {
		t.Fatal("expected error for unknown property")
	}
	if _, err := h.request(ipc.CommandSetProperty, ipc.PropertyPayload{Client: id.String(), Property: "floating", Value: "maybe"}); err == nil {
		t.Fatal("expected error for invalid value")
	}
}

func TestControllerLayoutCycle(t *testing.T) {
	h := newHarness(t)
	current := func() string {
		var name string
		h.on(func(m *wm.Manager) { name = m.Monitors()[0].Layout })
		return name
	}
	if got := current(); got != layout.NameTile {
		t.Fatalf("initial layout = %s, want %s", got, layout.NameTile)
	}

	if _, err := h.request(ipc.CommandSetLayout, ipc.LayoutPayload{Layout: "next"}); err != nil {
		t.Fatalf("layout next: %v", err)
	}
	if got := current(); got != layout.NameMonocle {
		t.Fatalf("layout after next = %s, want %s", got, layout.NameMonocle)
	}

	if _, err := h.request(ipc.CommandSetLayout, ipc.LayoutPayload{Layout: "prev"}); err != nil {
		t.Fatalf("layout prev: %v", err)
	}
	if got := current(); got != layout.NameTile {
		t.Fatalf("layout after prev = %s, want %s", got, layout.NameTile)
	}

	if _, err := h.request(ipc.CommandSetLayout, ipc.LayoutPayload{Layout: "spiral"}); err == nil {
		t.Fatal("expected error for unknown layout")
	}
}

func TestControllerFocusAndCloseNeedAClient(t *testing.T) {
	h := newHarness(t)
	if _, err := h.request(ipc.CommandCloseClient, nil); !errors.Is(err, wm.ErrNoFocus) {
		t.Fatalf("close without focus = %v, want ErrNoFocus", err)
	}
	if _, err := h.request(ipc.CommandFocusDirection, ipc.DirectionPayload{Direction: "up"}); err == nil {
		t.Fatal("expected error for invalid direction")
	}

	s, _ := h.spawn("term")
	if _, err := h.request(ipc.CommandCloseClient, nil); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !s.CloseRequested() {
		t.Fatal("surface was not asked to close")
	}
}

func TestControllerStatus(t *testing.T) {
	h := newHarness(t)
	h.spawn("term")

	data, err := h.request(ipc.CommandGetStatus, nil)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	status, ok := data.(ipc.StatusData)
	if !ok {
		t.Fatalf("status data has type %T", data)
	}
	if status.Clients != 1 || status.Monitors != 1 || status.Tags != 9 || status.Instance != "test" {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestControllerPostRunsAsynchronously(t *testing.T) {
	h := newHarness(t)
	_, id := h.spawn("term")

	req, err := ipc.ParseAction("tag 4")
	if err != nil {
		t.Fatalf("ParseAction: %v", err)
	}
	h.ctrl.Post(req)

	// Work posted before a Do has run by the time Do returns.
	if got := h.client(id).TagNames; len(got) != 1 || got[0] != "4" {
		t.Fatalf("tags after posted request = %v, want [4]", got)
	}
}

func TestSanitizeError(t *testing.T) {
	live := context.Background()
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	if err := SanitizeError(live, nil); err != nil {
		t.Fatalf("nil error became %v", err)
	}

	plain := errors.New("boom")
	if err := SanitizeError(live, plain); err != plain {
		t.Fatalf("plain error changed to %v", err)
	}

	if err := SanitizeError(cancelled, plain); !errors.Is(err, context.Canceled) {
		t.Fatalf("error on cancelled context = %v, want context.Canceled", err)
	}

	// A stray context error from a live service must not read as shutdown.
	stray := errors.Join(suture.ErrDoNotRestart, context.DeadlineExceeded)
	err := SanitizeError(live, stray)
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("stray context error leaked: %v", err)
	}
	if !errors.Is(err, suture.ErrDoNotRestart) {
		t.Fatalf("ErrDoNotRestart dropped: %v", err)
	}
}

func TestAcquireLockIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tagwm.lock")

	first, err := acquireLock(path)
	if err != nil {
		t.Fatalf("acquireLock: %v", err)
	}
	if _, err := acquireLock(path); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second acquire = %v, want ErrAlreadyRunning", err)
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	again, err := acquireLock(path)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	again.Release()
}

func TestDaemonServesSocketUntilCancelled(t *testing.T) {
	dir := t.TempDir()
	out := platform.NewHeadlessOutput("HEADLESS-1", 1920, 1080)
	backend := platform.NewHeadless(out)

	d, err := New(Options{
		ConfigPath: filepath.Join(dir, "config.yaml"),
		Backend:    backend,
		Logger:     slog.New(slog.DiscardHandler),
		SocketPath: filepath.Join(dir, "tagwm.sock"),
		LockPath:   filepath.Join(dir, "tagwm.lock"),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	client := ipc.NewClientWithSocket(filepath.Join(dir, "tagwm.sock"))
	waitFor(t, func() bool {
		mons, err := client.GetMonitors()
		return err == nil && len(mons) == 1
	})

	backend.Inject(platform.SurfaceCommitted{Surface: platform.NewHeadlessSurface(1), Info: platform.SurfaceInfo{AppID: "term"}})
	backend.Inject(platform.SurfaceMapped{Surface: platform.NewHeadlessSurface(1)})
	waitFor(t, func() bool {
		clients, err := client.ListClients()
		return err == nil && len(clients) == 1 && clients[0].AppID == "term"
	})

	if err := client.ViewTag("", "2"); err != nil {
		t.Fatalf("ViewTag: %v", err)
	}
	clients, err := client.ListClients()
	if err != nil || len(clients) != 1 || !clients[0].Banned {
		t.Fatalf("client after view 2 = %+v, %v", clients, err)
	}

	if err := client.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("daemon did not stop")
	}
}

func TestDaemonRunFailsWhenBackendStops(t *testing.T) {
	dir := t.TempDir()
	d, err := New(Options{
		ConfigPath: filepath.Join(dir, "config.yaml"),
		Backend:    stoppingBackend{platform.NewHeadless()},
		Logger:     slog.New(slog.DiscardHandler),
		SocketPath: filepath.Join(dir, "tagwm.sock"),
		LockPath:   filepath.Join(dir, "tagwm.lock"),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background()) }()
	select {
	case err := <-done:
		if err == nil || !errors.Is(err, errDisplayGone) {
			t.Fatalf("Run = %v, want display error", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("daemon kept running without a backend")
	}
}

var errDisplayGone = errors.New("display connection lost")

type stoppingBackend struct {
	*platform.Headless
}

func (stoppingBackend) Run(context.Context, func(platform.Event)) error {
	return errDisplayGone
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(20 * time.Millisecond)
	}
}
