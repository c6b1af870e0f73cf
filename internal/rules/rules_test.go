package rules

import (
	"log/slog"
	"testing"

	"github.com/1broseidon/tagwm/internal/config"
	"github.com/1broseidon/tagwm/internal/geom"
	"github.com/1broseidon/tagwm/internal/platform"
	"github.com/1broseidon/tagwm/internal/wm"
)

func boolPtr(v bool) *bool { return &v }

func newManager(t *testing.T, cfg *config.Config, outputs ...*platform.HeadlessOutput) (*wm.Manager, *platform.Headless) {
	t.Helper()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}
	logger := slog.New(slog.DiscardHandler)
	backend := platform.NewHeadless()
	m := wm.New(wm.Config{
		Scene:    backend.Scene(),
		Hooks:    New(cfg, logger),
		Logger:   logger,
		Settings: cfg.Settings(),
	})
	for _, out := range outputs {
		if _, err := m.Attach(out); err != nil {
			t.Fatalf("attach %s: %v", out.Name(), err)
		}
	}
	m.Refresh()
	return m, backend
}

func spawn(t *testing.T, m *wm.Manager, id platform.SurfaceID, info platform.SurfaceInfo) wm.ClientID {
	t.Helper()
	c := m.Create(platform.NewHeadlessSurface(id), info)
	m.Map(c)
	return c
}

func TestScreenAddedCreatesConfiguredTags(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Tags = []string{"web", "code", "chat"}
	m, _ := newManager(t, cfg, platform.NewHeadlessOutput("DP-1", 1920, 1080))

	mon, err := m.MonitorByName("DP-1")
	if err != nil {
		t.Fatalf("monitor: %v", err)
	}
	var names []string
	for _, tag := range m.Tags() {
		if tag.Monitor == mon {
			names = append(names, tag.Name)
		}
	}
	if len(names) != 3 || names[0] != "web" || names[2] != "chat" {
		t.Fatalf("expected configured tags, got %v", names)
	}
	sel := m.SelectedTags(mon)
	web, _ := m.TagByName(mon, "web")
	if len(sel) != 1 || sel[0] != web {
		t.Fatalf("expected first tag selected, got %v", sel)
	}
}

func TestRuleAssignsTagsAndFloatingBeforeFirstShow(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Rules = []config.Rule{
		{Match: config.RuleMatch{AppID: "firefox"}, Tags: []string{"2"}},
		{Match: config.RuleMatch{Title: "^Picture-in-Picture$"}, Floating: boolPtr(true), OnTop: boolPtr(true), Sticky: boolPtr(true)},
	}
	m, backend := newManager(t, cfg, platform.NewHeadlessOutput("DP-1", 1920, 1080))
	mon := m.SelectedMonitor()
	two, _ := m.TagByName(mon, "2")

	ff := spawn(t, m, 1, platform.SurfaceInfo{AppID: "firefox", Title: "Mozilla Firefox"})
	pip := spawn(t, m, 2, platform.SurfaceInfo{AppID: "firefox-pip", Title: "Picture-in-Picture", Geometry: geom.Rect{X: 100, Y: 100, Width: 320, Height: 180}})
	m.Refresh()

	info, err := m.Client(ff)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if len(info.Tags) != 1 || info.Tags[0] != two {
		t.Fatalf("expected firefox on tag 2, got %v", info.TagNames)
	}
	if !info.Banned {
		t.Fatalf("expected firefox hidden while tag 1 is viewed")
	}
	if backend.Enabled(1) {
		t.Fatalf("firefox must never have been shown")
	}

	info, _ = m.Client(pip)
	if !info.Floating || !info.OnTop || !info.Sticky {
		t.Fatalf("expected floating ontop sticky pip, got %+v", info)
	}
	if info.Geometry != (geom.Rect{X: 100, Y: 100, Width: 320, Height: 180}) {
		t.Fatalf("expected requested floating geometry, got %+v", info.Geometry)
	}
	if info.Banned {
		t.Fatalf("expected pip visible")
	}
}

func TestRuleOnUnplacedTagDoesNotStealFocus(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Rules = []config.Rule{{Match: config.RuleMatch{Type: "utility"}, Tags: []string{"9"}}}
	m, _ := newManager(t, cfg, platform.NewHeadlessOutput("DP-1", 1920, 1080))

	term := spawn(t, m, 1, platform.SurfaceInfo{AppID: "foot"})
	m.Refresh()
	spawn(t, m, 2, platform.SurfaceInfo{AppID: "tool", Type: platform.TypeUtility})
	m.Refresh()

	if m.Focused() != term {
		t.Fatalf("expected focus to stay on %v, got %v", term, m.Focused())
	}
}

func TestRuleMonitorPlacement(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Rules = []config.Rule{{Match: config.RuleMatch{AppID: "obs"}, Monitor: "HDMI-1"}}
	m, _ := newManager(t, cfg,
		platform.NewHeadlessOutput("DP-1", 1920, 1080),
		platform.NewHeadlessOutput("HDMI-1", 1280, 1024),
	)
	hdmi, _ := m.MonitorByName("HDMI-1")

	id := spawn(t, m, 1, platform.SurfaceInfo{AppID: "obs"})
	m.Refresh()

	info, _ := m.Client(id)
	if info.Monitor != hdmi {
		t.Fatalf("expected client on HDMI-1, got %q", info.MonitorName)
	}
	if len(info.TagNames) != 1 || info.TagNames[0] != "1" {
		t.Fatalf("expected HDMI-1's selected tag, got %v", info.TagNames)
	}
}

func TestTransientsIgnoreRules(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Rules = []config.Rule{{Match: config.RuleMatch{AppID: "gimp"}, Tags: []string{"5"}}}
	m, _ := newManager(t, cfg, platform.NewHeadlessOutput("DP-1", 1920, 1080))
	mon := m.SelectedMonitor()
	one, _ := m.TagByName(mon, "1")

	parent := spawn(t, m, 1, platform.SurfaceInfo{AppID: "other"})
	child := spawn(t, m, 2, platform.SurfaceInfo{AppID: "gimp", TransientFor: 1})
	m.Refresh()

	info, _ := m.Client(child)
	if info.TransientFor != parent {
		t.Fatalf("expected transient of %v, got %v", parent, info.TransientFor)
	}
	if len(info.Tags) != 1 || info.Tags[0] != one {
		t.Fatalf("expected transient to follow parent tags, got %v", info.TagNames)
	}
}

func TestScreenRemovedDeletesTags(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Tags = []string{"a", "b"}
	dp := platform.NewHeadlessOutput("DP-1", 1920, 1080)
	hdmi := platform.NewHeadlessOutput("HDMI-1", 1920, 1080)
	m, _ := newManager(t, cfg, dp, hdmi)

	if n := len(m.Tags()); n != 4 {
		t.Fatalf("expected 4 tags, got %d", n)
	}
	mon, _ := m.MonitorByName("HDMI-1")
	id := spawn(t, m, 1, platform.SurfaceInfo{AppID: "foot"})
	m.MoveToMonitor(id, mon)
	m.Refresh()

	if err := m.Detach(mon); err != nil {
		t.Fatalf("detach: %v", err)
	}
	m.Refresh()

	tags := m.Tags()
	if len(tags) != 2 {
		t.Fatalf("expected 2 tags after removal, got %d", len(tags))
	}
	for _, tag := range tags {
		if tag.MonitorName != "DP-1" {
			t.Fatalf("unexpected surviving tag %+v", tag)
		}
	}
	info, _ := m.Client(id)
	if info.MonitorName != "DP-1" || len(info.Tags) != 1 || info.Banned {
		t.Fatalf("expected client rescued onto DP-1, got %+v", info)
	}
}

func TestScreenPaddingReservation(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ScreenPadding = geom.Strut{Top: 24, Right: 8}
	m, _ := newManager(t, cfg, platform.NewHeadlessOutput("DP-1", 1920, 1080))

	info, err := m.Monitor(m.SelectedMonitor())
	if err != nil {
		t.Fatalf("monitor: %v", err)
	}
	want := geom.Rect{X: 0, Y: 24, Width: 1912, Height: 1056}
	if info.WorkArea != want {
		t.Fatalf("expected work area %+v, got %+v", want, info.WorkArea)
	}
}

func TestReapplyAddsNewTagsAndSettings(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Tags = []string{"a"}
	logger := slog.New(slog.DiscardHandler)
	engine := New(cfg, logger)
	backend := platform.NewHeadless()
	m := wm.New(wm.Config{Scene: backend.Scene(), Hooks: engine, Logger: logger, Settings: cfg.Settings()})
	if _, err := m.Attach(platform.NewHeadlessOutput("DP-1", 1920, 1080)); err != nil {
		t.Fatalf("attach: %v", err)
	}
	m.Refresh()

	cfg.Tags = []string{"a", "b"}
	cfg.GapSize = 12
	engine.Reapply(m)
	m.Refresh()

	if n := len(m.Tags()); n != 2 {
		t.Fatalf("expected 2 tags after reapply, got %d", n)
	}
	if m.Settings().Gap != 12 {
		t.Fatalf("expected gap 12, got %d", m.Settings().Gap)
	}
	sel := m.SelectedTags(m.SelectedMonitor())
	a, _ := m.TagByName(m.SelectedMonitor(), "a")
	if len(sel) != 1 || sel[0] != a {
		t.Fatalf("expected selection to be kept, got %v", sel)
	}
}

func TestSetConfigReplacesRules(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Rules = []config.Rule{{Match: config.RuleMatch{AppID: "mpv"}, Floating: boolPtr(true)}}
	logger := slog.New(slog.DiscardHandler)
	engine := New(cfg, logger)
	backend := platform.NewHeadless()
	m := wm.New(wm.Config{Scene: backend.Scene(), Hooks: engine, Logger: logger, Settings: cfg.Settings()})
	if _, err := m.Attach(platform.NewHeadlessOutput("DP-1", 1920, 1080)); err != nil {
		t.Fatalf("attach: %v", err)
	}
	m.Refresh()

	next := config.DefaultConfig()
	next.Rules = []config.Rule{{Match: config.RuleMatch{AppID: "mpv"}, Sticky: boolPtr(true)}}
	engine.SetConfig(next)
	engine.Reapply(m)

	id := spawn(t, m, 1, platform.SurfaceInfo{AppID: "mpv"})
	m.Refresh()

	info, _ := m.Client(id)
	if info.Floating || !info.Sticky {
		t.Fatalf("expected only the reloaded rule to apply, got %+v", info)
	}
	if engine.Config() != next {
		t.Fatalf("expected engine to report the reloaded config")
	}
}
