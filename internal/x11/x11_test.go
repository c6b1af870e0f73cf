package x11

import (
	"slices"
	"testing"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"

	"github.com/1broseidon/tagwm/internal/geom"
	"github.com/1broseidon/tagwm/internal/platform"
)

func TestStrutForMonitorOnlyReservesIntersectingMonitor(t *testing.T) {
	left := geom.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}
	right := geom.Rect{X: 1920, Y: 0, Width: 2560, Height: 1440}

	// A 30px top panel spanning only the left monitor.
	sp := &ewmh.WmStrutPartial{Top: 30, TopStartX: 0, TopEndX: 1919}

	if got := strutForMonitor(left, 4480, 1440, sp); got != (geom.Strut{Top: 30}) {
		t.Fatalf("left strut = %+v, want top 30", got)
	}
	if got := strutForMonitor(right, 4480, 1440, sp); !got.IsZero() {
		t.Fatalf("right strut = %+v, want none", got)
	}
}

func TestStrutForMonitorBottomUsesRootHeight(t *testing.T) {
	// The short left monitor does not reach the bottom of the root window,
	// so a bottom strut measured from the root edge misses it.
	left := geom.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}
	right := geom.Rect{X: 1920, Y: 0, Width: 2560, Height: 1440}
	sp := &ewmh.WmStrutPartial{Bottom: 40, BottomStartX: 0, BottomEndX: 4479}

	if got := strutForMonitor(left, 4480, 1440, sp); !got.IsZero() {
		t.Fatalf("left strut = %+v, want none", got)
	}
	if got := strutForMonitor(right, 4480, 1440, sp); got != (geom.Strut{Bottom: 40}) {
		t.Fatalf("right strut = %+v, want bottom 40", got)
	}
}

func TestFullStrutSpansRoot(t *testing.T) {
	sp := fullStrut(&ewmh.WmStrut{Left: 48}, 3840, 1080)
	mon := geom.Rect{X: 1920, Y: 0, Width: 1920, Height: 1080}
	if got := strutForMonitor(mon, 3840, 1080, sp); !got.IsZero() {
		t.Fatalf("left strut reached the right monitor: %+v", got)
	}
	mon.X = 0
	if got := strutForMonitor(mon, 3840, 1080, sp); got != (geom.Strut{Left: 48}) {
		t.Fatalf("strut = %+v, want left 48", got)
	}
}

func TestDockOverlay(t *testing.T) {
	mon := geom.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}
	tests := []struct {
		name      string
		strut     geom.Strut
		geometry  geom.Rect
		edge      platform.Edge
		size      int
		exclusive int
	}{
		{"top strut", geom.Strut{Top: 24}, geom.Rect{Width: 1920, Height: 24}, platform.EdgeTop, 24, 24},
		{"largest edge wins", geom.Strut{Top: 10, Left: 60}, geom.Rect{Width: 60, Height: 1080}, platform.EdgeLeft, 60, 60},
		{"bottom without strut", geom.Strut{}, geom.Rect{Y: 1050, Width: 1920, Height: 30}, platform.EdgeBottom, 30, 0},
		{"right without strut", geom.Strut{}, geom.Rect{X: 1880, Width: 40, Height: 1080}, platform.EdgeRight, 40, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := dockOverlay(tt.strut, tt.geometry, mon)
			if info.Edge != tt.edge || info.Size != tt.size || info.ExclusiveZone != tt.exclusive {
				t.Fatalf("got edge=%s size=%d exclusive=%d, want edge=%s size=%d exclusive=%d",
					info.Edge, info.Size, info.ExclusiveZone, tt.edge, tt.size, tt.exclusive)
			}
			if info.Geometry != tt.geometry {
				t.Fatalf("geometry = %+v, want %+v", info.Geometry, tt.geometry)
			}
		})
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want uint32
		ok   bool
	}{
		{"#ff0000", 0xff0000, true},
		{"005577", 0x005577, true},
		{"#fff", 0, false},
		{"#gg0000", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, err := parseColor(tt.in)
		if (err == nil) != tt.ok {
			t.Fatalf("parseColor(%q) error = %v, want ok=%v", tt.in, err, tt.ok)
		}
		if got != tt.want {
			t.Fatalf("parseColor(%q) = %#x, want %#x", tt.in, got, tt.want)
		}
	}
}

func TestWindowType(t *testing.T) {
	tests := []struct {
		types []string
		want  platform.WindowType
	}{
		{nil, platform.TypeNormal},
		{[]string{"_NET_WM_WINDOW_TYPE_DOCK"}, platform.TypeDock},
		{[]string{"_KDE_NET_WM_WINDOW_TYPE_OVERRIDE", "_NET_WM_WINDOW_TYPE_DIALOG"}, platform.TypeDialog},
		{[]string{"_NET_WM_WINDOW_TYPE_POPUP_MENU"}, platform.TypeMenu},
		{[]string{"_NET_WM_WINDOW_TYPE_SPLASH", "_NET_WM_WINDOW_TYPE_NORMAL"}, platform.TypeSplash},
	}
	for _, tt := range tests {
		if got := windowType(tt.types); got != tt.want {
			t.Errorf("windowType(%v) = %s, want %s", tt.types, got, tt.want)
		}
	}
}

func TestDiffOutputs(t *testing.T) {
	b := &Backend{}
	known := make(map[string]*output)
	state := func(name string, x, w int) crtcState {
		return crtcState{name: name, bounds: geom.Rect{X: x, Width: w, Height: 1080}}
	}

	changes := diffOutputs(known, []crtcState{state("DP-1", 0, 1920), state("HDMI-1", 1920, 1920)}, b.newOutput)
	if len(changes) != 2 || !changes[0].added || !changes[1].added {
		t.Fatalf("expected two additions, got %+v", changes)
	}
	dp := known["DP-1"]

	// Same outputs again: nothing changed and identity is preserved.
	changes = diffOutputs(known, []crtcState{state("DP-1", 0, 1920), state("HDMI-1", 1920, 1920)}, b.newOutput)
	if len(changes) != 0 {
		t.Fatalf("expected no changes, got %+v", changes)
	}
	if known["DP-1"] != dp {
		t.Fatal("output identity changed across queries")
	}

	// DP-1 switches to a wider mode, HDMI-1 is unplugged.
	changes = diffOutputs(known, []crtcState{state("DP-1", 0, 2560)}, b.newOutput)
	if len(changes) != 2 {
		t.Fatalf("expected two changes, got %+v", changes)
	}
	if changes[0].out != dp || !changes[0].resized || changes[0].moved {
		t.Fatalf("unexpected change for DP-1: %+v", changes[0])
	}
	if changes[1].out.name != "HDMI-1" || !changes[1].removed {
		t.Fatalf("unexpected change for HDMI-1: %+v", changes[1])
	}
	if _, ok := known["HDMI-1"]; ok {
		t.Fatal("removed output still known")
	}
}

func TestOutputAt(t *testing.T) {
	b := &Backend{}
	known := map[string]*output{}
	diffOutputs(known, []crtcState{
		{name: "DP-1", bounds: geom.Rect{X: 0, Width: 1920, Height: 1080}},
		{name: "DP-2", bounds: geom.Rect{X: 1920, Width: 1920, Height: 1080}},
	}, b.newOutput)

	if got := outputAt(known, geom.Point{X: 2000, Y: 10}); got == nil || got.name != "DP-2" {
		t.Fatalf("outputAt = %v, want DP-2", got)
	}
	if got := outputAt(known, geom.Point{X: -50, Y: 10}); got == nil || got.name != "DP-1" {
		t.Fatalf("outputAt outside = %v, want leftmost DP-1", got)
	}
	if got := outputAt(map[string]*output{}, geom.Point{}); got != nil {
		t.Fatalf("outputAt with no outputs = %v, want nil", got)
	}
}

func TestRefreshMilliHz(t *testing.T) {
	// 1920x1080@60: 148.5 MHz, 2200x1125 total.
	mi := randr.ModeInfo{DotClock: 148500000, Htotal: 2200, Vtotal: 1125}
	if got := refreshMilliHz(mi); got != 60000 {
		t.Fatalf("refresh = %d, want 60000", got)
	}
	if got := refreshMilliHz(randr.ModeInfo{}); got != 0 {
		t.Fatalf("refresh of empty mode = %d, want 0", got)
	}
}

func TestConfigureRequestHelpers(t *testing.T) {
	ev := xproto.ConfigureRequestEvent{
		ValueMask: xproto.ConfigWindowX | xproto.ConfigWindowWidth | xproto.ConfigWindowStackMode,
		X:         -10,
		Width:     640,
		StackMode: xproto.StackModeAbove,
	}
	values := configureValues(ev)
	if len(values) != 3 || int32(values[0]) != -10 || values[1] != 640 || values[2] != xproto.StackModeAbove {
		t.Fatalf("unexpected values %v", values)
	}

	cur := geom.Rect{X: 100, Y: 200, Width: 300, Height: 400}
	want := geom.Rect{X: -10, Y: 200, Width: 640, Height: 400}
	if got := requestedGeometry(cur, ev); got != want {
		t.Fatalf("requestedGeometry = %+v, want %+v", got, want)
	}
}

func TestWmStateFor(t *testing.T) {
	states := []string{"_NET_WM_STATE_ABOVE", "_NET_WM_STATE_FULLSCREEN"}

	off := wmStateFor(states, false)
	if !slices.Equal(off, []string{"_NET_WM_STATE_ABOVE"}) {
		t.Fatalf("off = %v", off)
	}
	on := wmStateFor(off, true)
	if !slices.Equal(on, []string{"_NET_WM_STATE_ABOVE", "_NET_WM_STATE_FULLSCREEN"}) {
		t.Fatalf("on = %v", on)
	}
	if len(states) != 2 {
		t.Fatal("input slice was modified")
	}
}
