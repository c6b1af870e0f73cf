package hotkeys

import (
	"slices"
	"strings"
	"testing"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/tagwm/internal/ipc"
)

func TestParseBindingsSortsAndResolves(t *testing.T) {
	bindings, err := ParseBindings(map[string]string{
		"Mod4-k":       "focus prev",
		"Mod4-1":       "view 1",
		"Mod4-Shift-c": "close",
	})
	if err != nil {
		t.Fatalf("ParseBindings: %v", err)
	}

	var keys []string
	for _, b := range bindings {
		keys = append(keys, b.Keys)
	}
	if want := []string{"Mod4-1", "Mod4-Shift-c", "Mod4-k"}; !slices.Equal(keys, want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	if bindings[0].Request.Command != ipc.CommandViewTag {
		t.Fatalf("Mod4-1 command = %s", bindings[0].Request.Command)
	}
	if bindings[1].Request.Command != ipc.CommandCloseClient {
		t.Fatalf("Mod4-Shift-c command = %s", bindings[1].Request.Command)
	}
}

func TestParseBindingsReportsInvalidActions(t *testing.T) {
	bindings, err := ParseBindings(map[string]string{
		"Mod4-j": "focus next",
		"Mod4-x": "explode",
		"Mod4-y": "view",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	for _, key := range []string{"Mod4-x", "Mod4-y"} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("error %q does not mention %s", err, key)
		}
	}
	if len(bindings) != 1 || bindings[0].Keys != "Mod4-j" {
		t.Fatalf("expected only the valid binding, got %+v", bindings)
	}
}

func TestIgnoreMasks(t *testing.T) {
	caps := uint16(xproto.ModMaskLock)
	num := uint16(xproto.ModMask2)

	got := ignoreMasks(caps, num, 0)
	want := []uint16{0, caps, num, caps | num}
	if !slices.Equal(got, want) {
		t.Fatalf("ignoreMasks = %v, want %v", got, want)
	}

	// A lock sharing a modifier with CapsLock adds nothing.
	if got := ignoreMasks(caps, caps); !slices.Equal(got, []uint16{0, caps}) {
		t.Fatalf("ignoreMasks with duplicate = %v", got)
	}
}
