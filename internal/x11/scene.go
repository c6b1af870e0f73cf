package x11

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/icccm"

	"github.com/1broseidon/tagwm/internal/geom"
	"github.com/1broseidon/tagwm/internal/platform"
)

// SetEnabled maps or unmaps a window. Unmaps we cause are not reported back
// to the core.
func (b *Backend) SetEnabled(s platform.Surface, enabled bool) {
	win := xproto.Window(s.ID())
	conn := b.conn.XUtil.Conn()
	if enabled {
		xproto.MapWindow(conn, win)
		icccm.WmStateSet(b.conn.XUtil, win, &icccm.WmState{State: icccm.StateNormal})
		return
	}

	b.mu.Lock()
	b.ignoreUnmap[win]++
	b.mu.Unlock()
	xproto.UnmapWindow(conn, win)
	icccm.WmStateSet(b.conn.XUtil, win, &icccm.WmState{State: icccm.StateIconic})
}

func (b *Backend) SetPosition(s platform.Surface, x, y int) {
	xproto.ConfigureWindow(b.conn.XUtil.Conn(), xproto.Window(s.ID()),
		xproto.ConfigWindowX|xproto.ConfigWindowY,
		[]uint32{uint32(int32(x)), uint32(int32(y))})
}

func (b *Backend) SetBorder(s platform.Surface, width int, color string) {
	win := xproto.Window(s.ID())
	conn := b.conn.XUtil.Conn()
	xproto.ConfigureWindow(conn, win, xproto.ConfigWindowBorderWidth, []uint32{uint32(max(width, 0))})
	if color == "" {
		return
	}
	pixel, err := parseColor(color)
	if err != nil {
		b.logger.Warn("invalid border color", "color", color, "error", err)
		return
	}
	xproto.ChangeWindowAttributes(conn, win, xproto.CwBorderPixel, []uint32{pixel})
}

// Restack chains each window directly above the one before it.
func (b *Backend) Restack(bottomToTop []platform.Surface) {
	conn := b.conn.XUtil.Conn()
	stacking := make([]xproto.Window, 0, len(bottomToTop))
	var prev xproto.Window
	for i, s := range bottomToTop {
		win := xproto.Window(s.ID())
		if i > 0 {
			xproto.ConfigureWindow(conn, win,
				xproto.ConfigWindowSibling|xproto.ConfigWindowStackMode,
				[]uint32{uint32(prev), xproto.StackModeAbove})
		}
		prev = win

		if w, ok := b.lookup(win); ok && !w.dock {
			stacking = append(stacking, win)
		}
	}
	b.conn.setClientListStacking(stacking)
}

// SetKeyboardFocus moves the input focus. A nil surface returns focus to
// the root window.
func (b *Backend) SetKeyboardFocus(s platform.Surface) {
	conn := b.conn.XUtil.Conn()
	if s == nil {
		xproto.SetInputFocus(conn, xproto.InputFocusPointerRoot, xproto.InputFocusPointerRoot, xproto.TimeCurrentTime)
		b.conn.setActiveWindow(0)
		return
	}
	win := xproto.Window(s.ID())
	if hints, err := icccm.WmHintsGet(b.conn.XUtil, win); err == nil && hints.Flags&icccm.HintInput != 0 && hints.Input == 0 {
		// Globally active clients take focus through WM_TAKE_FOCUS.
		b.conn.setActiveWindow(win)
		return
	}
	xproto.SetInputFocus(conn, xproto.InputFocusPointerRoot, win, xproto.TimeCurrentTime)
	b.conn.setActiveWindow(win)
}

func (b *Backend) Raise(s platform.Surface) {
	xproto.ConfigureWindow(b.conn.XUtil.Conn(), xproto.Window(s.ID()),
		xproto.ConfigWindowStackMode, []uint32{xproto.StackModeAbove})
}

// SetBackgroundSuppressed is recorded only: X has no background layer
// separate from the root window.
func (b *Backend) SetBackgroundSuppressed(o platform.Output, suppressed bool) {
	b.mu.Lock()
	b.suppressed[o.Name()] = suppressed
	b.mu.Unlock()
	b.logger.Debug("background suppression", "output", o.Name(), "suppressed", suppressed)
}

func (b *Backend) Pointer() (geom.Point, bool) {
	reply, err := xproto.QueryPointer(b.conn.XUtil.Conn(), b.conn.Root).Reply()
	if err != nil || !reply.SameScreen {
		return geom.Point{}, false
	}
	return geom.Point{X: int(reply.RootX), Y: int(reply.RootY)}, true
}

// parseColor converts "#rrggbb" or "rrggbb" to a TrueColor pixel value.
func parseColor(s string) (uint32, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return 0, fmt.Errorf("expected #rrggbb, got %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("expected #rrggbb, got %q", s)
	}
	return uint32(v), nil
}
