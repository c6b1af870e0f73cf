package x11

import (
	"slices"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"

	"github.com/1broseidon/tagwm/internal/geom"
	"github.com/1broseidon/tagwm/internal/platform"
)

// window is a top-level X window seen through the platform.Surface
// interface. Backends hand out one *window per X window so the core can
// compare surfaces by identity.
type window struct {
	conn *Connection
	id   xproto.Window

	// Guarded by Backend.mu.
	dock       bool
	fullscreen bool
}

var _ platform.Surface = (*window)(nil)

func (w *window) ID() platform.SurfaceID {
	return platform.SurfaceID(w.id)
}

// RequestResize configures the window size directly. X clients see the new
// size at once, so no acknowledgement token is issued.
func (w *window) RequestResize(width, height int) (uint32, error) {
	width = max(width, 1)
	height = max(height, 1)
	err := xproto.ConfigureWindowChecked(
		w.conn.XUtil.Conn(),
		w.id,
		xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
		[]uint32{uint32(width), uint32(height)},
	).Check()
	return 0, err
}

// RequestActivate offers focus to clients that take it themselves.
func (w *window) RequestActivate(active bool) error {
	if !active || !w.supports("WM_TAKE_FOCUS") {
		return nil
	}
	return w.conn.sendProtocol(w.id, "WM_TAKE_FOCUS")
}

// RequestClose asks the client to close via WM_DELETE_WINDOW, falling back
// to killing its connection.
func (w *window) RequestClose() error {
	if w.supports("WM_DELETE_WINDOW") {
		return w.conn.sendProtocol(w.id, "WM_DELETE_WINDOW")
	}
	return xproto.KillClientChecked(w.conn.XUtil.Conn(), uint32(w.id)).Check()
}

// ClosePopups is a no-op: X popups are override-redirect windows that the
// client dismisses itself.
func (w *window) ClosePopups() {}

func (w *window) supports(protocol string) bool {
	protocols, err := icccm.WmProtocolsGet(w.conn.XUtil, w.id)
	return err == nil && slices.Contains(protocols, protocol)
}

// surfaceInfo reads what the client advertised before asking to be mapped.
func (c *Connection) surfaceInfo(win xproto.Window) platform.SurfaceInfo {
	info := platform.SurfaceInfo{
		Title: c.windowTitle(win),
	}

	if class, err := icccm.WmClassGet(c.XUtil, win); err == nil && class != nil {
		info.AppID = class.Class
		if info.AppID == "" {
			info.AppID = class.Instance
		}
	}

	types, _ := ewmh.WmWindowTypeGet(c.XUtil, win)
	info.Type = windowType(types)

	if parent, err := icccm.WmTransientForGet(c.XUtil, win); err == nil && parent != 0 && parent != win {
		info.TransientFor = platform.SurfaceID(parent)
		if len(types) == 0 {
			info.Type = platform.TypeDialog
		}
	}

	if g, err := c.windowGeometry(win); err == nil {
		info.Geometry = g
	}

	states, _ := ewmh.WmStateGet(c.XUtil, win)
	info.Fullscreen = slices.Contains(states, "_NET_WM_STATE_FULLSCREEN")

	if hints, err := icccm.WmHintsGet(c.XUtil, win); err == nil {
		info.Urgent = isUrgent(hints)
	}
	return info
}

// windowTitle prefers _NET_WM_NAME and falls back to WM_NAME.
func (c *Connection) windowTitle(win xproto.Window) string {
	if name, err := ewmh.WmNameGet(c.XUtil, win); err == nil && name != "" {
		return name
	}
	name, _ := icccm.WmNameGet(c.XUtil, win)
	return name
}

func (c *Connection) windowGeometry(win xproto.Window) (geom.Rect, error) {
	g, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(win)).Reply()
	if err != nil {
		return geom.Rect{}, err
	}
	return geom.Rect{X: int(g.X), Y: int(g.Y), Width: int(g.Width), Height: int(g.Height)}, nil
}

var windowTypes = map[string]platform.WindowType{
	"_NET_WM_WINDOW_TYPE_NORMAL":        platform.TypeNormal,
	"_NET_WM_WINDOW_TYPE_DIALOG":        platform.TypeDialog,
	"_NET_WM_WINDOW_TYPE_DOCK":          platform.TypeDock,
	"_NET_WM_WINDOW_TYPE_DESKTOP":       platform.TypeDesktop,
	"_NET_WM_WINDOW_TYPE_SPLASH":        platform.TypeSplash,
	"_NET_WM_WINDOW_TYPE_UTILITY":       platform.TypeUtility,
	"_NET_WM_WINDOW_TYPE_TOOLBAR":       platform.TypeToolbar,
	"_NET_WM_WINDOW_TYPE_MENU":          platform.TypeMenu,
	"_NET_WM_WINDOW_TYPE_NOTIFICATION":  platform.TypeNotification,
	"_NET_WM_WINDOW_TYPE_DROPDOWN_MENU": platform.TypeMenu,
	"_NET_WM_WINDOW_TYPE_POPUP_MENU":    platform.TypeMenu,
}

// windowType maps _NET_WM_WINDOW_TYPE to a WindowType. The list is in order
// of preference, so the first known entry wins.
func windowType(types []string) platform.WindowType {
	for _, t := range types {
		if wt, ok := windowTypes[t]; ok {
			return wt
		}
	}
	return platform.TypeNormal
}

func isUrgent(hints *icccm.Hints) bool {
	return hints != nil && hints.Flags&icccm.HintUrgency != 0
}

// wmStateFor returns the _NET_WM_STATE list that reflects fullscreen while
// keeping every other state the client set.
func wmStateFor(states []string, fullscreen bool) []string {
	out := slices.DeleteFunc(slices.Clone(states), func(s string) bool {
		return s == "_NET_WM_STATE_FULLSCREEN"
	})
	if fullscreen {
		out = append(out, "_NET_WM_STATE_FULLSCREEN")
	}
	return out
}

// configureValues lists the fields of a ConfigureRequest in the order the
// value mask expects them.
func configureValues(ev xproto.ConfigureRequestEvent) []uint32 {
	var values []uint32
	mask := ev.ValueMask
	if mask&xproto.ConfigWindowX != 0 {
		values = append(values, uint32(ev.X))
	}
	if mask&xproto.ConfigWindowY != 0 {
		values = append(values, uint32(ev.Y))
	}
	if mask&xproto.ConfigWindowWidth != 0 {
		values = append(values, uint32(ev.Width))
	}
	if mask&xproto.ConfigWindowHeight != 0 {
		values = append(values, uint32(ev.Height))
	}
	if mask&xproto.ConfigWindowBorderWidth != 0 {
		values = append(values, uint32(ev.BorderWidth))
	}
	if mask&xproto.ConfigWindowSibling != 0 {
		values = append(values, uint32(ev.Sibling))
	}
	if mask&xproto.ConfigWindowStackMode != 0 {
		values = append(values, uint32(ev.StackMode))
	}
	return values
}

// requestedGeometry overlays the fields present in a ConfigureRequest on
// the window's current geometry.
func requestedGeometry(cur geom.Rect, ev xproto.ConfigureRequestEvent) geom.Rect {
	g := cur
	if ev.ValueMask&xproto.ConfigWindowX != 0 {
		g.X = int(ev.X)
	}
	if ev.ValueMask&xproto.ConfigWindowY != 0 {
		g.Y = int(ev.Y)
	}
	if ev.ValueMask&xproto.ConfigWindowWidth != 0 {
		g.Width = int(ev.Width)
	}
	if ev.ValueMask&xproto.ConfigWindowHeight != 0 {
		g.Height = int(ev.Height)
	}
	return g
}
