package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// wakeMessage is sent to the support window to unblock the event loop.
const wakeMessage = "_TAGWM_WAKE"

// supportedHints is advertised through _NET_SUPPORTED.
var supportedHints = []string{
	"_NET_SUPPORTED",
	"_NET_SUPPORTING_WM_CHECK",
	"_NET_WM_NAME",
	"_NET_WM_STATE",
	"_NET_WM_STATE_FULLSCREEN",
	"_NET_WM_WINDOW_TYPE",
	"_NET_WM_WINDOW_TYPE_DOCK",
	"_NET_WM_WINDOW_TYPE_DIALOG",
	"_NET_WM_STRUT",
	"_NET_WM_STRUT_PARTIAL",
	"_NET_ACTIVE_WINDOW",
	"_NET_CLOSE_WINDOW",
	"_NET_CLIENT_LIST",
	"_NET_CLIENT_LIST_STACKING",
}

// becomeWM selects substructure redirection on the root window. Only one
// client may hold it, so failure means another window manager is running.
func (c *Connection) becomeWM() error {
	err := xproto.ChangeWindowAttributesChecked(
		c.XUtil.Conn(),
		c.Root,
		xproto.CwEventMask,
		[]uint32{
			xproto.EventMaskSubstructureRedirect |
				xproto.EventMaskSubstructureNotify |
				xproto.EventMaskPropertyChange,
		},
	).Check()
	if err != nil {
		return fmt.Errorf("another window manager is already running: %w", err)
	}
	return nil
}

// createSupportWindow creates the _NET_SUPPORTING_WM_CHECK window and
// advertises the hints we understand.
func (c *Connection) createSupportWindow(name string) (xproto.Window, error) {
	win, err := xwindow.Generate(c.XUtil)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate support window: %w", err)
	}
	if err := win.CreateChecked(c.Root, -1, -1, 1, 1, xproto.CwOverrideRedirect, 1); err != nil {
		return 0, fmt.Errorf("failed to create support window: %w", err)
	}

	if err := ewmh.SupportingWmCheckSet(c.XUtil, c.Root, win.Id); err != nil {
		return 0, err
	}
	if err := ewmh.SupportingWmCheckSet(c.XUtil, win.Id, win.Id); err != nil {
		return 0, err
	}
	if err := ewmh.WmNameSet(c.XUtil, win.Id, name); err != nil {
		return 0, err
	}
	if err := ewmh.SupportedSet(c.XUtil, supportedHints); err != nil {
		return 0, err
	}
	return win.Id, nil
}

// wake sends a message to our own support window so a blocked event loop
// notices it should quit.
func (c *Connection) wake(support xproto.Window) error {
	return c.sendClientMessage(support, support, xproto.EventMaskNoEvent, wakeMessage)
}

// topLevelWindows lists viewable, managed-candidate children of the root in
// stacking order.
func (c *Connection) topLevelWindows() ([]xproto.Window, error) {
	tree, err := xproto.QueryTree(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to query window tree: %w", err)
	}

	var wins []xproto.Window
	for _, win := range tree.Children {
		attrs, err := xproto.GetWindowAttributes(c.XUtil.Conn(), win).Reply()
		if err != nil {
			continue
		}
		if attrs.OverrideRedirect || attrs.MapState != xproto.MapStateViewable {
			continue
		}
		wins = append(wins, win)
	}
	return wins, nil
}

// sendConfigureNotify tells a client its real geometry after we declined or
// altered its ConfigureRequest.
func (c *Connection) sendConfigureNotify(win xproto.Window, x, y, width, height, border int) {
	ev := xproto.ConfigureNotifyEvent{
		Event:        win,
		Window:       win,
		AboveSibling: xproto.WindowNone,
		X:            int16(x),
		Y:            int16(y),
		Width:        uint16(width),
		Height:       uint16(height),
		BorderWidth:  uint16(border),
	}
	xproto.SendEvent(c.XUtil.Conn(), false, win, xproto.EventMaskStructureNotify, string(ev.Bytes()))
}

func (c *Connection) setClientList(wins []xproto.Window) {
	ewmh.ClientListSet(c.XUtil, wins)
}

func (c *Connection) setClientListStacking(wins []xproto.Window) {
	ewmh.ClientListStackingSet(c.XUtil, wins)
}

func (c *Connection) setActiveWindow(win xproto.Window) {
	ewmh.ActiveWindowSet(c.XUtil, win)
}
