package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xprop"
)

// Connection manages the X11 connection and core X resources
type Connection struct {
	XUtil *xgbutil.XUtil
	Root  xproto.Window
}

// NewConnection establishes a connection to the X11 server and initializes required extensions
func NewConnection() (*Connection, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, err
	}

	// Initialize keybind module (required for global hotkeys)
	keybind.Initialize(xu)

	if err := randr.Init(xu.Conn()); err != nil {
		xu.Conn().Close()
		return nil, fmt.Errorf("randr init failed: %w", err)
	}

	return &Connection{
		XUtil: xu,
		Root:  xu.RootWin(),
	}, nil
}

// EventLoop starts the main X11 event loop (blocking)
func (c *Connection) EventLoop() {
	xevent.Main(c.XUtil)
}

// Close cleanly disconnects from the X11 server
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}

// atomName resolves an atom, returning "" when the server does not know it.
func (c *Connection) atomName(atom xproto.Atom) string {
	name, err := xprop.AtomName(c.XUtil, atom)
	if err != nil {
		return ""
	}
	return name
}

// sendClientMessage delivers a 32-bit client message of type typ to win.
// A zero mask sends the event to the client that created win.
func (c *Connection) sendClientMessage(win, dest xproto.Window, mask uint32, typ string, data ...uint32) error {
	atom, err := xprop.Atm(c.XUtil, typ)
	if err != nil {
		return fmt.Errorf("failed to intern %s: %w", typ, err)
	}

	buf := make([]uint32, 5)
	copy(buf, data)
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: win,
		Type:   atom,
		Data:   xproto.ClientMessageDataUnionData32New(buf),
	}

	return xproto.SendEventChecked(
		c.XUtil.Conn(),
		false,
		dest,
		mask,
		string(ev.Bytes()),
	).Check()
}

// sendProtocol sends a WM_PROTOCOLS message such as WM_DELETE_WINDOW.
func (c *Connection) sendProtocol(win xproto.Window, protocol string) error {
	atom, err := xprop.Atm(c.XUtil, protocol)
	if err != nil {
		return fmt.Errorf("failed to intern %s: %w", protocol, err)
	}
	return c.sendClientMessage(win, win, xproto.EventMaskNoEvent, "WM_PROTOCOLS",
		uint32(atom), uint32(c.XUtil.TimeGet()))
}
