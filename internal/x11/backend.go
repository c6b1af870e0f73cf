package x11

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xevent"

	"github.com/1broseidon/tagwm/internal/geom"
	"github.com/1broseidon/tagwm/internal/platform"
)

// Options configures the X11 backend.
type Options struct {
	// MoveOutputs lets the core reposition RandR outputs. When false the
	// server's output layout is reported to the core instead.
	MoveOutputs bool
	Logger      *slog.Logger
}

// Backend manages top-level X windows as a window manager and exposes them
// through platform.Backend.
type Backend struct {
	conn        *Connection
	logger      *slog.Logger
	moveOutputs bool
	started     atomic.Bool
	support     xproto.Window

	mu          sync.Mutex
	windows     map[xproto.Window]*window
	clients     []xproto.Window
	ignoreUnmap map[xproto.Window]int
	outputs     map[string]*output
	suppressed  map[string]bool
	emit        func(platform.Event)
}

var _ platform.Backend = (*Backend)(nil)

// New connects to the X server named by $DISPLAY.
func New(opts Options) (*Backend, error) {
	conn, err := NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn:        conn,
		logger:      logger,
		moveOutputs: opts.MoveOutputs,
		windows:     make(map[xproto.Window]*window),
		ignoreUnmap: make(map[xproto.Window]int),
		outputs:     make(map[string]*output),
		suppressed:  make(map[string]bool),
	}, nil
}

// XUtil returns the underlying xgbutil connection for key grabs.
func (b *Backend) XUtil() *xgbutil.XUtil {
	return b.conn.XUtil
}

// Root returns the X11 root window ID.
func (b *Backend) Root() xproto.Window {
	return b.conn.Root
}

func (b *Backend) Scene() platform.Scene { return b }

// Outputs queries RandR and reports any difference from the last query as
// events.
func (b *Backend) Outputs() ([]platform.Output, error) {
	states, err := b.conn.queryOutputs()
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	changes := diffOutputs(b.outputs, states, b.newOutput)
	outs := make([]platform.Output, 0, len(states))
	for _, st := range states {
		outs = append(outs, b.outputs[st.name])
	}
	b.mu.Unlock()

	for _, ch := range changes {
		b.emitOutputChange(ch)
	}
	return outs, nil
}

func (b *Backend) newOutput(name string) *output {
	return &output{b: b, name: name}
}

func (b *Backend) emitOutputChange(ch outputChange) {
	b.mu.Lock()
	st := ch.out.state
	b.mu.Unlock()

	switch {
	case ch.removed:
		b.logger.Info("output removed", "output", ch.out.name)
		b.send(platform.OutputRemoved{Output: ch.out})
		return
	case ch.added:
		b.logger.Info("output added", "output", ch.out.name, "bounds", st.bounds)
		b.send(platform.OutputAdded{Output: ch.out})
	case ch.resized:
		b.send(platform.OutputModeChanged{
			Output: ch.out,
			Mode:   platform.Mode{Width: st.bounds.Width, Height: st.bounds.Height, Refresh: st.refresh},
		})
	}
	if ch.moved && !b.moveOutputs {
		b.send(platform.OutputLayoutChanged{Output: ch.out, Bounds: st.bounds})
	}
}

// Run becomes the window manager and pumps X events into emit until ctx is
// done. The X connection supports a single run.
func (b *Backend) Run(ctx context.Context, emit func(platform.Event)) error {
	if !b.started.CompareAndSwap(false, true) {
		return errors.New("x11 backend already started")
	}
	if err := b.conn.becomeWM(); err != nil {
		return err
	}

	support, err := b.conn.createSupportWindow("tagwm")
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.support = support
	b.emit = emit
	b.mu.Unlock()

	err = randr.SelectInputChecked(b.conn.XUtil.Conn(), b.conn.Root,
		randr.NotifyMaskScreenChange|randr.NotifyMaskCrtcChange|randr.NotifyMaskOutputChange).Check()
	if err != nil {
		b.logger.Warn("failed to select randr events, hotplug relies on reconciliation", "error", err)
	}
	if _, err := b.Outputs(); err != nil {
		b.logger.Warn("failed to query outputs", "error", err)
	}

	xevent.HookFun(b.handleEvent).Connect(b.conn.XUtil)
	b.adoptExisting()

	done := make(chan struct{})
	go func() {
		defer close(done)
		b.conn.EventLoop()
	}()
	b.logger.Info("x11 backend running", "root", b.conn.Root)

	select {
	case <-ctx.Done():
		xevent.Quit(b.conn.XUtil)
		if err := b.conn.wake(support); err != nil {
			b.logger.Warn("failed to wake event loop", "error", err)
		}
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			b.logger.Warn("x11 event loop did not stop")
		}
		return ctx.Err()
	case <-done:
		return errors.New("x11 event loop exited")
	}
}

// Close disconnects from the X server.
func (b *Backend) Close() error {
	b.conn.Close()
	return nil
}

func (b *Backend) send(ev platform.Event) {
	b.mu.Lock()
	emit := b.emit
	b.mu.Unlock()
	if emit != nil {
		emit(ev)
	}
}

func (b *Backend) lookup(win xproto.Window) (*window, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.windows[win]
	return w, ok
}

// adoptExisting manages windows that were mapped before we started.
func (b *Backend) adoptExisting() {
	wins, err := b.conn.topLevelWindows()
	if err != nil {
		b.logger.Warn("failed to adopt existing windows", "error", err)
		return
	}
	for _, win := range wins {
		if win != b.support {
			b.manage(win)
		}
	}
}

// handleEvent runs on the xevent goroutine before any xevent callbacks. It
// always lets events through so key bindings keep working.
func (b *Backend) handleEvent(_ *xgbutil.XUtil, ev interface{}) bool {
	switch e := ev.(type) {
	case xproto.MapRequestEvent:
		b.onMapRequest(e.Window)
	case xproto.UnmapNotifyEvent:
		b.onUnmapNotify(e)
	case xproto.DestroyNotifyEvent:
		b.onDestroyNotify(e.Window)
	case xproto.ConfigureRequestEvent:
		b.onConfigureRequest(e)
	case xproto.PropertyNotifyEvent:
		b.onPropertyNotify(e)
	case xproto.ClientMessageEvent:
		b.onClientMessage(e)
	case xproto.EnterNotifyEvent:
		if e.Mode != xproto.NotifyModeNormal {
			break
		}
		if w, ok := b.lookup(e.Event); ok {
			b.send(platform.PointerEntered{Surface: w})
		}
	case randr.ScreenChangeNotifyEvent, randr.NotifyEvent:
		if _, err := b.Outputs(); err != nil {
			b.logger.Warn("failed to query outputs", "error", err)
		}
	}
	return true
}

func (b *Backend) onMapRequest(win xproto.Window) {
	attrs, err := xproto.GetWindowAttributes(b.conn.XUtil.Conn(), win).Reply()
	if err != nil {
		return
	}
	if attrs.OverrideRedirect {
		xproto.MapWindow(b.conn.XUtil.Conn(), win)
		return
	}
	b.manage(win)
}

// manage starts tracking win, or re-announces it when the client maps a
// window it withdrew earlier.
func (b *Backend) manage(win xproto.Window) {
	if w, ok := b.lookup(win); ok {
		if w.dock {
			b.announceDock(w)
		} else {
			b.send(platform.SurfaceMapped{Surface: w})
		}
		return
	}

	info := b.conn.surfaceInfo(win)
	w := &window{
		conn:       b.conn,
		id:         win,
		dock:       info.Type == platform.TypeDock,
		fullscreen: info.Fullscreen,
	}
	xproto.ChangeWindowAttributes(b.conn.XUtil.Conn(), win, xproto.CwEventMask,
		[]uint32{xproto.EventMaskEnterWindow | xproto.EventMaskPropertyChange})

	b.mu.Lock()
	b.windows[win] = w
	if !w.dock {
		b.clients = append(b.clients, win)
	}
	clients := slices.Clone(b.clients)
	b.mu.Unlock()

	if w.dock {
		b.announceDock(w)
		return
	}

	xproto.ChangeSaveSet(b.conn.XUtil.Conn(), xproto.SetModeInsert, win)
	b.conn.setClientList(clients)
	b.logger.Debug("managing window", "window", win, "app_id", info.AppID, "type", info.Type)
	b.send(platform.SurfaceCommitted{Surface: w, Info: info})
	b.send(platform.SurfaceMapped{Surface: w})
}

// announceDock reports a dock as an overlay on the output under it.
func (b *Backend) announceDock(w *window) {
	g, err := b.conn.windowGeometry(w.id)
	if err != nil {
		return
	}

	b.mu.Lock()
	out := outputAt(b.outputs, g.Center())
	var bounds geom.Rect
	if out != nil {
		bounds = out.state.bounds
	}
	b.mu.Unlock()

	ev := platform.OverlayMapped{
		Surface: w,
		Info:    dockOverlay(b.conn.dockStrut(w.id, bounds), g, bounds),
	}
	if out != nil {
		ev.Output = out
	}
	b.send(ev)
}

func (b *Backend) onUnmapNotify(e xproto.UnmapNotifyEvent) {
	if e.Event != b.conn.Root {
		return
	}
	b.mu.Lock()
	w, ok := b.windows[e.Window]
	if ok && b.ignoreUnmap[e.Window] > 0 {
		b.ignoreUnmap[e.Window]--
		ok = false
	}
	b.mu.Unlock()
	if !ok {
		return
	}

	if w.dock {
		b.send(platform.OverlayUnmapped{Surface: w})
		return
	}
	icccm.WmStateSet(b.conn.XUtil, w.id, &icccm.WmState{State: icccm.StateWithdrawn})
	b.send(platform.SurfaceUnmapped{Surface: w})
}

func (b *Backend) onDestroyNotify(win xproto.Window) {
	b.mu.Lock()
	w, ok := b.windows[win]
	delete(b.windows, win)
	delete(b.ignoreUnmap, win)
	b.clients = slices.DeleteFunc(b.clients, func(c xproto.Window) bool { return c == win })
	clients := slices.Clone(b.clients)
	b.mu.Unlock()
	if !ok {
		return
	}

	if !w.dock {
		b.conn.setClientList(clients)
	}
	b.send(platform.SurfaceDestroyed{Surface: w})
}

func (b *Backend) onConfigureRequest(e xproto.ConfigureRequestEvent) {
	w, ok := b.lookup(e.Window)
	if !ok || w.dock {
		// Unmanaged windows and docks place themselves.
		xproto.ConfigureWindow(b.conn.XUtil.Conn(), e.Window, e.ValueMask, configureValues(e))
		return
	}

	geo, err := xproto.GetGeometry(b.conn.XUtil.Conn(), xproto.Drawable(e.Window)).Reply()
	if err != nil {
		return
	}
	cur := geom.Rect{X: int(geo.X), Y: int(geo.Y), Width: int(geo.Width), Height: int(geo.Height)}
	b.conn.sendConfigureNotify(e.Window, cur.X, cur.Y, cur.Width, cur.Height, int(geo.BorderWidth))
	if g := requestedGeometry(cur, e); g != cur {
		b.send(platform.ConfigureRequested{Surface: w, Geometry: g})
	}
}

func (b *Backend) onPropertyNotify(e xproto.PropertyNotifyEvent) {
	w, ok := b.lookup(e.Window)
	if !ok {
		return
	}
	switch b.conn.atomName(e.Atom) {
	case "_NET_WM_NAME", "WM_NAME":
		b.send(platform.TitleChanged{Surface: w, Title: b.conn.windowTitle(w.id)})
	case "WM_HINTS":
		hints, err := icccm.WmHintsGet(b.conn.XUtil, w.id)
		if err == nil {
			b.send(platform.UrgencyChanged{Surface: w, Urgent: isUrgent(hints)})
		}
	case "_NET_WM_STRUT_PARTIAL", "_NET_WM_STRUT":
		if w.dock {
			b.announceDock(w)
		}
	}
}

// _NET_WM_STATE actions.
const (
	stateRemove = 0
	stateAdd    = 1
	stateToggle = 2
)

func (b *Backend) onClientMessage(e xproto.ClientMessageEvent) {
	data := e.Data.Data32
	switch b.conn.atomName(e.Type) {
	case "_NET_WM_STATE":
		w, ok := b.lookup(e.Window)
		if !ok || len(data) < 3 {
			return
		}
		if b.conn.atomName(xproto.Atom(data[1])) != "_NET_WM_STATE_FULLSCREEN" &&
			b.conn.atomName(xproto.Atom(data[2])) != "_NET_WM_STATE_FULLSCREEN" {
			return
		}
		b.mu.Lock()
		switch data[0] {
		case stateRemove:
			w.fullscreen = false
		case stateAdd:
			w.fullscreen = true
		case stateToggle:
			w.fullscreen = !w.fullscreen
		}
		fullscreen := w.fullscreen
		b.mu.Unlock()

		states, _ := ewmh.WmStateGet(b.conn.XUtil, w.id)
		ewmh.WmStateSet(b.conn.XUtil, w.id, wmStateFor(states, fullscreen))
		b.send(platform.FullscreenRequested{Surface: w, Fullscreen: fullscreen})

	case "_NET_ACTIVE_WINDOW":
		w, ok := b.lookup(e.Window)
		if !ok {
			// Override-redirect windows are focusable but never managed.
			w = &window{conn: b.conn, id: e.Window}
		}
		b.send(platform.ActivateRequested{Surface: w})

	case "_NET_CLOSE_WINDOW":
		if w, ok := b.lookup(e.Window); ok {
			if err := w.RequestClose(); err != nil {
				b.logger.Debug("close request failed", "window", w.id, "error", err)
			}
		}
	}
}
