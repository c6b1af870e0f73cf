package x11

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"

	"github.com/1broseidon/tagwm/internal/geom"
	"github.com/1broseidon/tagwm/internal/platform"
)

// crtcState is what RandR reports for one enabled output.
type crtcState struct {
	name     string
	crtc     randr.Crtc
	mode     randr.Mode
	rotation uint16
	outputs  []randr.Output
	bounds   geom.Rect
	refresh  int
	cfgTime  xproto.Timestamp
}

// output is a RandR output. The backend keeps one *output per output name
// for as long as it stays connected.
type output struct {
	b    *Backend
	name string

	// Guarded by b.mu.
	state crtcState
}

var _ platform.Output = (*output)(nil)

func (o *output) Name() string { return o.name }

// PreferredMode reports the mode the CRTC is currently driving.
func (o *output) PreferredMode() (platform.Mode, error) {
	o.b.mu.Lock()
	defer o.b.mu.Unlock()
	return platform.Mode{
		Width:   o.state.bounds.Width,
		Height:  o.state.bounds.Height,
		Refresh: o.state.refresh,
	}, nil
}

// Commit moves the CRTC when the backend owns the output layout. Scale has
// no RandR equivalent and is ignored.
func (o *output) Commit(bounds geom.Rect, scale float64) error {
	o.b.mu.Lock()
	st := o.state
	move := o.b.moveOutputs
	o.b.mu.Unlock()

	if !move || (bounds.X == st.bounds.X && bounds.Y == st.bounds.Y) {
		return nil
	}

	reply, err := randr.SetCrtcConfig(
		o.b.conn.XUtil.Conn(),
		st.crtc,
		xproto.TimeCurrentTime,
		st.cfgTime,
		int16(bounds.X), int16(bounds.Y),
		st.mode,
		st.rotation,
		st.outputs,
	).Reply()
	if err != nil {
		return fmt.Errorf("failed to move output %s: %w", o.name, err)
	}
	if reply.Status != randr.SetConfigSuccess {
		return fmt.Errorf("failed to move output %s: randr status %d", o.name, reply.Status)
	}

	o.b.mu.Lock()
	o.state.bounds.X, o.state.bounds.Y = bounds.X, bounds.Y
	o.b.mu.Unlock()
	return nil
}

// queryOutputs retrieves all active outputs using XRandR, ordered left to
// right.
func (c *Connection) queryOutputs() ([]crtcState, error) {
	conn := c.XUtil.Conn()
	resources, err := randr.GetScreenResourcesCurrent(conn, c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	modes := make(map[randr.Mode]randr.ModeInfo, len(resources.Modes))
	for _, mi := range resources.Modes {
		modes[randr.Mode(mi.Id)] = mi
	}

	var states []crtcState
	for i, crtc := range resources.Crtcs {
		info, err := randr.GetCrtcInfo(conn, crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}

		// Skip disabled CRTCs
		if info.Width == 0 || info.Height == 0 || len(info.Outputs) == 0 {
			continue
		}

		name := fmt.Sprintf("Monitor%d", i)
		if out, err := randr.GetOutputInfo(conn, info.Outputs[0], resources.ConfigTimestamp).Reply(); err == nil {
			if out.Connection != randr.ConnectionConnected {
				continue
			}
			name = string(out.Name)
		}

		states = append(states, crtcState{
			name:     name,
			crtc:     crtc,
			mode:     info.Mode,
			rotation: info.Rotation,
			outputs:  info.Outputs,
			bounds: geom.Rect{
				X:      int(info.X),
				Y:      int(info.Y),
				Width:  int(info.Width),
				Height: int(info.Height),
			},
			refresh: refreshMilliHz(modes[info.Mode]),
			cfgTime: resources.ConfigTimestamp,
		})
	}

	slices.SortFunc(states, func(a, b crtcState) int {
		return cmp.Or(cmp.Compare(a.bounds.X, b.bounds.X), cmp.Compare(a.bounds.Y, b.bounds.Y))
	})
	return states, nil
}

// refreshMilliHz derives the vertical refresh rate of a mode in mHz.
func refreshMilliHz(mi randr.ModeInfo) int {
	if mi.Htotal == 0 || mi.Vtotal == 0 {
		return 0
	}
	return int(uint64(mi.DotClock) * 1000 / (uint64(mi.Htotal) * uint64(mi.Vtotal)))
}

// outputChange is one difference between the known outputs and a fresh
// RandR query.
type outputChange struct {
	out     *output
	added   bool
	removed bool
	resized bool
	moved   bool
}

// diffOutputs folds states into known and reports what changed. New outputs
// are created with newOutput. known is updated in place.
func diffOutputs(known map[string]*output, states []crtcState, newOutput func(name string) *output) []outputChange {
	var changes []outputChange
	seen := make(map[string]bool, len(states))
	for _, st := range states {
		seen[st.name] = true
		o, ok := known[st.name]
		if !ok {
			o = newOutput(st.name)
			o.state = st
			known[st.name] = o
			changes = append(changes, outputChange{out: o, added: true, moved: true})
			continue
		}
		prev := o.state.bounds
		o.state = st
		ch := outputChange{
			out:     o,
			resized: prev.Width != st.bounds.Width || prev.Height != st.bounds.Height,
			moved:   prev.X != st.bounds.X || prev.Y != st.bounds.Y,
		}
		if ch.resized || ch.moved {
			changes = append(changes, ch)
		}
	}
	for name, o := range known {
		if !seen[name] {
			delete(known, name)
			changes = append(changes, outputChange{out: o, removed: true})
		}
	}
	return changes
}

// outputAt returns the output containing p, or the first output.
func outputAt(outputs map[string]*output, p geom.Point) *output {
	var first *output
	for _, o := range outputs {
		if o.state.bounds.Contains(p) {
			return o
		}
		if first == nil || o.state.bounds.X < first.state.bounds.X {
			first = o
		}
	}
	return first
}

// strutForMonitor computes how much of monitor a root-relative partial strut
// reserves. Edges the strut does not reach reserve nothing.
func strutForMonitor(monitor geom.Rect, rootWidth, rootHeight int, sp *ewmh.WmStrutPartial) geom.Strut {
	var acc geom.Strut

	// Top strut: y=[0,Top), x=[TopStartX,TopEndX]
	if sp.Top > 0 {
		r := geom.Rect{X: int(sp.TopStartX), Y: 0, Width: int(sp.TopEndX) - int(sp.TopStartX) + 1, Height: int(sp.Top)}
		if isect := monitor.Intersect(r); !isect.Empty() {
			acc.Top = isect.Height
		}
	}

	// Bottom strut: y=[rootHeight-Bottom,rootHeight), x=[BottomStartX,BottomEndX]
	if sp.Bottom > 0 {
		r := geom.Rect{X: int(sp.BottomStartX), Y: rootHeight - int(sp.Bottom), Width: int(sp.BottomEndX) - int(sp.BottomStartX) + 1, Height: int(sp.Bottom)}
		if isect := monitor.Intersect(r); !isect.Empty() {
			acc.Bottom = isect.Height
		}
	}

	// Left strut: x=[0,Left), y=[LeftStartY,LeftEndY]
	if sp.Left > 0 {
		r := geom.Rect{X: 0, Y: int(sp.LeftStartY), Width: int(sp.Left), Height: int(sp.LeftEndY) - int(sp.LeftStartY) + 1}
		if isect := monitor.Intersect(r); !isect.Empty() {
			acc.Left = isect.Width
		}
	}

	// Right strut: x=[rootWidth-Right,rootWidth), y=[RightStartY,RightEndY]
	if sp.Right > 0 {
		r := geom.Rect{X: rootWidth - int(sp.Right), Y: int(sp.RightStartY), Width: int(sp.Right), Height: int(sp.RightEndY) - int(sp.RightStartY) + 1}
		if isect := monitor.Intersect(r); !isect.Empty() {
			acc.Right = isect.Width
		}
	}

	return acc
}

// fullStrut widens a plain _NET_WM_STRUT to span the whole root window.
func fullStrut(s *ewmh.WmStrut, rootWidth, rootHeight int) *ewmh.WmStrutPartial {
	return &ewmh.WmStrutPartial{
		Left:         s.Left,
		Right:        s.Right,
		Top:          s.Top,
		Bottom:       s.Bottom,
		LeftStartY:   0,
		LeftEndY:     uint(rootHeight - 1),
		RightStartY:  0,
		RightEndY:    uint(rootHeight - 1),
		TopStartX:    0,
		TopEndX:      uint(rootWidth - 1),
		BottomStartX: 0,
		BottomEndX:   uint(rootWidth - 1),
	}
}

// dockOverlay describes a dock window as an overlay anchored to the edge
// it reserves the most of. Docks position themselves, so the geometry is
// passed through.
func dockOverlay(strut geom.Strut, geometry geom.Rect, monitor geom.Rect) platform.OverlayInfo {
	info := platform.OverlayInfo{Geometry: geometry}
	best := 0
	for _, e := range []struct {
		edge platform.Edge
		size int
	}{
		{platform.EdgeTop, strut.Top},
		{platform.EdgeBottom, strut.Bottom},
		{platform.EdgeLeft, strut.Left},
		{platform.EdgeRight, strut.Right},
	} {
		if e.size > best {
			best = e.size
			info.Edge = e.edge
		}
	}
	if best > 0 {
		info.ExclusiveZone = best
		info.Size = best
		return info
	}

	// No strut: guess the edge from where the dock sits.
	info.Edge, info.Size = platform.EdgeTop, geometry.Height
	if geometry.Width < geometry.Height {
		info.Edge, info.Size = platform.EdgeLeft, geometry.Width
		if geometry.Center().X > monitor.Center().X {
			info.Edge = platform.EdgeRight
		}
	} else if geometry.Center().Y > monitor.Center().Y {
		info.Edge = platform.EdgeBottom
	}
	return info
}

// dockStrut reads the strut a dock reserves on monitor.
func (c *Connection) dockStrut(win xproto.Window, monitor geom.Rect) geom.Strut {
	root, err := c.windowGeometry(c.Root)
	if err != nil {
		return geom.Strut{}
	}
	if sp, err := ewmh.WmStrutPartialGet(c.XUtil, win); err == nil {
		return strutForMonitor(monitor, root.Width, root.Height, sp)
	}
	// Some docks only set _NET_WM_STRUT (no partial ranges).
	if s, err := ewmh.WmStrutGet(c.XUtil, win); err == nil {
		return strutForMonitor(monitor, root.Width, root.Height, fullStrut(s, root.Width, root.Height))
	}
	return geom.Strut{}
}
