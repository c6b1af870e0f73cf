package wm

import (
	"github.com/1broseidon/tagwm/internal/geom"
	"github.com/1broseidon/tagwm/internal/layout"
)

// Arrange schedules mon for re-arrangement on the next refresh.
func (m *Manager) Arrange(mon MonitorID) {
	m.markMonitor(mon)
}

// tiled reports whether c takes part in its monitor's layout.
func (m *Manager) tiled(c *Client) bool {
	if c.floating || c.fullscreen || (c.maxH && c.maxV) || !m.visible(c) {
		return false
	}
	parent := m.client(c.transientFor)
	return parent == nil || parent.state != StateMapped
}

// layoutFor returns the strategy and parameters of mon's first selected tag.
func (m *Manager) layoutFor(mon MonitorID) (layout.Strategy, layout.Params) {
	name := m.settings.DefaultLayout
	p := layout.Params{
		MasterFactor: m.settings.MasterFactor,
		MasterCount:  m.settings.MasterCount,
		Gap:          m.settings.Gap,
	}
	if sel := m.selectedTags(mon); len(sel) > 0 {
		t := m.tag(sel[0])
		name = t.layout
		p.MasterFactor = t.masterFactor
		p.MasterCount = t.masterCount
	}
	s, err := layout.Lookup(name)
	if err != nil {
		m.logger.Warn("unknown layout, using tile", "layout", name, "error", err)
		s = layout.Tile{}
	}
	return s, p
}

// arrange computes target geometry for every visible client on mo. Floating
// clients keep their geometry; fullscreen clients cover the monitor and
// maximized clients cover the work area.
func (m *Manager) arrange(mo *Monitor) {
	mo.needArrange = false
	if mo.asleep {
		return
	}

	var tiled []*Client
	for _, id := range m.order {
		c := m.client(id)
		if c.mon != mo.id || !m.visible(c) {
			continue
		}
		switch {
		case c.fullscreen:
			m.setGeometry(c, mo.geometry)
		case c.maxH && c.maxV:
			m.setGeometry(c, geom.Rect{
				X:      mo.workarea.X,
				Y:      mo.workarea.Y,
				Width:  max(mo.workarea.Width-2*c.borderWidth, 1),
				Height: max(mo.workarea.Height-2*c.borderWidth, 1),
			})
		case (c.maxH || c.maxV) && c.floating:
			g := c.geometry
			if c.maxH {
				g.X, g.Width = mo.workarea.X, max(mo.workarea.Width-2*c.borderWidth, 1)
			}
			if c.maxV {
				g.Y, g.Height = mo.workarea.Y, max(mo.workarea.Height-2*c.borderWidth, 1)
			}
			m.setGeometry(c, g)
		default:
			if m.tiled(c) {
				tiled = append(tiled, c)
			}
		}
	}

	strategy, params := m.layoutFor(mo.id)
	slots, err := strategy.Arrange(mo.workarea, len(tiled), params)
	if err != nil {
		m.logger.Warn("layout failed", "monitor", mo.name, "layout", strategy.Name(), "clients", len(tiled), "error", err)
		return
	}
	if slots == nil {
		return
	}
	for i, c := range tiled {
		bw := c.borderWidth
		m.setGeometry(c, geom.Rect{
			X:      slots[i].X,
			Y:      slots[i].Y,
			Width:  max(slots[i].Width-2*bw, 1),
			Height: max(slots[i].Height-2*bw, 1),
		})
	}
}

func (m *Manager) setGeometry(c *Client, g geom.Rect) {
	if c.geometry == g {
		return
	}
	c.geometry = g
	c.geometryDirty = true
	m.hooks.PropertyChanged(m, c.id, PropGeometry)
}

// SetGeometry moves a floating client. Tiled clients are placed by their
// layout and ignore the request.
func (m *Manager) SetGeometry(id ClientID, g geom.Rect) {
	c := m.mustClient("SetGeometry", id)
	if c.state == StateMapped && !c.floating {
		if strategy, _ := m.layoutFor(c.mon); strategy.Name() != layout.NameFloating {
			return
		}
	}
	if g.Width <= 0 || g.Height <= 0 {
		return
	}
	m.setGeometry(c, g)
}

// applyGeometry pushes dirty client geometry to the scene and the surfaces.
// Position changes apply at once. A size change waits while the client still
// owes an acknowledgement for the previous one, so no two resize requests
// overlap; failed requests stay dirty and are retried next refresh.
func (m *Manager) applyGeometry() {
	for _, id := range m.order {
		c := m.client(id)
		if !c.geometryDirty {
			continue
		}
		pos := geom.Point{X: c.geometry.X, Y: c.geometry.Y}
		if !c.positioned || pos != c.placed {
			m.scene.SetPosition(c.surface, pos.X, pos.Y)
			c.placed = pos
			c.positioned = true
		}
		if c.geometry.Width == c.sentSize.Width && c.geometry.Height == c.sentSize.Height {
			c.geometryDirty = false
			continue
		}
		if c.pendingToken != 0 {
			continue
		}
		token, err := c.surface.RequestResize(c.geometry.Width, c.geometry.Height)
		if err != nil {
			m.logger.Warn("resize request failed, will retry", "client", id, "error", err)
			continue
		}
		c.sentSize = geom.Rect{Width: c.geometry.Width, Height: c.geometry.Height}
		c.pendingToken = token
		c.geometryDirty = false
	}
}

// AckResize records that client id committed the resize identified by
// token. A stale token is ignored.
func (m *Manager) AckResize(id ClientID, token uint32) {
	c := m.client(id)
	if c == nil || token == 0 || c.pendingToken != token {
		return
	}
	c.pendingToken = 0
	if c.sentSize.Width != c.geometry.Width || c.sentSize.Height != c.geometry.Height {
		c.geometryDirty = true
	}
}

// applyBorders pushes border width and color for clients whose active or
// urgent state changed.
func (m *Manager) applyBorders() {
	for _, id := range m.order {
		c := m.client(id)
		if !c.borderDirty {
			continue
		}
		c.borderDirty = false
		width := c.borderWidth
		if c.fullscreen {
			width = 0
		}
		color := m.settings.BorderColorNormal
		switch {
		case m.focused == id:
			color = m.settings.BorderColorFocused
		case c.urgent:
			color = m.settings.BorderColorUrgent
		}
		m.scene.SetBorder(c.surface, width, color)
	}
}

// updateSuppression turns off background rendering of monitors covered by a
// shown client in the fullscreen layer. Only the focused client can be in
// that layer, so at most one client per monitor qualifies.
func (m *Manager) updateSuppression() {
	for _, id := range m.monOrder {
		mo := m.monitor(id)
		suppress := false
		if c := m.client(m.focused); c != nil && c.mon == id && !c.banned {
			suppress = m.layerOf(c) == LayerFullscreen
		}
		if suppress != mo.suppressed {
			mo.suppressed = suppress
			m.scene.SetBackgroundSuppressed(mo.output, suppress)
		}
	}
}
