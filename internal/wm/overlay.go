package wm

import (
	"github.com/1broseidon/tagwm/internal/geom"
	"github.com/1broseidon/tagwm/internal/platform"
)

// overlay is a panel or launcher surface anchored to a monitor edge. It is
// never part of the client registry.
type overlay struct {
	surface platform.Surface
	mon     MonitorID
	info    platform.OverlayInfo
	visible bool

	geometry geom.Rect
	applied  geom.Rect
	enabled  bool
}

// place anchors the overlay to its edge of area unless it positions itself.
func (o *overlay) place(area geom.Rect) {
	if !o.info.Geometry.Empty() {
		o.geometry = o.info.Geometry
		return
	}
	size := o.info.Size
	switch o.info.Edge {
	case platform.EdgeTop:
		o.geometry = geom.Rect{X: area.X, Y: area.Y, Width: area.Width, Height: size}
	case platform.EdgeBottom:
		o.geometry = geom.Rect{X: area.X, Y: area.Y + area.Height - size, Width: area.Width, Height: size}
	case platform.EdgeLeft:
		o.geometry = geom.Rect{X: area.X, Y: area.Y, Width: size, Height: area.Height}
	case platform.EdgeRight:
		o.geometry = geom.Rect{X: area.X + area.Width - size, Y: area.Y, Width: size, Height: area.Height}
	}
}

func (m *Manager) findOverlay(sid platform.SurfaceID) (int, *overlay) {
	for i, o := range m.overlays {
		if o.surface.ID() == sid {
			return i, o
		}
	}
	return -1, nil
}

// AddOverlay registers a visible overlay on mon. A zero mon places the
// overlay on the monitor under its geometry, or the selected monitor.
// Keyboard-interactive overlays take exclusive focus.
func (m *Manager) AddOverlay(mon MonitorID, s platform.Surface, info platform.OverlayInfo) {
	if _, o := m.findOverlay(s.ID()); o != nil {
		o.info = info
		m.markUsable(o.mon)
		return
	}
	if m.monitor(mon) == nil {
		mon = m.selmon
		if !info.Geometry.Empty() {
			if id, err := m.MonitorAt(info.Geometry.Center()); err == nil {
				mon = id
			}
		}
	}
	o := &overlay{surface: s, mon: mon, info: info, visible: true}
	m.overlays = append(m.overlays, o)
	m.markUsable(mon)
	if info.KeyboardInteractive {
		m.SetExclusiveFocus(s)
	}
}

// SetOverlayVisible shows or hides an overlay. Hidden overlays reserve
// nothing.
func (m *Manager) SetOverlayVisible(sid platform.SurfaceID, visible bool) {
	_, o := m.findOverlay(sid)
	if o == nil || o.visible == visible {
		return
	}
	o.visible = visible
	m.markUsable(o.mon)
	if !visible && m.exclusive == o.surface {
		m.ClearExclusiveFocus()
	}
}

// RemoveOverlay forgets an overlay.
func (m *Manager) RemoveOverlay(sid platform.SurfaceID) {
	i, o := m.findOverlay(sid)
	if o == nil {
		return
	}
	m.overlays = append(m.overlays[:i], m.overlays[i+1:]...)
	m.markUsable(o.mon)
	if m.exclusive == o.surface {
		m.ClearExclusiveFocus()
	}
}

func (m *Manager) markUsable(id MonitorID) {
	if mo := m.monitor(id); mo != nil {
		mo.needUsable = true
	}
}

// applyOverlays pushes overlay visibility and geometry to the scene.
func (m *Manager) applyOverlays() {
	for _, o := range m.overlays {
		enabled := o.visible && m.monitor(o.mon) != nil
		if enabled != o.enabled {
			m.scene.SetEnabled(o.surface, enabled)
			o.enabled = enabled
		}
		if !enabled || o.geometry == o.applied {
			continue
		}
		first := o.applied.Empty()
		if first || o.geometry.X != o.applied.X || o.geometry.Y != o.applied.Y {
			m.scene.SetPosition(o.surface, o.geometry.X, o.geometry.Y)
		}
		if first || o.geometry.Width != o.applied.Width || o.geometry.Height != o.applied.Height {
			if _, err := o.surface.RequestResize(o.geometry.Width, o.geometry.Height); err != nil {
				m.logger.Warn("overlay resize failed", "surface", o.surface.ID(), "error", err)
				continue
			}
		}
		o.applied = o.geometry
	}
}
