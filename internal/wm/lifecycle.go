package wm

import (
	"github.com/1broseidon/tagwm/internal/geom"
	"github.com/1broseidon/tagwm/internal/platform"
)

// Create registers a new surface as a pending client. Pending clients have
// no monitor and no tags and are never shown.
func (m *Manager) Create(s platform.Surface, info platform.SurfaceInfo) ClientID {
	if id, ok := m.bySurface[s.ID()]; ok {
		invariantf("Create", "surface %d is already managed as client %q", s.ID(), id)
	}
	c := &Client{
		surface:     s,
		state:       StatePending,
		appID:       info.AppID,
		title:       info.Title,
		wtype:       info.Type,
		geometry:    info.Geometry,
		borderWidth: m.settings.BorderWidth,
		fullscreen:  info.Fullscreen,
		urgent:      info.Urgent,
		floating:    floatingType(info.Type),
		banned:      true,
		borderDirty: true,
		tags:        make(map[TagID]struct{}),
	}
	if info.TransientFor != 0 {
		if parent, ok := m.bySurface[info.TransientFor]; ok {
			// The new client cannot be anyone's parent yet, so linking it
			// here can never close a cycle.
			c.transientFor = parent
			c.floating = true
		}
	}
	if c.fullscreen {
		c.prevGeometry = c.geometry
	}
	c.id = ClientID{m.clients.insert(c)}
	m.bySurface[s.ID()] = c.id
	m.logger.Debug("client created", "client", c.id, "app_id", c.appID, "type", c.wtype)
	return c.id
}

// Map makes a pending or unmapped client part of the managed set. A
// transient inherits its parent's monitor and tags; anything else goes to
// the monitor under the pointer with that monitor's selected tags. Hooks see
// the placement through Managed before the client is first shown.
func (m *Manager) Map(id ClientID) {
	c := m.mustClient("Map", id)
	if c.state == StateMapped {
		invariantf("Map", "client %q is already mapped", id)
	}

	ctx := ManageContext{
		Floating: c.floating,
		Geometry: c.geometry,
		Focus:    m.settings.FocusNewWindows,
	}
	if parent := m.client(c.transientFor); parent != nil && parent.state == StateMapped {
		ctx.Monitor = parent.mon
		for _, t := range m.tagOrder {
			if parent.hasTag(t) {
				ctx.Tags = append(ctx.Tags, t)
			}
		}
		ctx.Floating = true
	} else {
		ctx.Monitor = m.placementMonitor()
		ctx.Tags = m.selectedTags(ctx.Monitor)
	}

	m.hooks.Managed(m, id, &ctx)
	if c.state == StateDestroyed {
		// A hook destroyed the client.
		return
	}

	c.state = StateMapped
	c.floating = ctx.Floating
	if m.monitor(ctx.Monitor) != nil {
		c.mon = ctx.Monitor
	}
	var tags []TagID
	for _, t := range ctx.Tags {
		if m.tag(t) != nil {
			tags = append(tags, t)
		}
	}
	m.setTags(c, tags)

	if c.floating {
		c.geometry = m.initialFloatingGeometry(c, ctx.Geometry)
	}
	if c.fullscreen && c.prevGeometry.Empty() {
		c.prevGeometry = c.geometry
	}
	c.geometryDirty = true
	c.borderDirty = true
	m.order = append(m.order, id)
	m.stack = append(m.stack, id)
	m.markMonitor(c.mon)
	m.needVisibility = true
	m.needStacking = true
	if ctx.Focus {
		m.Focus(id, true)
	}
	m.logger.Debug("client mapped", "client", id, "monitor", c.mon, "tags", len(c.tags))
}

// placementMonitor picks the monitor for a new client: the one under the
// pointer, the configured default, or the selected monitor.
func (m *Manager) placementMonitor() MonitorID {
	if m.scene != nil {
		if p, ok := m.scene.Pointer(); ok {
			if id, err := m.MonitorAt(p); err == nil {
				return id
			}
		}
	}
	if name := m.settings.DefaultMonitor; name != "" {
		if id, err := m.MonitorByName(name); err == nil {
			return id
		}
	}
	return m.selmon
}

// initialFloatingGeometry keeps a requested geometry that overlaps the
// client's monitor and otherwise centers the client on the work area.
func (m *Manager) initialFloatingGeometry(c *Client, want geom.Rect) geom.Rect {
	mo := m.monitor(c.mon)
	if mo == nil {
		return want
	}
	if !want.Empty() && want.Intersects(mo.workarea) {
		return want
	}
	area := mo.workarea
	if parent := m.client(c.transientFor); parent != nil && !parent.geometry.Empty() {
		area = parent.geometry
	}
	w, h := want.Width, want.Height
	if w <= 0 || h <= 0 {
		w, h = mo.workarea.Width/2, mo.workarea.Height/2
	}
	center := area.Center()
	return geom.Rect{X: center.X - w/2, Y: center.Y - h/2, Width: w, Height: h}
}

// Unmap withdraws a mapped client: it leaves the stack and its tags, loses
// its monitor and is hidden at once. If it held focus, focus moves to the
// top visible client of the selected monitor. Unmapping a client that is
// not mapped does nothing.
func (m *Manager) Unmap(id ClientID, reason UnmanageReason) {
	c := m.client(id)
	if c == nil || c.state != StateMapped {
		return
	}
	wasFocused := m.focused == id

	m.order = removeID(m.order, id)
	m.stack = removeID(m.stack, id)
	m.history = removeID(m.history, id)
	if m.pendingFocus == id {
		m.pendingFocus = ClientID{}
	}
	if !c.banned {
		m.scene.SetEnabled(c.surface, false)
		c.banned = true
	}
	m.clearTags(c)
	m.markMonitor(c.mon)
	c.mon = MonitorID{}
	c.state = StateUnmapped
	c.pendingToken = 0
	c.sentSize = geom.Rect{}
	c.positioned = false
	m.needVisibility = true
	m.needStacking = true

	if wasFocused {
		m.focused = ClientID{}
		if next, ok := m.topVisible(m.selmon); ok {
			m.focus(next, false)
		} else {
			m.scene.SetKeyboardFocus(nil)
			m.hooks.FocusChanged(m, ClientID{})
		}
	}
	m.logger.Debug("client unmapped", "client", id, "reason", reason)
	m.hooks.Unmanaged(m, id, reason)
}

// Destroy finalizes a client. A client that is still mapped is unmapped
// first. Every reference to it is cleared immediately; its slot is released
// at the end of the next refresh. Destroying twice does nothing.
func (m *Manager) Destroy(id ClientID) {
	c := m.client(id)
	if c == nil || c.state == StateDestroyed {
		return
	}
	if c.state == StateMapped {
		reason := ReasonDestroyed
		if c.closeRequested {
			reason = ReasonUserClosed
		}
		m.Unmap(id, reason)
	}

	m.clients.each(func(_ ref, other *Client) {
		if other.transientFor == id {
			other.transientFor = ClientID{}
			m.needStacking = true
		}
	})
	m.clearTags(c)
	if m.pendingFocus == id {
		m.pendingFocus = ClientID{}
	}
	if m.focused == id {
		m.focused = ClientID{}
		m.focusFallback = true
	}
	m.stacking = removeID(m.stacking, id)
	delete(m.bySurface, c.surface.ID())
	c.state = StateDestroyed
	m.destroyQueue = append(m.destroyQueue, id)
	m.logger.Debug("client destroyed", "client", id)
}

// finalizeDestroyed releases the slots of destroyed clients. Their handles
// go stale from here on.
func (m *Manager) finalizeDestroyed() {
	for _, id := range m.destroyQueue {
		m.clients.remove(id.ref)
	}
	m.destroyQueue = m.destroyQueue[:0]
}

// Close asks client id to close. The destroy that follows is reported with
// ReasonUserClosed.
func (m *Manager) Close(id ClientID) error {
	c := m.mustClient("Close", id)
	c.closeRequested = true
	return c.surface.RequestClose()
}

// SetTitle records a new title.
func (m *Manager) SetTitle(id ClientID, title string) {
	c := m.mustClient("SetTitle", id)
	if c.title == title {
		return
	}
	c.title = title
	m.hooks.PropertyChanged(m, id, PropTitle)
}

// SetProperty sets a boolean client property and schedules whatever it
// affects. It returns false for unknown properties.
func (m *Manager) SetProperty(id ClientID, p Property, value bool) bool {
	c := m.mustClient("SetProperty", id)
	ptr, ok := c.flag(p)
	if !ok {
		return false
	}
	if *ptr == value {
		return true
	}

	switch p {
	case PropFullscreen:
		if value {
			c.prevGeometry = c.geometry
		} else if !c.prevGeometry.Empty() {
			m.setGeometry(c, c.prevGeometry)
		}
		c.borderDirty = true
	case PropMaximizedH, PropMaximizedV:
		if value && !c.maxH && !c.maxV && !c.fullscreen {
			c.prevGeometry = c.geometry
		}
	case PropUrgent:
		c.borderDirty = true
	}
	*ptr = value

	if (p == PropMaximizedH || p == PropMaximizedV) && !c.maxH && !c.maxV && c.floating && !c.prevGeometry.Empty() {
		m.setGeometry(c, c.prevGeometry)
	}

	switch p {
	case PropHidden, PropMinimized, PropSticky:
		m.needVisibility = true
		m.markMonitor(c.mon)
		m.unfocusIfHidden()
	case PropFullscreen, PropMaximizedH, PropMaximizedV, PropFloating:
		m.markMonitor(c.mon)
		m.needStacking = true
	case PropAbove, PropBelow, PropOnTop, PropModal:
		m.needStacking = true
	}
	m.hooks.PropertyChanged(m, id, p)
	return true
}

// Property returns the value of a boolean client property.
func (m *Manager) Property(id ClientID, p Property) (bool, bool) {
	c := m.client(id)
	if c == nil {
		return false, false
	}
	ptr, ok := c.flag(p)
	if !ok {
		return false, false
	}
	return *ptr, true
}
