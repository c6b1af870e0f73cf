package wm

// visible is the visibility predicate: a mapped client with a monitor that
// is neither hidden nor minimized, and that is sticky or shares a tag with
// the monitor's selection.
func (m *Manager) visible(c *Client) bool {
	if c.state != StateMapped || c.hidden || c.minimized {
		return false
	}
	if m.monitor(c.mon) == nil {
		return false
	}
	if c.sticky {
		return true
	}
	for t := range c.tags {
		tg := m.tag(t)
		if tg != nil && tg.mon == c.mon && tg.selected && tg.activated {
			return true
		}
	}
	return false
}

// Visible reports whether client id satisfies the visibility predicate. The
// banned state only catches up on the next refresh.
func (m *Manager) Visible(id ClientID) bool {
	c := m.client(id)
	return c != nil && m.visible(c)
}

// Banned reports whether client id is currently excluded from the scene.
func (m *Manager) Banned(id ClientID) bool {
	c := m.client(id)
	return c == nil || c.banned
}

// MarkVisibilityDirty schedules a visibility recomputation.
func (m *Manager) MarkVisibilityDirty() {
	m.needVisibility = true
}

// refreshVisibility brings every client's banned state in line with the
// predicate. Everything that should be shown is unbanned before anything
// is banned, so a tag switch never renders a frame with neither set shown.
func (m *Manager) refreshVisibility() {
	if !m.needVisibility {
		return
	}
	m.needVisibility = false

	m.clients.each(func(_ ref, c *Client) {
		if c.banned && m.visible(c) {
			m.unban(c)
		}
	})
	m.clients.each(func(_ ref, c *Client) {
		if !c.banned && !m.visible(c) {
			m.ban(c)
		}
	})
}

func (m *Manager) unban(c *Client) {
	m.scene.SetEnabled(c.surface, true)
	c.banned = false
	m.needStacking = true
}

// ban removes c from the scene, dropping focus first when c holds it.
func (m *Manager) ban(c *Client) {
	if m.focused == c.id {
		m.focus(ClientID{}, false)
		m.focusFallback = true
	}
	m.scene.SetEnabled(c.surface, false)
	c.banned = true
	m.needStacking = true
}
