package wm

import (
	"slices"

	"github.com/1broseidon/tagwm/internal/platform"
)

// Focus gives input focus to client id, or clears it when id is zero. With
// raise set the client is first moved to the top of the stack.
//
// Clients that are not yet on screen, and every request made while an
// overlay holds exclusive focus, are remembered and applied by the next
// refresh once they can take effect.
func (m *Manager) Focus(id ClientID, raise bool) {
	if !id.IsZero() {
		c := m.mustClient("Focus", id)
		if c.state != StateMapped {
			m.logger.Debug("ignoring focus of unmapped client", "client", id, "state", c.state)
			return
		}
		if m.exclusive != nil || c.banned {
			m.pendingFocus = id
			return
		}
	} else if m.exclusive != nil {
		m.pendingFocus = ClientID{}
		return
	}
	m.focus(id, raise)
}

func (m *Manager) focus(id ClientID, raise bool) {
	c := m.client(id)
	if c != nil && raise {
		m.raise(c)
	}
	m.pendingFocus = ClientID{}
	if id == m.focused {
		return
	}

	if prev := m.client(m.focused); prev != nil {
		prev.surface.ClosePopups()
		if err := prev.surface.RequestActivate(false); err != nil {
			m.logger.Warn("deactivate failed", "client", prev.id, "error", err)
		}
		prev.borderDirty = true
		m.hooks.PropertyChanged(m, prev.id, PropActive)
	}

	m.focused = id
	m.needStacking = true
	if c == nil {
		m.scene.SetKeyboardFocus(nil)
		m.hooks.FocusChanged(m, id)
		return
	}

	m.focusFallback = false
	if err := c.surface.RequestActivate(true); err != nil {
		m.logger.Warn("activate failed", "client", id, "error", err)
	}
	if c.urgent {
		c.urgent = false
		m.hooks.PropertyChanged(m, id, PropUrgent)
	}
	c.borderDirty = true
	m.history = append([]ClientID{id}, removeID(m.history, id)...)
	if !c.mon.IsZero() {
		m.selmon = c.mon
	}
	m.scene.SetKeyboardFocus(c.surface)
	m.hooks.PropertyChanged(m, id, PropActive)
	m.hooks.FocusChanged(m, id)
}

// raise moves c to the top of the stack.
func (m *Manager) raise(c *Client) {
	if n := len(m.stack); n > 0 && m.stack[n-1] == c.id {
		return
	}
	if !slices.Contains(m.stack, c.id) {
		return
	}
	m.stack = append(removeID(m.stack, c.id), c.id)
	m.needStacking = true
}

// Raise moves client id to the top of its layer without changing focus.
func (m *Manager) Raise(id ClientID) {
	m.raise(m.mustClient("Raise", id))
}

// FocusUnmanaged raises and focuses a surface outside the registry, such
// as a popup that explicitly asked for input. It bypasses exclusive focus.
func (m *Manager) FocusUnmanaged(s platform.Surface, raise bool) {
	if raise {
		m.scene.Raise(s)
	}
	m.scene.SetKeyboardFocus(s)
}

// SetExclusiveFocus hands keyboard focus to an overlay and suppresses
// ordinary focus changes until it is cleared.
func (m *Manager) SetExclusiveFocus(s platform.Surface) {
	if s == nil {
		m.ClearExclusiveFocus()
		return
	}
	m.exclusive = s
	m.scene.Raise(s)
	m.scene.SetKeyboardFocus(s)
}

// ClearExclusiveFocus gives keyboard focus back to the focused client, or to
// whatever focus was requested while the overlay held it.
func (m *Manager) ClearExclusiveFocus() {
	if m.exclusive == nil {
		return
	}
	m.exclusive = nil
	// The overlay surface may already be gone, so keyboard focus moves off
	// it now. A request made meanwhile is applied by the next refresh.
	if c := m.client(m.focused); c != nil && !c.banned {
		m.scene.SetKeyboardFocus(c.surface)
		return
	}
	m.scene.SetKeyboardFocus(nil)
	if m.pendingFocus.IsZero() {
		m.focusFallback = true
	}
}

// ExclusiveFocus returns the overlay holding exclusive focus, if any.
func (m *Manager) ExclusiveFocus() platform.Surface {
	return m.exclusive
}

// FocusStep moves focus by step through the visible clients of the selected
// monitor in registry order, wrapping around.
func (m *Manager) FocusStep(step int) {
	var ring []ClientID
	for _, id := range m.order {
		c := m.client(id)
		if c.mon == m.selmon && m.visible(c) {
			ring = append(ring, id)
		}
	}
	if len(ring) == 0 {
		return
	}
	i := slices.Index(ring, m.focused)
	if i < 0 {
		m.Focus(ring[0], true)
		return
	}
	n := len(ring)
	m.Focus(ring[((i+step)%n+n)%n], true)
}

// unfocusIfHidden drops focus from a client that is about to be banned, so
// no frame is ever produced with a focused window that is not shown.
func (m *Manager) unfocusIfHidden() {
	c := m.client(m.focused)
	if c == nil || m.visible(c) {
		return
	}
	m.focus(ClientID{}, false)
	m.focusFallback = true
}

// topVisible returns the highest visible client on mon in stacking order.
func (m *Manager) topVisible(mon MonitorID) (ClientID, bool) {
	order := m.stacking
	if len(order) == 0 {
		order = m.stack
	}
	for i := len(order) - 1; i >= 0; i-- {
		c := m.client(order[i])
		if c != nil && c.mon == mon && c.state == StateMapped && !c.banned {
			return c.id, true
		}
	}
	return ClientID{}, false
}

// refreshFocus applies a deferred focus request, or falls back to the top
// visible client of the selected monitor after focus was lost.
func (m *Manager) refreshFocus() {
	if m.exclusive != nil {
		return
	}
	if c := m.client(m.pendingFocus); c != nil && c.state == StateMapped && !c.banned {
		m.focus(c.id, true)
		return
	}
	if !m.pendingFocus.IsZero() {
		m.pendingFocus = ClientID{}
		if m.focused.IsZero() {
			m.focusFallback = true
		}
	}
	if !m.focusFallback {
		return
	}
	m.focusFallback = false
	if !m.focused.IsZero() {
		return
	}
	if id, ok := m.topVisible(m.selmon); ok {
		m.focus(id, false)
	}
}
