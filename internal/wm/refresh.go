package wm

// Refresh applies every deferred mutation in a fixed order. It must run
// before the event loop blocks. A call made while a refresh is already in
// progress, for example from a hook, returns immediately.
//
// Each step relies on the ones before it: arrangement needs the current work
// area, stacking needs up-to-date visibility, and focus fallback needs the
// final stacking order.
func (m *Manager) Refresh() {
	if m.refreshing {
		return
	}
	m.refreshing = true
	defer func() { m.refreshing = false }()

	m.hooks.RefreshTick(m)
	m.refreshMonitors()
	m.refreshGeometry()
	m.applyBorders()
	// Hooks fired by a focus change may retag, hide or show clients, so
	// steps 3 to 7 repeat until visibility settles.
	for pass := range maxSettlePasses {
		if pass > 0 {
			m.refreshGeometry()
			m.applyBorders()
		}
		m.refreshVisibility()
		m.refreshStacking()
		m.refreshFocus()
		if !m.needVisibility {
			break
		}
	}
	// A focus change can raise a client or change fullscreen elevation.
	m.refreshStacking()
	m.applyBorders()
	m.finalizeDestroyed()
}

// maxSettlePasses bounds the visibility/stacking/focus repeat in Refresh. A
// hook that keeps toggling visibility from focus notifications is left for
// the next refresh.
const maxSettlePasses = 4

// refreshMonitors retries failed output commits, places overlays and
// recomputes work areas. A monitor detached by a hook mid-pass is skipped.
func (m *Manager) refreshMonitors() {
	for _, id := range m.MonitorIDs() {
		mo := m.monitor(id)
		if mo == nil {
			continue
		}
		if mo.needCommit {
			m.commit(mo)
		}
		if mo.needUsable {
			m.recomputeUsableArea(mo)
		}
	}
	m.applyOverlays()
}

// refreshGeometry arranges dirty monitors and applies client geometry. A
// monitor detached by a hook mid-pass is skipped.
func (m *Manager) refreshGeometry() {
	for _, id := range m.MonitorIDs() {
		mo := m.monitor(id)
		if mo == nil || !mo.needArrange {
			continue
		}
		m.arrange(mo)
	}
	m.applyGeometry()
}
