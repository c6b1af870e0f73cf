package wm

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/1broseidon/tagwm/internal/geom"
	"github.com/1broseidon/tagwm/internal/platform"
)

// Monitor is an attached output.
type Monitor struct {
	id     MonitorID
	output platform.Output
	name   string

	geometry geom.Rect
	workarea geom.Rect
	scale    float64
	enabled  bool
	asleep   bool

	prevSelected []TagID
	reservations map[string]geom.Strut

	needCommit  bool
	needUsable  bool
	needArrange bool
	suppressed  bool
}

func (m *Manager) monitor(id MonitorID) *Monitor {
	return m.monitors.get(id.ref)
}

func (m *Manager) mustMonitor(op string, id MonitorID) *Monitor {
	mo := m.monitor(id)
	if mo == nil {
		invariantf(op, "stale or unknown monitor %q", id)
	}
	return mo
}

// markMonitor schedules mon for re-arrangement. A zero or stale id is ignored.
func (m *Manager) markMonitor(id MonitorID) {
	if mo := m.monitor(id); mo != nil {
		mo.needArrange = true
	}
}

// LookupMonitor reports whether id names an attached monitor.
func (m *Manager) LookupMonitor(id MonitorID) error {
	if m.monitor(id) == nil {
		return ErrNoSuchMonitor
	}
	return nil
}

// MonitorByName finds an attached monitor by output name.
func (m *Manager) MonitorByName(name string) (MonitorID, error) {
	for _, id := range m.monOrder {
		if m.monitor(id).name == name {
			return id, nil
		}
	}
	return MonitorID{}, fmt.Errorf("%w: %q", ErrNoSuchMonitor, name)
}

// MonitorByOutput finds the monitor attached for out.
func (m *Manager) MonitorByOutput(out platform.Output) (MonitorID, bool) {
	for _, id := range m.monOrder {
		if m.monitor(id).output == out {
			return id, true
		}
	}
	return MonitorID{}, false
}

// MonitorIDs returns attached monitors in attach order.
func (m *Manager) MonitorIDs() []MonitorID {
	return slices.Clone(m.monOrder)
}

// SelectedMonitor returns the monitor receiving new clients and commands
// that do not name one.
func (m *Manager) SelectedMonitor() MonitorID {
	return m.selmon
}

// SelectMonitor makes mon the selected monitor.
func (m *Manager) SelectMonitor(mon MonitorID) {
	m.mustMonitor("SelectMonitor", mon)
	if m.selmon == mon {
		return
	}
	m.selmon = mon
	if c := m.client(m.focused); c != nil && c.mon != mon {
		m.focus(ClientID{}, false)
		m.focusFallback = true
	}
}

// Attach adds a monitor for out. The monitor is placed at its configured
// position, or to the right of every existing monitor.
func (m *Manager) Attach(out platform.Output) (MonitorID, error) {
	name := out.Name()
	if _, ok := m.MonitorByOutput(out); ok {
		invariantf("Attach", "output %q is already attached", name)
	}
	mode, err := out.PreferredMode()
	if err != nil {
		return MonitorID{}, fmt.Errorf("attach %s: %w", name, err)
	}

	scale := 1.0
	var x, y int
	if p, ok := m.settings.Placements[name]; ok {
		x, y = p.X, p.Y
		if p.Scale > 0 {
			scale = p.Scale
		}
	} else {
		for _, id := range m.monOrder {
			g := m.monitor(id).geometry
			x = max(x, g.X+g.Width)
		}
	}
	bounds := geom.Rect{
		X:      x,
		Y:      y,
		Width:  int(math.Round(float64(mode.Width) / scale)),
		Height: int(math.Round(float64(mode.Height) / scale)),
	}

	mo := &Monitor{
		output:       out,
		name:         name,
		geometry:     bounds,
		workarea:     bounds,
		scale:        scale,
		enabled:      true,
		reservations: make(map[string]geom.Strut),
		needCommit:   true,
		needUsable:   true,
		needArrange:  true,
	}
	mo.id = MonitorID{m.monitors.insert(mo)}
	m.monOrder = append(m.monOrder, mo.id)
	if m.selmon.IsZero() {
		m.selmon = mo.id
	}
	m.commit(mo)
	m.logger.Info("monitor attached", "monitor", name, "geometry", bounds, "scale", scale)

	m.hooks.ScreenAdded(m, mo.id)

	// Adopt clients that were left without a monitor.
	m.clients.each(func(_ ref, c *Client) {
		if c.state != StateMapped || !c.mon.IsZero() {
			return
		}
		m.setMonitor(c, mo.id)
	})
	m.needVisibility = true
	m.needStacking = true
	return mo.id, nil
}

// Detach removes a monitor. Its clients move to the nearest surviving
// monitor, or are left without one when none survives.
func (m *Manager) Detach(id MonitorID) error {
	mo := m.monitor(id)
	if mo == nil {
		return ErrNoSuchMonitor
	}
	survivors := slices.DeleteFunc(slices.Clone(m.monOrder), func(o MonitorID) bool { return o == id })

	m.clients.each(func(_ ref, c *Client) {
		if c.mon != id {
			return
		}
		target := m.nearestMonitor(survivors, c.geometry.Center())
		if target.IsZero() {
			c.mon = MonitorID{}
			m.hooks.PropertyChanged(m, c.id, PropMonitor)
			return
		}
		m.setMonitor(c, target)
	})
	for _, o := range m.overlays {
		if o.mon == id {
			o.mon = MonitorID{}
		}
	}

	m.hooks.ScreenRemoved(m, id)

	for _, t := range m.TagsOf(id) {
		m.tag(t).mon = MonitorID{}
	}
	m.monitors.remove(id.ref)
	m.monOrder = removeID(m.monOrder, id)
	if m.selmon == id {
		m.selmon = MonitorID{}
		if len(m.monOrder) > 0 {
			m.selmon = m.monOrder[0]
		}
	}
	m.logger.Info("monitor detached", "monitor", mo.name)

	m.needVisibility = true
	m.needStacking = true
	m.unfocusIfHidden()
	return nil
}

// nearestMonitor returns the candidate containing p, else the one whose
// center is closest to p.
func (m *Manager) nearestMonitor(candidates []MonitorID, p geom.Point) MonitorID {
	var best MonitorID
	bestDist := math.Inf(1)
	for _, id := range candidates {
		g := m.monitor(id).geometry
		if g.Contains(p) {
			return id
		}
		if d := geom.Distance(g.Center(), p); d < bestDist {
			best, bestDist = id, d
		}
	}
	return best
}

// MonitorAt returns the monitor containing p, else the nearest one.
func (m *Manager) MonitorAt(p geom.Point) (MonitorID, error) {
	id := m.nearestMonitor(m.monOrder, p)
	if id.IsZero() {
		return MonitorID{}, ErrNoMonitor
	}
	return id, nil
}

// MoveToMonitor moves client id to mon and retags it with mon's selected tags.
func (m *Manager) MoveToMonitor(id ClientID, mon MonitorID) {
	c := m.mustClient("MoveToMonitor", id)
	m.mustMonitor("MoveToMonitor", mon)
	if c.mon == mon {
		return
	}
	m.setMonitor(c, mon)
	m.setTags(c, m.selectedTags(mon))
	m.unfocusIfHidden()
}

// setMonitor reassigns c to mon. Clients that share no tag with mon's
// selection are retagged so they stay visible.
func (m *Manager) setMonitor(c *Client, mon MonitorID) {
	old := c.mon
	if old == mon {
		return
	}
	target := m.monitor(mon)
	if from := m.monitor(old); from != nil && target != nil && c.floating {
		// Keep the same offset relative to the work area.
		c.geometry.X += target.workarea.X - from.workarea.X
		c.geometry.Y += target.workarea.Y - from.workarea.Y
		c.geometryDirty = true
	}
	c.mon = mon
	m.markMonitor(old)
	m.markMonitor(mon)
	m.needVisibility = true
	m.needStacking = true
	if target != nil {
		sel := m.selectedTags(mon)
		overlap := false
		for _, t := range sel {
			if c.hasTag(t) {
				overlap = true
				break
			}
		}
		if !overlap && len(sel) > 0 {
			m.setTags(c, sel)
		}
	}
	m.hooks.PropertyChanged(m, c.id, PropMonitor)
}

// UpdateOutputMode applies a new mode to the monitor attached for out.
func (m *Manager) UpdateOutputMode(out platform.Output, mode platform.Mode) {
	id, ok := m.MonitorByOutput(out)
	if !ok {
		return
	}
	mo := m.monitor(id)
	g := mo.geometry
	g.Width = int(math.Round(float64(mode.Width) / mo.scale))
	g.Height = int(math.Round(float64(mode.Height) / mo.scale))
	m.setMonitorGeometry(mo, g)
}

// UpdateOutputLayout moves the monitor attached for out to bounds.
func (m *Manager) UpdateOutputLayout(out platform.Output, bounds geom.Rect) {
	id, ok := m.MonitorByOutput(out)
	if !ok {
		return
	}
	m.setMonitorGeometry(m.monitor(id), bounds)
}

func (m *Manager) setMonitorGeometry(mo *Monitor, g geom.Rect) {
	if mo.geometry == g {
		return
	}
	mo.geometry = g
	mo.needCommit = true
	mo.needUsable = true
	mo.needArrange = true
}

// SetMonitorAsleep marks a monitor as powered down. Asleep monitors keep
// their clients but are not arranged.
func (m *Manager) SetMonitorAsleep(id MonitorID, asleep bool) {
	mo := m.mustMonitor("SetMonitorAsleep", id)
	if mo.asleep == asleep {
		return
	}
	mo.asleep = asleep
	mo.needArrange = !asleep
}

// SetReservation declares an extension-layer strip reserved on mon under key.
func (m *Manager) SetReservation(id MonitorID, key string, s geom.Strut) {
	mo := m.mustMonitor("SetReservation", id)
	if cur, ok := mo.reservations[key]; ok && cur == s {
		return
	}
	mo.reservations[key] = s
	mo.needUsable = true
}

// ClearReservation removes the reservation stored under key.
func (m *Manager) ClearReservation(id MonitorID, key string) {
	mo := m.monitor(id)
	if mo == nil {
		return
	}
	if _, ok := mo.reservations[key]; !ok {
		return
	}
	delete(mo.reservations, key)
	mo.needUsable = true
}

func (m *Manager) commit(mo *Monitor) {
	if err := mo.output.Commit(mo.geometry, mo.scale); err != nil {
		m.logger.Warn("output commit failed, will retry", "monitor", mo.name, "error", err)
		return
	}
	mo.needCommit = false
}

// recomputeUsableArea lays out the monitor's overlays against its edges,
// then subtracts extension reservations in key order. Only a change of the
// resulting work area triggers a re-arrange.
func (m *Manager) recomputeUsableArea(mo *Monitor) {
	mo.needUsable = false
	area := mo.geometry
	for _, o := range m.overlays {
		if o.mon != mo.id || !o.visible {
			continue
		}
		o.place(area)
		if o.info.ExclusiveZone > 0 {
			area = area.Shrink(edgeStrut(o.info.Edge, o.info.ExclusiveZone))
		}
	}
	keys := make([]string, 0, len(mo.reservations))
	for k := range mo.reservations {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		area = area.Shrink(mo.reservations[k])
	}
	if area == mo.workarea {
		return
	}
	mo.workarea = area
	mo.needArrange = true
	m.logger.Debug("work area changed", "monitor", mo.name, "workarea", area)
	m.hooks.WorkAreaChanged(m, mo.id, area)
}

func edgeStrut(e platform.Edge, n int) geom.Strut {
	switch e {
	case platform.EdgeTop:
		return geom.Strut{Top: n}
	case platform.EdgeBottom:
		return geom.Strut{Bottom: n}
	case platform.EdgeLeft:
		return geom.Strut{Left: n}
	case platform.EdgeRight:
		return geom.Strut{Right: n}
	}
	return geom.Strut{}
}
