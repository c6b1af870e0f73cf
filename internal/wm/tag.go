package wm

import (
	"fmt"
	"maps"
	"slices"

	"github.com/1broseidon/tagwm/internal/layout"
)

// Tag is a named workspace. A client may belong to several tags; a monitor
// shows the clients of its selected tags.
type Tag struct {
	id        TagID
	name      string
	mon       MonitorID
	selected  bool
	activated bool

	layout       string
	masterFactor float64
	masterCount  int

	clients map[ClientID]struct{}
}

func (m *Manager) tag(id TagID) *Tag {
	return m.tags.get(id.ref)
}

func (m *Manager) mustTag(op string, id TagID) *Tag {
	t := m.tag(id)
	if t == nil {
		invariantf(op, "stale or unknown tag %q", id)
	}
	return t
}

// AddTag creates an activated, unselected tag owned by mon.
func (m *Manager) AddTag(mon MonitorID, name string) TagID {
	t := &Tag{
		name:         name,
		mon:          mon,
		activated:    true,
		layout:       m.settings.DefaultLayout,
		masterFactor: m.settings.MasterFactor,
		masterCount:  m.settings.MasterCount,
		clients:      make(map[ClientID]struct{}),
	}
	if t.layout == "" {
		t.layout = layout.NameTile
	}
	t.id = TagID{m.tags.insert(t)}
	m.tagOrder = append(m.tagOrder, t.id)
	return t.id
}

// RemoveTag deletes a tag. Its clients move to the first selected tag of the
// tag's monitor when they would otherwise be left without any tag.
func (m *Manager) RemoveTag(id TagID) {
	t := m.tag(id)
	if t == nil {
		return
	}
	fallback := TagID{}
	for _, sel := range m.selectedTags(t.mon) {
		if sel != id {
			fallback = sel
			break
		}
	}
	for _, cid := range slices.Collect(maps.Keys(t.clients)) {
		m.leave(cid, id)
		c := m.client(cid)
		if len(c.tags) == 0 && !fallback.IsZero() && c.mon == t.mon {
			m.join(cid, fallback)
		}
	}
	m.tags.remove(id.ref)
	m.tagOrder = removeID(m.tagOrder, id)
	m.markMonitor(t.mon)
	m.needVisibility = true
}

// TagByName finds a tag of mon by name. A zero mon matches any monitor.
func (m *Manager) TagByName(mon MonitorID, name string) (TagID, error) {
	for _, id := range m.tagOrder {
		t := m.tag(id)
		if t.name == name && (mon.IsZero() || t.mon == mon) {
			return id, nil
		}
	}
	return TagID{}, fmt.Errorf("%w: %q", ErrNoSuchTag, name)
}

// LookupTag reports whether id names a live tag.
func (m *Manager) LookupTag(id TagID) error {
	if m.tag(id) == nil {
		return ErrNoSuchTag
	}
	return nil
}

// TagsOf returns the tags owned by mon in creation order.
func (m *Manager) TagsOf(mon MonitorID) []TagID {
	var out []TagID
	for _, id := range m.tagOrder {
		if m.tag(id).mon == mon {
			out = append(out, id)
		}
	}
	return out
}

// selectedTags returns the selected, activated tags of mon in creation order.
func (m *Manager) selectedTags(mon MonitorID) []TagID {
	if mon.IsZero() {
		return nil
	}
	var out []TagID
	for _, id := range m.tagOrder {
		t := m.tag(id)
		if t.mon == mon && t.selected && t.activated {
			out = append(out, id)
		}
	}
	return out
}

// SelectedTags returns the tags currently shown on mon.
func (m *Manager) SelectedTags(mon MonitorID) []TagID {
	return m.selectedTags(mon)
}

// SetTagActivated adds or removes a tag from the global tag set without
// deleting it.
func (m *Manager) SetTagActivated(id TagID, activated bool) {
	t := m.mustTag("SetTagActivated", id)
	if t.activated == activated {
		return
	}
	t.activated = activated
	m.tagSelectionChanged(t.mon)
}

// ViewTag selects exactly the given tags on mon. Every tag must belong to mon.
// An empty list is ignored; a monitor always shows at least one tag.
func (m *Manager) ViewTag(mon MonitorID, tags ...TagID) {
	mo := m.mustMonitor("ViewTag", mon)
	for _, id := range tags {
		if t := m.mustTag("ViewTag", id); t.mon != mon {
			invariantf("ViewTag", "tag %q does not belong to monitor %q", id, mon)
		}
	}
	if len(tags) == 0 {
		return
	}
	current := m.selectedTags(mon)
	owned := m.TagsOf(mon)
	want := slices.DeleteFunc(slices.Clone(owned), func(id TagID) bool {
		return !slices.Contains(tags, id)
	})
	if slices.Equal(current, want) {
		return
	}
	mo.prevSelected = current
	for _, id := range owned {
		m.tag(id).selected = slices.Contains(want, id)
	}
	m.tagSelectionChanged(mon)
}

// ToggleTagView adds or removes a tag from its monitor's selection.
func (m *Manager) ToggleTagView(id TagID) {
	t := m.mustTag("ToggleTagView", id)
	mo := m.monitor(t.mon)
	if mo == nil {
		t.selected = !t.selected
		m.tagSelectionChanged(t.mon)
		return
	}
	current := m.selectedTags(t.mon)
	if len(current) == 1 && current[0] == id {
		// A monitor always shows at least one tag.
		return
	}
	mo.prevSelected = current
	t.selected = !t.selected
	m.tagSelectionChanged(t.mon)
}

// ViewPrevious restores the selection mon had before its last change.
func (m *Manager) ViewPrevious(mon MonitorID) {
	mo := m.mustMonitor("ViewPrevious", mon)
	prev := slices.DeleteFunc(slices.Clone(mo.prevSelected), func(id TagID) bool {
		t := m.tag(id)
		return t == nil || t.mon != mon
	})
	if len(prev) == 0 {
		return
	}
	m.ViewTag(mon, prev...)
}

func (m *Manager) tagSelectionChanged(mon MonitorID) {
	m.markMonitor(mon)
	m.needVisibility = true
	m.needStacking = true
	m.unfocusIfHidden()
	if m.focused.IsZero() {
		m.focusFallback = true
	}
}

// Tag adds client id to tag t.
func (m *Manager) Tag(id ClientID, t TagID) {
	m.mustClient("Tag", id)
	m.mustTag("Tag", t)
	m.join(id, t)
	m.unfocusIfHidden()
}

// Untag removes client id from tag t.
func (m *Manager) Untag(id ClientID, t TagID) {
	m.mustClient("Untag", id)
	m.mustTag("Untag", t)
	m.leave(id, t)
	m.unfocusIfHidden()
}

// ToggleClientTag flips client id's membership of tag t.
func (m *Manager) ToggleClientTag(id ClientID, t TagID) {
	c := m.mustClient("ToggleClientTag", id)
	m.mustTag("ToggleClientTag", t)
	if c.hasTag(t) {
		m.leave(id, t)
	} else {
		m.join(id, t)
	}
	m.unfocusIfHidden()
}

// SetClientTags replaces the tag set of client id.
func (m *Manager) SetClientTags(id ClientID, tags []TagID) {
	c := m.mustClient("SetClientTags", id)
	for _, t := range tags {
		m.mustTag("SetClientTags", t)
	}
	m.setTags(c, tags)
	m.unfocusIfHidden()
}

// MoveToTag makes t the only tag of client id, moving the client to t's
// monitor when it lives elsewhere.
func (m *Manager) MoveToTag(id ClientID, t TagID) {
	c := m.mustClient("MoveToTag", id)
	tg := m.mustTag("MoveToTag", t)
	if !tg.mon.IsZero() && c.mon != tg.mon && c.state == StateMapped {
		m.setMonitor(c, tg.mon)
	}
	m.setTags(c, []TagID{t})
	m.unfocusIfHidden()
}

func (m *Manager) setTags(c *Client, tags []TagID) {
	for _, old := range slices.Collect(maps.Keys(c.tags)) {
		if !slices.Contains(tags, old) {
			m.leave(c.id, old)
		}
	}
	for _, t := range tags {
		m.join(c.id, t)
	}
}

func (m *Manager) join(id ClientID, t TagID) {
	c, tg := m.client(id), m.tag(t)
	if c.hasTag(t) {
		return
	}
	if c.tags == nil {
		c.tags = make(map[TagID]struct{})
	}
	c.tags[t] = struct{}{}
	tg.clients[id] = struct{}{}
	m.markMonitor(c.mon)
	m.markMonitor(tg.mon)
	m.needVisibility = true
	m.hooks.TagChanged(m, t, id, true)
}

func (m *Manager) leave(id ClientID, t TagID) {
	c, tg := m.client(id), m.tag(t)
	if !c.hasTag(t) {
		return
	}
	delete(c.tags, t)
	delete(tg.clients, id)
	m.markMonitor(c.mon)
	m.markMonitor(tg.mon)
	m.needVisibility = true
	m.hooks.TagChanged(m, t, id, false)
}

func (m *Manager) clearTags(c *Client) {
	for _, t := range slices.Collect(maps.Keys(c.tags)) {
		m.leave(c.id, t)
	}
}

// SetTagLayout switches the layout strategy of tag t.
func (m *Manager) SetTagLayout(t TagID, name string) error {
	tg := m.mustTag("SetTagLayout", t)
	if _, err := layout.Lookup(name); err != nil {
		return err
	}
	if tg.layout != name {
		tg.layout = name
		m.markMonitor(tg.mon)
	}
	return nil
}

// SetMasterFactor sets the master area fraction of tag t, clamped to
// [0.05, 0.95].
func (m *Manager) SetMasterFactor(t TagID, f float64) {
	tg := m.mustTag("SetMasterFactor", t)
	f = min(max(f, 0.05), 0.95)
	if tg.masterFactor != f {
		tg.masterFactor = f
		m.markMonitor(tg.mon)
	}
}

// SetMasterCount sets the number of master windows of tag t.
func (m *Manager) SetMasterCount(t TagID, n int) {
	tg := m.mustTag("SetMasterCount", t)
	n = max(n, 0)
	if tg.masterCount != n {
		tg.masterCount = n
		m.markMonitor(tg.mon)
	}
}
