package wm

import (
	"slices"

	"github.com/1broseidon/tagwm/internal/platform"
)

// MarkStackingDirty schedules a restack.
func (m *Manager) MarkStackingDirty() {
	m.needStacking = true
}

// layerOf classifies c. A client counts as transient only while its parent
// is mapped; otherwise it would never be placed.
func (m *Manager) layerOf(c *Client) Layer {
	parent := m.client(c.transientFor)
	return ClassifyLayer(LayerInput{
		Transient:  parent != nil && parent.state == StateMapped,
		OnTop:      c.ontop,
		Fullscreen: c.fullscreen,
		Focused:    m.focused == c.id,
		Above:      c.above,
		Below:      c.below,
		Type:       c.wtype,
	})
}

// computeStacking returns mapped clients bottom to top. Within a layer the
// stack order is kept, and every transient follows its parent directly,
// depth first.
func (m *Manager) computeStacking() []ClientID {
	var layers [numLayers][]ClientID
	children := make(map[ClientID][]ClientID)
	for _, id := range m.stack {
		c := m.client(id)
		if !c.transientFor.IsZero() {
			children[c.transientFor] = append(children[c.transientFor], id)
		}
	}

	var place func(l Layer, id ClientID)
	place = func(l Layer, id ClientID) {
		layers[l] = append(layers[l], id)
		for _, child := range children[id] {
			place(l, child)
		}
	}
	for _, id := range m.stack {
		c := m.client(id)
		l := m.layerOf(c)
		if l == LayerIgnore {
			continue
		}
		place(l, id)
	}

	out := make([]ClientID, 0, len(m.stack))
	for l := LayerDesktop; l < numLayers; l++ {
		out = append(out, layers[l]...)
	}
	return out
}

// refreshStacking recomputes Z-order and pushes it to the scene when it
// changed.
func (m *Manager) refreshStacking() {
	if !m.needStacking {
		return
	}
	m.needStacking = false

	order := m.computeStacking()
	if !slices.Equal(order, m.stacking) {
		m.stacking = order
		surfaces := make([]platform.Surface, len(order))
		for i, id := range order {
			surfaces[i] = m.client(id).surface
		}
		m.scene.Restack(surfaces)
	}
	m.updateSuppression()
}

// StackingOrder returns mapped clients bottom to top as last applied.
func (m *Manager) StackingOrder() []ClientID {
	return slices.Clone(m.stacking)
}
