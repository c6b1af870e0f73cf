package wm

import (
	"github.com/1broseidon/tagwm/internal/geom"
	"github.com/1broseidon/tagwm/internal/platform"
)

// State is a client's lifecycle state.
type State int

const (
	StatePending State = iota
	StateMapped
	StateUnmapped
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateMapped:
		return "mapped"
	case StateUnmapped:
		return "unmapped"
	case StateDestroyed:
		return "destroyed"
	}
	return "unknown"
}

// Property names a mutable client attribute. Boolean properties can be set
// with SetProperty; the rest are reported through Hooks.PropertyChanged only.
type Property string

const (
	PropHidden      Property = "hidden"
	PropMinimized   Property = "minimized"
	PropFullscreen  Property = "fullscreen"
	PropMaximizedH  Property = "maximized_horizontal"
	PropMaximizedV  Property = "maximized_vertical"
	PropSticky      Property = "sticky"
	PropUrgent      Property = "urgent"
	PropAbove       Property = "above"
	PropBelow       Property = "below"
	PropOnTop       Property = "ontop"
	PropModal       Property = "modal"
	PropSkipTaskbar Property = "skip_taskbar"
	PropFloating    Property = "floating"

	PropTitle    Property = "title"
	PropGeometry Property = "geometry"
	PropMonitor  Property = "monitor"
	PropActive   Property = "active"
)

// BoolProperties lists the properties accepted by SetProperty.
var BoolProperties = []Property{
	PropHidden, PropMinimized, PropFullscreen, PropMaximizedH, PropMaximizedV,
	PropSticky, PropUrgent, PropAbove, PropBelow, PropOnTop, PropModal,
	PropSkipTaskbar, PropFloating,
}

// Client is one managed top-level surface. It is owned by the Manager's
// arena; everything else refers to it by ClientID.
type Client struct {
	id      ClientID
	surface platform.Surface
	state   State

	appID string
	title string
	wtype platform.WindowType

	geometry     geom.Rect
	prevGeometry geom.Rect
	borderWidth  int

	mon          MonitorID
	tags         map[TagID]struct{}
	transientFor ClientID

	hidden      bool
	minimized   bool
	fullscreen  bool
	maxH        bool
	maxV        bool
	sticky      bool
	urgent      bool
	above       bool
	below       bool
	ontop       bool
	modal       bool
	skipTaskbar bool
	floating    bool
	banned      bool

	// pendingToken is non-zero while a resize has not been acknowledged.
	pendingToken uint32
	// sentSize is the content size last requested from the surface.
	sentSize      geom.Rect
	placed        geom.Point
	positioned    bool
	geometryDirty bool
	borderDirty   bool

	closeRequested bool
}

func (c *Client) flag(p Property) (*bool, bool) {
	switch p {
	case PropHidden:
		return &c.hidden, true
	case PropMinimized:
		return &c.minimized, true
	case PropFullscreen:
		return &c.fullscreen, true
	case PropMaximizedH:
		return &c.maxH, true
	case PropMaximizedV:
		return &c.maxV, true
	case PropSticky:
		return &c.sticky, true
	case PropUrgent:
		return &c.urgent, true
	case PropAbove:
		return &c.above, true
	case PropBelow:
		return &c.below, true
	case PropOnTop:
		return &c.ontop, true
	case PropModal:
		return &c.modal, true
	case PropSkipTaskbar:
		return &c.skipTaskbar, true
	case PropFloating:
		return &c.floating, true
	}
	return nil, false
}

func (c *Client) hasTag(t TagID) bool {
	_, ok := c.tags[t]
	return ok
}

// floatingType reports whether windows of type t float by default.
func floatingType(t platform.WindowType) bool {
	switch t {
	case platform.TypeDialog, platform.TypeSplash, platform.TypeUtility,
		platform.TypeToolbar, platform.TypeMenu, platform.TypeNotification:
		return true
	}
	return false
}

// Layer is a Z-order band. Layers other than LayerIgnore are ordered bottom
// to top.
type Layer int

const (
	LayerIgnore Layer = iota
	LayerDesktop
	LayerBelow
	LayerNormal
	LayerAbove
	LayerFullscreen
	LayerOnTop

	numLayers
)

func (l Layer) String() string {
	switch l {
	case LayerIgnore:
		return "ignore"
	case LayerDesktop:
		return "desktop"
	case LayerBelow:
		return "below"
	case LayerNormal:
		return "normal"
	case LayerAbove:
		return "above"
	case LayerFullscreen:
		return "fullscreen"
	case LayerOnTop:
		return "ontop"
	}
	return "unknown"
}

// LayerInput holds everything layer classification depends on.
type LayerInput struct {
	Transient  bool
	OnTop      bool
	Fullscreen bool
	Focused    bool
	Above      bool
	Below      bool
	Type       platform.WindowType
}

// ClassifyLayer picks the layer for a window; the first matching rule wins.
// Fullscreen elevation only applies while the window holds focus.
func ClassifyLayer(in LayerInput) Layer {
	switch {
	case in.Transient:
		return LayerIgnore
	case in.OnTop:
		return LayerOnTop
	case in.Fullscreen && in.Focused:
		return LayerFullscreen
	case in.Above:
		return LayerAbove
	case in.Below:
		return LayerBelow
	case in.Type == platform.TypeDesktop:
		return LayerDesktop
	}
	return LayerNormal
}
