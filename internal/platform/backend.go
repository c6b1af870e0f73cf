package platform

import (
	"context"

	"github.com/1broseidon/tagwm/internal/geom"
)

// SurfaceID is a backend-native surface identifier (an X11 window id for the
// X11 backend).
type SurfaceID uint32

// WindowType classifies a top-level surface.
type WindowType int

const (
	TypeNormal WindowType = iota
	TypeDialog
	TypeDock
	TypeDesktop
	TypeSplash
	TypeUtility
	TypeToolbar
	TypeMenu
	TypeNotification
)

var windowTypeNames = [...]string{
	TypeNormal:       "normal",
	TypeDialog:       "dialog",
	TypeDock:         "dock",
	TypeDesktop:      "desktop",
	TypeSplash:       "splash",
	TypeUtility:      "utility",
	TypeToolbar:      "toolbar",
	TypeMenu:         "menu",
	TypeNotification: "notification",
}

func (t WindowType) String() string {
	if int(t) >= 0 && int(t) < len(windowTypeNames) {
		return windowTypeNames[t]
	}
	return "unknown"
}

// ParseWindowType maps a type name back to its WindowType.
func ParseWindowType(name string) (WindowType, bool) {
	for i, n := range windowTypeNames {
		if n == name {
			return WindowType(i), true
		}
	}
	return TypeNormal, false
}

// Surface is a client surface as seen by the protocol layer.
type Surface interface {
	ID() SurfaceID
	// RequestResize asks the client to resize its content. A zero token means
	// the size took effect immediately; otherwise the backend reports a
	// ResizeAcked event carrying the token once the client has committed.
	RequestResize(width, height int) (uint32, error)
	RequestActivate(active bool) error
	RequestClose() error
	ClosePopups()
}

// Scene is the rendering tree the core pushes its decisions into.
type Scene interface {
	SetEnabled(s Surface, enabled bool)
	SetPosition(s Surface, x, y int)
	SetBorder(s Surface, width int, color string)
	// Restack orders the given surfaces bottom to top.
	Restack(bottomToTop []Surface)
	// SetKeyboardFocus moves keyboard focus; nil clears it.
	SetKeyboardFocus(s Surface)
	Raise(s Surface)
	SetBackgroundSuppressed(o Output, suppressed bool)
	Pointer() (geom.Point, bool)
}

// Mode is a display mode.
type Mode struct {
	Width   int
	Height  int
	Refresh int // mHz
}

// Output is a physical or virtual display.
type Output interface {
	Name() string
	PreferredMode() (Mode, error)
	Commit(bounds geom.Rect, scale float64) error
}

// Edge names the monitor edge an overlay is anchored to.
type Edge int

const (
	EdgeTop Edge = iota
	EdgeBottom
	EdgeLeft
	EdgeRight
)

func (e Edge) String() string {
	switch e {
	case EdgeTop:
		return "top"
	case EdgeBottom:
		return "bottom"
	case EdgeLeft:
		return "left"
	case EdgeRight:
		return "right"
	}
	return "unknown"
}

// OverlayInfo describes a panel or launcher surface.
type OverlayInfo struct {
	Edge Edge
	// Size is the thickness along the anchored edge.
	Size int
	// ExclusiveZone is the strip the overlay reserves; zero reserves nothing.
	ExclusiveZone       int
	KeyboardInteractive bool
	// Geometry is set when the client positions itself.
	Geometry geom.Rect
}

// SurfaceInfo is what the protocol layer knows about a surface at its first
// commit.
type SurfaceInfo struct {
	AppID        string
	Title        string
	Type         WindowType
	TransientFor SurfaceID
	Geometry     geom.Rect
	Fullscreen   bool
	Urgent       bool
	// Unmanaged surfaces (override-redirect, popups) never join the
	// registry; they can only be raised and explicitly focused.
	Unmanaged bool
}

// Event is emitted by a backend and consumed on the daemon loop.
type Event interface {
	event()
}

type (
	SurfaceCommitted struct {
		Surface Surface
		Info    SurfaceInfo
	}
	SurfaceMapped struct {
		Surface Surface
	}
	SurfaceUnmapped struct {
		Surface Surface
	}
	SurfaceDestroyed struct {
		Surface Surface
	}
	TitleChanged struct {
		Surface Surface
		Title   string
	}
	FullscreenRequested struct {
		Surface    Surface
		Fullscreen bool
	}
	ActivateRequested struct {
		Surface Surface
	}
	UrgencyChanged struct {
		Surface Surface
		Urgent  bool
	}
	ResizeAcked struct {
		Surface Surface
		Token   uint32
	}
	ConfigureRequested struct {
		Surface  Surface
		Geometry geom.Rect
	}
	OverlayMapped struct {
		Surface Surface
		Output  Output
		Info    OverlayInfo
	}
	OverlayUnmapped struct {
		Surface Surface
	}
	OutputAdded struct {
		Output Output
	}
	OutputRemoved struct {
		Output Output
	}
	OutputModeChanged struct {
		Output Output
		Mode   Mode
	}
	OutputLayoutChanged struct {
		Output Output
		Bounds geom.Rect
	}
	PointerEntered struct {
		Surface Surface
	}
)

func (SurfaceCommitted) event()    {}
func (SurfaceMapped) event()       {}
func (SurfaceUnmapped) event()     {}
func (SurfaceDestroyed) event()    {}
func (TitleChanged) event()        {}
func (FullscreenRequested) event() {}
func (ActivateRequested) event()   {}
func (UrgencyChanged) event()      {}
func (ResizeAcked) event()         {}
func (ConfigureRequested) event()  {}
func (OverlayMapped) event()       {}
func (OverlayUnmapped) event()     {}
func (OutputAdded) event()         {}
func (OutputRemoved) event()       {}
func (OutputModeChanged) event()   {}
func (OutputLayoutChanged) event() {}
func (PointerEntered) event()      {}

// Backend abstracts a windowing system.
type Backend interface {
	Scene() Scene
	// Outputs lists the currently connected outputs.
	Outputs() ([]Output, error)
	// Run pumps backend events into emit until ctx is done.
	Run(ctx context.Context, emit func(Event)) error
	Close() error
}
