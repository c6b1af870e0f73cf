package wm

import (
	"github.com/1broseidon/tagwm/internal/geom"
)

// UnmanageReason says why a client left the managed set.
type UnmanageReason string

const (
	ReasonUserClosed UnmanageReason = "user-closed"
	ReasonDestroyed  UnmanageReason = "destroyed"
	ReasonReparented UnmanageReason = "reparented"
	ReasonUnmap      UnmanageReason = "unmap"
	ReasonFailed     UnmanageReason = "failed"
)

// ManageContext carries the placement decided for a client that is about to
// become visible for the first time. Hooks may rewrite any field.
type ManageContext struct {
	Monitor  MonitorID
	Tags     []TagID
	Floating bool
	// Geometry is only honored for floating clients.
	Geometry geom.Rect
	// Focus requests focus once the client is shown.
	Focus bool
}

// Hooks receives lifecycle notifications from the Manager. Notifications are
// fire-and-continue: a hook may call back into the Manager to change tags,
// floating geometry or reservations, and those changes take effect on the
// next refresh.
type Hooks interface {
	Managed(m *Manager, id ClientID, ctx *ManageContext)
	Unmanaged(m *Manager, id ClientID, reason UnmanageReason)
	PropertyChanged(m *Manager, id ClientID, prop Property)
	FocusChanged(m *Manager, id ClientID)
	TagChanged(m *Manager, tag TagID, id ClientID, joined bool)
	ScreenAdded(m *Manager, mon MonitorID)
	ScreenRemoved(m *Manager, mon MonitorID)
	WorkAreaChanged(m *Manager, mon MonitorID, area geom.Rect)
	RefreshTick(m *Manager)
}

// NopHooks ignores every notification. Embed it to implement only a subset
// of Hooks.
type NopHooks struct{}

func (NopHooks) Managed(*Manager, ClientID, *ManageContext) {}
func (NopHooks) Unmanaged(*Manager, ClientID, UnmanageReason) {}
func (NopHooks) PropertyChanged(*Manager, ClientID, Property) {}
func (NopHooks) FocusChanged(*Manager, ClientID) {}
func (NopHooks) TagChanged(*Manager, TagID, ClientID, bool) {}
func (NopHooks) ScreenAdded(*Manager, MonitorID) {}
func (NopHooks) ScreenRemoved(*Manager, MonitorID) {}
func (NopHooks) WorkAreaChanged(*Manager, MonitorID, geom.Rect) {}
func (NopHooks) RefreshTick(*Manager) {}

// MultiHooks fans every notification out to each element in order.
type MultiHooks []Hooks

func (hs MultiHooks) Managed(m *Manager, id ClientID, ctx *ManageContext) {
	for _, h := range hs {
		h.Managed(m, id, ctx)
	}
}

func (hs MultiHooks) Unmanaged(m *Manager, id ClientID, reason UnmanageReason) {
	for _, h := range hs {
		h.Unmanaged(m, id, reason)
	}
}

func (hs MultiHooks) PropertyChanged(m *Manager, id ClientID, prop Property) {
	for _, h := range hs {
		h.PropertyChanged(m, id, prop)
	}
}

func (hs MultiHooks) FocusChanged(m *Manager, id ClientID) {
	for _, h := range hs {
		h.FocusChanged(m, id)
	}
}

func (hs MultiHooks) TagChanged(m *Manager, tag TagID, id ClientID, joined bool) {
	for _, h := range hs {
		h.TagChanged(m, tag, id, joined)
	}
}

func (hs MultiHooks) ScreenAdded(m *Manager, mon MonitorID) {
	for _, h := range hs {
		h.ScreenAdded(m, mon)
	}
}

func (hs MultiHooks) ScreenRemoved(m *Manager, mon MonitorID) {
	for _, h := range hs {
		h.ScreenRemoved(m, mon)
	}
}

func (hs MultiHooks) WorkAreaChanged(m *Manager, mon MonitorID, area geom.Rect) {
	for _, h := range hs {
		h.WorkAreaChanged(m, mon, area)
	}
}

func (hs MultiHooks) RefreshTick(m *Manager) {
	for _, h := range hs {
		h.RefreshTick(m)
	}
}
