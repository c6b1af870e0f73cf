package daemon

import (
	"fmt"
	"log/slog"

	"github.com/1broseidon/tagwm/internal/platform"
	"github.com/1broseidon/tagwm/internal/wm"
)

// Dispatcher turns backend events into core operations. It must only be
// used from the loop goroutine.
type Dispatcher struct {
	Manager     *wm.Manager
	SloppyFocus bool
	Logger      *slog.Logger
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

func (d *Dispatcher) lookup(s platform.Surface) (wm.ClientID, bool) {
	if s == nil {
		return wm.ClientID{}, false
	}
	return d.Manager.ClientBySurface(s.ID())
}

// Handle applies one backend event.
func (d *Dispatcher) Handle(ev platform.Event) error {
	m := d.Manager
	switch e := ev.(type) {
	case platform.SurfaceCommitted:
		if e.Info.Unmanaged {
			return nil
		}
		id, ok := d.lookup(e.Surface)
		if !ok {
			m.Create(e.Surface, e.Info)
			return nil
		}
		m.SetTitle(id, e.Info.Title)

	case platform.SurfaceMapped:
		id, ok := d.lookup(e.Surface)
		if !ok {
			id = m.Create(e.Surface, platform.SurfaceInfo{})
		}
		info, err := m.Client(id)
		if err != nil {
			return err
		}
		if info.State != wm.StateMapped.String() {
			m.Map(id)
		}

	case platform.SurfaceUnmapped:
		if id, ok := d.lookup(e.Surface); ok {
			m.Unmap(id, wm.ReasonUnmap)
		}

	case platform.SurfaceDestroyed:
		if id, ok := d.lookup(e.Surface); ok {
			m.Destroy(id)
		} else {
			// Overlays are not part of the registry.
			m.RemoveOverlay(e.Surface.ID())
		}

	case platform.TitleChanged:
		if id, ok := d.lookup(e.Surface); ok {
			m.SetTitle(id, e.Title)
		}

	case platform.FullscreenRequested:
		if id, ok := d.lookup(e.Surface); ok {
			m.SetProperty(id, wm.PropFullscreen, e.Fullscreen)
		}

	case platform.ActivateRequested:
		if id, ok := d.lookup(e.Surface); ok {
			m.Focus(id, true)
		} else {
			m.FocusUnmanaged(e.Surface, true)
		}

	case platform.UrgencyChanged:
		if id, ok := d.lookup(e.Surface); ok && id != m.Focused() {
			m.SetProperty(id, wm.PropUrgent, e.Urgent)
		}

	case platform.ResizeAcked:
		if id, ok := d.lookup(e.Surface); ok {
			m.AckResize(id, e.Token)
		}

	case platform.ConfigureRequested:
		if id, ok := d.lookup(e.Surface); ok {
			m.SetGeometry(id, e.Geometry)
		}

	case platform.OverlayMapped:
		var mon wm.MonitorID
		if e.Output != nil {
			mon, _ = m.MonitorByOutput(e.Output)
		}
		m.AddOverlay(mon, e.Surface, e.Info)
		m.SetOverlayVisible(e.Surface.ID(), true)

	case platform.OverlayUnmapped:
		m.SetOverlayVisible(e.Surface.ID(), false)

	case platform.OutputAdded:
		if _, ok := m.MonitorByOutput(e.Output); ok {
			return nil
		}
		if _, err := m.Attach(e.Output); err != nil {
			return fmt.Errorf("attach output %s: %w", e.Output.Name(), err)
		}

	case platform.OutputRemoved:
		if mon, ok := m.MonitorByOutput(e.Output); ok {
			return m.Detach(mon)
		}

	case platform.OutputModeChanged:
		m.UpdateOutputMode(e.Output, e.Mode)

	case platform.OutputLayoutChanged:
		m.UpdateOutputLayout(e.Output, e.Bounds)

	case platform.PointerEntered:
		if !d.SloppyFocus {
			return nil
		}
		if id, ok := d.lookup(e.Surface); ok && m.Visible(id) {
			m.Focus(id, false)
		}

	default:
		d.logger().Debug("ignoring backend event", "event", fmt.Sprintf("%T", ev))
	}
	return nil
}
