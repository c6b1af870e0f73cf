package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/1broseidon/tagwm/internal/ipc"
	"github.com/1broseidon/tagwm/internal/layout"
	"github.com/1broseidon/tagwm/internal/wm"
)

// ControllerConfig holds configuration for the controller.
type ControllerConfig struct {
	Loop    *Loop
	Manager *wm.Manager
	// Layouts returns the layout names cycled by "next" and "prev". It is
	// called on the loop.
	Layouts func() []string
	// Reload re-reads the configuration. It is called off the loop.
	Reload     func(ctx context.Context) error
	Instance   string
	ConfigPath string
	Logger     *slog.Logger
}

// Controller executes control requests against the core. Every request
// runs as a closure on the loop.
type Controller struct {
	loop       *Loop
	manager    *wm.Manager
	layouts    func() []string
	reload     func(ctx context.Context) error
	instance   string
	configPath string
	started    time.Time
	logger     *slog.Logger
}

func NewController(cfg ControllerConfig) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	layouts := cfg.Layouts
	if layouts == nil {
		layouts = layout.Names
	}
	return &Controller{
		loop:       cfg.Loop,
		manager:    cfg.Manager,
		layouts:    layouts,
		reload:     cfg.Reload,
		instance:   cfg.Instance,
		configPath: cfg.ConfigPath,
		started:    time.Now(),
		logger:     logger,
	}
}

// HandleRequest implements ipc.Handler.
func (c *Controller) HandleRequest(ctx context.Context, req *ipc.Request) (any, error) {
	if req.Command == ipc.CommandReload {
		return nil, c.doReload(ctx)
	}
	var data any
	err := c.loop.Do(ctx, func() error {
		var err error
		data, err = c.exec(req)
		return err
	})
	return data, err
}

// Post queues req without waiting for its result. Failures are logged.
func (c *Controller) Post(req *ipc.Request) {
	if req.Command == ipc.CommandReload {
		go func() {
			if err := c.doReload(context.Background()); err != nil {
				c.logger.Warn("reload failed", "error", err)
			}
		}()
		return
	}
	err := c.loop.Post(func() error {
		if _, err := c.exec(req); err != nil {
			return fmt.Errorf("%s: %w", req.Command, err)
		}
		return nil
	})
	if err != nil {
		c.logger.Debug("dropping command", "command", req.Command, "error", err)
	}
}

func (c *Controller) doReload(ctx context.Context) error {
	if c.reload == nil {
		return errors.New("reload not supported")
	}
	return c.reload(ctx)
}

// exec runs req. It must be called on the loop.
func (c *Controller) exec(req *ipc.Request) (any, error) {
	m := c.manager
	switch req.Command {
	case ipc.CommandGetStatus:
		return ipc.StatusData{
			Status:        m.Status(),
			Instance:      c.instance,
			ConfigPath:    c.configPath,
			UptimeSeconds: int64(time.Since(c.started).Seconds()),
			DaemonRunning: true,
		}, nil

	case ipc.CommandListClients:
		return ipc.ClientsData{Clients: m.Clients()}, nil

	case ipc.CommandListTags:
		return ipc.TagsData{Tags: m.Tags()}, nil

	case ipc.CommandGetMonitors:
		return ipc.MonitorsData{Monitors: m.Monitors()}, nil

	case ipc.CommandViewTag, ipc.CommandToggleTag:
		var p ipc.TagPayload
		if err := req.DecodePayload(&p); err != nil {
			return nil, err
		}
		mon, err := c.monitorArg(p.Monitor)
		if err != nil {
			return nil, err
		}
		tag, err := m.TagByName(mon, p.Tag)
		if err != nil {
			return nil, err
		}
		if req.Command == ipc.CommandViewTag {
			m.ViewTag(mon, tag)
		} else {
			m.ToggleTagView(tag)
		}
		return nil, nil

	case ipc.CommandViewPrevious:
		var p ipc.MonitorPayload
		if err := req.DecodePayload(&p); err != nil {
			return nil, err
		}
		mon, err := c.monitorArg(p.Monitor)
		if err != nil {
			return nil, err
		}
		m.ViewPrevious(mon)
		return nil, nil

	case ipc.CommandMoveClientToTag, ipc.CommandToggleClientTag:
		var p ipc.ClientTagPayload
		if err := req.DecodePayload(&p); err != nil {
			return nil, err
		}
		id, err := c.clientArg(p.Client)
		if err != nil {
			return nil, err
		}
		info, err := m.Client(id)
		if err != nil {
			return nil, err
		}
		tag, err := m.TagByName(info.Monitor, p.Tag)
		if err != nil {
			return nil, err
		}
		if req.Command == ipc.CommandMoveClientToTag {
			m.MoveToTag(id, tag)
		} else {
			m.ToggleClientTag(id, tag)
		}
		return nil, nil

	case ipc.CommandMoveClientToMonitor:
		var p ipc.ClientMonitorPayload
		if err := req.DecodePayload(&p); err != nil {
			return nil, err
		}
		id, err := c.clientArg(p.Client)
		if err != nil {
			return nil, err
		}
		if p.Monitor == "" {
			return nil, errors.New("monitor is required")
		}
		mon, err := m.MonitorByName(p.Monitor)
		if err != nil {
			return nil, err
		}
		m.MoveToMonitor(id, mon)
		return nil, nil

	case ipc.CommandFocusClient:
		var p ipc.ClientPayload
		if err := req.DecodePayload(&p); err != nil {
			return nil, err
		}
		if p.Client == "" {
			return nil, errors.New("client is required")
		}
		id, err := c.clientArg(p.Client)
		if err != nil {
			return nil, err
		}
		c.jumpTo(id)
		return nil, nil

	case ipc.CommandFocusDirection:
		var p ipc.DirectionPayload
		if err := req.DecodePayload(&p); err != nil {
			return nil, err
		}
		switch p.Direction {
		case "next":
			m.FocusStep(1)
		case "prev":
			m.FocusStep(-1)
		default:
			return nil, fmt.Errorf("invalid direction %q: expected next or prev", p.Direction)
		}
		return nil, nil

	case ipc.CommandCloseClient:
		var p ipc.ClientPayload
		if err := req.DecodePayload(&p); err != nil {
			return nil, err
		}
		id, err := c.clientArg(p.Client)
		if err != nil {
			return nil, err
		}
		return nil, m.Close(id)

	case ipc.CommandSetLayout:
		var p ipc.LayoutPayload
		if err := req.DecodePayload(&p); err != nil {
			return nil, err
		}
		return nil, c.setLayout(p)

	case ipc.CommandSetMaster:
		var p ipc.MasterPayload
		if err := req.DecodePayload(&p); err != nil {
			return nil, err
		}
		return nil, c.setMaster(p)

	case ipc.CommandSetProperty:
		var p ipc.PropertyPayload
		if err := req.DecodePayload(&p); err != nil {
			return nil, err
		}
		return nil, c.setProperty(p)

	default:
		return nil, fmt.Errorf("unknown command: %s", req.Command)
	}
}

func (c *Controller) monitorArg(name string) (wm.MonitorID, error) {
	if name == "" {
		mon := c.manager.SelectedMonitor()
		if mon.IsZero() {
			return wm.MonitorID{}, wm.ErrNoMonitor
		}
		return mon, nil
	}
	return c.manager.MonitorByName(name)
}

func (c *Controller) clientArg(s string) (wm.ClientID, error) {
	if s == "" {
		id := c.manager.Focused()
		if id.IsZero() {
			return wm.ClientID{}, wm.ErrNoFocus
		}
		return id, nil
	}
	id, err := wm.ParseClientID(s)
	if err != nil {
		return wm.ClientID{}, err
	}
	if err := c.manager.LookupClient(id); err != nil {
		return wm.ClientID{}, err
	}
	return id, nil
}

// jumpTo focuses id, first viewing one of its tags when it is hidden by the
// current tag selection.
func (c *Controller) jumpTo(id wm.ClientID) {
	m := c.manager
	info, err := m.Client(id)
	if err != nil {
		return
	}
	if !info.Monitor.IsZero() {
		if info.Banned && !info.Sticky && len(info.Tags) > 0 && !overlapsAny(info.Tags, m.SelectedTags(info.Monitor)) {
			m.ViewTag(info.Monitor, info.Tags[0])
		}
		m.SelectMonitor(info.Monitor)
	}
	m.Focus(id, true)
}

func overlapsAny(a, b []wm.TagID) bool {
	return slices.ContainsFunc(a, func(t wm.TagID) bool { return slices.Contains(b, t) })
}

func (c *Controller) setLayout(p ipc.LayoutPayload) error {
	m := c.manager
	mon, err := c.monitorArg(p.Monitor)
	if err != nil {
		return err
	}
	info, err := m.Monitor(mon)
	if err != nil {
		return err
	}
	name := p.Layout
	switch name {
	case "":
		return errors.New("layout is required")
	case "next":
		name = layout.Cycle(c.layouts(), info.Layout, 1)
	case "prev":
		name = layout.Cycle(c.layouts(), info.Layout, -1)
	}
	tags := m.SelectedTags(mon)
	if len(tags) == 0 {
		return fmt.Errorf("monitor %s has no selected tag", info.Name)
	}
	for _, t := range tags {
		if err := m.SetTagLayout(t, name); err != nil {
			return err
		}
	}
	c.logger.Debug("layout changed", "monitor", info.Name, "layout", name)
	return nil
}

func (c *Controller) setMaster(p ipc.MasterPayload) error {
	m := c.manager
	mon, err := c.monitorArg(p.Monitor)
	if err != nil {
		return err
	}
	selected := m.SelectedTags(mon)
	for _, t := range m.Tags() {
		if !slices.Contains(selected, t.ID) {
			continue
		}
		if p.FactorDelta != 0 {
			m.SetMasterFactor(t.ID, t.MasterFactor+p.FactorDelta)
		}
		if p.CountDelta != 0 {
			m.SetMasterCount(t.ID, t.MasterCount+p.CountDelta)
		}
	}
	return nil
}

func (c *Controller) setProperty(p ipc.PropertyPayload) error {
	m := c.manager
	prop := wm.Property(p.Property)
	if !slices.Contains(wm.BoolProperties, prop) {
		return fmt.Errorf("unknown property %q", p.Property)
	}
	id, err := c.clientArg(p.Client)
	if err != nil {
		return err
	}
	var value bool
	switch p.Value {
	case "on", "true":
		value = true
	case "off", "false":
		value = false
	case "toggle", "":
		cur, _ := m.Property(id, prop)
		value = !cur
	default:
		return fmt.Errorf("invalid value %q: expected on, off or toggle", p.Value)
	}
	m.SetProperty(id, prop, value)
	return nil
}

func (c *Controller) String() string {
	return "controller"
}
