// Package rules applies the user configuration to the core through its
// hooks: it creates the configured tags on every monitor, places new
// windows according to window rules and reserves screen padding.
package rules

import (
	"log/slog"
	"regexp"

	"github.com/1broseidon/tagwm/internal/config"
	"github.com/1broseidon/tagwm/internal/platform"
	"github.com/1broseidon/tagwm/internal/wm"
)

// PaddingKey is the reservation key used for screen_padding.
const PaddingKey = "screen_padding"

type compiledRule struct {
	config.Rule
	title *regexp.Regexp
	wtype platform.WindowType
}

func (r *compiledRule) matches(info wm.ClientInfo) bool {
	if r.Match.AppID != "" && r.Match.AppID != info.AppID {
		return false
	}
	if r.title != nil && !r.title.MatchString(info.Title) {
		return false
	}
	if r.Match.Type != "" && r.wtype.String() != info.Type {
		return false
	}
	return true
}

// Engine implements wm.Hooks for a loaded configuration.
type Engine struct {
	wm.NopHooks

	cfg    *config.Config
	rules  []compiledRule
	logger *slog.Logger
}

// New compiles cfg. The configuration is expected to have passed
// Validate; rules that still fail to compile are skipped with a warning.
func New(cfg *config.Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{logger: logger}
	e.SetConfig(cfg)
	return e
}

// SetConfig swaps in a reloaded configuration. Call Reapply afterwards to
// push it into a running manager.
func (e *Engine) SetConfig(cfg *config.Config) {
	e.cfg = cfg
	e.rules = e.rules[:0]
	for i, r := range cfg.Rules {
		cr := compiledRule{Rule: r}
		if r.Match.Title != "" {
			re, err := regexp.Compile(r.Match.Title)
			if err != nil {
				e.logger.Warn("skipping rule with invalid title pattern", "rule", i, "error", err)
				continue
			}
			cr.title = re
		}
		if r.Match.Type != "" {
			t, ok := platform.ParseWindowType(r.Match.Type)
			if !ok {
				e.logger.Warn("skipping rule with unknown window type", "rule", i, "type", r.Match.Type)
				continue
			}
			cr.wtype = t
		}
		e.rules = append(e.rules, cr)
	}
}

// Config returns the configuration the engine was built from.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// ScreenAdded creates the configured tags on a new monitor and selects the
// first one.
func (e *Engine) ScreenAdded(m *wm.Manager, mon wm.MonitorID) {
	e.setupMonitor(m, mon)
}

func (e *Engine) setupMonitor(m *wm.Manager, mon wm.MonitorID) {
	var first wm.TagID
	for _, name := range e.cfg.Tags {
		id, err := m.TagByName(mon, name)
		if err != nil {
			id = m.AddTag(mon, name)
		}
		if first.IsZero() {
			first = id
		}
	}
	if len(m.SelectedTags(mon)) == 0 && !first.IsZero() {
		m.ViewTag(mon, first)
	}
	m.SetReservation(mon, PaddingKey, e.cfg.ScreenPadding)
}

// ScreenRemoved deletes the tags that belonged to a removed monitor. Its
// clients have already been moved to a surviving monitor.
func (e *Engine) ScreenRemoved(m *wm.Manager, mon wm.MonitorID) {
	for _, id := range m.TagsOf(mon) {
		m.RemoveTag(id)
	}
}

// Managed applies the first matching rule to a window that is about to be
// shown for the first time.
func (e *Engine) Managed(m *wm.Manager, id wm.ClientID, ctx *wm.ManageContext) {
	info, err := m.Client(id)
	if err != nil || !info.TransientFor.IsZero() {
		return
	}
	for i := range e.rules {
		r := &e.rules[i]
		if !r.matches(info) {
			continue
		}
		e.logger.Debug("window rule matched", "client", id, "app_id", info.AppID, "rule", i)
		e.apply(m, id, ctx, r)
		return
	}
}

func (e *Engine) apply(m *wm.Manager, id wm.ClientID, ctx *wm.ManageContext, r *compiledRule) {
	if r.Monitor != "" {
		if mon, err := m.MonitorByName(r.Monitor); err == nil {
			ctx.Monitor = mon
			ctx.Tags = m.SelectedTags(mon)
		} else {
			e.logger.Debug("rule monitor not attached", "monitor", r.Monitor)
		}
	}
	if len(r.Tags) > 0 {
		var tags []wm.TagID
		for _, name := range r.Tags {
			if t, err := m.TagByName(ctx.Monitor, name); err == nil {
				tags = append(tags, t)
			}
		}
		if len(tags) > 0 {
			ctx.Tags = tags
			// Do not pull focus to a window placed out of view.
			ctx.Focus = ctx.Focus && overlaps(tags, m.SelectedTags(ctx.Monitor))
		}
	}
	if r.Floating != nil {
		ctx.Floating = *r.Floating
	}
	for prop, v := range map[wm.Property]*bool{
		wm.PropOnTop:       r.OnTop,
		wm.PropAbove:       r.Above,
		wm.PropBelow:       r.Below,
		wm.PropSticky:      r.Sticky,
		wm.PropFullscreen:  r.Fullscreen,
		wm.PropSkipTaskbar: r.SkipTaskbar,
	} {
		if v != nil {
			m.SetProperty(id, prop, *v)
		}
	}
}

func overlaps(a, b []wm.TagID) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// Reapply pushes a reloaded configuration into a running manager: settings,
// missing tags and padding reservations. Existing clients keep their tags.
func (e *Engine) Reapply(m *wm.Manager) {
	m.UpdateSettings(e.cfg.Settings())
	for _, mon := range m.MonitorIDs() {
		e.setupMonitor(m, mon)
	}
}
