package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/tagwm/internal/geom"
	"github.com/1broseidon/tagwm/internal/layout"
	"github.com/1broseidon/tagwm/internal/platform"
	"github.com/1broseidon/tagwm/internal/wm"
)

// MonitorPlacement pins an output to an explicit position in the global
// layout.
type MonitorPlacement struct {
	X     int     `yaml:"x"`
	Y     int     `yaml:"y"`
	Scale float64 `yaml:"scale,omitempty"` // 0 = 1.0
}

// RuleMatch selects windows by their identity. Empty fields match anything.
type RuleMatch struct {
	AppID string `yaml:"app_id,omitempty"`
	Title string `yaml:"title,omitempty"` // regular expression
	Type  string `yaml:"type,omitempty"`
}

// Rule changes the initial placement and state of matching windows.
type Rule struct {
	Match       RuleMatch `yaml:"match"`
	Tags        []string  `yaml:"tags,omitempty"`
	Monitor     string    `yaml:"monitor,omitempty"`
	Floating    *bool     `yaml:"floating,omitempty"`
	OnTop       *bool     `yaml:"ontop,omitempty"`
	Above       *bool     `yaml:"above,omitempty"`
	Below       *bool     `yaml:"below,omitempty"`
	Sticky      *bool     `yaml:"sticky,omitempty"`
	Fullscreen  *bool     `yaml:"fullscreen,omitempty"`
	SkipTaskbar *bool     `yaml:"skip_taskbar,omitempty"`
}

// Includes lists files or directories merged underneath the file that names
// them. A single string is accepted as a one-element list.
type Includes []string

func (in *Includes) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*in = Includes{node.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*in = list
		return nil
	}
	return fmt.Errorf("line %d: include must be a string or a list of strings", node.Line)
}

// Config holds the application configuration.
type Config struct {
	Include    Includes `yaml:"include,omitempty"`
	LogLevel   string   `yaml:"log_level"`
	Display    string   `yaml:"display,omitempty"`
	XAuthority string   `yaml:"xauthority,omitempty"`

	Tags          []string   `yaml:"tags"`
	DefaultLayout string     `yaml:"default_layout"`
	Layouts       []string   `yaml:"layouts"` // cycle order
	MasterFactor  float64    `yaml:"master_factor"`
	MasterCount   int        `yaml:"master_count"`
	GapSize       int        `yaml:"gap_size"`
	ScreenPadding geom.Strut `yaml:"screen_padding"`

	BorderWidth        int    `yaml:"border_width"`
	BorderColorFocused string `yaml:"border_color_focused"`
	BorderColorNormal  string `yaml:"border_color_normal"`
	BorderColorUrgent  string `yaml:"border_color_urgent"`

	Monitors        map[string]MonitorPlacement `yaml:"monitors,omitempty"`
	DefaultMonitor  string                      `yaml:"default_monitor,omitempty"`
	FocusNewWindows bool                        `yaml:"focus_new_windows"`
	SloppyFocus     bool                        `yaml:"sloppy_focus"`

	Rules       []Rule            `yaml:"rules,omitempty"`
	Keybindings map[string]string `yaml:"keybindings,omitempty"`

	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
}

func DefaultConfig() *Config {
	def := wm.DefaultSettings()
	cfg := &Config{
		LogLevel:           "info",
		DefaultLayout:      def.DefaultLayout,
		Layouts:            []string{layout.NameTile, layout.NameMonocle, layout.NameGrid, layout.NameFloating},
		MasterFactor:       def.MasterFactor,
		MasterCount:        def.MasterCount,
		BorderWidth:        def.BorderWidth,
		BorderColorFocused: def.BorderColorFocused,
		BorderColorNormal:  def.BorderColorNormal,
		BorderColorUrgent:  def.BorderColorUrgent,
		FocusNewWindows:    def.FocusNewWindows,
		Monitors:           map[string]MonitorPlacement{},
		ReconcileInterval:  5 * time.Second,
		Keybindings: map[string]string{
			"Mod4-j":       "focus next",
			"Mod4-k":       "focus prev",
			"Mod4-Shift-c": "close",
			"Mod4-space":   "layout next",
			"Mod4-f":       "set fullscreen toggle",
			"Mod4-Shift-f": "set floating toggle",
			"Mod4-Tab":     "view previous",
			"Mod4-Shift-r": "reload",
		},
	}
	for i := 1; i <= 9; i++ {
		name := fmt.Sprint(i)
		cfg.Tags = append(cfg.Tags, name)
		cfg.Keybindings["Mod4-"+name] = "view " + name
		cfg.Keybindings["Mod4-Control-"+name] = "toggle " + name
		cfg.Keybindings["Mod4-Shift-"+name] = "tag " + name
	}
	return cfg
}

// ValidationError reports an invalid value at a YAML path.
type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

var logLevels = []string{"debug", "info", "warning", "error"}

func (c *Config) Validate() error {
	if !slices.Contains(logLevels, c.LogLevel) {
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warning, error")}
	}
	if len(c.Tags) == 0 {
		return &ValidationError{Path: "tags", Err: fmt.Errorf("tags must not be empty")}
	}
	seen := make(map[string]struct{}, len(c.Tags))
	for i, name := range c.Tags {
		if strings.TrimSpace(name) == "" {
			return &ValidationError{Path: fmt.Sprintf("tags.%d", i), Err: fmt.Errorf("tag name must not be empty")}
		}
		if _, dup := seen[name]; dup {
			return &ValidationError{Path: fmt.Sprintf("tags.%d", i), Err: fmt.Errorf("duplicate tag %q", name)}
		}
		seen[name] = struct{}{}
	}
	if _, err := layout.Lookup(c.DefaultLayout); err != nil {
		return &ValidationError{Path: "default_layout", Err: err}
	}
	for i, name := range c.Layouts {
		if _, err := layout.Lookup(name); err != nil {
			return &ValidationError{Path: fmt.Sprintf("layouts.%d", i), Err: err}
		}
	}
	if c.MasterFactor < 0.05 || c.MasterFactor > 0.95 {
		return &ValidationError{Path: "master_factor", Err: fmt.Errorf("master_factor must be between 0.05 and 0.95")}
	}
	if c.MasterCount < 0 {
		return &ValidationError{Path: "master_count", Err: fmt.Errorf("master_count must be >= 0")}
	}
	if c.GapSize < 0 {
		return &ValidationError{Path: "gap_size", Err: fmt.Errorf("gap_size must be >= 0")}
	}
	if p := c.ScreenPadding; p.Top < 0 || p.Bottom < 0 || p.Left < 0 || p.Right < 0 {
		return &ValidationError{Path: "screen_padding", Err: fmt.Errorf("screen_padding values must be >= 0")}
	}
	if c.BorderWidth < 0 {
		return &ValidationError{Path: "border_width", Err: fmt.Errorf("border_width must be >= 0")}
	}
	for path, color := range map[string]string{
		"border_color_focused": c.BorderColorFocused,
		"border_color_normal":  c.BorderColorNormal,
		"border_color_urgent":  c.BorderColorUrgent,
	} {
		if !colorPattern.MatchString(color) {
			return &ValidationError{Path: path, Err: fmt.Errorf("%q is not a #rrggbb color", color)}
		}
	}
	for name, p := range c.Monitors {
		if p.Scale < 0 {
			return &ValidationError{Path: "monitors." + name + ".scale", Err: fmt.Errorf("scale must be >= 0")}
		}
	}
	for i, r := range c.Rules {
		if err := r.validate(seen); err != nil {
			err.Path = fmt.Sprintf("rules.%d.%s", i, err.Path)
			return err
		}
	}
	for key, action := range c.Keybindings {
		if strings.TrimSpace(key) == "" {
			return &ValidationError{Path: "keybindings", Err: fmt.Errorf("keybindings contains an empty key")}
		}
		if strings.TrimSpace(action) == "" {
			return &ValidationError{Path: "keybindings." + key, Err: fmt.Errorf("action must not be empty")}
		}
	}
	if c.ReconcileInterval < 0 {
		return &ValidationError{Path: "reconcile_interval", Err: fmt.Errorf("reconcile_interval must be >= 0")}
	}
	return nil
}

func (r *Rule) validate(tags map[string]struct{}) *ValidationError {
	m := r.Match
	if m.AppID == "" && m.Title == "" && m.Type == "" {
		return &ValidationError{Path: "match", Err: fmt.Errorf("match needs at least one of app_id, title, type")}
	}
	if m.Title != "" {
		if _, err := regexp.Compile(m.Title); err != nil {
			return &ValidationError{Path: "match.title", Err: err}
		}
	}
	if m.Type != "" {
		if _, ok := platform.ParseWindowType(m.Type); !ok {
			return &ValidationError{Path: "match.type", Err: fmt.Errorf("unknown window type %q", m.Type)}
		}
	}
	for i, name := range r.Tags {
		if _, ok := tags[name]; !ok {
			return &ValidationError{Path: fmt.Sprintf("tags.%d", i), Err: fmt.Errorf("tag %q is not in tags", name)}
		}
	}
	return nil
}

// Settings converts the configuration into core settings.
func (c *Config) Settings() wm.Settings {
	s := wm.Settings{
		BorderWidth:        c.BorderWidth,
		BorderColorFocused: c.BorderColorFocused,
		BorderColorNormal:  c.BorderColorNormal,
		BorderColorUrgent:  c.BorderColorUrgent,
		DefaultLayout:      c.DefaultLayout,
		MasterFactor:       c.MasterFactor,
		MasterCount:        c.MasterCount,
		Gap:                c.GapSize,
		FocusNewWindows:    c.FocusNewWindows,
		DefaultMonitor:     c.DefaultMonitor,
		Placements:         make(map[string]wm.Placement, len(c.Monitors)),
	}
	for name, p := range c.Monitors {
		scale := p.Scale
		if scale == 0 {
			scale = 1
		}
		s.Placements[name] = wm.Placement{X: p.X, Y: p.Y, Scale: scale}
	}
	return s
}

// SlogLevel maps log_level to a slog level.
func (c *Config) SlogLevel() slog.Level {
	return ParseLogLevel(c.LogLevel)
}

// ParseLogLevel maps a log level name to a slog level, defaulting to info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Save writes the configuration to the standard location.
//
// Note: this marshals the effective config and will not preserve comments or
// include structure from the original YAML.
func (c *Config) Save() error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

func (c *Config) SaveTo(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	save := *c
	save.Include = nil
	data, err := yaml.Marshal(&save)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
