package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/google/uuid"
	"github.com/thejerf/suture/v4"

	"github.com/1broseidon/tagwm/internal/config"
	"github.com/1broseidon/tagwm/internal/ipc"
	"github.com/1broseidon/tagwm/internal/platform"
	"github.com/1broseidon/tagwm/internal/rules"
	"github.com/1broseidon/tagwm/internal/runtimepath"
	"github.com/1broseidon/tagwm/internal/wm"
)

// Keys grabs global key bindings and turns presses into requests.
type Keys interface {
	Bind(bindings map[string]string, run func(*ipc.Request)) error
}

// Options holds configuration for the daemon.
type Options struct {
	// ConfigPath defaults to config.DefaultConfigPath().
	ConfigPath string
	Backend    platform.Backend
	// Keys is optional; without it only the socket controls the daemon.
	Keys   Keys
	Logger *slog.Logger
	// LevelVar, when set, follows the configured log level across reloads.
	LevelVar *slog.LevelVar
	// SocketPath and LockPath default to the runtime directory.
	SocketPath string
	LockPath   string
	// Watch reloads the configuration whenever the file changes.
	Watch bool
}

// Daemon owns the window manager core and every service feeding it.
type Daemon struct {
	opts       Options
	configPath string
	logger     *slog.Logger

	loop       *Loop
	manager    *wm.Manager
	engine     *rules.Engine
	dispatcher *Dispatcher
	controller *Controller
	reconciler *Reconciler
	server     *ipc.Server

	backendErr atomic.Value
}

// New loads the configuration and builds the core. Nothing runs until
// Run is called.
func New(opts Options) (*Daemon, error) {
	if opts.Backend == nil {
		return nil, errors.New("daemon requires a backend")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	path := opts.ConfigPath
	if path == "" {
		p, err := config.DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	res, err := config.LoadFromPath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg := res.Config
	if opts.LevelVar != nil {
		opts.LevelVar.Set(cfg.SlogLevel())
	}
	logger.Info("configuration loaded", "path", path, "files", len(res.Files), "tags", len(cfg.Tags))

	d := &Daemon{
		opts:       opts,
		configPath: path,
		logger:     logger,
	}

	d.engine = rules.New(cfg, logger.With("component", "rules"))
	d.loop = NewLoop(LoopConfig{
		Refresh: func() { d.manager.Refresh() },
		Logger:  logger.With("component", "loop"),
	})
	d.manager = wm.New(wm.Config{
		Scene:    opts.Backend.Scene(),
		Hooks:    d.engine,
		Logger:   logger.With("component", "wm"),
		Settings: cfg.Settings(),
	})
	d.dispatcher = &Dispatcher{
		Manager:     d.manager,
		SloppyFocus: cfg.SloppyFocus,
		Logger:      logger.With("component", "dispatch"),
	}
	d.controller = NewController(ControllerConfig{
		Loop:       d.loop,
		Manager:    d.manager,
		Layouts:    func() []string { return d.engine.Config().Layouts },
		Reload:     d.Reload,
		Instance:   uuid.NewString(),
		ConfigPath: path,
		Logger:     logger.With("component", "controller"),
	})
	d.reconciler = NewReconciler(ReconcilerConfig{
		Interval: cfg.ReconcileInterval,
		Logger:   logger.With("component", "reconciler"),
	}, d.loop, d.manager, opts.Backend.Outputs)

	d.server, err = ipc.NewServer(ipc.ServerConfig{
		SocketPath: opts.SocketPath,
		Handler:    d.controller,
		Logger:     logger.With("component", "ipc"),
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Run acquires the instance lock and serves until ctx is cancelled or the
// backend fails.
func (d *Daemon) Run(ctx context.Context) error {
	lockPath := d.opts.LockPath
	if lockPath == "" {
		p, err := runtimepath.LockPath()
		if err != nil {
			return err
		}
		lockPath = p
	}
	lock, err := acquireLock(lockPath)
	if err != nil {
		return err
	}
	defer lock.Release()
	defer d.loop.Close()

	d.bindKeys(d.engine.Config())

	super := suture.New("tagwm", suture.Spec{
		EventHook: EventHook(d.logger),
	})
	addService(super, d.loop)
	addService(super, NewServiceFunc("backend", d.runBackend))
	addService(super, d.reconciler)
	addService(super, d.server)
	addService(super, NewServiceFunc("sighup", d.watchSignals))
	if d.opts.Watch {
		addService(super, &config.Watcher{
			Path: d.configPath,
			OnChange: func() {
				if err := d.Reload(ctx); err != nil {
					d.logger.Warn("config reload failed", "error", err)
				}
			},
			Logger: d.logger.With("component", "config"),
		})
	}

	d.logger.Info("tagwm daemon started", "socket", d.server.SocketPath())
	err = super.Serve(ctx)
	if backendErr, _ := d.backendErr.Load().(error); backendErr != nil {
		return backendErr
	}
	if ctx.Err() != nil {
		d.logger.Info("tagwm daemon stopped")
		return nil
	}
	return err
}

// runBackend pumps backend events onto the loop. A backend that stops on
// its own takes the daemon down with it.
func (d *Daemon) runBackend(ctx context.Context) error {
	err := d.opts.Backend.Run(ctx, func(ev platform.Event) {
		if err := d.loop.Post(func() error { return d.dispatcher.Handle(ev) }); err != nil {
			d.logger.Debug("dropping backend event", "event", fmt.Sprintf("%T", ev), "error", err)
		}
	})
	if ctx.Err() != nil {
		return ctx.Err()
	}
	err = fmt.Errorf("backend: %w", err)
	d.backendErr.Store(err)
	return errors.Join(suture.ErrTerminateSupervisorTree, err)
}

func (d *Daemon) watchSignals(ctx context.Context) error {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGHUP)
	defer signal.Stop(ch)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
			d.logger.Info("SIGHUP received, reloading configuration")
			if err := d.Reload(ctx); err != nil {
				d.logger.Warn("config reload failed", "error", err)
			}
		}
	}
}

// Reload re-reads the configuration off the loop, then swaps it in on the
// loop. An invalid file leaves the running configuration untouched.
func (d *Daemon) Reload(ctx context.Context) error {
	res, err := config.LoadFromPath(d.configPath)
	if err != nil {
		return err
	}
	cfg := res.Config

	err = d.loop.Do(ctx, func() error {
		d.engine.SetConfig(cfg)
		d.engine.Reapply(d.manager)
		d.dispatcher.SloppyFocus = cfg.SloppyFocus
		return nil
	})
	if err != nil {
		return err
	}

	if d.opts.LevelVar != nil {
		d.opts.LevelVar.Set(cfg.SlogLevel())
	}
	d.bindKeys(cfg)
	d.logger.Info("configuration reloaded", "path", d.configPath)
	return nil
}

func (d *Daemon) bindKeys(cfg *config.Config) {
	if d.opts.Keys == nil {
		return
	}
	if err := d.opts.Keys.Bind(cfg.Keybindings, d.controller.Post); err != nil {
		d.logger.Warn("some key bindings were not registered", "error", err)
	}
}

// Manager returns the core. It must only be used from the loop.
func (d *Daemon) Manager() *wm.Manager {
	return d.manager
}

// Loop returns the loop every core operation runs on.
func (d *Daemon) Loop() *Loop {
	return d.loop
}

// Controller returns the request executor behind the socket.
func (d *Daemon) Controller() *Controller {
	return d.controller
}
