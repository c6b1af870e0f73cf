package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/1broseidon/tagwm/internal/platform"
	"github.com/1broseidon/tagwm/internal/wm"
)

// OutputLister returns the outputs currently connected to the backend.
type OutputLister func() ([]platform.Output, error)

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// Reconciler periodically compares connected outputs against attached
// monitors and corrects drift, in case a hotplug notification was missed.
type Reconciler struct {
	interval    time.Duration
	loop        *Loop
	manager     *wm.Manager
	listOutputs OutputLister
	logger      *slog.Logger
	kick        chan struct{}
}

// NewReconciler creates a new reconciler. A zero interval disables the
// periodic pass; Kick still triggers one.
func NewReconciler(cfg ReconcilerConfig, loop *Loop, m *wm.Manager, listOutputs OutputLister) *Reconciler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		interval:    cfg.Interval,
		loop:        loop,
		manager:     m,
		listOutputs: listOutputs,
		logger:      logger,
		kick:        make(chan struct{}, 1),
	}
}

// Serve runs reconciliation passes until ctx is cancelled.
func (r *Reconciler) Serve(ctx context.Context) error {
	var tick <-chan time.Time
	if r.interval > 0 {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	r.logger.Info("reconciler started", "interval", r.interval)
	r.reconcile(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return ctx.Err()
		case <-tick:
			r.reconcile(ctx)
		case <-r.kick:
			r.reconcile(ctx)
		}
	}
}

// Kick requests an immediate pass. It never blocks.
func (r *Reconciler) Kick() {
	select {
	case r.kick <- struct{}{}:
	default:
	}
}

// reconcile lists outputs off the loop, then diffs on it.
func (r *Reconciler) reconcile(ctx context.Context) {
	outputs, err := r.listOutputs()
	if err != nil {
		r.logger.Error("reconciler: failed to list outputs", "error", err)
		return
	}
	if err := r.loop.Do(ctx, func() error {
		r.Apply(outputs)
		return nil
	}); err != nil && ctx.Err() == nil {
		r.logger.Warn("reconciler: pass failed", "error", err)
	}
}

// Apply attaches outputs without a monitor and detaches monitors whose
// output is gone. It must run on the loop.
func (r *Reconciler) Apply(outputs []platform.Output) {
	m := r.manager
	present := make(map[string]bool, len(outputs))
	for _, out := range outputs {
		present[out.Name()] = true
		if _, ok := m.MonitorByOutput(out); ok {
			continue
		}
		r.logger.Info("reconciler: attaching output", "output", out.Name())
		if _, err := m.Attach(out); err != nil {
			r.logger.Warn("reconciler: attach failed", "output", out.Name(), "error", err)
		}
	}
	for _, mon := range m.MonitorIDs() {
		info, err := m.Monitor(mon)
		if err != nil || present[info.Name] {
			continue
		}
		r.logger.Info("reconciler: detaching monitor without output", "monitor", info.Name)
		if err := m.Detach(mon); err != nil {
			r.logger.Warn("reconciler: detach failed", "monitor", info.Name, "error", err)
		}
	}
}

func (r *Reconciler) String() string {
	return "reconciler"
}
