package hotkeys

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"

	"github.com/1broseidon/tagwm/internal/ipc"
)

// Binding pairs a key sequence such as "Mod4-Shift-1" with the request it
// sends.
type Binding struct {
	Keys    string
	Request *ipc.Request
}

// ParseBindings turns configured key bindings into requests, ordered by key
// sequence. Bindings with an invalid action are skipped and reported
// together.
func ParseBindings(bindings map[string]string) ([]Binding, error) {
	keys := make([]string, 0, len(bindings))
	for k := range bindings {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var parsed []Binding
	var errs []error
	for _, k := range keys {
		req, err := ipc.ParseAction(bindings[k])
		if err != nil {
			errs = append(errs, fmt.Errorf("keybinding %s: %w", k, err))
			continue
		}
		parsed = append(parsed, Binding{Keys: k, Request: req})
	}
	return parsed, errors.Join(errs...)
}

// Handler manages global keyboard shortcuts
type Handler struct {
	xu     *xgbutil.XUtil
	root   xproto.Window
	logger *slog.Logger

	mu sync.Mutex
}

var ignoreModsOnce sync.Once

// NewHandler creates a new hotkey handler grabbing keys on root.
func NewHandler(xu *xgbutil.XUtil, root xproto.Window, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	ignoreModsOnce.Do(func() {
		configureIgnoreMods(xu)
	})

	return &Handler{
		xu:     xu,
		root:   root,
		logger: logger,
	}
}

// Bind replaces every grab with bindings. run is called on the X event
// goroutine for each key press and must not block.
func (h *Handler) Bind(bindings map[string]string, run func(*ipc.Request)) error {
	parsed, parseErr := ParseBindings(bindings)

	h.mu.Lock()
	defer h.mu.Unlock()

	keybind.Detach(h.xu, h.root)

	errs := []error{parseErr}
	for _, b := range parsed {
		req := b.Request
		keys := b.Keys
		err := h.RegisterFunc(keys, func() {
			h.logger.Debug("hotkey triggered", "keys", keys, "command", req.Command)
			run(req)
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to grab %s: %w", keys, err))
		}
	}
	h.logger.Info("key bindings registered", "count", len(parsed))
	return errors.Join(errs...)
}

// RegisterFunc registers an arbitrary hotkey callback.
func (h *Handler) RegisterFunc(keySequence string, callback func()) error {
	return keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		callback()
	}).Connect(h.xu, h.root, keySequence, true)
}

func configureIgnoreMods(xu *xgbutil.XUtil) {
	// Always ignore CapsLock.
	caps := uint16(xproto.ModMaskLock)

	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	xevent.IgnoreMods = ignoreMasks(caps, numLock, scrollLock)
}

// ignoreMasks lists every combination of the lock modifiers so that grabs
// fire regardless of which locks are on. Zero masks and duplicates are
// dropped.
func ignoreMasks(locks ...uint16) []uint16 {
	var base []uint16
	for _, m := range locks {
		if m != 0 && !slices.Contains(base, m) {
			base = append(base, m)
		}
	}

	ignore := []uint16{0}
	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		if !slices.Contains(ignore, mask) {
			ignore = append(ignore, mask)
		}
	}
	return ignore
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
