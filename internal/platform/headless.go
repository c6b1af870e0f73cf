package platform

import (
	"context"
	"slices"
	"sync"

	"github.com/1broseidon/tagwm/internal/geom"
)

// OpKind names a recorded scene operation.
type OpKind string

const (
	OpEnable   OpKind = "enable"
	OpDisable  OpKind = "disable"
	OpPosition OpKind = "position"
	OpBorder   OpKind = "border"
	OpRestack  OpKind = "restack"
	OpFocus    OpKind = "focus"
	OpRaise    OpKind = "raise"
	OpSuppress OpKind = "suppress"
)

// Op is one recorded scene operation.
type Op struct {
	Kind    OpKind
	Surface SurfaceID
	X, Y    int
	Width   int
	Color   string
	Output  string
	Order   []SurfaceID
	On      bool
}

// Headless is an in-memory backend without a display. Its scene records every
// operation in order, which makes it usable both for dry runs of the daemon
// and for asserting the ordering of scene updates.
type Headless struct {
	mu         sync.Mutex
	ops        []Op
	enabled    map[SurfaceID]bool
	positions  map[SurfaceID]geom.Point
	order      []SurfaceID
	focus      SurfaceID
	suppressed map[string]bool
	pointer    geom.Point
	hasPointer bool
	outputs    []Output
	events     chan Event

	// Observe, when set, is called after every scene mutation.
	Observe func()
}

// NewHeadless creates a headless backend with the given outputs.
func NewHeadless(outputs ...Output) *Headless {
	return &Headless{
		enabled:    make(map[SurfaceID]bool),
		positions:  make(map[SurfaceID]geom.Point),
		suppressed: make(map[string]bool),
		outputs:    outputs,
		events:     make(chan Event, 64),
	}
}

func (h *Headless) record(op Op) {
	h.mu.Lock()
	h.ops = append(h.ops, op)
	observe := h.Observe
	h.mu.Unlock()
	if observe != nil {
		observe()
	}
}

func (h *Headless) Scene() Scene { return h }

func (h *Headless) Outputs() ([]Output, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.outputs), nil
}

// SetOutputs replaces the set of connected outputs.
func (h *Headless) SetOutputs(outputs ...Output) {
	h.mu.Lock()
	h.outputs = outputs
	h.mu.Unlock()
}

// Inject queues an event for Run to emit.
func (h *Headless) Inject(ev Event) {
	h.events <- ev
}

func (h *Headless) Run(ctx context.Context, emit func(Event)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-h.events:
			emit(ev)
		}
	}
}

func (h *Headless) Close() error { return nil }

func (h *Headless) SetEnabled(s Surface, enabled bool) {
	h.mu.Lock()
	h.enabled[s.ID()] = enabled
	h.mu.Unlock()
	kind := OpDisable
	if enabled {
		kind = OpEnable
	}
	h.record(Op{Kind: kind, Surface: s.ID()})
}

func (h *Headless) SetPosition(s Surface, x, y int) {
	h.mu.Lock()
	h.positions[s.ID()] = geom.Point{X: x, Y: y}
	h.mu.Unlock()
	h.record(Op{Kind: OpPosition, Surface: s.ID(), X: x, Y: y})
}

func (h *Headless) SetBorder(s Surface, width int, color string) {
	h.record(Op{Kind: OpBorder, Surface: s.ID(), Width: width, Color: color})
}

func (h *Headless) Restack(bottomToTop []Surface) {
	ids := make([]SurfaceID, len(bottomToTop))
	for i, s := range bottomToTop {
		ids[i] = s.ID()
	}
	h.mu.Lock()
	h.order = ids
	h.mu.Unlock()
	h.record(Op{Kind: OpRestack, Order: slices.Clone(ids)})
}

func (h *Headless) SetKeyboardFocus(s Surface) {
	var id SurfaceID
	if s != nil {
		id = s.ID()
	}
	h.mu.Lock()
	h.focus = id
	h.mu.Unlock()
	h.record(Op{Kind: OpFocus, Surface: id})
}

func (h *Headless) Raise(s Surface) {
	h.mu.Lock()
	id := s.ID()
	if i := slices.Index(h.order, id); i >= 0 {
		h.order = append(slices.Delete(h.order, i, i+1), id)
	}
	h.mu.Unlock()
	h.record(Op{Kind: OpRaise, Surface: id})
}

func (h *Headless) SetBackgroundSuppressed(o Output, suppressed bool) {
	h.mu.Lock()
	h.suppressed[o.Name()] = suppressed
	h.mu.Unlock()
	h.record(Op{Kind: OpSuppress, Output: o.Name(), On: suppressed})
}

func (h *Headless) Pointer() (geom.Point, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pointer, h.hasPointer
}

// SetPointer moves the simulated pointer.
func (h *Headless) SetPointer(p geom.Point) {
	h.mu.Lock()
	h.pointer = p
	h.hasPointer = true
	h.mu.Unlock()
}

// Ops returns a copy of the recorded operations.
func (h *Headless) Ops() []Op {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.ops)
}

// ResetOps discards the recorded operations.
func (h *Headless) ResetOps() {
	h.mu.Lock()
	h.ops = nil
	h.mu.Unlock()
}

// Enabled reports whether a surface is currently part of the rendered scene.
func (h *Headless) Enabled(id SurfaceID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.enabled[id]
}

// Position returns the last position set for a surface.
func (h *Headless) Position(id SurfaceID) geom.Point {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.positions[id]
}

// Order returns the last applied stacking order, bottom to top.
func (h *Headless) Order() []SurfaceID {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.order)
}

// Focus returns the surface holding keyboard focus, or zero.
func (h *Headless) Focus() SurfaceID {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.focus
}

// Suppressed reports whether background rendering is suppressed on an output.
func (h *Headless) Suppressed(output string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.suppressed[output]
}

// HeadlessSurface is a Surface that records the requests sent to it.
type HeadlessSurface struct {
	id SurfaceID

	mu             sync.Mutex
	deferResize    bool
	resizeErr      error
	nextToken      uint32
	resizes        []geom.Rect
	active         bool
	closeRequested bool
	popupsClosed   int
}

func NewHeadlessSurface(id SurfaceID) *HeadlessSurface {
	return &HeadlessSurface{id: id}
}

func (s *HeadlessSurface) ID() SurfaceID { return s.id }

// DeferResizes makes subsequent resize requests return a pending token
// instead of taking effect immediately.
func (s *HeadlessSurface) DeferResizes(deferred bool) {
	s.mu.Lock()
	s.deferResize = deferred
	s.mu.Unlock()
}

// FailResizes makes subsequent resize requests fail with err.
func (s *HeadlessSurface) FailResizes(err error) {
	s.mu.Lock()
	s.resizeErr = err
	s.mu.Unlock()
}

func (s *HeadlessSurface) RequestResize(width, height int) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resizeErr != nil {
		return 0, s.resizeErr
	}
	s.resizes = append(s.resizes, geom.Rect{Width: width, Height: height})
	if !s.deferResize {
		return 0, nil
	}
	s.nextToken++
	return s.nextToken, nil
}

func (s *HeadlessSurface) RequestActivate(active bool) error {
	s.mu.Lock()
	s.active = active
	s.mu.Unlock()
	return nil
}

func (s *HeadlessSurface) RequestClose() error {
	s.mu.Lock()
	s.closeRequested = true
	s.mu.Unlock()
	return nil
}

func (s *HeadlessSurface) ClosePopups() {
	s.mu.Lock()
	s.popupsClosed++
	s.mu.Unlock()
}

// Resizes returns every size requested so far.
func (s *HeadlessSurface) Resizes() []geom.Rect {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.resizes)
}

func (s *HeadlessSurface) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *HeadlessSurface) CloseRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeRequested
}

func (s *HeadlessSurface) PopupsClosed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.popupsClosed
}

// HeadlessOutput is a virtual output with a fixed preferred mode.
type HeadlessOutput struct {
	name string

	mu        sync.Mutex
	mode      Mode
	modeErr   error
	commitErr error
	bounds    geom.Rect
	scale     float64
	commits   int
}

func NewHeadlessOutput(name string, width, height int) *HeadlessOutput {
	return &HeadlessOutput{name: name, mode: Mode{Width: width, Height: height, Refresh: 60000}}
}

func (o *HeadlessOutput) Name() string { return o.name }

func (o *HeadlessOutput) PreferredMode() (Mode, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.modeErr != nil {
		return Mode{}, o.modeErr
	}
	return o.mode, nil
}

// SetMode changes the preferred mode; a non-nil err makes PreferredMode fail.
func (o *HeadlessOutput) SetMode(m Mode, err error) {
	o.mu.Lock()
	o.mode = m
	o.modeErr = err
	o.mu.Unlock()
}

// FailCommits makes subsequent commits fail with err.
func (o *HeadlessOutput) FailCommits(err error) {
	o.mu.Lock()
	o.commitErr = err
	o.mu.Unlock()
}

func (o *HeadlessOutput) Commit(bounds geom.Rect, scale float64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.commits++
	if o.commitErr != nil {
		return o.commitErr
	}
	o.bounds = bounds
	o.scale = scale
	return nil
}

// Bounds returns the last successfully committed geometry.
func (o *HeadlessOutput) Bounds() geom.Rect {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.bounds
}

// Commits returns the number of commit attempts.
func (o *HeadlessOutput) Commits() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.commits
}
