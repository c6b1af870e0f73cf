package wm

import (
	"fmt"
	"strconv"
	"strings"
)

// ref is a generation-counted index into an arena. The zero ref is null:
// live slots always carry a generation of at least one.
type ref struct {
	index uint32
	gen   uint32
}

func (r ref) IsZero() bool { return r.gen == 0 }

func (r ref) String() string {
	if r.IsZero() {
		return ""
	}
	return strconv.FormatUint(uint64(r.index), 10) + ":" + strconv.FormatUint(uint64(r.gen), 10)
}

func parseRef(s string) (ref, error) {
	if s == "" {
		return ref{}, nil
	}
	idx, gen, ok := strings.Cut(s, ":")
	if !ok {
		return ref{}, fmt.Errorf("invalid id %q: expected index:generation", s)
	}
	i, err := strconv.ParseUint(idx, 10, 32)
	if err != nil {
		return ref{}, fmt.Errorf("invalid id %q: %w", s, err)
	}
	g, err := strconv.ParseUint(gen, 10, 32)
	if err != nil {
		return ref{}, fmt.Errorf("invalid id %q: %w", s, err)
	}
	if g == 0 {
		return ref{}, fmt.Errorf("invalid id %q: generation must be positive", s)
	}
	return ref{index: uint32(i), gen: uint32(g)}, nil
}

// ClientID identifies a client. A stale ClientID (its client was finalized)
// never resolves to a newer client that reused the slot.
type ClientID struct{ ref }

// MonitorID identifies a monitor.
type MonitorID struct{ ref }

// TagID identifies a tag.
type TagID struct{ ref }

func ParseClientID(s string) (ClientID, error) {
	r, err := parseRef(s)
	return ClientID{r}, err
}

func ParseMonitorID(s string) (MonitorID, error) {
	r, err := parseRef(s)
	return MonitorID{r}, err
}

func ParseTagID(s string) (TagID, error) {
	r, err := parseRef(s)
	return TagID{r}, err
}

func (id ClientID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id MonitorID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id TagID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }

func (id *ClientID) UnmarshalText(b []byte) (err error) {
	*id, err = ParseClientID(string(b))
	return err
}

func (id *MonitorID) UnmarshalText(b []byte) (err error) {
	*id, err = ParseMonitorID(string(b))
	return err
}

func (id *TagID) UnmarshalText(b []byte) (err error) {
	*id, err = ParseTagID(string(b))
	return err
}

type slot[T any] struct {
	gen uint32
	val *T
}

// arena owns values of T and hands out generation-counted refs to them.
type arena[T any] struct {
	slots []slot[T]
	free  []uint32
}

func (a *arena[T]) insert(v *T) ref {
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.slots[idx]
		s.val = v
		return ref{index: idx, gen: s.gen}
	}
	a.slots = append(a.slots, slot[T]{gen: 1, val: v})
	return ref{index: uint32(len(a.slots) - 1), gen: 1}
}

func (a *arena[T]) get(r ref) *T {
	if r.IsZero() || int(r.index) >= len(a.slots) {
		return nil
	}
	s := a.slots[r.index]
	if s.gen != r.gen {
		return nil
	}
	return s.val
}

// remove frees the slot and bumps its generation so outstanding refs go stale.
func (a *arena[T]) remove(r ref) bool {
	if a.get(r) == nil {
		return false
	}
	s := &a.slots[r.index]
	s.val = nil
	s.gen++
	a.free = append(a.free, r.index)
	return true
}

// each visits live values in slot order.
func (a *arena[T]) each(fn func(ref, *T)) {
	for i, s := range a.slots {
		if s.val != nil {
			fn(ref{index: uint32(i), gen: s.gen}, s.val)
		}
	}
}

func (a *arena[T]) len() int {
	return len(a.slots) - len(a.free)
}
