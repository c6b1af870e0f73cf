package layout

import (
	"fmt"
	"sort"

	"github.com/1broseidon/tagwm/internal/geom"
)

// Built-in strategy names.
const (
	NameTile     = "tile"
	NameMonocle  = "monocle"
	NameGrid     = "grid"
	NameColumns  = "columns"
	NameRows     = "rows"
	NameFloating = "floating"
)

// Params carries the per-tag layout parameters.
type Params struct {
	MasterFactor float64
	MasterCount  int
	Gap          int
}

// Strategy computes target geometry for n tiled windows inside area.
//
// A nil slice with a nil error means the strategy leaves every window where
// the user put it.
type Strategy interface {
	Name() string
	Arrange(area geom.Rect, n int, p Params) ([]geom.Rect, error)
}

var builtin = map[string]Strategy{
	NameTile:     Tile{},
	NameMonocle:  Monocle{},
	NameGrid:     Grid{FlexibleLastRow: true},
	NameColumns:  Columns{},
	NameRows:     Rows{},
	NameFloating: Floating{},
}

// Lookup returns the built-in strategy with the given name.
func Lookup(name string) (Strategy, error) {
	s, ok := builtin[name]
	if !ok {
		return nil, fmt.Errorf("layout %q not found", name)
	}
	return s, nil
}

// Names returns every built-in strategy name, sorted.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Cycle returns the name that follows current in order, moving by step and
// wrapping around. An unknown current name yields the first entry.
func Cycle(order []string, current string, step int) string {
	if len(order) == 0 {
		return current
	}
	idx := -1
	for i, name := range order {
		if name == current {
			idx = i
			break
		}
	}
	if idx < 0 {
		return order[0]
	}
	n := len(order)
	return order[((idx+step)%n+n)%n]
}

// Floating leaves geometry untouched.
type Floating struct{}

func (Floating) Name() string { return NameFloating }

func (Floating) Arrange(geom.Rect, int, Params) ([]geom.Rect, error) {
	return nil, nil
}

// Monocle gives every window the whole area.
type Monocle struct{}

func (Monocle) Name() string { return NameMonocle }

func (Monocle) Arrange(area geom.Rect, n int, p Params) ([]geom.Rect, error) {
	if n == 0 {
		return nil, nil
	}
	r := area.Inset(p.Gap)
	out := make([]geom.Rect, n)
	for i := range out {
		out[i] = r
	}
	return out, nil
}
