package layout

import (
	"fmt"

	"github.com/1broseidon/tagwm/internal/geom"
)

const defaultMasterFactor = 0.55

// Tile places MasterCount windows in a left master column sized by
// MasterFactor and stacks the rest in a right column.
type Tile struct{}

func (Tile) Name() string { return NameTile }

func (Tile) Arrange(area geom.Rect, n int, p Params) ([]geom.Rect, error) {
	if n == 0 {
		return nil, nil
	}

	factor := p.MasterFactor
	if factor <= 0 || factor >= 1 {
		factor = defaultMasterFactor
	}
	masters := min(max(p.MasterCount, 0), n)
	stack := n - masters
	gap := p.Gap

	var masterCol, stackCol geom.Rect
	full := geom.Rect{
		X:      area.X + gap,
		Y:      area.Y + gap,
		Width:  area.Width - 2*gap,
		Height: area.Height - 2*gap,
	}

	switch {
	case masters == 0:
		stackCol = full
	case stack == 0:
		masterCol = full
	default:
		masterWidth := int(float64(area.Width)*factor) - gap
		masterCol = geom.Rect{
			X:      area.X + gap,
			Y:      area.Y + gap,
			Width:  masterWidth,
			Height: full.Height,
		}
		stackCol = geom.Rect{
			X:      area.X + masterWidth + 2*gap,
			Y:      area.Y + gap,
			Width:  area.Width - masterWidth - 3*gap,
			Height: full.Height,
		}
	}

	positions := make([]geom.Rect, 0, n)
	cells, err := splitColumn(masterCol, masters, gap)
	if err != nil {
		return nil, fmt.Errorf("insufficient space for tile layout master column: %w", err)
	}
	positions = append(positions, cells...)

	cells, err = splitColumn(stackCol, stack, gap)
	if err != nil {
		return nil, fmt.Errorf("insufficient space for tile layout stack column: %w", err)
	}
	return append(positions, cells...), nil
}

// splitColumn divides col into k cells stacked top to bottom. The last cell
// absorbs the rounding remainder.
func splitColumn(col geom.Rect, k int, gap int) ([]geom.Rect, error) {
	if k == 0 {
		return nil, nil
	}
	cellHeight := (col.Height - (k-1)*gap) / k
	if col.Width <= 0 || cellHeight <= 0 {
		return nil, fmt.Errorf("column=%dx%d cells=%d gap=%d", col.Width, col.Height, k, gap)
	}

	cells := make([]geom.Rect, k)
	for i := range cells {
		y := col.Y + i*(cellHeight+gap)
		h := cellHeight
		if i == k-1 {
			h = col.Y + col.Height - y
		}
		cells[i] = geom.Rect{X: col.X, Y: y, Width: col.Width, Height: h}
	}
	return cells, nil
}
