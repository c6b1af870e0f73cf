package layout

import (
	"fmt"
	"math"

	"github.com/1broseidon/tagwm/internal/geom"
)

// CalculateGrid determines the grid dimensions for the given number of windows.
func CalculateGrid(numWindows int) (rows, cols int) {
	if numWindows == 0 {
		return 0, 0
	}

	// Columns first (ceiling of square root), then the rows needed.
	cols = int(math.Ceil(math.Sqrt(float64(numWindows))))
	rows = int(math.Ceil(float64(numWindows) / float64(cols)))

	return rows, cols
}

// Grid arranges windows in a near-square grid.
type Grid struct {
	// FlexibleLastRow widens the windows of an incomplete last row to fill
	// the full width.
	FlexibleLastRow bool
}

func (Grid) Name() string { return NameGrid }

func (g Grid) Arrange(area geom.Rect, n int, p Params) ([]geom.Rect, error) {
	rows, cols := CalculateGrid(n)
	return gridPositions(area, n, rows, cols, p.Gap, g.FlexibleLastRow)
}

// Columns places every window side by side in a single row.
type Columns struct{}

func (Columns) Name() string { return NameColumns }

func (Columns) Arrange(area geom.Rect, n int, p Params) ([]geom.Rect, error) {
	return gridPositions(area, n, 1, n, p.Gap, false)
}

// Rows stacks every window in a single column.
type Rows struct{}

func (Rows) Name() string { return NameRows }

func (Rows) Arrange(area geom.Rect, n int, p Params) ([]geom.Rect, error) {
	return gridPositions(area, n, n, 1, p.Gap, false)
}

func gridPositions(area geom.Rect, numWindows, rows, cols, gapSize int, flexibleLastRow bool) ([]geom.Rect, error) {
	if numWindows == 0 {
		return nil, nil
	}
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("invalid grid dimensions: rows=%d cols=%d", rows, cols)
	}

	// One gap before each column and one after the last.
	totalHorizontalGaps := (cols + 1) * gapSize
	totalVerticalGaps := (rows + 1) * gapSize

	slotWidth := (area.Width - totalHorizontalGaps) / cols
	slotHeight := (area.Height - totalVerticalGaps) / rows

	if slotWidth <= 0 || slotHeight <= 0 {
		return nil, fmt.Errorf(
			"insufficient space for layout: area=%dx%d rows=%d cols=%d gap=%d (slot=%dx%d)",
			area.Width, area.Height, rows, cols, gapSize, slotWidth, slotHeight,
		)
	}

	lastRowIndex := rows - 1
	windowsInLastRow := numWindows - (lastRowIndex * cols)
	if windowsInLastRow <= 0 {
		windowsInLastRow = cols
	}

	var lastRowSlotWidth int
	if flexibleLastRow && windowsInLastRow < cols {
		lastRowHorizontalGaps := (windowsInLastRow + 1) * gapSize
		lastRowSlotWidth = (area.Width - lastRowHorizontalGaps) / windowsInLastRow
	}

	positions := make([]geom.Rect, numWindows)
	for i := 0; i < numWindows; i++ {
		row := i / cols
		col := i % cols

		width := slotWidth
		x := area.X + gapSize + col*(slotWidth+gapSize)
		if flexibleLastRow && row == lastRowIndex && windowsInLastRow < cols {
			lastRowCol := i - (lastRowIndex * cols)
			width = lastRowSlotWidth
			x = area.X + gapSize + lastRowCol*(lastRowSlotWidth+gapSize)
		}

		positions[i] = geom.Rect{
			X:      x,
			Y:      area.Y + gapSize + row*(slotHeight+gapSize),
			Width:  width,
			Height: slotHeight,
		}
	}

	return positions, nil
}
