package geom

import (
	"fmt"
	"math"
)

// Point is a position in global layout coordinates.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Rect describes a rectangular region in global layout coordinates.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Strut reserves space along the edges of a rectangle.
type Strut struct {
	Top    int `json:"top" yaml:"top"`
	Bottom int `json:"bottom" yaml:"bottom"`
	Left   int `json:"left" yaml:"left"`
	Right  int `json:"right" yaml:"right"`
}

func (s Strut) IsZero() bool {
	return s.Top == 0 && s.Bottom == 0 && s.Left == 0 && s.Right == 0
}

// String formats r as WIDTHxHEIGHT+X+Y.
func (r Rect) String() string {
	return fmt.Sprintf("%dx%d%+d%+d", r.Width, r.Height, r.X, r.Y)
}

func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Contains reports whether p lies inside r. The right and bottom edges are
// exclusive.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.Width && p.Y >= r.Y && p.Y < r.Y+r.Height
}

// Intersect returns the overlap of r and o, or the zero Rect when they do not
// overlap.
func (r Rect) Intersect(o Rect) Rect {
	x1 := max(r.X, o.X)
	y1 := max(r.Y, o.Y)
	x2 := min(r.X+r.Width, o.X+o.Width)
	y2 := min(r.Y+r.Height, o.Y+o.Height)
	if x2 <= x1 || y2 <= y1 {
		return Rect{}
	}
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

func (r Rect) Intersects(o Rect) bool {
	return !r.Intersect(o).Empty()
}

// Shrink removes the strut from the edges of r. The result never drops below
// a 1x1 rectangle.
func (r Rect) Shrink(s Strut) Rect {
	r.X += s.Left
	r.Y += s.Top
	r.Width -= s.Left + s.Right
	r.Height -= s.Top + s.Bottom
	if r.Width < 1 {
		r.Width = 1
	}
	if r.Height < 1 {
		r.Height = 1
	}
	return r
}

// Inset shrinks r by n pixels on every side.
func (r Rect) Inset(n int) Rect {
	return r.Shrink(Strut{Top: n, Bottom: n, Left: n, Right: n})
}

// Distance is the straight-line distance between two points.
func Distance(a, b Point) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return math.Hypot(dx, dy)
}
