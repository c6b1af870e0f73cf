package geom

import "testing"

func TestRectContainsExcludesFarEdges(t *testing.T) {
	r := Rect{X: 0, Y: 0, Width: 100, Height: 50}
	tests := []struct {
		p    Point
		want bool
	}{
		{Point{0, 0}, true},
		{Point{99, 49}, true},
		{Point{100, 10}, false},
		{Point{10, 50}, false},
		{Point{-1, 0}, false},
	}
	for _, tt := range tests {
		if got := r.Contains(tt.p); got != tt.want {
			t.Errorf("Contains(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestRectIntersect(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 100, Height: 100}
	b := Rect{X: 50, Y: 80, Width: 100, Height: 100}
	got := a.Intersect(b)
	want := Rect{X: 50, Y: 80, Width: 50, Height: 20}
	if got != want {
		t.Fatalf("Intersect = %+v, want %+v", got, want)
	}

	if a.Intersects(Rect{X: 100, Y: 0, Width: 10, Height: 10}) {
		t.Fatalf("adjacent rects must not intersect")
	}
}

func TestRectShrinkClampsToMinimumSize(t *testing.T) {
	r := Rect{X: 0, Y: 0, Width: 100, Height: 40}
	got := r.Shrink(Strut{Top: 30, Bottom: 30, Left: 10})
	if got.X != 10 || got.Y != 30 {
		t.Fatalf("unexpected origin %+v", got)
	}
	if got.Width != 90 || got.Height != 1 {
		t.Fatalf("expected 90x1, got %dx%d", got.Width, got.Height)
	}
}

func TestDistance(t *testing.T) {
	if d := Distance(Point{0, 0}, Point{3, 4}); d != 5 {
		t.Fatalf("Distance = %v, want 5", d)
	}
}
