package terrain

import "testing"

func square(x0, y0, x1, y1 float64) Polygon {
	return Polygon{Points: []Point3{
		{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1},
	}}
}

func TestPolygonUsable(t *testing.T) {
	tests := []struct {
		name   string
		points int
		usable bool
	}{
		{"empty", 0, false},
		{"single point", 1, false},
		{"segment", 2, false},
		{"triangle", 3, true},
		{"quad", 4, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Polygon{Points: make([]Point3, tt.points)}
			if p.Usable() != tt.usable {
				t.Fatalf("Usable() with %d points = %v, want %v", tt.points, p.Usable(), tt.usable)
			}
		})
	}
}

func TestPolygonBounds(t *testing.T) {
	p := Polygon{Points: []Point3{{X: 3, Y: -1}, {X: -2, Y: 4}, {X: 1, Y: 2}}}
	minX, maxX, minY, maxY, ok := p.Bounds()
	if !ok {
		t.Fatal("expected bounds for non-empty ring")
	}
	if minX != -2 || maxX != 3 || minY != -1 || maxY != 4 {
		t.Fatalf("bounds = (%v..%v, %v..%v)", minX, maxX, minY, maxY)
	}

	if _, _, _, _, ok := (Polygon{}).Bounds(); ok {
		t.Fatal("empty ring must report no bounds")
	}
}

func TestContainsXYEvenOdd(t *testing.T) {
	p := square(0, 0, 4, 4)
	if !p.ContainsXY(2, 2) {
		t.Fatal("center must be inside")
	}
	if p.ContainsXY(5, 2) || p.ContainsXY(2, -1) {
		t.Fatal("points beyond the ring must be outside")
	}

	// Concave ring (L shape): the notch is outside despite being inside
	// the bounding box.
	l := Polygon{Points: []Point3{
		{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 2}, {X: 2, Y: 2}, {X: 2, Y: 4}, {X: 0, Y: 4},
	}}
	if !l.ContainsXY(1, 3) {
		t.Fatal("upper arm of the L must be inside")
	}
	if l.ContainsXY(3, 3) {
		t.Fatal("the notch must be outside")
	}
}

func TestContainsXYDegenerate(t *testing.T) {
	p := Polygon{Points: []Point3{{X: 0, Y: 0}, {X: 1, Y: 1}}}
	if p.ContainsXY(0.5, 0.5) {
		t.Fatal("a segment can contain nothing")
	}
}
