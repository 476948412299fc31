package terrain

// Point3 is one polygon vertex in world coordinates.
type Point3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Polygon is an ordered ring of points, implicitly closed (the last point
// connects back to the first). A polygon is usable for spatial masking only
// when it carries at least 3 points; anything smaller is treated as a silent
// no-op by the masking code, never as an error.
type Polygon struct {
	Points []Point3
}

// minUsablePoints is the smallest ring that encloses any area.
const minUsablePoints = 3

// Usable reports whether the ring has enough points to enclose area.
func (p Polygon) Usable() bool { return len(p.Points) >= minUsablePoints }

// Bounds returns the world-space bounding box over (x, y). ok is false for
// an empty ring.
func (p Polygon) Bounds() (minX, maxX, minY, maxY float64, ok bool) {
	if len(p.Points) == 0 {
		return 0, 0, 0, 0, false
	}
	minX, maxX = p.Points[0].X, p.Points[0].X
	minY, maxY = p.Points[0].Y, p.Points[0].Y
	for _, pt := range p.Points[1:] {
		if pt.X < minX {
			minX = pt.X
		}
		if pt.X > maxX {
			maxX = pt.X
		}
		if pt.Y < minY {
			minY = pt.Y
		}
		if pt.Y > maxY {
			maxY = pt.Y
		}
	}
	return minX, maxX, minY, maxY, true
}

// ContainsXY classifies a point against the ring with the even-odd
// (ray casting) rule. Points exactly on an edge may land on either side;
// grid cell centers rarely sit on polygon edges in practice.
func (p Polygon) ContainsXY(x, y float64) bool {
	if !p.Usable() {
		return false
	}
	inside := false
	n := len(p.Points)
	j := n - 1
	for i := 0; i < n; i++ {
		pi, pj := p.Points[i], p.Points[j]
		if (pi.Y > y) != (pj.Y > y) {
			xCross := (pj.X-pi.X)*(y-pi.Y)/(pj.Y-pi.Y) + pi.X
			if x < xCross {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}
