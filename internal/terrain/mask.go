package terrain

import "sort"

// BoundingBoxIndices maps a polygon's world-space extent onto inclusive
// index ranges of a grid's coordinate axes. The value is transient: it is
// recomputed for every masking pass and never cached.
type BoundingBoxIndices struct {
	MinXIdx, MaxXIdx int
	MinYIdx, MaxYIdx int
}

// boundingBoxIndices locates the sub-grid covered by the polygon's bounding
// box via binary search over the monotonic axes. ok is false when the
// polygon is degenerate or its box misses the grid entirely; callers treat
// that as "skip".
func boundingBoxIndices(p Polygon, xs, ys []float64) (BoundingBoxIndices, bool) {
	minX, maxX, minY, maxY, ok := p.Bounds()
	if !ok || !p.Usable() {
		return BoundingBoxIndices{}, false
	}

	bb := BoundingBoxIndices{
		MinXIdx: sort.SearchFloat64s(xs, minX),
		MinYIdx: sort.SearchFloat64s(ys, minY),
		// First index strictly beyond the box, minus one: the last axis
		// sample still inside it.
		MaxXIdx: sort.Search(len(xs), func(i int) bool { return xs[i] > maxX }) - 1,
		MaxYIdx: sort.Search(len(ys), func(i int) bool { return ys[i] > maxY }) - 1,
	}
	if bb.MinXIdx > bb.MaxXIdx || bb.MinYIdx > bb.MaxYIdx {
		return BoundingBoxIndices{}, false
	}
	return bb, true
}

// MaskPolygon classifies every cell center inside the polygon's bounding
// sub-grid with the even-odd rule. The returned mask is shaped
// [MaxYIdx-MinYIdx+1][MaxXIdx-MinXIdx+1] and aligned with the returned
// index bounds. ok is false for the degenerate/no-intersection cases.
func MaskPolygon(p Polygon, xs, ys []float64) (BoundingBoxIndices, [][]bool, bool) {
	bb, ok := boundingBoxIndices(p, xs, ys)
	if !ok {
		return BoundingBoxIndices{}, nil, false
	}

	mask := make([][]bool, bb.MaxYIdx-bb.MinYIdx+1)
	for i := range mask {
		row := make([]bool, bb.MaxXIdx-bb.MinXIdx+1)
		y := ys[bb.MinYIdx+i]
		for j := range row {
			row[j] = p.ContainsXY(xs[bb.MinXIdx+j], y)
		}
		mask[i] = row
	}
	return bb, mask, true
}
