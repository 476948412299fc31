package terrain

import (
	"fmt"
	"math"

	"github.com/fogleman/delaunay"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// InterpolationMethod selects the scattered-data scheme used to fill
// no-data cells.
type InterpolationMethod string

const (
	// MethodNearest fills every no-data cell with the value of the nearest
	// valid sample. It always fills the whole grid.
	MethodNearest InterpolationMethod = "nearest"
	// MethodLinear fills via barycentric interpolation over a Delaunay
	// triangulation of the valid samples.
	MethodLinear InterpolationMethod = "linear"
	// MethodCubic fills via the same triangulation with least-squares
	// vertex gradients and a Hermite-blended cubic evaluation.
	MethodCubic InterpolationMethod = "cubic"
)

// ParseMethod validates a method name from config or the API.
func ParseMethod(s string) (InterpolationMethod, error) {
	switch InterpolationMethod(s) {
	case MethodNearest, MethodLinear, MethodCubic:
		return InterpolationMethod(s), nil
	}
	return "", fmt.Errorf("unknown interpolation method %q", s)
}

// InterpolateNaN fills the no-data cells of m in place. Valid cells are the
// known samples, positioned at their (col, row) grid coordinates; no-data
// cells are the query points. Cells that already hold data are never
// modified, for any method.
//
// Policy: linear and cubic are triangulation based and do not extrapolate,
// so query points outside the convex hull of the samples remain NaN. Only
// nearest fills everything.
// With fewer than 3 samples a triangulation is undefined, so linear and
// cubic leave the matrix untouched while nearest still copies from whatever
// samples exist.
func InterpolateNaN(m *mat.Dense, method InterpolationMethod) error {
	rows, cols := m.Dims()

	var samples gridSamples
	var queries [][2]int // (row, col) of each no-data cell
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) {
				queries = append(queries, [2]int{i, j})
			} else {
				samples = append(samples, gridSample{x: float64(j), y: float64(i), h: v})
			}
		}
	}
	if len(queries) == 0 || len(samples) == 0 {
		return nil
	}

	switch method {
	case MethodNearest:
		fillNearest(m, samples, queries)
		return nil
	case MethodLinear, MethodCubic:
		if len(samples) < minUsablePoints {
			return nil
		}
		return fillTriangulated(m, samples, queries, method == MethodCubic)
	}
	return fmt.Errorf("unknown interpolation method %q", method)
}

// gridSample is one valid grid cell used as a known sample. It implements
// kdtree.Comparable over the (x, y) plane; the height rides along.
type gridSample struct {
	x, y float64
	h    float64
}

func (s gridSample) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(gridSample)
	switch d {
	case 0:
		return s.x - q.x
	case 1:
		return s.y - q.y
	}
	panic("terrain: illegal kd-tree dimension")
}

func (s gridSample) Dims() int { return 2 }

func (s gridSample) Distance(c kdtree.Comparable) float64 {
	q := c.(gridSample)
	dx, dy := s.x-q.x, s.y-q.y
	return dx*dx + dy*dy
}

// gridSamples implements kdtree.Interface following the slice/plane pattern
// from the gonum kd-tree documentation.
type gridSamples []gridSample

func (p gridSamples) Index(i int) kdtree.Comparable         { return p[i] }
func (p gridSamples) Len() int                              { return len(p) }
func (p gridSamples) Pivot(d kdtree.Dim) int                { return samplePlane{Dim: d, gridSamples: p}.Pivot() }
func (p gridSamples) Slice(start, end int) kdtree.Interface { return p[start:end] }

type samplePlane struct {
	kdtree.Dim
	gridSamples
}

func (p samplePlane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.gridSamples[i].x < p.gridSamples[j].x
	case 1:
		return p.gridSamples[i].y < p.gridSamples[j].y
	}
	panic("terrain: illegal kd-tree dimension")
}

func (p samplePlane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }

func (p samplePlane) Slice(start, end int) kdtree.SortSlicer {
	p.gridSamples = p.gridSamples[start:end]
	return p
}

func (p samplePlane) Swap(i, j int) {
	p.gridSamples[i], p.gridSamples[j] = p.gridSamples[j], p.gridSamples[i]
}

func fillNearest(m *mat.Dense, samples gridSamples, queries [][2]int) {
	tree := kdtree.New(samples, false)
	for _, q := range queries {
		got, _ := tree.Nearest(gridSample{x: float64(q[1]), y: float64(q[0])})
		m.Set(q[0], q[1], got.(gridSample).h)
	}
}

// insideEps tolerates floating point noise on triangle edges so that query
// points sitting exactly on a sample row or column still resolve.
const insideEps = 1e-9

func fillTriangulated(m *mat.Dense, samples gridSamples, queries [][2]int, cubic bool) error {
	pts := make([]delaunay.Point, len(samples))
	for i, s := range samples {
		pts[i] = delaunay.Point{X: s.x, Y: s.y}
	}
	tri, err := delaunay.Triangulate(pts)
	if err != nil || len(tri.Triangles) == 0 {
		// All samples collinear (or otherwise untriangulable): there is no
		// interior to interpolate into, leave every query as no-data.
		return nil
	}

	var gradX, gradY []float64
	if cubic {
		gradX, gradY = vertexGradients(tri, samples)
	}

	// Remember the last containing triangle: grid queries are visited in
	// scan order, so consecutive queries usually land in the same or an
	// adjacent triangle.
	last := 0
	for _, q := range queries {
		px, py := float64(q[1]), float64(q[0])
		t, w0, w1, w2 := locateTriangle(tri, last, px, py)
		if t < 0 {
			continue // outside the convex hull, stays NaN by policy
		}
		last = t
		i0, i1, i2 := tri.Triangles[3*t], tri.Triangles[3*t+1], tri.Triangles[3*t+2]
		var v float64
		if cubic {
			v = cubicBlend(px, py,
				samples[i0], gradX[i0], gradY[i0], w0,
				samples[i1], gradX[i1], gradY[i1], w1,
				samples[i2], gradX[i2], gradY[i2], w2)
		} else {
			v = w0*samples[i0].h + w1*samples[i1].h + w2*samples[i2].h
		}
		m.Set(q[0], q[1], v)
	}
	return nil
}

// barycentric returns the barycentric coordinates of (px, py) in triangle t.
// ok is false for a degenerate (zero area) triangle.
func barycentric(tri *delaunay.Triangulation, t int, px, py float64) (w0, w1, w2 float64, ok bool) {
	a := tri.Points[tri.Triangles[3*t]]
	b := tri.Points[tri.Triangles[3*t+1]]
	c := tri.Points[tri.Triangles[3*t+2]]

	d := (b.Y-c.Y)*(a.X-c.X) + (c.X-b.X)*(a.Y-c.Y)
	if d == 0 {
		return 0, 0, 0, false
	}
	w0 = ((b.Y-c.Y)*(px-c.X) + (c.X-b.X)*(py-c.Y)) / d
	w1 = ((c.Y-a.Y)*(px-c.X) + (a.X-c.X)*(py-c.Y)) / d
	w2 = 1 - w0 - w1
	return w0, w1, w2, true
}

// locateTriangle walks the triangulation from a starting triangle toward the
// query point, crossing the half-edge opposite the most negative barycentric
// coordinate. It returns the containing triangle and the query's barycentric
// coordinates, or -1 when the point lies outside the convex hull.
func locateTriangle(tri *delaunay.Triangulation, start int, px, py float64) (int, float64, float64, float64) {
	nTriangles := len(tri.Triangles) / 3
	t := start
	if t < 0 || t >= nTriangles {
		t = 0
	}
	for step := 0; step <= 2*nTriangles; step++ {
		w0, w1, w2, ok := barycentric(tri, t, px, py)
		if !ok {
			break // degenerate triangle, fall through to the scan
		}
		if w0 >= -insideEps && w1 >= -insideEps && w2 >= -insideEps {
			return t, w0, w1, w2
		}
		// The edge opposite vertex i is the half-edge starting at local
		// index (i+1)%3.
		worst := 0
		if w1 < w0 {
			worst = 1
		}
		if w2 < math.Min(w0, w1) {
			worst = 2
		}
		he := tri.Halfedges[3*t+(worst+1)%3]
		if he < 0 {
			return -1, 0, 0, 0 // walked off the hull
		}
		t = he / 3
	}
	// Walk cycled through degenerate geometry; do one exact scan.
	for t = 0; t < nTriangles; t++ {
		w0, w1, w2, ok := barycentric(tri, t, px, py)
		if ok && w0 >= -insideEps && w1 >= -insideEps && w2 >= -insideEps {
			return t, w0, w1, w2
		}
	}
	return -1, 0, 0, 0
}

// vertexGradients estimates a height gradient at every sample by a
// least-squares plane fit over its Delaunay neighbors.
func vertexGradients(tri *delaunay.Triangulation, samples gridSamples) (gradX, gradY []float64) {
	n := len(samples)
	neighbors := make(map[int]map[int]struct{}, n)
	addEdge := func(a, b int) {
		if neighbors[a] == nil {
			neighbors[a] = make(map[int]struct{})
		}
		neighbors[a][b] = struct{}{}
	}
	for t := 0; t < len(tri.Triangles); t += 3 {
		i0, i1, i2 := tri.Triangles[t], tri.Triangles[t+1], tri.Triangles[t+2]
		addEdge(i0, i1)
		addEdge(i1, i0)
		addEdge(i1, i2)
		addEdge(i2, i1)
		addEdge(i2, i0)
		addEdge(i0, i2)
	}

	gradX = make([]float64, n)
	gradY = make([]float64, n)
	for i := 0; i < n; i++ {
		var sxx, sxy, syy, sxz, syz float64
		for j := range neighbors[i] {
			dx := samples[j].x - samples[i].x
			dy := samples[j].y - samples[i].y
			dz := samples[j].h - samples[i].h
			sxx += dx * dx
			sxy += dx * dy
			syy += dy * dy
			sxz += dx * dz
			syz += dy * dz
		}
		det := sxx*syy - sxy*sxy
		if math.Abs(det) < 1e-12 {
			continue // neighbors collinear, keep a flat gradient
		}
		gradX[i] = (sxz*syy - syz*sxy) / det
		gradY[i] = (syz*sxx - sxz*sxy) / det
	}
	return gradX, gradY
}

// cubicBlend evaluates a Hermite-weighted blend of the three per-vertex
// tangent planes. The smoothstep weights reproduce the sample heights
// exactly at the vertices and flatten the first derivative of the blend
// across triangle edges.
func cubicBlend(px, py float64,
	s0 gridSample, gx0, gy0, w0 float64,
	s1 gridSample, gx1, gy1, w1 float64,
	s2 gridSample, gx2, gy2, w2 float64,
) float64 {
	h0 := s0.h + gx0*(px-s0.x) + gy0*(py-s0.y)
	h1 := s1.h + gx1*(px-s1.x) + gy1*(py-s1.y)
	h2 := s2.h + gx2*(px-s2.x) + gy2*(py-s2.y)

	b0 := smoothstepWeight(w0)
	b1 := smoothstepWeight(w1)
	b2 := smoothstepWeight(w2)
	total := b0 + b1 + b2
	if total == 0 {
		return w0*s0.h + w1*s1.h + w2*s2.h
	}
	return (b0*h0 + b1*h1 + b2*h2) / total
}

func smoothstepWeight(w float64) float64 {
	if w < 0 {
		w = 0
	}
	return w * w * (3 - 2*w)
}
