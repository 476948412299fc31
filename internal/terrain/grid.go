package terrain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Vertex holds one grid cell as (x, y, height). Height may be NaN, the
// sole no-data sentinel used throughout the engine.
type Vertex [3]float64

// HeightGrid is a regular 2D field of terrain samples with explicit,
// monotonically increasing coordinate axes. The vertex buffer is the single
// source of truth: transformations rewrite heights in place and never resize
// the grid. The grid is owned by the scene; a transformation only borrows it
// for one Initialize/Apply cycle.
type HeightGrid struct {
	XS []float64 // x axis, length Nx
	YS []float64 // y axis, length Ny

	// Vertices is shaped [Ny][Nx]. Vertices[row][col] = (XS[col], YS[row], h).
	Vertices [][]Vertex

	generation uint64
}

// NewHeightGrid builds a grid over the given axes with every height set to
// NaN (no data). Axes are kept by reference; callers must not mutate them
// afterwards.
func NewHeightGrid(xs, ys []float64) *HeightGrid {
	g := &HeightGrid{XS: xs, YS: ys}
	g.Vertices = make([][]Vertex, len(ys))
	for row := range g.Vertices {
		line := make([]Vertex, len(xs))
		for col := range line {
			line[col] = Vertex{xs[col], ys[row], math.NaN()}
		}
		g.Vertices[row] = line
	}
	return g
}

// NewHeightGridFromHeights builds a grid from a [Ny][Nx] height matrix.
func NewHeightGridFromHeights(xs, ys []float64, heights [][]float64) (*HeightGrid, error) {
	if len(heights) != len(ys) {
		return nil, fmt.Errorf("height rows %d do not match y axis length %d", len(heights), len(ys))
	}
	g := NewHeightGrid(xs, ys)
	for row := range heights {
		if len(heights[row]) != len(xs) {
			return nil, fmt.Errorf("height row %d has %d columns, want %d", row, len(heights[row]), len(xs))
		}
		for col, h := range heights[row] {
			g.Vertices[row][col][2] = h
		}
	}
	return g, nil
}

// Nx returns the number of columns.
func (g *HeightGrid) Nx() int { return len(g.XS) }

// Ny returns the number of rows.
func (g *HeightGrid) Ny() int { return len(g.YS) }

// Height returns the height at (row, col).
func (g *HeightGrid) Height(row, col int) float64 { return g.Vertices[row][col][2] }

// SetHeight writes the height at (row, col).
func (g *HeightGrid) SetHeight(row, col int, h float64) { g.Vertices[row][col][2] = h }

// Generation is a version marker bumped on every applied transformation.
// Callers that cannot rely on buffer aliasing can compare generations to
// detect that the stored grid changed underneath them.
func (g *HeightGrid) Generation() uint64 { return g.generation }

func (g *HeightGrid) bumpGeneration() uint64 {
	g.generation++
	return g.generation
}

// Clone returns a deep copy of the grid, generation included. Readers that
// cannot hold the owning model's lock for the duration of their work take a
// clone and read that instead.
func (g *HeightGrid) Clone() *HeightGrid {
	out := &HeightGrid{
		XS:         append([]float64(nil), g.XS...),
		YS:         append([]float64(nil), g.YS...),
		generation: g.generation,
	}
	out.Vertices = make([][]Vertex, len(g.Vertices))
	for row := range g.Vertices {
		out.Vertices[row] = append([]Vertex(nil), g.Vertices[row]...)
	}
	return out
}

// Validate checks the structural invariants: buffer dimensions consistent
// with the axes, and both axes strictly increasing.
func (g *HeightGrid) Validate() error {
	if len(g.Vertices) != len(g.YS) {
		return fmt.Errorf("vertex buffer has %d rows, want %d", len(g.Vertices), len(g.YS))
	}
	for row := range g.Vertices {
		if len(g.Vertices[row]) != len(g.XS) {
			return fmt.Errorf("vertex row %d has %d columns, want %d", row, len(g.Vertices[row]), len(g.XS))
		}
	}
	for i := 1; i < len(g.XS); i++ {
		if g.XS[i] <= g.XS[i-1] {
			return fmt.Errorf("x axis not strictly increasing at index %d", i)
		}
	}
	for i := 1; i < len(g.YS); i++ {
		if g.YS[i] <= g.YS[i-1] {
			return fmt.Errorf("y axis not strictly increasing at index %d", i)
		}
	}
	return nil
}

// HeightMatrix copies the heights into a dense [Ny][Nx] matrix for numeric
// work. The copy is working memory only; StoreHeights writes results back
// into the owned vertex buffer.
func (g *HeightGrid) HeightMatrix() *mat.Dense {
	m := mat.NewDense(g.Ny(), g.Nx(), nil)
	for row := range g.Vertices {
		for col := range g.Vertices[row] {
			m.Set(row, col, g.Vertices[row][col][2])
		}
	}
	return m
}

// StoreHeights writes a [Ny][Nx] matrix of heights back into the vertex
// buffer in place.
func (g *HeightGrid) StoreHeights(m *mat.Dense) error {
	r, c := m.Dims()
	if r != g.Ny() || c != g.Nx() {
		return fmt.Errorf("matrix %dx%d does not match grid %dx%d", r, c, g.Ny(), g.Nx())
	}
	for row := range g.Vertices {
		for col := range g.Vertices[row] {
			g.Vertices[row][col][2] = m.At(row, col)
		}
	}
	return nil
}

// CountNaN returns the number of no-data cells.
func (g *HeightGrid) CountNaN() int {
	n := 0
	for row := range g.Vertices {
		for col := range g.Vertices[row] {
			if math.IsNaN(g.Vertices[row][col][2]) {
				n++
			}
		}
	}
	return n
}
