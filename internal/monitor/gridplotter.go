// Package monitor renders diagnostic views of scene grids: heatmap PNGs via
// gonum/plot for offline inspection and go-echarts HTML pages for quick
// in-browser debugging.
package monitor

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/relief-data/terrain.studio/internal/terrain"
)

// GridPlotter writes heightmap heatmap PNGs for stored grids.
type GridPlotter struct {
	outputDir string
}

// NewGridPlotter creates a plotter writing into outputDir.
func NewGridPlotter(outputDir string) *GridPlotter {
	return &GridPlotter{outputDir: outputDir}
}

// heightGridXYZ adapts a HeightGrid to plotter.GridXYZ. No-data cells
// report the grid's minimum valid height so they render as the coldest
// color instead of poisoning the palette range.
type heightGridXYZ struct {
	g        *terrain.HeightGrid
	minValid float64
}

func newHeightGridXYZ(g *terrain.HeightGrid) heightGridXYZ {
	minValid := math.Inf(1)
	for row := 0; row < g.Ny(); row++ {
		for col := 0; col < g.Nx(); col++ {
			if h := g.Height(row, col); !math.IsNaN(h) && h < minValid {
				minValid = h
			}
		}
	}
	if math.IsInf(minValid, 1) {
		minValid = 0
	}
	return heightGridXYZ{g: g, minValid: minValid}
}

func (h heightGridXYZ) Dims() (c, r int) { return h.g.Nx(), h.g.Ny() }
func (h heightGridXYZ) X(c int) float64  { return h.g.XS[c] }
func (h heightGridXYZ) Y(r int) float64  { return h.g.YS[r] }

func (h heightGridXYZ) Z(c, r int) float64 {
	v := h.g.Height(r, c)
	if math.IsNaN(v) {
		return h.minValid
	}
	return v
}

// PlotHeightmap renders one grid as a heatmap PNG named <name>.png and
// returns the written path.
func (gp *GridPlotter) PlotHeightmap(g *terrain.HeightGrid, name string) (string, error) {
	if err := os.MkdirAll(gp.outputDir, 0755); err != nil {
		return "", fmt.Errorf("create plot dir: %w", err)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Heightmap %s (%dx%d, %d no-data cells)", name, g.Ny(), g.Nx(), g.CountNaN())
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"

	hm := plotter.NewHeatMap(newHeightGridXYZ(g), palette.Heat(16, 1))
	p.Add(hm)

	out := filepath.Join(gp.outputDir, name+".png")
	if err := p.Save(10*vg.Inch, 8*vg.Inch, out); err != nil {
		return "", fmt.Errorf("save heatmap %s: %w", out, err)
	}
	return out, nil
}
