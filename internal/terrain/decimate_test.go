package terrain

import (
	"math"
	"testing"
)

func TestDecimationStep(t *testing.T) {
	tests := []struct {
		length, target, want int
	}{
		{100, 20, 5},
		{100, 30, 3},
		{10, 10, 1},
		{5, 10, 1},
		{7, 0, 1},
		{7, -3, 1},
		{1000, 1, 1000},
	}
	for _, tt := range tests {
		if got := decimationStep(tt.length, tt.target); got != tt.want {
			t.Fatalf("decimationStep(%d, %d) = %d, want %d", tt.length, tt.target, got, tt.want)
		}
	}
}

func TestDecimateStrides(t *testing.T) {
	g := testGrid(t, 100, 50, func(row, col int) float64 {
		return float64(row*1000 + col)
	})

	d := Decimate(g, 10, 20)
	if d.Ny() != 10 || d.Nx() != 20 {
		t.Fatalf("dims = %dx%d, want 10x20", d.Ny(), d.Nx())
	}

	// Stride is 5 for both axes; every retained value must match the
	// source verbatim.
	for row := 0; row < d.Ny(); row++ {
		for col := 0; col < d.Nx(); col++ {
			want := g.Height(row*5, col*5)
			if d.Height(row, col) != want {
				t.Fatalf("decimated (%d,%d) = %v, want %v", row, col, d.Height(row, col), want)
			}
			if d.XS[col] != g.XS[col*5] || d.YS[row] != g.YS[row*5] {
				t.Fatalf("axes not strided at (%d,%d)", row, col)
			}
		}
	}
}

func TestDecimatePassThrough(t *testing.T) {
	g := testGrid(t, 4, 3, func(row, col int) float64 {
		if row == 0 && col == 3 {
			return math.NaN()
		}
		return float64(col - row)
	})
	d := Decimate(g, 10, 10)
	if d.Ny() != 3 || d.Nx() != 4 {
		t.Fatalf("dims = %dx%d, want 3x4", d.Ny(), d.Nx())
	}
	requireHeightsEqual(t, d, snapshotHeights(g))
}

func TestDecimateLeavesSourceIntact(t *testing.T) {
	g := testGrid(t, 10, 10, func(row, col int) float64 { return float64(row + col) })
	before := snapshotHeights(g)
	d := Decimate(g, 2, 2)
	d.SetHeight(0, 0, -999)
	requireHeightsEqual(t, g, before)
}
