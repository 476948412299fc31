package terrain

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestNormalizeKernelSize(t *testing.T) {
	tests := []struct{ in, want int }{
		{-5, 3}, {0, 3}, {1, 3}, {2, 3}, {3, 3}, {4, 5}, {5, 5}, {6, 7}, {9, 9},
	}
	for _, tt := range tests {
		if got := normalizeKernelSize(tt.in); got != tt.want {
			t.Fatalf("normalizeKernelSize(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestNaNDensityAllValid(t *testing.T) {
	m := mat.NewDense(5, 5, nil)
	d := NaNDensity(m, 3)
	for i := 0; i < 5; i++ {
		for j := 0; j < 5; j++ {
			if d.At(i, j) != 0 {
				t.Fatalf("density (%d,%d) = %v, want 0 on a fully valid grid", i, j, d.At(i, j))
			}
		}
	}
}

func TestNaNDensitySingleHole(t *testing.T) {
	m := mat.NewDense(5, 5, nil)
	m.Set(2, 2, math.NaN())

	d := NaNDensity(m, 3)
	// A 3x3 kernel has 8 off-center taps of weight 1/8.
	if got := d.At(2, 1); !almostEqual(got, 1.0/8) {
		t.Fatalf("neighbor density = %v, want 1/8", got)
	}
	// The center tap has weight 0, so the hole itself sees no density from
	// its own NaN.
	if got := d.At(2, 2); got != 0 {
		t.Fatalf("hole density = %v, want 0", got)
	}
	if got := d.At(0, 0); got != 0 {
		t.Fatalf("far cell density = %v, want 0", got)
	}
}

func TestNaNDensityBorderPadding(t *testing.T) {
	// NaN in a corner; taps beyond the border contribute nothing, so the
	// density at (0,1) is still exactly 1/8 even though five taps fall
	// outside the grid.
	m := mat.NewDense(3, 3, nil)
	m.Set(0, 0, math.NaN())

	d := NaNDensity(m, 3)
	if got := d.At(0, 1); !almostEqual(got, 1.0/8) {
		t.Fatalf("border density = %v, want 1/8", got)
	}
}

func TestApplyNaNConvolutionFullyValidGridUnchanged(t *testing.T) {
	m := mat.NewDense(5, 5, nil)
	for i := 0; i < 5; i++ {
		for j := 0; j < 5; j++ {
			m.Set(i, j, float64(i*5+j))
		}
	}
	before := mat.DenseCopyOf(m)

	ApplyNaNConvolution(m, 3, 0.5)
	if !mat.Equal(m, before) {
		t.Fatal("a grid without no-data cells must pass through unchanged")
	}
}

func TestApplyNaNConvolutionInvalidates(t *testing.T) {
	// A lone valid cell surrounded by NaN: its neighborhood is fully
	// invalid, so any threshold below 1 removes it.
	m := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if i != 1 || j != 1 {
				m.Set(i, j, math.NaN())
			}
		}
	}
	m.Set(1, 1, 42)

	ApplyNaNConvolution(m, 3, 0.5)
	if !math.IsNaN(m.At(1, 1)) {
		t.Fatal("isolated valid cell must be invalidated")
	}
}

func TestApplyNaNConvolutionNaNIsAbsorbing(t *testing.T) {
	m := mat.NewDense(3, 3, nil)
	m.Set(0, 0, math.NaN())

	ApplyNaNConvolution(m, 3, 0.0)
	// Threshold 0 means any NaN neighbor invalidates, but existing NaN
	// never flips back to valid.
	if !math.IsNaN(m.At(0, 0)) {
		t.Fatal("existing NaN must stay NaN")
	}
	if !math.IsNaN(m.At(0, 1)) || !math.IsNaN(m.At(1, 1)) {
		t.Fatal("neighbors of the hole must be invalidated at threshold 0")
	}
	// (2,2)'s neighborhood includes (1,1), which was valid before this
	// pass started. The density is computed once up front, so (2,2)
	// survives even though (1,1) just became NaN.
	if math.IsNaN(m.At(2, 2)) {
		t.Fatal("cells outside the original hole's reach must survive")
	}
}

func TestApplyNaNConvolutionThresholdBoundary(t *testing.T) {
	// One NaN neighbor gives density exactly 1/8; the comparison is
	// strict, so threshold 1/8 keeps the cell and anything lower drops it.
	build := func() *mat.Dense {
		m := mat.NewDense(3, 3, nil)
		m.Set(1, 0, math.NaN())
		return m
	}

	m := build()
	ApplyNaNConvolution(m, 3, 1.0/8)
	if math.IsNaN(m.At(1, 1)) {
		t.Fatal("density equal to the threshold must not invalidate")
	}

	m = build()
	ApplyNaNConvolution(m, 3, 1.0/8-1e-12)
	if !math.IsNaN(m.At(1, 1)) {
		t.Fatal("density above the threshold must invalidate")
	}
}
