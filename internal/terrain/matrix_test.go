package terrain

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

var nan = math.NaN()

func dense(rows, cols int, v ...float64) *mat.Dense {
	return mat.NewDense(rows, cols, v)
}

func requireDenseEqual(t *testing.T, got *mat.Dense, want []float64) {
	t.Helper()
	r, c := got.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			g, w := got.At(i, j), want[i*c+j]
			if !almostEqual(g, w) {
				t.Fatalf("cell (%d,%d) = %v, want %v", i, j, g, w)
			}
		}
	}
}

func TestMergeIntoBaseWins(t *testing.T) {
	base := dense(2, 3,
		1, nan, 3,
		nan, nan, 6)
	overlay := dense(2, 3,
		10, 20, 30,
		nan, 50, 60)

	if err := MergeInto(base, overlay); err != nil {
		t.Fatalf("merge: %v", err)
	}
	requireDenseEqual(t, base, []float64{
		1, 20, 3,
		nan, 50, 6,
	})
}

func TestMergeIntoIdempotent(t *testing.T) {
	base := dense(2, 2, 1, nan, nan, 4)
	overlay := dense(2, 2, 9, 9, nan, 9)

	if err := MergeInto(base, overlay); err != nil {
		t.Fatalf("first merge: %v", err)
	}
	after := mat.DenseCopyOf(base)
	if err := MergeInto(base, overlay); err != nil {
		t.Fatalf("second merge: %v", err)
	}
	// NaN-aware comparison: the result keeps a NaN cell and NaN != NaN.
	r, c := base.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if !almostEqual(base.At(i, j), after.At(i, j)) {
				t.Fatalf("cell (%d,%d) changed from %v to %v on the second merge", i, j, after.At(i, j), base.At(i, j))
			}
		}
	}
}

func TestMaskWhereValid(t *testing.T) {
	base := dense(2, 2,
		1, 2,
		nan, 4)
	secondary := dense(2, 2,
		9, nan,
		9, nan)

	if err := MaskWhereValid(base, secondary); err != nil {
		t.Fatalf("mask: %v", err)
	}
	requireDenseEqual(t, base, []float64{
		nan, 2,
		nan, 4,
	})
}

// MaskWhereValid is not Merge with the operands flipped: a valid secondary
// cell erases base data instead of preserving it.
func TestMaskWhereValidIsNotReversedMerge(t *testing.T) {
	base := dense(1, 1, 5)
	secondary := dense(1, 1, 7)

	if err := MaskWhereValid(base, secondary); err != nil {
		t.Fatalf("mask: %v", err)
	}
	if !math.IsNaN(base.At(0, 0)) {
		t.Fatalf("base = %v, want NaN: valid secondary must erase base", base.At(0, 0))
	}

	merged := dense(1, 1, 7)
	if err := MergeInto(merged, dense(1, 1, 5)); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if merged.At(0, 0) != 7 {
		t.Fatalf("merge keeps base data, got %v", merged.At(0, 0))
	}
}

func TestMaskWhereValidIsDirectional(t *testing.T) {
	// With A = [5, 1] and B = [2, NaN], masking A by B differs from
	// masking B by A: the first keeps A's second cell, the second wipes B
	// entirely.
	a1 := dense(1, 2, 5, 1)
	b1 := dense(1, 2, 2, nan)
	if err := MaskWhereValid(a1, b1); err != nil {
		t.Fatalf("mask a by b: %v", err)
	}
	requireDenseEqual(t, a1, []float64{nan, 1})

	a2 := dense(1, 2, 5, 1)
	b2 := dense(1, 2, 2, nan)
	if err := MaskWhereValid(b2, a2); err != nil {
		t.Fatalf("mask b by a: %v", err)
	}
	requireDenseEqual(t, b2, []float64{nan, nan})
}

func TestSubtractNaNZero(t *testing.T) {
	base := dense(2, 3,
		10, 10, nan,
		5, nan, 0)
	secondary := dense(2, 3,
		3, nan, 4,
		nan, 7, -2)

	if err := SubtractNaNZero(base, secondary); err != nil {
		t.Fatalf("subtract: %v", err)
	}
	requireDenseEqual(t, base, []float64{
		7, 10, nan,
		5, nan, 2,
	})
}

func TestShapeMismatch(t *testing.T) {
	a := dense(2, 2, 1, 2, 3, 4)
	b := dense(2, 3, 1, 2, 3, 4, 5, 6)

	if err := MergeInto(a, b); err == nil {
		t.Fatal("merge must reject mismatched shapes")
	}
	if err := MaskWhereValid(a, b); err == nil {
		t.Fatal("mask must reject mismatched shapes")
	}
	if err := SubtractNaNZero(a, b); err == nil {
		t.Fatal("subtract must reject mismatched shapes")
	}
}
