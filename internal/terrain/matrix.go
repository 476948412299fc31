package terrain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// MergeInto overwrites base in place with the element-wise merge of base and
// overlay: base wins wherever it holds data, overlay fills the rest (and may
// itself be NaN). Holding the overlay fixed the operation is idempotent.
func MergeInto(base, overlay *mat.Dense) error {
	if err := sameShape(base, overlay); err != nil {
		return fmt.Errorf("merge: %w", err)
	}
	r, c := base.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if math.IsNaN(base.At(i, j)) {
				base.Set(i, j, overlay.At(i, j))
			}
		}
	}
	return nil
}

// MaskWhereValid forces base to NaN wherever secondary holds data,
// regardless of base's prior value. This is the directional inverse of
// MergeInto's precedence: secondary's valid cells punch holes into base.
func MaskWhereValid(base, secondary *mat.Dense) error {
	if err := sameShape(base, secondary); err != nil {
		return fmt.Errorf("mask where valid: %w", err)
	}
	r, c := base.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if !math.IsNaN(secondary.At(i, j)) {
				base.Set(i, j, math.NaN())
			}
		}
	}
	return nil
}

// SubtractNaNZero computes base -= secondary element-wise, treating NaN in
// secondary as zero. NaN in base propagates: a cell with no data stays
// without data no matter what is subtracted from it.
func SubtractNaNZero(base, secondary *mat.Dense) error {
	if err := sameShape(base, secondary); err != nil {
		return fmt.Errorf("subtract: %w", err)
	}
	r, c := base.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			s := secondary.At(i, j)
			if math.IsNaN(s) {
				continue
			}
			base.Set(i, j, base.At(i, j)-s)
		}
	}
	return nil
}

func sameShape(a, b *mat.Dense) error {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		return fmt.Errorf("shape mismatch: %dx%d vs %dx%d", ar, ac, br, bc)
	}
	return nil
}
