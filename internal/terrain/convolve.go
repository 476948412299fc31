package terrain

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// normalizeKernelSize clamps a requested square kernel side length to the
// smallest useful window (3) and rounds even sizes up so the kernel always
// has a center cell.
func normalizeKernelSize(k int) int {
	if k < 3 {
		k = 3
	}
	if k%2 == 0 {
		k++
	}
	return k
}

// NaNDensity convolves the binary no-data mask of m with a square kernel of
// side k: center weight 0, every other tap 1/(k*k-1). The result estimates,
// per cell, the fraction of its neighborhood that carries no data. Taps
// falling outside the grid contribute 0, i.e. the world beyond the border
// counts as valid.
func NaNDensity(m *mat.Dense, kernelSize int) *mat.Dense {
	k := normalizeKernelSize(kernelSize)
	half := k / 2
	weight := 1.0 / float64(k*k-1)

	r, c := m.Dims()
	density := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			sum := 0.0
			for di := -half; di <= half; di++ {
				ni := i + di
				if ni < 0 || ni >= r {
					continue
				}
				for dj := -half; dj <= half; dj++ {
					if di == 0 && dj == 0 {
						continue
					}
					nj := j + dj
					if nj < 0 || nj >= c {
						continue
					}
					if math.IsNaN(m.At(ni, nj)) {
						sum += weight
					}
				}
			}
			density.Set(i, j, sum)
		}
	}
	return density
}

// ApplyNaNConvolution invalidates every currently valid cell of m whose
// neighborhood NaN density exceeds threshold. Cells that are already NaN
// are left alone: no-data is absorbing and is never reverted by this
// operation.
func ApplyNaNConvolution(m *mat.Dense, kernelSize int, threshold float64) {
	density := NaNDensity(m, kernelSize)
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if math.IsNaN(m.At(i, j)) {
				continue
			}
			if density.At(i, j) > threshold {
				m.Set(i, j, math.NaN())
			}
		}
	}
}
