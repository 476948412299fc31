package terrain

// Decimate reduces a grid to at most targetRows x targetCols by fixed-stride
// subsampling. The stride is computed independently per axis as
// max(1, len/target); a grid already within the target passes through with
// stride 1. Values are taken verbatim, never averaged or interpolated:
// downstream consumers rely on the decimated heights matching the source
// bit for bit.
func Decimate(g *HeightGrid, targetRows, targetCols int) *HeightGrid {
	stepY := decimationStep(g.Ny(), targetRows)
	stepX := decimationStep(g.Nx(), targetCols)

	xs := strideFloats(g.XS, stepX)
	ys := strideFloats(g.YS, stepY)

	out := &HeightGrid{XS: xs, YS: ys}
	out.Vertices = make([][]Vertex, len(ys))
	for i := range out.Vertices {
		src := g.Vertices[i*stepY]
		row := make([]Vertex, len(xs))
		for j := range row {
			row[j] = src[j*stepX]
		}
		out.Vertices[i] = row
	}
	return out
}

func decimationStep(length, target int) int {
	if target <= 0 || length <= target {
		return 1
	}
	return length / target
}

func strideFloats(v []float64, step int) []float64 {
	out := make([]float64, 0, (len(v)+step-1)/step)
	for i := 0; i < len(v); i += step {
		out = append(out, v[i])
	}
	return out
}
