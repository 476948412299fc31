package terrain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/relief-data/terrain.studio/internal/monitoring"
)

// Scene is the view of the editor's scene a transformation consumes during
// Initialize. The concrete scene lives outside this package and owns the
// grids; the transformation only borrows references for one cycle.
type Scene interface {
	ModelIDs() []string
	ModelGrid(id string) (*HeightGrid, bool)
	PolygonIDs() []string
	PolygonPoints(id string) []Point3
	IsPolygonPlanar(id string) bool
}

// Kind enumerates the closed set of transformation variants. Dispatch is an
// exhaustive switch in Apply; adding a variant means extending that switch.
type Kind int

const (
	KindFillNaN Kind = iota
	KindInterpolateNaN
	KindMerge
	KindNanConvolution
	KindReplaceNaN
	KindSubtract
)

var kindNames = map[Kind]string{
	KindFillNaN:        "fill_nan",
	KindInterpolateNaN: "interpolate_nan",
	KindMerge:          "merge",
	KindNanConvolution: "nan_convolution",
	KindReplaceNaN:     "replace_nan",
	KindSubtract:       "subtract",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps a wire/config name onto a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "fill_nan":
		return KindFillNaN, nil
	case "interpolate_nan":
		return KindInterpolateNaN, nil
	case "merge":
		return KindMerge, nil
	case "nan_convolution":
		return KindNanConvolution, nil
	case "replace_nan":
		return KindReplaceNaN, nil
	case "subtract":
		return KindSubtract, nil
	}
	return 0, fmt.Errorf("unknown transformation kind %q", s)
}

// usesSecondary reports whether the variant operates on a second model.
func (k Kind) usesSecondary() bool {
	return k == KindMerge || k == KindReplaceNaN || k == KindSubtract
}

// Params carries the per-variant payload. Model is always required;
// Secondary only for Merge/ReplaceNaN/Subtract; Method only for
// InterpolateNaN; KernelSize and NaNThreshold only for NanConvolution.
type Params struct {
	Model     string
	Secondary string

	Method InterpolationMethod

	KernelSize   int
	NaNThreshold float64
}

type transformationState int

const (
	stateConstructed transformationState = iota
	stateInitialized
	stateApplied
)

// Transformation is a single-use, two-phase operation on a scene model:
// Initialize validates and snapshots references with zero mutation, Apply
// mutates the primary grid's height buffer in place. A transformation never
// survives past one Initialize/Apply cycle.
type Transformation struct {
	kind   Kind
	params Params
	state  transformationState

	// Snapshots taken by Initialize. The grids are borrowed from the
	// scene, not copied: Apply writes through them into the storage the
	// scene owns.
	grid      *HeightGrid
	secondary *HeightGrid
	polygons  []Polygon
}

// NewTransformation constructs a transformation. Construction is pure; all
// validation happens in Initialize.
func NewTransformation(kind Kind, p Params) *Transformation {
	return &Transformation{kind: kind, params: p}
}

// Kind returns the variant.
func (t *Transformation) Kind() Kind { return t.kind }

// TargetModel returns the primary model id the transformation will mutate.
func (t *Transformation) TargetModel() string { return t.params.Model }

// Initialize resolves ids against the scene, snapshots grid and polygon
// references and validates every precondition. On failure the grid is left
// byte for byte unchanged and the error is a *MapTransformationError for
// the coded taxonomy (missing id, unknown model, non-planar polygon) or a
// plain error for structural problems such as mismatched grid shapes.
func (t *Transformation) Initialize(sc Scene) error {
	if t.state != stateConstructed {
		return fmt.Errorf("transformation %s: initialize called twice", t.kind)
	}

	// Unset ids are rejected before any lookup is attempted.
	if t.params.Model == "" {
		return errMissingModelID("target")
	}
	if t.kind.usesSecondary() && t.params.Secondary == "" {
		return errMissingModelID("secondary")
	}

	grid, ok := sc.ModelGrid(t.params.Model)
	if !ok {
		return errUnknownModel(t.params.Model)
	}
	t.grid = grid

	if t.kind.usesSecondary() {
		secondary, ok := sc.ModelGrid(t.params.Secondary)
		if !ok {
			return errUnknownModel(t.params.Secondary)
		}
		if secondary.Ny() != grid.Ny() || secondary.Nx() != grid.Nx() {
			return fmt.Errorf("transformation %s: grid shapes differ, %dx%d vs %dx%d",
				t.kind, grid.Ny(), grid.Nx(), secondary.Ny(), secondary.Nx())
		}
		t.secondary = secondary
	}

	switch t.kind {
	case KindFillNaN:
		// FillNaN deliberately walks every polygon in the scene, not just
		// polygons tied to the target model. Narrowing the scope would
		// change what users see on multi-model scenes.
		for _, pid := range sc.PolygonIDs() {
			if !sc.IsPolygonPlanar(pid) {
				return errNonPlanarPolygon(pid)
			}
			t.polygons = append(t.polygons, Polygon{Points: sc.PolygonPoints(pid)})
		}
	case KindInterpolateNaN:
		if t.params.Method == "" {
			t.params.Method = MethodLinear
		}
		if _, err := ParseMethod(string(t.params.Method)); err != nil {
			return fmt.Errorf("transformation %s: %w", t.kind, err)
		}
	case KindNanConvolution:
		t.params.KernelSize = normalizeKernelSize(t.params.KernelSize)
		if t.params.NaNThreshold < 0 {
			t.params.NaNThreshold = 0
		}
		if t.params.NaNThreshold > 1 {
			t.params.NaNThreshold = 1
		}
	}

	t.state = stateInitialized
	return nil
}

// Apply executes the snapshotted operation and returns the mutated vertex
// buffer together with the grid's new generation. The returned buffer is
// the very storage the scene's model owns, not a copy. Apply only errors on
// protocol misuse (called before Initialize, or twice); after a successful
// Initialize the operation itself always completes.
func (t *Transformation) Apply() ([][]Vertex, uint64, error) {
	switch t.state {
	case stateConstructed:
		return nil, 0, fmt.Errorf("transformation %s: apply before initialize", t.kind)
	case stateApplied:
		return nil, 0, fmt.Errorf("transformation %s: apply called twice", t.kind)
	}
	t.state = stateApplied

	switch t.kind {
	case KindFillNaN:
		t.applyFillNaN()
	case KindInterpolateNaN:
		t.applyInterpolateNaN()
	case KindMerge:
		t.applyMatrixOp(MergeInto)
	case KindNanConvolution:
		t.applyNanConvolution()
	case KindReplaceNaN:
		t.applyMatrixOp(MaskWhereValid)
	case KindSubtract:
		t.applyMatrixOp(SubtractNaNZero)
	default:
		// The Kind set is closed; Initialize cannot produce another value.
		panic(fmt.Sprintf("terrain: unreachable transformation kind %d", int(t.kind)))
	}

	gen := t.grid.bumpGeneration()
	return t.grid.Vertices, gen, nil
}

// applyFillNaN masks the interior of every scene polygon to NaN, each
// restricted to its bounding sub-grid. Degenerate or non-intersecting
// polygons are skipped per polygon and never fail the whole operation.
func (t *Transformation) applyFillNaN() {
	filled := 0
	for _, poly := range t.polygons {
		bb, mask, ok := MaskPolygon(poly, t.grid.XS, t.grid.YS)
		if !ok {
			continue
		}
		for i := range mask {
			for j := range mask[i] {
				if mask[i][j] {
					t.grid.SetHeight(bb.MinYIdx+i, bb.MinXIdx+j, math.NaN())
					filled++
				}
			}
		}
	}
	monitoring.Logf("fill_nan: model=%s polygons=%d cells=%d", t.params.Model, len(t.polygons), filled)
}

func (t *Transformation) applyInterpolateNaN() {
	m := t.grid.HeightMatrix()
	// Method was validated in Initialize; the fill itself cannot fail.
	if err := InterpolateNaN(m, t.params.Method); err != nil {
		panic(fmt.Sprintf("terrain: validated method rejected: %v", err))
	}
	if err := t.grid.StoreHeights(m); err != nil {
		panic(fmt.Sprintf("terrain: store heights: %v", err))
	}
}

func (t *Transformation) applyNanConvolution() {
	m := t.grid.HeightMatrix()
	ApplyNaNConvolution(m, t.params.KernelSize, t.params.NaNThreshold)
	if err := t.grid.StoreHeights(m); err != nil {
		panic(fmt.Sprintf("terrain: store heights: %v", err))
	}
}

// applyMatrixOp runs one of the pure element-wise matrix operations
// (MergeInto, MaskWhereValid, SubtractNaNZero) against working copies of
// both height matrices and writes the result back into the primary grid.
func (t *Transformation) applyMatrixOp(op func(base, secondary *mat.Dense) error) {
	base := t.grid.HeightMatrix()
	// Shapes were validated in Initialize.
	if err := op(base, t.secondary.HeightMatrix()); err != nil {
		panic(fmt.Sprintf("terrain: validated shapes rejected: %v", err))
	}
	if err := t.grid.StoreHeights(base); err != nil {
		panic(fmt.Sprintf("terrain: store heights: %v", err))
	}
}
