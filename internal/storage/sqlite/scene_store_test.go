package sqlite

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relief-data/terrain.studio/internal/db"
	"github.com/relief-data/terrain.studio/internal/terrain"
)

func newTestStore(t *testing.T) *SceneStore {
	t.Helper()
	database, err := db.NewDB(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, database.MigrateUp("../../../migrations"))
	return NewSceneStore(database.DB)
}

func testGrid(t *testing.T, nx, ny int, fn func(row, col int) float64) *terrain.HeightGrid {
	t.Helper()
	xs := make([]float64, nx)
	for i := range xs {
		xs[i] = float64(i) * 0.5
	}
	ys := make([]float64, ny)
	for i := range ys {
		ys[i] = float64(i) * 2
	}
	heights := make([][]float64, ny)
	for row := range heights {
		line := make([]float64, nx)
		for col := range line {
			line[col] = fn(row, col)
		}
		heights[row] = line
	}
	g, err := terrain.NewHeightGridFromHeights(xs, ys, heights)
	require.NoError(t, err)
	return g
}

func TestSaveLoadModelRoundTrip(t *testing.T) {
	store := newTestStore(t)
	g := testGrid(t, 4, 3, func(row, col int) float64 {
		if row == 1 && col == 2 {
			return math.NaN()
		}
		return float64(row*10 + col)
	})

	id, err := store.SaveModel("", "coastline", g)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	rec, loaded, err := store.LoadModel(id)
	require.NoError(t, err)
	assert.Equal(t, "coastline", rec.Name)
	assert.Equal(t, 4, rec.Nx)
	assert.Equal(t, 3, rec.Ny)
	assert.Nil(t, rec.UpdatedAtNs)

	require.Equal(t, g.Nx(), loaded.Nx())
	require.Equal(t, g.Ny(), loaded.Ny())
	assert.Equal(t, g.XS, loaded.XS)
	assert.Equal(t, g.YS, loaded.YS)
	if diff := cmp.Diff(heights(g), heights(loaded), cmpopts.EquateNaNs()); diff != "" {
		t.Fatalf("heights changed across the blob round trip (-want +got):\n%s", diff)
	}
}

func heights(g *terrain.HeightGrid) [][]float64 {
	out := make([][]float64, g.Ny())
	for row := range out {
		line := make([]float64, g.Nx())
		for col := range line {
			line[col] = g.Height(row, col)
		}
		out[row] = line
	}
	return out
}

func TestSaveModelUpsert(t *testing.T) {
	store := newTestStore(t)
	g := testGrid(t, 2, 2, func(int, int) float64 { return 1 })

	id, err := store.SaveModel("", "v1", g)
	require.NoError(t, err)

	g.SetHeight(0, 0, 42)
	_, err = store.SaveModel(id, "v2", g)
	require.NoError(t, err)

	rec, loaded, err := store.LoadModel(id)
	require.NoError(t, err)
	assert.Equal(t, "v2", rec.Name)
	assert.NotNil(t, rec.UpdatedAtNs)
	assert.Equal(t, 42.0, loaded.Height(0, 0))

	models, err := store.ListModels()
	require.NoError(t, err)
	assert.Len(t, models, 1)
}

func TestLoadModelNotFound(t *testing.T) {
	store := newTestStore(t)
	_, _, err := store.LoadModel("ghost")
	require.Error(t, err)
}

func TestDeleteModel(t *testing.T) {
	store := newTestStore(t)
	id, err := store.SaveModel("", "gone soon", testGrid(t, 2, 2, func(int, int) float64 { return 0 }))
	require.NoError(t, err)

	require.NoError(t, store.DeleteModel(id))
	_, _, err = store.LoadModel(id)
	require.Error(t, err)
}

func TestPolygonRoundTrip(t *testing.T) {
	store := newTestStore(t)

	first := &PolygonRecord{
		Name: "ridge",
		Points: []terrain.Point3{
			{X: 0, Y: 0, Z: 1}, {X: 2, Y: 0, Z: 1}, {X: 1, Y: 2, Z: 1},
		},
		Planar:      true,
		CreatedAtNs: 100,
	}
	second := &PolygonRecord{
		Points: []terrain.Point3{
			{X: 5, Y: 5, Z: 0}, {X: 6, Y: 5, Z: 2}, {X: 6, Y: 6, Z: 0}, {X: 5, Y: 6, Z: 2},
		},
		Planar:      false,
		CreatedAtNs: 200,
	}
	require.NoError(t, store.SavePolygon(first))
	require.NoError(t, store.SavePolygon(second))
	require.NotEmpty(t, first.PolygonID)

	polys, err := store.ListPolygons()
	require.NoError(t, err)
	require.Len(t, polys, 2)
	// Insertion order.
	assert.Equal(t, "ridge", polys[0].Name)
	assert.Equal(t, first.Points, polys[0].Points)
	assert.True(t, polys[0].Planar)
	assert.Empty(t, polys[1].Name)
	assert.False(t, polys[1].Planar)
}

func TestTransformLog(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.LogTransform(&TransformRecord{
		ModelID:     "m1",
		Kind:        "merge",
		ParamsJSON:  []byte(`{"secondary":"m2"}`),
		Generation:  1,
		AppliedAtNs: 100,
	}))
	require.NoError(t, store.LogTransform(&TransformRecord{
		ModelID:     "m1",
		Kind:        "interpolate_nan",
		Generation:  2,
		AppliedAtNs: 200,
	}))
	require.NoError(t, store.LogTransform(&TransformRecord{
		ModelID:     "other",
		Kind:        "subtract",
		Generation:  1,
		AppliedAtNs: 150,
	}))

	recs, err := store.ListTransforms("m1")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	// Newest first.
	assert.Equal(t, "interpolate_nan", recs[0].Kind)
	assert.Equal(t, uint64(2), recs[0].Generation)
	assert.Empty(t, recs[0].ParamsJSON)
	assert.Equal(t, "merge", recs[1].Kind)
	assert.JSONEq(t, `{"secondary":"m2"}`, string(recs[1].ParamsJSON))
}
