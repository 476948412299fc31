// Package sqlite persists scene snapshots: model grids as compressed blobs,
// polygon rings as JSON, and an audit log of applied transformations.
package sqlite

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/relief-data/terrain.studio/internal/terrain"
)

// ModelRecord is one persisted terrain model.
type ModelRecord struct {
	ModelID     string `json:"model_id"`
	Name        string `json:"name"`
	Nx          int    `json:"nx"`
	Ny          int    `json:"ny"`
	Generation  uint64 `json:"generation"`
	CreatedAtNs int64  `json:"created_at_ns"`
	UpdatedAtNs *int64 `json:"updated_at_ns,omitempty"`
}

// PolygonRecord is one persisted polygon ring.
type PolygonRecord struct {
	PolygonID   string           `json:"polygon_id"`
	Name        string           `json:"name,omitempty"`
	Points      []terrain.Point3 `json:"points"`
	Planar      bool             `json:"planar"`
	CreatedAtNs int64            `json:"created_at_ns"`
}

// TransformRecord is one audit log entry for an applied transformation.
type TransformRecord struct {
	TransformID string          `json:"transform_id"`
	ModelID     string          `json:"model_id"`
	Kind        string          `json:"kind"`
	ParamsJSON  json.RawMessage `json:"params_json,omitempty"`
	Generation  uint64          `json:"generation"`
	AppliedAtNs int64           `json:"applied_at_ns"`
}

// SceneStore provides persistence for scene snapshots.
type SceneStore struct {
	db *sql.DB
}

// NewSceneStore creates a SceneStore over an open database.
func NewSceneStore(db *sql.DB) *SceneStore {
	return &SceneStore{db: db}
}

// gridSnapshot is the gob payload stored per model. Heights are enough to
// rebuild the vertex buffer: cell x/y are derived from the axes.
type gridSnapshot struct {
	XS      []float64
	YS      []float64
	Heights [][]float64
}

func encodeGridSnapshot(g *terrain.HeightGrid) ([]byte, error) {
	snap := gridSnapshot{XS: g.XS, YS: g.YS, Heights: make([][]float64, g.Ny())}
	for row := range snap.Heights {
		line := make([]float64, g.Nx())
		for col := range line {
			line[col] = g.Height(row, col)
		}
		snap.Heights[row] = line
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := gob.NewEncoder(zw).Encode(snap); err != nil {
		return nil, fmt.Errorf("encode grid snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress grid snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeGridSnapshot(blob []byte) (*terrain.HeightGrid, error) {
	zr, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("decompress grid snapshot: %w", err)
	}
	defer zr.Close()

	var snap gridSnapshot
	if err := gob.NewDecoder(zr).Decode(&snap); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode grid snapshot: %w", err)
	}
	g, err := terrain.NewHeightGridFromHeights(snap.XS, snap.YS, snap.Heights)
	if err != nil {
		return nil, fmt.Errorf("rebuild grid: %w", err)
	}
	return g, nil
}

// SaveModel inserts or replaces a model snapshot. If id is empty a new UUID
// is generated; the assigned id is returned.
func (s *SceneStore) SaveModel(id, name string, g *terrain.HeightGrid) (string, error) {
	if id == "" {
		id = uuid.New().String()
	}
	blob, err := encodeGridSnapshot(g)
	if err != nil {
		return "", err
	}
	now := time.Now().UnixNano()

	err = retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO terrain_models (model_id, name, nx, ny, generation, grid_blob, created_at_ns, updated_at_ns)
			VALUES (?, ?, ?, ?, ?, ?, ?, NULL)
			ON CONFLICT(model_id) DO UPDATE SET
				name = excluded.name,
				nx = excluded.nx,
				ny = excluded.ny,
				generation = excluded.generation,
				grid_blob = excluded.grid_blob,
				updated_at_ns = ?`,
			id, name, g.Nx(), g.Ny(), g.Generation(), blob, now, now,
		)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("save model %s: %w", id, err)
	}
	return id, nil
}

// LoadModel reads one model snapshot and rebuilds its grid.
func (s *SceneStore) LoadModel(id string) (*ModelRecord, *terrain.HeightGrid, error) {
	var (
		rec       ModelRecord
		blob      []byte
		updatedAt sql.NullInt64
	)
	err := s.db.QueryRow(`
		SELECT model_id, name, nx, ny, generation, grid_blob, created_at_ns, updated_at_ns
		FROM terrain_models WHERE model_id = ?`, id).
		Scan(&rec.ModelID, &rec.Name, &rec.Nx, &rec.Ny, &rec.Generation, &blob, &rec.CreatedAtNs, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil, fmt.Errorf("model %s not found", id)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load model %s: %w", id, err)
	}
	if updatedAt.Valid {
		rec.UpdatedAtNs = &updatedAt.Int64
	}

	g, err := decodeGridSnapshot(blob)
	if err != nil {
		return nil, nil, fmt.Errorf("load model %s: %w", id, err)
	}
	return &rec, g, nil
}

// ListModels returns all model records (without grids), newest first.
func (s *SceneStore) ListModels() ([]*ModelRecord, error) {
	rows, err := s.db.Query(`
		SELECT model_id, name, nx, ny, generation, created_at_ns, updated_at_ns
		FROM terrain_models ORDER BY created_at_ns DESC`)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer rows.Close()

	var out []*ModelRecord
	for rows.Next() {
		var (
			rec       ModelRecord
			updatedAt sql.NullInt64
		)
		if err := rows.Scan(&rec.ModelID, &rec.Name, &rec.Nx, &rec.Ny, &rec.Generation, &rec.CreatedAtNs, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan model: %w", err)
		}
		if updatedAt.Valid {
			rec.UpdatedAtNs = &updatedAt.Int64
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// DeleteModel removes a model snapshot.
func (s *SceneStore) DeleteModel(id string) error {
	err := retryOnBusy(func() error {
		_, err := s.db.Exec(`DELETE FROM terrain_models WHERE model_id = ?`, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete model %s: %w", id, err)
	}
	return nil
}

// SavePolygon inserts a polygon record. If rec.PolygonID is empty a UUID is
// generated.
func (s *SceneStore) SavePolygon(rec *PolygonRecord) error {
	if rec.PolygonID == "" {
		rec.PolygonID = uuid.New().String()
	}
	if rec.CreatedAtNs == 0 {
		rec.CreatedAtNs = time.Now().UnixNano()
	}
	points, err := json.Marshal(rec.Points)
	if err != nil {
		return fmt.Errorf("marshal polygon points: %w", err)
	}

	err = retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT OR REPLACE INTO terrain_polygons (polygon_id, name, points_json, planar, created_at_ns)
			VALUES (?, ?, ?, ?, ?)`,
			rec.PolygonID, nullString(rec.Name), string(points), rec.Planar, rec.CreatedAtNs,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("save polygon %s: %w", rec.PolygonID, err)
	}
	return nil
}

// ListPolygons returns all persisted polygons in insertion order.
func (s *SceneStore) ListPolygons() ([]*PolygonRecord, error) {
	rows, err := s.db.Query(`
		SELECT polygon_id, name, points_json, planar, created_at_ns
		FROM terrain_polygons ORDER BY created_at_ns ASC`)
	if err != nil {
		return nil, fmt.Errorf("list polygons: %w", err)
	}
	defer rows.Close()

	var out []*PolygonRecord
	for rows.Next() {
		var (
			rec    PolygonRecord
			name   sql.NullString
			points string
		)
		if err := rows.Scan(&rec.PolygonID, &name, &points, &rec.Planar, &rec.CreatedAtNs); err != nil {
			return nil, fmt.Errorf("scan polygon: %w", err)
		}
		rec.Name = name.String
		if err := json.Unmarshal([]byte(points), &rec.Points); err != nil {
			return nil, fmt.Errorf("unmarshal polygon %s points: %w", rec.PolygonID, err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// LogTransform appends an audit record for an applied transformation.
func (s *SceneStore) LogTransform(rec *TransformRecord) error {
	if rec.TransformID == "" {
		rec.TransformID = uuid.New().String()
	}
	if rec.AppliedAtNs == 0 {
		rec.AppliedAtNs = time.Now().UnixNano()
	}

	var params interface{}
	if len(rec.ParamsJSON) > 0 {
		params = string(rec.ParamsJSON)
	}

	err := retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO transform_log (transform_id, model_id, kind, params_json, generation, applied_at_ns)
			VALUES (?, ?, ?, ?, ?, ?)`,
			rec.TransformID, rec.ModelID, rec.Kind, params, rec.Generation, rec.AppliedAtNs,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("log transform: %w", err)
	}
	return nil
}

// ListTransforms returns the audit log for one model, newest first.
func (s *SceneStore) ListTransforms(modelID string) ([]*TransformRecord, error) {
	rows, err := s.db.Query(`
		SELECT transform_id, model_id, kind, params_json, generation, applied_at_ns
		FROM transform_log WHERE model_id = ? ORDER BY applied_at_ns DESC`, modelID)
	if err != nil {
		return nil, fmt.Errorf("list transforms: %w", err)
	}
	defer rows.Close()

	var out []*TransformRecord
	for rows.Next() {
		var (
			rec    TransformRecord
			params sql.NullString
		)
		if err := rows.Scan(&rec.TransformID, &rec.ModelID, &rec.Kind, &params, &rec.Generation, &rec.AppliedAtNs); err != nil {
			return nil, fmt.Errorf("scan transform: %w", err)
		}
		if params.Valid {
			rec.ParamsJSON = json.RawMessage(params.String)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}
