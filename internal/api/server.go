// Package api exposes the scene and the transformation engine over HTTP.
// This is the editor shell's surface: the engine itself stays synchronous
// and in-process, the handlers only marshal requests into it.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/relief-data/terrain.studio/internal/config"
	"github.com/relief-data/terrain.studio/internal/monitoring"
	"github.com/relief-data/terrain.studio/internal/scene"
	storage "github.com/relief-data/terrain.studio/internal/storage/sqlite"
	"github.com/relief-data/terrain.studio/internal/terrain"
)

type Server struct {
	scene    *scene.MapScene
	store    *storage.SceneStore
	defaults *config.EditorDefaults
}

// NewServer wires the handlers over a scene and an optional snapshot store
// (nil disables persistence endpoints).
func NewServer(sc *scene.MapScene, store *storage.SceneStore, defaults *config.EditorDefaults) *Server {
	if defaults == nil {
		defaults = config.DefaultEditorDefaults()
	}
	return &Server{scene: sc, store: store, defaults: defaults}
}

// ServeMux returns the API routes.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/models", s.handleModels)
	mux.HandleFunc("/api/model", s.handleModelGrid)
	mux.HandleFunc("/api/polygons", s.handlePolygons)
	mux.HandleFunc("/api/transform", s.handleTransform)
	mux.HandleFunc("/api/transforms", s.handleTransformLog)
	mux.HandleFunc("/api/snapshot", s.handleSnapshot)
	return mux
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  *int   `json:"code,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

// writeTransformError maps the engine's coded taxonomy onto HTTP statuses:
// 0 (unset id) is a bad request, 1 (unknown model) is not found, 2
// (non-planar polygon) is an unprocessable scene state.
func (s *Server) writeTransformError(w http.ResponseWriter, err error) {
	var terr *terrain.MapTransformationError
	if errors.As(err, &terr) {
		status := http.StatusBadRequest
		switch terr.Code {
		case terrain.ErrCodeUnknownModel:
			status = http.StatusNotFound
		case terrain.ErrCodeNonPlanarPolygon:
			status = http.StatusUnprocessableEntity
		}
		code := terr.Code
		s.writeJSON(w, status, errorResponse{Error: terr.Detail, Code: &code})
		return
	}
	s.writeError(w, http.StatusBadRequest, err.Error())
}

type modelSummary struct {
	ModelID    string `json:"model_id"`
	Name       string `json:"name"`
	Nx         int    `json:"nx"`
	Ny         int    `json:"ny"`
	Generation uint64 `json:"generation"`
	NaNCells   int    `json:"nan_cells"`
}

// createModelRequest carries heights as pointers so clients can express
// no-data cells as nulls, mirroring how responses encode them.
type createModelRequest struct {
	Name    string       `json:"name"`
	XS      []float64    `json:"xs"`
	YS      []float64    `json:"ys"`
	Heights [][]*float64 `json:"heights"`
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		summaries := s.scene.ModelSummaries()
		out := make([]modelSummary, 0, len(summaries))
		for _, sum := range summaries {
			out = append(out, modelSummary{
				ModelID:    sum.ID,
				Name:       sum.Name,
				Nx:         sum.Nx,
				Ny:         sum.Ny,
				Generation: sum.Generation,
				NaNCells:   sum.NaNCells,
			})
		}
		s.writeJSON(w, http.StatusOK, out)

	case http.MethodPost:
		var req createModelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("decode request: %v", err))
			return
		}
		grid, err := terrain.NewHeightGridFromHeights(req.XS, req.YS, decodeHeights(req.Heights))
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		id, err := s.scene.AddModel(req.Name, grid)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeJSON(w, http.StatusCreated, map[string]string{"model_id": id})

	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type gridResponse struct {
	ModelID    string       `json:"model_id"`
	XS         []float64    `json:"xs"`
	YS         []float64    `json:"ys"`
	Heights    [][]*float64 `json:"heights"`
	Generation uint64       `json:"generation"`
	Decimated  bool         `json:"decimated"`
}

// handleModelGrid returns a model's grid, decimated to the preview budget
// (overridable with max_rows/max_cols) so listings stay small. No-data
// cells are encoded as nulls: JSON has no NaN literal.
func (s *Server) handleModelGrid(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	modelID := r.URL.Query().Get("model_id")
	// A locked snapshot, not the live buffer: an in-flight apply may be
	// rewriting the model's grid while this handler encodes it.
	_, grid, ok := s.scene.GridSnapshot(modelID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "no model with that id")
		return
	}

	maxRows := queryInt(r, "max_rows", s.defaults.GetPreviewMaxRows())
	maxCols := queryInt(r, "max_cols", s.defaults.GetPreviewMaxCols())

	generation := grid.Generation()
	decimated := false
	if grid.Ny() > maxRows || grid.Nx() > maxCols {
		grid = terrain.Decimate(grid, maxRows, maxCols)
		decimated = true
	}

	resp := gridResponse{
		ModelID:    modelID,
		XS:         grid.XS,
		YS:         grid.YS,
		Heights:    encodeHeights(grid),
		Generation: generation,
		Decimated:  decimated,
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type polygonSummary struct {
	PolygonID string           `json:"polygon_id"`
	Points    []terrain.Point3 `json:"points"`
	Planar    bool             `json:"planar"`
}

type createPolygonRequest struct {
	Name   string           `json:"name"`
	Points []terrain.Point3 `json:"points"`
}

func (s *Server) handlePolygons(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		ids := s.scene.PolygonIDs()
		out := make([]polygonSummary, 0, len(ids))
		for _, id := range ids {
			out = append(out, polygonSummary{
				PolygonID: id,
				Points:    s.scene.PolygonPoints(id),
				Planar:    s.scene.IsPolygonPlanar(id),
			})
		}
		s.writeJSON(w, http.StatusOK, out)

	case http.MethodPost:
		var req createPolygonRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("decode request: %v", err))
			return
		}
		id := s.scene.AddPolygon(req.Name, req.Points)
		s.writeJSON(w, http.StatusCreated, map[string]interface{}{
			"polygon_id": id,
			"planar":     s.scene.IsPolygonPlanar(id),
		})

	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type transformRequest struct {
	Kind        string `json:"kind"`
	ModelID     string `json:"model_id"`
	SecondaryID string `json:"secondary_id,omitempty"`
	Method      string `json:"method,omitempty"`
	KernelSize  int    `json:"kernel_size,omitempty"`
	// Pointer so an explicit 0 stays distinguishable from an absent field,
	// which falls back to the configured default.
	NaNThreshold *float64 `json:"nan_threshold,omitempty"`
}

type transformResponse struct {
	ModelID    string `json:"model_id"`
	Kind       string `json:"kind"`
	Generation uint64 `json:"generation"`
}

func (s *Server) handleTransform(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req transformRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("decode request: %v", err))
		return
	}
	kind, err := terrain.ParseKind(req.Kind)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	method := req.Method
	if kind == terrain.KindInterpolateNaN && method == "" {
		method = s.defaults.GetInterpolationMethod()
	}
	kernel := req.KernelSize
	if kind == terrain.KindNanConvolution && kernel == 0 {
		kernel = s.defaults.GetConvolutionKernelSize()
	}
	threshold := 0.0
	if req.NaNThreshold != nil {
		threshold = *req.NaNThreshold
	} else if kind == terrain.KindNanConvolution {
		threshold = s.defaults.GetConvolutionThreshold()
	}

	t := terrain.NewTransformation(kind, terrain.Params{
		Model:        req.ModelID,
		Secondary:    req.SecondaryID,
		Method:       terrain.InterpolationMethod(method),
		KernelSize:   kernel,
		NaNThreshold: threshold,
	})

	gen, err := s.scene.ApplyTransformation(t)
	if err != nil {
		s.writeTransformError(w, err)
		return
	}

	if s.store != nil {
		params, _ := json.Marshal(req)
		if err := s.store.LogTransform(&storage.TransformRecord{
			ModelID:    req.ModelID,
			Kind:       kind.String(),
			ParamsJSON: params,
			Generation: gen,
		}); err != nil {
			monitoring.Logf("api: transform log write failed: %v", err)
		}
	}

	s.writeJSON(w, http.StatusOK, transformResponse{ModelID: req.ModelID, Kind: kind.String(), Generation: gen})
}

func (s *Server) handleTransformLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.store == nil {
		s.writeError(w, http.StatusNotFound, "persistence is disabled")
		return
	}
	records, err := s.store.ListTransforms(r.URL.Query().Get("model_id"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, records)
}

// handleSnapshot persists one model's current grid.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.store == nil {
		s.writeError(w, http.StatusNotFound, "persistence is disabled")
		return
	}
	modelID := r.URL.Query().Get("model_id")
	name, grid, ok := s.scene.GridSnapshot(modelID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "no model with that id")
		return
	}
	if _, err := s.store.SaveModel(modelID, name, grid); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"model_id": modelID})
}

// decodeHeights is the inverse of encodeHeights: null cells become NaN.
func decodeHeights(rows [][]*float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		line := make([]float64, len(row))
		for j, v := range row {
			if v == nil {
				line[j] = math.NaN()
			} else {
				line[j] = *v
			}
		}
		out[i] = line
	}
	return out
}

// encodeHeights maps the height buffer to JSON-safe values, nil for NaN.
func encodeHeights(g *terrain.HeightGrid) [][]*float64 {
	out := make([][]*float64, g.Ny())
	for row := range out {
		line := make([]*float64, g.Nx())
		for col := range line {
			h := g.Height(row, col)
			if h == h { // not NaN
				v := h
				line[col] = &v
			}
		}
		out[row] = line
	}
	return out
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
