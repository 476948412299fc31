package monitor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/relief-data/terrain.studio/internal/scene"
	"github.com/relief-data/terrain.studio/internal/terrain"
)

// WebServer exposes debugging-only chart pages over the live scene. The
// pages carry no auth and exist to eyeball a grid without the full editor
// front end.
type WebServer struct {
	scene *scene.MapScene
}

// NewWebServer creates the monitor handlers over a scene.
func NewWebServer(sc *scene.MapScene) *WebServer {
	return &WebServer{scene: sc}
}

// RegisterRoutes attaches the monitor endpoints to a mux.
func (ws *WebServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/monitor/heightmap", ws.handleHeightmapScatter)
}

func (ws *WebServer) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// handleHeightmapScatter renders a scatter of grid cell centers colored by
// height. Query params:
//   - model_id (required)
//   - max_points (optional; default 8000) to bound the payload
func (ws *WebServer) handleHeightmapScatter(w http.ResponseWriter, r *http.Request) {
	modelID := r.URL.Query().Get("model_id")
	if modelID == "" {
		ws.writeJSONError(w, http.StatusBadRequest, "model_id is required")
		return
	}
	// A locked snapshot: the live buffer may be mid-apply.
	_, grid, ok := ws.scene.GridSnapshot(modelID)
	if !ok {
		ws.writeJSONError(w, http.StatusNotFound, "no model with that id")
		return
	}

	maxPoints := 8000
	if mp := r.URL.Query().Get("max_points"); mp != "" {
		if v, err := strconv.Atoi(mp); err == nil && v > 100 && v <= 50000 {
			maxPoints = v
		}
	}

	// Decimate by stride until the cell count fits the point budget.
	preview := grid
	for preview.Nx()*preview.Ny() > maxPoints {
		preview = terrain.Decimate(preview, preview.Ny()/2, preview.Nx()/2)
	}

	var (
		data     []opts.ScatterData
		minH     = math.Inf(1)
		maxH     = math.Inf(-1)
		nanCells = 0
	)
	for row := 0; row < preview.Ny(); row++ {
		for col := 0; col < preview.Nx(); col++ {
			h := preview.Height(row, col)
			if math.IsNaN(h) {
				nanCells++
				continue
			}
			if h < minH {
				minH = h
			}
			if h > maxH {
				maxH = h
			}
			data = append(data, opts.ScatterData{Value: []interface{}{preview.XS[col], preview.YS[row], h}})
		}
	}
	if len(data) == 0 {
		ws.writeJSONError(w, http.StatusNotFound, "model has no valid heights to plot")
		return
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Terrain Heightmap", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Terrain Heightmap",
			Subtitle: fmt.Sprintf("model=%s cells=%d no-data=%d generation=%d", modelID, len(data), nanCells, grid.Generation()),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "X", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Y", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(minH),
			Max:        float32(maxH),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#3e4989", "#26828e", "#35b779", "#b5de2b", "#fde725"}},
		}),
	)
	scatter.AddSeries("height", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
