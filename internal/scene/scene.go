// Package scene holds the editor's live model and polygon registries and
// owns every height grid. Transformations consume it through the
// terrain.Scene interface and are serialized per model: the scene enforces
// the single-writer discipline the engine itself does not.
package scene

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/relief-data/terrain.studio/internal/monitoring"
	"github.com/relief-data/terrain.studio/internal/terrain"
)

// Model is one terrain model: a named height grid owned by the scene.
type Model struct {
	ID   string
	Name string
	Grid *terrain.HeightGrid

	// mu serializes initialize/apply cycles against this model's grid.
	// At most one transformation is in flight per model at any time;
	// readers take the read side and copy what they need.
	mu sync.RWMutex
}

type polygonEntry struct {
	id     string
	name   string
	points []terrain.Point3
	planar bool
}

// MapScene is the concrete in-memory scene.
type MapScene struct {
	mu        sync.RWMutex
	models    map[string]*Model
	polygons  map[string]*polygonEntry
	polyOrder []string // insertion order, stable for FillNaN iteration

	planarityTolerance float64
}

// NewMapScene creates an empty scene. planarityTolerance is the maximum
// out-of-plane deviation (in height units) a polygon may have and still be
// considered planar.
func NewMapScene(planarityTolerance float64) *MapScene {
	return &MapScene{
		models:             make(map[string]*Model),
		polygons:           make(map[string]*polygonEntry),
		planarityTolerance: planarityTolerance,
	}
}

// AddModel registers a grid under a fresh uuid and returns the model id.
// The scene takes ownership of the grid.
func (s *MapScene) AddModel(name string, g *terrain.HeightGrid) (string, error) {
	if err := g.Validate(); err != nil {
		return "", fmt.Errorf("add model %q: %w", name, err)
	}
	id := uuid.New().String()
	s.mu.Lock()
	s.models[id] = &Model{ID: id, Name: name, Grid: g}
	s.mu.Unlock()
	monitoring.Logf("scene: added model %s (%q, %dx%d)", id, name, g.Ny(), g.Nx())
	return id, nil
}

// AddModelWithID registers a grid under a caller-provided id, used when
// restoring persisted scenes. Fails if the id is taken.
func (s *MapScene) AddModelWithID(id, name string, g *terrain.HeightGrid) error {
	if id == "" {
		return fmt.Errorf("add model %q: empty id", name)
	}
	if err := g.Validate(); err != nil {
		return fmt.Errorf("add model %q: %w", name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.models[id]; exists {
		return fmt.Errorf("add model %q: id %s already present", name, id)
	}
	s.models[id] = &Model{ID: id, Name: name, Grid: g}
	return nil
}

// RemoveModel drops a model from the scene.
func (s *MapScene) RemoveModel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.models[id]; !ok {
		return false
	}
	delete(s.models, id)
	return true
}

// Model returns the model for an id.
func (s *MapScene) Model(id string) (*Model, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.models[id]
	return m, ok
}

// Models returns all models sorted by name then id, for stable listings.
func (s *MapScene) Models() []*Model {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Model, 0, len(s.models))
	for _, m := range s.models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ModelSummary is a read-consistent view of one model's metadata, taken
// under the model's reader lock.
type ModelSummary struct {
	ID         string
	Name       string
	Nx, Ny     int
	Generation uint64
	NaNCells   int
}

// ModelSummaries returns summaries for every model, sorted by name then id.
// Each summary is read under its model's lock, so the counts are consistent
// even while transformations run.
func (s *MapScene) ModelSummaries() []ModelSummary {
	models := s.Models()
	out := make([]ModelSummary, 0, len(models))
	for _, m := range models {
		m.mu.RLock()
		out = append(out, ModelSummary{
			ID:         m.ID,
			Name:       m.Name,
			Nx:         m.Grid.Nx(),
			Ny:         m.Grid.Ny(),
			Generation: m.Grid.Generation(),
			NaNCells:   m.Grid.CountNaN(),
		})
		m.mu.RUnlock()
	}
	return out
}

// GridSnapshot returns a deep copy of a model's grid plus its name, taken
// under the model's reader lock. Readers outside an initialize/apply cycle
// (API handlers, plotters, the snapshot store) use this instead of touching
// the live buffer, which an in-flight Apply may be rewriting.
func (s *MapScene) GridSnapshot(id string) (name string, g *terrain.HeightGrid, ok bool) {
	m, ok := s.Model(id)
	if !ok {
		return "", nil, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Name, m.Grid.Clone(), true
}

// AddPolygon registers a polygon ring and returns its id. Planarity is
// evaluated once, on entry; the cached verdict is what transformations see.
func (s *MapScene) AddPolygon(name string, points []terrain.Point3) string {
	id := uuid.New().String()
	entry := &polygonEntry{
		id:     id,
		name:   name,
		points: points,
		planar: isPlanar(points, s.planarityTolerance),
	}
	s.mu.Lock()
	s.polygons[id] = entry
	s.polyOrder = append(s.polyOrder, id)
	s.mu.Unlock()
	return id
}

// RemovePolygon drops a polygon from the scene.
func (s *MapScene) RemovePolygon(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.polygons[id]; !ok {
		return false
	}
	delete(s.polygons, id)
	for i, pid := range s.polyOrder {
		if pid == id {
			s.polyOrder = append(s.polyOrder[:i], s.polyOrder[i+1:]...)
			break
		}
	}
	return true
}

// ModelIDs implements terrain.Scene.
func (s *MapScene) ModelIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.models))
	for id := range s.models {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ModelGrid implements terrain.Scene. The returned grid is the scene-owned
// storage, not a copy.
func (s *MapScene) ModelGrid(id string) (*terrain.HeightGrid, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.models[id]
	if !ok {
		return nil, false
	}
	return m.Grid, true
}

// PolygonIDs implements terrain.Scene, in insertion order.
func (s *MapScene) PolygonIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.polyOrder...)
}

// PolygonPoints implements terrain.Scene.
func (s *MapScene) PolygonPoints(id string) []terrain.Point3 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.polygons[id]
	if !ok {
		return nil
	}
	return p.points
}

// IsPolygonPlanar implements terrain.Scene.
func (s *MapScene) IsPolygonPlanar(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.polygons[id]
	if !ok {
		return false
	}
	return p.planar
}

// ApplyTransformation runs one full initialize/apply cycle under the target
// model's writer lock. Initialize failures surface with zero mutation; on
// success the returned generation identifies the new grid state.
func (s *MapScene) ApplyTransformation(t *terrain.Transformation) (uint64, error) {
	m, ok := s.Model(t.TargetModel())
	if ok {
		m.mu.Lock()
		defer m.mu.Unlock()
	}
	// A missing model still goes through Initialize so the coded error
	// (0 for an unset id, 1 for an unknown one) is produced in one place.
	if err := t.Initialize(s); err != nil {
		return 0, err
	}
	_, gen, err := t.Apply()
	if err != nil {
		return 0, err
	}
	monitoring.Logf("scene: applied %s to model %s (generation %d)", t.Kind(), t.TargetModel(), gen)
	return gen, nil
}
