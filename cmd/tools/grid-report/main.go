// grid-report renders a heatmap PNG for a persisted terrain model. Useful
// for checking a transformation result without starting the server.
package main

import (
	"flag"
	"log"

	"github.com/relief-data/terrain.studio/internal/db"
	"github.com/relief-data/terrain.studio/internal/monitor"
	storage "github.com/relief-data/terrain.studio/internal/storage/sqlite"
	"github.com/relief-data/terrain.studio/internal/terrain"
)

var (
	dbFile  = flag.String("db", "terrain_scene.db", "Path to the scene snapshot database")
	modelID = flag.String("model", "", "Model id to render (empty: render all)")
	outDir  = flag.String("out", "plots", "Output directory for PNGs")
	maxDim  = flag.Int("max-dim", 512, "Decimate grids larger than this per axis before plotting")
)

func main() {
	flag.Parse()

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer database.Close()

	store := storage.NewSceneStore(database.DB)
	plotter := monitor.NewGridPlotter(*outDir)

	records, err := store.ListModels()
	if err != nil {
		log.Fatalf("list models: %v", err)
	}

	rendered := 0
	for _, rec := range records {
		if *modelID != "" && rec.ModelID != *modelID {
			continue
		}
		_, grid, err := store.LoadModel(rec.ModelID)
		if err != nil {
			log.Fatalf("load model %s: %v", rec.ModelID, err)
		}
		if grid.Nx() > *maxDim || grid.Ny() > *maxDim {
			grid = terrain.Decimate(grid, *maxDim, *maxDim)
		}
		path, err := plotter.PlotHeightmap(grid, rec.ModelID)
		if err != nil {
			log.Fatalf("plot model %s: %v", rec.ModelID, err)
		}
		log.Printf("wrote %s (%q, %dx%d)", path, rec.Name, grid.Ny(), grid.Nx())
		rendered++
	}

	if rendered == 0 {
		log.Printf("no matching models in %s", *dbFile)
	}
}
