// terrain.studio server: loads the editor defaults, opens the snapshot
// database, restores the persisted scene and serves the editing API plus
// the monitor debug pages.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relief-data/terrain.studio/internal/api"
	"github.com/relief-data/terrain.studio/internal/config"
	"github.com/relief-data/terrain.studio/internal/db"
	"github.com/relief-data/terrain.studio/internal/monitor"
	"github.com/relief-data/terrain.studio/internal/scene"
	storage "github.com/relief-data/terrain.studio/internal/storage/sqlite"
	"github.com/relief-data/terrain.studio/internal/version"
)

var (
	listen        = flag.String("listen", ":8080", "Listen address")
	dbFile        = flag.String("db", "terrain_scene.db", "Path to the scene snapshot database")
	configPath    = flag.String("config", config.DefaultConfigPath, "Path to the editor defaults file")
	migrationsDir = flag.String("migrations", "migrations", "Path to the schema migrations")
	showVersion   = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		log.Printf("terrain.studio %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	defaults, err := config.LoadEditorDefaults(*configPath)
	if err != nil {
		log.Fatalf("load defaults: %v", err)
	}

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer database.Close()

	if err := database.MigrateUp(*migrationsDir); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	store := storage.NewSceneStore(database.DB)
	sc := scene.NewMapScene(defaults.GetPlanarityTolerance())
	if err := restoreScene(sc, store); err != nil {
		log.Fatalf("restore scene: %v", err)
	}

	server := api.NewServer(sc, store, defaults)
	mux := server.ServeMux()
	monitor.NewWebServer(sc).RegisterRoutes(mux)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("terrain.studio scene server\n"))
	})

	httpServer := &http.Server{Addr: *listen, Handler: mux}
	go func() {
		log.Printf("listening on %s (db %s)", *listen, *dbFile)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

// restoreScene loads every persisted model and polygon into the live scene.
func restoreScene(sc *scene.MapScene, store *storage.SceneStore) error {
	models, err := store.ListModels()
	if err != nil {
		return err
	}
	for _, rec := range models {
		_, grid, err := store.LoadModel(rec.ModelID)
		if err != nil {
			return err
		}
		if err := sc.AddModelWithID(rec.ModelID, rec.Name, grid); err != nil {
			return err
		}
	}

	polygons, err := store.ListPolygons()
	if err != nil {
		return err
	}
	for _, rec := range polygons {
		sc.AddPolygon(rec.Name, rec.Points)
	}

	log.Printf("restored %d models, %d polygons", len(models), len(polygons))
	return nil
}
