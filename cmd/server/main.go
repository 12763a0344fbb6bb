package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/tilemark/mapeditor/internal/auth"
	"github.com/tilemark/mapeditor/internal/config"
	"github.com/tilemark/mapeditor/internal/db"
	"github.com/tilemark/mapeditor/internal/feed"
	"github.com/tilemark/mapeditor/internal/maps"
	mw "github.com/tilemark/mapeditor/internal/middleware"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		slog.Error("migrate database", "error", err)
		os.Exit(1)
	}

	store := db.NewStore(pool)

	authService := auth.NewService(store, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)

	mapService := maps.NewService(store, cfg.Editor.Options())
	mapHandler := maps.NewHandler(mapService)

	feedHandler := feed.NewHandler(mapService, authService, cfg.FeedBatchSize, cfg.Origins())

	r := mux.NewRouter()

	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	r.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"db unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Map reads are open to anonymous viewers for the sample and public maps.
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.OptionalAuth)
	api.HandleFunc("/editor-config", editorConfig(cfg.Editor)).Methods("GET")
	api.HandleFunc("/maps", mapHandler.List).Methods("GET")
	api.HandleFunc("/maps/{mapId}", mapHandler.Get).Methods("GET")
	api.HandleFunc("/maps/{mapId}/buildings", mapHandler.Buildings).Methods("GET")

	requireUser := authService.AuthMiddleware
	api.Handle("/me", requireUser(http.HandlerFunc(authHandler.Me))).Methods("GET")
	api.Handle("/maps", requireUser(http.HandlerFunc(mapHandler.Import))).Methods("POST")

	r.Handle("/ws/maps/{mapId}", feedHandler)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "gridSize", cfg.GridSize, "loadPolicy", cfg.LoadFailurePolicy)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// editorConfig serves the settings the browser engine is created with.
func editorConfig(e config.Editor) http.HandlerFunc {
	body, _ := json.Marshal(map[string]any{
		"gridSize":             e.GridSize,
		"cellSize":             e.CellSize,
		"zoomFactor":           e.ZoomFactor,
		"clampJumps":           e.ClampJumps,
		"trustLoadedBuildings": e.TrustLoadedBuildings,
		"loadFailurePolicy":    e.LoadFailurePolicy,
	})
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}
}
