package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"

	"github.com/ewilliams-labs/jamhub/internal/adapters/ollama"
	"github.com/ewilliams-labs/jamhub/internal/adapters/rest"
	"github.com/ewilliams-labs/jamhub/internal/adapters/spotify"
	"github.com/ewilliams-labs/jamhub/internal/adapters/sqlite"
	"github.com/ewilliams-labs/jamhub/internal/adapters/ws"
	"github.com/ewilliams-labs/jamhub/internal/core/services"
	"github.com/ewilliams-labs/jamhub/internal/worker"
)

func main() {
	// 1. Configuration (Environment Variables)
	// Crash early if required config is missing.
	clientID := os.Getenv("SPOTIFY_CLIENT_ID")
	clientSecret := os.Getenv("SPOTIFY_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		log.Fatal("FATAL: SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET environment variables are required")
	}

	addr := os.Getenv("JAMHUB_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	dbPath := os.Getenv("JAMHUB_DB")
	if dbPath == "" {
		dbPath = "jamhub.db"
	}

	// 2. Initialize driven adapters.
	store, err := sqlite.NewStore(dbPath)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database: %v", err)
	}
	defer store.Close()

	catalog := spotify.NewClient(clientID, clientSecret)

	// 3. Core: the hub fans broadcasts out, the registry owns the areas.
	hub := ws.NewHub()
	registry := services.NewAreaRegistry(hub, store)

	// 4. Background analysis: audio features from the catalog, genre labels
	// from a local Ollama instance.
	tagger := ollama.NewClient(os.Getenv("OLLAMA_HOST"))
	pool := worker.NewPool(catalog, tagger, registry, 100)
	pool.Start(2)
	defer pool.Stop()
	registry.SetAnalysisScheduler(pool)

	// 5. Driving adapters: REST for the read side, websocket for commands.
	wsServer := ws.NewServer(registry, hub)
	handler := rest.NewHandler(registry, catalog)

	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			m := httpsnoop.CaptureMetrics(next, w, req)
			slog.Info("handled", "method", req.Method, "url", req.URL, "duration", m.Duration, "status", m.Code)
		})
	})
	r.Methods(http.MethodGet).Path("/areas/{area}/connect").HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		wsServer.HandleConnection(w, req, mux.Vars(req)["area"])
	})
	r.PathPrefix("/").Handler(handler)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 15 * time.Second,
	}

	slog.Info("jamhub API listening", "addr", addr)

	serverErr := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErr:
		if err != nil {
			log.Fatal(err)
		}
	case <-ctx.Done():
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "err", err)
		}
	}
}
