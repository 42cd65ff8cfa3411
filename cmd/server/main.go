package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"snakebattle/internal/config"
	"snakebattle/internal/handlers"
	"snakebattle/internal/room"
	"snakebattle/internal/scores"
	"snakebattle/internal/session"
)

const submitTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	sink, err := buildSink(cfg)
	if err != nil {
		log.Fatal(err)
	}
	dispatcher := scores.NewDispatcher(sink, cfg.ScoreQueueSize, submitTimeout)
	registry := room.NewRegistry(room.Options{Scores: dispatcher})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	handlers.NewHomeHandler(registry).RegisterRoutes(r)
	r.Route("/api/v1", func(r chi.Router) {
		// Websocket sessions outlive any request timeout.
		handlers.NewWSHandler(registry, session.Config{
			HeartbeatInterval: cfg.HeartbeatInterval,
			ClientTimeout:     cfg.ClientTimeout,
		}).RegisterRoutes(r)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(15 * time.Second))
			handlers.NewRoomsHandler(registry).RegisterRoutes(r)
		})
	})

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("listening on http://%s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down timeout=%s", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown err=%v", err)
	}
	registry.Close()
	if err := dispatcher.Close(shutdownCtx); err != nil {
		log.Printf("score dispatcher close err=%v", err)
	}
}

// buildSink wires the configured score sinks. With none configured, results
// are still queued and then discarded by an empty Multi.
func buildSink(cfg config.Config) (scores.Sink, error) {
	var sinks scores.Multi
	if cfg.ScoresEnabled() {
		sinks = append(sinks, scores.NewRESTSink(cfg.SupabaseURL, cfg.SupabaseKey, &http.Client{Timeout: submitTimeout}))
		log.Printf("score sink enabled kind=rest url=%s", cfg.SupabaseURL)
	}
	if cfg.ScoreArchiveDir != "" {
		archive, err := scores.NewParquetSink(cfg.ScoreArchiveDir)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, archive)
		log.Printf("score sink enabled kind=parquet path=%s", archive.OutPath())
	}
	return sinks, nil
}
