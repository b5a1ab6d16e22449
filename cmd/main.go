// jobmate-recommendation-service
//
// Adaptive recommendation engine for the job feed. Scores offers against a
// continuously learned preference profile, tracks the recommendation
// lifecycle, learns from implicit and explicit feedback, and produces daily
// digests and funnel metrics.
//
// Reads job_feed (discovery service) and applications (tracker service);
// owns preferences, recommendations, recommendation_feedback, similar_jobs
// and recommendation_digests. Publishes EVENT_RECOMMENDATION_* to Redis for
// the Gateway SSE forward.
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

	"github.com/go-chi/chi/v5"

	"jobmate/recommendation-service/internal/catalog"
	"jobmate/recommendation-service/internal/config"
	"jobmate/recommendation-service/internal/db"
	"jobmate/recommendation-service/internal/recommender"
	"jobmate/recommendation-service/internal/scheduler"
)

const version = "1.0.0"

func main() {
	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── PostgreSQL ───────────────────────────────────────────────────────────
	slog.Info("connecting to PostgreSQL…")
	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("postgres", "err", err)
		os.Exit(1)
	}
	defer pool.Close()
	slog.Info("PostgreSQL connected")

	// ── Redis ────────────────────────────────────────────────────────────────
	slog.Info("connecting to Redis…")
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("redis", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()
	slog.Info("Redis connected")

	// ── Engine ───────────────────────────────────────────────────────────────
	svc := recommender.NewService(pool, rdb,
		catalog.NewFeedCatalog(pool),
		catalog.NewTrackerHistory(pool),
	)

	// ── Cron ─────────────────────────────────────────────────────────────────
	sched := scheduler.New(svc, cfg.DigestHour, cfg.SimilarityRefreshHours)
	if err := sched.Start(ctx); err != nil {
		slog.Error("scheduler", "err", err)
		os.Exit(1)
	}
	defer sched.Stop()

	// ── HTTP server ──────────────────────────────────────────────────────────
	r := chi.NewRouter()
	r.Get("/health", healthHandler)
	recommender.NewHandler(svc).RegisterRoutes(r)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		slog.Info("listening", "version", version, "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "err", err)
	}
	slog.Info("stopped")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "recommendation-service",
		"version": version,
	})
}
