package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/arnab9957/CodeFuse/internal/api"
	"github.com/arnab9957/CodeFuse/internal/config"
	"github.com/arnab9957/CodeFuse/internal/coordinator"
	"github.com/arnab9957/CodeFuse/internal/metrics"
	"github.com/arnab9957/CodeFuse/internal/routers"
	"github.com/arnab9957/CodeFuse/internal/session"
	"github.com/arnab9957/CodeFuse/internal/sessions"
	"github.com/arnab9957/CodeFuse/internal/users"
)

func openDB(cfg *config.Config) (*gorm.DB, error) {
	if cfg.DatabaseURL != "" {
		return gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	}
	return gorm.Open(sqlite.Open(cfg.SQLitePath), &gorm.Config{})
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := config.Load()

	store := sessions.NewStore(cfg.RedisAddr)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := store.Ping(ctx); err != nil {
		logger.Warn("redis unreachable, sessions will fail until it recovers",
			zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	cancel()

	db, err := openDB(cfg)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	repo := users.NewRepository(db)
	if err := repo.Migrate(); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	hub := session.NewHub()
	coord := coordinator.New(logger, hub, store)
	handlers := api.NewHandlers(logger, cfg, hub, coord, store)
	userHandlers := users.NewHandlers(repo, cfg.JWTSecret, logger)

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		}),
		metrics.Middleware,
	)

	r.Handle("/metrics", metrics.Handler())
	r.Mount("/", routers.New(handlers, userHandlers))

	addr := ":" + cfg.Port
	logger.Info("codefuse server listening", zap.String("addr", addr))
	logger.Fatal("server stopped", zap.Error(http.ListenAndServe(addr, r)))
}
