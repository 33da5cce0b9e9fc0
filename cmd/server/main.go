// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fadugame/fadu/internal/auth"
	"github.com/fadugame/fadu/internal/cache"
	"github.com/fadugame/fadu/internal/config"
	"github.com/fadugame/fadu/internal/database"
	"github.com/fadugame/fadu/internal/game"
	"github.com/fadugame/fadu/internal/handlers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	logrus.SetLevel(cfg.LogLevel)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to postgres")
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		logrus.WithError(err).Fatal("failed to migrate schema")
	}

	history, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to redis")
	}
	defer history.Close()

	tokens := auth.NewTokenIssuer(cfg.JWTSecret)
	hub := handlers.NewHub()

	registry := game.NewRegistry(store, history, hub)
	registry.RoundDelay = cfg.RoundDelay

	mux := http.NewServeMux()
	handlers.NewAPI(store, history, tokens).Routes(mux)
	mux.Handle("GET /ws", handlers.NewWSHandler(hub, registry, tokens))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.WithField("addr", cfg.Addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logrus.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("graceful shutdown failed")
	}
}
