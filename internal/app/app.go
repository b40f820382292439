// Package app provides application initialization and dependency wiring.
//
// App is the container that owns every long-lived component: the session
// store backend, the Genkit instance, the generator, the flows and the HTTP
// server. Setup builds it in dependency order; Close releases everything in
// reverse.
package app

import (
	"context"
	"log/slog"

	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/surfkit/surfkit/internal/api"
	"github.com/surfkit/surfkit/internal/config"
	"github.com/surfkit/surfkit/internal/generate"
	"github.com/surfkit/surfkit/internal/session"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Genkit    *genkit.Genkit
	Store     session.Store
	Lifecycle *session.Lifecycle
	Generator *generate.Generator

	StartFlow    *generate.StartSessionFlow
	GenerateFlow *generate.GenerateUIFlow
	Server       *api.Server

	// Backend handles, nil unless the matching store backend is selected.
	dbPool      *pgxpool.Pool
	redisClient *redis.Client

	cancel      context.CancelFunc
	otelCleanup func()
}

// Close gracefully releases all resources. Safe to call on a partially
// initialized App; Setup relies on that for its error path.
func (a *App) Close() error {
	a.Logger.Info("shutting down application")

	if a.cancel != nil {
		a.cancel()
	}

	if a.dbPool != nil {
		a.dbPool.Close()
		a.Logger.Debug("database pool closed")
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.Logger.Warn("closing redis client", "error", err)
		}
	}

	if a.otelCleanup != nil {
		a.otelCleanup()
	}

	return nil
}
