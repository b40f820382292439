package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/firebase/genkit/go/core/tracing"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/surfkit/surfkit/db"
	"github.com/surfkit/surfkit/internal/api"
	"github.com/surfkit/surfkit/internal/config"
	"github.com/surfkit/surfkit/internal/generate"
	"github.com/surfkit/surfkit/internal/session"
	"github.com/surfkit/surfkit/internal/surface"
)

const sweepInterval = 10 * time.Minute

// rateBurstFromEnv reads SURFKIT_RATE_BURST from the environment.
// Returns 0 (use default) if unset or invalid.
func rateBurstFromEnv() int {
	v := os.Getenv("SURFKIT_RATE_BURST")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Setup creates and initializes the application.
// Returns an App with embedded cleanup — call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	appCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	// Tracing must be registered before genkit.Init so spans from flow
	// execution land on the exporter.
	a.otelCleanup = provideOtelShutdown(ctx, cfg, logger)

	g, err := provideGenkit(ctx)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	store, err := a.provideStore(appCtx)
	if err != nil {
		return nil, err
	}
	a.Store = store

	a.Lifecycle = session.NewLifecycle(store, logger)

	tools := surface.DefineTools(g)

	gen, err := generate.New(generate.Config{
		Genkit:          g,
		Sessions:        store,
		Tools:           tools,
		Logger:          logger,
		ModelName:       cfg.ModelName,
		MaxTurns:        cfg.MaxTurns,
		Temperature:     cfg.Temperature,
		MaxOutputTokens: cfg.MaxOutputTokens,
	})
	if err != nil {
		return nil, err
	}
	a.Generator = gen

	a.StartFlow = generate.DefineStartSessionFlow(g, a.Lifecycle)
	a.GenerateFlow = generate.DefineGenerateUIFlow(g, gen)

	srv, err := api.NewServer(api.ServerConfig{
		Logger:    logger,
		Lifecycle: a.Lifecycle,
		Generator: gen,
		Flow:      a.GenerateFlow,
		RateBurst: rateBurstFromEnv(),
	})
	if err != nil {
		return nil, err
	}
	a.Server = srv

	return a, nil
}

// provideOtelShutdown registers an OTLP HTTP span exporter on Genkit's
// TracerProvider. Tracing is disabled unless an endpoint is configured;
// the returned cleanup is always safe to call.
func provideOtelShutdown(ctx context.Context, cfg *config.Config, logger *slog.Logger) func() {
	if cfg.OTLPEndpoint == "" {
		return func() {}
	}

	// SAFETY: os.Setenv is not concurrent-safe, but this runs exactly once
	// during startup, before goroutines are spawned.
	if cfg.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
		otlptracehttp.WithInsecure(), // local collector, no TLS
	)
	if err != nil {
		logger.Warn("creating OTLP exporter, tracing disabled", "error", err)
		return func() {}
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	logger.Debug("tracing enabled", "endpoint", cfg.OTLPEndpoint, "service", cfg.ServiceName)

	shutdown := tracing.TracerProvider().Shutdown

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideGenkit initializes Genkit with the Google AI plugin.
func provideGenkit(ctx context.Context) (*genkit.Genkit, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit")
	}
	return g, nil
}

// provideStore builds the session store for the configured backend.
// The postgres backend also starts a background expiry sweeper tied to
// the app context.
func (a *App) provideStore(ctx context.Context) (session.Store, error) {
	cfg := a.Config

	switch cfg.StoreBackend {
	case config.StoreMemory:
		return session.NewMemoryStore(cfg.SessionTTL, a.Logger), nil

	case config.StorePostgres:
		pool, err := a.provideDBPool(ctx)
		if err != nil {
			return nil, err
		}
		store := session.NewPostgresStore(pool, cfg.SessionTTL, a.Logger)
		go a.sweepLoop(ctx, store)
		return store, nil

	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("pinging redis: %w", err)
		}
		a.redisClient = client
		return session.NewRedisStore(client, cfg.SessionTTL, a.Logger), nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// provideDBPool creates a PostgreSQL connection pool and runs migrations.
func (a *App) provideDBPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg := a.Config

	if err := db.Migrate(cfg.PostgresURL(), a.Logger); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresURL())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	a.dbPool = pool
	return pool, nil
}

// sweepLoop periodically removes expired sessions. Expired rows are already
// invisible to Get; the sweep just reclaims storage.
func (a *App) sweepLoop(ctx context.Context, store *session.PostgresStore) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.Sweep(ctx)
			if err != nil {
				a.Logger.Warn("session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				a.Logger.Debug("session sweep completed", "removed", n)
			}
		}
	}
}
