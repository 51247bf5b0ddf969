// Package app assembles the HTTP application: storage, cache,
// authentication, middleware and the registered resources.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/saurabh1e/pos-api/internal/auth"
	"github.com/saurabh1e/pos-api/internal/cache"
	"github.com/saurabh1e/pos-api/internal/config"
	"github.com/saurabh1e/pos-api/internal/pos/orders"
	"github.com/saurabh1e/pos-api/internal/pos/products"
	"github.com/saurabh1e/pos-api/internal/pos/users"
	"github.com/saurabh1e/pos-api/internal/resource"
	"github.com/saurabh1e/pos-api/internal/storage"
	"github.com/saurabh1e/pos-api/internal/web/middleware"
	"github.com/saurabh1e/pos-api/internal/web/response"
)

// App owns the wired application and its external handles
type App struct {
	DB       *sql.DB
	Cache    cache.Cache
	Tokens   *auth.TokenService
	Source   *auth.Source
	Registry *resource.Registry

	handler http.Handler
	log     *zap.Logger
}

// New builds the application from configuration. The database must be
// reachable; redis is optional and falls back to the in-process cache.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	db, err := storage.Open(ctx, storage.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	var store cache.Cache
	if cfg.Redis.Addr != "" {
		store, err = cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Cache:    cache.DefaultConfig(),
		})
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
	} else {
		store = cache.NewMemory()
	}

	tokens := auth.NewTokenService(cfg.Auth.SecretKey, cfg.Auth.TokenTTL)
	source := auth.NewSource(db, store, cfg.Auth.PrincipalTTL)

	app := &App{
		DB:       db,
		Cache:    store,
		Tokens:   tokens,
		Source:   source,
		Registry: resource.NewRegistry(),
		log:      log,
	}

	if err := app.registerResources(); err != nil {
		app.Close()
		return nil, err
	}

	app.handler = app.buildRouter()
	return app, nil
}

func (a *App) registerResources() error {
	for _, register := range []func(*resource.Registry, *sql.DB, *zap.Logger) error{
		users.Register,
		products.Register,
		orders.Register,
	} {
		if err := register(a.Registry, a.DB, a.log); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) buildRouter() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.StripSlashes)
	router.Use(middleware.NewChain(
		middleware.RequestID(),
		middleware.Recovery(a.log),
		middleware.Logging(a.log),
		middleware.CORS(),
		middleware.Compression(),
		middleware.Timeout(30*time.Second),
		middleware.Authenticate(a.Tokens, a.Source, a.log),
	).Then)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := a.DB.PingContext(r.Context()); err != nil {
			response.RenderJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		response.RenderJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.Post("/auth/login", a.login)

	router.Route("/api/v1", func(api chi.Router) {
		a.Registry.Mount(api)
	})

	return router
}

// Handler returns the assembled HTTP handler
func (a *App) Handler() http.Handler {
	return a.handler
}

// Close releases the application's external handles
func (a *App) Close() {
	if a.Cache != nil {
		if closer, ok := a.Cache.(interface{ Close() error }); ok {
			closer.Close()
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
