package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/auth"
	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/diagnostics"
	"storefront/internal/events"
	"storefront/internal/handlers"
	"storefront/internal/logger"
	"storefront/internal/metrics"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/routes"
	"storefront/internal/tracing"
)

const (
	serviceName     = "storefront"
	shutdownTimeout = 10 * time.Second
	janitorInterval = time.Minute
)

type App struct {
	cfg    *config.Config
	logger *slog.Logger
}

func New(cfg *config.Config) *App {
	return &App{
		cfg:    cfg,
		logger: logger.New(os.Stdout, cfg.LogLevel, cfg.LogFormat),
	}
}

func (a *App) Run() error {
	a.logger.Info("starting storefront", "port", a.cfg.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(serviceName, a.cfg.Tracing, os.Stdout)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			a.logger.Warn("tracer shutdown failed", "error", err)
		}
	}()

	client, err := a.initMongoDB(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Disconnect(client); err != nil {
			a.logger.Warn("mongodb disconnect failed", "error", err)
		}
	}()
	db := client.Database(a.cfg.MongoDB)

	store, err := a.initCache(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	publisher := a.initPublisher(ctx)
	defer publisher.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := metrics.NewHTTP(registry)

	users := repository.NewUserRepository(db)
	categories := repository.NewCategoryRepository(db)
	products := repository.NewProductRepository(db)
	carts := repository.NewCartRepository(db)
	orders := repository.NewOrderRepository(db)
	tokens := auth.NewTokenManager(a.cfg.JWTSecret, a.cfg.JWTTTL)

	router := routes.NewEngine(a.logger, httpMetrics)
	routes.RegisterRoutes(router, routes.Handlers{
		Auth:       handlers.NewAuthHandler(users, tokens, a.logger),
		Categories: handlers.NewCategoryHandler(categories, products, store, a.logger),
		Products:   handlers.NewProductHandler(products, categories, store, a.logger),
		Cart:       handlers.NewCartHandler(carts, products, a.logger),
		Orders:     handlers.NewOrderHandler(orders, carts, products, publisher, a.logger),
		Health:     handlers.NewHealthHandler(database.Pinger{Client: client}),
	}, routes.Guards{
		SignIn: middleware.RequireSignIn(tokens),
		Admin:  middleware.IsAdmin(users, a.logger),
	})

	server := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           tracing.Handler(router, serviceName),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	var diag *diagnostics.Server
	if a.cfg.MetricsPort > 0 {
		diag = diagnostics.NewServer(a.cfg.MetricsPort, registry)
		go func() {
			a.logger.Info("starting diagnostics server", "port", a.cfg.MetricsPort)
			if err := diag.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("diagnostics server failed", "error", err)
			}
		}()
	}

	return a.serve(ctx, server, diag)
}

func (a *App) initMongoDB(ctx context.Context) (*mongo.Client, error) {
	a.logger.Info("connecting to mongodb", "db", a.cfg.MongoDB)

	client, err := database.Connect(ctx, a.cfg.MongoURI)
	if err != nil {
		return nil, err
	}
	if err := database.EnsureIndexes(ctx, client.Database(a.cfg.MongoDB)); err != nil {
		_ = database.Disconnect(client)
		return nil, err
	}

	a.logger.Info("connected to mongodb")
	return client, nil
}

func (a *App) initCache(ctx context.Context) (cache.Cache, error) {
	switch a.cfg.Cache.Backend {
	case config.CacheRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     a.cfg.Cache.RedisAddr,
			Password: a.cfg.Cache.RedisPassword,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", a.cfg.Cache.RedisAddr, err)
		}

		a.logger.Info("using redis cache", "addr", a.cfg.Cache.RedisAddr)
		return cache.NewRedis(client), nil
	default:
		a.logger.Info("using in-memory cache")
		return cache.NewMemory(janitorInterval), nil
	}
}

// initPublisher falls back to dropping events when NATS is not configured
// or unreachable; orders are still accepted.
func (a *App) initPublisher(ctx context.Context) events.Publisher {
	if a.cfg.NATSURL == "" {
		a.logger.Info("NATS_URL not set, event publishing disabled")
		return events.Noop{}
	}

	publisher, err := events.NewNatsPublisher(ctx, a.cfg.NATSURL, a.logger)
	if err != nil {
		a.logger.Warn("continuing without event publishing", "error", err)
		return events.Noop{}
	}
	return publisher
}

func (a *App) serve(ctx context.Context, server *http.Server, diag *diagnostics.Server) error {
	serverErrors := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		a.logger.Info("shutdown signal received, draining connections")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if diag != nil {
		if err := diag.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("diagnostics shutdown failed", "error", err)
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	a.logger.Info("graceful shutdown completed")
	return nil
}
