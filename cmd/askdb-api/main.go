package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/askdb/askdb/internal/api"
	"github.com/askdb/askdb/internal/auth"
	"github.com/askdb/askdb/internal/catalog"
	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/execgate"
	"github.com/askdb/askdb/internal/guardrail"
	"github.com/askdb/askdb/internal/history"
	historypostgres "github.com/askdb/askdb/internal/history/postgres"
	"github.com/askdb/askdb/internal/llm"
	"github.com/askdb/askdb/internal/nlq"
	"github.com/askdb/askdb/internal/observability"
	"github.com/askdb/askdb/internal/pipeline"
	"github.com/askdb/askdb/internal/rbac"
)

func main() {
	cfg, err := config.LoadFromEnv("askdb-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store history.Store
	if cfg.History.DSN != "" {
		repo, err := historypostgres.Open(ctx, cfg.History)
		if err != nil {
			logger.Error("failed to open history db", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() { _ = repo.Close() }()
		store = repo
	} else {
		logger.Info("history dsn not configured, using in-memory store")
		store = history.NewMemoryStore()
	}

	var engine execgate.Engine
	switch cfg.Exec.Engine {
	case config.EngineDuckDB:
		duck, err := execgate.OpenDuckDB(ctx, cfg.Exec)
		if err != nil {
			logger.Error("failed to open duckdb", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() { _ = duck.Close() }()
		engine = duck
	default:
		pg, err := execgate.OpenPostgres(ctx, cfg.Exec)
		if err != nil {
			logger.Error("failed to open exec db", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() { _ = pg.Close() }()
		engine = pg
	}

	client, err := llm.NewOpenAIClient(cfg.AI)
	if err != nil {
		logger.Error("failed to initialize model client", slog.Any("error", err))
		os.Exit(1)
	}

	cat := catalog.Default()
	runner := pipeline.New(
		pipeline.Config{
			GenerateTimeout: cfg.AI.Timeout,
			HistoryWindow:   cfg.History.Window,
			RowLimit:        cfg.Exec.RowLimit,
		},
		guardrail.NewClassifier(),
		rbac.NewChecker(cat),
		nlq.NewCatalogProvider(cat),
		nlq.NewGenerator(client),
		engine,
		store,
		logger,
	)

	deps := api.Dependencies{
		Logger:  logger,
		Runner:  runner,
		History: store,
		Readiness: api.CombineReadinessChecks(
			api.CheckExecConfig(cfg),
			api.CheckHistoryStore(store),
			engine.HealthCheck,
		),
		DependencyTimeout: time.Second,
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	if cfg.History.PruneInterval > 0 && cfg.History.MaxAge > 0 {
		go pruneHistory(ctx, logger, store, cfg.History.MaxAge, cfg.History.PruneInterval)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}

func pruneHistory(ctx context.Context, logger *slog.Logger, store history.Store, maxAge, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.PruneExpired(ctx, time.Now().UTC().Add(-maxAge))
			if err != nil {
				logger.Error("history prune failed", slog.Any("error", err))
				continue
			}
			if removed > 0 {
				logger.Info("pruned expired history turns", slog.Int("removed", removed))
			}
		}
	}
}
