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

	"github.com/demanddesk/demanddesk/internal/api"
	"github.com/demanddesk/demanddesk/internal/auth"
	"github.com/demanddesk/demanddesk/internal/config"
	"github.com/demanddesk/demanddesk/internal/employee"
	"github.com/demanddesk/demanddesk/internal/ingest"
	"github.com/demanddesk/demanddesk/internal/llm"
	"github.com/demanddesk/demanddesk/internal/nl2sql"
	"github.com/demanddesk/demanddesk/internal/observability"
	"github.com/demanddesk/demanddesk/internal/ranking"
	"github.com/demanddesk/demanddesk/internal/rowsource/postgres"
	s3store "github.com/demanddesk/demanddesk/internal/storage/s3"
)

func main() {
	cfg, err := config.LoadFromEnv("demanddesk-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	db, err := postgres.Open(cfg.DB)
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()
	if err := postgres.Ping(context.Background(), db); err != nil {
		logger.Warn("database unreachable; employee routes stay up and /v1/ready reports the database", slog.Any("error", err))
	}
	repo := postgres.NewRepository(db)

	completer, err := llm.New(context.Background(), cfg.LLM)
	switch {
	case errors.Is(err, llm.ErrDisabled):
		logger.Warn("llm disabled; ranking falls back to keywords and sql search is unavailable")
	case err != nil:
		logger.Error("failed to initialize llm provider", slog.Any("error", err))
		os.Exit(1)
	default:
		logger.Info("llm enabled", slog.String("provider", cfg.LLM.Provider), slog.String("model", cfg.LLM.Model))
	}
	llmEnabled := completer != nil

	generator := &nl2sql.Generator{
		Completer:     completer,
		Roles:         repo,
		Catalog:       nl2sql.DefaultCatalog(),
		LLMEnabled:    llmEnabled,
		FallbackRoles: cfg.NL2SQL.FallbackRoles,
		Logger:        logger,
	}
	ranker := &ranking.Ranker{
		Completer:  completer,
		LLMEnabled: llmEnabled,
		Logger:     logger,
	}

	readiness := []api.ReadinessCheck{api.CheckDatabase(repo.HealthCheck)}
	var archiver *ingest.Archiver
	if cfg.Archive.Enabled {
		store, err := s3store.New(context.Background(), cfg.Archive)
		if err != nil {
			logger.Error("failed to initialize upload archive", slog.Any("error", err))
			os.Exit(1)
		}
		archiver = &ingest.Archiver{Store: store}
		readiness = append(readiness, store.Ping)
	}

	deps := api.Dependencies{
		Logger:            logger,
		Readiness:         api.CombineReadinessChecks(readiness...),
		DependencyTimeout: time.Second,
		Employees:         employee.NewStore(employee.Seed()),
		Ranker:            ranker,
		SQLGenerator:      generator,
		Rows:              repo,
		Uploads:           ingest.NewService(db, archiver, logger),
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      api.NewHandler(cfg, deps),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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
