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

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	r "github.com/redis/go-redis/v9"

	"github.com/evalstack/cv-evaluator/internal/common"
	"github.com/evalstack/cv-evaluator/internal/docstore"
	"github.com/evalstack/cv-evaluator/internal/export"
	"github.com/evalstack/cv-evaluator/internal/llm/openai"
	"github.com/evalstack/cv-evaluator/internal/pipeline"
	"github.com/evalstack/cv-evaluator/internal/refstore"
	"github.com/evalstack/cv-evaluator/internal/repository"
	"github.com/evalstack/cv-evaluator/internal/server"
	"github.com/evalstack/cv-evaluator/internal/worker"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Record store
	var repo repository.JobRepository
	switch cfg.Database.Driver {
	case "sqlite":
		db, err := repository.OpenSQLite(cfg.Database.SQLitePath, logger)
		if err != nil {
			logger.Error("open sqlite", "error", err)
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()
		repo = repository.NewSQLiteJobRepository(db, logger)
	default:
		pool, err := repository.Open(ctx, cfg.Database, logger)
		if err != nil {
			logger.Error("open db pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := repository.HealthCheck(ctx, pool, logger); err != nil {
			logger.Error("db health failed", "error", err)
			os.Exit(1)
		}
		repo = repository.NewJobRepository(pool, logger)
	}

	// Collaborators
	docs, err := docstore.NewFSStore(cfg.DocStore.Root, logger)
	if err != nil {
		logger.Error("open docstore", "error", err)
		os.Exit(1)
	}
	refs := refstore.NewHTTPClient(cfg.RefStore.BaseURL, cfg.RefStore.Timeout, logger)
	invoker := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)

	// Pipeline + worker
	orch := pipeline.NewOrchestrator(
		pipeline.NewCVStage(invoker, docs, refs, pipeline.CVPolicy, logger),
		pipeline.NewProjectStage(invoker, docs, refs, pipeline.ProjectPolicy, logger),
		pipeline.NewSynthesisStage(invoker, pipeline.SynthesisPolicy, logger),
		logger,
	)
	wkr := worker.New(repo, orch, logger)

	var queue worker.Queue
	switch cfg.Queue.Backend {
	case "redis":
		rdb := r.NewClient(&r.Options{Addr: cfg.Queue.RedisAddr, Password: cfg.Queue.RedisPassword})
		rq := worker.NewRedisQueue(rdb, cfg.Queue.RedisKey, wkr, logger, cfg.Queue.PopTimeout, cfg.Worker.JobTimeout)
		rq.Start()
		queue = rq
		defer func() { _ = rdb.Close() }()
	default:
		queue = worker.NewChannelQueue(wkr, logger,
			worker.WithQueueSize(cfg.Queue.Size),
			worker.WithJobTimeout(cfg.Worker.JobTimeout),
		)
	}

	// HTTP API
	srv := server.New(repo, queue, docs, export.NewService(repo, logger), logger)
	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("http serving", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	queue.Shutdown(shutdownCtx)
	logger.Info("stopped")
}
