package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/evalstack/cv-evaluator/internal/common"
	"github.com/evalstack/cv-evaluator/internal/docstore"
	"github.com/evalstack/cv-evaluator/internal/llm/openai"
	"github.com/evalstack/cv-evaluator/internal/pipeline"
	"github.com/evalstack/cv-evaluator/internal/refstore"
)

// One-shot run of the evaluation pipeline against local documents,
// bypassing the queue and record store. Useful for prompt iteration.
func main() {
	_ = godotenv.Load()

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	if len(os.Args) < 4 {
		logger.Error("usage: evaluate <job_title> <cv_ref> <project_ref>")
		os.Exit(2)
	}
	jobTitle, cvRef, projectRef := os.Args[1], os.Args[2], os.Args[3]

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}
	if cfg.LLM.APIKey == "" {
		logger.Error("OPENAI_API_KEY env var is required")
		os.Exit(2)
	}

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

	orch := pipeline.NewOrchestrator(
		pipeline.NewCVStage(invoker, docs, refs, pipeline.CVPolicy, logger),
		pipeline.NewProjectStage(invoker, docs, refs, pipeline.ProjectPolicy, logger),
		pipeline.NewSynthesisStage(invoker, pipeline.SynthesisPolicy, logger),
		logger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Worker.JobTimeout)
	defer cancel()

	start := time.Now()
	result, err := orch.Evaluate(ctx, jobTitle, cvRef, projectRef)
	if err != nil {
		logger.Error("evaluation failed", "elapsed_ms", time.Since(start).Milliseconds(), "error", err)
		os.Exit(1)
	}
	logger.Info("evaluation done", "elapsed_ms", time.Since(start).Milliseconds())

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
}
