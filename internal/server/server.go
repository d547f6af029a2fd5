package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/evalstack/cv-evaluator/internal/docstore"
	"github.com/evalstack/cv-evaluator/internal/export"
	"github.com/evalstack/cv-evaluator/internal/repository"
	"github.com/evalstack/cv-evaluator/internal/worker"
)

// Server exposes the submission ingress and status surface over HTTP. It
// never mutates jobs past creation; everything after enqueue belongs to the
// worker.
type Server struct {
	repo   repository.JobRepository
	queue  worker.Queue
	docs   docstore.Store
	export *export.Service
	log    *slog.Logger
}

func New(repo repository.JobRepository, queue worker.Queue, docs docstore.Store, exp *export.Service, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{repo: repo, queue: queue, docs: docs, export: exp, log: log}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/upload", s.handleUpload)
	r.Post("/evaluate", s.handleEvaluate)
	r.Get("/result/{id}", s.handleResult)
	r.Get("/export", s.handleExport)
	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
