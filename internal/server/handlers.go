package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/evalstack/cv-evaluator/internal/common"
	"github.com/evalstack/cv-evaluator/internal/entity"
	"github.com/evalstack/cv-evaluator/internal/metrics"
	"github.com/evalstack/cv-evaluator/internal/worker"
)

const maxUploadBytes = 10 << 20 // per document

type uploadResponse struct {
	CVRef      string `json:"cv_ref"`
	ProjectRef string `json:"project_ref"`
}

type evaluateRequest struct {
	JobTitle   string `json:"job_title"`
	CVRef      string `json:"cv_ref"`
	ProjectRef string `json:"project_ref"`
}

type evaluateResponse struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

// handleUpload accepts the two candidate documents as multipart form files
// ("cv" and "project") and returns their store refs.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(2 * maxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	refs := uploadResponse{}
	for _, part := range []struct {
		field string
		dest  *string
	}{
		{"cv", &refs.CVRef},
		{"project", &refs.ProjectRef},
	} {
		file, header, err := r.FormFile(part.field)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "missing form file "+part.field)
			return
		}
		data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
		_ = file.Close()
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "read form file "+part.field)
			return
		}
		if len(data) > maxUploadBytes {
			s.writeError(w, http.StatusRequestEntityTooLarge, "document "+part.field+" exceeds the upload limit")
			return
		}
		ref, err := s.docs.Put(r.Context(), part.field, header.Filename, data)
		if err != nil {
			s.log.Error("upload.store_failed", "field", part.field, "error", err)
			s.writeError(w, http.StatusInternalServerError, "store document")
			return
		}
		*part.dest = ref
	}

	s.writeJSON(w, http.StatusCreated, refs)
}

// handleEvaluate creates the job record in queued state and enqueues it.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.JobTitle == "" || req.CVRef == "" || req.ProjectRef == "" {
		s.writeError(w, http.StatusBadRequest, "job_title, cv_ref and project_ref are required")
		return
	}

	job := &entity.EvaluationJob{
		JobTitle:   req.JobTitle,
		CVRef:      req.CVRef,
		ProjectRef: req.ProjectRef,
	}
	if err := s.repo.Create(r.Context(), job); err != nil {
		s.log.Error("evaluate.create_failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "create job")
		return
	}

	d := worker.Descriptor{
		JobID:      job.ID,
		JobTitle:   job.JobTitle,
		CVRef:      job.CVRef,
		ProjectRef: job.ProjectRef,
	}
	if err := s.queue.Enqueue(r.Context(), d); err != nil {
		s.log.Error("evaluate.enqueue_failed", "job_id", job.ID, "error", err)
		if errors.Is(err, worker.ErrQueueClosed) {
			s.writeError(w, http.StatusServiceUnavailable, "service is shutting down")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "enqueue job")
		return
	}
	metrics.JobsEnqueued.Inc()

	s.writeJSON(w, http.StatusAccepted, evaluateResponse{ID: job.ID, Status: string(job.Status)})
}

// handleResult returns the job record. Processing records carry no partial
// results; failed records return the stored message verbatim.
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	job, err := s.repo.FindByID(r.Context(), id)
	if errors.Is(err, common.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		s.log.Error("result.lookup_failed", "job_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "load job")
		return
	}

	s.writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.export.ExportCompletedXLSX(r.Context(), 0)
	if err != nil {
		s.log.Error("export.failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "export evaluations")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="evaluations.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("response encode failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
