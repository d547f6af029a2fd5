package refstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/evalstack/cv-evaluator/internal/llm"
)

// Reference document types the pipeline asks for.
const (
	DocJobDescription = "job_description"
	DocCVRubric       = "cv_rubric"
	DocCaseBrief      = "case_brief"
	DocProjectRubric  = "project_rubric"
)

// Retriever returns the single best semantic match for a reference document
// type, optionally filtered by a role label.
type Retriever interface {
	Query(ctx context.Context, docType, filterLabel string) (string, error)
}

// HTTPClient talks to the semantic-search service over its JSON API.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

func NewHTTPClient(baseURL string, timeout time.Duration, log *slog.Logger) *HTTPClient {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

type queryRequest struct {
	DocType string `json:"doc_type"`
	Filter  string `json:"filter,omitempty"`
	TopK    int    `json:"top_k"`
}

type queryResponse struct {
	Documents []string `json:"documents"`
}

// Query asks for the best match, filtered by label. If the filtered query
// comes back empty the filter is dropped and the query retried once before
// the absence is treated as a failure.
func (c *HTTPClient) Query(ctx context.Context, docType, filterLabel string) (string, error) {
	doc, err := c.queryOnce(ctx, docType, filterLabel)
	if err != nil {
		return "", err
	}
	if doc == "" && filterLabel != "" {
		c.log.Info("refstore.fallback_unfiltered", "doc_type", docType, "filter", filterLabel)
		doc, err = c.queryOnce(ctx, docType, "")
		if err != nil {
			return "", err
		}
	}
	if doc == "" {
		return "", fmt.Errorf("reference document not found for type %q", docType)
	}
	return doc, nil
}

func (c *HTTPClient) queryOnce(ctx context.Context, docType, filterLabel string) (string, error) {
	body := queryRequest{DocType: docType, Filter: filterLabel, TopK: 1}
	raw, _, err := llm.SendJSON(ctx, c.http, c.baseURL+"/query", body, nil, c.log)
	if err != nil {
		return "", fmt.Errorf("refstore query %s: %w", docType, err)
	}
	var resp queryResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("decode refstore response: %w", err)
	}
	if len(resp.Documents) == 0 {
		return "", nil
	}
	return resp.Documents[0], nil
}
