package llm

import (
	"context"
	"fmt"
)

// Request is one structured-output inference call.
type Request struct {
	// Op names the call site for logging ("cv_scoring", "project_scoring", ...).
	Op     string
	System string
	User   string
	// Schema constrains the model output; the response is validated against it
	// before being returned.
	Schema *Schema
}

// Invoker is the interface the pipeline depends on. Implementations return
// the raw JSON content of the model response, already schema-validated.
type Invoker interface {
	Complete(ctx context.Context, req Request) ([]byte, error)
}

// APIError carries the HTTP status of a failed inference call so the retry
// classifier can apply its status-code rules.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("inference status %d: %s", e.StatusCode, e.Body)
}

func (e *APIError) HTTPStatus() int { return e.StatusCode }

// SchemaValidationError marks a model response that did not match the
// requested schema. Retrying the identical prompt is unlikely to help, so the
// classifier treats it as permanent (the default for unrecognized failures).
type SchemaValidationError struct {
	Op  string
	Err error
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("%s: model output failed schema validation: %v", e.Op, e.Err)
}

func (e *SchemaValidationError) Unwrap() error { return e.Err }
