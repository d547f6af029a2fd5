package worker

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrQueueClosed is returned by Enqueue once a queue has begun shutting
// down. Callers must surface the rejection instead of acknowledging the job.
var ErrQueueClosed = errors.New("queue is shut down")

// Descriptor is the unit pushed through a queue: everything the worker needs
// to process one submission without an extra lookup round-trip.
type Descriptor struct {
	JobID      uuid.UUID `json:"job_id"`
	JobTitle   string    `json:"job_title"`
	CVRef      string    `json:"cv_ref"`
	ProjectRef string    `json:"project_ref"`
}

// Queue is the ingress the API layer hands submissions to. Delivery is
// at-least-once; the worker's state checks make redelivery of a finished
// job a no-op.
type Queue interface {
	Enqueue(ctx context.Context, d Descriptor) error
	Shutdown(ctx context.Context)
}
