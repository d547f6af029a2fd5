package constants

// JobStatus is the canonical status for rows in evaluation_job.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobQueued     JobStatus = "queued"     // accepted, waiting for the worker
	JobProcessing JobStatus = "processing" // picked up by the worker
	JobCompleted  JobStatus = "completed"  // terminal: all result fields set
	JobFailed     JobStatus = "failed"     // terminal: error message set
)

// Terminal reports whether s is a final state. Terminal records are never
// re-transitioned by the worker.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// CanTransition reports whether the s -> next transition is allowed.
// Transitions are monotonic: queued -> processing -> {completed, failed}.
func (s JobStatus) CanTransition(next JobStatus) bool {
	switch s {
	case JobQueued:
		return next == JobProcessing
	case JobProcessing:
		return next == JobCompleted || next == JobFailed
	default:
		return false
	}
}
