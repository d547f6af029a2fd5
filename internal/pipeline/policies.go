package pipeline

import (
	"time"

	"github.com/evalstack/cv-evaluator/internal/retry"
)

// Per-stage retry policies. The scoring stages get a larger budget and a
// longer per-call deadline than the cheaper synthesis call.
var (
	CVPolicy = retry.Policy{
		MaxRetries:   4,
		InitialDelay: 1000 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Timeout:      90 * time.Second,
		Jitter:       true,
	}

	ProjectPolicy = retry.Policy{
		MaxRetries:   4,
		InitialDelay: 1000 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Timeout:      90 * time.Second,
		Jitter:       true,
	}

	SynthesisPolicy = retry.Policy{
		MaxRetries:   3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Timeout:      60 * time.Second,
		Jitter:       true,
	}
)
