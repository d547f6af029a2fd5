package retry

import (
	"math"
	"math/rand/v2"
	"time"
)

// Policy configures the retry behavior of a single remote call site.
//
// MaxRetries counts retries after the one initial attempt, so a call is
// invoked at most MaxRetries+1 times in total.
type Policy struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Timeout      time.Duration // per-attempt deadline; 0 disables it
	Jitter       bool
}

// DefaultPolicy provides sensible defaults for ad-hoc call sites.
var DefaultPolicy = Policy{
	MaxRetries:   3,
	InitialDelay: 1 * time.Second,
	MaxDelay:     30 * time.Second,
	Multiplier:   2.0,
	Timeout:      60 * time.Second,
	Jitter:       true,
}

// Delay computes the wait before retry number attempt (zero-indexed: 0 is the
// gap before the first retry). Base delay is InitialDelay * Multiplier^attempt,
// capped at MaxDelay. With jitter enabled the capped delay is scaled by a
// uniform factor in [0.5, 1.5) and rounded down to the millisecond.
// Pure computation, no sleeping.
func Delay(attempt int, p Policy) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt))
	if max := float64(p.MaxDelay); p.MaxDelay > 0 && d > max {
		d = max
	}
	if p.Jitter {
		d *= 0.5 + rand.Float64()
	}
	return time.Duration(d).Truncate(time.Millisecond)
}
