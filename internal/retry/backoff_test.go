package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelay_MonotoneAndCappedWithoutJitter(t *testing.T) {
	p := Policy{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
	}

	prev := time.Duration(-1)
	for n := 0; n < 12; n++ {
		d := Delay(n, p)
		assert.GreaterOrEqual(t, d, prev, "delay must not decrease at attempt %d", n)
		assert.LessOrEqual(t, d, p.MaxDelay, "delay must respect the cap at attempt %d", n)
		prev = d
	}
}

func TestDelay_ExponentialGrowth(t *testing.T) {
	p := Policy{
		InitialDelay: 1 * time.Second,
		MaxDelay:     time.Hour,
		Multiplier:   2.0,
	}

	require.Equal(t, 1*time.Second, Delay(0, p))
	require.Equal(t, 2*time.Second, Delay(1, p))
	require.Equal(t, 4*time.Second, Delay(2, p))
	require.Equal(t, 8*time.Second, Delay(3, p))
}

func TestDelay_JitterStaysInBounds(t *testing.T) {
	p := Policy{
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
	base := Policy{
		InitialDelay: p.InitialDelay,
		MaxDelay:     p.MaxDelay,
		Multiplier:   p.Multiplier,
	}

	for n := 0; n < 6; n++ {
		b := Delay(n, base)
		for i := 0; i < 200; i++ {
			d := Delay(n, p)
			// Truncation to the millisecond can shave up to 1ms off the
			// lower bound.
			assert.GreaterOrEqual(t, d, b/2-time.Millisecond)
			assert.Less(t, d, 3*b/2)
		}
	}
}

func TestDelay_NegativeAttemptClamped(t *testing.T) {
	p := Policy{InitialDelay: time.Second, MaxDelay: time.Minute, Multiplier: 2.0}
	require.Equal(t, Delay(0, p), Delay(-3, p))
}
