package host

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/openfroyo/walworkspace/pkg/engine"
)

// backoff calculates the delay before re-invocation attempt+1 with
// exponential backoff and jitter. Throttled outcomes, which carry a delay
// hint, start from the larger throttled base.
func (d *Driver) backoff(attempt int, out *engine.Outcome) time.Duration {
	baseDelay := d.cfg.BackoffBase

	if out.CallbackDelaySeconds > 0 {
		baseDelay = d.cfg.ThrottledBackoffBase
		if hint := time.Duration(out.CallbackDelaySeconds) * time.Second; hint > baseDelay {
			baseDelay = hint
		}
	}

	// Exponential backoff: delay = baseDelay * 2^attempt
	delay := baseDelay * time.Duration(math.Pow(2, float64(attempt)))

	if delay > d.cfg.BackoffMax || delay < 0 {
		delay = d.cfg.BackoffMax
	}

	// Add up to 12.5% jitter
	if delay > 0 {
		delay += time.Duration(rand.Int64N(int64(delay)/8 + 1))
	}

	return delay
}
