package warmer

import (
	"math"
	"math/rand"
	"time"
)

const (
	backoffBase = 2 * time.Second
	backoffCap  = 5 * time.Minute
)

// Backoff is the wait before retrying a target that failed attempt+1 times
// in a row.
// attempt=0 => 2s
// attempt=1 => 4s
// attempt=2 => 8s
func Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := time.Duration(float64(backoffBase) * math.Pow(2, float64(attempt)))
	if delay > backoffCap || delay <= 0 {
		delay = backoffCap
	}

	// 0-250ms jitter so failing targets don't retry in lockstep
	delay += time.Duration(rand.Intn(250)) * time.Millisecond
	return delay
}
