package upstream

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker open")

type breakerState string

const (
	stateClosed   breakerState = "closed"
	stateOpen     breakerState = "open"
	stateHalfOpen breakerState = "half_open"
)

type BreakerConfig struct {
	FailureThreshold int           // consecutive failures to open the circuit
	Cooldown         time.Duration // how long to stay open before half-open
	HalfOpenMaxCalls int           // trial calls allowed while half-open
}

// Breaker fails calls fast after repeated upstream outages. Only timeouts,
// transport failures and 5xx answers count; 4xx and schema problems mean
// the upstream is alive.
type Breaker struct {
	cfg BreakerConfig
	now func() time.Time

	mu                  sync.Mutex
	state               breakerState
	consecutiveFailures int
	openedAt            time.Time
	halfOpenInFlight    int
}

func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 1
	}

	return &Breaker{cfg: cfg, now: time.Now, state: stateClosed}
}

func (b *Breaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.state)
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateOpen:
		if b.now().Sub(b.openedAt) < b.cfg.Cooldown {
			return false
		}
		b.state = stateHalfOpen
		b.halfOpenInFlight = 1
		return true

	case stateHalfOpen:
		if b.halfOpenInFlight >= b.cfg.HalfOpenMaxCalls {
			return false
		}
		b.halfOpenInFlight++
		return true

	default:
		return true
	}
}

func (b *Breaker) after(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == stateHalfOpen && b.halfOpenInFlight > 0 {
		b.halfOpenInFlight--
	}

	// the caller went away; says nothing about the upstream
	if errors.Is(err, context.Canceled) {
		return
	}

	if !trips(err) {
		b.consecutiveFailures = 0
		b.state = stateClosed
		return
	}

	b.consecutiveFailures++

	if b.state == stateHalfOpen || b.consecutiveFailures >= b.cfg.FailureThreshold {
		b.state = stateOpen
		b.openedAt = b.now()
	}
}

func trips(err error) bool {
	var (
		te *TimeoutError
		ue *UpstreamError
	)
	switch {
	case err == nil:
		return false
	case errors.As(err, &te):
		return true
	case errors.As(err, &ue):
		return ue.StatusCode == 0 || ue.StatusCode >= http.StatusInternalServerError
	default:
		return false
	}
}
