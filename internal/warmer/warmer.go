package warmer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/chileapi/internal/observability"
)

// Target is one hot cache key kept populated by the warmer.
type Target struct {
	Name string
	Warm func(ctx context.Context) error
}

// Sweeper deletes expired rows from a persistent cache store.
type Sweeper interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// WarmObserver is satisfied by *observability.Prom.
type WarmObserver interface {
	ObserveWarm(target, result string, d time.Duration)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	Interval      time.Duration
	Concurrency   int
	TargetTimeout time.Duration
}

type targetState struct {
	failures    int
	nextAttempt time.Time
}

type Warmer struct {
	cfg     Config
	targets []Target
	log     *slog.Logger
	now     func() time.Time

	metrics *observability.WarmMetrics
	prom    WarmObserver
	store   Pinger
	sweeper Sweeper

	mu    sync.Mutex
	state map[string]*targetState

	readyMu sync.RWMutex
	ready   bool
}

type Option func(*Warmer)

func WithLogger(log *slog.Logger) Option {
	return func(w *Warmer) { w.log = log }
}

func WithClock(now func() time.Time) Option {
	return func(w *Warmer) { w.now = now }
}

func WithObserver(o WarmObserver) Option {
	return func(w *Warmer) { w.prom = o }
}

// WithStore makes /readyz depend on the cache store being reachable.
func WithStore(p Pinger) Option {
	return func(w *Warmer) { w.store = p }
}

func WithSweeper(s Sweeper) Option {
	return func(w *Warmer) { w.sweeper = s }
}

func New(cfg Config, targets []Target, opts ...Option) *Warmer {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.TargetTimeout <= 0 {
		cfg.TargetTimeout = 15 * time.Second
	}

	w := &Warmer{
		cfg:     cfg,
		targets: targets,
		log:     slog.Default(),
		now:     time.Now,
		metrics: observability.NewWarmMetrics(),
		state:   make(map[string]*targetState, len(targets)),
	}

	for _, opt := range opts {
		opt(w)
	}

	for _, t := range targets {
		w.state[t.Name] = &targetState{}
	}

	return w
}

// Run warms every target immediately and then once per interval until ctx
// is cancelled.
func (w *Warmer) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	w.setReady(true)
	defer w.setReady(false)

	w.log.Info("warmer started", "targets", len(w.targets), "interval", w.cfg.Interval, "concurrency", w.cfg.Concurrency)

	for {
		if err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
			w.log.Warn("warm run finished with failures", "err", err)
		}

		select {
		case <-ctx.Done():
			w.log.Info("warmer received shutdown signal")
			return nil
		case <-ticker.C:
		}
	}
}

func (w *Warmer) Metrics() observability.WarmMetricsSnapshot {
	return w.metrics.Snapshot()
}

func (w *Warmer) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}

func (w *Warmer) isReady() bool {
	w.readyMu.RLock()
	defer w.readyMu.RUnlock()
	return w.ready
}
