package warmer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// RunOnce warms every target whose backoff has elapsed, at most
// cfg.Concurrency at a time. A failing target does not cancel the others;
// the returned error joins every failure of the run.
func (w *Warmer) RunOnce(ctx context.Context) error {
	w.metrics.IncRuns()

	var (
		g      errgroup.Group
		mu     sync.Mutex
		failed []error
	)
	g.SetLimit(w.cfg.Concurrency)

	for _, t := range w.targets {
		if !w.due(t.Name) {
			w.metrics.IncSkipped()
			w.observe(t.Name, "skipped", 0)
			continue
		}

		g.Go(func() error {
			if err := w.warm(ctx, t); err != nil {
				mu.Lock()
				failed = append(failed, fmt.Errorf("%s: %w", t.Name, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	w.sweep(ctx)

	return errors.Join(failed...)
}

func (w *Warmer) warm(parent context.Context, t Target) error {
	ctx, cancel := context.WithTimeout(parent, w.cfg.TargetTimeout)
	defer cancel()

	start := time.Now()
	err := t.Warm(ctx)
	d := time.Since(start)
	w.metrics.ObserveDuration(d)

	if err != nil {
		w.metrics.IncFailed()
		w.observe(t.Name, "failed", d)
		attempt := w.recordFailure(t.Name)
		w.log.Warn("warm target failed", "target", t.Name, "attempt", attempt, "err", err)
		return err
	}

	w.metrics.IncOK()
	w.observe(t.Name, "ok", d)
	w.recordSuccess(t.Name)
	return nil
}

func (w *Warmer) due(name string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	st := w.state[name]
	return st == nil || !w.now().Before(st.nextAttempt)
}

func (w *Warmer) recordFailure(name string) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	st := w.state[name]
	st.nextAttempt = w.now().Add(Backoff(st.failures))
	st.failures++
	return st.failures
}

func (w *Warmer) recordSuccess(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.state[name] = &targetState{}
}

func (w *Warmer) sweep(ctx context.Context) {
	if w.sweeper == nil || ctx.Err() != nil {
		return
	}

	sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	n, err := w.sweeper.DeleteExpired(sctx, w.now())
	if err != nil {
		w.log.Warn("cache sweep failed", "err", err)
		return
	}
	if n > 0 {
		w.log.Info("cache sweep", "deleted", n)
	}
}

func (w *Warmer) observe(target, result string, d time.Duration) {
	if w.prom != nil {
		w.prom.ObserveWarm(target, result, d)
	}
}
