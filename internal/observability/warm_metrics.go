package observability

import (
	"sync/atomic"
	"time"
)

// WarmMetrics keeps in-process counters for the warmer's /readyz payload.
type WarmMetrics struct {
	runs    atomic.Uint64
	ok      atomic.Uint64
	failed  atomic.Uint64
	skipped atomic.Uint64

	// duration stats (nanoseconds)
	durationCount atomic.Uint64
	durationTotal atomic.Int64
	durationMax   atomic.Int64
}

func NewWarmMetrics() *WarmMetrics {
	m := &WarmMetrics{}
	m.durationMax.Store(0)
	return m
}

func (m *WarmMetrics) IncRuns() {
	m.runs.Add(1)
}

func (m *WarmMetrics) IncOK() {
	m.ok.Add(1)
}

func (m *WarmMetrics) IncFailed() {
	m.failed.Add(1)
}

// IncSkipped counts targets still inside their backoff window.
func (m *WarmMetrics) IncSkipped() {
	m.skipped.Add(1)
}

func (m *WarmMetrics) ObserveDuration(d time.Duration) {
	ns := d.Nanoseconds()
	m.durationCount.Add(1)
	m.durationTotal.Add(ns)

	for {
		curr := m.durationMax.Load()

		if ns <= curr {
			return
		}

		if m.durationMax.CompareAndSwap(curr, ns) {
			return
		}
	}
}

type WarmMetricsSnapshot struct {
	Runs            uint64        `json:"runs"`
	OK              uint64        `json:"ok"`
	Failed          uint64        `json:"failed"`
	Skipped         uint64        `json:"skipped"`
	DurationCount   uint64        `json:"durationCount"`
	AverageDuration time.Duration `json:"averageDurationNs"`
	MaxDuration     time.Duration `json:"maxDurationNs"`
}

func (m *WarmMetrics) Snapshot() WarmMetricsSnapshot {
	count := m.durationCount.Load()
	total := m.durationTotal.Load()
	max := m.durationMax.Load()

	var avg time.Duration

	if count > 0 {
		avg = time.Duration(total / int64(count))
	}

	return WarmMetricsSnapshot{
		Runs:            m.runs.Load(),
		OK:              m.ok.Load(),
		Failed:          m.failed.Load(),
		Skipped:         m.skipped.Load(),
		DurationCount:   count,
		AverageDuration: avg,
		MaxDuration:     time.Duration(max),
	}
}
