package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Prom struct {
	registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec
	// DB
	DbQueryDuration *prometheus.HistogramVec
	DbErrorsTotal   *prometheus.CounterVec

	// cache-aside engine
	CacheLookups *prometheus.CounterVec

	// upstream (api.boostr.cl)
	UpstreamDuration *prometheus.HistogramVec

	// warmer
	WarmDuration *prometheus.HistogramVec
	WarmResults  *prometheus.CounterVec
	WarmInFlight prometheus.Gauge
}

func NewProm(reg *prometheus.Registry) *Prom {
	p := &Prom{
		registry: reg,
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "chileapi",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "chileapi",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "chileapi",
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
			[]string{"method", "route"},
		),
		DbQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "chileapi",
				Subsystem: "db",
				Name:      "query_duration_seconds",
				Help:      "DB operation latency (logical op, not raw SQL)",
				Buckets:   []float64{0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.35, 0.5, 1, 2, 5},
			},
			[]string{"op", "status"},
		),
		DbErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "chileapi",
				Subsystem: "db",
				Name:      "errors_total",
				Help:      "DB errors by logical op and class.",
			},
			[]string{"op", "class"},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "chileapi",
				Subsystem: "cache",
				Name:      "lookups_total",
				Help:      "Cache-aside lookups by data type and result.",
			},
			[]string{"data_type", "result"}, // result=hit|miss|error
		),
		UpstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "chileapi",
				Subsystem: "upstream",
				Name:      "request_duration_seconds",
				Help:      "Upstream API call latency by path and outcome.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"resource", "outcome"}, // outcome=ok|timeout|upstream_error|schema_error
		),
		WarmDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "chileapi",
				Subsystem: "warmer",
				Name:      "duration_seconds",
				Help:      "Warm-up duration by target and result",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"target", "result"}, // result=ok|failed
		),
		WarmResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "chileapi",
				Subsystem: "warmer",
				Name:      "results_total",
				Help:      "Warm-up outcomes by target and result.",
			},
			[]string{"target", "result"},
		),
		WarmInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "chileapi",
				Subsystem: "warmer",
				Name:      "in_flight",
				Help:      "Current number of executing warm-ups (per process)",
			},
		),
	}
	reg.MustRegister(
		p.RequestsTotal, p.RequestsDuration, p.InFlight,
		p.DbQueryDuration, p.DbErrorsTotal,
		p.CacheLookups, p.UpstreamDuration,
		p.WarmDuration, p.WarmResults, p.WarmInFlight,
	)

	return p
}

// Handler exposes the registry for scraping.
func (p *Prom) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

func (p *Prom) ObserveCacheLookup(dataType, result string) {
	if p == nil {
		return
	}
	p.CacheLookups.WithLabelValues(dataType, result).Inc()
}

func (p *Prom) ObserveUpstream(resource, outcome string, d time.Duration) {
	if p == nil {
		return
	}
	p.UpstreamDuration.WithLabelValues(resource, outcome).Observe(d.Seconds())
}

func (p *Prom) ObserveWarm(target, result string, d time.Duration) {
	if p == nil {
		return
	}
	p.WarmResults.WithLabelValues(target, result).Inc()
	p.WarmDuration.WithLabelValues(target, result).Observe(d.Seconds())
}

func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		// route template is only available after routing; best effort:
		route := ctx.FullPath()

		if route == "" {
			route = "unmatched"
		}

		method := ctx.Request.Method
		p.InFlight.WithLabelValues(method, route).Inc()
		defer p.InFlight.WithLabelValues(method, route).Dec()
		ctx.Next()

		status := strconv.Itoa(ctx.Writer.Status())
		secs := time.Since(start).Seconds()

		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route, status).Observe(secs)
	}
}
