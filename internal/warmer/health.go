package warmer

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthHandler serves /healthz, /readyz and, when metrics is non-nil,
// /metrics for the warmer process.
func (w *Warmer) HealthHandler(metrics http.Handler) http.Handler {
	r := gin.New()

	r.Use(gin.Recovery())

	// liveness: process is up
	r.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// readiness: the run loop is active and the cache store answers
	r.GET("/readyz", func(c *gin.Context) {
		if !w.isReady() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
			return
		}

		if w.store != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
			defer cancel()

			if err := w.store.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "store_unavailable"})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"status": "ready", "warm": w.Metrics()})
	})

	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	return r
}
