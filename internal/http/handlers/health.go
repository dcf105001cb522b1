package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a dependency is reachable.
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	version string
	started time.Time
	checks  map[string]Pinger
	now     func() time.Time
}

func NewHealthHandler(version string, checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{
		version: version,
		started: time.Now(),
		checks:  checks,
		now:     time.Now,
	}
}

// Healthz is liveness: the process is up.
func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz fails when any dependency is unreachable.
func (h *HealthHandler) Readyz(ctx *gin.Context) {
	services, ok := h.run(ctx.Request.Context())
	if !ok {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "services": services})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "ready", "services": services})
}

// Health is the public status document.
func (h *HealthHandler) Health(ctx *gin.Context) {
	services, ok := h.run(ctx.Request.Context())

	status, code := "ok", http.StatusOK
	if !ok {
		status, code = "error", http.StatusServiceUnavailable
	}

	for _, feed := range []string{"weather", "earthquakes", "holidays", "indicators", "auth"} {
		services[feed] = "active"
	}

	ctx.JSON(code, gin.H{
		"status":    status,
		"timestamp": h.now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"uptime":    h.now().Sub(h.started).Round(time.Second).String(),
		"services":  services,
	})
}

func (h *HealthHandler) run(parent context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(parent, 2*time.Second)
	defer cancel()

	out := make(map[string]string, len(h.checks)+5)
	ok := true
	for name, ping := range h.checks {
		if err := ping(ctx); err != nil {
			out[name] = "disconnected"
			ok = false
			continue
		}
		out[name] = "connected"
	}
	return out, ok
}
