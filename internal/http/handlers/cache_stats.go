package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/chileapi/internal/repo/postgres"
	"github.com/gin-gonic/gin"
)

type CacheStatsReader interface {
	Stats(ctx context.Context, now time.Time) ([]postgres.DataTypeStats, error)
}

type CacheStatsHandler struct {
	stats CacheStatsReader
	log   *slog.Logger
}

func NewCacheStatsHandler(stats CacheStatsReader, log *slog.Logger) *CacheStatsHandler {
	return &CacheStatsHandler{stats: stats, log: log}
}

func (h *CacheStatsHandler) Stats(ctx *gin.Context) {
	out, err := h.stats.Stats(ctx.Request.Context(), time.Now())
	if err != nil {
		RespondServiceError(ctx, h.log, err)
		return
	}
	if out == nil {
		out = []postgres.DataTypeStats{}
	}
	RespondOK(ctx, http.StatusOK, out)
}
