package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/chileapi/internal/http/handlers"
	"github.com/geocoder89/chileapi/internal/repo/postgres"
	"github.com/gin-gonic/gin"
)

type statsFunc func(ctx context.Context, now time.Time) ([]postgres.DataTypeStats, error)

func (f statsFunc) Stats(ctx context.Context, now time.Time) ([]postgres.DataTypeStats, error) {
	return f(ctx, now)
}

func TestCacheStats(t *testing.T) {
	tests := []struct {
		name     string
		stats    statsFunc
		wantCode int
		wantBody string
	}{
		{
			name: "rows",
			stats: func(context.Context, time.Time) ([]postgres.DataTypeStats, error) {
				return []postgres.DataTypeStats{{DataType: "weather", Entries: 3, Live: 2, TotalHits: 40}}, nil
			},
			wantCode: http.StatusOK,
			wantBody: `"weather"`,
		},
		{
			name:     "empty is a list",
			stats:    func(context.Context, time.Time) ([]postgres.DataTypeStats, error) { return nil, nil },
			wantCode: http.StatusOK,
			wantBody: `"data":[]`,
		},
		{
			name: "store failure",
			stats: func(context.Context, time.Time) ([]postgres.DataTypeStats, error) {
				return nil, errors.New("connection refused")
			},
			wantCode: http.StatusInternalServerError,
			wantBody: `"internal_error"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/cache/stats", handlers.NewCacheStatsHandler(tt.stats, discard).Stats)

			w := get(r, "/cache/stats")
			if w.Code != tt.wantCode || !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Fatalf("got %d %s", w.Code, w.Body.String())
			}
			if strings.Contains(w.Body.String(), "connection refused") {
				t.Fatalf("internal detail leaked: %s", w.Body.String())
			}
		})
	}
}
