package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// RespondCached writes a success envelope with an ETag and a public
// Cache-Control matching the resource TTL. A matching If-None-Match gets 304.
func RespondCached(ctx *gin.Context, data any, maxAge time.Duration) {
	body := successBody{Status: "success", Data: data}

	b, err := json.Marshal(body)
	if err != nil {
		RespondInternal(ctx, "Could not encode response")
		return
	}

	etag := buildETag(b)
	ctx.Header("ETag", etag)
	if maxAge > 0 {
		ctx.Header("Cache-Control", "public, max-age="+strconv.Itoa(int(maxAge/time.Second)))
	}

	if ifNoneMatchMatches(ctx.GetHeader("If-None-Match"), etag) {
		ctx.Status(http.StatusNotModified)
		return
	}

	ctx.Data(http.StatusOK, "application/json; charset=utf-8", b)
}

func buildETag(b []byte) string {
	sum := sha256.Sum256(b)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

func ifNoneMatchMatches(headerValue, currentETag string) bool {
	headerValue = strings.TrimSpace(headerValue)
	if headerValue == "" || currentETag == "" {
		return false
	}
	if headerValue == "*" {
		return true
	}

	current := normalizeETag(currentETag)
	for _, part := range strings.Split(headerValue, ",") {
		if normalizeETag(part) == current {
			return true
		}
	}
	return false
}

// normalizeETag drops the weak prefix; If-None-Match uses weak comparison.
func normalizeETag(raw string) string {
	v := strings.TrimSpace(raw)
	return strings.TrimSpace(strings.TrimPrefix(v, "W/"))
}
