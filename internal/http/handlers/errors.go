package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/chileapi/internal/auth"
	"github.com/geocoder89/chileapi/internal/feeds"
	"github.com/geocoder89/chileapi/internal/upstream"
	"github.com/gin-gonic/gin"
)

// RespondServiceError maps service and upstream failures to responses.
// Internal detail only goes to the log.
func RespondServiceError(ctx *gin.Context, log *slog.Logger, err error) {
	var (
		ve *auth.ValidationError
		te *upstream.TimeoutError
		ue *upstream.UpstreamError
		se *upstream.SchemaError
	)

	switch {
	case errors.As(err, &ve):
		RespondBadRequest(ctx, "Invalid request", gin.H{"fields": []FieldError{{Field: ve.Field, Rule: "invalid", Message: ve.Message}}})

	case errors.Is(err, auth.ErrConflict):
		RespondConflict(ctx, "email_taken", "Email is already registered")

	case errors.Is(err, auth.ErrInvalidCredentials):
		RespondUnauthorized(ctx, "invalid_credentials", "Invalid credentials")

	case errors.Is(err, auth.ErrInvalidRefreshToken):
		RespondUnauthorized(ctx, "invalid_refresh", "Invalid refresh token")

	case errors.Is(err, feeds.ErrInvalidStation):
		RespondBadRequest(ctx, "Station code must be 4 alphanumeric characters", nil)

	case errors.Is(err, feeds.ErrInvalidType):
		RespondBadRequest(ctx, "Unknown indicator type", nil)

	case errors.Is(err, feeds.ErrStationNotFound):
		RespondNotFound(ctx, "Station not found")

	case errors.As(err, &te), errors.Is(err, context.DeadlineExceeded):
		log.WarnContext(ctx.Request.Context(), "upstream timeout", "err", err)
		RespondError(ctx, http.StatusGatewayTimeout, "upstream_timeout", "Upstream service did not respond in time", nil)

	case errors.As(err, &ue):
		log.WarnContext(ctx.Request.Context(), "upstream error", "err", err, "status", ue.StatusCode)
		if ue.NotFound() {
			RespondNotFound(ctx, "Resource not found upstream")
			return
		}
		RespondError(ctx, http.StatusBadGateway, "upstream_error", "Upstream service error", nil)

	case errors.As(err, &se):
		log.ErrorContext(ctx.Request.Context(), "upstream schema mismatch", "err", err)
		RespondError(ctx, http.StatusBadGateway, "upstream_schema", "Upstream returned an unexpected payload", nil)

	case errors.Is(err, context.Canceled):
		// client went away; nothing useful to write
		ctx.Status(499)

	default:
		log.ErrorContext(ctx.Request.Context(), "internal error", "err", err)
		RespondInternal(ctx, "Internal server error")
	}
}
