package handlers

import (
	"net/http"

	"github.com/geocoder89/chileapi/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
	Details   any    `json:"details,omitempty"`
}

type errorBody struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Error   APIError `json:"error"`
}

type successBody struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data"`
}

func requestIDFrom(ctx *gin.Context) string {
	if v, ok := ctx.Get(middlewares.CtxRequestID); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return ctx.GetHeader("X-Request-Id")
}

func RespondOK(ctx *gin.Context, status int, data any) {
	ctx.JSON(status, successBody{Status: "success", Data: data})
}

func RespondError(ctx *gin.Context, status int, code, message string, details any) {
	ctx.JSON(status, errorBody{
		Status:  "error",
		Message: message,
		Error: APIError{
			Code:      code,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details any) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, "not_found", message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

func RespondConflict(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusConflict, code, message, nil)
}

func RespondUnauthorized(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusUnauthorized, code, message, nil)
}
