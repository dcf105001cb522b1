package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/geocoder89/chileapi/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

type bindErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Error   struct {
		Code    string `json:"code"`
		Details struct {
			JSON   string                `json:"json"`
			Field  string                `json:"field"`
			Fields []handlers.FieldError `json:"fields"`
		} `json:"details"`
	} `json:"error"`
}

func decodeBindError(t *testing.T, w *httptest.ResponseRecorder) bindErrorResponse {
	t.Helper()

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}

	var resp bindErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal error response: %v body=%s", err, w.Body.String())
	}
	if resp.Status != "error" || resp.Error.Code != "invalid_request" {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
	return resp
}

func TestBindJSON_ValidationErrorsUseJSONFieldNames(t *testing.T) {
	r := gin.New()
	r.POST("/auth/register", func(ctx *gin.Context) {
		var req handlers.RegisterRequest
		if !handlers.BindJSON(ctx, &req) {
			return
		}
		ctx.Status(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(`{"email":"a@b.com"}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	resp := decodeBindError(t, w)

	found := map[string]handlers.FieldError{}
	for _, fieldErr := range resp.Error.Details.Fields {
		found[fieldErr.Field] = fieldErr
	}

	for _, field := range []string{"password", "name"} {
		fieldErr, ok := found[field]
		if !ok {
			t.Fatalf("missing field error for %q: %+v", field, resp.Error.Details.Fields)
		}
		if fieldErr.Rule != "required" || fieldErr.Message == "" {
			t.Fatalf("field %q: %+v", field, fieldErr)
		}
	}
}

func TestBindJSON_TypeMismatchUsesJSONFieldNames(t *testing.T) {
	r := gin.New()
	r.POST("/auth/login", func(ctx *gin.Context) {
		var req handlers.LoginRequest
		if !handlers.BindJSON(ctx, &req) {
			return
		}
		ctx.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(`{"email":"a@b.com","password":12345678}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	resp := decodeBindError(t, w)
	if resp.Error.Details.JSON != "invalid_json_type" {
		t.Fatalf("expected invalid_json_type, got %q", resp.Error.Details.JSON)
	}
	if resp.Error.Details.Field != "password" {
		t.Fatalf("expected detail field password, got %q", resp.Error.Details.Field)
	}
}

func TestBindJSON_SyntaxError(t *testing.T) {
	r := gin.New()
	r.POST("/auth/login", func(ctx *gin.Context) {
		var req handlers.LoginRequest
		if !handlers.BindJSON(ctx, &req) {
			return
		}
		ctx.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(`{"email":`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	// a truncated body surfaces as io.ErrUnexpectedEOF, which falls through to "reason"
	if w.Code != http.StatusBadRequest {
		t.Fatalf("got %d", w.Code)
	}
}
