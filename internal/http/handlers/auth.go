package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/chileapi/internal/auth"
	"github.com/geocoder89/chileapi/internal/domain/user"
	"github.com/geocoder89/chileapi/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

const refreshCookieName = "refresh_token"

// Authenticator is satisfied by *auth.Service.
type Authenticator interface {
	Register(ctx context.Context, in auth.RegisterInput) (auth.Session, error)
	Login(ctx context.Context, email, password string) (auth.Session, error)
	Refresh(ctx context.Context, raw string) (auth.Session, error)
	Logout(ctx context.Context, raw string) error
	Me(ctx context.Context, userID string) (user.User, error)
}

type AuthHandler struct {
	svc          Authenticator
	log          *slog.Logger
	secureCookie bool
	timeout      time.Duration
}

func NewAuthHandler(svc Authenticator, log *slog.Logger, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		svc:          svc,
		log:          log,
		secureCookie: secureCookie,
		timeout:      5 * time.Second,
	}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,max=254"`
	Password string `json:"password" binding:"required,max=128"`
	Name     string `json:"name" binding:"required,max=500"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,max=254"`
	Password string `json:"password" binding:"required,max=128"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type SessionResponse struct {
	User         user.User `json:"user"`
	AccessToken  string    `json:"accessToken"`
	TokenType    string    `json:"tokenType"`
	ExpiresIn    int       `json:"expiresIn"`
	RefreshToken string    `json:"refreshToken"`
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	s, err := h.svc.Register(cctx, auth.RegisterInput{Email: req.Email, Password: req.Password, Name: req.Name})
	if err != nil {
		RespondServiceError(ctx, h.log, err)
		return
	}

	h.writeSession(ctx, http.StatusCreated, s)
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	s, err := h.svc.Login(cctx, req.Email, req.Password)
	if err != nil {
		RespondServiceError(ctx, h.log, err)
		return
	}

	h.writeSession(ctx, http.StatusOK, s)
}

// Refresh accepts the token from the JSON body or the refresh cookie.
func (h *AuthHandler) Refresh(ctx *gin.Context) {
	raw := h.presentedRefreshToken(ctx)
	if raw == "" {
		RespondUnauthorized(ctx, "no_refresh", "Missing refresh token")
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	s, err := h.svc.Refresh(cctx, raw)
	if err != nil {
		h.clearRefreshCookie(ctx)
		RespondServiceError(ctx, h.log, err)
		return
	}

	h.writeSession(ctx, http.StatusOK, s)
}

func (h *AuthHandler) Logout(ctx *gin.Context) {
	raw := h.presentedRefreshToken(ctx)

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	h.clearRefreshCookie(ctx)

	if err := h.svc.Logout(cctx, raw); err != nil {
		RespondServiceError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, successBody{Status: "success", Message: "Logged out", Data: nil})
}

func (h *AuthHandler) Me(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	u, err := h.svc.Me(ctx.Request.Context(), userID)
	if err != nil {
		RespondServiceError(ctx, h.log, err)
		return
	}

	RespondOK(ctx, http.StatusOK, gin.H{"user": u})
}

func (h *AuthHandler) writeSession(ctx *gin.Context, status int, s auth.Session) {
	h.setRefreshCookie(ctx, s.RefreshToken, s.RefreshExpiresAt)

	RespondOK(ctx, status, SessionResponse{
		User:         s.User,
		AccessToken:  s.AccessToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.ExpiresIn / time.Second),
		RefreshToken: s.RefreshToken,
	})
}

func (h *AuthHandler) presentedRefreshToken(ctx *gin.Context) string {
	if ctx.Request.ContentLength != 0 {
		var req RefreshRequest
		if err := ctx.ShouldBindJSON(&req); err == nil && req.RefreshToken != "" {
			return req.RefreshToken
		}
	}

	raw, err := ctx.Cookie(refreshCookieName)
	if err != nil {
		return ""
	}
	return raw
}

func (h *AuthHandler) setRefreshCookie(ctx *gin.Context, raw string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())

	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(refreshCookieName, raw, maxAge, "/api/auth", "", h.secureCookie, true)
}

func (h *AuthHandler) clearRefreshCookie(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(refreshCookieName, "", -1, "/api/auth", "", h.secureCookie, true)
}
