package middlewares

import (
	"net/http"
	"strings"

	"github.com/geocoder89/chileapi/internal/auth"
	"github.com/gin-gonic/gin"
)

// TokenVerifier is satisfied by *auth.Manager.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	jwt TokenVerifier
}

func NewAuthMiddleware(jwt TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c, "Missing or invalid Authorization header")
			return
		}

		claims, err := m.jwt.VerifyAccessToken(raw)
		if err != nil {
			abortUnauthorized(c, "Invalid or expired access token")
			return
		}

		c.Set(ctxUserIDKey, claims.UserID)
		c.Set(ctxEmailKey, claims.Email)
		c.Set(ctxNameKey, claims.Name)

		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	raw := strings.TrimSpace(header[len(prefix):])
	return raw, raw != ""
}

func abortUnauthorized(c *gin.Context, message string) {
	abortWithError(c, http.StatusUnauthorized, "unauthorized", message)
}

// abortWithError writes the same error envelope as the handlers package.
func abortWithError(c *gin.Context, status int, code, message string) {
	reqID, _ := c.Get(CtxRequestID)
	c.AbortWithStatusJSON(status, gin.H{
		"status":  "error",
		"message": message,
		"error": gin.H{
			"code":      code,
			"requestId": reqID,
		},
	})
}

func UserIDFromContext(c *gin.Context) (string, bool) {
	return stringFromContext(c, ctxUserIDKey)
}

func EmailFromContext(c *gin.Context) (string, bool) {
	return stringFromContext(c, ctxEmailKey)
}

func NameFromContext(c *gin.Context) (string, bool) {
	return stringFromContext(c, ctxNameKey)
}

func stringFromContext(c *gin.Context, key string) (string, bool) {
	v, ok := c.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}
