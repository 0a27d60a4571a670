package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/timelov/admin-api/internal/service"
	"github.com/timelov/admin-api/internal/utils"
)

// Context keys set by the JWT middleware for downstream handlers.
const (
	CtxUserID = "user_id"
	CtxEmail  = "email"
	CtxToken  = "token"
)

// JWTMiddleware guards admin routes with bearer access tokens. Revoked and
// invalid tokens produce the same response on purpose: callers get no signal
// which of the two it was.
type JWTMiddleware struct {
	auth *service.AuthService
}

// NewJWTMiddleware constructs a JWTMiddleware.
func NewJWTMiddleware(auth *service.AuthService) *JWTMiddleware {
	return &JWTMiddleware{auth: auth}
}

// Handle returns the gin middleware function.
func (m *JWTMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Header("WWW-Authenticate", "Bearer")
			utils.Error(c, 401, "UNAUTHORIZED", "Missing authorization header")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.Header("WWW-Authenticate", "Bearer")
			utils.Error(c, 401, "UNAUTHORIZED", "Invalid authorization header")
			c.Abort()
			return
		}

		claims, err := m.auth.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			c.Header("WWW-Authenticate", "Bearer")
			utils.Error(c, 401, "INVALID_TOKEN", "Invalid or expired token")
			c.Abort()
			return
		}

		// Token kept in context so logout can revoke the exact string.
		c.Set(CtxUserID, claims.Subject)
		c.Set(CtxEmail, claims.Email)
		c.Set(CtxToken, parts[1])
		c.Next()
	}
}
