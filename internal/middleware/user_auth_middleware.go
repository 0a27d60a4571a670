package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/timelov/admin-api/internal/service"
	"github.com/timelov/admin-api/internal/utils"
)

// UserJWTMiddleware guards public end-user routes with bearer access tokens.
// Admin tokens carry a different kind claim and fail verification here, the
// same way user tokens fail on admin routes.
type UserJWTMiddleware struct {
	auth *service.UserAuthService
}

// NewUserJWTMiddleware constructs a UserJWTMiddleware.
func NewUserJWTMiddleware(auth *service.UserAuthService) *UserJWTMiddleware {
	return &UserJWTMiddleware{auth: auth}
}

// Handle returns the gin middleware function.
func (m *UserJWTMiddleware) Handle() gin.HandlerFunc {
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

		c.Set(CtxUserID, claims.Subject)
		c.Set(CtxEmail, claims.Email)
		c.Set(CtxToken, parts[1])
		c.Next()
	}
}
