package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/timelov/admin-api/internal/middleware"
	"github.com/timelov/admin-api/internal/service"
	"github.com/timelov/admin-api/internal/utils"
)

// AuthHandler exposes the authentication endpoints. User-facing failure
// messages are deliberately generic; the audit trail holds the detail.
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func requestMeta(c *gin.Context) service.RequestMeta {
	return service.RequestMeta{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email      string `json:"email" binding:"required,email"`
		Password   string `json:"password" binding:"required"`
		RememberMe bool   `json:"remember_me"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	pair, err := h.authService.Login(c.Request.Context(), req.Email, req.Password, req.RememberMe, requestMeta(c))
	if err != nil {
		if errors.Is(err, utils.ErrAccountLocked) {
			utils.Error(c, 423, "ACCOUNT_LOCKED", "Konto zablokowane. Spróbuj ponownie później.")
			return
		}
		// Identical body for unknown email, wrong password and inactive
		// account: no enumeration signal.
		utils.Error(c, 401, "INVALID_CREDENTIALS", "Błędne dane logowania")
		return
	}

	utils.Success(c, 200, "Login successful", pair)
}

// Refresh handles POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	pair, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken, requestMeta(c))
	if err != nil {
		utils.Error(c, 401, "INVALID_TOKEN", "Nieprawidłowy lub wygasły refresh token")
		return
	}

	utils.Success(c, 200, "Token refreshed", pair)
}

// Logout handles POST /api/auth/logout (requires bearer auth)
func (h *AuthHandler) Logout(c *gin.Context) {
	token := c.GetString(middleware.CtxToken)
	claims, err := h.authService.Authenticate(c.Request.Context(), token)
	if err != nil {
		// Middleware already verified the token; a failure here means it was
		// revoked between the two checks, which logout treats as done.
		utils.Success(c, 200, "Wylogowano pomyślnie", nil)
		return
	}

	if err := h.authService.Logout(c.Request.Context(), token, claims, requestMeta(c)); err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to log out")
		return
	}

	utils.Success(c, 200, "Wylogowano pomyślnie", nil)
}

// ForgotPassword handles POST /api/auth/forgot-password. The response is the
// same whether or not the email exists.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	if err := h.authService.ForgotPassword(c.Request.Context(), req.Email, requestMeta(c)); err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to process request")
		return
	}

	utils.Success(c, 200, "Jeśli podany email istnieje w systemie, wysłaliśmy link do resetu hasła.", nil)
}

// ResetPassword handles POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Token       string `json:"token" binding:"required"`
		NewPassword string `json:"new_password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	err := h.authService.ResetPassword(c.Request.Context(), req.Token, req.NewPassword, requestMeta(c))
	switch {
	case errors.Is(err, utils.ErrWeakPassword):
		utils.Error(c, 400, "WEAK_PASSWORD", "Hasło musi mieć minimum 8 znaków")
	case errors.Is(err, utils.ErrResetTokenInvalid):
		utils.Error(c, 400, "RESET_TOKEN_INVALID", "Nieprawidłowy lub wygasły token resetowania hasła")
	case err != nil:
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to reset password")
	default:
		utils.Success(c, 200, "Hasło zostało zmienione. Możesz się zalogować.", nil)
	}
}

// Me handles GET /api/auth/me (requires bearer auth)
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.authService.GetUser(c.Request.Context(), c.GetString(middleware.CtxUserID))
	switch {
	case errors.Is(err, utils.ErrUserNotFound):
		utils.Error(c, 404, "USER_NOT_FOUND", "Użytkownik nie znaleziony")
	case err != nil:
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to load user")
	default:
		utils.Success(c, 200, "User retrieved", user.Sanitized())
	}
}

// Setup handles POST /api/auth/setup — one-time bootstrap of the first admin
// from environment configuration. Must be disabled or protected at the
// deployment layer once used.
func (h *AuthHandler) Setup(c *gin.Context) {
	user, err := h.authService.Setup(c.Request.Context())
	if err != nil {
		if errors.Is(err, utils.ErrSetupAlreadyDone) {
			utils.Error(c, 400, "SETUP_ALREADY_DONE", "Admin user already exists")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to create admin user")
		return
	}

	utils.Success(c, 201, "Admin user created", gin.H{"email": user.Email})
}
