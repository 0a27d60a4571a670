package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/timelov/admin-api/internal/middleware"
	"github.com/timelov/admin-api/internal/service"
	"github.com/timelov/admin-api/internal/utils"
)

// UserAuthHandler exposes the public end-user authentication endpoints under
// /api/auth/user. Unlike the admin endpoints, registration reports duplicate
// emails and login reports deactivated accounts.
type UserAuthHandler struct {
	userAuth *service.UserAuthService
}

// NewUserAuthHandler constructs a UserAuthHandler.
func NewUserAuthHandler(userAuth *service.UserAuthService) *UserAuthHandler {
	return &UserAuthHandler{userAuth: userAuth}
}

// Register handles POST /api/auth/user/register
func (h *UserAuthHandler) Register(c *gin.Context) {
	var req struct {
		Email       string  `json:"email" binding:"required,email"`
		Password    string  `json:"password" binding:"required"`
		FullName    string  `json:"full_name" binding:"required,min=2,max=100"`
		CompanyName *string `json:"company_name"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	user, err := h.userAuth.Register(c.Request.Context(), service.UserRegistration{
		Email:       req.Email,
		Password:    req.Password,
		FullName:    req.FullName,
		CompanyName: req.CompanyName,
	})
	var policyErr *service.PasswordPolicyError
	switch {
	case errors.As(err, &policyErr):
		utils.Error(c, 400, "WEAK_PASSWORD", policyErr.Reason)
	case errors.Is(err, utils.ErrEmailTaken):
		utils.Error(c, 400, "EMAIL_TAKEN", "Email już zarejestrowany")
	case err != nil:
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to register account")
	default:
		utils.Success(c, 201, "Konto zostało utworzone", gin.H{"user_id": user.ID})
	}
}

// Login handles POST /api/auth/user/login
func (h *UserAuthHandler) Login(c *gin.Context) {
	var req struct {
		Email      string `json:"email" binding:"required,email"`
		Password   string `json:"password" binding:"required"`
		RememberMe bool   `json:"remember_me"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	session, err := h.userAuth.Login(c.Request.Context(), req.Email, req.Password, req.RememberMe)
	switch {
	case errors.Is(err, utils.ErrUserInactive):
		utils.Error(c, 403, "ACCOUNT_DISABLED", "Konto zostało dezaktywowane")
	case err != nil:
		utils.Error(c, 401, "INVALID_CREDENTIALS", "Nieprawidłowy email lub hasło")
	default:
		utils.Success(c, 200, "Login successful", session)
	}
}

// Refresh handles POST /api/auth/user/refresh
func (h *UserAuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	pair, err := h.userAuth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		utils.Error(c, 401, "INVALID_TOKEN", "Nieprawidłowy lub wygasły refresh token")
		return
	}

	utils.Success(c, 200, "Token refreshed", pair)
}

// Me handles GET /api/auth/user/me (requires bearer auth)
func (h *UserAuthHandler) Me(c *gin.Context) {
	user, err := h.userAuth.GetUser(c.Request.Context(), c.GetString(middleware.CtxUserID))
	switch {
	case errors.Is(err, utils.ErrUserNotFound):
		utils.Error(c, 404, "USER_NOT_FOUND", "Użytkownik nie znaleziony")
	case err != nil:
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to load user")
	default:
		utils.Success(c, 200, "User retrieved", user.Sanitized())
	}
}
