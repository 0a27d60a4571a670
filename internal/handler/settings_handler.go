package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/timelov/admin-api/internal/middleware"
	"github.com/timelov/admin-api/internal/models"
	"github.com/timelov/admin-api/internal/repository"
	"github.com/timelov/admin-api/internal/service"
	"github.com/timelov/admin-api/internal/utils"
)

// SettingsHandler handles site-settings endpoints.
type SettingsHandler struct {
	settings *repository.SettingRepository
	audit    *service.AuditService
}

// NewSettingsHandler constructs a SettingsHandler.
func NewSettingsHandler(settings *repository.SettingRepository, audit *service.AuditService) *SettingsHandler {
	return &SettingsHandler{settings: settings, audit: audit}
}

// List handles GET /api/cms/settings
func (h *SettingsHandler) List(c *gin.Context) {
	settings, err := h.settings.List(c.Request.Context())
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to retrieve settings")
		return
	}

	// Settings are returned keyed by name so the panel can index directly.
	byKey := make(map[string]models.JSONMap, len(settings))
	for _, s := range settings {
		byKey[s.Key] = s.Value
	}
	utils.Success(c, 200, "Settings retrieved", byKey)
}

// Get handles GET /api/cms/settings/:key
func (h *SettingsHandler) Get(c *gin.Context) {
	setting, err := h.settings.GetByKey(c.Request.Context(), c.Param("key"))
	if err != nil {
		utils.Error(c, 404, "SETTING_NOT_FOUND", "Ustawienie nie znalezione")
		return
	}
	utils.Success(c, 200, "Setting retrieved", setting)
}

// Upsert handles PUT /api/cms/settings/:key
func (h *SettingsHandler) Upsert(c *gin.Context) {
	var req struct {
		Value models.JSONMap `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	ctx := c.Request.Context()
	key := c.Param("key")
	adminID := c.GetString(middleware.CtxUserID)

	var oldValues models.JSONMap
	if existing, err := h.settings.GetByKey(ctx, key); err == nil {
		oldValues = existing.Value
	}

	setting, err := h.settings.Upsert(ctx, key, req.Value, adminID)
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to save setting")
		return
	}

	h.audit.RecordAction(ctx, models.AuditSettingsUpdate, models.EntitySetting,
		adminID, c.GetString(middleware.CtxEmail), key,
		oldValues, req.Value,
		requestMeta(c))

	utils.Success(c, 200, "Setting saved", setting)
}
