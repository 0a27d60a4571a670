package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/timelov/admin-api/internal/middleware"
	"github.com/timelov/admin-api/internal/models"
	"github.com/timelov/admin-api/internal/repository"
	"github.com/timelov/admin-api/internal/service"
	"github.com/timelov/admin-api/internal/utils"
)

// WidgetHandler handles landing-page widget endpoints.
type WidgetHandler struct {
	widgets *repository.WidgetRepository
	audit   *service.AuditService
}

// NewWidgetHandler constructs a WidgetHandler.
func NewWidgetHandler(widgets *repository.WidgetRepository, audit *service.AuditService) *WidgetHandler {
	return &WidgetHandler{widgets: widgets, audit: audit}
}

// List handles GET /api/cms/widgets
func (h *WidgetHandler) List(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	widgets, err := h.widgets.List(c.Request.Context(), activeOnly)
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to retrieve widgets")
		return
	}
	utils.Success(c, 200, "Widgets retrieved", gin.H{"widgets": widgets, "total": len(widgets)})
}

// Get handles GET /api/cms/widgets/:id
func (h *WidgetHandler) Get(c *gin.Context) {
	widget, err := h.widgets.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.Error(c, 404, "WIDGET_NOT_FOUND", "Widget nie znaleziony")
		return
	}
	utils.Success(c, 200, "Widget retrieved", widget)
}

// Create handles POST /api/cms/widgets
func (h *WidgetHandler) Create(c *gin.Context) {
	var req struct {
		Name            string         `json:"name" binding:"required,max=255"`
		IntegrationType string         `json:"integration_type" binding:"required,max=100"`
		Section         string         `json:"section" binding:"required"`
		Config          models.JSONMap `json:"config"`
		EmbedCode       string         `json:"embed_code"`
		IsActive        *bool          `json:"is_active"`
		SortOrder       int            `json:"sort_order"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	adminID := c.GetString(middleware.CtxUserID)
	widget := &models.Widget{
		ID:              uuid.New().String(),
		Name:            req.Name,
		IntegrationType: req.IntegrationType,
		Section:         models.WidgetSection(req.Section),
		Config:          req.Config,
		EmbedCode:       req.EmbedCode,
		IsActive:        true,
		SortOrder:       req.SortOrder,
		CreatedBy:       &adminID,
	}
	if req.IsActive != nil {
		widget.IsActive = *req.IsActive
	}

	ctx := c.Request.Context()
	if err := h.widgets.Create(ctx, widget); err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to create widget")
		return
	}

	h.audit.RecordAction(ctx, models.AuditWidgetCreate, models.EntityWidget,
		adminID, c.GetString(middleware.CtxEmail), widget.ID,
		nil, models.JSONMap{"name": widget.Name, "integration_type": widget.IntegrationType, "section": string(widget.Section)},
		requestMeta(c))

	utils.Success(c, 201, "Widget created", widget)
}

// Update handles PATCH /api/cms/widgets/:id
func (h *WidgetHandler) Update(c *gin.Context) {
	var req struct {
		Name            *string        `json:"name" binding:"omitempty,max=255"`
		IntegrationType *string        `json:"integration_type" binding:"omitempty,max=100"`
		Section         *string        `json:"section"`
		Config          models.JSONMap `json:"config"`
		EmbedCode       *string        `json:"embed_code"`
		IsActive        *bool          `json:"is_active"`
		SortOrder       *int           `json:"sort_order"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	ctx := c.Request.Context()
	widget, err := h.widgets.GetByID(ctx, c.Param("id"))
	if err != nil {
		utils.Error(c, 404, "WIDGET_NOT_FOUND", "Widget nie znaleziony")
		return
	}

	oldValues := models.JSONMap{"name": widget.Name, "section": string(widget.Section), "is_active": widget.IsActive}

	if req.Name != nil {
		widget.Name = *req.Name
	}
	if req.IntegrationType != nil {
		widget.IntegrationType = *req.IntegrationType
	}
	if req.Section != nil {
		widget.Section = models.WidgetSection(*req.Section)
	}
	if req.Config != nil {
		widget.Config = req.Config
	}
	if req.EmbedCode != nil {
		widget.EmbedCode = *req.EmbedCode
	}
	if req.IsActive != nil {
		widget.IsActive = *req.IsActive
	}
	if req.SortOrder != nil {
		widget.SortOrder = *req.SortOrder
	}

	if err := h.widgets.Update(ctx, widget); err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to update widget")
		return
	}

	h.audit.RecordAction(ctx, models.AuditWidgetUpdate, models.EntityWidget,
		c.GetString(middleware.CtxUserID), c.GetString(middleware.CtxEmail), widget.ID,
		oldValues, models.JSONMap{"name": widget.Name, "section": string(widget.Section), "is_active": widget.IsActive},
		requestMeta(c))

	utils.Success(c, 200, "Widget updated", widget)
}

// Delete handles DELETE /api/cms/widgets/:id (soft delete)
func (h *WidgetHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	widget, err := h.widgets.GetByID(ctx, c.Param("id"))
	if err != nil {
		utils.Error(c, 404, "WIDGET_NOT_FOUND", "Widget nie znaleziony")
		return
	}

	if err := h.widgets.SoftDelete(ctx, widget.ID, time.Now()); err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to delete widget")
		return
	}

	h.audit.RecordAction(ctx, models.AuditWidgetDelete, models.EntityWidget,
		c.GetString(middleware.CtxUserID), c.GetString(middleware.CtxEmail), widget.ID,
		models.JSONMap{"name": widget.Name, "integration_type": widget.IntegrationType}, nil,
		requestMeta(c))

	utils.Success(c, 200, "Widget deleted", nil)
}
