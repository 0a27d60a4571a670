package handler

import (
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/timelov/admin-api/internal/middleware"
	"github.com/timelov/admin-api/internal/models"
	"github.com/timelov/admin-api/internal/repository"
	"github.com/timelov/admin-api/internal/service"
	"github.com/timelov/admin-api/internal/utils"
)

var pageSlugPattern = regexp.MustCompile(`^/[a-z0-9-/]*$`)

// PageHandler handles CMS page endpoints. Every mutation writes an audit entry.
type PageHandler struct {
	pages *repository.PageRepository
	audit *service.AuditService
}

// NewPageHandler constructs a PageHandler.
func NewPageHandler(pages *repository.PageRepository, audit *service.AuditService) *PageHandler {
	return &PageHandler{pages: pages, audit: audit}
}

// normalizePageSlug lowercases a slug, prefixes "/" and validates the charset.
func normalizePageSlug(slug string) (string, bool) {
	slug = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(slug), " ", "-"))
	if !strings.HasPrefix(slug, "/") {
		slug = "/" + slug
	}
	return slug, pageSlugPattern.MatchString(slug)
}

// List handles GET /api/cms/pages
func (h *PageHandler) List(c *gin.Context) {
	status := models.PageStatus(c.Query("status"))
	pages, err := h.pages.List(c.Request.Context(), status)
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to retrieve pages")
		return
	}
	utils.Success(c, 200, "Pages retrieved", gin.H{"pages": pages, "total": len(pages)})
}

// Get handles GET /api/cms/pages/:id
func (h *PageHandler) Get(c *gin.Context) {
	page, err := h.pages.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.Error(c, 404, "PAGE_NOT_FOUND", "Strona nie znaleziona")
		return
	}
	utils.Success(c, 200, "Page retrieved", page)
}

// Create handles POST /api/cms/pages
func (h *PageHandler) Create(c *gin.Context) {
	var req struct {
		Slug            string  `json:"slug" binding:"required"`
		Title           string  `json:"title" binding:"required,max=255"`
		MetaDescription *string `json:"meta_description"`
		Content         string  `json:"content"`
		Status          string  `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	slug, ok := normalizePageSlug(req.Slug)
	if !ok {
		utils.Error(c, 400, "INVALID_SLUG", "Slug może zawierać tylko małe litery, cyfry, myślniki i ukośniki")
		return
	}

	ctx := c.Request.Context()
	exists, err := h.pages.SlugExists(ctx, slug, "")
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to create page")
		return
	}
	if exists {
		utils.Error(c, 400, "SLUG_EXISTS", "Strona z takim slugiem już istnieje: "+slug)
		return
	}

	status := models.PageStatus(req.Status)
	if status == "" {
		status = models.PageDraft
	}

	adminID := c.GetString(middleware.CtxUserID)
	page := &models.Page{
		ID:              uuid.New().String(),
		Slug:            slug,
		Title:           req.Title,
		MetaDescription: req.MetaDescription,
		Content:         req.Content,
		Status:          status,
		CreatedBy:       &adminID,
	}
	if status == models.PagePublished {
		now := time.Now()
		page.PublishedAt = &now
	}

	if err := h.pages.Create(ctx, page); err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to create page")
		return
	}

	h.audit.RecordAction(ctx, models.AuditPageCreate, models.EntityPage,
		adminID, c.GetString(middleware.CtxEmail), page.ID,
		nil, models.JSONMap{"slug": page.Slug, "title": page.Title, "status": string(page.Status)},
		requestMeta(c))

	utils.Success(c, 201, "Page created", page)
}

// Update handles PATCH /api/cms/pages/:id
func (h *PageHandler) Update(c *gin.Context) {
	var req struct {
		Slug            *string `json:"slug"`
		Title           *string `json:"title" binding:"omitempty,max=255"`
		MetaDescription *string `json:"meta_description"`
		Content         *string `json:"content"`
		Status          *string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	ctx := c.Request.Context()
	page, err := h.pages.GetByID(ctx, c.Param("id"))
	if err != nil {
		utils.Error(c, 404, "PAGE_NOT_FOUND", "Strona nie znaleziona")
		return
	}

	oldValues := models.JSONMap{"slug": page.Slug, "title": page.Title, "status": string(page.Status)}

	if req.Slug != nil {
		slug, ok := normalizePageSlug(*req.Slug)
		if !ok {
			utils.Error(c, 400, "INVALID_SLUG", "Slug może zawierać tylko małe litery, cyfry, myślniki i ukośniki")
			return
		}
		exists, err := h.pages.SlugExists(ctx, slug, page.ID)
		if err != nil {
			utils.Error(c, 500, "INTERNAL_ERROR", "Failed to update page")
			return
		}
		if exists {
			utils.Error(c, 400, "SLUG_EXISTS", "Strona z takim slugiem już istnieje: "+slug)
			return
		}
		page.Slug = slug
	}
	if req.Title != nil {
		page.Title = *req.Title
	}
	if req.MetaDescription != nil {
		page.MetaDescription = req.MetaDescription
	}
	if req.Content != nil {
		page.Content = *req.Content
	}
	if req.Status != nil {
		newStatus := models.PageStatus(*req.Status)
		if newStatus == models.PagePublished && page.Status != models.PagePublished {
			now := time.Now()
			page.PublishedAt = &now
		}
		page.Status = newStatus
	}

	if err := h.pages.Update(ctx, page); err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to update page")
		return
	}

	h.audit.RecordAction(ctx, models.AuditPageUpdate, models.EntityPage,
		c.GetString(middleware.CtxUserID), c.GetString(middleware.CtxEmail), page.ID,
		oldValues, models.JSONMap{"slug": page.Slug, "title": page.Title, "status": string(page.Status)},
		requestMeta(c))

	utils.Success(c, 200, "Page updated", page)
}

// Delete handles DELETE /api/cms/pages/:id (soft delete)
func (h *PageHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	page, err := h.pages.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			utils.Error(c, 404, "PAGE_NOT_FOUND", "Strona nie znaleziona")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to delete page")
		return
	}

	if err := h.pages.SoftDelete(ctx, page.ID, time.Now()); err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to delete page")
		return
	}

	h.audit.RecordAction(ctx, models.AuditPageDelete, models.EntityPage,
		c.GetString(middleware.CtxUserID), c.GetString(middleware.CtxEmail), page.ID,
		models.JSONMap{"slug": page.Slug, "title": page.Title}, nil,
		requestMeta(c))

	utils.Success(c, 200, "Page deleted", nil)
}
