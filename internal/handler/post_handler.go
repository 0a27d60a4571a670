package handler

import (
	"database/sql"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/timelov/admin-api/internal/middleware"
	"github.com/timelov/admin-api/internal/models"
	"github.com/timelov/admin-api/internal/repository"
	"github.com/timelov/admin-api/internal/service"
	"github.com/timelov/admin-api/internal/utils"
)

// PostHandler handles blog post endpoints.
type PostHandler struct {
	posts *repository.PostRepository
	audit *service.AuditService
}

// NewPostHandler constructs a PostHandler.
func NewPostHandler(posts *repository.PostRepository, audit *service.AuditService) *PostHandler {
	return &PostHandler{posts: posts, audit: audit}
}

// List handles GET /api/cms/posts
func (h *PostHandler) List(c *gin.Context) {
	status := models.PostStatus(c.Query("status"))
	posts, err := h.posts.List(c.Request.Context(), status, c.Query("category"))
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to retrieve posts")
		return
	}
	utils.Success(c, 200, "Posts retrieved", gin.H{"posts": posts, "total": len(posts)})
}

// Get handles GET /api/cms/posts/:id
func (h *PostHandler) Get(c *gin.Context) {
	post, err := h.posts.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.Error(c, 404, "POST_NOT_FOUND", "Wpis nie znaleziony")
		return
	}
	utils.Success(c, 200, "Post retrieved", post)
}

// Create handles POST /api/cms/posts
func (h *PostHandler) Create(c *gin.Context) {
	var req struct {
		Title            string   `json:"title" binding:"required,max=255"`
		Slug             string   `json:"slug"`
		Excerpt          *string  `json:"excerpt" binding:"omitempty,max=255"`
		Content          string   `json:"content"`
		FeaturedImageURL *string  `json:"featured_image_url"`
		Category         string   `json:"category"`
		Tags             []string `json:"tags"`
		Status           string   `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	// Slug is generated from the title when absent.
	slug := req.Slug
	if slug == "" {
		slug = models.Slugify(req.Title)
	} else {
		slug = models.Slugify(slug)
	}
	if slug == "" {
		utils.Error(c, 400, "INVALID_SLUG", "Nie można wygenerować sluga z tytułu")
		return
	}

	ctx := c.Request.Context()
	exists, err := h.posts.SlugExists(ctx, slug, "")
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to create post")
		return
	}
	if exists {
		utils.Error(c, 400, "SLUG_EXISTS", "Wpis z takim slugiem już istnieje: "+slug)
		return
	}

	status := models.PostStatus(req.Status)
	if status == "" {
		status = models.PostDraft
	}
	category := req.Category
	if category == "" {
		category = "inne"
	}

	adminID := c.GetString(middleware.CtxUserID)
	post := &models.Post{
		ID:               uuid.New().String(),
		Slug:             slug,
		Title:            req.Title,
		Excerpt:          req.Excerpt,
		Content:          req.Content,
		FeaturedImageURL: req.FeaturedImageURL,
		Category:         category,
		Tags:             req.Tags,
		Status:           status,
		CreatedBy:        &adminID,
	}
	if status == models.PostPublished {
		now := time.Now()
		post.PublishedAt = &now
	}

	if err := h.posts.Create(ctx, post); err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to create post")
		return
	}

	h.audit.RecordAction(ctx, models.AuditPostCreate, models.EntityPost,
		adminID, c.GetString(middleware.CtxEmail), post.ID,
		nil, models.JSONMap{"slug": post.Slug, "title": post.Title, "status": string(post.Status)},
		requestMeta(c))

	utils.Success(c, 201, "Post created", post)
}

// Update handles PATCH /api/cms/posts/:id
func (h *PostHandler) Update(c *gin.Context) {
	var req struct {
		Title            *string  `json:"title" binding:"omitempty,max=255"`
		Slug             *string  `json:"slug"`
		Excerpt          *string  `json:"excerpt" binding:"omitempty,max=255"`
		Content          *string  `json:"content"`
		FeaturedImageURL *string  `json:"featured_image_url"`
		Category         *string  `json:"category"`
		Tags             []string `json:"tags"`
		Status           *string  `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	ctx := c.Request.Context()
	post, err := h.posts.GetByID(ctx, c.Param("id"))
	if err != nil {
		utils.Error(c, 404, "POST_NOT_FOUND", "Wpis nie znaleziony")
		return
	}

	oldValues := models.JSONMap{"slug": post.Slug, "title": post.Title, "status": string(post.Status)}

	if req.Slug != nil {
		slug := models.Slugify(*req.Slug)
		exists, err := h.posts.SlugExists(ctx, slug, post.ID)
		if err != nil {
			utils.Error(c, 500, "INTERNAL_ERROR", "Failed to update post")
			return
		}
		if exists {
			utils.Error(c, 400, "SLUG_EXISTS", "Wpis z takim slugiem już istnieje: "+slug)
			return
		}
		post.Slug = slug
	}
	if req.Title != nil {
		post.Title = *req.Title
	}
	if req.Excerpt != nil {
		post.Excerpt = req.Excerpt
	}
	if req.Content != nil {
		post.Content = *req.Content
	}
	if req.FeaturedImageURL != nil {
		post.FeaturedImageURL = req.FeaturedImageURL
	}
	if req.Category != nil {
		post.Category = *req.Category
	}
	if req.Tags != nil {
		post.Tags = req.Tags
	}
	if req.Status != nil {
		newStatus := models.PostStatus(*req.Status)
		if newStatus == models.PostPublished && post.Status != models.PostPublished {
			now := time.Now()
			post.PublishedAt = &now
		}
		post.Status = newStatus
	}

	if err := h.posts.Update(ctx, post); err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to update post")
		return
	}

	h.audit.RecordAction(ctx, models.AuditPostUpdate, models.EntityPost,
		c.GetString(middleware.CtxUserID), c.GetString(middleware.CtxEmail), post.ID,
		oldValues, models.JSONMap{"slug": post.Slug, "title": post.Title, "status": string(post.Status)},
		requestMeta(c))

	utils.Success(c, 200, "Post updated", post)
}

// Delete handles DELETE /api/cms/posts/:id (soft delete)
func (h *PostHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	post, err := h.posts.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			utils.Error(c, 404, "POST_NOT_FOUND", "Wpis nie znaleziony")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to delete post")
		return
	}

	if err := h.posts.SoftDelete(ctx, post.ID, time.Now()); err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to delete post")
		return
	}

	h.audit.RecordAction(ctx, models.AuditPostDelete, models.EntityPost,
		c.GetString(middleware.CtxUserID), c.GetString(middleware.CtxEmail), post.ID,
		models.JSONMap{"slug": post.Slug, "title": post.Title}, nil,
		requestMeta(c))

	utils.Success(c, 200, "Post deleted", nil)
}
