package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/timelov/admin-api/internal/repository"
	"github.com/timelov/admin-api/internal/utils"
)

// DashboardHandler aggregates content counts and recent activity for the
// admin panel landing view.
type DashboardHandler struct {
	pages   *repository.PageRepository
	posts   *repository.PostRepository
	widgets *repository.WidgetRepository
	logs    *repository.AuditLogRepository
}

// NewDashboardHandler constructs a DashboardHandler.
func NewDashboardHandler(
	pages *repository.PageRepository,
	posts *repository.PostRepository,
	widgets *repository.WidgetRepository,
	logs *repository.AuditLogRepository,
) *DashboardHandler {
	return &DashboardHandler{pages: pages, posts: posts, widgets: widgets, logs: logs}
}

// Stats handles GET /api/cms/dashboard
func (h *DashboardHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	pagesTotal, pagesPublished, err := h.pages.CountByStatus(ctx)
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to load dashboard")
		return
	}
	postsTotal, postsPublished, err := h.posts.CountByStatus(ctx)
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to load dashboard")
		return
	}
	widgetsTotal, widgetsActive, err := h.widgets.CountByStatus(ctx)
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to load dashboard")
		return
	}
	recent, err := h.logs.Recent(ctx, 10)
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to load dashboard")
		return
	}

	utils.Success(c, 200, "Dashboard loaded", gin.H{
		"pages":           gin.H{"total": pagesTotal, "published": pagesPublished},
		"posts":           gin.H{"total": postsTotal, "published": postsPublished},
		"widgets":         gin.H{"total": widgetsTotal, "active": widgetsActive},
		"recent_activity": recent,
	})
}
