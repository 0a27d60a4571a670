package handler

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/timelov/admin-api/internal/models"
	"github.com/timelov/admin-api/internal/repository"
	"github.com/timelov/admin-api/internal/utils"
)

// AuditLogHandler exposes the audit trail to the admin panel: filtered
// listing, aggregate stats and CSV export. Read-only by design.
type AuditLogHandler struct {
	logs *repository.AuditLogRepository
}

// NewAuditLogHandler constructs an AuditLogHandler.
func NewAuditLogHandler(logs *repository.AuditLogRepository) *AuditLogHandler {
	return &AuditLogHandler{logs: logs}
}

func auditFilterFromQuery(c *gin.Context) *models.AuditLogFilter {
	f := &models.AuditLogFilter{
		Action:     models.AuditAction(c.Query("action")),
		EntityType: models.EntityType(c.Query("entity_type")),
		AdminID:    c.Query("admin_id"),
	}
	if v := c.Query("start_date"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.StartDate = &t
		}
	}
	if v := c.Query("end_date"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.EndDate = &t
		}
	}
	f.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "100"))
	f.Skip, _ = strconv.Atoi(c.DefaultQuery("skip", "0"))
	return f
}

// List handles GET /api/cms/audit-logs
func (h *AuditLogHandler) List(c *gin.Context) {
	f := auditFilterFromQuery(c)
	ctx := c.Request.Context()

	logs, err := h.logs.List(ctx, f)
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to retrieve audit logs")
		return
	}
	total, err := h.logs.Count(ctx, f)
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to retrieve audit logs")
		return
	}

	page := 1
	if f.Limit > 0 {
		page = f.Skip/f.Limit + 1
	}
	utils.SuccessWithPagination(c, 200, "Audit logs retrieved", logs, page, f.Limit, total)
}

// Stats handles GET /api/cms/audit-logs/stats
func (h *AuditLogHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	byAction, err := h.logs.CountByAction(ctx)
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to compute audit stats")
		return
	}
	byEntity, err := h.logs.CountByEntityType(ctx)
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to compute audit stats")
		return
	}
	total, err := h.logs.Count(ctx, &models.AuditLogFilter{})
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to compute audit stats")
		return
	}

	utils.Success(c, 200, "Audit stats computed", gin.H{
		"total":          total,
		"by_action":      byAction,
		"by_entity_type": byEntity,
	})
}

// Export handles GET /api/cms/audit-logs/export — streams the filtered
// trail as CSV. Limit is raised so exports cover a meaningful window.
func (h *AuditLogHandler) Export(c *gin.Context) {
	f := auditFilterFromQuery(c)
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 500
	}

	logs, err := h.logs.List(c.Request.Context(), f)
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to export audit logs")
		return
	}

	filename := fmt.Sprintf("audit-logs-%s.csv", time.Now().Format("2006-01-02"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Status(200)

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"created_at", "action", "entity_type", "entity_id", "admin_email", "ip_address", "user_agent"})
	for _, entry := range logs {
		_ = w.Write([]string{
			entry.CreatedAt.Format(time.RFC3339),
			string(entry.Action),
			string(entry.EntityType),
			strDeref(entry.EntityID),
			strDeref(entry.AdminEmail),
			entry.IPAddress,
			strDeref(entry.UserAgent),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		log.Error().Err(err).Msg("audit log CSV export failed mid-stream")
	}
}

func strDeref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
