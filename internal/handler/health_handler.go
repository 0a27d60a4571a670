package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/timelov/admin-api/internal/cache"
	"github.com/timelov/admin-api/internal/utils"
)

// HealthHandler reports liveness of the service and its dependencies.
type HealthHandler struct {
	db    *sqlx.DB
	redis *cache.RedisClient
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(db *sqlx.DB, redis *cache.RedisClient) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

// Check handles GET /api/health
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := 200
	dbStatus := "ok"
	if err := h.db.PingContext(ctx); err != nil {
		dbStatus = "down"
		status = 503
	}
	redisStatus := "ok"
	if err := h.redis.Ping(ctx); err != nil {
		redisStatus = "down"
		status = 503
	}

	if status != 200 {
		utils.Error(c, status, "UNHEALTHY", "One or more dependencies are down")
		return
	}
	utils.Success(c, status, "Service healthy", gin.H{
		"database": dbStatus,
		"redis":    redisStatus,
	})
}
