package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	redis  *goredis.Client
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(redis *goredis.Client, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{redis: redis, logger: logger}
}

// Health handles GET /api/healthz
func (h *HealthHandler) Health(c *gin.Context) {
	overall := "ok"
	redisStatus := "ok"
	status := http.StatusOK
	if err := h.redis.Ping(c.Request.Context()).Err(); err != nil {
		h.logger.Warn("Redis health check failed", zap.Error(err))
		overall = "degraded"
		redisStatus = "unavailable"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status": overall,
		"services": gin.H{
			"redis": redisStatus,
		},
	})
}
