package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/dumeirei/hotel-reservation-backend/internal/common/database"
)

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp int64             `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// healthHandler 健康检查（简单版）
func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Timestamp: time.Now().Unix()})
}

// pingHandler Ping 检查
func pingHandler(c *gin.Context) {
	c.String(http.StatusOK, "pong")
}

// readyHandler 就绪检查，数据库与 Redis 均可用才返回 200
func readyHandler(db *gorm.DB, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		checks := map[string]string{"database": "ok", "redis": "ok"}
		healthy := true

		if err := database.Ping(ctx, db); err != nil {
			checks["database"] = "error: " + err.Error()
			healthy = false
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			checks["redis"] = "error: " + err.Error()
			healthy = false
		}

		status, text := http.StatusOK, "ready"
		if !healthy {
			status, text = http.StatusServiceUnavailable, "not ready"
		}
		c.JSON(status, HealthResponse{Status: text, Timestamp: time.Now().Unix(), Checks: checks})
	}
}
