package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LoggingConfig 日志配置
type LoggingConfig struct {
	Logger    *zap.Logger
	SkipPaths []string
}

// DefaultLoggingConfig 默认跳过健康检查与指标接口
func DefaultLoggingConfig(logger *zap.Logger) *LoggingConfig {
	return &LoggingConfig{
		Logger:    logger,
		SkipPaths: []string{"/health", "/ready", "/metrics"},
	}
}

// Logging 请求日志中间件，请求体含客人证件信息，不落日志
func Logging(config *LoggingConfig) gin.HandlerFunc {
	skipPaths := make(map[string]struct{}, len(config.SkipPaths))
	for _, path := range config.SkipPaths {
		skipPaths[path] = struct{}{}
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if _, ok := skipPaths[path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		statusCode := c.Writer.Status()
		fields := []zap.Field{
			zap.String("request_id", GetRequestID(c)),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("route", c.FullPath()),
			zap.String("query", c.Request.URL.RawQuery),
			zap.Int("status", statusCode),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
		}

		if staffID := GetStaffID(c); staffID > 0 {
			fields = append(fields, zap.Int64("staff_id", staffID), zap.String("role", GetRole(c)))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case statusCode >= 500:
			config.Logger.Error("HTTP Request", fields...)
		case statusCode >= 400:
			config.Logger.Warn("HTTP Request", fields...)
		default:
			config.Logger.Info("HTTP Request", fields...)
		}
	}
}

// AccessLog 简化的访问日志中间件
func AccessLog(logger *zap.Logger) gin.HandlerFunc {
	return Logging(DefaultLoggingConfig(logger))
}
