package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dumeirei/hotel-reservation-backend/internal/common/cache"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/response"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Counter *cache.WindowCounter
	Limit   int
	// KeyFunc 自定义键，默认按客户端 IP
	KeyFunc func(*gin.Context) string
	Logger  *zap.Logger
}

// RateLimit 固定窗口限流中间件，Redis 不可用时放行
func RateLimit(config *RateLimitConfig) gin.HandlerFunc {
	keyFunc := config.KeyFunc
	if keyFunc == nil {
		keyFunc = func(c *gin.Context) string {
			return cache.BuildKey(cache.KeyPrefixRateLimit, "ip", c.ClientIP())
		}
	}
	log := config.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		count, ttl, err := config.Counter.Hit(c.Request.Context(), keyFunc(c))
		if err != nil {
			log.Warn("rate limit counter unavailable", zap.Error(err))
			c.Next()
			return
		}

		remaining := config.Limit - int(count)
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(config.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(ttl).Unix(), 10))

		if int(count) > config.Limit {
			c.Header("Retry-After", strconv.Itoa(int(ttl.Seconds())))
			response.TooManyRequests(c, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Next()
	}
}

// IPRateLimit 按客户端 IP 限流
func IPRateLimit(counter *cache.WindowCounter, limit int, log *zap.Logger) gin.HandlerFunc {
	return RateLimit(&RateLimitConfig{Counter: counter, Limit: limit, Logger: log})
}

// StaffRateLimit 已登录时按员工限流，否则按 IP
func StaffRateLimit(counter *cache.WindowCounter, limit int, log *zap.Logger) gin.HandlerFunc {
	return RateLimit(&RateLimitConfig{
		Counter: counter,
		Limit:   limit,
		Logger:  log,
		KeyFunc: func(c *gin.Context) string {
			if id := GetStaffID(c); id > 0 {
				return cache.BuildKey(cache.KeyPrefixRateLimit, "staff", fmt.Sprint(id))
			}
			return cache.BuildKey(cache.KeyPrefixRateLimit, "ip", c.ClientIP())
		},
	})
}
