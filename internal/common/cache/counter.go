package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// WindowCounter 固定窗口计数器
type WindowCounter struct {
	client *redis.Client
	window time.Duration
}

// NewWindowCounter 创建计数器
func NewWindowCounter(client *redis.Client, window time.Duration) *WindowCounter {
	return &WindowCounter{client: client, window: window}
}

// Window 窗口长度
func (c *WindowCounter) Window() time.Duration {
	return c.window
}

// Hit 计数加一，返回窗口内计数和窗口剩余时间
func (c *WindowCounter) Hit(ctx context.Context, key string) (int64, time.Duration, error) {
	count, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}
	// 首次命中开启窗口
	if count == 1 {
		if err := c.client.Expire(ctx, key, c.window).Err(); err != nil {
			return 0, 0, err
		}
		return count, c.window, nil
	}
	ttl, err := c.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}
	if ttl < 0 {
		// 过期时间丢失时重新设置，避免计数永不清零
		if err := c.client.Expire(ctx, key, c.window).Err(); err != nil {
			return 0, 0, err
		}
		ttl = c.window
	}
	return count, ttl, nil
}
