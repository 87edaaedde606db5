// Package middleware 提供 HTTP 中间件
package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-reservation-backend/internal/common/errors"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/jwt"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/response"
)

// Authenticator 校验访问令牌并确认会话有效，*auth.AuthService 实现
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*jwt.Claims, error)
}

// 上下文键
const (
	ContextKeyStaffID = "staff_id"
	ContextKeyRole    = "role"
	ContextKeyClaims  = "claims"
)

// Auth 员工认证中间件
func Auth(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			response.Unauthorized(c, "请先登录")
			c.Abort()
			return
		}

		claims, err := authn.Authenticate(c.Request.Context(), token)
		if err != nil {
			appErr := errors.GetAppError(err)
			if appErr.Kind == errors.KindUnauthorized {
				response.Error(c, 401, appErr.Code, appErr.Message)
			} else {
				response.InternalError(c, "认证服务暂不可用")
			}
			c.Abort()
			return
		}

		c.Set(ContextKeyStaffID, claims.UserID)
		c.Set(ContextKeyRole, claims.Role)
		c.Set(ContextKeyClaims, claims)

		c.Next()
	}
}

// extractToken 从 Authorization 头提取 Bearer 令牌
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// GetStaffID 从上下文获取员工 ID
func GetStaffID(c *gin.Context) int64 {
	id, exists := c.Get(ContextKeyStaffID)
	if !exists {
		return 0
	}
	return id.(int64)
}

// GetRole 从上下文获取角色
func GetRole(c *gin.Context) string {
	role, exists := c.Get(ContextKeyRole)
	if !exists {
		return ""
	}
	return role.(string)
}

// GetClaims 从上下文获取完整的 Claims
func GetClaims(c *gin.Context) *jwt.Claims {
	claims, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil
	}
	return claims.(*jwt.Claims)
}
