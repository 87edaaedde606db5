package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-reservation-backend/internal/common/response"
	"github.com/dumeirei/hotel-reservation-backend/internal/models"
)

// 权限码
const (
	PermissionReservationManage = "reservation:manage"
	PermissionRoomView          = "room:view"
	PermissionRoomStatus        = "room:status"
	PermissionRoomManage        = "room:manage"
	PermissionRateManage        = "rate:manage"
	PermissionAuditView         = "audit:view"
	PermissionReportView        = "report:view"
)

// PermissionChecker 权限检查器接口
type PermissionChecker interface {
	HasPermission(role, permission string) bool
}

// RolePermissions 角色到权限码的静态映射
type RolePermissions map[string][]string

// DefaultRolePermissions 管理员拥有全部权限，前台负责预订与房态
func DefaultRolePermissions() RolePermissions {
	return RolePermissions{
		models.StaffRoleAdmin: {
			PermissionReservationManage,
			PermissionRoomView,
			PermissionRoomStatus,
			PermissionRoomManage,
			PermissionRateManage,
			PermissionAuditView,
			PermissionReportView,
		},
		models.StaffRoleReceptionist: {
			PermissionReservationManage,
			PermissionRoomView,
			PermissionRoomStatus,
		},
	}
}

// HasPermission 实现 PermissionChecker
func (r RolePermissions) HasPermission(role, permission string) bool {
	for _, p := range r[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// RequirePermission 要求指定权限
func RequirePermission(checker PermissionChecker, permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := GetRole(c)
		if role == "" {
			response.Unauthorized(c, "请先登录")
			c.Abort()
			return
		}

		if !checker.HasPermission(role, permission) {
			response.Forbidden(c, "权限不足")
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireRoles 要求指定角色
func RequireRoles(roles ...string) gin.HandlerFunc {
	roleSet := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		roleSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role := GetRole(c)
		if role == "" {
			response.Unauthorized(c, "请先登录")
			c.Abort()
			return
		}

		if _, ok := roleSet[role]; !ok {
			response.Forbidden(c, "权限不足")
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireAdmin 要求管理员角色
func RequireAdmin() gin.HandlerFunc {
	return RequireRoles(models.StaffRoleAdmin)
}
