// Package handler 提供 API Handler 的通用辅助函数
// 统一错误到 HTTP 状态的映射、身份检查与参数解析
package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-reservation-backend/internal/common/errors"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/response"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/utils"
	"github.com/dumeirei/hotel-reservation-backend/internal/middleware"
	"github.com/dumeirei/hotel-reservation-backend/internal/service/hotel"
)

// ============================================================================
// 统一错误处理
// ============================================================================

// StatusOf 按错误类别映射 HTTP 状态码
func StatusOf(kind errors.Kind) int {
	switch kind {
	case errors.KindValidation:
		return http.StatusBadRequest
	case errors.KindConflict:
		return http.StatusConflict
	case errors.KindNotFound:
		return http.StatusNotFound
	case errors.KindState:
		return http.StatusUnprocessableEntity
	case errors.KindDependency:
		return http.StatusBadGateway
	case errors.KindUnauthorized:
		return http.StatusUnauthorized
	case errors.KindForbidden:
		return http.StatusForbidden
	case errors.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// HandleError 处理错误并发送响应
// err 为 nil 时返回 false；否则写入错误响应并返回 true，调用方应直接 return
//
// 使用示例:
//
//	info, err := svc.GetReservation(ctx, id)
//	if handler.HandleError(c, err) {
//	    return
//	}
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	appErr := errors.GetAppError(err)
	status := StatusOf(appErr.Kind)
	if status == http.StatusInternalServerError {
		// 内部错误细节只进日志
		_ = c.Error(err)
		response.Error(c, status, appErr.Code, "服务器内部错误")
		return true
	}
	response.Error(c, status, appErr.Code, appErr.Message)
	return true
}

// MustSucceed 有错误则返回错误响应，否则返回成功响应
func MustSucceed(c *gin.Context, err error, data interface{}) {
	if HandleError(c, err) {
		return
	}
	response.Success(c, data)
}

// MustSucceedPage 分页响应版本
func MustSucceedPage(c *gin.Context, err error, list interface{}, total int64, page, pageSize int) {
	if HandleError(c, err) {
		return
	}
	response.SuccessPage(c, list, total, page, pageSize)
}

// ============================================================================
// 身份检查
// ============================================================================

// RequireStaffID 获取当前员工 ID，未登录时写入 401 并返回 false
func RequireStaffID(c *gin.Context) (int64, bool) {
	staffID := middleware.GetStaffID(c)
	if staffID == 0 {
		response.Unauthorized(c, "请先登录")
		return 0, false
	}
	return staffID, true
}

// RequestContext 附带客户端 IP 的请求上下文，审计日志从中读取
func RequestContext(c *gin.Context) context.Context {
	return hotel.WithClientIP(c.Request.Context(), c.ClientIP())
}

// ============================================================================
// 参数解析
// ============================================================================

// ParseID 解析路径参数 "id"
//
//	id, ok := handler.ParseID(c, "预订")
//	if !ok {
//	    return
//	}
func ParseID(c *gin.Context, resourceName string) (int64, bool) {
	return ParseParamID(c, "id", resourceName)
}

// ParseParamID 解析指定路径参数为正整数
func ParseParamID(c *gin.Context, paramName, resourceName string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(paramName), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "无效的"+resourceName+"ID")
		return 0, false
	}
	return id, true
}

// ParseQueryID 解析可选的查询参数 ID，参数为空时返回 (nil, true)
func ParseQueryID(c *gin.Context, paramName, resourceName string) (*int64, bool) {
	idStr := c.Query(paramName)
	if idStr == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "无效的"+resourceName+"ID")
		return nil, false
	}
	return &id, true
}

// ParseRequiredQueryID 解析必填的查询参数 ID
func ParseRequiredQueryID(c *gin.Context, paramName, resourceName string) (int64, bool) {
	if c.Query(paramName) == "" {
		response.BadRequest(c, "请提供"+resourceName+"ID")
		return 0, false
	}
	id, ok := ParseQueryID(c, paramName, resourceName)
	if !ok {
		return 0, false
	}
	return *id, true
}

// ParseQueryDate 解析可选的 YYYY-MM-DD 查询参数
func ParseQueryDate(c *gin.Context, paramName string) (*time.Time, bool) {
	s := c.Query(paramName)
	if s == "" {
		return nil, true
	}
	t, err := utils.ParseDate(s)
	if err != nil {
		response.BadRequest(c, "无效的日期格式: "+paramName)
		return nil, false
	}
	return &t, true
}

// ParseRequiredQueryDate 解析必填的 YYYY-MM-DD 查询参数
func ParseRequiredQueryDate(c *gin.Context, paramName string) (time.Time, bool) {
	if c.Query(paramName) == "" {
		response.BadRequest(c, "请指定日期: "+paramName)
		return time.Time{}, false
	}
	t, ok := ParseQueryDate(c, paramName)
	if !ok {
		return time.Time{}, false
	}
	return *t, true
}

// ParseStay 解析 check_in / check_out 查询参数
func ParseStay(c *gin.Context) (checkIn, checkOut time.Time, ok bool) {
	checkIn, ok = ParseRequiredQueryDate(c, "check_in")
	if !ok {
		return
	}
	checkOut, ok = ParseRequiredQueryDate(c, "check_out")
	return
}

// ParseBodyDate 解析请求体中的日期字段，字段名用于错误消息
func ParseBodyDate(c *gin.Context, field, value string) (time.Time, bool) {
	t, err := utils.ParseDate(value)
	if err != nil {
		response.BadRequest(c, "无效的日期格式: "+field)
		return time.Time{}, false
	}
	return t, true
}

// ============================================================================
// 分页处理
// ============================================================================

// BindPagination 绑定并规范化分页参数，默认 page=1, page_size=10
func BindPagination(c *gin.Context) utils.Pagination {
	var p utils.Pagination
	p.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	p.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "10"))
	p.Normalize()
	return p
}

// ============================================================================
// 组合辅助函数
// ============================================================================

// RequireStaffAndParseID 检查员工登录并解析 ID 参数
func RequireStaffAndParseID(c *gin.Context, resourceName string) (staffID, resourceID int64, ok bool) {
	staffID, ok = RequireStaffID(c)
	if !ok {
		return 0, 0, false
	}
	resourceID, ok = ParseID(c, resourceName)
	if !ok {
		return 0, 0, false
	}
	return staffID, resourceID, true
}
