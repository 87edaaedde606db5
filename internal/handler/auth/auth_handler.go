// Package auth 提供员工认证相关的 HTTP Handler
package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-reservation-backend/internal/common/handler"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/response"
	"github.com/dumeirei/hotel-reservation-backend/internal/middleware"
	authService "github.com/dumeirei/hotel-reservation-backend/internal/service/auth"
)

// Handler 认证处理器
type Handler struct {
	authService *authService.AuthService
}

// NewHandler 创建认证处理器
func NewHandler(authSvc *authService.AuthService) *Handler {
	return &Handler{authService: authSvc}
}

// Login 员工登录
// @Summary 员工登录
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body authService.LoginRequest true "请求参数"
// @Success 200 {object} response.Response{data=authService.LoginResponse}
// @Router /api/v1/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req authService.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}
	req.IP = c.ClientIP()

	result, err := h.authService.Login(handler.RequestContext(c), &req)
	handler.MustSucceed(c, err, result)
}

// Logout 登出
// @Summary 登出
// @Tags 认证
// @Produce json
// @Security Bearer
// @Success 200 {object} response.Response
// @Router /api/v1/auth/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Unauthorized(c, "请先登录")
		return
	}

	if handler.HandleError(c, h.authService.Logout(handler.RequestContext(c), claims)) {
		return
	}
	response.SuccessWithMessage(c, "已登出", nil)
}

// Me 当前员工信息
// @Summary 当前员工信息
// @Tags 认证
// @Produce json
// @Security Bearer
// @Success 200 {object} response.Response{data=authService.StaffInfo}
// @Router /api/v1/auth/me [get]
func (h *Handler) Me(c *gin.Context) {
	staffID, ok := handler.RequireStaffID(c)
	if !ok {
		return
	}
	info, err := h.authService.Me(c.Request.Context(), staffID)
	handler.MustSucceed(c, err, info)
}

// ChangePassword 修改密码
// @Summary 修改密码
// @Tags 认证
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body authService.ChangePasswordRequest true "请求参数"
// @Success 200 {object} response.Response
// @Router /api/v1/auth/password [put]
func (h *Handler) ChangePassword(c *gin.Context) {
	staffID, ok := handler.RequireStaffID(c)
	if !ok {
		return
	}

	var req authService.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	if handler.HandleError(c, h.authService.ChangePassword(c.Request.Context(), staffID, &req)) {
		return
	}
	response.SuccessWithMessage(c, "密码已修改，请重新登录", nil)
}
