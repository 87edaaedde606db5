package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-reservation-backend/internal/common/handler"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/response"
	authService "github.com/dumeirei/hotel-reservation-backend/internal/service/auth"
)

// StaffHandler 员工管理处理器
type StaffHandler struct {
	authService *authService.AuthService
}

// NewStaffHandler 创建员工管理处理器
func NewStaffHandler(authSvc *authService.AuthService) *StaffHandler {
	return &StaffHandler{authService: authSvc}
}

// SetStaffActiveRequest 启用/停用请求
type SetStaffActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// CreateStaff 创建员工
// @Summary 创建员工
// @Tags 员工管理
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body authService.CreateStaffRequest true "请求参数"
// @Success 201 {object} response.Response{data=authService.StaffInfo}
// @Router /api/v1/admin/staff [post]
func (h *StaffHandler) CreateStaff(c *gin.Context) {
	var req authService.CreateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	staff, err := h.authService.CreateStaff(c.Request.Context(), &req)
	if handler.HandleError(c, err) {
		return
	}
	response.Created(c, staff)
}

// ListStaff 员工列表
// @Summary 员工列表
// @Tags 员工管理
// @Produce json
// @Security Bearer
// @Success 200 {object} response.Response{data=[]authService.StaffInfo}
// @Router /api/v1/admin/staff [get]
func (h *StaffHandler) ListStaff(c *gin.Context) {
	list, err := h.authService.ListStaff(c.Request.Context())
	handler.MustSucceed(c, err, list)
}

// SetStaffActive 启用或停用员工
// @Summary 启用或停用员工
// @Tags 员工管理
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "员工ID"
// @Param request body SetStaffActiveRequest true "请求参数"
// @Success 200 {object} response.Response
// @Router /api/v1/admin/staff/{id}/active [put]
func (h *StaffHandler) SetStaffActive(c *gin.Context) {
	actingID, staffID, ok := handler.RequireStaffAndParseID(c, "员工")
	if !ok {
		return
	}

	var req SetStaffActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	if handler.HandleError(c, h.authService.SetStaffActive(handler.RequestContext(c), staffID, *req.IsActive, actingID)) {
		return
	}
	response.Success(c, nil)
}
