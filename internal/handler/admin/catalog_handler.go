// Package admin 提供管理员相关的 HTTP Handler
package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-reservation-backend/internal/common/handler"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/response"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/tracing"
	hotelService "github.com/dumeirei/hotel-reservation-backend/internal/service/hotel"
)

// CatalogHandler 房型与房间管理处理器
type CatalogHandler struct {
	roomService *hotelService.RoomService
}

// NewCatalogHandler 创建房型与房间管理处理器
func NewCatalogHandler(roomSvc *hotelService.RoomService) *CatalogHandler {
	return &CatalogHandler{roomService: roomSvc}
}

// CreateCategory 新增房型
// @Summary 新增房型
// @Tags 房型管理
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body hotelService.CreateCategoryRequest true "请求参数"
// @Success 201 {object} response.Response{data=hotelService.CategoryInfo}
// @Router /api/v1/admin/categories [post]
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	staffID, ok := handler.RequireStaffID(c)
	if !ok {
		return
	}

	var req hotelService.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	category, err := h.roomService.CreateCategory(handler.RequestContext(c), &req, staffID)
	if handler.HandleError(c, err) {
		return
	}
	response.Created(c, category)
}

// ListCategories 房型列表
// @Summary 房型列表
// @Tags 房型管理
// @Produce json
// @Security Bearer
// @Param active_only query bool false "仅有效房型"
// @Success 200 {object} response.Response{data=[]hotelService.CategoryInfo}
// @Router /api/v1/admin/categories [get]
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	activeOnly := c.Query("active_only") == "true"
	list, err := h.roomService.ListCategories(c.Request.Context(), activeOnly)
	handler.MustSucceed(c, err, list)
}

// AddRoom 新增房间
// @Summary 新增房间
// @Tags 房间管理
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body hotelService.AddRoomRequest true "请求参数"
// @Success 201 {object} response.Response{data=hotelService.RoomInfo}
// @Router /api/v1/admin/rooms [post]
func (h *CatalogHandler) AddRoom(c *gin.Context) {
	staffID, ok := handler.RequireStaffID(c)
	if !ok {
		return
	}

	var req hotelService.AddRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	ctx, span := tracing.StartSpan(handler.RequestContext(c), "room.add",
		tracing.WithStaffID(staffID), tracing.WithCategoryID(req.CategoryID))
	room, err := h.roomService.AddRoom(ctx, &req, staffID)
	tracing.EndSpan(span, err)

	if handler.HandleError(c, err) {
		return
	}
	response.Created(c, room)
}

// DeactivateRoom 停用房间
// @Summary 停用房间
// @Tags 房间管理
// @Produce json
// @Security Bearer
// @Param id path int true "房间ID"
// @Success 200 {object} response.Response
// @Router /api/v1/admin/rooms/{id} [delete]
func (h *CatalogHandler) DeactivateRoom(c *gin.Context) {
	staffID, roomID, ok := handler.RequireStaffAndParseID(c, "房间")
	if !ok {
		return
	}

	ctx, span := tracing.StartSpan(handler.RequestContext(c), "room.deactivate",
		tracing.WithStaffID(staffID), tracing.WithRoomID(roomID))
	err := h.roomService.DeactivateRoom(ctx, roomID, staffID)
	tracing.EndSpan(span, err)

	if handler.HandleError(c, err) {
		return
	}
	response.SuccessWithMessage(c, "房间已停用", nil)
}

// UpdateCategory 编辑房型
// @Summary 编辑房型
// @Tags 房型管理
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "房型ID"
// @Param request body hotelService.UpdateCategoryRequest true "请求参数"
// @Success 200 {object} response.Response{data=hotelService.CategoryInfo}
// @Router /api/v1/admin/categories/{id} [put]
func (h *CatalogHandler) UpdateCategory(c *gin.Context) {
	staffID, categoryID, ok := handler.RequireStaffAndParseID(c, "房型")
	if !ok {
		return
	}

	var req hotelService.UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	ctx, span := tracing.StartSpan(handler.RequestContext(c), "category.update",
		tracing.WithStaffID(staffID), tracing.WithCategoryID(categoryID))
	category, err := h.roomService.UpdateCategory(ctx, categoryID, &req, staffID)
	tracing.EndSpan(span, err)

	handler.MustSucceed(c, err, category)
}
