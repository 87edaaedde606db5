package hotel

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-reservation-backend/internal/common/handler"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/response"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/tracing"
	hotelService "github.com/dumeirei/hotel-reservation-backend/internal/service/hotel"
)

// RoomHandler 房态处理器
type RoomHandler struct {
	roomService *hotelService.RoomService
}

// NewRoomHandler 创建房态处理器
func NewRoomHandler(roomSvc *hotelService.RoomService) *RoomHandler {
	return &RoomHandler{roomService: roomSvc}
}

// UpdateRoomStatusRequest 更新房态请求
type UpdateRoomStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ListRooms 房间列表
// @Summary 房间列表
// @Tags 房态
// @Produce json
// @Security Bearer
// @Param status query string false "房态"
// @Param category_id query int false "房型ID"
// @Param floor query int false "楼层"
// @Success 200 {object} response.Response{data=[]hotelService.RoomInfo}
// @Router /api/v1/rooms [get]
func (h *RoomHandler) ListRooms(c *gin.Context) {
	filter := hotelService.RoomListFilter{Status: c.Query("status")}

	categoryID, ok := handler.ParseQueryID(c, "category_id", "房型")
	if !ok {
		return
	}
	filter.CategoryID = categoryID

	if s := c.Query("floor"); s != "" {
		floor, err := strconv.Atoi(s)
		if err != nil {
			response.BadRequest(c, "无效的楼层")
			return
		}
		filter.Floor = &floor
	}

	rooms, err := h.roomService.ListRooms(c.Request.Context(), filter)
	handler.MustSucceed(c, err, rooms)
}

// UpdateRoomStatus 更新房态
// @Summary 更新房态
// @Tags 房态
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "房间ID"
// @Param request body UpdateRoomStatusRequest true "请求参数"
// @Success 200 {object} response.Response{data=hotelService.RoomInfo}
// @Router /api/v1/rooms/{id}/status [put]
func (h *RoomHandler) UpdateRoomStatus(c *gin.Context) {
	staffID, roomID, ok := handler.RequireStaffAndParseID(c, "房间")
	if !ok {
		return
	}

	var req UpdateRoomStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	ctx, span := tracing.StartSpan(handler.RequestContext(c), "room.update_status",
		tracing.WithStaffID(staffID), tracing.WithRoomID(roomID))
	room, err := h.roomService.UpdateRoomStatus(ctx, roomID, req.Status, staffID)
	tracing.EndSpan(span, err)

	handler.MustSucceed(c, err, room)
}

// RoomStatistics 房态统计
// @Summary 房态统计
// @Tags 房态
// @Produce json
// @Security Bearer
// @Success 200 {object} response.Response{data=hotelService.RoomStatistics}
// @Router /api/v1/rooms/statistics [get]
func (h *RoomHandler) RoomStatistics(c *gin.Context) {
	stats, err := h.roomService.RoomStatistics(c.Request.Context())
	handler.MustSucceed(c, err, stats)
}
