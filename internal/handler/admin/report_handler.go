package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-reservation-backend/internal/common/handler"
	hotelService "github.com/dumeirei/hotel-reservation-backend/internal/service/hotel"
)

// ReportHandler 经营报表处理器
type ReportHandler struct {
	roomService *hotelService.RoomService
}

// NewReportHandler 创建经营报表处理器
func NewReportHandler(roomSvc *hotelService.RoomService) *ReportHandler {
	return &ReportHandler{roomService: roomSvc}
}

// Occupancy 入住率报表
// @Summary 入住率报表
// @Tags 报表
// @Produce json
// @Security Bearer
// @Param start_date query string true "开始日期 YYYY-MM-DD"
// @Param end_date query string true "结束日期 YYYY-MM-DD（含）"
// @Success 200 {object} response.Response{data=hotelService.OccupancyReport}
// @Router /api/v1/admin/reports/occupancy [get]
func (h *ReportHandler) Occupancy(c *gin.Context) {
	start, ok := handler.ParseRequiredQueryDate(c, "start_date")
	if !ok {
		return
	}
	end, ok := handler.ParseRequiredQueryDate(c, "end_date")
	if !ok {
		return
	}
	report, err := h.roomService.OccupancyReport(handler.RequestContext(c), start, end)
	handler.MustSucceed(c, err, report)
}

// Revenue 收入报表
// @Summary 收入报表
// @Tags 报表
// @Produce json
// @Security Bearer
// @Param start_date query string true "开始日期 YYYY-MM-DD"
// @Param end_date query string true "结束日期 YYYY-MM-DD（含）"
// @Success 200 {object} response.Response{data=hotelService.RevenueReport}
// @Router /api/v1/admin/reports/revenue [get]
func (h *ReportHandler) Revenue(c *gin.Context) {
	start, ok := handler.ParseRequiredQueryDate(c, "start_date")
	if !ok {
		return
	}
	end, ok := handler.ParseRequiredQueryDate(c, "end_date")
	if !ok {
		return
	}
	report, err := h.roomService.RevenueReport(handler.RequestContext(c), start, end)
	handler.MustSucceed(c, err, report)
}
