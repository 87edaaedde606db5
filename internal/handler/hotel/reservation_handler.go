// Package hotel 提供前台预订与房态相关的 HTTP Handler
package hotel

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-reservation-backend/internal/common/handler"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/qrcode"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/response"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/tracing"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/utils"
	"github.com/dumeirei/hotel-reservation-backend/internal/models"
	hotelService "github.com/dumeirei/hotel-reservation-backend/internal/service/hotel"
)

// ReservationHandler 预订处理器
type ReservationHandler struct {
	reservationService *hotelService.ReservationService
	qrGenerator        *qrcode.Generator
}

// NewReservationHandler 创建预订处理器
func NewReservationHandler(reservationSvc *hotelService.ReservationService, qrGenerator *qrcode.Generator) *ReservationHandler {
	if qrGenerator == nil {
		qrGenerator = qrcode.NewGenerator()
	}
	return &ReservationHandler{
		reservationService: reservationSvc,
		qrGenerator:        qrGenerator,
	}
}

// CreateReservationRequest 创建预订请求
type CreateReservationRequest struct {
	Guest           hotelService.GuestInfo `json:"guest" binding:"required"`
	RoomID          int64                  `json:"room_id" binding:"required"`
	CheckIn         string                 `json:"check_in" binding:"required"`
	CheckOut        string                 `json:"check_out" binding:"required"`
	Occupants       int                    `json:"occupants" binding:"required"`
	SpecialRequests string                 `json:"special_requests"`
}

// ModifyReservationRequest 修改预订请求，缺省字段保持不变
type ModifyReservationRequest struct {
	CheckIn         *string `json:"check_in"`
	CheckOut        *string `json:"check_out"`
	RoomID          *int64  `json:"room_id"`
	Occupants       *int    `json:"occupants"`
	SpecialRequests *string `json:"special_requests"`
}

// CheckOutRequest 退房请求
type CheckOutRequest struct {
	PaymentMethod string  `json:"payment_method" binding:"required"`
	Amount        float64 `json:"amount"`
}

// SearchAvailableRooms 查询可预订房间
// @Summary 查询可预订房间
// @Tags 预订
// @Produce json
// @Security Bearer
// @Param check_in query string true "入住日期 YYYY-MM-DD"
// @Param check_out query string true "退房日期 YYYY-MM-DD"
// @Param category_id query int false "房型ID"
// @Success 200 {object} response.Response{data=[]hotelService.RoomInfo}
// @Router /api/v1/rooms/available [get]
func (h *ReservationHandler) SearchAvailableRooms(c *gin.Context) {
	checkIn, checkOut, ok := handler.ParseStay(c)
	if !ok {
		return
	}
	categoryID, ok := handler.ParseQueryID(c, "category_id", "房型")
	if !ok {
		return
	}

	rooms, err := h.reservationService.SearchAvailableRooms(c.Request.Context(), checkIn, checkOut, categoryID)
	handler.MustSucceed(c, err, rooms)
}

// QuotePrice 报价
// @Summary 房型报价
// @Tags 预订
// @Produce json
// @Security Bearer
// @Param category_id query int true "房型ID"
// @Param check_in query string true "入住日期"
// @Param check_out query string true "退房日期"
// @Success 200 {object} response.Response{data=hotelService.PriceBreakdown}
// @Router /api/v1/quotes [get]
func (h *ReservationHandler) QuotePrice(c *gin.Context) {
	categoryID, ok := handler.ParseRequiredQueryID(c, "category_id", "房型")
	if !ok {
		return
	}
	checkIn, checkOut, ok := handler.ParseStay(c)
	if !ok {
		return
	}

	quote, err := h.reservationService.QuotePrice(c.Request.Context(), categoryID, checkIn, checkOut)
	handler.MustSucceed(c, err, quote)
}

// CreateReservation 创建预订
// @Summary 创建预订
// @Tags 预订
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body CreateReservationRequest true "请求参数"
// @Success 201 {object} response.Response{data=hotelService.ReservationInfo}
// @Router /api/v1/reservations [post]
func (h *ReservationHandler) CreateReservation(c *gin.Context) {
	staffID, ok := handler.RequireStaffID(c)
	if !ok {
		return
	}

	var req CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}
	checkIn, ok := handler.ParseBodyDate(c, "check_in", req.CheckIn)
	if !ok {
		return
	}
	checkOut, ok := handler.ParseBodyDate(c, "check_out", req.CheckOut)
	if !ok {
		return
	}

	ctx, span := tracing.StartSpan(handler.RequestContext(c), "reservation.create",
		tracing.WithStaffID(staffID), tracing.WithRoomID(req.RoomID))
	info, err := h.reservationService.CreateReservation(ctx, &hotelService.CreateReservationRequest{
		Guest:           req.Guest,
		RoomID:          req.RoomID,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Occupants:       req.Occupants,
		SpecialRequests: req.SpecialRequests,
	}, staffID)
	tracing.EndSpan(span, err)

	if handler.HandleError(c, err) {
		return
	}
	response.Created(c, info)
}

// SearchReservations 检索预订
// @Summary 检索预订
// @Tags 预订
// @Produce json
// @Security Bearer
// @Param guest_name query string false "客人姓名"
// @Param phone query string false "手机号"
// @Param room_number query string false "房间号"
// @Param status query string false "状态"
// @Param check_in_date query string false "入住日期"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /api/v1/reservations [get]
func (h *ReservationHandler) SearchReservations(c *gin.Context) {
	req := &hotelService.SearchReservationsRequest{
		GuestName:  c.Query("guest_name"),
		Phone:      c.Query("phone"),
		RoomNumber: c.Query("room_number"),
	}
	if s := c.Query("status"); s != "" {
		status, err := models.ParseReservationStatus(s)
		if err != nil {
			response.BadRequest(c, "无效的预订状态")
			return
		}
		req.Status = &status
	}
	checkInDate, ok := handler.ParseQueryDate(c, "check_in_date")
	if !ok {
		return
	}
	req.CheckInDate = checkInDate

	// page_size 缺省时由服务端按配置补齐
	req.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	req.PageSize, _ = strconv.Atoi(c.Query("page_size"))
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	list, total, err := h.reservationService.SearchReservations(c.Request.Context(), req)
	handler.MustSucceedPage(c, err, list, total, req.Page, req.PageSize)
}

// UpcomingCheckIns 待入住预订
// @Summary 待入住预订
// @Tags 预订
// @Produce json
// @Security Bearer
// @Param days query int false "天数"
// @Success 200 {object} response.Response{data=[]hotelService.ReservationInfo}
// @Router /api/v1/reservations/arrivals [get]
func (h *ReservationHandler) UpcomingCheckIns(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "0"))
	if err != nil || days < 0 {
		response.BadRequest(c, "无效的天数")
		return
	}
	list, err := h.reservationService.UpcomingCheckIns(c.Request.Context(), days)
	handler.MustSucceed(c, err, list)
}

// CurrentCheckIns 在住预订
// @Summary 在住预订
// @Tags 预订
// @Produce json
// @Security Bearer
// @Success 200 {object} response.Response{data=[]hotelService.ReservationInfo}
// @Router /api/v1/reservations/in-house [get]
func (h *ReservationHandler) CurrentCheckIns(c *gin.Context) {
	list, err := h.reservationService.CurrentCheckIns(c.Request.Context())
	handler.MustSucceed(c, err, list)
}

// GetReservation 预订详情
// @Summary 预订详情
// @Tags 预订
// @Produce json
// @Security Bearer
// @Param id path int true "预订ID"
// @Success 200 {object} response.Response{data=hotelService.ReservationInfo}
// @Router /api/v1/reservations/{id} [get]
func (h *ReservationHandler) GetReservation(c *gin.Context) {
	id, ok := handler.ParseID(c, "预订")
	if !ok {
		return
	}
	info, err := h.reservationService.GetReservation(c.Request.Context(), id)
	handler.MustSucceed(c, err, info)
}

// GetQRCode 预订确认二维码
// @Summary 预订确认二维码
// @Tags 预订
// @Produce png
// @Security Bearer
// @Param id path int true "预订ID"
// @Success 200 {file} binary
// @Router /api/v1/reservations/{id}/qrcode [get]
func (h *ReservationHandler) GetQRCode(c *gin.Context) {
	id, ok := handler.ParseID(c, "预订")
	if !ok {
		return
	}
	info, err := h.reservationService.GetReservation(c.Request.Context(), id)
	if handler.HandleError(c, err) {
		return
	}
	checkIn, err := utils.ParseDate(info.CheckInDate)
	if handler.HandleError(c, err) {
		return
	}

	png, err := h.qrGenerator.ReservationPNG(info.ID, checkIn)
	if handler.HandleError(c, err) {
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// ModifyReservation 修改预订
// @Summary 修改预订
// @Tags 预订
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "预订ID"
// @Param request body ModifyReservationRequest true "请求参数"
// @Success 200 {object} response.Response{data=hotelService.ReservationInfo}
// @Router /api/v1/reservations/{id} [patch]
func (h *ReservationHandler) ModifyReservation(c *gin.Context) {
	staffID, id, ok := handler.RequireStaffAndParseID(c, "预订")
	if !ok {
		return
	}

	var req ModifyReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	patch := &hotelService.ReservationPatch{
		RoomID:          req.RoomID,
		Occupants:       req.Occupants,
		SpecialRequests: req.SpecialRequests,
	}
	if req.CheckIn != nil {
		d, ok := handler.ParseBodyDate(c, "check_in", *req.CheckIn)
		if !ok {
			return
		}
		patch.CheckIn = &d
	}
	if req.CheckOut != nil {
		d, ok := handler.ParseBodyDate(c, "check_out", *req.CheckOut)
		if !ok {
			return
		}
		patch.CheckOut = &d
	}

	ctx, span := tracing.StartSpan(handler.RequestContext(c), "reservation.modify",
		tracing.WithStaffID(staffID), tracing.WithReservationID(id))
	info, err := h.reservationService.ModifyReservation(ctx, id, patch, staffID)
	tracing.EndSpan(span, err)

	handler.MustSucceed(c, err, info)
}

// CancelReservation 取消预订
// @Summary 取消预订
// @Tags 预订
// @Produce json
// @Security Bearer
// @Param id path int true "预订ID"
// @Success 200 {object} response.Response
// @Router /api/v1/reservations/{id}/cancel [post]
func (h *ReservationHandler) CancelReservation(c *gin.Context) {
	h.transition(c, "reservation.cancel", "预订已取消", h.reservationService.CancelReservation)
}

// CheckIn 办理入住
// @Summary 办理入住
// @Tags 预订
// @Produce json
// @Security Bearer
// @Param id path int true "预订ID"
// @Success 200 {object} response.Response
// @Router /api/v1/reservations/{id}/check-in [post]
func (h *ReservationHandler) CheckIn(c *gin.Context) {
	h.transition(c, "reservation.check_in", "入住成功", h.reservationService.CheckIn)
}

// CheckOut 办理退房并记录付款
// @Summary 办理退房
// @Tags 预订
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path int true "预订ID"
// @Param request body CheckOutRequest true "请求参数"
// @Success 200 {object} response.Response
// @Router /api/v1/reservations/{id}/check-out [post]
func (h *ReservationHandler) CheckOut(c *gin.Context) {
	var req CheckOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}
	h.transition(c, "reservation.check_out", "退房成功", func(ctx context.Context, id, staffID int64) error {
		return h.reservationService.CheckOut(ctx, id, req.PaymentMethod, req.Amount, staffID)
	})
}

// transition 执行单个预订状态变更并返回最新详情
func (h *ReservationHandler) transition(c *gin.Context, spanName, message string, op func(ctx context.Context, id, staffID int64) error) {
	staffID, id, ok := handler.RequireStaffAndParseID(c, "预订")
	if !ok {
		return
	}

	ctx, span := tracing.StartSpan(handler.RequestContext(c), spanName,
		tracing.WithStaffID(staffID), tracing.WithReservationID(id))
	err := op(ctx, id, staffID)
	tracing.EndSpan(span, err)
	if handler.HandleError(c, err) {
		return
	}

	info, err := h.reservationService.GetReservation(c.Request.Context(), id)
	if handler.HandleError(c, err) {
		return
	}
	response.SuccessWithMessage(c, message, info)
}
