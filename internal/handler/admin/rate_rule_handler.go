package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-reservation-backend/internal/common/handler"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/response"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/tracing"
	hotelService "github.com/dumeirei/hotel-reservation-backend/internal/service/hotel"
)

// RateRuleHandler 季节价格规则处理器
type RateRuleHandler struct {
	rateTable *hotelService.RateTable
}

// NewRateRuleHandler 创建价格规则处理器
func NewRateRuleHandler(rateTable *hotelService.RateTable) *RateRuleHandler {
	return &RateRuleHandler{rateTable: rateTable}
}

// AddRuleRequest 新增价格规则请求，multiplier 与 fixed_price 二选一
type AddRuleRequest struct {
	CategoryID int64    `json:"category_id" binding:"required"`
	Label      string   `json:"label" binding:"required"`
	StartDate  string   `json:"start_date" binding:"required"`
	EndDate    string   `json:"end_date" binding:"required"`
	Multiplier *float64 `json:"multiplier"`
	FixedPrice *float64 `json:"fixed_price"`
}

// AddRule 新增价格规则
// @Summary 新增季节价格规则
// @Tags 价格规则
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body AddRuleRequest true "请求参数"
// @Success 201 {object} response.Response{data=models.SeasonalRateRule}
// @Router /api/v1/admin/rate-rules [post]
func (h *RateRuleHandler) AddRule(c *gin.Context) {
	staffID, ok := handler.RequireStaffID(c)
	if !ok {
		return
	}

	var req AddRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}
	start, ok := handler.ParseBodyDate(c, "start_date", req.StartDate)
	if !ok {
		return
	}
	end, ok := handler.ParseBodyDate(c, "end_date", req.EndDate)
	if !ok {
		return
	}

	ctx, span := tracing.StartSpan(handler.RequestContext(c), "rate_rule.add",
		tracing.WithStaffID(staffID), tracing.WithCategoryID(req.CategoryID))
	rule, err := h.rateTable.AddRule(ctx, &hotelService.AddRuleRequest{
		CategoryID: req.CategoryID,
		Label:      req.Label,
		StartDate:  start,
		EndDate:    end,
		Multiplier: req.Multiplier,
		FixedPrice: req.FixedPrice,
	}, staffID)
	tracing.EndSpan(span, err)

	if handler.HandleError(c, err) {
		return
	}
	response.Created(c, rule)
}

// ListRules 价格规则列表
// @Summary 价格规则列表
// @Tags 价格规则
// @Produce json
// @Security Bearer
// @Param category_id query int false "房型ID"
// @Param include_inactive query bool false "包含已停用规则"
// @Success 200 {object} response.Response{data=[]models.SeasonalRateRule}
// @Router /api/v1/admin/rate-rules [get]
func (h *RateRuleHandler) ListRules(c *gin.Context) {
	categoryID, ok := handler.ParseQueryID(c, "category_id", "房型")
	if !ok {
		return
	}
	activeOnly := c.Query("include_inactive") != "true"

	rules, err := h.rateTable.ListRules(c.Request.Context(), categoryID, activeOnly)
	handler.MustSucceed(c, err, rules)
}

// DeactivateRule 停用价格规则
// @Summary 停用价格规则
// @Tags 价格规则
// @Produce json
// @Security Bearer
// @Param id path int true "规则ID"
// @Success 200 {object} response.Response
// @Router /api/v1/admin/rate-rules/{id} [delete]
func (h *RateRuleHandler) DeactivateRule(c *gin.Context) {
	staffID, ruleID, ok := handler.RequireStaffAndParseID(c, "价格规则")
	if !ok {
		return
	}

	if handler.HandleError(c, h.rateTable.DeactivateRule(handler.RequestContext(c), ruleID, staffID)) {
		return
	}
	response.SuccessWithMessage(c, "价格规则已停用", nil)
}
