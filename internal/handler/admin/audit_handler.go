package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-reservation-backend/internal/common/handler"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/response"
	"github.com/dumeirei/hotel-reservation-backend/internal/service/notify"
)

// AuditHandler 审计日志处理器
type AuditHandler struct {
	auditRecorder *notify.AuditRecorder
}

// NewAuditHandler 创建审计日志处理器
func NewAuditHandler(auditRecorder *notify.AuditRecorder) *AuditHandler {
	return &AuditHandler{auditRecorder: auditRecorder}
}

// ListAuditLogs 审计日志
// @Summary 审计日志
// @Tags 审计
// @Produce json
// @Security Bearer
// @Param user_id query int false "操作员工ID"
// @Param operation_type query string false "操作类型"
// @Param entity_table query string false "实体表"
// @Param entity_id query int false "实体ID"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /api/v1/admin/audit-logs [get]
func (h *AuditHandler) ListAuditLogs(c *gin.Context) {
	var q notify.AuditLogQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	logs, page, err := h.auditRecorder.ListAuditLogs(c.Request.Context(), &q)
	if handler.HandleError(c, err) {
		return
	}
	response.SuccessPage(c, logs, page.Total, page.Page, page.PageSize)
}
