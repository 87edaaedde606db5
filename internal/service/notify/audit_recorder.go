package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/dumeirei/hotel-reservation-backend/internal/common/errors"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/utils"
	"github.com/dumeirei/hotel-reservation-backend/internal/models"
	"github.com/dumeirei/hotel-reservation-backend/internal/repository"
	"github.com/dumeirei/hotel-reservation-backend/internal/service/hotel"
)

// AuditRecorder 审计日志写入与查询
type AuditRecorder struct {
	repo *repository.AuditLogRepository
}

// NewAuditRecorder 创建审计记录器
func NewAuditRecorder(repo *repository.AuditLogRepository) *AuditRecorder {
	return &AuditRecorder{repo: repo}
}

// Record 写入一条审计日志，Before 序列化为 JSON 快照
func (r *AuditRecorder) Record(ctx context.Context, entry hotel.AuditEntry) error {
	log := &models.AuditLog{
		UserID:        entry.UserID,
		OperationType: entry.OperationType,
		EntityTable:   entry.EntityTable,
		Description:   entry.Description,
		IP:            utils.NilIfEmpty(entry.IP),
	}
	if entry.EntityID != 0 {
		id := entry.EntityID
		log.EntityID = &id
	}
	log.Before = datatypes.JSON("{}")
	if entry.Before != nil {
		data, err := json.Marshal(entry.Before)
		if err != nil {
			return fmt.Errorf("marshal audit snapshot: %w", err)
		}
		log.Before = datatypes.JSON(data)
	}
	return r.repo.Create(ctx, log)
}

// AuditLogQuery 审计日志查询条件
type AuditLogQuery struct {
	UserID        *int64 `form:"user_id"`
	OperationType string `form:"operation_type"`
	EntityTable   string `form:"entity_table"`
	EntityID      *int64 `form:"entity_id"`
	Page          int    `form:"page"`
	PageSize      int    `form:"page_size"`
}

// ListAuditLogs 分页查询审计日志，按时间倒序
func (r *AuditRecorder) ListAuditLogs(ctx context.Context, q *AuditLogQuery) ([]*models.AuditLog, *utils.Pagination, error) {
	if q == nil {
		q = &AuditLogQuery{}
	}
	page := &utils.Pagination{Page: q.Page, PageSize: q.PageSize}
	page.Normalize()

	logs, total, err := r.repo.List(ctx, repository.AuditLogFilter{
		UserID:        q.UserID,
		OperationType: q.OperationType,
		EntityTable:   q.EntityTable,
		EntityID:      q.EntityID,
		Offset:        page.GetOffset(),
		Limit:         page.PageSize,
	})
	if err != nil {
		return nil, nil, errors.ErrDatabaseError.WithError(err)
	}
	page.Total = total
	return logs, page, nil
}
