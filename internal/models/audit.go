package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog 操作审计日志
type AuditLog struct {
	ID            int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        int64          `gorm:"index;not null" json:"user_id"`
	OperationType string         `gorm:"type:varchar(30);index;not null" json:"operation_type"`
	EntityTable   string         `gorm:"type:varchar(50);not null" json:"entity_table"`
	EntityID      *int64         `gorm:"index" json:"entity_id,omitempty"`
	Before        datatypes.JSON `gorm:"not null;default:'{}'" json:"before,omitempty"`
	Description   string         `gorm:"type:text" json:"description"`
	IP            *string        `gorm:"type:varchar(45)" json:"ip,omitempty"`
	CreatedAt     time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName 表名
func (AuditLog) TableName() string {
	return "audit_logs"
}

// 审计操作类型
const (
	AuditCreate         = "CREATE"
	AuditModify         = "MODIFY"
	AuditCancel         = "CANCEL"
	AuditCheckIn        = "CHECK_IN"
	AuditCheckOut       = "CHECK_OUT"
	AuditStatusUpdate   = "STATUS_UPDATE"
	AuditRuleAdd        = "RULE_ADD"
	AuditRuleDeactivate = "RULE_DEACTIVATE"
	AuditRoomAdd        = "ROOM_ADD"
	AuditRoomDeactivate = "ROOM_DEACTIVATE"
	AuditCategoryUpdate = "CATEGORY_UPDATE"
	AuditLogin          = "LOGIN"
	AuditLogout         = "LOGOUT"
)

// AllModels 返回需要迁移的全部模型
func AllModels() []interface{} {
	return []interface{}{
		&RoomCategory{},
		&Room{},
		&SeasonalRateRule{},
		&Guest{},
		&Reservation{},
		&Payment{},
		&StaffUser{},
		&AuditLog{},
	}
}
