package models

import (
	"time"
)

// StaffUser 酒店员工账号
type StaffUser struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string     `gorm:"type:varchar(50);uniqueIndex;not null" json:"username"`
	PasswordHash string     `gorm:"type:varchar(255);not null" json:"-"`
	FullName     string     `gorm:"type:varchar(50);not null" json:"full_name"`
	Role         string     `gorm:"type:varchar(20);not null;default:'receptionist'" json:"role"`
	IsActive     bool       `gorm:"not null;default:true" json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	LastLoginIP  *string    `gorm:"type:varchar(45)" json:"last_login_ip,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 表名
func (StaffUser) TableName() string {
	return "staff_users"
}

// 员工角色
const (
	StaffRoleAdmin        = "admin"        // 管理员
	StaffRoleReceptionist = "receptionist" // 前台
)

// IsValidStaffRole 角色是否有效
func IsValidStaffRole(role string) bool {
	return role == StaffRoleAdmin || role == StaffRoleReceptionist
}
