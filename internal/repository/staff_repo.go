// Package repository 提供数据访问层
package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/hotel-reservation-backend/internal/models"
)

// StaffRepository 员工仓储
type StaffRepository struct {
	db *gorm.DB
}

// NewStaffRepository 创建员工仓储
func NewStaffRepository(db *gorm.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// Create 创建员工
func (r *StaffRepository) Create(ctx context.Context, staff *models.StaffUser) error {
	return r.db.WithContext(ctx).Create(staff).Error
}

// GetByID 根据 ID 获取员工
func (r *StaffRepository) GetByID(ctx context.Context, id int64) (*models.StaffUser, error) {
	var staff models.StaffUser
	err := r.db.WithContext(ctx).First(&staff, id).Error
	if err != nil {
		return nil, err
	}
	return &staff, nil
}

// GetByUsername 根据用户名获取员工
func (r *StaffRepository) GetByUsername(ctx context.Context, username string) (*models.StaffUser, error) {
	var staff models.StaffUser
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&staff).Error
	if err != nil {
		return nil, err
	}
	return &staff, nil
}

// ExistsByUsername 用户名是否已存在
func (r *StaffRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.StaffUser{}).Where("username = ?", username).Count(&count).Error
	return count > 0, err
}

// UpdateLoginInfo 更新登录信息
func (r *StaffRepository) UpdateLoginInfo(ctx context.Context, id int64, ip string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&models.StaffUser{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_login_at": now,
			"last_login_ip": ip,
		}).Error
}

// UpdatePassword 更新密码
func (r *StaffRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	result := r.db.WithContext(ctx).Model(&models.StaffUser{}).
		Where("id = ?", id).
		Update("password_hash", passwordHash)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetActive 启用或停用员工
func (r *StaffRepository) SetActive(ctx context.Context, id int64, active bool) error {
	result := r.db.WithContext(ctx).Model(&models.StaffUser{}).
		Where("id = ?", id).
		Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List 获取员工列表
func (r *StaffRepository) List(ctx context.Context) ([]*models.StaffUser, error) {
	var staff []*models.StaffUser
	err := r.db.WithContext(ctx).Order("id ASC").Find(&staff).Error
	return staff, err
}
