// Package repository 提供数据访问层
package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/dumeirei/hotel-reservation-backend/internal/models"
)

// GuestRepository 客人仓储
type GuestRepository struct {
	db *gorm.DB
}

// NewGuestRepository 创建客人仓储
func NewGuestRepository(db *gorm.DB) *GuestRepository {
	return &GuestRepository{db: db}
}

// Create 创建客人
func (r *GuestRepository) Create(ctx context.Context, guest *models.Guest) error {
	return r.db.WithContext(ctx).Create(guest).Error
}

// GetByID 根据 ID 获取客人
func (r *GuestRepository) GetByID(ctx context.Context, id int64) (*models.Guest, error) {
	var guest models.Guest
	err := r.db.WithContext(ctx).First(&guest, id).Error
	if err != nil {
		return nil, err
	}
	return &guest, nil
}

// GetByPhone 根据手机号获取客人
func (r *GuestRepository) GetByPhone(ctx context.Context, phone string) (*models.Guest, error) {
	var guest models.Guest
	err := r.db.WithContext(ctx).Where("phone = ?", phone).First(&guest).Error
	if err != nil {
		return nil, err
	}
	return &guest, nil
}

// UpdateFields 更新指定字段
func (r *GuestRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.Guest{}).Where("id = ?", id).Updates(fields).Error
}
