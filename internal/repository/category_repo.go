// Package repository 提供数据访问层
package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dumeirei/hotel-reservation-backend/internal/models"
)

// CategoryRepository 房型仓储
type CategoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository 创建房型仓储
func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// WithTx 返回绑定事务的仓储
func (r *CategoryRepository) WithTx(tx *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: tx}
}

// Create 创建房型
func (r *CategoryRepository) Create(ctx context.Context, category *models.RoomCategory) error {
	return r.db.WithContext(ctx).Create(category).Error
}

// GetByID 根据 ID 获取房型
func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*models.RoomCategory, error) {
	var category models.RoomCategory
	err := r.db.WithContext(ctx).First(&category, id).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// GetByIDForUpdate 获取房型并加行锁，用于串行化同一房型的价格规则写入
func (r *CategoryRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.RoomCategory, error) {
	var category models.RoomCategory
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&category, id).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// ExistsByName 名称是否已存在
func (r *CategoryRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.RoomCategory{}).Where("name = ?", name).Count(&count).Error
	return count > 0, err
}

// ExistsByNameExcept 除指定房型外名称是否已存在
func (r *CategoryRepository) ExistsByNameExcept(ctx context.Context, name string, id int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.RoomCategory{}).
		Where("name = ? AND id <> ?", name, id).
		Count(&count).Error
	return count > 0, err
}

// List 获取房型列表
func (r *CategoryRepository) List(ctx context.Context, activeOnly bool) ([]*models.RoomCategory, error) {
	var categories []*models.RoomCategory
	query := r.db.WithContext(ctx).Model(&models.RoomCategory{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	err := query.Order("base_price ASC, id ASC").Find(&categories).Error
	return categories, err
}

// UpdateFields 更新指定字段
func (r *CategoryRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.RoomCategory{}).Where("id = ?", id).Updates(fields).Error
}
