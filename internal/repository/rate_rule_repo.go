// Package repository 提供数据访问层
package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/hotel-reservation-backend/internal/models"
)

// RateRuleRepository 季节性价格规则仓储
type RateRuleRepository struct {
	db *gorm.DB
}

// NewRateRuleRepository 创建价格规则仓储
func NewRateRuleRepository(db *gorm.DB) *RateRuleRepository {
	return &RateRuleRepository{db: db}
}

// WithTx 返回绑定事务的仓储
func (r *RateRuleRepository) WithTx(tx *gorm.DB) *RateRuleRepository {
	return &RateRuleRepository{db: tx}
}

// Create 创建价格规则
func (r *RateRuleRepository) Create(ctx context.Context, rule *models.SeasonalRateRule) error {
	return r.db.WithContext(ctx).Create(rule).Error
}

// GetByID 根据 ID 获取价格规则
func (r *RateRuleRepository) GetByID(ctx context.Context, id int64) (*models.SeasonalRateRule, error) {
	var rule models.SeasonalRateRule
	err := r.db.WithContext(ctx).First(&rule, id).Error
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// FindLatestCovering 返回覆盖指定日期的最新有效规则，没有时返回 nil
func (r *RateRuleRepository) FindLatestCovering(ctx context.Context, categoryID int64, date time.Time) (*models.SeasonalRateRule, error) {
	var rule models.SeasonalRateRule
	err := r.db.WithContext(ctx).
		Where("category_id = ? AND is_active = ?", categoryID, true).
		Where("start_date <= ? AND end_date >= ?", date, date).
		Order("id DESC").
		Take(&rule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// ListActiveInRange 返回与 [start, end] 有交集的有效规则，按 id 降序
func (r *RateRuleRepository) ListActiveInRange(ctx context.Context, categoryID int64, start, end time.Time) ([]*models.SeasonalRateRule, error) {
	var rules []*models.SeasonalRateRule
	err := r.db.WithContext(ctx).
		Where("category_id = ? AND is_active = ?", categoryID, true).
		Where("start_date <= ? AND end_date >= ?", end, start).
		Order("id DESC").
		Find(&rules).Error
	return rules, err
}

// List 获取价格规则列表
func (r *RateRuleRepository) List(ctx context.Context, categoryID *int64, activeOnly bool) ([]*models.SeasonalRateRule, error) {
	var rules []*models.SeasonalRateRule
	query := r.db.WithContext(ctx).Model(&models.SeasonalRateRule{})
	if categoryID != nil {
		query = query.Where("category_id = ?", *categoryID)
	}
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	err := query.Preload("Category").Order("category_id ASC, start_date ASC").Find(&rules).Error
	return rules, err
}

// Deactivate 软删除规则，返回受影响行数
func (r *RateRuleRepository) Deactivate(ctx context.Context, id int64) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.SeasonalRateRule{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)
	return result.RowsAffected, result.Error
}
