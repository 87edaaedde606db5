// Package repository 提供数据访问层
package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/hotel-reservation-backend/internal/models"
)

// PaymentRepository 付款记录仓储
type PaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository 创建付款记录仓储
func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// WithTx 返回绑定事务的仓储
func (r *PaymentRepository) WithTx(tx *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: tx}
}

// Create 创建付款记录
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

// ListByReservation 获取预订的付款记录
func (r *PaymentRepository) ListByReservation(ctx context.Context, reservationID int64) ([]*models.Payment, error) {
	var payments []*models.Payment
	err := r.db.WithContext(ctx).
		Where("reservation_id = ?", reservationID).
		Order("id ASC").
		Find(&payments).Error
	return payments, err
}

// SumBetween 统计时间段内收款总额
func (r *PaymentRepository) SumBetween(ctx context.Context, start, end time.Time) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).Model(&models.Payment{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("paid_at >= ? AND paid_at < ?", start, end).
		Scan(&total).Error
	return total, err
}
