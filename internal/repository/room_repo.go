// Package repository 提供数据访问层
package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dumeirei/hotel-reservation-backend/internal/models"
)

// RoomRepository 房间仓储
type RoomRepository struct {
	db *gorm.DB
}

// NewRoomRepository 创建房间仓储
func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// WithTx 返回绑定事务的仓储
func (r *RoomRepository) WithTx(tx *gorm.DB) *RoomRepository {
	return &RoomRepository{db: tx}
}

// RoomFilter 房间查询条件
type RoomFilter struct {
	Status     *models.HousekeepingStatus
	CategoryID *int64
	Floor      *int
	ActiveOnly bool
}

// Create 创建房间
func (r *RoomRepository) Create(ctx context.Context, room *models.Room) error {
	return r.db.WithContext(ctx).Create(room).Error
}

// GetByID 根据 ID 获取房间（含房型）
func (r *RoomRepository) GetByID(ctx context.Context, id int64) (*models.Room, error) {
	var room models.Room
	err := r.db.WithContext(ctx).Preload("Category").First(&room, id).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// GetByIDForUpdate 获取房间并加行锁
// 同一房间的预订写入都先拿这把锁，冲突检查与写入因此串行
func (r *RoomRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Room, error) {
	var room models.Room
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&room, id).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// GetByNumber 根据房间号获取房间
func (r *RoomRepository) GetByNumber(ctx context.Context, roomNumber string) (*models.Room, error) {
	var room models.Room
	err := r.db.WithContext(ctx).Preload("Category").Where("room_number = ?", roomNumber).First(&room).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// ExistsByNumber 房间号是否已存在
func (r *RoomRepository) ExistsByNumber(ctx context.Context, roomNumber string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Room{}).Where("room_number = ?", roomNumber).Count(&count).Error
	return count > 0, err
}

// List 获取房间列表
func (r *RoomRepository) List(ctx context.Context, filter RoomFilter) ([]*models.Room, error) {
	var rooms []*models.Room
	query := r.db.WithContext(ctx).Model(&models.Room{})

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.Floor != nil {
		query = query.Where("floor = ?", *filter.Floor)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	err := query.Preload("Category").Order("room_number ASC").Find(&rooms).Error
	return rooms, err
}

// ListAvailable 查询在 [checkIn, checkOut) 内无有效预订、状态为 Clean 的房间
func (r *RoomRepository) ListAvailable(ctx context.Context, checkIn, checkOut time.Time, categoryID *int64) ([]*models.Room, error) {
	var rooms []*models.Room

	busy := r.db.Model(&models.Reservation{}).
		Select("room_id").
		Where("status IN ?", models.ActiveReservationStatuses).
		Where("check_in_date < ? AND check_out_date > ?", checkOut, checkIn)

	query := r.db.WithContext(ctx).Model(&models.Room{}).
		Joins("JOIN room_categories ON room_categories.id = rooms.category_id").
		Where("rooms.is_active = ? AND room_categories.is_active = ?", true, true).
		Where("rooms.status = ?", models.RoomStatusClean).
		Where("rooms.id NOT IN (?)", busy)
	if categoryID != nil {
		query = query.Where("rooms.category_id = ?", *categoryID)
	}

	err := query.Preload("Category").Order("rooms.room_number ASC").Find(&rooms).Error
	return rooms, err
}

// UpdateStatus 更新房间清洁状态
func (r *RoomRepository) UpdateStatus(ctx context.Context, id int64, status models.HousekeepingStatus) error {
	result := r.db.WithContext(ctx).Model(&models.Room{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Deactivate 软删除房间
func (r *RoomRepository) Deactivate(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Model(&models.Room{}).Where("id = ?", id).Update("is_active", false).Error
}

// StatusCount 状态计数
type StatusCount struct {
	Status models.HousekeepingStatus
	Count  int64
}

// CountByStatus 按状态统计有效房间数
func (r *RoomRepository) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	var counts []StatusCount
	err := r.db.WithContext(ctx).Model(&models.Room{}).
		Select("status, COUNT(*) AS count").
		Where("is_active = ?", true).
		Group("status").
		Scan(&counts).Error
	return counts, err
}
