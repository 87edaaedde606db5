// Package repository 提供数据访问层
package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dumeirei/hotel-reservation-backend/internal/models"
)

// ReservationRepository 预订仓储
type ReservationRepository struct {
	db *gorm.DB
}

// NewReservationRepository 创建预订仓储
func NewReservationRepository(db *gorm.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// WithTx 返回绑定事务的仓储
func (r *ReservationRepository) WithTx(tx *gorm.DB) *ReservationRepository {
	return &ReservationRepository{db: tx}
}

// ReservationFilter 预订查询条件
type ReservationFilter struct {
	GuestName   string
	Phone       string
	RoomNumber  string
	Status      *models.ReservationStatus
	CheckInDate *time.Time
	Offset      int
	Limit       int
}

// Create 创建预订
func (r *ReservationRepository) Create(ctx context.Context, reservation *models.Reservation) error {
	return r.db.WithContext(ctx).Create(reservation).Error
}

// GetByID 根据 ID 获取预订
func (r *ReservationRepository) GetByID(ctx context.Context, id int64) (*models.Reservation, error) {
	var reservation models.Reservation
	err := r.db.WithContext(ctx).First(&reservation, id).Error
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

// GetByIDForUpdate 获取预订并加行锁
func (r *ReservationRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Reservation, error) {
	var reservation models.Reservation
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&reservation, id).Error
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

// GetByIDWithDetails 根据 ID 获取预订（含房间、房型、客人）
func (r *ReservationRepository) GetByIDWithDetails(ctx context.Context, id int64) (*models.Reservation, error) {
	var reservation models.Reservation
	err := r.db.WithContext(ctx).
		Preload("Room").
		Preload("Room.Category").
		Preload("Guest").
		First(&reservation, id).Error
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

// FindConflicts 查询与 [checkIn, checkOut) 重叠的有效预订
func (r *ReservationRepository) FindConflicts(ctx context.Context, roomID int64, checkIn, checkOut time.Time, excludeID *int64) ([]*models.Reservation, error) {
	var reservations []*models.Reservation
	query := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Where("status IN ?", models.ActiveReservationStatuses).
		Where("check_in_date < ? AND check_out_date > ?", checkOut, checkIn)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	err := query.Order("check_in_date ASC").Find(&reservations).Error
	return reservations, err
}

// TransitionStatus 条件更新状态，仅当当前状态为 from 时生效，返回受影响行数
func (r *ReservationRepository) TransitionStatus(ctx context.Context, id int64, from, to models.ReservationStatus, fields map[string]interface{}) (int64, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range fields {
		updates[k] = v
	}
	result := r.db.WithContext(ctx).Model(&models.Reservation{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return result.RowsAffected, result.Error
}

// StayRange 占用房间的入住区间
type StayRange struct {
	RoomID       int64
	CheckInDate  time.Time
	CheckOutDate time.Time
}

// ListStaysBetween 与 [start, end) 重叠且未取消的入住区间
func (r *ReservationRepository) ListStaysBetween(ctx context.Context, start, end time.Time) ([]StayRange, error) {
	var stays []StayRange
	err := r.db.WithContext(ctx).Model(&models.Reservation{}).
		Select("room_id, check_in_date, check_out_date").
		Where("status <> ?", models.ReservationStatusCancelled).
		Where("check_in_date < ? AND check_out_date > ?", end, start).
		Scan(&stays).Error
	return stays, err
}

// CategoryRevenue 房型收入汇总
type CategoryRevenue struct {
	CategoryID   int64
	CategoryName string
	Reservations int64
	Revenue      float64
}

// RevenueByCategory 按房型汇总退房日期落在 [start, end] 内的已退房预订
func (r *ReservationRepository) RevenueByCategory(ctx context.Context, start, end time.Time) ([]CategoryRevenue, error) {
	var rows []CategoryRevenue
	err := r.db.WithContext(ctx).Model(&models.Reservation{}).
		Select("room_categories.id AS category_id, room_categories.name AS category_name, "+
			"COUNT(*) AS reservations, COALESCE(SUM(reservations.total_price), 0) AS revenue").
		Joins("JOIN rooms ON rooms.id = reservations.room_id").
		Joins("JOIN room_categories ON room_categories.id = rooms.category_id").
		Where("reservations.status = ?", models.ReservationStatusCheckedOut).
		Where("reservations.check_out_date >= ? AND reservations.check_out_date <= ?", start, end).
		Group("room_categories.id, room_categories.name").
		Order("revenue DESC, room_categories.id ASC").
		Scan(&rows).Error
	return rows, err
}

// UpdateFields 更新指定字段
func (r *ReservationRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.Reservation{}).Where("id = ?", id).Updates(fields).Error
}

// Search 按条件检索预订
func (r *ReservationRepository) Search(ctx context.Context, filter ReservationFilter) ([]*models.Reservation, int64, error) {
	var reservations []*models.Reservation
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Reservation{}).
		Joins("JOIN guests ON guests.id = reservations.guest_id").
		Joins("JOIN rooms ON rooms.id = reservations.room_id")

	if filter.GuestName != "" {
		query = query.Where("guests.name LIKE ?", "%"+filter.GuestName+"%")
	}
	if filter.Phone != "" {
		query = query.Where("guests.phone LIKE ?", "%"+filter.Phone+"%")
	}
	if filter.RoomNumber != "" {
		query = query.Where("rooms.room_number = ?", filter.RoomNumber)
	}
	if filter.Status != nil {
		query = query.Where("reservations.status = ?", *filter.Status)
	}
	if filter.CheckInDate != nil {
		query = query.Where("reservations.check_in_date = ?", *filter.CheckInDate)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	err := query.
		Select("reservations.*").
		Preload("Room").
		Preload("Room.Category").
		Preload("Guest").
		Order("reservations.check_in_date DESC, reservations.id DESC").
		Offset(filter.Offset).Limit(limit).
		Find(&reservations).Error
	if err != nil {
		return nil, 0, err
	}
	return reservations, total, nil
}

// ListArrivals 获取入住日期在 [from, to] 内的已确认预订
func (r *ReservationRepository) ListArrivals(ctx context.Context, from, to time.Time) ([]*models.Reservation, error) {
	var reservations []*models.Reservation
	err := r.db.WithContext(ctx).
		Where("status = ?", models.ReservationStatusConfirmed).
		Where("check_in_date >= ? AND check_in_date <= ?", from, to).
		Preload("Room").
		Preload("Room.Category").
		Preload("Guest").
		Order("check_in_date ASC, id ASC").
		Find(&reservations).Error
	return reservations, err
}

// ListInHouse 获取在住预订
func (r *ReservationRepository) ListInHouse(ctx context.Context) ([]*models.Reservation, error) {
	var reservations []*models.Reservation
	err := r.db.WithContext(ctx).
		Where("status = ?", models.ReservationStatusCheckedIn).
		Preload("Room").
		Preload("Room.Category").
		Preload("Guest").
		Order("check_out_date ASC, id ASC").
		Find(&reservations).Error
	return reservations, err
}

// CountActiveByRoom 统计房间的有效预订数
func (r *ReservationRepository) CountActiveByRoom(ctx context.Context, roomID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Reservation{}).
		Where("room_id = ?", roomID).
		Where("status IN ?", models.ActiveReservationStatuses).
		Count(&count).Error
	return count, err
}
