package hotel

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/hotel-reservation-backend/internal/common/errors"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/utils"
	"github.com/dumeirei/hotel-reservation-backend/internal/models"
	"github.com/dumeirei/hotel-reservation-backend/internal/repository"
)

// AvailabilityChecker 房间可用性检查
type AvailabilityChecker struct {
	reservationRepo *repository.ReservationRepository
	roomRepo        *repository.RoomRepository
}

// NewAvailabilityChecker 创建可用性检查器
func NewAvailabilityChecker(reservationRepo *repository.ReservationRepository, roomRepo *repository.RoomRepository) *AvailabilityChecker {
	return &AvailabilityChecker{
		reservationRepo: reservationRepo,
		roomRepo:        roomRepo,
	}
}

// WithTx 返回绑定事务的检查器
func (a *AvailabilityChecker) WithTx(tx *gorm.DB) *AvailabilityChecker {
	return &AvailabilityChecker{
		reservationRepo: a.reservationRepo.WithTx(tx),
		roomRepo:        a.roomRepo.WithTx(tx),
	}
}

// Conflicts 返回与 [checkIn, checkOut) 重叠的有效预订
func (a *AvailabilityChecker) Conflicts(ctx context.Context, roomID int64, checkIn, checkOut time.Time, excludingReservationID *int64) ([]*models.Reservation, error) {
	if !checkOut.After(checkIn) {
		return nil, errors.ErrInvalidDateRange
	}
	conflicts, err := a.reservationRepo.FindConflicts(ctx, roomID, utils.NormalizeDate(checkIn), utils.NormalizeDate(checkOut), excludingReservationID)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return conflicts, nil
}

// IsAvailable 房间在 [checkIn, checkOut) 内是否没有有效预订
func (a *AvailabilityChecker) IsAvailable(ctx context.Context, roomID int64, checkIn, checkOut time.Time, excludingReservationID *int64) (bool, error) {
	conflicts, err := a.Conflicts(ctx, roomID, checkIn, checkOut, excludingReservationID)
	if err != nil {
		return false, err
	}
	return len(conflicts) == 0, nil
}

// ListAvailableRooms 查询可预订房间，可按房型过滤
func (a *AvailabilityChecker) ListAvailableRooms(ctx context.Context, checkIn, checkOut time.Time, categoryID *int64) ([]*models.Room, error) {
	if checkIn.IsZero() || checkOut.IsZero() {
		return nil, errors.ErrInvalidDate
	}
	checkIn, checkOut = utils.NormalizeDate(checkIn), utils.NormalizeDate(checkOut)
	if !checkOut.After(checkIn) {
		return nil, errors.ErrInvalidDateRange
	}

	rooms, err := a.roomRepo.ListAvailable(ctx, checkIn, checkOut, categoryID)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return rooms, nil
}
