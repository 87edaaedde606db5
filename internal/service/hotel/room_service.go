package hotel

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/hotel-reservation-backend/internal/common/database"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/errors"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/metrics"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/utils"
	"github.com/dumeirei/hotel-reservation-backend/internal/models"
	"github.com/dumeirei/hotel-reservation-backend/internal/repository"
)

// RoomService 房间与房型管理
type RoomService struct {
	db              *gorm.DB
	roomRepo        *repository.RoomRepository
	categoryRepo    *repository.CategoryRepository
	reservationRepo *repository.ReservationRepository
	paymentRepo     *repository.PaymentRepository
	effects         *SideEffects
	metrics         *metrics.Metrics
	loc             *time.Location
	clock           Clock
}

// NewRoomService 创建房间服务
func NewRoomService(
	db *gorm.DB,
	roomRepo *repository.RoomRepository,
	categoryRepo *repository.CategoryRepository,
	reservationRepo *repository.ReservationRepository,
	paymentRepo *repository.PaymentRepository,
	effects *SideEffects,
	m *metrics.Metrics,
	loc *time.Location,
) *RoomService {
	if loc == nil {
		loc = time.UTC
	}
	return &RoomService{
		db:              db,
		roomRepo:        roomRepo,
		categoryRepo:    categoryRepo,
		reservationRepo: reservationRepo,
		paymentRepo:     paymentRepo,
		effects:         effects,
		metrics:         m,
		loc:             loc,
		clock:           time.Now,
	}
}

// WithClock 替换时钟
func (s *RoomService) WithClock(clock Clock) *RoomService {
	if clock != nil {
		s.clock = clock
	}
	return s
}

// RoomListFilter 房间列表过滤条件
type RoomListFilter struct {
	Status     string
	CategoryID *int64
	Floor      *int
}

// AddRoomRequest 新增房间请求
type AddRoomRequest struct {
	RoomNumber string `json:"room_number" binding:"required"`
	CategoryID int64  `json:"category_id" binding:"required"`
	Floor      int    `json:"floor"`
}

// CreateCategoryRequest 新增房型请求
type CreateCategoryRequest struct {
	Name         string  `json:"name" binding:"required"`
	BasePrice    float64 `json:"base_price" binding:"required"`
	MaxOccupancy int     `json:"max_occupancy" binding:"required"`
	Description  string  `json:"description"`
	Amenities    string  `json:"amenities"`
}

// UpdateCategoryRequest 编辑房型，nil 字段保持不变
type UpdateCategoryRequest struct {
	Name         *string  `json:"name"`
	BasePrice    *float64 `json:"base_price"`
	MaxOccupancy *int     `json:"max_occupancy"`
	Description  *string  `json:"description"`
	Amenities    *string  `json:"amenities"`
}

// RoomStatistics 房态统计
type RoomStatistics struct {
	TotalRooms    int64            `json:"total_rooms"`
	ByStatus      map[string]int64 `json:"by_status"`
	OccupancyRate float64          `json:"occupancy_rate"`
	TodayRevenue  float64          `json:"today_revenue"`
}

// ListRooms 获取有效房间列表
func (s *RoomService) ListRooms(ctx context.Context, filter RoomListFilter) ([]*RoomInfo, error) {
	f := repository.RoomFilter{
		CategoryID: filter.CategoryID,
		Floor:      filter.Floor,
		ActiveOnly: true,
	}
	if filter.Status != "" {
		st, err := models.ParseHousekeepingStatus(filter.Status)
		if err != nil {
			return nil, errors.ErrRoomStatusInvalid.WithMessagef("无效的房间状态：%s", filter.Status)
		}
		f.Status = &st
	}

	rooms, err := s.roomRepo.List(ctx, f)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return toRoomInfos(rooms), nil
}

// AddRoom 新增房间，初始状态为 Clean
func (s *RoomService) AddRoom(ctx context.Context, req *AddRoomRequest, actingUserID int64) (*RoomInfo, error) {
	number := strings.TrimSpace(req.RoomNumber)
	if number == "" {
		return nil, errors.ErrInvalidParams.WithMessage("房间号不能为空")
	}
	if req.Floor <= 0 {
		req.Floor = 1
	}

	category, err := s.categoryRepo.GetByID(ctx, req.CategoryID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrCategoryNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if !category.IsActive {
		return nil, errors.ErrCategoryNotFound.WithMessage("房型已停用")
	}

	exists, err := s.roomRepo.ExistsByNumber(ctx, number)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if exists {
		return nil, errors.ErrRoomNumberExists
	}

	room := &models.Room{
		RoomNumber: number,
		CategoryID: category.ID,
		Floor:      req.Floor,
		Status:     models.RoomStatusClean,
		IsActive:   true,
	}
	if err := s.roomRepo.Create(ctx, room); err != nil {
		if database.IsDuplicateKey(err) {
			return nil, errors.ErrRoomNumberExists
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	room.Category = category

	s.effects.Record(ctx, AuditEntry{
		UserID:        actingUserID,
		OperationType: models.AuditRoomAdd,
		EntityTable:   room.TableName(),
		EntityID:      room.ID,
		Description:   fmt.Sprintf("新增房间 %s (%s)", room.RoomNumber, category.Name),
	})
	return toRoomInfo(room), nil
}

// UpdateRoomStatus 更新房间清洁状态
func (s *RoomService) UpdateRoomStatus(ctx context.Context, roomID int64, status string, actingUserID int64) (*RoomInfo, error) {
	st, err := models.ParseHousekeepingStatus(status)
	if err != nil {
		return nil, errors.ErrRoomStatusInvalid.WithMessagef("无效的房间状态：%s", status)
	}

	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrRoomNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	before := *room

	if err := s.roomRepo.UpdateStatus(ctx, roomID, st); err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrRoomNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	room.Status = st

	s.effects.Record(ctx, AuditEntry{
		UserID:        actingUserID,
		OperationType: models.AuditStatusUpdate,
		EntityTable:   room.TableName(),
		EntityID:      room.ID,
		Before:        &before,
		Description:   fmt.Sprintf("房间 %s 状态 %s -> %s", room.RoomNumber, before.Status, st),
	})
	s.effects.Publish(ctx, RoomEvent{
		Type:       RoomEventStatusChanged,
		RoomID:     room.ID,
		RoomNumber: room.RoomNumber,
		Status:     string(st),
	})
	return toRoomInfo(room), nil
}

// UpdateRoomStatusByNumber 按房间号更新清洁状态，供客房终端上报使用
func (s *RoomService) UpdateRoomStatusByNumber(ctx context.Context, roomNumber, status string, actingUserID int64) (*RoomInfo, error) {
	room, err := s.roomRepo.GetByNumber(ctx, strings.TrimSpace(roomNumber))
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrRoomNotFound.WithMessagef("房间 %s 不存在", roomNumber)
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return s.UpdateRoomStatus(ctx, room.ID, status, actingUserID)
}

// DeactivateRoom 停用房间，存在有效预订时拒绝
func (s *RoomService) DeactivateRoom(ctx context.Context, roomID int64, actingUserID int64) error {
	var room *models.Room
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		room, err = s.roomRepo.WithTx(tx).GetByIDForUpdate(ctx, roomID)
		if err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.ErrRoomNotFound
			}
			return err
		}
		if !room.IsActive {
			return errors.ErrRoomNotFound.WithMessage("房间已停用")
		}

		count, err := s.reservationRepo.WithTx(tx).CountActiveByRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if count > 0 {
			return errors.ErrRoomHasReservations.WithMessagef("房间 %s 尚有 %d 个有效预订", room.RoomNumber, count)
		}
		return s.roomRepo.WithTx(tx).Deactivate(ctx, roomID)
	})
	if err != nil {
		if errors.IsAppError(err) {
			return err
		}
		return errors.ErrDatabaseError.WithError(err)
	}

	s.effects.Record(ctx, AuditEntry{
		UserID:        actingUserID,
		OperationType: models.AuditRoomDeactivate,
		EntityTable:   room.TableName(),
		EntityID:      room.ID,
		Before:        room,
		Description:   fmt.Sprintf("停用房间 %s", room.RoomNumber),
	})
	return nil
}

// RoomStatistics 房态统计与今日收款
func (s *RoomService) RoomStatistics(ctx context.Context) (*RoomStatistics, error) {
	counts, err := s.roomRepo.CountByStatus(ctx)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	stats := &RoomStatistics{ByStatus: make(map[string]int64)}
	for _, st := range []models.HousekeepingStatus{models.RoomStatusClean, models.RoomStatusDirty, models.RoomStatusOccupied, models.RoomStatusMaintenance} {
		stats.ByStatus[string(st)] = 0
	}
	for _, c := range counts {
		stats.ByStatus[string(c.Status)] = c.Count
		stats.TotalRooms += c.Count
	}
	if stats.TotalRooms > 0 {
		occupied := float64(stats.ByStatus[string(models.RoomStatusOccupied)])
		stats.OccupancyRate = utils.RoundMoney(occupied / float64(stats.TotalRooms) * 100)
	}
	for status, count := range stats.ByStatus {
		s.metrics.SetRoomsByStatus(status, float64(count))
	}

	// 今日按酒店时区计算
	now := s.clock()
	y, m, d := now.In(s.loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, s.loc)
	revenue, err := s.paymentRepo.SumBetween(ctx, start.UTC(), start.AddDate(0, 0, 1).UTC())
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	stats.TodayRevenue = utils.RoundMoney(revenue)

	return stats, nil
}

// CreateCategory 新增房型
func (s *RoomService) CreateCategory(ctx context.Context, req *CreateCategoryRequest, actingUserID int64) (*CategoryInfo, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errors.ErrCategoryInvalid.WithMessage("房型名称不能为空")
	}
	if req.BasePrice <= 0 {
		return nil, errors.ErrCategoryInvalid.WithMessage("基础价必须大于 0")
	}
	if req.MaxOccupancy < 1 {
		return nil, errors.ErrCategoryInvalid.WithMessage("最大入住人数至少为 1")
	}

	exists, err := s.categoryRepo.ExistsByName(ctx, name)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if exists {
		return nil, errors.ErrCategoryExists
	}

	category := &models.RoomCategory{
		Name:         name,
		BasePrice:    utils.RoundMoney(req.BasePrice),
		MaxOccupancy: req.MaxOccupancy,
		Description:  utils.NilIfEmpty(req.Description),
		Amenities:    utils.NilIfEmpty(req.Amenities),
		IsActive:     true,
	}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		if database.IsDuplicateKey(err) {
			return nil, errors.ErrCategoryExists
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	s.effects.Record(ctx, AuditEntry{
		UserID:        actingUserID,
		OperationType: models.AuditCreate,
		EntityTable:   category.TableName(),
		EntityID:      category.ID,
		Description:   fmt.Sprintf("新增房型 %s，基础价 %.2f", category.Name, category.BasePrice),
	})
	return toCategoryInfo(category), nil
}

// UpdateCategory 编辑房型；已有预订的总价不受基础价变化影响
func (s *RoomService) UpdateCategory(ctx context.Context, categoryID int64, req *UpdateCategoryRequest, actingUserID int64) (*CategoryInfo, error) {
	if req == nil || (req.Name == nil && req.BasePrice == nil && req.MaxOccupancy == nil && req.Description == nil && req.Amenities == nil) {
		return nil, errors.ErrCategoryInvalid.WithMessage("没有需要修改的字段")
	}

	category, err := s.categoryRepo.GetByID(ctx, categoryID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrCategoryNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	before := *category

	fields := make(map[string]interface{})
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, errors.ErrCategoryInvalid.WithMessage("房型名称不能为空")
		}
		exists, err := s.categoryRepo.ExistsByNameExcept(ctx, name, categoryID)
		if err != nil {
			return nil, errors.ErrDatabaseError.WithError(err)
		}
		if exists {
			return nil, errors.ErrCategoryExists
		}
		fields["name"] = name
		category.Name = name
	}
	if req.BasePrice != nil {
		if *req.BasePrice <= 0 {
			return nil, errors.ErrCategoryInvalid.WithMessage("基础价必须大于 0")
		}
		category.BasePrice = utils.RoundMoney(*req.BasePrice)
		fields["base_price"] = category.BasePrice
	}
	if req.MaxOccupancy != nil {
		if *req.MaxOccupancy < 1 {
			return nil, errors.ErrCategoryInvalid.WithMessage("最大入住人数至少为 1")
		}
		category.MaxOccupancy = *req.MaxOccupancy
		fields["max_occupancy"] = category.MaxOccupancy
	}
	if req.Description != nil {
		category.Description = utils.NilIfEmpty(*req.Description)
		fields["description"] = category.Description
	}
	if req.Amenities != nil {
		category.Amenities = utils.NilIfEmpty(*req.Amenities)
		fields["amenities"] = category.Amenities
	}

	if err := s.categoryRepo.UpdateFields(ctx, categoryID, fields); err != nil {
		if database.IsDuplicateKey(err) {
			return nil, errors.ErrCategoryExists
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	s.effects.Record(ctx, AuditEntry{
		UserID:        actingUserID,
		OperationType: models.AuditCategoryUpdate,
		EntityTable:   category.TableName(),
		EntityID:      category.ID,
		Before:        &before,
		Description:   fmt.Sprintf("编辑房型 %s，基础价 %.2f，最多 %d 人", category.Name, category.BasePrice, category.MaxOccupancy),
	})
	return toCategoryInfo(category), nil
}

// ListCategories 获取房型列表
func (s *RoomService) ListCategories(ctx context.Context, activeOnly bool) ([]*CategoryInfo, error) {
	categories, err := s.categoryRepo.List(ctx, activeOnly)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	result := make([]*CategoryInfo, 0, len(categories))
	for _, c := range categories {
		result = append(result, toCategoryInfo(c))
	}
	return result, nil
}
