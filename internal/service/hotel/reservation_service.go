package hotel

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/dumeirei/hotel-reservation-backend/internal/common/config"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/database"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/errors"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/metrics"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/utils"
	"github.com/dumeirei/hotel-reservation-backend/internal/models"
	"github.com/dumeirei/hotel-reservation-backend/internal/repository"
)

// ReservationService 预订生命周期管理，预订记录的唯一写入方
//
// 状态机：
//
//	Confirmed --checkIn--> CheckedIn --checkOut--> CheckedOut
//	Confirmed --cancel--> Cancelled
//
// CheckedOut 与 Cancelled 为终态。
type ReservationService struct {
	db              *gorm.DB
	reservationRepo *repository.ReservationRepository
	roomRepo        *repository.RoomRepository
	paymentRepo     *repository.PaymentRepository
	availability    *AvailabilityChecker
	pricing         *PriceCalculator
	guests          GuestResolver
	effects         *SideEffects
	metrics         *metrics.Metrics
	log             *zap.Logger

	loc          *time.Location
	earlyDays    int
	searchLimit  int
	upcomingDays int
	clock        Clock
}

// NewReservationService 创建预订服务
func NewReservationService(
	db *gorm.DB,
	reservationRepo *repository.ReservationRepository,
	roomRepo *repository.RoomRepository,
	paymentRepo *repository.PaymentRepository,
	availability *AvailabilityChecker,
	pricing *PriceCalculator,
	guests GuestResolver,
	effects *SideEffects,
	m *metrics.Metrics,
	log *zap.Logger,
	cfg *config.HotelConfig,
) *ReservationService {
	if log == nil {
		log = zap.NewNop()
	}
	s := &ReservationService{
		db:              db,
		reservationRepo: reservationRepo,
		roomRepo:        roomRepo,
		paymentRepo:     paymentRepo,
		availability:    availability,
		pricing:         pricing,
		guests:          guests,
		effects:         effects,
		metrics:         m,
		log:             log.Named("reservation"),
		loc:             time.UTC,
		earlyDays:       1,
		searchLimit:     50,
		upcomingDays:    1,
		clock:           time.Now,
	}
	if cfg != nil {
		s.loc = cfg.Location()
		if cfg.EarlyCheckInDays >= 0 {
			s.earlyDays = cfg.EarlyCheckInDays
		}
		if cfg.SearchLimit > 0 {
			s.searchLimit = cfg.SearchLimit
		}
		if cfg.UpcomingDays > 0 {
			s.upcomingDays = cfg.UpcomingDays
		}
	}
	return s
}

// WithClock 替换时钟
func (s *ReservationService) WithClock(clock Clock) *ReservationService {
	if clock != nil {
		s.clock = clock
	}
	return s
}

// today 酒店时区下的今天
func (s *ReservationService) today() time.Time {
	return utils.DateOf(s.clock(), s.loc)
}

// CreateReservationRequest 创建预订请求
type CreateReservationRequest struct {
	Guest           GuestInfo
	RoomID          int64
	CheckIn         time.Time
	CheckOut        time.Time
	Occupants       int
	SpecialRequests string
}

// ReservationPatch 修改预订，nil 字段保持不变
type ReservationPatch struct {
	CheckIn         *time.Time
	CheckOut        *time.Time
	RoomID          *int64
	Occupants       *int
	SpecialRequests *string
}

// IsEmpty 是否没有任何修改
func (p *ReservationPatch) IsEmpty() bool {
	return p == nil || (p.CheckIn == nil && p.CheckOut == nil && p.RoomID == nil && p.Occupants == nil && p.SpecialRequests == nil)
}

// SearchReservationsRequest 预订检索条件
type SearchReservationsRequest struct {
	GuestName   string
	Phone       string
	RoomNumber  string
	Status      *models.ReservationStatus
	CheckInDate *time.Time
	Page        int
	PageSize    int
}

// ==================== 查询 ====================

// SearchAvailableRooms 查询可预订房间
func (s *ReservationService) SearchAvailableRooms(ctx context.Context, checkIn, checkOut time.Time, categoryID *int64) ([]*RoomInfo, error) {
	rooms, err := s.availability.ListAvailableRooms(ctx, checkIn, checkOut, categoryID)
	if err != nil {
		return nil, err
	}
	return toRoomInfos(rooms), nil
}

// QuotePrice 报价
func (s *ReservationService) QuotePrice(ctx context.Context, categoryID int64, checkIn, checkOut time.Time) (*PriceBreakdown, error) {
	return s.pricing.PriceBreakdown(ctx, categoryID, checkIn, checkOut)
}

// GetReservation 获取预订详情（含付款记录）
func (s *ReservationService) GetReservation(ctx context.Context, id int64) (*ReservationInfo, error) {
	r, err := s.loadDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	info := toReservationInfo(r)

	payments, err := s.paymentRepo.ListByReservation(ctx, id)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	for _, p := range payments {
		info.Payments = append(info.Payments, toPaymentInfo(p))
	}
	return info, nil
}

// SearchReservations 按客人、房间、状态、入住日期检索预订
func (s *ReservationService) SearchReservations(ctx context.Context, req *SearchReservationsRequest) ([]*ReservationInfo, int64, error) {
	if req == nil {
		req = &SearchReservationsRequest{}
	}
	page := utils.Pagination{Page: req.Page, PageSize: req.PageSize}
	if page.PageSize <= 0 {
		page.PageSize = s.searchLimit
	}
	if page.Page <= 0 {
		page.Page = 1
	}
	req.Page, req.PageSize = page.Page, page.PageSize

	filter := repository.ReservationFilter{
		GuestName:  strings.TrimSpace(req.GuestName),
		Phone:      strings.TrimSpace(req.Phone),
		RoomNumber: strings.TrimSpace(req.RoomNumber),
		Status:     req.Status,
		Offset:     page.GetOffset(),
		Limit:      page.PageSize,
	}
	if req.CheckInDate != nil {
		d := utils.NormalizeDate(*req.CheckInDate)
		filter.CheckInDate = &d
	}

	list, total, err := s.reservationRepo.Search(ctx, filter)
	if err != nil {
		return nil, 0, errors.ErrDatabaseError.WithError(err)
	}

	result := make([]*ReservationInfo, 0, len(list))
	for _, r := range list {
		result = append(result, toReservationInfo(r))
	}
	return result, total, nil
}

// UpcomingCheckIns 今天起 days 天内待入住的预订，days <= 0 时使用配置值
func (s *ReservationService) UpcomingCheckIns(ctx context.Context, days int) ([]*ReservationInfo, error) {
	if days <= 0 {
		days = s.upcomingDays
	}
	today := s.today()
	list, err := s.reservationRepo.ListArrivals(ctx, today, utils.AddDays(today, days))
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	result := make([]*ReservationInfo, 0, len(list))
	for _, r := range list {
		result = append(result, toReservationInfo(r))
	}
	return result, nil
}

// CurrentCheckIns 在住预订
func (s *ReservationService) CurrentCheckIns(ctx context.Context) ([]*ReservationInfo, error) {
	list, err := s.reservationRepo.ListInHouse(ctx)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	result := make([]*ReservationInfo, 0, len(list))
	for _, r := range list {
		result = append(result, toReservationInfo(r))
	}
	return result, nil
}

// ==================== 创建 ====================

// CreateReservation 创建预订
func (s *ReservationService) CreateReservation(ctx context.Context, req *CreateReservationRequest, actingUserID int64) (info *ReservationInfo, err error) {
	defer func() { s.metrics.RecordReservationOp("create", err) }()

	if req == nil {
		return nil, errors.ErrInvalidParams
	}
	checkIn, checkOut, err := s.validateStay(req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, err
	}
	if req.Occupants < 1 {
		return nil, errors.ErrOccupantsInvalid.WithMessage("入住人数至少为 1")
	}

	room, err := s.loadBookableRoom(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}
	if err := checkOccupancy(room, req.Occupants); err != nil {
		return nil, err
	}

	breakdown, err := s.pricing.PriceBreakdown(ctx, room.CategoryID, checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	breakdownJSON, err := json.Marshal(breakdown.PerNight)
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}

	if s.guests == nil {
		return nil, errors.ErrInternalError.WithMessage("未配置客人档案服务")
	}
	guestID, err := s.guests.GetOrCreate(ctx, req.Guest)
	if err != nil {
		return nil, err
	}

	reservation := &models.Reservation{
		RoomID:          room.ID,
		GuestID:         guestID,
		CheckInDate:     checkIn,
		CheckOutDate:    checkOut,
		Occupants:       req.Occupants,
		TotalPrice:      breakdown.Total,
		PriceBreakdown:  datatypes.JSON(breakdownJSON),
		SpecialRequests: utils.NilIfEmpty(req.SpecialRequests),
		Status:          models.ReservationStatusConfirmed,
		CreatedBy:       actingUserID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.lockBookableRoom(ctx, tx, room.ID); err != nil {
			return err
		}
		if err := s.ensureNoConflict(ctx, tx, room, checkIn, checkOut, nil); err != nil {
			return err
		}
		return s.reservationRepo.WithTx(tx).Create(ctx, reservation)
	})
	if err != nil {
		return nil, s.mapWriteError(err)
	}

	created, err := s.loadDetails(ctx, reservation.ID)
	if err != nil {
		return nil, err
	}

	s.log.Info("reservation created",
		zap.Int64("reservation_id", created.ID),
		zap.String("room_number", room.RoomNumber),
		zap.String("check_in", utils.FormatDate(checkIn)),
		zap.String("check_out", utils.FormatDate(checkOut)),
		zap.Int64("staff_id", actingUserID),
	)

	s.effects.Record(ctx, AuditEntry{
		UserID:        actingUserID,
		OperationType: models.AuditCreate,
		EntityTable:   created.TableName(),
		EntityID:      created.ID,
		Description: fmt.Sprintf("创建预订：房间 %s，%s ~ %s，总价 %.2f",
			room.RoomNumber, utils.FormatDate(checkIn), utils.FormatDate(checkOut), created.TotalPrice),
	})
	s.effects.Notify(ctx, NotificationConfirmation, toSnapshot(created))

	return toReservationInfo(created), nil
}

// ==================== 修改 ====================

// ModifyReservation 修改已确认的预订；日期或房间变化时按最终房型重新计价
func (s *ReservationService) ModifyReservation(ctx context.Context, id int64, patch *ReservationPatch, actingUserID int64) (info *ReservationInfo, err error) {
	defer func() { s.metrics.RecordReservationOp("modify", err) }()

	if patch.IsEmpty() {
		return nil, errors.ErrNothingToModify
	}

	current, err := s.loadDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != models.ReservationStatusConfirmed {
		return nil, statusError(current.Status)
	}

	today := s.today()
	movesCheckIn := patch.CheckIn != nil && !utils.NormalizeDate(*patch.CheckIn).Equal(utils.NormalizeDate(current.CheckInDate))
	if !utils.NormalizeDate(current.CheckInDate).After(today) && !movesCheckIn {
		return nil, errors.ErrModifyAfterCheckInDate
	}

	checkIn, checkOut := utils.NormalizeDate(current.CheckInDate), utils.NormalizeDate(current.CheckOutDate)
	if patch.CheckIn != nil {
		checkIn = *patch.CheckIn
	}
	if patch.CheckOut != nil {
		checkOut = *patch.CheckOut
	}
	checkIn, checkOut, err = s.validateStay(checkIn, checkOut)
	if err != nil {
		return nil, err
	}

	occupants := current.Occupants
	if patch.Occupants != nil {
		occupants = *patch.Occupants
	}
	if occupants < 1 {
		return nil, errors.ErrOccupantsInvalid.WithMessage("入住人数至少为 1")
	}

	room := current.Room
	roomChanged := patch.RoomID != nil && *patch.RoomID != current.RoomID
	if roomChanged {
		room, err = s.loadBookableRoom(ctx, *patch.RoomID)
		if err != nil {
			return nil, err
		}
	} else if room == nil || room.Category == nil {
		room, err = s.loadRoom(ctx, current.RoomID)
		if err != nil {
			return nil, err
		}
	}
	if err := checkOccupancy(room, occupants); err != nil {
		return nil, err
	}

	datesChanged := !checkIn.Equal(utils.NormalizeDate(current.CheckInDate)) || !checkOut.Equal(utils.NormalizeDate(current.CheckOutDate))
	fields := map[string]interface{}{
		"occupants": occupants,
	}
	if patch.SpecialRequests != nil {
		fields["special_requests"] = utils.NilIfEmpty(*patch.SpecialRequests)
	}
	if datesChanged || roomChanged {
		breakdown, err := s.pricing.PriceBreakdown(ctx, room.CategoryID, checkIn, checkOut)
		if err != nil {
			return nil, err
		}
		breakdownJSON, err := json.Marshal(breakdown.PerNight)
		if err != nil {
			return nil, errors.ErrInternalError.WithError(err)
		}
		fields["check_in_date"] = checkIn
		fields["check_out_date"] = checkOut
		fields["room_id"] = room.ID
		fields["total_price"] = breakdown.Total
		fields["price_breakdown"] = datatypes.JSON(breakdownJSON)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.lockReservation(ctx, tx, id)
		if err != nil {
			return err
		}
		if locked.Status != models.ReservationStatusConfirmed {
			return statusError(locked.Status)
		}
		if !sameStay(locked, current) {
			return errReservationChanged
		}

		if datesChanged || roomChanged {
			if roomChanged {
				if _, err := s.lockBookableRoom(ctx, tx, room.ID); err != nil {
					return err
				}
			} else if _, err := s.roomRepo.WithTx(tx).GetByIDForUpdate(ctx, room.ID); err != nil {
				return err
			}
			if err := s.ensureNoConflict(ctx, tx, room, checkIn, checkOut, &current.ID); err != nil {
				return err
			}
		}

		rows, err := s.reservationRepo.WithTx(tx).TransitionStatus(ctx, id,
			models.ReservationStatusConfirmed, models.ReservationStatusConfirmed, fields)
		if err != nil {
			return err
		}
		if rows == 0 {
			return errors.ErrReservationStatus.WithMessage("预订状态已变化，请刷新后重试")
		}
		return nil
	})
	if err != nil {
		return nil, s.mapWriteError(err)
	}

	updated, err := s.loadDetails(ctx, id)
	if err != nil {
		return nil, err
	}

	s.effects.Record(ctx, AuditEntry{
		UserID:        actingUserID,
		OperationType: models.AuditModify,
		EntityTable:   current.TableName(),
		EntityID:      current.ID,
		Before:        current,
		Description: fmt.Sprintf("修改预订：房间 %s，%s ~ %s，总价 %.2f",
			room.RoomNumber, utils.FormatDate(checkIn), utils.FormatDate(checkOut), updated.TotalPrice),
	})
	s.effects.Notify(ctx, NotificationModification, toSnapshot(updated))

	return toReservationInfo(updated), nil
}

// ==================== 取消 / 入住 / 退房 ====================

// CancelReservation 取消预订，仅 Confirmed 状态可取消
func (s *ReservationService) CancelReservation(ctx context.Context, id int64, actingUserID int64) (err error) {
	defer func() { s.metrics.RecordReservationOp("cancel", err) }()

	current, err := s.loadDetails(ctx, id)
	if err != nil {
		return err
	}
	switch current.Status {
	case models.ReservationStatusConfirmed:
	case models.ReservationStatusCheckedIn:
		return errors.ErrMustCheckOutFirst
	default:
		return statusError(current.Status)
	}

	now := s.clock().UTC()
	rows, err := s.reservationRepo.TransitionStatus(ctx, id,
		models.ReservationStatusConfirmed, models.ReservationStatusCancelled,
		map[string]interface{}{"cancelled_at": now})
	if err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	if rows == 0 {
		return errors.ErrReservationStatus.WithMessage("预订状态已变化，请刷新后重试")
	}

	before := *current
	current.Status = models.ReservationStatusCancelled
	current.CancelledAt = &now

	s.effects.Record(ctx, AuditEntry{
		UserID:        actingUserID,
		OperationType: models.AuditCancel,
		EntityTable:   current.TableName(),
		EntityID:      current.ID,
		Before:        &before,
		Description:   fmt.Sprintf("取消预订 #%d", current.ID),
	})
	s.effects.Notify(ctx, NotificationCancellation, toSnapshot(current))
	return nil
}

// CheckIn 办理入住，最早可提前 earlyDays 天；房间置为 Occupied
func (s *ReservationService) CheckIn(ctx context.Context, id int64, actingUserID int64) (err error) {
	defer func() { s.metrics.RecordReservationOp("check_in", err) }()

	current, err := s.loadDetails(ctx, id)
	if err != nil {
		return err
	}
	if current.Status != models.ReservationStatusConfirmed {
		return statusError(current.Status)
	}

	if err := s.checkInWindow(current); err != nil {
		return err
	}

	now := s.clock().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 以事务内加锁读取的预订为准，房间与日期可能已被并发修改
		locked, err := s.lockReservation(ctx, tx, id)
		if err != nil {
			return err
		}
		if locked.Status != models.ReservationStatusConfirmed {
			return statusError(locked.Status)
		}
		if err := s.checkInWindow(locked); err != nil {
			return err
		}
		if _, err := s.roomRepo.WithTx(tx).GetByIDForUpdate(ctx, locked.RoomID); err != nil {
			return err
		}
		rows, err := s.reservationRepo.WithTx(tx).TransitionStatus(ctx, id,
			models.ReservationStatusConfirmed, models.ReservationStatusCheckedIn,
			map[string]interface{}{"checked_in_at": now})
		if err != nil {
			return err
		}
		if rows == 0 {
			return errors.ErrReservationStatus.WithMessage("预订状态已变化，请刷新后重试")
		}
		return s.roomRepo.WithTx(tx).UpdateStatus(ctx, locked.RoomID, models.RoomStatusOccupied)
	})
	if err != nil {
		return s.mapWriteError(err)
	}

	before := current
	if fresh, lerr := s.loadDetails(ctx, id); lerr == nil {
		current = fresh
	}

	s.effects.Record(ctx, AuditEntry{
		UserID:        actingUserID,
		OperationType: models.AuditCheckIn,
		EntityTable:   current.TableName(),
		EntityID:      current.ID,
		Before:        before,
		Description:   fmt.Sprintf("办理入住：预订 #%d，房间 %s", current.ID, roomNumberOf(current)),
	})
	s.effects.Publish(ctx, RoomEvent{
		Type:          RoomEventCheckIn,
		RoomID:        current.RoomID,
		RoomNumber:    roomNumberOf(current),
		Status:        string(models.RoomStatusOccupied),
		ReservationID: current.ID,
		OccurredAt:    now,
	})
	return nil
}

// CheckOut 办理退房并登记付款；房间置为 Dirty
func (s *ReservationService) CheckOut(ctx context.Context, id int64, method string, amount float64, actingUserID int64) (err error) {
	defer func() { s.metrics.RecordReservationOp("check_out", err) }()

	current, err := s.loadDetails(ctx, id)
	if err != nil {
		return err
	}
	if current.Status != models.ReservationStatusCheckedIn {
		return statusError(current.Status)
	}

	paymentMethod, perr := models.ParsePaymentMethod(method)
	if perr != nil {
		return errors.ErrPaymentMethodInvalid.WithMessagef("不支持的支付方式：%s", method)
	}
	if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return errors.ErrPaymentAmountInvalid
	}
	amount = utils.RoundMoney(amount)

	now := s.clock().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.lockReservation(ctx, tx, id)
		if err != nil {
			return err
		}
		if locked.Status != models.ReservationStatusCheckedIn {
			return statusError(locked.Status)
		}
		if _, err := s.roomRepo.WithTx(tx).GetByIDForUpdate(ctx, locked.RoomID); err != nil {
			return err
		}
		rows, err := s.reservationRepo.WithTx(tx).TransitionStatus(ctx, id,
			models.ReservationStatusCheckedIn, models.ReservationStatusCheckedOut,
			map[string]interface{}{"checked_out_at": now})
		if err != nil {
			return err
		}
		if rows == 0 {
			return errors.ErrReservationStatus.WithMessage("预订状态已变化，请刷新后重试")
		}
		if err := s.roomRepo.WithTx(tx).UpdateStatus(ctx, locked.RoomID, models.RoomStatusDirty); err != nil {
			return err
		}
		return s.paymentRepo.WithTx(tx).Create(ctx, &models.Payment{
			ReservationID: id,
			Amount:        amount,
			Method:        paymentMethod,
			Status:        models.PaymentStatusPaid,
			ProcessedBy:   actingUserID,
			PaidAt:        now,
		})
	})
	if err != nil {
		return s.mapWriteError(err)
	}

	s.metrics.RecordRevenue(string(paymentMethod), amount)

	s.effects.Record(ctx, AuditEntry{
		UserID:        actingUserID,
		OperationType: models.AuditCheckOut,
		EntityTable:   current.TableName(),
		EntityID:      current.ID,
		Before:        current,
		Description:   fmt.Sprintf("办理退房：预订 #%d，%s 收款 %.2f", current.ID, paymentMethod, amount),
	})
	s.effects.Publish(ctx, RoomEvent{
		Type:          RoomEventCheckOut,
		RoomID:        current.RoomID,
		RoomNumber:    roomNumberOf(current),
		Status:        string(models.RoomStatusDirty),
		ReservationID: current.ID,
		OccurredAt:    now,
	})
	return nil
}

// ==================== 内部方法 ====================

// validateStay 校验并规范化入住/退房日期
func (s *ReservationService) validateStay(checkIn, checkOut time.Time) (time.Time, time.Time, error) {
	if checkIn.IsZero() || checkOut.IsZero() {
		return time.Time{}, time.Time{}, errors.ErrInvalidDate.WithMessage("入住和退房日期不能为空")
	}
	checkIn, checkOut = utils.NormalizeDate(checkIn), utils.NormalizeDate(checkOut)
	if !checkOut.After(checkIn) {
		return time.Time{}, time.Time{}, errors.ErrInvalidDateRange
	}
	if checkIn.Before(s.today()) {
		return time.Time{}, time.Time{}, errors.ErrCheckInDatePassed
	}
	return checkIn, checkOut, nil
}

func (s *ReservationService) loadDetails(ctx context.Context, id int64) (*models.Reservation, error) {
	r, err := s.reservationRepo.GetByIDWithDetails(ctx, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrReservationNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return r, nil
}

// lockReservation 在事务内锁住预订行
func (s *ReservationService) lockReservation(ctx context.Context, tx *gorm.DB, id int64) (*models.Reservation, error) {
	r, err := s.reservationRepo.WithTx(tx).GetByIDForUpdate(ctx, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrReservationNotFound
		}
		return nil, err
	}
	return r, nil
}

var errReservationChanged = errors.ErrReservationStatus.WithMessage("预订已被他人修改，请刷新后重试")

// sameStay 房间、日期、人数是否与快照一致
func sameStay(a, b *models.Reservation) bool {
	return a.RoomID == b.RoomID &&
		utils.NormalizeDate(a.CheckInDate).Equal(utils.NormalizeDate(b.CheckInDate)) &&
		utils.NormalizeDate(a.CheckOutDate).Equal(utils.NormalizeDate(b.CheckOutDate)) &&
		a.Occupants == b.Occupants
}

// checkInWindow 最早可提前 earlyDays 天入住
func (s *ReservationService) checkInWindow(r *models.Reservation) error {
	earliest := utils.AddDays(utils.NormalizeDate(r.CheckInDate), -s.earlyDays)
	if s.today().Before(earliest) {
		return errors.ErrCheckInTooEarly.WithMessagef("入住日期为 %s，最早 %s 可办理入住",
			utils.FormatDate(r.CheckInDate), utils.FormatDate(earliest))
	}
	return nil
}

func (s *ReservationService) loadRoom(ctx context.Context, roomID int64) (*models.Room, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrRoomNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if room.Category == nil {
		return nil, errors.ErrCategoryNotFound
	}
	return room, nil
}

// loadBookableRoom 加载房间并要求其有效且已清洁
func (s *ReservationService) loadBookableRoom(ctx context.Context, roomID int64) (*models.Room, error) {
	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := bookable(room); err != nil {
		return nil, err
	}
	return room, nil
}

// lockBookableRoom 在事务内锁住房间行并复查可预订状态
func (s *ReservationService) lockBookableRoom(ctx context.Context, tx *gorm.DB, roomID int64) (*models.Room, error) {
	room, err := s.roomRepo.WithTx(tx).GetByIDForUpdate(ctx, roomID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrRoomNotFound
		}
		return nil, err
	}
	if err := bookable(room); err != nil {
		return nil, err
	}
	return room, nil
}

func bookable(room *models.Room) error {
	if !room.IsActive {
		return errors.ErrRoomNotFound.WithMessagef("房间 %s 已停用", room.RoomNumber)
	}
	if room.Status != models.RoomStatusClean {
		return errors.ErrRoomNotClean.WithMessagef("房间 %s 当前状态为 %s，暂不可预订", room.RoomNumber, room.Status)
	}
	return nil
}

func checkOccupancy(room *models.Room, occupants int) error {
	if room.Category != nil && occupants > room.Category.MaxOccupancy {
		return errors.ErrOccupantsInvalid.WithMessagef("%s 最多入住 %d 人", room.Category.Name, room.Category.MaxOccupancy)
	}
	return nil
}

// ensureNoConflict 在事务内检查日期冲突
func (s *ReservationService) ensureNoConflict(ctx context.Context, tx *gorm.DB, room *models.Room, checkIn, checkOut time.Time, excludeID *int64) error {
	conflicts, err := s.availability.WithTx(tx).Conflicts(ctx, room.ID, checkIn, checkOut, excludeID)
	if err != nil {
		return err
	}
	if len(conflicts) == 0 {
		return nil
	}
	s.metrics.RecordBookingConflict("check")
	c := conflicts[0]
	return errors.ErrReservationConflict.WithMessagef("房间 %s 在 %s ~ %s 已被预订",
		room.RoomNumber, utils.FormatDate(c.CheckInDate), utils.FormatDate(c.CheckOutDate))
}

// mapWriteError 将事务错误映射为应用错误
func (s *ReservationService) mapWriteError(err error) error {
	if errors.IsAppError(err) {
		return err
	}
	if database.IsExclusionViolation(err) {
		s.metrics.RecordBookingConflict("constraint")
		return errors.ErrReservationConflict.WithError(err)
	}
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return errors.ErrRoomNotFound
	}
	return errors.ErrDatabaseError.WithError(err)
}

// statusError 当前状态不允许操作时的错误
func statusError(status models.ReservationStatus) error {
	switch status {
	case models.ReservationStatusCancelled:
		return errors.ErrAlreadyCancelled
	case models.ReservationStatusCheckedOut:
		return errors.ErrReservationStatus.WithMessage("预订已退房")
	case models.ReservationStatusCheckedIn:
		return errors.ErrReservationStatus.WithMessage("客人已入住")
	default:
		return errors.ErrReservationStatus.WithMessage("客人尚未入住")
	}
}

func roomNumberOf(r *models.Reservation) string {
	if r.Room != nil {
		return r.Room.RoomNumber
	}
	return ""
}
