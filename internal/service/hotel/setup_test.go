package hotel

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/hotel-reservation-backend/internal/common/config"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/utils"
	"github.com/dumeirei/hotel-reservation-backend/internal/models"
	"github.com/dumeirei/hotel-reservation-backend/internal/repository"
)

// ==================== Mock 协作方 ====================

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, kind NotificationKind, snapshot ReservationSnapshot) error {
	args := m.Called(ctx, kind, snapshot)
	return args.Error(0)
}

type mockAuditRecorder struct {
	mock.Mock
}

func (m *mockAuditRecorder) Record(ctx context.Context, entry AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

type mockEventPublisher struct {
	mock.Mock
}

func (m *mockEventPublisher) Publish(ctx context.Context, event RoomEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// fakeClock 可调时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// ==================== 测试夹具 ====================

type fixture struct {
	db           *gorm.DB
	clock        *fakeClock
	notifier     *mockNotifier
	audit        *mockAuditRecorder
	events       *mockEventPublisher
	rates        *RateTable
	pricing      *PriceCalculator
	availability *AvailabilityChecker
	guests       *GuestService
	reservations *ReservationService
	rooms        *RoomService

	standard *models.RoomCategory
	deluxe   *models.RoomCategory
	room101  *models.Room
	room102  *models.Room
	room301  *models.Room
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

// setupFixture 今天为 2026-02-01，Standard 200/2 人，Deluxe 350/3 人
func setupFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixture(t, setupTestDB(t))
}

// newFixture 在给定数据库上组装服务并写入基础房型与房间
func newFixture(t *testing.T, db *gorm.DB) *fixture {
	t.Helper()

	f := &fixture{
		db:       db,
		clock:    &fakeClock{now: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)},
		notifier: &mockNotifier{},
		audit:    &mockAuditRecorder{},
		events:   &mockEventPublisher{},
	}
	f.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	f.audit.On("Record", mock.Anything, mock.Anything).Return(nil).Maybe()
	f.events.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()

	categoryRepo := repository.NewCategoryRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	ruleRepo := repository.NewRateRuleRepository(db)
	reservationRepo := repository.NewReservationRepository(db)
	guestRepo := repository.NewGuestRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	effects := NewSideEffects(zap.NewNop(), nil, f.notifier, f.audit, f.events)
	f.rates = NewRateTable(db, categoryRepo, ruleRepo, effects)
	f.pricing = NewPriceCalculator(f.rates, ruleRepo)
	f.availability = NewAvailabilityChecker(reservationRepo, roomRepo)
	f.guests = NewGuestService(guestRepo)
	f.reservations = NewReservationService(db, reservationRepo, roomRepo, paymentRepo,
		f.availability, f.pricing, f.guests, effects, nil, zap.NewNop(),
		&config.HotelConfig{Timezone: "UTC", EarlyCheckInDays: 1, SearchLimit: 50, UpcomingDays: 1},
	).WithClock(f.clock.Now)
	f.rooms = NewRoomService(db, roomRepo, categoryRepo, reservationRepo, paymentRepo, effects, nil, time.UTC).
		WithClock(f.clock.Now)

	f.standard = &models.RoomCategory{Name: "Standard", BasePrice: 200, MaxOccupancy: 2, IsActive: true}
	f.deluxe = &models.RoomCategory{Name: "Deluxe", BasePrice: 350, MaxOccupancy: 3, IsActive: true}
	require.NoError(t, db.Create(f.standard).Error)
	require.NoError(t, db.Create(f.deluxe).Error)

	f.room101 = &models.Room{RoomNumber: "101", CategoryID: f.standard.ID, Floor: 1, Status: models.RoomStatusClean, IsActive: true}
	f.room102 = &models.Room{RoomNumber: "102", CategoryID: f.standard.ID, Floor: 1, Status: models.RoomStatusClean, IsActive: true}
	f.room301 = &models.Room{RoomNumber: "301", CategoryID: f.deluxe.ID, Floor: 3, Status: models.RoomStatusClean, IsActive: true}
	require.NoError(t, db.Create(f.room101).Error)
	require.NoError(t, db.Create(f.room102).Error)
	require.NoError(t, db.Create(f.room301).Error)

	return f
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := utils.ParseDate(s)
	require.NoError(t, err)
	return d
}

func testGuest() GuestInfo {
	return GuestInfo{Name: "张三", Phone: "13800138000", Email: "zhang@example.com"}
}

// book 以默认客人创建预订
func (f *fixture) book(t *testing.T, roomID int64, in, out string) *ReservationInfo {
	t.Helper()
	info, err := f.reservations.CreateReservation(context.Background(), &CreateReservationRequest{
		Guest:     testGuest(),
		RoomID:    roomID,
		CheckIn:   date(t, in),
		CheckOut:  date(t, out),
		Occupants: 1,
	}, 1)
	require.NoError(t, err)
	return info
}

func (f *fixture) roomStatus(t *testing.T, roomID int64) models.HousekeepingStatus {
	t.Helper()
	var room models.Room
	require.NoError(t, f.db.First(&room, roomID).Error)
	return room.Status
}

func (f *fixture) reservationStatus(t *testing.T, id int64) models.ReservationStatus {
	t.Helper()
	var r models.Reservation
	require.NoError(t, f.db.First(&r, id).Error)
	return r.Status
}
