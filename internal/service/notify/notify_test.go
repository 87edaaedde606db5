package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	appErrors "github.com/dumeirei/hotel-reservation-backend/internal/common/errors"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/metrics"
	"github.com/dumeirei/hotel-reservation-backend/internal/models"
	"github.com/dumeirei/hotel-reservation-backend/internal/repository"
	"github.com/dumeirei/hotel-reservation-backend/internal/service/hotel"
	"github.com/dumeirei/hotel-reservation-backend/pkg/mqtt"
	"github.com/dumeirei/hotel-reservation-backend/pkg/sms"
)

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
	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

func snapshot() hotel.ReservationSnapshot {
	return hotel.ReservationSnapshot{
		ReservationID: 42,
		GuestName:     "张三",
		GuestPhone:    "13800138000",
		RoomNumber:    "101",
		CategoryName:  "Standard",
		CheckInDate:   "2026-03-01",
		CheckOutDate:  "2026-03-03",
		Nights:        2,
		TotalPrice:    400,
		Status:        "Confirmed",
	}
}

// ==================== SMSNotifier 测试 ====================

func TestSMSNotifier_Notify(t *testing.T) {
	sender := sms.NewMockSender(nil)
	n := NewSMSNotifier(sender, "如家酒店", time.Second, nil, nil)

	require.NoError(t, n.Notify(context.Background(), hotel.NotificationConfirmation, snapshot()))
	n.Wait()

	msg := sender.LastMessage()
	require.NotNil(t, msg)
	assert.Equal(t, "13800138000", msg.Phone)
	assert.Equal(t, sms.TemplateReservationConfirmed, msg.Template)
	assert.Equal(t, "如家酒店", msg.Params["hotel"])
	assert.Equal(t, "101", msg.Params["room"])
	assert.Equal(t, "400.00", msg.Params["total"])
	assert.Equal(t, "42", msg.Params["reservation_id"])
	assert.Equal(t, "2", msg.Params["nights"])
}

func TestSMSNotifier_TemplatePerKind(t *testing.T) {
	sender := sms.NewMockSender(nil)
	n := NewSMSNotifier(sender, "", 0, nil, nil)

	require.NoError(t, n.Notify(context.Background(), hotel.NotificationModification, snapshot()))
	n.Wait()
	require.NoError(t, n.Notify(context.Background(), hotel.NotificationCancellation, snapshot()))
	n.Wait()

	msgs := sender.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, sms.TemplateReservationModified, msgs[0].Template)
	assert.Equal(t, sms.TemplateReservationCancelled, msgs[1].Template)
}

func TestSMSNotifier_Rejects(t *testing.T) {
	sender := sms.NewMockSender(nil)
	n := NewSMSNotifier(sender, "", 0, nil, nil)

	assert.Error(t, n.Notify(context.Background(), hotel.NotificationKind("reminder"), snapshot()))

	snap := snapshot()
	snap.GuestPhone = ""
	assert.Error(t, n.Notify(context.Background(), hotel.NotificationConfirmation, snap))

	n.Wait()
	assert.Empty(t, sender.Messages())
}

func TestSMSNotifier_FailureRecorded(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New("test", reg)

	sender := sms.NewMockSender(nil)
	sender.Err = errors.New("quota exceeded")
	n := NewSMSNotifier(sender, "", time.Second, m, nil)

	// 调用方上下文取消不影响后台发送
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, n.Notify(ctx, hotel.NotificationConfirmation, snapshot()))
	cancel()
	n.Wait()

	expected := `
# HELP test_sms_sent_total Total number of SMS notifications
# TYPE test_sms_sent_total counter
test_sms_sent_total{result="error",template="reservation_confirmed"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "test_sms_sent_total"))
}

// blockingSender 阻塞直到上下文结束
type blockingSender struct {
	mu  sync.Mutex
	err error
}

func (b *blockingSender) Send(ctx context.Context, _, _ string, _ map[string]string) error {
	<-ctx.Done()
	b.mu.Lock()
	b.err = ctx.Err()
	b.mu.Unlock()
	return ctx.Err()
}

func TestSMSNotifier_Timeout(t *testing.T) {
	sender := &blockingSender{}
	n := NewSMSNotifier(sender, "", 20*time.Millisecond, nil, nil)

	start := time.Now()
	require.NoError(t, n.Notify(context.Background(), hotel.NotificationConfirmation, snapshot()))
	assert.Less(t, time.Since(start), 20*time.Millisecond)

	n.Wait()
	assert.ErrorIs(t, sender.err, context.DeadlineExceeded)
}

// ==================== AuditRecorder 测试 ====================

func TestAuditRecorder_RecordAndList(t *testing.T) {
	db := setupTestDB(t)
	r := NewAuditRecorder(repository.NewAuditLogRepository(db))
	ctx := context.Background()

	before := &models.Reservation{ID: 7, Status: models.ReservationStatusConfirmed, Occupants: 2}
	require.NoError(t, r.Record(ctx, hotel.AuditEntry{
		UserID: 1, OperationType: models.AuditCancel, EntityTable: "reservations", EntityID: 7,
		Before: before, Description: "取消预订 #7", IP: "10.0.0.1",
	}))
	require.NoError(t, r.Record(ctx, hotel.AuditEntry{
		UserID: 2, OperationType: models.AuditLogin, EntityTable: "staff_users", EntityID: 2,
	}))

	logs, page, err := r.ListAuditLogs(ctx, &AuditLogQuery{OperationType: models.AuditCancel})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, logs, 1)
	assert.Equal(t, int64(7), *logs[0].EntityID)
	assert.Equal(t, "10.0.0.1", *logs[0].IP)

	var snap map[string]interface{}
	require.NoError(t, json.Unmarshal(logs[0].Before, &snap))
	assert.Equal(t, "Confirmed", snap["status"])

	uid := int64(2)
	logs, page, err = r.ListAuditLogs(ctx, &AuditLogQuery{UserID: &uid})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.Nil(t, logs[0].IP)
	assert.JSONEq(t, `{}`, string(logs[0].Before))

	_, page, err = r.ListAuditLogs(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.PageSize)
}

func TestAuditRecorder_UnmarshalableSnapshot(t *testing.T) {
	db := setupTestDB(t)
	r := NewAuditRecorder(repository.NewAuditLogRepository(db))

	err := r.Record(context.Background(), hotel.AuditEntry{UserID: 1, OperationType: "X", EntityTable: "t", Before: make(chan int)})
	assert.Error(t, err)
}

// ==================== EventPublisher 测试 ====================

type publishCall struct {
	topic    string
	payload  interface{}
	retained bool
}

type fakePublisher struct {
	calls []publishCall
	err   error
}

func (f *fakePublisher) Publish(_ context.Context, topic string, payload interface{}, retained bool) error {
	f.calls = append(f.calls, publishCall{topic, payload, retained})
	return f.err
}

func TestEventPublisher_Publish(t *testing.T) {
	reg := prometheus.NewRegistry()
	pub := &fakePublisher{}
	p := NewEventPublisher(pub, mqtt.NewTopics("hotel"), metrics.New("test", reg))

	at := time.Date(2026, 2, 4, 8, 0, 0, 0, time.UTC)
	require.NoError(t, p.Publish(context.Background(), hotel.RoomEvent{
		Type: hotel.RoomEventCheckIn, RoomID: 1, RoomNumber: "101", Status: "Occupied", ReservationID: 9, OccurredAt: at,
	}))

	require.Len(t, pub.calls, 2)
	assert.Equal(t, "hotel/rooms/101/events", pub.calls[0].topic)
	assert.False(t, pub.calls[0].retained)
	data, err := json.Marshal(pub.calls[0].payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"check_in","room_id":1,"room_number":"101","status":"Occupied","reservation_id":9,"occurred_at":"2026-02-04T08:00:00Z"}`, string(data))

	assert.Equal(t, "hotel/rooms/101/status", pub.calls[1].topic)
	assert.True(t, pub.calls[1].retained)

	expected := `
# HELP test_mqtt_messages_total Total number of MQTT messages
# TYPE test_mqtt_messages_total counter
test_mqtt_messages_total{result="ok",topic="room_event"} 1
test_mqtt_messages_total{result="ok",topic="room_status"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "test_mqtt_messages_total"))
}

func TestEventPublisher_Errors(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	p := NewEventPublisher(pub, mqtt.NewTopics(""), nil)

	err := p.Publish(context.Background(), hotel.RoomEvent{Type: hotel.RoomEventCheckOut, RoomNumber: "101", Status: "Dirty"})
	assert.EqualError(t, err, "broker down")
	assert.Len(t, pub.calls, 1)

	assert.Error(t, p.Publish(context.Background(), hotel.RoomEvent{Type: hotel.RoomEventCheckOut}))
}

// ==================== HousekeepingUpdater 测试 ====================

func TestHousekeepingUpdater(t *testing.T) {
	db := setupTestDB(t)
	cat := &models.RoomCategory{Name: "Standard", BasePrice: 200, MaxOccupancy: 2, IsActive: true}
	require.NoError(t, db.Create(cat).Error)
	room := &models.Room{RoomNumber: "205", CategoryID: cat.ID, Floor: 2, Status: models.RoomStatusDirty, IsActive: true}
	require.NoError(t, db.Create(room).Error)

	audit := NewAuditRecorder(repository.NewAuditLogRepository(db))
	effects := hotel.NewSideEffects(zap.NewNop(), nil, nil, audit, nil)
	rooms := hotel.NewRoomService(db, repository.NewRoomRepository(db), repository.NewCategoryRepository(db),
		repository.NewReservationRepository(db), repository.NewPaymentRepository(db), effects, nil, time.UTC)

	u := NewHousekeepingUpdater(rooms, nil, nil)
	require.NoError(t, u.UpdateStatusByNumber(context.Background(), "205", "Clean", "tablet-2F"))

	var got models.Room
	require.NoError(t, db.First(&got, room.ID).Error)
	assert.Equal(t, models.RoomStatusClean, got.Status)

	logs, _, err := audit.ListAuditLogs(context.Background(), &AuditLogQuery{OperationType: models.AuditStatusUpdate})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, int64(0), logs[0].UserID)

	err = u.UpdateStatusByNumber(context.Background(), "205", "Sparkling", "tablet-2F")
	assert.ErrorIs(t, err, appErrors.ErrRoomStatusInvalid)
	err = u.UpdateStatusByNumber(context.Background(), "999", "Clean", "tablet-2F")
	assert.ErrorIs(t, err, appErrors.ErrRoomNotFound)
}
