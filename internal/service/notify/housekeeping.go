package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/dumeirei/hotel-reservation-backend/internal/common/metrics"
	"github.com/dumeirei/hotel-reservation-backend/internal/service/hotel"
)

// systemUserID 设备上报等非人工操作的审计用户
const systemUserID int64 = 0

// HousekeepingUpdater 将客房终端的清洁上报转换为房态更新
type HousekeepingUpdater struct {
	rooms   *hotel.RoomService
	metrics *metrics.Metrics
	log     *zap.Logger
}

// NewHousekeepingUpdater 创建清洁上报处理器
func NewHousekeepingUpdater(rooms *hotel.RoomService, m *metrics.Metrics, log *zap.Logger) *HousekeepingUpdater {
	if log == nil {
		log = zap.NewNop()
	}
	return &HousekeepingUpdater{rooms: rooms, metrics: m, log: log.Named("housekeeping")}
}

// UpdateStatusByNumber 实现 mqtt.StatusUpdater
func (u *HousekeepingUpdater) UpdateStatusByNumber(ctx context.Context, roomNumber, status, reporter string) error {
	_, err := u.rooms.UpdateRoomStatusByNumber(ctx, roomNumber, status, systemUserID)
	u.metrics.RecordMQTTMessage("housekeeping", err)
	if err != nil {
		return err
	}
	u.log.Info("room status reported",
		zap.String("room_number", roomNumber),
		zap.String("status", status),
		zap.String("reporter", reporter),
	)
	return nil
}
