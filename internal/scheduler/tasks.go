package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	hotelService "github.com/dumeirei/hotel-reservation-backend/internal/service/hotel"
)

// TaskHandler 酒店定时任务
type TaskHandler struct {
	rooms        *hotelService.RoomService
	reservations *hotelService.ReservationService
	log          *zap.Logger
}

// NewTaskHandler 创建任务处理器
func NewTaskHandler(rooms *hotelService.RoomService, reservations *hotelService.ReservationService, log *zap.Logger) *TaskHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &TaskHandler{rooms: rooms, reservations: reservations, log: log.Named("tasks")}
}

// RefreshRoomGauges 刷新各房态房间数指标
func (h *TaskHandler) RefreshRoomGauges(ctx context.Context) error {
	_, err := h.rooms.RoomStatistics(ctx)
	return err
}

// ReportArrivals 记录今明两天待入住数量，供前台排班参考
func (h *TaskHandler) ReportArrivals(ctx context.Context) error {
	arrivals, err := h.reservations.UpcomingCheckIns(ctx, 1)
	if err != nil {
		return err
	}
	inHouse, err := h.reservations.CurrentCheckIns(ctx)
	if err != nil {
		return err
	}
	h.log.Info("Front desk summary",
		zap.Int("arrivals", len(arrivals)),
		zap.Int("in_house", len(inHouse)),
	)
	return nil
}

// SetupTasks 注册全部任务
func SetupTasks(s *Scheduler, handler *TaskHandler) {
	// 每分钟刷新房态指标
	s.AddTask("RefreshRoomGauges", time.Minute, handler.RefreshRoomGauges)

	// 每小时汇总到店与在住
	s.AddTask("ReportArrivals", time.Hour, handler.ReportArrivals)
}
