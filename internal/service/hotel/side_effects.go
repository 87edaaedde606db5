package hotel

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dumeirei/hotel-reservation-backend/internal/common/metrics"
)

// sideEffectTimeout 单个副作用的最长执行时间
const sideEffectTimeout = 5 * time.Second

// SideEffects 提交后执行的通知、审计与事件发布
// 任何一项失败只记录日志和指标，不影响已提交的业务结果
type SideEffects struct {
	notifier Notifier
	audit    AuditRecorder
	events   EventPublisher
	log      *zap.Logger
	metrics  *metrics.Metrics
}

// NewSideEffects 创建副作用分发器，协作方均可为 nil
func NewSideEffects(log *zap.Logger, m *metrics.Metrics, notifier Notifier, audit AuditRecorder, events EventPublisher) *SideEffects {
	if log == nil {
		log = zap.NewNop()
	}
	return &SideEffects{
		notifier: notifier,
		audit:    audit,
		events:   events,
		log:      log,
		metrics:  m,
	}
}

func (s *SideEffects) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
}

// Record 写审计日志
func (s *SideEffects) Record(ctx context.Context, entry AuditEntry) {
	if s == nil || s.audit == nil {
		return
	}
	if entry.IP == "" {
		entry.IP = ClientIP(ctx)
	}
	ctx, cancel := s.detach(ctx)
	defer cancel()

	if err := s.audit.Record(ctx, entry); err != nil {
		s.metrics.RecordSideEffectFailure("audit")
		s.log.Warn("audit record failed",
			zap.String("operation", entry.OperationType),
			zap.String("entity_table", entry.EntityTable),
			zap.Int64("entity_id", entry.EntityID),
			zap.Error(err),
		)
	}
}

// Notify 发送客人通知
func (s *SideEffects) Notify(ctx context.Context, kind NotificationKind, snapshot ReservationSnapshot) {
	if s == nil || s.notifier == nil {
		return
	}
	ctx, cancel := s.detach(ctx)
	defer cancel()

	if err := s.notifier.Notify(ctx, kind, snapshot); err != nil {
		s.metrics.RecordSideEffectFailure("notify")
		s.log.Warn("guest notification failed",
			zap.String("kind", string(kind)),
			zap.Int64("reservation_id", snapshot.ReservationID),
			zap.Error(err),
		)
	}
}

// Publish 发布房间事件
func (s *SideEffects) Publish(ctx context.Context, event RoomEvent) {
	if s == nil || s.events == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	ctx, cancel := s.detach(ctx)
	defer cancel()

	if err := s.events.Publish(ctx, event); err != nil {
		s.metrics.RecordSideEffectFailure("event")
		s.log.Warn("room event publish failed",
			zap.String("type", string(event.Type)),
			zap.String("room_number", event.RoomNumber),
			zap.Error(err),
		)
	}
}
