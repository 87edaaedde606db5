// Package notify 提供预订核心对外副作用的实现：短信通知、审计日志、客房事件
package notify

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dumeirei/hotel-reservation-backend/internal/common/metrics"
	"github.com/dumeirei/hotel-reservation-backend/internal/service/hotel"
	"github.com/dumeirei/hotel-reservation-backend/pkg/sms"
)

const defaultSendTimeout = 5 * time.Second

var templateByKind = map[hotel.NotificationKind]string{
	hotel.NotificationConfirmation: sms.TemplateReservationConfirmed,
	hotel.NotificationModification: sms.TemplateReservationModified,
	hotel.NotificationCancellation: sms.TemplateReservationCancelled,
}

// SMSNotifier 短信通知客人，异步发送
type SMSNotifier struct {
	sender    sms.Sender
	hotelName string
	timeout   time.Duration
	metrics   *metrics.Metrics
	log       *zap.Logger
	wg        sync.WaitGroup
}

// NewSMSNotifier 创建短信通知器
func NewSMSNotifier(sender sms.Sender, hotelName string, timeout time.Duration, m *metrics.Metrics, log *zap.Logger) *SMSNotifier {
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SMSNotifier{
		sender:    sender,
		hotelName: hotelName,
		timeout:   timeout,
		metrics:   m,
		log:       log.Named("sms_notifier"),
	}
}

// Notify 校验后在后台发送短信，立即返回
func (n *SMSNotifier) Notify(ctx context.Context, kind hotel.NotificationKind, snapshot hotel.ReservationSnapshot) error {
	template, ok := templateByKind[kind]
	if !ok {
		return fmt.Errorf("unknown notification kind %q", kind)
	}
	if snapshot.GuestPhone == "" {
		return fmt.Errorf("reservation %d has no guest phone", snapshot.ReservationID)
	}
	params := n.params(snapshot)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
		defer cancel()

		err := n.sender.Send(sendCtx, snapshot.GuestPhone, template, params)
		n.metrics.RecordSMS(template, err)
		if err != nil {
			n.log.Warn("send sms failed",
				zap.String("template", template),
				zap.Int64("reservation_id", snapshot.ReservationID),
				zap.Error(err),
			)
			return
		}
		n.log.Debug("sms sent", zap.String("template", template), zap.Int64("reservation_id", snapshot.ReservationID))
	}()
	return nil
}

// Wait 等待在途短信发送完成，退出前调用
func (n *SMSNotifier) Wait() {
	n.wg.Wait()
}

func (n *SMSNotifier) params(s hotel.ReservationSnapshot) map[string]string {
	return map[string]string{
		"hotel":          n.hotelName,
		"name":           s.GuestName,
		"reservation_id": strconv.FormatInt(s.ReservationID, 10),
		"room":           s.RoomNumber,
		"category":       s.CategoryName,
		"check_in":       s.CheckInDate,
		"check_out":      s.CheckOutDate,
		"nights":         strconv.Itoa(s.Nights),
		"total":          strconv.FormatFloat(s.TotalPrice, 'f', 2, 64),
	}
}
