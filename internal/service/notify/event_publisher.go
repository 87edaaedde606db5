package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/dumeirei/hotel-reservation-backend/internal/common/metrics"
	"github.com/dumeirei/hotel-reservation-backend/internal/service/hotel"
	"github.com/dumeirei/hotel-reservation-backend/pkg/mqtt"
)

// Publisher MQTT 发布能力，*mqtt.Client 实现
type Publisher interface {
	Publish(ctx context.Context, topic string, payload interface{}, retained bool) error
}

// roomEventMessage 房间事件消息
type roomEventMessage struct {
	Type          string `json:"type"`
	RoomID        int64  `json:"room_id"`
	RoomNumber    string `json:"room_number"`
	Status        string `json:"status"`
	ReservationID int64  `json:"reservation_id,omitempty"`
	OccurredAt    string `json:"occurred_at"`
}

// roomStatusMessage 房态保留消息
type roomStatusMessage struct {
	Status    string `json:"status"`
	UpdatedAt string `json:"updated_at"`
}

// EventPublisher 通过 MQTT 发布客房事件
type EventPublisher struct {
	client  Publisher
	topics  mqtt.Topics
	metrics *metrics.Metrics
}

// NewEventPublisher 创建客房事件发布器
func NewEventPublisher(client Publisher, topics mqtt.Topics, m *metrics.Metrics) *EventPublisher {
	return &EventPublisher{client: client, topics: topics, metrics: m}
}

// Publish 发布事件，并以保留消息更新房态
func (p *EventPublisher) Publish(ctx context.Context, event hotel.RoomEvent) error {
	if event.RoomNumber == "" {
		return fmt.Errorf("room event %s without room number", event.Type)
	}
	at := event.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}
	ts := at.UTC().Format(time.RFC3339)

	err := p.client.Publish(ctx, p.topics.RoomEvents(event.RoomNumber), roomEventMessage{
		Type:          string(event.Type),
		RoomID:        event.RoomID,
		RoomNumber:    event.RoomNumber,
		Status:        event.Status,
		ReservationID: event.ReservationID,
		OccurredAt:    ts,
	}, false)
	p.metrics.RecordMQTTMessage("room_event", err)
	if err != nil {
		return err
	}

	if event.Status == "" {
		return nil
	}
	err = p.client.Publish(ctx, p.topics.RoomStatus(event.RoomNumber), roomStatusMessage{
		Status:    event.Status,
		UpdatedAt: ts,
	}, true)
	p.metrics.RecordMQTTMessage("room_status", err)
	return err
}
