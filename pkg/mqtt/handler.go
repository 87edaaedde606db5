package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// HousekeepingReport 客房终端上报的清洁状态
type HousekeepingReport struct {
	Status    string `json:"status"`
	Reporter  string `json:"reporter,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// StatusUpdater 处理清洁上报
type StatusUpdater interface {
	UpdateStatusByNumber(ctx context.Context, roomNumber, status, reporter string) error
}

// subscriber 订阅能力，*Client 实现
type subscriber interface {
	Subscribe(filter string, handler MessageHandler) error
	Unsubscribe(filters ...string) error
}

// HousekeepingListener 订阅客房清洁上报并更新房态
type HousekeepingListener struct {
	client  subscriber
	topics  Topics
	updater StatusUpdater
	timeout time.Duration
	log     *zap.Logger
}

// NewHousekeepingListener 创建清洁上报监听器
func NewHousekeepingListener(client subscriber, topics Topics, updater StatusUpdater, log *zap.Logger) *HousekeepingListener {
	if log == nil {
		log = zap.NewNop()
	}
	return &HousekeepingListener{
		client:  client,
		topics:  topics,
		updater: updater,
		timeout: 5 * time.Second,
		log:     log.Named("housekeeping"),
	}
}

// Start 开始订阅
func (l *HousekeepingListener) Start() error {
	if err := l.client.Subscribe(l.topics.HousekeepingReports(), l.handle); err != nil {
		return fmt.Errorf("subscribe housekeeping topic error: %w", err)
	}
	return nil
}

// Stop 取消订阅
func (l *HousekeepingListener) Stop() error {
	return l.client.Unsubscribe(l.topics.HousekeepingReports())
}

// handle 处理单条上报
func (l *HousekeepingListener) handle(topic string, payload []byte) {
	if err := l.process(topic, payload); err != nil {
		l.log.Warn("housekeeping report rejected", zap.String("topic", topic), zap.Error(err))
	}
}

func (l *HousekeepingListener) process(topic string, payload []byte) error {
	roomNumber := RoomNumberFromTopic(topic)
	if roomNumber == "" {
		return fmt.Errorf("invalid housekeeping topic")
	}

	var report HousekeepingReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return fmt.Errorf("parse housekeeping report: %w", err)
	}
	report.Status = strings.TrimSpace(report.Status)
	if report.Status == "" {
		return fmt.Errorf("missing status")
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	return l.updater.UpdateStatusByNumber(ctx, roomNumber, report.Status, report.Reporter)
}
