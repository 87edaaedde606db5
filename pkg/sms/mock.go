package sms

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MockMessage 模拟消息
type MockMessage struct {
	Phone    string
	Template string
	Params   map[string]string
	SentAt   time.Time
}

// MockSender 模拟短信发送器（开发环境与测试），只记录和打印日志
type MockSender struct {
	mu       sync.Mutex
	log      *zap.Logger
	messages []MockMessage
	// Err 非 nil 时 Send 返回该错误
	Err error
}

// NewMockSender 创建模拟发送器
func NewMockSender(log *zap.Logger) *MockSender {
	if log == nil {
		log = zap.NewNop()
	}
	return &MockSender{log: log.Named("mock_sms")}
}

// Send 模拟发送
func (s *MockSender) Send(ctx context.Context, phone, template string, params map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return s.Err
	}
	s.messages = append(s.messages, MockMessage{
		Phone:    phone,
		Template: template,
		Params:   params,
		SentAt:   time.Now(),
	})
	s.log.Info("sms sent", zap.String("phone", phone), zap.String("template", template), zap.Any("params", params))
	return nil
}

// Messages 已发送消息的副本
func (s *MockSender) Messages() []MockMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]MockMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// LastMessage 获取最后发送的消息
func (s *MockSender) LastMessage() *MockMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		return nil
	}
	m := s.messages[len(s.messages)-1]
	return &m
}

// Clear 清空消息记录
func (s *MockSender) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}
