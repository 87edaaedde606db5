package hotel

import (
	"context"
	"time"
)

// GuestInfo 客人信息，按手机号去重
type GuestInfo struct {
	Name     string `json:"name" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	Email    string `json:"email,omitempty"`
	IDNumber string `json:"id_number,omitempty"`
	Address  string `json:"address,omitempty"`
}

// GuestResolver 客人档案解析，按手机号幂等地查找或创建
type GuestResolver interface {
	GetOrCreate(ctx context.Context, info GuestInfo) (int64, error)
}

// NotificationKind 通知类型
type NotificationKind string

const (
	NotificationConfirmation NotificationKind = "confirmation"
	NotificationModification NotificationKind = "modification"
	NotificationCancellation NotificationKind = "cancellation"
)

// ReservationSnapshot 通知使用的预订快照
type ReservationSnapshot struct {
	ReservationID int64   `json:"reservation_id"`
	GuestName     string  `json:"guest_name"`
	GuestPhone    string  `json:"guest_phone"`
	RoomNumber    string  `json:"room_number"`
	CategoryName  string  `json:"category_name"`
	CheckInDate   string  `json:"check_in_date"`
	CheckOutDate  string  `json:"check_out_date"`
	Nights        int     `json:"nights"`
	Occupants     int     `json:"occupants"`
	TotalPrice    float64 `json:"total_price"`
	Status        string  `json:"status"`
}

// Notifier 客人通知，失败不影响业务结果
type Notifier interface {
	Notify(ctx context.Context, kind NotificationKind, snapshot ReservationSnapshot) error
}

// AuditEntry 审计记录
type AuditEntry struct {
	UserID        int64
	OperationType string
	EntityTable   string
	EntityID      int64
	Before        interface{}
	Description   string
	IP            string
}

// AuditRecorder 审计日志写入
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// RoomEventType 房间事件类型
type RoomEventType string

const (
	RoomEventCheckIn       RoomEventType = "check_in"
	RoomEventCheckOut      RoomEventType = "check_out"
	RoomEventStatusChanged RoomEventType = "status_changed"
)

// RoomEvent 房间占用/清洁状态事件
type RoomEvent struct {
	Type          RoomEventType `json:"type"`
	RoomID        int64         `json:"room_id"`
	RoomNumber    string        `json:"room_number"`
	Status        string        `json:"status"`
	ReservationID int64         `json:"reservation_id,omitempty"`
	OccurredAt    time.Time     `json:"occurred_at"`
}

// EventPublisher 房间事件发布
type EventPublisher interface {
	Publish(ctx context.Context, event RoomEvent) error
}

// Clock 当前时间来源
type Clock func() time.Time

type clientIPKey struct{}

// WithClientIP 在上下文中携带客户端 IP，供审计记录使用
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// ClientIP 从上下文读取客户端 IP
func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}
