package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// RoomCategory 房型
type RoomCategory struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	BasePrice    float64   `gorm:"type:decimal(10,2);not null" json:"base_price"`
	MaxOccupancy int       `gorm:"not null;default:2" json:"max_occupancy"`
	Description  *string   `gorm:"type:text" json:"description,omitempty"`
	Amenities    *string   `gorm:"type:text" json:"amenities,omitempty"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 表名
func (RoomCategory) TableName() string {
	return "room_categories"
}

// HousekeepingStatus 房间清洁/占用状态
type HousekeepingStatus string

const (
	RoomStatusClean       HousekeepingStatus = "Clean"       // 已清洁，可预订
	RoomStatusDirty       HousekeepingStatus = "Dirty"       // 待清洁
	RoomStatusOccupied    HousekeepingStatus = "Occupied"    // 已入住
	RoomStatusMaintenance HousekeepingStatus = "Maintenance" // 维修中
)

// ParseHousekeepingStatus 解析房间状态，未知值返回错误
func ParseHousekeepingStatus(s string) (HousekeepingStatus, error) {
	switch st := HousekeepingStatus(s); st {
	case RoomStatusClean, RoomStatusDirty, RoomStatusOccupied, RoomStatusMaintenance:
		return st, nil
	}
	return "", fmt.Errorf("unknown housekeeping status %q", s)
}

// Room 房间
type Room struct {
	ID         int64              `gorm:"primaryKey;autoIncrement" json:"id"`
	RoomNumber string             `gorm:"type:varchar(20);uniqueIndex;not null" json:"room_number"`
	CategoryID int64              `gorm:"index;not null" json:"category_id"`
	Floor      int                `gorm:"not null;default:1" json:"floor"`
	Status     HousekeepingStatus `gorm:"type:varchar(20);not null;default:'Clean';index" json:"status"`
	IsActive   bool               `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time          `gorm:"autoUpdateTime" json:"updated_at"`

	// 关联
	Category *RoomCategory `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

// TableName 表名
func (Room) TableName() string {
	return "rooms"
}

// IsBookable 房间是否可预订
func (r *Room) IsBookable() bool {
	return r.IsActive && r.Status == RoomStatusClean
}

// SeasonalRateRule 季节性价格规则，start/end 均为闭区间
type SeasonalRateRule struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CategoryID int64     `gorm:"index:idx_rate_rule_category_range;not null" json:"category_id"`
	Label      string    `gorm:"type:varchar(100);not null" json:"label"`
	StartDate  time.Time `gorm:"type:date;index:idx_rate_rule_category_range;not null" json:"start_date"`
	EndDate    time.Time `gorm:"type:date;index:idx_rate_rule_category_range;not null" json:"end_date"`
	Multiplier *float64  `gorm:"type:decimal(6,3)" json:"multiplier,omitempty"`
	FixedPrice *float64  `gorm:"type:decimal(10,2)" json:"fixed_price,omitempty"`
	IsActive   bool      `gorm:"not null;default:true;index" json:"is_active"`
	CreatedBy  int64     `gorm:"not null;default:0" json:"created_by"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// 关联
	Category *RoomCategory `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

// TableName 表名
func (SeasonalRateRule) TableName() string {
	return "seasonal_rate_rules"
}

// Covers 规则是否覆盖指定日期
func (r *SeasonalRateRule) Covers(date time.Time) bool {
	return !date.Before(r.StartDate) && !date.After(r.EndDate)
}

// ReservationStatus 预订状态
type ReservationStatus string

const (
	ReservationStatusConfirmed  ReservationStatus = "Confirmed"  // 已确认
	ReservationStatusCheckedIn  ReservationStatus = "CheckedIn"  // 已入住
	ReservationStatusCheckedOut ReservationStatus = "CheckedOut" // 已退房
	ReservationStatusCancelled  ReservationStatus = "Cancelled"  // 已取消
)

// ActiveReservationStatuses 占用房间的预订状态
var ActiveReservationStatuses = []ReservationStatus{
	ReservationStatusConfirmed,
	ReservationStatusCheckedIn,
}

// ParseReservationStatus 解析预订状态，未知值返回错误
func ParseReservationStatus(s string) (ReservationStatus, error) {
	switch st := ReservationStatus(s); st {
	case ReservationStatusConfirmed, ReservationStatusCheckedIn, ReservationStatusCheckedOut, ReservationStatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown reservation status %q", s)
}

// IsTerminal 是否为终态
func (s ReservationStatus) IsTerminal() bool {
	return s == ReservationStatusCheckedOut || s == ReservationStatusCancelled
}

// Reservation 预订，check_out_date 当晚不计费
type Reservation struct {
	ID              int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	RoomID          int64             `gorm:"index:idx_reservation_room_dates;not null" json:"room_id"`
	GuestID         int64             `gorm:"index;not null" json:"guest_id"`
	CheckInDate     time.Time         `gorm:"type:date;index:idx_reservation_room_dates;not null" json:"check_in_date"`
	CheckOutDate    time.Time         `gorm:"type:date;index:idx_reservation_room_dates;not null" json:"check_out_date"`
	Occupants       int               `gorm:"not null;default:1" json:"occupants"`
	TotalPrice      float64           `gorm:"type:decimal(10,2);not null" json:"total_price"`
	PriceBreakdown  datatypes.JSON    `json:"price_breakdown,omitempty"`
	SpecialRequests *string           `gorm:"type:text" json:"special_requests,omitempty"`
	Status          ReservationStatus `gorm:"type:varchar(20);not null;default:'Confirmed';index" json:"status"`
	CreatedBy       int64             `gorm:"not null" json:"created_by"`
	CheckedInAt     *time.Time        `json:"checked_in_at,omitempty"`
	CheckedOutAt    *time.Time        `json:"checked_out_at,omitempty"`
	CancelledAt     *time.Time        `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"autoUpdateTime" json:"updated_at"`

	// 关联
	Room  *Room  `gorm:"foreignKey:RoomID" json:"room,omitempty"`
	Guest *Guest `gorm:"foreignKey:GuestID" json:"guest,omitempty"`
}

// TableName 表名
func (Reservation) TableName() string {
	return "reservations"
}

// Nights 入住晚数
func (r *Reservation) Nights() int {
	return int(r.CheckOutDate.Sub(r.CheckInDate).Hours() / 24)
}

// Guest 客人，按手机号去重
type Guest struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	Phone     string    `gorm:"type:varchar(20);uniqueIndex;not null" json:"phone"`
	Email     *string   `gorm:"type:varchar(100)" json:"email,omitempty"`
	IDNumber  *string   `gorm:"type:varchar(50)" json:"id_number,omitempty"`
	Address   *string   `gorm:"type:varchar(255)" json:"address,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 表名
func (Guest) TableName() string {
	return "guests"
}

// PaymentMethod 支付方式
type PaymentMethod string

const (
	PaymentMethodCash           PaymentMethod = "Cash"
	PaymentMethodCreditCard     PaymentMethod = "CreditCard"
	PaymentMethodDebitCard      PaymentMethod = "DebitCard"
	PaymentMethodOnlineTransfer PaymentMethod = "OnlineTransfer"
)

// ParsePaymentMethod 解析支付方式，未知值返回错误
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(s); m {
	case PaymentMethodCash, PaymentMethodCreditCard, PaymentMethodDebitCard, PaymentMethodOnlineTransfer:
		return m, nil
	}
	return "", fmt.Errorf("unknown payment method %q", s)
}

// PaymentStatusPaid 已支付
const PaymentStatusPaid = "Paid"

// Payment 退房时登记的付款记录，只追加
type Payment struct {
	ID            int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	ReservationID int64         `gorm:"index;not null" json:"reservation_id"`
	Amount        float64       `gorm:"type:decimal(10,2);not null" json:"amount"`
	Method        PaymentMethod `gorm:"type:varchar(20);not null" json:"method"`
	Status        string        `gorm:"type:varchar(20);not null;default:'Paid'" json:"status"`
	ProcessedBy   int64         `gorm:"not null" json:"processed_by"`
	PaidAt        time.Time     `gorm:"not null" json:"paid_at"`
	CreatedAt     time.Time     `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 表名
func (Payment) TableName() string {
	return "payments"
}
