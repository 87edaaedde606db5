package hotel

import (
	"encoding/json"
	"time"

	"github.com/dumeirei/hotel-reservation-backend/internal/common/utils"
	"github.com/dumeirei/hotel-reservation-backend/internal/models"
)

// CategoryInfo 房型信息
type CategoryInfo struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	BasePrice    float64 `json:"base_price"`
	MaxOccupancy int     `json:"max_occupancy"`
	Description  string  `json:"description,omitempty"`
	Amenities    string  `json:"amenities,omitempty"`
	IsActive     bool    `json:"is_active"`
}

// RoomInfo 房间信息
type RoomInfo struct {
	ID         int64         `json:"id"`
	RoomNumber string        `json:"room_number"`
	Floor      int           `json:"floor"`
	Status     string        `json:"status"`
	IsActive   bool          `json:"is_active"`
	Category   *CategoryInfo `json:"category,omitempty"`
}

// GuestSummary 客人摘要
type GuestSummary struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

// PaymentInfo 付款记录
type PaymentInfo struct {
	ID     int64     `json:"id"`
	Amount float64   `json:"amount"`
	Method string    `json:"method"`
	Status string    `json:"status"`
	PaidAt time.Time `json:"paid_at"`
}

// ReservationInfo 预订信息
type ReservationInfo struct {
	ID              int64          `json:"id"`
	Status          string         `json:"status"`
	Room            *RoomInfo      `json:"room,omitempty"`
	Guest           *GuestSummary  `json:"guest,omitempty"`
	CheckInDate     string         `json:"check_in_date"`
	CheckOutDate    string         `json:"check_out_date"`
	Nights          int            `json:"nights"`
	Occupants       int            `json:"occupants"`
	TotalPrice      float64        `json:"total_price"`
	PriceBreakdown  []NightlyRate  `json:"price_breakdown,omitempty"`
	SpecialRequests string         `json:"special_requests,omitempty"`
	CreatedBy       int64          `json:"created_by"`
	CheckedInAt     *time.Time     `json:"checked_in_at,omitempty"`
	CheckedOutAt    *time.Time     `json:"checked_out_at,omitempty"`
	CancelledAt     *time.Time     `json:"cancelled_at,omitempty"`
	Payments        []*PaymentInfo `json:"payments,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

func toCategoryInfo(c *models.RoomCategory) *CategoryInfo {
	if c == nil {
		return nil
	}
	return &CategoryInfo{
		ID:           c.ID,
		Name:         c.Name,
		BasePrice:    c.BasePrice,
		MaxOccupancy: c.MaxOccupancy,
		Description:  utils.SafeString(c.Description),
		Amenities:    utils.SafeString(c.Amenities),
		IsActive:     c.IsActive,
	}
}

func toRoomInfo(r *models.Room) *RoomInfo {
	if r == nil {
		return nil
	}
	return &RoomInfo{
		ID:         r.ID,
		RoomNumber: r.RoomNumber,
		Floor:      r.Floor,
		Status:     string(r.Status),
		IsActive:   r.IsActive,
		Category:   toCategoryInfo(r.Category),
	}
}

func toRoomInfos(rooms []*models.Room) []*RoomInfo {
	result := make([]*RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		result = append(result, toRoomInfo(r))
	}
	return result
}

func toPaymentInfo(p *models.Payment) *PaymentInfo {
	return &PaymentInfo{
		ID:     p.ID,
		Amount: p.Amount,
		Method: string(p.Method),
		Status: p.Status,
		PaidAt: p.PaidAt,
	}
}

func toReservationInfo(r *models.Reservation) *ReservationInfo {
	info := &ReservationInfo{
		ID:              r.ID,
		Status:          string(r.Status),
		Room:            toRoomInfo(r.Room),
		CheckInDate:     utils.FormatDate(r.CheckInDate),
		CheckOutDate:    utils.FormatDate(r.CheckOutDate),
		Nights:          r.Nights(),
		Occupants:       r.Occupants,
		TotalPrice:      r.TotalPrice,
		SpecialRequests: utils.SafeString(r.SpecialRequests),
		CreatedBy:       r.CreatedBy,
		CheckedInAt:     r.CheckedInAt,
		CheckedOutAt:    r.CheckedOutAt,
		CancelledAt:     r.CancelledAt,
		CreatedAt:       r.CreatedAt,
	}
	if r.Guest != nil {
		info.Guest = &GuestSummary{
			ID:    r.Guest.ID,
			Name:  r.Guest.Name,
			Phone: r.Guest.Phone,
			Email: utils.SafeString(r.Guest.Email),
		}
	}
	if len(r.PriceBreakdown) > 0 {
		_ = json.Unmarshal(r.PriceBreakdown, &info.PriceBreakdown)
	}
	return info
}

func toSnapshot(r *models.Reservation) ReservationSnapshot {
	snap := ReservationSnapshot{
		ReservationID: r.ID,
		CheckInDate:   utils.FormatDate(r.CheckInDate),
		CheckOutDate:  utils.FormatDate(r.CheckOutDate),
		Nights:        r.Nights(),
		Occupants:     r.Occupants,
		TotalPrice:    r.TotalPrice,
		Status:        string(r.Status),
	}
	if r.Guest != nil {
		snap.GuestName = r.Guest.Name
		snap.GuestPhone = r.Guest.Phone
	}
	if r.Room != nil {
		snap.RoomNumber = r.Room.RoomNumber
		if r.Room.Category != nil {
			snap.CategoryName = r.Room.Category.Name
		}
	}
	return snap
}
