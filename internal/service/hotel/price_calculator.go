package hotel

import (
	"context"
	"time"

	"github.com/dumeirei/hotel-reservation-backend/internal/common/errors"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/utils"
	"github.com/dumeirei/hotel-reservation-backend/internal/repository"
)

// NightlyRate 单晚价格
type NightlyRate struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
	Label string  `json:"label,omitempty"`
}

// PriceBreakdown 逐晚价格明细
type PriceBreakdown struct {
	CategoryID   int64         `json:"category_id"`
	CheckInDate  string        `json:"check_in_date"`
	CheckOutDate string        `json:"check_out_date"`
	Nights       int           `json:"nights"`
	PerNight     []NightlyRate `json:"per_night"`
	Total        float64       `json:"total"`
}

// PriceCalculator 计价器
type PriceCalculator struct {
	rates    *RateTable
	ruleRepo *repository.RateRuleRepository
}

// NewPriceCalculator 创建计价器
func NewPriceCalculator(rates *RateTable, ruleRepo *repository.RateRuleRepository) *PriceCalculator {
	return &PriceCalculator{rates: rates, ruleRepo: ruleRepo}
}

// PriceBreakdown 计算 [checkIn, checkOut) 每一晚的价格与总价
// 单晚价格保留原始精度，总价最后统一四舍五入到分
func (p *PriceCalculator) PriceBreakdown(ctx context.Context, categoryID int64, checkIn, checkOut time.Time) (*PriceBreakdown, error) {
	if checkIn.IsZero() || checkOut.IsZero() {
		return nil, errors.ErrInvalidDate
	}
	checkIn, checkOut = utils.NormalizeDate(checkIn), utils.NormalizeDate(checkOut)
	if !checkOut.After(checkIn) {
		return nil, errors.ErrInvalidDateRange
	}

	base, err := p.rates.BaseRate(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	// 一次取出区间内的全部有效规则，逐晚按与 RateForNight 相同的规则解析
	lastNight := utils.AddDays(checkOut, -1)
	rules, err := p.ruleRepo.ListActiveInRange(ctx, categoryID, checkIn, lastNight)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	nights := utils.Nights(checkIn, checkOut)
	breakdown := &PriceBreakdown{
		CategoryID:   categoryID,
		CheckInDate:  utils.FormatDate(checkIn),
		CheckOutDate: utils.FormatDate(checkOut),
		Nights:       len(nights),
		PerNight:     make([]NightlyRate, 0, len(nights)),
	}

	var total float64
	for _, night := range nights {
		price, label := applyRule(base, latestCovering(rules, night))
		breakdown.PerNight = append(breakdown.PerNight, NightlyRate{
			Date:  utils.FormatDate(night),
			Price: price,
			Label: label,
		})
		total += price
	}
	breakdown.Total = utils.RoundMoney(total)

	return breakdown, nil
}
