package hotel

import (
	"context"
	"time"

	"github.com/dumeirei/hotel-reservation-backend/internal/common/errors"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/utils"
)

// maxReportDays 报表最大跨度
const maxReportDays = 366

// OccupancyDay 单日入住情况
type OccupancyDay struct {
	Date           string  `json:"date"`
	TotalRooms     int64   `json:"total_rooms"`
	OccupiedRooms  int64   `json:"occupied_rooms"`
	AvailableRooms int64   `json:"available_rooms"`
	OccupancyRate  float64 `json:"occupancy_rate"`
}

// OccupancyReport 入住率报表
type OccupancyReport struct {
	StartDate            string         `json:"start_date"`
	EndDate              string         `json:"end_date"`
	TotalRooms           int64          `json:"total_rooms"`
	Days                 int            `json:"days"`
	AverageOccupancyRate float64        `json:"average_occupancy_rate"`
	Daily                []OccupancyDay `json:"daily"`
}

// CategoryRevenueInfo 房型收入
type CategoryRevenueInfo struct {
	CategoryID   int64   `json:"category_id"`
	CategoryName string  `json:"category_name"`
	Reservations int64   `json:"reservations"`
	Revenue      float64 `json:"revenue"`
}

// RevenueReport 收入报表
type RevenueReport struct {
	StartDate         string                 `json:"start_date"`
	EndDate           string                 `json:"end_date"`
	TotalReservations int64                  `json:"total_reservations"`
	TotalRevenue      float64                `json:"total_revenue"`
	CollectedPayments float64                `json:"collected_payments"`
	ByCategory        []*CategoryRevenueInfo `json:"by_category"`
}

// reportRange 校验报表区间，起止日期均包含在内
func reportRange(start, end time.Time) (time.Time, time.Time, error) {
	if start.IsZero() || end.IsZero() {
		return time.Time{}, time.Time{}, errors.ErrInvalidDate.WithMessage("请指定报表起止日期")
	}
	start, end = utils.NormalizeDate(start), utils.NormalizeDate(end)
	if !end.After(start) {
		return time.Time{}, time.Time{}, errors.ErrInvalidDateRange
	}
	if utils.DaysBetween(start, end) >= maxReportDays {
		return time.Time{}, time.Time{}, errors.ErrInvalidDateRange.WithMessagef("报表跨度不能超过 %d 天", maxReportDays)
	}
	return start, end, nil
}

// OccupancyReport 按天统计 [start, end] 内的入住率，未取消的预订均计为占用
func (s *RoomService) OccupancyReport(ctx context.Context, start, end time.Time) (*OccupancyReport, error) {
	start, end, err := reportRange(start, end)
	if err != nil {
		return nil, err
	}

	counts, err := s.roomRepo.CountByStatus(ctx)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	var totalRooms int64
	for _, c := range counts {
		totalRooms += c.Count
	}

	stays, err := s.reservationRepo.ListStaysBetween(ctx, start, utils.AddDays(end, 1))
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	report := &OccupancyReport{
		StartDate:  utils.FormatDate(start),
		EndDate:    utils.FormatDate(end),
		TotalRooms: totalRooms,
	}
	var occupiedSum int64
	for d := start; !d.After(end); d = utils.AddDays(d, 1) {
		rooms := make(map[int64]struct{})
		for _, st := range stays {
			if !utils.NormalizeDate(st.CheckInDate).After(d) && utils.NormalizeDate(st.CheckOutDate).After(d) {
				rooms[st.RoomID] = struct{}{}
			}
		}
		occupied := int64(len(rooms))
		day := OccupancyDay{
			Date:           utils.FormatDate(d),
			TotalRooms:     totalRooms,
			OccupiedRooms:  occupied,
			AvailableRooms: totalRooms - occupied,
		}
		if totalRooms > 0 {
			day.OccupancyRate = utils.RoundMoney(float64(occupied) / float64(totalRooms) * 100)
		}
		occupiedSum += occupied
		report.Daily = append(report.Daily, day)
	}
	report.Days = len(report.Daily)
	if roomDays := totalRooms * int64(report.Days); roomDays > 0 {
		report.AverageOccupancyRate = utils.RoundMoney(float64(occupiedSum) / float64(roomDays) * 100)
	}
	return report, nil
}

// RevenueReport 统计退房日期在 [start, end] 内的已退房预订收入，以及同期实收款
func (s *RoomService) RevenueReport(ctx context.Context, start, end time.Time) (*RevenueReport, error) {
	start, end, err := reportRange(start, end)
	if err != nil {
		return nil, err
	}

	rows, err := s.reservationRepo.RevenueByCategory(ctx, start, end)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	// 收款时间按酒店时区的自然日划分
	from := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, s.loc)
	to := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, s.loc).AddDate(0, 0, 1)
	collected, err := s.paymentRepo.SumBetween(ctx, from.UTC(), to.UTC())
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	report := &RevenueReport{
		StartDate:         utils.FormatDate(start),
		EndDate:           utils.FormatDate(end),
		CollectedPayments: utils.RoundMoney(collected),
		ByCategory:        make([]*CategoryRevenueInfo, 0, len(rows)),
	}
	var total float64
	for _, r := range rows {
		report.TotalReservations += r.Reservations
		total += r.Revenue
		report.ByCategory = append(report.ByCategory, &CategoryRevenueInfo{
			CategoryID:   r.CategoryID,
			CategoryName: r.CategoryName,
			Reservations: r.Reservations,
			Revenue:      utils.RoundMoney(r.Revenue),
		})
	}
	report.TotalRevenue = utils.RoundMoney(total)
	return report, nil
}
