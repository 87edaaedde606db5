// Package utils 提供通用工具函数
package utils

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout 日期格式 YYYY-MM-DD
const DateLayout = "2006-01-02"

var (
	phonePattern    = regexp.MustCompile(`^\d{11}$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	idNumberPattern = regexp.MustCompile(`^\d{15}$|^\d{17}[\dXx]$`)
)

// ParseDate 解析 YYYY-MM-DD，返回 UTC 零点
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// FormatDate 格式化为 YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DateOf 取 t 在 loc 时区下的日历日期，返回 UTC 零点
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NormalizeDate 去掉时间部分，按 t 自身时区取日期
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddDays 日期加减天数
func AddDays(t time.Time, days int) time.Time {
	return t.AddDate(0, 0, days)
}

// DaysBetween 两个日期之间相差的天数 (to - from)
func DaysBetween(from, to time.Time) int {
	return int(math.Round(NormalizeDate(to).Sub(NormalizeDate(from)).Hours() / 24))
}

// Nights 返回 [checkIn, checkOut) 内的每一晚
func Nights(checkIn, checkOut time.Time) []time.Time {
	checkIn, checkOut = NormalizeDate(checkIn), NormalizeDate(checkOut)
	var nights []time.Time
	for d := checkIn; d.Before(checkOut); d = d.AddDate(0, 0, 1) {
		nights = append(nights, d)
	}
	return nights
}

// RangesOverlap 半开区间 [a1,b1) 与 [a2,b2) 是否重叠
func RangesOverlap(a1, b1, a2, b2 time.Time) bool {
	return a1.Before(b2) && a2.Before(b1)
}

// InclusiveRangesOverlap 闭区间 [s1,e1] 与 [s2,e2] 是否重叠
func InclusiveRangesOverlap(s1, e1, s2, e2 time.Time) bool {
	return !s1.After(e2) && !s2.After(e1)
}

// RoundMoney 金额按十进制值四舍五入到分，.5 远离零进位
func RoundMoney(amount float64) float64 {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return amount
	}
	f, _ := decimal.NewFromFloat(amount).Round(2).Float64()
	return f
}

// ValidatePhone 验证手机号
func ValidatePhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// ValidateEmail 验证邮箱
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidateIDNumber 验证证件号 (15 或 18 位)
func ValidateIDNumber(idNumber string) bool {
	return idNumberPattern.MatchString(idNumber)
}

// StringPtr 返回字符串指针
func StringPtr(s string) *string {
	return &s
}

// IntPtr 返回 int 指针
func IntPtr(i int) *int {
	return &i
}

// Int64Ptr 返回 int64 指针
func Int64Ptr(i int64) *int64 {
	return &i
}

// Float64Ptr 返回 float64 指针
func Float64Ptr(f float64) *float64 {
	return &f
}

// TimePtr 返回时间指针
func TimePtr(t time.Time) *time.Time {
	return &t
}

// SafeString 安全获取字符串值
func SafeString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// NilIfEmpty 空字符串返回 nil
func NilIfEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Pagination 分页参数
type Pagination struct {
	Page     int   `json:"page" form:"page"`
	PageSize int   `json:"page_size" form:"page_size"`
	Total    int64 `json:"total"`
}

// GetOffset 获取偏移量
func (p *Pagination) GetOffset() int {
	return (p.Page - 1) * p.PageSize
}

// Normalize 规范化分页参数
func (p *Pagination) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 10
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

// GetTotalPages 获取总页数
func (p *Pagination) GetTotalPages() int {
	if p.Total == 0 || p.PageSize == 0 {
		return 0
	}
	pages := int(p.Total) / p.PageSize
	if int(p.Total)%p.PageSize > 0 {
		pages++
	}
	return pages
}
