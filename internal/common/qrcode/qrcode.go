// Package qrcode 生成预订确认二维码
package qrcode

import (
	"encoding/base64"
	"fmt"
	"image"
	"strconv"
	"strings"
	"time"

	"github.com/skip2/go-qrcode"
)

// ContentPrefix 预订确认码内容前缀
const ContentPrefix = "HOTEL-RES"

const contentDateLayout = "20060102"

// RecoveryLevel 纠错级别
type RecoveryLevel int

const (
	// Low 7% 纠错
	Low RecoveryLevel = iota
	// Medium 15% 纠错
	Medium
	// High 25% 纠错
	High
	// Highest 30% 纠错
	Highest
)

// Generator 二维码生成器
type Generator struct {
	size          int
	recoveryLevel RecoveryLevel
}

// Option 生成器选项
type Option func(*Generator)

// WithSize 设置二维码尺寸（像素）
func WithSize(size int) Option {
	return func(g *Generator) {
		g.size = size
	}
}

// WithRecoveryLevel 设置纠错级别
func WithRecoveryLevel(level RecoveryLevel) Option {
	return func(g *Generator) {
		g.recoveryLevel = level
	}
}

// NewGenerator 创建二维码生成器，默认 256 像素、中等纠错
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		size:          256,
		recoveryLevel: Medium,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) toQRCodeLevel() qrcode.RecoveryLevel {
	switch g.recoveryLevel {
	case Low:
		return qrcode.Low
	case High:
		return qrcode.High
	case Highest:
		return qrcode.Highest
	default:
		return qrcode.Medium
	}
}

// Generate 生成二维码图片
func (g *Generator) Generate(content string) (image.Image, error) {
	qr, err := qrcode.New(content, g.toQRCodeLevel())
	if err != nil {
		return nil, fmt.Errorf("创建二维码失败: %w", err)
	}
	return qr.Image(g.size), nil
}

// GeneratePNG 生成 PNG 格式二维码
func (g *Generator) GeneratePNG(content string) ([]byte, error) {
	return qrcode.Encode(content, g.toQRCodeLevel(), g.size)
}

// GenerateDataURL 生成 Data URL 格式的二维码
func (g *Generator) GenerateDataURL(content string) (string, error) {
	data, err := g.GeneratePNG(content)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data), nil
}

// ReservationPNG 生成预订确认码
func (g *Generator) ReservationPNG(reservationID int64, checkIn time.Time) ([]byte, error) {
	return g.GeneratePNG(ReservationContent(reservationID, checkIn))
}

// ReservationContent 预订确认码内容，格式 HOTEL-RES:<id>:<YYYYMMDD>
func ReservationContent(reservationID int64, checkIn time.Time) string {
	return fmt.Sprintf("%s:%d:%s", ContentPrefix, reservationID, checkIn.Format(contentDateLayout))
}

// ParseReservationContent 解析前台扫码得到的内容
func ParseReservationContent(content string) (int64, time.Time, error) {
	parts := strings.Split(content, ":")
	if len(parts) != 3 || parts[0] != ContentPrefix {
		return 0, time.Time{}, fmt.Errorf("不是预订确认码: %q", content)
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || id <= 0 {
		return 0, time.Time{}, fmt.Errorf("预订ID无效: %q", parts[1])
	}
	checkIn, err := time.Parse(contentDateLayout, parts[2])
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("入住日期无效: %w", err)
	}
	return id, checkIn, nil
}
