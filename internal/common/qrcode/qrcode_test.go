package qrcode

import (
	"bytes"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==================== Generator 测试 ====================

func TestNewGenerator(t *testing.T) {
	gen := NewGenerator()
	assert.Equal(t, 256, gen.size)
	assert.Equal(t, Medium, gen.recoveryLevel)

	gen = NewGenerator(WithSize(512), WithRecoveryLevel(High))
	assert.Equal(t, 512, gen.size)
	assert.Equal(t, High, gen.recoveryLevel)
}

func TestGenerator_Generate(t *testing.T) {
	for _, size := range []int{128, 256, 512} {
		gen := NewGenerator(WithSize(size))
		img, err := gen.Generate("HOTEL-RES:1:20260205")
		require.NoError(t, err)
		bounds := img.Bounds()
		assert.Equal(t, size, bounds.Dx())
		assert.Equal(t, bounds.Dx(), bounds.Dy())
	}
}

func TestGenerator_GeneratePNG(t *testing.T) {
	gen := NewGenerator()
	data, err := gen.GeneratePNG("HOTEL-RES:1:20260205")
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 256, img.Bounds().Dx())

	// 相同内容输出一致
	again, err := gen.GeneratePNG("HOTEL-RES:1:20260205")
	require.NoError(t, err)
	assert.Equal(t, data, again)

	other, err := gen.GeneratePNG("HOTEL-RES:2:20260205")
	require.NoError(t, err)
	assert.NotEqual(t, data, other)
}

func TestGenerator_RecoveryLevels(t *testing.T) {
	for _, level := range []RecoveryLevel{Low, Medium, High, Highest} {
		data, err := NewGenerator(WithRecoveryLevel(level)).GeneratePNG("content")
		require.NoError(t, err)
		assert.NotEmpty(t, data)
	}
}

func TestGenerator_EmptyContent(t *testing.T) {
	_, err := NewGenerator().GeneratePNG("")
	assert.Error(t, err)
}

func TestGenerator_GenerateDataURL(t *testing.T) {
	url, err := NewGenerator().GenerateDataURL("x")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"))
}

// ==================== 预订确认码 测试 ====================

func TestReservationContent_RoundTrip(t *testing.T) {
	checkIn := time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC)
	content := ReservationContent(42, checkIn)
	assert.Equal(t, "HOTEL-RES:42:20260205", content)

	id, got, err := ParseReservationContent(content)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.True(t, got.Equal(checkIn))
}

func TestParseReservationContent_Invalid(t *testing.T) {
	tests := []string{
		"",
		"HOTEL-RES:42",
		"OTHER:42:20260205",
		"HOTEL-RES:abc:20260205",
		"HOTEL-RES:0:20260205",
		"HOTEL-RES:42:2026-02-05",
	}
	for _, content := range tests {
		t.Run(content, func(t *testing.T) {
			_, _, err := ParseReservationContent(content)
			assert.Error(t, err)
		})
	}
}

func TestGenerator_ReservationPNG(t *testing.T) {
	gen := NewGenerator(WithSize(200))
	data, err := gen.ReservationPNG(7, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
}
