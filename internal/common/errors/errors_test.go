// Package errors 错误码和错误处理单元测试
package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==================== AppError 基础测试 ====================

func TestNew(t *testing.T) {
	err := New(1001, "参数错误")
	require.NotNil(t, err)
	assert.Equal(t, 1001, err.Code)
	assert.Equal(t, KindInternal, err.Kind)
	assert.Equal(t, "参数错误", err.Message)
	assert.Nil(t, err.Err)
}

func TestNewKind(t *testing.T) {
	err := NewKind(KindConflict, 8002, "冲突")
	assert.Equal(t, KindConflict, err.Kind)
	assert.Equal(t, 8002, err.Code)
}

func TestWrap(t *testing.T) {
	originalErr := stderrors.New("database connection failed")
	err := Wrap(1004, "数据库错误", originalErr)

	require.NotNil(t, err)
	assert.Equal(t, 1004, err.Code)
	assert.Equal(t, originalErr, err.Err)
}

// ==================== AppError 方法测试 ====================

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appError *AppError
		want     string
	}{
		{
			name:     "Error without underlying error",
			appError: New(1001, "参数错误"),
			want:     "[1001] 参数错误",
		},
		{
			name:     "Error with underlying error",
			appError: Wrap(1004, "数据库错误", stderrors.New("connection timeout")),
			want:     "[1004] 数据库错误: connection timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.appError.Error())
		})
	}
}

func TestAppError_WithMessageKeepsCodeAndKind(t *testing.T) {
	err := ErrReservationConflict.WithMessagef("房间 %s 已被预订", "101")

	assert.Equal(t, ErrReservationConflict.Code, err.Code)
	assert.Equal(t, KindConflict, err.Kind)
	assert.Equal(t, "房间 101 已被预订", err.Message)
	// 原始变量不被修改
	assert.Equal(t, "房间在该时段已被预订", ErrReservationConflict.Message)
}

func TestAppError_WithError(t *testing.T) {
	cause := stderrors.New("boom")
	err := ErrDatabaseError.WithError(cause)

	assert.True(t, stderrors.Is(err, cause))
	assert.Nil(t, ErrDatabaseError.Err)
}

func TestAppError_Is(t *testing.T) {
	derived := ErrCheckInTooEarly.WithMessage("还需等待 1 天")
	wrapped := fmt.Errorf("check in: %w", derived)

	assert.True(t, Is(derived, ErrCheckInTooEarly))
	assert.True(t, Is(wrapped, ErrCheckInTooEarly))
	assert.False(t, Is(wrapped, ErrReservationStatus))
}

// ==================== 工具函数测试 ====================

func TestIsAppError(t *testing.T) {
	assert.True(t, IsAppError(ErrNotFound))
	assert.True(t, IsAppError(fmt.Errorf("wrapped: %w", ErrNotFound)))
	assert.False(t, IsAppError(stderrors.New("plain")))
	assert.False(t, IsAppError(nil))
}

func TestGetAppError(t *testing.T) {
	assert.Equal(t, ErrRoomNotFound, GetAppError(ErrRoomNotFound))

	plain := stderrors.New("plain")
	got := GetAppError(plain)
	assert.Equal(t, ErrUnknown.Code, got.Code)
	assert.Equal(t, plain, got.Err)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"validation", ErrInvalidDateRange, KindValidation},
		{"conflict", ErrRateRuleConflict, KindConflict},
		{"not found", ErrReservationNotFound, KindNotFound},
		{"state", ErrMustCheckOutFirst, KindState},
		{"dependency", ErrExternalService, KindDependency},
		{"wrapped", fmt.Errorf("x: %w", ErrOccupantsInvalid), KindValidation},
		{"plain", stderrors.New("plain"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestErrorCodesUnique(t *testing.T) {
	all := []*AppError{
		ErrUnknown, ErrInvalidParams, ErrNotFound, ErrAlreadyExists, ErrDatabaseError, ErrCacheError,
		ErrInternalError, ErrExternalService, ErrRateLimitExceed,
		ErrUnauthorized, ErrTokenExpired, ErrTokenInvalid, ErrSessionRevoked, ErrPermissionDenied,
		ErrAccountDisabled, ErrPasswordError,
		ErrStaffNotFound, ErrStaffExists, ErrRoleInvalid,
		ErrRoomNotFound, ErrRoomNotClean, ErrRoomNumberExists, ErrRoomHasReservations, ErrRoomStatusInvalid,
		ErrCategoryNotFound, ErrCategoryExists, ErrCategoryInvalid,
		ErrRateRuleNotFound, ErrRateRuleConflict, ErrRateRuleInvalid,
		ErrGuestNotFound, ErrGuestInfoInvalid,
		ErrReservationNotFound, ErrReservationStatus, ErrReservationConflict, ErrAlreadyCancelled,
		ErrMustCheckOutFirst, ErrCheckInTooEarly, ErrModifyAfterCheckInDate, ErrInvalidDateRange,
		ErrCheckInDatePassed, ErrInvalidDate, ErrOccupantsInvalid, ErrNothingToModify,
		ErrPaymentMethodInvalid, ErrPaymentAmountInvalid,
	}

	seen := make(map[int]string)
	for _, e := range all {
		if prev, ok := seen[e.Code]; ok {
			t.Fatalf("错误码 %d 重复: %s / %s", e.Code, prev, e.Message)
		}
		seen[e.Code] = e.Message
	}
}
