// Package errors 定义业务错误码和错误处理
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind 错误类别，决定调用方如何处理以及 HTTP 状态码
type Kind string

const (
	KindValidation   Kind = "validation"
	KindConflict     Kind = "conflict"
	KindNotFound     Kind = "not_found"
	KindState        Kind = "state"
	KindDependency   Kind = "dependency"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindRateLimited  Kind = "rate_limited"
	KindInternal     Kind = "internal"
)

// AppError 应用错误
type AppError struct {
	Code    int    `json:"code"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 实现 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码比较，使 errors.Is(err, ErrXxx) 对 WithMessage 派生的错误同样成立
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New 创建新的应用错误
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Kind:    KindInternal,
		Message: message,
	}
}

// NewKind 创建指定类别的应用错误
func NewKind(kind Kind, code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: message,
	}
}

// Wrap 包装错误
func Wrap(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Kind:    KindInternal,
		Message: message,
		Err:     err,
	}
}

// WithMessage 修改错误消息
func (e *AppError) WithMessage(message string) *AppError {
	return &AppError{
		Code:    e.Code,
		Kind:    e.Kind,
		Message: message,
		Err:     e.Err,
	}
}

// WithMessagef 使用格式化字符串修改错误消息
func (e *AppError) WithMessagef(format string, args ...interface{}) *AppError {
	return e.WithMessage(fmt.Sprintf(format, args...))
}

// WithError 添加原始错误
func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:    e.Code,
		Kind:    e.Kind,
		Message: e.Message,
		Err:     err,
	}
}

// 通用错误码 (1000-1999)
var (
	ErrUnknown         = New(1000, "未知错误")
	ErrInvalidParams   = NewKind(KindValidation, 1001, "参数错误")
	ErrNotFound        = NewKind(KindNotFound, 1002, "资源不存在")
	ErrAlreadyExists   = NewKind(KindConflict, 1003, "资源已存在")
	ErrDatabaseError   = New(1004, "数据库错误")
	ErrCacheError      = New(1005, "缓存错误")
	ErrInternalError   = New(1006, "内部错误")
	ErrExternalService = NewKind(KindDependency, 1007, "外部服务错误")
	ErrRateLimitExceed = NewKind(KindRateLimited, 1008, "请求过于频繁")
)

// 认证错误码 (2000-2999)
var (
	ErrUnauthorized     = NewKind(KindUnauthorized, 2000, "未登录")
	ErrTokenExpired     = NewKind(KindUnauthorized, 2001, "登录已过期")
	ErrTokenInvalid     = NewKind(KindUnauthorized, 2002, "无效的令牌")
	ErrSessionRevoked   = NewKind(KindUnauthorized, 2003, "会话已失效")
	ErrPermissionDenied = NewKind(KindForbidden, 2004, "权限不足")
	ErrAccountDisabled  = NewKind(KindForbidden, 2005, "账号已禁用")
	ErrPasswordError    = NewKind(KindUnauthorized, 2007, "用户名或密码错误")
)

// 员工错误码 (3000-3999)
var (
	ErrStaffNotFound = NewKind(KindNotFound, 3000, "员工不存在")
	ErrStaffExists   = NewKind(KindConflict, 3001, "用户名已存在")
	ErrRoleInvalid   = NewKind(KindValidation, 3002, "无效的角色")
)

// 客房错误码 (4000-4999)
var (
	ErrRoomNotFound        = NewKind(KindNotFound, 4000, "房间不存在")
	ErrRoomNotClean        = NewKind(KindState, 4001, "房间未清洁，暂不可预订")
	ErrRoomNumberExists    = NewKind(KindConflict, 4002, "房间号已存在")
	ErrRoomHasReservations = NewKind(KindState, 4003, "房间存在有效预订")
	ErrRoomStatusInvalid   = NewKind(KindValidation, 4004, "无效的房间状态")
	ErrCategoryNotFound    = NewKind(KindNotFound, 4010, "房型不存在")
	ErrCategoryExists      = NewKind(KindConflict, 4011, "房型名称已存在")
	ErrCategoryInvalid     = NewKind(KindValidation, 4012, "房型参数错误")
)

// 价格规则错误码 (5000-5999)
var (
	ErrRateRuleNotFound = NewKind(KindNotFound, 5000, "价格规则不存在")
	ErrRateRuleConflict = NewKind(KindConflict, 5001, "与已有价格规则日期重叠")
	ErrRateRuleInvalid  = NewKind(KindValidation, 5002, "价格规则参数错误")
)

// 客人错误码 (6000-6999)
var (
	ErrGuestNotFound    = NewKind(KindNotFound, 6000, "客人不存在")
	ErrGuestInfoInvalid = NewKind(KindValidation, 6001, "客人信息不完整")
)

// 预订错误码 (8000-8999)
var (
	ErrReservationNotFound    = NewKind(KindNotFound, 8000, "预订不存在")
	ErrReservationStatus      = NewKind(KindState, 8001, "预订状态不允许该操作")
	ErrReservationConflict    = NewKind(KindConflict, 8002, "房间在该时段已被预订")
	ErrAlreadyCancelled       = NewKind(KindState, 8003, "预订已取消")
	ErrMustCheckOutFirst      = NewKind(KindState, 8004, "客人已入住，需先办理退房")
	ErrCheckInTooEarly        = NewKind(KindState, 8005, "尚未到可入住日期")
	ErrModifyAfterCheckInDate = NewKind(KindState, 8006, "已到入住日期，无法修改预订")
	ErrInvalidDateRange       = NewKind(KindValidation, 8010, "退房日期必须晚于入住日期")
	ErrCheckInDatePassed      = NewKind(KindValidation, 8011, "入住日期不能早于今天")
	ErrInvalidDate            = NewKind(KindValidation, 8012, "无效的日期")
	ErrOccupantsInvalid       = NewKind(KindValidation, 8013, "入住人数超出范围")
	ErrNothingToModify        = NewKind(KindValidation, 8014, "没有需要修改的内容")
	ErrPaymentMethodInvalid   = NewKind(KindValidation, 8015, "不支持的支付方式")
	ErrPaymentAmountInvalid   = NewKind(KindValidation, 8016, "支付金额无效")
)

// IsAppError 判断是否为应用错误
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetAppError 获取应用错误
func GetAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return ErrUnknown.WithError(err)
}

// KindOf 返回错误类别，非应用错误归为 KindInternal
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is 透传标准库 errors.Is
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}
