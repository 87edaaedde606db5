// Package auth 提供员工认证服务
package auth

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dumeirei/hotel-reservation-backend/internal/common/cache"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/crypto"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/errors"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/jwt"
	"github.com/dumeirei/hotel-reservation-backend/internal/models"
	"github.com/dumeirei/hotel-reservation-backend/internal/repository"
	"github.com/dumeirei/hotel-reservation-backend/internal/service/hotel"
)

// SessionStore 登录会话存储，*cache.SessionStore 实现
type SessionStore interface {
	Create(ctx context.Context, session *cache.Session) error
	Exists(ctx context.Context, id string) (bool, error)
	Revoke(ctx context.Context, id string) error
	RevokeAll(ctx context.Context, userID int64) (int, error)
}

// AuthService 员工认证服务
type AuthService struct {
	staffRepo  *repository.StaffRepository
	sessions   SessionStore
	jwtManager *jwt.Manager
	hasher     *crypto.Hasher
	effects    *hotel.SideEffects
	log        *zap.Logger
	now        func() time.Time
}

// NewAuthService 创建认证服务
func NewAuthService(
	staffRepo *repository.StaffRepository,
	sessions SessionStore,
	jwtManager *jwt.Manager,
	hasher *crypto.Hasher,
	effects *hotel.SideEffects,
	log *zap.Logger,
) *AuthService {
	if hasher == nil {
		hasher = crypto.NewHasher(0)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		staffRepo:  staffRepo,
		sessions:   sessions,
		jwtManager: jwtManager,
		hasher:     hasher,
		effects:    effects,
		log:        log.Named("auth"),
		now:        time.Now,
	}
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	IP       string `json:"-"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Staff *StaffInfo `json:"staff"`
	Token *jwt.Token `json:"token"`
}

// StaffInfo 员工信息（不含敏感字段）
type StaffInfo struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	FullName    string     `json:"full_name"`
	Role        string     `json:"role"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// Login 员工登录，签发令牌并创建会话
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	staff, err := s.staffRepo.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrPasswordError
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	if !s.hasher.Verify(req.Password, staff.PasswordHash) {
		return nil, errors.ErrPasswordError
	}
	if !staff.IsActive {
		return nil, errors.ErrAccountDisabled
	}

	sessionID := uuid.NewString()
	token, err := s.jwtManager.Issue(staff.ID, staff.Role, sessionID)
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}
	if err := s.sessions.Create(ctx, &cache.Session{
		ID:        sessionID,
		UserID:    staff.ID,
		Role:      staff.Role,
		IP:        req.IP,
		CreatedAt: s.now(),
	}); err != nil {
		return nil, errors.ErrCacheError.WithError(err)
	}

	if err := s.staffRepo.UpdateLoginInfo(ctx, staff.ID, req.IP); err != nil {
		s.log.Warn("update login info failed", zap.Int64("staff_id", staff.ID), zap.Error(err))
	}
	now := s.now()
	staff.LastLoginAt = &now

	s.effects.Record(ctx, hotel.AuditEntry{
		UserID:        staff.ID,
		OperationType: models.AuditLogin,
		EntityTable:   staff.TableName(),
		EntityID:      staff.ID,
		Description:   "员工登录：" + staff.Username,
		IP:            req.IP,
	})

	return &LoginResponse{
		Staff: toStaffInfo(staff),
		Token: token,
	}, nil
}

// Logout 注销当前会话
func (s *AuthService) Logout(ctx context.Context, claims *jwt.Claims) error {
	if err := s.sessions.Revoke(ctx, claims.SessionID()); err != nil {
		return errors.ErrCacheError.WithError(err)
	}
	s.effects.Record(ctx, hotel.AuditEntry{
		UserID:        claims.UserID,
		OperationType: models.AuditLogout,
		EntityTable:   models.StaffUser{}.TableName(),
		EntityID:      claims.UserID,
		Description:   "员工登出",
	})
	return nil
}

// Authenticate 解析令牌并确认会话仍然有效
func (s *AuthService) Authenticate(ctx context.Context, token string) (*jwt.Claims, error) {
	claims, err := s.jwtManager.ParseToken(token)
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.ErrTokenExpired
		}
		return nil, errors.ErrTokenInvalid
	}

	ok, err := s.sessions.Exists(ctx, claims.SessionID())
	if err != nil {
		return nil, errors.ErrCacheError.WithError(err)
	}
	if !ok {
		return nil, errors.ErrSessionRevoked
	}
	return claims, nil
}

// Me 获取当前员工信息
func (s *AuthService) Me(ctx context.Context, staffID int64) (*StaffInfo, error) {
	staff, err := s.getStaff(ctx, staffID)
	if err != nil {
		return nil, err
	}
	return toStaffInfo(staff), nil
}

// CreateStaffRequest 创建员工请求
type CreateStaffRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"full_name" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

// CreateStaff 创建员工账号
func (s *AuthService) CreateStaff(ctx context.Context, req *CreateStaffRequest) (*StaffInfo, error) {
	username := strings.TrimSpace(req.Username)
	fullName := strings.TrimSpace(req.FullName)
	if username == "" || fullName == "" {
		return nil, errors.ErrInvalidParams.WithMessage("用户名和姓名不能为空")
	}
	if !models.IsValidStaffRole(req.Role) {
		return nil, errors.ErrRoleInvalid.WithMessagef("无效的角色：%s", req.Role)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if stderrors.Is(err, crypto.ErrPasswordTooShort) || stderrors.Is(err, crypto.ErrPasswordTooLong) {
			return nil, errors.ErrInvalidParams.WithMessagef("密码长度需为 %d-72 位", crypto.MinPasswordLength)
		}
		return nil, errors.ErrInternalError.WithError(err)
	}

	staff := &models.StaffUser{
		Username:     username,
		PasswordHash: hash,
		FullName:     fullName,
		Role:         req.Role,
		IsActive:     true,
	}
	if err := s.staffRepo.Create(ctx, staff); err != nil {
		if stderrors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errors.ErrStaffExists
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return toStaffInfo(staff), nil
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ChangePassword 修改密码，成功后注销该员工的全部会话
func (s *AuthService) ChangePassword(ctx context.Context, staffID int64, req *ChangePasswordRequest) error {
	staff, err := s.getStaff(ctx, staffID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(req.OldPassword, staff.PasswordHash) {
		return errors.ErrPasswordError.WithMessage("原密码错误")
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return errors.ErrInvalidParams.WithMessagef("密码长度需为 %d-72 位", crypto.MinPasswordLength)
	}
	if err := s.staffRepo.UpdatePassword(ctx, staffID, hash); err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}

	if _, err := s.sessions.RevokeAll(ctx, staffID); err != nil {
		s.log.Warn("revoke sessions failed", zap.Int64("staff_id", staffID), zap.Error(err))
	}
	return nil
}

// ListStaff 员工列表
func (s *AuthService) ListStaff(ctx context.Context) ([]*StaffInfo, error) {
	list, err := s.staffRepo.List(ctx)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	result := make([]*StaffInfo, 0, len(list))
	for _, staff := range list {
		result = append(result, toStaffInfo(staff))
	}
	return result, nil
}

// SetStaffActive 启用或停用员工，停用时注销其全部会话
func (s *AuthService) SetStaffActive(ctx context.Context, staffID int64, active bool, actingUserID int64) error {
	if !active && staffID == actingUserID {
		return errors.ErrInvalidParams.WithMessage("不能停用自己的账号")
	}
	if err := s.staffRepo.SetActive(ctx, staffID, active); err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.ErrStaffNotFound
		}
		return errors.ErrDatabaseError.WithError(err)
	}

	if !active {
		if _, err := s.sessions.RevokeAll(ctx, staffID); err != nil {
			s.log.Warn("revoke sessions failed", zap.Int64("staff_id", staffID), zap.Error(err))
		}
	}

	desc := "启用员工账号"
	if !active {
		desc = "停用员工账号"
	}
	s.effects.Record(ctx, hotel.AuditEntry{
		UserID:        actingUserID,
		OperationType: models.AuditStatusUpdate,
		EntityTable:   models.StaffUser{}.TableName(),
		EntityID:      staffID,
		Description:   desc,
	})
	return nil
}

func (s *AuthService) getStaff(ctx context.Context, staffID int64) (*models.StaffUser, error) {
	staff, err := s.staffRepo.GetByID(ctx, staffID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrStaffNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return staff, nil
}

func toStaffInfo(staff *models.StaffUser) *StaffInfo {
	return &StaffInfo{
		ID:          staff.ID,
		Username:    staff.Username,
		FullName:    staff.FullName,
		Role:        staff.Role,
		IsActive:    staff.IsActive,
		LastLoginAt: staff.LastLoginAt,
	}
}
