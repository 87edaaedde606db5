// Package auth 认证服务单元测试
package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/hotel-reservation-backend/internal/common/cache"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/crypto"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/errors"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/jwt"
	"github.com/dumeirei/hotel-reservation-backend/internal/models"
	"github.com/dumeirei/hotel-reservation-backend/internal/repository"
	"github.com/dumeirei/hotel-reservation-backend/internal/service/hotel"
)

// recordingAudit 记录审计条目
type recordingAudit struct {
	mu      sync.Mutex
	entries []hotel.AuditEntry
}

func (r *recordingAudit) Record(_ context.Context, entry hotel.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *recordingAudit) operations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ops := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		ops = append(ops, e.OperationType)
	}
	return ops
}

type testEnv struct {
	svc   *AuthService
	db    *gorm.DB
	redis *miniredis.Miniredis
	audit *recordingAudit
	jwt   *jwt.Manager
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	manager := jwt.NewManager(&jwt.Config{Secret: "test-secret", AccessExpireTime: 8 * time.Hour, Issuer: "hotel-test"})
	audit := &recordingAudit{}
	effects := hotel.NewSideEffects(zap.NewNop(), nil, nil, audit, nil)

	svc := NewAuthService(
		repository.NewStaffRepository(db),
		cache.NewSessionStore(client, manager.TTL()),
		manager,
		crypto.NewHasher(bcrypt.MinCost),
		effects,
		zap.NewNop(),
	)
	return &testEnv{svc: svc, db: db, redis: mr, audit: audit, jwt: manager}
}

func (e *testEnv) createStaff(t *testing.T, username, role string) *StaffInfo {
	t.Helper()
	info, err := e.svc.CreateStaff(context.Background(), &CreateStaffRequest{
		Username: username,
		Password: "password123",
		FullName: "测试员工",
		Role:     role,
	})
	require.NoError(t, err)
	return info
}

// ==================== CreateStaff 测试 ====================

func TestAuthService_CreateStaff(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	info := env.createStaff(t, "frontdesk", models.StaffRoleReceptionist)
	assert.NotZero(t, info.ID)
	assert.True(t, info.IsActive)

	var stored models.StaffUser
	require.NoError(t, env.db.First(&stored, info.ID).Error)
	assert.NotEqual(t, "password123", stored.PasswordHash)
	assert.True(t, crypto.VerifyPassword("password123", stored.PasswordHash))

	tests := []struct {
		name    string
		req     CreateStaffRequest
		wantErr error
	}{
		{"重复用户名", CreateStaffRequest{Username: "frontdesk", Password: "password123", FullName: "x", Role: "admin"}, errors.ErrStaffExists},
		{"无效角色", CreateStaffRequest{Username: "u2", Password: "password123", FullName: "x", Role: "manager"}, errors.ErrRoleInvalid},
		{"密码过短", CreateStaffRequest{Username: "u3", Password: "short", FullName: "x", Role: "admin"}, errors.ErrInvalidParams},
		{"空姓名", CreateStaffRequest{Username: "u4", Password: "password123", FullName: "  ", Role: "admin"}, errors.ErrInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.CreateStaff(ctx, &tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// ==================== Login 测试 ====================

func TestAuthService_Login(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	staff := env.createStaff(t, "admin", models.StaffRoleAdmin)

	resp, err := env.svc.Login(ctx, &LoginRequest{Username: "admin", Password: "password123", IP: "10.0.0.8"})
	require.NoError(t, err)
	assert.Equal(t, staff.ID, resp.Staff.ID)
	assert.Equal(t, models.StaffRoleAdmin, resp.Staff.Role)
	require.NotNil(t, resp.Staff.LastLoginAt)

	claims, err := env.jwt.ParseToken(resp.Token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, staff.ID, claims.UserID)
	assert.Equal(t, models.StaffRoleAdmin, claims.Role)
	assert.True(t, env.redis.Exists(cache.BuildKey(cache.KeyPrefixSession, claims.SessionID())))

	var stored models.StaffUser
	require.NoError(t, env.db.First(&stored, staff.ID).Error)
	require.NotNil(t, stored.LastLoginIP)
	assert.Equal(t, "10.0.0.8", *stored.LastLoginIP)

	assert.Equal(t, []string{models.AuditLogin}, env.audit.operations())
	assert.Equal(t, "10.0.0.8", env.audit.entries[0].IP)
}

func TestAuthService_Login_Failures(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	staff := env.createStaff(t, "frontdesk", models.StaffRoleReceptionist)

	_, err := env.svc.Login(ctx, &LoginRequest{Username: "frontdesk", Password: "wrong-password"})
	assert.ErrorIs(t, err, errors.ErrPasswordError)

	_, err = env.svc.Login(ctx, &LoginRequest{Username: "nobody", Password: "password123"})
	assert.ErrorIs(t, err, errors.ErrPasswordError)

	require.NoError(t, env.db.Model(&models.StaffUser{}).Where("id = ?", staff.ID).Update("is_active", false).Error)
	_, err = env.svc.Login(ctx, &LoginRequest{Username: "frontdesk", Password: "password123"})
	assert.ErrorIs(t, err, errors.ErrAccountDisabled)

	assert.Empty(t, env.audit.operations())
}

func TestAuthService_Login_RedisDown(t *testing.T) {
	env := setupTestEnv(t)
	env.createStaff(t, "frontdesk", models.StaffRoleReceptionist)
	env.redis.Close()

	_, err := env.svc.Login(context.Background(), &LoginRequest{Username: "frontdesk", Password: "password123"})
	assert.ErrorIs(t, err, errors.ErrCacheError)
}

// ==================== Authenticate / Logout 测试 ====================

func TestAuthService_AuthenticateAndLogout(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	env.createStaff(t, "frontdesk", models.StaffRoleReceptionist)

	resp, err := env.svc.Login(ctx, &LoginRequest{Username: "frontdesk", Password: "password123"})
	require.NoError(t, err)

	claims, err := env.svc.Authenticate(ctx, resp.Token.AccessToken)
	require.NoError(t, err)

	require.NoError(t, env.svc.Logout(ctx, claims))
	_, err = env.svc.Authenticate(ctx, resp.Token.AccessToken)
	assert.ErrorIs(t, err, errors.ErrSessionRevoked)

	assert.Equal(t, []string{models.AuditLogin, models.AuditLogout}, env.audit.operations())
}

func TestAuthService_Authenticate_BadTokens(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, errors.ErrTokenInvalid)

	expired := jwt.NewManager(&jwt.Config{Secret: "test-secret", AccessExpireTime: -time.Minute, Issuer: "hotel-test"})
	tok, err := expired.Issue(1, models.StaffRoleAdmin, "s1")
	require.NoError(t, err)
	_, err = env.svc.Authenticate(ctx, tok.AccessToken)
	assert.ErrorIs(t, err, errors.ErrTokenExpired)

	// 签名有效但会话不存在
	tok, err = env.jwt.Issue(1, models.StaffRoleAdmin, "unknown-session")
	require.NoError(t, err)
	_, err = env.svc.Authenticate(ctx, tok.AccessToken)
	assert.ErrorIs(t, err, errors.ErrSessionRevoked)
}

// ==================== Me / ChangePassword 测试 ====================

func TestAuthService_Me(t *testing.T) {
	env := setupTestEnv(t)
	staff := env.createStaff(t, "frontdesk", models.StaffRoleReceptionist)

	info, err := env.svc.Me(context.Background(), staff.ID)
	require.NoError(t, err)
	assert.Equal(t, "frontdesk", info.Username)

	_, err = env.svc.Me(context.Background(), 999)
	assert.ErrorIs(t, err, errors.ErrStaffNotFound)
}

func TestAuthService_ChangePassword(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	staff := env.createStaff(t, "frontdesk", models.StaffRoleReceptionist)

	resp, err := env.svc.Login(ctx, &LoginRequest{Username: "frontdesk", Password: "password123"})
	require.NoError(t, err)

	err = env.svc.ChangePassword(ctx, staff.ID, &ChangePasswordRequest{OldPassword: "bad-password", NewPassword: "newpassword1"})
	assert.ErrorIs(t, err, errors.ErrPasswordError)

	err = env.svc.ChangePassword(ctx, staff.ID, &ChangePasswordRequest{OldPassword: "password123", NewPassword: "tiny"})
	assert.ErrorIs(t, err, errors.ErrInvalidParams)

	require.NoError(t, env.svc.ChangePassword(ctx, staff.ID, &ChangePasswordRequest{OldPassword: "password123", NewPassword: "newpassword1"}))

	// 旧会话全部失效
	_, err = env.svc.Authenticate(ctx, resp.Token.AccessToken)
	assert.ErrorIs(t, err, errors.ErrSessionRevoked)

	_, err = env.svc.Login(ctx, &LoginRequest{Username: "frontdesk", Password: "newpassword1"})
	assert.NoError(t, err)
}

// ==================== 员工管理 测试 ====================

func TestAuthService_ListStaff(t *testing.T) {
	env := setupTestEnv(t)
	env.createStaff(t, "admin", models.StaffRoleAdmin)
	env.createStaff(t, "frontdesk", models.StaffRoleReceptionist)

	list, err := env.svc.ListStaff(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "admin", list[0].Username)
}

func TestAuthService_SetStaffActive(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	admin := env.createStaff(t, "admin", models.StaffRoleAdmin)
	staff := env.createStaff(t, "frontdesk", models.StaffRoleReceptionist)

	resp, err := env.svc.Login(ctx, &LoginRequest{Username: "frontdesk", Password: "password123"})
	require.NoError(t, err)

	require.NoError(t, env.svc.SetStaffActive(ctx, staff.ID, false, admin.ID))

	// 停用后会话失效且无法登录
	_, err = env.svc.Authenticate(ctx, resp.Token.AccessToken)
	assert.ErrorIs(t, err, errors.ErrSessionRevoked)
	_, err = env.svc.Login(ctx, &LoginRequest{Username: "frontdesk", Password: "password123"})
	assert.ErrorIs(t, err, errors.ErrAccountDisabled)

	require.NoError(t, env.svc.SetStaffActive(ctx, staff.ID, true, admin.ID))
	_, err = env.svc.Login(ctx, &LoginRequest{Username: "frontdesk", Password: "password123"})
	assert.NoError(t, err)

	assert.ErrorIs(t, env.svc.SetStaffActive(ctx, admin.ID, false, admin.ID), errors.ErrInvalidParams)
	assert.ErrorIs(t, env.svc.SetStaffActive(ctx, 9999, false, admin.ID), errors.ErrStaffNotFound)
}
