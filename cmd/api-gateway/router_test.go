package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/hotel-reservation-backend/internal/common/config"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/metrics"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/utils"
	"github.com/dumeirei/hotel-reservation-backend/internal/models"
	authService "github.com/dumeirei/hotel-reservation-backend/internal/service/auth"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	engine *gin.Engine
	db     *gorm.DB
	mr     *miniredis.Miniredis
	svcs   *services
}

func testConfig() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Name: "hotel-test", Mode: "test"},
		JWT:       config.JWTConfig{Secret: "router-test-secret", AccessTokenExpire: 2, Issuer: "hotel-test"},
		Crypto:    config.CryptoConfig{BcryptCost: 4},
		Metrics:   config.MetricsConfig{Enabled: true, Path: "/metrics"},
		Tracing:   config.TracingConfig{ServiceName: "hotel-test"},
		RateLimit: config.RateLimitConfig{Enabled: false, Limit: 100, Window: 60},
		Hotel: config.HotelConfig{
			Name:             "测试酒店",
			Timezone:         "UTC",
			EarlyCheckInDays: 0,
			SearchLimit:      50,
			UpcomingDays:     1,
		},
	}
}

func setupServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

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
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	m := metrics.New("router_test", prometheus.NewRegistry())
	svcs := newServices(cfg, zap.NewNop(), db, redisClient, m, nil, nil)

	ctx := context.Background()
	_, err = svcs.auth.CreateStaff(ctx, &authService.CreateStaffRequest{
		Username: "admin", Password: "Admin123", FullName: "管理员", Role: models.StaffRoleAdmin,
	})
	require.NoError(t, err)
	_, err = svcs.auth.CreateStaff(ctx, &authService.CreateStaffRequest{
		Username: "front", Password: "Front123", FullName: "前台", Role: models.StaffRoleReceptionist,
	})
	require.NoError(t, err)

	engine := gin.New()
	setupRouter(engine, cfg, zap.NewNop(), svcs, db, redisClient, m)
	return &testServer{engine: engine, db: db, mr: mr, svcs: svcs}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data), w.Body.String())
	}
	return env
}

func (s *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username, "password": password,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Token struct {
			AccessToken string `json:"access_token"`
		} `json:"token"`
	}
	decode(t, w, &resp)
	require.NotEmpty(t, resp.Token.AccessToken)
	return resp.Token.AccessToken
}

// ==================== 健康检查 ====================

func TestRouter_Health(t *testing.T) {
	s := setupServer(t, testConfig())

	w := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Checks["database"])
	assert.Equal(t, "ok", health.Checks["redis"])

	s.mr.Close()
	w = s.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

// ==================== 认证与权限 ====================

func TestRouter_AuthAndPermissions(t *testing.T) {
	s := setupServer(t, testConfig())

	w := s.do(t, http.MethodGet, "/api/v1/reservations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "front", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	front := s.login(t, "front", "Front123")

	w = s.do(t, http.MethodGet, "/api/v1/auth/me", front, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me authService.StaffInfo
	decode(t, w, &me)
	assert.Equal(t, "front", me.Username)
	assert.Equal(t, models.StaffRoleReceptionist, me.Role)

	// 前台不能访问管理接口
	w = s.do(t, http.MethodGet, "/api/v1/admin/categories", front, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(t, http.MethodGet, "/api/v1/admin/audit-logs", front, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 注销后令牌失效
	w = s.do(t, http.MethodPost, "/api/v1/auth/logout", front, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, "/api/v1/auth/me", front, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_DisabledStaffLosesAccess(t *testing.T) {
	s := setupServer(t, testConfig())
	admin := s.login(t, "admin", "Admin123")
	front := s.login(t, "front", "Front123")

	w := s.do(t, http.MethodGet, "/api/v1/admin/staff", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var staff []authService.StaffInfo
	decode(t, w, &staff)
	require.Len(t, staff, 2)

	var frontID int64
	for _, st := range staff {
		if st.Username == "front" {
			frontID = st.ID
		}
	}
	require.NotZero(t, frontID)

	w = s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/admin/staff/%d/active", frontID), admin,
		map[string]bool{"is_active": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/v1/auth/me", front, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// ==================== 完整预订流程 ====================

func TestRouter_ReservationLifecycle(t *testing.T) {
	s := setupServer(t, testConfig())
	admin := s.login(t, "admin", "Admin123")
	front := s.login(t, "front", "Front123")

	today := utils.NormalizeDate(time.Now().UTC())
	checkIn := utils.FormatDate(today)
	checkOut := utils.FormatDate(utils.AddDays(today, 2))

	// 管理员建房型、房间和价格规则
	w := s.do(t, http.MethodPost, "/api/v1/admin/categories", admin, map[string]interface{}{
		"name": "Standard", "base_price": 200, "max_occupancy": 2,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var category struct {
		ID int64 `json:"id"`
	}
	decode(t, w, &category)

	w = s.do(t, http.MethodPost, "/api/v1/admin/rooms", admin, map[string]interface{}{
		"room_number": "101", "category_id": category.ID, "floor": 1,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var room struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	decode(t, w, &room)
	assert.Equal(t, string(models.RoomStatusClean), room.Status)

	w = s.do(t, http.MethodPost, "/api/v1/admin/rate-rules", admin, map[string]interface{}{
		"category_id": category.ID, "label": "旺季", "start_date": checkIn, "end_date": checkIn, "multiplier": 1.5,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// 前台报价
	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/quotes?category_id=%d&check_in=%s&check_out=%s",
		category.ID, checkIn, checkOut), front, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var quote struct {
		Nights int     `json:"nights"`
		Total  float64 `json:"total"`
	}
	decode(t, w, &quote)
	assert.Equal(t, 2, quote.Nights)
	assert.InDelta(t, 500.0, quote.Total, 0.001)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/rooms/available?check_in=%s&check_out=%s", checkIn, checkOut), front, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var available []map[string]interface{}
	decode(t, w, &available)
	assert.Len(t, available, 1)

	// 创建预订
	body := map[string]interface{}{
		"guest":     map[string]string{"name": "张三", "phone": "13800138000"},
		"room_id":   room.ID,
		"check_in":  checkIn,
		"check_out": checkOut,
		"occupants": 2,
	}
	w = s.do(t, http.MethodPost, "/api/v1/reservations", front, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var reservation struct {
		ID         int64   `json:"id"`
		Status     string  `json:"status"`
		TotalPrice float64 `json:"total_price"`
	}
	decode(t, w, &reservation)
	assert.Equal(t, string(models.ReservationStatusConfirmed), reservation.Status)
	assert.InDelta(t, 500.0, reservation.TotalPrice, 0.001)

	// 同一房间同一时段再订冲突
	w = s.do(t, http.MethodPost, "/api/v1/reservations", front, body)
	assert.Equal(t, http.StatusConflict, w.Code)

	// 超员
	body["occupants"] = 3
	w = s.do(t, http.MethodPost, "/api/v1/reservations", front, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 二维码
	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/reservations/%d/qrcode", reservation.ID), front, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))

	// 检索
	w = s.do(t, http.MethodGet, "/api/v1/reservations?guest_name="+url.QueryEscape("张三"), front, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Total int64 `json:"total"`
	}
	decode(t, w, &page)
	assert.Equal(t, int64(1), page.Total)

	w = s.do(t, http.MethodGet, "/api/v1/reservations/arrivals", front, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var arrivals []map[string]interface{}
	decode(t, w, &arrivals)
	assert.Len(t, arrivals, 1)

	// 入住
	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/reservations/%d/check-in", reservation.ID), front, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &reservation)
	assert.Equal(t, string(models.ReservationStatusCheckedIn), reservation.Status)

	// 在住预订不能取消
	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/reservations/%d/cancel", reservation.ID), front, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/reservations/in-house", front, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var inHouse []map[string]interface{}
	decode(t, w, &inHouse)
	assert.Len(t, inHouse, 1)

	// 退房
	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/reservations/%d/check-out", reservation.ID), front, map[string]interface{}{
		"payment_method": "Cash", "amount": 500,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &reservation)
	assert.Equal(t, string(models.ReservationStatusCheckedOut), reservation.Status)

	// 退房后房间待清洁，前台改为干净
	var stored models.Room
	require.NoError(t, s.db.First(&stored, room.ID).Error)
	assert.Equal(t, models.RoomStatusDirty, stored.Status)

	w = s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/rooms/%d/status", room.ID), front, map[string]string{"status": "Clean"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/v1/rooms/statistics", front, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats struct {
		TotalRooms   int64   `json:"total_rooms"`
		TodayRevenue float64 `json:"today_revenue"`
	}
	decode(t, w, &stats)
	assert.Equal(t, int64(1), stats.TotalRooms)
	assert.InDelta(t, 500.0, stats.TodayRevenue, 0.001)

	// 审计日志
	w = s.do(t, http.MethodGet, "/api/v1/admin/audit-logs?entity_table=reservations", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var audit struct {
		Total int64 `json:"total"`
	}
	decode(t, w, &audit)
	assert.GreaterOrEqual(t, audit.Total, int64(3))
}

func TestRouter_ReservationErrors(t *testing.T) {
	s := setupServer(t, testConfig())
	front := s.login(t, "front", "Front123")

	w := s.do(t, http.MethodGet, "/api/v1/reservations/999", front, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/reservations/abc", front, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/rooms/available?check_in=2026-03-05&check_out=2026-03-01", front, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/rooms/available?check_in=bad&check_out=2026-03-01", front, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/reservations?status=Unknown", front, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_CategoryEditAndReports(t *testing.T) {
	s := setupServer(t, testConfig())
	admin := s.login(t, "admin", "Admin123")
	front := s.login(t, "front", "Front123")

	w := s.do(t, http.MethodPost, "/api/v1/admin/categories", admin, map[string]interface{}{
		"name": "Standard", "base_price": 200, "max_occupancy": 2,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var category struct {
		ID        int64   `json:"id"`
		BasePrice float64 `json:"base_price"`
	}
	decode(t, w, &category)

	path := fmt.Sprintf("/api/v1/admin/categories/%d", category.ID)
	w = s.do(t, http.MethodPut, path, front, map[string]interface{}{"base_price": 180})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPut, path, admin, map[string]interface{}{"base_price": 180})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &category)
	assert.InDelta(t, 180.0, category.BasePrice, 0.001)

	w = s.do(t, http.MethodPut, path, admin, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/admin/rooms", admin, map[string]interface{}{
		"room_number": "101", "category_id": category.ID, "floor": 1,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/v1/admin/reports/occupancy?start_date=2026-03-01&end_date=2026-03-03", front, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/admin/reports/occupancy?start_date=2026-03-01&end_date=2026-03-03", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var occ struct {
		TotalRooms int64 `json:"total_rooms"`
		Days       int   `json:"days"`
	}
	decode(t, w, &occ)
	assert.Equal(t, int64(1), occ.TotalRooms)
	assert.Equal(t, 3, occ.Days)

	w = s.do(t, http.MethodGet, "/api/v1/admin/reports/revenue?start_date=2026-03-01&end_date=2026-03-03", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var rev struct {
		TotalRevenue float64 `json:"total_revenue"`
	}
	decode(t, w, &rev)
	assert.Zero(t, rev.TotalRevenue)

	w = s.do(t, http.MethodGet, "/api/v1/admin/reports/revenue?start_date=2026-03-03", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ==================== 限流 ====================

func TestRouter_RateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, Limit: 2, Window: 60}
	s := setupServer(t, cfg)

	for i := 0; i < 2; i++ {
		w := s.do(t, http.MethodGet, "/api/v1/auth/me", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
	w := s.do(t, http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// 健康检查不受限流影响
	w = s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
