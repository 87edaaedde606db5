package main

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dumeirei/hotel-reservation-backend/internal/common/cache"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/config"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/crypto"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/jwt"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/metrics"
	commonMiddleware "github.com/dumeirei/hotel-reservation-backend/internal/common/middleware"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/qrcode"
	adminHandler "github.com/dumeirei/hotel-reservation-backend/internal/handler/admin"
	authHandler "github.com/dumeirei/hotel-reservation-backend/internal/handler/auth"
	hotelHandler "github.com/dumeirei/hotel-reservation-backend/internal/handler/hotel"
	"github.com/dumeirei/hotel-reservation-backend/internal/middleware"
	"github.com/dumeirei/hotel-reservation-backend/internal/repository"
	authService "github.com/dumeirei/hotel-reservation-backend/internal/service/auth"
	hotelService "github.com/dumeirei/hotel-reservation-backend/internal/service/hotel"
	"github.com/dumeirei/hotel-reservation-backend/internal/service/notify"
)

// maxRequestBody 请求体上限
const maxRequestBody = 1 << 20

// services 路由依赖的服务
type services struct {
	auth         *authService.AuthService
	reservations *hotelService.ReservationService
	rooms        *hotelService.RoomService
	rates        *hotelService.RateTable
	audit        *notify.AuditRecorder
}

// newServices 组装仓储与服务，notifier、events 可以为 nil
func newServices(
	cfg *config.Config,
	log *zap.Logger,
	db *gorm.DB,
	redisClient *redis.Client,
	m *metrics.Metrics,
	notifier hotelService.Notifier,
	events hotelService.EventPublisher,
) *services {
	// 初始化仓储
	categoryRepo := repository.NewCategoryRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	ruleRepo := repository.NewRateRuleRepository(db)
	reservationRepo := repository.NewReservationRepository(db)
	guestRepo := repository.NewGuestRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	staffRepo := repository.NewStaffRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	auditRecorder := notify.NewAuditRecorder(auditRepo)
	effects := hotelService.NewSideEffects(log, m, notifier, auditRecorder, events)

	// 初始化服务
	rates := hotelService.NewRateTable(db, categoryRepo, ruleRepo, effects)
	pricing := hotelService.NewPriceCalculator(rates, ruleRepo)
	availability := hotelService.NewAvailabilityChecker(reservationRepo, roomRepo)
	guests := hotelService.NewGuestService(guestRepo)

	jwtManager := jwt.NewManager(&jwt.Config{
		Secret:           cfg.JWT.Secret,
		AccessExpireTime: cfg.JWT.AccessTokenDuration(),
		Issuer:           cfg.JWT.Issuer,
	})

	return &services{
		auth: authService.NewAuthService(
			staffRepo,
			cache.NewSessionStore(redisClient, jwtManager.TTL()),
			jwtManager,
			crypto.NewHasher(cfg.Crypto.BcryptCost),
			effects,
			log,
		),
		reservations: hotelService.NewReservationService(db, reservationRepo, roomRepo, paymentRepo,
			availability, pricing, guests, effects, m, log, &cfg.Hotel),
		rooms: hotelService.NewRoomService(db, roomRepo, categoryRepo, reservationRepo, paymentRepo,
			effects, m, cfg.Hotel.Location()),
		rates: rates,
		audit: auditRecorder,
	}
}

// setupRouter 设置路由
func setupRouter(
	r *gin.Engine,
	cfg *config.Config,
	logger *zap.Logger,
	svcs *services,
	db *gorm.DB,
	redisClient *redis.Client,
	m *metrics.Metrics,
) {
	// 初始化处理器
	authH := authHandler.NewHandler(svcs.auth)
	reservationH := hotelHandler.NewReservationHandler(svcs.reservations, qrcode.NewGenerator())
	roomH := hotelHandler.NewRoomHandler(svcs.rooms)
	catalogH := adminHandler.NewCatalogHandler(svcs.rooms)
	rateH := adminHandler.NewRateRuleHandler(svcs.rates)
	auditH := adminHandler.NewAuditHandler(svcs.audit)
	staffH := adminHandler.NewStaffHandler(svcs.auth)
	reportH := adminHandler.NewReportHandler(svcs.rooms)

	perms := middleware.DefaultRolePermissions()
	counter := cache.NewWindowCounter(redisClient, time.Duration(cfg.RateLimit.Window)*time.Second)

	// 全局中间件
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(commonMiddleware.Tracing(&commonMiddleware.TracingConfig{
		ServiceName: cfg.Tracing.ServiceName,
		SkipPaths:   []string{"/health", "/ping", "/ready", cfg.Metrics.Path},
	}))
	r.Use(middleware.CORS(&cfg.CORS))
	r.Use(middleware.SecureHeaders())
	r.Use(middleware.AccessLog(logger))
	if cfg.Metrics.Enabled {
		r.Use(m.Middleware())
		r.GET(cfg.Metrics.Path, metrics.Handler())
	}

	// 健康检查（不需要认证）
	r.GET("/health", healthHandler)
	r.GET("/ping", pingHandler)
	r.GET("/ready", readyHandler(db, redisClient))

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RequestSizeLimiter(maxRequestBody))
	if cfg.RateLimit.Enabled {
		v1.Use(middleware.IPRateLimit(counter, cfg.RateLimit.Limit, logger))
	}

	// 公开接口
	v1.POST("/auth/login", authH.Login)

	// 员工接口
	staff := v1.Group("")
	staff.Use(middleware.Auth(svcs.auth))
	{
		staff.POST("/auth/logout", authH.Logout)
		staff.GET("/auth/me", authH.Me)
		staff.PUT("/auth/password", authH.ChangePassword)

		booking := staff.Group("")
		booking.Use(middleware.RequirePermission(perms, middleware.PermissionReservationManage))
		{
			booking.GET("/rooms/available", reservationH.SearchAvailableRooms)
			booking.GET("/quotes", reservationH.QuotePrice)

			// 静态路由在 :id 之前注册
			booking.POST("/reservations", reservationH.CreateReservation)
			booking.GET("/reservations", reservationH.SearchReservations)
			booking.GET("/reservations/arrivals", reservationH.UpcomingCheckIns)
			booking.GET("/reservations/in-house", reservationH.CurrentCheckIns)
			booking.GET("/reservations/:id", reservationH.GetReservation)
			booking.GET("/reservations/:id/qrcode", reservationH.GetQRCode)
			booking.PATCH("/reservations/:id", reservationH.ModifyReservation)
			booking.POST("/reservations/:id/cancel", reservationH.CancelReservation)
			booking.POST("/reservations/:id/check-in", reservationH.CheckIn)
			booking.POST("/reservations/:id/check-out", reservationH.CheckOut)
		}

		staff.GET("/rooms", middleware.RequirePermission(perms, middleware.PermissionRoomView), roomH.ListRooms)
		staff.GET("/rooms/statistics", middleware.RequirePermission(perms, middleware.PermissionRoomView), roomH.RoomStatistics)
		staff.PUT("/rooms/:id/status", middleware.RequirePermission(perms, middleware.PermissionRoomStatus), roomH.UpdateRoomStatus)
	}

	// 管理员接口
	admin := v1.Group("/admin")
	admin.Use(middleware.Auth(svcs.auth), middleware.RequireAdmin())
	{
		admin.POST("/categories", middleware.RequirePermission(perms, middleware.PermissionRoomManage), catalogH.CreateCategory)
		admin.GET("/categories", catalogH.ListCategories)
		admin.PUT("/categories/:id", middleware.RequirePermission(perms, middleware.PermissionRoomManage), catalogH.UpdateCategory)
		admin.POST("/rooms", middleware.RequirePermission(perms, middleware.PermissionRoomManage), catalogH.AddRoom)
		admin.DELETE("/rooms/:id", middleware.RequirePermission(perms, middleware.PermissionRoomManage), catalogH.DeactivateRoom)

		admin.POST("/rate-rules", middleware.RequirePermission(perms, middleware.PermissionRateManage), rateH.AddRule)
		admin.GET("/rate-rules", rateH.ListRules)
		admin.DELETE("/rate-rules/:id", middleware.RequirePermission(perms, middleware.PermissionRateManage), rateH.DeactivateRule)

		admin.GET("/audit-logs", middleware.RequirePermission(perms, middleware.PermissionAuditView), auditH.ListAuditLogs)

		admin.GET("/reports/occupancy", middleware.RequirePermission(perms, middleware.PermissionReportView), reportH.Occupancy)
		admin.GET("/reports/revenue", middleware.RequirePermission(perms, middleware.PermissionReportView), reportH.Revenue)

		admin.POST("/staff", staffH.CreateStaff)
		admin.GET("/staff", staffH.ListStaff)
		admin.PUT("/staff/:id/active", staffH.SetStaffActive)
	}
}
