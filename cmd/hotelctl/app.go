package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dumeirei/hotel-reservation-backend/internal/common/config"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/crypto"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/database"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/logger"
	"github.com/dumeirei/hotel-reservation-backend/internal/repository"
	authService "github.com/dumeirei/hotel-reservation-backend/internal/service/auth"
	hotelService "github.com/dumeirei/hotel-reservation-backend/internal/service/hotel"
	"github.com/dumeirei/hotel-reservation-backend/internal/service/notify"
)

// app 命令共享的配置与数据库连接，测试时可预先注入
type app struct {
	cfg *config.Config
	db  *gorm.DB
	log *zap.Logger

	owned bool
}

// setup 加载 .env 与配置文件并连接数据库
func (a *app) setup(configPath string) error {
	if a.db != nil {
		return nil
	}

	// .env 不存在时忽略
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(&cfg.Logger); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	log := logger.GetLogger()

	db, err := database.Init(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	a.cfg, a.db, a.log = cfg, db, log
	a.owned = true
	return nil
}

func (a *app) close() {
	if !a.owned {
		return
	}
	_ = database.Close(a.db)
	_ = logger.Sync()
}

// hotel 组装命令行使用的服务，不发送通知也不发布事件
type hotel struct {
	rooms        *hotelService.RoomService
	pricing      *hotelService.PriceCalculator
	availability *hotelService.AvailabilityChecker
	auth         *authService.AuthService
}

func (a *app) services() *hotel {
	categoryRepo := repository.NewCategoryRepository(a.db)
	roomRepo := repository.NewRoomRepository(a.db)
	ruleRepo := repository.NewRateRuleRepository(a.db)
	reservationRepo := repository.NewReservationRepository(a.db)
	paymentRepo := repository.NewPaymentRepository(a.db)

	effects := hotelService.NewSideEffects(a.log, nil, nil,
		notify.NewAuditRecorder(repository.NewAuditLogRepository(a.db)), nil)
	rates := hotelService.NewRateTable(a.db, categoryRepo, ruleRepo, effects)

	return &hotel{
		rooms: hotelService.NewRoomService(a.db, roomRepo, categoryRepo, reservationRepo, paymentRepo,
			effects, nil, a.cfg.Hotel.Location()),
		pricing:      hotelService.NewPriceCalculator(rates, ruleRepo),
		availability: hotelService.NewAvailabilityChecker(reservationRepo, roomRepo),
		// 命令行只建账号，不签发令牌也不需要会话
		auth: authService.NewAuthService(repository.NewStaffRepository(a.db), nil, nil,
			crypto.NewHasher(a.cfg.Crypto.BcryptCost), effects, a.log),
	}
}

func newRootCmd(a *app) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "hotelctl",
		Short:         "Hotel reservation maintenance tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(configPath)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./configs/config.yaml)")

	root.AddCommand(
		migrateCmd(a),
		seedCmd(a),
		createStaffCmd(a),
		quoteCmd(a),
		availabilityCmd(a),
	)
	return root
}
