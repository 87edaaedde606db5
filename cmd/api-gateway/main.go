// Package main 是 HTTP 服务入口
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dumeirei/hotel-reservation-backend/internal/common/cache"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/config"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/database"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/logger"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/metrics"
	"github.com/dumeirei/hotel-reservation-backend/internal/common/tracing"
	"github.com/dumeirei/hotel-reservation-backend/internal/scheduler"
	hotelService "github.com/dumeirei/hotel-reservation-backend/internal/service/hotel"
	"github.com/dumeirei/hotel-reservation-backend/internal/service/notify"
	"github.com/dumeirei/hotel-reservation-backend/pkg/mqtt"
	"github.com/dumeirei/hotel-reservation-backend/pkg/sms"
)

const version = "1.0.0"

func main() {
	// 加载配置
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	if err := logger.Init(&cfg.Logger); err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	log := logger.GetLogger()
	log.Info("Starting Hotel Reservation Backend",
		zap.String("version", version),
		zap.String("env", cfg.Server.Mode),
		zap.String("hotel", cfg.Hotel.Name),
	)

	// 初始化链路追踪
	tracer, err := tracing.Init(&tracing.Config{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: version,
		Environment:    cfg.Server.Mode,
		Endpoint:       cfg.Tracing.Endpoint,
		SampleRate:     cfg.Tracing.SampleRate,
		Enabled:        cfg.Tracing.Enabled,
	})
	if err != nil {
		log.Fatal("Failed to init tracing", zap.Error(err))
	}

	// 初始化数据库连接
	db, err := database.Init(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(context.Background(), db); err != nil {
			log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}
	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))

	// 初始化 Redis 连接
	redisClient, err := cache.Init(&cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer cache.Close()
	log.Info("Redis connected successfully")

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.Init(metrics.DefaultNamespace)
	}

	// 客人短信通知
	notifier := notify.NewSMSNotifier(newSMSSender(cfg, log), cfg.Hotel.Name,
		time.Duration(cfg.SMS.SendTimeout)*time.Second, m, log)

	// 客房事件总线
	var (
		mqttClient *mqtt.Client
		topics     = mqtt.NewTopics(cfg.MQTT.TopicPrefix)
		events     hotelService.EventPublisher
	)
	if cfg.MQTT.Enabled {
		mqttClient = mqtt.NewClient(&mqtt.Config{
			Broker:         cfg.MQTT.Broker,
			ClientID:       fmt.Sprintf("%s%d", cfg.MQTT.ClientIDPrefix, os.Getpid()),
			Username:       cfg.MQTT.Username,
			Password:       cfg.MQTT.Password,
			KeepAlive:      time.Duration(cfg.MQTT.KeepAlive) * time.Second,
			ConnectTimeout: time.Duration(cfg.MQTT.ConnectTimeout) * time.Second,
			AutoReconnect:  cfg.MQTT.AutoReconnect,
			QoS:            cfg.MQTT.QoS,
		}, log)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := mqttClient.Connect(ctx)
		cancel()
		if err != nil {
			log.Fatal("Failed to connect to MQTT broker", zap.Error(err))
		}
		events = notify.NewEventPublisher(mqttClient, topics, m)
		log.Info("MQTT connected successfully", zap.String("broker", cfg.MQTT.Broker))
	}

	svcs := newServices(cfg, log, db, redisClient, m, notifier, events)

	// 客房终端清洁上报
	var listener *mqtt.HousekeepingListener
	if mqttClient != nil {
		listener = mqtt.NewHousekeepingListener(mqttClient, topics,
			notify.NewHousekeepingUpdater(svcs.rooms, m, log), log)
		if err := listener.Start(); err != nil {
			log.Fatal("Failed to subscribe housekeeping reports", zap.Error(err))
		}
	}

	// 定时任务
	sched := scheduler.NewScheduler(log)
	scheduler.SetupTasks(sched, scheduler.NewTaskHandler(svcs.rooms, svcs.reservations, log))
	sched.Start()

	// 设置 Gin 模式
	switch cfg.Server.Mode {
	case "production", "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	setupRouter(engine, cfg, log, svcs, db, redisClient, m)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	sched.Stop()

	// 等待在途短信发送完成
	notifier.Wait()

	if listener != nil {
		if err := listener.Stop(); err != nil {
			log.Warn("Unsubscribe housekeeping reports failed", zap.Error(err))
		}
	}
	if mqttClient != nil {
		mqttClient.Disconnect()
	}
	if err := tracer.Shutdown(ctx); err != nil {
		log.Warn("Tracer shutdown failed", zap.Error(err))
	}
	if err := database.Close(db); err != nil {
		log.Warn("Database close failed", zap.Error(err))
	}

	log.Info("Server exited")
}

// newSMSSender 按配置选择短信通道，阿里云初始化失败时退回 Mock
func newSMSSender(cfg *config.Config, log *zap.Logger) sms.Sender {
	if cfg.SMS.Provider != "aliyun" {
		return sms.NewMockSender(log)
	}
	sender, err := sms.NewAliyunSender(&sms.Config{
		AccessKeyID:     cfg.SMS.AccessKeyID,
		AccessKeySecret: cfg.SMS.AccessKeySecret,
		SignName:        cfg.SMS.SignName,
		Templates:       cfg.SMS.Templates,
	})
	if err != nil {
		log.Error("Failed to init aliyun sms, falling back to mock", zap.Error(err))
		return sms.NewMockSender(log)
	}
	return sender
}
