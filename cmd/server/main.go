package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/qs3c/resv_go_server/config"
	"github.com/qs3c/resv_go_server/internal/api"
	"github.com/qs3c/resv_go_server/internal/api/handler"
	"github.com/qs3c/resv_go_server/internal/bot"
	"github.com/qs3c/resv_go_server/internal/database"
	"github.com/qs3c/resv_go_server/internal/gateway"
	"github.com/qs3c/resv_go_server/internal/pkg/pubsub"
	"github.com/qs3c/resv_go_server/internal/pkg/queue"
	"github.com/qs3c/resv_go_server/internal/pkg/schedule"
	"github.com/qs3c/resv_go_server/internal/pkg/state"
	"github.com/qs3c/resv_go_server/internal/pkg/ws"
	"github.com/qs3c/resv_go_server/internal/repository"
	"github.com/qs3c/resv_go_server/internal/service"
	"github.com/qs3c/resv_go_server/internal/worker"
)

func main() {
	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化数据库
	db, err := database.NewSQLite(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	log.Println("Database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Println("Redis connected")

	// 时段表
	sched, err := schedule.New(&cfg.Slots)
	if err != nil {
		log.Fatalf("Failed to build schedule: %v", err)
	}

	// 初始化 WebSocket Hub，订阅事件流推给在线管理员
	wsHub := ws.NewHub()
	publisher := pubsub.NewPublisher(rdb)
	subscriber := pubsub.NewSubscriber(rdb)
	go func() {
		err := subscriber.Subscribe(context.Background(), func(event *pubsub.Event) {
			if err := wsHub.Broadcast(&ws.Message{Type: event.Type, Data: event}); err != nil {
				log.Printf("Broadcast event to hub failed: %v", err)
			}
		})
		if err != nil {
			log.Printf("Event subscription stopped: %v", err)
		}
	}()
	log.Println("WebSocket hub started")

	// 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	resRepo := repository.NewReservationRepository(db)
	payRepo := repository.NewPaymentRepository(db)
	verifRepo := repository.NewVerificationRepository(db)
	discountRepo := repository.NewDiscountRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	// 初始化 Service
	userService := service.NewUserService(userRepo, statsRepo)
	bookingService := service.NewBookingService(resRepo, verifRepo, sched, cfg, publisher)
	verificationService := service.NewVerificationService(verifRepo)
	discountService := service.NewDiscountService(discountRepo)
	paymentService := service.NewPaymentService(payRepo, bookingService, verificationService, discountService, publisher)

	// 聊天侧：向导状态、群发队列、消息路由。
	// LogGateway 是兜底实现，真实平台适配器在部署侧注入。
	gw := gateway.NewLogGateway()
	wizardStore := state.NewStore(rdb, time.Hour)
	broadcastQueue := queue.NewQueue(rdb, cfg.Queue.BroadcastQueue)
	botRouter := bot.NewRouter(gw, wizardStore,
		userService, bookingService, paymentService, verificationService, discountService,
		broadcastQueue, cfg)
	_ = botRouter // TODO: 接入聊天平台适配器后由其把入站更新喂给 HandleUpdate

	// 后台任务
	reminder := worker.NewReminder(resRepo, gw, publisher, cfg)
	reminder.Start()
	defer reminder.Stop()

	broadcastSleep := time.Duration(cfg.Bot.BroadcastSleep * float64(time.Second))
	broadcaster := worker.NewBroadcaster(broadcastQueue, userService, gw, broadcastSleep)
	broadcaster.Start()
	defer broadcaster.Stop()

	// 初始化 Handler
	authHandler := handler.NewAuthHandler(cfg)
	adminHandler := handler.NewAdminHandler(
		userService, bookingService, paymentService, verificationService, discountService)
	websocketHandler := handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret)

	// 初始化 Router
	router := api.NewRouter(authHandler, adminHandler, websocketHandler, cfg)
	engine := router.Setup()

	// 启动服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	if err := engine.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
