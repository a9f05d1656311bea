package api

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/resv_go_server/config"
	"github.com/qs3c/resv_go_server/internal/api/handler"
	"github.com/qs3c/resv_go_server/internal/api/middleware"
)

type Router struct {
	authHandler      *handler.AuthHandler
	adminHandler     *handler.AdminHandler
	websocketHandler *handler.WebSocketHandler
	cfg              *config.Config
}

func NewRouter(
	authHandler *handler.AuthHandler,
	adminHandler *handler.AdminHandler,
	websocketHandler *handler.WebSocketHandler,
	cfg *config.Config,
) *Router {
	return &Router{
		authHandler:      authHandler,
		adminHandler:     adminHandler,
		websocketHandler: websocketHandler,
		cfg:              cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(r.cfg.CORS))

	api := engine.Group("/api/v1")
	{
		// WebSocket（token 走查询参数）
		api.GET("/ws", r.websocketHandler.Handle)

		// 公开接口 - 认证
		api.POST("/auth/login", r.authHandler.Login)

		// 管理接口
		admin := api.Group("")
		admin.Use(middleware.Auth(r.cfg.JWT.Secret))
		{
			admin.GET("/stats", r.adminHandler.Stats)
			admin.GET("/availability", r.adminHandler.Availability)

			admin.GET("/payments/pending", r.adminHandler.PendingPayments)
			admin.POST("/payments/:id/decision", r.adminHandler.DecidePayment)

			admin.GET("/verifications/pending", r.adminHandler.PendingVerifications)
			admin.POST("/verifications/:id/decision", r.adminHandler.DecideVerification)

			admin.GET("/discounts", r.adminHandler.ListDiscounts)
			admin.POST("/discounts", r.adminHandler.CreateDiscount)
			admin.DELETE("/discounts/:code", r.adminHandler.DeactivateDiscount)
		}
	}

	return engine
}
