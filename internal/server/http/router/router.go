package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/soloviev-d/ordercore/internal/server/http/handlers"
	"github.com/soloviev-d/ordercore/internal/server/http/middleware"
)

// Setup configures gin router with handlers and middleware.
func Setup(facade handlers.Facade, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.DecompressRequest())
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	orderHandler := handlers.NewOrderHandler(facade, facade)
	webhookHandler := handlers.NewWebhookHandler(facade, logger)
	refundHandler := handlers.NewRefundHandler(facade)
	stockHandler := handlers.NewStockHandler(facade)
	systemHandler := handlers.NewSystemHandler(facade)

	api := engine.Group("/api")
	api.GET("/health", systemHandler.Health)
	api.POST("/checkout", orderHandler.Checkout)
	api.GET("/orders/:number", orderHandler.Get)
	api.GET("/orders/:number/status", orderHandler.Status)
	api.POST("/payments/webhook", webhookHandler.Receive)

	admin := api.Group("")
	admin.Use(middleware.ActorRequired())
	admin.POST("/orders/:number/transition", orderHandler.Transition)
	admin.POST("/orders/:number/cod/confirm", orderHandler.ConfirmCOD)
	admin.POST("/orders/:number/refund", refundHandler.Request)
	admin.POST("/refunds/:id/resolve", refundHandler.Resolve)
	admin.POST("/stock/receive", stockHandler.Receive)
	admin.POST("/stock/withdraw", stockHandler.Withdraw)
	admin.GET("/stock", stockHandler.OnHand)
	admin.POST("/internal/reconcile", systemHandler.Reconcile)

	return engine
}
