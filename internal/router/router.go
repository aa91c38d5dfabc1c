// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/eventra/eventra-backend/internal/broker"
	"github.com/eventra/eventra-backend/internal/cache"
	"github.com/eventra/eventra-backend/internal/config"
	"github.com/eventra/eventra-backend/internal/handlers"
	"github.com/eventra/eventra-backend/internal/metrics"
	"github.com/eventra/eventra-backend/internal/middleware"
	"github.com/eventra/eventra-backend/internal/services"
)

// Dependencies carries the shared infrastructure the router wires into
// services.
type Dependencies struct {
	DB        *gorm.DB
	Cache     *cache.Cache
	Publisher *broker.Publisher
	Delivery  *services.DeliveryService
}

func Initialize(deps *Dependencies, cfg *config.Config) *gin.Engine {
	db := deps.DB

	inventoryService := services.NewInventoryService(db)
	eticketService := services.NewETicketService(db)
	discountPolicy := services.NewDefaultDiscountPolicy()
	orderService := services.NewOrderService(db, cfg, inventoryService, eticketService, deps.Delivery, discountPolicy, deps.Publisher)
	saleService := services.NewSaleService(db, inventoryService, eticketService, deps.Delivery, deps.Publisher)
	eventService := services.NewEventService(db, deps.Cache)
	authService := services.NewAuthService(db, cfg.JWT)
	withdrawalService := services.NewWithdrawalService(db, cfg.Payment)

	authHandler := handlers.NewAuthHandler(authService)
	eventHandler := handlers.NewEventHandler(eventService)
	orderHandler := handlers.NewOrderHandler(orderService)
	saleHandler := handlers.NewSaleHandler(saleService)
	stockHandler := handlers.NewStockHandler(inventoryService)
	webhookHandler := handlers.NewWebhookHandler(orderService, cfg.Payment)
	scanHandler := handlers.NewScanHandler(eticketService)
	deliveryHandler := handlers.NewDeliveryHandler(deps.Delivery)
	withdrawalHandler := handlers.NewWithdrawalHandler(withdrawalService)

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	r.Use(middleware.GeneralRateLimit())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	r.GET("/metrics", metrics.Handler())

	v1 := r.Group("/api/v1")

	auth := v1.Group("/auth")
	auth.Use(middleware.AuthRateLimit())
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.LoginUser)
		auth.POST("/seller/login", authHandler.LoginSeller)
		auth.POST("/organization/login", authHandler.LoginOrganization)
	}

	// Public catalog and checkout.
	v1.GET("/events", eventHandler.ListEvents)
	v1.GET("/events/:id", eventHandler.GetEvent)
	v1.GET("/ticket-types/:id/availability", eventHandler.GetAvailability)
	v1.POST("/orders", middleware.OptionalAuth(), orderHandler.CreateOrder)
	v1.GET("/orders/:code", orderHandler.GetOrder)

	orders := v1.Group("/orders")
	{
		orders.POST("/:code/pay", orderHandler.BeginPayment)
		orders.POST("/:code/cancel", orderHandler.CancelOrder)
	}

	// Gateway callbacks, authenticated by shared secret.
	webhooks := v1.Group("/webhooks")
	{
		webhooks.POST("/payments", webhookHandler.Payments)
		webhooks.POST("/payouts", webhookHandler.Payouts)
	}

	seller := v1.Group("/seller")
	seller.Use(middleware.AuthRequired(), middleware.SellerRequired())
	{
		seller.POST("/sales", saleHandler.Sell)
	}

	organization := v1.Group("/organization")
	organization.Use(middleware.AuthRequired(), middleware.OrganizationRequired())
	{
		organization.POST("/stocks", stockHandler.Allocate)
		organization.POST("/stocks/:id/return", stockHandler.Return)
		organization.PATCH("/stocks/:id/commission", stockHandler.UpdateCommission)
		organization.POST("/scan", middleware.ScanRateLimit(), scanHandler.Scan)
		organization.GET("/orders/:id/deliveries", deliveryHandler.ListByOrder)
		organization.POST("/deliveries/:id/retry", deliveryHandler.Retry)
		organization.POST("/withdrawals", withdrawalHandler.Request)
		organization.GET("/withdrawals", withdrawalHandler.List)
	}

	return r
}
