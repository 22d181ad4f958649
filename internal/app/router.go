package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"dispatch/internal/handler"
	"dispatch/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	OrderHandler  *handler.OrderHandler
	DriverHandler *handler.DriverHandler
	RatingHandler *handler.RatingHandler
	AdminHandler  *handler.AdminHandler
	RedisClient   *redis.Client
	NewRelicApp   *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Order routes. Mutations carry the acting party in the body;
		// bids, arrival and completion are driver-side actions on an order.
		orders := v1.Group("/orders")
		{
			orders.POST("", deps.OrderHandler.CreateOrder)
			orders.GET("/:id", deps.OrderHandler.GetOrder)
			orders.GET("/:id/bids", deps.OrderHandler.ListBids)
			orders.POST("/:id/bids", deps.DriverHandler.PlaceBid)
			orders.POST("/:id/select", deps.OrderHandler.SelectDriver)
			orders.POST("/:id/cancel", deps.OrderHandler.CancelOrder)
			orders.POST("/:id/driver_cancel", deps.DriverHandler.CancelOrder)
			orders.POST("/:id/arrived", deps.DriverHandler.MarkArrived)
			orders.POST("/:id/complete", deps.DriverHandler.CompleteOrder)
			orders.GET("/:id/driver_position", deps.OrderHandler.DriverPosition)
			orders.POST("/:id/ratings", deps.RatingHandler.SubmitRating)
		}

		// Driver routes.
		drivers := v1.Group("/drivers")
		{
			drivers.PUT("/:id", deps.DriverHandler.Register)
			drivers.POST("/:id/shift", deps.DriverHandler.SetShift)
			drivers.POST("/:id/position", deps.DriverHandler.UpdatePosition)
		}

		// User routes.
		users := v1.Group("/users")
		{
			users.GET("/:id/rating", deps.RatingHandler.GetUserRating)
		}

		// Operator routes.
		admin := v1.Group("/admin")
		{
			admin.GET("/orders", deps.AdminHandler.ListActiveOrders)
			admin.POST("/orders/:id/cancel", deps.AdminHandler.CancelOrder)
			admin.GET("/settings", deps.AdminHandler.GetSettings)
			admin.PUT("/settings/auto_accept", deps.AdminHandler.SetAutoAccept)
		}
	}

	return router
}
