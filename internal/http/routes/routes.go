package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Dhoini/offline-cashier/internal/http/handlers"
	"github.com/Dhoini/offline-cashier/internal/middleware"
	"github.com/Dhoini/offline-cashier/pkg/logger"
)

// Deps зависимости, необходимые для маршрутов
type Deps struct {
	BillingHandler *handlers.BillingHandler
	Auth           *middleware.JWTMiddleware
	Registry       *prometheus.Registry
}

// SetupRoutes настраивает все маршруты API для Gin роутера
func SetupRoutes(router *gin.Engine, deps Deps, log *logger.Logger) {
	router.Use(middleware.RequestLogger(log))
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{Registry: deps.Registry})))

	api := router.Group("/api/v1")
	api.Use(deps.Auth.RequireAuth())

	billing := api.Group("/billing")
	{
		billing.POST("/customer", deps.BillingHandler.CreateCustomer)
		billing.GET("/customer", deps.BillingHandler.GetCustomer)
		billing.PUT("/card", deps.BillingHandler.UpdateCard)
		billing.POST("/card/sync", deps.BillingHandler.SyncCard)
		billing.DELETE("/cards", deps.BillingHandler.DeleteCards)
		billing.GET("/subscriptions", deps.BillingHandler.ListSubscriptions)
	}

	log.Infow("API routes successfully configured")
}
