package api

import (
	"github.com/gin-gonic/gin"
	"github.com/spa542/brawnyoriginals/internal/handlers"
	"github.com/spa542/brawnyoriginals/internal/middleware"
	"go.uber.org/zap"
)

// SetupRoutes configures all API routes with their middleware.
func SetupRoutes(router *gin.Engine, payments *handlers.PaymentsHandler, contact *handlers.ContactHandler, rateLimiter *middleware.RateLimiter, logger *zap.Logger) {
	router.Use(middleware.RequestIDMiddleware(logger))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.ErrorHandler())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/status", handlers.StatusHandler)

	paymentsGroup := router.Group("/payments")
	{
		// Token issuance is the abuse-prone surface; it gets the limiter.
		paymentsGroup.POST("/generate-token", rateLimiter.RateLimit(), payments.GenerateToken)
		paymentsGroup.POST("/create-checkout-session", payments.CreateCheckoutSession)
		// The provider controls webhook rate; no limiter here.
		paymentsGroup.POST("/stripe/webhook", payments.HandleWebhook)
	}

	router.POST("/contact", rateLimiter.RateLimit(), contact.SendMessage)
}
