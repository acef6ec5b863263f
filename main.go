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
	"github.com/redis/go-redis/v9"
	"github.com/spa542/brawnyoriginals/internal/api"
	"github.com/spa542/brawnyoriginals/internal/config"
	"github.com/spa542/brawnyoriginals/internal/dispatch"
	"github.com/spa542/brawnyoriginals/internal/email"
	"github.com/spa542/brawnyoriginals/internal/fulfillment"
	"github.com/spa542/brawnyoriginals/internal/handlers"
	"github.com/spa542/brawnyoriginals/internal/logging"
	"github.com/spa542/brawnyoriginals/internal/middleware"
	"github.com/spa542/brawnyoriginals/internal/models"
	"github.com/spa542/brawnyoriginals/internal/payments"
	"github.com/spa542/brawnyoriginals/internal/recaptcha"
	"github.com/spa542/brawnyoriginals/internal/secrets"
	"github.com/spa542/brawnyoriginals/internal/services"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "Path to config file")
	port := pflag.IntP("port", "p", 0, "HTTP server listen port (overrides config)")
	logLevel := pflag.StringP("log-level", "l", "", "Log level (debug, info, warn, error)")
	version := pflag.BoolP("version", "v", false, "Print version and exit")
	pflag.Parse()

	if *version {
		fmt.Println("brawnyoriginals version 1.0.0")
		os.Exit(0)
	}

	cfg, err := config.LoadWithPath(*configPath)
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		panic("Invalid configuration: " + err.Error())
	}

	logger, err := logging.InitLogger(logging.LoggingConfig(cfg.Logging))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	// Redis backs the rate limiter only; all payment state is either derived
	// cryptographically or cached in memory.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	// Secret cache: one bulk Doppler fetch per TTL window, shared by every
	// component that needs a key.
	doppler := secrets.NewDopplerClient(cfg.Doppler.APIKey, cfg.Doppler.Project, cfg.Doppler.Config, logger)
	secretCache := secrets.NewCache(doppler, logger, secrets.WithTTL(cfg.Secrets.TTL))

	tokenService := services.NewCheckoutTokenService(secretCache, logger,
		services.WithTokenLifetime(cfg.Checkout.TokenLifetime))
	verifier := services.NewWebhookVerifier(secretCache, logger,
		services.WithTolerance(cfg.Webhook.Tolerance))
	checkoutService := payments.NewCheckoutService(secretCache, payments.Config{
		PaymentMethodConfigurationID: cfg.Stripe.PaymentMethodConfigurationID,
	}, logger)
	mailer := email.NewMailgunClient(secretCache, email.Config{
		URL:          cfg.Mailgun.URL,
		FromName:     cfg.Mailgun.FromName,
		FromAddress:  cfg.Mailgun.FromAddress,
		ContactEmail: cfg.Mailgun.ContactEmail,
	}, logger)
	captcha := recaptcha.NewClient(secretCache, cfg.Recaptcha.Threshold, logger)

	fulfillmentService := fulfillment.NewService(mailer, cfg.Fulfillment.Items, logger)
	dispatcher := dispatch.NewDispatcher(logger)
	dispatcher.Register(models.EventPaymentSucceeded, fulfillmentService.Handler())
	dispatcher.Register(models.EventCheckoutCompleted, dispatch.RecordOnly(logger))
	dispatcher.Register(models.EventCheckoutExpired, dispatch.RecordOnly(logger))
	dispatcher.Register(models.EventPaymentFailed, dispatch.RecordOnly(logger))

	paymentsHandler := handlers.NewPaymentsHandler(
		tokenService,
		checkoutService,
		verifier,
		dispatcher,
		captcha,
		models.NewPriceList(cfg.Checkout.ValidPriceIDs),
		logger,
	)
	contactHandler := handlers.NewContactHandler(captcha, mailer, logger)

	rateLimiter := middleware.NewRateLimiter(redisClient,
		middleware.WithBucketSize(cfg.RateLimit.BucketSize),
		middleware.WithRefillRate(cfg.RateLimit.RefillRate))

	router := gin.New()
	router.Use(gin.Recovery())
	api.SetupRoutes(router, paymentsHandler, contactHandler, rateLimiter, logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Info("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Fatal("Server forced to shutdown", zap.Error(err))
		}
	}()

	logger.Info("Starting server", zap.Int("port", cfg.Server.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("Server error", zap.Error(err))
	}
}
