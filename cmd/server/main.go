package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/ksred/order-api/internal/auth"
	"github.com/ksred/order-api/internal/config"
	"github.com/ksred/order-api/internal/database"
	"github.com/ksred/order-api/internal/idempotency"
	"github.com/ksred/order-api/internal/notify"
	"github.com/ksred/order-api/internal/orders"
	"github.com/ksred/order-api/internal/payments"
	"github.com/ksred/order-api/internal/remote"
	"github.com/ksred/order-api/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// init configures the application logging based on environment settings
// In development mode, it enables pretty printing with timestamps
// Debug logging can be enabled via DEBUG environment variable
func init() {
	// Configure pretty logging for development
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global log level
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main initializes and runs the order API server with graceful shutdown
// support
func main() {
	cfg := config.Load()

	// Initialize database
	db, err := database.NewDatabase(cfg.DatabasePath)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	// Initialize router
	router := gin.Default()

	// Collaborator clients
	client := remote.NewClient()
	remoteServices := remote.NewServices(client, cfg.UserServiceURL, cfg.ProductServiceURL, cfg.OrderServiceURL)

	// Internal auth: register collaborator credentials and mint the token
	// used for service-to-service status propagation
	authService := auth.NewService(cfg.JWTSecret)
	authHandlers := auth.NewGinHandlers(authService)
	authService.RegisterAPICredentials(cfg.InternalAPIKey, cfg.InternalAPISecret)

	internalToken, err := authService.GenerateToken(auth.Credentials{
		APIKey:    cfg.InternalAPIKey,
		APISecret: cfg.InternalAPISecret,
	})
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to mint internal service token")
	}
	remoteServices.SetInternalToken(internalToken.Token)

	// Notification publisher: AMQP when configured, logging fallback
	var publisher notify.Publisher
	if cfg.AMQPURL != "" {
		publisher, err = notify.NewAMQPPublisher(cfg.AMQPURL, cfg.OrderQueue)
		if err != nil {
			zlog.Fatal().Err(err).Msg("Failed to connect to notification broker")
		}
	} else {
		publisher = notify.NewLogPublisher()
	}
	defer publisher.Close()

	// Initialize services and handlers
	idemStore := idempotency.NewStore(db)

	orderService := orders.NewService(db, remoteServices, idemStore, publisher)
	orderHandlers := orders.NewGinHandlers(orderService)

	paymentService := payments.NewService(db, remoteServices)
	paymentHandlers := payments.NewGinHandlers(paymentService)

	// Create and start the idempotency cleanup processor
	cleanupProcessor := idempotency.NewProcessor(idemStore)
	processorCtx, processorCancel := context.WithCancel(context.Background())
	defer processorCancel()

	go cleanupProcessor.Start(processorCtx)

	// Setup middleware
	router.Use(middleware.RateLimit())

	// Setup API routes
	setupRoutes(router, cfg.JWTSecret, authHandlers, orderHandlers, paymentHandlers)

	// Create server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown setup
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	// Give outstanding operations 5 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// setupRoutes configures all API endpoints and their handlers
// Routes are grouped by functionality:
// - Auth routes: token minting for collaborator services
// - Order routes: order creation saga plus CRUD
// - Payment routes: payment lifecycle
// - Internal routes: status propagation, protected by internal auth
func setupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authHandlers *auth.GinHandlers,
	orderHandlers *orders.GinHandlers,
	paymentHandlers *payments.GinHandlers,
) {
	v1 := router.Group("/api/v1")
	{
		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/token", authHandlers.GenerateTokenHandler())
		}

		// Order routes
		orderGroup := v1.Group("/orders")
		{
			orderGroup.POST("", orderHandlers.CreateOrderHandler())
			orderGroup.GET("", orderHandlers.ListOrdersHandler())
			orderGroup.GET("/:order_id", orderHandlers.GetOrderHandler())
			orderGroup.PUT("/:order_id", orderHandlers.UpdateOrderHandler())
			orderGroup.DELETE("/:order_id", orderHandlers.DeleteOrderHandler())
			orderGroup.GET("/:order_id/payment", paymentHandlers.GetPaymentByOrderHandler())
		}

		v1.GET("/users/:user_id/orders", orderHandlers.ListUserOrdersHandler())

		// Payment routes
		paymentGroup := v1.Group("/payments")
		{
			paymentGroup.POST("", paymentHandlers.CreatePaymentHandler())
			paymentGroup.GET("", paymentHandlers.ListPaymentsHandler())
			paymentGroup.GET("/:payment_id", paymentHandlers.GetPaymentHandler())
			paymentGroup.DELETE("/:payment_id", paymentHandlers.DeletePaymentHandler())
		}

		// Internal routes (status propagation between services)
		internal := v1.Group("/internal")
		internal.Use(middleware.InternalAuth(jwtSecret))
		{
			internal.PUT("/orders/:order_id/status", orderHandlers.UpdateOrderStatusHandler())
			internal.PUT("/payments/:payment_id/status", paymentHandlers.UpdatePaymentStatusHandler())
		}
	}
}
