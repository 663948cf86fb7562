package main

import (
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/paystack"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/realtime"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/routes"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	cfg := config.Load()

	// Structured logging (JSON to stdout)
	stdout := logging.Setup(cfg.AppEnv)

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(database.DB)
	slog.SetDefault(slog.New(logging.NewMultiHandler(stdout, pgLogHandler)))

	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cfg.LogRetentionDays, cleanupDone)

	// Services
	hub := realtime.NewHub()
	settingsService := services.NewSettingsService(database.DB)
	moderationService := services.NewModerationService(database.DB)
	notificationService := services.NewNotificationService(database.DB, hub)
	apiKeyService := services.NewAPIKeyService(database.DB, cfg.APIKeyEncryptionSecret)
	authService := services.NewAuthService(database.DB, cfg, nil)
	userService := services.NewUserService(database.DB)
	productService := services.NewProductService(database.DB, moderationService)
	orderService := services.NewOrderService(database.DB, notificationService)
	paymentService := services.NewPaymentService(database.DB, cfg,
		paystack.NewClient(cfg.PaystackBaseURL, cfg.PaystackTimeout), apiKeyService, notificationService)
	transporterService := services.NewTransporterService(database.DB, cfg, settingsService, notificationService)
	chatService := services.NewChatService(database.DB, moderationService, notificationService, hub)
	reviewService := services.NewReviewService(database.DB, moderationService)
	adminService := services.NewAdminService(database.DB, authService, apiKeyService, moderationService, settingsService, notificationService)

	slog.Info("seeding marketplace settings")
	if err := settingsService.SeedDefaults(cfg.DefaultBasePricePerKm); err != nil {
		slog.Error("settings seed failed", "error", err)
	}

	sweeperDone := make(chan struct{})
	if cfg.OrderPendingTTL > 0 {
		orderService.StartExpirySweeper(cfg.OrderPendingTTL, sweeperDone)
	}

	// Handlers
	h := routes.Handlers{
		Auth:         handlers.NewAuthHandler(authService),
		Health:       handlers.NewHealthHandler(database.Ping, hub.OnlineCount),
		User:         handlers.NewUserHandler(userService),
		Product:      handlers.NewProductHandler(productService),
		Order:        handlers.NewOrderHandler(orderService, transporterService),
		Payment:      handlers.NewPaymentHandler(paymentService),
		Transporter:  handlers.NewTransporterHandler(transporterService),
		Chat:         handlers.NewChatHandler(chatService),
		Review:       handlers.NewReviewHandler(reviewService),
		Notification: handlers.NewNotificationHandler(notificationService),
		Moderation:   handlers.NewModerationHandler(moderationService),
		Settings:     handlers.NewSettingsHandler(settingsService),
		Admin:        handlers.NewAdminHandler(adminService, settingsService),
		WS:           handlers.NewWSHandler(hub, authService, chatService),
	}

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		}
	}

	app := fiber.New(fiber.Config{
		BodyLimit:    4 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(metrics.Middleware())
	app.Use(middleware.CORS(cfg))
	app.Use(middleware.SecurityHeaders())
	app.Use(middleware.Maintenance(settingsService))

	routes.Setup(app, cfg, database.DB, h)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.AppEnv)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	close(sweeperDone)
	close(cleanupDone)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if sqlDB, err := database.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(dto.Fail(message))
}
