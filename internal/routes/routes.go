package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gorm.io/gorm"
)

type Handlers struct {
	Auth         *handlers.AuthHandler
	Health       *handlers.HealthHandler
	User         *handlers.UserHandler
	Product      *handlers.ProductHandler
	Order        *handlers.OrderHandler
	Payment      *handlers.PaymentHandler
	Transporter  *handlers.TransporterHandler
	Chat         *handlers.ChatHandler
	Review       *handlers.ReviewHandler
	Notification *handlers.NotificationHandler
	Moderation   *handlers.ModerationHandler
	Settings     *handlers.SettingsHandler
	Admin        *handlers.AdminHandler
	WS           *handlers.WSHandler
}

// WebhookPath receives Paystack events. Paystack delivers from a handful
// of IPs, so it is kept out of the per-IP limits.
const WebhookPath = "/api/payments/webhook/paystack"

func perMinute(max int) fiber.Handler {
	return limiter.New(limiter.Config{
		Next:              func(c *fiber.Ctx) bool { return c.Path() == WebhookPath },
		Max:               max,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	})
}

func Setup(app *fiber.App, cfg *config.Config, db *gorm.DB, h Handlers) {
	app.Get("/metrics", metrics.Handler())
	app.Get("/ws", h.WS.Upgrade, h.WS.Handle())

	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(perMinute(60))

	api.Get("/health", h.Health.Check)
	api.Get("/config", h.Settings.Public)

	// Signed-in, active account. Every protected route starts here.
	authed := []fiber.Handler{middleware.JWTProtected(cfg), middleware.LoadAccount(db)}
	with := func(extra ...fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, authed...), extra...)
	}
	sellers := middleware.RequireRole(models.RoleFarmer, models.RoleSupplier)
	buyers := middleware.RequireRole(models.RoleBuyer)
	transporters := middleware.RequireRole(models.RoleTransporter)

	// Auth: 10 req/min per IP
	auth := api.Group("/auth", perMinute(10))
	auth.Post("/register", h.Auth.Register)
	auth.Post("/login", h.Auth.Login)
	auth.Post("/google", h.Auth.GoogleSignIn)
	auth.Post("/refresh", h.Auth.Refresh)
	auth.Post("/logout", append(with(), h.Auth.Logout)...)
	auth.Get("/me", append(with(), h.Auth.Me)...)

	users := api.Group("/users")
	users.Get("/me/profile", append(with(), h.User.GetProfile)...)
	users.Patch("/me/profile", append(with(), h.User.UpdateProfile)...)
	users.Get("/:id", h.User.GetPublic)

	products := api.Group("/products")
	products.Get("/", h.Product.List)
	products.Get("/my/listings", append(with(sellers), h.Product.ListMine)...)
	products.Get("/:id", middleware.OptionalJWT(cfg), h.Product.Get)
	products.Post("/", append(with(sellers), h.Product.Create)...)
	products.Patch("/:id", append(with(sellers), h.Product.Update)...)
	products.Delete("/:id", append(with(middleware.RequireRole(models.RoleFarmer, models.RoleSupplier, models.RoleAdmin)), h.Product.Delete)...)

	orders := api.Group("/orders", with()...)
	orders.Post("/", buyers, h.Order.Create)
	orders.Get("/my-orders", buyers, h.Order.ListMine)
	orders.Get("/seller/my-orders", sellers, h.Order.ListSelling)
	orders.Get("/:id", h.Order.Get)
	orders.Patch("/:id/status", sellers, h.Order.UpdateStatus)
	orders.Patch("/:id/cancel", buyers, h.Order.Cancel)
	orders.Post("/:id/delivery", sellers, h.Order.AssignDelivery)

	// Payments: webhook is signature-authenticated, initialize is limited
	// to 20 req/min per IP.
	payments := api.Group("/payments")
	payments.Post("/webhook/paystack", h.Payment.PaystackWebhook)
	payments.Post("/initialize", append(with(buyers, perMinute(20)), h.Payment.Initialize)...)
	payments.Get("/verify/:reference", append(with(perMinute(20)), h.Payment.Verify)...)
	payments.Get("/history", append(with(), h.Payment.History)...)

	tp := api.Group("/transporters")
	tp.Get("/available", h.Transporter.Available)
	tp.Post("/calculate-fee", h.Transporter.CalculateFee)
	tp.Post("/profile", append(with(transporters), h.Transporter.CreateProfile)...)
	tp.Get("/profile", append(with(transporters), h.Transporter.GetProfile)...)
	tp.Post("/vehicles", append(with(transporters), h.Transporter.AddVehicle)...)
	tp.Get("/deliveries", append(with(transporters), h.Transporter.Deliveries)...)
	tp.Patch("/deliveries/:id/status", append(with(transporters), h.Transporter.UpdateDeliveryStatus)...)

	chat := api.Group("/chat", with()...)
	chat.Get("/conversations", h.Chat.Conversations)
	chat.Get("/messages/:partnerId", h.Chat.Messages)
	chat.Post("/send", h.Chat.Send)

	reviews := api.Group("/reviews")
	reviews.Post("/", append(with(), h.Review.Create)...)
	reviews.Get("/user/:userId", h.Review.ListForUser)

	notifications := api.Group("/notifications", with()...)
	notifications.Get("/", h.Notification.List)
	notifications.Patch("/read-all", h.Notification.MarkAllRead)
	notifications.Patch("/:id/read", h.Notification.MarkRead)

	api.Post("/reports", append(with(), h.Moderation.CreateReport)...)
	api.Get("/blocks", append(with(), h.Moderation.ListBlocked)...)
	api.Post("/blocks", append(with(), h.Moderation.BlockUser)...)
	api.Delete("/blocks/:id", append(with(), h.Moderation.UnblockUser)...)

	// Admin
	admin := api.Group("/admin", append(with(), middleware.AdminRequired(cfg))...)
	admin.Get("/users", h.Admin.ListUsers)
	admin.Patch("/users/:userId/role", h.Admin.UpdateRole)
	admin.Patch("/users/:userId/suspend", h.Admin.Suspend)
	admin.Patch("/products/:productId/approve", h.Admin.ApproveProduct)
	admin.Patch("/reviews/:reviewId/approve", h.Admin.ApproveReview)
	admin.Get("/orders", h.Admin.ListOrders)
	admin.Get("/orders/export", h.Admin.ExportOrders)
	admin.Get("/analytics", h.Admin.Analytics)
	admin.Get("/api-keys", h.Admin.ListAPIKeys)
	admin.Post("/api-keys", h.Admin.CreateAPIKey)
	admin.Patch("/api-keys/:id", h.Admin.UpdateAPIKey)
	admin.Delete("/api-keys/:id", h.Admin.DeleteAPIKey)
	admin.Get("/logs", h.Admin.Logs)
	admin.Get("/reports", h.Admin.ListReports)
	admin.Put("/reports/:id", h.Admin.ActionReport)
	admin.Get("/config", h.Admin.ListSettings)
	admin.Put("/config/:key", h.Admin.SetSetting)
	admin.Delete("/config/:key", h.Admin.DeleteSetting)
}
