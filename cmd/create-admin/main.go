// Command create-admin creates the back-office account, or promotes and
// resets an existing one, from ADMIN_EMAIL and ADMIN_PASSWORD.
package main

import (
	"log/slog"
	"os"

	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/services"
)

func main() {
	cfg := config.Load()
	logging.Setup(cfg.AppEnv)

	email, password := os.Getenv("ADMIN_EMAIL"), os.Getenv("ADMIN_PASSWORD")
	if email == "" || len(password) < 8 {
		slog.Error("ADMIN_EMAIL and ADMIN_PASSWORD (min 8 characters) are required")
		os.Exit(1)
	}

	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	user, created, err := services.NewAuthService(database.DB, cfg, nil).EnsureAdmin(email, password)
	if err != nil {
		slog.Error("create admin failed", "email", email, "error", err)
		os.Exit(1)
	}
	if created {
		slog.Info("admin account created", "user_id", user.ID.String(), "email", user.Email)
	} else {
		slog.Info("existing account promoted to admin", "user_id", user.ID.String(), "email", user.Email)
	}
}
