package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/tally/internal/database"
	"github.com/keyxmakerx/tally/internal/middleware"
	"github.com/keyxmakerx/tally/internal/plugins/auth"
	"github.com/keyxmakerx/tally/internal/plugins/entries"
	"github.com/keyxmakerx/tally/internal/plugins/tags"
	"github.com/keyxmakerx/tally/internal/validate"
)

// healthTimeout bounds the dependency pings behind /healthz.
const healthTimeout = 2 * time.Second

// RegisterRoutes builds every plugin and mounts its routes. This is the
// single place where routes are aggregated.
func (a *App) RegisterRoutes() {
	e := a.Echo
	v := validate.New()

	// Health check for container orchestration.
	e.GET("/healthz", a.health)

	api := e.Group("/api")

	// --- Auth plugin ---
	userRepo := auth.NewUserRepository(a.DB)
	authService := auth.NewAuthService(userRepo, a.Redis, v, a.Config.Auth.SessionTTL)
	authLimiter := middleware.RateLimit(a.Redis, "auth", a.Config.HTTP.AuthRateLimit, a.Config.HTTP.AuthRateWindow)
	auth.RegisterRoutes(api, auth.NewHandler(authService), authService, authLimiter)

	// Everything below requires a valid bearer token.
	authed := api.Group("", auth.RequireAuth(authService))

	// --- Entries plugin (expenses and incomes) ---
	for _, kind := range []entries.Kind{entries.Expense, entries.Income} {
		repo := entries.NewRepository(a.DB, kind)
		service := entries.NewService(kind, repo, v)
		entries.RegisterRoutes(authed, entries.NewHandler(kind, service))
	}

	// --- Tags plugin ---
	tagRepo := tags.NewTagRepository(a.DB)
	tagService := tags.NewTagService(tagRepo, v)
	sharingService := tags.NewSharingService(tagRepo, tags.NewUserFinderAdapter(userRepo), v)
	tags.RegisterRoutes(authed, tags.NewHandler(tagService, sharingService))
}

// health pings MariaDB and Redis. Failures are logged, not exposed.
func (a *App) health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
	defer cancel()

	if err := database.Health(ctx, a.DB, a.Redis); err != nil {
		slog.Warn("health check failed", slog.Any("error", err))
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
