package auth

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up the auth endpoints under /api/auth. Register and
// login are public but share the limiter passed in; everything else needs a
// valid bearer token.
func RegisterRoutes(api *echo.Group, h *Handler, service AuthService, limiter echo.MiddlewareFunc) {
	g := api.Group("/auth")

	g.POST("/register", h.Register, limiter)
	g.POST("/login", h.Login, limiter)

	authed := g.Group("", RequireAuth(service))
	authed.POST("/logout", h.Logout)
	authed.GET("/user", h.Me)
	authed.PUT("/profile", h.UpdateProfile)
	authed.PUT("/password", h.ChangePassword)
}
