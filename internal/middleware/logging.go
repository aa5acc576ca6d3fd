// Package middleware provides HTTP middleware for the Tally Echo server.
// Middleware is applied globally (all routes) or per-route group depending
// on the middleware type. See internal/app for registration.
package middleware

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
)

// UserIDFunc resolves the authenticated user of a request, or "" for
// anonymous ones. The auth plugin provides it; middleware can't import auth.
type UserIDFunc func(c echo.Context) string

// RequestLogger returns middleware that logs every HTTP request with
// structured fields: method, path, status, latency, remote IP and, once the
// auth middleware has run, the user id.
func RequestLogger(userID UserIDFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				// Let the central error handler write the response first so
				// the logged status is the one the client saw.
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.Int("status", res.Status),
				slog.Duration("latency", time.Since(start)),
				slog.String("remote_ip", c.RealIP()),
			}
			if req.URL.RawQuery != "" {
				attrs = append(attrs, slog.String("query", req.URL.RawQuery))
			}
			if userID != nil {
				if id := userID(c); id != "" {
					attrs = append(attrs, slog.String("user_id", id))
				}
			}

			level := slog.LevelInfo
			if res.Status >= 500 {
				level = slog.LevelError
			} else if res.Status >= 400 {
				level = slog.LevelWarn
			}

			slog.LogAttrs(req.Context(), level, "request", attrs...)

			return nil
		}
	}
}
