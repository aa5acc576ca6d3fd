package auth

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/tally/internal/apperror"
)

// Context keys for storing session data in Echo context. Other plugins
// use these keys (via the exported getter functions below) to access
// the authenticated user's information.
const (
	contextKeyUserID = "auth_user_id"
	contextKeyToken  = "auth_token"
)

// RequireAuth returns middleware that validates the bearer token and injects
// session data into the request context. Missing, unknown and expired tokens
// all produce the same 401.
func RequireAuth(service AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c)
			if token == "" {
				return apperror.NewUnauthorized("unauthenticated")
			}

			session, err := service.ValidateSession(c.Request().Context(), token)
			if err != nil {
				return err
			}

			SetSession(c, session)
			c.Set(contextKeyToken, token)

			return next(c)
		}
	}
}

// --- Exported getters for other plugins ---

// SetSession stores an authenticated session on the context. RequireAuth
// calls it; handler tests in other plugins use it to fake a login.
func SetSession(c echo.Context, session *Session) {
	c.Set(contextKeyUserID, session.UserID)
}

// GetUserID retrieves the authenticated user's ID from the Echo context.
// Returns empty string if the request is not authenticated.
func GetUserID(c echo.Context) string {
	id, ok := c.Get(contextKeyUserID).(string)
	if !ok {
		return ""
	}
	return id
}

// getToken returns the bearer token RequireAuth accepted.
func getToken(c echo.Context) string {
	token, _ := c.Get(contextKeyToken).(string)
	return token
}

// bearerToken extracts the token from "Authorization: Bearer <token>". The
// scheme is matched case-insensitively.
func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
