package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/tally/internal/apperror"
	"github.com/keyxmakerx/tally/internal/validate"
)

// Handler handles HTTP requests for authentication and the caller's own
// account. Handlers are thin: they bind the request, call the service, and
// render the response. No business logic lives here.
type Handler struct {
	service AuthService
}

// NewHandler creates a new auth handler with the given service.
func NewHandler(service AuthService) *Handler {
	return &Handler{service: service}
}

// Register creates an account and returns its first token
// (POST /api/auth/register).
func (h *Handler) Register(c echo.Context) error {
	var input RegisterInput
	if err := c.Bind(&input); err != nil {
		return validate.BindError(err)
	}

	token, user, err := h.service.Register(c.Request().Context(), input)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, TokenResponse{User: user, Token: token})
}

// Login exchanges credentials for a token (POST /api/auth/login).
func (h *Handler) Login(c echo.Context) error {
	var input LoginInput
	if err := c.Bind(&input); err != nil {
		return validate.BindError(err)
	}

	token, user, err := h.service.Login(c.Request().Context(), input)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, TokenResponse{User: user, Token: token})
}

// Logout revokes the token used for this request (POST /api/auth/logout).
func (h *Handler) Logout(c echo.Context) error {
	if err := h.service.DestroySession(c.Request().Context(), getToken(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// Me returns the authenticated user (GET /api/auth/user).
func (h *Handler) Me(c echo.Context) error {
	userID := GetUserID(c)
	if userID == "" {
		return apperror.NewMissingContext()
	}

	user, err := h.service.GetUser(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateProfile changes name and email (PUT /api/auth/profile).
func (h *Handler) UpdateProfile(c echo.Context) error {
	userID := GetUserID(c)
	if userID == "" {
		return apperror.NewMissingContext()
	}

	var input ProfileInput
	if err := c.Bind(&input); err != nil {
		return validate.BindError(err)
	}

	user, err := h.service.UpdateProfile(c.Request().Context(), userID, input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// ChangePassword replaces the password and signs out every other session
// (PUT /api/auth/password).
func (h *Handler) ChangePassword(c echo.Context) error {
	userID := GetUserID(c)
	if userID == "" {
		return apperror.NewMissingContext()
	}

	var input PasswordInput
	if err := c.Bind(&input); err != nil {
		return validate.BindError(err)
	}

	if err := h.service.ChangePassword(c.Request().Context(), userID, getToken(c), input); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Password updated successfully"})
}
