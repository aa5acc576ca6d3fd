package tags

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/tally/internal/apperror"
	"github.com/keyxmakerx/tally/internal/plugins/auth"
	"github.com/keyxmakerx/tally/internal/validate"
)

// Handler handles HTTP requests for tags and tag sharing. Handlers are thin:
// bind request, call service, return JSON.
type Handler struct {
	tags    TagService
	sharing SharingService
}

// NewHandler creates a new tag handler.
func NewHandler(tags TagService, sharing SharingService) *Handler {
	return &Handler{tags: tags, sharing: sharing}
}

// Index lists the caller's tags (GET /api/tags).
func (h *Handler) Index(c echo.Context) error {
	userID := auth.GetUserID(c)
	if userID == "" {
		return apperror.NewMissingContext()
	}

	tags, err := h.tags.List(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	if tags == nil {
		tags = []Tag{}
	}
	return c.JSON(http.StatusOK, tags)
}

// Store creates a tag (POST /api/tags).
func (h *Handler) Store(c echo.Context) error {
	userID := auth.GetUserID(c)
	if userID == "" {
		return apperror.NewMissingContext()
	}

	var input TagInput
	if err := c.Bind(&input); err != nil {
		return validate.BindError(err)
	}

	tag, err := h.tags.Create(c.Request().Context(), userID, input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, tag)
}

// Show returns one tag (GET /api/tags/:id).
func (h *Handler) Show(c echo.Context) error {
	userID := auth.GetUserID(c)
	if userID == "" {
		return apperror.NewMissingContext()
	}

	id, err := parseID(c)
	if err != nil {
		return err
	}

	tag, err := h.tags.Get(c.Request().Context(), userID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tag)
}

// Update renames or recolors a tag (PUT /api/tags/:id).
func (h *Handler) Update(c echo.Context) error {
	userID := auth.GetUserID(c)
	if userID == "" {
		return apperror.NewMissingContext()
	}

	id, err := parseID(c)
	if err != nil {
		return err
	}

	var input TagInput
	if err := c.Bind(&input); err != nil {
		return validate.BindError(err)
	}

	tag, err := h.tags.Update(c.Request().Context(), userID, id, input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tag)
}

// Destroy deletes a tag (DELETE /api/tags/:id).
func (h *Handler) Destroy(c echo.Context) error {
	userID := auth.GetUserID(c)
	if userID == "" {
		return apperror.NewMissingContext()
	}

	id, err := parseID(c)
	if err != nil {
		return err
	}

	if err := h.tags.Delete(c.Request().Context(), userID, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Tag deleted successfully"})
}

// Share grants another user read access (POST /api/tags/:id/share).
func (h *Handler) Share(c echo.Context) error {
	userID := auth.GetUserID(c)
	if userID == "" {
		return apperror.NewMissingContext()
	}

	id, err := parseID(c)
	if err != nil {
		return err
	}

	var input ShareInput
	if err := c.Bind(&input); err != nil {
		return validate.BindError(err)
	}

	target, err := h.sharing.Share(c.Request().Context(), userID, id, input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ShareResponse{
		Message:    "Tag shared successfully",
		SharedWith: *target,
	})
}

// Unshare revokes a share (DELETE /api/tags/:id/unshare). user_id may come
// from the JSON body or the query string.
func (h *Handler) Unshare(c echo.Context) error {
	userID := auth.GetUserID(c)
	if userID == "" {
		return apperror.NewMissingContext()
	}

	id, err := parseID(c)
	if err != nil {
		return err
	}

	var input UnshareInput
	if err := c.Bind(&input); err != nil {
		return validate.BindError(err)
	}

	if err := h.sharing.Unshare(c.Request().Context(), userID, id, input); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Tag unshared successfully"})
}

// SharedWithMe lists tags other users shared with the caller
// (GET /api/shared-tags).
func (h *Handler) SharedWithMe(c echo.Context) error {
	userID := auth.GetUserID(c)
	if userID == "" {
		return apperror.NewMissingContext()
	}

	shared, err := h.sharing.ListSharedWithMe(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	if shared == nil {
		shared = []SharedTag{}
	}
	return c.JSON(http.StatusOK, shared)
}

// parseID reads :id. Non-numeric ids can't exist, so they are a 404.
func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, apperror.NewNotFound("Tag not found")
	}
	return id, nil
}
