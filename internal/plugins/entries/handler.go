package entries

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/tally/internal/apperror"
	"github.com/keyxmakerx/tally/internal/validate"
	"github.com/keyxmakerx/tally/internal/plugins/auth"
)

// Handler serves the REST endpoints of one entry kind. Handlers are thin:
// they bind the request, call the service, and render JSON.
type Handler struct {
	kind    Kind
	service Service
}

// NewHandler creates a handler for kind.
func NewHandler(kind Kind, service Service) *Handler {
	return &Handler{kind: kind, service: service}
}

// Index lists the caller's entries (GET /api/expenses).
func (h *Handler) Index(c echo.Context) error {
	userID := auth.GetUserID(c)
	if userID == "" {
		return apperror.NewMissingContext()
	}

	f, err := h.parseFilter(c)
	if err != nil {
		return err
	}

	page, err := h.service.List(c.Request().Context(), userID, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// Store creates an entry (POST /api/expenses).
func (h *Handler) Store(c echo.Context) error {
	userID := auth.GetUserID(c)
	if userID == "" {
		return apperror.NewMissingContext()
	}

	in := h.kind.newInput()
	if err := c.Bind(in); err != nil {
		return validate.BindError(err)
	}

	e, err := h.service.Create(c.Request().Context(), userID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, e)
}

// Show returns one entry (GET /api/expenses/:id).
func (h *Handler) Show(c echo.Context) error {
	userID := auth.GetUserID(c)
	if userID == "" {
		return apperror.NewMissingContext()
	}

	id, err := h.parseID(c)
	if err != nil {
		return err
	}

	e, err := h.service.Get(c.Request().Context(), userID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

// Update replaces an entry (PUT /api/expenses/:id).
func (h *Handler) Update(c echo.Context) error {
	userID := auth.GetUserID(c)
	if userID == "" {
		return apperror.NewMissingContext()
	}

	id, err := h.parseID(c)
	if err != nil {
		return err
	}

	in := h.kind.newInput()
	if err := c.Bind(in); err != nil {
		return validate.BindError(err)
	}

	e, err := h.service.Update(c.Request().Context(), userID, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

// Destroy deletes an entry (DELETE /api/expenses/:id).
func (h *Handler) Destroy(c echo.Context) error {
	userID := auth.GetUserID(c)
	if userID == "" {
		return apperror.NewMissingContext()
	}

	id, err := h.parseID(c)
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Request().Context(), userID, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": h.kind.title() + " deleted successfully",
	})
}

// Statistics returns the aggregate view (GET /api/expenses-statistics).
func (h *Handler) Statistics(c echo.Context) error {
	userID := auth.GetUserID(c)
	if userID == "" {
		return apperror.NewMissingContext()
	}

	stats, err := h.service.Statistics(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// --- Helpers ---

// parseID reads :id. Non-numeric ids can't exist, so they are a 404.
func (h *Handler) parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, apperror.NewNotFound(h.kind.title() + " not found")
	}
	return id, nil
}

// parseFilter reads the list query string. Malformed dates and tag ids are
// reported per field like body validation errors; bad paging values fall
// back to the defaults.
func (h *Handler) parseFilter(c echo.Context) (Filter, error) {
	f := Filter{
		Group: c.QueryParam(h.kind.GroupColumn),
	}
	f.Page, _ = strconv.Atoi(c.QueryParam("page"))
	f.PerPage, _ = strconv.Atoi(c.QueryParam("per_page"))

	bad := map[string]string{}

	if v := c.QueryParam("start_date"); v != "" {
		if t, err := time.Parse(DateLayout, v); err == nil {
			f.StartDate = &t
		} else {
			bad["start_date"] = "The start date is not a valid date (expected YYYY-MM-DD)."
		}
	}
	if v := c.QueryParam("end_date"); v != "" {
		if t, err := time.Parse(DateLayout, v); err == nil {
			f.EndDate = &t
		} else {
			bad["end_date"] = "The end date is not a valid date (expected YYYY-MM-DD)."
		}
	}
	if v := c.QueryParam("tag_id"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			f.TagID = n
		} else {
			bad["tag_id"] = "The tag id must be a positive integer."
		}
	}

	if len(bad) > 0 {
		return f, apperror.NewValidationFields(bad)
	}
	return f, nil
}
