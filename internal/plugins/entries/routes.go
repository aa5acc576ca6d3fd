package entries

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes mounts one kind's endpoints on the authenticated API group:
//
//	GET|POST        /<plural>
//	GET|PUT|DELETE  /<plural>/:id
//	GET             /<plural>-statistics
func RegisterRoutes(api *echo.Group, h *Handler) {
	base := "/" + h.kind.Plural

	api.GET(base, h.Index)
	api.POST(base, h.Store)
	api.GET(base+"/:id", h.Show)
	api.PUT(base+"/:id", h.Update)
	api.DELETE(base+"/:id", h.Destroy)
	api.GET(base+"-statistics", h.Statistics)
}
