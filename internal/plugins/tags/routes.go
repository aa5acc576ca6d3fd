package tags

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes mounts tag and sharing endpoints on the authenticated API
// group:
//
//	GET|POST        /tags
//	GET|PUT|DELETE  /tags/:id
//	POST            /tags/:id/share
//	DELETE          /tags/:id/unshare
//	GET             /shared-tags
func RegisterRoutes(api *echo.Group, h *Handler) {
	api.GET("/tags", h.Index)
	api.POST("/tags", h.Store)
	api.GET("/tags/:id", h.Show)
	api.PUT("/tags/:id", h.Update)
	api.DELETE("/tags/:id", h.Destroy)

	api.POST("/tags/:id/share", h.Share)
	api.DELETE("/tags/:id/unshare", h.Unshare)
	api.GET("/shared-tags", h.SharedWithMe)
}
